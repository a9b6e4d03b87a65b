package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/guslan/chip8"
	"github.com/pkg/errors"
)

type Server struct {
	*chip8.InMemoryKeyboard
	*chip8.DummyBuzzer

	console *chip8.Console
	mux     *http.ServeMux

	socket  *websocket.Conn
	wsMutex sync.Mutex
}

type ServerConfig struct {
	// Directory with the browser front-end, served at /
	StaticDir      string
	SpeedInHz      uint
	CyclesPerFrame uint
	TimerMode      chip8.TimerMode
	// Trace logs every executed instruction at debug level
	Trace bool
}
type ServerConfigCb func(config *ServerConfig)

var upgrader = websocket.Upgrader{} // use default options

func NewServer(configs ...ServerConfigCb) *Server {
	config := &ServerConfig{
		StaticDir:      "./static",
		SpeedInHz:      chip8.DefaultSpeed,
		CyclesPerFrame: chip8.DefaultCyclesPerFrame,
		TimerMode:      chip8.TimersCoupled,
	}
	for _, cb := range configs {
		cb(config)
	}

	s := &Server{
		InMemoryKeyboard: chip8.NewInMemoryKeyboard(),
		DummyBuzzer:      chip8.NewDummyBuzzer(),
		mux:              http.NewServeMux(),
	}

	cpu := chip8.NewCpu(chip8.WithTimerMode(config.TimerMode))
	s.console = chip8.NewConsole(cpu, s, s, s.DummyBuzzer, func(c *chip8.ConsoleConfig) {
		c.SpeedInHz = config.SpeedInHz
		c.CyclesPerFrame = config.CyclesPerFrame
		c.StartPaused = true
	})
	if config.Trace {
		s.console.AddAfterCycleHook(chip8.TraceHook(slog.Default()))
	}
	s.console.AddErrorHook(func(cpu *chip8.Cpu) {
		slog.Error("CPU halted", slog.String("pc", strconv.FormatUint(uint64(cpu.Pc), 16)))
	})

	s.routes(config.StaticDir)

	return s
}

// Boot implements chip8.Keyboard and chip8.Display.
func (server *Server) Boot() error {
	return nil
}

func (server *Server) Console() *chip8.Console {
	return server.console
}

// Handler returns the HTTP handler with every endpoint of the server.
func (server *Server) Handler() http.Handler {
	return server.mux
}

func (server *Server) Speed(s uint) {
	server.console.SetSpeedInHz(s)
}

// LoadProgram loads the program into memory and resets the console
func (server *Server) LoadProgram(program []byte) error {
	return server.console.LoadProgram(program)
}

// Listen boots the console, runs it and serves HTTP on addr until ctx is done.
func (server *Server) Listen(ctx context.Context, addr string) error {
	if err := server.console.Boot(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := server.console.Loop(ctx); err != nil {
			slog.Error("CPU loop stopped", slog.Any("error", err))
		}
	}()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		httpServer.Shutdown(shutdownCtx)
	}()

	slog.Info("Listening", slog.String("addr", addr))

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrapf(err, "listening on %s", addr)
	}

	return nil
}

func noCache(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Expose-Headers", "Content-Type")

	w.Header().Set("Cache-Control", "no-cache")
}

func (server *Server) routes(staticDir string) {
	server.mux.Handle("/", http.FileServer(http.Dir(staticDir)))

	server.mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		noCache(w)
		slog.Info("Starting")
		server.console.Start()
		w.WriteHeader(http.StatusNoContent)
	})
	server.mux.HandleFunc("/stop", func(w http.ResponseWriter, r *http.Request) {
		noCache(w)
		slog.Info("Stopping")
		server.console.Stop()
		w.WriteHeader(http.StatusNoContent)
	})
	server.mux.HandleFunc("/reset", func(w http.ResponseWriter, r *http.Request) {
		noCache(w)
		slog.Info("Stopping and resetting")
		server.console.Stop()
		if err := server.console.Reset(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	server.mux.HandleFunc("/step", func(w http.ResponseWriter, r *http.Request) {
		noCache(w)
		slog.Info("Single cycle")
		if err := server.console.LoopOnce(); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	server.mux.HandleFunc("/load", server.handleLoad)
	server.mux.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) {
		noCache(w)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(server.console.Snapshot()); err != nil {
			slog.Error("Error writing state", slog.Any("error", err))
		}
	})
	server.mux.HandleFunc("/display", server.handleDisplay)
	server.mux.HandleFunc("/keys", server.handleKeys)
}

func (server *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	noCache(w)
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	program, err := io.ReadAll(io.LimitReader(r.Body, chip8.MaxProgramLength+1))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	server.console.Stop()
	if err := server.console.LoadProgram(program); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chip8.ErrRomTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		http.Error(w, err.Error(), status)
		return
	}

	slog.Info("Program loaded", slog.Int("size", len(program)))
	w.WriteHeader(http.StatusNoContent)
}

func (server *Server) handleDisplay(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("upgrade", slog.Any("error", err))
		return
	}
	defer conn.Close()

	slog.Info("Connecting to display")
	server.setWs(conn)
	defer server.unsetWs(conn)

	screen := server.console.Screen()
	if err := server.Render(&screen); err != nil {
		slog.Error("Error writing screen", slog.Any("error", err))
		return
	}

	// Block until the client goes away, the reads also process control frames.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			slog.Info("Disconnecting from display")
			return
		}
	}
}

// handleKeys reads text messages of the form "down <hex key>" and "up <hex key>".
func (server *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("upgrade", slog.Any("error", err))
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		k, pressed, err := parseKeyEvent(string(msg))
		if err != nil {
			slog.Warn("Invalid key event", slog.String("msg", string(msg)), slog.Any("error", err))
			continue
		}
		server.SetKey(k, pressed)
	}
}

func parseKeyEvent(msg string) (byte, bool, error) {
	action, key, found := strings.Cut(strings.TrimSpace(msg), " ")
	if !found {
		return 0, false, errors.Errorf("malformed key event %q", msg)
	}

	k, err := strconv.ParseUint(key, 16, 8)
	if err != nil || k >= chip8.KeyCount {
		return 0, false, errors.Errorf("invalid key %q", key)
	}

	switch action {
	case "down":
		return byte(k), true, nil
	case "up":
		return byte(k), false, nil
	}

	return 0, false, errors.Errorf("unknown key action %q", action)
}
