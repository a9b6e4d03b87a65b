package gui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/guslan/chip8"
)

const (
	ToolbarGap       = 5
	ToolbarBtnWidth  = 80
	ToolbarBtnHeight = 40
	ToolbarHeight    = 50
	ToolbarBtnOffset = ToolbarBtnWidth + ToolbarGap

	ScreenPixelSize = 15
	ScreenPositionX = 0
	ScreenPositionY = ToolbarHeight + 1

	MessageBarGap   = 5
	MessageBarHeigh = 30
)

var MessageBarBgColor = rl.DarkGray
var MessageBarInfoColor = rl.SkyBlue
var MessageBarSuccessColor = rl.Lime
var MessageBarWarningColor = rl.Gold
var MessageBarErrorColor = rl.Red

type MessageType byte

const (
	MessageInfo MessageType = iota
	MessageSuccess
	MessageWarning
	MessageError
)

type AppConfig struct {
	Speed          uint
	CyclesPerFrame uint
	TimerMode      chip8.TimerMode
	KeyboardLayout chip8.KeyboardLayout
	// Trace logs every executed instruction at debug level
	Trace bool
}
type AppConfigCb func(config *AppConfig)

type ConsoleApp struct {
	// Keys pressed in the window
	*chip8.InMemoryKeyboard
	// The underlying console
	Console *chip8.Console
	// Speed factor
	// Speed in Hz is speedFactor+1 * 5
	speedFactor float32

	// Copy of the last rendered screen, written by the console loop
	screen   chip8.Screen
	screenMu sync.Mutex
	buzzing  atomic.Bool

	keyboardLookupMap map[ScanCode]byte

	// Window width and height
	winW, winH int

	// Toolbar
	startBtn, stopBtn, stepBtn, restBtn bool

	loadedProgramPath string

	msgMu            sync.Mutex
	lastMessage      string
	lastMessageColor rl.Color
}

func speedFactorToHz(s float32) uint {
	return uint((s + 1) * 5)
}

func hzToSpeedFactor(hz uint) float32 {
	return float32(hz)/5 - 1
}

func NewConsoleApp(configs ...AppConfigCb) *ConsoleApp {
	config := &AppConfig{
		Speed:          chip8.DefaultSpeed,
		CyclesPerFrame: chip8.DefaultCyclesPerFrame,
		TimerMode:      chip8.TimersDecoupled,
		KeyboardLayout: chip8.DefaultKeyboardLayout,
	}
	for _, cb := range configs {
		cb(config)
	}

	app := &ConsoleApp{
		InMemoryKeyboard:  chip8.NewInMemoryKeyboard(),
		speedFactor:       hzToSpeedFactor(config.Speed),
		keyboardLookupMap: map[ScanCode]byte{},
	}

	cpu := chip8.NewCpu(chip8.WithTimerMode(config.TimerMode))
	app.Console = chip8.NewConsole(cpu, app, app, app, func(c *chip8.ConsoleConfig) {
		c.SpeedInHz = config.Speed
		c.CyclesPerFrame = config.CyclesPerFrame
		c.StartPaused = true
	})
	if config.Trace {
		app.Console.AddAfterCycleHook(chip8.TraceHook(slog.Default()))
	}

	app.updateKeyboardLookupMap(config.KeyboardLayout)
	app.updateWindowSize()

	return app
}

// Run initializes the console and the UI loop
func (app *ConsoleApp) Run(autostart bool) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Console.Boot(); err != nil {
		slog.Error("Error booting console", slog.Any("error", err))
		return
	}
	if autostart && app.hasProgramLoaded() {
		app.Console.Start()
	}

	go func(console *chip8.Console) {
		slog.Info("starting CPU loop")
		if err := console.Loop(ctx); err != nil {
			app.showMessage(err.Error(), MessageError)
			slog.Error("CPU halted", slog.Any("error", err))
		}
	}(app.Console)

	rl.InitWindow(int32(app.winW), int32(app.winH), "chip8")
	defer rl.CloseWindow()

	gui.LoadStyleDefault()
	rl.SetTargetFPS(60)
	for !rl.WindowShouldClose() {
		rl.BeginDrawing()

		rl.ClearBackground(rl.Black)

		app.handleFileLoad()
		app.handleActions()
		app.handleKeyPress()
		app.updateCpuSpeed()

		// Sections get rendered from bottom to the top so that the toolbar stays on top
		app.drawMessageBar()
		app.drawScreen()
		app.drawToolbar()

		rl.EndDrawing()
	}
}

func (app *ConsoleApp) Load(path string) {
	if err := app.Console.LoadFile(path); err != nil {
		slog.Error("Error loading program", slog.String("path", path), slog.Any("error", err))
		app.showMessage(err.Error(), MessageError)
		return
	}

	app.loadedProgramPath = path
	app.showMessage(fmt.Sprintf("Program '%s' loaded", app.loadedProgramPath), MessageInfo)
}

func (app *ConsoleApp) updateWindowSize() {
	app.winW = chip8.ScreenWidth * ScreenPixelSize
	app.winH = chip8.ScreenHeight*ScreenPixelSize + ToolbarHeight + MessageBarHeigh
	slog.Info("Updating window size", slog.Int("width", app.winW), slog.Int("height", app.winH))
}

func (app *ConsoleApp) updateKeyboardLookupMap(layout chip8.KeyboardLayout) {
	for r, k := range chip8.LookupMap(layout) {
		if scanCode, ok := runeToKey[r]; ok {
			app.keyboardLookupMap[scanCode] = k
		}
	}
}

func (app *ConsoleApp) handleFileLoad() {
	if rl.IsFileDropped() {
		files := rl.LoadDroppedFiles()
		defer rl.UnloadDroppedFiles()

		slog.Info("Files were dropped", "files", strings.Join(files, ","))

		app.Load(files[0])
	}
}

func (app *ConsoleApp) hasProgramLoaded() bool {
	return len(app.loadedProgramPath) > 0
}

func (app *ConsoleApp) handleActions() {
	if app.startBtn {
		if app.hasProgramLoaded() {
			app.Console.Start()
			slog.Info("Starting the console")
		} else {
			app.showMessage("There is no program loaded", MessageError)
		}
	}
	if app.stopBtn {
		app.Console.Stop()
		slog.Info("Stopping the console")
	}
	if app.restBtn {
		if err := app.Console.Reset(); err != nil {
			app.showMessage(err.Error(), MessageError)
		}
		slog.Info("Resetting the program to the beginning")
	}
	if app.stepBtn {
		if err := app.Console.LoopOnce(); err != nil {
			app.showMessage(err.Error(), MessageError)
		}
		slog.Info("Running a single cycle")
	}
}

func (app *ConsoleApp) handleKeyPress() {
	for scanCode, key := range app.keyboardLookupMap {
		app.SetKey(key, rl.IsKeyDown(scanCode))
	}
}

func (app *ConsoleApp) updateCpuSpeed() {
	app.Console.SetSpeedInHz(speedFactorToHz(app.speedFactor))
}

var (
	MinSpeedFactor = hzToSpeedFactor(chip8.MinSpeed)
	MaxSpeedFactor = hzToSpeedFactor(chip8.MaxSpeed)
)

func (app *ConsoleApp) drawToolbar() {
	rl.DrawRectangle(0, 0, int32(rl.GetScreenWidth()), ToolbarHeight, rl.Gray)

	app.startBtn = gui.Button(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*0, ToolbarGap, ToolbarBtnWidth, ToolbarBtnHeight),
		gui.IconText(gui.ICON_PLAYER_PLAY, "Start"),
	)
	app.stopBtn = gui.Button(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*1, ToolbarGap, ToolbarBtnWidth, ToolbarBtnHeight),
		gui.IconText(gui.ICON_PLAYER_STOP, "Stop"),
	)
	app.stepBtn = gui.Button(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*2, ToolbarGap, ToolbarBtnWidth, ToolbarBtnHeight),
		gui.IconText(gui.ICON_PLAYER_NEXT, "Step"),
	)
	app.restBtn = gui.Button(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*3, ToolbarGap, ToolbarBtnWidth, ToolbarBtnHeight),
		gui.IconText(gui.ICON_ROTATE, "Reset"),
	)

	status := "Stopped"
	if app.Console.IsRunning() {
		status = "Running"
	}
	if app.buzzing.Load() {
		status += " (beep)"
	}
	gui.Label(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*4, ToolbarGap, ToolbarBtnWidth*2, ToolbarBtnHeight),
		status,
	)

	gui.Label(
		rl.NewRectangle(float32(app.winW)-ToolbarGap-150, 26, 50, 20),
		fmt.Sprintf("%d Hz", speedFactorToHz(app.speedFactor)),
	)

	if gui.Button(
		rl.NewRectangle(float32(app.winW)-ToolbarGap-150+50, 26, 50, 20),
		gui.IconText(gui.ICON_ROTATE, ""),
	) {
		app.speedFactor = hzToSpeedFactor(chip8.DefaultSpeed)
	}

	app.speedFactor = gui.Slider(
		rl.NewRectangle(float32(app.winW)-ToolbarGap-150, ToolbarGap, 100, 20),
		fmt.Sprintf("%d Hz", chip8.MinSpeed), fmt.Sprintf("%d Hz", chip8.MaxSpeed),
		app.speedFactor,
		MinSpeedFactor,
		MaxSpeedFactor,
	)
}

func (app *ConsoleApp) showMessage(msg string, mType MessageType) {
	app.msgMu.Lock()
	defer app.msgMu.Unlock()

	app.lastMessage = msg
	switch mType {
	case MessageInfo:
		app.lastMessageColor = MessageBarInfoColor

	case MessageSuccess:
		app.lastMessageColor = MessageBarSuccessColor

	case MessageWarning:
		app.lastMessageColor = MessageBarWarningColor

	case MessageError:
		app.lastMessageColor = MessageBarErrorColor
	}
}

func (app *ConsoleApp) drawMessageBar() {
	app.msgMu.Lock()
	msg, color := app.lastMessage, app.lastMessageColor
	app.msgMu.Unlock()

	rl.DrawRectangle(
		0,
		int32(app.winH)-MessageBarHeigh,
		int32(app.winW),
		MessageBarHeigh,
		MessageBarBgColor,
	)

	rl.DrawText(
		msg,
		MessageBarGap,
		int32(app.winH)-MessageBarHeigh+MessageBarGap,
		16,
		color,
	)
}
