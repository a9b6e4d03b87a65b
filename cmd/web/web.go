package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/guslan/chip8"
	"github.com/guslan/chip8/web"
)

func main() {
	port := flag.Int("port", 9999, "The port of the server (default = 9999)")
	speed := flag.Uint("speed", chip8.DefaultSpeed, "Speed in cycles per second")
	static := flag.String("static", "./web/static", "Directory of the browser front-end")
	trace := flag.Bool("trace", false, "Log every executed instruction")
	flag.Parse()

	level := slog.LevelInfo
	if *trace {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	server := web.NewServer(func(config *web.ServerConfig) {
		config.StaticDir = *static
		config.SpeedInHz = *speed
		config.Trace = *trace
	})

	if flag.NArg() > 0 {
		if err := server.Console().LoadFile(flag.Arg(0)); err != nil {
			slog.Error("Error loading program", slog.Any("error", err))
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := server.Listen(ctx, fmt.Sprintf(":%d", *port)); err != nil {
		slog.Error("Server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
