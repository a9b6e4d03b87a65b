package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/guslan/chip8"
	"github.com/guslan/chip8/gui"
)

func main() {
	autostart := flag.Bool("start", false, "Starts the console automatically if there is a program loaded (defaults = false).")
	debug := flag.Bool("debug", false, "Log every executed instruction (defaults = false).")
	initialSpeed := flag.Uint("speed", chip8.DefaultSpeed, fmt.Sprintf("The starting speed of the CPU in Hz. It has to be in the range [%d, %d] (defaults = %d).", chip8.MinSpeed, chip8.MaxSpeed, chip8.DefaultSpeed))
	cyclesPerFrame := flag.Uint("xframes", chip8.DefaultCyclesPerFrame, fmt.Sprintf("The number of cycles that run between each frame (defaults = %d).", chip8.DefaultCyclesPerFrame))
	coupled := flag.Bool("coupled", false, "Decrement the timers once per instruction instead of at 60Hz (defaults = false).")

	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	app := gui.NewConsoleApp(func(config *gui.AppConfig) {
		config.Speed = *initialSpeed
		config.Trace = *debug
		config.CyclesPerFrame = *cyclesPerFrame
		if *coupled {
			config.TimerMode = chip8.TimersCoupled
		}
	})

	if flag.NArg() > 0 {
		app.Load(flag.Arg(0))
	}

	app.Run(*autostart)
}
