package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/guslan/chip8"
)

func main() {
	speed := flag.Uint("speed", chip8.DefaultSpeed, fmt.Sprintf("The speed of the CPU in Hz (defaults = %d).", chip8.DefaultSpeed))
	cyclesPerFrame := flag.Uint("xframes", chip8.DefaultCyclesPerFrame, "The number of cycles that run between each frame.")
	decoupled := flag.Bool("timers60", false, "Decrement the timers at 60Hz instead of once per instruction.")
	strict := flag.Bool("strict", false, "Halt on unknown opcodes instead of ignoring them.")
	noTerm := flag.Bool("noterm", false, "Turn off the terminal display of the emulator.")
	trace := flag.Bool("trace", false, "Log every executed instruction.")
	logFile := flag.String("log", "", "Write logs to this file instead of stderr.")

	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "must provide the path to a rom as an argument")
		os.Exit(2)
	}

	logOut := os.Stderr
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	level := slog.LevelInfo
	if *trace {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level})))

	opts := []chip8.CpuOption{}
	if *decoupled {
		opts = append(opts, chip8.WithTimerMode(chip8.TimersDecoupled))
	}
	cpu := chip8.NewCpu(opts...)
	cpu.Strict = *strict

	var d chip8.Display = chip8.NewTerminalDisplay()
	if *noTerm {
		d = chip8.NewDummyDisplay()
	}
	kb := chip8.NewTerminalKeyboard()
	defer kb.Close()

	console := chip8.NewConsole(cpu, d, kb, chip8.NewDummyBuzzer(), func(config *chip8.ConsoleConfig) {
		config.SpeedInHz = *speed
		config.CyclesPerFrame = *cyclesPerFrame
	})
	if *trace {
		console.AddAfterCycleHook(chip8.TraceHook(slog.Default()))
	}

	if err := console.LoadFile(flag.Arg(0)); err != nil {
		slog.Error("Error loading program", slog.Any("error", err))
		os.Exit(1)
	}

	if err := console.Boot(); err != nil {
		slog.Error("Error booting console", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := console.Loop(ctx); err != nil {
		slog.Error("CPU halted", slog.Any("error", err))
		kb.Close()
		os.Exit(1)
	}
}
