package chip8

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultSpeed          uint = 500
	MaxSpeed              uint = 5000
	MinSpeed              uint = 5
	DefaultCyclesPerFrame uint = 8

	// TimerFrequency is the rate at which decoupled timers are decremented.
	TimerFrequency = 60
)

// ConsoleConfig holds the run loop settings.
type ConsoleConfig struct {
	// Speed in cycles per second, clamped to [MinSpeed, MaxSpeed]
	SpeedInHz uint
	// Cycles between the end-of-frame work (render, buzzer, frame hooks)
	CyclesPerFrame uint
	// StartPaused makes Loop idle until Start is called
	StartPaused bool
}

type ConsoleConfigCb func(config *ConsoleConfig)

// Console drives a Cpu: it paces the cycles, feeds the keypad from the
// keyboard between steps and pushes the screen and the sound state out to
// the display and the buzzer.
//
// Start, Stop, Reset, LoadProgram and Snapshot may be called from other
// goroutines while Loop runs.
type Console struct {
	Display  Display
	Keyboard Keyboard
	Buzzer   Buzzer

	mu  sync.Mutex
	cpu *Cpu

	program []byte

	cycles uint
	frames uint

	speedInHz      atomic.Uint64
	step           atomic.Int64
	cyclesPerFrame uint

	isBooted  bool
	isPaused  atomic.Bool
	lastError error

	lastTimerTick time.Time
	now           func() time.Time

	// Hooks that run before every frame
	beforeFrameHooks []Hook
	// Hooks that run before every cycle
	beforeCycleHooks []Hook
	// Hooks that run after every cycle
	afterCycleHooks []Hook
	// Hooks that run after every frame
	afterFrameHooks []Hook
	// Hooks that run after an error
	errorHooks []Hook
}

func NewConsole(cpu *Cpu, display Display, keyboard Keyboard, buzzer Buzzer, configs ...ConsoleConfigCb) *Console {
	config := &ConsoleConfig{
		SpeedInHz:      DefaultSpeed,
		CyclesPerFrame: DefaultCyclesPerFrame,
		StartPaused:    false,
	}
	for _, cb := range configs {
		cb(config)
	}

	c := &Console{
		Display:  display,
		Keyboard: keyboard,
		Buzzer:   buzzer,

		cpu:            cpu,
		cyclesPerFrame: max(config.CyclesPerFrame, 1),
		now:            time.Now,

		beforeFrameHooks: make([]Hook, 0),
		beforeCycleHooks: make([]Hook, 0),
		afterCycleHooks:  make([]Hook, 0),
		afterFrameHooks:  make([]Hook, 0),
		errorHooks:       make([]Hook, 0),
	}
	c.SetSpeedInHz(config.SpeedInHz)
	c.isPaused.Store(config.StartPaused)

	return c
}

func (c *Console) IsRunning() bool {
	return !c.isPaused.Load()
}

func (c *Console) Start() {
	c.isPaused.Store(false)
}

// Stop pauses the loop. Decoupled timers are frozen while paused.
func (c *Console) Stop() {
	c.isPaused.Store(true)

	c.mu.Lock()
	c.lastTimerTick = time.Time{}
	c.mu.Unlock()
}

func (c *Console) SpeedInHz() uint {
	return uint(c.speedInHz.Load())
}

// SetSpeedInHz changes the number of cycles per second, clamped to [MinSpeed, MaxSpeed].
func (c *Console) SetSpeedInHz(inHz uint) {
	inHz = min(max(inHz, MinSpeed), MaxSpeed)
	c.speedInHz.Store(uint64(inHz))
	c.step.Store(int64(time.Second / time.Duration(inHz)))
}

func (c *Console) Cycles() uint {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cycles
}

func (c *Console) Frames() uint {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.frames
}

// LastError returns the fault that halted the console, if any.
func (c *Console) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lastError
}

// Boot initializes all the components
// If the console was already booted, this method is a noop
func (c *Console) Boot() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isBooted {
		return nil
	}

	if err := c.Display.Boot(); err != nil {
		return errors.Wrap(err, "booting display")
	}

	if err := c.Keyboard.Boot(); err != nil {
		return errors.Wrap(err, "booting keyboard")
	}

	if err := c.Buzzer.Boot(); err != nil {
		return errors.Wrap(err, "booting buzzer")
	}

	c.isBooted = true

	return nil
}

// LoadProgram replaces the program in memory and resets the console.
func (c *Console) LoadProgram(program []byte) error {
	if len(program) > MaxProgramLength {
		return ErrRomTooLarge
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.program = append(c.program[:0], program...)
	return c.reset()
}

// LoadFile reads the program at path and loads it.
func (c *Console) LoadFile(path string) error {
	program, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading program %s", path)
	}

	if err := c.LoadProgram(program); err != nil {
		return errors.Wrapf(err, "loading program %s (%d bytes)", path, len(program))
	}

	slog.Info("Program loaded", slog.String("path", path), slog.Int("size", len(program)))

	return nil
}

// Reset restarts the loaded program from a clean state.
func (c *Console) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.reset()
}

func (c *Console) reset() error {
	c.cpu.Reset()
	c.cpu.Memory.ClearProgram()
	if err := c.cpu.LoadProgram(c.program); err != nil {
		return err
	}

	c.cycles = 0
	c.frames = 0
	c.lastError = nil
	c.lastTimerTick = time.Time{}

	c.cpu.consumeScreenDirty()
	if c.isBooted {
		return c.Display.Render(&c.cpu.screen)
	}

	return nil
}

// LoopAtSpeed sets the speed and starts the loop
func (c *Console) LoopAtSpeed(ctx context.Context, speedInHz uint) error {
	c.SetSpeedInHz(speedInHz)
	return c.Loop(ctx)
}

// Loop runs cycles at the current speed until ctx is done or the CPU faults.
func (c *Console) Loop(ctx context.Context) error {
	if err := c.checkRunnable(); err != nil {
		return err
	}

	var last time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := c.runNextCycle(false); err != nil {
			return err
		}

		// Prevent the CPU from running faster than expected
		time.Sleep(max(time.Duration(c.step.Load())-time.Since(last), 0))
		last = time.Now()
	}
}

// LoopOnce runs a single cycle bypassing the pause state
func (c *Console) LoopOnce() error {
	if err := c.checkRunnable(); err != nil {
		return err
	}

	return c.runNextCycle(true)
}

func (c *Console) checkRunnable() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isBooted {
		return ErrCpuIsNotBooted
	}

	return c.lastError
}

func (c *Console) runNextCycle(force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastError != nil {
		return c.lastError
	}

	if c.isPaused.Load() {
		// Paused time never reaches the decoupled timers, single steps only re-arm them.
		c.lastTimerTick = time.Time{}
		if !force {
			return nil
		}
	}

	if c.cycles%c.cyclesPerFrame == 0 {
		c.runHooks(c.beforeFrameHooks)
	}

	// The keypad only changes between steps.
	c.cpu.SetKeys(c.Keyboard.State())

	c.runHooks(c.beforeCycleHooks)
	if err := c.cpu.Step(); err != nil {
		return c.fail(err)
	}
	c.cycles++
	c.runHooks(c.afterCycleHooks)

	if c.cycles%c.cyclesPerFrame == 0 {
		return c.endFrame()
	}

	if force {
		return c.render()
	}

	return nil
}

func (c *Console) endFrame() error {
	if c.cpu.TimerMode() == TimersDecoupled {
		c.tickTimers()
	}

	if c.cpu.IsSoundTimerActive() {
		c.Buzzer.Play()
	} else {
		c.Buzzer.Stop()
	}

	if err := c.render(); err != nil {
		return err
	}

	c.frames++
	c.runHooks(c.afterFrameHooks)

	return nil
}

func (c *Console) render() error {
	if !c.cpu.consumeScreenDirty() {
		return nil
	}

	if err := c.Display.Render(&c.cpu.screen); err != nil {
		return c.fail(errors.Wrap(err, "rendering screen"))
	}

	return nil
}

// tickTimers decrements the timers once for every 60Hz period elapsed since the last tick.
func (c *Console) tickTimers() {
	now := c.now()
	if c.lastTimerTick.IsZero() {
		c.lastTimerTick = now
		return
	}

	period := time.Second / TimerFrequency
	ticks := now.Sub(c.lastTimerTick) / period
	for i := time.Duration(0); i < ticks; i++ {
		c.cpu.TickTimers()
	}
	c.lastTimerTick = c.lastTimerTick.Add(ticks * period)
}

func (c *Console) fail(err error) error {
	c.lastError = err
	c.runHooks(c.errorHooks)

	return err
}

// CpuState is a copy of the visible CPU registers.
type CpuState struct {
	Pc     uint16              `json:"pc"`
	I      uint16              `json:"i"`
	Sp     byte                `json:"sp"`
	V      [RegisterCount]byte `json:"v"`
	Stack  [StackSize]uint16   `json:"stack"`
	Dt     byte                `json:"dt"`
	St     byte                `json:"st"`
	OpCode uint16              `json:"opcode"`
	Keys   KeyboardState       `json:"keys"`
	Cycles uint                `json:"cycles"`
	Frames uint                `json:"frames"`
	Status string              `json:"status"`
	Error  string              `json:"error,omitempty"`
}

// Snapshot copies the CPU registers.
func (c *Console) Snapshot() CpuState {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := CpuState{
		Pc:     c.cpu.Pc,
		I:      c.cpu.I,
		Sp:     c.cpu.Sp,
		V:      c.cpu.V,
		Stack:  c.cpu.Stack,
		Dt:     c.cpu.Dt,
		St:     c.cpu.St,
		OpCode: c.cpu.OpCode,
		Keys:   c.cpu.Keys,
		Cycles: c.cycles,
		Frames: c.frames,
		Status: "running",
	}
	if c.isPaused.Load() {
		state.Status = "stopped"
	}
	if c.lastError != nil {
		state.Status = "halted"
		state.Error = c.lastError.Error()
	}

	return state
}

// Screen returns a copy of the current framebuffer.
func (c *Console) Screen() Screen {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cpu.Screen()
}
