package chip8

import (
	"crypto/rand"
	"io"
)

const (
	RegisterCount = 16
	StackSize     = 16
	KeyCount      = 16
)

// TimerMode selects who is responsible for decrementing the timers.
type TimerMode byte

const (
	// TimersCoupled decrements both timers once after every executed instruction.
	TimersCoupled TimerMode = iota
	// TimersDecoupled leaves the timers alone in Step, the host calls TickTimers at 60Hz.
	TimersDecoupled
)

// MachineRoutineInterpreter interpretes SYS instructions (0nnn).
// When nil, SYS is ignored like in modern interpreters.
type MachineRoutineInterpreter func(ins Instruction, cpu *Cpu) error

// Chip-8 CPU
type Cpu struct {
	Memory *Memory
	// V 8-bit registers
	V [RegisterCount]byte
	// I 16-bit register
	I uint16
	// Delay timer register
	Dt byte
	// Sound timer register
	St byte
	// Program counter
	Pc uint16
	// Stack pointer, the next free slot of Stack
	Sp byte
	// Stack
	Stack [StackSize]uint16
	// Keys is the hex keypad, written by the input collaborator between steps
	Keys KeyboardState
	// OpCode is the last fetched instruction word
	OpCode uint16

	// Strict makes unknown opcodes fail with ErrOpCodeUnknown instead of being ignored
	Strict bool

	MachineRoutineInterpreter MachineRoutineInterpreter

	screen        Screen
	isScreenDirty bool

	timerMode TimerMode
	random    io.Reader
}

type CpuOption func(cpu *Cpu)

// WithRandom sets the source of the random bytes used by RND.
func WithRandom(r io.Reader) CpuOption {
	return func(cpu *Cpu) {
		cpu.random = r
	}
}

func WithTimerMode(mode TimerMode) CpuOption {
	return func(cpu *Cpu) {
		cpu.timerMode = mode
	}
}

func WithMachineRoutineInterpreter(fn MachineRoutineInterpreter) CpuOption {
	return func(cpu *Cpu) {
		cpu.MachineRoutineInterpreter = fn
	}
}

// NewCpu creates a CPU with the font set in memory, every register, timer and
// the stack zeroed, and the program counter at the start-of-program address.
func NewCpu(opts ...CpuOption) *Cpu {
	cpu := &Cpu{
		Memory: NewMemory(),
		Pc:     StartOfProgram,

		timerMode: TimersCoupled,
		random:    rand.Reader,
	}

	for _, opt := range opts {
		opt(cpu)
	}

	return cpu
}

func (cpu *Cpu) TimerMode() TimerMode {
	return cpu.timerMode
}

func (cpu *Cpu) IsSoundTimerActive() bool {
	return cpu.St > 0
}

func (cpu *Cpu) IsDelayTimerActive() bool {
	return cpu.Dt > 0
}

// Screen returns a copy of the framebuffer.
func (cpu *Cpu) Screen() Screen {
	return cpu.screen
}

// LoadProgram copies the program into memory at the start-of-program address.
// No other state is touched.
func (cpu *Cpu) LoadProgram(program []byte) error {
	return cpu.Memory.LoadProgram(program)
}

// Reset zeroes registers, timers, stack, keypad and screen and moves the
// program counter back to the start-of-program address.
// The loaded program stays in memory and the font set is restored.
func (cpu *Cpu) Reset() {
	cpu.V = [RegisterCount]byte{}
	cpu.I = 0
	cpu.Dt = 0
	cpu.St = 0
	cpu.Pc = StartOfProgram
	cpu.Sp = 0
	cpu.Stack = [StackSize]uint16{}
	cpu.Keys = KeyboardState{}
	cpu.OpCode = 0

	cpu.Memory.loadFontSet()
	cpu.clearScreen()
}

func (cpu *Cpu) PressKey(k byte) {
	if k < KeyCount {
		cpu.Keys[k] = true
	}
}

func (cpu *Cpu) ReleaseKey(k byte) {
	if k < KeyCount {
		cpu.Keys[k] = false
	}
}

func (cpu *Cpu) SetKeys(state KeyboardState) {
	cpu.Keys = state
}

// TickTimers decrements each non-zero timer by one.
func (cpu *Cpu) TickTimers() {
	if cpu.Dt > 0 {
		cpu.Dt--
	}
	if cpu.St > 0 {
		cpu.St--
	}
}

// Step fetches, decodes and executes a single instruction.
// A failing step leaves the program counter on the faulting instruction and
// OpCode holding the faulting word. Nothing else changes.
func (cpu *Cpu) Step() error {
	pc := cpu.Pc

	opCode, err := cpu.fetch(pc)
	if err != nil {
		return err
	}
	cpu.OpCode = opCode
	cpu.Pc += 2

	if err := cpu.executeInstruction(Decode(opCode), pc); err != nil {
		cpu.Pc = pc
		return err
	}

	if cpu.timerMode == TimersCoupled {
		cpu.TickTimers()
	}

	return nil
}

func (cpu *Cpu) fetch(pc uint16) (uint16, error) {
	if !inBounds(uint32(pc), 2) {
		return 0, ErrOutOfBounds{Addr: uint32(pc) + 1, Pc: pc}
	}

	var opCode uint16
	opCode |= uint16(cpu.Memory[pc+0]) << 8
	opCode |= uint16(cpu.Memory[pc+1]) << 0

	return opCode, nil
}

func (cpu *Cpu) clearScreen() {
	cpu.screen.clear()
	cpu.isScreenDirty = true
}

// consumeScreenDirty reports whether the screen changed since the last call.
func (cpu *Cpu) consumeScreenDirty() bool {
	dirty := cpu.isScreenDirty
	cpu.isScreenDirty = false

	return dirty
}

func bool2byte(b bool) byte {
	if b {
		return 1
	}

	return 0
}
