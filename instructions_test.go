package chip8_test

import (
	"bytes"
	"testing"

	"github.com/guslan/chip8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assemble(ops ...uint16) []byte {
	buf := make([]byte, 0, len(ops)*2)
	for _, op := range ops {
		buf = append(buf, byte(op>>8), byte(op))
	}
	return buf
}

func loadCpu(t *testing.T, ops []uint16, opts ...chip8.CpuOption) *chip8.Cpu {
	t.Helper()
	cpu := chip8.NewCpu(opts...)
	require.NoError(t, cpu.LoadProgram(assemble(ops...)))
	return cpu
}

func steps(t *testing.T, cpu *chip8.Cpu, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, cpu.Step(), "step %d", i)
	}
}

func TestNewCpu(t *testing.T) {
	cpu := chip8.NewCpu()

	assert.Equal(t, uint16(chip8.StartOfProgram), cpu.Pc)
	assert.Equal(t, [16]byte{}, cpu.V)
	assert.Zero(t, cpu.I)
	assert.Zero(t, cpu.Sp)
	assert.Zero(t, cpu.Dt)
	assert.Zero(t, cpu.St)
	assert.Equal(t, chip8.TimersCoupled, cpu.TimerMode())

	// glyph 0 and glyph F
	assert.Equal(t, []byte{0xF0, 0x90, 0x90, 0x90, 0xF0}, cpu.Memory[0x050:0x055])
	assert.Equal(t, []byte{0xF0, 0x80, 0xF0, 0x80, 0x80}, cpu.Memory[0x09B:0x0A0])
	assert.Equal(t, make([]byte, 0x50), cpu.Memory[:0x050])
	assert.Equal(t, make([]byte, chip8.MemorySize-0x0A0), cpu.Memory[0x0A0:])

	screen := cpu.Screen()
	assert.Equal(t, chip8.Screen{}, screen)
}

func TestLoadProgramLimits(t *testing.T) {
	t.Run("exactly fits", func(t *testing.T) {
		cpu := chip8.NewCpu()
		program := bytes.Repeat([]byte{0xAB}, chip8.MaxProgramLength)
		program[len(program)-1] = 0xCD

		require.NoError(t, cpu.LoadProgram(program))
		assert.Equal(t, byte(0xAB), cpu.Memory[0x200])
		assert.Equal(t, byte(0xCD), cpu.Memory[0xFFF])
	})

	t.Run("one byte too many", func(t *testing.T) {
		cpu := chip8.NewCpu()
		program := bytes.Repeat([]byte{0xAB}, chip8.MaxProgramLength+1)

		err := cpu.LoadProgram(program)
		assert.ErrorIs(t, err, chip8.ErrRomTooLarge)
		assert.Zero(t, cpu.Memory[0x200])
	})

	t.Run("does not reset state", func(t *testing.T) {
		cpu := chip8.NewCpu()
		cpu.V[3] = 7
		cpu.Pc = 0x300

		require.NoError(t, cpu.LoadProgram([]byte{0x12, 0x34}))
		assert.Equal(t, byte(7), cpu.V[3])
		assert.Equal(t, uint16(0x300), cpu.Pc)
	})
}

func TestBitwiseOperations(t *testing.T) {
	values := []byte{0x00, 0x0F, 0x3C, 0xA5, 0xFF}

	for _, a := range values {
		for _, b := range values {
			cpu := loadCpu(t, []uint16{0x8121, 0x8342, 0x8563})
			cpu.V[1], cpu.V[2] = a, b
			cpu.V[3], cpu.V[4] = a, b
			cpu.V[5], cpu.V[6] = a, b
			steps(t, cpu, 3)

			assert.Equal(t, a|b, cpu.V[1], "OR %02X %02X", a, b)
			assert.Equal(t, a&b, cpu.V[3], "AND %02X %02X", a, b)
			assert.Equal(t, a^b, cpu.V[5], "XOR %02X %02X", a, b)
			assert.Equal(t, b, cpu.V[2])
		}
	}

	t.Run("same register", func(t *testing.T) {
		cpu := loadCpu(t, []uint16{0x8111, 0x8222, 0x8333})
		cpu.V[1], cpu.V[2], cpu.V[3] = 0x5A, 0x5A, 0x5A
		steps(t, cpu, 3)

		assert.Equal(t, byte(0x5A), cpu.V[1])
		assert.Equal(t, byte(0x5A), cpu.V[2])
		assert.Equal(t, byte(0x00), cpu.V[3])
	})
}

func TestLoadRegister(t *testing.T) {
	cpu := loadCpu(t, []uint16{0x8130})
	cpu.V[1], cpu.V[3] = 2, 5
	steps(t, cpu, 1)

	assert.Equal(t, byte(5), cpu.V[1])
	assert.Equal(t, byte(5), cpu.V[3])
}

func TestFlaggedArithmetic(t *testing.T) {
	tests := []struct {
		name   string
		op     uint16
		vx, vy byte
		wantVx byte
		wantVf byte
	}{
		{"ADD with carry", 0x8124, 0xFF, 0x01, 0x00, 1},
		{"ADD wraps modulo 256", 0x8124, 0xF0, 0x20, 0x10, 1},
		{"ADD without carry", 0x8124, 0x10, 0x20, 0x30, 0},
		{"ADD to exactly 255", 0x8124, 0xFE, 0x01, 0xFF, 0},
		{"SUB without borrow", 0x8125, 5, 3, 2, 1},
		{"SUB with borrow", 0x8125, 3, 5, 0xFE, 0},
		{"SUB equal operands", 0x8125, 5, 5, 0, 0},
		{"SHR odd", 0x8126, 0x05, 0, 0x02, 1},
		{"SHR even", 0x8126, 0x04, 0, 0x02, 0},
		{"SUBN without borrow", 0x8127, 3, 5, 2, 1},
		{"SUBN with borrow", 0x8127, 5, 3, 0xFE, 0},
		{"SUBN equal operands", 0x8127, 5, 5, 0, 0},
		{"SHL high bit set", 0x812E, 0x81, 0, 0x02, 1},
		{"SHL high bit clear", 0x812E, 0x41, 0, 0x82, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu := loadCpu(t, []uint16{tt.op})
			cpu.V[1], cpu.V[2] = tt.vx, tt.vy
			cpu.V[0xF] = 0x77
			steps(t, cpu, 1)

			assert.Equal(t, tt.wantVx, cpu.V[1])
			assert.Equal(t, tt.wantVf, cpu.V[0xF])
		})
	}

	t.Run("result written to VF wins over the flag", func(t *testing.T) {
		cpu := loadCpu(t, []uint16{0x8F14})
		cpu.V[0xF], cpu.V[1] = 0x10, 0x02
		steps(t, cpu, 1)

		assert.Equal(t, byte(0x12), cpu.V[0xF])
	})
}

func TestAddImmediateWrapsWithoutFlag(t *testing.T) {
	cpu := loadCpu(t, []uint16{0x7001})
	cpu.V[0] = 0xFF
	cpu.V[0xF] = 7
	steps(t, cpu, 1)

	assert.Equal(t, byte(0x00), cpu.V[0])
	assert.Equal(t, byte(7), cpu.V[0xF])
}

func TestJumps(t *testing.T) {
	t.Run("JP", func(t *testing.T) {
		cpu := loadCpu(t, []uint16{0x1ABC})
		steps(t, cpu, 1)
		assert.Equal(t, uint16(0xABC), cpu.Pc)
	})

	t.Run("JP V0", func(t *testing.T) {
		cpu := loadCpu(t, []uint16{0xB300})
		cpu.V[0] = 4
		steps(t, cpu, 1)
		assert.Equal(t, uint16(0x304), cpu.Pc)
	})
}

func TestCallAndReturn(t *testing.T) {
	cpu := loadCpu(t, []uint16{0x2206, 0x6101, 0x1204, 0x00EE})

	steps(t, cpu, 1)
	assert.Equal(t, uint16(0x206), cpu.Pc)
	assert.Equal(t, byte(1), cpu.Sp)
	assert.Equal(t, uint16(0x202), cpu.Stack[0])

	steps(t, cpu, 1)
	assert.Equal(t, uint16(0x202), cpu.Pc)
	assert.Equal(t, byte(0), cpu.Sp)
}

func TestStackFaults(t *testing.T) {
	t.Run("return from an empty stack", func(t *testing.T) {
		cpu := loadCpu(t, []uint16{0x00EE})
		cpu.Dt = 3

		err := cpu.Step()
		assert.ErrorIs(t, err, chip8.ErrStackUnderflow)
		assert.Equal(t, uint16(0x200), cpu.Pc)
		assert.Equal(t, byte(0), cpu.Sp)
		assert.Equal(t, byte(3), cpu.Dt, "a failed step does not tick the timers")
		assert.Equal(t, uint16(0x00EE), cpu.OpCode)
	})

	t.Run("call beyond 16 levels", func(t *testing.T) {
		cpu := loadCpu(t, []uint16{0x2200})
		steps(t, cpu, chip8.StackSize)
		assert.Equal(t, byte(chip8.StackSize), cpu.Sp)

		err := cpu.Step()
		assert.ErrorIs(t, err, chip8.ErrStackOverflow)
		assert.Equal(t, uint16(0x200), cpu.Pc)
		assert.Equal(t, uint16(0x2200), cpu.OpCode)
		assert.Equal(t, byte(chip8.StackSize), cpu.Sp)
	})
}

func TestIndexInstructions(t *testing.T) {
	cpu := loadCpu(t, []uint16{0xA100, 0xF21E, 0xF029})
	cpu.V[2] = 0x10
	cpu.V[0] = 0xA

	steps(t, cpu, 1)
	assert.Equal(t, uint16(0x100), cpu.I)

	steps(t, cpu, 1)
	assert.Equal(t, uint16(0x110), cpu.I)

	steps(t, cpu, 1)
	assert.Equal(t, uint16(chip8.FontSetAddress+5*0xA), cpu.I)
	assert.Equal(t, []byte{0xF0, 0x90, 0xF0, 0x90, 0x90}, cpu.Memory[cpu.I:cpu.I+5])
}

func TestRandom(t *testing.T) {
	t.Run("masks the random byte", func(t *testing.T) {
		cpu := loadCpu(t, []uint16{0xC10F}, chip8.WithRandom(bytes.NewReader([]byte{0xAB})))
		steps(t, cpu, 1)
		assert.Equal(t, byte(0x0B), cpu.V[1])
	})

	t.Run("random source failure", func(t *testing.T) {
		cpu := loadCpu(t, []uint16{0xC1FF}, chip8.WithRandom(bytes.NewReader(nil)))
		cpu.V[1] = 9

		assert.Error(t, cpu.Step())
		assert.Equal(t, byte(9), cpu.V[1])
		assert.Equal(t, uint16(0x200), cpu.Pc)
	})
}

func TestDrawCollision(t *testing.T) {
	// draw the glyph of 0 twice at 0,0
	cpu := loadCpu(t, []uint16{0x6000, 0xF029, 0xD005, 0xD005})

	steps(t, cpu, 3)
	screen := cpu.Screen()
	assert.Equal(t, byte(0), cpu.V[0xF])
	assert.True(t, screen.Pixel(0, 0))
	assert.True(t, screen.Pixel(3, 4))
	assert.False(t, screen.Pixel(1, 1))

	steps(t, cpu, 1)
	screen = cpu.Screen()
	assert.Equal(t, byte(1), cpu.V[0xF])
	assert.Equal(t, chip8.Screen{}, screen)
}

func TestDrawWraps(t *testing.T) {
	t.Run("horizontally", func(t *testing.T) {
		cpu := loadCpu(t, []uint16{0x603F, 0x6100, 0xA050, 0xD011})
		steps(t, cpu, 4)

		screen := cpu.Screen()
		for _, x := range []int{63, 0, 1, 2} {
			assert.True(t, screen.Pixel(x, 0), "x=%d", x)
		}
		assert.False(t, screen.Pixel(3, 0))
		assert.False(t, screen.Pixel(62, 0))
	})

	t.Run("vertically", func(t *testing.T) {
		cpu := loadCpu(t, []uint16{0x6000, 0x611F, 0xA050, 0xD012})
		steps(t, cpu, 4)

		screen := cpu.Screen()
		// first row 0xF0 at y=31, second row 0x90 wraps to y=0
		assert.True(t, screen.Pixel(1, 31))
		assert.True(t, screen.Pixel(0, 0))
		assert.False(t, screen.Pixel(1, 0))
		assert.True(t, screen.Pixel(3, 0))
	})

	t.Run("starting position", func(t *testing.T) {
		cpu := loadCpu(t, []uint16{0x6045, 0x6122, 0xA050, 0xD011})
		steps(t, cpu, 4)

		screen := cpu.Screen()
		// 0x45 % 64 = 5, 0x22 % 32 = 2
		assert.True(t, screen.Pixel(5, 2))
		assert.True(t, screen.Pixel(8, 2))
		assert.False(t, screen.Pixel(9, 2))
	})
}

func TestDrawOutOfBounds(t *testing.T) {
	cpu := loadCpu(t, []uint16{0xAFFE, 0xD003})
	cpu.V[0xF] = 5
	steps(t, cpu, 1)

	err := cpu.Step()
	var oob chip8.ErrOutOfBounds
	require.ErrorAs(t, err, &oob)
	assert.Equal(t, uint32(0x1000), oob.Addr)
	assert.Equal(t, uint16(0x202), oob.Pc)
	assert.Equal(t, uint16(0x202), cpu.Pc)
	assert.Equal(t, byte(5), cpu.V[0xF])
	assert.Equal(t, chip8.Screen{}, cpu.Screen())
}

func TestClearScreen(t *testing.T) {
	cpu := loadCpu(t, []uint16{0xA050, 0x6000, 0xD00F, 0x6020, 0xD00F, 0x00E0})
	steps(t, cpu, 5)
	require.NotEqual(t, chip8.Screen{}, cpu.Screen())

	steps(t, cpu, 1)
	assert.Equal(t, chip8.Screen{}, cpu.Screen())
}

func TestKeySkips(t *testing.T) {
	tests := []struct {
		name     string
		op       uint16
		v0       byte
		pressed  byte
		wantSkip bool
	}{
		{"SKP pressed", 0xE09E, 5, 5, true},
		{"SKP not pressed", 0xE09E, 5, 6, false},
		{"SKNP pressed", 0xE0A1, 5, 5, false},
		{"SKNP not pressed", 0xE0A1, 5, 6, true},
		{"SKP key out of range", 0xE09E, 0x20, 0, false},
		{"SKNP key out of range", 0xE0A1, 0x20, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu := loadCpu(t, []uint16{tt.op})
			cpu.V[0] = tt.v0
			cpu.PressKey(tt.pressed)
			steps(t, cpu, 1)

			want := uint16(0x202)
			if tt.wantSkip {
				want = 0x204
			}
			assert.Equal(t, want, cpu.Pc)
		})
	}
}

func TestWaitForKey(t *testing.T) {
	cpu := loadCpu(t, []uint16{0xF30A})

	steps(t, cpu, 1)
	assert.Equal(t, uint16(0x200), cpu.Pc)
	steps(t, cpu, 1)
	assert.Equal(t, uint16(0x200), cpu.Pc)

	cpu.PressKey(7)
	cpu.PressKey(3)
	steps(t, cpu, 1)
	assert.Equal(t, byte(3), cpu.V[3])
	assert.Equal(t, uint16(0x202), cpu.Pc)
}

func TestTimerInstructions(t *testing.T) {
	cpu := loadCpu(t, []uint16{0xF015, 0xF118, 0xF207}, chip8.WithTimerMode(chip8.TimersDecoupled))
	cpu.V[0] = 10
	cpu.V[1] = 20
	steps(t, cpu, 2)

	assert.Equal(t, byte(10), cpu.Dt)
	assert.Equal(t, byte(20), cpu.St)

	cpu.TickTimers()
	steps(t, cpu, 1)
	assert.Equal(t, byte(9), cpu.V[2])
	assert.Equal(t, byte(19), cpu.St)
}

func TestCoupledTimers(t *testing.T) {
	cpu := loadCpu(t, []uint16{0x6000, 0x6000, 0xF015})
	cpu.Dt = 1
	cpu.St = 2

	steps(t, cpu, 1)
	assert.Equal(t, byte(0), cpu.Dt)
	assert.Equal(t, byte(1), cpu.St)

	steps(t, cpu, 1)
	assert.Equal(t, byte(0), cpu.Dt)
	assert.Equal(t, byte(0), cpu.St)

	// LD DT, V0 with V0 = 0 then tick: stays at 0
	steps(t, cpu, 1)
	assert.Equal(t, byte(0), cpu.Dt)
}

func TestStoreBCD(t *testing.T) {
	for _, tt := range []struct {
		v    byte
		want []byte
	}{
		{137, []byte{1, 3, 7}},
		{255, []byte{2, 5, 5}},
		{42, []byte{0, 4, 2}},
		{0, []byte{0, 0, 0}},
	} {
		cpu := loadCpu(t, []uint16{0xA300, 0xF533})
		cpu.V[5] = tt.v
		steps(t, cpu, 2)
		assert.Equal(t, tt.want, cpu.Memory[0x300:0x303], "BCD of %d", tt.v)
	}

	t.Run("out of bounds", func(t *testing.T) {
		cpu := loadCpu(t, []uint16{0xAFFE, 0xF033})
		steps(t, cpu, 1)

		var oob chip8.ErrOutOfBounds
		assert.ErrorAs(t, cpu.Step(), &oob)
		assert.Equal(t, byte(0), cpu.Memory[0xFFE])
	})
}

func TestStoreAndLoadRegisters(t *testing.T) {
	cpu := loadCpu(t, []uint16{0xA300, 0xF555, 0xF565})
	original := [16]byte{1, 2, 3, 4, 5, 6, 0x70, 0x80}
	cpu.V = original
	steps(t, cpu, 2)

	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 0}, cpu.Memory[0x300:0x307])
	assert.Equal(t, uint16(0x300), cpu.I)

	cpu.V = [16]byte{}
	steps(t, cpu, 1)
	assert.Equal(t, [16]byte{1, 2, 3, 4, 5, 6}, cpu.V)

	t.Run("all sixteen registers", func(t *testing.T) {
		cpu := loadCpu(t, []uint16{0xA400, 0xFF55})
		for i := range cpu.V {
			cpu.V[i] = byte(i + 1)
		}
		steps(t, cpu, 2)
		assert.Equal(t, byte(16), cpu.Memory[0x40F])
	})

	t.Run("out of bounds", func(t *testing.T) {
		cpu := loadCpu(t, []uint16{0xAFFC, 0xF555, 0xF565})
		cpu.V[0] = 0x11
		steps(t, cpu, 1)

		var oob chip8.ErrOutOfBounds
		assert.ErrorAs(t, cpu.Step(), &oob)
		assert.Equal(t, byte(0), cpu.Memory[0xFFC])

		cpu.Pc = 0x204
		assert.ErrorAs(t, cpu.Step(), &oob)
		assert.Equal(t, byte(0x11), cpu.V[0])
	})
}

func TestUnknownOpcodes(t *testing.T) {
	unknown := []uint16{0x8008, 0xE000, 0xF0FF, 0xF001}

	for _, op := range unknown {
		cpu := loadCpu(t, []uint16{op})
		cpu.V[0] = 3
		steps(t, cpu, 1)

		assert.Equal(t, uint16(0x202), cpu.Pc, "opcode %04X", op)
		assert.Equal(t, byte(3), cpu.V[0])
	}

	t.Run("strict", func(t *testing.T) {
		cpu := loadCpu(t, []uint16{0xF0FF})
		cpu.Strict = true

		var unknown chip8.ErrOpCodeUnknown
		require.ErrorAs(t, cpu.Step(), &unknown)
		assert.Equal(t, uint16(0xF0FF), unknown.OpCode)
		assert.Equal(t, uint16(0x200), cpu.Pc)
	})
}

func TestMachineRoutines(t *testing.T) {
	var called []uint16
	cpu := loadCpu(t, []uint16{0x0123}, chip8.WithMachineRoutineInterpreter(func(ins chip8.Instruction, cpu *chip8.Cpu) error {
		called = append(called, ins.NNN)
		return nil
	}))
	steps(t, cpu, 1)

	assert.Equal(t, []uint16{0x123}, called)
	assert.Equal(t, uint16(0x202), cpu.Pc)
}

func TestReset(t *testing.T) {
	cpu := loadCpu(t, []uint16{0x6105, 0xA050, 0xD005, 0x2200})
	steps(t, cpu, 4)
	cpu.PressKey(2)

	cpu.Reset()

	assert.Equal(t, uint16(0x200), cpu.Pc)
	assert.Equal(t, [16]byte{}, cpu.V)
	assert.Zero(t, cpu.Sp)
	assert.Zero(t, cpu.I)
	assert.Equal(t, chip8.KeyboardState{}, cpu.Keys)
	assert.Equal(t, chip8.Screen{}, cpu.Screen())
	assert.Equal(t, assemble(0x6105), cpu.Memory[0x200:0x202])
}
