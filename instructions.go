package chip8

import (
	"io"

	"github.com/pkg/errors"
)

// executeInstruction runs a decoded instruction. pc is the address the
// instruction was fetched from, cpu.Pc already points to the next one.
// Every check that can fail happens before the first write to the CPU state.
func (cpu *Cpu) executeInstruction(ins Instruction, pc uint16) error {
	x, y := ins.X, ins.Y

	switch ins.Op {
	case OpCls:
		// CLS :: Clear the display.
		cpu.clearScreen()

	case OpRet:
		// RET :: Return from a subroutine.
		if cpu.Sp == 0 {
			return ErrStackUnderflow
		}
		cpu.Sp--
		cpu.Pc = cpu.Stack[cpu.Sp]

	case OpSys:
		// SYS addr :: Jump to a machine code routine at nnn.
		// Only used on the old computers on which Chip-8 was originally implemented.
		if cpu.MachineRoutineInterpreter != nil {
			return cpu.MachineRoutineInterpreter(ins, cpu)
		}

	case OpJp:
		// JP addr :: Jump to location nnn.
		cpu.Pc = ins.NNN

	case OpCall:
		// CALL addr :: Call subroutine at nnn.
		if cpu.Sp >= StackSize {
			return ErrStackOverflow
		}
		cpu.Stack[cpu.Sp] = cpu.Pc
		cpu.Sp++
		cpu.Pc = ins.NNN

	case OpSeByte:
		// SE Vx, byte :: Skip next instruction if Vx = kk.
		if cpu.V[x] == ins.KK {
			cpu.Pc += 2
		}

	case OpSneByte:
		// SNE Vx, byte :: Skip next instruction if Vx != kk.
		if cpu.V[x] != ins.KK {
			cpu.Pc += 2
		}

	case OpSeReg:
		// SE Vx, Vy :: Skip next instruction if Vx = Vy.
		if cpu.V[x] == cpu.V[y] {
			cpu.Pc += 2
		}

	case OpLdByte:
		// LD Vx, byte :: Set Vx = kk.
		cpu.V[x] = ins.KK

	case OpAddByte:
		// ADD Vx, byte :: Set Vx = Vx + kk. VF is untouched.
		cpu.V[x] += ins.KK

	case OpLdReg:
		// LD Vx, Vy :: Set Vx = Vy.
		cpu.V[x] = cpu.V[y]

	case OpOr:
		// OR Vx, Vy :: Set Vx = Vx OR Vy.
		cpu.V[x] |= cpu.V[y]

	case OpAnd:
		// AND Vx, Vy :: Set Vx = Vx AND Vy.
		cpu.V[x] &= cpu.V[y]

	case OpXor:
		// XOR Vx, Vy :: Set Vx = Vx XOR Vy.
		cpu.V[x] ^= cpu.V[y]

	case OpAddReg, OpSub, OpShr, OpSubn, OpShl:
		cpu.executeFlagged(ins)

	case OpSneReg:
		// SNE Vx, Vy :: Skip next instruction if Vx != Vy.
		if cpu.V[x] != cpu.V[y] {
			cpu.Pc += 2
		}

	case OpLdI:
		// LD I, addr :: Set I = nnn.
		cpu.I = ins.NNN

	case OpJpV0:
		// JP V0, addr :: Jump to location nnn + V0.
		cpu.Pc = uint16(cpu.V[0]) + ins.NNN

	case OpRnd:
		// RND Vx, byte :: Set Vx = random byte AND kk.
		buff := [1]byte{}
		if _, err := io.ReadFull(cpu.random, buff[:]); err != nil {
			return errors.Wrapf(err, "RND at PC=%X", pc)
		}
		cpu.V[x] = buff[0] & ins.KK

	case OpDrw:
		// DRW Vx, Vy, nibble :: Display n-byte sprite starting at memory location I at (Vx, Vy), set VF = collision.
		// Sprites are XORed onto the existing screen and wrap around to the opposite side of the screen.
		if !inBounds(uint32(cpu.I), uint32(ins.N)) {
			return ErrOutOfBounds{Addr: uint32(cpu.I) + uint32(ins.N) - 1, Pc: pc}
		}
		sprite := cpu.Memory[cpu.I : uint32(cpu.I)+uint32(ins.N)]
		collision := cpu.screen.drawSprite(cpu.V[x], cpu.V[y], sprite)
		cpu.V[0xF] = bool2byte(collision)
		cpu.isScreenDirty = true

	case OpSkp:
		// SKP Vx :: Skip next instruction if key with the value of Vx is pressed.
		if cpu.Keys.IsPressed(cpu.V[x]) {
			cpu.Pc += 2
		}

	case OpSknp:
		// SKNP Vx :: Skip next instruction if key with the value of Vx is not pressed.
		if !cpu.Keys.IsPressed(cpu.V[x]) {
			cpu.Pc += 2
		}

	case OpLdVxDt:
		// LD Vx, DT :: Set Vx = delay timer value.
		cpu.V[x] = cpu.Dt

	case OpLdVxK:
		// LD Vx, K :: Wait for a key press, store the value of the key in Vx.
		// Without a pressed key the same instruction runs again on the next step.
		if k, pressed := cpu.Keys.GetPressed(); pressed {
			cpu.V[x] = k
		} else {
			cpu.Pc -= 2
		}

	case OpLdDtVx:
		// LD DT, Vx :: Set delay timer = Vx.
		cpu.Dt = cpu.V[x]

	case OpLdStVx:
		// LD ST, Vx :: Set sound timer = Vx.
		cpu.St = cpu.V[x]

	case OpAddI:
		// ADD I, Vx :: Set I = I + Vx.
		cpu.I += uint16(cpu.V[x])

	case OpLdF:
		// LD F, Vx :: Set I = location of sprite for digit Vx.
		cpu.I = FontSetAddress + FontGlyphSize*uint16(cpu.V[x]&0x0F)

	case OpLdB:
		// LD B, Vx :: Store BCD representation of Vx in memory locations I, I+1, and I+2.
		if !inBounds(uint32(cpu.I), 3) {
			return ErrOutOfBounds{Addr: uint32(cpu.I) + 2, Pc: pc}
		}
		v := cpu.V[x]
		cpu.Memory[cpu.I+0] = v / 100
		cpu.Memory[cpu.I+1] = (v / 10) % 10
		cpu.Memory[cpu.I+2] = v % 10

	case OpLdIVx:
		// LD [I], Vx :: Store registers V0 through Vx in memory starting at location I.
		if !inBounds(uint32(cpu.I), uint32(x)+1) {
			return ErrOutOfBounds{Addr: uint32(cpu.I) + uint32(x), Pc: pc}
		}
		copy(cpu.Memory[cpu.I:], cpu.V[:x+1])

	case OpLdVxI:
		// LD Vx, [I] :: Read registers V0 through Vx from memory starting at location I.
		if !inBounds(uint32(cpu.I), uint32(x)+1) {
			return ErrOutOfBounds{Addr: uint32(cpu.I) + uint32(x), Pc: pc}
		}
		copy(cpu.V[:x+1], cpu.Memory[cpu.I:])

	default:
		if cpu.Strict {
			return ErrOpCodeUnknown{
				OpCode: ins.OpCode,
				Pc:     pc,
			}
		}
	}

	return nil
}

// executeFlagged runs the arithmetic instructions that report through VF.
// Operands are read before any write, VF is written first and Vx last, so
// when x is F the result wins over the flag.
func (cpu *Cpu) executeFlagged(ins Instruction) {
	vx, vy := cpu.V[ins.X], cpu.V[ins.Y]

	var flag, result byte
	switch ins.Op {
	case OpAddReg:
		// ADD Vx, Vy :: Set Vx = Vx + Vy, set VF = carry.
		r := uint16(vx) + uint16(vy)
		flag, result = bool2byte(r > 0xFF), byte(r)

	case OpSub:
		// SUB Vx, Vy :: Set Vx = Vx - Vy, set VF = NOT borrow.
		flag, result = bool2byte(vx > vy), vx-vy

	case OpShr:
		// SHR Vx {, Vy} :: Set Vx = Vx SHR 1.
		flag, result = vx&0b00000001, vx>>1

	case OpSubn:
		// SUBN Vx, Vy :: Set Vx = Vy - Vx, set VF = NOT borrow.
		flag, result = bool2byte(vy > vx), vy-vx

	case OpShl:
		// SHL Vx {, Vy} :: Set Vx = Vx SHL 1.
		flag, result = (vx&0b10000000)>>7, vx<<1
	}

	cpu.V[0xF] = flag
	cpu.V[ins.X] = result
}
