package chip8

// Op identifies one of the instructions of the CHIP-8 instruction set.
type Op byte

const (
	OpUnknown Op = iota
	OpSys        // 0nnn
	OpCls        // 00E0
	OpRet        // 00EE
	OpJp         // 1nnn
	OpCall       // 2nnn
	OpSeByte     // 3xkk
	OpSneByte    // 4xkk
	OpSeReg      // 5xy0
	OpLdByte     // 6xkk
	OpAddByte    // 7xkk
	OpLdReg      // 8xy0
	OpOr         // 8xy1
	OpAnd        // 8xy2
	OpXor        // 8xy3
	OpAddReg     // 8xy4
	OpSub        // 8xy5
	OpShr        // 8xy6
	OpSubn       // 8xy7
	OpShl        // 8xyE
	OpSneReg     // 9xy0
	OpLdI        // Annn
	OpJpV0       // Bnnn
	OpRnd        // Cxkk
	OpDrw        // Dxyn
	OpSkp        // Ex9E
	OpSknp       // ExA1
	OpLdVxDt     // Fx07
	OpLdVxK      // Fx0A
	OpLdDtVx     // Fx15
	OpLdStVx     // Fx18
	OpAddI       // Fx1E
	OpLdF        // Fx29
	OpLdB        // Fx33
	OpLdIVx      // Fx55
	OpLdVxI      // Fx65
)

var opNames = [...]string{
	OpUnknown: "???",
	OpSys:     "SYS",
	OpCls:     "CLS",
	OpRet:     "RET",
	OpJp:      "JP",
	OpCall:    "CALL",
	OpSeByte:  "SE",
	OpSneByte: "SNE",
	OpSeReg:   "SE",
	OpLdByte:  "LD",
	OpAddByte: "ADD",
	OpLdReg:   "LD",
	OpOr:      "OR",
	OpAnd:     "AND",
	OpXor:     "XOR",
	OpAddReg:  "ADD",
	OpSub:     "SUB",
	OpShr:     "SHR",
	OpSubn:    "SUBN",
	OpShl:     "SHL",
	OpSneReg:  "SNE",
	OpLdI:     "LD",
	OpJpV0:    "JP",
	OpRnd:     "RND",
	OpDrw:     "DRW",
	OpSkp:     "SKP",
	OpSknp:    "SKNP",
	OpLdVxDt:  "LD",
	OpLdVxK:   "LD",
	OpLdDtVx:  "LD",
	OpLdStVx:  "LD",
	OpAddI:    "ADD",
	OpLdF:     "LD",
	OpLdB:     "LD",
	OpLdIVx:   "LD",
	OpLdVxI:   "LD",
}

// String returns the mnemonic of the operation.
func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}

	return opNames[OpUnknown]
}

// Instruction is a decoded opcode.
// Operands that the operation does not use are still filled in from the raw word.
type Instruction struct {
	Op     Op
	OpCode uint16

	// X register index, bits 8-11
	X byte
	// Y register index, bits 4-7
	Y byte
	// N nibble, bits 0-3
	N byte
	// KK immediate byte, bits 0-7
	KK byte
	// NNN address, bits 0-11
	NNN uint16
}

// Decode splits the opcode into its operand fields and resolves the operation.
// Opcodes without a matching instruction decode to OpUnknown.
// Classes 0 and E are matched on the whole word and the whole low byte, so
// words such as 0000 or E1AE, which low-nibble dispatch tables would accept as
// CLS or SKP, decode to SYS and OpUnknown here.
func Decode(opCode uint16) Instruction {
	ins := Instruction{
		OpCode: opCode,
		X:      byte((opCode & 0x0F00) >> 8),
		Y:      byte((opCode & 0x00F0) >> 4),
		N:      byte(opCode & 0x000F),
		KK:     byte(opCode & 0x00FF),
		NNN:    opCode & 0x0FFF,
	}
	ins.Op = decodeOp(opCode, ins.N, ins.KK)

	return ins
}

func decodeOp(opCode uint16, n, kk byte) Op {
	switch opCode & 0xF000 {
	case 0x0000:
		switch opCode {
		case 0x00E0:
			return OpCls
		case 0x00EE:
			return OpRet
		}
		return OpSys

	case 0x1000:
		return OpJp
	case 0x2000:
		return OpCall
	case 0x3000:
		return OpSeByte
	case 0x4000:
		return OpSneByte
	case 0x5000:
		return OpSeReg
	case 0x6000:
		return OpLdByte
	case 0x7000:
		return OpAddByte

	case 0x8000:
		switch n {
		case 0x0:
			return OpLdReg
		case 0x1:
			return OpOr
		case 0x2:
			return OpAnd
		case 0x3:
			return OpXor
		case 0x4:
			return OpAddReg
		case 0x5:
			return OpSub
		case 0x6:
			return OpShr
		case 0x7:
			return OpSubn
		case 0xE:
			return OpShl
		}

	case 0x9000:
		return OpSneReg
	case 0xA000:
		return OpLdI
	case 0xB000:
		return OpJpV0
	case 0xC000:
		return OpRnd
	case 0xD000:
		return OpDrw

	case 0xE000:
		switch kk {
		case 0x9E:
			return OpSkp
		case 0xA1:
			return OpSknp
		}

	case 0xF000:
		switch kk {
		case 0x07:
			return OpLdVxDt
		case 0x0A:
			return OpLdVxK
		case 0x15:
			return OpLdDtVx
		case 0x18:
			return OpLdStVx
		case 0x1E:
			return OpAddI
		case 0x29:
			return OpLdF
		case 0x33:
			return OpLdB
		case 0x55:
			return OpLdIVx
		case 0x65:
			return OpLdVxI
		}
	}

	return OpUnknown
}
