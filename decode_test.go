package chip8_test

import (
	"testing"

	"github.com/guslan/chip8"
	"github.com/stretchr/testify/assert"
)

func TestDecodeOperands(t *testing.T) {
	ins := chip8.Decode(0xD12F)

	assert.Equal(t, chip8.OpDrw, ins.Op)
	assert.Equal(t, uint16(0xD12F), ins.OpCode)
	assert.Equal(t, byte(0x1), ins.X)
	assert.Equal(t, byte(0x2), ins.Y)
	assert.Equal(t, byte(0xF), ins.N)
	assert.Equal(t, byte(0x2F), ins.KK)
	assert.Equal(t, uint16(0x12F), ins.NNN)
}

func TestDecodeOps(t *testing.T) {
	tests := map[uint16]chip8.Op{
		0x00E0: chip8.OpCls,
		0x00EE: chip8.OpRet,
		0x0000: chip8.OpSys,
		0x0120: chip8.OpSys,
		0x0123: chip8.OpSys,
		0x01E0: chip8.OpSys,
		0x1234: chip8.OpJp,
		0x2345: chip8.OpCall,
		0x3A12: chip8.OpSeByte,
		0x4A12: chip8.OpSneByte,
		0x5120: chip8.OpSeReg,
		0x6A12: chip8.OpLdByte,
		0x7A12: chip8.OpAddByte,
		0x8120: chip8.OpLdReg,
		0x8121: chip8.OpOr,
		0x8122: chip8.OpAnd,
		0x8123: chip8.OpXor,
		0x8124: chip8.OpAddReg,
		0x8125: chip8.OpSub,
		0x8126: chip8.OpShr,
		0x8127: chip8.OpSubn,
		0x812E: chip8.OpShl,
		0x8128: chip8.OpUnknown,
		0x9120: chip8.OpSneReg,
		0xA123: chip8.OpLdI,
		0xB123: chip8.OpJpV0,
		0xC1FF: chip8.OpRnd,
		0xD125: chip8.OpDrw,
		0xE19E: chip8.OpSkp,
		0xE1A1: chip8.OpSknp,
		0xE1A2: chip8.OpUnknown,
		0xE1AE: chip8.OpUnknown,
		0xE191: chip8.OpUnknown,
		0xF107: chip8.OpLdVxDt,
		0xF10A: chip8.OpLdVxK,
		0xF115: chip8.OpLdDtVx,
		0xF118: chip8.OpLdStVx,
		0xF11E: chip8.OpAddI,
		0xF129: chip8.OpLdF,
		0xF133: chip8.OpLdB,
		0xF155: chip8.OpLdIVx,
		0xF165: chip8.OpLdVxI,
		0xF166: chip8.OpUnknown,
	}

	for opCode, want := range tests {
		assert.Equal(t, want, chip8.Decode(opCode).Op, "opcode %04X", opCode)
	}
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "DRW", chip8.OpDrw.String())
	assert.Equal(t, "SUBN", chip8.OpSubn.String())
	assert.Equal(t, "???", chip8.OpUnknown.String())
	assert.Equal(t, "???", chip8.Op(200).String())
}
