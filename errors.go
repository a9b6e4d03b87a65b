package chip8

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrCpuIsNotBooted = errors.New("the console has not been booted properly")

// ErrRomTooLarge is returned when a program does not fit between the
// start-of-program address and the end of memory.
var ErrRomTooLarge = errors.New("the program does not fit into memory")

var ErrStackUnderflow = errors.New("stack underflow: try to pop an empty stack")
var ErrStackOverflow = errors.New("stack overflow: try to push to a full stack")

// ErrOutOfBounds is returned when a fetch or a memory-indirect instruction
// touches an address outside of memory.
type ErrOutOfBounds struct {
	Addr uint32
	Pc   uint16
}

func (err ErrOutOfBounds) Error() string {
	return fmt.Sprintf("memory access out of bounds addr=%X at PC=%X", err.Addr, err.Pc)
}

type ErrOpCodeUnknown struct {
	OpCode uint16
	Pc     uint16
}

func (err ErrOpCodeUnknown) Error() string {
	return fmt.Sprintf("unknown opcode=%04X at PC=%X", err.OpCode, err.Pc)
}
