package chip8

import (
	"fmt"
	"strings"
)

const (
	MemorySize       = 4096
	StartOfProgram   = 0x200
	FontSetAddress   = 0x050
	FontGlyphSize    = 5
	MaxProgramLength = MemorySize - StartOfProgram
)

type Memory [MemorySize]byte

var fontSet = [16 * FontGlyphSize]byte{
	// 0
	0xF0, 0x90, 0x90, 0x90, 0xF0,
	// 1
	0x20, 0x60, 0x20, 0x20, 0x70,
	// 2
	0xF0, 0x10, 0xF0, 0x80, 0xF0,
	// 3
	0xF0, 0x10, 0xF0, 0x10, 0xF0,
	// 4
	0x90, 0x90, 0xF0, 0x10, 0x10,
	// 5
	0xF0, 0x80, 0xF0, 0x10, 0xF0,
	// 6
	0xF0, 0x80, 0xF0, 0x90, 0xF0,
	// 7
	0xF0, 0x10, 0x20, 0x40, 0x40,
	// 8
	0xF0, 0x90, 0xF0, 0x90, 0xF0,
	// 9
	0xF0, 0x90, 0xF0, 0x10, 0xF0,
	// A
	0xF0, 0x90, 0xF0, 0x90, 0x90,
	// B
	0xE0, 0x90, 0xE0, 0x90, 0xE0,
	// C
	0xF0, 0x80, 0x80, 0x80, 0xF0,
	// D
	0xE0, 0x90, 0x90, 0x90, 0xE0,
	// E
	0xF0, 0x80, 0xF0, 0x80, 0xF0,
	// F
	0xF0, 0x80, 0xF0, 0x80, 0x80,
}

// NewMemory creates a memory of 4096 bytes with the font set loaded at
// FontSetAddress and everything else zeroed.
func NewMemory() *Memory {
	m := &Memory{}
	m.loadFontSet()

	return m
}

func (mem *Memory) loadFontSet() {
	copy(mem[FontSetAddress:], fontSet[:])
}

func (mem Memory) Clone() *Memory {
	m := &Memory{}
	copy(m[:], mem[:])

	return m
}

func (mem Memory) String() string {
	sb := strings.Builder{}

	sb.WriteString("[ ")
	for _, b := range mem[:StartOfProgram] {
		sb.WriteString(fmt.Sprintf("%X ", b))
	}
	sb.WriteString("]\n")
	sb.WriteString("[ ")
	for _, b := range mem[StartOfProgram:] {
		sb.WriteString(fmt.Sprintf("%X ", b))
	}
	sb.WriteString("]")

	return sb.String()
}

// LoadProgram copies the program verbatim at StartOfProgram.
// Nothing is written when the program does not fit.
func (mem *Memory) LoadProgram(program []byte) error {
	if len(program) > MaxProgramLength {
		return ErrRomTooLarge
	}

	copy(mem[StartOfProgram:], program)

	return nil
}

// inBounds reports whether the n bytes starting at addr are addressable.
func inBounds(addr uint32, n uint32) bool {
	return addr+n <= MemorySize
}

// ClearProgram zeroes everything from StartOfProgram to the end of memory.
func (mem *Memory) ClearProgram() {
	clear(mem[StartOfProgram:])
}
