package chip8

import (
	"sync"
	"unicode"
)

// KeyboardState holds the pressed state of the 16 keys of the hex keypad.
type KeyboardState [KeyCount]bool

// IsPressed reports whether k is pressed. Keys outside the keypad are never pressed.
func (ks KeyboardState) IsPressed(k byte) bool {
	if k >= KeyCount {
		return false
	}
	return ks[k]
}

// GetPressed returns the lowest pressed key.
func (ks KeyboardState) GetPressed() (byte, bool) {
	for k, pressed := range ks {
		if pressed {
			return byte(k), true
		}
	}

	return 0, false
}

// Keyboard is the input collaborator polled by the console between cycles.
type Keyboard interface {
	// Boot initializes the component
	Boot() error
	// State returns the keys currently pressed
	State() KeyboardState
}

// InMemoryKeyboard is a keyboard whose keys are set by the host.
// It is safe to press and release keys from another goroutine.
type InMemoryKeyboard struct {
	mu    sync.RWMutex
	state KeyboardState
}

func NewInMemoryKeyboard() *InMemoryKeyboard {
	return &InMemoryKeyboard{}
}

// Boot implements Keyboard.
func (kb *InMemoryKeyboard) Boot() error {
	return nil
}

// State implements Keyboard.
func (kb *InMemoryKeyboard) State() KeyboardState {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	return kb.state
}

func (kb *InMemoryKeyboard) IsPressed(k byte) bool {
	return kb.State().IsPressed(k)
}

func (kb *InMemoryKeyboard) Press(k byte) {
	kb.SetKey(k, true)
}

func (kb *InMemoryKeyboard) Release(k byte) {
	kb.SetKey(k, false)
}

func (kb *InMemoryKeyboard) SetKey(k byte, pressed bool) {
	if k >= KeyCount {
		return
	}

	kb.mu.Lock()
	kb.state[k] = pressed
	kb.mu.Unlock()
}

func (kb *InMemoryKeyboard) Set(state KeyboardState) {
	kb.mu.Lock()
	kb.state = state
	kb.mu.Unlock()
}

// KeyboardLayout maps every key of the keypad, by index, to a key of the host keyboard.
type KeyboardLayout [KeyCount]rune

// DefaultKeyboardLayout is the usual mapping of the COSMAC VIP keypad
//
//	1 2 3 C      1 2 3 4
//	4 5 6 D  ->  q w e r
//	7 8 9 E      a s d f
//	A 0 B F      z x c v
var DefaultKeyboardLayout = KeyboardLayout{
	0x0: 'x',
	0x1: '1',
	0x2: '2',
	0x3: '3',
	0x4: 'q',
	0x5: 'w',
	0x6: 'e',
	0x7: 'a',
	0x8: 's',
	0x9: 'd',
	0xA: 'z',
	0xB: 'c',
	0xC: '4',
	0xD: 'r',
	0xE: 'f',
	0xF: 'v',
}

// LookupMap inverts the layout. Letters are stored lower case.
func LookupMap(layout KeyboardLayout) map[rune]byte {
	m := make(map[rune]byte, KeyCount)
	for k, r := range layout {
		m[unicode.ToLower(r)] = byte(k)
	}

	return m
}
