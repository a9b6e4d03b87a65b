package chip8

import (
	"log/slog"
	"sync"
	"time"
	"unicode"

	"github.com/pkg/errors"
	"github.com/pkg/term"
)

// DefaultKeyHold is how long a key is considered pressed after the terminal reported it.
const DefaultKeyHold = 150 * time.Millisecond

// TerminalKeyboard reads keys from the controlling terminal in cbreak mode.
// Terminals do not report key releases, so a key stays pressed for Hold
// after its last repetition.
type TerminalKeyboard struct {
	Device string
	Hold   time.Duration

	lookup map[rune]byte

	mu       sync.Mutex
	lastSeen [KeyCount]time.Time
	now      func() time.Time

	tty *term.Term
}

func NewTerminalKeyboard() *TerminalKeyboard {
	return NewTerminalKeyboardWithLayout(DefaultKeyboardLayout)
}

func NewTerminalKeyboardWithLayout(layout KeyboardLayout) *TerminalKeyboard {
	return &TerminalKeyboard{
		Device: "/dev/tty",
		Hold:   DefaultKeyHold,
		lookup: LookupMap(layout),
		now:    time.Now,
	}
}

// Boot implements Keyboard.
// It switches the terminal to cbreak mode and starts reading keys in the background.
func (kb *TerminalKeyboard) Boot() error {
	tty, err := term.Open(kb.Device, term.CBreakMode)
	if err != nil {
		return errors.Wrapf(err, "opening terminal %s", kb.Device)
	}
	kb.tty = tty

	go kb.readLoop()

	return nil
}

// Close restores the terminal.
func (kb *TerminalKeyboard) Close() error {
	if kb.tty == nil {
		return nil
	}

	if err := kb.tty.Restore(); err != nil {
		return err
	}
	return kb.tty.Close()
}

func (kb *TerminalKeyboard) readLoop() {
	buf := make([]byte, 16)
	for {
		n, err := kb.tty.Read(buf)
		if err != nil {
			slog.Debug("terminal keyboard stopped", slog.Any("error", err))
			return
		}
		kb.feed(buf[:n])
	}
}

// feed marks every mapped key in the input as pressed now.
func (kb *TerminalKeyboard) feed(input []byte) {
	now := kb.now()

	kb.mu.Lock()
	defer kb.mu.Unlock()

	for _, b := range input {
		if k, ok := kb.lookup[unicode.ToLower(rune(b))]; ok {
			kb.lastSeen[k] = now
		}
	}
}

// State implements Keyboard.
func (kb *TerminalKeyboard) State() KeyboardState {
	now := kb.now()

	kb.mu.Lock()
	defer kb.mu.Unlock()

	var state KeyboardState
	for k, seen := range kb.lastSeen {
		state[k] = !seen.IsZero() && now.Sub(seen) < kb.Hold
	}

	return state
}
