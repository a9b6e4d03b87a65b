package chip8

import (
	"io"
	"os"
)

// Display abstraction for a display
type Display interface {
	// Boot initializes the component
	Boot() error
	// Render draws the screen. The screen must not be retained after returning.
	Render(*Screen) error
}

// DummyDisplay is a display that does nothing
type DummyDisplay struct {
}

func NewDummyDisplay() *DummyDisplay {
	return &DummyDisplay{}
}

func (d DummyDisplay) Boot() error {
	return nil
}

func (d DummyDisplay) Render(screen *Screen) error {
	return nil
}

const ESC = 0x1B

// TerminalDisplay renders the screen with ANSI escape codes, two characters per pixel.
type TerminalDisplay struct {
	terminal        io.Writer
	OnChar, OffChar string
}

func NewTerminalDisplay() *TerminalDisplay {
	return NewTerminalDisplayWithOutput(os.Stdout)
}

func NewTerminalDisplayWithOutput(out io.Writer) *TerminalDisplay {
	return &TerminalDisplay{
		terminal: out,
		OnChar:   "##",
		OffChar:  "  ",
	}
}

// Boot implements Display.
func (disp *TerminalDisplay) Boot() error {
	_, err := disp.terminal.Write([]byte{
		// Move cursor do start
		ESC, '[', '1', 'H',
		// clear the terminal
		ESC, '[', '0', 'J',
	})

	return err
}

// Render implements Display.
func (disp *TerminalDisplay) Render(screen *Screen) error {
	buff := make([]byte, 0, ScreenSize*len(disp.OnChar)+ScreenHeight*2+4)
	buff = append(buff, ESC, '[', '1', 'H')
	for i, p := range screen {
		if p != 0 {
			buff = append(buff, disp.OnChar...)
		} else {
			buff = append(buff, disp.OffChar...)
		}

		if (i+1)%ScreenWidth == 0 {
			buff = append(buff, '|', '\n')
		}
	}

	_, err := disp.terminal.Write(buff)
	return err
}
