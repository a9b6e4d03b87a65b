package chip8_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/guslan/chip8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalDisplayRender(t *testing.T) {
	out := &bytes.Buffer{}
	d := chip8.NewTerminalDisplayWithOutput(out)

	require.NoError(t, d.Boot())
	out.Reset()

	cpu := loadCpu(t, []uint16{0xA050, 0x6000, 0xD001})
	steps(t, cpu, 3)
	screen := cpu.Screen()
	require.NoError(t, d.Render(&screen))

	rendered := strings.TrimPrefix(out.String(), "\x1b[1H")
	lines := strings.Split(strings.TrimSuffix(rendered, "\n"), "\n")
	require.Len(t, lines, chip8.ScreenHeight)
	assert.Equal(t, strings.Repeat("##", 4)+strings.Repeat("  ", 60)+"|", lines[0])
	assert.Equal(t, strings.Repeat("  ", 64)+"|", lines[1])
}
