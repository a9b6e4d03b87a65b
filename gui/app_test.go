package gui

import (
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/guslan/chip8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeedFactor(t *testing.T) {
	for _, hz := range []uint{chip8.MinSpeed, chip8.DefaultSpeed, chip8.MaxSpeed} {
		assert.Equal(t, hz, speedFactorToHz(hzToSpeedFactor(hz)))
	}
}

func TestKeyboardLookupMap(t *testing.T) {
	app := NewConsoleApp()

	assert.Len(t, app.keyboardLookupMap, chip8.KeyCount)
	assert.Equal(t, byte(0x0), app.keyboardLookupMap[rl.KeyX])
	assert.Equal(t, byte(0x1), app.keyboardLookupMap[rl.KeyOne])
	assert.Equal(t, byte(0xC), app.keyboardLookupMap[rl.KeyFour])
	assert.Equal(t, byte(0xF), app.keyboardLookupMap[rl.KeyV])
}

func TestConsoleAppCollaborators(t *testing.T) {
	app := NewConsoleApp(func(config *AppConfig) {
		config.TimerMode = chip8.TimersCoupled
		config.CyclesPerFrame = 1
	})
	require.NoError(t, app.Console.Boot())
	require.NoError(t, app.Console.LoadProgram([]byte{
		0xA0, 0x50, // LD I, 0x050
		0xD0, 0x05, // DRW V0, V0, 5
		0x60, 0x05, // LD V0, 5
		0xF0, 0x18, // LD ST, V0
	}))

	app.Press(0x3)
	assert.False(t, app.Console.Snapshot().Keys[0x3])

	for i := 0; i < 4; i++ {
		require.NoError(t, app.Console.LoopOnce())
	}

	app.screenMu.Lock()
	assert.True(t, app.screen.Pixel(0, 0))
	app.screenMu.Unlock()

	assert.True(t, app.buzzing.Load())
	assert.True(t, app.Console.Snapshot().Keys[0x3])
}
