package gui

import (
	"github.com/guslan/chip8"

	rl "github.com/gen2brain/raylib-go/raylib"
)

var ScreenBgColor = rl.Gold
var ScreenPixelColor = rl.Yellow

// Boot implements chip8.Display, chip8.Keyboard and chip8.Buzzer.
func (app *ConsoleApp) Boot() error {
	return nil
}

// Render implements chip8.Display.
func (app *ConsoleApp) Render(screen *chip8.Screen) error {
	app.screenMu.Lock()
	app.screen = *screen
	app.screenMu.Unlock()

	return nil
}

// Play implements chip8.Buzzer.
func (app *ConsoleApp) Play() {
	app.buzzing.Store(true)
}

// Stop implements chip8.Buzzer.
func (app *ConsoleApp) Stop() {
	app.buzzing.Store(false)
}

func (app *ConsoleApp) drawScreen() {
	app.screenMu.Lock()
	screen := app.screen
	app.screenMu.Unlock()

	for y := 0; y < chip8.ScreenHeight; y++ {
		for x := 0; x < chip8.ScreenWidth; x++ {
			color := ScreenBgColor
			if screen.Pixel(x, y) {
				color = ScreenPixelColor
			}

			rl.DrawRectangle(
				ScreenPositionX+ScreenPixelSize*int32(x),
				ScreenPositionY+ScreenPixelSize*int32(y),
				ScreenPixelSize,
				ScreenPixelSize,
				color)
		}
	}
}
