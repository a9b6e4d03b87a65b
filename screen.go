package chip8

const (
	ScreenWidth  = 64
	ScreenHeight = 32
	ScreenSize   = ScreenWidth * ScreenHeight
)

// Screen is the monochrome framebuffer in row-major order.
// Every cell is either 1 (set) or 0 (clear).
type Screen [ScreenSize]byte

// Pixel reports whether the pixel at x, y is set. Coordinates wrap.
func (s *Screen) Pixel(x, y int) bool {
	return s[toScreenCoord(x, y)] != 0
}

func (s *Screen) clear() {
	clear(s[:])
}

func toScreenCoord(x, y int) int {
	x = ((x % ScreenWidth) + ScreenWidth) % ScreenWidth
	y = ((y % ScreenHeight) + ScreenHeight) % ScreenHeight

	return y*ScreenWidth + x
}

// drawSprite XORs every row of the sprite onto the screen starting at x, y.
// Both the starting position and every pixel wrap around the screen edges.
// Returns whether any set pixel was turned off.
func (s *Screen) drawSprite(x, y byte, sprite []byte) bool {
	collision := false

	for row, b := range sprite {
		for col := 0; col < 8; col++ {
			if b&(0x80>>col) == 0 {
				continue
			}

			t := toScreenCoord(int(x)+col, int(y)+row)
			if s[t] != 0 {
				collision = true
			}
			s[t] ^= 1
		}
	}

	return collision
}

// Pack returns the screen with 8 pixels per byte, most significant bit first.
func (s *Screen) Pack() []byte {
	buf := make([]byte, ScreenSize/8)
	for i, p := range s {
		if p != 0 {
			buf[i/8] |= 0x80 >> (i % 8)
		}
	}

	return buf
}

// Unpack is the inverse of Pack.
func Unpack(packed []byte) *Screen {
	s := &Screen{}
	for i := 0; i < ScreenSize && i/8 < len(packed); i++ {
		if packed[i/8]&(0x80>>(i%8)) != 0 {
			s[i] = 1
		}
	}

	return s
}
