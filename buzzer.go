package chip8

// Buzzer is told whether the sound timer is active once per frame.
type Buzzer interface {
	// Boot initializes the component
	Boot() error
	Play()
	Stop()
}

// DummyBuzzer only records whether it should be playing.
type DummyBuzzer struct {
	IsPlaying bool
}

// Boot implements Buzzer.
func (b *DummyBuzzer) Boot() error {
	return nil
}

func NewDummyBuzzer() *DummyBuzzer {
	return &DummyBuzzer{
		IsPlaying: false,
	}
}

// Play implements Buzzer.
func (b *DummyBuzzer) Play() {
	b.IsPlaying = true
}

// Stop implements Buzzer
func (b *DummyBuzzer) Stop() {
	b.IsPlaying = false
}
