package input

import "sync/atomic"

// A digital input, e.g. the "stop recording" push button.
//
// Pressed reports the instantaneous level; debouncing is left to the consumer.
type Button interface {
	Pressed() bool
}

// A Button driven programmatically, e.g. from a signal handler or a test.
type ManualButton struct {
	pressed atomic.Bool
}

func (b *ManualButton) Press() {
	b.pressed.Store(true)
}

func (b *ManualButton) Release() {
	b.pressed.Store(false)
}

func (b *ManualButton) Pressed() bool {
	return b.pressed.Load()
}

// A Button that is never pressed.
type NeverPressed struct{}

func (NeverPressed) Pressed() bool { return false }
