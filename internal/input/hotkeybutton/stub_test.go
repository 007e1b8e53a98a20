//go:build !hotkey

package hotkeybutton

import (
	"context"
	"testing"

	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/internal/input"
	"github.com/stretchr/testify/assert"
)

func TestHotkeyButtonWithoutSupport(t *testing.T) {
	var button input.Button = NewHotkeyButton(nil)
	b := button.(*HotkeyButton)

	assert.ErrorIs(t, b.Start(context.Background(), "ctrl+shift+s"), ErrUnavailable)
	assert.False(t, button.Pressed())
	b.Stop()
}
