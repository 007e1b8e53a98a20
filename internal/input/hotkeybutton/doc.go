// Package hotkeybutton provides a cancel button driven by a global desktop hotkey.
//
// The hotkey library needs a display server and panics at init without one,
// so the real implementation is only built with the "hotkey" build tag.
// Without it, Start always fails with ErrUnavailable and the button is never pressed.
package hotkeybutton

import "errors"

var ErrUnavailable = errors.New("hotkey support not built in (build with -tags hotkey)")
