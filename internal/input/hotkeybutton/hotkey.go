//go:build hotkey

package hotkeybutton

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.design/x/hotkey"
)

// HotkeyButton is an input.Button backed by a global hotkey.
//
// The button reads as pressed between the hotkey's keydown and keyup events,
// so a consumer can wait for release the same way it would on a push button.
type HotkeyButton struct {
	logger  *slog.Logger
	hk      *hotkey.Hotkey
	pressed atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHotkeyButton(logger *slog.Logger) *HotkeyButton {
	if logger == nil {
		logger = slog.Default()
	}
	return &HotkeyButton{logger: logger}
}

// Start registers the hotkey (e.g. "ctrl+shift+s") and begins tracking it.
func (b *HotkeyButton) Start(ctx context.Context, hotkeyStr string) error {
	mods, key, err := parseHotkey(hotkeyStr)
	if err != nil {
		return fmt.Errorf("invalid hotkey: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.hk = hotkey.New(mods, key)
	if err := b.hk.Register(); err != nil {
		return fmt.Errorf("failed to register hotkey: %w", err)
	}

	ctx, b.cancel = context.WithCancel(ctx)
	b.done = make(chan struct{})

	go func() {
		defer close(b.done)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-b.hk.Keydown():
				if !ok {
					return
				}
				b.pressed.Store(true)
				b.logger.Debug("cancel hotkey down", "hotkey", hotkeyStr)
			case _, ok := <-b.hk.Keyup():
				if !ok {
					return
				}
				b.pressed.Store(false)
				b.logger.Debug("cancel hotkey up", "hotkey", hotkeyStr)
			}
		}
	}()

	b.logger.Info("registered cancel hotkey", "hotkey", hotkeyStr)
	return nil
}

func (b *HotkeyButton) Pressed() bool {
	return b.pressed.Load()
}

// Stop listening and unregister the hotkey.
func (b *HotkeyButton) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel != nil {
		b.cancel()
	}
	if b.hk != nil {
		if err := b.hk.Unregister(); err != nil {
			b.logger.Warn("could not unregister hotkey", "err", err)
		}
		b.hk = nil
	}
	if b.done != nil {
		select {
		case <-b.done:
		case <-time.After(100 * time.Millisecond):
		}
		b.done = nil
	}
	b.pressed.Store(false)
}

// --------------------------------------------------------------------------------

// parseHotkey parses a hotkey string like "ctrl+shift+space" into modifiers and key
func parseHotkey(s string) ([]hotkey.Modifier, hotkey.Key, error) {
	parts := strings.Split(strings.ToLower(s), "+")

	var mods []hotkey.Modifier
	var key hotkey.Key
	var keyFound bool

	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			return nil, 0, fmt.Errorf("empty hotkey component in %q", s)
		case "ctrl", "control":
			mods = append(mods, hotkey.ModCtrl)
		case "shift":
			mods = append(mods, hotkey.ModShift)
		case "alt":
			mods = append(mods, modAlt())
		case "cmd", "command", "super", "win":
			mods = append(mods, modSuper())
		default:
			if keyFound {
				return nil, 0, fmt.Errorf("multiple keys specified")
			}
			k, ok := keys[part]
			if !ok {
				return nil, 0, fmt.Errorf("unknown key: %s", part)
			}
			key = k
			keyFound = true
		}
	}

	if !keyFound {
		return nil, 0, fmt.Errorf("no key specified")
	}
	return mods, key, nil
}

var keys = map[string]hotkey.Key{
	"space": hotkey.KeySpace, "return": hotkey.KeyReturn, "enter": hotkey.KeyReturn,
	"tab": hotkey.KeyTab, "escape": hotkey.KeyEscape, "esc": hotkey.KeyEscape,

	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,

	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,

	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}
