//go:build !hotkey

package hotkeybutton

import (
	"context"
	"log/slog"
)

type HotkeyButton struct {
	logger *slog.Logger
}

func NewHotkeyButton(logger *slog.Logger) *HotkeyButton {
	if logger == nil {
		logger = slog.Default()
	}
	return &HotkeyButton{logger: logger}
}

func (b *HotkeyButton) Start(ctx context.Context, hotkeyStr string) error {
	b.logger.Debug("hotkey support not built in", "hotkey", hotkeyStr)
	return ErrUnavailable
}

func (b *HotkeyButton) Pressed() bool {
	return false
}

func (b *HotkeyButton) Stop() {}
