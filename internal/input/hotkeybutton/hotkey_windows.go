//go:build hotkey && windows

package hotkeybutton

import "golang.design/x/hotkey"

func modAlt() hotkey.Modifier {
	return hotkey.ModAlt
}

func modSuper() hotkey.Modifier {
	return hotkey.ModWin
}
