//go:build !windows

package lifecycle

import "github.com/ncruces/zenity"

func nativeErrorMessage(title, message string) {
	_ = zenity.Error(message,
		zenity.Title(title),
		zenity.ErrorIcon)
}
