package lifecycle

import "log/slog"

// console is the part of the Win32 console API DetachConsole relies on.
type console interface {
	HasWindow() bool
	// Processes reports how many processes are attached to the console.
	Processes() uint32
	Free() error
}

// detachConsole frees c only when this process is its sole owner, so a
// console shared with a parent shell keeps working. It reports whether the
// console was released.
func detachConsole(c console) bool {
	if !c.HasWindow() || c.Processes() != 1 {
		return false
	}
	if err := c.Free(); err != nil {
		slog.Warn("failed to detach console", "error", err)
		return false
	}
	return true
}
