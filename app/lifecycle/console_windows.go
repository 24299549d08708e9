//go:build windows && production

package lifecycle

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procGetConsoleWindow    = kernel32.NewProc("GetConsoleWindow")
	procGetConsoleProcesses = kernel32.NewProc("GetConsoleProcessList")
	procFreeConsole         = kernel32.NewProc("FreeConsole")
)

type win32Console struct{}

func (win32Console) HasWindow() bool {
	hwnd, _, _ := procGetConsoleWindow.Call()
	return hwnd != 0
}

func (win32Console) Processes() uint32 {
	var pids [2]uint32
	n, _, _ := procGetConsoleProcesses.Call(uintptr(unsafe.Pointer(&pids[0])), uintptr(len(pids)))
	return uint32(n)
}

func (win32Console) Free() error {
	if ok, _, err := procFreeConsole.Call(); ok == 0 {
		return err
	}
	return nil
}

// DetachConsole drops a console window that was created for this process
// alone. Release binaries are linked with -H windowsgui and normally never
// get one.
func DetachConsole() {
	detachConsole(win32Console{})
}
