//go:build !windows || !production

package lifecycle

// DetachConsole is a no-op outside Windows release builds.
func DetachConsole() {}
