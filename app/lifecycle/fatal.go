package lifecycle

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

const fatalTitle = "Application Error"

var (
	exit                       = os.Exit
	stderr           io.Writer = os.Stderr
	showErrorMessage           = nativeErrorMessage
)

// Fatal reports an unrecoverable startup or event-loop failure and exits
// with status 1. Release builds have no console, so the message is also
// shown in a native dialog.
func Fatal(msg string, err error) {
	text := fmt.Sprintf("%s: %v", msg, err)

	SetState(StateError)
	slog.Error(msg, "error", err)
	fmt.Fprintln(stderr, text)

	if Release {
		showErrorMessage(fatalTitle, text)
	}
	_ = CloseLogging()
	exit(1)
}
