package lifecycle

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

type AppState int

const (
	StateStopped AppState = iota
	StateStarting
	StateRunning
	StateStopping
	StateError
)

var (
	currentState AppState = StateStopped
	stateMu      sync.Mutex
)

func (s AppState) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting..."
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping..."
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

func SetState(newState AppState) {
	stateMu.Lock()
	old := currentState
	currentState = newState
	stateMu.Unlock()

	if old != newState {
		slog.Debug("application state changed", "from", old, "to", newState)
	}
}

func State() AppState {
	stateMu.Lock()
	defer stateMu.Unlock()
	return currentState
}

// WatchSignals calls quit once when SIGINT or SIGTERM arrives. It stops
// watching when ctx is done.
func WatchSignals(ctx context.Context, quit func()) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case sig := <-signals:
			slog.Info("shutting down due to signal", "signal", sig.String())
			quit()
		case <-ctx.Done():
		}
	}()
}
