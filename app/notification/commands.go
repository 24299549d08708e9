package notification

import (
	"fmt"
	"strings"
)

// Permission mirrors the web Notification permission states.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default"
)

// Options describes one notification.
type Options struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
	// Icon is a relative path to a bundled asset or to a file under the
	// app-data directory. The platform info icon is used when empty.
	Icon string `json:"icon,omitempty"`
	// Sound is accepted for API compatibility and ignored.
	Sound string `json:"sound,omitempty"`
}

func (o Options) validate() error {
	if strings.TrimSpace(o.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	return nil
}

// Commands is bound to the frontend as window.go.notification.Commands.
type Commands struct {
	p *Plugin
}

func (c *Commands) authorize(command string) error {
	if c.p.rt == nil {
		return ErrClosed
	}
	return c.p.rt.Authorize(Name, command)
}

// IsPermissionGranted always reports true; desktop apps need no prompt.
func (c *Commands) IsPermissionGranted() (bool, error) {
	if err := c.authorize("is-permission-granted"); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Commands) RequestPermission() (Permission, error) {
	if err := c.authorize("request-permission"); err != nil {
		return PermissionDenied, err
	}
	return PermissionGranted, nil
}

// Notify queues a notification. Delivery happens asynchronously; its outcome
// is reported through DeliveredEvent or FailedEvent.
func (c *Commands) Notify(opts Options) error {
	if err := c.authorize("notify"); err != nil {
		return err
	}
	if err := opts.validate(); err != nil {
		return err
	}
	icon, err := c.p.resolveIcon(opts.Icon)
	if err != nil {
		return err
	}
	opts.Icon = icon

	id, err := c.p.enqueue(opts)
	if err != nil {
		c.p.rt.Logger().Warn("notification rejected", "plugin", Name, "title", opts.Title, "error", err)
		return err
	}
	c.p.rt.Logger().Debug("notification queued", "plugin", Name, "id", id)
	return nil
}
