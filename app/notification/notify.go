package notification

import (
	"github.com/ncruces/zenity"
)

func osNotify(n Options) error {
	opts := []zenity.Option{zenity.Title(n.Title)}
	if n.Icon != "" {
		opts = append(opts, zenity.Icon(n.Icon))
	} else {
		opts = append(opts, zenity.InfoIcon)
	}
	return zenity.Notify(n.Body, opts...)
}
