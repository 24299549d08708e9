package main

import (
	"embed"

	"github.com/featherchat/desktop/app/host"
	"github.com/featherchat/desktop/app/lifecycle"
	"github.com/featherchat/desktop/app/notification"
	"github.com/featherchat/desktop/app/store"
	"github.com/featherchat/desktop/internal/config"
)

// Compile release builds with the following to get rid of the cmd popup on windows
// go build -tags desktop,production -ldflags="-H windowsgui"

//go:embed app.toml
var appContext []byte

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	err := host.Default().
		Plugin(notification.Init()).
		Plugin(store.NewBuilder().Build()).
		Run(config.Generate(appContext, assets))
	if err != nil {
		lifecycle.Fatal("error while running application", err)
	}
}
