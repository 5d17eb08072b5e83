package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/blinkbus/blink-go/cmd"
	"github.com/blinkbus/blink-go/internal/buildinfo"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=...".
var (
	version   = "dev"
	buildDate = ""
	systemID  = ""
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	root := cmd.RootCommand(buildinfo.NewContext(version, buildDate, systemID))
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
