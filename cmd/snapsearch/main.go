// Command snapsearch captures text with a camera and searches the web for it.
package main

import (
	"fmt"
	"os"

	"github.com/ironsheep/snapsearch/internal/log"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		log.L().Errorw("command failed", "error", err)
		log.Sync()
		fmt.Fprintf(os.Stderr, "snapsearch: %v\n", err)
		os.Exit(1)
	}
	log.Sync()
}
