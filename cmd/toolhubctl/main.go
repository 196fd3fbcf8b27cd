// Command toolhubctl runs catalog maintenance jobs:
//
//	toolhubctl reset-db   drop and recreate the tables
//	toolhubctl fetch      import from the public API directory
//	toolhubctl scrape     import from the public-apis README
//	toolhubctl describe   generate missing descriptions
//
// Settings come from the same environment variables as the server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sakif/toolhub/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "toolhubctl:", err)
		stop()
		os.Exit(1)
	}
}
