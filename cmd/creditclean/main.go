// Command creditclean cleans a credit application export from the command
// line. Tables are written to stdout unless --out is given; logs go to stderr.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/creditclean/internal/config"
	"github.com/JonMunkholm/creditclean/internal/core"
)

func main() {
	// A missing .env is fine; existing variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		msg := core.MapError(err)
		fmt.Fprintf(os.Stderr, "Error: %s (%s)\n  %v\n  %s\n", msg.Message, msg.Code, err, msg.Action)
		os.Exit(1)
	}
}
