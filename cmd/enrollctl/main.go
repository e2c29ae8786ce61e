// Command enrollctl runs fingerprint enrollments from a terminal and hosts the
// device simulator used to exercise them.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"attendance/cmd/enrollctl/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.NewRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
