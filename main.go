// ./main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/formwalk/cmd"
)

func main() {
	// Cancel the run on SIGINT/SIGTERM so open sessions are closed.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "formwalk:", err)
		if errors.Is(err, cmd.ErrScenariosFailed) {
			os.Exit(1)
		}
		os.Exit(2)
	}
}
