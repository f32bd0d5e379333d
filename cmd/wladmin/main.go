// Command wladmin deploys a Weight Log installation with Docker and runs
// maintenance tasks against it.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/weightlog/weightlog/internal/admin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := admin.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	code := admin.DefaultExitCode
	var aerr *admin.Error
	if errors.As(err, &aerr) {
		code = aerr.ExitCode
	}
	if msg := err.Error(); msg != "" {
		fmt.Fprintln(os.Stderr, color.RedString("ERROR: %s", msg))
	}
	os.Exit(code)
}
