// Command wlctl manages users and restores backups of a Weight Log backend.
// It reads the same configuration and key files as the server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/weightlog/weightlog/internal/ctl"
	"github.com/weightlog/weightlog/internal/server"
	"github.com/weightlog/weightlog/internal/server/config"
	"github.com/weightlog/weightlog/internal/server/database"
	"github.com/weightlog/weightlog/internal/server/services"
)

func open(ctx context.Context) (*ctl.Deps, func(), error) {
	cfg, err := config.LoadConfig(nil)
	if err != nil {
		return nil, nil, err
	}
	cfg.JSONLogs = false
	cfg.LogLevel = "warn"

	logger, err := server.NewLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	db, k, rm, err := server.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	deps := &ctl.Deps{
		Users: services.NewUserService(db, rm, cfg, k, logger),
		Restore: func(ctx context.Context, dump, source string) error {
			return database.Restore(ctx, db, dump, source, logger)
		},
	}
	return deps, func() { _ = db.Close() }, nil
}

func main() {
	if err := ctl.NewRootCommand(open).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("ERROR: %v", err))
		os.Exit(1)
	}
}
