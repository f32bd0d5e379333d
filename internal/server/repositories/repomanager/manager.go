package repomanager

import (
	"context"
	"database/sql"

	"github.com/weightlog/weightlog/internal/dbx"
	"github.com/weightlog/weightlog/internal/server/repositories/entries"
	"github.com/weightlog/weightlog/internal/server/repositories/schema"
	"github.com/weightlog/weightlog/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Entries(db dbx.DBTX) entries.Repository
	Schema(db dbx.DBTX) schema.Repository
}
