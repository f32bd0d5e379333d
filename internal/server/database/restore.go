package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/weightlog/weightlog/internal/dbx"
	"github.com/weightlog/weightlog/internal/logging"
)

// RestoreError tells whether the dump itself failed to run or the restore
// broke before it, while clearing existing data or committing.
type RestoreError struct {
	Source     string
	DumpFailed bool
	Err        error
}

func (e *RestoreError) Error() string {
	msg := "Unable to restore database."
	if e.DumpFailed {
		return msg + fmt.Sprintf("\nThe SQL in %s failed to run.\nSQL error: %v", filepath.Base(e.Source), e.Err)
	}
	return msg + "\n" + e.Err.Error()
}

func (e *RestoreError) Unwrap() error { return e.Err }

// Restore replaces all rows of entries, users and schema with the contents
// of dump, a data-only SQL backup, in one serializable transaction. source
// names the dump in error messages.
func Restore(ctx context.Context, db *sql.DB, dump, source string, log logging.Logger) error {
	dumpFailed := false

	err := dbx.WithTx(ctx, db, dbx.Serializable, func(ctx context.Context, tx dbx.DBTX) error {
		log.Info(ctx, "deleting existing data for restore")
		for _, table := range []string{"entries", "users", "schema"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return err
			}
		}

		log.Info(ctx, "restoring", "source", source)
		if _, err := tx.ExecContext(ctx, dump); err != nil {
			dumpFailed = true
			return err
		}
		return nil
	})
	if err != nil {
		return &RestoreError{Source: source, DumpFailed: dumpFailed, Err: err}
	}
	return nil
}
