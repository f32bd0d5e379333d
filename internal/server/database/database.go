// Package database connects the backend to PostgreSQL: it provisions the
// application database and role on first start, opens the application
// connection pool and restores backups.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/weightlog/weightlog/internal/dbx"
	"github.com/weightlog/weightlog/internal/logging"
	"github.com/weightlog/weightlog/internal/server/config"
	"github.com/weightlog/weightlog/internal/server/keys"
	"github.com/weightlog/weightlog/internal/server/repositories/repomanager"
)

// AdminUser is the superuser of the database container.
const AdminUser = "postgres"

// ConnConfig builds a pgx connection config. An empty dbname connects to
// the server's default database.
func ConnConfig(host string, port int, user, password, dbname string) (*pgx.ConnConfig, error) {
	cc, err := pgx.ParseConfig("")
	if err != nil {
		return nil, err
	}
	cc.Host = host
	cc.Port = uint16(port)
	cc.User = user
	cc.Password = password
	cc.Database = dbname
	return cc, nil
}

// Open returns a pool for cc and checks it can reach the server.
func Open(ctx context.Context, cc *pgx.ConnConfig) (*sql.DB, error) {
	db := stdlib.OpenDB(*cc)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not connect to postgres database %q as %s: %w", cc.Database, cc.User, err)
	}
	return db, nil
}

// EnsureDatabase creates database name and the role user, owning it, unless
// the database already exists. It reports whether anything was created.
// admin must not be inside a transaction: CREATE DATABASE cannot run in one.
func EnsureDatabase(ctx context.Context, admin dbx.DBTX, name, user, password string, log logging.Logger) (bool, error) {
	rows, err := admin.QueryContext(ctx, `SELECT 1 FROM pg_database WHERE datname = $1`, name)
	if err != nil {
		return false, fmt.Errorf("unable to determine if %s exists: %w", name, err)
	}
	exists := rows.Next()
	err = rows.Err()
	_ = rows.Close()
	if err != nil {
		return false, fmt.Errorf("unable to determine if %s exists: %w", name, err)
	}
	if exists {
		return false, nil
	}

	log.Info(ctx, "database was not found", "database", name)

	db := pgx.Identifier{name}.Sanitize()
	role := pgx.Identifier{user}.Sanitize()

	stmts := []struct {
		msg, sql string
	}{
		{"creating database", "CREATE DATABASE " + db},
		{"creating database user", "CREATE USER " + role + " WITH PASSWORD " + quoteLiteral(password)},
		{"granting privileges", "GRANT ALL ON DATABASE " + db + " TO " + role},
		{"transferring ownership", "ALTER DATABASE " + db + " OWNER TO " + role},
	}
	for _, s := range stmts {
		log.Info(ctx, s.msg, "database", name, "user", user)
		if _, err := admin.ExecContext(ctx, s.sql); err != nil {
			return false, fmt.Errorf("unable to create %s: %w", name, err)
		}
	}

	return true, nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Setup provisions the application database if needed, then opens it as the
// application role and applies migrations. The admin connection is closed
// before returning.
func Setup(ctx context.Context, cfg *config.Config, k keys.Keys, rm repomanager.RepositoryManager, log logging.Logger) (*sql.DB, error) {
	log = log.With("module", "database")

	adminCC, err := ConnConfig(cfg.DatabaseHost, cfg.DatabasePort, AdminUser, k.PostgresPassword, "")
	if err != nil {
		return nil, err
	}
	admin, err := Open(ctx, adminCC)
	if err != nil {
		return nil, err
	}
	created, err := EnsureDatabase(ctx, admin, cfg.DatabaseName, cfg.DatabaseUser(), k.DBPassword, log)
	_ = admin.Close()
	if err != nil {
		return nil, err
	}

	appCC, err := ConnConfig(cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUser(), k.DBPassword, cfg.DatabaseName)
	if err != nil {
		return nil, err
	}
	db, err := Open(ctx, appCC)
	if err != nil {
		return nil, err
	}

	if created {
		log.Info(ctx, "creating tables", "database", cfg.DatabaseName)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to create tables in %s: %w", cfg.DatabaseName, err)
	}

	return db, nil
}
