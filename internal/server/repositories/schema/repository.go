// Package schema reads the data layout version row.
package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/weightlog/weightlog/internal/common"
	"github.com/weightlog/weightlog/internal/dbx"
	"github.com/weightlog/weightlog/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, name string) (*models.Schema, error)
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, name string) (*models.Schema, error) {
	query :=
		`SELECT name, major_ver, minor_ver FROM schema
		 WHERE name = $1
		 `

	s := &models.Schema{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(&s.Name, &s.MajorVer, &s.MinorVer)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}
