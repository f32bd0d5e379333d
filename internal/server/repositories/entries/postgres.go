// Package entries persists weight log entries in the entries table.
package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/weightlog/weightlog/internal/common"
	"github.com/weightlog/weightlog/internal/dbx"
	"github.com/weightlog/weightlog/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts entry and sets its generated id. A second entry for the
// same user and date yields common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, entry *models.Entry) (*models.Entry, error) {
	query :=
		`INSERT INTO entries (user_id, date, weight, metric)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		entry.UserID, entry.Date, entry.Weight, entry.Metric).Scan(&entry.ID)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return entry, nil
}

// Update rewrites date, weight and unit of the entry with entry.ID owned by
// entry.UserID.
func (r *PostgresRepository) Update(ctx context.Context, entry *models.Entry) error {
	query :=
		`UPDATE entries SET date = $3, weight = $4, metric = $5
		 WHERE id = $1 AND user_id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, entry.ID, entry.UserID, entry.Date, entry.Weight, entry.Metric)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return affected(res)
}

func (r *PostgresRepository) GetByDate(ctx context.Context, userID int64, date time.Time) (*models.Entry, error) {
	query :=
		`SELECT id, user_id, date, weight, metric FROM entries
		 WHERE user_id = $1 AND date = $2
		 `

	e := &models.Entry{}
	err := r.db.QueryRowContext(ctx, query, userID, date).
		Scan(&e.ID, &e.UserID, &e.Date, &e.Weight, &e.Metric)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Entry, error) {
	query :=
		`SELECT id, user_id, date, weight, metric FROM entries
		 WHERE user_id = $1
		 ORDER BY date
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Entry
	for rows.Next() {
		e := &models.Entry{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Date, &e.Weight, &e.Metric); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) DeleteByDate(ctx context.Context, userID int64, date time.Time) error {
	query :=
		`DELETE FROM entries
		 WHERE user_id = $1 AND date = $2
		 `

	res, err := r.db.ExecContext(ctx, query, userID, date)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return affected(res)
}

// DeleteAll removes every entry of userID and returns how many went.
func (r *PostgresRepository) DeleteAll(ctx context.Context, userID int64) (int64, error) {
	query :=
		`DELETE FROM entries
		 WHERE user_id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
