package services

import (
	"context"
	"database/sql"
	"errors"
	"unicode/utf8"

	"github.com/weightlog/weightlog/internal/common"
	"github.com/weightlog/weightlog/internal/dbx"
	"github.com/weightlog/weightlog/internal/logging"
	"github.com/weightlog/weightlog/internal/server/chart"
	"github.com/weightlog/weightlog/internal/server/entrycsv"
	"github.com/weightlog/weightlog/internal/server/models"
	"github.com/weightlog/weightlog/internal/server/repositories/repomanager"
	"github.com/weightlog/weightlog/internal/server/units"
)

// EntryService manages the weight log of a user.
type EntryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

// NewEntryService constructs an EntryService using repositories.
func NewEntryService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *EntryService {
	return &EntryService{db: db, repomanager: m, logger: l.With("module", "entries")}
}

func (s *EntryService) withTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, s.db, dbx.RepeatableRead, fn)
}

// Add stores a new entry for user and returns its id. The weight is rounded
// to one decimal.
func (s *EntryService) Add(ctx context.Context, user *models.User, dto models.EntryDTO) (int64, error) {
	row := dto.ToRow(user.ID)
	row.ID = 0
	row.Weight = units.Round(row.Weight, 1)

	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := s.repomanager.Entries(tx).Create(ctx, row)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return 0, badRequest(err, "Entry for date %s already exists.", dto.Date)
		}
		return 0, internal(err, "Unable to add entry: %v", err)
	}

	s.logger.Info(ctx, "entry added", "user_id", user.ID, "entry", row.String())
	return row.ID, nil
}

// Update overwrites date, weight and unit of the entry with dto.ID. Only
// entries owned by user are visible.
func (s *EntryService) Update(ctx context.Context, user *models.User, dto models.EntryDTO) error {
	row := dto.ToRow(user.ID)

	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Entries(tx).Update(ctx, row)
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return notFound(err, "Entry %d not found.", dto.ID)
		case errors.Is(err, common.ErrorAlreadyExists):
			return badRequest(err, "Entry for date %s already exists.", dto.Date)
		}
		return internal(err, "Unable to update entry: %v", err)
	}

	s.logger.Info(ctx, "entry updated", "user_id", user.ID, "entry", row.String())
	return nil
}

// Delete removes the entry of user on date.
func (s *EntryService) Delete(ctx context.Context, user *models.User, date models.Date) error {
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Entries(tx).DeleteByDate(ctx, user.ID, date.Time)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return notFound(err, "Date %s not found.", date)
		}
		return internal(err, "Unable to delete entry: %v", err)
	}

	s.logger.Info(ctx, "entry deleted", "user_id", user.ID, "date", date.String())
	return nil
}

// DeleteAll removes every entry of user and returns how many were removed.
func (s *EntryService) DeleteAll(ctx context.Context, user *models.User) (int64, error) {
	var n int64
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		n, err = s.repomanager.Entries(tx).DeleteAll(ctx, user.ID)
		return err
	})
	if err != nil {
		return 0, internal(err, "Unable to delete entries: %v", err)
	}

	s.logger.Info(ctx, "entries deleted", "user_id", user.ID, "count", n)
	return n, nil
}

// List returns the entries of user ordered by date, with weights expressed
// in the user's unit.
func (s *EntryService) List(ctx context.Context, user *models.User) ([]models.EntryDTO, error) {
	rows, err := s.repomanager.Entries(s.db).ListByUser(ctx, user.ID)
	if err != nil {
		return nil, internal(err, "Unable to retrieve entries: %v", err)
	}

	result := make([]models.EntryDTO, 0, len(rows))
	for _, r := range rows {
		result = append(result, models.EntryToDTO(r, user.Metric))
	}
	return result, nil
}

// ExportCSV renders the entries of user as CSV, in the user's unit.
func (s *EntryService) ExportCSV(ctx context.Context, user *models.User) (string, error) {
	entries, err := s.List(ctx, user)
	if err != nil {
		return "", err
	}
	return entrycsv.Format(entries), nil
}

// ImportCSV merges the CSV in data into the entries of user. Dates already
// present are updated when weight or unit differ; the rest are inserted.
// The whole file is applied in one transaction.
func (s *EntryService) ImportCSV(ctx context.Context, user *models.User, data []byte) error {
	if !utf8.Valid(data) {
		return badRequest(common.ErrorValidation, "Unable to read string from CSV file.")
	}

	parsed, err := entrycsv.Parse(string(data))
	if err != nil {
		var fe *entrycsv.FormatError
		if errors.As(err, &fe) {
			return badRequest(common.ErrorValidation, "%s", fe.Msg)
		}
		return internal(err, "Unable to import entries: %v", err)
	}

	var added, updated int
	err = s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Entries(tx)
		for _, e := range parsed {
			e.UserID = user.ID

			existing, err := repo.GetByDate(ctx, user.ID, e.Date)
			switch {
			case errors.Is(err, common.ErrorNotFound):
				if _, err := repo.Create(ctx, e); err != nil {
					return err
				}
				added++
				s.logger.Debug(ctx, "added row", "entry", e.String())
			case err != nil:
				return err
			case existing.Weight != e.Weight || existing.Metric != e.Metric:
				e.ID = existing.ID
				if err := repo.Update(ctx, e); err != nil {
					return err
				}
				updated++
				s.logger.Debug(ctx, "updated row", "entry", e.String())
			}
		}
		return nil
	})
	if err != nil {
		return internal(err, "Unable to import entries: %v", err)
	}

	s.logger.Info(ctx, "entries imported", "user_id", user.ID, "added", added, "updated", updated)
	return nil
}

// Graph draws the weight history of user with the goal line. It returns
// nil when the user has no entries.
func (s *EntryService) Graph(ctx context.Context, user *models.User) ([]byte, error) {
	entries, err := s.List(ctx, user)
	if err != nil {
		return nil, err
	}

	points := make([]chart.Point, 0, len(entries))
	for _, e := range entries {
		points = append(points, chart.Point{Date: e.Date.Time, Weight: e.Weight})
	}

	png, err := chart.Render(points, user.GoalWeight, user.UnitsName())
	if err != nil {
		return nil, internal(err, "Unable to render graph: %v", err)
	}
	return png, nil
}
