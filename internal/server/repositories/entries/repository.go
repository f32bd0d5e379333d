package entries

import (
	"context"
	"time"

	"github.com/weightlog/weightlog/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, entry *models.Entry) (*models.Entry, error)
	Update(ctx context.Context, entry *models.Entry) error
	GetByDate(ctx context.Context, userID int64, date time.Time) (*models.Entry, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Entry, error)
	DeleteByDate(ctx context.Context, userID int64, date time.Time) error
	DeleteAll(ctx context.Context, userID int64) (int64, error)
}
