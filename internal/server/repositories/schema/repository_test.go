package schema

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weightlog/weightlog/internal/common"
	"github.com/weightlog/weightlog/internal/server/models"
)

func TestGet(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	q := `(?s)^SELECT\s+name,\s*major_ver,\s*minor_ver\s+FROM\s+schema\s+WHERE\s+name\s*=\s*\$1\s*$`
	mock.ExpectQuery(q).WithArgs(common.SchemaName).
		WillReturnRows(sqlmock.NewRows([]string{"name", "major_ver", "minor_ver"}).AddRow("Weight Log", 1, 1))
	mock.ExpectQuery(q).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(q).WillReturnError(errors.New("relation \"schema\" does not exist"))

	repo := NewPostgresRepository(db)

	got, err := repo.Get(context.Background(), common.SchemaName)
	require.NoError(t, err)
	assert.Equal(t, &models.Schema{Name: "Weight Log", MajorVer: 1, MinorVer: 1}, got)

	_, err = repo.Get(context.Background(), common.SchemaName)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = repo.Get(context.Background(), common.SchemaName)
	assert.ErrorContains(t, err, "db error: relation")
}
