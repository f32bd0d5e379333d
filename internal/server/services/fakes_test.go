package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/weightlog/weightlog/internal/common"
	"github.com/weightlog/weightlog/internal/dbx"
	"github.com/weightlog/weightlog/internal/server/models"
	"github.com/weightlog/weightlog/internal/server/repositories/entries"
	"github.com/weightlog/weightlog/internal/server/repositories/schema"
	"github.com/weightlog/weightlog/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// store is an in-memory stand-in for the users and entries tables.
type store struct {
	nextID  int64
	users   map[int64]*models.User
	entries map[int64]*models.Entry

	// failWith, when set, is returned by every repository call.
	failWith error
}

func newStore() *store {
	return &store{nextID: 100, users: map[int64]*models.User{}, entries: map[int64]*models.Entry{}}
}

func (s *store) id() int64 {
	id := s.nextID
	s.nextID++
	return id
}

type fakeRepoManager struct{ s *store }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository          { return &fakeUsersRepo{m.s} }
func (m *fakeRepoManager) Entries(dbx.DBTX) entries.Repository      { return &fakeEntriesRepo{m.s} }
func (m *fakeRepoManager) Schema(dbx.DBTX) schema.Repository        { return nil }

type fakeUsersRepo struct{ s *store }

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	if f.s.failWith != nil {
		return nil, f.s.failWith
	}
	for _, x := range f.s.users {
		if x.Username == u.Username {
			return nil, common.ErrorAlreadyExists
		}
	}
	u.ID = f.s.id()
	c := *u
	f.s.users[u.ID] = &c
	return u, nil
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	if f.s.failWith != nil {
		return nil, f.s.failWith
	}
	u, ok := f.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsersRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	if f.s.failWith != nil {
		return nil, f.s.failWith
	}
	for _, u := range f.s.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) List(context.Context) ([]*models.User, error) {
	if f.s.failWith != nil {
		return nil, f.s.failWith
	}
	var out []*models.User
	for _, u := range f.s.users {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsersRepo) Update(_ context.Context, u *models.User) error {
	if f.s.failWith != nil {
		return f.s.failWith
	}
	if _, ok := f.s.users[u.ID]; !ok {
		return common.ErrorNotFound
	}
	c := *u
	f.s.users[u.ID] = &c
	return nil
}

func (f *fakeUsersRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	if f.s.failWith != nil {
		return f.s.failWith
	}
	u, ok := f.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Password = hash
	return nil
}

func (f *fakeUsersRepo) Delete(_ context.Context, id int64) error {
	if f.s.failWith != nil {
		return f.s.failWith
	}
	if _, ok := f.s.users[id]; !ok {
		return common.ErrorNotFound
	}
	for _, e := range f.s.entries {
		if e.UserID == id {
			// entries.user_id has no cascade
			return common.ErrorInternal
		}
	}
	delete(f.s.users, id)
	return nil
}

type fakeEntriesRepo struct{ s *store }

func (f *fakeEntriesRepo) conflict(e *models.Entry) bool {
	for _, x := range f.s.entries {
		if x.ID != e.ID && x.UserID == e.UserID && x.Date.Equal(e.Date) {
			return true
		}
	}
	return false
}

func (f *fakeEntriesRepo) Create(_ context.Context, e *models.Entry) (*models.Entry, error) {
	if f.s.failWith != nil {
		return nil, f.s.failWith
	}
	if f.conflict(e) {
		return nil, common.ErrorAlreadyExists
	}
	e.ID = f.s.id()
	c := *e
	f.s.entries[e.ID] = &c
	return e, nil
}

func (f *fakeEntriesRepo) Update(_ context.Context, e *models.Entry) error {
	if f.s.failWith != nil {
		return f.s.failWith
	}
	x, ok := f.s.entries[e.ID]
	if !ok || x.UserID != e.UserID {
		return common.ErrorNotFound
	}
	if f.conflict(e) {
		return common.ErrorAlreadyExists
	}
	c := *e
	f.s.entries[e.ID] = &c
	return nil
}

func (f *fakeEntriesRepo) GetByDate(_ context.Context, userID int64, date time.Time) (*models.Entry, error) {
	if f.s.failWith != nil {
		return nil, f.s.failWith
	}
	for _, e := range f.s.entries {
		if e.UserID == userID && e.Date.Equal(date) {
			c := *e
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeEntriesRepo) ListByUser(_ context.Context, userID int64) ([]*models.Entry, error) {
	if f.s.failWith != nil {
		return nil, f.s.failWith
	}
	var out []*models.Entry
	for _, e := range f.s.entries {
		if e.UserID == userID {
			c := *e
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (f *fakeEntriesRepo) DeleteByDate(_ context.Context, userID int64, date time.Time) error {
	if f.s.failWith != nil {
		return f.s.failWith
	}
	for id, e := range f.s.entries {
		if e.UserID == userID && e.Date.Equal(date) {
			delete(f.s.entries, id)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeEntriesRepo) DeleteAll(_ context.Context, userID int64) (int64, error) {
	if f.s.failWith != nil {
		return 0, f.s.failWith
	}
	var n int64
	for id, e := range f.s.entries {
		if e.UserID == userID {
			delete(f.s.entries, id)
			n++
		}
	}
	return n, nil
}

func date(t *testing.T, s string) models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func csvLines(s string) []string {
	return strings.Split(s, "\n")
}
