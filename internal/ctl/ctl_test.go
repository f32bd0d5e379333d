package ctl

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weightlog/weightlog/internal/server/models"
)

type fakeUsers struct {
	users    []*models.User
	added    *models.User
	addedPw  string
	deleted  string
	changed  int64
	newPw    string
	notFound error
}

func (f *fakeUsers) Add(_ context.Context, username string, metric bool, goal float64, pw string) (*models.User, error) {
	f.added = &models.User{ID: 100, Username: username, Metric: metric, GoalWeight: goal}
	f.addedPw = pw
	return f.added, nil
}

func (f *fakeUsers) Delete(_ context.Context, username string) error {
	f.deleted = username
	return nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	if f.notFound != nil {
		return nil, f.notFound
	}
	return &models.User{ID: 7, Username: username}, nil
}

func (f *fakeUsers) ChangePassword(_ context.Context, id int64, pw string) error {
	f.changed, f.newPw = id, pw
	return nil
}

func (f *fakeUsers) List(context.Context) ([]*models.User, error) { return f.users, nil }

func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(int) ([]byte, error) {
		if len(answers) == 0 {
			return nil, errors.New("no more input")
		}
		a := answers[0]
		answers = answers[1:]
		return []byte(a), nil
	}
}

func run(t *testing.T, deps *Deps, args ...string) (string, error) {
	t.Helper()
	opened, closed := 0, 0
	cmd := NewRootCommand(func(context.Context) (*Deps, func(), error) {
		opened++
		return deps, func() { closed++ }, nil
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	assert.Equal(t, opened, closed, "backend handles should be released")
	return out.String(), err
}

func TestAddUser(t *testing.T) {
	users := &fakeUsers{}
	stubPasswords(t, "pw", "pw")

	out, err := run(t, &Deps{Users: users}, "add-user", "--english", "--goal", "150", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Added user alice")
	assert.False(t, users.added.Metric)
	assert.Equal(t, 150.0, users.added.GoalWeight)
	assert.Equal(t, "pw", users.addedPw)
}

func TestAddUser_PasswordMismatch(t *testing.T) {
	users := &fakeUsers{}
	stubPasswords(t, "pw", "other")

	_, err := run(t, &Deps{Users: users}, "add-user", "--goal", "60", "alice")
	assert.ErrorIs(t, err, ErrPasswordMismatch)
	assert.Nil(t, users.added)
}

func TestAddUser_GoalRequired(t *testing.T) {
	_, err := run(t, &Deps{Users: &fakeUsers{}}, "add-user", "alice")
	assert.Error(t, err)
}

func TestDeleteUserAndPasswd(t *testing.T) {
	users := &fakeUsers{}

	_, err := run(t, &Deps{Users: users}, "delete-user", "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", users.deleted)

	stubPasswords(t, "new", "new")
	_, err = run(t, &Deps{Users: users}, "passwd", "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(7), users.changed)
	assert.Equal(t, "new", users.newPw)

	users.notFound = errors.New("User carol not found")
	_, err = run(t, &Deps{Users: users}, "passwd", "carol")
	assert.EqualError(t, err, "User carol not found")
}

func TestListUsers(t *testing.T) {
	users := &fakeUsers{users: []*models.User{
		{ID: 100, Username: "alice", Metric: true, GoalWeight: 60.5},
		{ID: 101, Username: "bob", Metric: false, GoalWeight: 150},
	}}

	out, err := run(t, &Deps{Users: users}, "list-users")
	require.NoError(t, err)
	assert.Contains(t, out, "ID   USERNAME  UNITS  GOAL")
	assert.Contains(t, out, "100  alice     kg     60.5")
	assert.Contains(t, out, "101  bob       lb     150")
}

func TestRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.sql")
	require.NoError(t, os.WriteFile(path, []byte("INSERT INTO users VALUES (1);"), 0o600))

	var gotDump, gotSource string
	deps := &Deps{Restore: func(_ context.Context, dump, source string) error {
		gotDump, gotSource = dump, source
		return nil
	}}

	_, err := run(t, deps, "db-restore", path)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO users VALUES (1);", gotDump)
	assert.Equal(t, path, gotSource)

	_, err = run(t, deps, "db-restore", filepath.Join(t.TempDir(), "missing.sql"))
	assert.ErrorContains(t, err, "Could not read")
}

func TestFailingCommandReleasesHandles(t *testing.T) {
	stubPasswords(t, "pw", "other")
	closed := false
	cmd := NewRootCommand(func(context.Context) (*Deps, func(), error) {
		return &Deps{Users: &fakeUsers{}}, func() { closed = true }, nil
	})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"add-user", "--goal", "60", "alice"})

	err := cmd.ExecuteContext(context.Background())
	require.ErrorIs(t, err, ErrPasswordMismatch)
	assert.True(t, closed)
}
