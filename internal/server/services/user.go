// Package services contains the backend business logic. Every operation
// runs in its own transaction and reports failures as *Error values that
// carry an HTTP status.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/weightlog/weightlog/internal/common"
	"github.com/weightlog/weightlog/internal/cryptox"
	"github.com/weightlog/weightlog/internal/dbx"
	"github.com/weightlog/weightlog/internal/logging"
	"github.com/weightlog/weightlog/internal/server/auth"
	"github.com/weightlog/weightlog/internal/server/config"
	"github.com/weightlog/weightlog/internal/server/keys"
	"github.com/weightlog/weightlog/internal/server/models"
	"github.com/weightlog/weightlog/internal/server/repositories/repomanager"
	"github.com/weightlog/weightlog/internal/server/units"
)

// UserService manages accounts, passwords and access tokens.
type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	logger                      logging.Logger
	tokenKey                    []byte
	accessTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories, server config
// and the loaded key set.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, k keys.Keys, l logging.Logger) *UserService {
	return &UserService{
		db:                          db,
		repomanager:                 m,
		logger:                      l.With("module", "users"),
		tokenKey:                    []byte(k.TokenKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

func (s *UserService) withTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, s.db, dbx.RepeatableRead, fn)
}

func hashPassword(password string) (string, error) {
	if password == "" {
		return "", badRequest(common.ErrorValidation, "Password is empty")
	}
	h, err := cryptox.HashPassword(password)
	if err != nil {
		return "", internal(err, "Unable to hash password")
	}
	return h, nil
}

func checkUsername(username string) error {
	if len(username) > models.UsernameMaxLen {
		return badRequest(common.ErrorValidation, "Maximum length for username is %d", models.UsernameMaxLen)
	}
	return nil
}

// Add creates a user. The username must be unused and at most 32 bytes,
// the password non-empty.
func (s *UserService) Add(ctx context.Context, username string, metric bool, goalWeight float64, password string) (*models.User, error) {
	if err := checkUsername(username); err != nil {
		return nil, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Username: username, Metric: metric, GoalWeight: goalWeight, Password: hash}

	err = s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := s.repomanager.Users(tx).Create(ctx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, badRequest(err, "User %s already exists", username)
		}
		return nil, internal(err, "Unable to add user: %v", err)
	}

	s.logger.Info(ctx, "user added", "user_id", user.ID, "username", username)
	return user, nil
}

// Delete removes the user and all of their entries.
func (s *UserService) Delete(ctx context.Context, username string) error {
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.repomanager.Users(tx).GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		if _, err := s.repomanager.Entries(tx).DeleteAll(ctx, u.ID); err != nil {
			return err
		}
		return s.repomanager.Users(tx).Delete(ctx, u.ID)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return notFound(err, "User %s not found", username)
		}
		return internal(err, "Unable to delete user: %v", err)
	}

	s.logger.Info(ctx, "user deleted", "username", username)
	return nil
}

// ChangePassword replaces the stored hash without checking the old
// password. The backend CLI uses it directly.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, newPassword string) error {
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	err = s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Users(tx).UpdatePassword(ctx, userID, hash)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return notFound(err, "User ID %d not found", userID)
		}
		return internal(err, "Unable to change password: %v", err)
	}

	s.logger.Info(ctx, "password changed", "user_id", userID)
	return nil
}

// ChangeOwnPassword changes the password of an authenticated user after
// checking currentPassword.
func (s *UserService) ChangeOwnPassword(ctx context.Context, user *models.User, currentPassword, newPassword string) error {
	if !s.Authenticate(user, currentPassword) {
		return badRequest(common.ErrorUnauthorized, "Current password is incorrect.")
	}
	return s.ChangePassword(ctx, user.ID, newPassword)
}

// Update changes username, unit preference and goal weight of the
// authenticated user. An empty username keeps the current one. The goal
// weight is rounded to one decimal.
func (s *UserService) Update(ctx context.Context, authenticatedID int64, update models.UserDTO) (*models.User, error) {
	var row *models.User

	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		var err error
		row, err = repo.GetByID(ctx, authenticatedID)
		if err != nil {
			return err
		}

		if update.Username != "" && update.Username != row.Username {
			if err := checkUsername(update.Username); err != nil {
				return err
			}
			_, err := repo.GetByUsername(ctx, update.Username)
			switch {
			case err == nil:
				return common.ErrorAlreadyExists
			case !errors.Is(err, common.ErrorNotFound):
				return err
			}
			row.Username = update.Username
		}

		row.Metric = update.Metric
		row.GoalWeight = units.Round(update.GoalWeight, 1)

		return repo.Update(ctx, row)
	})
	if err != nil {
		var svcErr *Error
		switch {
		case errors.As(err, &svcErr):
			return nil, svcErr
		case errors.Is(err, common.ErrorAlreadyExists):
			return nil, badRequest(err, "Username %s is already in use.", update.Username)
		case errors.Is(err, common.ErrorNotFound):
			return nil, notFound(err, "User ID %d not found", authenticatedID)
		}
		return nil, internal(err, "Unable to update user: %v", err)
	}

	s.logger.Info(ctx, "user updated", "user_id", row.ID)
	return row, nil
}

// GetByUsername looks a user up by name.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, notFound(err, "User %s not found", username)
		}
		return nil, internal(err, "Unable to retrieve user with username %s: %v", username, err)
	}
	return u, nil
}

// List returns every user ordered by id.
func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, internal(err, "Unable to retrieve users: %v", err)
	}
	return users, nil
}

// Authenticate compares password with the stored hash in constant time.
func (s *UserService) Authenticate(user *models.User, password string) bool {
	ok, err := cryptox.VerifyPassword(user.Password, password)
	return err == nil && ok
}

// Login checks the credentials and returns a bearer token whose subject is
// the user id.
func (s *UserService) Login(ctx context.Context, username, password string) (*models.Token, error) {
	s.logger.Info(ctx, "user logging in", "username", username)

	user, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, credentialsError(err)
		}
		return nil, internal(err, "Unable to retrieve user with username %s: %v", username, err)
	}

	if !s.Authenticate(user, password) {
		return nil, credentialsError(common.ErrorUnauthorized)
	}

	token, err := auth.GenerateToken(user.ID, s.tokenKey, s.accessTokenValidityDuration)
	if err != nil {
		return nil, internal(err, "Unable to create access token")
	}

	s.logger.Info(ctx, "user logged in", "username", username)
	return &models.Token{AccessToken: token, TokenType: common.BearerTokenType}, nil
}

// UserFromToken resolves a bearer token to its user. Every failure gives
// the same 401 error.
func (s *UserService) UserFromToken(ctx context.Context, token string) (*models.User, error) {
	id, err := auth.GetUserIDFromToken(token, s.tokenKey)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			s.logger.Info(ctx, "token has expired")
		} else {
			s.logger.Warn(ctx, "failed to decode token")
		}
		return nil, credentialsError(err)
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "user not found for token", "user_id", id)
			return nil, credentialsError(err)
		}
		return nil, internal(err, "Unable to retrieve user with id %d: %v", id, err)
	}

	return user, nil
}
