// Package models defines the rows persisted by the repositories and the
// JSON objects exchanged over HTTP, with explicit conversions between them.
package models

import "github.com/weightlog/weightlog/internal/server/units"

// UsernameMaxLen matches the users.username column width.
const UsernameMaxLen = 32

// User is a row of the users table. Password holds the argon2id hash.
type User struct {
	ID         int64
	Username   string
	Metric     bool
	GoalWeight float64
	Password   string
}

// UserDTO is the wire form of a user. Password carries plaintext on create
// and is always blank on the way out.
type UserDTO struct {
	ID         int64   `json:"id"`
	Username   string  `json:"username"`
	Metric     bool    `json:"metric"`
	UnitsName  string  `json:"units_name"`
	GoalWeight float64 `json:"goal_weight"`
	Password   string  `json:"password"`
}

// UnitsName returns "kg" or "lb" for the user's preference.
func (u *User) UnitsName() string {
	return units.Name(u.Metric)
}

// ToDTO converts a row to its wire form without the password hash.
func (u *User) ToDTO() UserDTO {
	return UserDTO{
		ID:         u.ID,
		Username:   u.Username,
		Metric:     u.Metric,
		UnitsName:  u.UnitsName(),
		GoalWeight: u.GoalWeight,
	}
}

// Token is the response body of POST /token.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
