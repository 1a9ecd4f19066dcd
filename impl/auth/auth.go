package auth

import (
	"context"
	"errors"
	"fmt"
	"unistuhelper/entity"
	"unistuhelper/lib/password"
)

// ErrInvalidCredentials covers both an unknown username and a wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

type Database interface {
	GetUser(ctx context.Context, username string) (*entity.User, error)
}

type Auth struct {
	db Database
}

func New(db Database) *Auth {
	return &Auth{db: db}
}

// Authenticate resolves the user and checks the password.
// An unknown username is still checked against a dummy hash, so both failures take one bcrypt comparison.
func (a *Auth) Authenticate(ctx context.Context, username, plain string) (*entity.User, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	user, err := a.db.GetUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		password.Check(password.Dummy(), plain)
		return nil, ErrInvalidCredentials
	}
	if !user.CheckPassword(plain) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
