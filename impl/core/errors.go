package core

import (
	"errors"
	"fmt"
	"unistuhelper/impl/auth"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrPasswordTooLong    = fmt.Errorf("%w: password is longer than 72 bytes", ErrValidation)
	ErrUserExists         = errors.New("user already exists")
	ErrInviteInvalid      = errors.New("invalid invite code")
	ErrInviteExpired      = errors.New("invite code has expired")
	ErrInvalidCredentials = auth.ErrInvalidCredentials
	ErrNoInvitesRemaining = errors.New("no invites remaining")
	ErrNotFound           = errors.New("not found")
)
