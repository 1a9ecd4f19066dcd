package entity

import "errors"

// ErrDuplicate is returned by storage when a unique key (username, invite code) already exists.
var ErrDuplicate = errors.New("duplicate key")
