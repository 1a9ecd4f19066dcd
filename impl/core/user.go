package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unistuhelper/entity"
	"unistuhelper/lib/password"
	"unistuhelper/lib/sl"

	"github.com/google/uuid"
)

// FindUser returns nil when the username is unknown. Matching is exact and case-sensitive.
func (c *Core) FindUser(ctx context.Context, username string) (*entity.User, error) {
	user, err := c.db.GetUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// Login authenticates the user; unknown usernames and wrong passwords are both ErrInvalidCredentials.
func (c *Core) Login(ctx context.Context, username, plain string) (*entity.User, error) {
	user, err := c.auth.Authenticate(ctx, username, plain)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			c.log.With(sl.User(username)).Error("authenticate", sl.Err(err))
		}
		return nil, err
	}
	return user, nil
}

// Register creates a standard account by consuming an invite code.
//
// The invite is consumed with a conditional update before the user is inserted,
// so one code admits at most one account. Without transactions a failed insert
// releases the invite again, keyed by a per-registration id.
func (c *Core) Register(ctx context.Context, username, plain, code string) (*entity.UserInfo, error) {
	if username == "" || plain == "" || code == "" {
		return nil, fmt.Errorf("%w: missing username, password, or invite code", ErrValidation)
	}
	log := c.log.With(sl.User(username), sl.Secret("invite_code", code))

	existing, err := c.FindUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	invite, err := c.FindInvite(ctx, code)
	if err != nil {
		return nil, err
	}
	if invite == nil {
		log.Debug("unknown invite code")
		return nil, ErrInviteInvalid
	}
	now := c.now()
	if !invite.IsValid(now) {
		log.With(slog.Bool("used", invite.Used)).Debug("invite not valid")
		return nil, ErrInviteExpired
	}

	hash, err := password.Hash(plain)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return nil, ErrPasswordTooLong
		}
		return nil, err
	}

	user := &entity.User{
		Username:         username,
		PasswordHash:     hash,
		InvitedBy:        invite.CreatedBy,
		InviteCode:       invite.Code,
		InvitesRemaining: 0,
		Invitees:         []string{},
		UserGroup:        entity.GroupStandard,
		CreatedAt:        now,
	}
	registrationId := uuid.NewString()

	err = c.atomically(ctx, func(ctx context.Context, inTx bool) error {
		return c.createInvitedUser(ctx, user, registrationId, inTx)
	})
	if err != nil {
		return nil, err
	}

	log.With(slog.String("invited_by", user.InvitedBy)).Info("user registered")
	if c.notifier != nil {
		c.notifier.UserRegistered(user.Username, user.InvitedBy)
	}
	return user.Public(), nil
}

func (c *Core) createInvitedUser(ctx context.Context, user *entity.User, registrationId string, inTx bool) error {
	ok, err := c.db.MarkInviteUsed(ctx, user.InviteCode, user.Username, registrationId, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("mark invite used: %w", err)
	}
	if !ok {
		return ErrInviteExpired
	}

	if err = c.db.CreateUser(ctx, user); err != nil {
		if !inTx {
			c.releaseInvite(ctx, user.InviteCode, registrationId)
		}
		if errors.Is(err, entity.ErrDuplicate) {
			return ErrUserExists
		}
		return fmt.Errorf("create user: %w", err)
	}

	if user.InvitedBy == "" {
		return nil
	}
	if err = c.db.AddInvitee(ctx, user.InvitedBy, user.Username); err != nil {
		if inTx {
			return fmt.Errorf("add invitee: %w", err)
		}
		// the account exists and the invite is spent; only the inviter's list misses it
		c.log.With(
			sl.User(user.Username),
			slog.String("inviter", user.InvitedBy),
		).Error("link invitee", sl.Err(err))
	}
	return nil
}

func (c *Core) releaseInvite(ctx context.Context, code, registrationId string) {
	err := c.db.ReleaseInvite(context.WithoutCancel(ctx), code, registrationId)
	if err != nil {
		c.log.With(
			sl.Secret("invite_code", code),
			slog.String("registration_id", registrationId),
		).Error("release invite", sl.Err(err))
	}
}

// Bootstrap creates an admin seed account unless the username already exists.
// Seed accounts have no inviter and are the roots of the invite tree.
func (c *Core) Bootstrap(ctx context.Context, username, plain string) (bool, error) {
	log := c.log.With(sl.User(username))
	existing, err := c.FindUser(ctx, username)
	if err != nil {
		return false, err
	}
	if existing != nil {
		if !existing.IsAdmin() {
			log.Warn("seed account exists but is not an admin")
		}
		return false, nil
	}

	hash, err := password.Hash(plain)
	if err != nil {
		return false, err
	}
	user := &entity.User{
		Username:     username,
		PasswordHash: hash,
		Invitees:     []string{},
		UserGroup:    entity.GroupAdmin,
		CreatedAt:    c.now(),
	}
	if err = c.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, entity.ErrDuplicate) {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}
	log.Info("admin account created")
	return true, nil
}
