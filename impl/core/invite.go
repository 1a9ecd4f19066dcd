package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unistuhelper/entity"
	"unistuhelper/lib/sl"
)

// FindInvite returns nil when no invite has this code.
func (c *Core) FindInvite(ctx context.Context, code string) (*entity.Invite, error) {
	invite, err := c.db.GetInvite(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("find invite: %w", err)
	}
	return invite, nil
}

// CreateInvite authenticates the issuer and issues an invite valid for expiresInMinutes,
// or for the configured default when expiresInMinutes is zero.
// The returned user carries the quota left after issuance.
func (c *Core) CreateInvite(ctx context.Context, username, plain string, expiresInMinutes int) (*entity.Invite, *entity.User, error) {
	issuer, err := c.Login(ctx, username, plain)
	if err != nil {
		return nil, nil, err
	}
	if !issuer.CanInvite() {
		c.log.With(sl.User(username)).Debug("invite quota exhausted")
		return nil, nil, ErrNoInvitesRemaining
	}
	expiry := c.conf.InviteExpiry
	if expiresInMinutes != 0 {
		expiry = time.Duration(expiresInMinutes) * time.Minute
	}
	invite, err := c.IssueInvite(ctx, expiry, issuer)
	if err != nil {
		return nil, nil, err
	}
	return invite, issuer, nil
}

// IssueInvite persists a new invite for an already resolved issuer.
// A standard issuer spends one invite of quota, both in the store and on issuer;
// the store update is conditional on the quota being positive. Admins spend nothing.
func (c *Core) IssueInvite(ctx context.Context, expiry time.Duration, issuer *entity.User) (*entity.Invite, error) {
	if issuer == nil || issuer.Username == "" {
		return nil, fmt.Errorf("%w: issuer not resolved", ErrValidation)
	}
	if expiry <= 0 {
		return nil, fmt.Errorf("%w: expiry must be positive", ErrValidation)
	}
	log := c.log.With(sl.User(issuer.Username))

	// a code taken between the lookup and the insert fails on the unique index; draw another
	var invite *entity.Invite
	for attempt := 1; ; attempt++ {
		code, err := c.generateCode(ctx)
		if err != nil {
			return nil, err
		}
		invite, err = c.insertInvite(ctx, code, expiry, issuer)
		if err == nil {
			break
		}
		if !errors.Is(err, entity.ErrDuplicate) || attempt >= c.conf.CodeAttempts {
			return nil, err
		}
		log.With(slog.Int("attempt", attempt)).Warn("invite code taken on insert")
	}

	if !issuer.IsAdmin() {
		issuer.InvitesRemaining--
	}
	log.With(
		sl.Secret("code", invite.Code),
		slog.Time("expires_at", invite.ExpiresAt),
		slog.Int("invites_remaining", issuer.InvitesRemaining),
	).Info("invite created")
	return invite, nil
}

// insertInvite spends the issuer's quota and stores the invite as one unit.
func (c *Core) insertInvite(ctx context.Context, code string, expiry time.Duration, issuer *entity.User) (*entity.Invite, error) {
	now := c.now()
	invite := &entity.Invite{
		Code:      code,
		ExpiresAt: now.Add(expiry),
		CreatedAt: now,
		Used:      false,
		CreatedBy: issuer.Username,
	}

	spendsQuota := !issuer.IsAdmin()
	err := c.atomically(ctx, func(ctx context.Context, inTx bool) error {
		if spendsQuota {
			ok, err := c.db.DecrementInvites(ctx, issuer.Username)
			if err != nil {
				return fmt.Errorf("decrement invites: %w", err)
			}
			if !ok {
				return ErrNoInvitesRemaining
			}
		}
		if err := c.db.CreateInvite(ctx, invite); err != nil {
			if spendsQuota && !inTx {
				c.refundInvite(ctx, issuer.Username)
			}
			return fmt.Errorf("create invite: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invite, nil
}

// generateCode draws random codes until one is not in use, giving up after the configured attempts.
func (c *Core) generateCode(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= c.conf.CodeAttempts; attempt++ {
		code, err := c.newCode()
		if err != nil {
			return "", err
		}
		existing, err := c.FindInvite(ctx, code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
		c.log.With(slog.Int("attempt", attempt)).Warn("invite code collision")
	}
	return "", fmt.Errorf("no unique invite code after %d attempts", c.conf.CodeAttempts)
}

func (c *Core) refundInvite(ctx context.Context, username string) {
	if err := c.db.RefundInvite(context.WithoutCancel(ctx), username); err != nil {
		c.log.With(sl.User(username)).Error("refund invite", sl.Err(err))
	}
}
