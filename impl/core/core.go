package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unistuhelper/entity"
	"unistuhelper/impl/auth"
	"unistuhelper/lib/random"
	"unistuhelper/lib/sl"
)

// Database is the persistence gateway for users and invites.
// Lookups return nil without error when nothing matches.
type Database interface {
	GetUser(ctx context.Context, username string) (*entity.User, error)
	CreateUser(ctx context.Context, user *entity.User) error
	AddInvitee(ctx context.Context, inviter, invitee string) error
	DecrementInvites(ctx context.Context, username string) (bool, error)
	RefundInvite(ctx context.Context, username string) error
	GetInvite(ctx context.Context, code string) (*entity.Invite, error)
	CreateInvite(ctx context.Context, invite *entity.Invite) error
	MarkInviteUsed(ctx context.Context, code, username, registrationId string, now time.Time) (bool, error)
	ReleaseInvite(ctx context.Context, code, registrationId string) error
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	Ping(ctx context.Context) error
}

type Notifier interface {
	UserRegistered(username, invitedBy string)
}

type Config struct {
	// Transactions wraps multi-document writes in store transactions instead of compensating on failure.
	Transactions bool
	CodeAttempts int
	// InviteExpiry applies when the issuer does not ask for a specific lifetime.
	InviteExpiry  time.Duration
	LatestVersion string
	ReleaseDir    string
	ReleaseName   string
	DownloadURL   string
	BetaWarning   string
}

type Core struct {
	db       Database
	auth     *auth.Auth
	notifier Notifier
	conf     Config
	now      func() time.Time
	newCode  func() (string, error)
	log      *slog.Logger
}

func New(db Database, conf Config, log *slog.Logger) *Core {
	if db == nil {
		panic("database is nil")
	}
	if conf.CodeAttempts <= 0 {
		conf.CodeAttempts = 10
	}
	if conf.InviteExpiry <= 0 {
		conf.InviteExpiry = entity.DefaultInviteExpiryMinutes * time.Minute
	}
	return &Core{
		db:   db,
		auth: auth.New(db),
		conf: conf,
		now:  func() time.Time { return time.Now().UTC() },
		newCode: func() (string, error) {
			return random.Code(random.CodeLength)
		},
		log: log.With(sl.Module("core")),
	}
}

func (c *Core) SetNotifier(n Notifier) {
	c.notifier = n
}

// Health reports whether the store is reachable.
func (c *Core) Health(ctx context.Context) error {
	return c.db.Ping(ctx)
}

// atomically runs fn inside a store transaction when enabled.
// The returned flag tells fn whether a failure rolls back by itself.
func (c *Core) atomically(ctx context.Context, fn func(ctx context.Context, inTx bool) error) error {
	if !c.conf.Transactions {
		return fn(ctx, false)
	}
	err := c.db.WithTransaction(ctx, func(ctx context.Context) error {
		return fn(ctx, true)
	})
	if err != nil {
		return fmt.Errorf("transaction: %w", err)
	}
	return nil
}
