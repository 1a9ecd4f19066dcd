package core

import (
	"context"
	"errors"
	"sync"
	"time"
	"unistuhelper/entity"
)

// memoryDB mirrors the conditional updates of the Mongo gateway in memory.
type memoryDB struct {
	mu      sync.Mutex
	users   map[string]*entity.User
	invites map[string]*entity.Invite

	failCreateUser   error
	failAddInvitee   error
	failCreateInvite error
	// createInviteErrs are returned by successive CreateInvite calls before failCreateInvite applies
	createInviteErrs []error
	txCalls          int
	released         []string
	refunded         []string
}

func newMemoryDB() *memoryDB {
	return &memoryDB{
		users:   make(map[string]*entity.User),
		invites: make(map[string]*entity.Invite),
	}
}

func (m *memoryDB) putUser(user *entity.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.Invitees == nil {
		user.Invitees = []string{}
	}
	m.users[user.Username] = user
}

func (m *memoryDB) putInvite(invite *entity.Invite) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invites[invite.Code] = invite
}

func (m *memoryDB) user(username string) *entity.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return nil
	}
	copied := *u
	copied.Invitees = append([]string{}, u.Invitees...)
	return &copied
}

func (m *memoryDB) invite(code string) *entity.Invite {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.invites[code]
	if !ok {
		return nil
	}
	copied := *i
	return &copied
}

func (m *memoryDB) GetUser(_ context.Context, username string) (*entity.User, error) {
	return m.user(username), nil
}

func (m *memoryDB) CreateUser(_ context.Context, user *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateUser != nil {
		return m.failCreateUser
	}
	if _, ok := m.users[user.Username]; ok {
		return entity.ErrDuplicate
	}
	copied := *user
	m.users[user.Username] = &copied
	return nil
}

func (m *memoryDB) AddInvitee(_ context.Context, inviter, invitee string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAddInvitee != nil {
		return m.failAddInvitee
	}
	u, ok := m.users[inviter]
	if !ok {
		return errors.New("inviter not found")
	}
	u.Invitees = append(u.Invitees, invitee)
	return nil
}

func (m *memoryDB) DecrementInvites(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok || u.UserGroup != entity.GroupStandard || u.InvitesRemaining <= 0 {
		return false, nil
	}
	u.InvitesRemaining--
	return true, nil
}

func (m *memoryDB) RefundInvite(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refunded = append(m.refunded, username)
	if u, ok := m.users[username]; ok && u.UserGroup == entity.GroupStandard {
		u.InvitesRemaining++
	}
	return nil
}

func (m *memoryDB) GetInvite(_ context.Context, code string) (*entity.Invite, error) {
	return m.invite(code), nil
}

func (m *memoryDB) CreateInvite(_ context.Context, invite *entity.Invite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.createInviteErrs) > 0 {
		err := m.createInviteErrs[0]
		m.createInviteErrs = m.createInviteErrs[1:]
		return err
	}
	if m.failCreateInvite != nil {
		return m.failCreateInvite
	}
	if _, ok := m.invites[invite.Code]; ok {
		return entity.ErrDuplicate
	}
	copied := *invite
	m.invites[invite.Code] = &copied
	return nil
}

func (m *memoryDB) MarkInviteUsed(_ context.Context, code, username, registrationId string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.invites[code]
	if !ok || !i.IsValid(now) {
		return false, nil
	}
	i.Used = true
	i.UsedBy = username
	i.UsedAt = now
	i.RegistrationId = registrationId
	return true, nil
}

func (m *memoryDB) ReleaseInvite(_ context.Context, code, registrationId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = append(m.released, code)
	i, ok := m.invites[code]
	if !ok || !i.Used || i.RegistrationId != registrationId {
		return nil
	}
	i.Used = false
	i.UsedBy = ""
	i.UsedAt = time.Time{}
	i.RegistrationId = ""
	return nil
}

// WithTransaction snapshots both collections and restores them when fn fails.
func (m *memoryDB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.txCalls++
	users := make(map[string]entity.User, len(m.users))
	for k, v := range m.users {
		u := *v
		u.Invitees = append([]string{}, v.Invitees...)
		users[k] = u
	}
	invites := make(map[string]entity.Invite, len(m.invites))
	for k, v := range m.invites {
		invites[k] = *v
	}
	m.mu.Unlock()

	err := fn(ctx)
	if err == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = make(map[string]*entity.User, len(users))
	for k, v := range users {
		u := v
		m.users[k] = &u
	}
	m.invites = make(map[string]*entity.Invite, len(invites))
	for k, v := range invites {
		i := v
		m.invites[k] = &i
	}
	return err
}

func (m *memoryDB) Ping(_ context.Context) error {
	return nil
}
