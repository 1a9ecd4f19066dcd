package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unistuhelper/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu    sync.Mutex
	users []string
}

func (n *recordingNotifier) UserRegistered(username, invitedBy string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users = append(n.users, username+"<"+invitedBy)
}

func TestRegister(t *testing.T) {
	db := newMemoryDB()
	seedUser(t, db, "root", "rootpw", entity.GroupAdmin, 0)
	seedInvite(db, "AAAAbbbbCCCCdddd", "root", testNow.Add(time.Hour), false)
	notifier := &recordingNotifier{}
	c := newTestCore(t, db, testConfig())
	c.SetNotifier(notifier)

	info, err := c.Register(context.Background(), "alice", "alicepw", "AAAAbbbbCCCCdddd")
	require.NoError(t, err)
	require.Equal(t, "alice", info.Username)
	require.NotNil(t, info.InvitedBy)
	assert.Equal(t, "root", *info.InvitedBy)

	alice := db.user("alice")
	require.NotNil(t, alice)
	assert.Equal(t, entity.GroupStandard, alice.UserGroup)
	assert.Equal(t, 0, alice.InvitesRemaining)
	assert.Empty(t, alice.Invitees)
	assert.Equal(t, "root", alice.InvitedBy)
	assert.Equal(t, "AAAAbbbbCCCCdddd", alice.InviteCode)
	assert.NotEqual(t, "alicepw", alice.PasswordHash)
	assert.True(t, alice.CheckPassword("alicepw"))
	assert.False(t, alice.CheckPassword("wrong"))

	invite := db.invite("AAAAbbbbCCCCdddd")
	assert.True(t, invite.Used)
	assert.Equal(t, "alice", invite.UsedBy)
	assert.NotEmpty(t, invite.RegistrationId)

	assert.Equal(t, []string{"alice"}, db.user("root").Invitees)
	assert.Equal(t, []string{"alice<root"}, notifier.users)
}

func TestRegister_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		code     string
		want     error
	}{
		{"missing username", "", "pw", "valid", ErrValidation},
		{"missing password", "bob", "", "valid", ErrValidation},
		{"missing code", "bob", "pw", "", ErrValidation},
		{"existing username", "alice", "pw", "valid", ErrUserExists},
		{"unknown code", "bob", "pw", "unknown", ErrInviteInvalid},
		{"expired code", "bob", "pw", "expired", ErrInviteExpired},
		{"used code", "bob", "pw", "used", ErrInviteExpired},
		{"expires right now", "bob", "pw", "boundary", ErrInviteExpired},
		{"password over 72 bytes", "bob", strings.Repeat("ж", 40), "valid", ErrPasswordTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newMemoryDB()
			seedUser(t, db, "root", "rootpw", entity.GroupAdmin, 0)
			seedUser(t, db, "alice", "alicepw", entity.GroupStandard, 0)
			seedInvite(db, "valid", "root", testNow.Add(time.Hour), false)
			seedInvite(db, "expired", "root", testNow.Add(-time.Minute), false)
			seedInvite(db, "used", "root", testNow.Add(time.Hour), true)
			seedInvite(db, "boundary", "root", testNow, false)
			c := newTestCore(t, db, testConfig())

			_, err := c.Register(context.Background(), tt.username, tt.password, tt.code)
			require.ErrorIs(t, err, tt.want)

			if tt.username != "alice" {
				assert.Nil(t, db.user(tt.username), "no user may be created")
			}
			assert.False(t, db.invite("valid").Used, "valid invite must stay unused")
			assert.Empty(t, db.user("root").Invitees)
		})
	}
}

func TestRegister_InviteIsSingleUse(t *testing.T) {
	db := newMemoryDB()
	seedUser(t, db, "root", "rootpw", entity.GroupAdmin, 0)
	seedInvite(db, "once", "root", testNow.Add(time.Hour), false)
	c := newTestCore(t, db, testConfig())
	ctx := context.Background()

	_, err := c.Register(ctx, "alice", "pw", "once")
	require.NoError(t, err)

	_, err = c.Register(ctx, "bob", "pw", "once")
	require.ErrorIs(t, err, ErrInviteExpired)
	assert.Nil(t, db.user("bob"))
	assert.Equal(t, "alice", db.invite("once").UsedBy)
}

func TestRegister_ConcurrentSameCode(t *testing.T) {
	db := newMemoryDB()
	seedUser(t, db, "root", "rootpw", entity.GroupAdmin, 0)
	seedInvite(db, "shared", "root", testNow.Add(time.Hour), false)
	c := newTestCore(t, db, testConfig())

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Register(context.Background(), fmt.Sprintf("user%d", i), "pw", "shared")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, ErrInviteExpired)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, db.user("root").Invitees, 1)
}

func TestRegister_InsertFailureReleasesInvite(t *testing.T) {
	tests := []struct {
		name     string
		failWith error
		want     error
	}{
		{"store error", errors.New("write concern failed"), nil},
		{"username taken concurrently", entity.ErrDuplicate, ErrUserExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newMemoryDB()
			seedUser(t, db, "root", "rootpw", entity.GroupAdmin, 0)
			seedInvite(db, "code", "root", testNow.Add(time.Hour), false)
			db.failCreateUser = tt.failWith
			c := newTestCore(t, db, testConfig())

			_, err := c.Register(context.Background(), "alice", "pw", "code")
			require.Error(t, err)
			if tt.want != nil {
				require.ErrorIs(t, err, tt.want)
			}

			assert.Equal(t, []string{"code"}, db.released)
			invite := db.invite("code")
			assert.False(t, invite.Used)
			assert.Empty(t, invite.UsedBy)
			assert.Nil(t, db.user("alice"))
		})
	}
}

func TestRegister_InviteeLinkFailure(t *testing.T) {
	t.Run("without transactions the account is kept", func(t *testing.T) {
		db := newMemoryDB()
		seedUser(t, db, "root", "rootpw", entity.GroupAdmin, 0)
		seedInvite(db, "code", "root", testNow.Add(time.Hour), false)
		db.failAddInvitee = errors.New("network error")
		c := newTestCore(t, db, testConfig())

		_, err := c.Register(context.Background(), "alice", "pw", "code")
		require.NoError(t, err)
		assert.NotNil(t, db.user("alice"))
		assert.True(t, db.invite("code").Used)
	})

	t.Run("with transactions everything rolls back", func(t *testing.T) {
		db := newMemoryDB()
		seedUser(t, db, "root", "rootpw", entity.GroupAdmin, 0)
		seedInvite(db, "code", "root", testNow.Add(time.Hour), false)
		db.failAddInvitee = errors.New("network error")
		conf := testConfig()
		conf.Transactions = true
		c := newTestCore(t, db, conf)

		_, err := c.Register(context.Background(), "alice", "pw", "code")
		require.Error(t, err)
		assert.Equal(t, 1, db.txCalls)
		assert.Nil(t, db.user("alice"))
		assert.False(t, db.invite("code").Used)
		assert.Empty(t, db.released, "transactions need no compensation")
	})
}

func TestRegister_Transactional(t *testing.T) {
	db := newMemoryDB()
	seedUser(t, db, "root", "rootpw", entity.GroupAdmin, 0)
	seedInvite(db, "code", "root", testNow.Add(time.Hour), false)
	conf := testConfig()
	conf.Transactions = true
	c := newTestCore(t, db, conf)

	_, err := c.Register(context.Background(), "alice", "pw", "code")
	require.NoError(t, err)
	assert.Equal(t, 1, db.txCalls)
	assert.Equal(t, []string{"alice"}, db.user("root").Invitees)
}

func TestLogin(t *testing.T) {
	db := newMemoryDB()
	seedUser(t, db, "alice", "alicepw", entity.GroupStandard, 3)
	c := newTestCore(t, db, testConfig())
	ctx := context.Background()

	user, err := c.Login(ctx, "alice", "alicepw")
	require.NoError(t, err)
	assert.Equal(t, entity.GroupStandard, user.UserGroup)
	assert.Equal(t, 3, user.InvitesRemaining)

	_, wrongPassword := c.Login(ctx, "alice", "nope")
	_, unknownUser := c.Login(ctx, "mallory", "alicepw")
	require.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	require.ErrorIs(t, unknownUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestBootstrap(t *testing.T) {
	db := newMemoryDB()
	c := newTestCore(t, db, testConfig())
	ctx := context.Background()

	created, err := c.Bootstrap(ctx, "root", "rootpw")
	require.NoError(t, err)
	assert.True(t, created)

	root := db.user("root")
	require.NotNil(t, root)
	assert.True(t, root.IsAdmin())
	assert.Empty(t, root.InvitedBy)
	assert.True(t, root.CheckPassword("rootpw"))

	created, err = c.Bootstrap(ctx, "root", "other")
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, db.user("root").CheckPassword("rootpw"), "existing account is not overwritten")
}
