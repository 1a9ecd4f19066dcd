package entity

import (
	"time"
	"unistuhelper/lib/password"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserGroup controls invite issuance.
// Admins issue invites without spending quota; standard users spend one per invite.
type UserGroup string

const (
	GroupAdmin    UserGroup = "admin"
	GroupStandard UserGroup = "standard"
)

// User is an account stored in the users collection.
// Accounts form a tree through InvitedBy (parent) and Invitees (children),
// rooted at seed accounts that have no inviter.
type User struct {
	Id               primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	Username         string             `json:"username" bson:"username"`
	PasswordHash     string             `json:"-" bson:"password_hash"`
	InvitedBy        string             `json:"invited_by,omitempty" bson:"invited_by,omitempty"`
	InviteCode       string             `json:"invite_code,omitempty" bson:"invite_code,omitempty"`
	InvitesRemaining int                `json:"invites_remaining" bson:"invites_remaining"`
	Invitees         []string           `json:"invitees" bson:"invitees"`
	UserGroup        UserGroup          `json:"user_group" bson:"user_group"`
	CreatedAt        time.Time          `json:"created_at" bson:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u.UserGroup == GroupAdmin
}

// CanInvite reports whether the user may issue one more invite.
func (u *User) CanInvite() bool {
	return u.IsAdmin() || u.InvitesRemaining > 0
}

// CheckPassword compares plain against the stored hash; a mismatch is not an error.
func (u *User) CheckPassword(plain string) bool {
	return password.Check(u.PasswordHash, plain)
}

// Public is the projection returned to clients after registration.
func (u *User) Public() *UserInfo {
	info := &UserInfo{Username: u.Username}
	if u.InvitedBy != "" {
		invitedBy := u.InvitedBy
		info.InvitedBy = &invitedBy
	}
	return info
}

// UserInfo never carries the password hash.
type UserInfo struct {
	Username  string  `json:"username"`
	InvitedBy *string `json:"invited_by"`
}
