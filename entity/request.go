package entity

import (
	"net/http"
	"strings"
	"unistuhelper/lib/validate"
)

// DefaultInviteExpiryMinutes is seven days.
const DefaultInviteExpiryMinutes = 10080

// Credentials identify an account. Password length is capped by bcrypt's 72 byte input limit.
type Credentials struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,maxbytes=72"`
}

type RegisterRequest struct {
	Credentials
	InviteCode string `json:"invite_code" validate:"required,max=64"`
}

func (r *RegisterRequest) Bind(_ *http.Request) error {
	r.InviteCode = strings.TrimSpace(r.InviteCode)
	return validate.Struct(r)
}

type LoginRequest struct {
	Credentials
}

func (r *LoginRequest) Bind(_ *http.Request) error {
	return validate.Struct(r)
}

// InviteRequest accepts the expiry as expires_in_minutes; older clients send expires_in_min.
type InviteRequest struct {
	Credentials
	ExpiresInMinutes int `json:"expires_in_minutes" validate:"omitempty,gt=0,lte=525600"`
	ExpiresInMin     int `json:"expires_in_min" validate:"omitempty,gt=0,lte=525600"`
}

func (r *InviteRequest) Bind(_ *http.Request) error {
	return validate.Struct(r)
}

// Expiry returns the requested offset in minutes; zero leaves it to the server default.
func (r *InviteRequest) Expiry() int {
	if r.ExpiresInMinutes > 0 {
		return r.ExpiresInMinutes
	}
	return r.ExpiresInMin
}

type UpdateRequest struct {
	Version string `json:"version" validate:"omitempty,max=64"`
}

func (r *UpdateRequest) Bind(_ *http.Request) error {
	r.Version = strings.TrimSpace(r.Version)
	return validate.Struct(r)
}

type RegisterResponse struct {
	Message string `json:"message"`
	*UserInfo
}

type LoginResponse struct {
	Message          string    `json:"message"`
	Username         string    `json:"username"`
	UserGroup        UserGroup `json:"user_group"`
	InvitesRemaining int       `json:"invites_remaining"`
}

type InviteResponse struct {
	Message          string `json:"message"`
	Code             string `json:"code"`
	ExpiresAt        string `json:"expires_at"`
	InvitesRemaining int    `json:"invites_remaining"`
}
