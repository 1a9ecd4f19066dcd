package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Invite is a single-use, time-limited registration code issued by a user.
// Used flips from false to true once, when a registration consumes the code;
// UsedBy and RegistrationId are set in the same update.
type Invite struct {
	Id             primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	Code           string             `json:"code" bson:"code"`
	ExpiresAt      time.Time          `json:"expires_at" bson:"expires_at"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	Used           bool               `json:"used" bson:"used"`
	UsedBy         string             `json:"used_by,omitempty" bson:"used_by,omitempty"`
	UsedAt         time.Time          `json:"used_at,omitempty" bson:"used_at,omitempty"`
	RegistrationId string             `json:"-" bson:"registration_id,omitempty"`
	CreatedBy      string             `json:"created_by" bson:"created_by"`
}

// IsValid reports whether the invite can still be consumed at the given time.
func (i *Invite) IsValid(now time.Time) bool {
	return !i.Used && now.Before(i.ExpiresAt)
}
