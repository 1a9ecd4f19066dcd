package database

import (
	"context"
	"fmt"
	"time"
	"unistuhelper/entity"

	"go.mongodb.org/mongo-driver/bson"
)

// GetInvite returns nil without error when the code does not exist.
func (m *MongoDB) GetInvite(ctx context.Context, code string) (*entity.Invite, error) {
	filter := bson.M{"code": code}
	var invite entity.Invite
	err := m.collection(collectionInvites).FindOne(ctx, filter).Decode(&invite)
	if err != nil {
		return nil, m.findError(err)
	}
	return &invite, nil
}

// CreateInvite inserts a new unused invite; a code collision yields entity.ErrDuplicate.
func (m *MongoDB) CreateInvite(ctx context.Context, invite *entity.Invite) error {
	_, err := m.collection(collectionInvites).InsertOne(ctx, invite)
	if err != nil {
		return m.insertError(err)
	}
	return nil
}

// MarkInviteUsed consumes the invite if, and only if, it is still unused and unexpired at now.
// The check and the write are one document update, so concurrent registrations
// with the same code cannot both succeed.
func (m *MongoDB) MarkInviteUsed(ctx context.Context, code, username, registrationId string, now time.Time) (bool, error) {
	filter := bson.M{
		"code":       code,
		"used":       false,
		"expires_at": bson.M{"$gt": now},
	}
	update := bson.M{"$set": bson.M{
		"used":            true,
		"used_by":         username,
		"used_at":         now,
		"registration_id": registrationId,
	}}
	result, err := m.collection(collectionInvites).UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("mongodb mark invite used: %w", err)
	}
	return result.MatchedCount == 1, nil
}

// ReleaseInvite undoes MarkInviteUsed for the registration that consumed the invite.
// Matching on registrationId makes a repeated or late release a no-op.
func (m *MongoDB) ReleaseInvite(ctx context.Context, code, registrationId string) error {
	filter := bson.M{
		"code":            code,
		"used":            true,
		"registration_id": registrationId,
	}
	update := bson.M{
		"$set":   bson.M{"used": false},
		"$unset": bson.M{"used_by": "", "used_at": "", "registration_id": ""},
	}
	_, err := m.collection(collectionInvites).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mongodb release invite: %w", err)
	}
	return nil
}
