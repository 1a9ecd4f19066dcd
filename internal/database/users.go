package database

import (
	"context"
	"fmt"
	"unistuhelper/entity"

	"go.mongodb.org/mongo-driver/bson"
)

// GetUser returns nil without error when no user has this exact username.
func (m *MongoDB) GetUser(ctx context.Context, username string) (*entity.User, error) {
	filter := bson.M{"username": username}
	var user entity.User
	err := m.collection(collectionUsers).FindOne(ctx, filter).Decode(&user)
	if err != nil {
		return nil, m.findError(err)
	}
	return &user, nil
}

// CreateUser inserts a new account; a taken username yields entity.ErrDuplicate.
func (m *MongoDB) CreateUser(ctx context.Context, user *entity.User) error {
	if user.Invitees == nil {
		user.Invitees = []string{}
	}
	_, err := m.collection(collectionUsers).InsertOne(ctx, user)
	if err != nil {
		return m.insertError(err)
	}
	return nil
}

// AddInvitee appends invitee to the inviter's invitees list.
func (m *MongoDB) AddInvitee(ctx context.Context, inviter, invitee string) error {
	filter := bson.M{"username": inviter}
	update := bson.M{"$push": bson.M{"invitees": invitee}}
	result, err := m.collection(collectionUsers).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mongodb add invitee: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("mongodb add invitee: inviter %s not found", inviter)
	}
	return nil
}

// DecrementInvites spends one invite of a standard user's quota.
// It reports false when the user is not standard or the quota is already zero.
func (m *MongoDB) DecrementInvites(ctx context.Context, username string) (bool, error) {
	filter := bson.M{
		"username":          username,
		"user_group":        entity.GroupStandard,
		"invites_remaining": bson.M{"$gt": 0},
	}
	update := bson.M{"$inc": bson.M{"invites_remaining": -1}}
	result, err := m.collection(collectionUsers).UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("mongodb decrement invites: %w", err)
	}
	return result.MatchedCount == 1, nil
}

// RefundInvite returns one invite to a standard user's quota after a failed issuance.
func (m *MongoDB) RefundInvite(ctx context.Context, username string) error {
	filter := bson.M{"username": username, "user_group": entity.GroupStandard}
	update := bson.M{"$inc": bson.M{"invites_remaining": 1}}
	_, err := m.collection(collectionUsers).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mongodb refund invite: %w", err)
	}
	return nil
}
