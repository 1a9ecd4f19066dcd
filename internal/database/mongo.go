package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unistuhelper/entity"
	"unistuhelper/internal/config"
	"unistuhelper/lib/sl"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	collectionUsers   = "users"
	collectionInvites = "invites"
)

// MongoDB owns one client (and its connection pool) for the process lifetime.
// Every operation takes the caller's context, so a request's deadline bounds its store calls.
type MongoDB struct {
	client   *mongo.Client
	database string
	log      *slog.Logger
}

// Connect dials the server from conf and verifies it with a ping.
func Connect(ctx context.Context, conf *config.Config, log *slog.Logger) (*MongoDB, error) {
	clientOptions := options.Client().
		ApplyURI(conf.Mongo.URI).
		SetTimeout(conf.MongoTimeout())
	connection, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	m := New(connection, conf.Mongo.Database, log)
	if err = m.Ping(ctx); err != nil {
		_ = connection.Disconnect(context.Background())
		return nil, err
	}
	m.log.Info("connected", slog.String("database", conf.Mongo.Database))
	return m, nil
}

// New wraps an already connected client.
func New(client *mongo.Client, database string, log *slog.Logger) *MongoDB {
	return &MongoDB{
		client:   client,
		database: database,
		log:      log.With(sl.Module("database.mongo")),
	}
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoDB) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongodb ping: %w", err)
	}
	return nil
}

func (m *MongoDB) collection(name string) *mongo.Collection {
	return m.client.Database(m.database).Collection(name)
}

// EnsureIndexes creates the unique indexes that back username and invite code uniqueness.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := m.collection(collectionUsers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("username_unique"),
	})
	if err != nil {
		return fmt.Errorf("mongodb index users: %w", err)
	}
	_, err = m.collection(collectionInvites).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("code_unique"),
		},
		{
			Keys:    bson.D{{Key: "created_by", Value: 1}},
			Options: options.Index().SetName("created_by"),
		},
	})
	if err != nil {
		return fmt.Errorf("mongodb index invites: %w", err)
	}
	return nil
}

// WithTransaction runs fn in a multi-document transaction.
// fn receives the session context and must pass it to every store call it makes.
func (m *MongoDB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongodb session: %w", err)
	}
	defer session.EndSession(context.Background())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return fmt.Errorf("mongodb find: %w", err)
}

func (m *MongoDB) insertError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("mongodb insert: %w: %w", entity.ErrDuplicate, err)
	}
	return fmt.Errorf("mongodb insert: %w", err)
}
