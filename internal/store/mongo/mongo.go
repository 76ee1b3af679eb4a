// Package mongo is the document-store backend.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"mwas-backend/internal/store"
)

const defaultDatabase = "mwas"

const (
	colUsers        = "users"
	colTherapists   = "therapists"
	colAppointments = "appointments"
	colChats        = "chats"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ store.Store = (*Store)(nil)

// Connect dials uri and pings the server. The database name comes from the
// URI path, falling back to "mwas".
func Connect(ctx context.Context, uri string) (*Store, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("parse mongo uri: %w", err)
	}
	name := cs.Database
	if name == "" {
		name = defaultDatabase
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return New(client, name), nil
}

func New(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

// EnsureIndexes creates the unique indexes that back the email and
// one-profile-per-user invariants, plus lookup indexes for listings.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	idx := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colTherapists: {
			{Keys: bson.D{{Key: "user", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colAppointments: {
			{Keys: bson.D{{Key: "therapist_id", Value: 1}, {Key: "datetime", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "datetime", Value: 1}}},
		},
	}
	for col, models := range idx {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", col, err)
		}
	}
	return nil
}

// Drop removes the whole database. Tests only.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	}
	return err
}
