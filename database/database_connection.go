package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/myscheme/schemeapi/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	ColSchemes       = "schemes"
	ColCategories    = "categories"
	ColUsers         = "users"
	ColRefreshTokens = "refresh_tokens"
	ColFeedback      = "feedback"
)

type Options struct {
	URI          string
	DatabaseName string
	// Transactions wraps multi-document writes in a session transaction.
	// Needs a replica set or sharded cluster.
	Transactions bool
	Logger       *slog.Logger
}

// Connect dials MongoDB and pings the primary.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}

// MongoStore implements repository.Store on top of one MongoDB database.
type MongoStore struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
	logger       *slog.Logger

	schemes       *schemeRepo
	categories    *categoryRepo
	users         *userRepo
	refreshTokens *refreshTokenRepo
	feedback      *feedbackRepo
}

var _ repository.Store = (*MongoStore)(nil)

func NewMongoStore(ctx context.Context, opts Options) (*MongoStore, error) {
	client, err := Connect(ctx, opts.URI)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connected to mongodb", "database", opts.DatabaseName, "transactions", opts.Transactions)

	db := client.Database(opts.DatabaseName)
	s := &MongoStore{
		client:        client,
		db:            db,
		transactions:  opts.Transactions,
		logger:        logger,
		schemes:       &schemeRepo{col: db.Collection(ColSchemes)},
		categories:    &categoryRepo{col: db.Collection(ColCategories)},
		users:         &userRepo{col: db.Collection(ColUsers)},
		refreshTokens: &refreshTokenRepo{col: db.Collection(ColRefreshTokens)},
		feedback:      &feedbackRepo{col: db.Collection(ColFeedback)},
	}

	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// EnsureIndexes creates the unique, text and filter indexes the queries rely on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		ColSchemes: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{
				{Key: "name", Value: "text"},
				{Key: "description", Value: "text"},
				{Key: "tags", Value: "text"},
				{Key: "benefits", Value: "text"},
			}, Options: options.Index().SetName("scheme_text")},
			{Keys: bson.D{{Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "eligibility.states", Value: 1}}},
		},
		ColCategories: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		ColUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		ColRefreshTokens: {
			{Keys: bson.D{{Key: "tokenHash", Value: 1}}},
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
		ColFeedback: {
			{Keys: bson.D{{Key: "user", Value: 1}}},
			{Keys: bson.D{{Key: "scheme", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
	}

	for col, idx := range indexes {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", col, err)
		}
	}
	return nil
}

func (s *MongoStore) Schemes() repository.SchemeRepository             { return s.schemes }
func (s *MongoStore) Categories() repository.CategoryRepository        { return s.categories }
func (s *MongoStore) Users() repository.UserRepository                 { return s.users }
func (s *MongoStore) RefreshTokens() repository.RefreshTokenRepository { return s.refreshTokens }
func (s *MongoStore) Feedback() repository.FeedbackRepository          { return s.feedback }

func (s *MongoStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		return fn(ctx)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

func (s *MongoStore) Clear(ctx context.Context) error {
	for _, name := range []string{ColUsers, ColSchemes, ColCategories, ColFeedback, ColRefreshTokens} {
		res, err := s.db.Collection(name).DeleteMany(ctx, bson.M{})
		if err != nil {
			return fmt.Errorf("clear %s: %w", name, err)
		}
		s.logger.Info("collection cleared", "collection", name, "deleted", res.DeletedCount)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
