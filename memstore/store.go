// Package memstore is an in-process implementation of repository.Store used
// for local development and tests. Free-text search runs on an in-memory
// bleve index; every other predicate is evaluated by the query package.
package memstore

import (
	"context"
	"log/slog"
	"maps"
	"sync"

	"github.com/myscheme/schemeapi/models"
	"github.com/myscheme/schemeapi/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type Store struct {
	mu sync.RWMutex
	// txMu is held for the whole of a transaction and around every write
	// made outside one.
	txMu   sync.Mutex
	logger *slog.Logger

	schemes    map[bson.ObjectID]*models.Scheme
	categories map[bson.ObjectID]*models.Category
	users      map[bson.ObjectID]*models.User
	tokens     map[bson.ObjectID]*models.RefreshToken
	feedback   map[bson.ObjectID]*models.Feedback
	index      *textIndex
}

var _ repository.Store = (*Store)(nil)

func New(logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	idx, err := newTextIndex()
	if err != nil {
		return nil, err
	}
	return &Store{
		logger:     logger,
		schemes:    make(map[bson.ObjectID]*models.Scheme),
		categories: make(map[bson.ObjectID]*models.Category),
		users:      make(map[bson.ObjectID]*models.User),
		tokens:     make(map[bson.ObjectID]*models.RefreshToken),
		feedback:   make(map[bson.ObjectID]*models.Feedback),
		index:      idx,
	}, nil
}

func (s *Store) Schemes() repository.SchemeRepository             { return &schemeRepo{s} }
func (s *Store) Categories() repository.CategoryRepository        { return &categoryRepo{s} }
func (s *Store) Users() repository.UserRepository                 { return &userRepo{s} }
func (s *Store) RefreshTokens() repository.RefreshTokenRepository { return &refreshTokenRepo{s} }
func (s *Store) Feedback() repository.FeedbackRepository          { return &feedbackRepo{s} }

type snapshot struct {
	schemes    map[bson.ObjectID]*models.Scheme
	categories map[bson.ObjectID]*models.Category
	users      map[bson.ObjectID]*models.User
	tokens     map[bson.ObjectID]*models.RefreshToken
	feedback   map[bson.ObjectID]*models.Feedback
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		schemes:    make(map[bson.ObjectID]*models.Scheme, len(s.schemes)),
		categories: make(map[bson.ObjectID]*models.Category, len(s.categories)),
		users:      make(map[bson.ObjectID]*models.User, len(s.users)),
		tokens:     maps.Clone(s.tokens),
		feedback:   maps.Clone(s.feedback),
	}
	for id, v := range s.schemes {
		snap.schemes[id] = cloneScheme(v)
	}
	for id, v := range s.categories {
		snap.categories[id] = cloneCategory(v)
	}
	for id, v := range s.users {
		snap.users[id] = cloneUser(v)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.schemes {
		if _, ok := snap.schemes[id]; !ok {
			_ = s.index.remove(id)
		}
	}
	for _, v := range snap.schemes {
		_ = s.index.put(v)
	}
	s.schemes = snap.schemes
	s.categories = snap.categories
	s.users = snap.users
	s.tokens = snap.tokens
	s.feedback = snap.feedback
}

type txKey struct{}

func (s *Store) inTransaction(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lockWrite acquires the locks a mutation needs and returns the release func.
func (s *Store) lockWrite(ctx context.Context) func() {
	if s.inTransaction(ctx) {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

// WithTransaction runs fn and rolls every collection back if it fails.
// Writes from other goroutines wait until the transaction finishes.
// A nested call joins the enclosing transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTransaction(ctx) {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		s.logger.Debug("memstore transaction rolled back", "error", err)
		return err
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	defer s.lockWrite(ctx)()

	ids := make([]bson.ObjectID, 0, len(s.schemes))
	for id := range s.schemes {
		ids = append(ids, id)
	}
	if err := s.index.reset(ids); err != nil {
		return err
	}

	s.logger.Info("memstore cleared",
		"users", len(s.users),
		"schemes", len(s.schemes),
		"categories", len(s.categories),
		"feedback", len(s.feedback),
	)
	s.schemes = make(map[bson.ObjectID]*models.Scheme)
	s.categories = make(map[bson.ObjectID]*models.Category)
	s.users = make(map[bson.ObjectID]*models.User)
	s.tokens = make(map[bson.ObjectID]*models.RefreshToken)
	s.feedback = make(map[bson.ObjectID]*models.Feedback)
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.index.close()
}
