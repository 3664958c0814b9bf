package memstore

import (
	"context"
	"time"

	"github.com/myscheme/schemeapi/apperrors"
	"github.com/myscheme/schemeapi/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type refreshTokenRepo struct {
	s *Store
}

func (r *refreshTokenRepo) Insert(ctx context.Context, t *models.RefreshToken) error {
	defer r.s.lockWrite(ctx)()
	if t.ID.IsZero() {
		t.ID = bson.NewObjectID()
	}
	r.s.tokens[t.ID] = cloneToken(t)
	return nil
}

func (r *refreshTokenRepo) FindActive(ctx context.Context, tokenHash string, now time.Time) (*models.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.tokens {
		if t.TokenHash == tokenHash && t.RevokedAt == nil && t.ExpiresAt.After(now) {
			return cloneToken(t), nil
		}
	}
	return nil, apperrors.NotFound("refresh token not found")
}

// Tokens are replaced, never mutated, so transaction snapshots can share them.

func (r *refreshTokenRepo) Revoke(ctx context.Context, id bson.ObjectID, replacedBy *string, now time.Time) error {
	defer r.s.lockWrite(ctx)()
	t, ok := r.s.tokens[id]
	if !ok {
		return nil
	}
	next := cloneToken(t)
	next.RevokedAt = &now
	if replacedBy != nil {
		rb := *replacedBy
		next.ReplacedBy = &rb
	}
	r.s.tokens[id] = next
	return nil
}

func (r *refreshTokenRepo) RevokeByHash(ctx context.Context, tokenHash string, now time.Time) error {
	defer r.s.lockWrite(ctx)()
	for id, t := range r.s.tokens {
		if t.TokenHash == tokenHash && t.RevokedAt == nil {
			next := cloneToken(t)
			next.RevokedAt = &now
			r.s.tokens[id] = next
			return nil
		}
	}
	return nil
}

func (r *refreshTokenRepo) RevokeAllForUser(ctx context.Context, userID bson.ObjectID, now time.Time) error {
	defer r.s.lockWrite(ctx)()
	for id, t := range r.s.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			next := cloneToken(t)
			next.RevokedAt = &now
			r.s.tokens[id] = next
		}
	}
	return nil
}
