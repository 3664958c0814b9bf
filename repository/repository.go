// Package repository declares the storage contracts services depend on.
// database.MongoStore is the production implementation; memstore.Store keeps
// everything in process for development and tests.
//
// Lookups of a missing document return an apperrors not-found error and
// unique-key violations return an apperrors conflict, so services can pass
// them straight through.
package repository

import (
	"context"
	"time"

	"github.com/myscheme/schemeapi/models"
	"github.com/myscheme/schemeapi/query"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// SchemeCounter names a denormalized counter on a scheme document.
type SchemeCounter string

const (
	CounterViews      SchemeCounter = "views"
	CounterFavourites SchemeCounter = "favouriteCount"
)

type SchemeRepository interface {
	// List returns the page of schemes selected by q and the total number of matches.
	List(ctx context.Context, q *query.SchemeQuery) ([]models.Scheme, int64, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Scheme, error)
	FindBySlug(ctx context.Context, slug string) (*models.Scheme, error)
	// FindByIDs returns the schemes that exist, in the order of ids.
	FindByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Scheme, error)
	Insert(ctx context.Context, s *models.Scheme) error
	// UpdateDetails writes every editable field of s. Slug, counters and
	// createdAt are never touched.
	UpdateDetails(ctx context.Context, s *models.Scheme) error
	SetBannerImage(ctx context.Context, id bson.ObjectID, url string) error
	Delete(ctx context.Context, id bson.ObjectID) error
	// AdjustCounter atomically adds delta to counter. Negative deltas never
	// take the counter below zero.
	AdjustCounter(ctx context.Context, id bson.ObjectID, counter SchemeCounter, delta int64) error
	Suggest(ctx context.Context, term string, limit int) ([]models.SchemeSuggestion, error)

	CountActive(ctx context.Context) (int64, error)
	SumActiveViews(ctx context.Context) (int64, error)
	TopByViews(ctx context.Context, n int) ([]models.TopScheme, error)
	CountActiveByCategory(ctx context.Context) ([]models.CategoryCount, error)
	// ReferencesCategory reports whether any scheme, active or not, points at the category.
	ReferencesCategory(ctx context.Context, categoryID bson.ObjectID) (bool, error)
}

type CategoryRepository interface {
	List(ctx context.Context, includeInactive bool) ([]models.Category, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	FindByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Category, error)
	Insert(ctx context.Context, c *models.Category) error
	// UpdateDetails writes name, slug, description, icon, color and isActive.
	UpdateDetails(ctx context.Context, c *models.Category) error
	// AdjustSchemeCount atomically adds delta, never going below zero.
	AdjustSchemeCount(ctx context.Context, id bson.ObjectID, delta int64) error
	// DeleteUnused removes the category only while its schemeCount is zero and
	// reports whether it did.
	DeleteUnused(ctx context.Context, id bson.ObjectID) (bool, error)
}

type UserListFilter struct {
	Search string
	Page   int
	Limit  int
}

type UserRepository interface {
	Insert(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, id bson.ObjectID, hash string, now time.Time) error
	// UpsertByEmail inserts u unless a user with the same email exists and
	// reports whether it inserted.
	UpsertByEmail(ctx context.Context, u *models.User) (bool, error)
	List(ctx context.Context, f UserListFilter) ([]models.User, int64, error)

	// AddFavourite appends schemeID to the user's set unless already present and
	// reports whether the set changed.
	AddFavourite(ctx context.Context, userID, schemeID bson.ObjectID) (bool, error)
	// RemoveFavourite removes schemeID and reports whether it was present.
	RemoveFavourite(ctx context.Context, userID, schemeID bson.ObjectID) (bool, error)
	// RemoveSchemeFromAll drops schemeID from every favourite set.
	RemoveSchemeFromAll(ctx context.Context, schemeID bson.ObjectID) error

	Count(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
	CountByRole(ctx context.Context) ([]models.RoleCount, error)
	Recent(ctx context.Context, n int) ([]models.UserSummary, error)
}

type RefreshTokenRepository interface {
	Insert(ctx context.Context, t *models.RefreshToken) error
	FindActive(ctx context.Context, tokenHash string, now time.Time) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id bson.ObjectID, replacedBy *string, now time.Time) error
	RevokeByHash(ctx context.Context, tokenHash string, now time.Time) error
	RevokeAllForUser(ctx context.Context, userID bson.ObjectID, now time.Time) error
}

type FeedbackListFilter struct {
	Status string
	Page   int
	Limit  int
}

type FeedbackRepository interface {
	Insert(ctx context.Context, f *models.Feedback) error
	List(ctx context.Context, f FeedbackListFilter) ([]models.Feedback, int64, error)
	UpdateStatus(ctx context.Context, id bson.ObjectID, status models.FeedbackStatus, response *string) (*models.Feedback, error)
}

// Store groups the repositories of one backend.
type Store interface {
	Schemes() SchemeRepository
	Categories() CategoryRepository
	Users() UserRepository
	RefreshTokens() RefreshTokenRepository
	Feedback() FeedbackRepository

	// WithTransaction runs fn as one unit when the backend supports it;
	// otherwise fn runs as a plain sequence of writes.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	// Clear deletes every document of every collection.
	Clear(ctx context.Context) error
	Close(ctx context.Context) error
}
