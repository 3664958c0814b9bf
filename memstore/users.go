package memstore

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/myscheme/schemeapi/apperrors"
	"github.com/myscheme/schemeapi/models"
	"github.com/myscheme/schemeapi/query"
	"github.com/myscheme/schemeapi/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type userRepo struct {
	s *Store
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *userRepo) findByEmailLocked(email string) *models.User {
	for _, u := range r.s.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (r *userRepo) Insert(ctx context.Context, u *models.User) error {
	defer r.s.lockWrite(ctx)()
	u.Email = normalizeEmail(u.Email)
	if r.findByEmailLocked(u.Email) != nil {
		return apperrors.Conflict("email already registered")
	}
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	if u.FavouriteSchemes == nil {
		u.FavouriteSchemes = []bson.ObjectID{}
	}
	r.s.users[u.ID] = cloneUser(u)
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	return cloneUser(u), nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u := r.findByEmailLocked(normalizeEmail(email))
	if u == nil {
		return nil, apperrors.NotFound("user not found")
	}
	return cloneUser(u), nil
}

func (r *userRepo) UpdateProfile(ctx context.Context, u *models.User) error {
	defer r.s.lockWrite(ctx)()
	cur, ok := r.s.users[u.ID]
	if !ok {
		return apperrors.NotFound("user not found")
	}
	cur.Name = u.Name
	cur.Gender = u.Gender
	cur.State = u.State
	cur.IncomeGroup = u.IncomeGroup
	cur.UpdatedAt = u.UpdatedAt
	cur.Age = nil
	if u.Age != nil {
		age := *u.Age
		cur.Age = &age
	}
	return nil
}

func (r *userRepo) UpdatePassword(ctx context.Context, id bson.ObjectID, hash string, now time.Time) error {
	defer r.s.lockWrite(ctx)()
	u, ok := r.s.users[id]
	if !ok {
		return apperrors.NotFound("user not found")
	}
	u.PasswordHash = hash
	u.UpdatedAt = now
	return nil
}

func (r *userRepo) UpsertByEmail(ctx context.Context, u *models.User) (bool, error) {
	defer r.s.lockWrite(ctx)()
	u.Email = normalizeEmail(u.Email)
	if r.findByEmailLocked(u.Email) != nil {
		return false, nil
	}
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	r.s.users[u.ID] = cloneUser(u)
	return true, nil
}

func (r *userRepo) List(ctx context.Context, f repository.UserListFilter) ([]models.User, int64, error) {
	term := strings.ToLower(strings.TrimSpace(f.Search))

	r.s.mu.RLock()
	matched := make([]models.User, 0)
	for _, u := range r.s.users {
		if term != "" &&
			!strings.Contains(strings.ToLower(u.Name), term) &&
			!strings.Contains(strings.ToLower(u.Email), term) {
			continue
		}
		c := cloneUser(u)
		c.PasswordHash = ""
		matched = append(matched, *c)
	}
	r.s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b models.User) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID.Hex(), a.ID.Hex())
	})

	total := int64(len(matched))
	skip := query.Offset(f.Page, f.Limit)
	if skip >= total {
		return []models.User{}, total, nil
	}
	start := int(skip)
	end := min(start+f.Limit, len(matched))
	return matched[start:end], total, nil
}

func (r *userRepo) AddFavourite(ctx context.Context, userID, schemeID bson.ObjectID) (bool, error) {
	defer r.s.lockWrite(ctx)()
	u, ok := r.s.users[userID]
	if !ok {
		return false, apperrors.NotFound("user not found")
	}
	if u.HasFavourite(schemeID) {
		return false, nil
	}
	u.FavouriteSchemes = append(u.FavouriteSchemes, schemeID)
	return true, nil
}

func (r *userRepo) RemoveFavourite(ctx context.Context, userID, schemeID bson.ObjectID) (bool, error) {
	defer r.s.lockWrite(ctx)()
	u, ok := r.s.users[userID]
	if !ok {
		return false, apperrors.NotFound("user not found")
	}
	i := slices.Index(u.FavouriteSchemes, schemeID)
	if i < 0 {
		return false, nil
	}
	u.FavouriteSchemes = slices.Delete(u.FavouriteSchemes, i, i+1)
	return true, nil
}

func (r *userRepo) RemoveSchemeFromAll(ctx context.Context, schemeID bson.ObjectID) error {
	defer r.s.lockWrite(ctx)()
	for _, u := range r.s.users {
		u.FavouriteSchemes = slices.DeleteFunc(u.FavouriteSchemes, func(id bson.ObjectID) bool {
			return id == schemeID
		})
	}
	return nil
}

func (r *userRepo) Count(ctx context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.users)), nil
}

func (r *userRepo) CountActive(ctx context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, u := range r.s.users {
		if u.IsActive {
			n++
		}
	}
	return n, nil
}

func (r *userRepo) CountByRole(ctx context.Context) ([]models.RoleCount, error) {
	r.s.mu.RLock()
	counts := make(map[models.Role]int64)
	for _, u := range r.s.users {
		counts[u.Role]++
	}
	r.s.mu.RUnlock()

	out := make([]models.RoleCount, 0, len(counts))
	for role, n := range counts {
		out = append(out, models.RoleCount{Role: role, Count: n})
	}
	slices.SortFunc(out, func(a, b models.RoleCount) int {
		return strings.Compare(string(a.Role), string(b.Role))
	})
	return out, nil
}

func (r *userRepo) Recent(ctx context.Context, n int) ([]models.UserSummary, error) {
	r.s.mu.RLock()
	out := make([]models.UserSummary, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, models.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt})
	}
	r.s.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.UserSummary) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}
