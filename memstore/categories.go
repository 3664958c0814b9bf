package memstore

import (
	"context"
	"slices"
	"strings"

	"github.com/myscheme/schemeapi/apperrors"
	"github.com/myscheme/schemeapi/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type categoryRepo struct {
	s *Store
}

func (r *categoryRepo) List(ctx context.Context, includeInactive bool) ([]models.Category, error) {
	r.s.mu.RLock()
	out := make([]models.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		if includeInactive || c.IsActive {
			out = append(out, *c)
		}
	}
	r.s.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.Category) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (r *categoryRepo) FindByID(ctx context.Context, id bson.ObjectID) (*models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, apperrors.NotFound("category not found")
	}
	return cloneCategory(c), nil
}

func (r *categoryRepo) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.categories {
		if c.Slug == slug {
			return cloneCategory(c), nil
		}
	}
	return nil, apperrors.NotFound("category not found")
}

func (r *categoryRepo) FindByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Category, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.s.categories[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

// uniqueViolation mirrors the unique indexes on name and slug.
func (r *categoryRepo) uniqueViolation(c *models.Category) bool {
	for id, existing := range r.s.categories {
		if id == c.Id {
			continue
		}
		if existing.Name == c.Name || existing.Slug == c.Slug {
			return true
		}
	}
	return false
}

func (r *categoryRepo) Insert(ctx context.Context, c *models.Category) error {
	defer r.s.lockWrite(ctx)()
	if c.Id.IsZero() {
		c.Id = bson.NewObjectID()
	}
	if r.uniqueViolation(c) {
		return apperrors.Conflict("category with this name already exists")
	}
	r.s.categories[c.Id] = cloneCategory(c)
	return nil
}

func (r *categoryRepo) UpdateDetails(ctx context.Context, c *models.Category) error {
	defer r.s.lockWrite(ctx)()
	cur, ok := r.s.categories[c.Id]
	if !ok {
		return apperrors.NotFound("category not found")
	}
	if r.uniqueViolation(c) {
		return apperrors.Conflict("category with this name already exists")
	}
	cur.Name = c.Name
	cur.Slug = c.Slug
	cur.Description = c.Description
	cur.Icon = c.Icon
	cur.Color = c.Color
	cur.IsActive = c.IsActive
	cur.UpdatedAt = c.UpdatedAt
	return nil
}

func (r *categoryRepo) AdjustSchemeCount(ctx context.Context, id bson.ObjectID, delta int64) error {
	defer r.s.lockWrite(ctx)()
	c, ok := r.s.categories[id]
	if !ok {
		if delta > 0 {
			return apperrors.NotFound("category not found")
		}
		return nil
	}
	if int64(c.SchemeCount)+delta < 0 {
		return nil
	}
	c.SchemeCount += int(delta)
	return nil
}

func (r *categoryRepo) DeleteUnused(ctx context.Context, id bson.ObjectID) (bool, error) {
	defer r.s.lockWrite(ctx)()
	c, ok := r.s.categories[id]
	if !ok || c.SchemeCount != 0 {
		return false, nil
	}
	delete(r.s.categories, id)
	return true, nil
}
