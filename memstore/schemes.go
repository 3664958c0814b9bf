package memstore

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/myscheme/schemeapi/apperrors"
	"github.com/myscheme/schemeapi/models"
	"github.com/myscheme/schemeapi/query"
	"github.com/myscheme/schemeapi/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type schemeRepo struct {
	s *Store
}

func (r *schemeRepo) List(ctx context.Context, q *query.SchemeQuery) ([]models.Scheme, int64, error) {
	var scores map[bson.ObjectID]float64
	if q.Search != "" {
		var err error
		if scores, err = r.s.index.search(ctx, q.Search); err != nil {
			return nil, 0, err
		}
	}

	r.s.mu.RLock()
	ranked := make([]query.Ranked, 0, len(r.s.schemes))
	for id, sc := range r.s.schemes {
		if !q.Matches(sc) {
			continue
		}
		var score float64
		if scores != nil {
			var ok bool
			if score, ok = scores[id]; !ok {
				continue
			}
		}
		ranked = append(ranked, query.Ranked{Scheme: cloneScheme(sc), Score: score})
	}
	r.s.mu.RUnlock()

	q.SortRanked(ranked)
	page := q.Window(ranked)

	out := make([]models.Scheme, 0, len(page))
	for _, item := range page {
		out = append(out, *item.Scheme)
	}
	return out, int64(len(ranked)), nil
}

func (r *schemeRepo) FindByID(ctx context.Context, id bson.ObjectID) (*models.Scheme, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sc, ok := r.s.schemes[id]
	if !ok {
		return nil, apperrors.NotFound("scheme not found")
	}
	return cloneScheme(sc), nil
}

func (r *schemeRepo) FindBySlug(ctx context.Context, slug string) (*models.Scheme, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, sc := range r.s.schemes {
		if sc.Slug == slug {
			return cloneScheme(sc), nil
		}
	}
	return nil, apperrors.NotFound("scheme not found")
}

func (r *schemeRepo) FindByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Scheme, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Scheme, 0, len(ids))
	for _, id := range ids {
		if sc, ok := r.s.schemes[id]; ok {
			out = append(out, *cloneScheme(sc))
		}
	}
	return out, nil
}

func (r *schemeRepo) Insert(ctx context.Context, sc *models.Scheme) error {
	defer r.s.lockWrite(ctx)()

	for _, existing := range r.s.schemes {
		if existing.Slug == sc.Slug {
			return apperrors.Conflict("slug already exists")
		}
	}
	if sc.Id.IsZero() {
		sc.Id = bson.NewObjectID()
	}
	stored := cloneScheme(sc)
	if err := r.s.index.put(stored); err != nil {
		return err
	}
	r.s.schemes[sc.Id] = stored
	return nil
}

func (r *schemeRepo) UpdateDetails(ctx context.Context, sc *models.Scheme) error {
	defer r.s.lockWrite(ctx)()

	cur, ok := r.s.schemes[sc.Id]
	if !ok {
		return apperrors.NotFound("scheme not found")
	}
	next := cloneScheme(sc)
	next.Slug = cur.Slug
	next.BannerImage = cur.BannerImage
	next.Views = cur.Views
	next.FavouriteCount = cur.FavouriteCount
	next.CreatedAt = cur.CreatedAt

	if err := r.s.index.put(next); err != nil {
		return err
	}
	r.s.schemes[sc.Id] = next
	return nil
}

func (r *schemeRepo) SetBannerImage(ctx context.Context, id bson.ObjectID, url string) error {
	defer r.s.lockWrite(ctx)()
	sc, ok := r.s.schemes[id]
	if !ok {
		return apperrors.NotFound("scheme not found")
	}
	sc.BannerImage = url
	sc.UpdatedAt = now()
	return nil
}

func (r *schemeRepo) Delete(ctx context.Context, id bson.ObjectID) error {
	defer r.s.lockWrite(ctx)()
	if _, ok := r.s.schemes[id]; !ok {
		return apperrors.NotFound("scheme not found")
	}
	if err := r.s.index.remove(id); err != nil {
		return err
	}
	delete(r.s.schemes, id)
	return nil
}

func (r *schemeRepo) AdjustCounter(ctx context.Context, id bson.ObjectID, counter repository.SchemeCounter, delta int64) error {
	defer r.s.lockWrite(ctx)()

	sc, ok := r.s.schemes[id]
	if !ok {
		if delta > 0 {
			return apperrors.NotFound("scheme not found")
		}
		return nil
	}

	field := &sc.Views
	if counter == repository.CounterFavourites {
		field = &sc.FavouriteCount
	}
	if *field+delta < 0 {
		return nil
	}
	*field += delta
	return nil
}

func (r *schemeRepo) Suggest(ctx context.Context, term string, limit int) ([]models.SchemeSuggestion, error) {
	needle := strings.ToLower(term)

	r.s.mu.RLock()
	matches := make([]*models.Scheme, 0)
	for _, sc := range r.s.schemes {
		if sc.IsActive && strings.Contains(strings.ToLower(sc.Name), needle) {
			matches = append(matches, sc)
		}
	}
	r.s.mu.RUnlock()

	// natural order in MongoDB is insertion order, which ObjectIDs follow
	slices.SortFunc(matches, func(a, b *models.Scheme) int {
		return strings.Compare(a.Id.Hex(), b.Id.Hex())
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]models.SchemeSuggestion, 0, len(matches))
	for _, sc := range matches {
		out = append(out, models.SchemeSuggestion{Id: sc.Id, Name: sc.Name, Slug: sc.Slug})
	}
	return out, nil
}

func (r *schemeRepo) CountActive(ctx context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, sc := range r.s.schemes {
		if sc.IsActive {
			n++
		}
	}
	return n, nil
}

func (r *schemeRepo) ReferencesCategory(ctx context.Context, categoryID bson.ObjectID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, sc := range r.s.schemes {
		if sc.CategoryId == categoryID {
			return true, nil
		}
	}
	return false, nil
}

func (r *schemeRepo) SumActiveViews(ctx context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var total int64
	for _, sc := range r.s.schemes {
		if sc.IsActive {
			total += sc.Views
		}
	}
	return total, nil
}

func (r *schemeRepo) TopByViews(ctx context.Context, n int) ([]models.TopScheme, error) {
	r.s.mu.RLock()
	top := make([]models.TopScheme, 0, len(r.s.schemes))
	for _, sc := range r.s.schemes {
		if sc.IsActive {
			top = append(top, models.TopScheme{Id: sc.Id, Name: sc.Name, Slug: sc.Slug, Views: sc.Views})
		}
	}
	r.s.mu.RUnlock()

	slices.SortFunc(top, func(a, b models.TopScheme) int {
		if c := cmp.Compare(b.Views, a.Views); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	if len(top) > n {
		top = top[:n]
	}
	return top, nil
}

func (r *schemeRepo) CountActiveByCategory(ctx context.Context) ([]models.CategoryCount, error) {
	r.s.mu.RLock()
	counts := make(map[bson.ObjectID]int64)
	for _, sc := range r.s.schemes {
		if sc.IsActive {
			counts[sc.CategoryId]++
		}
	}
	out := make([]models.CategoryCount, 0, len(counts))
	for id, n := range counts {
		// inner join: schemes pointing at a missing category are dropped
		if c, ok := r.s.categories[id]; ok {
			out = append(out, models.CategoryCount{Id: id, Name: c.Name, Count: n})
		}
	}
	r.s.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.CategoryCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}
