package query

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/myscheme/schemeapi/models"
)

// Matches evaluates every predicate except the free-text search, which the
// backend resolves with its own index.
func (q *SchemeQuery) Matches(s *models.Scheme) bool {
	if !s.IsActive {
		return false
	}
	if q.CategoryID != nil && s.CategoryId != *q.CategoryID {
		return false
	}
	if q.State != "" && !containsOrAllSet(s.Eligibility.States, q.State) {
		return false
	}
	if q.Gender != "" && !containsOrAllSet(s.Eligibility.Gender, q.Gender) {
		return false
	}
	if q.IncomeGroup != "" && !containsOrAllSet(s.Eligibility.IncomeGroup, q.IncomeGroup) {
		return false
	}
	if q.MinAge != nil && s.Eligibility.Age.Min > *q.MinAge {
		return false
	}
	if q.MaxAge != nil && s.Eligibility.Age.Max < *q.MaxAge {
		return false
	}
	return true
}

func containsOrAllSet(set []string, v string) bool {
	return slices.Contains(set, v) || slices.Contains(set, models.EligibleAll)
}

// Ranked pairs a scheme with its text-search score (zero without a search).
type Ranked struct {
	Scheme *models.Scheme
	Score  float64
}

// SortRanked orders items the same way SortDoc orders them in MongoDB.
func (q *SchemeQuery) SortRanked(items []Ranked) {
	slices.SortStableFunc(items, func(a, b Ranked) int {
		if q.Sort.Relevance {
			if c := cmp.Compare(b.Score, a.Score); c != 0 {
				return c
			}
			return newestFirst(a.Scheme, b.Scheme)
		}

		c := compareField(q.Sort.Field, a.Scheme, b.Scheme)
		if q.Sort.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
		if q.Sort.Field != "createdAt" {
			if c := b.Scheme.CreatedAt.Compare(a.Scheme.CreatedAt); c != 0 {
				return c
			}
		}
		c = strings.Compare(a.Scheme.Id.Hex(), b.Scheme.Id.Hex())
		if q.Sort.Desc {
			c = -c
		}
		return c
	})
}

func newestFirst(a, b *models.Scheme) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(b.Id.Hex(), a.Id.Hex())
}

func compareField(field string, a, b *models.Scheme) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "views":
		return cmp.Compare(a.Views, b.Views)
	case "favouriteCount":
		return cmp.Compare(a.FavouriteCount, b.FavouriteCount)
	case "updatedAt":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "launchedDate":
		return compareOptionalTime(a.LaunchedDate, b.LaunchedDate)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// compareOptionalTime puts missing dates first, as MongoDB does for absent fields.
func compareOptionalTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

// Window returns the page slice of items.
func (q *SchemeQuery) Window(items []Ranked) []Ranked {
	skip := q.Skip()
	if skip < 0 || skip >= int64(len(items)) {
		return []Ranked{}
	}
	end := min(skip+int64(q.Limit), int64(len(items)))
	return items[skip:end]
}
