// Package query turns untrusted scheme listing parameters into a validated
// SchemeQuery, and renders that query either as a MongoDB predicate/sort or
// as an in-process predicate for the memory backend.
package query

import (
	"math"
	"strconv"
	"strings"

	"github.com/myscheme/schemeapi/apperrors"
	"github.com/myscheme/schemeapi/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100

	// SortRelevance orders by text-search score; only valid together with a search term.
	SortRelevance = "relevance"
	defaultSort   = "-createdAt"
)

// sortable maps public sort keys to stored field names.
var sortable = map[string]string{
	"createdAt":      "createdAt",
	"updatedAt":      "updatedAt",
	"name":           "name",
	"views":          "views",
	"favouriteCount": "favouriteCount",
	"launchedDate":   "launchedDate",
}

// Params are the raw query-string values of a scheme listing request.
type Params struct {
	Search      string
	Category    string
	State       string
	Gender      string
	IncomeGroup string
	MinAge      string
	MaxAge      string
	Page        string
	Limit       string
	Sort        string
}

// Limits bounds the page size. Zero values fall back to DefaultLimit / MaxLimit.
type Limits struct {
	Default int
	Max     int
}

type Sort struct {
	Field     string
	Desc      bool
	Relevance bool
}

type SchemeQuery struct {
	Search      string
	CategoryID  *bson.ObjectID
	State       string
	Gender      string
	IncomeGroup string
	MinAge      *int
	MaxAge      *int
	Page        int
	Limit       int
	Sort        Sort
}

// Parse validates p. Every problem found is reported in one validation error whose
// details map parameter name to message.
func Parse(p Params, lim Limits) (*SchemeQuery, error) {
	if lim.Default <= 0 {
		lim.Default = DefaultLimit
	}
	if lim.Max <= 0 {
		lim.Max = MaxLimit
	}

	problems := map[string]string{}
	q := &SchemeQuery{
		Search:      strings.TrimSpace(p.Search),
		State:       optionalFilter(p.State),
		Gender:      optionalFilter(p.Gender),
		IncomeGroup: optionalFilter(p.IncomeGroup),
		Page:        DefaultPage,
		Limit:       lim.Default,
	}

	if c := strings.TrimSpace(p.Category); c != "" {
		id, err := bson.ObjectIDFromHex(c)
		if err != nil {
			problems["category"] = "must be a valid category id"
		} else {
			q.CategoryID = &id
		}
	}

	q.MinAge = parseAge(p.MinAge, "minAge", problems)
	q.MaxAge = parseAge(p.MaxAge, "maxAge", problems)

	if v := strings.TrimSpace(p.Page); v != "" {
		n, err := strconv.Atoi(v)
		switch {
		case err != nil:
			problems["page"] = "must be a number"
		case n < 1:
			problems["page"] = "must be at least 1"
		default:
			q.Page = n
		}
	}

	if v := strings.TrimSpace(p.Limit); v != "" {
		n, err := strconv.Atoi(v)
		switch {
		case err != nil:
			problems["limit"] = "must be a number"
		case n < 1:
			problems["limit"] = "must be at least 1"
		case n > lim.Max:
			q.Limit = lim.Max
		default:
			q.Limit = n
		}
	}

	sort, msg := parseSort(strings.TrimSpace(p.Sort), q.Search != "")
	if msg != "" {
		problems["sort"] = msg
	}
	q.Sort = sort

	if len(problems) > 0 {
		return nil, apperrors.ValidationWithDetails("invalid scheme filters", problems)
	}
	return q, nil
}

// optionalFilter treats "" and "all" as absent.
func optionalFilter(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, models.EligibleAll) {
		return ""
	}
	return v
}

func parseAge(raw, name string, problems map[string]string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		problems[name] = "must be a whole number"
		return nil
	}
	if n < 0 {
		problems[name] = "must not be negative"
		return nil
	}
	return &n
}

func parseSort(raw string, hasSearch bool) (Sort, string) {
	if raw == "" {
		if hasSearch {
			return Sort{Relevance: true}, ""
		}
		raw = defaultSort
	}
	if raw == SortRelevance {
		if !hasSearch {
			return Sort{Field: "createdAt", Desc: true}, "relevance requires a search term"
		}
		return Sort{Relevance: true}, ""
	}

	desc := strings.HasPrefix(raw, "-")
	key := strings.TrimPrefix(raw, "-")
	field, ok := sortable[key]
	if !ok {
		return Sort{Field: "createdAt", Desc: true}, "unknown sort key " + strconv.Quote(key)
	}
	return Sort{Field: field, Desc: desc}, ""
}

// Skip is the number of matching schemes before the requested page.
func (q *SchemeQuery) Skip() int64 {
	return Offset(q.Page, q.Limit)
}

// Offset is (page-1)*limit, saturating at math.MaxInt64.
func Offset(page, limit int) int64 {
	if page <= 1 || limit <= 0 {
		return 0
	}
	if int64(page-1) > math.MaxInt64/int64(limit) {
		return math.MaxInt64
	}
	return int64(page-1) * int64(limit)
}

// PageCount is ceil(total / limit).
func (q *SchemeQuery) PageCount(total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(q.Limit)))
}
