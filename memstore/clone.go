package memstore

import (
	"slices"
	"time"

	"github.com/myscheme/schemeapi/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Stored values never share memory with callers.

func cloneScheme(s *models.Scheme) *models.Scheme {
	c := *s
	c.Benefits = slices.Clone(s.Benefits)
	c.DocumentsRequired = slices.Clone(s.DocumentsRequired)
	c.Tags = slices.Clone(s.Tags)
	c.Eligibility.Gender = slices.Clone(s.Eligibility.Gender)
	c.Eligibility.IncomeGroup = slices.Clone(s.Eligibility.IncomeGroup)
	c.Eligibility.States = slices.Clone(s.Eligibility.States)
	if s.LaunchedDate != nil {
		d := *s.LaunchedDate
		c.LaunchedDate = &d
	}
	return &c
}

func cloneCategory(c *models.Category) *models.Category {
	out := *c
	return &out
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.FavouriteSchemes = slices.Clone(u.FavouriteSchemes)
	if c.FavouriteSchemes == nil {
		c.FavouriteSchemes = []bson.ObjectID{}
	}
	if u.Age != nil {
		age := *u.Age
		c.Age = &age
	}
	return &c
}

func cloneToken(t *models.RefreshToken) *models.RefreshToken {
	c := *t
	if t.RevokedAt != nil {
		at := *t.RevokedAt
		c.RevokedAt = &at
	}
	if t.ReplacedBy != nil {
		rb := *t.ReplacedBy
		c.ReplacedBy = &rb
	}
	return &c
}

func cloneFeedback(f *models.Feedback) *models.Feedback {
	c := *f
	if f.SchemeID != nil {
		id := *f.SchemeID
		c.SchemeID = &id
	}
	if f.Rating != nil {
		r := *f.Rating
		c.Rating = &r
	}
	return &c
}

func now() time.Time {
	return time.Now().UTC()
}
