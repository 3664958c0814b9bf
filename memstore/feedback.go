package memstore

import (
	"context"
	"slices"
	"strings"

	"github.com/myscheme/schemeapi/apperrors"
	"github.com/myscheme/schemeapi/models"
	"github.com/myscheme/schemeapi/query"
	"github.com/myscheme/schemeapi/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type feedbackRepo struct {
	s *Store
}

func (r *feedbackRepo) Insert(ctx context.Context, f *models.Feedback) error {
	defer r.s.lockWrite(ctx)()
	if f.ID.IsZero() {
		f.ID = bson.NewObjectID()
	}
	r.s.feedback[f.ID] = cloneFeedback(f)
	return nil
}

func (r *feedbackRepo) List(ctx context.Context, f repository.FeedbackListFilter) ([]models.Feedback, int64, error) {
	r.s.mu.RLock()
	matched := make([]models.Feedback, 0)
	for _, fb := range r.s.feedback {
		if f.Status != "" && string(fb.Status) != f.Status {
			continue
		}
		matched = append(matched, *cloneFeedback(fb))
	}
	r.s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b models.Feedback) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID.Hex(), a.ID.Hex())
	})

	total := int64(len(matched))
	skip := query.Offset(f.Page, f.Limit)
	if skip >= total {
		return []models.Feedback{}, total, nil
	}
	start := int(skip)
	return matched[start:min(start+f.Limit, len(matched))], total, nil
}

func (r *feedbackRepo) UpdateStatus(ctx context.Context, id bson.ObjectID, status models.FeedbackStatus, response *string) (*models.Feedback, error) {
	defer r.s.lockWrite(ctx)()
	fb, ok := r.s.feedback[id]
	if !ok {
		return nil, apperrors.NotFound("feedback not found")
	}
	next := cloneFeedback(fb)
	next.Status = status
	if response != nil {
		next.AdminResponse = *response
	}
	next.UpdatedAt = now()
	r.s.feedback[id] = next
	return cloneFeedback(next), nil
}
