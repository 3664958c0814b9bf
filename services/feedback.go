package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/myscheme/schemeapi/apperrors"
	"github.com/myscheme/schemeapi/dto"
	"github.com/myscheme/schemeapi/models"
	"github.com/myscheme/schemeapi/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type FeedbackPage struct {
	Items []models.Feedback
	Total int64
	Page  int
	Pages int
}

type FeedbackService struct {
	store    repository.Store
	maxLimit int
	logger   *slog.Logger
}

func NewFeedbackService(store repository.Store, maxLimit int, logger *slog.Logger) *FeedbackService {
	if maxLimit <= 0 {
		maxLimit = 100
	}
	return &FeedbackService{store: store, maxLimit: maxLimit, logger: logger}
}

func (s *FeedbackService) Create(ctx context.Context, userID bson.ObjectID, in dto.CreateFeedbackDTO) (*models.Feedback, error) {
	now := time.Now().UTC()
	fb := &models.Feedback{
		UserID:    userID,
		Type:      models.FeedbackType(in.Type),
		Subject:   strings.TrimSpace(in.Subject),
		Message:   strings.TrimSpace(in.Message),
		Rating:    in.Rating,
		Status:    models.FeedbackStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if in.SchemeID != nil && *in.SchemeID != "" {
		id, err := bson.ObjectIDFromHex(*in.SchemeID)
		if err != nil {
			return nil, apperrors.Validation("invalid scheme id")
		}
		if _, err := s.store.Schemes().FindByID(ctx, id); err != nil {
			return nil, err
		}
		fb.SchemeID = &id
	}
	if fb.Type == models.FeedbackSchemeSpecific && fb.SchemeID == nil {
		return nil, apperrors.ValidationWithDetails("invalid feedback", map[string]string{
			"schemeId": "required for scheme-specific feedback",
		})
	}

	if err := s.store.Feedback().Insert(ctx, fb); err != nil {
		return nil, err
	}
	s.logger.Info("feedback received", "feedback_id", fb.ID.Hex(), "type", fb.Type)
	return fb, nil
}

func (s *FeedbackService) List(ctx context.Context, status string, page, limit int) (*FeedbackPage, error) {
	if status != "" && !models.IsValidFeedbackStatus(status) {
		return nil, apperrors.ValidationWithDetails("invalid feedback filters", map[string]string{
			"status": "must be one of pending, reviewed, resolved",
		})
	}
	page, limit = clampPage(page, limit, s.maxLimit)

	items, total, err := s.store.Feedback().List(ctx, repository.FeedbackListFilter{
		Status: status,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	return &FeedbackPage{Items: items, Total: total, Page: page, Pages: pageCount(total, limit)}, nil
}

func (s *FeedbackService) UpdateStatus(ctx context.Context, id bson.ObjectID, in dto.UpdateFeedbackStatusDTO) (*models.Feedback, error) {
	if !models.IsValidFeedbackStatus(in.Status) {
		return nil, apperrors.Validation("invalid feedback status")
	}
	return s.store.Feedback().UpdateStatus(ctx, id, models.FeedbackStatus(in.Status), in.AdminResponse)
}
