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
	"github.com/myscheme/schemeapi/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type CategoryService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewCategoryService(store repository.Store, logger *slog.Logger) *CategoryService {
	return &CategoryService{store: store, logger: logger}
}

func (s *CategoryService) List(ctx context.Context, includeInactive bool) ([]models.Category, error) {
	return s.store.Categories().List(ctx, includeInactive)
}

func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	c, err := s.store.Categories().FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, apperrors.NotFound("category not found")
	}
	return c, nil
}

// categorySlug derives the slug from the name alone; names are unique.
func categorySlug(name string) (string, error) {
	slug := utils.GenerateSlug(name)
	if slug == "" {
		return "", apperrors.ValidationWithDetails("invalid category", map[string]string{
			"name": "must contain at least one letter or digit",
		})
	}
	return slug, nil
}

func (s *CategoryService) Create(ctx context.Context, in dto.CreateCategoryDTO) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	slug, err := categorySlug(name)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c := &models.Category{
		Name:        name,
		Slug:        slug,
		Description: in.Description,
		Icon:        in.Icon,
		Color:       in.Color,
		IsActive:    in.IsActive == nil || *in.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if c.Icon == "" {
		c.Icon = models.DefaultCategoryIcon
	}
	if c.Color == "" {
		c.Color = models.DefaultCategoryColor
	}

	if err := s.store.Categories().Insert(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("category created", "category_id", c.Id.Hex(), "slug", c.Slug)
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, id bson.ObjectID, in dto.UpdateCategoryDTO) (*models.Category, error) {
	c, err := s.store.Categories().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name != c.Name {
			if c.Slug, err = categorySlug(name); err != nil {
				return nil, err
			}
			c.Name = name
		}
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Icon != nil {
		c.Icon = *in.Icon
	}
	if in.Color != nil {
		c.Color = *in.Color
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	c.UpdatedAt = time.Now().UTC()

	if err := s.store.Categories().UpdateDetails(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a category that no scheme references, inactive ones included.
func (s *CategoryService) Delete(ctx context.Context, id bson.ObjectID) error {
	if _, err := s.store.Categories().FindByID(ctx, id); err != nil {
		return err
	}
	inUse := apperrors.Conflict("cannot delete category with existing schemes")
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		referenced, err := s.store.Schemes().ReferencesCategory(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return inUse
		}
		deleted, err := s.store.Categories().DeleteUnused(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return inUse
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("category deleted", "category_id", id.Hex())
	return nil
}
