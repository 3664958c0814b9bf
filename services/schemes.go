package services

import (
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/myscheme/schemeapi/apperrors"
	"github.com/myscheme/schemeapi/dto"
	"github.com/myscheme/schemeapi/models"
	"github.com/myscheme/schemeapi/query"
	"github.com/myscheme/schemeapi/repository"
	"github.com/myscheme/schemeapi/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	suggestionLimit     = 5
	suggestionMinLength = 2
	bannerPrefix        = "schemes/banners"
)

// SchemePage is one page of a scheme listing.
type SchemePage struct {
	Items []models.SchemeView
	Count int
	Total int64
	Page  int
	Pages int
}

// SchemeService owns the scheme lifecycle and keeps the category counters in step.
type SchemeService struct {
	store     repository.Store
	limits    query.Limits
	blobs     utils.BlobStore
	validator *utils.FileValidator
	logger    *slog.Logger
	now       func() time.Time
}

type SchemeServiceOptions struct {
	Limits query.Limits
	// Blobs may be nil; banner uploads are then rejected.
	Blobs     utils.BlobStore
	Validator *utils.FileValidator
}

func NewSchemeService(store repository.Store, opts SchemeServiceOptions, logger *slog.Logger) *SchemeService {
	if opts.Validator == nil {
		opts.Validator = utils.NewImageValidator(0)
	}
	return &SchemeService{
		store:     store,
		limits:    opts.Limits,
		blobs:     opts.Blobs,
		validator: opts.Validator,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *SchemeService) List(ctx context.Context, params query.Params) (*SchemePage, error) {
	q, err := query.Parse(params, s.limits)
	if err != nil {
		return nil, err
	}

	schemes, total, err := s.store.Schemes().List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list schemes: %w", err)
	}

	items, err := joinCategories(ctx, s.store, schemes)
	if err != nil {
		return nil, err
	}

	return &SchemePage{
		Items: items,
		Count: len(items),
		Total: total,
		Page:  q.Page,
		Pages: q.PageCount(total),
	}, nil
}

// GetBySlug returns an active scheme and records the view. A failed view
// increment is logged and does not fail the read.
func (s *SchemeService) GetBySlug(ctx context.Context, slug string) (*models.SchemeView, error) {
	scheme, err := s.store.Schemes().FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !scheme.IsActive {
		return nil, apperrors.NotFound("scheme not found")
	}

	if err := s.IncrementView(ctx, scheme.Id); err != nil {
		s.logger.Warn("view increment failed", "scheme_id", scheme.Id.Hex(), "error", err)
	} else {
		scheme.Views++
	}

	views, err := joinCategories(ctx, s.store, []models.Scheme{*scheme})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *SchemeService) IncrementView(ctx context.Context, id bson.ObjectID) error {
	return s.store.Schemes().AdjustCounter(ctx, id, repository.CounterViews, 1)
}

// GetByID is the admin lookup; inactive schemes are returned too.
func (s *SchemeService) GetByID(ctx context.Context, id bson.ObjectID) (*models.SchemeView, error) {
	scheme, err := s.store.Schemes().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := joinCategories(ctx, s.store, []models.Scheme{*scheme})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *SchemeService) Create(ctx context.Context, in dto.CreateSchemeDTO) (*models.SchemeView, error) {
	categoryID, err := bson.ObjectIDFromHex(in.CategoryID)
	if err != nil {
		return nil, apperrors.Validation("invalid category id")
	}
	if _, err := s.store.Categories().FindByID(ctx, categoryID); err != nil {
		return nil, err
	}

	eligibility, err := mergeEligibility(models.DefaultEligibility(), in.Eligibility)
	if err != nil {
		return nil, err
	}

	now := s.now()
	scheme := &models.Scheme{
		Name:                 strings.TrimSpace(in.Name),
		Slug:                 utils.SchemeSlug(in.Name, now),
		Description:          in.Description,
		Benefits:             in.Benefits,
		Eligibility:          eligibility,
		DocumentsRequired:    nonNil(in.DocumentsRequired),
		ApplicationProcedure: in.ApplicationProcedure,
		OfficialWebsite:      in.OfficialWebsite,
		CategoryId:           categoryID,
		Tags:                 normalizeTags(in.Tags),
		Ministry:             in.Ministry,
		LaunchedDate:         in.LaunchedDate,
		IsActive:             in.IsActive == nil || *in.IsActive,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.Schemes().Insert(ctx, scheme); err != nil {
			return err
		}
		if scheme.IsActive {
			return s.store.Categories().AdjustSchemeCount(ctx, categoryID, 1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("scheme created", "scheme_id", scheme.Id.Hex(), "slug", scheme.Slug)
	return s.GetByID(ctx, scheme.Id)
}

func (s *SchemeService) Update(ctx context.Context, id bson.ObjectID, in dto.UpdateSchemeDTO) (*models.SchemeView, error) {
	current, err := s.store.Schemes().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	if in.Name != nil {
		next.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		next.Description = *in.Description
	}
	if in.Benefits != nil {
		next.Benefits = *in.Benefits
	}
	if in.Eligibility != nil {
		if next.Eligibility, err = mergeEligibility(current.Eligibility, in.Eligibility); err != nil {
			return nil, err
		}
	}
	if in.DocumentsRequired != nil {
		next.DocumentsRequired = nonNil(*in.DocumentsRequired)
	}
	if in.ApplicationProcedure != nil {
		next.ApplicationProcedure = *in.ApplicationProcedure
	}
	if in.OfficialWebsite != nil {
		next.OfficialWebsite = *in.OfficialWebsite
	}
	if in.Tags != nil {
		next.Tags = normalizeTags(*in.Tags)
	}
	if in.Ministry != nil {
		next.Ministry = *in.Ministry
	}
	if in.LaunchedDate != nil {
		next.LaunchedDate = in.LaunchedDate
	}
	if in.IsActive != nil {
		next.IsActive = *in.IsActive
	}
	if in.CategoryID != nil {
		categoryID, err := bson.ObjectIDFromHex(*in.CategoryID)
		if err != nil {
			return nil, apperrors.Validation("invalid category id")
		}
		if categoryID != current.CategoryId {
			if _, err := s.store.Categories().FindByID(ctx, categoryID); err != nil {
				return nil, err
			}
		}
		next.CategoryId = categoryID
	}
	next.UpdatedAt = s.now()

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.Schemes().UpdateDetails(ctx, &next); err != nil {
			return err
		}
		return s.moveCount(ctx, current, &next)
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// moveCount applies the schemeCount change implied by a category or activity change.
func (s *SchemeService) moveCount(ctx context.Context, before, after *models.Scheme) error {
	if before.CategoryId == after.CategoryId && before.IsActive == after.IsActive {
		return nil
	}
	categories := s.store.Categories()
	if before.IsActive {
		if err := categories.AdjustSchemeCount(ctx, before.CategoryId, -1); err != nil {
			return err
		}
	}
	if after.IsActive {
		if err := categories.AdjustSchemeCount(ctx, after.CategoryId, 1); err != nil {
			return err
		}
	}
	return nil
}

func (s *SchemeService) Delete(ctx context.Context, id bson.ObjectID) error {
	scheme, err := s.store.Schemes().FindByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.Schemes().Delete(ctx, id); err != nil {
			return err
		}
		if scheme.IsActive {
			if err := s.store.Categories().AdjustSchemeCount(ctx, scheme.CategoryId, -1); err != nil {
				return err
			}
		}
		return s.store.Users().RemoveSchemeFromAll(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("scheme deleted", "scheme_id", id.Hex())
	s.removeBlob(ctx, scheme.BannerImage)
	return nil
}

// Suggestions returns up to five active schemes whose name contains term.
func (s *SchemeService) Suggestions(ctx context.Context, term string) ([]models.SchemeSuggestion, error) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < suggestionMinLength {
		return []models.SchemeSuggestion{}, nil
	}
	out, err := s.store.Schemes().Suggest(ctx, term, suggestionLimit)
	if err != nil {
		return nil, fmt.Errorf("suggest schemes: %w", err)
	}
	return out, nil
}

// UploadBanner stores the image and points the scheme at it. The previous
// banner is removed on a best-effort basis.
func (s *SchemeService) UploadBanner(ctx context.Context, id bson.ObjectID, fh *multipart.FileHeader) (*models.SchemeView, error) {
	if s.blobs == nil {
		return nil, apperrors.Validation("image uploads are not configured")
	}
	scheme, err := s.store.Schemes().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	contentType, err := s.validator.ValidateFile(fh)
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	obj, err := s.blobs.Upload(ctx, bannerPrefix+"/"+scheme.Slug, fh, contentType)
	if err != nil {
		return nil, apperrors.Internal("failed to upload image", err)
	}

	if err := s.store.Schemes().SetBannerImage(ctx, id, obj.PublicURL); err != nil {
		s.removeBlob(ctx, obj.PublicURL)
		return nil, err
	}
	s.removeBlob(ctx, scheme.BannerImage)

	return s.GetByID(ctx, id)
}

func (s *SchemeService) removeBlob(ctx context.Context, publicURL string) {
	if s.blobs == nil || publicURL == "" {
		return
	}
	name, err := s.blobs.ObjectName(publicURL)
	if err != nil {
		s.logger.Warn("banner url not owned by blob store", "url", publicURL, "error", err)
		return
	}
	if err := s.blobs.Delete(ctx, name); err != nil {
		s.logger.Warn("banner cleanup failed", "object", name, "error", err)
	}
}

// joinCategories attaches each scheme's category summary. Schemes whose
// category no longer exists get a nil category.
func joinCategories(ctx context.Context, store repository.Store, schemes []models.Scheme) ([]models.SchemeView, error) {
	ids := make([]bson.ObjectID, 0, len(schemes))
	seen := make(map[bson.ObjectID]bool, len(schemes))
	for _, sc := range schemes {
		if !seen[sc.CategoryId] {
			seen[sc.CategoryId] = true
			ids = append(ids, sc.CategoryId)
		}
	}

	categories, err := store.Categories().FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	byID := make(map[bson.ObjectID]*models.CategorySummary, len(categories))
	for i := range categories {
		byID[categories[i].Id] = categories[i].Summary()
	}

	out := make([]models.SchemeView, 0, len(schemes))
	for _, sc := range schemes {
		out = append(out, models.SchemeView{Scheme: sc, Category: byID[sc.CategoryId]})
	}
	return out, nil
}

func mergeEligibility(base models.Eligibility, in *dto.EligibilityDTO) (models.Eligibility, error) {
	if in == nil {
		return base, nil
	}
	out := base
	if in.Age != nil {
		if in.Age.Min != nil {
			out.Age.Min = *in.Age.Min
		}
		if in.Age.Max != nil {
			out.Age.Max = *in.Age.Max
		}
	}
	if in.Gender != nil {
		out.Gender = orAll(in.Gender)
	}
	if in.IncomeGroup != nil {
		out.IncomeGroup = orAll(in.IncomeGroup)
	}
	if in.States != nil {
		out.States = orAll(in.States)
	}
	if in.Other != "" {
		out.Other = in.Other
	}

	if out.Age.Min > out.Age.Max {
		return out, apperrors.ValidationWithDetails("invalid eligibility", map[string]string{
			"eligibility.age": "min must not exceed max",
		})
	}
	return out, nil
}

// orAll maps an empty set to the "no restriction" sentinel.
func orAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return []string{models.EligibleAll}
	}
	return out
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
