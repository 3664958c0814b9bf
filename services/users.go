package services

import (
	"context"
	"strings"

	"github.com/myscheme/schemeapi/models"
	"github.com/myscheme/schemeapi/repository"
)

type UserPage struct {
	Items []models.User
	Total int64
	Page  int
	Pages int
}

type UserService struct {
	store    repository.Store
	maxLimit int
}

func NewUserService(store repository.Store, maxLimit int) *UserService {
	if maxLimit <= 0 {
		maxLimit = 100
	}
	return &UserService{store: store, maxLimit: maxLimit}
}

// List pages through users, newest first. Out-of-range page and limit values
// are clamped.
func (s *UserService) List(ctx context.Context, search string, page, limit int) (*UserPage, error) {
	page, limit = clampPage(page, limit, s.maxLimit)

	users, total, err := s.store.Users().List(ctx, repository.UserListFilter{
		Search: strings.TrimSpace(search),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	return &UserPage{Items: users, Total: total, Page: page, Pages: pageCount(total, limit)}, nil
}

func clampPage(page, limit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

func pageCount(total int64, limit int) int {
	return int((total + int64(limit) - 1) / int64(limit))
}
