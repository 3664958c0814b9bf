package services

import (
	"context"
	"fmt"

	"github.com/myscheme/schemeapi/models"
	"github.com/myscheme/schemeapi/repository"
)

const statsTopN = 5

type StatsService struct {
	store repository.Store
}

func NewStatsService(store repository.Store) *StatsService {
	return &StatsService{store: store}
}

func (s *StatsService) SchemeStats(ctx context.Context) (*models.SchemeStats, error) {
	schemes := s.store.Schemes()

	total, err := schemes.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("count schemes: %w", err)
	}
	views, err := schemes.SumActiveViews(ctx)
	if err != nil {
		return nil, fmt.Errorf("sum views: %w", err)
	}
	top, err := schemes.TopByViews(ctx, statsTopN)
	if err != nil {
		return nil, fmt.Errorf("top schemes: %w", err)
	}
	byCategory, err := schemes.CountActiveByCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("schemes by category: %w", err)
	}

	return &models.SchemeStats{
		TotalSchemes:      total,
		TotalViews:        views,
		TopSchemes:        top,
		SchemesByCategory: byCategory,
	}, nil
}

func (s *StatsService) UserStats(ctx context.Context) (*models.UserStats, error) {
	users := s.store.Users()

	total, err := users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	active, err := users.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("count active users: %w", err)
	}
	byRole, err := users.CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("users by role: %w", err)
	}
	recent, err := users.Recent(ctx, statsTopN)
	if err != nil {
		return nil, fmt.Errorf("recent users: %w", err)
	}

	var admins int64
	for _, rc := range byRole {
		if rc.Role == models.RoleAdmin {
			admins = rc.Count
		}
	}

	return &models.UserStats{
		TotalUsers:  total,
		ActiveUsers: active,
		AdminUsers:  admins,
		UsersByRole: byRole,
		RecentUsers: recent,
	}, nil
}
