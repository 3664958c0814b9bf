package services

import (
	"context"
	"log/slog"

	"github.com/myscheme/schemeapi/apperrors"
	"github.com/myscheme/schemeapi/models"
	"github.com/myscheme/schemeapi/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// FavouriteService keeps a user's favourite set and the scheme's
// favouriteCount moving together.
type FavouriteService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewFavouriteService(store repository.Store, logger *slog.Logger) *FavouriteService {
	return &FavouriteService{store: store, logger: logger}
}

func (s *FavouriteService) Add(ctx context.Context, userID, schemeID bson.ObjectID) error {
	scheme, err := s.store.Schemes().FindByID(ctx, schemeID)
	if err != nil {
		return err
	}
	if !scheme.IsActive {
		return apperrors.NotFound("scheme not found")
	}

	return s.store.WithTransaction(ctx, func(ctx context.Context) error {
		added, err := s.store.Users().AddFavourite(ctx, userID, schemeID)
		if err != nil {
			return err
		}
		if !added {
			return apperrors.Conflict("scheme already in favourites")
		}
		return s.store.Schemes().AdjustCounter(ctx, schemeID, repository.CounterFavourites, 1)
	})
}

func (s *FavouriteService) Remove(ctx context.Context, userID, schemeID bson.ObjectID) error {
	return s.store.WithTransaction(ctx, func(ctx context.Context) error {
		removed, err := s.store.Users().RemoveFavourite(ctx, userID, schemeID)
		if err != nil {
			return err
		}
		if !removed {
			return apperrors.Conflict("scheme not in favourites")
		}
		return s.store.Schemes().AdjustCounter(ctx, schemeID, repository.CounterFavourites, -1)
	})
}

// List returns the favourites in the order the user added them.
func (s *FavouriteService) List(ctx context.Context, userID bson.ObjectID) ([]models.SchemeView, error) {
	user, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	schemes, err := s.store.Schemes().FindByIDs(ctx, user.FavouriteSchemes)
	if err != nil {
		return nil, err
	}
	return joinCategories(ctx, s.store, schemes)
}
