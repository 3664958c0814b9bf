package services

import (
	"context"
	"errors"
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

// AuthResult is returned by every operation that starts or renews a session.
type AuthResult struct {
	User           *models.User
	AccessToken    string
	RefreshToken   string
	RefreshExpires time.Time
}

type AuthService struct {
	store  repository.Store
	tokens *utils.TokenIssuer
	logger *slog.Logger
}

func NewAuthService(store repository.Store, tokens *utils.TokenIssuer, logger *slog.Logger) *AuthService {
	return &AuthService{store: store, tokens: tokens, logger: logger}
}

var errInvalidCredentials = apperrors.Unauthorized("invalid credentials")

func (s *AuthService) Register(ctx context.Context, in dto.RegisterDTO) (*AuthResult, error) {
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, apperrors.Internal("failed to hash password", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		Name:             strings.TrimSpace(in.Name),
		Email:            in.Email,
		PasswordHash:     hash,
		Role:             models.RoleUser,
		IsActive:         true,
		FavouriteSchemes: []bson.ObjectID{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.Users().Insert(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID.Hex())
	return s.startSession(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, in dto.LoginDTO) (*AuthResult, error) {
	user, err := s.store.Users().FindByEmail(ctx, in.Email)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := utils.CheckPassword(user.PasswordHash, in.Password); err != nil {
		return nil, errInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("account disabled")
	}
	return s.startSession(ctx, user)
}

func (s *AuthService) startSession(ctx context.Context, user *models.User) (*AuthResult, error) {
	access, err := s.tokens.AccessToken(user.ID.Hex(), user.Email, string(user.Role))
	if err != nil {
		return nil, apperrors.Internal("failed to generate access token", err)
	}
	refresh, expires, err := s.tokens.RefreshToken(user.ID.Hex())
	if err != nil {
		return nil, apperrors.Internal("failed to generate refresh token", err)
	}

	err = s.store.RefreshTokens().Insert(ctx, &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: utils.HashToken(refresh),
		ExpiresAt: expires,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, AccessToken: access, RefreshToken: refresh, RefreshExpires: expires}, nil
}

// Refresh revokes the presented refresh token and issues a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, apperrors.Unauthorized("missing refresh token")
	}
	if _, err := s.tokens.ParseRefresh(refreshToken); err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token")
	}

	now := time.Now().UTC()
	stored, err := s.store.RefreshTokens().FindActive(ctx, utils.HashToken(refreshToken), now)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.Unauthorized("invalid refresh token")
	}
	if err != nil {
		return nil, err
	}

	user, err := s.store.Users().FindByID(ctx, stored.UserID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.Unauthorized("invalid user")
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("account disabled")
	}

	var result *AuthResult
	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		if result, err = s.startSession(ctx, user); err != nil {
			return err
		}
		replacedBy := utils.HashToken(result.RefreshToken)
		return s.store.RefreshTokens().Revoke(ctx, stored.ID, &replacedBy, now)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Logout revokes the refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.store.RefreshTokens().RevokeByHash(ctx, utils.HashToken(refreshToken), time.Now().UTC())
}

func (s *AuthService) Me(ctx context.Context, userID bson.ObjectID) (*models.User, error) {
	return s.store.Users().FindByID(ctx, userID)
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID bson.ObjectID, in dto.UpdateProfileDTO) (*models.User, error) {
	user, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Age != nil {
		age := *in.Age
		user.Age = &age
	}
	if in.Gender != nil {
		user.Gender = *in.Gender
	}
	if in.State != nil {
		user.State = strings.TrimSpace(*in.State)
	}
	if in.IncomeGroup != nil {
		user.IncomeGroup = *in.IncomeGroup
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.store.Users().UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword also ends every other session of the user.
func (s *AuthService) ChangePassword(ctx context.Context, userID bson.ObjectID, in dto.ChangeMyPasswordDTO) error {
	user, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := utils.CheckPassword(user.PasswordHash, in.CurrentPassword); err != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hash, err := utils.HashPassword(in.NewPassword)
	if err != nil {
		return apperrors.Internal("failed to hash password", err)
	}

	now := time.Now().UTC()
	return s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.Users().UpdatePassword(ctx, userID, hash, now); err != nil {
			return err
		}
		return s.store.RefreshTokens().RevokeAllForUser(ctx, userID, now)
	})
}

// EnsureAdmin creates the bootstrap admin account unless the email is taken.
// It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, apperrors.Validation("missing ADMIN_EMAIL or ADMIN_PASSWORD")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return false, apperrors.Internal("hash admin password", err)
	}

	now := time.Now().UTC()
	created, err := s.store.Users().UpsertByEmail(ctx, &models.User{
		Name:             name,
		Email:            email,
		PasswordHash:     hash,
		Role:             models.RoleAdmin,
		IsActive:         true,
		FavouriteSchemes: []bson.ObjectID{},
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		return false, err
	}
	if created {
		s.logger.Info("admin user seeded", "email", email)
	} else {
		s.logger.Info("admin user already exists", "email", email)
	}
	return created, nil
}
