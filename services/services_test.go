package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/myscheme/schemeapi/apperrors"
	"github.com/myscheme/schemeapi/dto"
	"github.com/myscheme/schemeapi/memstore"
	"github.com/myscheme/schemeapi/models"
	"github.com/myscheme/schemeapi/query"
	"github.com/myscheme/schemeapi/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type fixture struct {
	store      *memstore.Store
	schemes    *SchemeService
	categories *CategoryService
	favourites *FavouriteService
	stats      *StatsService
	auth       *AuthService
	users      *UserService
	feedback   *FeedbackService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := memstore.New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := utils.NewTokenIssuer("access-secret", "refresh-secret", time.Minute, time.Hour)

	return &fixture{
		store:      store,
		schemes:    NewSchemeService(store, SchemeServiceOptions{Limits: query.Limits{Default: 10, Max: 100}}, logger),
		categories: NewCategoryService(store, logger),
		favourites: NewFavouriteService(store, logger),
		stats:      NewStatsService(store),
		auth:       NewAuthService(store, tokens, logger),
		users:      NewUserService(store, 100),
		feedback:   NewFeedbackService(store, 100, logger),
	}
}

func (f *fixture) category(t *testing.T, name string) *models.Category {
	t.Helper()
	c, err := f.categories.Create(context.Background(), dto.CreateCategoryDTO{Name: name})
	require.NoError(t, err)
	return c
}

func (f *fixture) scheme(t *testing.T, name string, categoryID bson.ObjectID) *models.SchemeView {
	t.Helper()
	sc, err := f.schemes.Create(context.Background(), dto.CreateSchemeDTO{
		Name:                 name,
		Description:          name + " description",
		Benefits:             []string{"cash support"},
		ApplicationProcedure: "apply online",
		CategoryID:           categoryID.Hex(),
	})
	require.NoError(t, err)
	return sc
}

func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	res, err := f.auth.Register(context.Background(), dto.RegisterDTO{Name: "Test User", Email: email, Password: "secret123"})
	require.NoError(t, err)
	return res.User
}

func (f *fixture) schemeCount(t *testing.T, id bson.ObjectID) int {
	t.Helper()
	c, err := f.store.Categories().FindByID(context.Background(), id)
	require.NoError(t, err)
	return c.SchemeCount
}

func codeOf(err error) apperrors.Code {
	return apperrors.CodeOf(err)
}

func TestSchemeService_CreateAndDeleteKeepCategoryCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.category(t, "Education")

	a := f.scheme(t, "Scholarship A", cat.Id)
	f.scheme(t, "Scholarship B", cat.Id)
	assert.Equal(t, 2, f.schemeCount(t, cat.Id))

	assert.Equal(t, cat.Id, a.Category.Id)
	assert.Equal(t, models.DefaultEligibility(), a.Eligibility)
	assert.True(t, a.IsActive)

	require.NoError(t, f.schemes.Delete(ctx, a.Id))
	assert.Equal(t, 1, f.schemeCount(t, cat.Id))

	_, err := f.schemes.GetByID(ctx, a.Id)
	assert.Equal(t, apperrors.CodeNotFound, codeOf(err))
}

func TestSchemeService_CreateRejectsUnknownCategory(t *testing.T) {
	f := newFixture(t)
	_, err := f.schemes.Create(context.Background(), dto.CreateSchemeDTO{
		Name:       "Orphan",
		CategoryID: bson.NewObjectID().Hex(),
	})
	assert.Equal(t, apperrors.CodeNotFound, codeOf(err))
}

func TestSchemeService_CreateRejectsInvertedAgeRange(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Health")
	lo, hi := 60, 18
	_, err := f.schemes.Create(context.Background(), dto.CreateSchemeDTO{
		Name:        "Bad range",
		CategoryID:  cat.Id.Hex(),
		Eligibility: &dto.EligibilityDTO{Age: &dto.AgeRangeDTO{Min: &lo, Max: &hi}},
	})
	assert.Equal(t, apperrors.CodeValidation, codeOf(err))
	assert.Equal(t, 0, f.schemeCount(t, cat.Id))
}

func TestSchemeService_UpdateMovesCountBetweenCategories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := f.category(t, "Agriculture")
	to := f.category(t, "Housing")
	sc := f.scheme(t, "Farm loan", from.Id)

	target := to.Id.Hex()
	updated, err := f.schemes.Update(ctx, sc.Id, dto.UpdateSchemeDTO{CategoryID: &target})
	require.NoError(t, err)
	assert.Equal(t, to.Id, updated.CategoryId)
	assert.Equal(t, sc.Slug, updated.Slug)
	assert.Equal(t, 0, f.schemeCount(t, from.Id))
	assert.Equal(t, 1, f.schemeCount(t, to.Id))

	inactive := false
	_, err = f.schemes.Update(ctx, sc.Id, dto.UpdateSchemeDTO{IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, 0, f.schemeCount(t, to.Id))

	_, err = f.schemes.GetBySlug(ctx, sc.Slug)
	assert.Equal(t, apperrors.CodeNotFound, codeOf(err))
}

func TestSchemeService_GetBySlugCountsViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc := f.scheme(t, "Pension", f.category(t, "Elderly").Id)

	first, err := f.schemes.GetBySlug(ctx, sc.Slug)
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.Views)

	second, err := f.schemes.GetBySlug(ctx, sc.Slug)
	require.NoError(t, err)
	assert.EqualValues(t, 2, second.Views)
}

func TestSchemeService_ConcurrentViewsAreNotLost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc := f.scheme(t, "Popular", f.category(t, "General").Id)

	const callers = 8
	const perCaller = 25
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perCaller; j++ {
				assert.NoError(t, f.schemes.IncrementView(ctx, sc.Id))
			}
		}()
	}
	wg.Wait()

	got, err := f.schemes.GetByID(ctx, sc.Id)
	require.NoError(t, err)
	assert.EqualValues(t, callers*perCaller, got.Views)
}

func TestSchemeService_ViewsSurviveRolledBackFavourites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc := f.scheme(t, "Popular", f.category(t, "General").Id)
	fan := f.user(t, "fan@example.com")
	require.NoError(t, f.favourites.Add(ctx, fan.ID, sc.Id))

	const rounds = 30
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			err := f.favourites.Add(ctx, fan.ID, sc.Id)
			assert.Equal(t, apperrors.CodeConflict, codeOf(err))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			assert.NoError(t, f.schemes.IncrementView(ctx, sc.Id))
		}
	}()
	go func() {
		defer wg.Done()
		_, err := f.auth.Register(ctx, dto.RegisterDTO{Name: "Other", Email: "other@example.com", Password: "secret123"})
		assert.NoError(t, err)
	}()
	wg.Wait()

	got, err := f.schemes.GetByID(ctx, sc.Id)
	require.NoError(t, err)
	assert.EqualValues(t, rounds, got.Views)
	assert.EqualValues(t, 1, got.FavouriteCount)

	_, err = f.store.Users().FindByEmail(ctx, "other@example.com")
	assert.NoError(t, err)
}

func TestSchemeService_ListHugePageIsEmpty(t *testing.T) {
	f := newFixture(t)
	f.scheme(t, "Only", f.category(t, "General").Id)

	page, err := f.schemes.List(context.Background(), query.Params{Page: "1537228672809129302", Limit: "12"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, 1537228672809129302, page.Page)
	assert.Equal(t, 1, page.Pages)
}

func TestSchemeService_ListRejectsBadParams(t *testing.T) {
	f := newFixture(t)
	_, err := f.schemes.List(context.Background(), query.Params{Page: "0"})
	assert.Equal(t, apperrors.CodeValidation, codeOf(err))
}

func TestSchemeService_ListJoinsCategory(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Women")
	for _, name := range []string{"One", "Two", "Three"} {
		f.scheme(t, name, cat.Id)
	}

	page, err := f.schemes.List(context.Background(), query.Params{Limit: "2"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, 2, page.Pages)
	for _, item := range page.Items {
		require.NotNil(t, item.Category)
		assert.Equal(t, "women", item.Category.Slug)
	}
}

func TestSchemeService_Suggestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.scheme(t, "Solar pump subsidy", f.category(t, "Energy").Id)

	out, err := f.schemes.Suggestions(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = f.schemes.Suggestions(ctx, "pump")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Solar pump subsidy", out[0].Name)
}

func TestSchemeService_UploadBannerWithoutStorage(t *testing.T) {
	f := newFixture(t)
	sc := f.scheme(t, "Bannerless", f.category(t, "Misc").Id)
	_, err := f.schemes.UploadBanner(context.Background(), sc.Id, nil)
	assert.Equal(t, apperrors.CodeValidation, codeOf(err))
}

func TestCategoryService_DeleteGuardedBySchemes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.category(t, "Skills")
	sc := f.scheme(t, "Training", cat.Id)

	err := f.categories.Delete(ctx, cat.Id)
	assert.Equal(t, apperrors.CodeConflict, codeOf(err))

	require.NoError(t, f.schemes.Delete(ctx, sc.Id))
	require.NoError(t, f.categories.Delete(ctx, cat.Id))

	err = f.categories.Delete(ctx, cat.Id)
	assert.Equal(t, apperrors.CodeNotFound, codeOf(err))
}

func TestCategoryService_DeleteGuardedByInactiveSchemes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.category(t, "Housing")
	sc := f.scheme(t, "Shelter", cat.Id)

	inactive := false
	_, err := f.schemes.Update(ctx, sc.Id, dto.UpdateSchemeDTO{IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, 0, f.schemeCount(t, cat.Id))

	err = f.categories.Delete(ctx, cat.Id)
	assert.Equal(t, apperrors.CodeConflict, codeOf(err))
	_, err = f.store.Categories().FindByID(ctx, cat.Id)
	require.NoError(t, err)

	require.NoError(t, f.schemes.Delete(ctx, sc.Id))
	require.NoError(t, f.categories.Delete(ctx, cat.Id))
}

func TestUserService_ListHugePageIsEmpty(t *testing.T) {
	f := newFixture(t)
	f.user(t, "a@example.com")

	page, err := f.users.List(context.Background(), "", math.MaxInt, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.EqualValues(t, 1, page.Total)
}

func TestCategoryService_CreateDefaultsAndRename(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.category(t, "Rural Development")
	assert.Equal(t, "rural-development", cat.Slug)
	assert.Equal(t, models.DefaultCategoryIcon, cat.Icon)
	assert.Equal(t, models.DefaultCategoryColor, cat.Color)

	name := "Rural Welfare"
	updated, err := f.categories.Update(ctx, cat.Id, dto.UpdateCategoryDTO{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "rural-welfare", updated.Slug)

	_, err = f.categories.Create(ctx, dto.CreateCategoryDTO{Name: "Rural Welfare"})
	assert.Equal(t, apperrors.CodeConflict, codeOf(err))

	_, err = f.categories.Create(ctx, dto.CreateCategoryDTO{Name: "!!!"})
	assert.Equal(t, apperrors.CodeValidation, codeOf(err))
}

func TestCategoryService_InactiveHiddenBySlug(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := false
	cat, err := f.categories.Create(ctx, dto.CreateCategoryDTO{Name: "Hidden", IsActive: &off})
	require.NoError(t, err)

	_, err = f.categories.GetBySlug(ctx, cat.Slug)
	assert.Equal(t, apperrors.CodeNotFound, codeOf(err))

	all, err := f.categories.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFavouriteService_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "fav@example.com")
	sc := f.scheme(t, "Fav scheme", f.category(t, "Youth").Id)

	require.NoError(t, f.favourites.Add(ctx, user.ID, sc.Id))
	err := f.favourites.Add(ctx, user.ID, sc.Id)
	assert.Equal(t, apperrors.CodeConflict, codeOf(err))

	got, err := f.schemes.GetByID(ctx, sc.Id)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.FavouriteCount)

	list, err := f.favourites.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, sc.Id, list[0].Id)

	require.NoError(t, f.favourites.Remove(ctx, user.ID, sc.Id))
	err = f.favourites.Remove(ctx, user.ID, sc.Id)
	assert.Equal(t, apperrors.CodeConflict, codeOf(err))

	got, err = f.schemes.GetByID(ctx, sc.Id)
	require.NoError(t, err)
	assert.EqualValues(t, 0, got.FavouriteCount)
}

func TestFavouriteService_InactiveSchemeNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "inactive@example.com")
	sc := f.scheme(t, "Retired", f.category(t, "Old").Id)
	off := false
	_, err := f.schemes.Update(ctx, sc.Id, dto.UpdateSchemeDTO{IsActive: &off})
	require.NoError(t, err)

	err = f.favourites.Add(ctx, user.ID, sc.Id)
	assert.Equal(t, apperrors.CodeNotFound, codeOf(err))
}

func TestSchemeService_DeleteDropsFavourites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "drop@example.com")
	sc := f.scheme(t, "Short lived", f.category(t, "Temp").Id)
	require.NoError(t, f.favourites.Add(ctx, user.ID, sc.Id))

	require.NoError(t, f.schemes.Delete(ctx, sc.Id))

	me, err := f.auth.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, me.FavouriteSchemes)
}

func TestStatsService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.category(t, "Finance")
	a := f.scheme(t, "Loan", cat.Id)
	f.scheme(t, "Grant", cat.Id)
	require.NoError(t, f.schemes.IncrementView(ctx, a.Id))
	require.NoError(t, f.schemes.IncrementView(ctx, a.Id))

	f.user(t, "one@example.com")
	_, err := f.auth.EnsureAdmin(ctx, "Admin", "admin@example.com", "adminpass")
	require.NoError(t, err)

	ss, err := f.stats.SchemeStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, ss.TotalSchemes)
	assert.EqualValues(t, 2, ss.TotalViews)
	require.NotEmpty(t, ss.TopSchemes)
	assert.Equal(t, "Loan", ss.TopSchemes[0].Name)
	require.Len(t, ss.SchemesByCategory, 1)
	assert.EqualValues(t, 2, ss.SchemesByCategory[0].Count)

	us, err := f.stats.UserStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, us.TotalUsers)
	assert.EqualValues(t, 1, us.AdminUsers)
	assert.Len(t, us.RecentUsers, 2)
}

func TestAuthService_RegisterLoginRefreshLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.auth.Register(ctx, dto.RegisterDTO{Name: "Asha", Email: "Asha@Example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", reg.User.Email)
	assert.NotEmpty(t, reg.AccessToken)

	_, err = f.auth.Register(ctx, dto.RegisterDTO{Name: "Again", Email: "asha@example.com", Password: "secret123"})
	assert.Equal(t, apperrors.CodeConflict, codeOf(err))

	_, err = f.auth.Login(ctx, dto.LoginDTO{Email: "asha@example.com", Password: "wrong"})
	assert.Equal(t, apperrors.CodeUnauthorized, codeOf(err))
	_, err = f.auth.Login(ctx, dto.LoginDTO{Email: "nobody@example.com", Password: "secret123"})
	assert.Equal(t, apperrors.CodeUnauthorized, codeOf(err))

	login, err := f.auth.Login(ctx, dto.LoginDTO{Email: "asha@example.com", Password: "secret123"})
	require.NoError(t, err)

	rotated, err := f.auth.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	_, err = f.auth.Refresh(ctx, login.RefreshToken)
	assert.Equal(t, apperrors.CodeUnauthorized, codeOf(err), "rotated token must not be reusable")

	require.NoError(t, f.auth.Logout(ctx, rotated.RefreshToken))
	_, err = f.auth.Refresh(ctx, rotated.RefreshToken)
	assert.Equal(t, apperrors.CodeUnauthorized, codeOf(err))

	_, err = f.auth.Refresh(ctx, "not-a-jwt")
	assert.Equal(t, apperrors.CodeUnauthorized, codeOf(err))
}

func TestAuthService_ChangePasswordRevokesSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.auth.Register(ctx, dto.RegisterDTO{Name: "Ravi", Email: "ravi@example.com", Password: "secret123"})
	require.NoError(t, err)

	err = f.auth.ChangePassword(ctx, reg.User.ID, dto.ChangeMyPasswordDTO{CurrentPassword: "nope", NewPassword: "newsecret1"})
	assert.Equal(t, apperrors.CodeUnauthorized, codeOf(err))

	require.NoError(t, f.auth.ChangePassword(ctx, reg.User.ID, dto.ChangeMyPasswordDTO{CurrentPassword: "secret123", NewPassword: "newsecret1"}))

	_, err = f.auth.Refresh(ctx, reg.RefreshToken)
	assert.Equal(t, apperrors.CodeUnauthorized, codeOf(err))

	_, err = f.auth.Login(ctx, dto.LoginDTO{Email: "ravi@example.com", Password: "newsecret1"})
	assert.NoError(t, err)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "profile@example.com")

	age := 34
	state := "  Kerala "
	gender := "female"
	updated, err := f.auth.UpdateProfile(ctx, user.ID, dto.UpdateProfileDTO{Age: &age, State: &state, Gender: &gender})
	require.NoError(t, err)
	require.NotNil(t, updated.Age)
	assert.Equal(t, 34, *updated.Age)
	assert.Equal(t, "Kerala", updated.State)

	me, err := f.auth.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "female", me.Gender)
}

func TestAuthService_EnsureAdminIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.auth.EnsureAdmin(ctx, "Admin", "Admin@Example.com", "adminpass")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.auth.EnsureAdmin(ctx, "Admin", "admin@example.com", "other")
	require.NoError(t, err)
	assert.False(t, created)

	login, err := f.auth.Login(ctx, dto.LoginDTO{Email: "admin@example.com", Password: "adminpass"})
	require.NoError(t, err)
	assert.True(t, login.User.IsAdmin())

	_, err = f.auth.EnsureAdmin(ctx, "Admin", "", "x")
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestUserService_ListClampsPaging(t *testing.T) {
	f := newFixture(t)
	f.user(t, "a@example.com")
	f.user(t, "b@example.com")

	page, err := f.users.List(context.Background(), "", 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.EqualValues(t, 2, page.Total)
	assert.Equal(t, 1, page.Pages)
	for _, u := range page.Items {
		assert.Empty(t, u.PasswordHash)
	}

	page, err = f.users.List(context.Background(), "b@", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
}

func TestFeedbackService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "fb@example.com")
	sc := f.scheme(t, "Feedback target", f.category(t, "Any").Id)

	_, err := f.feedback.Create(ctx, user.ID, dto.CreateFeedbackDTO{Type: "scheme-specific", Subject: "s", Message: "m"})
	assert.Equal(t, apperrors.CodeValidation, codeOf(err))

	missing := bson.NewObjectID().Hex()
	_, err = f.feedback.Create(ctx, user.ID, dto.CreateFeedbackDTO{Type: "general", SchemeID: &missing, Subject: "s", Message: "m"})
	assert.Equal(t, apperrors.CodeNotFound, codeOf(err))

	id := sc.Id.Hex()
	fb, err := f.feedback.Create(ctx, user.ID, dto.CreateFeedbackDTO{Type: "scheme-specific", SchemeID: &id, Subject: " Broken link ", Message: "m"})
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackStatusPending, fb.Status)
	assert.Equal(t, "Broken link", fb.Subject)

	_, err = f.feedback.List(ctx, "bogus", 1, 10)
	assert.Equal(t, apperrors.CodeValidation, codeOf(err))

	response := "fixed"
	updated, err := f.feedback.UpdateStatus(ctx, fb.ID, dto.UpdateFeedbackStatusDTO{Status: "resolved", AdminResponse: &response})
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackStatusResolved, updated.Status)
	assert.Equal(t, "fixed", updated.AdminResponse)

	page, err := f.feedback.List(ctx, "resolved", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	_, err = f.feedback.UpdateStatus(ctx, bson.NewObjectID(), dto.UpdateFeedbackStatusDTO{Status: "reviewed"})
	assert.Equal(t, apperrors.CodeNotFound, codeOf(err))
}
