package database

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/myscheme/schemeapi/apperrors"
	"github.com/myscheme/schemeapi/models"
	"github.com/myscheme/schemeapi/query"
	"github.com/myscheme/schemeapi/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type userRepo struct {
	col *mongo.Collection
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *userRepo) Insert(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	u.Email = normalizeEmail(u.Email)
	if u.FavouriteSchemes == nil {
		// $push needs an array, not null
		u.FavouriteSchemes = []bson.ObjectID{}
	}
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		return mapWriteErr(err, "insert user", "email already registered")
	}
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, mapFindErr(err, "user")
	}
	return &u, nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"email": normalizeEmail(email)}).Decode(&u); err != nil {
		return nil, mapFindErr(err, "user")
	}
	return &u, nil
}

func (r *userRepo) UpdateProfile(ctx context.Context, u *models.User) error {
	set := bson.M{
		"name":        u.Name,
		"gender":      u.Gender,
		"state":       u.State,
		"incomeGroup": u.IncomeGroup,
		"updatedAt":   u.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if u.Age != nil {
		set["age"] = *u.Age
	} else {
		update["$unset"] = bson.M{"age": ""}
	}

	res, err := r.col.UpdateByID(ctx, u.ID, update)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("user not found")
	}
	return nil
}

func (r *userRepo) UpdatePassword(ctx context.Context, id bson.ObjectID, hash string, now time.Time) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"passwordHash": hash,
		"updatedAt":    now,
	}})
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("user not found")
	}
	return nil
}

func (r *userRepo) UpsertByEmail(ctx context.Context, u *models.User) (bool, error) {
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	u.Email = normalizeEmail(u.Email)
	if u.FavouriteSchemes == nil {
		u.FavouriteSchemes = []bson.ObjectID{}
	}

	res, err := r.col.UpdateOne(ctx,
		bson.M{"email": u.Email},
		bson.M{"$setOnInsert": u},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return false, mapWriteErr(err, "upsert user", "email already registered")
	}
	return res.UpsertedCount == 1, nil
}

func (r *userRepo) List(ctx context.Context, f repository.UserListFilter) ([]models.User, int64, error) {
	filter := bson.M{}
	if term := strings.TrimSpace(f.Search); term != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(term), "$options": "i"}
		filter["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"email": pattern},
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(query.Offset(f.Page, f.Limit)).
		SetLimit(int64(f.Limit)).
		SetProjection(bson.M{"passwordHash": 0})

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]models.User, 0, f.Limit)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("decode users: %w", err)
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return out, total, nil
}

func (r *userRepo) AddFavourite(ctx context.Context, userID, schemeID bson.ObjectID) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": userID, "favouriteSchemes": bson.M{"$ne": schemeID}},
		bson.M{"$push": bson.M{"favouriteSchemes": schemeID}},
	)
	if err != nil {
		return false, fmt.Errorf("add favourite: %w", err)
	}
	if res.ModifiedCount == 1 {
		return true, nil
	}
	return false, r.ensureExists(ctx, userID)
}

func (r *userRepo) RemoveFavourite(ctx context.Context, userID, schemeID bson.ObjectID) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": userID, "favouriteSchemes": schemeID},
		bson.M{"$pull": bson.M{"favouriteSchemes": schemeID}},
	)
	if err != nil {
		return false, fmt.Errorf("remove favourite: %w", err)
	}
	if res.ModifiedCount == 1 {
		return true, nil
	}
	return false, r.ensureExists(ctx, userID)
}

// ensureExists tells "no change" apart from "no such user".
func (r *userRepo) ensureExists(ctx context.Context, id bson.ObjectID) error {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("count user: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound("user not found")
	}
	return nil
}

func (r *userRepo) RemoveSchemeFromAll(ctx context.Context, schemeID bson.ObjectID) error {
	_, err := r.col.UpdateMany(ctx,
		bson.M{"favouriteSchemes": schemeID},
		bson.M{"$pull": bson.M{"favouriteSchemes": schemeID}},
	)
	if err != nil {
		return fmt.Errorf("remove scheme from favourites: %w", err)
	}
	return nil
}

func (r *userRepo) Count(ctx context.Context) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *userRepo) CountActive(ctx context.Context) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"isActive": true})
	if err != nil {
		return 0, fmt.Errorf("count active users: %w", err)
	}
	return n, nil
}

func (r *userRepo) CountByRole(ctx context.Context) ([]models.RoleCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$role", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("group users by role: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]models.RoleCount, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode role counts: %w", err)
	}
	return out, nil
}

func (r *userRepo) Recent(ctx context.Context, n int) ([]models.UserSummary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(n)).
		SetProjection(bson.M{"name": 1, "email": 1, "createdAt": 1})

	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find recent users: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]models.UserSummary, 0, n)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode recent users: %w", err)
	}
	return out, nil
}
