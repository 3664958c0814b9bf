package database

import (
	"context"
	"fmt"

	"github.com/myscheme/schemeapi/apperrors"
	"github.com/myscheme/schemeapi/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type categoryRepo struct {
	col *mongo.Collection
}

func (r *categoryRepo) List(ctx context.Context, includeInactive bool) ([]models.Category, error) {
	filter := bson.M{"isActive": true}
	if includeInactive {
		filter = bson.M{}
	}
	cursor, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]models.Category, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return out, nil
}

func (r *categoryRepo) FindByID(ctx context.Context, id bson.ObjectID) (*models.Category, error) {
	var c models.Category
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, mapFindErr(err, "category")
	}
	return &c, nil
}

func (r *categoryRepo) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var c models.Category
	if err := r.col.FindOne(ctx, bson.M{"slug": slug}).Decode(&c); err != nil {
		return nil, mapFindErr(err, "category")
	}
	return &c, nil
}

func (r *categoryRepo) FindByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Category, error) {
	if len(ids) == 0 {
		return []models.Category{}, nil
	}
	cursor, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find categories by id: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]models.Category, 0, len(ids))
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return out, nil
}

func (r *categoryRepo) Insert(ctx context.Context, c *models.Category) error {
	if c.Id.IsZero() {
		c.Id = bson.NewObjectID()
	}
	if _, err := r.col.InsertOne(ctx, c); err != nil {
		return mapWriteErr(err, "insert category", "category with this name already exists")
	}
	return nil
}

func (r *categoryRepo) UpdateDetails(ctx context.Context, c *models.Category) error {
	res, err := r.col.UpdateByID(ctx, c.Id, bson.M{"$set": bson.M{
		"name":        c.Name,
		"slug":        c.Slug,
		"description": c.Description,
		"icon":        c.Icon,
		"color":       c.Color,
		"isActive":    c.IsActive,
		"updatedAt":   c.UpdatedAt,
	}})
	if err != nil {
		return mapWriteErr(err, "update category", "category with this name already exists")
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("category not found")
	}
	return nil
}

func (r *categoryRepo) AdjustSchemeCount(ctx context.Context, id bson.ObjectID, delta int64) error {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["schemeCount"] = bson.M{"$gte": -delta}
	}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"schemeCount": delta}})
	if err != nil {
		return fmt.Errorf("adjust scheme count: %w", err)
	}
	if res.MatchedCount == 0 && delta > 0 {
		return apperrors.NotFound("category not found")
	}
	return nil
}

func (r *categoryRepo) DeleteUnused(ctx context.Context, id bson.ObjectID) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "schemeCount": 0})
	if err != nil {
		return false, fmt.Errorf("delete category: %w", err)
	}
	return res.DeletedCount == 1, nil
}
