package database

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/myscheme/schemeapi/apperrors"
	"github.com/myscheme/schemeapi/models"
	"github.com/myscheme/schemeapi/query"
	"github.com/myscheme/schemeapi/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type schemeRepo struct {
	col *mongo.Collection
}

func (r *schemeRepo) List(ctx context.Context, q *query.SchemeQuery) ([]models.Scheme, int64, error) {
	filter := q.Filter()
	findOpts := options.Find().
		SetSkip(q.Skip()).
		SetLimit(int64(q.Limit)).
		SetSort(q.SortDoc())

	cursor, err := r.col.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, 0, fmt.Errorf("find schemes: %w", err)
	}
	defer cursor.Close(ctx)

	items := make([]models.Scheme, 0, q.Limit)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("decode schemes: %w", err)
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count schemes: %w", err)
	}
	return items, total, nil
}

func (r *schemeRepo) FindByID(ctx context.Context, id bson.ObjectID) (*models.Scheme, error) {
	var s models.Scheme
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		return nil, mapFindErr(err, "scheme")
	}
	return &s, nil
}

func (r *schemeRepo) FindBySlug(ctx context.Context, slug string) (*models.Scheme, error) {
	var s models.Scheme
	if err := r.col.FindOne(ctx, bson.M{"slug": slug}).Decode(&s); err != nil {
		return nil, mapFindErr(err, "scheme")
	}
	return &s, nil
}

func (r *schemeRepo) FindByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Scheme, error) {
	if len(ids) == 0 {
		return []models.Scheme{}, nil
	}
	cursor, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find schemes by id: %w", err)
	}
	defer cursor.Close(ctx)

	var found []models.Scheme
	if err := cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("decode schemes: %w", err)
	}

	byID := make(map[bson.ObjectID]models.Scheme, len(found))
	for _, s := range found {
		byID[s.Id] = s
	}
	out := make([]models.Scheme, 0, len(found))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *schemeRepo) Insert(ctx context.Context, s *models.Scheme) error {
	if s.Id.IsZero() {
		s.Id = bson.NewObjectID()
	}
	if _, err := r.col.InsertOne(ctx, s); err != nil {
		return mapWriteErr(err, "insert scheme", "slug already exists")
	}
	return nil
}

func (r *schemeRepo) UpdateDetails(ctx context.Context, s *models.Scheme) error {
	set := bson.M{
		"name":                 s.Name,
		"description":          s.Description,
		"benefits":             s.Benefits,
		"eligibility":          s.Eligibility,
		"documentsRequired":    s.DocumentsRequired,
		"applicationProcedure": s.ApplicationProcedure,
		"officialWebsite":      s.OfficialWebsite,
		"category":             s.CategoryId,
		"tags":                 s.Tags,
		"ministry":             s.Ministry,
		"launchedDate":         s.LaunchedDate,
		"isActive":             s.IsActive,
		"updatedAt":            s.UpdatedAt,
	}
	res, err := r.col.UpdateByID(ctx, s.Id, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update scheme: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("scheme not found")
	}
	return nil
}

func (r *schemeRepo) SetBannerImage(ctx context.Context, id bson.ObjectID, url string) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"bannerImage": url,
		"updatedAt":   time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("set banner image: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("scheme not found")
	}
	return nil
}

func (r *schemeRepo) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete scheme: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("scheme not found")
	}
	return nil
}

func (r *schemeRepo) AdjustCounter(ctx context.Context, id bson.ObjectID, counter repository.SchemeCounter, delta int64) error {
	field := string(counter)
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter[field] = bson.M{"$gte": -delta}
	}

	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{field: delta}})
	if err != nil {
		return fmt.Errorf("adjust %s: %w", field, err)
	}
	if res.MatchedCount == 0 && delta > 0 {
		return apperrors.NotFound("scheme not found")
	}
	return nil
}

func (r *schemeRepo) Suggest(ctx context.Context, term string, limit int) ([]models.SchemeSuggestion, error) {
	filter := bson.M{
		"isActive": true,
		"name":     bson.M{"$regex": regexp.QuoteMeta(term), "$options": "i"},
	}
	opts := options.Find().
		SetProjection(bson.M{"name": 1, "slug": 1}).
		SetLimit(int64(limit))

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find suggestions: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]models.SchemeSuggestion, 0, limit)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	return out, nil
}

func (r *schemeRepo) CountActive(ctx context.Context) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"isActive": true})
	if err != nil {
		return 0, fmt.Errorf("count active schemes: %w", err)
	}
	return n, nil
}

func (r *schemeRepo) ReferencesCategory(ctx context.Context, categoryID bson.ObjectID) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"category": categoryID}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count schemes in category: %w", err)
	}
	return n > 0, nil
}

func (r *schemeRepo) SumActiveViews(ctx context.Context) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"isActive": true}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$views"}}}},
	}
	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("sum views: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("decode view sum: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

func (r *schemeRepo) TopByViews(ctx context.Context, n int) ([]models.TopScheme, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "views", Value: -1}, {Key: "name", Value: 1}}).
		SetLimit(int64(n)).
		SetProjection(bson.M{"name": 1, "slug": 1, "views": 1})

	cursor, err := r.col.Find(ctx, bson.M{"isActive": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("find top schemes: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]models.TopScheme, 0, n)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode top schemes: %w", err)
	}
	return out, nil
}

func (r *schemeRepo) CountActiveByCategory(ctx context.Context) ([]models.CategoryCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"isActive": true}}},
		{{Key: "$group", Value: bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         ColCategories,
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "category",
		}}},
		{{Key: "$unwind", Value: "$category"}},
		{{Key: "$project", Value: bson.M{"name": "$category.name", "count": 1}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "name", Value: 1}}}},
	}
	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("group schemes by category: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]models.CategoryCount, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode category counts: %w", err)
	}
	return out, nil
}
