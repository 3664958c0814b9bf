package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/myscheme/schemeapi/apperrors"
	"github.com/myscheme/schemeapi/models"
	"github.com/myscheme/schemeapi/query"
	"github.com/myscheme/schemeapi/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type feedbackRepo struct {
	col *mongo.Collection
}

func (r *feedbackRepo) Insert(ctx context.Context, f *models.Feedback) error {
	if f.ID.IsZero() {
		f.ID = bson.NewObjectID()
	}
	if _, err := r.col.InsertOne(ctx, f); err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

func (r *feedbackRepo) List(ctx context.Context, f repository.FeedbackListFilter) ([]models.Feedback, int64, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(query.Offset(f.Page, f.Limit)).
		SetLimit(int64(f.Limit))

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find feedback: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]models.Feedback, 0, f.Limit)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("decode feedback: %w", err)
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count feedback: %w", err)
	}
	return out, total, nil
}

func (r *feedbackRepo) UpdateStatus(ctx context.Context, id bson.ObjectID, status models.FeedbackStatus, response *string) (*models.Feedback, error) {
	set := bson.M{"status": status, "updatedAt": time.Now().UTC()}
	if response != nil {
		set["adminResponse"] = *response
	}

	var out models.Feedback
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("feedback not found")
	}
	if err != nil {
		return nil, fmt.Errorf("update feedback: %w", err)
	}
	return &out, nil
}
