package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	DefaultCategoryIcon  = "📋"
	DefaultCategoryColor = "#3B82F6"
)

type Category struct {
	Id          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string        `bson:"name" json:"name"`
	Slug        string        `bson:"slug" json:"slug"`
	Description string        `bson:"description" json:"description"`
	Icon        string        `bson:"icon" json:"icon"`
	Color       string        `bson:"color" json:"color"`
	IsActive    bool          `bson:"isActive" json:"isActive"`
	SchemeCount int           `bson:"schemeCount" json:"schemeCount"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// CategorySummary is the slice of a category embedded into scheme responses.
type CategorySummary struct {
	Id    bson.ObjectID `bson:"_id" json:"id"`
	Name  string        `bson:"name" json:"name"`
	Slug  string        `bson:"slug" json:"slug"`
	Icon  string        `bson:"icon" json:"icon"`
	Color string        `bson:"color" json:"color"`
}

func (c *Category) Summary() *CategorySummary {
	return &CategorySummary{
		Id:    c.Id,
		Name:  c.Name,
		Slug:  c.Slug,
		Icon:  c.Icon,
		Color: c.Color,
	}
}
