package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// EligibleAll is the sentinel stored in eligibility sets meaning "no restriction".
const EligibleAll = "all"

const (
	DefaultAgeMin = 0
	DefaultAgeMax = 150
)

var (
	Genders      = []string{"male", "female", "other", EligibleAll}
	IncomeGroups = []string{"below-poverty-line", "low-income", "middle-income", "high-income", EligibleAll}
)

type AgeRange struct {
	Min int `bson:"min" json:"min"`
	Max int `bson:"max" json:"max"`
}

type Eligibility struct {
	Age         AgeRange `bson:"age" json:"age"`
	Gender      []string `bson:"gender" json:"gender"`
	IncomeGroup []string `bson:"incomeGroup" json:"incomeGroup"`
	States      []string `bson:"states" json:"states"`
	Other       string   `bson:"other" json:"other"`
}

// DefaultEligibility is open to everyone.
func DefaultEligibility() Eligibility {
	return Eligibility{
		Age:         AgeRange{Min: DefaultAgeMin, Max: DefaultAgeMax},
		Gender:      []string{EligibleAll},
		IncomeGroup: []string{EligibleAll},
		States:      []string{EligibleAll},
	}
}

type Scheme struct {
	Id                   bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                 string        `bson:"name" json:"name"`
	Slug                 string        `bson:"slug" json:"slug"`
	Description          string        `bson:"description" json:"description"`
	Benefits             []string      `bson:"benefits" json:"benefits"`
	Eligibility          Eligibility   `bson:"eligibility" json:"eligibility"`
	DocumentsRequired    []string      `bson:"documentsRequired" json:"documentsRequired"`
	ApplicationProcedure string        `bson:"applicationProcedure" json:"applicationProcedure"`
	OfficialWebsite      string        `bson:"officialWebsite,omitempty" json:"officialWebsite,omitempty"`
	CategoryId           bson.ObjectID `bson:"category" json:"categoryId"`
	Tags                 []string      `bson:"tags" json:"tags"`
	BannerImage          string        `bson:"bannerImage" json:"bannerImage"`
	Ministry             string        `bson:"ministry,omitempty" json:"ministry,omitempty"`
	LaunchedDate         *time.Time    `bson:"launchedDate,omitempty" json:"launchedDate,omitempty"`
	IsActive             bool          `bson:"isActive" json:"isActive"`
	Views                int64         `bson:"views" json:"views"`
	FavouriteCount       int64         `bson:"favouriteCount" json:"favouriteCount"`
	CreatedAt            time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// SchemeView is a scheme with its category joined for responses.
type SchemeView struct {
	Scheme   `bson:",inline"`
	Category *CategorySummary `bson:"-" json:"category"`
}

// SchemeSuggestion is the compact shape returned by name suggestions.
type SchemeSuggestion struct {
	Id   bson.ObjectID `bson:"_id" json:"id"`
	Name string        `bson:"name" json:"name"`
	Slug string        `bson:"slug" json:"slug"`
}
