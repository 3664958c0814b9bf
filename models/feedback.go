package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type FeedbackType string

const (
	FeedbackGeneral        FeedbackType = "general"
	FeedbackSchemeSpecific FeedbackType = "scheme-specific"
	FeedbackBugReport      FeedbackType = "bug-report"
	FeedbackFeatureRequest FeedbackType = "feature-request"
)

type FeedbackStatus string

const (
	FeedbackStatusPending  FeedbackStatus = "pending"
	FeedbackStatusReviewed FeedbackStatus = "reviewed"
	FeedbackStatusResolved FeedbackStatus = "resolved"
)

func IsValidFeedbackStatus(s string) bool {
	switch FeedbackStatus(s) {
	case FeedbackStatusPending, FeedbackStatusReviewed, FeedbackStatusResolved:
		return true
	}
	return false
}

type Feedback struct {
	ID            bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID        bson.ObjectID  `bson:"user" json:"userId"`
	SchemeID      *bson.ObjectID `bson:"scheme,omitempty" json:"schemeId,omitempty"`
	Type          FeedbackType   `bson:"type" json:"type"`
	Subject       string         `bson:"subject" json:"subject"`
	Message       string         `bson:"message" json:"message"`
	Rating        *int           `bson:"rating,omitempty" json:"rating,omitempty"`
	Status        FeedbackStatus `bson:"status" json:"status"`
	AdminResponse string         `bson:"adminResponse" json:"adminResponse"`
	CreatedAt     time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time      `bson:"updatedAt" json:"updatedAt"`
}
