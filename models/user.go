package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID               bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name             string          `bson:"name" json:"name"`
	Email            string          `bson:"email" json:"email"`
	PasswordHash     string          `bson:"passwordHash" json:"-"` // never expose
	Role             Role            `bson:"role" json:"role"`
	Age              *int            `bson:"age,omitempty" json:"age,omitempty"`
	Gender           string          `bson:"gender,omitempty" json:"gender,omitempty"`
	State            string          `bson:"state,omitempty" json:"state,omitempty"`
	IncomeGroup      string          `bson:"incomeGroup,omitempty" json:"incomeGroup,omitempty"`
	IsActive         bool            `bson:"isActive" json:"isActive"`
	FavouriteSchemes []bson.ObjectID `bson:"favouriteSchemes" json:"favouriteSchemes"`
	CreatedAt        time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time       `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasFavourite reports whether schemeID is in the user's favourite set.
func (u *User) HasFavourite(schemeID bson.ObjectID) bool {
	for _, id := range u.FavouriteSchemes {
		if id == schemeID {
			return true
		}
	}
	return false
}

// UserSummary is what the admin dashboard shows for recent sign-ups.
type UserSummary struct {
	ID        bson.ObjectID `bson:"_id" json:"id"`
	Name      string        `bson:"name" json:"name"`
	Email     string        `bson:"email" json:"email"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
}

type RefreshToken struct {
	ID         bson.ObjectID `bson:"_id,omitempty"`
	UserID     bson.ObjectID `bson:"userId"`
	TokenHash  string        `bson:"tokenHash"`
	ExpiresAt  time.Time     `bson:"expiresAt"`
	CreatedAt  time.Time     `bson:"createdAt"`
	RevokedAt  *time.Time    `bson:"revokedAt,omitempty"`
	ReplacedBy *string       `bson:"replacedBy,omitempty"`
}
