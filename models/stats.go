package models

import "go.mongodb.org/mongo-driver/v2/bson"

type TopScheme struct {
	Id    bson.ObjectID `bson:"_id" json:"id"`
	Name  string        `bson:"name" json:"name"`
	Slug  string        `bson:"slug" json:"slug"`
	Views int64         `bson:"views" json:"views"`
}

type CategoryCount struct {
	Id    bson.ObjectID `bson:"_id" json:"id"`
	Name  string        `bson:"name" json:"name"`
	Count int64         `bson:"count" json:"count"`
}

type SchemeStats struct {
	TotalSchemes      int64           `json:"totalSchemes"`
	TotalViews        int64           `json:"totalViews"`
	TopSchemes        []TopScheme     `json:"topSchemes"`
	SchemesByCategory []CategoryCount `json:"schemesByCategory"`
}

type RoleCount struct {
	Role  Role  `bson:"_id" json:"role"`
	Count int64 `bson:"count" json:"count"`
}

type UserStats struct {
	TotalUsers  int64         `json:"totalUsers"`
	ActiveUsers int64         `json:"activeUsers"`
	AdminUsers  int64         `json:"adminUsers"`
	UsersByRole []RoleCount   `json:"usersByRole"`
	RecentUsers []UserSummary `json:"recentUsers"`
}
