package dto

import "time"

type AgeRangeDTO struct {
	Min *int `json:"min" binding:"omitempty,min=0,max=150"`
	Max *int `json:"max" binding:"omitempty,min=0,max=150"`
}

type EligibilityDTO struct {
	Age         *AgeRangeDTO `json:"age"`
	Gender      []string     `json:"gender" binding:"omitempty,dive,oneof=male female other all"`
	IncomeGroup []string     `json:"incomeGroup" binding:"omitempty,dive,oneof=below-poverty-line low-income middle-income high-income all"`
	States      []string     `json:"states" binding:"omitempty,dive,required"`
	Other       string       `json:"other" binding:"max=1000"`
}

type CreateSchemeDTO struct {
	Name                 string          `json:"name" binding:"required,max=200"`
	Description          string          `json:"description" binding:"required,max=10000"`
	Benefits             []string        `json:"benefits" binding:"required,min=1,dive,required"`
	Eligibility          *EligibilityDTO `json:"eligibility"`
	DocumentsRequired    []string        `json:"documentsRequired" binding:"omitempty,dive,required"`
	ApplicationProcedure string          `json:"applicationProcedure" binding:"required,max=1500"`
	OfficialWebsite      string          `json:"officialWebsite" binding:"omitempty,http_url"`
	CategoryID           string          `json:"categoryId" binding:"required,mongodb"`
	Tags                 []string        `json:"tags"`
	Ministry             string          `json:"ministry" binding:"max=200"`
	LaunchedDate         *time.Time      `json:"launchedDate"`
	IsActive             *bool           `json:"isActive"`
}

// UpdateSchemeDTO replaces only the fields present. The slug is never editable.
type UpdateSchemeDTO struct {
	Name                 *string         `json:"name" binding:"omitempty,min=1,max=200"`
	Description          *string         `json:"description" binding:"omitempty,min=1,max=10000"`
	Benefits             *[]string       `json:"benefits" binding:"omitempty,min=1,dive,required"`
	Eligibility          *EligibilityDTO `json:"eligibility"`
	DocumentsRequired    *[]string       `json:"documentsRequired" binding:"omitempty,dive,required"`
	ApplicationProcedure *string         `json:"applicationProcedure" binding:"omitempty,min=1,max=1500"`
	OfficialWebsite      *string         `json:"officialWebsite" binding:"omitempty,http_url"`
	CategoryID           *string         `json:"categoryId" binding:"omitempty,mongodb"`
	Tags                 *[]string       `json:"tags"`
	Ministry             *string         `json:"ministry" binding:"omitempty,max=200"`
	LaunchedDate         *time.Time      `json:"launchedDate"`
	IsActive             *bool           `json:"isActive"`
}
