package dto

type CreateFeedbackDTO struct {
	Type     string  `json:"type" binding:"required,oneof=general scheme-specific bug-report feature-request"`
	SchemeID *string `json:"schemeId" binding:"omitempty,mongodb"`
	Subject  string  `json:"subject" binding:"required,max=200"`
	Message  string  `json:"message" binding:"required,max=1000"`
	Rating   *int    `json:"rating" binding:"omitempty,min=1,max=5"`
}

type UpdateFeedbackStatusDTO struct {
	Status        string  `json:"status" binding:"required,oneof=pending reviewed resolved"`
	AdminResponse *string `json:"adminResponse" binding:"omitempty,max=2000"`
}
