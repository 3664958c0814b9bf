package dto

type RegisterDTO struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type LoginDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshDTO is optional; the cookie is used when the body carries no token.
type RefreshDTO struct {
	RefreshToken string `json:"refreshToken"`
}

type UpdateProfileDTO struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Age         *int    `json:"age" binding:"omitempty,min=0,max=150"`
	Gender      *string `json:"gender" binding:"omitempty,oneof=male female other"`
	State       *string `json:"state" binding:"omitempty,max=100"`
	IncomeGroup *string `json:"incomeGroup" binding:"omitempty,oneof=below-poverty-line low-income middle-income high-income"`
}
