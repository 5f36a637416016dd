package dto

import "github.com/noah-isme/studyhub-api/internal/models"

// UpdateProfileRequest edits the caller's own profile. Nil fields are left untouched.
type UpdateProfileRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,max=120"`
	Semester *int    `json:"semester" validate:"omitempty,min=0,max=8"`
	College  *string `json:"college" validate:"omitempty,max=200"`
}

// SetRoleRequest is used by admins to change a user's role.
type SetRoleRequest struct {
	Role models.UserRole `json:"role" validate:"required,oneof=admin teacher student"`
}

// UserQuery captures admin user listing parameters.
type UserQuery struct {
	Role      string `form:"role"`
	Search    string `form:"search"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
}
