package request

type UpdateProfileRequest struct {
	Username *string `json:"username,omitempty" validate:"omitempty,min=3,max=50"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,e164"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=customer staff admin"`
}
