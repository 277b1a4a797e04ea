package dto

import "time"

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Nickname string `json:"nickname" binding:"required"`
}

type CreateUserRequest struct {
	Username string   `json:"username" binding:"required"`
	Password string   `json:"password" binding:"required"`
	Nickname string   `json:"nickname" binding:"required"`
	Roles    []string `json:"roles" binding:"required"`
}

// UpdateProfileRequest changes only the fields that are present.
type UpdateProfileRequest struct {
	Nickname *string `json:"nickname"`
	Password *string `json:"password"`
}

type SetRolesRequest struct {
	Roles []string `json:"roles" binding:"required"`
}

// UserResponse is one version of a user. The password hash is never exposed.
type UserResponse struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Nickname   string     `json:"nickname"`
	Roles      []string   `json:"roles"`
	ValidFrom  time.Time  `json:"valid_from"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
}

type UserListResponse struct {
	Items      []UserResponse `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}

type UserHistoryResponse struct {
	Username string         `json:"username"`
	Versions []UserResponse `json:"versions"`
}
