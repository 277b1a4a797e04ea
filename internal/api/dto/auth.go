package dto

// LoginRequest represents the login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the bearer token under the key clients read it from.
type LoginResponse struct {
	Token     string `json:"user-auth-token"`
	ExpiresIn int64  `json:"expires_in"` // In seconds
	TokenType string `json:"token_type"`
}

// IdentityResponse is the decoded token of the caller
type IdentityResponse struct {
	Username string   `json:"username"`
	Nickname string   `json:"nickname"`
	Roles    []string `json:"roles"`
}
