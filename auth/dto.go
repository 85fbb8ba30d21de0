// Package auth provides authentication and authorization functionality
// This file, `dto.go` (Data Transfer Object), defines structures used for
// transferring data in API requests and responses related to authentication.
package auth

// RegisterRequest represents the registration request payload.
// The HTTP route requires every profile field; the service itself only insists
// on username and password.
type RegisterRequest struct {
	Username  string `json:"username" validate:"required" example:"alice"`
	Password  string `json:"password" validate:"required" example:"correct horse battery staple"`
	FirstName string `json:"first_name" validate:"required" example:"Alice"`
	LastName  string `json:"last_name" validate:"required" example:"Liddell"`
	Phone     string `json:"phone" validate:"required" example:"+14155550000"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" validate:"required" example:"alice"`
	Password string `json:"password" validate:"required" example:"correct horse battery staple"`
}

// TokenResponse is returned by both register and login.
type TokenResponse struct {
	Token string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}
