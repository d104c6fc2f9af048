package models

// RegisterRequest represents the request body for user registration.
// Constraints are enforced by the credential store so every violation can be reported at once.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the request body for user login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
