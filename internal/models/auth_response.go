package models

import "meaktask-api/internal/entities"

// AuthResponse is returned by register and login
type AuthResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

// UserResponse wraps the authenticated user's profile
type UserResponse struct {
	Success bool               `json:"success"`
	Data    *entities.Identity `json:"data"`
}

// ErrorResponse is the uniform failure body
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewErrorResponse builds a failure body with the given message
func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Success: false, Error: message}
}
