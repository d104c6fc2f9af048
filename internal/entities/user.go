package entities

import "time"

// User represents a user account in the credential store
type User struct {
	ID           string    `json:"id" bson:"_id"` // UUID
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`              // Trimmed and lowercased
	PasswordHash string    `json:"-" bson:"password_hash,omitempty"` // Only populated on explicit request
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

// Identity is the authenticated caller attached to a request by the auth middleware
type Identity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Identity returns the public view of the user, without the password hash
func (u *User) Identity() *Identity {
	return &Identity{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}
