package dto

import "time"

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the caller's own account view.
type UserResponse struct {
	ID            string     `json:"id"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Email         string     `json:"email"`
	ProfileImage  *string    `json:"profileImage"`
	BusinessName  *string    `json:"businessName,omitempty"`
	IsRecommended bool       `json:"isRecommended"`
	AdminConfig   AdminFlag  `json:"adminConfig"`
	LastLogin     *time.Time `json:"lastLogin,omitempty"`
}

// AdminFlag reports whether per-account admin mode is configured.
type AdminFlag struct {
	IsAdmin bool `json:"isAdmin"`
}

// UserProfileResponse is the public view of another account.
type UserProfileResponse struct {
	ID           string  `json:"id"`
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	Email        string  `json:"email"`
	ProfileImage *string `json:"profileImage"`
}

// UserSearchResult is one candidate escrow recipient.
type UserSearchResult struct {
	UserProfileResponse
	BusinessName  *string `json:"businessName,omitempty"`
	IsRecommended bool    `json:"isRecommended"`
}

// SessionResponse is returned by every login endpoint.
type SessionResponse struct {
	Message   string        `json:"message"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      *UserResponse `json:"user,omitempty"`
}
