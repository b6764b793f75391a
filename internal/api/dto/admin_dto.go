package dto

import "time"

// AdminPasswordRequest carries the per-account admin password.
type AdminPasswordRequest struct {
	AdminPassword string `json:"adminPassword" validate:"required"`
}

// ChangeAdminPasswordRequest payload.
type ChangeAdminPasswordRequest struct {
	CurrentAdminPassword string `json:"currentAdminPassword" validate:"required"`
	NewAdminPassword     string `json:"newAdminPassword" validate:"required"`
}

// GlobalAdminLoginRequest payload.
type GlobalAdminLoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// GlobalAdminResetRequest payload.
type GlobalAdminResetRequest struct {
	Email     string `json:"email" validate:"required"`
	ResetCode string `json:"resetCode" validate:"required"`
}

// CreateGlobalAdminRequest payload.
type CreateGlobalAdminRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// GlobalAdminResponse never carries credentials.
type GlobalAdminResponse struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	IsOriginal bool       `json:"isOriginal"`
	CreatedBy  *string    `json:"createdBy,omitempty"`
	LastLogin  *time.Time `json:"lastLogin,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// AdminSessionResponse is returned by global admin login.
type AdminSessionResponse struct {
	Message   string              `json:"message"`
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expiresAt"`
	Admin     GlobalAdminResponse `json:"admin"`
}

// AdminMessageRequest is used for direct messages and broadcasts.
type AdminMessageRequest struct {
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// ManagedUserResponse is an account as seen in the admin user directory.
type ManagedUserResponse struct {
	ID            string     `json:"id"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Email         string     `json:"email"`
	BusinessName  *string    `json:"businessName,omitempty"`
	IsActive      bool       `json:"isActive"`
	IsRecommended bool       `json:"isRecommended"`
	IsDeleted     bool       `json:"isDeleted"`
	DeletedAt     *time.Time `json:"deletedAt,omitempty"`
	LastLogin     *time.Time `json:"lastLogin,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// ManagedUserListResponse is one page of the admin user directory.
type ManagedUserListResponse struct {
	Users       []ManagedUserResponse `json:"users"`
	TotalPages  int                   `json:"totalPages"`
	CurrentPage int                   `json:"currentPage"`
	Total       int                   `json:"total"`
}
