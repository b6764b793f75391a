package domain

import "time"

// User is the domain model for marketplace accounts.
type User struct {
	ID                string
	FirstName         string
	LastName          string
	Email             string
	PasswordHash      string
	ProfileImage      *string
	BusinessName      *string
	IsActive          bool
	IsDeleted         bool
	IsRecommended     bool
	DeletedAt         *time.Time
	AdminPasswordHash *string
	AdminCreatedAt    *time.Time
	LastLogin         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// UserProfile is the public projection of a user shown to other parties.
type UserProfile struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	ProfileImage *string
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Usable reports whether the account may authenticate or be targeted.
func (u *User) Usable() bool {
	return u != nil && u.IsActive && !u.IsDeleted
}

// AdminConfigured reports whether per-user admin mode was set up.
func (u *User) AdminConfigured() bool {
	return u.AdminPasswordHash != nil && *u.AdminPasswordHash != ""
}

// Profile strips credentials and private fields.
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		ProfileImage: u.ProfileImage,
	}
}
