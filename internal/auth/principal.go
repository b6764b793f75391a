package auth

import "github.com/marketbook/marketbook-api/internal/domain"

// Principal is the authenticated caller. Exactly one of User or Admin is set,
// selected by Kind.
type Principal struct {
	Kind  domain.PrincipalKind
	User  *domain.User
	Admin *domain.GlobalAdmin
}

// IsUser reports whether the caller is a marketplace account, in either mode.
func (p *Principal) IsUser() bool {
	return p != nil && (p.Kind == domain.PrincipalUser || p.Kind == domain.PrincipalUserAdmin) && p.User != nil
}

// IsUserAdmin reports whether the caller unlocked per-account admin mode.
func (p *Principal) IsUserAdmin() bool {
	return p.IsUser() && p.Kind == domain.PrincipalUserAdmin
}

// IsGlobalAdmin reports whether the caller is on the global admin roster.
func (p *Principal) IsGlobalAdmin() bool {
	return p != nil && p.Kind == domain.PrincipalGlobalAdmin && p.Admin != nil
}

// IsOriginalAdmin reports whether the caller is the bootstrap global admin.
func (p *Principal) IsOriginalAdmin() bool {
	return p.IsGlobalAdmin() && p.Admin.IsOriginal
}

// UserID returns the account id for user principals and "" otherwise.
func (p *Principal) UserID() string {
	if !p.IsUser() {
		return ""
	}
	return p.User.ID
}

// AdminIdentity returns the admin email recorded on audited actions.
func (p *Principal) AdminIdentity() string {
	if !p.IsGlobalAdmin() {
		return ""
	}
	return p.Admin.Email
}
