package domain

// PrincipalKind differentiates the three kinds of authenticated callers.
type PrincipalKind string

const (
	// PrincipalUser is a regular marketplace account.
	PrincipalUser PrincipalKind = "USER"
	// PrincipalUserAdmin is a user session unlocked with the per-account admin password.
	PrincipalUserAdmin PrincipalKind = "USER_ADMIN"
	// PrincipalGlobalAdmin is a platform operator from the global admin roster.
	PrincipalGlobalAdmin PrincipalKind = "GLOBAL_ADMIN"
)

// Valid reports whether k is a known principal kind.
func (k PrincipalKind) Valid() bool {
	switch k {
	case PrincipalUser, PrincipalUserAdmin, PrincipalGlobalAdmin:
		return true
	}
	return false
}
