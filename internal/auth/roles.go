package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/marketbook/marketbook-api/pkg/util/errorutil"
)

// PrivilegeOriginalAdmin names the bootstrap-admin privilege in refusals.
const PrivilegeOriginalAdmin = "original_global_admin"

// RequireUser admits marketplace accounts in regular or admin mode.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || !principal.IsUser() {
			return apperrors.NewForbidden("user account required")
		}
		return c.Next()
	}
}

// RequireUserAdmin admits only sessions unlocked with the account admin password.
func RequireUserAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || !principal.IsUser() {
			return apperrors.NewForbidden("user account required")
		}
		if !principal.IsUserAdmin() {
			return apperrors.NewPrivilegeRequired("user_admin", "admin mode required for this action")
		}
		return c.Next()
	}
}

// RequireGlobalAdmin admits any member of the global admin roster.
func RequireGlobalAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || !principal.IsGlobalAdmin() {
			return apperrors.NewForbidden("global admin required")
		}
		return c.Next()
	}
}

// RequireOriginalAdmin admits only the bootstrap global admin.
func RequireOriginalAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || !principal.IsGlobalAdmin() {
			return apperrors.NewForbidden("global admin required")
		}
		if !principal.IsOriginalAdmin() {
			return apperrors.NewPrivilegeRequired(PrivilegeOriginalAdmin, "only the original global admin can perform this action")
		}
		return c.Next()
	}
}
