package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/marketbook/marketbook-api/internal/auth"
	"github.com/marketbook/marketbook-api/internal/domain"
	apperrors "github.com/marketbook/marketbook-api/pkg/util/errorutil"
	"github.com/marketbook/marketbook-api/pkg/util/validation"
)

func currentUser(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || !principal.IsUser() {
		return nil, apperrors.NewUnauthorized("user required")
	}
	return principal.User, nil
}

func currentAdmin(c *fiber.Ctx) (*domain.GlobalAdmin, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || !principal.IsGlobalAdmin() {
		return nil, apperrors.NewUnauthorized("global admin required")
	}
	return principal.Admin, nil
}

// bind parses the JSON body into req and runs its validate tags.
func bind(c *fiber.Ctx, req any) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	return validation.Struct(req)
}

func message(c *fiber.Ctx, text string) error {
	return c.JSON(fiber.Map{"message": text})
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultVal
}

func parseBoolQuery(c *fiber.Ctx, key string, defaultVal bool) bool {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}
