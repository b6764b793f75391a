package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/marketbook/marketbook-api/internal/api/dto"
	"github.com/marketbook/marketbook-api/internal/auth"
	"github.com/marketbook/marketbook-api/internal/service"
	apperrors "github.com/marketbook/marketbook-api/pkg/util/errorutil"
)

// UsersHandler exposes account endpoints and the public contact form.
type UsersHandler struct {
	auth    *service.AuthService
	support *service.SupportService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, supportService *service.SupportService) *UsersHandler {
	return &UsersHandler{auth: authService, support: supportService}
}

// Register handles POST /auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	session, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(sessionResponse("User registered successfully", session))
}

// Login handles POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	session, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(sessionResponse("Login successful", session))
}

// Profile handles GET /auth/profile for any principal.
func (h *UsersHandler) Profile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if principal.IsGlobalAdmin() {
		return c.JSON(fiber.Map{"kind": principal.Kind, "admin": globalAdminResponse(principal.Admin)})
	}
	return c.JSON(fiber.Map{"kind": principal.Kind, "user": userResponse(principal.User)})
}

// SubmitSupportTicket handles POST /auth/support-ticket without credentials.
func (h *UsersHandler) SubmitSupportTicket(c *fiber.Ctx) error {
	var req dto.PublicSupportRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ticket, err := h.support.CreatePublic(c.UserContext(), service.PublicSupportInput{
		Name:      req.Name,
		Email:     req.Email,
		Message:   req.Message,
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":  "Support ticket submitted successfully. We will get back to you soon.",
		"ticketId": ticket.ID,
	})
}

func sessionResponse(msg string, session *service.UserSession) dto.SessionResponse {
	user := userResponse(session.User)
	return dto.SessionResponse{
		Message:   msg,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      &user,
	}
}
