package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/marketbook/marketbook-api/internal/api/http/handlers"
	"github.com/marketbook/marketbook-api/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	AdminMode      *handlers.AdminModeHandler
	GlobalAdmins   *handlers.GlobalAdminHandler
	AdminUsers     *handlers.AdminUsersHandler
	Escrow         *handlers.EscrowHandler
	AdminEscrow    *handlers.AdminEscrowHandler
	Tickets        *handlers.TicketsHandler
	AdminTickets   *handlers.AdminTicketsHandler
	Items          *handlers.ItemsHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	authn := cfg.AuthMiddleware.Handle

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/support-ticket", cfg.Users.SubmitSupportTicket)
	authGroup.Get("/profile", authn, cfg.Users.Profile)

	adminMode := app.Group("/admin", authn)
	adminMode.Post("/register", auth.RequireUser(), cfg.AdminMode.Enable)
	adminMode.Post("/login", auth.RequireUser(), cfg.AdminMode.Login)
	adminMode.Post("/verify-password", auth.RequireUser(), cfg.AdminMode.Verify)
	adminMode.Put("/change-password", auth.RequireUserAdmin(), cfg.AdminMode.ChangePassword)

	escrow := app.Group("/escrow", authn, auth.RequireUser())
	escrow.Get("/search-users", cfg.Escrow.SearchUsers)
	escrow.Post("/create", cfg.Escrow.Create)
	escrow.Get("/my-tickets", cfg.Escrow.MyTickets)
	escrow.Get("/tickets/:id", cfg.Escrow.Get)
	escrow.Patch("/tickets/:id/respond", cfg.Escrow.Respond)
	escrow.Post("/tickets/:id/message", cfg.Escrow.Message)
	escrow.Patch("/tickets/:id/close", cfg.Escrow.Close)

	tickets := app.Group("/tickets", authn, auth.RequireUser())
	tickets.Get("/", cfg.Tickets.List)
	tickets.Post("/", cfg.Tickets.Create)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Post("/:id/reply", cfg.Tickets.Reply)
	tickets.Patch("/:id/close", cfg.Tickets.Close)

	app.Post("/items/mark-paid/:invoiceNumber", cfg.Items.MarkPaid)
	items := app.Group("/items", authn, auth.RequireUser())
	items.Get("/", cfg.Items.List)
	items.Get("/stats", cfg.Items.Stats)
	items.Post("/", cfg.Items.Create)
	items.Get("/:id", cfg.Items.Get)
	items.Put("/:id", auth.RequireUserAdmin(), cfg.Items.Update)
	items.Delete("/:id", auth.RequireUserAdmin(), cfg.Items.Delete)
	items.Post("/:id/approve-payment", cfg.Items.ApprovePayment)

	notifications := app.Group("/notifications", authn, auth.RequireUser())
	notifications.Get("/", cfg.Notifications.List)
	notifications.Patch("/mark-all-read", cfg.Notifications.MarkAllRead)
	notifications.Patch("/:id/read", cfg.Notifications.MarkRead)
	notifications.Delete("/:id", cfg.Notifications.Delete)

	globalAdmin := app.Group("/global-admin")
	globalAdmin.Post("/login", cfg.GlobalAdmins.Login)
	globalAdmin.Post("/reset", cfg.GlobalAdmins.Reset)

	admin := globalAdmin.Group("", authn, auth.RequireGlobalAdmin())
	admin.Get("/profile", cfg.GlobalAdmins.Profile)

	roster := admin.Group("/admins", auth.RequireOriginalAdmin())
	roster.Get("/", cfg.GlobalAdmins.List)
	roster.Post("/", cfg.GlobalAdmins.Create)
	roster.Delete("/:id", cfg.GlobalAdmins.Delete)

	users := admin.Group("/users")
	users.Get("/", cfg.AdminUsers.List)
	users.Patch("/:id/toggle-status", cfg.AdminUsers.ToggleStatus)
	users.Patch("/:id/toggle-recommendation", cfg.AdminUsers.ToggleRecommendation)
	users.Patch("/:id/recover", auth.RequireOriginalAdmin(), cfg.AdminUsers.Recover)
	users.Delete("/:id", auth.RequireOriginalAdmin(), cfg.AdminUsers.Delete)
	admin.Post("/send-message/:userId", cfg.AdminUsers.SendMessage)
	admin.Post("/broadcast-message", cfg.AdminUsers.Broadcast)

	adminEscrow := admin.Group("/escrow-tickets")
	adminEscrow.Get("/", cfg.AdminEscrow.List)
	adminEscrow.Get("/:id", cfg.AdminEscrow.Get)
	adminEscrow.Post("/:id/message", cfg.AdminEscrow.Message)
	adminEscrow.Patch("/:id/status", cfg.AdminEscrow.UpdateStatus)
	adminEscrow.Patch("/:id/reopen", cfg.AdminEscrow.Reopen)
	adminEscrow.Patch("/:id/close", cfg.AdminEscrow.Close)
	adminEscrow.Patch("/:id/notes", cfg.AdminEscrow.Notes)
	adminEscrow.Delete("/:id", auth.RequireOriginalAdmin(), cfg.AdminEscrow.Delete)

	adminTickets := admin.Group("/tickets")
	adminTickets.Get("/", cfg.AdminTickets.List)
	adminTickets.Get("/:id", cfg.AdminTickets.Get)
	adminTickets.Post("/:id/reply", cfg.AdminTickets.Reply)
	adminTickets.Patch("/:id/status", cfg.AdminTickets.UpdateStatus)
	adminTickets.Patch("/:id/reopen", cfg.AdminTickets.Reopen)
	adminTickets.Delete("/:id", auth.RequireOriginalAdmin(), cfg.AdminTickets.Delete)
}
