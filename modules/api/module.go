package api

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/poornimasewak/nook/domain/user"
	"github.com/poornimasewak/nook/events"
	"github.com/poornimasewak/nook/modules/auth"
	"github.com/poornimasewak/nook/modules/relay"
	"github.com/poornimasewak/nook/modules/storage"
)

// Module is the HTTP surface: the REST API and the websocket upgrade
// endpoint, served by a single Fiber app.
type Module struct {
	app        *fiber.App
	handlers   *Handlers
	addr       string
	storageMod *storage.Module
	authMod    *auth.Module
	relayMod   *relay.Module
	eventBus   mono.EventBus
	logger     types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventBusAwareModule = (*Module)(nil)
	_ mono.EventEmitterModule  = (*Module)(nil)
	_ mono.DependentModule     = (*Module)(nil)
)

// NewModule creates the HTTP module.
func NewModule(addr string, storageMod *storage.Module, authMod *auth.Module, relayMod *relay.Module, moduleLogger types.Logger) *Module {
	return &Module{
		addr:       addr,
		storageMod: storageMod,
		authMod:    authMod,
		relayMod:   relayMod,
		logger:     moduleLogger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "api"
}

// Dependencies declares module start order.
func (m *Module) Dependencies() []string {
	return []string{"storage", "auth", "relay"}
}

// SetDependencyServiceContainer satisfies mono.DependentModule. Dependencies
// are wired through the constructor, so the containers are unused.
func (m *Module) SetDependencyServiceContainer(string, types.ServiceContainer) {}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MembersAddedV1.ToBase(),
		events.ProfileUpdatedV1.ToBase(),
	}
}

// Start builds the Fiber app and begins serving.
func (m *Module) Start(_ context.Context) error {
	m.app = fiber.New(fiber.Config{
		AppName:               "Nook",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
	}))

	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:8080"
	}
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	m.handlers = NewHandlers(m.storageMod.Store(), m.authMod.Service(), m.eventBus, m.logger)
	m.registerRoutes()

	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", "addr", m.addr)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app != nil {
		if err := m.app.ShutdownWithContext(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}
	m.logger.Info("HTTP server stopped")
	return nil
}

// registerRoutes sets up all HTTP and websocket routes.
func (m *Module) registerRoutes() {
	m.app.Get("/health", m.healthCheck)

	authn := AuthMiddleware(m.authMod.Service().JWT())

	v1 := m.app.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.Post("/email/send-otp", m.handlers.SendEmailOTP)
	authGroup.Post("/email/verify-otp", m.handlers.VerifyEmailOTP)
	authGroup.Post("/phone/send-otp", m.handlers.SendPhoneOTP)
	authGroup.Post("/phone/verify-otp", m.handlers.VerifyPhoneOTP)
	authGroup.Post("/refresh", m.handlers.Refresh)
	authGroup.Post("/logout", authn, m.handlers.Logout)
	authGroup.Delete("/account", authn, m.handlers.DeactivateAccount)

	usersGroup := v1.Group("/users", authn)
	usersGroup.Get("/me", m.handlers.Me)
	usersGroup.Put("/me", m.handlers.UpdateProfile)
	usersGroup.Get("/search", m.handlers.SearchUsers)
	usersGroup.Get("/friends", m.handlers.Friends)
	usersGroup.Post("/friends", m.handlers.AddFriend)
	usersGroup.Post("/invite", m.handlers.CreateInvite)

	nooksGroup := v1.Group("/nooks", authn)
	nooksGroup.Post("/", m.handlers.CreateNook)
	nooksGroup.Get("/", m.handlers.ListNooks)
	nooksGroup.Get("/:id", m.handlers.GetNook)
	nooksGroup.Put("/:id", m.handlers.RenameNook)
	nooksGroup.Delete("/:id", m.handlers.DeleteNook)
	nooksGroup.Get("/:id/members", m.handlers.NookMembers)
	nooksGroup.Post("/:id/members", m.handlers.AddMembers)
	nooksGroup.Delete("/:id/members/me", m.handlers.LeaveNook)
	nooksGroup.Get("/:id/admins", m.handlers.NookAdmins)
	nooksGroup.Get("/:id/messages", m.handlers.NookMessages)

	// Websocket upgrade. The token arrives as a query parameter because
	// browsers cannot set headers on websocket requests.
	m.app.Use("/ws", authn, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handleWebSocket))
}

// handleWebSocket resolves the authenticated profile and hands the connection
// to the relay for the rest of its life.
func (m *Module) handleWebSocket(c *websocket.Conn) {
	claims, ok := c.Locals(UserContextKey).(*auth.JWTClaims)
	if !ok {
		_ = c.Close()
		return
	}
	m.relayMod.Relay().ServeConn(c, m.resolveProfile(claims))
}

// resolveProfile loads the user's stored profile, falling back to one derived
// from the token when the account is not on record.
func (m *Module) resolveProfile(claims *auth.JWTClaims) user.Profile {
	if store := m.storageMod.Store(); store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if account, err := store.UserByID(ctx, claims.UserID); err == nil {
			return account.Profile()
		}
	}
	return user.FallbackProfile(claims.UserID, claims.Identifier())
}

func (m *Module) healthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "nook",
	})
}

// errorHandler handles errors globally.
func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	m.logger.Error("HTTP error", "code", code, "message", message, "error", err)

	return c.Status(code).JSON(ErrorResponse{
		Error:   "http_error",
		Message: message,
	})
}
