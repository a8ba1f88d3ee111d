package api

import (
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/jaevor/go-nanoid"

	"github.com/poornimasewak/nook/modules/auth"
	"github.com/poornimasewak/nook/modules/storage"
)

// inviteAlphabet excludes look-alike characters so codes survive being read
// aloud.
const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var newInviteCode = mustInviteGenerator(8)

func mustInviteGenerator(length int) func() string {
	gen, err := nanoid.CustomASCII(inviteAlphabet, length)
	if err != nil {
		panic(fmt.Sprintf("invite code generator: %v", err))
	}
	return gen
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	store    storage.Store // nil in unconfigured mode
	auth     *auth.Service
	eventBus mono.EventBus
	logger   types.Logger
}

// NewHandlers creates a Handlers instance.
func NewHandlers(store storage.Store, authService *auth.Service, eventBus mono.EventBus, logger types.Logger) *Handlers {
	return &Handlers{
		store:    store,
		auth:     authService,
		eventBus: eventBus,
		logger:   logger,
	}
}

// requireStore rejects requests that need persistence when none is
// configured.
func (h *Handlers) requireStore(c *fiber.Ctx) error {
	if h.store != nil {
		return nil
	}
	return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
		Error:   "unavailable",
		Message: "Persistence is not configured",
	})
}

func (h *Handlers) storageError(c *fiber.Ctx, err error) error {
	h.logger.Error("storage request failed", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "internal",
		Message: "Something went wrong",
	})
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
		Error:   "not_found",
		Message: msg,
	})
}

func timeNow() time.Time {
	return time.Now().UTC()
}
