package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/poornimasewak/nook/domain/nook"
	"github.com/poornimasewak/nook/events"
	"github.com/poornimasewak/nook/modules/storage"
)

// CreateNook handles POST /api/v1/nooks. The creator becomes the first admin
// member; any listed members join alongside.
func (h *Handlers) CreateNook(c *fiber.Ctx) error {
	if err := h.requireStore(c); err != nil {
		return err
	}
	claims := currentClaims(c)

	var req CreateNookRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return badRequest(c, "Name is required")
	}

	n := &nook.Nook{
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   claims.UserID,
	}
	if err := h.store.CreateNook(c.UserContext(), n, req.MemberIDs); err != nil {
		return h.storageError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(n)
}

// ListNooks handles GET /api/v1/nooks.
func (h *Handlers) ListNooks(c *fiber.Ctx) error {
	if err := h.requireStore(c); err != nil {
		return err
	}
	claims := currentClaims(c)

	nooks, err := h.store.NooksForUser(c.UserContext(), claims.UserID)
	if err != nil {
		return h.storageError(c, err)
	}
	return c.JSON(fiber.Map{"nooks": nooks, "total": len(nooks)})
}

// GetNook handles GET /api/v1/nooks/:id.
func (h *Handlers) GetNook(c *fiber.Ctx) error {
	n, err := h.memberNook(c)
	if err != nil {
		return err
	}
	return c.JSON(n)
}

// RenameNook handles PUT /api/v1/nooks/:id.
func (h *Handlers) RenameNook(c *fiber.Ctx) error {
	n, err := h.memberNook(c)
	if err != nil {
		return err
	}

	var req RenameNookRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return badRequest(c, "Name is required")
	}

	if err := h.store.RenameNook(c.UserContext(), n.ID, req.Name); err != nil {
		return h.storageError(c, err)
	}
	n.Name = req.Name
	return c.JSON(n)
}

// DeleteNook handles DELETE /api/v1/nooks/:id. Admins only.
func (h *Handlers) DeleteNook(c *fiber.Ctx) error {
	n, err := h.memberNook(c)
	if err != nil {
		return err
	}
	claims := currentClaims(c)

	admins, err := h.store.NookAdmins(c.UserContext(), n.ID)
	if err != nil {
		return h.storageError(c, err)
	}
	isAdmin := false
	for _, admin := range admins {
		if admin.ID == claims.UserID {
			isAdmin = true
			break
		}
	}
	if !isAdmin {
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error:   "forbidden",
			Message: "Only admins can delete a nook",
		})
	}

	if err := h.store.DeleteNook(c.UserContext(), n.ID); err != nil {
		return h.storageError(c, err)
	}
	return c.JSON(fiber.Map{"message": "nook deleted"})
}

// NookMembers handles GET /api/v1/nooks/:id/members.
func (h *Handlers) NookMembers(c *fiber.Ctx) error {
	n, err := h.memberNook(c)
	if err != nil {
		return err
	}

	members, err := h.store.NookMembers(c.UserContext(), n.ID)
	if err != nil {
		return h.storageError(c, err)
	}
	return c.JSON(fiber.Map{"members": members, "total": len(members)})
}

// NookAdmins handles GET /api/v1/nooks/:id/admins.
func (h *Handlers) NookAdmins(c *fiber.Ctx) error {
	n, err := h.memberNook(c)
	if err != nil {
		return err
	}

	admins, err := h.store.NookAdmins(c.UserContext(), n.ID)
	if err != nil {
		return h.storageError(c, err)
	}
	return c.JSON(fiber.Map{"admins": admins, "total": len(admins)})
}

// AddMembers handles POST /api/v1/nooks/:id/members. Added users are
// announced to live room subscribers through the event bus.
func (h *Handlers) AddMembers(c *fiber.Ctx) error {
	n, err := h.memberNook(c)
	if err != nil {
		return err
	}
	claims := currentClaims(c)

	var req AddMembersRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if len(req.UserIDs) == 0 {
		return badRequest(c, "user_ids is required")
	}

	added, err := h.store.AddNookMembers(c.UserContext(), n.ID, req.UserIDs)
	if err != nil {
		if errors.Is(err, storage.ErrNoNewMembers) {
			return badRequest(c, "All selected users are already members")
		}
		return h.storageError(c, err)
	}

	names := make([]string, len(added))
	for i, userID := range added {
		if account, err := h.store.UserByID(c.UserContext(), userID); err == nil {
			names[i] = account.Name
		}
	}
	h.publishMembersAdded(n.ID, claims.UserID, added, names)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"added": added, "total": len(added)})
}

// LeaveNook handles DELETE /api/v1/nooks/:id/members/me.
func (h *Handlers) LeaveNook(c *fiber.Ctx) error {
	n, err := h.memberNook(c)
	if err != nil {
		return err
	}
	claims := currentClaims(c)

	if err := h.store.RemoveNookMember(c.UserContext(), n.ID, claims.UserID); err != nil {
		return h.storageError(c, err)
	}
	return c.JSON(fiber.Map{"message": "left nook"})
}

// memberNook loads the nook from the :id param and verifies the caller's
// membership. Non-members get a 404 rather than a 403 so nook ids leak
// nothing.
func (h *Handlers) memberNook(c *fiber.Ctx) (*nook.Nook, error) {
	if err := h.requireStore(c); err != nil {
		return nil, err
	}
	claims := currentClaims(c)

	nookID := c.Params("id")
	if nookID == "" {
		return nil, badRequest(c, "Nook ID is required")
	}

	member, err := h.store.IsNookMember(c.UserContext(), nookID, claims.UserID)
	if err != nil {
		return nil, h.storageError(c, err)
	}
	if !member {
		return nil, notFound(c, "Nook not found")
	}

	n, err := h.store.NookByID(c.UserContext(), nookID)
	if err != nil {
		if errors.Is(err, storage.ErrNookNotFound) {
			return nil, notFound(c, "Nook not found")
		}
		return nil, h.storageError(c, err)
	}
	return n, nil
}

func (h *Handlers) publishMembersAdded(nookID, addedBy string, userIDs, userNames []string) {
	event := events.MembersAddedEvent{
		NookID:    nookID,
		AddedBy:   addedBy,
		UserIDs:   userIDs,
		UserNames: userNames,
		Timestamp: timeNow(),
	}
	if err := events.MembersAddedV1.Publish(h.eventBus, event, nil); err != nil {
		h.logger.Warn("failed to publish MembersAdded event", "nook_id", nookID, "error", err)
	}
}
