package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/poornimasewak/nook/events"
	"github.com/poornimasewak/nook/modules/storage"
)

const searchLimit = 20

// Me handles GET /api/v1/users/me.
func (h *Handlers) Me(c *fiber.Ctx) error {
	if err := h.requireStore(c); err != nil {
		return err
	}
	claims := currentClaims(c)

	account, err := h.store.UserByID(c.UserContext(), claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return notFound(c, "User not found")
		}
		return h.storageError(c, err)
	}
	return c.JSON(account)
}

// UpdateProfile handles PUT /api/v1/users/me. A name change is pushed to the
// relay so live presence rosters pick it up.
func (h *Handlers) UpdateProfile(c *fiber.Ctx) error {
	if err := h.requireStore(c); err != nil {
		return err
	}
	claims := currentClaims(c)

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return badRequest(c, "Name cannot be empty")
	}
	if req.Name == nil && req.DisplayPicture == nil {
		return badRequest(c, "Nothing to update")
	}

	account, err := h.store.UpdateUserProfile(c.UserContext(), claims.UserID, req.Name, req.DisplayPicture)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return notFound(c, "User not found")
		}
		return h.storageError(c, err)
	}

	if req.Name != nil {
		h.publishProfileUpdated(claims.UserID, account.Name)
	}
	return c.JSON(account)
}

// SearchUsers handles GET /api/v1/users/search?q=.
func (h *Handlers) SearchUsers(c *fiber.Ctx) error {
	if err := h.requireStore(c); err != nil {
		return err
	}
	claims := currentClaims(c)

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return badRequest(c, "Search query is required")
	}

	users, err := h.store.SearchUsers(c.UserContext(), query, claims.UserID, searchLimit)
	if err != nil {
		return h.storageError(c, err)
	}
	return c.JSON(fiber.Map{"users": users, "total": len(users)})
}

// Friends handles GET /api/v1/users/friends.
func (h *Handlers) Friends(c *fiber.Ctx) error {
	if err := h.requireStore(c); err != nil {
		return err
	}
	claims := currentClaims(c)

	friends, err := h.store.Friends(c.UserContext(), claims.UserID)
	if err != nil {
		return h.storageError(c, err)
	}
	return c.JSON(fiber.Map{"friends": friends, "total": len(friends)})
}

// AddFriend handles POST /api/v1/users/friends.
func (h *Handlers) AddFriend(c *fiber.Ctx) error {
	if err := h.requireStore(c); err != nil {
		return err
	}
	claims := currentClaims(c)

	var req AddFriendRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.FriendID == "" {
		return badRequest(c, "friend_id is required")
	}
	if req.FriendID == claims.UserID {
		return badRequest(c, "Cannot add yourself as a friend")
	}

	if _, err := h.store.UserByID(c.UserContext(), req.FriendID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return notFound(c, "User not found")
		}
		return h.storageError(c, err)
	}
	if err := h.store.AddFriend(c.UserContext(), claims.UserID, req.FriendID); err != nil {
		return h.storageError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "friend added"})
}

// CreateInvite handles POST /api/v1/users/invite.
func (h *Handlers) CreateInvite(c *fiber.Ctx) error {
	return c.Status(fiber.StatusCreated).JSON(InviteResponse{Code: newInviteCode()})
}

func (h *Handlers) publishProfileUpdated(userID, name string) {
	event := events.ProfileUpdatedEvent{
		UserID:    userID,
		Name:      name,
		Timestamp: timeNow(),
	}
	if err := events.ProfileUpdatedV1.Publish(h.eventBus, event, nil); err != nil {
		h.logger.Warn("failed to publish ProfileUpdated event", "user_id", userID, "error", err)
	}
}
