package api

import (
	"github.com/gofiber/fiber/v2"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

// NookMessages handles GET /api/v1/nooks/:id/messages?page=&limit=. Pages
// count backwards from the newest message; each page is returned in ascending
// timestamp order.
func (h *Handlers) NookMessages(c *fiber.Ctx) error {
	n, err := h.memberNook(c)
	if err != nil {
		return err
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", defaultPageLimit)
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	messages, hasMore, err := h.store.MessagesPage(c.UserContext(), n.ID, page, limit)
	if err != nil {
		return h.storageError(c, err)
	}
	return c.JSON(fiber.Map{
		"nook_id":  n.ID,
		"messages": messages,
		"page":     page,
		"has_more": hasMore,
	})
}
