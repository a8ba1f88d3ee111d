package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/poornimasewak/nook/modules/auth"
)

// SendEmailOTP handles POST /api/v1/auth/email/send-otp.
func (h *Handlers) SendEmailOTP(c *fiber.Ctx) error {
	var req SendEmailOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Email == "" {
		return badRequest(c, "Email is required")
	}

	if err := h.auth.SendEmailOTP(c.UserContext(), req.Email, req.FullName); err != nil {
		return h.authError(c, err)
	}
	return c.JSON(fiber.Map{"message": "OTP sent"})
}

// VerifyEmailOTP handles POST /api/v1/auth/email/verify-otp.
func (h *Handlers) VerifyEmailOTP(c *fiber.Ctx) error {
	var req VerifyEmailOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Email == "" || req.Code == "" {
		return badRequest(c, "Email and code are required")
	}

	result, err := h.auth.VerifyEmailOTP(c.UserContext(), req.Email, req.Code, req.FullName)
	if err != nil {
		return h.authError(c, err)
	}
	return c.JSON(result)
}

// SendPhoneOTP handles POST /api/v1/auth/phone/send-otp.
func (h *Handlers) SendPhoneOTP(c *fiber.Ctx) error {
	var req SendPhoneOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.PhoneNumber == "" {
		return badRequest(c, "Phone number is required")
	}

	if err := h.auth.SendPhoneOTP(c.UserContext(), req.PhoneNumber); err != nil {
		return h.authError(c, err)
	}
	return c.JSON(fiber.Map{"message": "OTP sent"})
}

// VerifyPhoneOTP handles POST /api/v1/auth/phone/verify-otp.
func (h *Handlers) VerifyPhoneOTP(c *fiber.Ctx) error {
	var req VerifyPhoneOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.PhoneNumber == "" || req.Code == "" {
		return badRequest(c, "Phone number and code are required")
	}

	result, err := h.auth.VerifyPhoneOTP(c.UserContext(), req.PhoneNumber, req.Code)
	if err != nil {
		return h.authError(c, err)
	}
	return c.JSON(result)
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.RefreshToken == "" {
		return badRequest(c, "Refresh token is required")
	}

	tokens, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return h.authError(c, err)
	}
	return c.JSON(tokens)
}

// Logout handles POST /api/v1/auth/logout. Tokens are stateless, so this is
// an acknowledgement the client uses to discard its pair.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "logged out"})
}

// DeactivateAccount handles DELETE /api/v1/auth/account.
func (h *Handlers) DeactivateAccount(c *fiber.Ctx) error {
	claims := currentClaims(c)
	if err := h.auth.Deactivate(c.UserContext(), claims.UserID); err != nil {
		return h.authError(c, err)
	}
	return c.JSON(fiber.Map{"message": "account deactivated"})
}

// authError maps auth service errors onto HTTP statuses.
func (h *Handlers) authError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrOTPNotFound), errors.Is(err, auth.ErrOTPExpired):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "otp_expired",
			Message: "Code expired or not found, request a new one",
		})
	case errors.Is(err, auth.ErrOTPMismatch):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "otp_invalid",
			Message: "Incorrect code",
		})
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired token",
		})
	case errors.Is(err, auth.ErrIdentifierRequired):
		return badRequest(c, "An email or phone number is required")
	default:
		h.logger.Error("auth request failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal",
			Message: "Something went wrong",
		})
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "bad_request",
		Message: msg,
	})
}
