package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/poornimasewak/nook/modules/auth"
)

func testJWTManager() *auth.JWTManager {
	return auth.NewJWTManager(auth.JWTConfig{
		SecretKey:            "test-secret-key",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: time.Hour,
		Issuer:               "test-issuer",
	})
}

func TestAuthMiddleware(t *testing.T) {
	manager := testJWTManager()

	validToken, err := manager.GenerateAccessToken("user-123", "ada@example.com", "")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	refreshToken, err := manager.GenerateRefreshToken("user-123", "ada@example.com", "")
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}

	tests := []struct {
		name           string
		authHeader     string
		query          string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "missing authorization header",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `Authorization header is required`,
		},
		{
			name:           "invalid authorization format",
			authHeader:     "Basic token123",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `unauthorized`,
		},
		{
			name:           "invalid token",
			authHeader:     "Bearer not-a-token",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `Invalid or expired token`,
		},
		{
			name:           "refresh token rejected as access token",
			authHeader:     "Bearer " + refreshToken,
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `Invalid or expired token`,
		},
		{
			name:           "valid bearer token",
			authHeader:     "Bearer " + validToken,
			expectedStatus: http.StatusOK,
			expectedBody:   `user-123`,
		},
		{
			name:           "valid token via query parameter",
			query:          "?token=" + validToken,
			expectedStatus: http.StatusOK,
			expectedBody:   `user-123`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/protected", AuthMiddleware(manager), func(c *fiber.Ctx) error {
				claims := currentClaims(c)
				return c.JSON(fiber.Map{"user_id": claims.UserID})
			})

			req := httptest.NewRequest(http.MethodGet, "/protected"+tt.query, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.expectedStatus)
			}
			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), tt.expectedBody) {
				t.Errorf("body = %s, want it to contain %q", body, tt.expectedBody)
			}
		})
	}
}

func TestInviteCodeAlphabet(t *testing.T) {
	for i := 0; i < 10; i++ {
		code := newInviteCode()
		if len(code) != 8 {
			t.Fatalf("newInviteCode() = %q, want 8 characters", code)
		}
		for _, r := range code {
			if !strings.ContainsRune(inviteAlphabet, r) {
				t.Fatalf("newInviteCode() = %q contains %q outside the alphabet", code, r)
			}
		}
	}
}
