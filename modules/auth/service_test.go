package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/poornimasewak/nook/domain/user"
)

// captureSender records the last code handed to it instead of delivering it.
type captureSender struct {
	lastEmail string
	lastPhone string
	lastCode  string
}

func (s *captureSender) SendEmailOTP(email, _, code string) error {
	s.lastEmail = email
	s.lastCode = code
	return nil
}

func (s *captureSender) SendPhoneOTP(phoneNumber, code string) error {
	s.lastPhone = phoneNumber
	s.lastCode = code
	return nil
}

// fakeDirectory is an in-memory UserDirectory.
type fakeDirectory struct {
	byEmail     map[string]*user.User
	byPhone     map[string]*user.User
	deactivated []string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		byEmail: make(map[string]*user.User),
		byPhone: make(map[string]*user.User),
	}
}

func (d *fakeDirectory) FindOrCreateByEmail(_ context.Context, email, name string) (*user.User, error) {
	if existing, ok := d.byEmail[email]; ok {
		return existing, nil
	}
	account := &user.User{ID: "id-" + email, Name: name, Email: email, IsActive: true}
	d.byEmail[email] = account
	return account, nil
}

func (d *fakeDirectory) FindOrCreateByPhone(_ context.Context, phoneNumber string) (*user.User, error) {
	if existing, ok := d.byPhone[phoneNumber]; ok {
		return existing, nil
	}
	account := &user.User{ID: "id-" + phoneNumber, Name: "User", PhoneNumber: phoneNumber, IsActive: true}
	d.byPhone[phoneNumber] = account
	return account, nil
}

func (d *fakeDirectory) DeactivateUser(_ context.Context, userID string) error {
	d.deactivated = append(d.deactivated, userID)
	return nil
}

func newTestService(users UserDirectory) (*Service, *captureSender) {
	sender := &captureSender{}
	return NewService(NewMemoryOTPStore(), sender, NewJWTManager(testJWTConfig()), users), sender
}

func TestService_EmailOTPLoginFlow(t *testing.T) {
	ctx := context.Background()
	directory := newFakeDirectory()
	service, sender := newTestService(directory)

	if err := service.SendEmailOTP(ctx, "ada@example.com", "Ada"); err != nil {
		t.Fatalf("SendEmailOTP() error = %v", err)
	}
	if sender.lastEmail != "ada@example.com" || sender.lastCode == "" {
		t.Fatalf("sender got email=%q code=%q", sender.lastEmail, sender.lastCode)
	}

	result, err := service.VerifyEmailOTP(ctx, "ada@example.com", sender.lastCode, "")
	if err != nil {
		t.Fatalf("VerifyEmailOTP() error = %v", err)
	}
	if result.User.Email != "ada@example.com" || result.User.Name != "Ada" {
		t.Errorf("result.User = %+v, want Ada's account", result.User)
	}
	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Error("VerifyEmailOTP() returned empty tokens")
	}
	if result.Tokens.TokenType != "Bearer" {
		t.Errorf("TokenType = %q, want Bearer", result.Tokens.TokenType)
	}

	claims, err := service.JWT().ValidateAccessToken(result.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if claims.UserID != result.User.ID {
		t.Errorf("claims.UserID = %q, want %q", claims.UserID, result.User.ID)
	}
}

func TestService_VerifyRejectsWrongCode(t *testing.T) {
	ctx := context.Background()
	service, sender := newTestService(newFakeDirectory())

	if err := service.SendEmailOTP(ctx, "ada@example.com", "Ada"); err != nil {
		t.Fatalf("SendEmailOTP() error = %v", err)
	}

	wrong := "000000"
	if wrong == sender.lastCode {
		wrong = "000001"
	}
	if _, err := service.VerifyEmailOTP(ctx, "ada@example.com", wrong, ""); !errors.Is(err, ErrOTPMismatch) {
		t.Errorf("VerifyEmailOTP(wrong code) error = %v, want ErrOTPMismatch", err)
	}

	// A failed attempt does not consume the pending code.
	if _, err := service.VerifyEmailOTP(ctx, "ada@example.com", sender.lastCode, ""); err != nil {
		t.Errorf("VerifyEmailOTP(correct code after miss) error = %v", err)
	}
}

func TestService_CodesAreSingleUse(t *testing.T) {
	ctx := context.Background()
	service, sender := newTestService(newFakeDirectory())

	if err := service.SendEmailOTP(ctx, "ada@example.com", "Ada"); err != nil {
		t.Fatalf("SendEmailOTP() error = %v", err)
	}
	if _, err := service.VerifyEmailOTP(ctx, "ada@example.com", sender.lastCode, ""); err != nil {
		t.Fatalf("first VerifyEmailOTP() error = %v", err)
	}
	if _, err := service.VerifyEmailOTP(ctx, "ada@example.com", sender.lastCode, ""); !errors.Is(err, ErrOTPNotFound) {
		t.Errorf("second VerifyEmailOTP() error = %v, want ErrOTPNotFound", err)
	}
}

func TestService_VerifyWithoutPendingCode(t *testing.T) {
	service, _ := newTestService(newFakeDirectory())

	if _, err := service.VerifyEmailOTP(context.Background(), "ada@example.com", "123456", ""); !errors.Is(err, ErrOTPNotFound) {
		t.Errorf("VerifyEmailOTP() error = %v, want ErrOTPNotFound", err)
	}
}

func TestService_PhoneOTPLoginFlow(t *testing.T) {
	ctx := context.Background()
	directory := newFakeDirectory()
	service, sender := newTestService(directory)

	if err := service.SendPhoneOTP(ctx, "+15550001111"); err != nil {
		t.Fatalf("SendPhoneOTP() error = %v", err)
	}
	result, err := service.VerifyPhoneOTP(ctx, "+15550001111", sender.lastCode)
	if err != nil {
		t.Fatalf("VerifyPhoneOTP() error = %v", err)
	}
	if result.User.PhoneNumber != "+15550001111" {
		t.Errorf("result.User.PhoneNumber = %q, want the login number", result.User.PhoneNumber)
	}
}

func TestService_EphemeralModeWithoutDirectory(t *testing.T) {
	ctx := context.Background()
	service, sender := newTestService(nil)

	if err := service.SendEmailOTP(ctx, "ada@example.com", "Ada"); err != nil {
		t.Fatalf("SendEmailOTP() error = %v", err)
	}
	result, err := service.VerifyEmailOTP(ctx, "ada@example.com", sender.lastCode, "")
	if err != nil {
		t.Fatalf("VerifyEmailOTP() error = %v", err)
	}
	if result.User.ID == "" {
		t.Error("ephemeral account has no id")
	}
	if result.User.Name != "Ada" {
		t.Errorf("ephemeral account name = %q, want Ada", result.User.Name)
	}

	// Deactivation is a no-op without a directory.
	if err := service.Deactivate(ctx, result.User.ID); err != nil {
		t.Errorf("Deactivate() error = %v", err)
	}
}

func TestService_Refresh(t *testing.T) {
	ctx := context.Background()
	service, sender := newTestService(newFakeDirectory())

	if err := service.SendEmailOTP(ctx, "ada@example.com", "Ada"); err != nil {
		t.Fatalf("SendEmailOTP() error = %v", err)
	}
	result, err := service.VerifyEmailOTP(ctx, "ada@example.com", sender.lastCode, "")
	if err != nil {
		t.Fatalf("VerifyEmailOTP() error = %v", err)
	}

	pair, err := service.Refresh(ctx, result.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	claims, err := service.JWT().ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if claims.UserID != result.User.ID {
		t.Errorf("refreshed claims.UserID = %q, want %q", claims.UserID, result.User.ID)
	}

	// An access token is not accepted as a refresh token.
	if _, err := service.Refresh(ctx, result.Tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Refresh(access token) error = %v, want ErrInvalidToken", err)
	}
}

func TestService_SendRequiresIdentifier(t *testing.T) {
	service, _ := newTestService(nil)

	if err := service.SendEmailOTP(context.Background(), "", "Ada"); !errors.Is(err, ErrIdentifierRequired) {
		t.Errorf("SendEmailOTP(empty) error = %v, want ErrIdentifierRequired", err)
	}
	if err := service.SendPhoneOTP(context.Background(), ""); !errors.Is(err, ErrIdentifierRequired) {
		t.Errorf("SendPhoneOTP(empty) error = %v, want ErrIdentifierRequired", err)
	}
}

func TestService_DeactivateUsesDirectory(t *testing.T) {
	directory := newFakeDirectory()
	service, _ := newTestService(directory)

	if err := service.Deactivate(context.Background(), "user-1"); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if len(directory.deactivated) != 1 || directory.deactivated[0] != "user-1" {
		t.Errorf("deactivated = %v, want [user-1]", directory.deactivated)
	}
}
