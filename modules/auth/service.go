package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/poornimasewak/nook/domain/user"
)

// ErrIdentifierRequired is returned when no email or phone number is given.
var ErrIdentifierRequired = errors.New("email or phone number is required")

// UserDirectory is the slice of the storage collaborator the auth flow needs.
// A nil directory puts the service in ephemeral mode: logins succeed with
// synthesized accounts that are not persisted anywhere.
type UserDirectory interface {
	FindOrCreateByEmail(ctx context.Context, email, name string) (*user.User, error)
	FindOrCreateByPhone(ctx context.Context, phoneNumber string) (*user.User, error)
	DeactivateUser(ctx context.Context, userID string) error
}

// Service implements passwordless OTP login and token issuance.
type Service struct {
	otps   OTPStore
	sender CodeSender
	jwt    *JWTManager
	users  UserDirectory
}

// NewService creates a new auth service.
func NewService(otps OTPStore, sender CodeSender, jwtManager *JWTManager, users UserDirectory) *Service {
	return &Service{
		otps:   otps,
		sender: sender,
		jwt:    jwtManager,
		users:  users,
	}
}

// JWT returns the token manager, used by transports to validate bearer tokens.
func (s *Service) JWT() *JWTManager {
	return s.jwt
}

// SendEmailOTP generates a code for the email address and hands it to the
// sender. Any previously pending code for the address is replaced.
func (s *Service) SendEmailOTP(ctx context.Context, email, fullName string) error {
	if email == "" {
		return ErrIdentifierRequired
	}

	code, err := s.storeCode(ctx, email, fullName)
	if err != nil {
		return err
	}
	return s.sender.SendEmailOTP(email, fullName, code)
}

// SendPhoneOTP generates a code for the phone number and hands it to the sender.
func (s *Service) SendPhoneOTP(ctx context.Context, phoneNumber string) error {
	if phoneNumber == "" {
		return ErrIdentifierRequired
	}

	code, err := s.storeCode(ctx, phoneNumber, "")
	if err != nil {
		return err
	}
	return s.sender.SendPhoneOTP(phoneNumber, code)
}

func (s *Service) storeCode(ctx context.Context, key, fullName string) (string, error) {
	code, err := GenerateOTP()
	if err != nil {
		return "", err
	}
	hash, err := HashOTP(code)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}
	if err := s.otps.Save(ctx, key, OTPRecord{CodeHash: hash, FullName: fullName}, OTPTTL); err != nil {
		return "", err
	}
	return code, nil
}

// consumeCode verifies the submitted code against the pending record and
// removes it on success. Codes are single use.
func (s *Service) consumeCode(ctx context.Context, key, code string) (OTPRecord, error) {
	record, err := s.otps.Get(ctx, key)
	if err != nil {
		return OTPRecord{}, err
	}
	if bcrypt.CompareHashAndPassword(record.CodeHash, []byte(code)) != nil {
		return OTPRecord{}, ErrOTPMismatch
	}
	if err := s.otps.Delete(ctx, key); err != nil {
		return OTPRecord{}, err
	}
	return record, nil
}

// VerifyEmailOTP checks the code, resolves or creates the account and issues
// a token pair. fullName overrides the name captured at send time.
func (s *Service) VerifyEmailOTP(ctx context.Context, email, code, fullName string) (*LoginResult, error) {
	if email == "" || code == "" {
		return nil, ErrIdentifierRequired
	}

	record, err := s.consumeCode(ctx, email, code)
	if err != nil {
		return nil, err
	}

	name := fullName
	if name == "" {
		name = record.FullName
	}
	if name == "" {
		name = "User"
	}

	account, err := s.resolveEmailAccount(ctx, email, name)
	if err != nil {
		return nil, err
	}
	return s.issue(account, email, "")
}

// VerifyPhoneOTP checks the code for a phone login and issues a token pair.
func (s *Service) VerifyPhoneOTP(ctx context.Context, phoneNumber, code string) (*LoginResult, error) {
	if phoneNumber == "" || code == "" {
		return nil, ErrIdentifierRequired
	}

	if _, err := s.consumeCode(ctx, phoneNumber, code); err != nil {
		return nil, err
	}

	account, err := s.resolvePhoneAccount(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}
	return s.issue(account, "", phoneNumber)
}

func (s *Service) resolveEmailAccount(ctx context.Context, email, name string) (*user.User, error) {
	if s.users == nil {
		return ephemeralAccount(email, name), nil
	}
	account, err := s.users.FindOrCreateByEmail(ctx, email, name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account: %w", err)
	}
	return account, nil
}

func (s *Service) resolvePhoneAccount(ctx context.Context, phoneNumber string) (*user.User, error) {
	if s.users == nil {
		return ephemeralAccount(phoneNumber, "User"), nil
	}
	account, err := s.users.FindOrCreateByPhone(ctx, phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account: %w", err)
	}
	return account, nil
}

func ephemeralAccount(identifier, name string) *user.User {
	now := time.Now()
	return &user.User{
		ID:        fmt.Sprintf("user_%d", now.UnixMilli()),
		Name:      name,
		Email:     identifier,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Service) issue(account *user.User, email, phoneNumber string) (*LoginResult, error) {
	access, err := s.jwt.GenerateAccessToken(account.ID, email, phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(account.ID, email, phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &LoginResult{
		User: *account,
		Tokens: TokenPair{
			AccessToken:  access,
			RefreshToken: refresh,
			ExpiresIn:    s.jwt.AccessTokenDuration(),
			TokenType:    "Bearer",
		},
	}, nil
}

// Refresh validates a refresh token and issues a fresh token pair.
func (s *Service) Refresh(_ context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	access, err := s.jwt.GenerateAccessToken(claims.UserID, claims.Email, claims.PhoneNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(claims.UserID, claims.Email, claims.PhoneNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.jwt.AccessTokenDuration(),
		TokenType:    "Bearer",
	}, nil
}

// Deactivate marks the account inactive. Tokens already issued stay valid
// until expiry; the REST layer rejects inactive accounts on profile reads.
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	if s.users == nil {
		return nil
	}
	return s.users.DeactivateUser(ctx, userID)
}
