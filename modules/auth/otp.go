package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// OTPTTL is how long a one-time code stays valid.
const OTPTTL = 5 * time.Minute

// otpBcryptCost keeps verification fast enough for a login flow while still
// making stored codes useless if the store leaks.
const otpBcryptCost = 10

var (
	// ErrOTPNotFound is returned when no code is pending for the identifier.
	ErrOTPNotFound = errors.New("no pending verification code")
	// ErrOTPExpired is returned when the pending code has expired.
	ErrOTPExpired = errors.New("verification code has expired")
	// ErrOTPMismatch is returned when the submitted code does not match.
	ErrOTPMismatch = errors.New("verification code does not match")
)

// OTPRecord is a pending one-time code, keyed by email or phone number.
// Only the bcrypt hash of the code is stored.
type OTPRecord struct {
	CodeHash  []byte    `json:"code_hash"`
	FullName  string    `json:"full_name,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OTPStore stores pending one-time codes. Implementations must expire
// records at or after the given TTL.
type OTPStore interface {
	Save(ctx context.Context, key string, record OTPRecord, ttl time.Duration) error
	Get(ctx context.Context, key string) (OTPRecord, error)
	Delete(ctx context.Context, key string) error
}

// GenerateOTP returns a random 6-digit numeric code.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// HashOTP hashes a one-time code for storage.
func HashOTP(code string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(code), otpBcryptCost)
}

// memoryOTPStore is the in-process default store. Expiry is checked lazily on
// read; Save overwrites any pending code for the same identifier.
type memoryOTPStore struct {
	mu      sync.Mutex
	records map[string]OTPRecord
}

// NewMemoryOTPStore creates an in-memory OTP store.
func NewMemoryOTPStore() OTPStore {
	return &memoryOTPStore{
		records: make(map[string]OTPRecord),
	}
}

func (s *memoryOTPStore) Save(_ context.Context, key string, record OTPRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.ExpiresAt = time.Now().Add(ttl)
	s.records[key] = record
	return nil
}

func (s *memoryOTPStore) Get(_ context.Context, key string) (OTPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok {
		return OTPRecord{}, ErrOTPNotFound
	}
	if time.Now().After(record.ExpiresAt) {
		delete(s.records, key)
		return OTPRecord{}, ErrOTPExpired
	}
	return record, nil
}

func (s *memoryOTPStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}
