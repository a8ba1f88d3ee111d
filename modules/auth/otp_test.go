package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestGenerateOTP(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		code, err := GenerateOTP()
		if err != nil {
			t.Fatalf("GenerateOTP() error = %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("GenerateOTP() = %q, want 6 digits", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("GenerateOTP() = %q contains non-digit", code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("GenerateOTP() produced the same code 20 times")
	}
}

func TestHashOTP(t *testing.T) {
	hash, err := HashOTP("123456")
	if err != nil {
		t.Fatalf("HashOTP() error = %v", err)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte("123456")); err != nil {
		t.Errorf("hash does not verify against the original code: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte("654321")); err == nil {
		t.Error("hash verified against a different code")
	}
}

func TestMemoryOTPStore_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryOTPStore()

	record := OTPRecord{CodeHash: []byte("hash"), FullName: "Ada"}
	if err := store.Save(ctx, "ada@example.com", record, OTPTTL); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Get(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.FullName != "Ada" {
		t.Errorf("Get().FullName = %q, want Ada", got.FullName)
	}

	if err := store.Delete(ctx, "ada@example.com"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "ada@example.com"); !errors.Is(err, ErrOTPNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrOTPNotFound", err)
	}
}

func TestMemoryOTPStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryOTPStore()

	if err := store.Save(ctx, "key", OTPRecord{CodeHash: []byte("hash")}, -time.Second); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := store.Get(ctx, "key"); !errors.Is(err, ErrOTPExpired) {
		t.Errorf("Get() expired error = %v, want ErrOTPExpired", err)
	}
	// The expired record is gone entirely on the next read.
	if _, err := store.Get(ctx, "key"); !errors.Is(err, ErrOTPNotFound) {
		t.Errorf("second Get() error = %v, want ErrOTPNotFound", err)
	}
}

func TestMemoryOTPStore_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryOTPStore()

	store.Save(ctx, "key", OTPRecord{CodeHash: []byte("old")}, OTPTTL)
	store.Save(ctx, "key", OTPRecord{CodeHash: []byte("new")}, OTPTTL)

	got, err := store.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got.CodeHash) != "new" {
		t.Errorf("Get().CodeHash = %q, want the replacement", got.CodeHash)
	}
}
