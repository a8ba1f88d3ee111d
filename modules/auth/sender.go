package auth

import (
	"log"
	"strings"
)

// CodeSender delivers a one-time code to the user.
type CodeSender interface {
	SendEmailOTP(email, fullName, code string) error
	SendPhoneOTP(phoneNumber, code string) error
}

// ConsoleSender logs codes instead of delivering them. Real email/SMS
// delivery is out of scope; swap in a provider-backed implementation to go
// to production.
type ConsoleSender struct{}

// NewConsoleSender creates a console-logging code sender.
func NewConsoleSender() *ConsoleSender {
	return &ConsoleSender{}
}

// SendEmailOTP logs the code that would be emailed.
func (ConsoleSender) SendEmailOTP(email, fullName, code string) error {
	rule := strings.Repeat("=", 60)
	log.Printf("\n%s\nEMAIL OTP VERIFICATION\nTo: %s\nName: %s\nCode: %s\nExpires in: %s\n%s\n",
		rule, email, fullName, code, OTPTTL, rule)
	return nil
}

// SendPhoneOTP logs the code that would be texted.
func (ConsoleSender) SendPhoneOTP(phoneNumber, code string) error {
	rule := strings.Repeat("=", 60)
	log.Printf("\n%s\nSMS OTP VERIFICATION\nTo: %s\nCode: %s\nExpires in: %s\n%s\n",
		rule, phoneNumber, code, OTPTTL, rule)
	return nil
}
