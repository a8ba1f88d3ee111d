package auth

import "github.com/poornimasewak/nook/domain/user"

// TokenPair represents issued access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// LoginResult is returned after a successful OTP verification.
type LoginResult struct {
	User   user.User `json:"user"`
	Tokens TokenPair `json:"tokens"`
}
