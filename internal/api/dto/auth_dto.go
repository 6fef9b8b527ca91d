package dto

import "github.com/kbalyzer/kbalyzer-api/internal/domain"

// LoginForm is the form-encoded password login payload.
type LoginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// Token is returned by both login steps.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// OTPSubmission carries a TOTP code.
type OTPSubmission struct {
	Code string `json:"code"`
}

// OTPFlowSubmission completes a 2FA login.
type OTPFlowSubmission struct {
	OTPSubmission
	AccessToken string `json:"access_token"`
}

// LogoutDetails confirms a logout.
type LogoutDetails struct {
	Message string `json:"message"`
}

// Health is the liveness payload.
type Health struct {
	Message string `json:"message"`
}

// NewToken projects an issued token.
func NewToken(t *domain.IssuedToken) Token {
	return Token{AccessToken: t.AccessToken, TokenType: string(t.Kind)}
}
