package domain

// TokenKind differentiates the intermediate 2FA token from a full session token.
type TokenKind string

const (
	// TokenKindTOTP proves the password was correct but the second factor is still pending.
	TokenKindTOTP TokenKind = "totp"
	// TokenKindBearer is a fully authenticated session token.
	TokenKindBearer TokenKind = "bearer"
)

// IssuedToken is handed to the client after a login step.
type IssuedToken struct {
	AccessToken string
	Kind        TokenKind
}
