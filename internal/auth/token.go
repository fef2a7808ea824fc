package auth

import (
	"crypto/hmac"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultSessionTTL is the lifetime of a freshly issued session token.
	DefaultSessionTTL = 7 * 24 * time.Hour
	// DefaultIssuer is written to and required in the iss claim.
	DefaultIssuer = "snipvault"
	// MinSecretLength is the minimum signing secret size in bytes.
	MinSecretLength = 32
	// MaxTokenLength bounds the input accepted by Decode.
	MaxTokenLength = 4096
)

var (
	// ErrTokenInvalid is the parent of every decode failure.
	ErrTokenInvalid = errors.New("invalid session token")
	// ErrTokenMalformed indicates the token is not a well-formed signed token.
	ErrTokenMalformed = fmt.Errorf("%w: malformed", ErrTokenInvalid)
	// ErrTokenBadSignature indicates the signature does not match the content.
	ErrTokenBadSignature = fmt.Errorf("%w: bad signature", ErrTokenInvalid)
	// ErrTokenExpired indicates the token's expiry has passed.
	ErrTokenExpired = fmt.Errorf("%w: expired", ErrTokenInvalid)

	// ErrWeakSecret indicates the signing secret is too short.
	ErrWeakSecret = fmt.Errorf("session secret must be at least %d bytes", MinSecretLength)
	// ErrEmptySubject indicates Issue was called without a user ID.
	ErrEmptySubject = errors.New("token subject must not be empty")
	// ErrInvalidTTL indicates a negative lifetime was requested.
	ErrInvalidTTL = errors.New("token ttl must not be negative")
)

// TokenCodec issues and verifies HS256 session tokens bound to a single
// process-wide secret. It is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// TokenOption configures a TokenCodec.
type TokenOption func(*TokenCodec)

// WithClock overrides the time source used for issuance and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIssuer overrides the issuer claim.
func WithIssuer(issuer string) TokenOption {
	return func(c *TokenCodec) {
		if issuer != "" {
			c.issuer = issuer
		}
	}
}

// NewTokenCodec creates a codec. The secret is copied.
func NewTokenCodec(secret []byte, opts ...TokenOption) (*TokenCodec, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}

	c := &TokenCodec{
		secret: append([]byte(nil), secret...),
		issuer: DefaultIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Expiry is checked by Decode against the injected clock.
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	return c, nil
}

// Issue returns a signed token for userID that expires ttl from now,
// together with the expiry instant embedded in it.
func (c *TokenCodec) Issue(userID string, ttl time.Duration) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, ErrEmptySubject
	}
	if ttl < 0 {
		return "", time.Time{}, ErrInvalidTTL
	}

	now := c.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    c.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Decode verifies token and returns the user ID it was issued for.
//
// Checks run in order: structure, signature, claims, expiry. The first
// failure decides the returned error, which always wraps ErrTokenInvalid.
func (c *TokenCodec) Decode(token string) (string, error) {
	if len(token) == 0 || len(token) > MaxTokenLength {
		return "", ErrTokenMalformed
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", ErrTokenMalformed
	}

	// Compare encoded signatures so that any altered character fails here,
	// including trailing base64 bits a lenient decoder would ignore.
	want, err := jwt.SigningMethodHS256.Sign(parts[0]+"."+parts[1], c.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if !hmac.Equal([]byte(base64.RawURLEncoding.EncodeToString(want)), []byte(parts[2])) {
		return "", ErrTokenBadSignature
	}

	var claims jwt.RegisteredClaims
	if _, err := c.parser.ParseWithClaims(token, &claims, c.keyFunc); err != nil {
		return "", ErrTokenMalformed
	}
	if claims.Subject == "" || claims.ExpiresAt == nil || claims.Issuer != c.issuer {
		return "", ErrTokenMalformed
	}

	if !c.now().Before(claims.ExpiresAt.Time) {
		return "", ErrTokenExpired
	}
	return claims.Subject, nil
}

func (c *TokenCodec) keyFunc(t *jwt.Token) (any, error) {
	return c.secret, nil
}
