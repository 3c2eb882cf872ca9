// ABOUTME: User verification credentials for the messaging service
// ABOUTME: Mints and validates HS256 JWTs supplied when the service requests verification

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// defaultTokenTTL bounds how long a minted verification credential is valid.
const defaultTokenTTL = 15 * time.Minute

// CredentialProvider mints user verification tokens for the messaging
// service. When the deployment requires verification, the client's
// verification handler calls Token to obtain a signed credential.
type CredentialProvider struct {
	secret []byte
	ttl    time.Duration
}

// NewCredentialProvider creates a provider signing with the given secret.
// A non-positive ttl falls back to the default.
func NewCredentialProvider(secret []byte, ttl time.Duration) *CredentialProvider {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &CredentialProvider{secret: secret, ttl: ttl}
}

// Token creates a signed HS256 credential for the given subject.
func (p *CredentialProvider) Token(subject string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(p.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("signing credential: %w", err)
	}

	return signed, nil
}

// Verify validates a credential and extracts the subject from the "sub" claim.
func (p *CredentialProvider) Verify(tokenString string) (subject string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	return sub, nil
}
