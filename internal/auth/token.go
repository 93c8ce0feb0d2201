package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/patric-chuzhbe/contactkeeper/internal/models"
)

// ClaimsUser is the identity embedded in a token.
type ClaimsUser struct {
	ID string `json:"id"`
}

// Claims is the JWT payload: `{"user":{"id":...},"iat":...,"exp":...}`.
type Claims struct {
	jwt.RegisteredClaims
	User ClaimsUser `json:"user"`
}

// TokenService issues and verifies HMAC-signed identity tokens.
// The signing key is fixed for the lifetime of the service.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret []byte, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for userID that expires after the configured TTL.
func (s *TokenService) Issue(userID string) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		User: ClaimsUser{ID: userID},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("in internal/auth/token.go/Issue(): error while `SignedString()` calling: %w", err)
	}

	return tokenString, nil
}

// Verify returns the subject of a valid token. Malformed, tampered and expired
// tokens all yield models.ErrInvalidToken.
func (s *TokenService) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.secret, nil
		},
	)
	if err != nil || !token.Valid || claims.User.ID == "" {
		return "", models.ErrInvalidToken
	}

	return claims.User.ID, nil
}
