package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken is returned when no bearer credential accompanies a request.
	ErrMissingToken = errors.New("authorization required")
	// ErrInvalidToken is returned for malformed, tampered, or expired credentials.
	ErrInvalidToken = errors.New("invalid token")
)

// Service signs and verifies user authentication tokens against a shared secret.
type Service struct {
	secret     []byte
	tokenTTL   time.Duration
	headerName string
}

// NewService constructs an auth service with the supplied secret and token lifetime.
func NewService(secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		secret:     []byte(secret),
		tokenTTL:   ttl,
		headerName: "Authorization",
	}
}

// Issue mints a signed token embedding the user id, expiring after the
// configured lifetime.
func (s *Service) Issue(userID int64) (string, error) {
	if userID <= 0 {
		return "", errors.New("invalid user id")
	}
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks an Authorization header value and returns the embedded user
// id. It performs no I/O; the outcome depends only on the credential, the
// shared secret, and the clock. An absent header is a missing credential; a
// present header that is not of the form "Bearer <token>" is an invalid one.
func (s *Service) Verify(authHeader string) (int64, error) {
	if strings.TrimSpace(authHeader) == "" {
		return 0, ErrMissingToken
	}
	raw := extractBearer(authHeader)
	if raw == "" {
		return 0, ErrInvalidToken
	}
	return s.VerifyToken(raw)
}

// VerifyToken validates a bare token string without the Bearer prefix.
func (s *Service) VerifyToken(raw string) (int64, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrInvalidToken
	}
	return userID, nil
}

// TokenTTL reports the configured token lifetime.
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}

func extractBearer(header string) string {
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
