// Package share signs and verifies compare-list share links.
package share

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer     = "plantdoc"
	DefaultTTL = 7 * 24 * time.Hour
	maxIDs     = 4
)

var ErrInvalidToken = errors.New("invalid share token")

type claims struct {
	IDs []int `json:"ids"`
	jwt.RegisteredClaims
}

// Signer issues HS256 tokens carrying a list of disease ids.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a signer. An empty secret is replaced with random
// bytes, so tokens only verify within the same process.
func NewSigner(secret string) (*Signer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate share secret: %w", err)
		}
	}
	return &Signer{secret: key, now: time.Now}, nil
}

// Sign returns a token for ids that expires after ttl (DefaultTTL when zero).
func (s *Signer) Sign(ids []int, ttl time.Duration) (string, error) {
	if len(ids) == 0 {
		return "", errors.New("nothing to share")
	}
	if len(ids) > maxIDs {
		return "", fmt.Errorf("at most %d diseases can be shared", maxIDs)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := s.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		IDs: ids,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign share token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of token and returns its ids.
func (s *Signer) Verify(token string) ([]int, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if len(c.IDs) == 0 || len(c.IDs) > maxIDs {
		return nil, fmt.Errorf("%w: bad id list", ErrInvalidToken)
	}
	return c.IDs, nil
}
