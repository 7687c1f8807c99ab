package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidState is returned for a state that is malformed, forged or expired.
var ErrInvalidState = errors.New("auth: invalid oauth state")

const stateIssuer = "keap-console"

// StateSigner issues and checks the OAuth `state` parameter as a short-lived
// HMAC-signed JWT, so the callback can be verified without server storage.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStateSigner returns a signer; ttl defaults to 10 minutes.
func NewStateSigner(secret string, ttl time.Duration) *StateSigner {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is how long an issued state stays valid.
func (s *StateSigner) TTL() time.Duration { return s.ttl }

// Issue returns a new signed state value.
func (s *StateSigner) Issue() (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("auth: state secret not configured")
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    stateIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign state: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer and expiry.
func (s *StateSigner) Verify(state string) error {
	if state == "" {
		return ErrInvalidState
	}
	tok, err := jwt.ParseWithClaims(state, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return nil
}
