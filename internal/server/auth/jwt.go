// Package auth issues and verifies the stateless bearer tokens that identify
// an account between requests.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/any2json/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is used when the configuration does not override it.
const DefaultTokenTTL = 7 * 24 * time.Hour

var ErrEmptySecret = errors.New("token signing secret must not be empty")

// Claims carries the account identity in addition to the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"account_id"`
}

// TokenService signs tokens with HS256 and a process-wide secret.
// Tokens cannot be revoked before they expire.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService refuses an empty secret; a non-positive ttl selects DefaultTokenTTL.
func NewTokenService(secret []byte, ttl time.Duration) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: secret, ttl: ttl, now: time.Now}, nil
}

// WithClock replaces the time source.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue returns a signed token for accountID and its absolute expiry.
func (s *TokenService) Issue(accountID string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		AccountID: accountID,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify returns the account id carried by a valid token.
// Expired tokens with a valid signature yield common.ErrTokenExpired;
// every other failure yields common.ErrInvalidToken.
func (s *TokenService) Verify(tokenString string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.AccountID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.AccountID, nil
}
