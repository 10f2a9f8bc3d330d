package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for tokens that fail signature, issuer or expiry checks.
var ErrInvalidToken = errors.New("invalid access token")

// ErrRevokedToken is returned for tokens ended by sign out or profile deletion.
var ErrRevokedToken = fmt.Errorf("%w: token revoked", ErrInvalidToken)

const tokenIssuer = "visionauth"

// Claims identifies the enrolled profile an access token was issued for.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// TokenIssuer signs short-lived HS256 access tokens and remembers revocations
// until the affected tokens would have expired anyway.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu              sync.Mutex
	revokedIDs      map[string]time.Time // token id -> expiry
	revokedSubjects map[string]time.Time // profile id -> last expiry of any token issued so far
}

func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:          secret,
		ttl:             ttl,
		now:             time.Now,
		revokedIDs:      make(map[string]time.Time),
		revokedSubjects: make(map[string]time.Time),
	}
}

// Issue returns a signed token for the profile.
func (t *TokenIssuer) Issue(profile *UserProfile) (string, error) {
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   profile.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Email: profile.Email,
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate parses a token and returns its claims. Revoked tokens are rejected.
func (t *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, t.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if t.revoked(claims) {
		return nil, ErrRevokedToken
	}
	return claims, nil
}

// Revoke ends a single token. Tokens with a bad signature are ignored.
func (t *TokenIssuer) Revoke(tokenString string) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, t.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || claims.ID == "" {
		return
	}

	expiry := t.now().Add(t.ttl)
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked()
	t.revokedIDs[claims.ID] = expiry
}

// RevokeSubject ends every token issued so far for a profile.
func (t *TokenIssuer) RevokeSubject(subject string) {
	if subject == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked()
	t.revokedSubjects[subject] = t.now().Add(t.ttl)
}

func (t *TokenIssuer) revoked(claims *Claims) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.revokedIDs[claims.ID]; ok {
		return true
	}
	_, ok := t.revokedSubjects[claims.Subject]
	return ok
}

// pruneLocked forgets revocations whose tokens have expired.
func (t *TokenIssuer) pruneLocked() {
	now := t.now()
	for id, expiry := range t.revokedIDs {
		if now.After(expiry) {
			delete(t.revokedIDs, id)
		}
	}
	for subject, until := range t.revokedSubjects {
		if now.After(until) {
			delete(t.revokedSubjects, subject)
		}
	}
}

func (t *TokenIssuer) key(*jwt.Token) (any, error) {
	return t.secret, nil
}
