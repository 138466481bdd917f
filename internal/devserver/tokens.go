package devserver

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	types "github.com/Jenaru0/dela-storefront/internal/domain"
)

var (
	errTokenRevoked   = errors.New("token revoked")
	errRenewalUnknown = errors.New("refresh token is invalid or expired")
)

type accessClaims struct {
	RoleID int `json:"role"`
	jwt.RegisteredClaims
}

type renewalRecord struct {
	userID    string
	expiresAt time.Time
}

// tokenIssuer signs HS256 access tokens and keeps opaque refresh tokens,
// rotating them on every renewal.
type tokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	renewalTTL time.Duration
	now        func() time.Time

	mu       sync.Mutex
	renewals map[string]renewalRecord
	revoked  map[string]time.Time
}

func newTokenIssuer(secret string, accessTTL, renewalTTL time.Duration, now func() time.Time) *tokenIssuer {
	return &tokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		renewalTTL: renewalTTL,
		now:        now,
		renewals:   map[string]renewalRecord{},
		revoked:    map[string]time.Time{},
	}
}

func (t *tokenIssuer) issue(user types.User) (types.TokenPair, error) {
	access, err := t.signAccess(user)
	if err != nil {
		return types.TokenPair{}, err
	}
	renewal := uuid.New().String()

	t.mu.Lock()
	t.renewals[renewal] = renewalRecord{userID: user.ID, expiresAt: t.now().Add(t.renewalTTL)}
	t.mu.Unlock()

	return types.TokenPair{
		AccessToken:  access,
		RenewalToken: renewal,
		ExpiresIn:    int(t.accessTTL / time.Second),
	}, nil
}

func (t *tokenIssuer) signAccess(user types.User) (string, error) {
	now := t.now()
	claims := accessClaims{
		RoleID: user.RoleID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

func (t *tokenIssuer) parseAccess(raw string) (*accessClaims, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	_, revoked := t.revoked[claims.ID]
	t.mu.Unlock()
	if revoked {
		return nil, errTokenRevoked
	}
	return claims, nil
}

// renew consumes a refresh token and returns the owning user id. The token
// cannot be used again.
func (t *tokenIssuer) renew(renewal string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.renewals[renewal]
	if !ok {
		return "", errRenewalUnknown
	}
	delete(t.renewals, renewal)
	if !t.now().Before(rec.expiresAt) {
		return "", errRenewalUnknown
	}
	return rec.userID, nil
}

// revoke drops the refresh token and blocks the access token until it would
// have expired anyway.
func (t *tokenIssuer) revoke(access, renewal string) {
	var claims accessClaims
	_, _, err := jwt.NewParser().ParseUnverified(access, &claims)

	t.mu.Lock()
	defer t.mu.Unlock()
	if renewal != "" {
		delete(t.renewals, renewal)
	}
	if err == nil && claims.ID != "" {
		expires := t.now().Add(t.accessTTL)
		if claims.ExpiresAt != nil {
			expires = claims.ExpiresAt.Time
		}
		t.revoked[claims.ID] = expires
	}
	now := t.now()
	for id, until := range t.revoked {
		if now.After(until) {
			delete(t.revoked, id)
		}
	}
}
