package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies access and refresh tokens. The two kinds use
// separate secrets so one can never be replayed as the other.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

func (i *Issuer) AccessTTL() time.Duration  { return i.accessTTL }
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

func (i *Issuer) Access(userID string) (string, error) {
	return i.sign(userID, TypeAccess, i.accessTTL, i.accessSecret)
}

// Refresh returns a signed refresh token and its expiry.
func (i *Issuer) Refresh(userID string) (string, time.Time, error) {
	exp := i.now().Add(i.refreshTTL)
	tok, err := i.sign(userID, TypeRefresh, i.refreshTTL, i.refreshSecret)
	return tok, exp, err
}

func (i *Issuer) sign(userID, typ string, ttl time.Duration, secret []byte) (string, error) {
	now := i.now()
	claims := &Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAccess returns the user id of a valid access token.
func (i *Issuer) VerifyAccess(token string) (string, error) {
	return i.verify(token, TypeAccess, i.accessSecret)
}

func (i *Issuer) VerifyRefresh(token string) (string, error) {
	return i.verify(token, TypeRefresh, i.refreshSecret)
}

func (i *Issuer) verify(token, typ string, secret []byte) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	if claims.Type != typ {
		return "", fmt.Errorf("%w: wrong token type %q", ErrInvalidToken, claims.Type)
	}
	return claims.Subject, nil
}

// Hash is how refresh tokens are stored: hex sha256 of the token string.
func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
