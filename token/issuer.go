package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/storefront-admin/internal/errors"
	"github.com/jrsteele09/storefront-admin/users"
)

const (
	defaultAccessTokenExpiry = 1 * time.Hour
	refreshTokenLength       = 32 // 32 bytes = 256 bits
)

// Claims are the access token claims issued to storefront users
type Claims struct {
	Email string         `json:"email"`
	Role  users.RoleType `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs HS256 access tokens and mints opaque refresh tokens.
type Issuer struct {
	secret            []byte
	issuer            string
	accessTokenExpiry time.Duration
	nowFunc           func() time.Time
}

type IssuerOption func(*Issuer)

func WithAccessTokenExpiry(expiry time.Duration) IssuerOption {
	return func(i *Issuer) {
		i.accessTokenExpiry = expiry
	}
}

func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

func NewIssuer(secret, issuer string, options ...IssuerOption) *Issuer {
	i := &Issuer{
		secret:            []byte(secret),
		issuer:            issuer,
		accessTokenExpiry: defaultAccessTokenExpiry,
		nowFunc:           time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i
}

// Issue creates a signed access token and a random refresh token for the profile
func (i *Issuer) Issue(profile users.Profile) (accessToken string, refreshToken string, err error) {
	now := i.nowFunc()
	claims := Claims{
		Email: profile.Email,
		Role:  profile.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   strconv.FormatInt(profile.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTokenExpiry)),
			ID:        uuid.New().String(),
		},
	}

	accessToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", "", fmt.Errorf("[Issuer Issue] failed to sign access token: %w", err)
	}

	refreshBytes := make([]byte, refreshTokenLength)
	if _, err := rand.Read(refreshBytes); err != nil {
		return "", "", fmt.Errorf("[Issuer Issue] failed to generate refresh token: %w", err)
	}
	return accessToken, hex.EncodeToString(refreshBytes), nil
}

// Verify checks the signature and expiry of an access token
func (i *Issuer) Verify(rawToken string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.nowFunc), jwt.WithIssuer(i.issuer))
	if err != nil {
		if apperrors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.Wrapf(apperrors.ErrTokenExpired, "[Issuer Verify]")
		}
		return nil, fmt.Errorf("[Issuer Verify] %w: %v", apperrors.ErrInvalidToken, err)
	}
	return claims, nil
}

// UserID returns the numeric subject of the claims
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}
