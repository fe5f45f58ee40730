package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Pair is the access/refresh token pair held by a session. The refresh token is
// stored alongside the access token but is never exchanged for a new one.
type Pair struct {
	token *oauth2.Token
}

// NewPair builds a Pair. When the access token is a JWT its exp claim becomes the
// pair's expiry; opaque tokens carry no expiry and never expire locally.
func NewPair(accessToken, refreshToken string) Pair {
	return Pair{token: &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		Expiry:       accessTokenExpiry(accessToken),
	}}
}

func (p Pair) AccessToken() string {
	if p.token == nil {
		return ""
	}
	return p.token.AccessToken
}

func (p Pair) RefreshToken() string {
	if p.token == nil {
		return ""
	}
	return p.token.RefreshToken
}

func (p Pair) Expiry() time.Time {
	if p.token == nil {
		return time.Time{}
	}
	return p.token.Expiry
}

// Empty reports whether there is no access token
func (p Pair) Empty() bool {
	return p.AccessToken() == ""
}

// Expired reports whether the access token carries an exp claim that is not after now.
func (p Pair) Expired(now time.Time) bool {
	expiry := p.Expiry()
	return !expiry.IsZero() && !now.Before(expiry)
}

// OAuth2 returns a copy of the pair as an oauth2.Token for use as a bearer credential.
func (p Pair) OAuth2() *oauth2.Token {
	if p.token == nil {
		return &oauth2.Token{}
	}
	t := *p.token
	return &t
}

func accessTokenExpiry(accessToken string) time.Time {
	if accessToken == "" {
		return time.Time{}
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
