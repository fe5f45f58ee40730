package token_test

import (
	"testing"
	"time"

	apperrors "github.com/jrsteele09/storefront-admin/internal/errors"
	"github.com/jrsteele09/storefront-admin/token"
	"github.com/jrsteele09/storefront-admin/users"
	"github.com/stretchr/testify/require"
)

func TestIssuer_IssueAndVerify(t *testing.T) {
	issuer := token.NewIssuer("secret", "storefront")
	profile := users.Profile{ID: 42, Email: "admin@example.com", Role: users.RoleAdmin}

	access, refresh, err := issuer.Issue(profile)
	require.NoError(t, err)
	require.Len(t, refresh, 64)

	claims, err := issuer.Verify(access)
	require.NoError(t, err)
	require.Equal(t, "admin@example.com", claims.Email)
	require.Equal(t, users.RoleAdmin, claims.Role)

	id, err := claims.UserID()
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
}

func TestIssuer_Verify(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	issuer := token.NewIssuer("secret", "storefront", token.WithNowFunc(clock), token.WithAccessTokenExpiry(time.Minute))

	access, _, err := issuer.Issue(users.Profile{ID: 1, Email: "a@b.com", Role: users.RoleUser})
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := token.NewIssuer("other", "storefront", token.WithNowFunc(clock)).Verify(access)
		require.Error(t, err)
		require.True(t, apperrors.Is(err, apperrors.ErrInvalidToken))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Verify("not-a-jwt")
		require.True(t, apperrors.Is(err, apperrors.ErrInvalidToken))
	})

	t.Run("expired", func(t *testing.T) {
		later := token.NewIssuer("secret", "storefront", token.WithNowFunc(func() time.Time { return now.Add(2 * time.Minute) }))
		_, err := later.Verify(access)
		require.True(t, apperrors.Is(err, apperrors.ErrTokenExpired))
	})
}
