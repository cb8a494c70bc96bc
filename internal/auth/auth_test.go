package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-blog-forum/internal/config"
	"github.com/pribylovaa/go-blog-forum/internal/models"
)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret: "unit-test-secret-0123456789",
		Issuer:    "forum-service",
		Audience:  "forum",
		AccessTTL: 15 * time.Minute,
	}
}

func TestIssueAndParse_OK(t *testing.T) {
	tokens := NewTokens(testCfg())
	user := models.User{ID: uuid.New(), Roles: []string{models.RoleAdmin}}

	token, exp, err := tokens.Issue(user)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 5*time.Second)

	id, err := tokens.Parse(token)
	require.NoError(t, err)
	require.Equal(t, user.ID, id.ID)
	require.True(t, id.IsAdmin())
	require.Equal(t, user.ID.String(), id.UserID())

	un, err := ParseUnverified(token)
	require.NoError(t, err)
	require.Equal(t, id, un)
}

func TestParse_Expired(t *testing.T) {
	tokens := NewTokens(testCfg())
	tokens.now = func() time.Time { return time.Now().UTC().Add(-time.Hour) }

	token, _, err := tokens.Issue(models.User{ID: uuid.New()})
	require.NoError(t, err)

	tokens.now = func() time.Time { return time.Now().UTC() }
	_, err = tokens.Parse(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestParse_Invalid(t *testing.T) {
	tokens := NewTokens(testCfg())
	user := models.User{ID: uuid.New()}

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Parse("not-a-jwt")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		cfg := testCfg()
		cfg.JWTSecret = "another-secret-0123456789"
		token, _, err := NewTokens(cfg).Issue(user)
		require.NoError(t, err)

		_, err = tokens.Parse(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other audience", func(t *testing.T) {
		cfg := testCfg()
		cfg.Audience = "someone-else"
		token, _, err := NewTokens(cfg).Issue(user)
		require.NoError(t, err)

		_, err = tokens.Parse(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong method", func(t *testing.T) {
		claims := accessClaims{
			UserID: user.ID.String(),
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "forum-service",
				Audience:  jwt.ClaimStrings{"forum"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testCfg().JWTSecret))
		require.NoError(t, err)

		_, err = tokens.Parse(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestIdentity(t *testing.T) {
	var anon Identity
	require.True(t, anon.Anonymous())
	require.Equal(t, "", anon.UserID())
	require.False(t, anon.IsAdmin())

	id := Identity{ID: uuid.New()}
	ctx := Into(context.Background(), id)
	require.Equal(t, id.ID, From(ctx).ID)
	require.True(t, From(context.Background()).Anonymous())
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", bcrypt.MinCost)
	require.NoError(t, err)
	require.True(t, CheckPassword(hash, "s3cret-pass"))
	require.False(t, CheckPassword(hash, "other"))

	hash, err = HashPassword("x", 0)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	require.Equal(t, bcrypt.DefaultCost, cost)
}
