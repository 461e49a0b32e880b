package auth

import (
	"context"
	"testing"
	"time"

	"github.com/collegeerp/backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_IssueAndParse(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	admin := &models.Admin{ID: uuid.New(), Role: models.RoleSuperAdmin}

	token, issued, err := m.Issue(admin)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, issued.ID)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID.String(), claims.AdminID)
	assert.Equal(t, models.RoleSuperAdmin, claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
	assert.InDelta(t, time.Hour.Seconds(), claims.TTL(time.Now()).Seconds(), 5)
}

func TestTokenManager_Parse(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	admin := &models.Admin{ID: uuid.New(), Role: models.RoleAdmin}

	t.Run("wrong secret", func(t *testing.T) {
		token, _, err := NewTokenManager("other-secret", time.Hour).Issue(admin)
		require.NoError(t, err)

		_, err = m.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		issuer := NewTokenManager("test-secret", time.Hour)
		issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _, err := issuer.Issue(admin)
		require.NoError(t, err)

		_, err = m.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unexpected algorithm", func(t *testing.T) {
		claims := &Claims{AdminID: admin.ID.String(), RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = m.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenManager_IssueWithoutSecret(t *testing.T) {
	_, _, err := NewTokenManager("", time.Hour).Issue(&models.Admin{ID: uuid.New()})
	assert.Error(t, err)
}

func TestClaimsContext(t *testing.T) {
	id := uuid.New()
	ctx := WithClaims(context.Background(), &Claims{AdminID: id.String()})

	got, ok := AdminIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = AdminIDFromContext(context.Background())
	assert.False(t, ok)
}
