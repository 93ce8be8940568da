package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "stockledger/internal/core/context"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	token, expires, err := svc.IssueToken("u-1", "Store Keeper", []string{appctx.RoleEditor}, false)
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.UserID)
	assert.Equal(t, "Store Keeper", user.Name)
	assert.Equal(t, []string{appctx.RoleEditor}, user.Roles)
	assert.False(t, user.IsAdmin)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	other := NewJWTService(DefaultJWTConfig("other-secret"))
	forged, _, err := other.IssueToken("u-1", "", nil, true)
	require.NoError(t, err)

	expiredCfg := DefaultJWTConfig("test-secret")
	expiredCfg.TokenTTL = -time.Minute
	expired, _, err := NewJWTService(expiredCfg).IssueToken("u-1", "", nil, false)
	require.NoError(t, err)

	foreignCfg := DefaultJWTConfig("test-secret")
	foreignCfg.Issuer = "someone-else"
	foreign, _, err := NewJWTService(foreignCfg).IssueToken("u-1", "", nil, false)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "stockledger"},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", forged},
		{"expired", expired},
		{"wrong issuer", foreign},
		{"no subject", noSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			assert.Error(t, err)
		})
	}
}
