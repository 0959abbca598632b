package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestNewTokenAndParse(t *testing.T) {
	token, err := NewToken("user-1", TypeAccess, testSecret, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, tokenType, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, TypeAccess, tokenType)
}

func TestParseToken_RefreshType(t *testing.T) {
	token, err := NewToken("user-2", TypeRefresh, testSecret, time.Hour)
	require.NoError(t, err)

	_, tokenType, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, TypeRefresh, tokenType)
}

func TestParseToken_FailCases(t *testing.T) {
	expired, err := NewToken("user-3", TypeAccess, testSecret, -time.Minute)
	require.NoError(t, err)

	wrongSecret, err := NewToken("user-3", TypeAccess, "other-secret", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "empty", token: ""},
		{name: "expired", token: expired},
		{name: "wrong secret", token: wrongSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseToken(tt.token, testSecret)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewToken_SameSecondTokensDiffer(t *testing.T) {
	first, err := NewToken("user-4", TypeRefresh, testSecret, time.Hour)
	require.NoError(t, err)
	second, err := NewToken("user-4", TypeRefresh, testSecret, time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
