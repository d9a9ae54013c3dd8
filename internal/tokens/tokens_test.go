package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazaarmate/backend/internal/models"
)

func newTestCodec() *Codec {
	return NewCodec([]byte("test-access-secret"), []byte("test-refresh-secret"), 15*time.Minute, 7*24*time.Hour, 0)
}

func testUser() *models.User {
	return &models.User{ID: 42, Username: "alice", Email: "alice@example.com", Role: models.RoleSeller}
}

func TestCodec_AccessRoundTrip(t *testing.T) {
	t.Parallel()

	codec := newTestCodec()
	raw, issued, err := codec.IssueAccess(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	claims, err := codec.VerifyAccess(raw)
	require.NoError(t, err)

	assert.Equal(t, uint(42), claims.UserID())
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, models.RoleSeller, claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
	require.NotNil(t, claims.ExpiresAt)
	assert.True(t, claims.ExpiresAt.Time.After(claims.IssuedAt.Time))
}

func TestCodec_RefreshRoundTrip(t *testing.T) {
	t.Parallel()

	codec := newTestCodec()
	raw, issued, err := codec.IssueRefresh(testUser())
	require.NoError(t, err)

	claims, err := codec.VerifyRefresh(raw)
	require.NoError(t, err)

	assert.Equal(t, uint(42), claims.UserID())
	assert.Equal(t, issued.ID, claims.ID)
}

func TestCodec_JTIUnique(t *testing.T) {
	t.Parallel()

	codec := newTestCodec()
	user := testUser()

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		_, claims, err := codec.IssueAccess(user)
		require.NoError(t, err)
		_, dup := seen[claims.ID]
		require.False(t, dup, "jti collision after %d issuances", i)
		seen[claims.ID] = struct{}{}
	}
}

func TestCodec_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	codec := NewCodec([]byte("s1"), []byte("s2"), time.Second, time.Second, 0)

	issueTime := time.Now()
	codec.WithClock(func() time.Time { return issueTime })
	raw, _, err := codec.IssueAccess(testUser())
	require.NoError(t, err)

	// 1s before expiry: valid.
	codec.WithClock(func() time.Time { return issueTime })
	_, err = codec.VerifyAccess(raw)
	require.NoError(t, err)

	// 1s past expiry: ErrExpired, not ErrMalformed.
	codec.WithClock(func() time.Time { return issueTime.Add(2 * time.Second) })
	_, err = codec.VerifyAccess(raw)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestCodec_LeewayToleratesSkew(t *testing.T) {
	t.Parallel()

	codec := NewCodec([]byte("s1"), []byte("s2"), time.Second, time.Second, 5*time.Second)

	issueTime := time.Now()
	codec.WithClock(func() time.Time { return issueTime })
	raw, _, err := codec.IssueAccess(testUser())
	require.NoError(t, err)

	codec.WithClock(func() time.Time { return issueTime.Add(3 * time.Second) })
	_, err = codec.VerifyAccess(raw)
	require.NoError(t, err)
}

func TestCodec_VerifyFailures(t *testing.T) {
	t.Parallel()

	codec := newTestCodec()
	other := NewCodec([]byte("other-access"), []byte("other-refresh"), 15*time.Minute, 24*time.Hour, 0)

	forged, _, err := other.IssueAccess(testUser())
	require.NoError(t, err)

	refresh, _, err := codec.IssueRefresh(testUser())
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
	}{
		{name: "garbage", raw: "not-a-jwt"},
		{name: "wrong secret", raw: forged},
		{name: "refresh presented as access", raw: refresh},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := codec.VerifyAccess(tt.raw)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}
