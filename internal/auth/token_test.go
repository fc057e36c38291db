package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/griga-events/ticketing/internal/clock"
	"github.com/griga-events/ticketing/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	tm := NewTokenManager("secret", 30*time.Minute, nil)
	token, exp, err := tm.GenerateToken("admin@example.com", domain.SubjectTypeAdmin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", claims.Subject)
	assert.Equal(t, domain.SubjectTypeAdmin, claims.SubjectType)
}

func TestTokenRejectsAnyAlteredByte(t *testing.T) {
	t.Parallel()

	tm := NewTokenManager("secret", time.Hour, nil)
	token, _, err := tm.GenerateToken("admin@example.com", domain.SubjectTypeAdmin)
	require.NoError(t, err)

	for i := 0; i < len(token); i++ {
		altered := []byte(token)
		if altered[i] == 'A' {
			altered[i] = 'B'
		} else {
			altered[i] = 'A'
		}
		_, err := tm.ParseToken(string(altered))
		assert.Errorf(t, err, "altered byte %d accepted", i)
	}
}

func TestTokenRejectsOtherSecret(t *testing.T) {
	t.Parallel()

	token, _, err := NewTokenManager("one", time.Hour, nil).GenerateToken("admin@example.com", domain.SubjectTypeAdmin)
	require.NoError(t, err)

	_, err = NewTokenManager("two", time.Hour, nil).ParseToken(token)
	assert.Error(t, err)
}

func TestTokenExpires(t *testing.T) {
	t.Parallel()

	issuedAt := time.Now().Add(-2 * time.Hour)
	token, _, err := NewTokenManager("secret", time.Hour, clock.NewFixed(issuedAt)).GenerateToken("admin@example.com", domain.SubjectTypeAdmin)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", time.Hour, nil).ParseToken(token)
	assert.Error(t, err)
}

func TestTokenWithoutSecret(t *testing.T) {
	t.Parallel()

	tm := NewTokenManager("", time.Hour, nil)
	_, _, err := tm.GenerateToken("admin@example.com", domain.SubjectTypeAdmin)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = tm.ParseToken("anything")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestComparePassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("s3cret!", 4)
	require.NoError(t, err)

	assert.NoError(t, ComparePassword(hash, "s3cret!"))
	assert.Error(t, ComparePassword(hash, "S3cret!"))
	assert.Error(t, ComparePassword("not-a-hash", "s3cret!"))
}
