package session

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters-long"

func signToken(t *testing.T, secret string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestCurrentWithValidToken(t *testing.T) {
	p := NewTokenProvider(testSecret)
	expiresAt := time.Now().Add(time.Hour)
	p.SetToken(signToken(t, testSecret, expiresAt))

	sess := p.Current()
	require.NotNil(t, sess)
	assert.Equal(t, "user-1", sess.UserID)
	assert.Equal(t, "user@example.com", sess.Email)
	assert.WithinDuration(t, expiresAt, sess.ExpiresAt, time.Second)
}

func TestCurrentWithoutToken(t *testing.T) {
	p := NewTokenProvider(testSecret)
	assert.Nil(t, p.Current())
}

func TestCurrentWithExpiredToken(t *testing.T) {
	p := NewTokenProvider(testSecret)
	p.SetToken(signToken(t, testSecret, time.Now().Add(-time.Minute)))
	assert.Nil(t, p.Current(), "an expired token is no session at all")
}

func TestCurrentWithWrongSecret(t *testing.T) {
	p := NewTokenProvider(testSecret)
	p.SetToken(signToken(t, "some-other-secret-with-at-least-32-characters!!", time.Now().Add(time.Hour)))
	assert.Nil(t, p.Current())
}

func TestCurrentWithGarbageToken(t *testing.T) {
	p := NewTokenProvider(testSecret)
	p.SetToken("not.a.jwt")
	assert.Nil(t, p.Current())
}

func TestClearSignsOut(t *testing.T) {
	p := NewTokenProvider(testSecret)
	p.SetToken(signToken(t, testSecret, time.Now().Add(time.Hour)))
	require.NotNil(t, p.Current())

	p.Clear()
	assert.Nil(t, p.Current())
}

func TestGuardRequire(t *testing.T) {
	p := NewTokenProvider(testSecret)
	guard := NewGuard(p, zerolog.Nop())

	_, err := guard.Require()
	assert.True(t, errors.Is(err, ErrUnauthenticated))
	assert.False(t, guard.SignedIn())

	p.SetToken(signToken(t, testSecret, time.Now().Add(time.Hour)))
	sess, err := guard.Require()
	require.NoError(t, err)
	assert.Equal(t, "user-1", sess.UserID)
	assert.True(t, guard.SignedIn())
}

func TestGuardNoticesExpiryBetweenCalls(t *testing.T) {
	p := NewTokenProvider(testSecret)
	guard := NewGuard(p, zerolog.Nop())

	p.SetToken(signToken(t, testSecret, time.Now().Add(150*time.Millisecond)))
	_, err := guard.Require()
	require.NoError(t, err)

	time.Sleep(1200 * time.Millisecond)
	_, err = guard.Require()
	assert.True(t, errors.Is(err, ErrUnauthenticated))
}
