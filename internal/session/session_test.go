package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetcore-io/fleetcore/internal/model"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return token
}

func TestFromTokenReadsClaimsWithoutVerifying(t *testing.T) {
	token := signed(t, jwt.MapClaims{"role": "admin", "username": "carol"})

	s, err := FromToken(token, model.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, s.Role)
	assert.Equal(t, "carol", s.Username)
	assert.True(t, s.IsAdmin())
	assert.True(t, s.ExpiresAt.IsZero())
}

func TestFromTokenRoleFallbacks(t *testing.T) {
	token := signed(t, jwt.MapClaims{"username": "dave"})

	s, err := FromToken(token, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, s.Role, "stored role is used when the claim is absent")

	s, err = FromToken(token, "")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, s.Role)
	assert.False(t, s.IsAdmin())
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewStore(path)

	token, role, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Empty(t, role)

	require.NoError(t, store.Save("tok-1", model.RoleAdmin))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	token, role, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, model.RoleAdmin, role)

	require.NoError(t, store.Save("tok-2", model.RoleUser))
	got, err := store.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok-2", got)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear(), "clearing twice is fine")
	got, err = store.Token()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGateRequire(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(filepath.Join(t.TempDir(), "session.json"))
	gate := NewGate(store)
	gate.now = func() time.Time { return now }

	_, err := gate.Require()
	require.Error(t, err)
	assert.True(t, IsAuthError(err))

	require.NoError(t, store.Save("not-a-jwt", model.RoleUser))
	_, err = gate.Require()
	assert.True(t, IsAuthError(err))

	expired := signed(t, jwt.MapClaims{"username": "erin", "exp": now.Add(-time.Minute).Unix()})
	require.NoError(t, store.Save(expired, model.RoleUser))
	_, err = gate.Require()
	assert.ErrorContains(t, err, "expired")

	valid := signed(t, jwt.MapClaims{"username": "erin", "role": "user", "exp": now.Add(time.Hour).Unix()})
	require.NoError(t, store.Save(valid, model.RoleUser))
	s, err := gate.Require()
	require.NoError(t, err)
	assert.Equal(t, "erin", s.Username)
	assert.Equal(t, now.Add(time.Hour).Unix(), s.ExpiresAt.Unix())
}

func TestWatchReportsLogout(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "session.json"))
	require.NoError(t, store.Save("tok", model.RoleUser))

	changed := make(chan struct{}, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, logr.Discard(), func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher time to register before touching the file.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "unrelated"), []byte("x"), 0o600)
		_ = store.Save("tok", model.RoleUser)
		select {
		case <-changed:
			return true
		default:
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	for len(changed) > 0 {
		<-changed
	}

	require.NoError(t, store.Clear())
	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("logout not observed")
	}

	cancel()
	assert.NoError(t, <-done)
}
