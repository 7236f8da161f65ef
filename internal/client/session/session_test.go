package session

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	st := NewStore(path)

	_, err := st.Load()
	require.ErrorIs(t, err, ErrNoSession)

	in := &Session{
		UserID:       "u1",
		UserName:     "alice",
		Email:        "alice@example.com",
		Roles:        []string{"User"},
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresAt:    time.Date(2026, 4, 1, 9, 15, 0, 0, time.UTC),
	}
	require.NoError(t, st.Save(in))

	out, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, in, out)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	in.RefreshToken = "rt2"
	require.NoError(t, st.Save(in))
	out, err = st.Load()
	require.NoError(t, err)
	assert.Equal(t, "rt2", out.RefreshToken)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestStore_Clear(t *testing.T) {
	st := NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, st.Clear(), "clearing a missing file")

	require.NoError(t, st.Save(&Session{RefreshToken: "rt"}))
	require.NoError(t, st.Clear())
	_, err := st.Load()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err := NewStore(path).Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
}

func TestSession_AccessExpired(t *testing.T) {
	exp := time.Date(2026, 4, 1, 9, 15, 0, 0, time.UTC)
	s := &Session{ExpiresAt: exp}
	assert.False(t, s.AccessExpired(exp.Add(-time.Second)))
	assert.True(t, s.AccessExpired(exp))
}
