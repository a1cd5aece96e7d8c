package aferofs

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	f := NewMemory()

	require.NoError(t, f.MkdirAll("/saves/profile", 0755))
	require.NoError(t, f.WriteFile("/saves/profile/slot.sav", []byte("gold=10"), 0644))

	data, err := f.ReadFile("/saves/profile/slot.sav")
	require.NoError(t, err)
	assert.Equal(t, "gold=10", string(data))

	w, err := f.Create("/saves/b.sav")
	require.NoError(t, err)
	_, err = io.WriteString(w, "b")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := f.Open("/saves/b.sav")
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "b", string(got))

	entries, err := f.ReadDir("/saves")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b.sav", entries[0].Name())
	assert.Equal(t, "profile", entries[1].Name())

	mtime := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	require.NoError(t, f.Chtimes("/saves/b.sav", mtime, mtime))
	info, err := f.Stat("/saves/b.sav")
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mtime))

	require.NoError(t, f.Remove("/saves/b.sav"))
	_, err = f.Stat("/saves/b.sav")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	require.NoError(t, f.RemoveAll("/saves"))
	_, err = f.Stat("/saves/profile/slot.sav")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestWalk(t *testing.T) {
	f := New(afero.NewMemMapFs())
	require.NoError(t, f.MkdirAll("/root/a", 0755))
	require.NoError(t, f.WriteFile("/root/a/one.sav", []byte("1"), 0644))
	require.NoError(t, f.WriteFile("/root/two.sav", []byte("22"), 0644))

	var seen []string
	err := f.Walk("/root", func(path string, info os.FileInfo, err error) error {
		require.NoError(t, err)
		seen = append(seen, filepath.ToSlash(path))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/root", "/root/a", "/root/a/one.sav", "/root/two.sav"}, seen)
}

func TestOS(t *testing.T) {
	dir := t.TempDir()
	f := NewOS()

	path := filepath.Join(dir, "slot.sav")
	require.NoError(t, f.WriteFile(path, []byte("x"), 0644))
	require.NoError(t, f.Chmod(path, 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
	assert.NotNil(t, f.Afero())
}
