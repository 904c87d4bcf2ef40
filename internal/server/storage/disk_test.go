package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiskStore_SaveAndRemove(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDiskStore(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	publicPath, err := s.Save(context.Background(), "a.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	require.Equal(t, "/uploads/a.txt", publicPath)

	b, err := os.ReadFile(filepath.Join(s.Dir(), "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(b))

	require.NoError(t, s.Remove(context.Background(), "a.txt"))
	_, err = os.Stat(filepath.Join(s.Dir(), "a.txt"))
	require.True(t, os.IsNotExist(err))

	// removing an absent blob is not an error
	require.NoError(t, s.Remove(context.Background(), "a.txt"))
}

func TestDiskStore_SaveStripsPathElements(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDiskStore(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	publicPath, err := s.Save(context.Background(), "../../escape.txt", strings.NewReader("x"))
	require.NoError(t, err)
	require.Equal(t, "/uploads/escape.txt", publicPath)

	// the blob lands inside the store directory, not above it
	_, err = os.Stat(filepath.Join(s.Dir(), "escape.txt"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "escape.txt"))
	require.True(t, os.IsNotExist(err))

	require.NoError(t, s.Remove(context.Background(), "../../escape.txt"))
	_, err = os.Stat(filepath.Join(s.Dir(), "escape.txt"))
	require.True(t, os.IsNotExist(err))
}

func TestPublicPath(t *testing.T) {
	require.Equal(t, "/uploads/x.png", PublicPath("x.png"))
}
