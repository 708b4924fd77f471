package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureDir_CreatesNestedDirectory(t *testing.T) {
	want := filepath.Join(t.TempDir(), "a", "b")

	got, err := EnsureDir(want)
	require.NoError(t, err)
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm()&0o700)
	}
}

func TestEnsureDir_Idempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sessions")

	first, err := EnsureDir(dir)
	require.NoError(t, err)

	second, err := EnsureDir(dir)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEnsureDir_FailsIfFileWithSameNameExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := EnsureDir(path)
	require.Error(t, err, "should fail when a file exists with the same name")
}

func TestWriteNew_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.bin")

	require.NoError(t, WriteNew(path, []byte("secret"), 0o600, false))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("secret"), got)

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
	}
}

func TestWriteNew_RefusesToOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.bin")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	err := WriteNew(path, []byte("new"), 0o600, false)
	require.ErrorIs(t, err, ErrExists)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("old"), got)
}

func TestWriteNew_Overwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "master.bin")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	require.NoError(t, WriteNew(path, []byte("new"), 0o600, true))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("new"), got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file must not be left behind")
}

func TestWriteNew_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "master.bin")
	require.Error(t, WriteNew(path, []byte("x"), 0o600, false))
}
