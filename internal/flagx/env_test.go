package flagx

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnv_Overlay(t *testing.T) {
	env := NewEnvFromMap("DOCSEAL_", map[string]string{
		"DOCSEAL_ADDR":    " :9090 ",
		"DOCSEAL_MAX":     "42",
		"DOCSEAL_BIG":     "104857600",
		"DOCSEAL_STRICT":  "false",
		"DOCSEAL_TIMEOUT": "3s",
		"DOCSEAL_KEYS":    "a, b,,c",
		"DOCSEAL_BLANK":   "   ",
		"OTHER_IGNORED":   "x",
	})

	addr, blank := ":8080", "keep"
	limit := 1
	var big int64
	strict := true
	timeout := time.Second
	var keys []string

	env.String(&addr, "ADDR")
	env.String(&blank, "BLANK")
	env.Int(&limit, "MAX")
	env.Int64(&big, "BIG")
	env.Bool(&strict, "STRICT")
	env.Duration(&timeout, "TIMEOUT")
	env.List(&keys, "KEYS")

	require.NoError(t, env.Err())
	assert.Equal(t, ":9090", addr)
	assert.Equal(t, "keep", blank)
	assert.Equal(t, 42, limit)
	assert.Equal(t, int64(100<<20), big)
	assert.False(t, strict)
	assert.Equal(t, 3*time.Second, timeout)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestEnv_FirstErrorKept(t *testing.T) {
	env := NewEnvFromMap("P_", map[string]string{"P_N": "nope", "P_D": "soon"})

	n := 7
	d := time.Minute
	env.Int(&n, "N")
	env.Duration(&d, "D")

	require.Error(t, env.Err())
	assert.Contains(t, env.Err().Error(), "P_N")
	assert.Equal(t, 7, n)
	assert.Equal(t, time.Minute, d)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DOCSEAL_TEST_DOTENV=loaded\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("DOCSEAL_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "loaded", os.Getenv("DOCSEAL_TEST_DOTENV"))
}
