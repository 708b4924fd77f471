package flagx

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment variable read by docseal.
const EnvPrefix = "DOCSEAL_"

// LoadDotEnv loads variables from the given .env files without overriding
// ones already present in the process environment. Missing files are not an
// error; with no arguments ".env" in the working directory is tried.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Env overlays environment variables onto configuration fields. The first
// parse failure is kept and reported by Err; later lookups still run.
type Env struct {
	prefix string
	lookup func(string) (string, bool)
	err    error
}

// NewEnv reads variables named prefix+key from the process environment.
func NewEnv(prefix string) *Env {
	return &Env{prefix: prefix, lookup: os.LookupEnv}
}

// NewEnvFromMap is NewEnv backed by a fixed map, used in tests.
func NewEnvFromMap(prefix string, vars map[string]string) *Env {
	return &Env{prefix: prefix, lookup: func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}}
}

func (e *Env) get(key string) (string, bool) {
	v, ok := e.lookup(e.prefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *Env) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("env %s%s: %w", e.prefix, key, err)
	}
}

func (e *Env) String(dst *string, key string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *Env) Int(dst *int, key string) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = n
	}
}

func (e *Env) Int64(dst *int64, key string) {
	if v, ok := e.get(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = n
	}
}

func (e *Env) Bool(dst *bool, key string) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = b
	}
}

func (e *Env) Duration(dst *time.Duration, key string) {
	if v, ok := e.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = d
	}
}

// List splits a comma separated value, dropping empty items.
func (e *Env) List(dst *[]string, key string) {
	if v, ok := e.get(key); ok {
		*dst = SplitList(v)
	}
}

func (e *Env) Err() error {
	return e.err
}

// SplitList splits s on commas and trims every item. Empty items are dropped.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
