package service

import (
	"context"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/docseal/internal/auth"
	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/engine/bls"
	"github.com/dmitrijs2005/docseal/internal/engine/enginetest"
	"github.com/dmitrijs2005/docseal/internal/kdc/config"
	"github.com/dmitrijs2005/docseal/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "shared-secret"

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.SecretKey = testSecret
	c.AllowedServerKeys = []string{"key-a", "key-b"}
	return c
}

func token(t *testing.T, email string, validity time.Duration) string {
	t.Helper()
	tok, err := auth.GenerateToken("u1", email, []byte(testSecret), validity)
	require.NoError(t, err)
	return tok
}

func TestAuthenticateServer(t *testing.T) {
	s := New(enginetest.New(), []byte("m"), testConfig(), logging.Discard())

	assert.NoError(t, s.AuthenticateServer("key-a"))
	assert.NoError(t, s.AuthenticateServer("key-b"))
	assert.ErrorIs(t, s.AuthenticateServer("key-c"), common.ErrForbidden)
	assert.ErrorIs(t, s.AuthenticateServer(""), common.ErrInvalidServerSecret)

	c := testConfig()
	c.RequireServerCredential = false
	open := New(enginetest.New(), []byte("m"), c, logging.Discard())
	assert.NoError(t, open.AuthenticateServer(""))
}

func TestGenerateKey_BindsCredentialIdentity(t *testing.T) {
	fake := enginetest.New()
	s := New(fake, []byte("master"), testConfig(), logging.Discard())

	key, err := s.GenerateKey(context.Background(), token(t, "alice@iiita.ac.in", time.Hour), "key-a", "mallory@iiita.ac.in")
	require.NoError(t, err)

	assert.Equal(t, enginetest.KeyFor("alice@iiita.ac.in"), key)
	assert.Equal(t, 0, fake.Live(), "every engine buffer released")
}

func TestGenerateKey_Rejections(t *testing.T) {
	fake := enginetest.New()
	s := New(fake, []byte("master"), testConfig(), logging.Discard())
	ctx := context.Background()

	foreign, err := auth.GenerateToken("u1", "alice@iiita.ac.in", []byte("other"), time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name      string
		token     string
		serverKey string
		want      error
	}{
		{"bad server key", token(t, "alice@iiita.ac.in", time.Hour), "nope", common.ErrForbidden},
		{"bad server key wins over bad token", "garbage", "nope", common.ErrForbidden},
		{"missing credential", "", "key-a", common.ErrInvalidToken},
		{"malformed credential", "garbage", "key-a", common.ErrInvalidToken},
		{"foreign signature", foreign, "key-a", common.ErrInvalidToken},
		{"expired credential", token(t, "alice@iiita.ac.in", -time.Minute), "key-a", common.ErrTokenExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := s.GenerateKey(ctx, tt.token, tt.serverKey, "")
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, key)
		})
	}
	assert.Empty(t, fake.Calls(), "engine never consulted")
}

func TestGenerateKey_EngineFailure(t *testing.T) {
	fake := enginetest.New()
	fake.Fail[enginetest.OpExtract] = true
	s := New(fake, []byte("master"), testConfig(), logging.Discard())

	key, err := s.GenerateKey(context.Background(), token(t, "alice@iiita.ac.in", time.Hour), "key-a", "")
	assert.ErrorIs(t, err, common.ErrEngine)
	assert.Nil(t, key)
	assert.Equal(t, 0, fake.Live())

	fake.Fail[enginetest.OpExtract] = false
	fake.OutLen[enginetest.OpExtract] = 0
	_, err = s.GenerateKey(context.Background(), token(t, "alice@iiita.ac.in", time.Hour), "key-a", "")
	assert.ErrorIs(t, err, common.ErrEngine, "zero-length key is implausible")
	assert.Equal(t, 0, fake.Live())

	delete(fake.OutLen, enginetest.OpExtract)
	fake.FailAfterLoads = 1
	_, err = s.GenerateKey(context.Background(), token(t, "alice@iiita.ac.in", time.Hour), "key-a", "")
	assert.ErrorIs(t, err, common.ErrEngine)
	assert.Equal(t, 0, fake.Live())
}

func TestGenerateKey_Cancelled(t *testing.T) {
	fake := enginetest.New()
	s := New(fake, []byte("master"), testConfig(), logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GenerateKey(ctx, token(t, "alice@iiita.ac.in", time.Hour), "key-a", "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.Calls())
}

func TestGenerateKey_Serialized(t *testing.T) {
	fake := enginetest.New()
	fake.Delay = time.Millisecond
	s := New(fake, []byte("master"), testConfig(), logging.Discard())
	tok := token(t, "alice@iiita.ac.in", time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.GenerateKey(context.Background(), tok, "key-a", "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fake.MaxInFlight())
	assert.Equal(t, 0, fake.Live())
}

func TestGenerateKey_BLSDeterministic(t *testing.T) {
	master, _, err := bls.Setup(rand.Reader)
	require.NoError(t, err)
	e := bls.New(rand.Reader)
	s := New(e, master, testConfig(), logging.Discard())
	ctx := context.Background()

	k1, err := s.GenerateKey(ctx, token(t, "alice@iiita.ac.in", time.Hour), "key-a", "")
	require.NoError(t, err)
	k2, err := s.GenerateKey(ctx, token(t, "alice@iiita.ac.in", time.Hour), "key-b", "")
	require.NoError(t, err)
	k3, err := s.GenerateKey(ctx, token(t, "bob@iiita.ac.in", time.Hour), "key-a", "")
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Equal(t, 0, e.Live())
}
