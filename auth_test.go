package main

import (
	"encoding/hex"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-shared-secret")

func signedEnvelope(secret []byte, timestamp int64, nonce string, body []byte) AuthEnvelope {
	return AuthEnvelope{
		Timestamp: timestamp,
		Nonce:     nonce,
		Signature: hex.EncodeToString(computeRequestMAC(secret, timestamp, nonce, body)),
		RawBody:   body,
	}
}

func TestAuthenticator(t *testing.T) {
	body := []byte(`{"to":"0x1","amount":"1.23"}`)

	t.Run("ValidRequest", func(t *testing.T) {
		auth := NewAuthenticator(testSecret, 60*time.Second)
		env := signedEnvelope(testSecret, time.Now().Unix(), "nonce-0001", body)

		require.NoError(t, auth.Authenticate(env))
	})

	t.Run("TamperedBody", func(t *testing.T) {
		auth := NewAuthenticator(testSecret, 60*time.Second)
		env := signedEnvelope(testSecret, time.Now().Unix(), "nonce-0002", body)

		// Flip a single byte of the verified body
		tampered := append([]byte{}, body...)
		tampered[0] ^= 0x01
		env.RawBody = tampered

		err := auth.Authenticate(env)
		require.Error(t, err)
		assert.Equal(t, ErrKindAuth, ErrorKindOf(err))
	})

	t.Run("WrongSecret", func(t *testing.T) {
		auth := NewAuthenticator(testSecret, 60*time.Second)
		env := signedEnvelope([]byte("other-secret"), time.Now().Unix(), "nonce-0003", body)

		err := auth.Authenticate(env)
		require.Error(t, err)
		assert.Equal(t, ErrKindAuth, ErrorKindOf(err))
	})

	t.Run("StaleTimestamp", func(t *testing.T) {
		auth := NewAuthenticator(testSecret, 60*time.Second)
		stale := time.Now().Add(-2 * time.Minute).Unix()
		env := signedEnvelope(testSecret, stale, "nonce-0004", body)

		err := auth.Authenticate(env)
		require.Error(t, err)
		assert.Equal(t, ErrKindAuth, ErrorKindOf(err))
	})

	t.Run("FutureTimestamp", func(t *testing.T) {
		auth := NewAuthenticator(testSecret, 60*time.Second)
		future := time.Now().Add(2 * time.Minute).Unix()
		env := signedEnvelope(testSecret, future, "nonce-0005", body)

		err := auth.Authenticate(env)
		require.Error(t, err)
	})

	t.Run("ReplayedNonce", func(t *testing.T) {
		auth := NewAuthenticator(testSecret, 60*time.Second)
		env := signedEnvelope(testSecret, time.Now().Unix(), "nonce-0006", body)

		require.NoError(t, auth.Authenticate(env))

		// Second submission carries a perfectly valid signature but a
		// recorded nonce
		err := auth.Authenticate(env)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nonce already used")
	})

	t.Run("DifferentNonceSameTimestamp", func(t *testing.T) {
		auth := NewAuthenticator(testSecret, 60*time.Second)
		now := time.Now().Unix()

		require.NoError(t, auth.Authenticate(signedEnvelope(testSecret, now, "nonce-0007", body)))
		require.NoError(t, auth.Authenticate(signedEnvelope(testSecret, now, "nonce-0008", body)))
	})

	t.Run("ShortNonce", func(t *testing.T) {
		auth := NewAuthenticator(testSecret, 60*time.Second)
		env := signedEnvelope(testSecret, time.Now().Unix(), "short", body)

		err := auth.Authenticate(env)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nonce")
	})

	t.Run("MalformedSignature", func(t *testing.T) {
		auth := NewAuthenticator(testSecret, 60*time.Second)
		env := signedEnvelope(testSecret, time.Now().Unix(), "nonce-0009", body)

		for _, sig := range []string{"", "abcd", env.Signature[:40], env.Signature + "00", "zz" + env.Signature[2:]} {
			bad := env
			bad.Signature = sig
			require.Error(t, auth.Authenticate(bad))
		}
	})

	t.Run("NonceRecordedEvenIfLaterStepsFail", func(t *testing.T) {
		auth := NewAuthenticator(testSecret, 60*time.Second)
		env := signedEnvelope(testSecret, time.Now().Unix(), "nonce-0010", body)

		require.NoError(t, auth.Authenticate(env))
		// A policy-rejected request must not be resignable with the same
		// nonce; acceptance alone records the pair.
		require.True(t, auth.nonces.Seen(env.Timestamp, env.Nonce))
	})

	t.Run("RetentionCoversSkewWindow", func(t *testing.T) {
		// Entries must outlive any timestamp the skew window still accepts,
		// or a captured request becomes replayable once its entry expires.
		wide := NewAuthenticator(testSecret, 10*time.Minute)
		require.GreaterOrEqual(t, wide.nonces.retention, 20*time.Minute)

		narrow := NewAuthenticator(testSecret, 60*time.Second)
		require.Equal(t, defaultNonceRetention, narrow.nonces.retention)
		require.GreaterOrEqual(t, narrow.nonces.retention, 2*narrow.skewWindow)
	})

	t.Run("ConcurrentIdenticalEnvelope", func(t *testing.T) {
		auth := NewAuthenticator(testSecret, 60*time.Second)
		env := signedEnvelope(testSecret, time.Now().Unix(), "nonce-0011", body)

		var accepted int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if auth.Authenticate(env) == nil {
					atomic.AddInt32(&accepted, 1)
				}
			}()
		}
		wg.Wait()

		require.Equal(t, int32(1), accepted)
	})
}
