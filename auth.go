package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

const (
	minNonceLength = 8

	// hmacSignatureHexLength is the length of a hex-encoded SHA-256 digest.
	hmacSignatureHexLength = sha256.Size * 2
)

// AuthEnvelope carries the authentication material extracted from a request:
// the claimed unix timestamp, the caller-chosen nonce, the hex-encoded
// HMAC-SHA256 signature and the exact body bytes the signature covers.
type AuthEnvelope struct {
	Timestamp int64
	Nonce     string
	Signature string
	RawBody   []byte
}

// Authenticator verifies request HMAC signatures and guards against
// replayed submissions within the nonce retention window.
type Authenticator struct {
	secret     []byte
	skewWindow time.Duration
	nonces     *NonceCache
}

// NewAuthenticator creates an authenticator with the given shared secret and
// timestamp skew window. Replay retention is at least twice the skew window:
// a (timestamp, nonce) entry must never expire while its timestamp is still
// inside the accepted window.
func NewAuthenticator(secret []byte, skewWindow time.Duration) *Authenticator {
	retention := defaultNonceRetention
	if floor := 2 * skewWindow; floor > retention {
		retention = floor
	}
	return &Authenticator{
		secret:     secret,
		skewWindow: skewWindow,
		nonces:     NewNonceCache(retention),
	}
}

// Authenticate checks the envelope's signature, timestamp freshness and nonce
// uniqueness. On success the (timestamp, nonce) pair is recorded immediately,
// before any further request processing: a validly signed request that later
// fails policy or validation must not be replayable with the same nonce.
func (a *Authenticator) Authenticate(env AuthEnvelope) error {
	if len(env.Signature) != hmacSignatureHexLength {
		return GatewayErrorf(ErrKindAuth, "malformed signature")
	}
	sig, err := hex.DecodeString(env.Signature)
	if err != nil {
		return GatewayErrorf(ErrKindAuth, "malformed signature")
	}

	if len(env.Nonce) < minNonceLength {
		return GatewayErrorf(ErrKindAuth, "nonce must be at least %d characters", minNonceLength)
	}

	skew := time.Since(time.Unix(env.Timestamp, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > a.skewWindow {
		return GatewayErrorf(ErrKindAuth, "request timestamp outside allowed window")
	}

	if a.nonces.Seen(env.Timestamp, env.Nonce) {
		return GatewayErrorf(ErrKindAuth, "nonce already used")
	}

	expected := computeRequestMAC(a.secret, env.Timestamp, env.Nonce, env.RawBody)
	if !hmac.Equal(sig, expected) {
		return GatewayErrorf(ErrKindAuth, "invalid signature")
	}

	// The insert is the authoritative replay check: when two requests carry
	// the same pair concurrently, exactly one wins the slot.
	if !a.nonces.AddIfAbsent(env.Timestamp, env.Nonce) {
		return GatewayErrorf(ErrKindAuth, "nonce already used")
	}
	return nil
}

// computeRequestMAC computes HMAC-SHA256 over the exact byte sequence
// "timestamp.nonce.body" with the shared secret.
func computeRequestMAC(secret []byte, timestamp int64, nonce string, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write([]byte(nonce))
	mac.Write([]byte("."))
	mac.Write(body)
	return mac.Sum(nil)
}
