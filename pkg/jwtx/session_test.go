package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T, kid string) *EdDSASigner {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := NewSignerEdDSA(kid, priv)
	require.NoError(t, err)
	return signer
}

func TestSignAndVerify(t *testing.T) {
	signer := newTestSigner(t, "session-1")

	keys := NewKeySet()
	keys.AddSigner(signer)
	verifier := NewVerifierEdDSA(keys, "cowrite-identity")

	claims := NewSessionClaims(
		"user-123", "jane@example.com", "Jane",
		DefaultSessionTTL, "cowrite-identity", time.Now().UTC(),
	)

	token, err := signer.Sign(claims)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-123", got.Subject)
	require.Equal(t, "jane@example.com", got.Email)
	require.Equal(t, "Jane", got.Name)
	require.NotEmpty(t, got.ID, "jti should be set")
}

func TestVerify_RejectsExpired(t *testing.T) {
	signer := newTestSigner(t, "session-1")

	keys := NewKeySet()
	keys.AddSigner(signer)
	verifier := NewVerifierEdDSA(keys, "")

	// Issued two hours ago with a one hour TTL
	claims := NewSessionClaims(
		"user-123", "", "",
		time.Hour, "", time.Now().UTC().Add(-2*time.Hour),
	)

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestVerify_RejectsWrongKey(t *testing.T) {
	signer := newTestSigner(t, "session-1")
	other := newTestSigner(t, "session-1") // same kid, different key

	keys := NewKeySet()
	keys.AddSigner(other)
	verifier := NewVerifierEdDSA(keys, "")

	claims := NewSessionClaims("user-123", "", "", time.Hour, "", time.Now().UTC())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestVerify_RejectsWrongIssuer(t *testing.T) {
	signer := newTestSigner(t, "session-1")

	keys := NewKeySet()
	keys.AddSigner(signer)
	verifier := NewVerifierEdDSA(keys, "cowrite-identity")

	claims := NewSessionClaims("user-123", "", "", time.Hour, "someone-else", time.Now().UTC())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, ErrIssuer)
}

func TestVerify_RejectsUnknownKID(t *testing.T) {
	signer := newTestSigner(t, "unknown")

	keys := NewKeySet()
	verifier := NewVerifierEdDSA(keys, "")

	claims := NewSessionClaims("user-123", "", "", time.Hour, "", time.Now().UTC())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
}
