package app

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"github.com/cowritehq/cowrite/pkg/jwtx"
)

// sessionKeys bundles the signer used to mint sessions with the key set
// and verifier used to check them.
type sessionKeys struct {
	signer   jwtx.Signer
	keys     *jwtx.KeySet
	verifier jwtx.Verifier
}

// initSessionKeys loads the Ed25519 session signing key from
// cfg.SessionKeyFile, or generates an ephemeral one when no file is
// configured. Ephemeral keys invalidate all outstanding sessions on
// restart, which is fine for dev and test.
func initSessionKeys(cfg Config, logger *slog.Logger) (*sessionKeys, error) {
	var signer *jwtx.EdDSASigner

	if cfg.SessionKeyFile != "" {
		pemKey, err := os.ReadFile(cfg.SessionKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read session key file: %w", err)
		}
		signer, err = jwtx.NewSignerEdDSAFromPEM(keyID(pemKey), pemKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load session key: %w", err)
		}
		logger.Info("session signing key loaded", "kid", signer.KID())
	} else {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate session key: %w", err)
		}
		signer, err = jwtx.NewSignerEdDSA(keyID(priv), priv)
		if err != nil {
			return nil, fmt.Errorf("failed to init session signer: %w", err)
		}
		logger.Warn("using ephemeral session signing key; sessions will not survive a restart",
			"kid", signer.KID())
	}

	keys := jwtx.NewKeySet()
	keys.AddSigner(signer)

	return &sessionKeys{
		signer:   signer,
		keys:     keys,
		verifier: jwtx.NewVerifierEdDSA(keys, cfg.Issuer),
	}, nil
}

// keyID derives a stable short identifier from the key material.
func keyID(material []byte) string {
	sum := sha256.Sum256(material)
	return hex.EncodeToString(sum[:4])
}
