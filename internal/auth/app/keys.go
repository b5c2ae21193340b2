package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/oriento/auth/pkg/cryptox"
	"github.com/oriento/auth/pkg/idx"
	"github.com/oriento/auth/pkg/jwtx"
)

// InitSigningKey loads the RS256 signing key from the configured PEM file,
// or generates an ephemeral keypair when no file is configured. Ephemeral
// mode invalidates all outstanding access tokens on restart, which is fine
// because refresh tokens survive in the database.
func InitSigningKey(cfg Config, logger *slog.Logger) (jwtx.Signer, *jwtx.KeySet, error) {
	var pemKey []byte

	if cfg.PrivateKeyFile != "" {
		data, err := os.ReadFile(cfg.PrivateKeyFile)
		if err != nil {
			return nil, nil, fmt.Errorf("read private key file: %w", err)
		}
		pemKey = data
		logger.Info("loaded signing key from file", "path", cfg.PrivateKeyFile)
	} else {
		generated, err := cryptox.GenerateRSAKey(2048)
		if err != nil {
			return nil, nil, fmt.Errorf("generate ephemeral key: %w", err)
		}
		pemKey = generated
		logger.Warn("using ephemeral signing key, access tokens will not survive restarts")
	}

	kid := idx.New().String()
	signer, err := jwtx.NewSignerRS256(kid, pemKey)
	if err != nil {
		return nil, nil, fmt.Errorf("build signer: %w", err)
	}

	keys := jwtx.NewKeySet()
	if err := keys.AddSigner(signer); err != nil {
		return nil, nil, fmt.Errorf("register signing key: %w", err)
	}

	logger.Info("signing key ready", "kid", kid, "alg", signer.Alg())
	return signer, keys, nil
}
