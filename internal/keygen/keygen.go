// Package keygen generates the SSH keypair injected into launched instances.
//
// The private key is written in PEM-encoded PKCS#1 format and the public key
// in OpenSSH authorized_keys format, matching what the instance metadata
// expects.
package keygen

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
)

// DefaultBits is the RSA key size used when generating a fresh keypair.
const DefaultBits = 2048

// KeyPair holds an RSA key pair in ready-to-use formats.
type KeyPair struct {
	// PrivateKey is the RSA private key in PEM-encoded PKCS#1 format.
	PrivateKey []byte
	// PublicKey is the public key in OpenSSH authorized_keys format.
	PublicKey []byte
}

// GenerateRSAKeyPair generates a new RSA key pair with the specified bit size.
func GenerateRSAKeyPair(bits int) (*KeyPair, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA private key: %w", err)
	}

	if err := privateKey.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate RSA private key: %w", err)
	}

	privDER := x509.MarshalPKCS1PrivateKey(privateKey)
	privBlock := pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: privDER,
	}
	privateKeyPEM := pem.EncodeToMemory(&privBlock)

	publicRsaKey, err := ssh.NewPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH public key: %w", err)
	}

	return &KeyPair{
		PrivateKey: privateKeyPEM,
		PublicKey:  ssh.MarshalAuthorizedKey(publicRsaKey),
	}, nil
}

// ReadOrGeneratePublicKey returns the SSH public key material for instance
// metadata. When publicKeyPath exists it is read as-is; otherwise a new
// RSA-2048 keypair is generated and written next to it (the private key path
// is the public path with its ".pub" suffix stripped). Idempotent: an
// existing key file is never overwritten.
func ReadOrGeneratePublicKey(publicKeyPath string, logger *slog.Logger) (string, error) {
	if publicKeyPath == "" {
		return "", fmt.Errorf("ssh public key path is empty")
	}

	if data, err := os.ReadFile(publicKeyPath); err == nil {
		return strings.TrimSpace(string(data)), nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("reading ssh public key %s: %w", publicKeyPath, err)
	}

	if logger != nil {
		logger.Info("SSH public key not found, generating a new keypair", "path", publicKeyPath)
	}

	pair, err := GenerateRSAKeyPair(DefaultBits)
	if err != nil {
		return "", err
	}

	privateKeyPath := strings.TrimSuffix(publicKeyPath, ".pub")
	if err := os.WriteFile(privateKeyPath, pair.PrivateKey, 0o600); err != nil {
		return "", fmt.Errorf("writing private key %s: %w", privateKeyPath, err)
	}
	if err := os.WriteFile(publicKeyPath, pair.PublicKey, 0o644); err != nil {
		return "", fmt.Errorf("writing public key %s: %w", publicKeyPath, err)
	}

	if logger != nil {
		logger.Info("Generated new SSH keypair",
			"private_key", privateKeyPath,
			"public_key", publicKeyPath)
	}

	return strings.TrimSpace(string(pair.PublicKey)), nil
}
