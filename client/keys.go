package client

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/go-keygrant/proof"
	"golang.org/x/crypto/ssh"
)

// Keypair is the client's proof-of-possession key. Its public half is the
// token id the server binds to a GitHub account.
type Keypair struct {
	priv ed25519.PrivateKey
	id   proof.TokenID
}

// GenerateKey creates a fresh Ed25519 keypair.
func GenerateKey() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	return newKeypair(priv)
}

func newKeypair(priv ed25519.PrivateKey) (*Keypair, error) {
	id, err := proof.TokenIDFromPublicKey(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	return &Keypair{priv: priv, id: id}, nil
}

func (k *Keypair) TokenID() proof.TokenID {
	return k.id
}

// Sign produces the proof for scope over the request time t (Unix ms).
func (k *Keypair) Sign(scope string, t int64) string {
	return proof.Sign(k.priv, scope, proof.FormatRequestTime(float64(t)))
}

// AuthorizedKey renders the public key as an authorized_keys line.
func (k *Keypair) AuthorizedKey(comment string) (string, error) {
	pub, err := ssh.NewPublicKey(k.priv.Public())
	if err != nil {
		return "", fmt.Errorf("encoding public key: %w", err)
	}
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(pub)))
	if comment != "" {
		line += " " + comment
	}
	return line, nil
}

// Fingerprint returns the SHA256 fingerprint ssh-keygen prints for the key.
func (k *Keypair) Fingerprint() (string, error) {
	pub, err := ssh.NewPublicKey(k.priv.Public())
	if err != nil {
		return "", fmt.Errorf("encoding public key: %w", err)
	}
	return ssh.FingerprintSHA256(pub), nil
}

// SaveKey writes the private key as an OpenSSH private key file readable only
// by the owner. An existing file is not overwritten.
func SaveKey(path string, k *Keypair, comment string) error {
	block, err := ssh.MarshalPrivateKey(k.priv, comment)
	if err != nil {
		return fmt.Errorf("encoding private key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("creating key file: %w", err)
	}
	if err := pem.Encode(f, block); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing key file: %w", err)
	}
	return f.Close()
}

// LoadKey reads an unencrypted OpenSSH Ed25519 private key file.
func LoadKey(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}

	raw, err := ssh.ParseRawPrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("parsing key file %s: %w", path, err)
	}

	switch key := raw.(type) {
	case *ed25519.PrivateKey:
		return newKeypair(*key)
	case ed25519.PrivateKey:
		return newKeypair(key)
	default:
		return nil, fmt.Errorf("key file %s holds a %T, want ed25519", path, raw)
	}
}
