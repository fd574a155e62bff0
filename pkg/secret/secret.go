// Package secret implements the `secret.<id>` backends a config file
// declares: a named source of credential material a sink's
// request configuration can reference rather than embedding in plain
// text. Wiring a resolved value into a concrete sink's auth headers is
// left to that sink's integration, out of scope here along with the
// rest of the concrete network integrations.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cuemby/flowd/pkg/topology"
)

// Backend resolves a named credential to its plaintext value.
type Backend interface {
	Resolve(key string) (string, error)
}

// Build constructs the Backend cfg.Type names.
func Build(cfg topology.SecretConfig) (Backend, error) {
	switch cfg.Type {
	case "env":
		return envBackend{}, nil
	case "file":
		dir, _ := cfg.Params["dir"].(string)
		if dir == "" {
			return nil, fmt.Errorf("secret: file backend requires params.dir")
		}
		return fileBackend{dir: dir}, nil
	case "encrypted_file":
		dir, _ := cfg.Params["dir"].(string)
		passEnv, _ := cfg.Params["password_env"].(string)
		if dir == "" || passEnv == "" {
			return nil, fmt.Errorf("secret: encrypted_file backend requires params.dir and params.password_env")
		}
		password := os.Getenv(passEnv)
		if password == "" {
			return nil, fmt.Errorf("secret: encrypted_file backend: %s is unset", passEnv)
		}
		mgr, err := newAESManagerFromPassword(password)
		if err != nil {
			return nil, err
		}
		return encryptedFileBackend{dir: dir, mgr: mgr}, nil
	default:
		return nil, fmt.Errorf("secret: unknown backend type %q", cfg.Type)
	}
}

// envBackend resolves key by looking up its upper-cased form in the
// process environment, per the usual shell convention.
type envBackend struct{}

func (envBackend) Resolve(key string) (string, error) {
	v, ok := os.LookupEnv(strings.ToUpper(key))
	if !ok {
		return "", fmt.Errorf("secret: env var %s not set", strings.ToUpper(key))
	}
	return v, nil
}

// fileBackend resolves key by reading dir/key as a plaintext file,
// trimming a single trailing newline (the usual Docker/Kubernetes
// secret-mount convention).
type fileBackend struct{ dir string }

func (b fileBackend) Resolve(key string) (string, error) {
	data, err := os.ReadFile(b.dir + "/" + key)
	if err != nil {
		return "", fmt.Errorf("secret: read %s/%s: %w", b.dir, key, err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

// encryptedFileBackend resolves key by reading dir/key as
// AES-256-GCM-encrypted bytes (nonce prepended) and decrypting them
// with a key derived from a password supplied via environment variable.
type encryptedFileBackend struct {
	dir string
	mgr *aesManager
}

func (b encryptedFileBackend) Resolve(key string) (string, error) {
	ciphertext, err := os.ReadFile(b.dir + "/" + key)
	if err != nil {
		return "", fmt.Errorf("secret: read %s/%s: %w", b.dir, key, err)
	}
	plaintext, err := b.mgr.decrypt(ciphertext)
	if err != nil {
		return "", fmt.Errorf("secret: decrypt %s/%s: %w", b.dir, key, err)
	}
	return string(plaintext), nil
}

// aesManager performs AES-256-GCM encryption with a nonce prepended to
// the ciphertext, the wire format encryptedFileBackend reads back.
type aesManager struct {
	key []byte
}

func newAESManagerFromPassword(password string) (*aesManager, error) {
	if password == "" {
		return nil, fmt.Errorf("secret: password cannot be empty")
	}
	hash := sha256.Sum256([]byte(password))
	return &aesManager{key: hash[:]}, nil
}

func (m *aesManager) encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(m.key)
	if err != nil {
		return nil, fmt.Errorf("secret: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secret: new gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("secret: generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (m *aesManager) decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(m.key)
	if err != nil {
		return nil, fmt.Errorf("secret: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secret: new gcm: %w", err)
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("secret: ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// Encrypt encrypts plaintext for storage under an encrypted_file
// backend's dir, the counterpart an operator's provisioning tooling
// uses to populate what Resolve later reads back.
func Encrypt(password string, plaintext []byte) ([]byte, error) {
	mgr, err := newAESManagerFromPassword(password)
	if err != nil {
		return nil, err
	}
	return mgr.encrypt(plaintext)
}
