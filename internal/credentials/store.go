package credentials

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
)

const fileMode = 0o600

var (
	ErrNotFound = errors.New("no saved credentials")
	ErrCorrupt  = errors.New("saved credentials cannot be decrypted")
)

// Credentials are the SMTP sender account.
type Credentials struct {
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Provider string    `json:"provider"`
	SavedAt  time.Time `json:"saved_at"`
}

// Info is the non-secret part of the saved credentials.
type Info struct {
	Email    string
	Provider string
	SavedAt  time.Time
}

// Store keeps credentials encrypted at rest with XChaCha20-Poly1305 under a
// random key kept in a separate file.
type Store struct {
	cachePath string
	keyPath   string
	now       func() time.Time
}

func NewStore(cachePath, keyPath string) *Store {
	return &Store{cachePath: cachePath, keyPath: keyPath, now: time.Now}
}

func (s *Store) Save(email, password, provider string) error {
	if provider == "" {
		provider = "auto"
	}
	plain, err := json.Marshal(Credentials{
		Email:    email,
		Password: password,
		Provider: provider,
		SavedAt:  s.now().UTC(),
	})
	if err != nil {
		return err
	}

	key, err := s.loadOrCreateKey()
	if err != nil {
		return err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plain, nil)

	if err := writePrivate(s.cachePath, sealed); err != nil {
		return fmt.Errorf("write credential cache: %w", err)
	}
	return nil
}

func (s *Store) Load() (*Credentials, error) {
	sealed, err := os.ReadFile(s.cachePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	key, err := os.ReadFile(s.keyPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: key file missing", ErrCorrupt)
	}
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("%w: truncated", ErrCorrupt)
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var c Credentials
	if err := json.Unmarshal(plain, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &c, nil
}

// Clear removes the cache and the key. Missing files are not an error.
func (s *Store) Clear() error {
	var errs []error
	for _, p := range []string{s.cachePath, s.keyPath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) Has() bool {
	_, err := os.Stat(s.cachePath)
	return err == nil
}

func (s *Store) Info() (*Info, error) {
	c, err := s.Load()
	if err != nil {
		return nil, err
	}
	return &Info{Email: c.Email, Provider: c.Provider, SavedAt: c.SavedAt}, nil
}

func (s *Store) loadOrCreateKey() ([]byte, error) {
	key, err := os.ReadFile(s.keyPath)
	if err == nil && len(key) == chacha20poly1305.KeySize {
		return key, nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	key = make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	if err := writePrivate(s.keyPath, key); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}
	return key, nil
}

func writePrivate(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, fileMode); err != nil {
		return err
	}
	return os.Chmod(path, fileMode)
}
