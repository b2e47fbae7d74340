package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Keys live sealed in a per-user file (0600). The sealing key is derived from
// the machine and user, so the file is obfuscated rather than protected.

const (
	appDir      = "creditofacil"
	fileName    = "keys.json"
	keySize     = 32
	fileVersion = 1
)

// ErrKeyNotFound is returned by Get for names never stored.
var ErrKeyNotFound = errors.New("secrets: key not found")

type keyFile struct {
	Version int               `json:"version"`
	Sealed  map[string]string `json:"sealed"`
}

// Store is a directory holding the key file.
type Store struct {
	mu   sync.Mutex
	path string
}

// OpenAt uses dir for the key file, creating it with 0700.
func OpenAt(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}
	return &Store{path: filepath.Join(dir, fileName)}, nil
}

// Open uses $XDG_CONFIG_HOME/creditofacil (or the platform equivalent).
func Open() (*Store, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}
	return OpenAt(filepath.Join(dir, appDir))
}

// Ensure returns the key stored under name, generating a random one on first
// use.
func (s *Store) Ensure(name string) ([]byte, error) {
	key, err := s.Get(name)
	if !errors.Is(err, ErrKeyNotFound) {
		return key, err
	}
	key = make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	if err := s.Put(name, key); err != nil {
		return nil, err
	}
	return key, nil
}

func (s *Store) Put(name string, key []byte) error {
	name, err := keyName(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kf, err := s.read()
	if err != nil {
		return err
	}
	sealed, err := seal(name, key)
	if err != nil {
		return err
	}
	kf.Sealed[name] = sealed
	return s.write(kf)
}

func (s *Store) Get(name string) ([]byte, error) {
	name, err := keyName(name)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kf, err := s.read()
	if err != nil {
		return nil, err
	}
	sealed, ok := kf.Sealed[name]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return open(name, sealed)
}

func (s *Store) Delete(name string) error {
	name, err := keyName(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kf, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := kf.Sealed[name]; !ok {
		return nil
	}
	delete(kf.Sealed, name)
	return s.write(kf)
}

func (s *Store) read() (keyFile, error) {
	kf := keyFile{Version: fileVersion, Sealed: map[string]string{}}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return kf, nil
	}
	if err != nil {
		return kf, fmt.Errorf("secrets: read: %w", err)
	}
	if err := json.Unmarshal(data, &kf); err != nil {
		return kf, fmt.Errorf("secrets: decode %s: %w", s.path, err)
	}
	if kf.Version != fileVersion {
		return kf, fmt.Errorf("secrets: unsupported key file version %d", kf.Version)
	}
	if kf.Sealed == nil {
		kf.Sealed = map[string]string{}
	}
	return kf, nil
}

// write replaces the file through a temp file in the same directory.
func (s *Store) write(kf keyFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("secrets: write: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func keyName(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", errors.New("secrets: key name required")
	}
	return s, nil
}

func sealingKey() ([]byte, error) {
	host, _ := os.Hostname()
	ikm := strings.Join([]string{runtime.GOOS, os.Getenv("USER"), host}, "|")
	r := hkdf.New(sha256.New, []byte(ikm), []byte(appDir), []byte("journal key file"))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// seal binds the ciphertext to name so entries cannot be swapped.
func seal(name string, plain []byte) (string, error) {
	key, err := sealingKey()
	if err != nil {
		return "", err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	out := aead.Seal(nonce, nonce, plain, []byte(name))
	return base64.StdEncoding.EncodeToString(out), nil
}

func open(name, sealed string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("secrets: %s: %w", name, err)
	}
	key, err := sealingKey()
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(raw) < aead.NonceSize() {
		return nil, fmt.Errorf("secrets: %s: sealed value too short", name)
	}
	plain, err := aead.Open(nil, raw[:aead.NonceSize()], raw[aead.NonceSize():], []byte(name))
	if err != nil {
		return nil, fmt.Errorf("secrets: %s: %w", name, err)
	}
	return plain, nil
}

// EnsureKey is Ensure on the default store.
func EnsureKey(name string) ([]byte, error) {
	s, err := Open()
	if err != nil {
		return nil, err
	}
	return s.Ensure(name)
}

// DeleteKey is Delete on the default store.
func DeleteKey(name string) error {
	s, err := Open()
	if err != nil {
		return err
	}
	return s.Delete(name)
}
