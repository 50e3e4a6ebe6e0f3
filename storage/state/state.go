package state

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"sync"

	"github.com/gorilla/securecookie"
	"github.com/pkg/errors"
)

// Store persists a handful of string entries across restarts.
// Writes are synchronous; last write wins.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(keys ...string) error
}

// FileStore keeps all entries in a single signed file so a tampered
// credential cache reads as empty instead of producing a forged session.
type FileStore struct {
	mu      sync.Mutex
	path    string
	codec   *securecookie.SecureCookie
	entries map[string]string
}

var _ Store = (*FileStore)(nil)

const codecName = "answercheck-state"

// NewFileStore opens (or initializes) the state file at path, signing its
// contents with a key derived from secret. A file that fails to decode —
// corrupted, tampered with, or signed under a different secret — is treated
// as empty.
func NewFileStore(path, secret string) *FileStore {
	hashKey := sha256.Sum256([]byte(secret))
	fs := &FileStore{
		path:    path,
		codec:   securecookie.New(hashKey[:], nil),
		entries: make(map[string]string),
	}
	fs.load()
	return fs
}

func (fs *FileStore) load() {
	raw, err := os.ReadFile(fs.path)
	if err != nil {
		return
	}
	entries := make(map[string]string)
	if err := fs.codec.Decode(codecName, string(raw), &entries); err != nil {
		return
	}
	fs.entries = entries
}

func (fs *FileStore) flush() error {
	encoded, err := fs.codec.Encode(codecName, fs.entries)
	if err != nil {
		return errors.Wrap(err, "encoding state")
	}
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(encoded), 0o600); err != nil {
		return errors.Wrap(err, "writing state file")
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return errors.Wrap(err, "replacing state file")
	}
	return nil
}

func (fs *FileStore) Get(key string) (string, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	val, ok := fs.entries[key]
	return val, ok
}

func (fs *FileStore) Set(key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.entries[key] = value
	return fs.flush()
}

func (fs *FileStore) Delete(keys ...string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, key := range keys {
		delete(fs.entries, key)
	}
	if len(fs.entries) == 0 {
		if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "removing state file")
		}
		return nil
	}
	return fs.flush()
}

// Path returns the backing file location.
func (fs *FileStore) Path() string {
	return filepath.Clean(fs.path)
}
