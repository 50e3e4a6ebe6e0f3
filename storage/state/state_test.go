package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileStore_roundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.state")

	fs := NewFileStore(path, "s3cret")
	if err := fs.Set("token", "abc123"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := fs.Set("role", "user"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	// a fresh store over the same file sees the same entries
	fs2 := NewFileStore(path, "s3cret")
	val, ok := fs2.Get("token")
	assert.True(t, ok)
	assert.Equal(t, "abc123", val)
	val, ok = fs2.Get("role")
	assert.True(t, ok)
	assert.Equal(t, "user", val)

	_, ok = fs2.Get("nope")
	assert.False(t, ok)
}

func TestFileStore_deleteClearsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.state")

	fs := NewFileStore(path, "s3cret")
	if err := fs.Set("token", "abc123"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := fs.Delete("token", "user", "role"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("state file still present after full delete: %v", err)
	}

	fs2 := NewFileStore(path, "s3cret")
	_, ok := fs2.Get("token")
	assert.False(t, ok)
}

func TestFileStore_ignoresForeignOrTamperedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.state")

	fs := NewFileStore(path, "s3cret")
	if err := fs.Set("token", "abc123"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	tests := []struct {
		name    string
		corrupt func(t *testing.T)
	}{
		{name: "different secret", corrupt: func(t *testing.T) {}},
		{name: "tampered contents", corrupt: func(t *testing.T) {
			if err := os.WriteFile(path, []byte("garbage"), 0o600); err != nil {
				t.Fatalf("WriteFile() failed: %v", err)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.corrupt(t)
			secret := "s3cret"
			if tt.name == "different secret" {
				secret = "other"
			}
			fs2 := NewFileStore(path, secret)
			if _, ok := fs2.Get("token"); ok {
				t.Error("expected unreadable state to read as empty")
			}
		})
	}
}
