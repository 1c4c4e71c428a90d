// Package storage defines the vault file-system abstraction.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// FileMeta is a lightweight description of one stored file.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for vault file operations.
type Provider interface {
	// List returns metadata for every file under dir with the given extension.
	List(dir, ext string) ([]FileMeta, error)
	// Stat describes the file at path without handing back its contents.
	Stat(path string) (FileMeta, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to vault root).
	Delete(path string) error
	// Root returns the absolute vault directory.
	Root() string
}

// Checksum fingerprints file contents so the search index can skip day
// files that have not changed since the last sync.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
