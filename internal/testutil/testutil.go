// Package testutil provides shared test helpers for setting up vaults and databases.
package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/starford/tusk/internal/daystore"
	"github.com/starford/tusk/internal/index"
	"github.com/starford/tusk/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "tusk-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// TestStore creates a day store over a fresh vault. Days use UTC and the
// clock is frozen at now.
func TestStore(t *testing.T, now time.Time) *daystore.Store {
	t.Helper()
	_, fs := TestVault(t)
	return daystore.New(fs, "UTC", daystore.WithClock(func() time.Time { return now }))
}
