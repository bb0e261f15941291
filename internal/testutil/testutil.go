// Package testutil provides shared test helpers for setting up vaults and databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/lberthe/dicolex/internal/index"
	"github.com/lberthe/dicolex/internal/models"
	"github.com/lberthe/dicolex/internal/storage"
)

// Languages is the language pair used throughout the test suites.
var Languages = models.Languages{Target: "French", Source: "English", Locale: "fr"}

// Logger returns a logger that discards all output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// DB creates a temporary SQLite index that is automatically cleaned up.
func DB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "dicolex-test-*.db")
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

// Vault creates a temporary vault directory with a storage.Provider.
func Vault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}
