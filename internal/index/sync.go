package index

import (
	"log/slog"
	"time"

	"github.com/lberthe/dicolex/internal/builder"
	"github.com/lberthe/dicolex/internal/models"
	"github.com/lberthe/dicolex/internal/parser"
	"github.com/lberthe/dicolex/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed notes are parsed and upserted
//   - notes removed from disk are deleted from the index
//
// Unchanged notes are detected by checksum and skipped without a read.
func Sync(db *DB, store storage.Provider, langs models.Languages, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data, langs); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteTerm(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexFile parses data, normalizes it through the entry builder, and
// upserts the resulting row.
func indexFile(db *DB, path string, data []byte, langs models.Languages) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	entry := builder.Build(builder.FileRefFor(path), res, langs)

	row := TermRow{
		Path:       path,
		TargetWord: entry.TargetWord,
		SourceWord: entry.SourceWord,
		Type:       entry.Type,
		Context:    entry.Context,
		Revision:   entry.Revision,
		Rating:     entry.Rating,
		Checksum:   storage.Checksum(data),
		UpdatedAt:  time.Now().UTC(),
	}
	return db.UpsertTerm(row, res.Body)
}
