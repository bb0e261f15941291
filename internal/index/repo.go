package index

import (
	"fmt"
	"time"
)

// TermRow represents a row in the terms table.
type TermRow struct {
	Path       string
	TargetWord string
	SourceWord string
	Type       string
	Context    string
	Revision   string
	Rating     string
	Checksum   string
	UpdatedAt  time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path       string
	TargetWord string
	SourceWord string
	Snippet    string
}

// UpsertTerm inserts or replaces a term row and its FTS entry within a
// transaction.
func (db *DB) UpsertTerm(t TermRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	// Upsert terms table (includes body for fallback search).
	_, err = tx.Exec(`
		INSERT INTO terms (path, target_word, source_word, type, context, revision, rating, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			target_word = excluded.target_word,
			source_word = excluded.source_word,
			type        = excluded.type,
			context     = excluded.context,
			revision    = excluded.revision,
			rating      = excluded.rating,
			checksum    = excluded.checksum,
			body        = excluded.body,
			updated_at  = excluded.updated_at
	`, t.Path, t.TargetWord, t.SourceWord, t.Type, t.Context, t.Revision, t.Rating, t.Checksum, body, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert term: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, t, body); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteTerm removes a term row and its FTS entry.
func (db *DB) DeleteTerm(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM terms WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a path, or empty string if
// not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM terms WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns path -> checksum for every indexed term.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM terms`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// AllPaths returns every indexed term path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM terms`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// ListTerms returns a page of term rows ordered by target word, plus the
// total row count.
func (db *DB) ListTerms(limit, offset int) ([]TermRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM terms`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count terms: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT path, target_word, source_word, type, context, revision, rating, checksum, updated_at
		FROM terms
		ORDER BY target_word
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list terms: %w", err)
	}
	defer rows.Close()

	var out []TermRow
	for rows.Next() {
		var t TermRow
		if err := rows.Scan(&t.Path, &t.TargetWord, &t.SourceWord, &t.Type, &t.Context,
			&t.Revision, &t.Rating, &t.Checksum, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}
