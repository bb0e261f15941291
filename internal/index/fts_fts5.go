//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS terms_fts USING fts5(
			path UNINDEXED,
			target_word,
			source_word,
			tags,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, t TermRow, body string) error {
	_, _ = tx.Exec(`DELETE FROM terms_fts WHERE path = ?`, t.Path)
	_, err := tx.Exec(`INSERT INTO terms_fts (path, target_word, source_word, tags, body) VALUES (?, ?, ?, ?, ?)`,
		t.Path, t.TargetWord, t.SourceWord, t.Type+" "+t.Context, body)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM terms_fts WHERE path = ?`, path)
}

// Search performs an FTS5 full-text search over target word, translation,
// tags and body, returning results with snippets. Diacritics are folded
// by the tokenizer, so "eleve" finds "élève".
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT path,
		       target_word,
		       source_word,
		       snippet(terms_fts, 4, '<b>', '</b>', '...', 64)
		FROM terms_fts
		WHERE terms_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.TargetWord, &r.SourceWord, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
