package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/steinmetz/vorlage/internal/models"
)

// TemplateRow represents a row in the templates table.
type TemplateRow struct {
	Path         string
	Title        string
	Category     string
	RequiredKeys []string
	Checksum     string
	UpdatedAt    time.Time
}

// PlaceholderRef is one indexed placeholder occurrence of a template.
type PlaceholderRef struct {
	Token  string `json:"token"`
	Entity string `json:"entity"`
	Field  string `json:"field,omitempty"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertTemplate inserts or replaces a template, its FTS entry, and its
// placeholder references within a transaction.
func (db *DB) UpsertTemplate(t TemplateRow, body string, refs []PlaceholderRef) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	keysJSON, _ := json.Marshal(nonNil(t.RequiredKeys))

	_, err = tx.Exec(`
		INSERT INTO templates (path, title, category, required_keys, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title         = excluded.title,
			category      = excluded.category,
			required_keys = excluded.required_keys,
			checksum      = excluded.checksum,
			body          = excluded.body,
			updated_at    = excluded.updated_at
	`, t.Path, t.Title, t.Category, string(keysJSON), t.Checksum, body, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert template: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, t.Path, t.Title, body, t.Category); err != nil {
		return err
	}

	// Replace placeholder refs: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM placeholders WHERE path = ?`, t.Path)
	if len(refs) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO placeholders (path, token, entity, field) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare placeholder insert: %w", err)
		}
		defer stmt.Close()
		for _, ref := range refs {
			if _, err := stmt.Exec(t.Path, ref.Token, ref.Entity, ref.Field); err != nil {
				return fmt.Errorf("index: insert placeholder: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteTemplate removes a template, its FTS entry, and its placeholder refs.
func (db *DB) DeleteTemplate(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM placeholders WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM templates WHERE path = ?`, path)

	return tx.Commit()
}

// GetTemplate returns the indexed row for a template, or nil if not indexed.
func (db *DB) GetTemplate(path string) (*TemplateRow, error) {
	row := db.conn.QueryRow(`
		SELECT path, title, category, required_keys, checksum, updated_at
		FROM templates WHERE path = ?
	`, path)
	t, err := scanTemplateRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("index: get template: %w", err)
	}
	return t, nil
}

// ListTemplates returns paginated template rows with an optional category
// filter. Passing models.UncategorizedLabel selects templates without a
// category. Supported sort keys: updated_at (default), title, path.
func (db *DB) ListTemplates(limit, offset int, category, sortKey string) ([]TemplateRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := ""
	args := []any{}
	switch category {
	case "":
	case models.UncategorizedLabel:
		where = "WHERE category = ''"
	default:
		where = "WHERE category = ?"
		args = append(args, category)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM templates `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count templates: %w", err)
	}

	order := "updated_at DESC"
	switch sortKey {
	case "title":
		order = "title COLLATE NOCASE ASC"
	case "path":
		order = "path ASC"
	}

	query := fmt.Sprintf(`
		SELECT path, title, category, required_keys, checksum, updated_at
		FROM templates %s ORDER BY %s LIMIT ? OFFSET ?
	`, where, order)
	rows, err := db.conn.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list templates: %w", err)
	}
	defer rows.Close()

	var out []TemplateRow
	for rows.Next() {
		t, err := scanTemplateRow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	return out, total, rows.Err()
}

// Categories returns the per-category template counts. Named categories
// sort alphabetically; the uncategorized bucket ("Sonstiges") is present
// iff its count is positive and always sorts last.
func (db *DB) Categories() ([]models.CategoryBucket, error) {
	rows, err := db.conn.Query(`SELECT category, count(*) FROM templates GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("index: categories: %w", err)
	}
	defer rows.Close()

	var named []models.CategoryBucket
	uncategorized := 0
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		if name == "" {
			uncategorized = count
			continue
		}
		named = append(named, models.CategoryBucket{Name: name, Count: count})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(named, func(i, j int) bool {
		return strings.ToLower(named[i].Name) < strings.ToLower(named[j].Name)
	})
	if uncategorized > 0 {
		named = append(named, models.CategoryBucket{Name: models.UncategorizedLabel, Count: uncategorized})
	}
	return named, nil
}

// Placeholders returns the indexed placeholder refs of a template in
// token order.
func (db *DB) Placeholders(path string) ([]PlaceholderRef, error) {
	rows, err := db.conn.Query(`SELECT token, entity, field FROM placeholders WHERE path = ? ORDER BY token`, path)
	if err != nil {
		return nil, fmt.Errorf("index: placeholders: %w", err)
	}
	defer rows.Close()

	var out []PlaceholderRef
	for rows.Next() {
		var ref PlaceholderRef
		if err := rows.Scan(&ref.Token, &ref.Entity, &ref.Field); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// TemplatesUsingEntity returns the paths of templates that reference the
// given entity key in any placeholder.
func (db *DB) TemplatesUsingEntity(entity string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT path FROM placeholders WHERE entity = ? ORDER BY path`, entity)
	if err != nil {
		return nil, fmt.Errorf("index: templates using entity: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetChecksum returns the stored checksum for a template, or empty string
// if not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM templates WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns path → checksum for every indexed template.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM templates`)
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

// AllPaths returns every indexed template path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM templates`)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplateRow(r rowScanner) (*TemplateRow, error) {
	var t TemplateRow
	var keysJSON string
	if err := r.Scan(&t.Path, &t.Title, &t.Category, &keysJSON, &t.Checksum, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(keysJSON), &t.RequiredKeys); err != nil {
		t.RequiredKeys = []string{}
	}
	return &t, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
