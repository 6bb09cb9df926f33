package index

import (
	"log/slog"
	"time"

	"github.com/steinmetz/vorlage/internal/checksum"
	"github.com/steinmetz/vorlage/internal/parser"
	"github.com/steinmetz/vorlage/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed templates are parsed and upserted
//   - templates removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
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
		if err := indexTemplate(db, m.Path, data, m.UpdatedAt); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteTemplate(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexTemplate parses data and upserts it into the DB.
func indexTemplate(db *DB, path string, data []byte, updatedAt time.Time) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	cs := checksum.Sum(data)

	row := TemplateRow{
		Path:         path,
		Title:        res.Title,
		Category:     res.Category,
		RequiredKeys: res.RequiredKeys,
		Checksum:     cs,
		UpdatedAt:    updatedAt,
	}
	return db.UpsertTemplate(row, res.Body, placeholderRefs(res))
}

// placeholderRefs extracts the distinct placeholder references of a
// parsed template.
func placeholderRefs(res *parser.Result) []PlaceholderRef {
	seen := make(map[string]struct{}, len(res.Tokens))
	refs := make([]PlaceholderRef, 0, len(res.Tokens))
	for _, tok := range res.Tokens {
		if _, ok := seen[tok.Raw]; ok {
			continue
		}
		seen[tok.Raw] = struct{}{}
		refs = append(refs, PlaceholderRef{Token: tok.Raw, Entity: tok.Entity, Field: tok.Field})
	}
	return refs
}
