// Package storage defines the template vault file-system abstraction.
package storage

import "github.com/steinmetz/vorlage/internal/models"

// Provider is the interface for template vault file operations.
type Provider interface {
	// List returns metadata for every .md template under dir (relative to the vault root).
	List(dir string) ([]models.TemplateMetadata, error)
	// Read returns the raw bytes of the template file at path (relative to the vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the vault root).
	Write(path string, content []byte) error
	// Delete removes the template file at path (relative to the vault root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to the vault root).
	Move(oldPath, newPath string) error
}
