// Package models defines the domain types for Vorlage.
package models

import "time"

// Template represents a parsed document template in the vault.
type Template struct {
	Path         string    `json:"path"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Category     string    `json:"category,omitempty"`
	RequiredKeys []string  `json:"required_keys,omitempty"`
	Checksum     string    `json:"checksum"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TemplateMetadata is a lightweight representation returned by list operations.
type TemplateMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CategoryBucket is one entry in a category listing. The uncategorized
// bucket uses UncategorizedLabel as its name and sorts after every named
// category.
type CategoryBucket struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// UncategorizedLabel is the display name of the bucket collecting
// templates without a category.
const UncategorizedLabel = "Sonstiges"
