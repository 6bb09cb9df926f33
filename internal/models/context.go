package models

import "time"

// Entity keys recognised in placeholder tokens.
const (
	KeyMieter    = "mieter"
	KeyWohnung   = "wohnung"
	KeyHaus      = "haus"
	KeyVermieter = "vermieter"
	KeyDatum     = "datum"
	KeyMonat     = "monat"
	KeyJahr      = "jahr"
)

// Entity is a generic record: field name to value. Values may be strings,
// numbers, or collections (for aggregate fields such as nebenkosten).
type Entity map[string]any

// TemplateContext carries the optional entity records and the optional
// date supplied at render time. A nil entity means "not provided"; date
// directives resolve only when Datum is non-nil.
type TemplateContext struct {
	Mieter    Entity     `json:"mieter,omitempty"`
	Wohnung   Entity     `json:"wohnung,omitempty"`
	Haus      Entity     `json:"haus,omitempty"`
	Vermieter Entity     `json:"vermieter,omitempty"`
	Datum     *time.Time `json:"datum,omitempty"`
}

// Get returns the entity record for key, or nil when absent.
func (c *TemplateContext) Get(key string) Entity {
	if c == nil {
		return nil
	}
	switch key {
	case KeyMieter:
		return c.Mieter
	case KeyWohnung:
		return c.Wohnung
	case KeyHaus:
		return c.Haus
	case KeyVermieter:
		return c.Vermieter
	}
	return nil
}

// NebenkostenEntry is one ancillary-cost item on a tenant record.
type NebenkostenEntry struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}
