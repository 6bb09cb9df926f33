package placeholder

import (
	"fmt"
	"strings"

	"github.com/steinmetz/vorlage/internal/models"
	"github.com/steinmetz/vorlage/internal/parser"
)

// entityDef carries the display name of an entity and of its known fields.
type entityDef struct {
	display string
	fields  map[string]string
}

// displayNames is the fixed entity/field display-name dictionary used to
// build fallback labels such as "[Mieter Name]".
var displayNames = map[string]entityDef{
	models.KeyMieter: {display: "Mieter", fields: map[string]string{
		"name":        "Name",
		"vorname":     "Vorname",
		"email":       "E-Mail",
		"telefon":     "Telefon",
		"nebenkosten": "Nebenkosten",
	}},
	models.KeyWohnung: {display: "Wohnung", fields: map[string]string{
		"name":    "Name",
		"adresse": "Adresse",
		"groesse": "Größe",
		"miete":   "Miete",
		"kaution": "Kaution",
	}},
	models.KeyHaus: {display: "Haus", fields: map[string]string{
		"name":    "Name",
		"strasse": "Straße",
		"plz":     "PLZ",
		"ort":     "Ort",
	}},
	models.KeyVermieter: {display: "Vermieter", fields: map[string]string{
		"name":    "Name",
		"firma":   "Firma",
		"email":   "E-Mail",
		"telefon": "Telefon",
	}},
}

// currencyFields render with the euro suffix when resolved numerically.
var currencyFields = map[string]struct{}{
	"miete":       {},
	"kaution":     {},
	"nebenkosten": {},
}

// KnownToken reports whether the token's entity and field match the
// documented placeholder set. Used by the validation rules.
func KnownToken(tok parser.Token) bool {
	switch tok.Entity {
	case models.KeyDatum:
		return tok.Field == "" || tok.Field == "lang"
	case models.KeyMonat:
		return tok.Field == "" || tok.Field == "name"
	case models.KeyJahr:
		return tok.Field == ""
	}
	def, ok := displayNames[tok.Entity]
	if !ok {
		return false
	}
	if tok.Field == "" {
		return false
	}
	_, ok = def.fields[tok.Field]
	return ok
}

// FallbackLabel builds the bracket label rendered in place of an
// unresolved token, e.g. "[Mieter Name]" or "[Datum]".
func FallbackLabel(tok parser.Token) string {
	switch tok.Entity {
	case models.KeyDatum:
		return "[Datum]"
	case models.KeyMonat:
		return "[Monat]"
	case models.KeyJahr:
		return "[Jahr]"
	}
	entityName := titleCase(tok.Entity)
	fieldName := titleCase(tok.Field)
	if def, ok := displayNames[tok.Entity]; ok {
		entityName = def.display
		if f, ok := def.fields[tok.Field]; ok {
			fieldName = f
		}
	}
	if fieldName == "" {
		return "[" + entityName + "]"
	}
	return "[" + entityName + " " + fieldName + "]"
}

// Resolve turns a token into its rendered value. The second return is
// false when the token cannot be resolved from the context; callers then
// splice in FallbackLabel and record the token as unresolved.
func Resolve(tok parser.Token, ctx *models.TemplateContext) (string, bool) {
	switch tok.Entity {
	case models.KeyDatum, models.KeyMonat, models.KeyJahr:
		return resolveDate(tok, ctx)
	}

	// Computed fields take precedence over generic lookup.
	if tok.Entity == models.KeyWohnung && tok.Field == "adresse" {
		return resolveAdresse(ctx)
	}
	if tok.Entity == models.KeyMieter && tok.Field == "nebenkosten" {
		return resolveNebenkosten(ctx)
	}

	entity := ctx.Get(tok.Entity)
	if entity == nil {
		return "", false
	}
	raw, ok := entity[tok.Field]
	if !ok || raw == nil {
		return "", false
	}
	return formatValue(tok.Field, raw)
}

// resolveDate handles the @datum/@monat/@jahr directives. Every
// date-family token is unresolved when the context carries no date.
func resolveDate(tok parser.Token, ctx *models.TemplateContext) (string, bool) {
	if ctx == nil || ctx.Datum == nil {
		return "", false
	}
	d := *ctx.Datum
	switch tok.Entity {
	case models.KeyDatum:
		if tok.Field == "lang" {
			return FormatDateLong(d), true
		}
		if tok.Field != "" {
			return "", false
		}
		return FormatDate(d), true
	case models.KeyMonat:
		if tok.Field == "name" {
			return MonthName(d), true
		}
		if tok.Field != "" {
			return "", false
		}
		return fmt.Sprintf("%d", int(d.Month())), true
	case models.KeyJahr:
		if tok.Field != "" {
			return "", false
		}
		return fmt.Sprintf("%04d", d.Year()), true
	}
	return "", false
}

// resolveAdresse composes the apartment address from the apartment name
// and the building street and city. Both entities must be present.
func resolveAdresse(ctx *models.TemplateContext) (string, bool) {
	wohnung := ctx.Get(models.KeyWohnung)
	haus := ctx.Get(models.KeyHaus)
	if wohnung == nil || haus == nil {
		return "", false
	}
	name := stringValue(wohnung["name"])
	strasse := stringValue(haus["strasse"])
	ort := stringValue(haus["ort"])
	if name == "" || strasse == "" || ort == "" {
		return "", false
	}
	return name + ", " + strasse + ", " + ort, true
}

// resolveNebenkosten sums the amounts of the tenant's ancillary-cost
// entries and renders the sum as currency. An empty or absent collection
// is unresolved, not zero.
func resolveNebenkosten(ctx *models.TemplateContext) (string, bool) {
	mieter := ctx.Get(models.KeyMieter)
	if mieter == nil {
		return "", false
	}
	entries, ok := collectionValue(mieter["nebenkosten"])
	if !ok || len(entries) == 0 {
		return "", false
	}
	var sum float64
	for _, e := range entries {
		sum += e
	}
	return FormatCurrency(sum), true
}

// formatValue renders a resolved field value. Empty strings count as
// unresolved per the resolution contract.
func formatValue(field string, raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return "", false
		}
		return v, true
	case float64:
		return formatNumeric(field, v), true
	case int:
		return formatNumeric(field, float64(v)), true
	case int64:
		return formatNumeric(field, float64(v)), true
	default:
		return "", false
	}
}

func formatNumeric(field string, v float64) string {
	if _, ok := currencyFields[field]; ok {
		return FormatCurrency(v)
	}
	return FormatNumber(v)
}

func stringValue(raw any) string {
	s, _ := raw.(string)
	return strings.TrimSpace(s)
}

// collectionValue extracts the numeric amounts of a cost collection.
// Supports the typed entry slice and the generic JSON-decoded shape.
func collectionValue(raw any) ([]float64, bool) {
	switch v := raw.(type) {
	case []models.NebenkostenEntry:
		out := make([]float64, len(v))
		for i, e := range v {
			out[i] = e.Amount
		}
		return out, true
	case []any:
		out := make([]float64, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, false
			}
			switch a := m["amount"].(type) {
			case float64:
				out = append(out, a)
			case int:
				out = append(out, float64(a))
			default:
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}

// titleCase upper-cases the first letter of an ASCII identifier.
func titleCase(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
