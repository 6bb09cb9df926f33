package index

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/steinmetz/vorlage/internal/models"
	"github.com/steinmetz/vorlage/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "vorlage-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM templates`).Scan(&count); err != nil {
		t.Fatalf("templates table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM placeholders`).Scan(&count); err != nil {
		t.Fatalf("placeholders table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := TemplateRow{
		Path:         "mahnung.md",
		Title:        "Mahnung",
		Category:     "Zahlungen",
		RequiredKeys: []string{"mieter", "datum"},
		Checksum:     "abc123",
		UpdatedAt:    time.Now(),
	}
	refs := []PlaceholderRef{
		{Token: "@mieter.name", Entity: "mieter", Field: "name"},
		{Token: "@datum", Entity: "datum"},
	}
	if err := db.UpsertTemplate(row, "Sehr geehrte/r @mieter.name, heute ist @datum.", refs); err != nil {
		t.Fatalf("UpsertTemplate: %v", err)
	}
	cs, err := db.GetChecksum("mahnung.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestPlaceholders(t *testing.T) {
	db := testDB(t)
	refs := []PlaceholderRef{
		{Token: "@mieter.name", Entity: "mieter", Field: "name"},
		{Token: "@wohnung.miete", Entity: "wohnung", Field: "miete"},
	}
	_ = db.UpsertTemplate(TemplateRow{Path: "v.md", Checksum: "1", UpdatedAt: time.Now()}, "body", refs)

	got, err := db.Placeholders("v.md")
	if err != nil {
		t.Fatalf("Placeholders: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 placeholders, got %d", len(got))
	}
	if got[0].Token != "@mieter.name" || got[0].Entity != "mieter" || got[0].Field != "name" {
		t.Errorf("first ref = %+v", got[0])
	}
}

func TestTemplatesUsingEntity(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertTemplate(TemplateRow{Path: "a.md", Checksum: "1", UpdatedAt: time.Now()}, "body",
		[]PlaceholderRef{{Token: "@mieter.name", Entity: "mieter", Field: "name"}})
	_ = db.UpsertTemplate(TemplateRow{Path: "b.md", Checksum: "2", UpdatedAt: time.Now()}, "body",
		[]PlaceholderRef{{Token: "@mieter.email", Entity: "mieter", Field: "email"}})
	_ = db.UpsertTemplate(TemplateRow{Path: "c.md", Checksum: "3", UpdatedAt: time.Now()}, "body",
		[]PlaceholderRef{{Token: "@datum", Entity: "datum"}})

	paths, err := db.TemplatesUsingEntity("mieter")
	if err != nil {
		t.Fatalf("TemplatesUsingEntity: %v", err)
	}
	if len(paths) != 2 || paths[0] != "a.md" || paths[1] != "b.md" {
		t.Errorf("paths = %v, want [a.md b.md]", paths)
	}
}

func TestDeleteTemplate(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertTemplate(TemplateRow{Path: "del.md", Checksum: "x", UpdatedAt: time.Now()}, "body",
		[]PlaceholderRef{{Token: "@mieter.name", Entity: "mieter", Field: "name"}})

	if err := db.DeleteTemplate("del.md"); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}
	cs, _ := db.GetChecksum("del.md")
	if cs != "" {
		t.Errorf("deleted template still has checksum %q", cs)
	}
	refs, _ := db.Placeholders("del.md")
	if len(refs) != 0 {
		t.Errorf("expected 0 placeholders after delete, got %d", len(refs))
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertTemplate(TemplateRow{Path: "up.md", Title: "Alt", Checksum: "1", UpdatedAt: now}, "alter text",
		[]PlaceholderRef{{Token: "@mieter.name", Entity: "mieter", Field: "name"}})
	_ = db.UpsertTemplate(TemplateRow{Path: "up.md", Title: "Neu", Checksum: "2", UpdatedAt: now}, "neuer text",
		[]PlaceholderRef{{Token: "@datum", Entity: "datum"}})

	cs, _ := db.GetChecksum("up.md")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	refs, _ := db.Placeholders("up.md")
	if len(refs) != 1 || refs[0].Token != "@datum" {
		t.Errorf("placeholders = %+v, want the new ref only", refs)
	}
	row, _ := db.GetTemplate("up.md")
	if row == nil || row.Title != "Neu" {
		t.Errorf("title not updated: %+v", row)
	}
}

func TestGetTemplate_NotFound(t *testing.T) {
	db := testDB(t)
	row, err := db.GetTemplate("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row != nil {
		t.Errorf("expected nil row, got %+v", row)
	}
}

func TestListTemplates_FilterAndSort(t *testing.T) {
	db := testDB(t)
	base := time.Now()
	_ = db.UpsertTemplate(TemplateRow{Path: "b.md", Title: "Betriebskosten", Category: "Abrechnung", Checksum: "1", UpdatedAt: base}, "", nil)
	_ = db.UpsertTemplate(TemplateRow{Path: "a.md", Title: "Anschreiben", Category: "Korrespondenz", Checksum: "2", UpdatedAt: base.Add(time.Second)}, "", nil)
	_ = db.UpsertTemplate(TemplateRow{Path: "o.md", Title: "Ohne Kategorie", Category: "", Checksum: "3", UpdatedAt: base.Add(2 * time.Second)}, "", nil)

	rows, total, err := db.ListTemplates(10, 0, "", "title")
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	if total != 3 || len(rows) != 3 {
		t.Fatalf("total = %d, len = %d, want 3/3", total, len(rows))
	}
	if rows[0].Title != "Anschreiben" {
		t.Errorf("first by title = %q", rows[0].Title)
	}

	rows, total, err = db.ListTemplates(10, 0, "Abrechnung", "")
	if err != nil {
		t.Fatalf("ListTemplates filtered: %v", err)
	}
	if total != 1 || rows[0].Path != "b.md" {
		t.Errorf("filtered: total=%d rows=%+v", total, rows)
	}

	rows, total, err = db.ListTemplates(10, 0, models.UncategorizedLabel, "")
	if err != nil {
		t.Fatalf("ListTemplates uncategorized: %v", err)
	}
	if total != 1 || rows[0].Path != "o.md" {
		t.Errorf("uncategorized: total=%d rows=%+v", total, rows)
	}
}

func TestCategories_SonstigesLastAndOnlyWhenPresent(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertTemplate(TemplateRow{Path: "z.md", Category: "Zahlungen", Checksum: "1", UpdatedAt: now}, "", nil)
	_ = db.UpsertTemplate(TemplateRow{Path: "a.md", Category: "Abrechnung", Checksum: "2", UpdatedAt: now}, "", nil)

	buckets, err := db.Categories()
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %+v", buckets)
	}
	for _, b := range buckets {
		if b.Name == models.UncategorizedLabel {
			t.Error("Sonstiges bucket present without uncategorized templates")
		}
	}
	if buckets[0].Name != "Abrechnung" || buckets[1].Name != "Zahlungen" {
		t.Errorf("named buckets not alphabetical: %+v", buckets)
	}

	// Add an uncategorized template: Sonstiges appears, always last.
	_ = db.UpsertTemplate(TemplateRow{Path: "o.md", Category: "", Checksum: "3", UpdatedAt: now}, "", nil)
	buckets, err = db.Categories()
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(buckets) != 3 {
		t.Fatalf("expected 3 buckets, got %+v", buckets)
	}
	last := buckets[len(buckets)-1]
	if last.Name != models.UncategorizedLabel || last.Count != 1 {
		t.Errorf("last bucket = %+v, want Sonstiges with count 1", last)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestSync_IndexesFrontmatter(t *testing.T) {
	db := testDB(t)
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	content := "---\ntitel: Mietbestätigung\nkategorie: Bestätigungen\nkontext:\n  - mieter\n  - wohnung\n---\n\nHallo @mieter.name, Ihre Miete beträgt @wohnung.miete."
	if err := os.WriteFile(filepath.Join(vaultDir, "bestaetigung.md"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	row, err := db.GetTemplate("bestaetigung.md")
	if err != nil || row == nil {
		t.Fatalf("GetTemplate: row=%v err=%v", row, err)
	}
	if row.Title != "Mietbestätigung" || row.Category != "Bestätigungen" {
		t.Errorf("row = %+v", row)
	}
	if len(row.RequiredKeys) != 2 || row.RequiredKeys[0] != "mieter" {
		t.Errorf("required keys = %v", row.RequiredKeys)
	}
	refs, _ := db.Placeholders("bestaetigung.md")
	if len(refs) != 2 {
		t.Errorf("expected 2 placeholder refs, got %+v", refs)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertTemplate(TemplateRow{Path: "s.md", Title: "Such mich", Checksum: "1", UpdatedAt: time.Now()}, "einzigartig kommt hier vor", nil)

	results, err := db.Search("einzigartig", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.md" {
		t.Errorf("search results = %+v, want 1 hit for s.md", results)
	}
}
