package templateservice

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/steinmetz/vorlage/internal/apperr"
	"github.com/steinmetz/vorlage/internal/models"
	"github.com/steinmetz/vorlage/internal/testutil"
)

func testService(t *testing.T) *Service {
	t.Helper()
	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	return NewService(store, db, nil, nil)
}

const mahnung = `---
titel: Mahnung
kategorie: Zahlungen
kontext:
  - mieter
  - datum
---

Sehr geehrte/r @mieter.name,

bitte begleichen Sie die offene Miete bis zum @datum.
`

func TestCreateAndGetTemplate(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	detail, err := svc.CreateTemplate(ctx, "mahnung.md", []byte(mahnung))
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	if detail.Title != "Mahnung" || detail.Category != "Zahlungen" {
		t.Errorf("detail = %+v", detail)
	}
	if len(detail.Placeholders) != 2 {
		t.Errorf("placeholders = %v", detail.Placeholders)
	}

	got, err := svc.GetTemplate(ctx, "mahnung.md")
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if got.Checksum != detail.Checksum {
		t.Error("checksum mismatch between create and get")
	}
}

func TestCreateTemplate_AlreadyExists(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	if _, err := svc.CreateTemplate(ctx, "a.md", []byte(mahnung)); err != nil {
		t.Fatal(err)
	}
	_, err := svc.CreateTemplate(ctx, "a.md", []byte(mahnung))
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestCreateTemplate_MissingTitle(t *testing.T) {
	svc := testService(t)
	_, err := svc.CreateTemplate(context.Background(), "leer.md", []byte("nur text, keine Überschrift"))
	var appErr *apperr.AppError
	if !errors.As(err, &appErr) || appErr.Type != apperr.TypeMissingTitle {
		t.Errorf("err = %v, want AppError with TypeMissingTitle", err)
	}
}

func TestUpdateTemplate_ChecksumConflict(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	if _, err := svc.CreateTemplate(ctx, "k.md", []byte(mahnung)); err != nil {
		t.Fatal(err)
	}
	_, err := svc.UpdateTemplate(ctx, "k.md", []byte("# Neu\n\ntext"), "falsche-pruefsumme")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestGetTemplate_NotFound(t *testing.T) {
	svc := testService(t)
	_, err := svc.GetTemplate(context.Background(), "fehlt.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRenderPath(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	if _, err := svc.CreateTemplate(ctx, "m.md", []byte(mahnung)); err != nil {
		t.Fatal(err)
	}
	datum := time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC)
	res, err := svc.RenderPath(ctx, "m.md", &models.TemplateContext{
		Mieter: models.Entity{"name": "Max"},
		Datum:  &datum,
	})
	if err != nil {
		t.Fatalf("RenderPath: %v", err)
	}
	if !res.Success {
		t.Fatalf("render failed: %+v", res.Errors)
	}
	if len(res.UnresolvedPlaceholders) != 0 {
		t.Errorf("unresolved = %v", res.UnresolvedPlaceholders)
	}
	want := "Sehr geehrte/r Max,"
	if !strings.Contains(res.ProcessedContent, want) {
		t.Errorf("processed content missing %q:\n%s", want, res.ProcessedContent)
	}
	if !strings.Contains(res.ProcessedContent, "09.02.2024") {
		t.Errorf("processed content missing formatted date:\n%s", res.ProcessedContent)
	}
}

func TestValidatePath_UsesDeclaredKeys(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	if _, err := svc.CreateTemplate(ctx, "v.md", []byte(mahnung)); err != nil {
		t.Fatal(err)
	}
	report, err := svc.ValidatePath(ctx, "v.md")
	if err != nil {
		t.Fatalf("ValidatePath: %v", err)
	}
	if !report.Summary.IsValid {
		t.Errorf("expected valid template, got issues: %+v", report.Issues)
	}
}

func TestDeleteTemplate(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	if _, err := svc.CreateTemplate(ctx, "d.md", []byte(mahnung)); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteTemplate(ctx, "d.md"); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}
	_, err := svc.GetTemplate(ctx, "d.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound after delete", err)
	}
}
