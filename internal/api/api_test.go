package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/steinmetz/vorlage/internal/index"
	"github.com/steinmetz/vorlage/internal/storage"
	"github.com/steinmetz/vorlage/internal/templateservice"
)

// testEnv sets up a temp vault, SQLite DB, service, and router for testing.
// authEnabled=false means disabled mode; authEnabled=true with non-empty token means token mode.
func testEnv(t *testing.T, authToken string) (*templateservice.Service, http.Handler) {
	t.Helper()

	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	dbFile, err := os.CreateTemp("", "vorlage-api-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := templateservice.NewService(store, db, nil, nil)
	router := NewRouter(svc, authToken != "", authToken, nil)
	return svc, router
}

const mahnungContent = `---
titel: Mahnung
kategorie: Zahlungen
kontext:
  - mieter
  - datum
---

Sehr geehrte/r @mieter.name,

bitte begleichen Sie die offene Miete bis zum @datum.
`

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateAndGetTemplate(t *testing.T) {
	_, router := testEnv(t, "")

	w := postJSON(t, router, "/templates", map[string]string{"path": "mahnung.md", "content": mahnungContent})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/templates/mahnung.md", nil)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	if w2.Code != http.StatusOK {
		t.Fatalf("get status = %d", w2.Code)
	}
	var tpl TemplateDetail
	_ = json.Unmarshal(w2.Body.Bytes(), &tpl)
	if tpl.Path != "mahnung.md" {
		t.Errorf("path = %q", tpl.Path)
	}
	if tpl.Title != "Mahnung" || tpl.Category != "Zahlungen" {
		t.Errorf("title = %q, category = %q", tpl.Title, tpl.Category)
	}
	if len(tpl.Placeholders) != 2 {
		t.Errorf("placeholders = %v", tpl.Placeholders)
	}
}

func TestCreateDuplicate(t *testing.T) {
	_, router := testEnv(t, "")

	body := map[string]string{"path": "dup.md", "content": "# Doppelt"}
	if w := postJSON(t, router, "/templates", body); w.Code != http.StatusCreated {
		t.Fatalf("first create = %d", w.Code)
	}
	if w := postJSON(t, router, "/templates", body); w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
}

func TestCreateWithoutTitle(t *testing.T) {
	_, router := testEnv(t, "")

	w := postJSON(t, router, "/templates", map[string]string{"path": "ohne.md", "content": "nur text"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("create without title = %d, want 400", w.Code)
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	_, router := testEnv(t, "")

	w := postJSON(t, router, "/templates", map[string]string{"path": "lock.md", "content": "# Version Eins"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d", w.Code)
	}
	var created TemplateDetail
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	updateBody, _ := json.Marshal(map[string]string{"content": "# Version Zwei"})
	req := httptest.NewRequest(http.MethodPut, "/templates/lock.md", bytes.NewReader(updateBody))
	req.Header.Set("If-Match", created.Checksum)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	if w2.Code != http.StatusOK {
		t.Fatalf("update with correct checksum = %d, body = %s", w2.Code, w2.Body.String())
	}

	// Update with stale checksum → 409.
	req = httptest.NewRequest(http.MethodPut, "/templates/lock.md", bytes.NewReader(updateBody))
	req.Header.Set("If-Match", created.Checksum) // stale now
	w3 := httptest.NewRecorder()
	router.ServeHTTP(w3, req)
	if w3.Code != http.StatusConflict {
		t.Errorf("update with stale checksum = %d, want 409", w3.Code)
	}
}

func TestDeleteTemplate(t *testing.T) {
	_, router := testEnv(t, "")

	if w := postJSON(t, router, "/templates", map[string]string{"path": "weg.md", "content": "# Weg"}); w.Code != http.StatusCreated {
		t.Fatalf("create = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodDelete, "/templates/weg.md", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/templates/weg.md", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestListAndCategories(t *testing.T) {
	_, router := testEnv(t, "")

	_ = postJSON(t, router, "/templates", map[string]string{"path": "m.md", "content": mahnungContent})
	_ = postJSON(t, router, "/templates", map[string]string{"path": "o.md", "content": "# Ohne Kategorie"})

	req := httptest.NewRequest(http.MethodGet, "/templates?sort=title", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var list TemplateListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 2 || len(list.Templates) != 2 {
		t.Errorf("list = %+v", list)
	}

	req = httptest.NewRequest(http.MethodGet, "/categories", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("categories = %d", w.Code)
	}
	var cats CategoriesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &cats)
	if len(cats.Categories) != 2 {
		t.Fatalf("categories = %+v", cats.Categories)
	}
	last := cats.Categories[len(cats.Categories)-1]
	if last.Name != "Sonstiges" || last.Count != 1 {
		t.Errorf("last bucket = %+v, want Sonstiges/1", last)
	}
}

func TestRenderEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	w := postJSON(t, router, "/render", map[string]any{
		"content": "Hallo @mieter.name, heute ist @datum.",
		"context": map[string]any{
			"mieter": map[string]any{"name": "Max"},
			"datum":  "2024-02-09T00:00:00Z",
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("render = %d, body = %s", w.Code, w.Body.String())
	}
	var res RenderResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if !res.Success {
		t.Fatalf("render failed: %+v", res.Errors)
	}
	if res.ProcessedContent != "Hallo Max, heute ist 09.02.2024." {
		t.Errorf("processed = %q", res.ProcessedContent)
	}
	if len(res.UnresolvedPlaceholders) != 0 {
		t.Errorf("unresolved = %v", res.UnresolvedPlaceholders)
	}
}

func TestRenderEndpoint_Fallbacks(t *testing.T) {
	_, router := testEnv(t, "")

	w := postJSON(t, router, "/render", map[string]any{
		"content": "Hallo @mieter.name.",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("render = %d", w.Code)
	}
	var res RenderResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if !strings.Contains(res.ProcessedContent, "[Mieter Name]") {
		t.Errorf("processed = %q, want fallback label", res.ProcessedContent)
	}
	if len(res.UnresolvedPlaceholders) != 1 || res.UnresolvedPlaceholders[0] != "@mieter.name" {
		t.Errorf("unresolved = %v", res.UnresolvedPlaceholders)
	}
}

func TestRenderEndpoint_RequiresExactlyOneSource(t *testing.T) {
	_, router := testEnv(t, "")

	if w := postJSON(t, router, "/render", map[string]any{}); w.Code != http.StatusBadRequest {
		t.Errorf("empty render request = %d, want 400", w.Code)
	}
	if w := postJSON(t, router, "/render", map[string]any{"path": "a.md", "content": "x"}); w.Code != http.StatusBadRequest {
		t.Errorf("both sources = %d, want 400", w.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	w := postJSON(t, router, "/validate", map[string]any{
		"content": mahnungContent,
		"kontext": []string{"mieter", "datum"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("validate = %d, body = %s", w.Code, w.Body.String())
	}
	var report ValidationReport
	_ = json.Unmarshal(w.Body.Bytes(), &report)
	if !report.Summary.IsValid {
		t.Errorf("expected valid, issues = %+v", report.Issues)
	}
	if report.Summary.Score <= 0 || report.Summary.Score > 100 {
		t.Errorf("score = %d", report.Summary.Score)
	}
}

func TestValidateEndpoint_EmptyContentFails(t *testing.T) {
	_, router := testEnv(t, "")

	// Whitespace-only content is a validation error, not a request error.
	w := postJSON(t, router, "/validate", map[string]any{"content": "   "})
	if w.Code != http.StatusOK {
		t.Fatalf("validate = %d", w.Code)
	}
	var report ValidationReport
	_ = json.Unmarshal(w.Body.Bytes(), &report)
	if report.Summary.IsValid {
		t.Error("whitespace-only content should be invalid")
	}
	if report.Summary.ErrorCount == 0 {
		t.Error("expected at least one error")
	}
}

func TestValidateLiveEndpoint_Modes(t *testing.T) {
	_, router := testEnv(t, "")

	body := map[string]any{
		"content": "Hallo @unbekannt.feld",
		"mode":    "detailed",
	}
	w := postJSON(t, router, "/validate/live", body)
	if w.Code != http.StatusOK {
		t.Fatalf("detailed = %d, body = %s", w.Code, w.Body.String())
	}
	var detailed LiveResult
	_ = json.Unmarshal(w.Body.Bytes(), &detailed)
	if len(detailed.Errors) == 0 {
		t.Error("expected invalid-variable error in detailed result")
	}

	body["mode"] = "inline"
	w = postJSON(t, router, "/validate/live", body)
	if w.Code != http.StatusOK {
		t.Fatalf("inline = %d", w.Code)
	}
	var counts map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &counts)
	if _, ok := counts["error_count"]; !ok {
		t.Errorf("inline response missing counts: %s", w.Body.String())
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	_ = postJSON(t, router, "/templates", map[string]string{"path": "s.md", "content": "# Suchtest\n\neinzigartig"})

	req := httptest.NewRequest(http.MethodGet, "/search?q=einzigartig", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	var res SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if len(res.Results) != 1 || res.Results[0].Path != "s.md" {
		t.Errorf("results = %+v", res.Results)
	}

	req = httptest.NewRequest(http.MethodGet, "/search", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("search without q = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, router := testEnv(t, "geheim")

	req := httptest.NewRequest(http.MethodGet, "/templates", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/templates", nil)
	req.Header.Set("Authorization", "Bearer falsch")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/templates", nil)
	req.Header.Set("Authorization", "Bearer geheim")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}
