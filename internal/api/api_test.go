package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/lberthe/dicolex/internal/dictionary"
	"github.com/lberthe/dicolex/internal/index"
	"github.com/lberthe/dicolex/internal/models"
	"github.com/lberthe/dicolex/internal/storage"
	"github.com/lberthe/dicolex/internal/termservice"
	"github.com/lberthe/dicolex/internal/writer"
)

// testEnv sets up a temp vault, SQLite DB, service, and router for testing.
// authEnabled=false means disabled mode; authEnabled=true with non-empty
// token means token mode.
func testEnv(t *testing.T, authToken string) (storage.Provider, http.Handler) {
	t.Helper()
	return testEnvFull(t, authToken != "", authToken, nil)
}

func testEnvFull(t *testing.T, authEnabled bool, authToken string, sseHandler http.Handler) (storage.Provider, http.Handler) {
	t.Helper()

	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	dbFile, err := os.CreateTemp("", "dicolex-api-test-*.db")
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

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	langs := models.Languages{Target: "French", Source: "English", Locale: "fr"}

	cache := dictionary.NewCache(store, dictionary.Config{
		Languages:     langs,
		DictionaryDir: "dictionary",
		TemplatesDir:  "templates",
		TTL:           time.Minute,
	}, logger)
	w := writer.New(store, writer.Config{Languages: langs, DictionaryDir: "dictionary"}, logger)

	svc := termservice.NewService(cache, w, db, store, nil, "fr")
	router := NewRouter(svc, authEnabled, authToken, sseHandler)
	return store, router
}

func seedVault(t *testing.T, store storage.Provider) {
	t.Helper()
	notes := map[string]string{
		"dictionary/parler.md":  "---\nEnglish: to speak\n---\nType:: #verbe/régulier/1\nRevision:: 2\n",
		"dictionary/voir.md":    "---\nEnglish: to see\n---\nType:: #verbe/irrégulier/3/oir\n",
		"dictionary/bonjour.md": "---\nEnglish: hello\n---\nType:: #expression\nContext:: #social\n",
	}
	for p, c := range notes {
		if err := store.Write(p, []byte(c)); err != nil {
			t.Fatalf("seed %s: %v", p, err)
		}
	}
}

func TestListTermsEndpoint(t *testing.T) {
	store, router := testEnv(t, "")
	seedVault(t, store)

	req := httptest.NewRequest(http.MethodGet, "/terms", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d, body = %s", w.Code, w.Body.String())
	}
	var resp TermListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 3 || len(resp.Items) != 3 {
		t.Errorf("total = %d, len = %d", resp.Total, len(resp.Items))
	}
	if resp.Items[0].TargetWord != "bonjour" {
		t.Errorf("first entry = %q, want collated order", resp.Items[0].TargetWord)
	}
}

func TestListTermsEndpoint_FilterAndPagination(t *testing.T) {
	store, router := testEnv(t, "")
	seedVault(t, store)

	req := httptest.NewRequest(http.MethodGet, "/terms?type=verbe&start=0&size=1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp TermListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 || len(resp.Items) != 1 {
		t.Errorf("total = %d, len = %d, want 2/1", resp.Total, len(resp.Items))
	}
}

func TestListVerbsEndpoint(t *testing.T) {
	store, router := testEnv(t, "")
	seedVault(t, store)

	req := httptest.NewRequest(http.MethodGet, "/verbs?group=i1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("verbs = %d", w.Code)
	}
	var resp VerbListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Items[0].TargetWord != "voir" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGetTermEndpoint(t *testing.T) {
	store, router := testEnv(t, "")
	seedVault(t, store)

	req := httptest.NewRequest(http.MethodGet, "/terms/bonjour", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d", w.Code)
	}
	var resp TermDetailResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.SourceWord != "hello" {
		t.Errorf("entry = %+v", resp)
	}
	if resp.Note == "" || !bytes.Contains([]byte(resp.Note), []byte("#expression")) {
		t.Errorf("note = %q, want raw markdown", resp.Note)
	}
}

func TestGetTerm_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/terms/absent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing term = %d, want 404", w.Code)
	}
}

func TestUpsertTermEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	body, _ := json.Marshal(UpsertTermRequest{
		TargetWord: "chat",
		SourceWord: "cat",
		Type:       "#nom/commun",
	})
	req := httptest.NewRequest(http.MethodPost, "/terms", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("upsert = %d, body = %s", w.Code, w.Body.String())
	}
	var ref models.FileRef
	_ = json.Unmarshal(w.Body.Bytes(), &ref)
	if ref.Path != "dictionary/chat.md" {
		t.Errorf("ref = %+v", ref)
	}

	// Created entry is visible immediately.
	req = httptest.NewRequest(http.MethodGet, "/terms/chat", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("get after upsert = %d", w.Code)
	}
}

func TestUpsertTerm_MissingWord(t *testing.T) {
	_, router := testEnv(t, "")

	body, _ := json.Marshal(UpsertTermRequest{SourceWord: "cat"})
	req := httptest.NewRequest(http.MethodPost, "/terms", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("upsert without word = %d, want 400", w.Code)
	}
}

func TestUpdateTermFieldEndpoint(t *testing.T) {
	store, router := testEnv(t, "")
	seedVault(t, store)

	body, _ := json.Marshal(UpdateFieldRequest{Field: "Rating", Value: "5"})
	req := httptest.NewRequest(http.MethodPatch, "/terms/bonjour/fields", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("patch = %d, body = %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/terms/bonjour", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var entry models.DictionaryEntry
	_ = json.Unmarshal(w.Body.Bytes(), &entry)
	if entry.Rating != "5" {
		t.Errorf("Rating = %q, want 5", entry.Rating)
	}
}

func TestUpdateTermField_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	body, _ := json.Marshal(UpdateFieldRequest{Field: "Rating", Value: "5"})
	req := httptest.NewRequest(http.MethodPatch, "/terms/ghost/fields", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("patch missing = %d, want 404", w.Code)
	}
}

func TestClassifyTerm_NoBackendConfigured(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/terms/chat/classify", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadGateway {
		t.Errorf("classify without backend = %d, want 502", w.Code)
	}
}

func TestFacetsEndpoint(t *testing.T) {
	store, router := testEnv(t, "")
	seedVault(t, store)

	req := httptest.NewRequest(http.MethodGet, "/facets?fields=type,context", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("facets = %d", w.Code)
	}
	var resp FacetsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Facets["type"]) == 0 || resp.Facets["type"][0] != models.All {
		t.Errorf("type facet = %v", resp.Facets["type"])
	}
	if len(resp.Facets["context"]) == 0 {
		t.Errorf("context facet = %v", resp.Facets["context"])
	}
}

func TestFacets_MissingFields(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/facets", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("facets no fields = %d, want 400", w.Code)
	}
}

func TestGrammarEndpoint(t *testing.T) {
	store, router := testEnv(t, "")
	if err := store.Write("grammar/accord.md", []byte("---\nisGrammar: true\n---\nType:: #règle\n")); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/grammar", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("grammar = %d", w.Code)
	}
	var resp map[string][]models.GrammarPage
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp["pages"]) != 1 {
		t.Errorf("pages = %+v", resp["pages"])
	}
}

func TestRefreshCacheEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/cache/refresh", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh = %d", w.Code)
	}
	var resp RefreshResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Generation == 0 {
		t.Errorf("generation = %d, want > 0", resp.Generation)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/terms", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed list = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/terms", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/terms", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/terms", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// blockingSSEHandler writes headers and blocks until context done.
var blockingSSEHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvFull(t, true, "secret", blockingSSEHandler)

	// No token means 401.
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := testEnvFull(t, true, "tok", blockingSSEHandler)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
