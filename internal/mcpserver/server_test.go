package mcpserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lberthe/dicolex/internal/dictionary"
	"github.com/lberthe/dicolex/internal/index"
	"github.com/lberthe/dicolex/internal/storage"
	"github.com/lberthe/dicolex/internal/termservice"
	"github.com/lberthe/dicolex/internal/testutil"
	"github.com/lberthe/dicolex/internal/writer"
)

func testServer(t *testing.T) (*Server, storage.Provider, *index.DB) {
	t.Helper()

	_, store := testutil.Vault(t)
	logger := testutil.Logger()

	cache := dictionary.NewCache(store, dictionary.Config{
		Languages:     testutil.Languages,
		DictionaryDir: "dictionary",
		TemplatesDir:  "templates",
		TTL:           time.Minute,
	}, logger)

	w := writer.New(store, writer.Config{
		Languages:     testutil.Languages,
		DictionaryDir: "dictionary",
	}, logger)

	db := testutil.DB(t)
	svc := termservice.NewService(cache, w, db, store, nil, "fr")
	return New(svc), store, db
}

func syncIndex(t *testing.T, db *index.DB, store storage.Provider) {
	t.Helper()
	if err := index.Sync(db, store, testutil.Languages, testutil.Logger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_terms":
		result, err = srv.searchTerms(ctx, req)
	case "get_term":
		result, err = srv.getTerm(ctx, req)
	case "upsert_term":
		result, err = srv.upsertTerm(ctx, req)
	case "classify_term":
		result, err = srv.classifyTerm(ctx, req)
	case "list_terms":
		result, err = srv.listTerms(ctx, req)
	case "get_term_contract":
		result, err = srv.getTermContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestUpsertAndGetTerm(t *testing.T) {
	srv, _, _ := testServer(t)

	r := callTool(t, srv, "upsert_term", map[string]interface{}{
		"word":        "Parler",
		"translation": "to speak",
		"type":        "#verbe/régulier/1",
	})
	text := resultText(r)
	if text != "upserted: dictionary/parler.md" {
		t.Errorf("upsert result = %q", text)
	}

	r = callTool(t, srv, "get_term", map[string]interface{}{"word": "parler"})
	text = resultText(r)
	if !strings.Contains(text, `"to speak"`) || !strings.Contains(text, "#verbe/régulier/1") {
		t.Errorf("get result = %q", text)
	}
}

func TestUpsertTerm_DoesNotClobber(t *testing.T) {
	srv, store, _ := testServer(t)
	err := store.Write("dictionary/voir.md", []byte("---\nEnglish: to see\n---\nType:: #verbe/irrégulier/3/oir\n"))
	if err != nil {
		t.Fatal(err)
	}

	callTool(t, srv, "upsert_term", map[string]interface{}{
		"word":        "voir",
		"translation": "to watch",
		"context":     "#daily",
	})

	r := callTool(t, srv, "get_term", map[string]interface{}{"word": "voir"})
	text := resultText(r)
	if !strings.Contains(text, `"to see"`) {
		t.Errorf("curated translation was overwritten: %q", text)
	}
	if !strings.Contains(text, "#daily") {
		t.Errorf("blank context was not filled: %q", text)
	}
}

func TestGetTermMissing(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "get_term", map[string]interface{}{"word": "absent"})
	if !r.IsError {
		t.Error("expected error for missing term")
	}
}

func TestListTerms(t *testing.T) {
	srv, store, _ := testServer(t)
	_ = store.Write("dictionary/parler.md", []byte("---\nEnglish: to speak\n---\nType:: #verbe/régulier/1\n"))
	_ = store.Write("dictionary/bonjour.md", []byte("---\nEnglish: hello\n---\nType:: #expression\n"))

	r := callTool(t, srv, "list_terms", map[string]interface{}{})
	lines := strings.Split(resultText(r), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %v", lines)
	}

	r = callTool(t, srv, "list_terms", map[string]interface{}{"type": "verbe"})
	text := resultText(r)
	if !strings.Contains(text, "parler") || strings.Contains(text, "bonjour") {
		t.Errorf("filtered list = %q", text)
	}
}

func TestListTermsEmpty(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "list_terms", map[string]interface{}{})
	if resultText(r) != "no terms found" {
		t.Errorf("result = %q", resultText(r))
	}
}

func TestSearchTerms(t *testing.T) {
	srv, store, db := testServer(t)
	_ = store.Write("dictionary/parler.md", []byte("---\nEnglish: to speak\n---\nType:: #verbe/régulier/1\nExamples:: Je parle doucement.\n"))
	syncIndex(t, db, store)

	r := callTool(t, srv, "search_terms", map[string]interface{}{"query": "speak"})
	text := resultText(r)
	if !strings.Contains(text, "parler") {
		t.Errorf("search result = %q", text)
	}
}

func TestClassifyTermNoBackend(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "classify_term", map[string]interface{}{"word": "chat"})
	if !r.IsError {
		t.Error("expected error without an AI backend")
	}
	if !strings.Contains(resultText(r), "classification failed") {
		t.Errorf("error text = %q", resultText(r))
	}
}

func TestGetTermContract(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "get_term_contract", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "The filename IS the word") {
		t.Errorf("contract missing rules: %q", text[:80])
	}
}

func TestReadTermFormatResource(t *testing.T) {
	srv, _, _ := testServer(t)
	req := mcp.ReadResourceRequest{}
	req.Params.URI = "dicolex://term-format"

	contents, err := srv.readTermFormatResource(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.Text != TermFormatContract {
		t.Errorf("resource contents = %#v", contents[0])
	}
}
