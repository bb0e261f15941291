package termservice

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lberthe/dicolex/internal/apperr"
	"github.com/lberthe/dicolex/internal/classifier"
	"github.com/lberthe/dicolex/internal/dictionary"
	"github.com/lberthe/dicolex/internal/models"
	"github.com/lberthe/dicolex/internal/storage"
	"github.com/lberthe/dicolex/internal/testutil"
	"github.com/lberthe/dicolex/internal/writer"
)

type stubClassifier struct {
	result *classifier.Result
	err    error
}

func (s *stubClassifier) ClassifyTerm(_ context.Context, _ string) (*classifier.Result, error) {
	return s.result, s.err
}

func testService(t *testing.T, cl Classifier) (*Service, storage.Provider) {
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

	return NewService(cache, w, testutil.DB(t), store, cl, "fr"), store
}

func seed(t *testing.T, store storage.Provider) {
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

func TestListTerms_FilterAndPaginate(t *testing.T) {
	svc, store := testService(t, nil)
	seed(t, store)
	ctx := context.Background()

	f := models.NewFilterState()
	page, err := svc.ListTerms(ctx, f, 0, 2)
	if err != nil {
		t.Fatalf("ListTerms: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 2 {
		t.Errorf("total = %d, len = %d", page.Total, len(page.Items))
	}

	f.Type = "verbe"
	page, err = svc.ListTerms(ctx, f, 0, 0)
	if err != nil {
		t.Fatalf("ListTerms: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("filtered total = %d, want 2", page.Total)
	}
}

func TestListVerbs(t *testing.T) {
	svc, store := testService(t, nil)
	seed(t, store)

	f := models.NewFilterState()
	f.Group = "3oir"
	page, err := svc.ListVerbs(context.Background(), f, 0, 0)
	if err != nil {
		t.Fatalf("ListVerbs: %v", err)
	}
	if page.Total != 1 || page.Items[0].TargetWord != "voir" {
		t.Errorf("page = %+v", page)
	}
}

func TestGetTerm(t *testing.T) {
	svc, store := testService(t, nil)
	seed(t, store)
	ctx := context.Background()

	entry, err := svc.GetTerm(ctx, "Bonjour")
	if err != nil {
		t.Fatalf("GetTerm: %v", err)
	}
	if entry.SourceWord != "hello" {
		t.Errorf("entry = %+v", entry)
	}

	if _, err := svc.GetTerm(ctx, "absent"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetTermDetail_ReturnsRawNote(t *testing.T) {
	svc, store := testService(t, nil)
	seed(t, store)

	entry, note, err := svc.GetTermDetail(context.Background(), "voir")
	if err != nil {
		t.Fatalf("GetTermDetail: %v", err)
	}
	if entry.TargetWord != "voir" {
		t.Errorf("entry = %+v", entry)
	}
	if !strings.Contains(note, "#verbe/irrégulier/3/oir") {
		t.Errorf("note = %q, want raw markdown", note)
	}
}

func TestFacets(t *testing.T) {
	svc, store := testService(t, nil)
	seed(t, store)

	f := models.NewFilterState()
	facets, err := svc.Facets(context.Background(), f, []string{dictionary.FieldType, dictionary.FieldContext})
	if err != nil {
		t.Fatalf("Facets: %v", err)
	}
	if len(facets[dictionary.FieldType]) == 0 || facets[dictionary.FieldType][0] != models.All {
		t.Errorf("type facet = %v", facets[dictionary.FieldType])
	}
	foundSocial := false
	for _, v := range facets[dictionary.FieldContext] {
		if v == "#social" {
			foundSocial = true
		}
	}
	if !foundSocial {
		t.Errorf("context facet = %v, missing #social", facets[dictionary.FieldContext])
	}
}

func TestUpsertTerm_InvalidatesCache(t *testing.T) {
	svc, _ := testService(t, nil)
	ctx := context.Background()

	ref, err := svc.UpsertTerm(ctx, models.Term{TargetWord: "chat", SourceWord: "cat", Type: "#nom"}, false)
	if err != nil {
		t.Fatalf("UpsertTerm: %v", err)
	}
	if ref.Basename != "chat" {
		t.Errorf("ref = %+v", ref)
	}

	// The fresh note must be visible immediately, not after the TTL.
	entry, err := svc.GetTerm(ctx, "chat")
	if err != nil {
		t.Fatalf("GetTerm after upsert: %v", err)
	}
	if entry.Type != "#nom" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestUpdateTermField_VisibleImmediately(t *testing.T) {
	svc, store := testService(t, nil)
	seed(t, store)
	ctx := context.Background()

	if err := svc.UpdateTermField(ctx, "bonjour", "Rating", "5", false); err != nil {
		t.Fatalf("UpdateTermField: %v", err)
	}
	entry, err := svc.GetTerm(ctx, "bonjour")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Rating != "5" {
		t.Errorf("Rating = %q, want 5", entry.Rating)
	}
}

func TestClassifyTerm_NoBackend(t *testing.T) {
	svc, _ := testService(t, nil)
	_, err := svc.ClassifyTerm(context.Background(), "chat")
	if !errors.Is(err, apperr.ErrClassification) {
		t.Errorf("err = %v, want ErrClassification", err)
	}
}

func TestClassifyTerm_InvalidatesCache(t *testing.T) {
	cl := &stubClassifier{result: &classifier.Result{SourceWord: "cat", Type: "#nom"}}
	svc, _ := testService(t, cl)

	result, err := svc.ClassifyTerm(context.Background(), "chat")
	if err != nil {
		t.Fatalf("ClassifyTerm: %v", err)
	}
	if result.SourceWord != "cat" {
		t.Errorf("result = %+v", result)
	}
}

func TestRefreshCache_AdvancesGeneration(t *testing.T) {
	svc, store := testService(t, nil)
	seed(t, store)
	ctx := context.Background()

	gen1, err := svc.RefreshCache(ctx)
	if err != nil {
		t.Fatalf("RefreshCache: %v", err)
	}
	gen2, err := svc.RefreshCache(ctx)
	if err != nil {
		t.Fatalf("RefreshCache: %v", err)
	}
	if gen2 <= gen1 {
		t.Errorf("generation did not advance: %d -> %d", gen1, gen2)
	}
}
