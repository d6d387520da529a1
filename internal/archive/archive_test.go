package archive

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"amfcheck/internal/cv"
	"amfcheck/internal/tsv"
)

// recordingStore keeps every call for inspection.
type recordingStore struct {
	collections []string
	terms       map[string][]string
	data        map[string]map[string]any
	failOn      string
	committed   bool
}

func newRecordingStore() *recordingStore {
	return &recordingStore{terms: map[string][]string{}, data: map[string]map[string]any{}}
}

func (r *recordingStore) CreateCollection(ns, _ string) error {
	if ns == r.failOn {
		return errors.New("boom")
	}
	r.collections = append(r.collections, ns)
	return nil
}

func (r *recordingStore) CreateTerm(coll, name string, data map[string]any) error {
	r.terms[coll] = append(r.terms[coll], name)
	r.data[coll+"/"+name] = data
	return nil
}

func (r *recordingStore) Commit() error { r.committed = true; return nil }

func parse(t *testing.T, text string, kind cv.Kind, facets ...string) *cv.Vocabulary {
	t.Helper()
	s, err := tsv.Read(strings.NewReader(text))
	if err != nil {
		t.Fatal(err)
	}
	v, err := cv.Parse(s, kind, facets, cv.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestWriteMapsVocabulariesToCollections(t *testing.T) {
	platforms := parse(t, "Platform ID\tPlatform Description\ncao\tChilbolton\n", cv.KindPlatform, "platform")
	products := parse(t, "Data Product\nsoil\nwind\n", cv.KindProduct, "product")

	store := newRecordingStore()
	written, err := Write(store, []*cv.Vocabulary{platforms, products})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if strings.Join(written, ",") != "platform,product" || !store.committed {
		t.Errorf("written = %v, committed = %v", written, store.committed)
	}
	if got := strings.Join(store.terms["product"], ","); got != "soil,wind" {
		t.Errorf("product terms = %s", got)
	}
	if store.data["product/soil"] != nil {
		t.Error("product terms must carry no data")
	}
	if d := store.data["platform/cao"]; d["description"] != "Chilbolton" {
		t.Errorf("platform data = %v", d)
	}
}

func TestWriteStopsOnStoreError(t *testing.T) {
	v := parse(t, "Data Product\nsoil\n", cv.KindProduct, "product")
	store := newRecordingStore()
	store.failOn = "product"
	if _, err := Write(store, []*cv.Vocabulary{v}); err == nil {
		t.Fatal("expected error")
	}
	if store.committed {
		t.Error("store committed after a failed collection")
	}
}

func TestFSStoreLayout(t *testing.T) {
	root := t.TempDir()
	v := parse(t, "name\temail\torcid\nAda\tAda@Example.org\t\n", cv.KindScientist, "scientist")
	if _, err := Write(NewFSStore(root), []*cv.Vocabulary{v}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "ncas", "amf", "scientist", "ada@example.org.json"))
	if err != nil {
		t.Fatalf("term file: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got["label"] != "Ada@Example.org" || got["authority"] != "ncas" || got["scope"] != "amf" {
		t.Errorf("term = %v", got)
	}
	if d := got["data"].(map[string]any); d["orcid"] != nil {
		t.Errorf("orcid = %v", d["orcid"])
	}
	if _, err := os.Stat(filepath.Join(root, "ncas", "amf", "scientist", "MANIFEST")); err != nil {
		t.Errorf("collection manifest missing: %v", err)
	}
}

func TestFSStoreRejectsBadNames(t *testing.T) {
	s := NewFSStore(t.TempDir())
	if err := s.CreateCollection("product_common_variable_land", ""); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if err := s.CreateCollection("product_common_variable_land", ""); err == nil {
		t.Error("duplicate collection accepted")
	}
	if err := s.CreateTerm("product_common_variable_land", "wind speed (m/s)", nil); err == nil {
		t.Error("term with invalid characters accepted")
	}
	if err := s.CreateTerm("nope", "x", nil); err == nil {
		t.Error("term in unknown collection accepted")
	}
}

func TestNormaliseName(t *testing.T) {
	cases := map[string]string{
		"Wind_Speed":      "wind-speed",
		" soil moisture ": "soil-moisture",
		"a@b.org":         "a@b.org",
	}
	for in, want := range cases {
		if got := NormaliseName(in); got != want {
			t.Errorf("NormaliseName(%q) = %q, want %q", in, got, want)
		}
	}
}
