package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mustDefault(t *testing.T) *Manifest {
	t.Helper()
	m, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	return m
}

func TestDefaultManifestSections(t *testing.T) {
	m := mustDefault(t)
	var keys []string
	for _, s := range m.Sections {
		keys = append(keys, s.Key)
		if s.Header == "" || s.Text == "" {
			t.Errorf("section %q missing header or text", s.Key)
		}
	}
	if got := strings.Join(keys, ","); got != "google_drive_content,json-cvs,yaml_checks,vocabs" {
		t.Errorf("section order = %s", got)
	}
	if len(m.Exceptions) != 1 || m.Exceptions[0].After != "v2.0" {
		t.Errorf("exceptions = %+v", m.Exceptions)
	}
}

func TestExpand(t *testing.T) {
	s := Section{Key: "x", Columns: []Column{
		{Name: ColumnCommon, Values: []string{"AMF_a.json", "AMF_common_{mode}.json"}},
		{Name: ColumnPerProduct, Values: []string{"AMF_product_{product}_variable.json", "AMF_product_{product}_dimension.json*", "AMF_product_{product}_{mode}.yml"}},
	}}
	exp := s.Expand([]string{"soil"}, []string{"land", "sea"})
	wantExpected := "AMF_a.json,AMF_common_land.json,AMF_common_sea.json,AMF_product_soil_land.yml,AMF_product_soil_sea.yml,AMF_product_soil_variable.json"
	if got := strings.Join(exp.Expected, ","); got != wantExpected {
		t.Errorf("Expected = %s\nwant %s", got, wantExpected)
	}
	if got := strings.Join(exp.Optional, ","); got != "AMF_product_soil_dimension.json" {
		t.Errorf("Optional = %s", got)
	}
}

func TestVerifyMissingCommonFile(t *testing.T) {
	m := mustDefault(t)
	exp := Expectation{Expected: []string{"AMF_file_info.yml", "AMF_global_attrs.yml"}}
	_, err := m.Verify(CategoryYAML, "v2.0", exp, []string{"AMF_file_info.yml", "AMF_extra.yml"})
	var ie *IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want *IntegrityError", err)
	}
	if len(ie.Missing) != 1 || ie.Missing[0] != "AMF_global_attrs.yml" {
		t.Errorf("Missing = %v", ie.Missing)
	}
	if !strings.Contains(err.Error(), "AMF_global_attrs.yml") {
		t.Errorf("message does not name the file: %v", err)
	}
}

func TestVerifyToleratesExtraAndOptional(t *testing.T) {
	m := mustDefault(t)
	exp := Expectation{Expected: []string{"AMF_a.json"}, Optional: []string{"AMF_b.json"}}
	if _, err := m.Verify(CategoryJSON, "v2.0", exp, []string{"AMF_a.json", "AMF_unexpected.json"}); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestVerifyVersionGatedException(t *testing.T) {
	m := mustDefault(t)
	exp := Expectation{Expected: []string{"AMF_ncas_instrument.json", "AMF_community_instrument.json", "AMF_product.json"}}
	actual := []string{"AMF_product.json"}

	waived, err := m.Verify(CategoryJSON, "v2.1", exp, actual)
	if err != nil || waived == nil {
		t.Errorf("v2.1: waived = %v, err = %v; want exception applied", waived, err)
	}
	if _, err := m.Verify(CategoryJSON, "v2.0", exp, actual); err == nil {
		t.Error("v2.0: exception must not apply")
	}
	if _, err := m.Verify(CategoryYAML, "v2.1", exp, actual); err == nil {
		t.Error("exception must not apply to another category")
	}
	partial := []string{"AMF_product.json", "AMF_ncas_instrument.json"}
	if _, err := m.Verify(CategoryJSON, "v3.0", exp, partial); err == nil {
		t.Error("exception must only match the exact file set")
	}
}

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"v2.0", "v2.0", 0},
		{"v2.1", "v2.0", 1},
		{"v1.10", "v1.9", 1},
		{"v1.1", "v2.0", -1},
	}
	for _, tc := range cases {
		got, err := CompareVersions(tc.a, tc.b)
		if err != nil || got != tc.want {
			t.Errorf("CompareVersions(%s, %s) = %d, %v; want %d", tc.a, tc.b, got, err, tc.want)
		}
	}
	if _, err := CompareVersions("2.0", "v1.0"); err == nil {
		t.Error("expected error for missing v prefix")
	}
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	doc := "json-cvs:\n  header: H\n  text: T\n  common: [AMF_x.json]\n  per-product: []\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s, ok := m.Section(CategoryJSON)
	if !ok || len(s.Column(ColumnCommon)) != 1 {
		t.Errorf("section = %+v", s)
	}
	if _, err := Parse([]byte("- not a mapping\n")); err == nil {
		t.Error("expected error for non-mapping manifest")
	}
}

func TestWorksheets(t *testing.T) {
	ws := mustDefault(t).Worksheets([]string{"land", "sea"})
	for _, want := range []string{"variables-land", "dimensions-sea", "global-attributes", "creators", "dimensions-specific"} {
		if !ws[want] {
			t.Errorf("missing worksheet %q", want)
		}
	}
	for _, bad := range []string{"variables-{mode}", "variables-air", "dimensions-specific*"} {
		if ws[bad] {
			t.Errorf("unexpected worksheet %q", bad)
		}
	}
}
