package settings

// settings_test.go — Tests for settings loading and ignore-pattern matching.

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"amfcheck/internal/cv"
)

// ---------------------------------------------------------------------------
// parseIgnoreRule
// ---------------------------------------------------------------------------

func TestParseIgnoreRule(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		// Skip() wrapper stripped, leading ./ stripped.
		{"Skip(./drafts/**)", "drafts/**"},
		// Leading ./ stripped without Skip wrapper.
		{"./drafts/**", "drafts/**"},
		// Bare pattern unchanged.
		{"drafts/**", "drafts/**"},
		// Skip() with no leading ./.
		{"Skip(old/**)", "old/**"},
	}
	for _, tc := range tests {
		got := parseIgnoreRule(tc.input)
		if got != tc.want {
			t.Errorf("parseIgnoreRule(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

// ---------------------------------------------------------------------------
// matchIgnorePattern
// ---------------------------------------------------------------------------

func TestMatchIgnorePattern(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		// /** matches the prefix dir itself.
		{"tsv/drafts/**", "tsv/drafts", true},
		// /** matches files directly inside.
		{"tsv/drafts/**", "tsv/drafts/variables-specific.tsv", true},
		// /** matches files in subdirectories.
		{"tsv/drafts/**", "tsv/drafts/old/x.tsv", true},
		// /** does not match sibling paths.
		{"tsv/drafts/**", "other/tsv/drafts/x.tsv", false},
		// Single * matches within one path segment.
		{"*.tsv", "a.tsv", true},
		{"*.tsv", "dir/a.tsv", false},
		// ** crosses segments anywhere in the pattern.
		{"**/*-specific.tsv", "product-definitions/tsv/soil/variables-specific.tsv", true},
		// Alternation.
		{"product-definitions/tsv/{soil,wind}/*", "product-definitions/tsv/wind/dimensions-specific.tsv", true},
		{"product-definitions/tsv/{soil,wind}/*", "product-definitions/tsv/rain/dimensions-specific.tsv", false},
		// Exact match.
		{"notes.tsv", "notes.tsv", true},
	}
	for _, tc := range tests {
		got := matchIgnorePattern(tc.pattern, tc.path)
		if got != tc.want {
			t.Errorf("matchIgnorePattern(%q, %q) = %v, want %v", tc.pattern, tc.path, got, tc.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Nil-safe accessors
// ---------------------------------------------------------------------------

func TestNilSettingsDefaults(t *testing.T) {
	var s *Settings
	if s.IsIgnored("anything") {
		t.Error("nil Settings.IsIgnored should always return false")
	}
	if s.KeepName() {
		t.Error("nil Settings.KeepName should be false")
	}
	modes, err := s.Modes()
	if err != nil || len(modes) != len(cv.AllModes) {
		t.Errorf("Modes() = %v, %v", modes, err)
	}
	if s.Current() != "v2.0" || !s.ValidVersion("v1.1") || s.ValidVersion("v9.9") {
		t.Error("unexpected version defaults")
	}
	d := s.DriveConfig()
	if d.MaxRequests != 20 || d.Window().Seconds() != 120 || d.Rows != 999 || len(d.SkipFolders) != 3 {
		t.Errorf("DriveConfig() = %+v", d)
	}
	if s.ManifestPath("/src") != "" {
		t.Error("nil ManifestPath should be empty")
	}
}

func TestModesRejectsUnknown(t *testing.T) {
	s := &Settings{DeploymentModes: []string{"land", "orbit"}}
	if _, err := s.Modes(); err == nil {
		t.Error("expected error for unknown deployment mode")
	}
}

func TestModeNames(t *testing.T) {
	names, err := (*Settings)(nil).ModeNames()
	if err != nil || strings.Join(names, ",") != "land,sea,air,trajectory" {
		t.Errorf("nil ModeNames() = %v, %v", names, err)
	}
	s := &Settings{DeploymentModes: []string{"sea", "air"}}
	if names, _ := s.ModeNames(); strings.Join(names, ",") != "sea,air" {
		t.Errorf("ModeNames() = %v", names)
	}
	s.DeploymentModes = []string{"orbit"}
	if _, err := s.ModeNames(); err == nil {
		t.Error("expected error for unknown deployment mode")
	}
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

func TestLoad_FileNotExist(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir)
	if err != nil {
		t.Fatalf("expected nil error for missing file, got: %v", err)
	}
	if s != nil {
		t.Fatalf("expected nil settings for missing file, got: %+v", s)
	}
}

func writeSettings(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, Dir), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, Dir, File), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	writeSettings(t, dir, `
ignore:
  - "Skip(./product-definitions/tsv/drafts/**)"
keep_variable_name: true
deployment_modes: [land, sea, air]
manifest: manifest.yaml
drive:
  shared_drive_id: abc
  max_requests: 5
`)

	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s == nil {
		t.Fatal("expected non-nil settings")
	}
	if !s.IsIgnored("product-definitions/tsv/drafts/variables-specific.tsv") {
		t.Error("drafts sheet should be ignored")
	}
	if s.IsIgnored("product-definitions/tsv/soil/variables-specific.tsv") {
		t.Error("soil sheet should not be ignored")
	}
	if !s.KeepName() {
		t.Error("keep_variable_name not loaded")
	}
	if modes, _ := s.Modes(); len(modes) != 3 || modes[2] != cv.ModeAir {
		t.Errorf("Modes() = %v", modes)
	}
	if got := s.ManifestPath(dir); got != filepath.Join(dir, "manifest.yaml") {
		t.Errorf("ManifestPath = %q", got)
	}
	d := s.DriveConfig()
	if d.SharedDriveID != "abc" || d.MaxRequests != 5 || d.Rows != DefaultRows {
		t.Errorf("DriveConfig() = %+v", d)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeSettings(t, dir, ":\tbad yaml:")
	if _, err := Load(dir); err == nil {
		t.Error("expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidMode(t *testing.T) {
	dir := t.TempDir()
	writeSettings(t, dir, "deployment_modes: [underground]\n")
	if _, err := Load(dir); err == nil {
		t.Error("expected error for invalid deployment mode")
	}
}
