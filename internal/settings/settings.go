package settings

// settings.go — amfcheck configuration loaded from .amfcheck/settings.yaml.
//
// The file lives in the source directory (the directory passed with -s). It
// tunes discovery (ignore globs, deployment modes), parsing
// (keep_variable_name) and the Drive downloader. Every accessor is safe on a
// nil *Settings and falls back to the built-in defaults.
//
// Ignore patterns may be written as bare globs ("drafts/**") or wrapped in a
// Skip() verb ("Skip(./drafts/**)").

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"amfcheck/internal/cv"
)

// Dir and File locate the settings file relative to a source directory.
const (
	Dir  = ".amfcheck"
	File = "settings.yaml"
)

// Built-in defaults.
var (
	DefaultVersions       = []string{"v1.0", "v1.1", "v2.0"}
	DefaultCurrentVersion = "v2.0"
)

// Settings holds amfcheck configuration.
type Settings struct {
	// Ignore lists globs, relative to the version directory, of sheets
	// discovery must skip.
	Ignore []string `yaml:"ignore"`
	// KeepVariableName keeps the "name" attribute in variable vocabularies.
	KeepVariableName bool `yaml:"keep_variable_name"`
	// DeploymentModes restricts the modes common sheets and wrapper suites
	// are generated for. Empty means every mode.
	DeploymentModes []string `yaml:"deployment_modes"`
	Versions        []string `yaml:"versions"`
	CurrentVersion  string   `yaml:"current_version"`
	// Manifest overrides the built-in expected-output manifest.
	Manifest string `yaml:"manifest"`
	Drive    Drive  `yaml:"drive"`
}

// Drive configures download-from-drive.
type Drive struct {
	SharedDriveID    string   `yaml:"shared_drive_id"`
	ProductsFolderID string   `yaml:"products_folder_id"`
	VocabsFolderID   string   `yaml:"vocabs_folder_id"`
	SkipFolders      []string `yaml:"skip_folders"`
	// MaxRequests calls are allowed per WindowSeconds.
	MaxRequests   int `yaml:"max_requests"`
	WindowSeconds int `yaml:"window_seconds"`
	// Rows is the number of rows fetched per worksheet.
	Rows int `yaml:"rows"`
}

// Load reads .amfcheck/settings.yaml relative to root.
// Returns nil (not an error) if the file does not exist.
func Load(root string) (*Settings, error) {
	path := filepath.Join(root, Dir, File)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	if _, err := s.Modes(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, rule := range s.Ignore {
		if !doublestar.ValidatePattern(parseIgnoreRule(rule)) {
			return nil, fmt.Errorf("%s: invalid ignore pattern %q", path, rule)
		}
	}
	return &s, nil
}

// IsIgnored reports whether relPath (forward-slash, relative to the version
// directory) matches any ignore rule.
func (s *Settings) IsIgnored(relPath string) bool {
	if s == nil {
		return false
	}
	for _, rule := range s.Ignore {
		if matchIgnorePattern(parseIgnoreRule(rule), relPath) {
			return true
		}
	}
	return false
}

// parseIgnoreRule extracts the path glob from an ignore rule.
//
//	"Skip(./drafts/**)" → "drafts/**"
//	"drafts/**"         → "drafts/**"
func parseIgnoreRule(rule string) string {
	if strings.HasPrefix(rule, "Skip(") && strings.HasSuffix(rule, ")") {
		rule = rule[5 : len(rule)-1]
	}
	return strings.TrimPrefix(rule, "./")
}

// matchIgnorePattern reports whether path matches an ignore glob.
//
// "prefix/**" matches the prefix directory itself and every path beneath it.
// Other patterns use doublestar semantics: * stays within a segment, **
// crosses segments and {a,b} alternates.
func matchIgnorePattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		if !strings.ContainsAny(prefix, "*?[{") {
			return path == prefix || strings.HasPrefix(path, prefix+"/")
		}
	}
	matched, _ := doublestar.Match(pattern, path)
	return matched
}

// KeepName reports whether variable "name" attributes are kept.
func (s *Settings) KeepName() bool {
	return s != nil && s.KeepVariableName
}

// Modes returns the configured deployment modes, or every mode.
func (s *Settings) Modes() ([]cv.DeploymentMode, error) {
	if s == nil || len(s.DeploymentModes) == 0 {
		return append([]cv.DeploymentMode{}, cv.AllModes...), nil
	}
	var out []cv.DeploymentMode
	for _, m := range s.DeploymentModes {
		mode, err := cv.ParseDeploymentMode(m)
		if err != nil {
			return nil, err
		}
		out = append(out, mode)
	}
	return out, nil
}

// ModeNames returns Modes as strings, as used in manifest templates.
func (s *Settings) ModeNames() ([]string, error) {
	modes, err := s.Modes()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = string(m)
	}
	return names, nil
}

// AllVersions returns the versions a source tree may hold.
func (s *Settings) AllVersions() []string {
	if s == nil || len(s.Versions) == 0 {
		return DefaultVersions
	}
	return s.Versions
}

// Current returns the default version.
func (s *Settings) Current() string {
	if s == nil || s.CurrentVersion == "" {
		return DefaultCurrentVersion
	}
	return s.CurrentVersion
}

// ValidVersion reports whether v is one of AllVersions.
func (s *Settings) ValidVersion(v string) bool {
	for _, known := range s.AllVersions() {
		if v == known {
			return true
		}
	}
	return false
}

// ManifestPath returns the manifest override, resolved against root, or "".
func (s *Settings) ManifestPath(root string) string {
	if s == nil || s.Manifest == "" {
		return ""
	}
	if filepath.IsAbs(s.Manifest) {
		return s.Manifest
	}
	return filepath.Join(root, s.Manifest)
}

// Drive defaults.
const (
	DefaultProductsFolderID = "1TGsJBltDttqs6nsbUwopX5BL_q8AU-5X"
	DefaultMaxRequests      = 20
	DefaultWindow           = 120 * time.Second
	DefaultRows             = 999
)

// DefaultSkipFolders are Drive folders the downloader never descends into.
var DefaultSkipFolders = []string{"products under development", "TO_DELETE_SOON", "Archive_1"}

// DriveConfig returns the Drive settings with defaults filled in.
func (s *Settings) DriveConfig() Drive {
	var d Drive
	if s != nil {
		d = s.Drive
	}
	if d.ProductsFolderID == "" {
		d.ProductsFolderID = DefaultProductsFolderID
	}
	if d.MaxRequests <= 0 {
		d.MaxRequests = DefaultMaxRequests
	}
	if d.WindowSeconds <= 0 {
		d.WindowSeconds = int(DefaultWindow / time.Second)
	}
	if d.Rows <= 0 {
		d.Rows = DefaultRows
	}
	if d.SkipFolders == nil {
		d.SkipFolders = DefaultSkipFolders
	}
	return d
}

// Window returns WindowSeconds as a duration.
func (d Drive) Window() time.Duration {
	return time.Duration(d.WindowSeconds) * time.Second
}
