package generate

// generate.go — create-cvs and create-yaml-checks pipelines.
//
//	discover → parse each sheet → build documents → write → integrity gate
//
// Sheets are parsed one at a time. A sheet that fails to parse is logged and
// skipped; only the terminal integrity check aborts a run, because a skipped
// or missing sheet is exactly what it exists to catch.

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"amfcheck/internal/archive"
	"amfcheck/internal/check"
	"amfcheck/internal/cv"
	"amfcheck/internal/discovery"
	"amfcheck/internal/manifest"
	"amfcheck/internal/settings"
	"amfcheck/internal/support"
	"amfcheck/internal/tsv"
)

// Default output directories, relative to the version or vocabulary dir.
const (
	CVsDir    = "AMF_CVs"
	ChecksDir = "checks"
)

// Generator turns one downloaded version (or vocabulary) into output files.
type Generator struct {
	// Root is the version directory, or the vocabulary directory when Vocab
	// is set.
	Root string
	// Version names the suites ("..._checks:<version>") and gates manifest
	// exceptions. Empty for vocabulary runs.
	Version  string
	Vocab    string
	Settings *settings.Settings
	// Manifest defaults to the built-in manifest.
	Manifest *manifest.Manifest
	Logger   *slog.Logger
}

// Output summarises a run.
type Output struct {
	// Files are the written filenames, sorted.
	Files    []string
	Products []string
	// Collections lists namespaces written to the archive, if any.
	Collections []string
	// Waived is the manifest exception that excused missing files, if any.
	Waived *manifest.Exception
}

// DuplicateNamespaceError reports two sheets that map to one namespace.
type DuplicateNamespaceError struct {
	Namespace string
	First     string
	Second    string
}

func (e *DuplicateNamespaceError) Error() string {
	return fmt.Sprintf("duplicate namespace %q from %s and %s", e.Namespace, e.First, e.Second)
}

func (g *Generator) log() *slog.Logger {
	if g.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return g.Logger
}

func (g *Generator) manifest() (*manifest.Manifest, error) {
	if g.Manifest != nil {
		return g.Manifest, nil
	}
	return manifest.Default()
}

func (g *Generator) modes() ([]cv.DeploymentMode, []string, error) {
	modes, err := g.Settings.Modes()
	if err != nil {
		return nil, nil, err
	}
	names, err := g.Settings.ModeNames()
	if err != nil {
		return nil, nil, err
	}
	return modes, names, nil
}

func (g *Generator) discover(modes []cv.DeploymentMode) (*discovery.Result, error) {
	w := &discovery.Walker{
		Root:   g.Root,
		Vocab:  g.Vocab,
		Modes:  modes,
		Ignore: g.Settings.IsIgnored,
		Logger: g.log(),
	}
	return w.Discover()
}

// parsed is one successfully parsed sheet.
type parsed struct {
	job   discovery.Job
	sheet *tsv.Sheet
	vocab *cv.Vocabulary
}

// parse reads and parses every job accepted by keep. Sheets with no rows and
// sheets that fail to parse are logged and skipped.
func (g *Generator) parse(jobs []discovery.Job, keep func(cv.Kind) bool) ([]parsed, error) {
	log := g.log()
	opts := cv.Options{KeepVariableName: g.Settings.KeepName(), Logger: log}
	sheets := make(map[string]*tsv.Sheet)

	var out []parsed
	owner := make(map[string]string)
	for _, job := range jobs {
		if keep != nil && !keep(job.Kind) {
			continue
		}
		ns := job.Namespace()
		if prev, dup := owner[ns]; dup {
			return nil, &DuplicateNamespaceError{Namespace: ns, First: prev, Second: job.Rel}
		}
		owner[ns] = job.Rel

		sheet, ok := sheets[job.Path]
		if !ok {
			var err error
			sheet, err = tsv.ReadFile(job.Path)
			if err != nil {
				return nil, err
			}
			sheets[job.Path] = sheet
		}
		log.Info("extracting content", "path", job.Path, "namespace", ns)
		v, err := cv.Parse(sheet, job.Kind, job.Facets, opts)
		switch {
		case errors.Is(err, cv.ErrNoRows):
			log.Debug("no rows, skipping sheet", "path", job.Path, "namespace", ns)
			continue
		case errors.Is(err, cv.ErrCVParse):
			log.Warn("failed to parse sheet", "path", job.Path, "namespace", ns, "err", err)
			continue
		case err != nil:
			return nil, err
		}
		out = append(out, parsed{job: job, sheet: sheet, vocab: v})
	}
	return out, nil
}

// writeAll writes each document under dir and returns the sorted filenames.
func (g *Generator) writeAll(dir string, docs map[string][]byte) ([]string, error) {
	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := support.WriteFileAtomic(path, docs[name]); err != nil {
			return nil, err
		}
		g.log().Info("wrote", "path", path)
	}
	g.log().Info("files written", "count", len(names), "dir", dir)
	return names, nil
}

// ---------------------------------------------------------------------------
// create-cvs
// ---------------------------------------------------------------------------

// WriteCVs writes one JSON vocabulary per parsed sheet into outDir, adds them
// to store when store is not nil, then verifies the output set.
func (g *Generator) WriteCVs(outDir string, store archive.Store) (*Output, error) {
	modes, modeNames, err := g.modes()
	if err != nil {
		return nil, err
	}
	m, err := g.manifest()
	if err != nil {
		return nil, err
	}
	res, err := g.discover(modes)
	if err != nil {
		return nil, err
	}
	items, err := g.parse(res.Jobs, nil)
	if err != nil {
		return nil, err
	}

	docs := make(map[string][]byte, len(items))
	vocabs := make([]*cv.Vocabulary, 0, len(items))
	for _, it := range items {
		data, err := it.vocab.JSON()
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", it.vocab.Namespace(), err)
		}
		docs[it.vocab.Filename("json")] = data
		vocabs = append(vocabs, it.vocab)
	}
	files, err := g.writeAll(outDir, docs)
	if err != nil {
		return nil, err
	}
	out := &Output{Files: files, Products: res.Products}

	if store != nil {
		written, err := archive.Write(store, vocabs)
		out.Collections = written
		if err != nil {
			return out, err
		}
	}

	if g.Vocab != "" {
		sec, _ := m.Section(manifest.CategoryVocabs)
		exp := manifest.Expectation{Expected: sec.Column(g.Vocab)}
		if _, err := m.Verify(manifest.CategoryVocabs, "", exp, files); err != nil {
			g.log().Warn("vocabulary run is incomplete", "vocab", g.Vocab, "err", err)
		}
		return out, nil
	}
	sec, ok := m.Section(manifest.CategoryJSON)
	if !ok {
		return out, fmt.Errorf("manifest has no %s section", manifest.CategoryJSON)
	}
	return g.verify(m, out, manifest.CategoryJSON, sec.Expand(res.Products, modeNames))
}

func (g *Generator) verify(m *manifest.Manifest, out *Output, category string, exp manifest.Expectation) (*Output, error) {
	waived, err := m.Verify(category, g.Version, exp, out.Files)
	if err != nil {
		return out, err
	}
	if waived != nil {
		out.Waived = waived
		g.log().Warn("missing files excused by manifest exception",
			"category", category, "after", waived.After, "files", waived.Files, "reason", waived.Reason)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// create-yaml-checks
// ---------------------------------------------------------------------------

// WriteChecks writes the static suites, one suite per check-capable
// vocabulary and one wrapper suite per product and deployment mode.
func (g *Generator) WriteChecks(outDir string) (*Output, error) {
	if g.Vocab != "" {
		return nil, fmt.Errorf("checks are generated per version, not for vocabulary %q", g.Vocab)
	}
	modes, modeNames, err := g.modes()
	if err != nil {
		return nil, err
	}
	m, err := g.manifest()
	if err != nil {
		return nil, err
	}
	res, err := g.discover(modes)
	if err != nil {
		return nil, err
	}
	items, err := g.parse(res.Jobs, cv.Kind.SupportsYAMLChecks)
	if err != nil {
		return nil, err
	}

	log := g.log()
	var sources []*check.Suite
	for _, it := range items {
		if s, ok := check.FromSource(it.vocab, it.sheet, log); ok {
			sources = append(sources, s)
		}
	}

	global := []*check.Suite{check.FileInfo(), check.FileStructure()}
	gaPath := filepath.Join(g.Root, filepath.FromSlash(discovery.TSVDir), discovery.CommonDir, "global-attributes.tsv")
	if support.FileExists(gaPath) {
		sheet, err := tsv.ReadFile(gaPath)
		if err != nil {
			return nil, err
		}
		global = append(global, check.GlobalAttributes(check.GlobalAttrsFacets, sheet, log))
	} else {
		log.Warn("expected sheet not found", "path", gaPath)
	}

	wrappers := check.Compose(global, sources, modes)

	all := append(append(append([]*check.Suite{}, global...), sources...), wrappers...)
	docs := make(map[string][]byte, len(all))
	for _, s := range all {
		name := s.Filename()
		if _, dup := docs[name]; dup {
			return nil, fmt.Errorf("duplicate check suite %s", name)
		}
		data, err := s.YAML(g.Version)
		if err != nil {
			return nil, err
		}
		docs[name] = data
	}
	files, err := g.writeAll(outDir, docs)
	if err != nil {
		return nil, err
	}
	out := &Output{Files: files, Products: res.Products}

	sec, ok := m.Section(manifest.CategoryYAML)
	if !ok {
		return out, fmt.Errorf("manifest has no %s section", manifest.CategoryYAML)
	}
	return g.verify(m, out, manifest.CategoryYAML, sec.Expand(res.Products, modeNames))
}
