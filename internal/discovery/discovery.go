package discovery

// discovery.go — locate the TSV sheets of one spreadsheet download.
//
// Layout under <root>/product-definitions/tsv/:
//
//	_vocabularies/<static sheet>.tsv                 static vocabularies
//	_common/{variables,dimensions}-<mode>.tsv        shared per mode
//	_common/global-attributes.tsv                    shared by every mode
//	<product>/{variables,dimensions,global-attributes}-specific.tsv
//	_instrument_vocabs/, _platform_vocabs/           vocabulary-only runs
//
// Classification is purely by path. A file that matches nothing is logged and
// skipped so extra files in the download never break a run.

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"amfcheck/internal/cv"
)

// TSVDir is the sheet tree relative to a version or vocabulary directory.
const TSVDir = "product-definitions/tsv"

// Marker directories that never hold product sheets.
const (
	CommonDir           = "_common"
	VocabulariesDir     = "_vocabularies"
	InstrumentVocabsDir = "_instrument_vocabs"
	PlatformVocabsDir   = "_platform_vocabs"
)

// Vocabulary-only run selectors.
const (
	VocabInstruments = "instruments"
	VocabPlatforms   = "platforms"
)

// Vocabs lists the vocabulary-only selectors.
var Vocabs = []string{VocabInstruments, VocabPlatforms}

// Job is one sheet to parse.
type Job struct {
	// Path is the sheet location; Rel is Path relative to the walk root
	// with forward slashes.
	Path   string
	Rel    string
	Kind   cv.Kind
	Facets []string
}

// Namespace of the vocabulary the job produces.
func (j Job) Namespace() string { return cv.Namespace(j.Facets) }

// Result is the outcome of a walk.
type Result struct {
	Jobs []Job
	// Products is the sorted set of product names found.
	Products []string
}

// Walker discovers sheets under Root.
type Walker struct {
	// Root is a version directory (<source>/<version>) or a vocabulary
	// directory (<source>/vocabs/<name>).
	Root string
	// Vocab selects a vocabulary-only run; empty for a full version run.
	Vocab string
	// Modes are the deployment modes common sheets are expected for.
	Modes []cv.DeploymentMode
	// Ignore reports whether a path relative to Root should be skipped.
	Ignore func(rel string) bool
	Logger *slog.Logger
}

// VersionDir returns the directory holding one downloaded version.
func VersionDir(source, version string) string {
	return filepath.Join(source, version)
}

// VocabDir returns the directory holding one downloaded vocabulary.
func VocabDir(source, vocab string) string {
	return filepath.Join(source, "vocabs", vocab)
}

// static is a sheet at a fixed location.
type static struct {
	rel    string
	kind   cv.Kind
	facets []string
}

func staticSheets() []static {
	v := path.Join(TSVDir, VocabulariesDir)
	return []static{
		{path.Join(v, "ncas-instrument-name-and-descriptors.tsv"), cv.KindInstrument, []string{"ncas_instrument"}},
		{path.Join(v, "community-instrument-name-and-descriptors.tsv"), cv.KindInstrument, []string{"community_instrument"}},
		{path.Join(v, "data-products.tsv"), cv.KindProduct, []string{"product"}},
		{path.Join(v, "platforms.tsv"), cv.KindPlatform, []string{"platform"}},
		{path.Join(v, "creators.tsv"), cv.KindScientist, []string{"scientist"}},
	}
}

func vocabSheets(vocab string) ([]static, error) {
	switch vocab {
	case VocabInstruments:
		d := path.Join(TSVDir, InstrumentVocabsDir)
		return []static{
			{path.Join(d, "ncas-instrument-name-and-descriptors.tsv"), cv.KindInstrument, []string{"ncas_instrument"}},
			{path.Join(d, "community-instrument-name-and-descriptors.tsv"), cv.KindInstrument, []string{"community_instrument"}},
		}, nil
	case VocabPlatforms:
		return []static{
			{path.Join(TSVDir, PlatformVocabsDir, "platforms.tsv"), cv.KindPlatform, []string{"platform"}},
		}, nil
	}
	return nil, fmt.Errorf("unknown vocabulary %q (want one of %s)", vocab, strings.Join(Vocabs, ", "))
}

// sheetTypes maps the sheet type in a filename to its kind and facet name.
var sheetTypes = []struct {
	prefix string
	kind   cv.Kind
	facet  string
}{
	{"variables", cv.KindVariable, "variable"},
	{"dimensions", cv.KindDimension, "dimension"},
	{"global-attributes", cv.KindGlobalAttribute, "global-attributes"},
}

func commonSheets(modes []cv.DeploymentMode) []static {
	var out []static
	for _, t := range sheetTypes {
		for _, m := range modes {
			name := t.prefix + "-" + string(m) + ".tsv"
			if t.kind == cv.KindGlobalAttribute {
				name = t.prefix + ".tsv"
			}
			out = append(out, static{
				rel:    path.Join(TSVDir, CommonDir, name),
				kind:   t.kind,
				facets: []string{"product", "common", t.facet, string(m)},
			})
		}
	}
	return out
}

// productPattern matches product sheets relative to TSVDir.
const productPattern = "*/{variables,dimensions,global-attributes}-specific.tsv"

// markerPattern matches anything under a marker directory.
const markerPattern = "{" + CommonDir + "," + VocabulariesDir + "," + InstrumentVocabsDir + "," + PlatformVocabsDir + "}/**"

var productName = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// Discover enumerates parse jobs. Missing fixed-location sheets are logged
// and skipped.
func (w *Walker) Discover() (*Result, error) {
	log := w.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if fi, err := os.Stat(w.Root); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("no such directory %q", w.Root)
	}

	var fixed []static
	if w.Vocab != "" {
		sheets, err := vocabSheets(w.Vocab)
		if err != nil {
			return nil, err
		}
		fixed = sheets
	} else {
		fixed = append(staticSheets(), commonSheets(w.Modes)...)
	}

	res := &Result{}
	for _, s := range fixed {
		if w.ignored(s.rel) {
			continue
		}
		p := filepath.Join(w.Root, filepath.FromSlash(s.rel))
		if fi, err := os.Stat(p); err != nil || fi.IsDir() {
			log.Warn("expected sheet not found", "path", p)
			continue
		}
		res.Jobs = append(res.Jobs, Job{Path: p, Rel: s.rel, Kind: s.kind, Facets: s.facets})
	}
	if w.Vocab != "" {
		return res, nil
	}

	products, err := w.products(log)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, j := range products {
		res.Jobs = append(res.Jobs, j)
		if name := j.Facets[1]; !seen[name] {
			seen[name] = true
			res.Products = append(res.Products, name)
		}
	}
	sort.Strings(res.Products)
	if len(products) == 0 {
		log.Warn("no product sheets found", "root", w.Root)
	}
	return res, nil
}

func (w *Walker) products(log *slog.Logger) ([]Job, error) {
	tsvRoot := filepath.Join(w.Root, filepath.FromSlash(TSVDir))
	var jobs []Job
	err := filepath.WalkDir(tsvRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == tsvRoot {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(tsvRoot, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		full := path.Join(TSVDir, rel)

		if marker, _ := doublestar.Match(markerPattern, rel); marker {
			return nil
		}
		if w.ignored(full) {
			return nil
		}
		ok, _ := doublestar.Match(productPattern, rel)
		dir, file := path.Split(rel)
		name := strings.TrimSuffix(dir, "/")
		if !ok || !productName.MatchString(name) {
			log.Warn("no match for sheet, skipping", "path", p)
			return nil
		}
		sheetType := strings.TrimSuffix(file, "-specific.tsv")
		for _, t := range sheetTypes {
			if t.prefix == sheetType {
				jobs = append(jobs, Job{
					Path:   p,
					Rel:    full,
					Kind:   t.kind,
					Facets: []string{"product", name, t.facet},
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", tsvRoot, err)
	}
	return jobs, nil
}

func (w *Walker) ignored(rel string) bool {
	return w.Ignore != nil && w.Ignore(rel)
}
