package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"amfcheck/internal/archive"
	"amfcheck/internal/checker"
	"amfcheck/internal/cv"
	"amfcheck/internal/discovery"
	"amfcheck/internal/docs"
	"amfcheck/internal/drive"
	"amfcheck/internal/generate"
	"amfcheck/internal/manifest"
	"amfcheck/internal/prompt"
	"amfcheck/internal/settings"
	"amfcheck/internal/watch"
	"amfcheck/internal/workbook"
)

// command describes a CLI subcommand.
type command struct {
	name  string
	short string
	usage string
	long  string
	run   func(args []string) error
}

var commands = []command{
	{
		name:  "create-cvs",
		short: "Generate JSON controlled vocabularies from TSV sheets",
		usage: "amfcheck create-cvs -s <source> (-v <version> | -c <vocab>) [-o <dir>] [--pyessv-root <dir>] [--watch]",
		long: `Parse every sheet of a downloaded version (or vocabulary) into one JSON
controlled vocabulary per namespace, written as AMF_<namespace>.json.

Output goes to <source>/<version>/AMF_CVs unless -o is given. With
--pyessv-root the vocabularies are also written as a term archive.

The run fails when a mandatory file was not produced. With --watch the
command keeps running and regenerates after every sheet change.
`,
		run: runCreateCVs,
	},
	{
		name:  "create-yaml-checks",
		short: "Generate compliance-checker YAML suites",
		usage: "amfcheck create-yaml-checks -s <source> -v <version> [-o <dir>]",
		long: `Write the static suites, one suite per variable and global attribute
sheet, and one wrapper suite per product and deployment mode.

Output goes to <source>/<version>/checks unless -o is given. The run fails
when a mandatory suite was not produced.
`,
		run: runCreateYAMLChecks,
	},
	{
		name:  "download-from-drive",
		short: "Download spreadsheets from Google Drive as TSV",
		usage: "amfcheck download-from-drive -o <dir> (-v <version> | -c <vocab>) [--secrets <file>] [--regenerate]",
		long: `Walk the shared Drive folder for one version (or vocabulary) and save
each worksheet as TSV and each spreadsheet as xlsx.

The first run needs --secrets, a client secrets JSON file; credentials are
cached in ~/.credentials afterwards. Existing files are kept unless
--regenerate is given. API calls are rate limited.
`,
		run: runDownload,
	},
	{
		name:  "amf-checker",
		short: "Run compliance-checker with the matching AMF suites",
		usage: "amfcheck amf-checker --yaml-dir <dir> -v <version> [--mode <mode>] [-o <dir>] [-f <format>] <file|dir>...",
		long: `Group datasets by product (from the filename) and deployment mode (from
--mode or the deployment_mode attribute, read with ncdump) and run
compliance-checker once per group with the matching wrapper suite.

Results are saved as <dir>/<file>.cc-output when -o is given.
`,
		run: runAMFChecker,
	},
	{
		name:  "write-workflow-docs",
		short: "Write the workflow document",
		usage: "amfcheck write-workflow-docs [-o <dir>] [--manifest <file>] [--frontmatter]",
		long: `Render the expected-output manifest as Markdown in
<dir>/amf-check-workflow.md.
`,
		run: runWriteDocs,
	},
	{
		name:  "xlsx-to-tsv",
		short: "Export an xlsx workbook as TSV files",
		usage: "amfcheck xlsx-to-tsv <workbook.xlsx> <dir> [--rows <n>]",
		long: `Write one TSV file per worksheet of a downloaded spreadsheet, cleaned the
same way as download-from-drive.
`,
		run: runXLSXToTSV,
	},
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "amfcheck — AMF vocabularies and compliance checks from spreadsheets\n\n")
	fmt.Fprintf(w, "Usage:\n  amfcheck <command> [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-20s %s\n", cmd.name, cmd.short)
	}
	fmt.Fprintf(w, "\nRun 'amfcheck help <command>' for details on a specific command.\n")
}

func printCommandHelp(w io.Writer, name string) {
	for _, cmd := range commands {
		if cmd.name == name {
			fmt.Fprintf(w, "Usage: %s\n\n%s", cmd.usage, cmd.long)
			return
		}
	}
	fmt.Fprintf(w, "amfcheck: unknown command %q\n\nRun 'amfcheck help' for usage.\n", name)
}

func dispatch(args []string) error {
	if len(args) == 0 || args[0] == "--help" || args[0] == "-h" {
		printUsage(os.Stdout)
		return nil
	}
	if args[0] == "help" {
		if len(args) >= 2 {
			printCommandHelp(os.Stdout, args[1])
		} else {
			printUsage(os.Stdout)
		}
		return nil
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(args[1:])
		}
	}
	return fmt.Errorf("unknown command %q\n\nRun 'amfcheck help' for usage.", args[0])
}

// ---------------------------------------------------------------------------
// Shared flags
// ---------------------------------------------------------------------------

// logFlags are accepted by every command.
type logFlags struct {
	quiet bool
	debug bool
}

func newFlagSet(name string) (*pflag.FlagSet, *logFlags) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	lf := &logFlags{}
	fs.BoolVarP(&lf.quiet, "quiet", "q", false, "only log warnings and errors")
	fs.BoolVar(&lf.debug, "debug", false, "log debug detail")
	return fs, lf
}

func parseFlags(fs *pflag.FlagSet, args []string, usage string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w\nusage: %s", err, usage)
	}
	return nil
}

func (lf *logFlags) logger() *slog.Logger {
	level := slog.LevelInfo
	switch {
	case lf.debug:
		level = slog.LevelDebug
	case lf.quiet:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// selection is the -v / -c pair shared by create-cvs and download-from-drive.
type selection struct {
	version string
	vocab   string
}

func (sel *selection) register(fs *pflag.FlagSet) {
	fs.StringVarP(&sel.version, "version", "v", "", "spreadsheet version, e.g. v2.0")
	fs.StringVarP(&sel.vocab, "vocab", "c", "", "vocabulary: "+strings.Join(discovery.Vocabs, ", "))
}

func (sel *selection) validate(s *settings.Settings) error {
	if (sel.version == "") == (sel.vocab == "") {
		return errors.New("exactly one of -v/--version and -c/--vocab must be given")
	}
	if sel.version != "" && !s.ValidVersion(sel.version) {
		return fmt.Errorf("unknown version %q (want one of %s)", sel.version, strings.Join(s.AllVersions(), ", "))
	}
	if sel.vocab != "" && !slices.Contains(discovery.Vocabs, sel.vocab) {
		return fmt.Errorf("unknown vocabulary %q (want one of %s)", sel.vocab, strings.Join(discovery.Vocabs, ", "))
	}
	return nil
}

func loadManifest(s *settings.Settings, root string) (*manifest.Manifest, error) {
	if p := s.ManifestPath(root); p != "" {
		return manifest.Load(p)
	}
	return manifest.Default()
}

func newGenerator(source string, sel selection, log *slog.Logger) (*generate.Generator, error) {
	if source == "" {
		return nil, errors.New("-s/--source is required")
	}
	s, err := settings.Load(source)
	if err != nil {
		return nil, err
	}
	if err := sel.validate(s); err != nil {
		return nil, err
	}
	m, err := loadManifest(s, source)
	if err != nil {
		return nil, err
	}
	g := &generate.Generator{Version: sel.version, Vocab: sel.vocab, Settings: s, Manifest: m, Logger: log}
	if sel.vocab != "" {
		g.Root = discovery.VocabDir(source, sel.vocab)
	} else {
		g.Root = discovery.VersionDir(source, sel.version)
	}
	return g, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ---------------------------------------------------------------------------
// create-cvs
// ---------------------------------------------------------------------------

func runCreateCVs(args []string) error {
	const usage = "amfcheck create-cvs -s <source> (-v <version> | -c <vocab>) [-o <dir>] [--pyessv-root <dir>] [--watch]"
	fs, lf := newFlagSet("create-cvs")
	var sel selection
	sel.register(fs)
	source := fs.StringP("source", "s", "", "directory holding downloaded versions")
	outDir := fs.StringP("output", "o", "", "output directory (default <version dir>/AMF_CVs)")
	pyessvRoot := fs.String("pyessv-root", "", "also write a term archive under this directory")
	watchMode := fs.Bool("watch", false, "regenerate whenever a sheet changes")
	if err := parseFlags(fs, args, usage); err != nil {
		return err
	}
	log := lf.logger()
	g, err := newGenerator(*source, sel, log)
	if err != nil {
		return fmt.Errorf("%w\nusage: %s", err, usage)
	}
	out := *outDir
	if out == "" {
		out = filepath.Join(g.Root, generate.CVsDir)
	}

	run := func() error {
		var store archive.Store
		if *pyessvRoot != "" {
			store = archive.NewFSStore(*pyessvRoot)
		}
		res, err := g.WriteCVs(out, store)
		if err != nil {
			return err
		}
		fmt.Printf("wrote %d vocabularies to %s\n", len(res.Files), out)
		if len(res.Collections) > 0 {
			fmt.Printf("archived %d collections under %s\n", len(res.Collections), *pyessvRoot)
		}
		return nil
	}

	if err := run(); err != nil {
		if !*watchMode {
			return err
		}
		log.Error("create-cvs failed", "err", err)
	}
	if !*watchMode {
		return nil
	}

	ctx, stop := signalContext()
	defer stop()
	w := &watch.Watcher{
		Root:    g.Root,
		Match:   func(p string) bool { return strings.HasSuffix(p, ".tsv") },
		SkipDir: func(p string) bool { return p == out || filepath.Base(p) == generate.ChecksDir },
		Logger:  log,
	}
	return w.Run(ctx, run)
}

// ---------------------------------------------------------------------------
// create-yaml-checks
// ---------------------------------------------------------------------------

func runCreateYAMLChecks(args []string) error {
	const usage = "amfcheck create-yaml-checks -s <source> -v <version> [-o <dir>]"
	fs, lf := newFlagSet("create-yaml-checks")
	var sel selection
	fs.StringVarP(&sel.version, "version", "v", "", "spreadsheet version, e.g. v2.0")
	source := fs.StringP("source", "s", "", "directory holding downloaded versions")
	outDir := fs.StringP("output", "o", "", "output directory (default <version dir>/checks)")
	if err := parseFlags(fs, args, usage); err != nil {
		return err
	}
	if sel.version == "" {
		return fmt.Errorf("-v/--version is required\nusage: %s", usage)
	}
	g, err := newGenerator(*source, sel, lf.logger())
	if err != nil {
		return fmt.Errorf("%w\nusage: %s", err, usage)
	}
	out := *outDir
	if out == "" {
		out = filepath.Join(g.Root, generate.ChecksDir)
	}
	res, err := g.WriteChecks(out)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d check suites for %d products to %s\n", len(res.Files), len(res.Products), out)
	return nil
}

// ---------------------------------------------------------------------------
// download-from-drive
// ---------------------------------------------------------------------------

func runDownload(args []string) error {
	const usage = "amfcheck download-from-drive -o <dir> (-v <version> | -c <vocab>) [--secrets <file>] [--regenerate]"
	fs, lf := newFlagSet("download-from-drive")
	var sel selection
	sel.register(fs)
	outDir := fs.StringP("output", "o", "", "directory to write spreadsheets to")
	secrets := fs.String("secrets", "", "client secrets JSON file, needed on first use")
	regenerate := fs.Bool("regenerate", false, "download files that already exist")
	if err := parseFlags(fs, args, usage); err != nil {
		return err
	}
	if *outDir == "" {
		return fmt.Errorf("-o/--output is required\nusage: %s", usage)
	}
	s, err := settings.Load(*outDir)
	if err != nil {
		return err
	}
	if err := sel.validate(s); err != nil {
		return fmt.Errorf("%w\nusage: %s", err, usage)
	}
	m, err := loadManifest(s, *outDir)
	if err != nil {
		return err
	}
	modeNames, err := s.ModeNames()
	if err != nil {
		return err
	}
	log := lf.logger()
	cfg := s.DriveConfig()

	ctx, stop := signalContext()
	defer stop()

	auth := &drive.Authenticator{
		SecretsFile: *secrets,
		AskCode:     askCode,
		Logger:      log,
	}
	hc, err := auth.HTTPClient(ctx)
	if err != nil {
		return err
	}
	client, err := drive.NewGoogleClient(ctx, hc, drive.NewLimiter(cfg.MaxRequests, cfg.Window(), log))
	if err != nil {
		return err
	}
	d := &drive.Downloader{
		Client:            client,
		OutDir:            *outDir,
		Version:           sel.version,
		Vocab:             sel.vocab,
		Regenerate:        *regenerate,
		Config:            cfg,
		AllowedWorksheets: m.Worksheets(modeNames),
		Logger:            log,
	}
	res, err := d.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("saved %d files from %d spreadsheets (%d already present)\n",
		len(res.Written), res.Spreadsheets, len(res.Skipped))
	return nil
}

func askCode(authURL string) (string, error) {
	fmt.Fprintf(os.Stderr, "Open this link in a browser and authorise access:\n\n  %s\n\n", authURL)
	answers, err := prompt.Ask(nil, os.Stderr, prompt.Question{Key: "code", Prompt: "Authorisation code", Secret: true})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answers["code"]), nil
}

// ---------------------------------------------------------------------------
// amf-checker
// ---------------------------------------------------------------------------

func runAMFChecker(args []string) error {
	const usage = "amfcheck amf-checker --yaml-dir <dir> -v <version> [--mode <mode>] [-o <dir>] [-f <format>] <file|dir>..."
	fs, lf := newFlagSet("amf-checker")
	yamlDir := fs.String("yaml-dir", "", "directory of YAML checks")
	version := fs.StringP("version", "v", "", "checks version, e.g. v2.0 or 2.0")
	mode := fs.String("mode", "", "deployment mode for every file instead of reading it from the file")
	outDir := fs.StringP("output-dir", "o", "", "save results as <dir>/<file>.cc-output")
	format := fs.StringP("format", "f", "", "compliance-checker output format")
	if err := parseFlags(fs, args, usage); err != nil {
		return err
	}
	if *yamlDir == "" || *version == "" || fs.NArg() == 0 {
		return fmt.Errorf("--yaml-dir, -v and at least one file are required\nusage: %s", usage)
	}
	files, err := checker.ExpandFiles(fs.Args())
	if err != nil {
		return err
	}
	ck := &checker.Checker{
		YAMLDir:   *yamlDir,
		Version:   *version,
		OutputDir: *outDir,
		Format:    *format,
		Detect:    checker.NcdumpDetector,
		Logger:    lf.logger(),
	}
	if *mode != "" {
		if ck.Mode, err = cv.ParseDeploymentMode(*mode); err != nil {
			return err
		}
	}
	ctx, stop := signalContext()
	defer stop()
	groups, err := ck.Run(ctx, files)
	if len(groups) == 0 && err == nil {
		fmt.Println("Nothing to do")
	}
	return err
}

// ---------------------------------------------------------------------------
// write-workflow-docs
// ---------------------------------------------------------------------------

func runWriteDocs(args []string) error {
	const usage = "amfcheck write-workflow-docs [-o <dir>] [--manifest <file>] [--frontmatter]"
	fs, _ := newFlagSet("write-workflow-docs")
	outDir := fs.StringP("output", "o", ".", "output directory")
	manifestPath := fs.String("manifest", "", "manifest file (default built-in)")
	withMeta := fs.Bool("frontmatter", false, "prefix the document with YAML front matter")
	if err := parseFlags(fs, args, usage); err != nil {
		return err
	}
	m, err := manifest.Default()
	if *manifestPath != "" {
		m, err = manifest.Load(*manifestPath)
	}
	if err != nil {
		return err
	}
	path, err := docs.Write(m, *outDir, *withMeta)
	if err != nil {
		return err
	}
	fmt.Printf("wrote workflow to %s\n", path)
	return nil
}

// ---------------------------------------------------------------------------
// xlsx-to-tsv
// ---------------------------------------------------------------------------

func runXLSXToTSV(args []string) error {
	const usage = "amfcheck xlsx-to-tsv <workbook.xlsx> <dir> [--rows <n>]"
	fs, _ := newFlagSet("xlsx-to-tsv")
	rows := fs.Int("rows", settings.DefaultRows, "rows to read per worksheet")
	if err := parseFlags(fs, args, usage); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: %s", usage)
	}
	written, err := workbook.ExportTSV(fs.Arg(0), fs.Arg(1), *rows)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d worksheets to %s\n", len(written), fs.Arg(1))
	return nil
}

func main() {
	if err := dispatch(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
