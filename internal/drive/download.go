package drive

// download.go — walk Drive folders and save every spreadsheet.
//
// Each spreadsheet "<name>.xlsx" found under the selected folder is saved as
//
//	<dir>/product-definitions/tsv/<name>/<worksheet>.tsv
//	<dir>/product-definitions/spreadsheet/<name>.xlsx
//
// where <dir> mirrors the Drive folder path below the output root. Existing
// files are kept unless Regenerate is set.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"amfcheck/internal/settings"
	"amfcheck/internal/support"
	"amfcheck/internal/tsv"
)

// VocabsDir holds vocabulary downloads under the output root.
const VocabsDir = "vocabs"

// Downloader saves one version or one vocabulary from Drive.
type Downloader struct {
	Client Client
	// OutDir is the output root.
	OutDir string
	// Exactly one of Version and Vocab is set.
	Version    string
	Vocab      string
	Regenerate bool
	Config     settings.Drive
	// AllowedWorksheets, when set, is used to flag unrecognised worksheet
	// titles. Unrecognised worksheets are still saved.
	AllowedWorksheets map[string]bool
	Logger            *slog.Logger
}

// Result lists what a run wrote and skipped.
type Result struct {
	Written []string
	Skipped []string
	// Spreadsheets is the number of spreadsheets visited.
	Spreadsheets int
}

func (d *Downloader) log() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}

// Run walks the products folder for a version run or the vocabularies folder
// for a vocabulary run.
func (d *Downloader) Run(ctx context.Context) (*Result, error) {
	if (d.Version == "") == (d.Vocab == "") {
		return nil, errors.New("exactly one of version and vocabulary must be set")
	}
	root, dir := d.Config.ProductsFolderID, d.OutDir
	if d.Vocab != "" {
		root, dir = d.Config.VocabsFolderID, filepath.Join(d.OutDir, VocabsDir)
	}
	if root == "" {
		return nil, errors.New("no Drive folder configured for this run")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	res := &Result{}
	if err := d.walk(ctx, root, dir, res); err != nil {
		return res, err
	}
	d.log().Info("download complete", "spreadsheets", res.Spreadsheets,
		"written", len(res.Written), "skipped", len(res.Skipped))
	return res, nil
}

// wanted reports whether a folder is on the path to the selected version or
// vocabulary. Folder names are matched as substrings of the selector so
// "v2.0" matches version "v2.0".
func (d *Downloader) wanted(folder string) bool {
	if d.Version != "" && strings.Contains(d.Version, folder) {
		return true
	}
	return d.Vocab != "" && strings.Contains(d.Vocab, folder)
}

func (d *Downloader) walk(ctx context.Context, folderID, dir string, res *Result) error {
	log := d.log()
	children, err := d.Client.ListFolder(ctx, d.Config.SharedDriveID, folderID)
	if err != nil {
		return err
	}
	for _, f := range children {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch {
		case f.IsFolder():
			if slices.Contains(d.Config.SkipFolders, f.Name) {
				log.Info("skipping folder", "folder", f.Name)
				continue
			}
			if !d.wanted(f.Name) {
				log.Info("skipping folder not matching selection", "folder", f.Name,
					"version", d.Version, "vocab", d.Vocab)
				continue
			}
			log.Info("found folder", "folder", f.Name)
			if err := d.walk(ctx, f.ID, filepath.Join(dir, f.Name), res); err != nil {
				return err
			}
		case f.IsSpreadsheet():
			res.Spreadsheets++
			if err := d.saveSpreadsheet(ctx, f, dir, res); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Downloader) saveSpreadsheet(ctx context.Context, f File, dir string, res *Result) error {
	log := d.log()
	base, ok := strings.CutSuffix(f.Name, ".xlsx")
	if !ok || base == "" {
		return fmt.Errorf("spreadsheet %q does not have the expected .xlsx suffix", f.Name)
	}
	defs := filepath.Join(dir, "product-definitions")
	tsvDir := filepath.Join(defs, "tsv", base)
	xlsxDir := filepath.Join(defs, "spreadsheet")
	for _, p := range []string{tsvDir, xlsxDir} {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}

	titles, err := d.Client.Worksheets(ctx, f.ID)
	if err != nil {
		return err
	}
	log.Info("saving worksheets", "spreadsheet", f.Name, "count", len(titles), "dir", tsvDir)
	for _, title := range titles {
		if d.AllowedWorksheets != nil && !d.AllowedWorksheets[title] {
			log.Error("worksheet name not recognised", "spreadsheet", f.Name, "worksheet", title)
		}
		out := filepath.Join(tsvDir, title+".tsv")
		if d.keep(out, res) {
			continue
		}
		rows, err := d.Client.Values(ctx, f.ID, CellRange(title, d.Config.Rows))
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := tsv.Write(&buf, rows); err != nil {
			return fmt.Errorf("%s: %w", out, err)
		}
		if err := support.WriteFileAtomic(out, buf.Bytes()); err != nil {
			return err
		}
		res.Written = append(res.Written, out)
	}

	out := filepath.Join(xlsxDir, f.Name)
	if d.keep(out, res) {
		return nil
	}
	log.Info("saving spreadsheet", "path", out)
	var buf bytes.Buffer
	if err := d.Client.ExportXLSX(ctx, f.ID, &buf); err != nil {
		return err
	}
	if err := support.WriteFileAtomic(out, buf.Bytes()); err != nil {
		return err
	}
	res.Written = append(res.Written, out)
	return nil
}

// keep reports whether an existing file should be left alone.
func (d *Downloader) keep(path string, res *Result) bool {
	if d.Regenerate || !support.FileExists(path) {
		return false
	}
	d.log().Warn("file already exists, not regenerating", "path", path)
	res.Skipped = append(res.Skipped, path)
	return true
}

// CellRange returns the A1 range covering columns A to Z of the first rows
// rows of a worksheet.
func CellRange(title string, rows int) string {
	if rows <= 0 {
		rows = settings.DefaultRows
	}
	return fmt.Sprintf("'%s'!A1:Z%d", title, rows)
}
