// Package checker runs compliance-checker against AMF datasets with the
// wrapper suite that matches each file's product and deployment mode.
package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"amfcheck/internal/cv"
)

// FilenamePattern matches AMF dataset names and captures the data product.
var FilenamePattern = regexp.MustCompile(`^([^\s_]+_){2}` + // <instrument>_<platform>_
	`(\d{4}(\d{2})?(\d{2})?|\d{8}(-\d{2})?(\d{2})?(\d{2})?)_` + // date, optionally with time
	`(?P<product>[a-zA-Z][^\s_]+)_` +
	`([a-zA-Z][^\s_]*_)*` + // options
	`v\d+(\.\d+)?` +
	`\.nc$`)

// FilenameFormat describes FilenamePattern in error messages.
const FilenameFormat = "<instrument_name>_<platform_name>_<YYYY><MM><DD>-<HH><mm><SS>_<data_product>_[<option1>_<option2>_...<optionN>_]v<version>.nc"

// Program is the compliance-checker executable.
const Program = "compliance-checker"

// ProductFromFilename returns the data product named in a dataset filename.
func ProductFromFilename(path string) (string, error) {
	name := filepath.Base(path)
	m := FilenamePattern.FindStringSubmatch(name)
	if m == nil {
		return "", fmt.Errorf("filename %q does not match expected format %q", name, FilenameFormat)
	}
	return m[FilenamePattern.SubexpIndex("product")], nil
}

// Runner runs an external program.
type Runner interface {
	Run(ctx context.Context, name string, args []string) error
}

// ExecRunner runs programs with os/exec, passing output through.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (r ExecRunner) Run(ctx context.Context, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout, cmd.Stderr = r.Stdout, r.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	return cmd.Run()
}

// Group is the set of files checked in one compliance-checker call.
type Group struct {
	Product string
	Mode    cv.DeploymentMode
	Files   []string
}

// Suite returns the wrapper suite namespace, product_<product>_<mode>.
func (g Group) Suite() string {
	return cv.Namespace([]string{"product", g.Product, string(g.Mode)})
}

// Checker groups datasets and invokes compliance-checker once per group.
type Checker struct {
	YAMLDir string
	// Version selects the suites, with or without the leading "v".
	Version   string
	OutputDir string
	Format    string
	// Mode, when set, is used for every file instead of Detect.
	Mode   cv.DeploymentMode
	Detect func(ctx context.Context, path string) (cv.DeploymentMode, error)
	Runner Runner
	Logger *slog.Logger
}

func (c *Checker) log() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// TestName returns the suite name compliance-checker is asked to run.
func (c *Checker) TestName(g Group) string {
	v := c.Version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return g.Suite() + "_checks:" + v
}

// Args returns the compliance-checker arguments for a group.
func (c *Checker) Args(g Group) []string {
	args := []string{
		"--yaml", filepath.Join(c.YAMLDir, cv.Filename(g.Suite(), "yml")),
		"--test", c.TestName(g),
	}
	if c.Format != "" {
		args = append(args, "--format", c.Format)
	}
	if c.OutputDir != "" {
		for _, f := range g.Files {
			args = append(args, "--output", filepath.Join(c.OutputDir, filepath.Base(f)+".cc-output"))
		}
	}
	return append(args, g.Files...)
}

// Groups sorts files into (product, mode) groups. Files whose product or
// mode cannot be determined are logged and left out.
func (c *Checker) Groups(ctx context.Context, files []string) []Group {
	log := c.log()
	index := make(map[[2]string]*Group)
	var out []*Group
	for _, f := range files {
		product, err := ProductFromFilename(f)
		if err != nil {
			log.Warn("skipping file", "path", f, "err", err)
			continue
		}
		mode := c.Mode
		if mode == "" {
			if c.Detect == nil {
				log.Warn("skipping file", "path", f, "err", "no deployment mode given")
				continue
			}
			if mode, err = c.Detect(ctx, f); err != nil {
				log.Warn("skipping file", "path", f, "err", err)
				continue
			}
		}
		key := [2]string{product, string(mode)}
		g, ok := index[key]
		if !ok {
			g = &Group{Product: product, Mode: mode}
			index[key] = g
			out = append(out, g)
		}
		g.Files = append(g.Files, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Product != out[j].Product {
			return out[i].Product < out[j].Product
		}
		return out[i].Mode < out[j].Mode
	})
	groups := make([]Group, len(out))
	for i, g := range out {
		groups[i] = *g
	}
	return groups
}

// Run checks every file. Each group is run even when an earlier one fails;
// the returned error lists the suites that failed.
func (c *Checker) Run(ctx context.Context, files []string) ([]Group, error) {
	if fi, err := os.Stat(c.YAMLDir); c.YAMLDir == "" || err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("YAML checks directory %q not found", c.YAMLDir)
	}
	if c.Version == "" {
		return nil, errors.New("checks version is required, e.g. v2.0")
	}
	if c.OutputDir != "" {
		if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
			return nil, err
		}
	}
	groups := c.Groups(ctx, files)
	if len(groups) == 0 {
		c.log().Info("nothing to do")
		return nil, nil
	}
	runner := c.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	var failed []string
	for _, g := range groups {
		c.log().Info("running checks", "suite", c.TestName(g), "files", len(g.Files))
		if err := runner.Run(ctx, Program, c.Args(g)); err != nil {
			c.log().Error("compliance-checker failed", "suite", c.TestName(g), "err", err)
			failed = append(failed, g.Suite())
		}
	}
	if len(failed) > 0 {
		return groups, fmt.Errorf("%d of %d check runs failed: %s", len(failed), len(groups), strings.Join(failed, ", "))
	}
	return groups, nil
}

// ExpandFiles returns the files named by args. A directory contributes its
// regular files, not recursively.
func ExpandFiles(args []string) ([]string, error) {
	var files []string
	for _, a := range args {
		fi, err := os.Stat(a)
		if err != nil {
			return nil, fmt.Errorf("cannot check %q: no such file or directory", a)
		}
		if !fi.IsDir() {
			files = append(files, a)
			continue
		}
		entries, err := os.ReadDir(a)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.Type().IsRegular() {
				files = append(files, filepath.Join(a, e.Name()))
			}
		}
	}
	return files, nil
}
