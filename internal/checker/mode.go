package checker

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"

	"amfcheck/internal/cv"
)

var deploymentModeAttr = regexp.MustCompile(`(?m)^\s*:deployment_mode\s*=\s*"([^"]*)"`)

// ModeFromHeader reads the deployment_mode global attribute from ncdump -h
// output.
func ModeFromHeader(name string, header []byte) (cv.DeploymentMode, error) {
	m := deploymentModeAttr.FindSubmatch(header)
	if m == nil {
		return "", fmt.Errorf("attribute 'deployment_mode' not found in %q", name)
	}
	mode, err := cv.ParseDeploymentMode(string(m[1]))
	if err != nil {
		return "", fmt.Errorf("unrecognised deployment mode %q in %q", m[1], name)
	}
	return mode, nil
}

// NcdumpDetector reads a dataset's deployment mode with the ncdump tool.
func NcdumpDetector(ctx context.Context, path string) (cv.DeploymentMode, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "ncdump", "-h", path)
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ncdump -h %s: %w", path, err)
	}
	return ModeFromHeader(filepath.Base(path), out.Bytes())
}
