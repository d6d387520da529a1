package cv

import (
	"fmt"
	"strings"
)

// Kind identifies the category of a controlled vocabulary.
type Kind int

const (
	KindVariable Kind = iota + 1
	KindDimension
	KindGlobalAttribute
	KindInstrument
	KindPlatform
	KindScientist
	KindProduct
)

var kindNames = map[Kind]string{
	KindVariable:        "variables",
	KindDimension:       "dimensions",
	KindGlobalAttribute: "global-attributes",
	KindInstrument:      "instruments",
	KindPlatform:        "platforms",
	KindScientist:       "scientists",
	KindProduct:         "products",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// SupportsYAMLChecks reports whether vocabularies of this kind also act as a
// source of compliance checks.
func (k Kind) SupportsYAMLChecks() bool {
	return k == KindVariable || k == KindGlobalAttribute
}

// ParseKind maps the sheet type used in product directories
// ("variables", "dimensions", "global-attributes") to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown CV kind %q", s)
}

// ---------------------------------------------------------------------------
// Deployment modes
// ---------------------------------------------------------------------------

// DeploymentMode is the physical context a dataset was collected in.
type DeploymentMode string

const (
	ModeLand       DeploymentMode = "land"
	ModeSea        DeploymentMode = "sea"
	ModeAir        DeploymentMode = "air"
	ModeTrajectory DeploymentMode = "trajectory"
)

// AllModes lists every deployment mode in canonical order.
var AllModes = []DeploymentMode{ModeLand, ModeSea, ModeAir, ModeTrajectory}

// ParseDeploymentMode accepts a mode name case-insensitively.
func ParseDeploymentMode(s string) (DeploymentMode, error) {
	m := DeploymentMode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllModes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown deployment mode %q", s)
}
