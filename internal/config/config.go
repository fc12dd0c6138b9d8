// Package config loads the YAML configuration bundle that selects an XMI
// flavor, a Git model source (if any), and default CLI behaviour -- the
// same bundling role the teacher's internal/config played for its catalog
// UI settings, generalized to this framework's own concerns.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dnswlt/miniemf/internal/xmi"
)

// XMIConfig selects the wire-format flavor and schema namespace used when
// reading or writing model documents (§6 Open Question).
type XMIConfig struct {
	Flavor    string `yaml:"flavor"`    // "xmi-id" or "plain-id"
	Namespace string `yaml:"namespace"` // schema namespace prefix, e.g. "family"
}

// ResolveFlavor translates the configured flavor name into an xmi.Flavor,
// defaulting to xmi.FlavorXMIID when unset.
func (c XMIConfig) ResolveFlavor() (xmi.Flavor, error) {
	switch c.Flavor {
	case "", "xmi-id":
		return xmi.FlavorXMIID, nil
	case "plain-id":
		return xmi.FlavorPlainID, nil
	default:
		return 0, fmt.Errorf("config: unknown xmi flavor %q", c.Flavor)
	}
}

// GitSourceConfig describes an optional Git-backed model source (§6, loaded
// through internal/gitsource).
type GitSourceConfig struct {
	URL      string `yaml:"url"`
	Revision string `yaml:"revision"` // branch, tag or commit
	Dir      string `yaml:"dir"`      // subdirectory to search for model files
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// DocsConfig controls schemadocs.Generator output.
type DocsConfig struct {
	OutputDir  string `yaml:"outputDir"`
	RenderHTML bool   `yaml:"renderHtml"`
}

// Bundle is the umbrella struct for the serialized application configuration
// YAML: one section per package-level concern.
type Bundle struct {
	XMI       XMIConfig       `yaml:"xmi"`
	GitSource GitSourceConfig `yaml:"gitSource"`
	Docs      DocsConfig      `yaml:"docs"`
}

// Load reads and strictly parses the configuration file at path.
func Load(path string) (*Bundle, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: could not read %q: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(bs))
	dec.KnownFields(true)
	var bundle Bundle
	if err := dec.Decode(&bundle); err != nil {
		return nil, fmt.Errorf("config: invalid configuration YAML in %q: %w", path, err)
	}
	return &bundle, nil
}

// Default returns the Bundle used when no configuration file is given. Load
// does not merge these values in: a field its file leaves out keeps its zero
// value.
func Default() *Bundle {
	return &Bundle{
		XMI:  XMIConfig{Flavor: "xmi-id", Namespace: "model"},
		Docs: DocsConfig{OutputDir: "docs", RenderHTML: false},
	}
}
