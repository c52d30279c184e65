// Package driver loads a script's project manifest and fetches any
// reference-data dependencies it names, grounded on the teacher's own
// pkg/driver/manifest.go (the yaml.v3-backed decode-then-validate shape
// and its ValidationError aggregation) re-pointed at cl.yml's much
// smaller schema per SPEC_FULL §8.
package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest is the parsed contents of a project's cl.yml: where its
// script lives, the decimal engine's working precision, the
// environment-variable defaults it seeds the interpreter with
// (show_balanced_equation among them), and any reference-data packs
// fetched before the script runs.
type Manifest struct {
	Path         string
	Name         string
	Entry        string
	Precision    int
	Env          map[string]string
	Dependencies map[string]*DependencySpec
}

// DependencySpec names one reference-data pack to fetch before running
// the script — a git repository pinned to a revision, mirroring the
// teacher's own git-sourced DependencySpec shape.
type DependencySpec struct {
	Git string
	Rev string
}

// ValidationError aggregates manifest validation failures, same shape
// as the teacher's: one error naming every problem instead of failing
// on the first.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// LoadManifest parses cl.yml from disk, returning a validated manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", absPath)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", absPath, err)
	}

	manifest := raw.toManifest(absPath)
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

func (m *Manifest) validate() error {
	var errs ValidationError
	if m.Name == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	}
	if m.Entry == "" {
		errs.Issues = append(errs.Issues, "entry must name the script to run")
	}
	if m.Precision < 0 {
		errs.Issues = append(errs.Issues, "precision must not be negative")
	}
	for name, dep := range m.Dependencies {
		if dep == nil {
			continue
		}
		if dep.Git == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependencies.%s: must specify a git source", name))
		}
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

// EntryPath resolves Entry relative to the manifest's own directory.
func (m *Manifest) EntryPath() string {
	if filepath.IsAbs(m.Entry) {
		return m.Entry
	}
	return filepath.Join(filepath.Dir(m.Path), m.Entry)
}

type manifestFile struct {
	Name         string                     `yaml:"name"`
	Entry        string                     `yaml:"entry"`
	Precision    yamlIntOrString            `yaml:"precision"`
	Env          map[string]string          `yaml:"env"`
	Dependencies map[string]*dependencyYAML `yaml:"dependencies"`
}

type dependencyYAML struct {
	Git string `yaml:"git"`
	Rev string `yaml:"rev"`
}

// yamlIntOrString accepts precision written as either an integer or a
// quoted numeral, since hand-edited YAML commonly mixes the two.
type yamlIntOrString int

func (y *yamlIntOrString) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == 0 || (value.Kind == yaml.ScalarNode && value.Tag == "!!null") {
		*y = 0
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*y = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("precision: %w", err)
	}
	*y = yamlIntOrString(n)
	return nil
}

func (mf manifestFile) toManifest(path string) *Manifest {
	deps := make(map[string]*DependencySpec, len(mf.Dependencies))
	for name, dep := range mf.Dependencies {
		if dep == nil {
			continue
		}
		deps[name] = &DependencySpec{Git: strings.TrimSpace(dep.Git), Rev: strings.TrimSpace(dep.Rev)}
	}
	env := make(map[string]string, len(mf.Env))
	for k, v := range mf.Env {
		env[k] = v
	}
	return &Manifest{
		Path:         path,
		Name:         strings.TrimSpace(mf.Name),
		Entry:        strings.TrimSpace(mf.Entry),
		Precision:    int(mf.Precision),
		Env:          env,
		Dependencies: deps,
	}
}
