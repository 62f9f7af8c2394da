// Package packages resolves named dependency packages against configured
// search roots. Resolution failures are fatal: the configure pass aborts
// rather than emitting a partially linked target.
package packages

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"halbuild/pkg/logx"
)

// ManifestName is the per-package description file inside a package root.
const ManifestName = "package.yaml"

// Package is one resolved dependency package. All paths are absolute.
type Package struct {
	Name        string
	Dir         string
	Includes    []string // exported include directories
	Libraries   []string // library names passed to the linker
	LibraryDirs []string // library search directories
}

// packageManifest is the on-disk shape of package.yaml.
type packageManifest struct {
	Name        string   `yaml:"name"`
	Includes    []string `yaml:"includes"`
	Libraries   []string `yaml:"libraries"`
	LibraryDirs []string `yaml:"library_dirs"`
}

// Resolver locates packages under a fixed list of search roots.
type Resolver struct {
	roots  []string
	logger *logx.Logger

	// resolved memoizes successful lookups for the pass.
	resolved map[string]*Package
}

// NewResolver creates a resolver over the given search roots.
func NewResolver(roots []string) *Resolver {
	return &Resolver{
		roots:    roots,
		logger:   logx.NewLogger("packages"),
		resolved: make(map[string]*Package),
	}
}

// Resolve locates one package by name. The first root containing
// <root>/<name>/package.yaml wins.
func (r *Resolver) Resolve(name string) (*Package, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("package name cannot be empty")
	}
	if pkg, ok := r.resolved[name]; ok {
		return pkg, nil
	}

	for _, root := range r.roots {
		dir := filepath.Join(root, name)
		manifestPath := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(manifestPath); err != nil {
			continue
		}

		pkg, err := loadPackage(name, dir, manifestPath)
		if err != nil {
			return nil, err
		}

		r.logger.Debug("resolved package %s -> %s", name, dir)
		r.resolved[name] = pkg
		return pkg, nil
	}

	if len(r.roots) == 0 {
		return nil, fmt.Errorf("cannot resolve package %q: no package search paths configured", name)
	}
	return nil, fmt.Errorf("cannot resolve package %q: not found under %s",
		name, strings.Join(r.roots, ", "))
}

// ResolveAll resolves every named package, failing hard on the first miss.
func (r *Resolver) ResolveAll(names []string) ([]*Package, error) {
	resolved := make([]*Package, 0, len(names))
	for _, name := range names {
		pkg, err := r.Resolve(name)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, pkg)
	}
	return resolved, nil
}

func loadPackage(name, dir, manifestPath string) (*Package, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", manifestPath, err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var manifest packageManifest
	if err := decoder.Decode(&manifest); err != nil {
		return nil, fmt.Errorf("invalid package manifest %s: %w", manifestPath, err)
	}

	if manifest.Name != "" && manifest.Name != name {
		return nil, fmt.Errorf("package manifest %s declares name %q, expected %q",
			manifestPath, manifest.Name, name)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve package dir %s: %w", dir, err)
	}

	pkg := &Package{
		Name:      name,
		Dir:       absDir,
		Libraries: manifest.Libraries,
	}
	for _, include := range manifest.Includes {
		pkg.Includes = append(pkg.Includes, filepath.Join(absDir, include))
	}
	for _, libDir := range manifest.LibraryDirs {
		pkg.LibraryDirs = append(pkg.LibraryDirs, filepath.Join(absDir, libDir))
	}
	return pkg, nil
}
