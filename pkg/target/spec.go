// Package target implements the target declaration rules: given a validated
// BuildSpec, emit compiled library, test, and executable targets with the
// fixed flag policy into the build plan.
package target

import (
	"fmt"
	"strings"

	"halbuild/pkg/config"
)

// BuildSpec is the typed configuration record consumed by the target
// declaration entry points. Immutable once constructed; consumed once.
type BuildSpec struct {
	Name              string
	Sources           []string
	TestSources       []string
	Includes          []string
	Packages          []string
	LinkLibraries     []string
	TestPackages      []string
	TestLinkLibraries []string

	// StaticAnalysis force-enables (or disables) clang-tidy attachment.
	// Nil selects the default policy.
	StaticAnalysis *bool
}

// SpecFromLibrary builds a BuildSpec from the manifest's library section.
func SpecFromLibrary(cfg *config.LibraryConfig) *BuildSpec {
	return &BuildSpec{
		Name:              cfg.Name,
		Sources:           cfg.Sources,
		TestSources:       cfg.TestSources,
		Includes:          cfg.Includes,
		Packages:          cfg.Packages,
		LinkLibraries:     cfg.LinkLibraries,
		TestPackages:      cfg.TestPackages,
		TestLinkLibraries: cfg.TestLinkLibraries,
		StaticAnalysis:    cfg.StaticAnalysis,
	}
}

// validateLibrary checks the required fields for a library target.
func (s *BuildSpec) validateLibrary() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("library target requires a name")
	}
	if len(s.Sources) == 0 {
		return fmt.Errorf("library target %q requires at least one source", s.Name)
	}
	return nil
}

// validateTest checks the required fields for a test target.
func (s *BuildSpec) validateTest() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("test target requires a name")
	}
	if len(s.Sources)+len(s.TestSources) == 0 {
		return fmt.Errorf("test target %q requires at least one source", s.Name)
	}
	return nil
}

// HasTests reports whether the spec declares any test-only sources.
func (s *BuildSpec) HasTests() bool {
	return len(s.TestSources) > 0
}
