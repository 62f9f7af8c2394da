// Package config defines the typed project manifest consumed by the
// configure pass.
//
// The manifest replaces free-form keyword arguments with named, validated
// fields: unknown keys are rejected at decode time, and each target kind
// checks its required fields before any target is emitted.
package config

import (
	"fmt"
	"strings"
)

// Options are the two package-level configuration options.
type Options struct {
	// AddBuildOutputs gates whether post-build transform actions (hex, bin,
	// disassembly, size report) are registered at all. Default true.
	AddBuildOutputs bool

	// OptimizeDebugBuild selects the debug profile flag pair: true yields
	// light optimization with full debug info (-Og -g), false yields no
	// optimization with full debug info (-O0 -g). Default true.
	OptimizeDebugBuild bool
}

// DefaultOptions returns the package defaults.
func DefaultOptions() Options {
	return Options{
		AddBuildOutputs:    true,
		OptimizeDebugBuild: true,
	}
}

// ToolchainConfig selects the cross toolchain and package search roots.
type ToolchainConfig struct {
	// Prefix is the cross-compilation binary prefix, e.g. "arm-none-eabi-".
	// Empty means a host build.
	Prefix string `yaml:"prefix"`

	// PackagePaths are the roots searched when resolving dependency
	// packages by name.
	PackagePaths []string `yaml:"package_paths"`
}

// LibraryConfig declares the library target and its optional unit tests.
type LibraryConfig struct {
	Name              string   `yaml:"name"`
	Sources           []string `yaml:"sources"`
	TestSources       []string `yaml:"test_sources"`
	Includes          []string `yaml:"includes"`
	Packages          []string `yaml:"packages"`
	LinkLibraries     []string `yaml:"link_libraries"`
	TestPackages      []string `yaml:"test_packages"`
	TestLinkLibraries []string `yaml:"test_link_libraries"`

	// StaticAnalysis force-enables clang-tidy attachment even when the
	// capability rule would skip it (e.g. cross builds). Nil means default
	// policy.
	StaticAnalysis *bool `yaml:"static_analysis"`

	// SizeOptimized compiles the library with size optimization (-Os)
	// instead of the debug profile.
	SizeOptimized bool `yaml:"size_optimized"`
}

// DemoConfig declares the demo firmware images.
type DemoConfig struct {
	// Names lists the demos; each must correspond to demos/<name>.cpp.
	Names []string `yaml:"names"`

	Includes      []string `yaml:"includes"`
	Packages      []string `yaml:"packages"`
	LinkLibraries []string `yaml:"link_libraries"`
	Flags         []string `yaml:"flags"`

	// DisableStaticAnalysis skips clang-tidy attachment for all demos.
	DisableStaticAnalysis bool `yaml:"disable_static_analysis"`
}

// Manifest is the parsed project manifest (halbuild.yaml).
type Manifest struct {
	Project   string          `yaml:"project"`
	Options   Options         `yaml:"-"`
	Toolchain ToolchainConfig `yaml:"toolchain"`
	Library   *LibraryConfig  `yaml:"library"`
	Demos     *DemoConfig     `yaml:"demos"`
}

// Validate checks the manifest's required fields. Target-kind specific
// validation (library name, source lists) happens again at emission time on
// the BuildSpec, so configuration fails before any target is produced.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Project) == "" {
		return fmt.Errorf("manifest field 'project' is required")
	}
	if m.Library == nil && m.Demos == nil {
		return fmt.Errorf("manifest declares neither a library nor demos")
	}
	if m.Library != nil {
		if strings.TrimSpace(m.Library.Name) == "" {
			return fmt.Errorf("library target requires a name")
		}
		if len(m.Library.Sources) == 0 && len(m.Library.TestSources) == 0 {
			return fmt.Errorf("library %q declares no sources", m.Library.Name)
		}
	}
	if m.Demos != nil && len(m.Demos.Names) == 0 {
		return fmt.Errorf("demos section declares no demo names")
	}
	return nil
}
