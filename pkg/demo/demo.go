// Package demo implements the demo-build entry point: one firmware image
// per demo name, linked against the platform driver package selected by the
// environment.
package demo

import (
	"fmt"
	"os"
	"path/filepath"

	"halbuild/pkg/config"
	"halbuild/pkg/logx"
	"halbuild/pkg/postbuild"
	"halbuild/pkg/target"
)

// The two environment variables every demo build requires: the target
// hardware platform and the package providing its drivers.
const (
	PlatformEnv        = "HALBUILD_PLATFORM"
	PlatformLibraryEnv = "HALBUILD_PLATFORM_LIBRARY"
)

// SourceDir is the conventional subdirectory holding one .cpp per demo.
const SourceDir = "demos"

// platformFromEnv reads the required environment variables. Missing either
// is fatal, and the error names both so the fix is obvious.
func platformFromEnv() (platform, library string, err error) {
	platform = os.Getenv(PlatformEnv)
	library = os.Getenv(PlatformLibraryEnv)
	if platform == "" || library == "" {
		return "", "", fmt.Errorf(
			"demo builds require both %s and %s to be set in the environment",
			PlatformEnv, PlatformLibraryEnv)
	}
	return platform, library, nil
}

// Build declares one executable target per demo name and, when build
// outputs are enabled, registers the standard post-build set on each image.
func Build(pl *target.Planner, root string, cfg *config.DemoConfig) error {
	logger := logx.NewLogger("demo")

	if len(cfg.Names) == 0 {
		return fmt.Errorf("no demo names declared")
	}

	platform, platformLibrary, err := platformFromEnv()
	if err != nil {
		return err
	}
	logger.Info("building demos for platform %s (driver package %s)", platform, platformLibrary)

	// Every demo must exist before any target is emitted.
	sources := make(map[string]string, len(cfg.Names))
	for _, name := range cfg.Names {
		source := filepath.Join(SourceDir, name+".cpp")
		if _, err := os.Stat(filepath.Join(root, source)); err != nil {
			return fmt.Errorf("demo %q has no source file %s: %w", name, source, err)
		}
		sources[name] = source
	}

	pkgNames := append([]string{platformLibrary}, cfg.Packages...)

	for _, name := range cfg.Names {
		demoTarget, err := pl.Executable(
			name,
			[]string{sources[name]},
			cfg.Includes,
			pkgNames,
			cfg.LinkLibraries,
			cfg.Flags,
			cfg.DisableStaticAnalysis,
		)
		if err != nil {
			return err
		}

		if pl.Options().AddBuildOutputs {
			if err := postbuild.Register(pl.Plan(), pl.Toolchain(), demoTarget, demoTarget.Output, postbuild.Standard()...); err != nil {
				return err
			}
		}
	}

	return nil
}
