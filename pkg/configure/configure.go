// Package configure runs one full configuration pass: manifest loading,
// tool probing, target declaration, demo builds, and build-plan emission.
package configure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"halbuild/pkg/config"
	"halbuild/pkg/demo"
	"halbuild/pkg/exec"
	"halbuild/pkg/logx"
	"halbuild/pkg/metrics"
	"halbuild/pkg/packages"
	"halbuild/pkg/plan"
	"halbuild/pkg/target"
	"halbuild/pkg/toolchain"
)

// NinjaFileName is the emitted build description.
const NinjaFileName = "build.ninja"

// Params configures one pass.
type Params struct {
	// ManifestPath locates halbuild.yaml. The project root is its directory.
	ManifestPath string

	// BuildDir receives the ninja file, object files, and the probe cache.
	// Defaults to <root>/build.
	BuildDir string

	// MetricsPath, when set, receives the pass metrics in Prometheus
	// exposition format.
	MetricsPath string

	// Executor runs tool probes. Defaults to local execution.
	Executor exec.Executor

	// Toolchain, when set, skips probing entirely. Used by tests and
	// embedders that already hold a probed toolchain.
	Toolchain *toolchain.Toolchain

	// DisableProbeCache skips the SQLite probe cache.
	DisableProbeCache bool
}

// Result is the outcome of a successful pass.
type Result struct {
	Plan      *plan.Plan
	Toolchain *toolchain.Toolchain
	NinjaPath string
	Duration  time.Duration
	CacheHits int
}

// Run executes the pass. Everything is evaluated once: probed tool state is
// read-only after detection and every rule is a pure function of the
// manifest plus that state.
func Run(ctx context.Context, params Params) (*Result, error) {
	logger := logx.NewLogger("configure")
	started := time.Now()

	manifest, err := config.Load(params.ManifestPath)
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(filepath.Dir(params.ManifestPath))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	buildDir := params.BuildDir
	if buildDir == "" {
		buildDir = filepath.Join(root, "build")
	}

	tc, cacheHits, err := probedToolchain(ctx, params, manifest, buildDir)
	if err != nil {
		return nil, err
	}

	roots := make([]string, 0, len(manifest.Toolchain.PackagePaths))
	for _, path := range manifest.Toolchain.PackagePaths {
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		roots = append(roots, path)
	}
	resolver := packages.NewResolver(roots)

	buildPlan := plan.New(manifest.Project, buildDir)
	planner := target.NewPlanner(root, tc, manifest.Options, resolver, buildPlan)

	if manifest.Library != nil {
		spec := target.SpecFromLibrary(manifest.Library)
		if manifest.Library.SizeOptimized {
			err = planner.TestAndMakeSizeOptimizedLibrary(spec)
		} else {
			err = planner.TestAndMakeLibrary(spec)
		}
		if err != nil {
			return nil, err
		}
	}

	if manifest.Demos != nil {
		if err := demo.Build(planner, root, manifest.Demos); err != nil {
			return nil, err
		}
	}

	ninjaPath, err := writeNinja(buildPlan, buildDir)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Plan:      buildPlan,
		Toolchain: tc,
		NinjaPath: ninjaPath,
		Duration:  time.Since(started),
		CacheHits: cacheHits,
	}

	if params.MetricsPath != "" {
		if err := publishMetrics(result, manifest.Project, params.MetricsPath); err != nil {
			// Metrics are observability, not build correctness.
			logger.Warn("failed to publish metrics: %v", err)
		}
	}

	logger.Info("configured %s: %d targets, %d actions in %s",
		manifest.Project, len(buildPlan.Targets), len(buildPlan.Actions), result.Duration.Round(time.Millisecond))
	return result, nil
}

func probedToolchain(ctx context.Context, params Params, manifest *config.Manifest, buildDir string) (*toolchain.Toolchain, int, error) {
	if params.Toolchain != nil {
		return params.Toolchain, 0, nil
	}

	executor := params.Executor
	if executor == nil {
		executor = exec.NewLocalExec()
	}

	var cache *toolchain.Cache
	if !params.DisableProbeCache {
		opened, err := toolchain.OpenCache(filepath.Join(buildDir, ".halbuild", "probes.db"))
		if err != nil {
			// A broken cache only costs re-probing.
			logx.Warnf("probe cache unavailable: %v", err)
		} else {
			cache = opened
			defer func() { _ = cache.Close() }()
		}
	}

	prober := toolchain.NewProber(executor, cache)
	tc, err := prober.Detect(ctx, manifest.Toolchain.Prefix)
	if err != nil {
		return nil, 0, err
	}
	return tc, prober.CacheHits(), nil
}

func writeNinja(buildPlan *plan.Plan, buildDir string) (string, error) {
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create build directory: %w", err)
	}

	ninjaPath := filepath.Join(buildDir, NinjaFileName)
	file, err := os.Create(ninjaPath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", ninjaPath, err)
	}
	defer func() { _ = file.Close() }()

	if err := plan.WriteNinja(file, buildPlan); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", ninjaPath, err)
	}
	return ninjaPath, nil
}

func publishMetrics(result *Result, project, path string) error {
	recorder := metrics.NewRecorder(project)
	recorder.ObserveConfigure(result.Duration)
	recorder.SetProbeCacheHits(result.CacheHits)
	for _, tgt := range result.Plan.Targets {
		recorder.CountTarget(string(tgt.Kind))
	}
	for _, action := range result.Plan.Actions {
		recorder.CountAction(string(action.Kind))
	}
	return recorder.WriteTextfile(path)
}
