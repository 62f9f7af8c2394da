package target

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"halbuild/pkg/config"
	"halbuild/pkg/packages"
	"halbuild/pkg/plan"
	"halbuild/pkg/toolchain"
)

func hostToolchain(asan bool) *toolchain.Toolchain {
	found := func(kind toolchain.Kind, name string) toolchain.Tool {
		return toolchain.Tool{Kind: kind, Name: name, Path: "/usr/bin/" + name, Found: true}
	}
	return &toolchain.Toolchain{
		Compiler: found(toolchain.KindCompiler, "g++"),
		Archiver: found(toolchain.KindArchiver, "ar"),
		Objcopy:  found(toolchain.KindObjcopy, "objcopy"),
		Objdump:  found(toolchain.KindObjdump, "objdump"),
		Size:     found(toolchain.KindSize, "size"),
		Caps:     toolchain.Capabilities{AddressSanitizer: asan},
	}
}

func newTestPlanner(t *testing.T, opts config.Options, tc *toolchain.Toolchain, pkgNames ...string) *Planner {
	t.Helper()
	root := t.TempDir()

	pkgRoot := filepath.Join(root, ".packages")
	for _, name := range pkgNames {
		dir := filepath.Join(pkgRoot, name)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		manifest := "includes: [include]\nlibraries: [" + name + "]\nlibrary_dirs: [lib]\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, packages.ManifestName), []byte(manifest), 0o644))
	}

	resolver := packages.NewResolver([]string{pkgRoot})
	return NewPlanner(root, tc, opts, resolver, plan.New("test-project", "build"))
}

func allArgs(actions []plan.Action) string {
	var parts []string
	for _, action := range actions {
		parts = append(parts, strings.Join(action.Args, " "))
	}
	return strings.Join(parts, "\n")
}

func TestMakeLibrary_ValidationFailsBeforeEmission(t *testing.T) {
	pl := newTestPlanner(t, config.DefaultOptions(), hostToolchain(false))

	_, err := pl.MakeLibrary(&BuildSpec{Sources: []string{"a.cpp"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a name")

	_, err = pl.MakeLibrary(&BuildSpec{Name: "demo-lib"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one source")

	assert.Empty(t, pl.Plan().Targets, "no target may be emitted on validation failure")
	assert.Empty(t, pl.Plan().Actions)
}

func TestMakeLibrary_LibraryOnlyNoTestArtifacts(t *testing.T) {
	// A library with no test sources yields a library-only target, with no
	// test executable or run step.
	pl := newTestPlanner(t, config.DefaultOptions(), hostToolchain(true))

	err := pl.TestAndMakeLibrary(&BuildSpec{Name: "demo-lib", Sources: []string{"a.cpp"}})
	require.NoError(t, err)

	p := pl.Plan()
	require.Len(t, p.Targets, 1)
	assert.Equal(t, plan.StaticLibrary, p.Targets[0].Kind)
	assert.Empty(t, p.ActionsByKind(plan.ActionRunTest))
	assert.Empty(t, p.ActionsByKind(plan.ActionLink))
	require.Len(t, p.ActionsByKind(plan.ActionArchive), 1)
}

func TestMakeLibrary_FixedFlagSet(t *testing.T) {
	pl := newTestPlanner(t, config.DefaultOptions(), hostToolchain(false))

	_, err := pl.MakeLibrary(&BuildSpec{Name: "demo-lib", Sources: []string{"a.cpp"}})
	require.NoError(t, err)

	compiles := pl.Plan().ActionsByKind(plan.ActionCompile)
	require.Len(t, compiles, 1)
	args := strings.Join(compiles[0].Args, " ")
	assert.Contains(t, args, "-std=c++20")
	assert.Contains(t, args, "-Werror")
	assert.Contains(t, args, "-Wall")
	assert.Contains(t, args, "-Wextra")
	assert.Contains(t, args, "-g")
}

func TestDebugProfilePair(t *testing.T) {
	optimized := config.DefaultOptions() // optimize_debug_build: true
	plOpt := newTestPlanner(t, optimized, hostToolchain(false))
	_, err := plOpt.MakeLibrary(&BuildSpec{Name: "demo-lib", Sources: []string{"a.cpp"}})
	require.NoError(t, err)
	argsOpt := allArgs(plOpt.Plan().ActionsByKind(plan.ActionCompile))
	assert.Contains(t, argsOpt, "-Og")
	assert.NotContains(t, argsOpt, "-O0")

	unoptimized := config.Options{AddBuildOutputs: true, OptimizeDebugBuild: false}
	plNoOpt := newTestPlanner(t, unoptimized, hostToolchain(false))
	_, err = plNoOpt.MakeLibrary(&BuildSpec{Name: "demo-lib", Sources: []string{"a.cpp"}})
	require.NoError(t, err)
	argsNoOpt := allArgs(plNoOpt.Plan().ActionsByKind(plan.ActionCompile))
	assert.Contains(t, argsNoOpt, "-O0")
	assert.NotContains(t, argsNoOpt, "-Og")
}

func TestMakeLibrary_PackageResolutionFailureIsFatal(t *testing.T) {
	pl := newTestPlanner(t, config.DefaultOptions(), hostToolchain(false), "libhal")

	_, err := pl.MakeLibrary(&BuildSpec{
		Name:     "demo-lib",
		Sources:  []string{"a.cpp"},
		Packages: []string{"libhal", "missing-package"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing-package")
	assert.Empty(t, pl.Plan().Targets)
}

func TestMakeLibrary_PackageIncludesPropagate(t *testing.T) {
	pl := newTestPlanner(t, config.DefaultOptions(), hostToolchain(false), "libhal")

	_, err := pl.MakeLibrary(&BuildSpec{
		Name:     "demo-lib",
		Sources:  []string{"a.cpp"},
		Includes: []string{"include"},
		Packages: []string{"libhal"},
	})
	require.NoError(t, err)

	args := allArgs(pl.Plan().ActionsByKind(plan.ActionCompile))
	assert.Contains(t, args, "-Iinclude")
	assert.Contains(t, args, filepath.Join("libhal", "include"))
}

func TestUnitTest_CoverageSanitizerAndRunStep(t *testing.T) {
	pl := newTestPlanner(t, config.DefaultOptions(), hostToolchain(true))

	spec := &BuildSpec{
		Name:        "demo-lib",
		Sources:     []string{"a.cpp"},
		TestSources: []string{"a.test.cpp"},
	}
	testTarget, err := pl.UnitTest(spec)
	require.NoError(t, err)
	assert.Equal(t, plan.TestExecutable, testTarget.Kind)

	p := pl.Plan()
	compiles := p.ActionsByKind(plan.ActionCompile)
	require.Len(t, compiles, 2)
	args := allArgs(compiles)
	assert.Contains(t, args, "--coverage")
	assert.Contains(t, args, "-fsanitize=address")

	links := p.ActionsByKind(plan.ActionLink)
	require.Len(t, links, 1)
	linkArgs := strings.Join(links[0].Args, " ")
	assert.Contains(t, linkArgs, "--coverage")
	assert.Contains(t, linkArgs, "-fsanitize=address")

	runs := p.ActionsByKind(plan.ActionRunTest)
	require.Len(t, runs, 1)
	assert.Equal(t, testTarget.Output, runs[0].Tool)
}

func TestUnitTest_NoSanitizerWithoutCapability(t *testing.T) {
	pl := newTestPlanner(t, config.DefaultOptions(), hostToolchain(false))

	_, err := pl.UnitTest(&BuildSpec{Name: "demo-lib", TestSources: []string{"a.test.cpp"}})
	require.NoError(t, err)

	args := allArgs(pl.Plan().ActionsByKind(plan.ActionCompile))
	assert.Contains(t, args, "--coverage", "coverage is unconditional for tests")
	assert.NotContains(t, args, "-fsanitize=address")
}

func TestTestAndMakeSizeOptimizedLibrary(t *testing.T) {
	pl := newTestPlanner(t, config.DefaultOptions(), hostToolchain(false))

	err := pl.TestAndMakeSizeOptimizedLibrary(&BuildSpec{
		Name:        "demo-lib",
		Sources:     []string{"a.cpp"},
		TestSources: []string{"a.test.cpp"},
	})
	require.NoError(t, err)

	p := pl.Plan()
	require.Len(t, p.Targets, 2)

	lib, ok := p.TargetByName("demo-lib")
	require.True(t, ok)
	var libCompileArgs []string
	for _, action := range p.ActionsByKind(plan.ActionCompile) {
		for _, output := range action.Outputs {
			if strings.Contains(output, filepath.Join("obj", "demo-lib")+string(filepath.Separator)) {
				libCompileArgs = append(libCompileArgs, strings.Join(action.Args, " "))
			}
		}
	}
	require.NotEmpty(t, lib.ActionIDs)
	require.NotEmpty(t, libCompileArgs)
	assert.Contains(t, libCompileArgs[0], "-Os")
	// Tests keep the debug profile.
	_, ok = p.TargetByName("demo-lib_tests")
	assert.True(t, ok)
}

func TestExecutable_LinksPackagesAndLibraries(t *testing.T) {
	pl := newTestPlanner(t, config.DefaultOptions(), hostToolchain(false), "libhal-lpc4078")

	target, err := pl.Executable("blinker", []string{"demos/blinker.cpp"}, nil,
		[]string{"libhal-lpc4078"}, []string{"m"}, []string{"-mcpu=cortex-m4"}, true)
	require.NoError(t, err)
	assert.Equal(t, plan.Executable, target.Kind)

	p := pl.Plan()
	links := p.ActionsByKind(plan.ActionLink)
	require.Len(t, links, 1)
	linkArgs := strings.Join(links[0].Args, " ")
	assert.Contains(t, linkArgs, "-llibhal-lpc4078")
	assert.Contains(t, linkArgs, "-lm")
	assert.Contains(t, linkArgs, "-mcpu=cortex-m4")

	compileArgs := allArgs(p.ActionsByKind(plan.ActionCompile))
	assert.Contains(t, compileArgs, "-mcpu=cortex-m4")
}

func TestCompilerMissingIsNamed(t *testing.T) {
	tc := hostToolchain(false)
	tc.Compiler = toolchain.Tool{Kind: toolchain.KindCompiler, Name: "arm-none-eabi-g++"}

	pl := newTestPlanner(t, config.DefaultOptions(), tc)
	_, err := pl.MakeLibrary(&BuildSpec{Name: "demo-lib", Sources: []string{"a.cpp"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arm-none-eabi-g++")
}

func TestStaticAnalysisAttachment(t *testing.T) {
	tc := hostToolchain(false)
	tc.ClangTidy = toolchain.Tool{
		Kind: toolchain.KindClangTidy, Name: "clang-tidy",
		Path: "/usr/bin/clang-tidy", Found: true,
		Version: toolchain.Version{Major: 16},
	}
	tc.Caps.StaticAnalysis = true

	pl := newTestPlanner(t, config.DefaultOptions(), tc)
	_, err := pl.MakeLibrary(&BuildSpec{Name: "demo-lib", Sources: []string{"a.cpp"}})
	require.NoError(t, err)
	assert.Len(t, pl.Plan().ActionsByKind(plan.ActionLint), 1)

	// Force-disabled per target.
	off := false
	pl2 := newTestPlanner(t, config.DefaultOptions(), tc)
	_, err = pl2.MakeLibrary(&BuildSpec{Name: "demo-lib", Sources: []string{"a.cpp"}, StaticAnalysis: &off})
	require.NoError(t, err)
	assert.Empty(t, pl2.Plan().ActionsByKind(plan.ActionLint))
}

func TestSpecFromLibrary(t *testing.T) {
	force := true
	cfg := &config.LibraryConfig{
		Name:           "libhal-stm32f1",
		Sources:        []string{"src/can.cpp"},
		TestSources:    []string{"tests/can.test.cpp"},
		Packages:       []string{"libhal"},
		TestPackages:   []string{"boost-ut"},
		StaticAnalysis: &force,
	}

	spec := SpecFromLibrary(cfg)
	assert.Equal(t, cfg.Name, spec.Name)
	assert.Equal(t, cfg.TestPackages, spec.TestPackages)
	require.NotNil(t, spec.StaticAnalysis)
	assert.True(t, *spec.StaticAnalysis)
	assert.True(t, spec.HasTests())
}
