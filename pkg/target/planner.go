package target

import (
	"fmt"
	"path/filepath"

	"halbuild/pkg/config"
	"halbuild/pkg/lint"
	"halbuild/pkg/logx"
	"halbuild/pkg/packages"
	"halbuild/pkg/plan"
	"halbuild/pkg/toolchain"
)

// Planner turns BuildSpecs into plan targets. It holds the read-only
// context of one configuration pass: the probed toolchain, the resolved
// options, and the package resolver.
type Planner struct {
	root     string
	tc       *toolchain.Toolchain
	opts     config.Options
	resolver *packages.Resolver
	plan     *plan.Plan
	lint     *lint.Attacher
	logger   *logx.Logger
}

// NewPlanner creates a planner writing into the given plan.
func NewPlanner(root string, tc *toolchain.Toolchain, opts config.Options, resolver *packages.Resolver, p *plan.Plan) *Planner {
	return &Planner{
		root:     root,
		tc:       tc,
		opts:     opts,
		resolver: resolver,
		plan:     p,
		lint:     lint.NewAttacher(tc, root),
		logger:   logx.NewLogger("target"),
	}
}

// Plan returns the plan being populated.
func (pl *Planner) Plan() *plan.Plan {
	return pl.plan
}

// Options returns the pass options.
func (pl *Planner) Options() config.Options {
	return pl.opts
}

// Toolchain returns the probed toolchain for this pass.
func (pl *Planner) Toolchain() *toolchain.Toolchain {
	return pl.tc
}

// MakeLibrary emits a static library target with the debug profile.
func (pl *Planner) MakeLibrary(spec *BuildSpec) (*plan.Target, error) {
	return pl.makeLibrary(spec, debugProfileFlags(pl.opts))
}

// TestAndMakeLibrary emits the library target and, when test sources are
// declared, the instrumented test target with its run step.
func (pl *Planner) TestAndMakeLibrary(spec *BuildSpec) error {
	if _, err := pl.MakeLibrary(spec); err != nil {
		return err
	}
	if !spec.HasTests() {
		pl.logger.Debug("%s declares no test sources, skipping test target", spec.Name)
		return nil
	}
	_, err := pl.UnitTest(spec)
	return err
}

// TestAndMakeSizeOptimizedLibrary is TestAndMakeLibrary with the library
// compiled for size instead of the debug profile.
func (pl *Planner) TestAndMakeSizeOptimizedLibrary(spec *BuildSpec) error {
	if _, err := pl.makeLibrary(spec, sizeOptimizedFlags()); err != nil {
		return err
	}
	if !spec.HasTests() {
		return nil
	}
	_, err := pl.UnitTest(spec)
	return err
}

func (pl *Planner) makeLibrary(spec *BuildSpec, profile []string) (*plan.Target, error) {
	if err := spec.validateLibrary(); err != nil {
		return nil, err
	}

	compiler, err := pl.tc.Require(toolchain.KindCompiler)
	if err != nil {
		return nil, fmt.Errorf("cannot declare library %s: %w", spec.Name, err)
	}
	archiver, err := pl.tc.Require(toolchain.KindArchiver)
	if err != nil {
		return nil, fmt.Errorf("cannot declare library %s: %w", spec.Name, err)
	}

	deps, err := pl.resolver.ResolveAll(spec.Packages)
	if err != nil {
		return nil, fmt.Errorf("library %s: %w", spec.Name, err)
	}

	flags := append(baseFlags(), profile...)
	flags = append(flags, includeFlags(spec.Includes, deps)...)

	output := filepath.Join(pl.plan.BuildDir, "lib"+spec.Name+".a")
	target := pl.plan.AddTarget(spec.Name, plan.StaticLibrary, output)

	objects := pl.compileAll(target, spec.Name, spec.Sources, flags, compiler)

	archiveArgs := append([]string{"rcs", output}, objects...)
	pl.plan.AddAction(target, plan.Action{
		Kind:        plan.ActionArchive,
		Tool:        archiver.Path,
		Args:        archiveArgs,
		Inputs:      objects,
		Outputs:     []string{output},
		Description: "AR " + output,
	})

	if err := pl.maybeAttachLint(target, spec.Sources, flags, spec.StaticAnalysis, false); err != nil {
		return nil, err
	}

	pl.logger.Info("declared library %s (%d sources)", spec.Name, len(spec.Sources))
	return target, nil
}

// UnitTest emits the instrumented test executable and registers its run
// step. Coverage is always on; the memory sanitizer joins when the
// capability probe found support.
func (pl *Planner) UnitTest(spec *BuildSpec) (*plan.Target, error) {
	if err := spec.validateTest(); err != nil {
		return nil, err
	}

	compiler, err := pl.tc.Require(toolchain.KindCompiler)
	if err != nil {
		return nil, fmt.Errorf("cannot declare test %s: %w", spec.Name, err)
	}

	deps, err := pl.resolver.ResolveAll(append(append([]string{}, spec.Packages...), spec.TestPackages...))
	if err != nil {
		return nil, fmt.Errorf("test %s: %w", spec.Name, err)
	}

	flags := append(baseFlags(), debugProfileFlags(pl.opts)...)
	flags = append(flags, coverageFlags()...)
	if pl.tc.Caps.AddressSanitizer {
		flags = append(flags, sanitizerFlags()...)
	}
	flags = append(flags, includeFlags(spec.Includes, deps)...)

	testName := spec.Name + "_tests"
	output := filepath.Join(pl.plan.BuildDir, testName)
	target := pl.plan.AddTarget(testName, plan.TestExecutable, output)

	sources := append(append([]string{}, spec.Sources...), spec.TestSources...)
	objects := pl.compileAll(target, testName, sources, flags, compiler)

	linkArgs := append([]string{}, coverageFlags()...)
	if pl.tc.Caps.AddressSanitizer {
		linkArgs = append(linkArgs, sanitizerFlags()...)
	}
	linkArgs = append(linkArgs, "-o", output)
	linkArgs = append(linkArgs, objects...)
	linkArgs = append(linkArgs, linkFlags(deps, spec.LinkLibraries, spec.TestLinkLibraries)...)

	pl.plan.AddAction(target, plan.Action{
		Kind:        plan.ActionLink,
		Tool:        compiler.Path,
		Args:        linkArgs,
		Inputs:      objects,
		Outputs:     []string{output},
		Description: "LINK " + output,
	})

	// The run step executes the produced binary once as part of the build.
	pl.plan.AddAction(target, plan.Action{
		Kind:        plan.ActionRunTest,
		Tool:        output,
		Inputs:      []string{output},
		Description: "RUN " + output,
	})

	if err := pl.maybeAttachLint(target, sources, flags, spec.StaticAnalysis, false); err != nil {
		return nil, err
	}

	pl.logger.Info("declared test %s (%d sources)", testName, len(sources))
	return target, nil
}

// Executable emits a linked firmware/demo executable. Post-build transform
// registration is the caller's concern (it is gated on AddBuildOutputs).
func (pl *Planner) Executable(name string, sources, includes, pkgNames, libs, extraFlags []string, disableLint bool) (*plan.Target, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("executable %q requires at least one source", name)
	}

	compiler, err := pl.tc.Require(toolchain.KindCompiler)
	if err != nil {
		return nil, fmt.Errorf("cannot declare executable %s: %w", name, err)
	}

	deps, err := pl.resolver.ResolveAll(pkgNames)
	if err != nil {
		return nil, fmt.Errorf("executable %s: %w", name, err)
	}

	flags := append(baseFlags(), debugProfileFlags(pl.opts)...)
	flags = append(flags, extraFlags...)
	flags = append(flags, includeFlags(includes, deps)...)

	output := filepath.Join(pl.plan.BuildDir, "demos", name+".elf")
	target := pl.plan.AddTarget(name+".elf", plan.Executable, output)

	objects := pl.compileAll(target, name, sources, flags, compiler)

	linkArgs := append([]string{}, extraFlags...)
	linkArgs = append(linkArgs, "-o", output)
	linkArgs = append(linkArgs, objects...)
	linkArgs = append(linkArgs, linkFlags(deps, libs, nil)...)

	pl.plan.AddAction(target, plan.Action{
		Kind:        plan.ActionLink,
		Tool:        compiler.Path,
		Args:        linkArgs,
		Inputs:      objects,
		Outputs:     []string{output},
		Description: "LINK " + output,
	})

	if err := pl.maybeAttachLint(target, sources, flags, nil, disableLint); err != nil {
		return nil, err
	}

	return target, nil
}

// compileAll emits one compile action per source and returns the object
// file paths.
func (pl *Planner) compileAll(target *plan.Target, targetName string, sources, flags []string, compiler toolchain.Tool) []string {
	objects := make([]string, 0, len(sources))
	for _, source := range sources {
		object := filepath.Join(pl.plan.BuildDir, "obj", targetName, source+".o")
		args := append(append([]string{}, flags...), "-c", source, "-o", object)

		pl.plan.AddAction(target, plan.Action{
			Kind:        plan.ActionCompile,
			Tool:        compiler.Path,
			Args:        args,
			Inputs:      []string{source},
			Outputs:     []string{object},
			Description: "CXX " + source,
		})
		objects = append(objects, object)
	}
	return objects
}

func (pl *Planner) maybeAttachLint(target *plan.Target, sources, flags []string, force *bool, disable bool) error {
	decision := lint.Decide(pl.tc.Caps, force, disable)
	if !decision.Attach {
		pl.logger.Debug("static analysis skipped for %s: %s", target.Name, decision.Reason)
		return nil
	}
	return pl.lint.Attach(pl.plan, target, sources, flags)
}

// includeFlags turns caller include dirs plus resolved package exports into
// -I flags.
func includeFlags(includes []string, deps []*packages.Package) []string {
	var flags []string
	for _, include := range includes {
		flags = append(flags, "-I"+include)
	}
	for _, dep := range deps {
		for _, include := range dep.Includes {
			flags = append(flags, "-I"+include)
		}
	}
	return flags
}

// linkFlags turns resolved package exports plus caller link libraries into
// -L/-l flags.
func linkFlags(deps []*packages.Package, libs, testLibs []string) []string {
	var flags []string
	for _, dep := range deps {
		for _, dir := range dep.LibraryDirs {
			flags = append(flags, "-L"+dir)
		}
	}
	for _, dep := range deps {
		for _, lib := range dep.Libraries {
			flags = append(flags, "-l"+lib)
		}
	}
	for _, lib := range libs {
		flags = append(flags, "-l"+lib)
	}
	for _, lib := range testLibs {
		flags = append(flags, "-l"+lib)
	}
	return flags
}
