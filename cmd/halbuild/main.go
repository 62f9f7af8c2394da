// Command halbuild evaluates a project manifest for an embedded C++
// library, probes the external toolchain, and emits a Ninja build plan.
// It can also run the post-build transforms directly against an already
// linked binary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"halbuild/pkg/configure"
	"halbuild/pkg/exec"
	"halbuild/pkg/logx"
	"halbuild/pkg/postbuild"
	"halbuild/pkg/toolchain"
)

// Version information - set by goreleaser via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = `usage: halbuild <command> [flags]

Commands:
  configure   Evaluate the project manifest and emit build.ninja
  postbuild   Run post-build transforms on a linked binary
  probe       Probe the toolchain and print what was found
  version     Show version information
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	ctx := context.Background()

	var err error
	switch args[0] {
	case "configure":
		err = runConfigure(ctx, args[1:])
	case "postbuild":
		err = runPostBuild(ctx, args[1:])
	case "probe":
		err = runProbe(ctx, args[1:])
	case "version":
		fmt.Printf("halbuild %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", args[0], usage)
		return 2
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "halbuild %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

func runConfigure(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("configure", flag.ExitOnError)
	var (
		manifest     = flags.String("manifest", "halbuild.yaml", "Path to the project manifest")
		buildDir     = flags.String("build-dir", "", "Build output directory (default: <root>/build)")
		metricsPath  = flags.String("metrics", "", "Write configure-pass metrics to this textfile")
		noProbeCache = flags.Bool("no-probe-cache", false, "Disable the SQLite tool-probe cache")
		debug        = flags.Bool("debug", false, "Enable debug logging")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *debug {
		logx.SetDebug(true, nil)
	}

	result, err := configure.Run(ctx, configure.Params{
		ManifestPath:      *manifest,
		BuildDir:          *buildDir,
		MetricsPath:       *metricsPath,
		DisableProbeCache: *noProbeCache,
	})
	if err != nil {
		return err
	}

	fmt.Printf("wrote %s (%d targets, %d actions)\n",
		result.NinjaPath, len(result.Plan.Targets), len(result.Plan.Actions))
	return nil
}

func runPostBuild(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("postbuild", flag.ExitOnError)
	var (
		binary = flags.String("binary", "", "Linked binary to transform (required)")
		op     = flags.String("op", "full", "Transform: full, standard, hex, bin, disasm, disasm-src, size")
		prefix = flags.String("prefix", "", "Cross toolchain prefix, e.g. arm-none-eabi-")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *binary == "" {
		return fmt.Errorf("-binary is required")
	}
	if _, err := os.Stat(*binary); err != nil {
		return fmt.Errorf("binary does not exist: %s", *binary)
	}

	kinds, err := parseOp(*op)
	if err != nil {
		return err
	}

	executor := exec.NewLocalExec()
	prober := toolchain.NewProber(executor, nil)
	tc, err := prober.Detect(ctx, *prefix)
	if err != nil {
		return err
	}

	return postbuild.RunAll(ctx, executor, tc, *binary, kinds, os.Stdout)
}

// parseOp maps the CLI operation name onto a transform set.
func parseOp(op string) ([]postbuild.Kind, error) {
	switch op {
	case "full":
		return postbuild.Full(), nil
	case "standard":
		return postbuild.Standard(), nil
	case "hex":
		return []postbuild.Kind{postbuild.IntelHex}, nil
	case "bin":
		return []postbuild.Kind{postbuild.Binary}, nil
	case "disasm":
		return []postbuild.Kind{postbuild.Disassemble}, nil
	case "disasm-src":
		return []postbuild.Kind{postbuild.DisassembleWithSource}, nil
	case "size":
		return []postbuild.Kind{postbuild.PrintSize}, nil
	default:
		return nil, fmt.Errorf("unknown post-build operation: %s", op)
	}
}

func runProbe(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("probe", flag.ExitOnError)
	var (
		prefix  = flags.String("prefix", "", "Cross toolchain prefix, e.g. arm-none-eabi-")
		noCache = flags.Bool("no-probe-cache", false, "Disable the SQLite tool-probe cache")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}

	var cache *toolchain.Cache
	if !*noCache {
		opened, err := toolchain.OpenCache(".halbuild/probes.db")
		if err == nil {
			cache = opened
			defer func() { _ = cache.Close() }()
		}
	}

	prober := toolchain.NewProber(exec.NewLocalExec(), cache)
	tc, err := prober.Detect(ctx, *prefix)
	if err != nil {
		return err
	}

	printTool := func(tool toolchain.Tool) {
		if tool.Found {
			fmt.Printf("  %-12s %s (%s)\n", tool.Kind, tool.Path, tool.Version)
		} else {
			fmt.Printf("  %-12s not found (%s)\n", tool.Kind, tool.Name)
		}
	}
	fmt.Printf("toolchain (prefix %q):\n", *prefix)
	printTool(tc.Compiler)
	printTool(tc.Archiver)
	printTool(tc.Objcopy)
	printTool(tc.Objdump)
	printTool(tc.Size)
	printTool(tc.ClangTidy)

	fmt.Printf("capabilities: sanitizer=%t static-analysis=%t cross=%t\n",
		tc.Caps.AddressSanitizer, tc.Caps.StaticAnalysis, tc.Caps.CrossCompiling)
	return nil
}
