// Package postbuild implements the post-link transform rules: converting a
// linked binary to Intel HEX, raw binary, disassembly listings, and a size
// report. Each transform is a one-shot invocation of an external tool; a
// missing tool or non-zero exit fails the build, naming the tool.
package postbuild

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"halbuild/pkg/exec"
	"halbuild/pkg/plan"
	"halbuild/pkg/toolchain"
)

// Kind names one post-build transform.
type Kind string

// Transform kinds.
const (
	IntelHex              Kind = "ihex"
	Binary                Kind = "binary"
	Disassemble           Kind = "disassembly"
	DisassembleWithSource Kind = "disassembly_with_source"
	PrintSize             Kind = "size_report"
)

// Full returns the composed "full post-build" set: all five transforms.
func Full() []Kind {
	return []Kind{IntelHex, Binary, Disassemble, DisassembleWithSource, PrintSize}
}

// Standard returns the composed "standard post-build" set: hex, binary and
// the size report.
func Standard() []Kind {
	return []Kind{IntelHex, Binary, PrintSize}
}

// invocation is the resolved tool command for one transform of one binary.
type invocation struct {
	kind       Kind
	actionKind plan.ActionKind
	tool       toolchain.Tool
	args       []string
	output     string // empty for the size report
	toStdout   bool   // tool writes the artifact to stdout
}

// resolve maps a transform kind onto a probed tool and argument list.
// The error names the missing tool.
func resolve(tc *toolchain.Toolchain, binary string, kind Kind) (invocation, error) {
	switch kind {
	case IntelHex:
		tool, err := tc.Require(toolchain.KindObjcopy)
		if err != nil {
			return invocation{}, fmt.Errorf("post-build %s: %w", kind, err)
		}
		output := replaceExt(binary, ".hex")
		return invocation{
			kind:       kind,
			actionKind: plan.ActionIntelHex,
			tool:       tool,
			args:       []string{"-O", "ihex", binary, output},
			output:     output,
		}, nil

	case Binary:
		tool, err := tc.Require(toolchain.KindObjcopy)
		if err != nil {
			return invocation{}, fmt.Errorf("post-build %s: %w", kind, err)
		}
		output := replaceExt(binary, ".bin")
		return invocation{
			kind:       kind,
			actionKind: plan.ActionBinary,
			tool:       tool,
			args:       []string{"-O", "binary", binary, output},
			output:     output,
		}, nil

	case Disassemble:
		tool, err := tc.Require(toolchain.KindObjdump)
		if err != nil {
			return invocation{}, fmt.Errorf("post-build %s: %w", kind, err)
		}
		return invocation{
			kind:       kind,
			actionKind: plan.ActionDisassemble,
			tool:       tool,
			args:       []string{"--disassemble", "--demangle", binary},
			output:     replaceExt(binary, ".S"),
			toStdout:   true,
		}, nil

	case DisassembleWithSource:
		tool, err := tc.Require(toolchain.KindObjdump)
		if err != nil {
			return invocation{}, fmt.Errorf("post-build %s: %w", kind, err)
		}
		return invocation{
			kind:       kind,
			actionKind: plan.ActionDisassembleSource,
			tool:       tool,
			args:       []string{"--all-headers", "--source", "--disassemble", "--demangle", binary},
			output:     replaceExt(binary, ".lst"),
			toStdout:   true,
		}, nil

	case PrintSize:
		tool, err := tc.Require(toolchain.KindSize)
		if err != nil {
			return invocation{}, fmt.Errorf("post-build %s: %w", kind, err)
		}
		return invocation{
			kind:       kind,
			actionKind: plan.ActionPrintSize,
			tool:       tool,
			args:       []string{binary},
			toStdout:   true, // surfaced as build-log text, not a file
		}, nil

	default:
		return invocation{}, fmt.Errorf("unknown post-build transform: %s", kind)
	}
}

// Register attaches the given transforms to a linked binary as plan
// actions. Registration fails when a required tool is missing.
func Register(p *plan.Plan, tc *toolchain.Toolchain, target *plan.Target, binary string, kinds ...Kind) error {
	for _, kind := range kinds {
		inv, err := resolve(tc, binary, kind)
		if err != nil {
			return err
		}

		args := inv.args
		var outputs []string
		if inv.output != "" {
			outputs = []string{inv.output}
			if inv.toStdout {
				// Ninja runs commands through the shell, so stdout-writing
				// tools redirect into their artifact.
				args = append(append([]string(nil), args...), ">", inv.output)
			}
		}

		p.AddAction(target, plan.Action{
			Kind:        inv.actionKind,
			Tool:        inv.tool.Path,
			Args:        args,
			Inputs:      []string{binary},
			Outputs:     outputs,
			Description: fmt.Sprintf("%s %s", strings.ToUpper(string(kind)), binary),
		})
	}
	return nil
}

// Run executes one transform immediately against an already linked binary.
// Tools that write to stdout have their output captured and written to the
// artifact file; the size report is streamed to logw instead.
func Run(ctx context.Context, executor exec.Executor, tc *toolchain.Toolchain, binary string, kind Kind, logw io.Writer) error {
	inv, err := resolve(tc, binary, kind)
	if err != nil {
		return err
	}

	opts := exec.DefaultOpts()
	result, err := executor.Run(ctx, append([]string{inv.tool.Path}, inv.args...), &opts)
	if err != nil {
		return fmt.Errorf("post-build %s: failed to run %s: %w", kind, inv.tool.Name, err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("post-build %s: %s exited %d: %s",
			kind, inv.tool.Name, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	if kind == PrintSize {
		fmt.Fprintf(logw, "%s\n", strings.TrimSpace(result.Stdout))
		return nil
	}

	if inv.toStdout {
		if err := os.WriteFile(inv.output, []byte(result.Stdout), 0o644); err != nil {
			return fmt.Errorf("post-build %s: failed to write %s: %w", kind, inv.output, err)
		}
	}
	return nil
}

// RunAll executes a composed transform set in order, stopping at the first
// failure.
func RunAll(ctx context.Context, executor exec.Executor, tc *toolchain.Toolchain, binary string, kinds []Kind, logw io.Writer) error {
	for _, kind := range kinds {
		if err := Run(ctx, executor, tc, binary, kind, logw); err != nil {
			return err
		}
	}
	return nil
}

// replaceExt swaps the file extension of a binary artifact path.
func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
