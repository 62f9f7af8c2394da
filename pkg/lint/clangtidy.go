// Package lint implements the static-analysis attachment rule: clang-tidy
// is attached to a target based on tool availability and cross-compilation
// status, with per-target force/disable overrides.
package lint

import (
	"fmt"
	"os"
	"path/filepath"

	"halbuild/pkg/logx"
	"halbuild/pkg/plan"
	"halbuild/pkg/toolchain"
)

// ConfigFileName is the project-level clang-tidy configuration file. When
// present in the project root it overrides the embedded default checks.
const ConfigFileName = ".clang-tidy"

// defaultChecks is the check set applied when the project carries no
// .clang-tidy of its own.
const defaultChecks = "clang-analyzer-*," +
	"bugprone-*," +
	"performance-*," +
	"readability-*," +
	"modernize-*," +
	"-modernize-use-trailing-return-type," +
	"-readability-identifier-length"

// Decision records whether analysis attaches to a target and why not,
// so the configure log can explain skipped attachments.
type Decision struct {
	Attach bool
	Reason string
}

// Decide applies the attachment policy. Canonical policy: static analysis
// is ON whenever clang-tidy is available at a supported version, except for
// cross builds, which require the force flag. An explicit disable always
// wins.
func Decide(caps toolchain.Capabilities, force *bool, disable bool) Decision {
	if disable {
		return Decision{Reason: "static analysis disabled for this target"}
	}
	if force != nil && !*force {
		return Decision{Reason: "static analysis disabled for this target"}
	}
	if !caps.StaticAnalysis {
		return Decision{Reason: "clang-tidy not available at a supported version"}
	}
	if caps.CrossCompiling && (force == nil || !*force) {
		return Decision{Reason: "cross-compiling; set static_analysis to force"}
	}
	return Decision{Attach: true}
}

// Attacher emits lint actions into the plan.
type Attacher struct {
	tc     *toolchain.Toolchain
	root   string
	logger *logx.Logger
}

// NewAttacher creates an attacher for the given probed toolchain and
// project root.
func NewAttacher(tc *toolchain.Toolchain, root string) *Attacher {
	return &Attacher{
		tc:     tc,
		root:   root,
		logger: logx.NewLogger("lint"),
	}
}

// Attach registers one clang-tidy action covering the target's sources,
// re-using the target's compile flags after the `--` separator. The
// decision must already have been made by Decide; calling Attach with an
// unavailable tool is an error naming it.
func (a *Attacher) Attach(p *plan.Plan, target *plan.Target, sources, compileFlags []string) error {
	tidy, err := a.tc.Require(toolchain.KindClangTidy)
	if err != nil {
		return fmt.Errorf("cannot attach static analysis: %w", err)
	}
	if len(sources) == 0 {
		return fmt.Errorf("cannot attach static analysis to %s: no sources", target.Name)
	}

	args := make([]string, 0, len(sources)+len(compileFlags)+3)
	args = append(args, sources...)
	args = append(args, "--quiet")
	if !a.projectHasConfig() {
		args = append(args, "--checks="+defaultChecks)
	}
	args = append(args, "--")
	args = append(args, compileFlags...)

	p.AddAction(target, plan.Action{
		Kind:        plan.ActionLint,
		Tool:        tidy.Path,
		Args:        args,
		Inputs:      sources,
		Description: fmt.Sprintf("TIDY %s", target.Name),
	})

	a.logger.Debug("attached clang-tidy to %s (%d sources)", target.Name, len(sources))
	return nil
}

// projectHasConfig reports whether the project root carries a .clang-tidy,
// in which case clang-tidy's own config discovery takes over.
func (a *Attacher) projectHasConfig() bool {
	_, err := os.Stat(filepath.Join(a.root, ConfigFileName))
	return err == nil
}
