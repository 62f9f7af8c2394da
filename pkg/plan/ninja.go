package plan

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// WriteNinja renders the plan as a Ninja build file. Every action becomes
// one build edge; actions without file outputs (the test run step, the size
// report) produce a stamp file so Ninja can order and cache them.
func WriteNinja(w io.Writer, p *Plan) error {
	var b strings.Builder

	b.WriteString("# This file is generated by halbuild. Do not edit.\n")
	fmt.Fprintf(&b, "# project: %s\n\n", p.Project)
	b.WriteString("ninja_required_version = 1.3\n\n")

	// Two generic rules: every edge carries its full command. Tool paths
	// and flags were fixed at configure time, so there is nothing for
	// Ninja to expand beyond $out for stamped edges.
	b.WriteString("rule halbuild\n")
	b.WriteString("  command = $cmd\n")
	b.WriteString("  description = $desc\n\n")

	b.WriteString("rule halbuild_stamped\n")
	b.WriteString("  command = $cmd && touch $out\n")
	b.WriteString("  description = $desc\n\n")

	for i := range p.Actions {
		action := &p.Actions[i]

		rule := "halbuild"
		outputs := action.Outputs
		if len(outputs) == 0 {
			rule = "halbuild_stamped"
			outputs = []string{stampPath(p.BuildDir, action)}
		}

		fmt.Fprintf(&b, "build %s: %s %s\n",
			joinPaths(outputs), rule, joinPaths(action.Inputs))
		fmt.Fprintf(&b, "  cmd = %s\n", commandLine(action))
		fmt.Fprintf(&b, "  desc = %s\n\n", action.Description)
	}

	// Phony aliases so targets are addressable by name.
	for _, target := range p.Targets {
		if target.Output == "" {
			continue
		}
		fmt.Fprintf(&b, "build %s: phony %s\n", escapePath(target.Name), escapePath(target.Output))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func stampPath(buildDir string, action *Action) string {
	return filepath.Join(buildDir, ".stamps", string(action.Kind)+"-"+action.ID+".stamp")
}

func commandLine(action *Action) string {
	parts := make([]string, 0, len(action.Args)+1)
	parts = append(parts, action.Tool)
	parts = append(parts, action.Args...)
	return strings.Join(parts, " ")
}

func joinPaths(paths []string) string {
	escaped := make([]string, len(paths))
	for i, path := range paths {
		escaped[i] = escapePath(path)
	}
	return strings.Join(escaped, " ")
}

// escapePath applies Ninja path escaping for spaces, colons and dollars.
func escapePath(path string) string {
	replacer := strings.NewReplacer("$", "$$", " ", "$ ", ":", "$:")
	return replacer.Replace(path)
}
