// Package toolchain probes the external build tools (compiler, binutils,
// clang-tidy) once per configuration pass and exposes the result as an
// immutable Toolchain value threaded through every configuration rule.
package toolchain

import "fmt"

// Kind identifies an external tool role within the toolchain.
type Kind string

// Tool kinds probed during configuration.
const (
	KindCompiler  Kind = "c++"
	KindArchiver  Kind = "ar"
	KindObjcopy   Kind = "objcopy"
	KindObjdump   Kind = "objdump"
	KindSize      Kind = "size"
	KindClangTidy Kind = "clang-tidy"
)

// Tool is the probed state of one external tool. Read-only after detection.
type Tool struct {
	Kind    Kind
	Name    string // binary name, including any cross prefix
	Path    string // absolute path, empty when not found
	Version Version
	Found   bool
}

// Capabilities are the feature flags computed once from the probe results
// and threaded through the configuration rules instead of scattered checks.
type Capabilities struct {
	// AddressSanitizer is set when the host compiler accepts
	// -fsanitize=address. Never set for cross builds.
	AddressSanitizer bool

	// StaticAnalysis is set when clang-tidy was found at a supported version.
	StaticAnalysis bool

	// CrossCompiling is set when a cross prefix is configured.
	CrossCompiling bool
}

// Toolchain is the probed tool set for one configuration pass.
type Toolchain struct {
	Prefix    string // cross prefix, e.g. "arm-none-eabi-"
	Compiler  Tool
	Archiver  Tool
	Objcopy   Tool
	Objdump   Tool
	Size      Tool
	ClangTidy Tool
	Caps      Capabilities
}

// minVersions holds the minimum supported version per tool. A probe below
// the minimum is treated the same as "not found": feature disabled, warning
// emitted, configuration continues.
var minVersions = map[Kind]Version{
	KindClangTidy: {Major: 14},
}

// MinVersion returns the minimum supported version for a tool kind, if any.
func MinVersion(kind Kind) (Version, bool) {
	v, ok := minVersions[kind]
	return v, ok
}

// Tool returns the probed tool for the given kind.
func (tc *Toolchain) Tool(kind Kind) (Tool, error) {
	switch kind {
	case KindCompiler:
		return tc.Compiler, nil
	case KindArchiver:
		return tc.Archiver, nil
	case KindObjcopy:
		return tc.Objcopy, nil
	case KindObjdump:
		return tc.Objdump, nil
	case KindSize:
		return tc.Size, nil
	case KindClangTidy:
		return tc.ClangTidy, nil
	default:
		return Tool{}, fmt.Errorf("unknown tool kind: %s", kind)
	}
}

// Require returns the probed tool for the given kind, or an error naming
// the missing binary. Used by rules that cannot proceed without the tool.
func (tc *Toolchain) Require(kind Kind) (Tool, error) {
	tool, err := tc.Tool(kind)
	if err != nil {
		return Tool{}, err
	}
	if !tool.Found {
		return Tool{}, fmt.Errorf("required tool not found: %s", tool.Name)
	}
	return tool, nil
}
