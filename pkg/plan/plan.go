// Package plan models the output of the configure pass: named buildable
// targets and the actions that produce them. The plan is rendered to a
// Ninja build file; executing it (and its parallelism) belongs entirely to
// the external build executor.
package plan

import (
	"github.com/google/uuid"
)

// TargetKind classifies a buildable unit.
type TargetKind string

// Target kinds.
const (
	StaticLibrary  TargetKind = "static_library"
	TestExecutable TargetKind = "test_executable"
	Executable     TargetKind = "executable"
)

// ActionKind classifies one build action.
type ActionKind string

// Action kinds. The objcopy/objdump/size kinds are the post-build
// transforms attached after a binary target links.
const (
	ActionCompile           ActionKind = "compile"
	ActionArchive           ActionKind = "archive"
	ActionLink              ActionKind = "link"
	ActionRunTest           ActionKind = "run_test"
	ActionLint              ActionKind = "lint"
	ActionIntelHex          ActionKind = "objcopy_ihex"
	ActionBinary            ActionKind = "objcopy_binary"
	ActionDisassemble       ActionKind = "disassemble"
	ActionDisassembleSource ActionKind = "disassemble_source"
	ActionPrintSize         ActionKind = "print_size"
)

//nolint:gochecknoglobals // Static classification set
var postBuildKinds = map[ActionKind]struct{}{
	ActionIntelHex:          {},
	ActionBinary:            {},
	ActionDisassemble:       {},
	ActionDisassembleSource: {},
	ActionPrintSize:         {},
}

// PostBuild reports whether the kind is a post-build transform.
func (k ActionKind) PostBuild() bool {
	_, ok := postBuildKinds[k]
	return ok
}

// Action is one external tool invocation in the plan.
type Action struct {
	ID          string
	Kind        ActionKind
	Tool        string   // absolute tool path
	Args        []string // arguments, excluding the tool itself
	Inputs      []string
	Outputs     []string // empty for log-only actions (run step, size report)
	Description string
}

// Target is a named buildable unit and the actions that produce it.
type Target struct {
	ID        string
	Name      string
	Kind      TargetKind
	Output    string // primary artifact path
	ActionIDs []string
}

// Plan is the full build description for one configuration pass.
type Plan struct {
	Project  string
	BuildDir string
	Targets  []*Target
	Actions  []Action
}

// New creates an empty plan.
func New(project, buildDir string) *Plan {
	return &Plan{Project: project, BuildDir: buildDir}
}

// AddTarget registers a new target.
func (p *Plan) AddTarget(name string, kind TargetKind, output string) *Target {
	target := &Target{
		ID:     uuid.NewString(),
		Name:   name,
		Kind:   kind,
		Output: output,
	}
	p.Targets = append(p.Targets, target)
	return target
}

// AddAction appends an action, assigns it an ID, and attaches it to the
// target when one is given.
func (p *Plan) AddAction(target *Target, action Action) string {
	action.ID = uuid.NewString()
	p.Actions = append(p.Actions, action)
	if target != nil {
		target.ActionIDs = append(target.ActionIDs, action.ID)
	}
	return action.ID
}

// ActionsByKind returns every action of the given kind, in plan order.
func (p *Plan) ActionsByKind(kind ActionKind) []Action {
	var matched []Action
	for _, action := range p.Actions {
		if action.Kind == kind {
			matched = append(matched, action)
		}
	}
	return matched
}

// PostBuildActions returns every registered post-build transform.
func (p *Plan) PostBuildActions() []Action {
	var matched []Action
	for _, action := range p.Actions {
		if action.Kind.PostBuild() {
			matched = append(matched, action)
		}
	}
	return matched
}

// TargetByName returns the first target with the given name.
func (p *Plan) TargetByName(name string) (*Target, bool) {
	for _, target := range p.Targets {
		if target.Name == name {
			return target, true
		}
	}
	return nil, false
}
