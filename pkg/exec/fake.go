package exec

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// FakeExec is a scripted executor for tests. Responses are keyed by the
// command's binary name; unmatched commands fall back to the default
// response (exit 0, empty output).
type FakeExec struct {
	mu        sync.Mutex
	responses map[string]Result
	errs      map[string]error
	calls     [][]string
}

// NewFakeExec creates an empty fake executor.
func NewFakeExec() *FakeExec {
	return &FakeExec{
		responses: make(map[string]Result),
		errs:      make(map[string]error),
	}
}

// Name returns the executor type name.
func (e *FakeExec) Name() ExecutorType {
	return ExecutorTypeFake
}

// Respond scripts the result returned when the given binary is invoked.
func (e *FakeExec) Respond(binary string, result Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responses[binary] = result
}

// Fail scripts an execution error (e.g. binary missing) for the given binary.
func (e *FakeExec) Fail(binary string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs[binary] = err
}

// Calls returns every command the fake has executed, in order.
func (e *FakeExec) Calls() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	calls := make([][]string, len(e.calls))
	copy(calls, e.calls)
	return calls
}

// CallsTo returns the commands whose binary name matches.
func (e *FakeExec) CallsTo(binary string) [][]string {
	var matched [][]string
	for _, call := range e.Calls() {
		if len(call) > 0 && baseName(call[0]) == binary {
			matched = append(matched, call)
		}
	}
	return matched
}

// Run records the call and returns the scripted response.
func (e *FakeExec) Run(_ context.Context, cmd []string, _ *Opts) (Result, error) {
	if len(cmd) == 0 {
		return Result{}, fmt.Errorf("command cannot be empty")
	}

	e.mu.Lock()
	e.calls = append(e.calls, append([]string(nil), cmd...))
	binary := baseName(cmd[0])
	result, ok := e.responses[binary]
	err := e.errs[binary]
	e.mu.Unlock()

	if err != nil {
		return Result{ExitCode: -1}, err
	}
	if !ok {
		return Result{}, nil
	}
	return result, nil
}

func baseName(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
