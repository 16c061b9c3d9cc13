package toolchain

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Handler simulates one tool. It may write output files.
type Handler func(inv Invocation) error

// FakeRunner records invocations and dispatches them to per-tool handlers.
// Tools with no handler succeed without side effects.
type FakeRunner struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Invocation
}

// NewFakeRunner returns an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{handlers: make(map[string]Handler)}
}

// Handle registers the handler for tool.
func (f *FakeRunner) Handle(tool string, h Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[tool] = h
}

// Fail makes tool exit non-zero.
func (f *FakeRunner) Fail(tool string) {
	f.Handle(tool, func(Invocation) error {
		return fmt.Errorf("%w: %s: exit status 1", ErrToolFailed, tool)
	})
}

func (f *FakeRunner) Run(_ context.Context, inv Invocation) error {
	f.mu.Lock()
	f.calls = append(f.calls, inv)
	h := f.handlers[inv.Tool]
	f.mu.Unlock()
	if h == nil {
		return nil
	}
	return h(inv)
}

// Calls returns a copy of all recorded invocations.
func (f *FakeRunner) Calls() []Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Invocation(nil), f.calls...)
}

// Tools returns the tool name of each recorded invocation, in order.
func (f *FakeRunner) Tools() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Tool
	}
	return out
}

// Arg returns the value of key=value in args, or "".
func Arg(args []string, key string) string {
	prefix := key + "="
	for _, a := range args {
		if strings.HasPrefix(a, prefix) {
			return strings.TrimPrefix(a, prefix)
		}
	}
	return ""
}
