package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrUnknownTool   = errors.New("tool is not registered")
	ErrDuplicateTool = errors.New("tool is already registered")
	ErrNilHandler    = errors.New("tool handler is nil")
)

// SafetyTag classifies a tool as runnable without confirmation or not.
type SafetyTag string

const (
	Safe      SafetyTag = "safe"
	Sensitive SafetyTag = "sensitive"
)

// ToolDescriptor is a registered tool as seen by the agent.
type ToolDescriptor struct {
	Spec   ToolSpec
	Safety SafetyTag
}

type entry struct {
	handler ToolHandler
	spec    ToolSpec
	safety  SafetyTag
}

// Registry maps tool names to handlers and safety tags. The set of tools is
// expected to be fixed once a session starts; the lock only guards startup
// registration against concurrent lookups.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a handler under its spec name.
func (r *Registry) Register(handler ToolHandler, safety SafetyTag) error {
	if handler == nil {
		return ErrNilHandler
	}
	spec := handler.Spec()
	if spec.Name == "" {
		return errors.New("tool name is empty")
	}
	if safety != Safe && safety != Sensitive {
		return fmt.Errorf("tool %q: unknown safety tag %q", spec.Name, safety)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[spec.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateTool, spec.Name)
	}
	r.entries[spec.Name] = entry{handler: handler, spec: spec, safety: safety}
	r.order = append(r.order, spec.Name)
	return nil
}

// Resolve returns the handler and safety tag for name.
func (r *Registry) Resolve(name string) (ToolHandler, SafetyTag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return e.handler, e.safety, nil
}

// Spec returns the ToolSpec registered under name.
func (r *Registry) Spec(name string) (ToolSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.spec, ok
}

// IsSensitive reports whether name is registered as sensitive. Unknown
// tools are not sensitive: they fail at execution instead.
func (r *Registry) IsSensitive(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return ok && e.safety == Sensitive
}

// List returns every tool in registration order.
func (r *Registry) List() []ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		e := r.entries[name]
		out = append(out, ToolDescriptor{Spec: e.spec, Safety: e.safety})
	}
	return out
}

// Specs returns every tool spec in registration order.
func (r *Registry) Specs() []ToolSpec {
	descs := r.List()
	out := make([]ToolSpec, len(descs))
	for i, d := range descs {
		out[i] = d.Spec
	}
	return out
}

// Names returns every tool name in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Execute validates the invocation's arguments and dispatches it.
func (r *Registry) Execute(ctx context.Context, invocation *ToolInvocation) (*ToolOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handler, _, err := r.Resolve(invocation.ToolName)
	if err != nil {
		return nil, err
	}
	args, err := ValidateArguments(handler.Spec(), invocation.Arguments)
	if err != nil {
		return nil, err
	}
	inv := *invocation
	inv.Arguments = args
	return handler.Handle(ctx, &inv)
}
