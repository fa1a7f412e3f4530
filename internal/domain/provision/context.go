package provision

import (
	"context"
	"sort"
)

// ExecutionContext carries the values resolved during provisioning: tool
// paths discovered by stages, the activation environment, and the device
// assignment for the launched job. It is owned by the Runner and passed by
// reference to each stage; nothing mutates it concurrently.
type ExecutionContext struct {
	tools  map[string]string
	env    map[string]string
	device string
}

// NewExecutionContext creates an empty ExecutionContext.
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{
		tools: make(map[string]string),
		env:   make(map[string]string),
	}
}

// SetTool records the resolved path of an external tool.
func (e *ExecutionContext) SetTool(name, path string) {
	e.tools[name] = path
}

// Tool returns the resolved path of a tool, if recorded.
func (e *ExecutionContext) Tool(name string) (string, bool) {
	path, ok := e.tools[name]
	return path, ok
}

// SetEnv records an activation environment variable.
func (e *ExecutionContext) SetEnv(key, value string) {
	e.env[key] = value
}

// Env returns an activation environment variable, if recorded.
func (e *ExecutionContext) Env(key string) (string, bool) {
	value, ok := e.env[key]
	return value, ok
}

// SetDevice records the device index assigned to the launched job.
func (e *ExecutionContext) SetDevice(device string) {
	e.device = device
}

// Device returns the assigned device index.
func (e *ExecutionContext) Device() string {
	return e.device
}

// Environ returns the activation environment as KEY=VALUE pairs in a
// deterministic order.
func (e *ExecutionContext) Environ() []string {
	keys := make([]string, 0, len(e.env))
	for k := range e.env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	environ := make([]string, 0, len(keys))
	for _, k := range keys {
		environ = append(environ, k+"="+e.env[k])
	}
	return environ
}

// RunContext provides context for stage execution (Check, Apply, Verify).
type RunContext struct {
	ctx  context.Context
	exec *ExecutionContext
}

// NewRunContext creates a new RunContext.
func NewRunContext(ctx context.Context, exec *ExecutionContext) RunContext {
	return RunContext{
		ctx:  ctx,
		exec: exec,
	}
}

// Context returns the underlying context.Context.
func (r RunContext) Context() context.Context {
	return r.ctx
}

// Exec returns the shared ExecutionContext.
func (r RunContext) Exec() *ExecutionContext {
	return r.exec
}
