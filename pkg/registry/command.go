package registry

import (
	"context"

	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/schema"
)

// Flow marks a control parameter. Aliased so host code only imports registry.
type Flow = schema.Flow

// FlowList marks a labelled list of control outputs.
type FlowList = schema.FlowList

// Invoker executes a command with its positional arguments.
// Output parameters are written back into args.
type Invoker interface {
	Invoke(ctx context.Context, args []any) (any, error)
}

// InvokerFunc adapts a plain function to Invoker.
type InvokerFunc func(ctx context.Context, args []any) (any, error)

func (f InvokerFunc) Invoke(ctx context.Context, args []any) (any, error) { return f(ctx, args) }

// ParamSpec declares how a function parameter is exposed as a port.
// Specs are positional: one per function parameter, context.Context excluded.
type ParamSpec struct {
	name     string
	output   bool
	autoRun  bool
	keyName  bool
	list     bool
	typ      schema.Type
	def      any
	hasDef   bool
}

// Arg declares a parameter by name.
func Arg(name string) ParamSpec { return ParamSpec{name: name} }

// Out marks the parameter as a data output. Function parameters must be
// pointers; pointer parameters are outputs even without Out.
func (p ParamSpec) Out() ParamSpec { p.output = true; return p }

// AutoRun marks an output whose node runs on demand whenever a consumer reads it.
// The node loses its control ports.
func (p ParamSpec) AutoRun() ParamSpec { p.output = true; p.autoRun = true; return p }

// KeyName makes the parameter's value the node id.
func (p ParamSpec) KeyName() ParamSpec { p.keyName = true; return p }

// List exposes a slice parameter as one slot per element.
func (p ParamSpec) List() ParamSpec { p.list = true; return p }

// Default sets the literal applied when the port has none.
func (p ParamSpec) Default(v any) ParamSpec { p.def = v; p.hasDef = true; return p }

// Type overrides the inferred port type. Required by explicit invokers.
func (p ParamSpec) Type(t schema.Type) ParamSpec { p.typ = t; return p }

// Definition describes one command before registration.
type Definition struct {
	Name        string
	Description string
	// Fn is reflected once at registration. Ignored when Invoker is set.
	Fn     any
	Params []ParamSpec
	Start  bool
	// Result overrides the type of the Result port.
	Result schema.Type
	// Returns and Invoker describe commands that bypass reflection.
	Returns domain.ReturnKind
	Invoker Invoker
}

// Func declares a command backed by a Go function.
func Func(name string, fn any, params ...ParamSpec) Definition {
	return Definition{Name: name, Fn: fn, Params: params}
}

// StartFunc declares a start command. Start commands have no From port.
func StartFunc(name string, fn any, params ...ParamSpec) Definition {
	d := Func(name, fn, params...)
	d.Start = true
	return d
}

// WithResult sets the type of the Result port.
func (d Definition) WithResult(t schema.Type) Definition { d.Result = t; return d }

// Describe attaches a human readable description.
func (d Definition) Describe(text string) Definition { d.Description = text; return d }

// Group is a named set of definitions registered together.
type Group struct {
	Name        string
	Definitions []Definition
}

// Param is the published description of one command parameter.
type Param struct {
	Name       string
	Type       schema.Type
	Output     bool
	AutoRun    bool
	Control    bool
	KeyName    bool
	List       bool
	Self       bool
	HasDefault bool
	// Default is the default literal, already formatted.
	Default string
}

// Command is a registered, immutable command.
type Command struct {
	// Key is the qualified name "Group/Name".
	Key         string
	Name        string
	Group       string
	Description string
	Params      []Param
	Returns     domain.ReturnKind
	ResultType  schema.Type
	Start       bool

	invoker Invoker
}

// Invoke runs the command. args must have one entry per parameter.
func (c *Command) Invoke(ctx context.Context, args []any) (any, error) {
	return c.invoker.Invoke(ctx, args)
}

// Param returns a parameter by name.
func (c *Command) Param(name string) (Param, bool) {
	for _, p := range c.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Signature returns the data parameters as a schema, keyed by name.
func (c *Command) Signature() schema.Schema {
	s := make(schema.Schema, len(c.Params))
	for _, p := range c.Params {
		if p.Self || p.Control {
			continue
		}
		s[p.Name] = p.Type
	}
	return s
}

// HasAutoRun reports whether any output is auto-run.
func (c *Command) HasAutoRun() bool {
	for _, p := range c.Params {
		if p.AutoRun {
			return true
		}
	}
	return false
}
