package registry

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/flowgraph/internal/logging"
	"github.com/aretw0/flowgraph/pkg/codec"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/ports"
)

// Registry manages the available commands.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	groups  map[string]Group
	entries map[string][]*Command
	byKey   map[string]*Command
	byName  map[string]*Command

	codec  ports.Codec
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used to report registrations.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithCodec sets the codec used to format default literals.
func WithCodec(c ports.Codec) Option {
	return func(r *Registry) { r.codec = c }
}

// NewRegistry creates a new empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		groups:  make(map[string]Group),
		entries: make(map[string][]*Command),
		byKey:   make(map[string]*Command),
		byName:  make(map[string]*Command),
		codec:   codec.YAML{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Codec returns the literal codec of the registry.
func (r *Registry) Codec() ports.Codec { return r.codec }

// Register adds groups of commands. Registering a group name again replaces
// its previous commands. A group with an invalid definition is rejected as a whole.
func (r *Registry) Register(groups ...Group) error {
	built := make([][]*Command, len(groups))
	for i, g := range groups {
		cmds, err := r.buildGroup(g)
		if err != nil {
			return err
		}
		built[i] = cmds
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, g := range groups {
		if _, exists := r.groups[g.Name]; !exists {
			r.order = append(r.order, g.Name)
		}
		r.groups[g.Name] = g
		r.entries[g.Name] = built[i]
		r.logger.Debug("registered command group", "group", g.Name, "commands", len(built[i]))
	}
	r.reindex()
	return nil
}

// Unregister removes a group. It reports whether the group existed.
func (r *Registry) Unregister(group string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[group]; !ok {
		return false
	}
	delete(r.groups, group)
	delete(r.entries, group)
	for i, name := range r.order {
		if name == group {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.reindex()
	return true
}

// Refresh rebuilds every command from its definition.
func (r *Registry) Refresh() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make(map[string][]*Command, len(r.groups))
	for _, name := range r.order {
		cmds, err := r.buildGroup(r.groups[name])
		if err != nil {
			return err
		}
		entries[name] = cmds
	}
	r.entries = entries
	r.reindex()
	return nil
}

// Lookup resolves a command by qualified key ("Group/Name") or short name.
// A qualified key whose group is unknown falls back to its short name.
func (r *Registry) Lookup(name string) (*Command, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cmd, ok := r.byKey[name]; ok {
		return cmd, nil
	}
	short := name
	if i := strings.LastIndex(name, "/"); i >= 0 {
		short = name[i+1:]
	}
	if cmd, ok := r.byName[short]; ok {
		return cmd, nil
	}
	return nil, &domain.CommandError{Command: name, Err: domain.ErrUnknownCommand}
}

// Commands lists every registered command ordered by key.
func (r *Registry) Commands() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Command, 0, len(r.byKey))
	for _, cmd := range r.byKey {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Groups lists group names in registration order.
func (r *Registry) Groups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) buildGroup(g Group) ([]*Command, error) {
	cmds := make([]*Command, 0, len(g.Definitions))
	for _, d := range g.Definitions {
		cmd, err := build(g.Name, d, r.codec)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

// reindex must be called with the write lock held.
func (r *Registry) reindex() {
	r.byKey = make(map[string]*Command)
	r.byName = make(map[string]*Command)
	for _, name := range r.order {
		for _, cmd := range r.entries[name] {
			r.byKey[cmd.Key] = cmd
			if prev, clash := r.byName[cmd.Name]; clash && prev.Group != cmd.Group {
				r.logger.Debug("short command name shadowed", "name", cmd.Name, "previous", prev.Key, "current", cmd.Key)
			}
			r.byName[cmd.Name] = cmd
		}
	}
}
