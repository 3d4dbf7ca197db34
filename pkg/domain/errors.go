package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCommand is returned when a command name does not resolve in the registry.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrIncompatiblePorts is returned when two ports cannot be connected.
	ErrIncompatiblePorts = errors.New("incompatible ports")
	// ErrMissingPort is returned when a port name or slot does not exist on a node.
	ErrMissingPort = errors.New("missing port")
	// ErrSyncRunOnSuspendable is returned when a suspending command is run synchronously.
	ErrSyncRunOnSuspendable = errors.New("command suspends and cannot run synchronously")
	// ErrDanglingConnection is returned when an edge points to a node or port that no longer exists.
	ErrDanglingConnection = errors.New("dangling connection")
	// ErrResolutionCycle is returned when auto-run data resolution loops back on itself.
	ErrResolutionCycle = errors.New("auto-run resolution cycle")
	// ErrNodeNotFound is returned when a node id is not part of the graph.
	ErrNodeNotFound = errors.New("node not found")
	// ErrDuplicateNode is returned when a node id is already taken.
	ErrDuplicateNode = errors.New("duplicate node id")
	// ErrGraphNotFound is returned when a stored graph cannot be found.
	ErrGraphNotFound = errors.New("graph not found")
	// ErrInvalidCommand is returned when a command definition cannot be registered.
	ErrInvalidCommand = errors.New("invalid command definition")
)

// CommandError carries the name that failed to resolve or register.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// PortError reports a problem with a specific port.
type PortError struct {
	Ref PortRef
	Err error
}

func (e *PortError) Error() string {
	return fmt.Sprintf("port %s: %v", e.Ref, e.Err)
}

func (e *PortError) Unwrap() error { return e.Err }

// ConnectError reports a rejected connection between two ports.
type ConnectError struct {
	From, To PortRef
	Reason   string
	Err      error
}

func (e *ConnectError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("connect %s -> %s: %v", e.From, e.To, e.Err)
	}
	return fmt.Sprintf("connect %s -> %s: %v (%s)", e.From, e.To, e.Err, e.Reason)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// NodeRunError wraps a failure raised while executing a node.
type NodeRunError struct {
	NodeID  string
	Command string
	Err     error
}

func (e *NodeRunError) Error() string {
	return fmt.Sprintf("node %s (%s): %v", e.NodeID, e.Command, e.Err)
}

func (e *NodeRunError) Unwrap() error { return e.Err }
