/*
Package domain contains the core vocabulary of the flow graph engine.

It defines port addressing, execution states, return kinds, the serialized
document form of graphs and the error taxonomy. This package is kept pure and
free of external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - PortRef: Addresses one slot of one port of one node.
  - GraphDoc / NodeDoc / PortDoc: The persisted shape of a graph.
  - ReturnKind: How a command completes (immediately, after a timer, after a future).
  - ExecState: Where a node is in its execution cycle.
  - LifecycleHooks: Observability callbacks fired while graphs run.
*/
package domain
