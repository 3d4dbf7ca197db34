/*
Package ports defines the driven ports (interfaces) of the flow graph engine.

These interfaces decouple graphs from the schedulers that run them and from
the storage that keeps them.

# Key Interfaces

  - Host: Drives and spawns graph walks (see pkg/runner).
  - Codec: Parses and formats port literals (see pkg/codec).
  - GraphStore: Persists graph documents (memory, file or Redis adapters).
  - DistributedLocker: Serializes access to a stored graph across replicas.
*/
package ports
