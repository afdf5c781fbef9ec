/*
Package ports defines the driven ports (interfaces) for the Stepwise engine.

These interfaces decouple the engine from concrete audio engines, value sources,
definition files and snapshot storage, so the same engine can run inside a CLI,
an HTTP server or an agent host.

# Key Interfaces

  - AudioHandle: the shared playback handle a sequence lends to its current step.
  - Observable: a synchronous read of one externally owned primitive value.
  - VariableResolver: resolves named observables for compiled conditions.
  - DefinitionLoader: loads flow definitions (e.g. from YAML files or memory).
  - SnapshotStore: persists runtime snapshots of runs.
  - DistributedLocker: serializes access to a run across replicas.
*/
package ports
