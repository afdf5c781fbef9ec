/*
Package domain contains the core domain models shared by the Stepwise engine and its adapters.

It defines the status state machine, comparison operators, lifecycle events, the
runtime snapshot record and the immutable flow definition. This package is kept pure
and free of I/O, following the same hexagonal split as the rest of the module.

# Key Entities

  - Status: Inactive, Started or Completed; shared by steps and sequences.
  - Comparison: the operator a branch condition applies to an observed value.
  - Definition: a design-time flow (linear or branching) that can be compiled into many runs.
  - Snapshot: the mutable runtime-state record of one run (current step, per-step status).
  - LifecycleHooks: callbacks for observability (status changes, transitions, run ends).
*/
package domain
