/*
Package observability provides tools for monitoring Stepwise runs.

Metrics turns lifecycle hooks into Prometheus series. Recorder persists a
runtime snapshot of a run every time one of its nodes changes status, so hosts
can inspect a run after a restart and audit how it ended.
*/
package observability
