/*
Package session hosts live runs.

A Manager compiles a definition into a fresh runtime graph per run and drives
each run on its own loop goroutine. Every operation is posted to that loop, so
hosts on any goroutine (HTTP handlers, MCP tools, the CLI) can drive the engine
without breaking its single-threaded model. Operations on one run are also
serialized by a local lock and, when configured, a distributed lock, and every
status change is persisted to the snapshot store.
*/
package session
