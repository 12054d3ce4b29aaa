// Package process executes composed external commands under an
// invocation policy (timeout, terminal attachment, output capture,
// failure tolerance).
//
// All external processes spawned by devstack go through the Runner
// interface. Production code uses Exec; tests use Recorder, which
// records invocations and returns scripted results without spawning
// anything.
package process
