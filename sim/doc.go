// Package sim provides the core tick-based simulation engine for packet
// traffic flowing through a small topology (gateway → load balancer →
// servers → database).
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - store.go: fixed-capacity packet pool in structure-of-arrays layout
//   - node.go: topology nodes and per-arrival routing decisions
//   - simulator.go: the Tick loop (drain waves, integrate, route, tally)
//
// # Architecture
//
// A Simulation owns all mutable state: the entity Store, the node table, the
// wave Scheduler and the Stats counters. Tick(deltaMs) is the only method
// that advances state and it runs to completion synchronously; the caller
// (one invocation per animation frame, or the CLI run loop) is responsible
// for pacing and for serializing calls.
//
// Stage configuration lives in the stage sub-package; the boundary adapter
// in boundary.go is the only place where packet kinds and node roles are
// encoded to and from their external integer/byte forms.
package sim
