// Package parallel implements the fanout execution harness.
//
// It provides:
//   - Strategy: the execution back-end contract, with ThreadPool (goroutines
//     sharing memory) and ProcessPool (isolated child processes)
//   - Dispatcher: binds tasks, a workload and a strategy, keeps results in
//     input order and produces a Report
//   - Spawn and SpawnProcesses: fire-and-forget launching with no collection
//   - ServeChild: the child side of ProcessPool and SpawnProcesses
//
// Results are always positional: results[i] belongs to tasks[i], whichever
// worker ran it and whenever it finished. A run is all-or-nothing; the first
// failing task aborts it and no partial results are returned.
package parallel
