// Package queue implements the job lifecycle and the polling loop.
//
// Overview
//
// The Watcher lists the queue directory for *.yaml descriptors and processes
// them strictly sequentially, one Job per descriptor. Constructing a Job
// claims the descriptor by renaming it to <job_id>.tmp - the rename is the
// mutual exclusion primitive, there are no lock files. The claimed file is
// the job's durable record: on success it is renamed to
// <output notebook stem>.job, on any failure it stays under its claimed
// name for operator inspection. Failed jobs are never retried.
//
// One job's lifecycle:
//
//	CREATED -> CLAIMED -> VALIDATED -> EXECUTING -> {SUCCEEDED, FAILED} -> ARCHIVED
//
// Control flow:
//
//	Watcher                 Job                     Engine (papermill)
//	   |                     |                          |
//	 sweep -> NewJob ------->| claim + parse + validate |
//	   |      Run() -------->| Execute() -------------->| subprocess
//	   |                     |<----- artifact ----------|
//	   |                     | FindingsDetector.Inspect |
//	   |<---- done ----------| rename to .job marker    |
//
// Invariants:
//   - Exactly one watcher per queue directory; the design is not safe for
//     multiple concurrent watchers.
//   - Jobs within one sweep run strictly sequentially; one job fully
//     reaches a terminal state before the next begins.
//   - A failure of one job never aborts the sweep; an interrupt aborts the
//     remainder of the sweep but not the watcher.
package queue
