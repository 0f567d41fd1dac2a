// Package queue serializes blueprint requests onto a single consumer.
//
// Any number of goroutines may call Queue.Submit concurrently. Exactly one
// goroutine, normally a Runner, calls Queue.Drain, which executes the queued
// jobs one at a time in submission order. Each submitter then waits on its own
// Job with Job.Await.
//
// # Job Lifecycle
//
//	Pending --Drain--> Running --ok--> Completed
//	                           \--err-> Failed
//
// A request that fails validation never enters the queue: Submit returns a
// job that is already Failed. Terminal jobs never change again.
//
// # Guarantees
//
//   - FIFO: jobs start in the order Submit accepted them.
//   - Exclusivity: no two jobs run at the same time. The consumer is the only
//     goroutine that executes jobs; the queue mutex is held only to push or
//     pop, never while a job runs.
//   - Isolation: an error or panic in one job fails that job alone; Drain
//     moves on to the next one.
//   - No cancellation: once accepted, a job always reaches a terminal state,
//     even if its submitter stops waiting.
package queue
