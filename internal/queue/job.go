package queue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/blueprint-parser/internal/blueprint"
)

// ErrAlreadyAwaited is returned by Await on every call after the first.
var ErrAlreadyAwaited = errors.New("job result already awaited")

// State is a job's position in its lifecycle.
type State int32

const (
	Pending State = iota
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminal reports whether s is Completed or Failed.
func (s State) Terminal() bool {
	return s == Completed || s == Failed
}

// Job is one queued request and its one-shot completion channel.
type Job struct {
	id        uuid.UUID
	request   blueprint.Request
	submitted time.Time

	state    atomic.Int32
	sequence atomic.Uint64
	awaited  atomic.Bool

	// done has capacity one and receives exactly one Result.
	done chan blueprint.Result
}

func newJob(req blueprint.Request) *Job {
	return &Job{
		id:        uuid.New(),
		request:   req,
		submitted: time.Now(),
		done:      make(chan blueprint.Result, 1),
	}
}

// rejectedJob returns a job that failed before reaching the queue.
func rejectedJob(req blueprint.Request, err error) *Job {
	j := newJob(req)
	j.state.Store(int32(Failed))
	j.done <- blueprint.Failure(err)
	return j
}

// ID returns the job's unique identifier.
func (j *Job) ID() string { return j.id.String() }

// Request returns the request the job was submitted with.
func (j *Job) Request() blueprint.Request { return j.request }

// Submitted returns when the job was created.
func (j *Job) Submitted() time.Time { return j.submitted }

// State returns the current lifecycle state.
func (j *Job) State() State { return State(j.state.Load()) }

// Sequence returns the job's start number: 1 for the first job the queue
// started, 2 for the next and so on. It is 0 until the job starts running,
// and stays 0 for rejected jobs.
func (j *Job) Sequence() uint64 { return j.sequence.Load() }

// Await blocks until the job finishes or ctx is done.
//
// Returns:
//   - blueprint.Result: The finished job's outcome; its Output carries any
//     pipeline failure
//   - error: ErrAlreadyAwaited or ctx.Err(), never a pipeline failure
//
// Only the first call may observe the result. If ctx ends first the result is
// forfeited, but the job still runs to completion on the consumer.
func (j *Job) Await(ctx context.Context) (blueprint.Result, error) {
	if !j.awaited.CompareAndSwap(false, true) {
		return blueprint.Result{}, ErrAlreadyAwaited
	}
	select {
	case res := <-j.done:
		return res, nil
	case <-ctx.Done():
		return blueprint.Result{}, ctx.Err()
	}
}

// start moves a pending job to Running. It returns false if the job was not
// pending.
func (j *Job) start(seq uint64) bool {
	if !j.state.CompareAndSwap(int32(Pending), int32(Running)) {
		return false
	}
	j.sequence.Store(seq)
	return true
}

// finish records the terminal state and publishes res. The state is stored
// first so a caller returning from Await always observes a terminal state.
func (j *Job) finish(res blueprint.Result) State {
	to := Completed
	if !res.OK() {
		to = Failed
	}
	if !j.state.CompareAndSwap(int32(Running), int32(to)) {
		panic(fmt.Sprintf("queue: job %s finished from state %s", j.ID(), j.State()))
	}
	j.done <- res
	return to
}
