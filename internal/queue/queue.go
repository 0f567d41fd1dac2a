package queue

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/blueprint-parser/internal/blueprint"
)

// ErrClosed is the failure recorded on jobs submitted after Close.
var ErrClosed = errors.New("queue closed")

// Executor runs one validated request.
type Executor interface {
	Execute(req blueprint.Request) (blueprint.Output, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(req blueprint.Request) (blueprint.Output, error)

// Execute calls f(req).
func (f ExecutorFunc) Execute(req blueprint.Request) (blueprint.Output, error) {
	return f(req)
}

// Stats is a snapshot of queue counters.
type Stats struct {
	Pending   int    `json:"pending"`
	Started   uint64 `json:"started"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
	Rejected  uint64 `json:"rejected"`
}

// Queue is a FIFO of jobs with many producers and a single consumer.
type Queue struct {
	exec Executor
	log  zerolog.Logger

	mu     sync.Mutex
	jobs   []*Job
	closed bool

	// wake holds at most one pending signal for the consumer.
	wake chan struct{}

	draining  atomic.Bool
	started   atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	rejected  atomic.Uint64
}

// New returns an empty queue that runs jobs with exec.
func New(exec Executor, logger zerolog.Logger) *Queue {
	return &Queue{
		exec: exec,
		log:  logger.With().Str("component", "queue").Logger(),
		wake: make(chan struct{}, 1),
	}
}

// Submit validates req and enqueues it. It never blocks on job execution.
//
// Parameters:
//   - req: The image and pipeline parameters for one parse
//
// Returns:
//   - *Job: A handle for awaiting the result, never nil
//
// # Errors
//
// Submit itself does not fail. An invalid request yields a job that is already
// Failed with an *blueprint.InvalidParameterError. After Close, the job fails
// with ErrClosed.
func (q *Queue) Submit(req blueprint.Request) *Job {
	if err := req.Validate(); err != nil {
		q.rejected.Add(1)
		q.log.Debug().Err(err).Msg("request rejected")
		return rejectedJob(req, err)
	}

	job := newJob(req)
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.rejected.Add(1)
		return rejectedJob(req, ErrClosed)
	}
	q.jobs = append(q.jobs, job)
	depth := len(q.jobs)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}

	q.log.Debug().Str("job_id", job.ID()).Int("depth", depth).Msg("job queued")
	return job
}

// Wake returns a channel that receives a value after Submit queues work.
// Signals coalesce, so the consumer should drain fully on each receive.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}

// Close stops the queue from accepting new jobs. Jobs already queued are
// still run by subsequent Drain calls.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// Len returns the number of jobs waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Started returns how many jobs have begun executing. The counter increases
// by one at the start of every job.
func (q *Queue) Started() uint64 {
	return q.started.Load()
}

// Stats returns a snapshot of the queue counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Pending:   q.Len(),
		Started:   q.started.Load(),
		Completed: q.completed.Load(),
		Failed:    q.failed.Load(),
		Rejected:  q.rejected.Load(),
	}
}

// Drain runs queued jobs one by one until the queue is empty and returns how
// many it ran. Jobs submitted while Drain is running are picked up by the
// same call.
//
// Drain must only be called from the single consumer goroutine. An
// overlapping call is refused and returns 0 instead of running jobs in
// parallel.
func (q *Queue) Drain() int {
	if !q.draining.CompareAndSwap(false, true) {
		q.log.Error().Msg("concurrent drain refused")
		return 0
	}
	defer q.draining.Store(false)

	n := 0
	for {
		job := q.pop()
		if job == nil {
			return n
		}
		q.run(job)
		n++
	}
}

func (q *Queue) pop() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return nil
	}
	job := q.jobs[0]
	q.jobs[0] = nil
	q.jobs = q.jobs[1:]
	return job
}

func (q *Queue) run(job *Job) {
	seq := q.started.Add(1)
	if !job.start(seq) {
		q.log.Error().Str("job_id", job.ID()).Stringer("state", job.State()).Msg("skipping job that is not pending")
		return
	}

	begin := time.Now()
	out, err := q.execute(job)

	var res blueprint.Result
	if err != nil {
		res = blueprint.Failure(&blueprint.ProcessingFailure{JobID: job.ID(), Cause: err})
	} else {
		res = blueprint.Success(out)
	}

	// Counters move before the result is published so a caller returning
	// from Await sees them.
	if res.OK() {
		q.completed.Add(1)
	} else {
		q.failed.Add(1)
	}
	state := job.finish(res)
	elapsed := time.Since(begin)
	if state == Failed {
		q.log.Warn().Str("job_id", job.ID()).Uint64("seq", seq).Dur("elapsed", elapsed).Err(err).Msg("job failed")
		return
	}
	q.log.Info().Str("job_id", job.ID()).Uint64("seq", seq).Dur("elapsed", elapsed).
		Dur("waited", begin.Sub(job.Submitted())).Msg("job completed")
}

// execute runs the executor and converts a panic into an error.
func (q *Queue) execute(job *Job) (out blueprint.Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &blueprint.PanicError{Value: r}
		}
	}()

	out, err = q.exec.Execute(job.Request())
	if err == nil && out.Mask == nil {
		err = fmt.Errorf("executor returned no mask")
	}
	return out, err
}
