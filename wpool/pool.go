// Package wpool implements a bounded goroutine pool with a core/max size,
// idle eviction, and a pluggable queue discipline. It generalizes the
// channel-plus-atomic-counter concurrency idiom the teacher uses in
// xact/xs/tcobjs.go (a work channel, a "channel full" counter, a
// runtime.Gosched throttle) into the Task Pool / Reader Pool of section
// 4.1: one instance with an unbounded queue for whole reconstruction
// tasks, another with a direct-handoff queue and caller-runs rejection
// for per-peer slice reads.
package wpool

import (
	"context"
	"runtime"
	"time"

	"github.com/IdleFellow/stripedrecon/cmn"
	"github.com/IdleFellow/stripedrecon/cmn/nlog"
)

// Queue selects the submission discipline.
type Queue int

const (
	// Unbounded queues every submitted job; workers drain it in order.
	// This is the Task Pool's "unbounded FIFO queue" of section 4.1.
	Unbounded Queue = iota
	// DirectHandoff hands a submission straight to an idle worker with
	// no buffering; if none is idle, submission fails immediately and
	// the configured Rejection policy decides what happens next. This is
	// the Reader Pool's "direct-handoff queue" of section 4.1.
	DirectHandoff
)

// Rejection selects what happens when DirectHandoff finds no idle worker.
type Rejection int

const (
	// CallerRuns executes the job synchronously on the submitting
	// goroutine — back-pressure, not loss (section 4.1, section 5).
	CallerRuns Rejection = iota
)

// Config configures one Pool.
type Config struct {
	Core       int           // always-running workers
	Max        int           // ceiling on concurrently running workers
	IdleEvict  time.Duration // idle workers beyond Core exit after this
	Queue      Queue
	Rejection  Rejection
	Name       string // used only in log lines
}

// Job is one unit of work submitted to a Pool.
type Job func(ctx context.Context)

// Pool is a bounded worker pool matching Config's discipline.
type Pool struct {
	cfg     Config
	jobs    chan Job    // Unbounded: a fixed 4096-slot buffer; DirectHandoff: unbuffered
	running cmn.Int64
	done    chan struct{}
}

// New constructs and starts a Pool per cfg. Core workers start eagerly
// (an Unbounded pool always gets at least one). A DirectHandoff pool
// spawns additional workers up to Max on demand and evicts them after
// IdleEvict of inactivity; an Unbounded pool runs only its Core workers
// and does not use Max.
func New(cfg Config) *Pool {
	if cfg.Core < 1 && cfg.Queue != DirectHandoff {
		cfg.Core = 1
	}
	if cfg.Max < cfg.Core {
		cfg.Max = cfg.Core
	}
	if cfg.IdleEvict <= 0 {
		cfg.IdleEvict = 60 * time.Second
	}

	p := &Pool{cfg: cfg, done: make(chan struct{})}
	switch cfg.Queue {
	case DirectHandoff:
		p.jobs = make(chan Job) // unbuffered: a send only succeeds if a worker is ready
	default:
		p.jobs = make(chan Job, 4096) // large, not literally unbounded, but never rejects in practice
	}

	for i := 0; i < cfg.Core; i++ {
		p.spawn(true)
	}
	return p
}

func (p *Pool) spawn(core bool) {
	p.running.Inc()
	go func() {
		defer p.running.Dec()
		idle := time.NewTimer(p.cfg.IdleEvict)
		defer idle.Stop()
		for {
			select {
			case job, ok := <-p.jobs:
				if !ok {
					return
				}
				if !idle.Stop() {
					select {
					case <-idle.C:
					default:
					}
				}
				job(context.Background())
				idle.Reset(p.cfg.IdleEvict)
			case <-idle.C:
				if !core {
					return
				}
				idle.Reset(p.cfg.IdleEvict)
			case <-p.done:
				return
			}
		}
	}()
}

// Submit enqueues job. For an Unbounded pool this always succeeds,
// blocking only while the 4096-slot buffer is full. For a DirectHandoff pool, if no worker is immediately
// ready and fewer than Max workers are running, a fresh worker is spawned
// to take it; if Max is already reached, the job runs on the caller's own
// goroutine per the CallerRuns rejection policy (section 4.1, section 5).
func (p *Pool) Submit(job Job) {
	switch p.cfg.Queue {
	case DirectHandoff:
		select {
		case p.jobs <- job:
			return
		default:
		}
		if p.running.Load() < int64(p.cfg.Max) {
			p.spawn(false)
			select {
			case p.jobs <- job:
				return
			case <-p.done:
			}
		}
		if nlog.V(4) {
			nlog.Infoln("pool saturated, running inline", p.cfg.Name)
		}
		job(context.Background())
	default:
		select {
		case p.jobs <- job:
		default:
			// buffer momentarily full: never drop a task-pool
			// submission, just yield, then block until a slot frees
			// (poor man's throttle, grounded on tcobjs.go's
			// runtime.Gosched()).
			runtime.Gosched()
			p.jobs <- job
		}
	}
}

// Shutdown tells every worker to exit once its current job returns, and
// does not wait for them (best-effort, matching section 4.1's "not
// specified to wait-for-completion"). Jobs still queued may not run, and
// later submissions are not rejected: a DirectHandoff pool runs them on
// the caller's goroutine, an Unbounded pool queues them.
func (p *Pool) Shutdown() {
	close(p.done)
}

// Running returns the current worker count, for diagnostics/tests.
func (p *Pool) Running() int64 { return p.running.Load() }
