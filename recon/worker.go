package recon

import (
	"context"
	"sync"
	"time"

	"github.com/IdleFellow/stripedrecon/cmn"
	"github.com/IdleFellow/stripedrecon/cmn/nlog"
	"github.com/IdleFellow/stripedrecon/codec"
	"github.com/IdleFellow/stripedrecon/geometry"
	"github.com/IdleFellow/stripedrecon/order"
	"github.com/IdleFellow/stripedrecon/peer"
	"github.com/IdleFellow/stripedrecon/wpool"
)

// Worker is the Reconstruction Worker service (section 4.1): it owns the
// Task Pool and the Reader Pool and admits reconstruction orders onto
// them.
type Worker struct {
	cfg     Config
	taskP   *wpool.Pool
	readerP *wpool.Pool

	openReader peer.OpenReaderFunc
	openTarget peer.OpenTargetFunc
	tokens     peer.TokenSource

	report  ReportSink
	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	active map[*Task]struct{}
}

// NewWorker builds the two pools per section 4.1 ("Task Pool: core 2, max
// configured, idle-evict 60s, unbounded queue"; "Reader Pool: core 1, max
// configured, idle-evict 60s, direct-handoff queue, caller-runs
// rejection") and wires the network adapters and observability surface.
func NewWorker(cfg Config, tokens peer.TokenSource, report ReportSink, metrics *Metrics) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		cfg: cfg,
		taskP: wpool.New(wpool.Config{
			Core:      2,
			Max:       cfg.TaskThreads,
			IdleEvict: 60 * time.Second,
			Queue:     wpool.Unbounded,
			Name:      "task-pool",
		}),
		readerP: wpool.New(wpool.Config{
			Core:      1,
			Max:       cfg.ReaderThreads,
			IdleEvict: 60 * time.Second,
			Queue:     wpool.DirectHandoff,
			Rejection: wpool.CallerRuns,
			Name:      "reader-pool",
		}),
		openReader: peer.OpenTCPReader,
		openTarget: peer.OpenTCPTarget,
		tokens:     tokens,
		report:     report,
		metrics:    metrics,
		ctx:        ctx,
		cancel:     cancel,
		active:     make(map[*Task]struct{}),
	}
}

// Submit constructs one Task per command in batch and enqueues each onto
// the Task Pool, per section 4.1. An order reporting cmn.ErrNoValidTargets
// is dropped with a warning; any other construction failure is logged and
// skipped without aborting the rest of the batch. Every task runs under
// the Worker's own cancellable context rather than a fresh background one,
// so Shutdown's cancel reaches Task.Run's ctx.Done() check between windows
// (section 5).
func (w *Worker) Submit(batch order.Batch) {
	for _, cmd := range batch.Commands {
		task, err := w.buildTask(cmd)
		if err != nil {
			if err == cmn.ErrNoValidTargets {
				nlog.Warningln("dropping order, no valid target", cmd.ExtendedBlock.BlockID)
				continue
			}
			nlog.Warningln("dropping order, construction failed", cmd.ExtendedBlock.BlockID, err)
			continue
		}
		w.mu.Lock()
		w.active[task] = struct{}{}
		w.mu.Unlock()
		w.taskP.Submit(func(context.Context) {
			defer func() {
				w.mu.Lock()
				delete(w.active, task)
				w.mu.Unlock()
			}()
			if err := task.Run(w.ctx); err != nil {
				nlog.Warningln("task", task.ID, "failed", err)
			}
		})
	}
}

func (w *Worker) buildTask(cmd order.Command) (*Task, error) {
	group := geometry.Group{
		PoolID: cmd.ExtendedBlock.PoolID,
		BlockID: cmd.ExtendedBlock.BlockID,
		Gen:    cmd.ExtendedBlock.Gen,
		Length: cmd.ExtendedBlock.Length,
	}
	policy := geometry.Policy{
		Data:     cmd.ErasureCodingPolicy.DataUnits,
		Parity:   cmd.ErasureCodingPolicy.ParityUnits,
		CellSize: cmd.ErasureCodingPolicy.CellSize,
	}

	if len(cmd.LiveBlockIndices) != len(cmd.SourcePeers) {
		return nil, cmn.ErrInvalidSources
	}
	sources := make([]LiveSource, len(cmd.LiveBlockIndices))
	for i, idx := range cmd.LiveBlockIndices {
		sources[i] = LiveSource{Index: idx, Peer: cmd.SourcePeers[i]}
	}

	if len(cmd.TargetIndices) != len(cmd.TargetPeers) || len(cmd.TargetIndices) != len(cmd.TargetStorageClasses) {
		return nil, cmn.ErrInvalidTargets
	}
	targets := make([]TargetSpec, len(cmd.TargetIndices))
	for i, idx := range cmd.TargetIndices {
		targets[i] = TargetSpec{Index: idx, Peer: cmd.TargetPeers[i], StorageClass: cmd.TargetStorageClasses[i]}
	}

	deps := Deps{
		OpenReader:     w.openReader,
		OpenTarget:     w.openTarget,
		Tokens:         w.tokens,
		DecoderFactory: codec.NewReedSolomon,
		ReaderPool:     w.readerP,
		Report:         w.report,
		Metrics:        w.metrics,
		Config:         w.cfg,
	}

	return NewTask(cmn.NewTaskID(), group, policy, sources, targets, deps)
}

// Shutdown cancels every running task's context, force-closes the reader
// and target sockets any task still in flight owns, and stops both pools.
// It returns without waiting for those tasks to actually unwind, per
// section 4.1 ("not specified to wait-for-completion (best-effort)"), but
// the cancellation and socket closes themselves are not best-effort
// (section 5: "cancel in-flight reader futures; close sockets").
func (w *Worker) Shutdown() {
	w.cancel()

	w.mu.Lock()
	for task := range w.active {
		task.closeNetwork()
	}
	w.mu.Unlock()

	w.taskP.Shutdown()
	w.readerP.Shutdown()
}
