package recon

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IdleFellow/stripedrecon/cmn"
	"github.com/IdleFellow/stripedrecon/cmn/nlog"
	"github.com/IdleFellow/stripedrecon/codec"
	"github.com/IdleFellow/stripedrecon/geometry"
	"github.com/IdleFellow/stripedrecon/peer"
	"github.com/IdleFellow/stripedrecon/wire"
	"github.com/IdleFellow/stripedrecon/wpool"
)

// Deps bundles the task's network-facing and pool collaborators, wired by
// the Worker at construction time (section 4.2, "owns the ... Striped
// Readers, the Target Channels, the decoder").
type Deps struct {
	OpenReader     peer.OpenReaderFunc
	OpenTarget     peer.OpenTargetFunc
	Tokens         peer.TokenSource
	DecoderFactory codec.Factory
	ReaderPool     *wpool.Pool
	Report         ReportSink
	Metrics        *Metrics
	Config         Config
}

// Task is one Reconstruction Task (section 4.2): the block group, the
// policy, the live Striped Readers and Target Channels it owns, the
// decoder, the shared checksum configuration, and the window cursor.
// Not re-entrant: one goroutine drives Run to completion.
type Task struct {
	ID     string
	group  geometry.Group
	policy geometry.Policy
	deps   Deps

	sources []LiveSource
	readers []*peer.StripedReader

	targets       []*peer.Target
	targetByIndex map[int]*peer.Target

	zeroStripeIndices []int

	decoder     codec.Decoder
	checksum    cmn.ChecksumDescriptor
	bufSize     int64 // B, computed lazily from the first successful reader
	minRequired int

	posInBlock      int64
	maxTargetLength int64

	successList []int // reader indices, carried across windows (stickiness)

	corrupt []CorruptBlock // this-iteration corruption report

	eg    *errgroup.Group // tracks every submitted read job so closeAll can wait out stragglers
	egCtx context.Context

	targetBufs   map[int][]byte
	zeroBufCache []byte
	curOutLen    map[int]int64
}

// NewTask validates the command's sources and targets (section 3
// invariants) and builds an initialized, not-yet-run Task. Returns
// cmn.ErrNoValidTargets when every missing index has zero length (section
// 4.2.1 step 3) — callers should drop the order with a warning rather than
// enqueue it.
func NewTask(id string, group geometry.Group, policy geometry.Policy, sources []LiveSource, targetSpecs []TargetSpec, deps Deps) (*Task, error) {
	minRequired := geometry.MinRequiredSources(group, policy)

	seen := make(map[int]bool, len(sources))
	for _, s := range sources {
		if seen[s.Index] {
			return nil, cmn.ErrInvalidSources
		}
		seen[s.Index] = true
	}
	if len(sources) < minRequired {
		return nil, cmn.ErrInvalidSources
	}
	if len(targetSpecs) > policy.Parity {
		return nil, cmn.ErrInvalidTargets
	}
	for _, ts := range targetSpecs {
		if seen[ts.Index] {
			return nil, cmn.ErrInvalidTargets
		}
	}

	t := &Task{
		ID:            id,
		group:         group,
		policy:        policy,
		deps:          deps,
		sources:       sources,
		minRequired:   minRequired,
		targetByIndex: make(map[int]*peer.Target),
	}

	t.readers = make([]*peer.StripedReader, len(sources))
	for j, s := range sources {
		t.readers[j] = &peer.StripedReader{Index: s.Index, Peer: s.Peer}
	}

	for _, ts := range targetSpecs {
		length := geometry.InternalBlockLength(group, policy, ts.Index)
		if length <= 0 {
			continue
		}
		tgt := peer.NewTarget(ts.Index, ts.Peer, ts.StorageClass)
		t.targets = append(t.targets, tgt)
		t.targetByIndex[ts.Index] = tgt
		if length > t.maxTargetLength {
			t.maxTargetLength = length
		}
	}
	if len(t.targets) == 0 {
		return nil, cmn.ErrNoValidTargets
	}

	for i := 0; i < policy.Width(); i++ {
		if geometry.IsZeroStripe(group, policy, i) {
			t.zeroStripeIndices = append(t.zeroStripeIndices, i)
		}
	}

	return t, nil
}

// Run drives the task end to end (section 4.2.2): seed the initial
// success_list, loop windows until every target's output has been
// produced, send terminators, and release every owned resource on every
// exit path.
func (t *Task) Run(ctx context.Context) error {
	t.deps.Metrics.TransmitsInProgress.Inc()
	start := timeNow()
	outcome := "success"
	defer func() {
		t.deps.Metrics.TransmitsInProgress.Dec()
		t.deps.Metrics.TaskDuration.Observe(time.Since(start).Seconds())
		t.deps.Metrics.TasksTotal.WithLabelValues(outcome).Inc()
		t.closeAll()
	}()

	if err := t.seed(ctx); err != nil {
		outcome = "insufficient-sources"
		return err
	}
	t.openTargets()

	for t.posInBlock < t.maxTargetLength {
		select {
		case <-ctx.Done():
			outcome = "interrupted"
			return cmn.ErrInterrupted
		default:
		}

		window := t.bufSize
		if remain := t.maxTargetLength - t.posInBlock; remain < window {
			window = remain
		}

		success, err := t.readWindow(ctx, window)
		t.flushCorruption(ctx)
		if err != nil {
			outcome = "insufficient-sources"
			return err
		}
		t.successList = success

		if err := t.decodeWindow(window); err != nil {
			outcome = "decode-fault"
			return err
		}
		if err := t.transferWindow(window); err != nil {
			outcome = "all-targets-dead"
			return err
		}
		t.posInBlock += window
	}

	t.sendTerminators()
	return nil
}

// openTargets dials every target's write-block handshake now that the
// task's checksum descriptor is known (learned from the first successful
// reader during seed). A target whose handshake fails is marked dead
// immediately rather than left half-open; the task proceeds with whatever
// targets succeeded and fails only if none remain alive.
func (t *Task) openTargets() {
	for _, tgt := range t.targets {
		if err := tgt.Open(t.deps.OpenTarget, geometry.ConstructInternalBlock(t.group, tgt.Index), t.checksum, t.deps.Tokens); err != nil {
			nlog.Warningln("task", t.ID, "target open failed, peer", tgt.Peer, "err", err)
			tgt.MarkDead()
		}
	}
}

func (t *Task) closeAll() {
	t.closeNetwork()
	if t.eg != nil {
		_ = t.eg.Wait()
	}
}

// closeNetwork closes every owned reader and target channel immediately,
// unblocking any in-flight socket read or write. Called both from
// closeAll on Run's own exit path and directly by Worker.Shutdown for
// tasks still in flight when the node shuts down (section 5: "cancel
// in-flight reader futures; close sockets").
func (t *Task) closeNetwork() {
	for _, r := range t.readers {
		r.Close()
	}
	for _, tgt := range t.targets {
		tgt.Close()
	}
}

func (t *Task) flushCorruption(ctx context.Context) {
	if len(t.corrupt) == 0 {
		return
	}
	t.deps.Metrics.CorruptionReports.Add(float64(len(t.corrupt)))
	if err := t.deps.Report.ReportCorruption(ctx, t.corrupt); err != nil {
		nlog.Warningln("task", t.ID, "corruption report failed", err)
	}
	t.corrupt = t.corrupt[:0]
}

func (t *Task) sendTerminators() {
	for _, tgt := range t.targets {
		if !tgt.Alive() {
			continue
		}
		pkt := wire.Terminator(tgt.BlockOffset, tgt.SeqNo)
		if err := tgt.Send(pkt); err != nil {
			nlog.Warningln("task", t.ID, "terminator send failed, peer", tgt.Peer, "err", err)
		}
	}
}

// timeNow exists so Run doesn't call time.Now() directly at more than one
// call site, keeping task duration measurement in one place.
func timeNow() time.Time { return time.Now() }
