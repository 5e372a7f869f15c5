package recon

import (
	"context"

	"github.com/IdleFellow/stripedrecon/cmn/nlog"
	"github.com/IdleFellow/stripedrecon/geometry"
)

// CorruptBlock is one (block, peer) pair a read flagged as checksum-corrupt
// this iteration, per section 4.2.3.
type CorruptBlock struct {
	Block geometry.BlockID
	Peer  string
}

// ReportSink models the cluster controller's corruption-reporting channel
// as a narrow interface: the controller RPC itself is out of scope
// (section 1), but the engine still needs somewhere to flush the report
// section 4.2.3 requires "at iteration end, regardless of task success".
type ReportSink interface {
	ReportCorruption(ctx context.Context, blocks []CorruptBlock) error
}

// NoopReportSink discards corruption reports; useful for tests and for a
// worker constructed before the controller channel is wired.
type NoopReportSink struct{}

func (NoopReportSink) ReportCorruption(context.Context, []CorruptBlock) error { return nil }

// LoggingReportSink logs each flushed report at WARN instead of actually
// reaching a controller, per section 6's observability surface ("WARN:
// per-block task failures").
type LoggingReportSink struct{}

func (LoggingReportSink) ReportCorruption(_ context.Context, blocks []CorruptBlock) error {
	for _, b := range blocks {
		nlog.Warningln("corrupt block", b.Block.String(), "at peer", b.Peer)
	}
	return nil
}
