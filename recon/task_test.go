package recon

import (
	"testing"

	"github.com/IdleFellow/stripedrecon/cmn"
	"github.com/IdleFellow/stripedrecon/geometry"
)

func testDeps() Deps {
	return Deps{
		Report:  NoopReportSink{},
		Metrics: NewTestMetrics(),
		Config:  DefaultConfig(),
	}
}

func TestNewTaskRejectsDuplicateSourceIndices(t *testing.T) {
	group := geometry.Group{PoolID: "p", BlockID: "b", Length: 100}
	policy := geometry.Policy{Data: 3, Parity: 2, CellSize: 16}
	sources := []LiveSource{{Index: 0, Peer: "a"}, {Index: 0, Peer: "b"}, {Index: 1, Peer: "c"}}
	targets := []TargetSpec{{Index: 2, Peer: "t"}}

	_, err := NewTask("t1", group, policy, sources, targets, testDeps())
	if err != cmn.ErrInvalidSources {
		t.Fatalf("expected ErrInvalidSources, got %v", err)
	}
}

func TestNewTaskRejectsTooFewSources(t *testing.T) {
	group := geometry.Group{PoolID: "p", BlockID: "b", Length: 100}
	policy := geometry.Policy{Data: 3, Parity: 2, CellSize: 16}
	sources := []LiveSource{{Index: 0, Peer: "a"}}
	targets := []TargetSpec{{Index: 2, Peer: "t"}}

	_, err := NewTask("t1", group, policy, sources, targets, testDeps())
	if err != cmn.ErrInvalidSources {
		t.Fatalf("expected ErrInvalidSources, got %v", err)
	}
}

func TestNewTaskRejectsTooManyTargets(t *testing.T) {
	group := geometry.Group{PoolID: "p", BlockID: "b", Length: 100}
	policy := geometry.Policy{Data: 2, Parity: 1, CellSize: 16}
	sources := []LiveSource{{Index: 0, Peer: "a"}, {Index: 1, Peer: "b"}}
	targets := []TargetSpec{{Index: 2, Peer: "t1"}, {Index: 3, Peer: "t2"}}

	_, err := NewTask("t1", group, policy, sources, targets, testDeps())
	if err != cmn.ErrInvalidTargets {
		t.Fatalf("expected ErrInvalidTargets, got %v", err)
	}
}

func TestNewTaskNoValidTargetsWhenAllZeroLength(t *testing.T) {
	// L=0: every internal block, including the requested target, has
	// zero length (boundary scenario 3).
	group := geometry.Group{PoolID: "p", BlockID: "b", Length: 0}
	policy := geometry.Policy{Data: 3, Parity: 2, CellSize: 16}
	sources := []LiveSource{{Index: 0, Peer: "a"}, {Index: 1, Peer: "b"}, {Index: 2, Peer: "c"}}
	targets := []TargetSpec{{Index: 3, Peer: "t"}}

	_, err := NewTask("t1", group, policy, sources, targets, testDeps())
	if err != cmn.ErrNoValidTargets {
		t.Fatalf("expected ErrNoValidTargets, got %v", err)
	}
}

func TestNewTaskZeroStripeClassification(t *testing.T) {
	// D=6, P=3, C=1MiB, L=8MiB: cells_in_group=8 covers every data column,
	// so there should be no zero-stripe columns at all (boundary scenario 1).
	group := geometry.Group{PoolID: "p", BlockID: "b", Length: 8 * 1024 * 1024}
	policy := geometry.Policy{Data: 6, Parity: 3, CellSize: 1024 * 1024}
	sources := make([]LiveSource, 0, 8)
	for _, i := range []int{0, 1, 3, 4, 5, 6, 7, 8} {
		sources = append(sources, LiveSource{Index: i, Peer: "peer"})
	}
	targets := []TargetSpec{{Index: 2, Peer: "t"}}

	task, err := NewTask("t1", group, policy, sources, targets, testDeps())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(task.zeroStripeIndices) != 0 {
		t.Fatalf("expected no zero-stripe columns, got %v", task.zeroStripeIndices)
	}
	if task.minRequired != 6 {
		t.Fatalf("expected min_required_sources=6, got %d", task.minRequired)
	}
	if task.maxTargetLength != geometry.InternalBlockLength(group, policy, 2) {
		t.Fatalf("maxTargetLength mismatch: got %d want %d", task.maxTargetLength, geometry.InternalBlockLength(group, policy, 2))
	}
}
