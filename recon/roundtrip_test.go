package recon

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/klauspost/reedsolomon"

	"github.com/IdleFellow/stripedrecon/cmn"
	"github.com/IdleFellow/stripedrecon/codec"
	"github.com/IdleFellow/stripedrecon/geometry"
	"github.com/IdleFellow/stripedrecon/peer"
	"github.com/IdleFellow/stripedrecon/wire"
	"github.com/IdleFellow/stripedrecon/wpool"
)

// fakeSourceData is one column's immutable bytes, registered under the
// peer address used as its "address" in the test.
type fakeSourceData struct {
	data     []byte
	checksum cmn.ChecksumDescriptor
}

type fakeReader struct {
	data []byte
	desc cmn.ChecksumDescriptor
	pos  int64
}

func (r *fakeReader) ReadSlice(_ context.Context, p []byte) (int, error) {
	if r.pos+int64(len(p)) > int64(len(r.data)) {
		return 0, io.ErrUnexpectedEOF
	}
	n := copy(p, r.data[r.pos:r.pos+int64(len(p))])
	r.pos += int64(n)
	return n, nil
}

func (r *fakeReader) Checksum() cmn.ChecksumDescriptor { return r.desc }
func (r *fakeReader) Close() error                     { return nil }

type fakeTarget struct {
	mu      sync.Mutex
	packets []wire.DataPacket
}

func (f *fakeTarget) Send(pkt wire.DataPacket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.packets = append(f.packets, pkt)
	return nil
}

func (f *fakeTarget) Close() error { return nil }

// buildFakeNetwork wires in-process OpenReaderFunc/OpenTargetFunc closures
// around the given source registry and a fresh fakeTarget per target peer,
// per the "synthetic in-process codec and peers" round-trip test of
// section 8.
func buildFakeNetwork(sources map[string]fakeSourceData) (peer.OpenReaderFunc, peer.OpenTargetFunc, map[string]*fakeTarget) {
	targets := make(map[string]*fakeTarget)
	var mu sync.Mutex

	openReader := func(_ context.Context, _ geometry.BlockID, peerAddr string, startOffset int64, _ peer.TokenSource) (peer.RemoteBlockReader, error) {
		src, ok := sources[peerAddr]
		if !ok {
			return nil, fmt.Errorf("no such source peer %s", peerAddr)
		}
		return &fakeReader{data: src.data, desc: src.checksum, pos: startOffset}, nil
	}

	openTarget := func(_ geometry.BlockID, peerAddr, _ string, _ cmn.ChecksumDescriptor, _ peer.TokenSource) (peer.TargetChannel, error) {
		mu.Lock()
		defer mu.Unlock()
		tgt := &fakeTarget{}
		targets[peerAddr] = tgt
		return tgt, nil
	}

	return openReader, openTarget, targets
}

// TestRoundTripUnevenTail builds a D=3,P=2,C=4,L=13 group (boundary-style
// uneven tail: the last stripe row is partial), encodes it with the real
// reed-solomon codec, drops data column 1, and checks that running a Task
// against synthetic in-process peers reconstructs column 1 byte-for-byte
// (section 8 "Round-trip" property), with correct packet framing
// (section 8 "Packet framing" property).
func TestRoundTripUnevenTail(t *testing.T) {
	const (
		d = 3
		p = 2
		c = int64(4)
		l = int64(13)
	)
	policy := geometry.Policy{Data: d, Parity: p, CellSize: c}
	group := geometry.Group{PoolID: "pool", BlockID: "blk", Gen: 1, Length: l}

	original := make([]byte, l)
	for i := range original {
		original[i] = byte(i + 1)
	}

	// Assemble each data column's real (unpadded) bytes by round-robin
	// C-byte cells, matching geometry.InternalBlockLength's layout.
	dataCols := make([][]byte, d)
	for off := int64(0); off < l; off += c {
		col := int((off / c) % d)
		end := off + c
		if end > l {
			end = l
		}
		dataCols[col] = append(dataCols[col], original[off:end]...)
	}
	for i, col := range dataCols {
		want := geometry.InternalBlockLength(group, policy, i)
		if int64(len(col)) != want {
			t.Fatalf("column %d: built %d bytes, geometry wants %d", i, len(col), want)
		}
	}

	// Parity columns always span whole rows; zero-pad each data column out
	// to the parity row length before encoding.
	parityLen := geometry.InternalBlockLength(group, policy, d)
	shards := make([][]byte, d+p)
	for i := 0; i < d; i++ {
		shards[i] = make([]byte, parityLen)
		copy(shards[i], dataCols[i])
	}
	for i := d; i < d+p; i++ {
		shards[i] = make([]byte, parityLen)
	}
	enc, err := reedsolomon.New(d, p)
	if err != nil {
		t.Fatalf("construct encoder: %v", err)
	}
	if err := enc.Encode(shards); err != nil {
		t.Fatalf("encode: %v", err)
	}

	checksum := cmn.ChecksumDescriptor{BytesPerChecksum: 2, ChecksumSize: cmn.ChecksumSize, Algo: cmn.AlgoXXHash32}

	const missing = 1
	sourceReg := make(map[string]fakeSourceData)
	var liveSources []LiveSource
	for i := 0; i < d+p; i++ {
		if i == missing {
			continue
		}
		addr := fmt.Sprintf("src-%d", i)
		length := geometry.InternalBlockLength(group, policy, i)
		sourceReg[addr] = fakeSourceData{data: shards[i][:length], checksum: checksum}
		liveSources = append(liveSources, LiveSource{Index: i, Peer: addr})
	}

	openReader, openTarget, fakeTargets := buildFakeNetwork(sourceReg)
	targetSpecs := []TargetSpec{{Index: missing, Peer: "tgt-1", StorageClass: "default"}}

	cfg := DefaultConfig()
	cfg.BufferSize = 2 // forces multiple windows against a 4-byte target

	deps := Deps{
		OpenReader:     openReader,
		OpenTarget:     openTarget,
		Tokens:         peer.StaticTokenSource{},
		DecoderFactory: codec.NewReedSolomon,
		ReaderPool:     wpool.New(wpool.Config{Core: 1, Max: 4, Queue: wpool.Unbounded, Name: "test-reader"}),
		Report:         NoopReportSink{},
		Metrics:        NewTestMetrics(),
		Config:         cfg,
	}

	task, err := NewTask("roundtrip", group, policy, liveSources, targetSpecs, deps)
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}
	if err := task.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	tgt := fakeTargets["tgt-1"]
	if tgt == nil {
		t.Fatalf("target channel was never opened")
	}

	var got []byte
	var offset int64
	for i, pkt := range tgt.packets {
		if pkt.Header.SeqNo != int64(i) {
			t.Fatalf("packet %d: seq_no=%d, want %d", i, pkt.Header.SeqNo, i)
		}
		if pkt.Header.BlockOffset != offset {
			t.Fatalf("packet %d: block_offset=%d, want %d", i, pkt.Header.BlockOffset, offset)
		}
		if i == len(tgt.packets)-1 {
			if !pkt.Header.IsLast || pkt.Header.DataLen != 0 {
				t.Fatalf("last packet must be an empty terminator, got is_last=%v data_len=%d", pkt.Header.IsLast, pkt.Header.DataLen)
			}
			break
		}
		got = append(got, pkt.Data...)
		offset += int64(pkt.Header.DataLen)
	}

	want := dataCols[missing]
	if string(got) != string(want) {
		t.Fatalf("reconstructed column %d mismatch: got %v want %v", missing, got, want)
	}
}
