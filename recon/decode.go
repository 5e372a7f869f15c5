package recon

import (
	"github.com/IdleFellow/stripedrecon/cmn"
	"github.com/IdleFellow/stripedrecon/geometry"
)

// decodeWindow assembles the D+P-wide input array for this window and
// invokes the decoder (section 4.2.4). Known columns are the readers in
// the current success_list (zero-padded on the right past each one's
// actual slice length) and the zero-stripe columns; every other column —
// the active targets, plus any live-source spare not chosen this
// window — is passed to the decoder as erased, since reed-solomon decode
// correctness requires exactly D known columns and needs every other
// column nil regardless of whether the engine cares about its output.
func (t *Task) decodeWindow(window int64) error {
	if t.decoder == nil {
		dec, err := t.deps.DecoderFactory(t.policy.Data, t.policy.Parity)
		if err != nil {
			return cmn.Wrap(err, "construct decoder")
		}
		t.decoder = dec
	}

	width := t.policy.Width()
	shards := make([][]byte, width)
	known := make([]bool, width)

	zero := t.zeroBuf(window)
	for _, i := range t.zeroStripeIndices {
		known[i] = true
		shards[i] = zero
	}

	for _, j := range t.successList {
		idx := t.sources[j].Index
		l := t.sliceLen(idx, window)
		buf := t.readers[j].Buf[:window]
		for k := l; k < window; k++ {
			buf[k] = 0
		}
		known[idx] = true
		shards[idx] = buf
	}

	erased := make([]int, 0, t.policy.Parity)
	for i := 0; i < width; i++ {
		if known[i] {
			continue
		}
		erased = append(erased, i)
		if _, ok := t.targetByIndex[i]; ok {
			shards[i] = t.targetBuf(i, window)
		} else {
			shards[i] = make([]byte, window) // spare source unused this window, discarded
		}
	}

	if err := t.decoder.Decode(shards, erased); err != nil {
		return cmn.Wrap(err, "decode window")
	}

	t.curOutLen = make(map[int]int64, len(t.targets))
	for i := range t.targetByIndex {
		remain := geometry.InternalBlockLength(t.group, t.policy, i) - t.posInBlock
		if remain < 0 {
			remain = 0
		}
		outLen := window
		if remain < outLen {
			outLen = remain
		}
		t.curOutLen[i] = outLen
	}
	return nil
}

// zeroBuf returns a shared, never-mutated all-zeros buffer of at least
// length n, growing it lazily. Safe to share across every zero-stripe
// column in the same window: the decoder only reads from known shards, it
// never writes into them.
func (t *Task) zeroBuf(n int64) []byte {
	if int64(len(t.zeroBufCache)) < n {
		t.zeroBufCache = make([]byte, n)
	}
	return t.zeroBufCache[:n]
}

// targetBuf returns the reusable output buffer for target index i, sized
// to at least n, allocated once per task.
func (t *Task) targetBuf(i int, n int64) []byte {
	if t.targetBufs == nil {
		t.targetBufs = make(map[int][]byte, len(t.targets))
	}
	buf, ok := t.targetBufs[i]
	if !ok {
		buf = make([]byte, t.bufSize)
		t.targetBufs[i] = buf
	}
	return buf[:n]
}
