package recon

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/IdleFellow/stripedrecon/cmn"
	"github.com/IdleFellow/stripedrecon/geometry"
	"github.com/IdleFellow/stripedrecon/peer"
)

// sliceLen computes the per-source read length for this window: the
// internal block's remaining bytes from pos_in_block, clamped to window
// and to zero (section 4.2.3 step 1).
func (t *Task) sliceLen(index int, window int64) int64 {
	remain := geometry.InternalBlockLength(t.group, t.policy, index) - t.posInBlock
	if remain < 0 {
		remain = 0
	}
	if remain > window {
		remain = window
	}
	return remain
}

func (t *Task) ensureBuf(r *peer.StripedReader) {
	if r.Buf == nil {
		r.Buf = make([]byte, t.bufSize)
	}
}

// seed opens readers from t.sources in order until min_required_sources
// channels are open, lifting the shared checksum descriptor and computing
// bufSize (B) from the first one to succeed (section 4.2.1 step 4, section
// 3 "slice_size B").
func (t *Task) seed(ctx context.Context) error {
	t.eg, t.egCtx = errgroup.WithContext(ctx)

	for j := range t.sources {
		if len(t.successList) >= t.minRequired {
			break
		}
		r := t.readers[j]
		block := geometry.ConstructInternalBlock(t.group, t.sources[j].Index)
		if err := r.Open(ctx, t.deps.OpenReader, block, 0, t.deps.Tokens); err != nil {
			r.MarkDead()
			continue
		}
		if t.bufSize == 0 {
			desc, err := r.Checksum()
			if err != nil {
				r.MarkDead()
				continue
			}
			t.checksum = desc
			t.bufSize = computeSliceSize(t.deps.Config.BufferSize, int64(desc.BytesPerChecksum))
		}
		t.ensureBuf(r)
		t.successList = append(t.successList, j)
	}

	if len(t.successList) < t.minRequired {
		return cmn.ErrInsufficientSources
	}
	return nil
}

// computeSliceSize rounds rawB down to a multiple of chunkSize, never below
// chunkSize itself (section 3).
func computeSliceSize(rawB, chunkSize int64) int64 {
	if chunkSize <= 0 {
		return rawB
	}
	b := (rawB / chunkSize) * chunkSize
	if b < chunkSize {
		b = chunkSize
	}
	return b
}

// readOutcome is one Reader Pool job's completion, keyed by reader index.
type readOutcome struct {
	j   int
	n   int
	err error
}

// readWindow runs one windowed minimum-sources read (section 4.2.3): submit
// reads for the current success_list, collect completions, replace
// stragglers and failures via scheduleNewRead, and return the new
// success_list once exactly min_required_sources readers have filled
// their buffers. busy tracks only this window's bookkeeping; a straggler
// still running past this window's early return stays marked InFlight on
// its StripedReader (section 9 "Buffer discipline") so the next window's
// scheduleNewRead won't reopen it and hand its still-owned Buf to a second
// concurrent read.
func (t *Task) readWindow(ctx context.Context, window int64) ([]int, error) {
	results := make(chan readOutcome, 2*len(t.sources)+2)
	busy := make(map[int]bool, len(t.sources))
	outstanding := 0

	submit := func(j int) {
		busy[j] = true
		outstanding++
		idx := t.sources[j].Index
		r := t.readers[j]
		l := t.sliceLen(idx, window)
		if l == 0 {
			results <- readOutcome{j: j}
			return
		}
		r.MarkInFlight()
		t.eg.Go(func() error {
			done := make(chan readOutcome, 1)
			t.deps.ReaderPool.Submit(func(context.Context) {
				defer r.ClearInFlight()
				rctx, cancel := context.WithTimeout(context.Background(), t.deps.Config.SliceReadTimeout())
				defer cancel()
				n, err := r.ReadSlice(rctx, r.Buf[:l])
				done <- readOutcome{j: j, n: n, err: err}
			})
			out := <-done
			select {
			case results <- out:
			default:
			}
			return nil
		})
	}

	for _, j := range t.successList {
		submit(j)
	}

	newSuccess := make([]int, 0, t.minRequired)
	exhausted := false

	for len(newSuccess) < t.minRequired {
		if outstanding == 0 && exhausted {
			return nil, cmn.ErrInsufficientSources
		}
		select {
		case <-ctx.Done():
			return nil, cmn.ErrInterrupted
		case res := <-results:
			outstanding--
			if res.err == nil {
				newSuccess = append(newSuccess, res.j)
				continue
			}

			src := t.sources[res.j]
			switch {
			case errorsIsChecksumMismatch(res.err):
				t.corrupt = append(t.corrupt, CorruptBlock{
					Block: geometry.ConstructInternalBlock(t.group, src.Index),
					Peer:  src.Peer,
				})
				t.readers[res.j].MarkDead()
			case cmn.IsTimeout(res.err):
				// the read already ended at its slice-read deadline, so
				// no late completion follows; the reader keeps its
				// channel open and, marked busy, is not picked again
				// this window.
			default:
				t.readers[res.j].MarkDead()
			}

			j, instant, err := t.scheduleNewRead(window, busy, submit)
			if err != nil {
				exhausted = true
				continue
			}
			if instant {
				newSuccess = append(newSuccess, j)
			}
		}
	}
	return newSuccess, nil
}

func errorsIsChecksumMismatch(err error) bool {
	return err == peer.ErrChecksumMismatch
}

// scheduleNewRead implements section 4.2.6: try a never-used source, then
// revisit an idle previously-used one, then submit the real read for
// whichever candidate was found. Returns (reader index, true, nil) for an
// instant (zero-length) satisfaction that the caller should count as a
// success immediately; (_, false, nil) once a real read has been handed to
// submit (the caller waits for its completion on the results channel); or
// (-1, false, err) if no candidate exists at all.
func (t *Task) scheduleNewRead(window int64, busy map[int]bool, submit func(j int)) (int, bool, error) {
	for m, r := range t.readers {
		if busy[m] || r.Alive() || r.Dead() || r.InFlight() {
			continue
		}
		idx := t.sources[m].Index
		block := geometry.ConstructInternalBlock(t.group, idx)
		if err := r.Open(t.egCtx, t.deps.OpenReader, block, t.posInBlock, t.deps.Tokens); err != nil {
			r.MarkDead()
			continue
		}
		t.ensureBuf(r)
		if t.sliceLen(idx, window) == 0 {
			busy[m] = true
			return m, true, nil
		}
		submit(m)
		return m, false, nil
	}

	for m, r := range t.readers {
		if busy[m] || !r.Alive() || r.InFlight() {
			continue
		}
		idx := t.sources[m].Index
		if t.sliceLen(idx, window) == 0 {
			busy[m] = true
			return m, true, nil
		}
		block := geometry.ConstructInternalBlock(t.group, idx)
		if err := r.Open(t.egCtx, t.deps.OpenReader, block, t.posInBlock, t.deps.Tokens); err != nil {
			r.MarkDead()
			continue
		}
		submit(m)
		return m, false, nil
	}

	return -1, false, cmn.ErrInsufficientSources
}
