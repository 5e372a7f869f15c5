package codec

import (
	"github.com/klauspost/reedsolomon"
	"github.com/pkg/errors"
)

// ReedSolomonDecoder adapts github.com/klauspost/reedsolomon to the
// Decoder interface. Grounded on the teacher's go.mod dependency on
// klauspost/reedsolomon and on jenlij-storj/pkg/eestream's equal-length,
// nil-for-erased decode shape.
type ReedSolomonDecoder struct {
	enc   reedsolomon.Encoder
	total int
}

var _ Decoder = (*ReedSolomonDecoder)(nil)

// NewReedSolomon constructs the decoder for a (data, parity) policy,
// matching section 4.2.4's "lazily constructed on first use with (D, P)".
func NewReedSolomon(data, parity int) (Decoder, error) {
	enc, err := reedsolomon.New(data, parity)
	if err != nil {
		return nil, errors.Wrap(err, "construct reed-solomon decoder")
	}
	return &ReedSolomonDecoder{enc: enc, total: data + parity}, nil
}

// Decode reconstructs shards[i] for every i in erased, leaving every other
// shard untouched. Every shard, including each one in erased, must already
// be present with the correct (equal) length — erased ones are scratch
// buffers the caller owns and expects the reconstructed bytes copied into,
// so a temporary nil-for-erased view is reconstructed and copied back
// rather than handed to the caller as freshly-allocated slices.
func (d *ReedSolomonDecoder) Decode(shards [][]byte, erased []int) error {
	if len(shards) != d.total {
		return errors.Errorf("reedsolomon: expected %d shards, got %d", d.total, len(shards))
	}
	if len(erased) == 0 {
		return nil
	}
	erasedSet := make(map[int]bool, len(erased))
	for _, e := range erased {
		if e < 0 || e >= d.total {
			return errors.Errorf("reedsolomon: erased index %d out of range [0,%d)", e, d.total)
		}
		if len(shards[e]) == 0 {
			return errors.Errorf("reedsolomon: erased shard %d has no output buffer", e)
		}
		erasedSet[e] = true
	}

	tmp := make([][]byte, d.total)
	copy(tmp, shards)
	for e := range erasedSet {
		tmp[e] = nil
	}

	if err := d.enc.Reconstruct(tmp); err != nil {
		return errors.Wrap(err, "reed-solomon reconstruct")
	}
	for e := range erasedSet {
		n := copy(shards[e], tmp[e])
		if n != len(shards[e]) {
			return errors.Errorf("reedsolomon: short reconstruct for shard %d: got %d want %d", e, n, len(shards[e]))
		}
	}
	return nil
}
