// Package codec defines the Reed-Solomon-style erasure decoder boundary
// the reconstruction engine depends on, and one concrete adapter over it.
// Section 1 of the spec treats the codec itself as an external
// collaborator named by interface only; this module still ships a real
// adapter so the engine and its round-trip property test are runnable.
package codec

// Decoder reconstructs the "erased" columns of a D+P-wide, equal-length
// shard set. shards has length equal to the erasure-coding policy's D+P
// width; every index not in erased must be populated (nil entries there
// are a caller bug); every index in erased must already hold a
// correctly-sized buffer to receive the reconstructed bytes. All shards,
// present or erased, are understood to be the same length (the window
// size of section 4.2.4, zero-padded by the caller as needed).
type Decoder interface {
	Decode(shards [][]byte, erased []int) error
}

// Factory returns the Decoder for a given (D, P) policy, constructed lazily by
// callers on first use per section 4.2.4.
type Factory func(data, parity int) (Decoder, error)
