package cmn

import (
	"encoding/binary"

	"github.com/OneOfOne/xxhash"
)

// ChecksumSize is the width in bytes of one chunk checksum. xxhash32
// produces a 4-byte digest, matching the teacher's cos.ChecksumXXHash
// family (see ais/test/cp_multiobj_test.go: cksumType = cos.ChecksumXXHash).
const ChecksumSize = 4

// ChecksumAlgo identifies the digest algorithm carried on the wire.
type ChecksumAlgo uint8

const AlgoXXHash32 ChecksumAlgo = 1

// ChecksumDescriptor is the data-transfer checksum shape of spec section 3
// ("a shared checksum configuration lifted from the first successful
// reader"): bytes_per_checksum, checksum_size, and an algorithm identity.
type ChecksumDescriptor struct {
	BytesPerChecksum int32
	ChecksumSize     int32
	Algo             ChecksumAlgo
}

// ChunkChecksums computes one ChecksumSize-byte digest per
// BytesPerChecksum-sized chunk of data, in order, per spec section 4.2.5
// ("checksum bytes for the output buffer, chunked checksums over
// contiguous bytes").
func ChunkChecksums(desc ChecksumDescriptor, data []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	chunkSz := int(desc.BytesPerChecksum)
	if chunkSz <= 0 {
		chunkSz = len(data)
	}
	nChunks := (len(data) + chunkSz - 1) / chunkSz
	out := make([]byte, 0, nChunks*ChecksumSize)
	for off := 0; off < len(data); off += chunkSz {
		end := off + chunkSz
		if end > len(data) {
			end = len(data)
		}
		sum := xxhash.Checksum32(data[off:end])
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], sum)
		out = append(out, b[:]...)
	}
	return out
}
