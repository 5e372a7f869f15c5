package recon

import (
	"github.com/IdleFellow/stripedrecon/cmn"
	"github.com/IdleFellow/stripedrecon/peer"
	"github.com/IdleFellow/stripedrecon/wire"
)

// transferWindow ships this window's reconstructed output to every alive
// target with nonzero remaining output (section 4.2.5). A target whose
// send fails is marked dead by Target.Send and skipped for the rest of
// the task; if every target ends up dead, the task fails.
func (t *Task) transferWindow(window int64) error {
	for _, tgt := range t.targets {
		if !tgt.Alive() {
			continue
		}
		outLen := t.curOutLen[tgt.Index]
		if outLen <= 0 {
			continue
		}
		buf := t.targetBuf(tgt.Index, window)[:outLen]
		_ = t.sendChunked(tgt, buf)
	}

	for _, tgt := range t.targets {
		if tgt.Alive() {
			return nil
		}
	}
	return cmn.ErrAllTargetsDead
}

// sendChunked splits buf into packets of at most
// wire.MaxChunksPerPacket(checksum) chunks' worth of payload, each framed
// with the chunked checksums ahead of the data bytes, per section 4.2.5.
// A send failure stops short; the caller only cares that the target is now
// dead, so the error itself is not propagated further up.
func (t *Task) sendChunked(tgt *peer.Target, buf []byte) error {
	chunkSz := int(t.checksum.BytesPerChecksum)
	if chunkSz <= 0 {
		chunkSz = len(buf)
	}
	maxChunks := wire.MaxChunksPerPacket(t.checksum)
	payloadCap := maxChunks * chunkSz
	if payloadCap <= 0 {
		payloadCap = len(buf)
	}

	for off := 0; off < len(buf); {
		end := off + payloadCap
		if end > len(buf) {
			end = len(buf)
		}
		chunk := buf[off:end]
		checksums := cmn.ChunkChecksums(t.checksum, chunk)

		pkt := wire.DataPacket{
			Header: wire.PacketHeader{
				BlockOffset: tgt.BlockOffset,
				SeqNo:       tgt.SeqNo,
				DataLen:     int32(len(chunk)),
				IsLast:      false,
			},
			Checksums: checksums,
			Data:      chunk,
		}
		if err := tgt.Send(pkt); err != nil {
			return err
		}
		off = end
	}
	return nil
}
