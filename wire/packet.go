// Package wire implements the data-transfer wire framing the engine reads
// and writes: the write-block / read-block handshakes of sections 4.4 and
// 4.5, and the per-window data packet framing of section 4.2.5. Encoding
// uses tinylib/msgp's low-level Writer/Reader primitives directly (no
// generated struct codec) since the frame shapes here are spec-defined,
// not arbitrary Go structs.
package wire

import (
	"io"

	"github.com/pkg/errors"
	"github.com/tinylib/msgp/msgp"

	"github.com/IdleFellow/stripedrecon/cmn"
)

// PacketMaxBytes is the hard cap on one data packet's wire size, per
// section 4.2.5.
const PacketMaxBytes = 64 * 1024

// headerMaxBytes is a conservative upper bound on PacketHeader's encoded
// size, used only to size the payload budget in MaxChunksPerPacket.
const headerMaxBytes = 64

// PacketHeader frames one data packet: the target block's running byte
// offset, a monotonically increasing sequence number, and whether this is
// the empty terminator packet.
type PacketHeader struct {
	BlockOffset int64
	SeqNo       int64
	DataLen     int32
	IsLast      bool
}

// WriteTo encodes the header fields, in order, onto w.
func (h PacketHeader) WriteTo(w *msgp.Writer) error {
	if err := w.WriteInt64(h.BlockOffset); err != nil {
		return errors.Wrap(err, "write block_offset")
	}
	if err := w.WriteInt64(h.SeqNo); err != nil {
		return errors.Wrap(err, "write seq_no")
	}
	if err := w.WriteInt32(h.DataLen); err != nil {
		return errors.Wrap(err, "write data_len")
	}
	if err := w.WriteBool(h.IsLast); err != nil {
		return errors.Wrap(err, "write is_last")
	}
	return nil
}

// ReadPacketHeader decodes one PacketHeader from r.
func ReadPacketHeader(r *msgp.Reader) (PacketHeader, error) {
	var h PacketHeader
	var err error
	if h.BlockOffset, err = r.ReadInt64(); err != nil {
		return h, errors.Wrap(err, "read block_offset")
	}
	if h.SeqNo, err = r.ReadInt64(); err != nil {
		return h, errors.Wrap(err, "read seq_no")
	}
	if h.DataLen, err = r.ReadInt32(); err != nil {
		return h, errors.Wrap(err, "read data_len")
	}
	if h.IsLast, err = r.ReadBool(); err != nil {
		return h, errors.Wrap(err, "read is_last")
	}
	return h, nil
}

// DataPacket is one on-wire packet: a header, the checksum bytes for its
// chunks, then the data bytes, per section 4.2.5 ("checksum bytes...
// followed by the data bytes").
type DataPacket struct {
	Header     PacketHeader
	Checksums  []byte
	Data       []byte
}

// WriteTo encodes the full packet (header, checksums, data) onto w and
// flushes it.
func (p DataPacket) WriteTo(w *msgp.Writer) error {
	if err := p.Header.WriteTo(w); err != nil {
		return err
	}
	if err := w.WriteBytes(p.Checksums); err != nil {
		return errors.Wrap(err, "write checksums")
	}
	if err := w.WriteBytes(p.Data); err != nil {
		return errors.Wrap(err, "write data")
	}
	return w.Flush()
}

// ReadDataPacket decodes one DataPacket from r.
func ReadDataPacket(r *msgp.Reader) (DataPacket, error) {
	var p DataPacket
	var err error
	if p.Header, err = ReadPacketHeader(r); err != nil {
		return p, err
	}
	if p.Checksums, err = r.ReadBytes(nil); err != nil {
		return p, errors.Wrap(err, "read checksums")
	}
	if p.Data, err = r.ReadBytes(nil); err != nil {
		return p, errors.Wrap(err, "read data")
	}
	return p, nil
}

// Terminator builds the empty terminator packet sent once per target at
// the end of a task, per section 4.2.2: an empty payload with seq_no equal
// to the count of preceding packets.
func Terminator(blockOffset, seqNo int64) DataPacket {
	return DataPacket{Header: PacketHeader{BlockOffset: blockOffset, SeqNo: seqNo, DataLen: 0, IsLast: true}}
}

// MaxChunksPerPacket is max(1, (PACKET_MAX_BYTES - header_max) /
// (bytes_per_checksum + checksum_size)), per section 4.2.5.
func MaxChunksPerPacket(desc cmn.ChecksumDescriptor) int {
	perChunk := int64(desc.BytesPerChecksum) + int64(desc.ChecksumSize)
	if perChunk <= 0 {
		return 1
	}
	n := int64(PacketMaxBytes-headerMaxBytes) / perChunk
	if n < 1 {
		return 1
	}
	return int(n)
}

// NewWriter/NewReader are re-exported constructors so callers outside this
// package never import tinylib/msgp directly.
func NewWriter(w io.Writer) *msgp.Writer { return msgp.NewWriter(w) }
func NewReader(r io.Reader) *msgp.Reader { return msgp.NewReader(r) }
