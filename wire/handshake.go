package wire

import (
	"github.com/pkg/errors"
	"github.com/tinylib/msgp/msgp"

	"github.com/IdleFellow/stripedrecon/cmn"
)

// Stage is the write-block pipeline stage carried in a WriteBlockRequest.
// Only PIPELINE_SETUP_CREATE is used by this engine (section 4.5); other
// stages belong to the wider write pipeline this module does not drive.
type Stage int32

const PipelineSetupCreate Stage = 1

// ReadBlockRequest is the handshake frame sent by the Remote Block Reader
// adapter (section 4.4): which internal block, at what starting offset,
// and the caller's access token.
type ReadBlockRequest struct {
	BlockID     string
	Index       int32
	StartOffset int64
	Token       []byte
}

func (req ReadBlockRequest) WriteTo(w *msgp.Writer) error {
	if err := w.WriteString(req.BlockID); err != nil {
		return errors.Wrap(err, "write block id")
	}
	if err := w.WriteInt32(req.Index); err != nil {
		return errors.Wrap(err, "write index")
	}
	if err := w.WriteInt64(req.StartOffset); err != nil {
		return errors.Wrap(err, "write start offset")
	}
	if err := w.WriteBytes(req.Token); err != nil {
		return errors.Wrap(err, "write token")
	}
	return w.Flush()
}

func ReadReadBlockRequest(r *msgp.Reader) (ReadBlockRequest, error) {
	var req ReadBlockRequest
	var err error
	if req.BlockID, err = r.ReadString(); err != nil {
		return req, errors.Wrap(err, "read block id")
	}
	if req.Index, err = r.ReadInt32(); err != nil {
		return req, errors.Wrap(err, "read index")
	}
	if req.StartOffset, err = r.ReadInt64(); err != nil {
		return req, errors.Wrap(err, "read start offset")
	}
	if req.Token, err = r.ReadBytes(nil); err != nil {
		return req, errors.Wrap(err, "read token")
	}
	return req, nil
}

// WriteBlockRequest is the handshake frame sent by the Target Channel
// adapter (section 4.5): the block identity, storage class, access token,
// a free-form source descriptor, the pipeline stage, and the checksum
// descriptor the subsequent data packets are framed with.
type WriteBlockRequest struct {
	BlockID          string
	Index            int32
	StorageClass     string
	Token            []byte
	SourceDescriptor string
	Stage            Stage
	Checksum         cmn.ChecksumDescriptor
}

func (req WriteBlockRequest) WriteTo(w *msgp.Writer) error {
	if err := w.WriteString(req.BlockID); err != nil {
		return errors.Wrap(err, "write block id")
	}
	if err := w.WriteInt32(req.Index); err != nil {
		return errors.Wrap(err, "write index")
	}
	if err := w.WriteString(req.StorageClass); err != nil {
		return errors.Wrap(err, "write storage class")
	}
	if err := w.WriteBytes(req.Token); err != nil {
		return errors.Wrap(err, "write token")
	}
	if err := w.WriteString(req.SourceDescriptor); err != nil {
		return errors.Wrap(err, "write source descriptor")
	}
	if err := w.WriteInt32(int32(req.Stage)); err != nil {
		return errors.Wrap(err, "write stage")
	}
	if err := writeChecksumDescriptor(w, req.Checksum); err != nil {
		return err
	}
	return w.Flush()
}

func ReadWriteBlockRequest(r *msgp.Reader) (WriteBlockRequest, error) {
	var req WriteBlockRequest
	var err error
	if req.BlockID, err = r.ReadString(); err != nil {
		return req, errors.Wrap(err, "read block id")
	}
	if req.Index, err = r.ReadInt32(); err != nil {
		return req, errors.Wrap(err, "read index")
	}
	if req.StorageClass, err = r.ReadString(); err != nil {
		return req, errors.Wrap(err, "read storage class")
	}
	if req.Token, err = r.ReadBytes(nil); err != nil {
		return req, errors.Wrap(err, "read token")
	}
	if req.SourceDescriptor, err = r.ReadString(); err != nil {
		return req, errors.Wrap(err, "read source descriptor")
	}
	var stage int32
	if stage, err = r.ReadInt32(); err != nil {
		return req, errors.Wrap(err, "read stage")
	}
	req.Stage = Stage(stage)
	if req.Checksum, err = readChecksumDescriptor(r); err != nil {
		return req, err
	}
	return req, nil
}

func writeChecksumDescriptor(w *msgp.Writer, d cmn.ChecksumDescriptor) error {
	if err := w.WriteInt32(d.BytesPerChecksum); err != nil {
		return errors.Wrap(err, "write bytes_per_checksum")
	}
	if err := w.WriteInt32(d.ChecksumSize); err != nil {
		return errors.Wrap(err, "write checksum_size")
	}
	if err := w.WriteInt8(int8(d.Algo)); err != nil {
		return errors.Wrap(err, "write checksum algo")
	}
	return nil
}

func readChecksumDescriptor(r *msgp.Reader) (cmn.ChecksumDescriptor, error) {
	var d cmn.ChecksumDescriptor
	var err error
	if d.BytesPerChecksum, err = r.ReadInt32(); err != nil {
		return d, errors.Wrap(err, "read bytes_per_checksum")
	}
	if d.ChecksumSize, err = r.ReadInt32(); err != nil {
		return d, errors.Wrap(err, "read checksum_size")
	}
	algo, err := r.ReadInt8()
	if err != nil {
		return d, errors.Wrap(err, "read checksum algo")
	}
	d.Algo = cmn.ChecksumAlgo(algo)
	return d, nil
}

// WriteChecksumDescriptor/ReadChecksumDescriptor are exported so the peer
// package's handshakes (which send the descriptor standalone on the read
// side, section 4.4) can reuse the same wire shape.
func WriteChecksumDescriptor(w *msgp.Writer, d cmn.ChecksumDescriptor) error {
	err := writeChecksumDescriptor(w, d)
	if err != nil {
		return err
	}
	return w.Flush()
}

func ReadChecksumDescriptor(r *msgp.Reader) (cmn.ChecksumDescriptor, error) {
	return readChecksumDescriptor(r)
}
