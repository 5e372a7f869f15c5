package peer

import (
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/tinylib/msgp/msgp"

	"github.com/IdleFellow/stripedrecon/cmn"
	"github.com/IdleFellow/stripedrecon/geometry"
	"github.com/IdleFellow/stripedrecon/wire"
)

// TargetChannel is the per-target outbound stream of section 3: dial,
// handshake, send data packets until the terminator, no read-back
// (section 1 Non-goals: "end-to-end acknowledgement... targets are
// write-only from the engine's view").
type TargetChannel interface {
	Send(pkt wire.DataPacket) error
	Close() error
}

// OpenTargetFunc dials peerAddr, performs the WRITE-scoped handshake for
// block, and returns a ready-to-send TargetChannel.
type OpenTargetFunc func(block geometry.BlockID, peerAddr, storageClass string, checksum cmn.ChecksumDescriptor, tok TokenSource) (TargetChannel, error)

// Target is the per-target mutable state of section 3: the channel, a
// running byte offset into the target block, a monotonically increasing
// packet sequence number, and an alive flag. Once alive is false the
// target receives no further bytes for the rest of the task, including
// the terminator (section 9's Open Question, decided "no").
type Target struct {
	Index        int
	Peer         string
	StorageClass string

	channel     TargetChannel
	BlockOffset int64
	SeqNo       int64
	alive       cmn.Bool
}

func NewTarget(index int, peer, storageClass string) *Target {
	t := &Target{Index: index, Peer: peer, StorageClass: storageClass}
	t.alive.Store(true)
	return t
}

func (t *Target) Alive() bool { return t.alive.Load() }

// MarkDead flags the target dead for the rest of the task; further
// windows skip it (section 4.2.5 "On any I/O failure, mark the target
// dead... Do not retry").
func (t *Target) MarkDead() { t.alive.Store(false) }

// Open dials and handshakes the channel for this target.
func (t *Target) Open(open OpenTargetFunc, block geometry.BlockID, checksum cmn.ChecksumDescriptor, tok TokenSource) error {
	ch, err := open(block, t.Peer, t.StorageClass, checksum, tok)
	if err != nil {
		return err
	}
	t.channel = ch
	return nil
}

// Send transmits one packet and advances BlockOffset/SeqNo. A send
// failure marks the target dead and returns the error; the caller decides
// whether that's fatal to the whole task (all-targets-dead, section 7).
func (t *Target) Send(pkt wire.DataPacket) error {
	if !t.Alive() {
		return errors.New("target: send on dead target")
	}
	if err := t.channel.Send(pkt); err != nil {
		t.MarkDead()
		return err
	}
	t.BlockOffset += int64(pkt.Header.DataLen)
	t.SeqNo++
	return nil
}

// Close releases the channel unconditionally, on every task exit path.
func (t *Target) Close() {
	if t.channel != nil {
		_ = t.channel.Close()
		t.channel = nil
	}
}

// tcpTargetChannel is the concrete TCP TargetChannel adapter.
type tcpTargetChannel struct {
	conn net.Conn
	w    *msgp.Writer
}

var _ TargetChannel = (*tcpTargetChannel)(nil)

// WriteTimeout is the node's global socket timeout for target writes.
var WriteTimeout = 30 * time.Second

// OpenTCPTarget is the production OpenTargetFunc: dials peerAddr, sends
// the write-block request with stage=PIPELINE_SETUP_CREATE, and returns a
// ready-to-send tcpTargetChannel.
func OpenTCPTarget(block geometry.BlockID, peerAddr, storageClass string, checksum cmn.ChecksumDescriptor, tok TokenSource) (TargetChannel, error) {
	d := net.Dialer{Timeout: DialTimeout}
	conn, err := d.Dial("tcp", peerAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", peerAddr)
	}

	token, err := tok.Token(block.String(), true)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "acquire write token")
	}

	w := wire.NewWriter(conn)
	req := wire.WriteBlockRequest{
		BlockID:          block.String(),
		Index:            int32(block.Index),
		StorageClass:     storageClass,
		Token:            token,
		SourceDescriptor: "striped-reconstruction",
		Stage:            wire.PipelineSetupCreate,
		Checksum:         checksum,
	}
	if err := req.WriteTo(w); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "send write-block handshake")
	}

	return &tcpTargetChannel{conn: conn, w: w}, nil
}

func (c *tcpTargetChannel) Send(pkt wire.DataPacket) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(WriteTimeout)); err != nil {
		return errors.Wrap(err, "set write deadline")
	}
	if err := pkt.WriteTo(c.w); err != nil {
		return errors.Wrap(err, "write data packet")
	}
	return nil
}

func (c *tcpTargetChannel) Close() error { return c.conn.Close() }
