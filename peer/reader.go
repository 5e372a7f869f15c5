package peer

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/tinylib/msgp/msgp"

	"github.com/IdleFellow/stripedrecon/cmn"
	"github.com/IdleFellow/stripedrecon/geometry"
	"github.com/IdleFellow/stripedrecon/wire"
)

// RemoteBlockReader streams bytes of one internal block starting at a
// given offset, opened over an authenticated session against a peer
// (section 4.4). It is explicitly never short-circuited to a local read
// even when the source happens to live on this node (section 1 Non-goals).
type RemoteBlockReader interface {
	// ReadSlice reads exactly len(p) bytes into p, or returns an error
	// (including when the peer's internal block ends before len(p) bytes
	// were available). Callers size each read to the block's remaining
	// length and zero-pad past it themselves.
	ReadSlice(ctx context.Context, p []byte) (int, error)
	Checksum() cmn.ChecksumDescriptor
	Close() error
}

// OpenReaderFunc dials peerAddr, performs the READ-scoped handshake for block,
// and returns a streaming RemoteBlockReader positioned at startOffset.
type OpenReaderFunc func(ctx context.Context, block geometry.BlockID, peerAddr string, startOffset int64, tok TokenSource) (RemoteBlockReader, error)

// StripedReader is the mutable per-source state of section 3: the block
// handle, peer descriptor, an optional active remote-read channel, a
// reusable slice buffer, and this source's internal index. Buffers are
// owned by the reader and reused across windows (section 9
// "Buffer discipline"): callers must not reallocate Buf per window.
type StripedReader struct {
	Index    int    // this source's internal column index
	Peer     string // peer address
	Buf      []byte // reusable read buffer, sized once B is known
	channel  RemoteBlockReader
	dead     bool     // true once the channel has failed and won't be reopened this task
	inFlight cmn.Bool // true while a submitted read still owns Buf, across window boundaries
}

// Alive reports whether this reader currently holds a non-nil remote
// channel. A dead reader (dead=true) will never be reopened by
// scheduleNewRead; one merely lacking a channel right now (never opened,
// or transiently closed for re-open) can still be revived.
func (r *StripedReader) Alive() bool { return r.channel != nil }

// Dead reports whether this reader has been permanently marked dead for
// the task (section 9 "Sticky vs dead reader distinction").
func (r *StripedReader) Dead() bool { return r.dead }

// MarkInFlight records that a read job now owns Buf and the open channel,
// until ClearInFlight is called by that same job's completion. A window
// that returns early (minimum sources already satisfied) leaves any
// straggling reader's job running past the window boundary; InFlight lets
// the next window's scheduleNewRead see that and avoid reopening the
// reader or reusing Buf while the straggler is still writing into it.
func (r *StripedReader) MarkInFlight() { r.inFlight.Store(true) }

// ClearInFlight marks the in-flight read as finished. Called by the read
// job itself when ReadSlice returns, regardless of whether any window is
// still around to consume its result.
func (r *StripedReader) ClearInFlight() { r.inFlight.Store(false) }

// InFlight reports whether a previously submitted read still owns Buf.
func (r *StripedReader) InFlight() bool { return r.inFlight.Load() }

// MarkDead closes the channel if open and marks the reader as
// permanently unusable for the rest of the task.
func (r *StripedReader) MarkDead() {
	if r.channel != nil {
		_ = r.channel.Close()
		r.channel = nil
	}
	r.dead = true
}

// Open (re)opens the remote channel at the given offset, closing any
// previously-open channel first.
func (r *StripedReader) Open(ctx context.Context, open OpenReaderFunc, block geometry.BlockID, offset int64, tok TokenSource) error {
	if r.channel != nil {
		_ = r.channel.Close()
		r.channel = nil
	}
	ch, err := open(ctx, block, r.Peer, offset, tok)
	if err != nil {
		return err
	}
	r.channel = ch
	return nil
}

// Close releases the channel, if any, unconditionally — called on every
// task exit path (success, abort, fault) per section 3 "Lifecycle".
func (r *StripedReader) Close() {
	if r.channel != nil {
		_ = r.channel.Close()
		r.channel = nil
	}
}

// ReadSlice reads exactly len(p) bytes through the currently-open channel.
func (r *StripedReader) ReadSlice(ctx context.Context, p []byte) (int, error) {
	if r.channel == nil {
		return 0, errors.New("striped reader: no open channel")
	}
	return r.channel.ReadSlice(ctx, p)
}

// Checksum returns the channel's checksum descriptor; only valid while a
// channel is open.
func (r *StripedReader) Checksum() (cmn.ChecksumDescriptor, error) {
	if r.channel == nil {
		return cmn.ChecksumDescriptor{}, errors.New("striped reader: no open channel")
	}
	return r.channel.Checksum(), nil
}

// ErrChecksumMismatch is returned by ReadSlice when a received data chunk's
// checksum does not match the checksum the peer framed it with — the
// "per-read checksum mismatch" fault of section 7.
var ErrChecksumMismatch = errors.New("peer: checksum mismatch")

// tcpBlockReader is the concrete TCP RemoteBlockReader adapter: dial,
// handshake with a READ-scoped token, then stream checksum-framed data
// packets (symmetric to the target-side framing of section 4.2.5),
// verifying each chunk's checksum as it arrives.
type tcpBlockReader struct {
	conn     net.Conn
	r        *msgp.Reader
	checksum cmn.ChecksumDescriptor
	pending  []byte // leftover verified bytes from the last packet
}

var _ RemoteBlockReader = (*tcpBlockReader)(nil)

// DialTimeout is the node's global socket timeout for peer connect,
// matching section 5 ("Peer connect and socket I/O use the node's global
// socket timeout").
var DialTimeout = 10 * time.Second

// OpenTCPReader is the production OpenReaderFunc: dials peerAddr,
// performs the read-block handshake, and returns a ready-to-stream
// tcpBlockReader.
func OpenTCPReader(ctx context.Context, block geometry.BlockID, peerAddr string, startOffset int64, tok TokenSource) (RemoteBlockReader, error) {
	d := net.Dialer{Timeout: DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", peerAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", peerAddr)
	}

	token, err := tok.Token(block.String(), false)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "acquire read token")
	}

	w := wire.NewWriter(conn)
	req := wire.ReadBlockRequest{BlockID: block.String(), Index: int32(block.Index), StartOffset: startOffset, Token: token}
	if err := req.WriteTo(w); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "send read-block handshake")
	}

	r := wire.NewReader(conn)
	desc, err := wire.ReadChecksumDescriptor(r)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "receive checksum descriptor")
	}

	return &tcpBlockReader{conn: conn, r: r, checksum: desc}, nil
}

// ReadSlice fills p by pulling checksum-framed data packets off the wire
// and verifying each chunk's checksum against desc, exactly mirroring the
// framing the Target Channel adapter writes (section 4.2.5). Leftover
// verified bytes beyond what p needed are kept in t.pending for the next
// call.
func (t *tcpBlockReader) ReadSlice(ctx context.Context, p []byte) (int, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = t.conn.SetReadDeadline(dl)
	}
	filled := 0
	for filled < len(p) {
		if len(t.pending) > 0 {
			n := copy(p[filled:], t.pending)
			t.pending = t.pending[n:]
			filled += n
			continue
		}
		pkt, err := wire.ReadDataPacket(t.r)
		if err != nil {
			return filled, errors.Wrap(err, "read data packet")
		}
		if pkt.Header.IsLast || len(pkt.Data) == 0 {
			return filled, errors.New("peer: unexpected end of stream")
		}
		if err := verifyChunks(t.checksum, pkt.Data, pkt.Checksums); err != nil {
			return filled, err
		}
		n := copy(p[filled:], pkt.Data)
		filled += n
		if n < len(pkt.Data) {
			t.pending = append(t.pending, pkt.Data[n:]...)
		}
	}
	return filled, nil
}

// verifyChunks recomputes the chunk checksums over data and compares them
// byte-for-byte against the checksums the peer attached.
func verifyChunks(desc cmn.ChecksumDescriptor, data, checksums []byte) error {
	want := cmn.ChunkChecksums(desc, data)
	if len(want) != len(checksums) {
		return ErrChecksumMismatch
	}
	for i := range want {
		if want[i] != checksums[i] {
			return ErrChecksumMismatch
		}
	}
	return nil
}

func (t *tcpBlockReader) Checksum() cmn.ChecksumDescriptor { return t.checksum }

func (t *tcpBlockReader) Close() error { return t.conn.Close() }
