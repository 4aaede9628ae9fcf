package udp

import (
	"errors"
	"net"
	"time"

	"github.com/ghalamif/AegisGate/internal/domain"
	"github.com/ghalamif/AegisGate/internal/ports"
)

// Config controls ingress enforcement: size caps and socket buffers.
type Config struct {
	MaxDatagramBytes int           // hard size cap, default 1472 (MTU 1500 - IP 20 - UDP 8)
	RecvBufferBytes  int           // SO_RCVBUF hint
	PollTimeout      time.Duration // read deadline per attempt; expiry maps to WouldBlock
}

func DefaultConfig() Config {
	return Config{
		MaxDatagramBytes: 1472,
		RecvBufferBytes:  256 * 1024,
		PollTimeout:      time.Millisecond,
	}
}

// Receiver reads whole datagrams from a UDP socket and enforces the size cap.
//
// Oversize detection: the read buffer is one byte larger than the cap, so any
// packet longer than the cap fills past it and is reported as truncated. The
// portable net API silently discards excess datagram bytes, so detection
// degrades to "at buffer cap": a packet is seen as oversized, but its true
// length on the wire is not recovered.
//
// Not thread-safe; one Receiver per pipeline.
type Receiver struct {
	conn *net.UDPConn
	cfg  Config
	buf  []byte // reusable recv buffer, len = MaxDatagramBytes+1

	received  uint64
	truncated uint64
	errors    uint64
}

// Listen binds a UDP socket on addr and wraps it in a Receiver. Bind failure
// is the one fatal error in the gateway's lifecycle.
func Listen(addr string, cfg Config) (*Receiver, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	return NewReceiver(conn, cfg)
}

// NewReceiver wraps an already-bound socket.
func NewReceiver(conn *net.UDPConn, cfg Config) (*Receiver, error) {
	if cfg.MaxDatagramBytes <= 0 {
		cfg.MaxDatagramBytes = DefaultConfig().MaxDatagramBytes
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultConfig().PollTimeout
	}
	if cfg.RecvBufferBytes > 0 {
		if err := conn.SetReadBuffer(cfg.RecvBufferBytes); err != nil {
			return nil, err
		}
	}
	return &Receiver{
		conn: conn,
		cfg:  cfg,
		buf:  make([]byte, cfg.MaxDatagramBytes+1),
	}, nil
}

// ReceiveOne reads one datagram. Truncation is always a drop, never a partial
// body. The returned Data is a fresh copy owned by the caller for one
// pipeline pass.
func (r *Receiver) ReceiveOne() ports.RecvResult {
	if err := r.conn.SetReadDeadline(time.Now().Add(r.cfg.PollTimeout)); err != nil {
		r.errors++
		return ports.RecvResult{Status: ports.RecvError, Err: err}
	}

	n, addr, err := r.conn.ReadFromUDP(r.buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ports.RecvResult{Status: ports.RecvWouldBlock}
		}
		r.errors++
		return ports.RecvResult{Status: ports.RecvError, Err: err}
	}

	if n > r.cfg.MaxDatagramBytes {
		r.truncated++
		return ports.RecvResult{Status: ports.RecvTruncated}
	}

	data := make([]byte, n)
	copy(data, r.buf[:n])

	r.received++
	return ports.RecvResult{
		Status: ports.RecvOK,
		Data:   data,
		Source: sourceKey(addr),
	}
}

func (r *Receiver) Close() error { return r.conn.Close() }

// LocalAddr exposes the bound address, useful when listening on port 0.
func (r *Receiver) LocalAddr() net.Addr { return r.conn.LocalAddr() }

func (r *Receiver) Received() uint64  { return r.received }
func (r *Receiver) Truncated() uint64 { return r.truncated }
func (r *Receiver) Errors() uint64    { return r.errors }

// sourceKey packs the peer address into the limiter's key. IPv6 peers fold
// into the low four bytes of the address; the key is an admission bucket, not
// an identity.
func sourceKey(addr *net.UDPAddr) domain.SourceKey {
	var ip uint32
	b := addr.IP.To4()
	if b == nil {
		b16 := addr.IP.To16()
		if b16 != nil {
			b = b16[12:16]
		}
	}
	if b != nil {
		ip = uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	}
	return domain.SourceKey{IP: ip, Port: uint16(addr.Port)}
}

var _ ports.Receiver = (*Receiver)(nil)
