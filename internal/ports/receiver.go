package ports

import "github.com/ghalamif/AegisGate/internal/domain"

// RecvStatus is the outcome of one receive attempt.
type RecvStatus uint8

const (
	RecvOK RecvStatus = iota
	RecvTruncated
	RecvWouldBlock
	RecvError
)

func (s RecvStatus) String() string {
	switch s {
	case RecvOK:
		return "ok"
	case RecvTruncated:
		return "truncated"
	case RecvWouldBlock:
		return "would_block"
	case RecvError:
		return "error"
	}
	return "unknown"
}

// RecvResult carries one receive attempt. Data and Source are only valid when
// Status == RecvOK. Data is owned by the caller for the duration of one
// pipeline pass.
type RecvResult struct {
	Status RecvStatus
	Data   []byte
	Source domain.SourceKey
	Err    error
}

// Receiver is the datagram ingress transport. Implementations must enforce
// the configured size cap and report oversize packets as RecvTruncated, never
// as a partial body.
type Receiver interface {
	ReceiveOne() RecvResult
	Close() error
}
