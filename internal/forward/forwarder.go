package forward

import (
	"github.com/ghalamif/AegisGate/internal/domain"
	"github.com/ghalamif/AegisGate/internal/ports"
)

// Config bounds the forwarder's backlog and per-agent share.
type Config struct {
	MaxQueueDepth int // total bounded capacity
	MaxPerAgent   int // per-agent quota
}

func DefaultConfig() Config {
	return Config{MaxQueueDepth: 4096, MaxPerAgent: 64}
}

// Result is the outcome of a forward attempt.
type Result uint8

const (
	Queued Result = iota
	DroppedQueueFull
	DroppedAgentQuotaExceeded
)

func (r Result) String() string {
	switch r {
	case Queued:
		return "queued"
	case DroppedQueueFull:
		return "queue_full"
	case DroppedAgentQuotaExceeded:
		return "agent_quota_exceeded"
	}
	return "unknown"
}

// BoundedForwarder combines the bounded queue, the per-agent quota tracker,
// and the downstream sink. Downstream slowness shows up as queue fill and
// then tail-drop; it can never grow memory past MaxQueueDepth events, and no
// agent can occupy more than MaxPerAgent slots.
//
// Not thread-safe; the pipeline owns it exclusively.
type BoundedForwarder struct {
	quota *AgentQuotaTracker
	queue *BoundedQueue
	sink  ports.Sink

	forwarded        uint64
	droppedQueueFull uint64
	droppedQuota     uint64
	sinkFailures     uint64
}

func NewBoundedForwarder(cfg Config, sink ports.Sink) *BoundedForwarder {
	return &BoundedForwarder{
		quota: NewAgentQuotaTracker(cfg.MaxPerAgent),
		queue: NewBoundedQueue(cfg.MaxQueueDepth),
		sink:  sink,
	}
}

// TryForward enqueues an owned event. Non-blocking; the quota check runs
// before the capacity check so fairness drops are attributed correctly.
func (f *BoundedForwarder) TryForward(event domain.QueuedEvent) Result {
	agentID := event.AgentID

	if !f.quota.TryReserve(agentID) {
		f.droppedQuota++
		return DroppedAgentQuotaExceeded
	}

	if f.queue.TryPush(event) == PushDropped {
		// Compensate: the reserve above must not leak.
		f.quota.Release(agentID)
		f.droppedQueueFull++
		return DroppedQueueFull
	}

	return Queued
}

// DrainOne pops one event, releases its quota slot, and writes it to the
// sink. The release happens regardless of sink outcome: the queue is never a
// retry buffer. Returns false when the queue was empty.
func (f *BoundedForwarder) DrainOne() bool {
	event, ok := f.queue.TryPop()
	if !ok {
		return false
	}

	f.quota.Release(event.AgentID)

	if err := f.sink.Write(event.Payload); err != nil {
		f.sinkFailures++
	} else {
		f.forwarded++
	}
	return true
}

// DrainAll drains until the queue is empty and returns the count processed.
func (f *BoundedForwarder) DrainAll() int {
	n := 0
	for f.DrainOne() {
		n++
	}
	return n
}

func (f *BoundedForwarder) QueueDepth() int           { return f.queue.Size() }
func (f *BoundedForwarder) QueueCapacity() int        { return f.queue.Capacity() }
func (f *BoundedForwarder) QueueEmpty() bool          { return f.queue.Empty() }
func (f *BoundedForwarder) Quota() *AgentQuotaTracker { return f.quota }
func (f *BoundedForwarder) TotalForwarded() uint64    { return f.forwarded }
func (f *BoundedForwarder) TotalDroppedQueue() uint64 { return f.droppedQueueFull }
func (f *BoundedForwarder) TotalDroppedQuota() uint64 { return f.droppedQuota }
func (f *BoundedForwarder) TotalSinkFailures() uint64 { return f.sinkFailures }
