// Package reliability implements the reliability and fragmentation
// layer (spec.md §4.4): the outbound-unacked cache, the inbound dedup
// ring, and fragment reassembly. Lifetimes are arenas keyed by message
// ID / fragment ID, per spec.md §9's design note, not a shared-
// ownership graph or a generic LRU.
package reliability

import (
	"time"

	"github.com/tindalos-systems/factoriolink/pkg/ferrors"
)

// pendingSend is one outbound reliable message awaiting acknowledgment.
type pendingSend struct {
	packet    []byte
	firstSent time.Time
	lastSent  time.Time
	retries   int
}

// OutboundTracker owns the cache of outbound reliable sends awaiting
// confirmation. It is not safe for concurrent use; the single
// cooperative I/O task (spec.md §5) is its only caller.
type OutboundTracker struct {
	retransmitInterval time.Duration
	retryCap           int
	pending            map[uint16]*pendingSend
}

// NewOutboundTracker builds a tracker with the given retransmit
// interval and retry cap (spec.md §6 config options).
func NewOutboundTracker(retransmitInterval time.Duration, retryCap int) *OutboundTracker {
	return &OutboundTracker{
		retransmitInterval: retransmitInterval,
		retryCap:           retryCap,
		pending:            make(map[uint16]*pendingSend),
	}
}

// Track records a freshly sent reliable packet under messageID.
func (t *OutboundTracker) Track(messageID uint16, packet []byte, now time.Time) {
	t.pending[messageID] = &pendingSend{packet: packet, firstSent: now, lastSent: now}
}

// Ack removes every message ID present in confirmations from the
// outbound window; it is the receiving side of a piggy-backed
// confirmation list.
func (t *OutboundTracker) Ack(confirmations []uint32) {
	for _, id := range confirmations {
		delete(t.pending, uint16(id))
	}
}

// Pending reports whether messageID is still awaiting acknowledgment.
func (t *OutboundTracker) Pending(messageID uint16) bool {
	_, ok := t.pending[messageID]
	return ok
}

// Len returns the number of outbound reliable sends still unacked.
func (t *OutboundTracker) Len() int { return len(t.pending) }

// DueRetransmit returns the raw bytes of every pending send whose age
// exceeds the retransmit interval, incrementing its retry count and
// resetting lastSent. A message whose retry count would exceed the
// cap is instead reported as a ReliableRetryExhausted error and
// dropped from the window — that message is fatal to the session
// (spec.md §7).
func (t *OutboundTracker) DueRetransmit(now time.Time) (toResend [][]byte, err error) {
	for id, p := range t.pending {
		if now.Sub(p.lastSent) < t.retransmitInterval {
			continue
		}
		if p.retries >= t.retryCap {
			delete(t.pending, id)
			if err == nil {
				err = &ferrors.ReliableRetryExhausted{MessageID: id, Retries: p.retries}
			}
			continue
		}
		p.retries++
		p.lastSent = now
		toResend = append(toResend, p.packet)
	}
	return toResend, err
}
