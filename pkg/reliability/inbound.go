package reliability

import "time"

// InboundDedup is a fixed-capacity ring of recently received reliable
// message IDs, used to drop duplicate retransmissions after their ID
// has already been scheduled for confirmation (spec.md §4.4).
type InboundDedup struct {
	capacity int
	seen     map[uint16]struct{}
	order    []uint16
}

// NewInboundDedup builds a dedup ring holding up to capacity IDs.
func NewInboundDedup(capacity int) *InboundDedup {
	if capacity <= 0 {
		capacity = 256
	}
	return &InboundDedup{
		capacity: capacity,
		seen:     make(map[uint16]struct{}, capacity),
		order:    make([]uint16, 0, capacity),
	}
}

// Seen reports whether id has already been recorded.
func (d *InboundDedup) Seen(id uint16) bool {
	_, ok := d.seen[id]
	return ok
}

// Record marks id as seen, evicting the oldest entry if the ring is
// at capacity.
func (d *InboundDedup) Record(id uint16) {
	if d.Seen(id) {
		return
	}
	if len(d.order) >= d.capacity {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, oldest)
	}
	d.seen[id] = struct{}{}
	d.order = append(d.order, id)
}

// PendingConfirmations queues inbound reliable message IDs that still
// need to be acknowledged to the peer, flushed piggy-backed on the
// next outbound packet or, if none leaves within the ack window, via
// an empty carrier packet (spec.md §4.4).
type PendingConfirmations struct {
	ids       []uint32
	ackWindow time.Duration
	lastFlush time.Time
}

// NewPendingConfirmations builds a confirmation queue with the given
// max piggy-back deferral window (spec.md §6 ack_window_ms).
func NewPendingConfirmations(ackWindow time.Duration) *PendingConfirmations {
	return &PendingConfirmations{ackWindow: ackWindow}
}

// Queue adds messageID to the set of confirmations awaiting flush.
func (p *PendingConfirmations) Queue(messageID uint16, now time.Time) {
	if len(p.ids) == 0 {
		p.lastFlush = now
	}
	p.ids = append(p.ids, uint32(messageID))
}

// Pending reports whether any confirmation is queued.
func (p *PendingConfirmations) Pending() bool { return len(p.ids) > 0 }

// DueForEmptyCarrier reports whether the oldest queued confirmation
// has waited longer than the ack window without piggy-backing on an
// outbound packet, meaning an empty carrier packet must be emitted.
func (p *PendingConfirmations) DueForEmptyCarrier(now time.Time) bool {
	return p.Pending() && now.Sub(p.lastFlush) >= p.ackWindow
}

// Flush returns every queued confirmation ID and clears the queue.
// Call when a packet is about to leave (piggy-back) or when
// DueForEmptyCarrier requires a carrier packet.
func (p *PendingConfirmations) Flush() []uint32 {
	ids := p.ids
	p.ids = nil
	return ids
}
