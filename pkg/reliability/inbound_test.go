package reliability

import (
	"testing"
	"time"
)

func TestInboundDedup(t *testing.T) {
	d := NewInboundDedup(2)
	if d.Seen(1) {
		t.Fatal("unexpected pre-seen id")
	}
	d.Record(1)
	d.Record(2)
	if !d.Seen(1) || !d.Seen(2) {
		t.Fatal("expected both ids recorded")
	}
	d.Record(3) // evicts 1
	if d.Seen(1) {
		t.Fatal("expected id 1 evicted at capacity")
	}
	if !d.Seen(3) {
		t.Fatal("expected id 3 recorded")
	}
}

func TestInboundDedupDuplicateRecordDoesNotEvict(t *testing.T) {
	d := NewInboundDedup(3)
	d.Record(1)
	d.Record(2)
	d.Record(3)
	d.Record(2)
	if !d.Seen(1) || !d.Seen(2) || !d.Seen(3) {
		t.Fatal("re-recording a seen id must not evict anything")
	}
}

func TestPendingConfirmationsFlushAndEmptyCarrier(t *testing.T) {
	pc := NewPendingConfirmations(20 * time.Millisecond)
	start := time.Now()
	if pc.Pending() {
		t.Fatal("expected empty queue initially")
	}
	pc.Queue(5, start)
	if !pc.Pending() {
		t.Fatal("expected pending confirmation")
	}
	if pc.DueForEmptyCarrier(start.Add(5 * time.Millisecond)) {
		t.Fatal("should not be due yet")
	}
	if !pc.DueForEmptyCarrier(start.Add(30 * time.Millisecond)) {
		t.Fatal("expected empty carrier to be due")
	}
	ids := pc.Flush()
	if len(ids) != 1 || ids[0] != 5 {
		t.Fatalf("ids = %v", ids)
	}
	if pc.Pending() {
		t.Fatal("expected queue cleared after flush")
	}
}
