package config

import "testing"

func TestResolveAppliesDefaults(t *testing.T) {
	r := Resolve(Config{})
	if r.HeartbeatInterval.Milliseconds() != 16 {
		t.Fatalf("heartbeat interval = %v, want ~16ms for 60Hz", r.HeartbeatInterval)
	}
	if r.RetransmitInterval.Milliseconds() != DefaultRetransmitMs {
		t.Fatalf("retransmit = %v", r.RetransmitInterval)
	}
	if r.RetryCap != DefaultRetryCap {
		t.Fatalf("retry cap = %d", r.RetryCap)
	}
	if r.MaxSnapshotEntities != DefaultMaxSnapshotEntities {
		t.Fatalf("max entities = %d", r.MaxSnapshotEntities)
	}
}

func TestResolveHonorsOverrides(t *testing.T) {
	r := Resolve(Config{HeartbeatHz: 30, RetryCap: 3, MaxSnapshotEntities: 10})
	if r.HeartbeatInterval.Milliseconds() != 33 {
		t.Fatalf("heartbeat interval = %v, want ~33ms for 30Hz", r.HeartbeatInterval)
	}
	if r.RetryCap != 3 {
		t.Fatalf("retry cap = %d, want 3", r.RetryCap)
	}
	if r.MaxSnapshotEntities != 10 {
		t.Fatalf("max entities = %d, want 10", r.MaxSnapshotEntities)
	}
}
