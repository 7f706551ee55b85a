// Package config holds the Config struct recognized at connect time
// (spec.md §6), resolved with zero-value-means-default semantics the
// way the teacher's UdpSpanreedDestinationParams/ProxyConfig do.
package config

import "time"

// Config is the set of tunables a caller may override when opening a
// Session. Any field left at its zero value falls back to the
// documented default in Resolve.
type Config struct {
	HeartbeatHz         int
	RetransmitMs        int
	RetryCap            int
	AckWindowMs         int
	FragmentTTLMs       int
	MaxSnapshotEntities int
}

const (
	DefaultHeartbeatHz         = 60
	DefaultRetransmitMs        = 200
	DefaultRetryCap            = 10
	DefaultAckWindowMs         = 50
	DefaultFragmentTTLMs       = 5000
	DefaultMaxSnapshotEntities = 1_000_000
)

// Resolved is a Config with every field populated, ready to drive the
// session's timers and caches.
type Resolved struct {
	HeartbeatInterval   time.Duration
	RetransmitInterval  time.Duration
	RetryCap            int
	AckWindow           time.Duration
	FragmentTTL         time.Duration
	MaxSnapshotEntities int
}

// Resolve fills in defaults for any zero-valued field and converts
// the millisecond/Hz fields the caller sets into time.Duration.
func Resolve(c Config) Resolved {
	hz := c.HeartbeatHz
	if hz <= 0 {
		hz = DefaultHeartbeatHz
	}
	retransmitMs := c.RetransmitMs
	if retransmitMs <= 0 {
		retransmitMs = DefaultRetransmitMs
	}
	retryCap := c.RetryCap
	if retryCap <= 0 {
		retryCap = DefaultRetryCap
	}
	ackWindowMs := c.AckWindowMs
	if ackWindowMs <= 0 {
		ackWindowMs = DefaultAckWindowMs
	}
	fragmentTTLMs := c.FragmentTTLMs
	if fragmentTTLMs <= 0 {
		fragmentTTLMs = DefaultFragmentTTLMs
	}
	maxEntities := c.MaxSnapshotEntities
	if maxEntities <= 0 {
		maxEntities = DefaultMaxSnapshotEntities
	}

	return Resolved{
		HeartbeatInterval:   time.Second / time.Duration(hz),
		RetransmitInterval:  time.Duration(retransmitMs) * time.Millisecond,
		RetryCap:            retryCap,
		AckWindow:           time.Duration(ackWindowMs) * time.Millisecond,
		FragmentTTL:         time.Duration(fragmentTTLMs) * time.Millisecond,
		MaxSnapshotEntities: maxEntities,
	}
}
