// Package session implements the public Session API (spec.md §6):
// connect, submit input actions, drain events, read the world
// snapshot, and disconnect. It is the one place that owns the UDP
// socket and every other package's state for the lifetime of a
// connection (spec.md §5: "single-threaded cooperative").
package session

import (
	"github.com/tindalos-systems/factoriolink/pkg/protocol"
	"github.com/tindalos-systems/factoriolink/pkg/savedecode"
)

// EventKind tags which fields of an Event are populated, following
// spec.md §9's "tagged variant over phases with payload specific to
// each phase" style used for the connection FSM.
type EventKind uint8

const (
	EventConnecting EventKind = iota
	EventConnected
	EventMapProgress
	EventWorldReady
	EventTickConfirmed
	EventDesyncSuspected
	EventDisconnected
	EventProtocolError
)

func (k EventKind) String() string {
	switch k {
	case EventConnecting:
		return "Connecting"
	case EventConnected:
		return "Connected"
	case EventMapProgress:
		return "MapProgress"
	case EventWorldReady:
		return "WorldReady"
	case EventTickConfirmed:
		return "TickConfirmed"
	case EventDesyncSuspected:
		return "DesyncSuspected"
	case EventDisconnected:
		return "Disconnected"
	case EventProtocolError:
		return "ProtocolError"
	default:
		return "Unknown"
	}
}

// Event is one entry in the session's event stream (spec.md §6).
type Event struct {
	Kind EventKind

	Phase    string                  // Connecting
	PlayerID uint16                  // Connected
	Received uint32                  // MapProgress
	Total    uint32                  // MapProgress
	Snapshot savedecode.WorldSnapshot // WorldReady

	Tick     uint32 // TickConfirmed, DesyncSuspected
	Checksum uint32 // TickConfirmed

	Expected uint32 // DesyncSuspected
	Got      uint32 // DesyncSuspected

	DisconnectReason protocol.DisconnectReason // Disconnected

	ErrorKind    string // ProtocolError
	ErrorContext string // ProtocolError
}

func connectingEvent(phase string) Event {
	return Event{Kind: EventConnecting, Phase: phase}
}

func connectedEvent(playerID uint16) Event {
	return Event{Kind: EventConnected, PlayerID: playerID}
}

func mapProgressEvent(received, total uint32) Event {
	return Event{Kind: EventMapProgress, Received: received, Total: total}
}

func worldReadyEvent(snap savedecode.WorldSnapshot) Event {
	return Event{Kind: EventWorldReady, Snapshot: snap}
}

func tickConfirmedEvent(tick, checksum uint32) Event {
	return Event{Kind: EventTickConfirmed, Tick: tick, Checksum: checksum}
}

func desyncSuspectedEvent(tick, expected, got uint32) Event {
	return Event{Kind: EventDesyncSuspected, Tick: tick, Expected: expected, Got: got}
}

func disconnectedEvent(reason protocol.DisconnectReason) Event {
	return Event{Kind: EventDisconnected, DisconnectReason: reason}
}

func protocolErrorEvent(kind, context string) Event {
	return Event{Kind: EventProtocolError, ErrorKind: kind, ErrorContext: context}
}
