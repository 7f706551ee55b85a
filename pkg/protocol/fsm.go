package protocol

import (
	"time"

	"github.com/tindalos-systems/factoriolink/pkg/ferrors"
	"github.com/tindalos-systems/factoriolink/pkg/wire/packet"
)

// ConnectionState is one state of the connection FSM (spec.md §4.3).
type ConnectionState uint8

const (
	Disconnected ConnectionState = iota
	AwaitingReply
	AwaitingAcceptDeny
	MapDownload
	InGame
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case AwaitingReply:
		return "AwaitingReply"
	case AwaitingAcceptDeny:
		return "AwaitingAcceptDeny"
	case MapDownload:
		return "MapDownload"
	case InGame:
		return "InGame"
	default:
		return "Unknown"
	}
}

// Outcome reports what the FSM produced for a driven transition: a
// packet payload to send (PacketType/Payload), an error fatal to the
// session, or nothing if the input was accepted but produced no
// immediate send (e.g. MapDownload progressing without completing).
type Outcome struct {
	Send        bool
	PacketType  packet.MessageType
	Payload     []byte
	PlayerID    uint16
	TotalBlocks uint32
	Err         error
}

// FSM drives the connection handshake (spec.md §4.3). It is not safe
// for concurrent use; the session's single cooperative I/O task owns
// it exclusively.
type FSM struct {
	state ConnectionState

	version  ApplicationVersion
	username string
	creds    Credentials

	phaseDeadline time.Time
	retryBudget   int
	retriesUsed   int
}

// NewFSM builds an FSM starting in Disconnected, with the given
// per-phase retry budget (spec.md §6).
func NewFSM(version ApplicationVersion, creds Credentials, retryBudget int) *FSM {
	return &FSM{
		state:       Disconnected,
		version:     version,
		username:    creds.Username,
		creds:       creds,
		retryBudget: retryBudget,
	}
}

// State returns the FSM's current state.
func (f *FSM) State() ConnectionState { return f.state }

// Start begins the handshake: emits a ConnectionRequest and moves to
// AwaitingReply.
func (f *FSM) Start(now time.Time, phaseTimeout time.Duration) Outcome {
	f.state = AwaitingReply
	f.phaseDeadline = now.Add(phaseTimeout)
	f.retriesUsed = 0
	req := ConnectionRequest{Version: f.version, Username: f.username}
	return Outcome{Send: true, PacketType: packet.ConnectionRequest, Payload: req.EncodePayload()}
}

// HandleConnectionRequestReply advances AwaitingReply -> AwaitingAcceptDeny.
func (f *FSM) HandleConnectionRequestReply(payload []byte, now time.Time, phaseTimeout time.Duration) Outcome {
	if f.state != AwaitingReply {
		return Outcome{Err: &ferrors.ProtocolError{Kind: "unexpected-message", Context: "ConnectionRequestReply", Cause: nil}}
	}
	reply, err := DecodeConnectionRequestReply(payload)
	if err != nil {
		return Outcome{Err: err}
	}
	f.creds.ServerKey = reply.ServerKey
	f.state = AwaitingAcceptDeny
	f.phaseDeadline = now.Add(phaseTimeout)
	f.retriesUsed = 0
	confirm := NewConnectionRequestReplyConfirm(f.creds)
	return Outcome{Send: true, PacketType: packet.ConnectionRequestReplyConfirm, Payload: confirm.EncodePayload()}
}

// HandleAcceptOrDeny advances AwaitingAcceptDeny -> MapDownload on
// acceptance, or -> Disconnected with a fatal HandshakeDenied error.
func (f *FSM) HandleAcceptOrDeny(payload []byte, now time.Time, phaseTimeout time.Duration) Outcome {
	if f.state != AwaitingAcceptDeny {
		return Outcome{Err: &ferrors.ProtocolError{Kind: "unexpected-message", Context: "ConnectionAcceptOrDeny", Cause: nil}}
	}
	verdict, err := DecodeConnectionAcceptOrDeny(payload)
	if err != nil {
		return Outcome{Err: err}
	}
	if !verdict.Accepted {
		f.state = Disconnected
		return Outcome{Err: &ferrors.HandshakeDenied{Reason: verdict.DenialReason.String()}}
	}
	f.state = MapDownload
	f.phaseDeadline = now.Add(phaseTimeout)
	f.retriesUsed = 0
	return Outcome{PlayerID: verdict.PlayerID, TotalBlocks: verdict.TotalBlocks}
}

// CompleteMapDownload advances MapDownload -> InGame once the map
// transfer layer reports the archive fully reassembled and decoded.
func (f *FSM) CompleteMapDownload(now time.Time) {
	f.state = InGame
	f.phaseDeadline = time.Time{}
}

// CheckTimeout checks the current phase's deadline. Before the
// deadline it returns nil; once it has passed with retry budget
// remaining, it bumps the retry counter, extends the deadline and
// returns nil. Once the budget is exhausted it returns a fatal
// HandshakeTimeout and resets to Disconnected.
func (f *FSM) CheckTimeout(now time.Time, phaseTimeout time.Duration) error {
	if f.state == Disconnected || f.state == InGame {
		return nil
	}
	if f.phaseDeadline.IsZero() || now.Before(f.phaseDeadline) {
		return nil
	}
	if f.retriesUsed >= f.retryBudget {
		phase := f.state.String()
		f.state = Disconnected
		return &ferrors.HandshakeTimeout{Phase: phase}
	}
	f.retriesUsed++
	f.phaseDeadline = now.Add(phaseTimeout)
	return nil
}

// Reset forces the FSM back to Disconnected, e.g. after a fatal error
// has been surfaced to the caller.
func (f *FSM) Reset() {
	f.state = Disconnected
	f.phaseDeadline = time.Time{}
	f.retriesUsed = 0
}
