package session

import (
	"time"

	"go.uber.org/zap"

	"github.com/tindalos-systems/factoriolink/internal/config"
	"github.com/tindalos-systems/factoriolink/pkg/ferrors"
	"github.com/tindalos-systems/factoriolink/pkg/maptransfer"
	"github.com/tindalos-systems/factoriolink/pkg/protocol"
	"github.com/tindalos-systems/factoriolink/pkg/reliability"
	"github.com/tindalos-systems/factoriolink/pkg/savedecode"
	"github.com/tindalos-systems/factoriolink/pkg/wire/packet"
)

const phaseTimeout = 5 * time.Second

// engine holds every piece of protocol state for one connection,
// independent of the UDP socket itself so it can be driven
// deterministically in tests (spec.md §9: arenas keyed by message ID
// / fragment ID, no shared-ownership graph).
type engine struct {
	log *zap.Logger
	cfg config.Resolved

	fsm             *protocol.FSM
	outbound        *reliability.OutboundTracker
	inboundDedup    *reliability.InboundDedup
	pendingConfirms *reliability.PendingConfirmations
	reassembler     *reliability.Reassembler
	transfer        *maptransfer.Transfer

	nextMsgID        uint16
	heartbeatSeq     uint16
	playerID         uint16
	tick             uint32
	highestServerSeq uint16
	haveServerSeq    bool

	pendingActions   []protocol.InputAction
	expected         map[uint32]uint32
	lastBlockRequest time.Time

	snapshot savedecode.WorldSnapshot
	haveMap  bool
	closed   bool
}

func newEngine(version protocol.ApplicationVersion, creds protocol.Credentials, cfg config.Resolved, log *zap.Logger) *engine {
	return &engine{
		log:             log,
		cfg:             cfg,
		fsm:             protocol.NewFSM(version, creds, cfg.RetryCap),
		outbound:        reliability.NewOutboundTracker(cfg.RetransmitInterval, cfg.RetryCap),
		inboundDedup:    reliability.NewInboundDedup(1024),
		pendingConfirms: reliability.NewPendingConfirmations(cfg.AckWindow),
		reassembler:     reliability.NewReassembler(cfg.FragmentTTL),
		transfer:        maptransfer.NewTransfer(cfg.FragmentTTL),
		expected:        make(map[uint32]uint32),
	}
}

// nextMessageID assigns the next outbound message ID, wrapping within
// the 15 bits not claimed by the confirmation flag (spec.md §8).
func (e *engine) nextMessageID() uint16 {
	id := e.nextMsgID
	e.nextMsgID = (e.nextMsgID + 1) & 0x7FFF
	return id
}

// buildPacket frames payload behind the common header, piggy-backing
// any queued confirmations and tracking the send if reliable.
func (e *engine) buildPacket(msgType packet.MessageType, payload []byte, reliable bool, now time.Time) []byte {
	msgID := e.nextMessageID()
	hasConfirms := e.pendingConfirms.Pending()
	var confirmations []uint32
	if hasConfirms {
		confirmations = e.pendingConfirms.Flush()
	}
	h := packet.Header{
		MessageType:   msgType,
		Reliable:      reliable,
		MessageID:     msgID,
		HasConfirms:   hasConfirms,
		Confirmations: confirmations,
	}
	buf := packet.Emit(h, payload)
	if reliable {
		e.outbound.Track(msgID, buf, now)
	}
	return buf
}

// buildBlockRequest frames a TransferBlockRequest for the lowest block
// index not yet received (spec.md §4.6: "successive block indices
// starting at 0"). Requests are unreliable; loss is covered by the
// Tick-driven re-request below.
func (e *engine) buildBlockRequest(now time.Time) []byte {
	req := maptransfer.BlockRequest{Index: e.transfer.NextRequestIndex()}
	e.lastBlockRequest = now
	return e.buildPacket(packet.TransferBlockRequest, req.EncodePayload(), false, now)
}

// Start kicks off the handshake.
func (e *engine) Start(now time.Time) [][]byte {
	out := e.fsm.Start(now, phaseTimeout)
	if !out.Send {
		return nil
	}
	return [][]byte{e.buildPacket(out.PacketType, out.Payload, true, now)}
}

// QueueAction appends an input action for submission on the next
// outbound heartbeat.
func (e *engine) QueueAction(a protocol.InputAction) {
	e.pendingActions = append(e.pendingActions, a)
}

// ReportExpectedChecksum records what an external re-simulation
// collaborator expects tick's checksum to be, for comparison against
// whatever the server confirms (spec.md §7: "checksum mismatches
// surface as DesyncSuspected, never as errors" — the core itself
// never computes checksums, so it needs this out-of-band input to
// ever produce the event at all).
func (e *engine) ReportExpectedChecksum(tick, expected uint32) {
	e.expected[tick] = expected
}

// fatal builds the single Disconnected event every fatal path must
// produce (spec.md §7) and marks the engine closed.
func (e *engine) fatal(reason protocol.DisconnectReason) []Event {
	e.closed = true
	e.fsm.Reset()
	return []Event{disconnectedEvent(reason)}
}

func disconnectReasonForHandshakeErr(err error) protocol.DisconnectReason {
	switch err.(type) {
	case *ferrors.HandshakeDenied:
		return protocol.DisconnectOther
	case *ferrors.HandshakeTimeout:
		return protocol.DisconnectTimeout
	default:
		return protocol.DisconnectOther
	}
}

// HandleDatagram parses and dispatches one inbound datagram, returning
// any packets to send back and events to publish. A fatal path marks
// the engine closed and ends the events with a Disconnected event.
func (e *engine) HandleDatagram(raw []byte, now time.Time) (toSend [][]byte, events []Event) {
	if e.closed {
		return nil, nil
	}
	header, payloadStart, err := packet.Parse(raw)
	if err != nil {
		return nil, []Event{protocolErrorEvent("framing", err.Error())}
	}
	payload := raw[payloadStart:]

	if header.Reliable && e.inboundDedup.Seen(header.MessageID) {
		e.pendingConfirms.Queue(header.MessageID, now)
		return nil, nil
	}

	if header.Fragmented {
		complete, reassembled, kind, ferr := e.reassembler.AddPiece(header.FragmentID, payload, now)
		if ferr != nil {
			return nil, []Event{protocolErrorEvent("fragment", ferr.Error())}
		}
		if !complete {
			return nil, nil
		}
		e.log.Debug("fragment group complete", zap.Uint16("fragmentId", header.FragmentID), zap.String("termination", kind))
		payload = reassembled
	}

	if header.Reliable {
		e.inboundDedup.Record(header.MessageID)
		e.pendingConfirms.Queue(header.MessageID, now)
	}
	if header.HasConfirms {
		e.outbound.Ack(header.Confirmations)
	}

	switch header.MessageType {
	case packet.ConnectionRequestReply:
		out := e.fsm.HandleConnectionRequestReply(payload, now, phaseTimeout)
		if out.Err != nil {
			return nil, e.fatal(disconnectReasonForHandshakeErr(out.Err))
		}
		if out.Send {
			toSend = append(toSend, e.buildPacket(out.PacketType, out.Payload, true, now))
		}
		return toSend, nil

	case packet.ConnectionAcceptOrDeny:
		out := e.fsm.HandleAcceptOrDeny(payload, now, phaseTimeout)
		if out.Err != nil {
			if _, denied := out.Err.(*ferrors.HandshakeDenied); denied {
				return nil, e.fatal(protocol.DisconnectOther)
			}
			return nil, e.fatal(disconnectReasonForHandshakeErr(out.Err))
		}
		e.playerID = out.PlayerID
		if out.TotalBlocks > 0 {
			e.transfer.SetTotalFromAcceptMessage(out.TotalBlocks, now)
		}
		toSend = append(toSend, e.buildBlockRequest(now))
		return toSend, []Event{connectedEvent(out.PlayerID)}

	case packet.TransferBlock:
		block, berr := maptransfer.DecodeBlock(payload)
		if berr != nil {
			return nil, []Event{protocolErrorEvent("map-transfer", berr.Error())}
		}
		e.transfer.AddBlock(block, now)
		if block.Index == 0 && block.TotalBlocks > 0 {
			e.transfer.InferTotalFromFirstBlock(block.TotalBlocks)
		}
		events = append(events, mapProgressEvent(uint32(e.transfer.ReceivedCount()), e.transfer.Total()))

		if e.transfer.Complete() {
			buf, terr := e.transfer.Buffer()
			if terr != nil {
				return nil, append(events, e.fatal(protocol.DisconnectOther)...)
			}
			archive, aerr := maptransfer.OpenArchive(buf)
			if aerr != nil {
				return nil, append(events, e.fatal(protocol.DisconnectOther)...)
			}
			entries := make(map[string][]byte)
			for _, name := range archive.Names() {
				data, oerr := archive.Open(name)
				if oerr != nil {
					e.log.Warn("failed to open map archive entry", zap.String("entry", name), zap.Error(oerr))
					continue
				}
				entries[name] = data
			}
			snap, derr := savedecode.Decode(entries, e.cfg.MaxSnapshotEntities)
			if derr != nil {
				e.log.Warn("one or more level.dat entries were rejected", zap.Error(derr))
			}
			e.snapshot = snap
			e.haveMap = true
			e.fsm.CompleteMapDownload(now)
			events = append(events, worldReadyEvent(snap))
			return nil, events
		}
		toSend = append(toSend, e.buildBlockRequest(now))
		return toSend, events

	case packet.ServerToClientHeartbeat:
		hb, herr := protocol.DecodeServerHeartbeat(payload)
		if herr != nil {
			return nil, []Event{protocolErrorEvent("heartbeat", herr.Error())}
		}
		if e.haveServerSeq && protocol.SequenceStale(e.highestServerSeq, hb.Sequence) {
			return nil, nil
		}
		if !e.haveServerSeq || protocol.SequenceAdvances(e.highestServerSeq, hb.Sequence) {
			e.highestServerSeq = hb.Sequence
			e.haveServerSeq = true
		}
		for _, c := range hb.Confirmations {
			events = append(events, tickConfirmedEvent(c.Tick, c.Checksum))
			if want, ok := e.expected[c.Tick]; ok {
				delete(e.expected, c.Tick)
				if want != c.Checksum {
					events = append(events, desyncSuspectedEvent(c.Tick, want, c.Checksum))
				}
			}
		}
		return nil, events

	default:
		return nil, []Event{protocolErrorEvent("unexpected-message-type", header.MessageType.String())}
	}
}

// Tick drives the timer-triggered half of the engine: handshake phase
// timeouts, reliable retransmits, fragment TTL reaping, map transfer
// timeouts, and (once InGame) the outbound client heartbeat carrying
// any queued input actions.
func (e *engine) Tick(now time.Time) (toSend [][]byte, events []Event) {
	if e.closed {
		return nil, nil
	}

	if err := e.fsm.CheckTimeout(now, phaseTimeout); err != nil {
		return nil, e.fatal(protocol.DisconnectTimeout)
	}

	if e.fsm.State() == protocol.MapDownload && e.transfer.TimedOut(now) {
		e.log.Warn("map transfer timed out", zap.Uint32("missingBlock", e.transfer.MissingBlockIndex()))
		return nil, e.fatal(protocol.DisconnectTimeout)
	}

	if expired := e.reassembler.ReapExpired(now); len(expired) > 0 {
		e.log.Debug("reaped expired fragment groups", zap.Int("count", len(expired)))
	}

	resend, rerr := e.outbound.DueRetransmit(now)
	for _, pkt := range resend {
		toSend = append(toSend, pkt)
	}
	if rerr != nil {
		return toSend, append(events, e.fatal(protocol.DisconnectOther)...)
	}

	if e.pendingConfirms.DueForEmptyCarrier(now) {
		toSend = append(toSend, e.buildPacket(packet.Empty, nil, false, now))
	}

	// Re-request the lowest missing block if the last request has gone
	// unanswered for a retransmit interval.
	if e.fsm.State() == protocol.MapDownload && !e.transfer.Complete() &&
		now.Sub(e.lastBlockRequest) >= e.cfg.RetransmitInterval {
		toSend = append(toSend, e.buildBlockRequest(now))
	}

	if e.fsm.State() == protocol.InGame {
		hb := protocol.ClientHeartbeat{
			Sequence:       e.heartbeatSeq,
			PendingActions: e.pendingActions,
		}
		e.heartbeatSeq++
		e.pendingActions = nil
		e.tick++
		toSend = append(toSend, e.buildPacket(packet.ClientToServerHeartbeat, hb.EncodePayload(), false, now))
	}

	return toSend, events
}

// Disconnect builds a best-effort notice to the peer and the terminal
// Disconnected event for a caller-initiated shutdown.
func (e *engine) Disconnect(now time.Time) ([][]byte, []Event) {
	if e.closed {
		return nil, nil
	}
	pkt := e.buildPacket(packet.RequestHeartbeatOnDisconnecting, nil, false, now)
	return [][]byte{pkt}, e.fatal(protocol.DisconnectUserRequested)
}

// Snapshot returns the most recently decoded world snapshot, zero
// value until WorldReady has fired.
func (e *engine) Snapshot() savedecode.WorldSnapshot { return e.snapshot }
