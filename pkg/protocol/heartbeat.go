package protocol

import (
	"github.com/tindalos-systems/factoriolink/pkg/ferrors"
	"github.com/tindalos-systems/factoriolink/pkg/wire"
)

// heartbeatMarker follows the flags+sequence prefix on every heartbeat
// payload in both directions (spec.md §4.5). The value is taken
// verbatim from spec.md's own byte layout; note that the pcap captured
// by original_source/src/codec/heartbeat.rs observed the similar but
// distinct confirmation-record marker 0x02 0x52 0x01 for a different
// purpose (see confirmationMarker below) -- the two must not be
// confused.
var heartbeatMarker = [2]byte{0x1C, 0x00}

// confirmationMarker opens each TickConfirmation record nested inside
// a heartbeat payload (spec.md §4.5).
var confirmationMarker = [3]byte{0x02, 0x52, 0x00}

const (
	heartbeatFlagSingleTick    uint8 = 0x06
	heartbeatFlagMultiTick     uint8 = 0x02
	heartbeatFlagPlayerState   uint8 = 0x10
	confirmationRecordCoreSize       = 3 + 4 + 4 // marker + checksum + tick
)

// TickConfirmation is one server-confirmed tick with its checksum
// (spec.md §4.5, §3).
type TickConfirmation struct {
	Checksum uint32
	Tick     uint32
}

func (c TickConfirmation) encode(w *wire.Writer) {
	w.WriteBytes(confirmationMarker[:])
	w.WriteU32(c.Checksum)
	w.WriteU32(c.Tick)
}

func decodeTickConfirmation(r *wire.Reader) (TickConfirmation, error) {
	var c TickConfirmation
	marker, err := r.ReadBytes(3)
	if err != nil {
		return c, err
	}
	if marker[0] != confirmationMarker[0] || marker[1] != confirmationMarker[1] || marker[2] != confirmationMarker[2] {
		return c, &ferrors.BadMagic{Context: "heartbeat confirmation record"}
	}
	if c.Checksum, err = r.ReadU32(); err != nil {
		return c, err
	}
	if c.Tick, err = r.ReadU32(); err != nil {
		return c, err
	}
	// Skip zero padding up to the next record or end of buffer, grounded
	// on original_source/src/codec/heartbeat.rs's identical skip loop.
	for r.Remaining() > 0 {
		rest := r.RemainingSlice()
		if len(rest) >= 3 && rest[0] == confirmationMarker[0] && rest[1] == confirmationMarker[1] && rest[2] == confirmationMarker[2] {
			break
		}
		if rest[0] != 0 {
			break
		}
		_ = r.Skip(1)
	}
	return c, nil
}

// PlayerStateRecord is a minimal local-player state snapshot carried
// when heartbeatFlagPlayerState is set. spec.md names the flag but
// does not detail the record's contents; this client keeps only the
// fields it actually needs downstream (position and facing).
type PlayerStateRecord struct {
	Position  MapPosition
	Direction Direction
}

func (p PlayerStateRecord) encode(w *wire.Writer) {
	w.WriteFixed32(p.Position.X)
	w.WriteFixed32(p.Position.Y)
	w.WriteU8(uint8(p.Direction))
}

func decodePlayerStateRecord(r *wire.Reader) (PlayerStateRecord, error) {
	var p PlayerStateRecord
	var err error
	if p.Position.X, err = r.ReadFixed32(); err != nil {
		return p, err
	}
	if p.Position.Y, err = r.ReadFixed32(); err != nil {
		return p, err
	}
	d, err := r.ReadU8()
	if err != nil {
		return p, err
	}
	p.Direction = Direction(d)
	return p, nil
}

// ClientHeartbeat is the payload the client sends each tick (or group
// of ticks in multi-tick mode), carrying whatever input actions are
// queued for submission (spec.md §4.5).
type ClientHeartbeat struct {
	MultiTick      bool
	HasPlayerState bool
	Sequence       uint16
	Confirmations  []TickConfirmation
	PlayerState    PlayerStateRecord
	PendingActions []InputAction
}

func (h ClientHeartbeat) EncodePayload() []byte {
	w := wire.NewWriter()
	flags := heartbeatFlagSingleTick
	if h.MultiTick {
		flags = heartbeatFlagMultiTick
	}
	if h.HasPlayerState {
		flags |= heartbeatFlagPlayerState
	}
	w.WriteU8(flags)
	w.WriteU16(h.Sequence)
	w.WriteBytes(heartbeatMarker[:])

	if h.MultiTick {
		w.WriteVarInt(uint32(len(h.Confirmations)))
		for _, c := range h.Confirmations {
			c.encode(w)
		}
	}
	if h.HasPlayerState {
		h.PlayerState.encode(w)
	}
	w.WriteVarInt(uint32(len(h.PendingActions)))
	for _, a := range h.PendingActions {
		a.Encode(w)
	}
	return w.Bytes()
}

// DecodeClientHeartbeat parses a ClientHeartbeat payload. The server
// side of this protocol would use it; the client keeps it to decode
// its own retransmits when testing against captured traffic.
func DecodeClientHeartbeat(payload []byte) (ClientHeartbeat, error) {
	r := wire.NewReader(payload)
	var h ClientHeartbeat
	flags, err := r.ReadU8()
	if err != nil {
		return h, err
	}
	// heartbeatFlagSingleTick (0x06) and heartbeatFlagMultiTick (0x02)
	// share the 0x02 bit, so MultiTick must compare the tick-mode bits
	// against the full enumerated value, not test a single bit.
	h.HasPlayerState = flags&heartbeatFlagPlayerState != 0
	h.MultiTick = flags&^heartbeatFlagPlayerState == heartbeatFlagMultiTick
	if h.Sequence, err = r.ReadU16(); err != nil {
		return h, err
	}
	marker, err := r.ReadBytes(2)
	if err != nil {
		return h, err
	}
	if marker[0] != heartbeatMarker[0] || marker[1] != heartbeatMarker[1] {
		return h, &ferrors.BadMagic{Context: "client heartbeat"}
	}

	if h.MultiTick {
		count, err := r.ReadVarInt()
		if err != nil {
			return h, err
		}
		h.Confirmations = make([]TickConfirmation, 0, count)
		for i := uint32(0); i < count; i++ {
			c, err := decodeTickConfirmation(r)
			if err != nil {
				return h, err
			}
			h.Confirmations = append(h.Confirmations, c)
		}
	}
	if h.HasPlayerState {
		if h.PlayerState, err = decodePlayerStateRecord(r); err != nil {
			return h, err
		}
	}
	actionCount, err := r.ReadVarInt()
	if err != nil {
		return h, err
	}
	h.PendingActions = make([]InputAction, 0, actionCount)
	for i := uint32(0); i < actionCount; i++ {
		a, err := DecodeInputAction(r)
		if err != nil {
			return h, err
		}
		h.PendingActions = append(h.PendingActions, a)
	}
	return h, nil
}

// ServerHeartbeat is the payload the server sends back, confirming
// ticks by checksum rather than replaying world state (spec.md §4.5,
// §2: "deterministic lockstep").
type ServerHeartbeat struct {
	MultiTick      bool
	HasPlayerState bool
	Sequence       uint16
	Confirmations  []TickConfirmation
	PlayerState    PlayerStateRecord
}

func DecodeServerHeartbeat(payload []byte) (ServerHeartbeat, error) {
	r := wire.NewReader(payload)
	var h ServerHeartbeat
	flags, err := r.ReadU8()
	if err != nil {
		return h, err
	}
	h.HasPlayerState = flags&heartbeatFlagPlayerState != 0
	h.MultiTick = flags&^heartbeatFlagPlayerState == heartbeatFlagMultiTick
	if h.Sequence, err = r.ReadU16(); err != nil {
		return h, err
	}
	marker, err := r.ReadBytes(2)
	if err != nil {
		return h, err
	}
	if marker[0] != heartbeatMarker[0] || marker[1] != heartbeatMarker[1] {
		return h, &ferrors.BadMagic{Context: "server heartbeat"}
	}

	// Unlike the client side, the server always confirms at least one
	// tick by checksum, whether or not MultiTick groups several.
	count, err := r.ReadVarInt()
	if err != nil {
		return h, err
	}
	h.Confirmations = make([]TickConfirmation, 0, count)
	for i := uint32(0); i < count; i++ {
		c, err := decodeTickConfirmation(r)
		if err != nil {
			return h, err
		}
		h.Confirmations = append(h.Confirmations, c)
	}
	if h.HasPlayerState {
		if h.PlayerState, err = decodePlayerStateRecord(r); err != nil {
			return h, err
		}
	}
	return h, nil
}

// EncodePayload serializes a ServerHeartbeat. Only used by tests that
// build synthetic server traffic; the client never originates one.
func (h ServerHeartbeat) EncodePayload() []byte {
	w := wire.NewWriter()
	flags := heartbeatFlagSingleTick
	if h.MultiTick {
		flags = heartbeatFlagMultiTick
	}
	if h.HasPlayerState {
		flags |= heartbeatFlagPlayerState
	}
	w.WriteU8(flags)
	w.WriteU16(h.Sequence)
	w.WriteBytes(heartbeatMarker[:])
	w.WriteVarInt(uint32(len(h.Confirmations)))
	for _, c := range h.Confirmations {
		c.encode(w)
	}
	if h.HasPlayerState {
		h.PlayerState.encode(w)
	}
	return w.Bytes()
}

// SequenceWrapped reports whether next is the expected successor of
// prev under 16-bit wraparound (spec.md §4.5).
func SequenceWrapped(prev, next uint16) bool {
	return next == prev+1
}

// sequenceWindow bounds how far behind the highest seen sequence a
// server heartbeat may be before it's treated as stale (spec.md §4.5:
// "more than one window behind the highest seen is ignored"). The
// spec leaves the window size itself unstated; this reuses
// InboundDedup's 1024-entry window as the same order-of-magnitude
// tolerance for reordering elsewhere in the engine.
const sequenceWindow = 1024

// sequenceDelta returns seq's signed distance from highest under
// 16-bit wraparound, normalized to [-32768, 32767]: positive means
// seq is ahead of highest, negative means it's behind.
func sequenceDelta(highest, seq uint16) int32 {
	d := int32(seq) - int32(highest)
	return (d+1<<15)&0xFFFF - 1<<15
}

// SequenceStale reports whether seq is more than one window behind
// highest, accounting for 16-bit wraparound -- the condition spec.md
// §4.5 says makes a server heartbeat's sequence something to ignore.
func SequenceStale(highest, seq uint16) bool {
	return sequenceDelta(highest, seq) < -sequenceWindow
}

// SequenceAdvances reports whether seq should replace highest as the
// new high-water mark, i.e. seq is strictly ahead of highest.
func SequenceAdvances(highest, seq uint16) bool {
	return sequenceDelta(highest, seq) > 0
}
