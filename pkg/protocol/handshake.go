package protocol

import (
	"github.com/tindalos-systems/factoriolink/pkg/wire"
)

// ConnectionRequest is the first handshake message the client sends
// (spec.md §4.3: Disconnected -> AwaitingReply).
type ConnectionRequest struct {
	Version  ApplicationVersion
	Username string
}

// EncodePayload serializes the message body (the part after the
// common packet header built by pkg/wire/packet).
func (m ConnectionRequest) EncodePayload() []byte {
	w := wire.NewWriter()
	m.Version.encode(w)
	w.WriteLenPrefixed8([]byte(m.Username))
	return w.Bytes()
}

// DecodeConnectionRequest parses a ConnectionRequest payload.
func DecodeConnectionRequest(payload []byte) (ConnectionRequest, error) {
	r := wire.NewReader(payload)
	var m ConnectionRequest
	var err error
	if m.Version, err = decodeApplicationVersion(r); err != nil {
		return m, err
	}
	name, err := r.ReadLenPrefixed8()
	if err != nil {
		return m, err
	}
	m.Username = string(name)
	return m, nil
}

// ConnectionRequestReply is the server's answer, echoing its own
// version and a server key the client must fold into the confirm step
// (spec.md §4.3: AwaitingReply -> AwaitingAcceptDeny).
type ConnectionRequestReply struct {
	Version   ApplicationVersion
	ServerKey string
}

func DecodeConnectionRequestReply(payload []byte) (ConnectionRequestReply, error) {
	r := wire.NewReader(payload)
	var m ConnectionRequestReply
	var err error
	if m.Version, err = decodeApplicationVersion(r); err != nil {
		return m, err
	}
	key, err := r.ReadLenPrefixed8()
	if err != nil {
		return m, err
	}
	m.ServerKey = string(key)
	return m, nil
}

// ConnectionRequestReplyConfirm carries the client's credentials and
// mod list back to the server (spec.md §4.3). PasswordHash is empty
// when the server requires none, matching
// original_source/src/protocol/message.rs's ConnectionRequestReplyConfirm.
type ConnectionRequestReplyConfirm struct {
	Username     string
	PasswordHash string
	ServerKey    string
	Timestamp    string
	Mods         []ModInfo
}

func NewConnectionRequestReplyConfirm(creds Credentials) ConnectionRequestReplyConfirm {
	return ConnectionRequestReplyConfirm{
		Username:     creds.Username,
		PasswordHash: creds.PasswordHash,
		ServerKey:    creds.ServerKey,
		Timestamp:    creds.Timestamp,
		Mods:         creds.Mods,
	}
}

func (m ConnectionRequestReplyConfirm) EncodePayload() []byte {
	w := wire.NewWriter()
	w.WriteLenPrefixed8([]byte(m.Username))
	w.WriteLenPrefixed8([]byte(m.PasswordHash))
	w.WriteLenPrefixed8([]byte(m.ServerKey))
	w.WriteLenPrefixed8([]byte(m.Timestamp))
	w.WriteVarInt(uint32(len(m.Mods)))
	for _, mod := range m.Mods {
		mod.encode(w)
	}
	return w.Bytes()
}

// ConnectionAcceptOrDeny is the server's final handshake verdict
// (spec.md §4.3: AwaitingAcceptDeny -> MapDownload, or -> Disconnected
// on denial). TotalBlocks is one of the two possible sources of the
// map transfer's declared block count (spec.md §9 open question); 0
// means the server didn't announce it here and the count must be
// inferred from the first TransferBlock instead.
type ConnectionAcceptOrDeny struct {
	Accepted     bool
	PlayerID     uint16
	TotalBlocks  uint32
	DenialReason DenialReason
}

func DecodeConnectionAcceptOrDeny(payload []byte) (ConnectionAcceptOrDeny, error) {
	r := wire.NewReader(payload)
	var m ConnectionAcceptOrDeny
	accepted, err := r.ReadBool()
	if err != nil {
		return m, err
	}
	m.Accepted = accepted
	if accepted {
		playerID, err := r.ReadU16()
		if err != nil {
			return m, err
		}
		m.PlayerID = playerID
		// TotalBlocks is optional: a peer that doesn't announce it here
		// simply ends the message, leaving the first TransferBlock to
		// carry the count instead.
		if r.Remaining() > 0 {
			total, err := r.ReadVarInt()
			if err != nil {
				return m, err
			}
			m.TotalBlocks = total
		}
		return m, nil
	}
	reason, err := r.ReadU8()
	if err != nil {
		return m, err
	}
	m.DenialReason = DenialReason(reason)
	return m, nil
}
