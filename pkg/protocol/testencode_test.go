package protocol

import "github.com/tindalos-systems/factoriolink/pkg/wire"

// These encoders exist only to build synthetic server traffic for
// tests; the client never originates ConnectionRequestReply or
// ConnectionAcceptOrDeny itself.

func encodeConnectionRequestReplyForTest(m ConnectionRequestReply) []byte {
	w := wire.NewWriter()
	m.Version.encode(w)
	w.WriteLenPrefixed8([]byte(m.ServerKey))
	return w.Bytes()
}

func encodeConnectionAcceptOrDenyForTest(m ConnectionAcceptOrDeny) []byte {
	w := wire.NewWriter()
	w.WriteBool(m.Accepted)
	if m.Accepted {
		w.WriteU16(m.PlayerID)
	} else {
		w.WriteU8(uint8(m.DenialReason))
	}
	return w.Bytes()
}
