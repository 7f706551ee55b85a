package packet

import (
	"github.com/tindalos-systems/factoriolink/pkg/wire"
)

// MaxPacketSize is the MTU-safe ceiling for a single outbound datagram
// (spec.md §6); logical messages larger than this must be fragmented.
const MaxPacketSize = 1400

const (
	typeReliableBit   uint8 = 0x20
	typeFragmentedBit uint8 = 0x40

	msgIDConfirmBit uint16 = 0x8000
	msgIDMask       uint16 = 0x7FFF
)

// Header is a parsed packet header (spec.md §3, §4.2).
type Header struct {
	MessageType   MessageType
	Reliable      bool
	Fragmented    bool
	MessageID     uint16
	HasConfirms   bool
	FragmentID    uint16 // valid iff Fragmented
	Confirmations []uint32
}

// Parse decodes a packet header from the front of data and returns the
// header plus the index at which the payload begins.
func Parse(data []byte) (Header, int, error) {
	r := wire.NewReader(data)

	typeByte, err := r.ReadU8()
	if err != nil {
		return Header{}, 0, err
	}
	msgType, err := messageTypeFromByte(typeByte)
	if err != nil {
		return Header{}, 0, err
	}
	reliable := typeByte&typeReliableBit != 0
	fragmented := typeByte&typeFragmentedBit != 0

	rawMsgID, err := r.ReadU16()
	if err != nil {
		return Header{}, 0, err
	}
	hasConfirms := rawMsgID&msgIDConfirmBit != 0
	msgID := rawMsgID & msgIDMask

	var fragmentID uint16
	if fragmented {
		fragmentID, err = r.ReadVarShort()
		if err != nil {
			return Header{}, 0, err
		}
	}

	var confirmations []uint32
	if hasConfirms {
		count, err := r.ReadVarInt()
		if err != nil {
			return Header{}, 0, err
		}
		confirmations = make([]uint32, 0, count)
		for i := uint32(0); i < count; i++ {
			id, err := r.ReadU32()
			if err != nil {
				return Header{}, 0, err
			}
			confirmations = append(confirmations, id)
		}
	}

	h := Header{
		MessageType:   msgType,
		Reliable:      reliable,
		Fragmented:    fragmented,
		MessageID:     msgID,
		HasConfirms:   hasConfirms,
		FragmentID:    fragmentID,
		Confirmations: confirmations,
	}
	return h, r.Position(), nil
}

// Emit serializes a header followed by payload into a single datagram.
// Reliable and HasConfirms bits are set independently by the
// reliability layer; Fragmented and FragmentID/Confirmations must be
// consistent with each other (spec.md §4.2).
func Emit(h Header, payload []byte) []byte {
	w := wire.NewWriter()

	typeByte := uint8(h.MessageType)
	if h.Reliable {
		typeByte |= typeReliableBit
	}
	if h.Fragmented {
		typeByte |= typeFragmentedBit
	}
	w.WriteU8(typeByte)

	rawMsgID := h.MessageID & msgIDMask
	if h.HasConfirms {
		rawMsgID |= msgIDConfirmBit
	}
	w.WriteU16(rawMsgID)

	if h.Fragmented {
		w.WriteVarShort(h.FragmentID)
	}

	if h.HasConfirms {
		w.WriteVarInt(uint32(len(h.Confirmations)))
		for _, id := range h.Confirmations {
			w.WriteU32(id)
		}
	}

	w.WriteBytes(payload)
	return w.Bytes()
}
