// Package packet implements the packet framing layer (spec.md §4.2):
// the type/flags byte, message IDs, fragment IDs, and the piggy-backed
// confirmation list.
package packet

import "github.com/tindalos-systems/factoriolink/pkg/ferrors"

// MessageType is the 5-bit message type enum carried in the low bits
// of every packet's type byte. Values are fixed by the wire protocol
// (grounded on original_source/src/protocol/packet.rs) and must not be
// renumbered.
type MessageType uint8

const (
	Ping                            MessageType = 0
	PingReply                       MessageType = 1
	ConnectionRequest               MessageType = 2
	ConnectionRequestReply          MessageType = 3
	ConnectionRequestReplyConfirm   MessageType = 4
	ConnectionAcceptOrDeny          MessageType = 5
	ClientToServerHeartbeat         MessageType = 6
	ServerToClientHeartbeat         MessageType = 7
	GetOwnAddress                   MessageType = 8
	GetOwnAddressReply              MessageType = 9
	NatPunchRequest                 MessageType = 10
	NatPunch                        MessageType = 11
	TransferBlockRequest            MessageType = 12
	TransferBlock                   MessageType = 13
	RequestHeartbeatOnDisconnecting MessageType = 14
	LANBroadcast                    MessageType = 15
	GameInformationRequest          MessageType = 16
	GameInformationRequestReply     MessageType = 17
	Empty                           MessageType = 18
)

// messageTypeBits masks the low 5 bits of a type byte; only values
// 0x00-0x12 (Ping through Empty) are accepted.
const messageTypeBits = 0x1F

func messageTypeFromByte(b uint8) (MessageType, error) {
	v := b & messageTypeBits
	if v > uint8(Empty) {
		return 0, &ferrors.UnknownMessageType{Value: b}
	}
	return MessageType(v), nil
}

// String renders the message type's name for logging.
func (t MessageType) String() string {
	switch t {
	case Ping:
		return "Ping"
	case PingReply:
		return "PingReply"
	case ConnectionRequest:
		return "ConnectionRequest"
	case ConnectionRequestReply:
		return "ConnectionRequestReply"
	case ConnectionRequestReplyConfirm:
		return "ConnectionRequestReplyConfirm"
	case ConnectionAcceptOrDeny:
		return "ConnectionAcceptOrDeny"
	case ClientToServerHeartbeat:
		return "ClientToServerHeartbeat"
	case ServerToClientHeartbeat:
		return "ServerToClientHeartbeat"
	case GetOwnAddress:
		return "GetOwnAddress"
	case GetOwnAddressReply:
		return "GetOwnAddressReply"
	case NatPunchRequest:
		return "NatPunchRequest"
	case NatPunch:
		return "NatPunch"
	case TransferBlockRequest:
		return "TransferBlockRequest"
	case TransferBlock:
		return "TransferBlock"
	case RequestHeartbeatOnDisconnecting:
		return "RequestHeartbeatOnDisconnecting"
	case LANBroadcast:
		return "LANBroadcast"
	case GameInformationRequest:
		return "GameInformationRequest"
	case GameInformationRequestReply:
		return "GameInformationRequestReply"
	case Empty:
		return "Empty"
	default:
		return "Unknown"
	}
}
