// Package ferrors is the error taxonomy of the client (spec.md §7):
// one exported struct type per failure kind, each carrying whatever
// context the table names, in the style of the teacher's
// pkg/errors and internal/client_store.go error types.
package ferrors

import "fmt"

// ShortRead is returned whenever a read would run past the end of the
// buffer it was reading from.
type ShortRead struct {
	Need int
	Have int
}

func (e *ShortRead) Error() string {
	return fmt.Sprintf("short read: need %d bytes, have %d", e.Need, e.Have)
}

// BadMagic is returned when a decoded stream doesn't start with the
// marker bytes the decoder expected.
type BadMagic struct {
	Context string
}

func (e *BadMagic) Error() string {
	return fmt.Sprintf("bad magic bytes in %s", e.Context)
}

// UnknownMessageType is returned when a packet's type byte doesn't map
// to any known MessageType.
type UnknownMessageType struct {
	Value uint8
}

func (e *UnknownMessageType) Error() string {
	return fmt.Sprintf("unknown message type byte: 0x%02x", e.Value)
}

// BadFragment is returned when a fragment piece can't be placed into
// its reassembly group (duplicate index, group already complete, ...).
type BadFragment struct {
	FragmentID uint16
	Reason     string
}

func (e *BadFragment) Error() string {
	return fmt.Sprintf("bad fragment id=%d: %s", e.FragmentID, e.Reason)
}

// ReliableRetryExhausted is a fatal error: a reliable message was
// retransmitted retry_cap times without being acknowledged.
type ReliableRetryExhausted struct {
	MessageID uint16
	Retries   int
}

func (e *ReliableRetryExhausted) Error() string {
	return fmt.Sprintf("reliable message id=%d exhausted retry budget after %d attempts", e.MessageID, e.Retries)
}

// HandshakeTimeout is a fatal error: a connection FSM state's retry
// budget was exceeded while waiting for the next handshake message.
type HandshakeTimeout struct {
	Phase string
}

func (e *HandshakeTimeout) Error() string {
	return fmt.Sprintf("handshake timed out in phase %s", e.Phase)
}

// HandshakeDenied is a fatal error: the server rejected the connection
// in ConnectionAcceptOrDeny.
type HandshakeDenied struct {
	Reason string
}

func (e *HandshakeDenied) Error() string {
	return fmt.Sprintf("handshake denied: %s", e.Reason)
}

// TransferTimeout is a fatal error: a map-transfer block was missing
// beyond the retry budget.
type TransferTimeout struct {
	BlockIndex uint32
}

func (e *TransferTimeout) Error() string {
	return fmt.Sprintf("map transfer timed out waiting for block %d", e.BlockIndex)
}

// TransferCorrupt is a fatal error: the assembled map archive failed
// to decode as a ZIP file.
type TransferCorrupt struct {
	Cause error
}

func (e *TransferCorrupt) Error() string {
	return fmt.Sprintf("map transfer archive is corrupt: %v", e.Cause)
}

func (e *TransferCorrupt) Unwrap() error { return e.Cause }

// DecoderRejected is a per-entry, non-fatal error: one level.dat*
// entry could not be decoded, but the rest of the snapshot still
// fires WorldReady.
type DecoderRejected struct {
	Entry string
	Cause error
}

func (e *DecoderRejected) Error() string {
	return fmt.Sprintf("decoder rejected entry %s: %v", e.Entry, e.Cause)
}

func (e *DecoderRejected) Unwrap() error { return e.Cause }

// QueueFull is returned by Session.Submit when the outbound input
// queue has no room left.
type QueueFull struct{}

func (e *QueueFull) Error() string { return "outbound input queue is full" }

// SessionClosed is returned by Session.Submit (or any other operation)
// once the session has been torn down.
type SessionClosed struct{}

func (e *SessionClosed) Error() string { return "session is closed" }

// ProtocolError wraps a transport-level decode failure with enough
// context to surface a ProtocolError event without killing the
// session (spec.md §7: "decoder and reliability errors on a single
// packet are logged and the packet is dropped").
type ProtocolError struct {
	Kind    string
	Context string
	Cause   error
}

func (e *ProtocolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("protocol error (%s) in %s: %v", e.Kind, e.Context, e.Cause)
	}
	return fmt.Sprintf("protocol error (%s) in %s", e.Kind, e.Context)
}

func (e *ProtocolError) Unwrap() error { return e.Cause }
