// Package protocol implements the connection FSM (spec.md §4.3) and
// the heartbeat engine (spec.md §4.5), plus the handshake message
// payloads they exchange.
package protocol

import (
	"github.com/tindalos-systems/factoriolink/pkg/wire"
)

// MapPosition is a pair of fixed-point tile coordinates (spec.md §3).
type MapPosition struct {
	X, Y wire.Fixed32
}

// ApplicationVersion identifies the client/server build, carried in
// ConnectionRequest and echoed in ConnectionRequestReply. Grounded on
// original_source/src/protocol/message.rs::ApplicationVersion.
type ApplicationVersion struct {
	Major, Minor, Patch uint16
	Build               uint32
}

func (v ApplicationVersion) encode(w *wire.Writer) {
	w.WriteVarShort(v.Major)
	w.WriteVarShort(v.Minor)
	w.WriteVarShort(v.Patch)
	w.WriteU32(v.Build)
}

func decodeApplicationVersion(r *wire.Reader) (ApplicationVersion, error) {
	var v ApplicationVersion
	var err error
	if v.Major, err = r.ReadVarShort(); err != nil {
		return v, err
	}
	if v.Minor, err = r.ReadVarShort(); err != nil {
		return v, err
	}
	if v.Patch, err = r.ReadVarShort(); err != nil {
		return v, err
	}
	if v.Build, err = r.ReadU32(); err != nil {
		return v, err
	}
	return v, nil
}

// ModVersion is a mod's own 3-component version number.
type ModVersion struct {
	Major, Minor, Patch uint8
}

// ModInfo names one mod and its version/CRC, part of the mod list
// exchanged during ConnectionRequestReplyConfirm.
type ModInfo struct {
	Name    string
	Version ModVersion
	CRC     uint32
}

func (m ModInfo) encode(w *wire.Writer) {
	w.WriteLenPrefixed8([]byte(m.Name))
	w.WriteU8(m.Version.Major)
	w.WriteU8(m.Version.Minor)
	w.WriteU8(m.Version.Patch)
	w.WriteU32(m.CRC)
}

func decodeModInfo(r *wire.Reader) (ModInfo, error) {
	var m ModInfo
	name, err := r.ReadLenPrefixed8()
	if err != nil {
		return m, err
	}
	m.Name = string(name)
	if m.Version.Major, err = r.ReadU8(); err != nil {
		return m, err
	}
	if m.Version.Minor, err = r.ReadU8(); err != nil {
		return m, err
	}
	if m.Version.Patch, err = r.ReadU8(); err != nil {
		return m, err
	}
	if m.CRC, err = r.ReadU32(); err != nil {
		return m, err
	}
	return m, nil
}

// Credentials carries the caller-supplied identity used to complete
// the handshake (spec.md §4.3 "carries creds"). PasswordHash is
// supplied already-hashed by the caller: neither spec.md nor the
// original implementation documents a concrete hashing scheme (the
// original leaves it as an empty string), so this client does not
// invent one.
type Credentials struct {
	Username     string
	PasswordHash string
	ServerKey    string
	Timestamp    string
	Mods         []ModInfo
}

// DenialReason enumerates why ConnectionAcceptOrDeny rejected the
// client, grounded on
// original_source/src/protocol/message.rs::DenialReason.
type DenialReason uint8

const (
	DenialUnknown DenialReason = iota
	DenialVersionMismatch
	DenialModMismatch
	DenialCoreModMismatch
	DenialPasswordRequired
	DenialWrongPassword
	DenialUsernameTaken
	DenialUserBanned
	DenialServerFull
	DenialNotWhitelisted
)

// DisconnectReason is the reason carried by the session's terminal
// Disconnected event, grounded on
// original_source/src/client/events.rs::DisconnectReason.
type DisconnectReason uint8

const (
	DisconnectUserRequested DisconnectReason = iota
	DisconnectKicked
	DisconnectBanned
	DisconnectTimeout
	DisconnectServerShutdown
	DisconnectVersionMismatch
	DisconnectModMismatch
	DisconnectDesync
	DisconnectOther
)

func (d DisconnectReason) String() string {
	switch d {
	case DisconnectUserRequested:
		return "UserRequested"
	case DisconnectKicked:
		return "Kicked"
	case DisconnectBanned:
		return "Banned"
	case DisconnectTimeout:
		return "Timeout"
	case DisconnectServerShutdown:
		return "ServerShutdown"
	case DisconnectVersionMismatch:
		return "VersionMismatch"
	case DisconnectModMismatch:
		return "ModMismatch"
	case DisconnectDesync:
		return "Desync"
	default:
		return "Other"
	}
}

func (d DenialReason) String() string {
	switch d {
	case DenialVersionMismatch:
		return "VersionMismatch"
	case DenialModMismatch:
		return "ModMismatch"
	case DenialCoreModMismatch:
		return "CoreModMismatch"
	case DenialPasswordRequired:
		return "PasswordRequired"
	case DenialWrongPassword:
		return "WrongPassword"
	case DenialUsernameTaken:
		return "UsernameTaken"
	case DenialUserBanned:
		return "UserBanned"
	case DenialServerFull:
		return "ServerFull"
	case DenialNotWhitelisted:
		return "NotWhitelisted"
	default:
		return "Unknown"
	}
}
