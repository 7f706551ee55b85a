package protocol

import "github.com/tindalos-systems/factoriolink/pkg/wire"

// InputActionKind enumerates the action kinds the client can submit
// on behalf of the local player (spec.md §3: "start/stop walking,
// begin/stop mining, craft, change shooting state").
type InputActionKind uint8

const (
	ActionStartWalking InputActionKind = iota
	ActionStopWalking
	ActionBeginMining
	ActionStopMining
	ActionCraft
	ActionChangeShootingState
)

// Direction is the 8-way facing used by StartWalking, grounded on
// original_source/src/codec/types.rs::Direction.
type Direction uint8

const (
	DirectionNorth Direction = iota
	DirectionNorthEast
	DirectionEast
	DirectionSouthEast
	DirectionSouth
	DirectionSouthWest
	DirectionWest
	DirectionNorthWest
)

// ShootingState is the target mode for ChangeShootingState.
type ShootingState uint8

const (
	ShootingNotShooting ShootingState = iota
	ShootingEnemies
	ShootingSelected
)

// InputAction is one queued player command, tagged with the tick it
// should apply on (spec.md §3). Payload is encoded at construction
// time and never mutated afterward: "actions are immutable once
// serialized into an outbound heartbeat."
type InputAction struct {
	Kind     InputActionKind
	Tick     uint32
	PlayerID uint16
	payload  []byte
}

func newInputAction(kind InputActionKind, tick uint32, playerID uint16, payload *wire.Writer) InputAction {
	return InputAction{Kind: kind, Tick: tick, PlayerID: playerID, payload: payload.Bytes()}
}

// NewStartWalking builds a StartWalking action facing direction.
func NewStartWalking(tick uint32, playerID uint16, direction Direction) InputAction {
	w := wire.NewWriter()
	w.WriteU8(uint8(direction))
	return newInputAction(ActionStartWalking, tick, playerID, w)
}

// NewStopWalking builds a StopWalking action.
func NewStopWalking(tick uint32, playerID uint16) InputAction {
	return newInputAction(ActionStopWalking, tick, playerID, wire.NewWriter())
}

// NewBeginMining builds a BeginMining action targeting pos.
func NewBeginMining(tick uint32, playerID uint16, pos MapPosition) InputAction {
	w := wire.NewWriter()
	w.WriteFixed32(pos.X)
	w.WriteFixed32(pos.Y)
	return newInputAction(ActionBeginMining, tick, playerID, w)
}

// NewStopMining builds a StopMining action.
func NewStopMining(tick uint32, playerID uint16) InputAction {
	return newInputAction(ActionStopMining, tick, playerID, wire.NewWriter())
}

// NewCraft builds a Craft action for recipeID, count times.
func NewCraft(tick uint32, playerID uint16, recipeID uint16, count uint32) InputAction {
	w := wire.NewWriter()
	w.WriteU16(recipeID)
	w.WriteVarInt(count)
	return newInputAction(ActionCraft, tick, playerID, w)
}

// NewChangeShootingState builds a ChangeShootingState action.
func NewChangeShootingState(tick uint32, playerID uint16, state ShootingState, target MapPosition) InputAction {
	w := wire.NewWriter()
	w.WriteU8(uint8(state))
	w.WriteFixed32(target.X)
	w.WriteFixed32(target.Y)
	return newInputAction(ActionChangeShootingState, tick, playerID, w)
}

// Encode appends the action's wire form to w.
func (a InputAction) Encode(w *wire.Writer) {
	w.WriteU8(uint8(a.Kind))
	w.WriteU32(a.Tick)
	w.WriteU16(a.PlayerID)
	w.WriteLenPrefixed16(a.payload)
}

// DecodeInputAction parses one InputAction from r.
func DecodeInputAction(r *wire.Reader) (InputAction, error) {
	var a InputAction
	kind, err := r.ReadU8()
	if err != nil {
		return a, err
	}
	a.Kind = InputActionKind(kind)
	if a.Tick, err = r.ReadU32(); err != nil {
		return a, err
	}
	if a.PlayerID, err = r.ReadU16(); err != nil {
		return a, err
	}
	payload, err := r.ReadLenPrefixed16()
	if err != nil {
		return a, err
	}
	a.payload = append([]byte(nil), payload...)
	return a, nil
}

// Payload returns the action's kind-specific encoded body.
func (a InputAction) Payload() []byte { return a.payload }
