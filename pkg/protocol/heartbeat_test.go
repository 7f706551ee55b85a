package protocol

import "testing"

func TestClientHeartbeatRoundTripSingleTick(t *testing.T) {
	hb := ClientHeartbeat{
		Sequence: 7,
		PendingActions: []InputAction{
			NewStartWalking(100, 1, DirectionNorthEast),
			NewCraft(100, 1, 42, 5),
		},
	}
	payload := hb.EncodePayload()
	got, err := DecodeClientHeartbeat(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Sequence != 7 {
		t.Fatalf("sequence = %d, want 7", got.Sequence)
	}
	if got.MultiTick || got.HasPlayerState {
		t.Fatalf("unexpected flags: multiTick=%v playerState=%v", got.MultiTick, got.HasPlayerState)
	}
	if len(got.PendingActions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(got.PendingActions))
	}
	if got.PendingActions[0].Kind != ActionStartWalking || got.PendingActions[0].Tick != 100 {
		t.Fatalf("action0 = %+v", got.PendingActions[0])
	}
	if got.PendingActions[1].Kind != ActionCraft {
		t.Fatalf("action1 kind = %v", got.PendingActions[1].Kind)
	}
}

func TestClientHeartbeatWithPlayerState(t *testing.T) {
	hb := ClientHeartbeat{
		Sequence:       99,
		HasPlayerState: true,
		PlayerState: PlayerStateRecord{
			Position:  MapPosition{X: 256 * 10, Y: -256 * 3},
			Direction: DirectionSouth,
		},
	}
	got, err := DecodeClientHeartbeat(hb.EncodePayload())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.HasPlayerState {
		t.Fatal("expected HasPlayerState flag set")
	}
	if got.PlayerState.Position.X.ToTiles() != 10 {
		t.Fatalf("x tiles = %v, want 10", got.PlayerState.Position.X.ToTiles())
	}
	if got.PlayerState.Direction != DirectionSouth {
		t.Fatalf("direction = %v", got.PlayerState.Direction)
	}
}

func TestServerHeartbeatRoundTripWithConfirmations(t *testing.T) {
	hb := ServerHeartbeat{
		MultiTick: true,
		Sequence:  3,
		Confirmations: []TickConfirmation{
			{Checksum: 0x11111111, Tick: 1000},
			{Checksum: 0x22222222, Tick: 1001},
		},
	}
	got, err := DecodeServerHeartbeat(hb.EncodePayload())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Confirmations) != 2 {
		t.Fatalf("expected 2 confirmations, got %d", len(got.Confirmations))
	}
	if got.Confirmations[1].Tick != 1001 || got.Confirmations[1].Checksum != 0x22222222 {
		t.Fatalf("confirmation[1] = %+v", got.Confirmations[1])
	}
}

func TestServerHeartbeatBadMarkerRejected(t *testing.T) {
	payload := []byte{0x06, 0x00, 0x00, 0xFF, 0xFF, 0x00}
	if _, err := DecodeServerHeartbeat(payload); err == nil {
		t.Fatal("expected bad magic error")
	}
}

func TestSequenceWrapAround(t *testing.T) {
	if !SequenceWrapped(0xFFFF, 0x0000) {
		t.Fatal("expected sequence wraparound from 0xFFFF to 0")
	}
	if SequenceWrapped(5, 7) {
		t.Fatal("did not expect 5 -> 7 to be treated as next")
	}
}

func TestSequenceStaleDetectsFarBehind(t *testing.T) {
	if !SequenceStale(10000, 1000) {
		t.Fatal("expected a sequence far behind the highest seen to be stale")
	}
	if SequenceStale(10000, 9500) {
		t.Fatal("did not expect a sequence within one window to be stale")
	}
}

func TestSequenceStaleHandlesWraparound(t *testing.T) {
	if SequenceStale(0xFFFA, 10) {
		t.Fatal("did not expect a wrapped-around, actually-ahead sequence to be flagged stale")
	}
	if !SequenceStale(5000, 0xFFF0) {
		t.Fatal("expected a sequence from just before the previous wrap to be stale")
	}
}

func TestSequenceAdvancesOnlyWhenAhead(t *testing.T) {
	if !SequenceAdvances(100, 101) {
		t.Fatal("expected 101 to advance past 100")
	}
	if SequenceAdvances(100, 100) {
		t.Fatal("did not expect an equal sequence to advance")
	}
	if SequenceAdvances(100, 50) {
		t.Fatal("did not expect a behind sequence to advance")
	}
	if !SequenceAdvances(0xFFFF, 0x0000) {
		t.Fatal("expected wraparound from 0xFFFF to 0 to advance")
	}
}
