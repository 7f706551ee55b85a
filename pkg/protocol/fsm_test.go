package protocol

import (
	"testing"
	"time"

	"github.com/tindalos-systems/factoriolink/pkg/wire/packet"
)

func testFSM() *FSM {
	version := ApplicationVersion{Major: 2, Minor: 0, Patch: 28, Build: 1}
	creds := Credentials{Username: "tester"}
	return NewFSM(version, creds, 3)
}

func TestFSMHappyPath(t *testing.T) {
	f := testFSM()
	now := time.Now()

	out := f.Start(now, time.Second)
	if f.State() != AwaitingReply {
		t.Fatalf("state = %v, want AwaitingReply", f.State())
	}
	if !out.Send || out.PacketType != packet.ConnectionRequest {
		t.Fatalf("unexpected start outcome: %+v", out)
	}

	reply := ConnectionRequestReply{Version: ApplicationVersion{Major: 2, Minor: 0, Patch: 28}, ServerKey: "abc123"}
	out = f.HandleConnectionRequestReply(reply.encodeForTest(), now, time.Second)
	if out.Err != nil {
		t.Fatalf("HandleConnectionRequestReply: %v", out.Err)
	}
	if f.State() != AwaitingAcceptDeny {
		t.Fatalf("state = %v, want AwaitingAcceptDeny", f.State())
	}
	if out.PacketType != packet.ConnectionRequestReplyConfirm {
		t.Fatalf("expected confirm packet, got %v", out.PacketType)
	}

	accept := ConnectionAcceptOrDeny{Accepted: true, PlayerID: 9}
	out = f.HandleAcceptOrDeny(accept.encodeForTest(), now, time.Second)
	if out.Err != nil {
		t.Fatalf("HandleAcceptOrDeny: %v", out.Err)
	}
	if f.State() != MapDownload {
		t.Fatalf("state = %v, want MapDownload", f.State())
	}
	if out.PlayerID != 9 {
		t.Fatalf("playerID = %d, want 9", out.PlayerID)
	}

	f.CompleteMapDownload(now)
	if f.State() != InGame {
		t.Fatalf("state = %v, want InGame", f.State())
	}
}

func TestFSMDenialIsFatalAndResets(t *testing.T) {
	f := testFSM()
	now := time.Now()
	f.Start(now, time.Second)
	reply := ConnectionRequestReply{Version: ApplicationVersion{Major: 2}, ServerKey: "k"}
	f.HandleConnectionRequestReply(reply.encodeForTest(), now, time.Second)

	deny := ConnectionAcceptOrDeny{Accepted: false, DenialReason: DenialUsernameTaken}
	out := f.HandleAcceptOrDeny(deny.encodeForTest(), now, time.Second)
	if out.Err == nil {
		t.Fatal("expected HandshakeDenied error")
	}
	if f.State() != Disconnected {
		t.Fatalf("state = %v, want Disconnected after denial", f.State())
	}
}

func TestFSMTimeoutExhaustsRetryBudget(t *testing.T) {
	f := testFSM()
	start := time.Now()
	f.Start(start, 10*time.Millisecond)

	// Each timeout check past the deadline consumes one retry until the
	// budget of 3 is exhausted.
	now := start
	var lastErr error
	for i := 0; i < 4; i++ {
		now = now.Add(20 * time.Millisecond)
		lastErr = f.CheckTimeout(now, 10*time.Millisecond)
	}
	if lastErr == nil {
		t.Fatal("expected HandshakeTimeout once retry budget exhausted")
	}
	if f.State() != Disconnected {
		t.Fatalf("state = %v, want Disconnected", f.State())
	}
}

func TestFSMUnexpectedMessageRejected(t *testing.T) {
	f := testFSM()
	out := f.HandleAcceptOrDeny([]byte{1}, time.Now(), time.Second)
	if out.Err == nil {
		t.Fatal("expected error for out-of-state message")
	}
}

// encodeForTest helpers avoid exporting server-only encoders from
// non-test code; these mirror the wire format the real server would
// produce.
func (m ConnectionRequestReply) encodeForTest() []byte {
	return encodeConnectionRequestReplyForTest(m)
}

func (m ConnectionAcceptOrDeny) encodeForTest() []byte {
	return encodeConnectionAcceptOrDenyForTest(m)
}
