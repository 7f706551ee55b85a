package maptransfer

import (
	"bytes"
	"testing"
	"time"
)

func TestBlockRoundTrip(t *testing.T) {
	b := Block{Index: 3, Data: []byte("some archive bytes")}
	got, err := DecodeBlock(b.EncodePayload())
	if err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}
	if got.Index != 3 || !bytes.Equal(got.Data, b.Data) {
		t.Fatalf("got %+v", got)
	}
}

func TestBlockRequestRoundTrip(t *testing.T) {
	req := BlockRequest{Index: 0x1234}
	got, err := DecodeBlockRequest(req.EncodePayload())
	if err != nil {
		t.Fatalf("DecodeBlockRequest: %v", err)
	}
	if got.Index != 0x1234 {
		t.Fatalf("index = %d, want %d", got.Index, 0x1234)
	}
}

func TestNextRequestIndexWalksPastReceivedBlocks(t *testing.T) {
	tr := NewTransfer(time.Second)
	now := time.Now()

	if tr.NextRequestIndex() != 0 {
		t.Fatalf("fresh transfer should request block 0, got %d", tr.NextRequestIndex())
	}
	tr.AddBlock(Block{Index: 0, Data: []byte("A")}, now)
	tr.AddBlock(Block{Index: 1, Data: []byte("B")}, now)
	tr.AddBlock(Block{Index: 3, Data: []byte("D")}, now) // out of order
	if tr.NextRequestIndex() != 2 {
		t.Fatalf("expected lowest missing index 2, got %d", tr.NextRequestIndex())
	}
}

func TestTransferCompletesOnAcceptMessageTotal(t *testing.T) {
	tr := NewTransfer(time.Second)
	now := time.Now()
	tr.SetTotalFromAcceptMessage(3, now)

	tr.AddBlock(Block{Index: 1, Data: []byte("BBB")}, now)
	if tr.Complete() {
		t.Fatal("should not be complete with missing blocks")
	}
	tr.AddBlock(Block{Index: 0, Data: []byte("AAA")}, now)
	tr.AddBlock(Block{Index: 2, Data: []byte("CCC")}, now)
	if !tr.Complete() {
		t.Fatal("expected complete once all 3 blocks present")
	}

	buf, err := tr.Buffer()
	if err != nil {
		t.Fatalf("Buffer: %v", err)
	}
	if !bytes.Equal(buf, []byte("AAABBBCCC")) {
		t.Fatalf("buffer = %q", buf)
	}
}

func TestTransferAcceptMessageWinsOverFirstBlockInference(t *testing.T) {
	tr := NewTransfer(time.Second)
	now := time.Now()
	tr.SetTotalFromAcceptMessage(2, now)
	tr.InferTotalFromFirstBlock(99) // must be ignored
	if tr.Total() != 2 {
		t.Fatalf("total = %d, want 2 (accept message wins)", tr.Total())
	}
}

func TestTransferInfersTotalFromFirstBlockWhenNoAcceptMessage(t *testing.T) {
	tr := NewTransfer(time.Second)
	tr.InferTotalFromFirstBlock(5)
	if tr.Total() != 5 {
		t.Fatalf("total = %d, want 5", tr.Total())
	}
}

func TestTransferTimesOut(t *testing.T) {
	tr := NewTransfer(10 * time.Millisecond)
	start := time.Now()
	tr.SetTotalFromAcceptMessage(2, start)
	tr.AddBlock(Block{Index: 0, Data: []byte("A")}, start)

	if tr.TimedOut(start.Add(5 * time.Millisecond)) {
		t.Fatal("should not be timed out yet")
	}
	if !tr.TimedOut(start.Add(50 * time.Millisecond)) {
		t.Fatal("expected timeout waiting for block 1")
	}
	if tr.MissingBlockIndex() != 1 {
		t.Fatalf("missing block = %d, want 1", tr.MissingBlockIndex())
	}
}
