package reliability

import (
	"bytes"
	"testing"
	"time"
)

func TestFragmentReassemblySentinelOutOfOrder(t *testing.T) {
	const fragID = 0x1234
	now := time.Now()

	piece0 := EncodePiece(0, 0, []byte("AAA")) // declaredTotal=0 -> sentinel mode
	piece1 := EncodePiece(1, 0, []byte("BBB"))
	piece2 := EncodePiece(2, 0, []byte("CCC"))
	sentinel := EncodeSentinel(3)

	// Deliver out of order: 2, 0, 1, then the sentinel.
	order := [][]byte{piece2, piece0, piece1, sentinel}

	r := NewReassembler(5 * time.Second)
	var gotComplete bool
	var gotPayload []byte
	var gotKind string
	for _, p := range order {
		complete, payload, kind, err := r.AddPiece(fragID, p, now)
		if err != nil {
			t.Fatalf("AddPiece: %v", err)
		}
		if complete {
			gotComplete, gotPayload, gotKind = complete, payload, kind
		}
	}

	if !gotComplete {
		t.Fatal("expected group to complete")
	}
	if gotKind != TerminationSentinel {
		t.Fatalf("termination kind = %s, want sentinel", gotKind)
	}
	want := []byte("AAABBBCCC")
	if !bytes.Equal(gotPayload, want) {
		t.Fatalf("payload = %q, want %q", gotPayload, want)
	}
	if r.Len() != 0 {
		t.Fatalf("expected completed group to be reaped, %d remain", r.Len())
	}
}

func TestFragmentReassemblyAnyPermutationIsByteIdentical(t *testing.T) {
	pieces := [][]byte{
		EncodePiece(0, 9, []byte("foo")), // declared total length 9
		EncodePiece(1, 0, []byte("bar")),
		EncodePiece(2, 0, []byte("baz")),
	}
	want := []byte("foobarbaz")

	permutations := [][]int{
		{0, 1, 2},
		{2, 1, 0},
		{1, 2, 0},
		{2, 0, 1},
	}

	for _, perm := range permutations {
		r := NewReassembler(time.Second)
		now := time.Now()
		var got []byte
		for _, idx := range perm {
			complete, payload, kind, err := r.AddPiece(0xAB, pieces[idx], now)
			if err != nil {
				t.Fatalf("perm %v: %v", perm, err)
			}
			if complete {
				got = payload
				if kind != TerminationDeclaredSize {
					t.Fatalf("perm %v: kind = %s", perm, kind)
				}
			}
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("perm %v: payload = %q, want %q", perm, got, want)
		}
	}
}

func TestFragmentReassemblyTTLExpiry(t *testing.T) {
	r := NewReassembler(10 * time.Millisecond)
	start := time.Now()
	if _, _, _, err := r.AddPiece(1, EncodePiece(0, 100, []byte("partial")), start); err != nil {
		t.Fatalf("AddPiece: %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 pending group, got %d", r.Len())
	}

	expired := r.ReapExpired(start.Add(20 * time.Millisecond))
	if len(expired) != 1 || expired[0] != 1 {
		t.Fatalf("expired = %v, want [1]", expired)
	}
	if r.Len() != 0 {
		t.Fatalf("expected group reaped, %d remain", r.Len())
	}
}
