package reliability

import (
	"sort"
	"time"

	"github.com/tindalos-systems/factoriolink/pkg/ferrors"
	"github.com/tindalos-systems/factoriolink/pkg/wire"
)

// Fragment termination is an open question in spec.md §9: the server
// may signal the end of a fragment group either with a zero-length
// terminator piece or by declaring the total size up front in the
// first piece. This package resolves it by giving every fragment
// piece a small envelope of our own: a VarShort piece index, and, for
// piece index 0 only, a VarInt declared total payload length
// (0 meaning "not declared, expect a sentinel instead"). Both
// termination styles are accepted and which one fired is reported
// back to the caller so it can be logged (spec.md §9: "record which
// occurred").
const (
	TerminationSentinel     = "sentinel"
	TerminationDeclaredSize = "declared-size"
)

type fragmentGroup struct {
	pieces        map[uint16][]byte
	declaredTotal uint32 // 0 = not declared
	sentinelAt    *uint16
	createdAt     time.Time
	lastPieceAt   time.Time
}

// Reassembler owns the fragment reassembly table (spec.md §4.4),
// arena-keyed by fragment ID with TTL-based reaping.
type Reassembler struct {
	ttl    time.Duration
	groups map[uint16]*fragmentGroup
}

// NewReassembler builds a reassembler that drops incomplete groups
// idle longer than ttl (spec.md §6 fragment_ttl_ms).
func NewReassembler(ttl time.Duration) *Reassembler {
	return &Reassembler{ttl: ttl, groups: make(map[uint16]*fragmentGroup)}
}

// AddPiece feeds one fragment piece into the group identified by
// fragmentID. When the group completes, it returns the concatenated
// logical payload, the termination style observed, and complete=true;
// the group is then removed from the table.
func (r *Reassembler) AddPiece(fragmentID uint16, raw []byte, now time.Time) (complete bool, payload []byte, kind string, err error) {
	reader := wire.NewReader(raw)
	index, err := reader.ReadVarShort()
	if err != nil {
		return false, nil, "", &ferrors.BadFragment{FragmentID: fragmentID, Reason: "missing piece index"}
	}

	group, ok := r.groups[fragmentID]
	if !ok {
		group = &fragmentGroup{pieces: make(map[uint16][]byte), createdAt: now}
		r.groups[fragmentID] = group
	}
	group.lastPieceAt = now

	var data []byte
	if index == 0 {
		declared, derr := reader.ReadVarInt()
		if derr != nil {
			return false, nil, "", &ferrors.BadFragment{FragmentID: fragmentID, Reason: "missing declared size on first piece"}
		}
		group.declaredTotal = declared
		data = reader.RemainingSlice()
	} else {
		data = reader.RemainingSlice()
	}

	if len(data) == 0 {
		idx := index
		group.sentinelAt = &idx
	} else {
		group.pieces[index] = append([]byte(nil), data...)
	}

	return r.tryComplete(fragmentID, group)
}

func (r *Reassembler) tryComplete(fragmentID uint16, group *fragmentGroup) (bool, []byte, string, error) {
	if group.sentinelAt != nil {
		payload, ok := concatContiguous(group.pieces, *group.sentinelAt)
		if ok {
			delete(r.groups, fragmentID)
			return true, payload, TerminationSentinel, nil
		}
		return false, nil, "", nil
	}

	if group.declaredTotal > 0 {
		total := 0
		for _, p := range group.pieces {
			total += len(p)
		}
		if uint32(total) >= group.declaredTotal {
			maxIdx := uint16(len(group.pieces))
			payload, ok := concatContiguous(group.pieces, maxIdx)
			if ok {
				delete(r.groups, fragmentID)
				return true, payload, TerminationDeclaredSize, nil
			}
		}
	}

	return false, nil, "", nil
}

// concatContiguous concatenates pieces[0], pieces[1], ... pieces[count-1]
// in index order, failing if any index in that range is missing.
func concatContiguous(pieces map[uint16][]byte, count uint16) ([]byte, bool) {
	indices := make([]uint16, 0, count)
	for i := uint16(0); i < count; i++ {
		if _, ok := pieces[i]; !ok {
			return nil, false
		}
		indices = append(indices, i)
	}
	sort.Slice(indices, func(a, b int) bool { return indices[a] < indices[b] })

	var out []byte
	for _, i := range indices {
		out = append(out, pieces[i]...)
	}
	return out, true
}

// ReapExpired removes and returns the fragment IDs of every group
// idle longer than the configured TTL (spec.md §3: "Destroyed when
// complete ... or on timeout").
func (r *Reassembler) ReapExpired(now time.Time) []uint16 {
	var expired []uint16
	for id, g := range r.groups {
		if now.Sub(g.lastPieceAt) >= r.ttl {
			expired = append(expired, id)
			delete(r.groups, id)
		}
	}
	return expired
}

// Len reports how many fragment groups are currently in flight.
func (r *Reassembler) Len() int { return len(r.groups) }

// EncodePiece builds the wire envelope for an outbound fragment piece
// at the given index. Pass declaredTotal>0 on index 0 to use the
// declared-size termination style, or 0 to terminate later with a
// zero-length sentinel piece via EncodeSentinel.
func EncodePiece(index uint16, declaredTotal uint32, data []byte) []byte {
	w := wire.NewWriter()
	w.WriteVarShort(index)
	if index == 0 {
		w.WriteVarInt(declaredTotal)
	}
	w.WriteBytes(data)
	return w.Bytes()
}

// EncodeSentinel builds the zero-length terminator piece for index,
// signaling that pieces 0..index-1 form a complete group.
func EncodeSentinel(index uint16) []byte {
	return EncodePiece(index, 0, nil)
}
