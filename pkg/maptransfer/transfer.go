// Package maptransfer reassembles the block-indexed map transfer
// (spec.md §4.6) into a ZIP archive and exposes its entries for the
// save decoder. Reassembly lives in an arena keyed by block index,
// mirroring pkg/reliability's fragment arena.
package maptransfer

import (
	"time"

	"github.com/tindalos-systems/factoriolink/pkg/ferrors"
	"github.com/tindalos-systems/factoriolink/pkg/wire"
)

// totalSource records which message told the transfer how many blocks
// to expect, preferring an explicit accept message over inferring it
// from the first block (spec.md §4.6: "the total block count may come
// from either source; prefer the accept message when both are seen").
type totalSource uint8

const (
	totalUnknown totalSource = iota
	totalFromAcceptMessage
	totalFromFirstBlock
)

// Block is one TransferBlock message's payload. TotalBlocks is the
// other possible source of the map transfer's declared block count
// (spec.md §9 open question: the server may announce the total either
// in ConnectionAcceptOrDeny or in block 0); it is only meaningful on
// index 0 and 0 means "not declared here".
type Block struct {
	Index       uint32
	TotalBlocks uint32
	Data        []byte
}

func (b Block) EncodePayload() []byte {
	w := wire.NewWriter()
	w.WriteVarInt(b.Index)
	if b.Index == 0 {
		w.WriteVarInt(b.TotalBlocks)
	}
	w.WriteLenPrefixed16(b.Data)
	return w.Bytes()
}

// DecodeBlock parses a TransferBlock payload.
func DecodeBlock(payload []byte) (Block, error) {
	r := wire.NewReader(payload)
	var b Block
	var err error
	if b.Index, err = r.ReadVarInt(); err != nil {
		return b, err
	}
	if b.Index == 0 {
		if b.TotalBlocks, err = r.ReadVarInt(); err != nil {
			return b, err
		}
	}
	data, err := r.ReadLenPrefixed16()
	if err != nil {
		return b, err
	}
	b.Data = append([]byte(nil), data...)
	return b, nil
}

// BlockRequest asks the server for the block at Index (spec.md §4.6:
// "the core issues TransferBlockRequest messages for successive block
// indices starting at 0").
type BlockRequest struct {
	Index uint32
}

func (b BlockRequest) EncodePayload() []byte {
	w := wire.NewWriter()
	w.WriteVarInt(b.Index)
	return w.Bytes()
}

// DecodeBlockRequest parses a TransferBlockRequest payload.
func DecodeBlockRequest(payload []byte) (BlockRequest, error) {
	r := wire.NewReader(payload)
	index, err := r.ReadVarInt()
	if err != nil {
		return BlockRequest{}, err
	}
	return BlockRequest{Index: index}, nil
}

// Transfer accumulates map transfer blocks into a contiguous buffer
// (spec.md §4.6). It is not safe for concurrent use.
type Transfer struct {
	blockTimeout time.Duration

	blocks  map[uint32][]byte
	total   uint32
	source  totalSource
	started time.Time
	lastRx  time.Time
}

// NewTransfer builds an empty transfer with the given per-block
// timeout budget (spec.md §6).
func NewTransfer(blockTimeout time.Duration) *Transfer {
	return &Transfer{
		blockTimeout: blockTimeout,
		blocks:       make(map[uint32][]byte),
	}
}

// SetTotalFromAcceptMessage records the declared block count from the
// out-of-band accept message. Once set, a later inference from the
// first block is ignored (accept message wins, per spec.md §4.6).
func (t *Transfer) SetTotalFromAcceptMessage(total uint32, now time.Time) {
	t.total = total
	t.source = totalFromAcceptMessage
	if t.started.IsZero() {
		t.started = now
	}
}

// AddBlock records one received block. It does not read the block's
// declared total; the caller passes that to InferTotalFromFirstBlock.
func (t *Transfer) AddBlock(b Block, now time.Time) {
	if t.started.IsZero() {
		t.started = now
	}
	t.lastRx = now
	t.blocks[b.Index] = append([]byte(nil), b.Data...)
}

// InferTotalFromFirstBlock is called by the caller once it has parsed
// an out-of-band hint embedded in block 0 (e.g. a header the server
// writes into the first block's own bytes). It is a no-op if the
// accept message already set the total.
func (t *Transfer) InferTotalFromFirstBlock(total uint32) {
	if t.source == totalFromAcceptMessage {
		return
	}
	t.total = total
	t.source = totalFromFirstBlock
}

// Complete reports whether every block 0..total-1 has arrived.
func (t *Transfer) Complete() bool {
	if t.source == totalUnknown || t.total == 0 {
		return false
	}
	for i := uint32(0); i < t.total; i++ {
		if _, ok := t.blocks[i]; !ok {
			return false
		}
	}
	return true
}

// ReceivedCount returns how many distinct blocks have arrived.
func (t *Transfer) ReceivedCount() int { return len(t.blocks) }

// Total returns the declared/inferred total block count, or 0 if
// still unknown.
func (t *Transfer) Total() uint32 { return t.total }

// Buffer concatenates blocks 0..total-1 into the contiguous archive
// bytes. Only valid once Complete reports true.
func (t *Transfer) Buffer() ([]byte, error) {
	if !t.Complete() {
		return nil, &ferrors.TransferCorrupt{Cause: nil}
	}
	var out []byte
	for i := uint32(0); i < t.total; i++ {
		out = append(out, t.blocks[i]...)
	}
	return out, nil
}

// TimedOut reports whether no block has arrived within the timeout
// since the last one, fatal to the session (spec.md §7
// TransferTimeout).
func (t *Transfer) TimedOut(now time.Time) bool {
	if t.Complete() || t.started.IsZero() {
		return false
	}
	last := t.lastRx
	if last.IsZero() {
		last = t.started
	}
	return now.Sub(last) >= t.blockTimeout
}

// MissingBlockIndex returns the lowest missing block index, used to
// build a TransferTimeout error naming what was awaited.
func (t *Transfer) MissingBlockIndex() uint32 {
	for i := uint32(0); i < t.total; i++ {
		if _, ok := t.blocks[i]; !ok {
			return i
		}
	}
	return t.total
}

// NextRequestIndex returns the lowest block index not yet received,
// the index the next TransferBlockRequest should name. Unlike
// MissingBlockIndex it does not need the total to be known yet: before
// block 0 arrives (and with it the declared count) the scan simply
// walks past every contiguously received block.
func (t *Transfer) NextRequestIndex() uint32 {
	for i := uint32(0); ; i++ {
		if _, ok := t.blocks[i]; !ok {
			return i
		}
	}
}
