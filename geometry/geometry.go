// Package geometry implements the pure striped-block layout functions of
// section 4.3: given a block group's total length, the erasure-coding
// policy, and a column index, derive that column's byte length and a
// stable per-column block identity. Nothing here touches the network or
// holds state across calls.
package geometry

import "fmt"

// Policy is the erasure-coding policy: D data units, P parity units, and
// the cell size C that cycles across columns during striping.
type Policy struct {
	Data     int
	Parity   int
	CellSize int64
}

// Width returns D+P, the total number of internal blocks (columns) per
// group.
func (p Policy) Width() int { return p.Data + p.Parity }

// Group identifies one logical block group.
type Group struct {
	PoolID  string
	BlockID string
	Gen     int64
	Length  int64
}

// BlockID is the derived, stable identity of one internal block (column)
// within a group, agreed on by both reader and writer ends per section 4.3.
type BlockID struct {
	PoolID  string
	BlockID string
	Gen     int64
	Index   int
}

// ConstructInternalBlock derives internal column i's block identity from
// the group id and the column index; implementation-defined but stable,
// so the remote-read and write-block handshakes on both ends agree on
// which physical block backs a given column.
func ConstructInternalBlock(g Group, i int) BlockID {
	return BlockID{PoolID: g.PoolID, BlockID: g.BlockID, Gen: g.Gen, Index: i}
}

// String renders a BlockID the way a log line or handshake frame would
// carry it.
func (b BlockID) String() string {
	return fmt.Sprintf("%s/%s_%d.%d", b.PoolID, b.BlockID, b.Gen, b.Index)
}

// CellsInGroup is ceil(L / C): the number of C-byte cells needed to hold
// the group's L bytes across the D data columns, cycling round-robin.
func CellsInGroup(g Group, p Policy) int64 {
	if g.Length <= 0 {
		return 0
	}
	return (g.Length + p.CellSize - 1) / p.CellSize
}

// MinRequiredSources is min(cells_in_group, D): the number of live sources
// the decoder actually needs to read from a window to reconstruct the
// targets (fewer than D when the group itself is shorter than D cells).
func MinRequiredSources(g Group, p Policy) int {
	cells := CellsInGroup(g, p)
	if int64(p.Data) < cells {
		return p.Data
	}
	return int(cells)
}

// InternalBlockLength returns the byte length of column i (0 <= i < D+P):
// full cells from complete stripe rows, plus any partial contribution from
// the last, possibly incomplete, row.
//
// Data columns (i < D) receive cells round-robin: column i is full in the
// last row iff it falls strictly before the column holding the row's
// remainder; it holds exactly the remainder if it IS that column; and it
// holds nothing extra if it falls after. Parity columns (i >= D) span
// every row that carries any data at all, including an incomplete last
// row (the encoder zero-pads short rows before computing parity), so a
// parity column's length is always a whole number of full C-byte rows.
func InternalBlockLength(g Group, p Policy, i int) int64 {
	if g.Length <= 0 {
		return 0
	}
	stripeSize := p.CellSize * int64(p.Data)
	fullStripes := g.Length / stripeSize
	lastStripeLen := g.Length % stripeSize

	if i >= p.Data {
		// parity column
		if lastStripeLen == 0 {
			return fullStripes * p.CellSize
		}
		return (fullStripes + 1) * p.CellSize
	}

	// data column
	if lastStripeLen == 0 {
		return fullStripes * p.CellSize
	}
	lastCellIdx := int((lastStripeLen - 1) / p.CellSize)
	switch {
	case i < lastCellIdx:
		return fullStripes*p.CellSize + p.CellSize
	case i == lastCellIdx:
		return fullStripes*p.CellSize + (lastStripeLen - int64(lastCellIdx)*p.CellSize)
	default:
		return fullStripes * p.CellSize
	}
}

// IsZeroStripe reports whether column i has zero length for this group —
// its buffer is an all-zeros column during decode, keeping decoder input
// cardinality equal to D+P regardless of which columns are actually live,
// targets, or neither.
func IsZeroStripe(g Group, p Policy, i int) bool {
	return InternalBlockLength(g, p, i) == 0
}
