// Package bins implements the segregated free-space index: the 64-slot bin
// directory, the exact-fit small-bin lists, the bitwise digital tree used
// for large bins, the single huge-bin list, and the victim-chunk slot.
//
// Every function here operates on a caller-owned arena ([]byte) plus a
// *Directory; none of them grow the heap or decide allocation policy — that
// lives one layer up, in the root package's alloc/free/realloc paths.
package bins

import "github.com/TomTonic/gomalloc/internal/chunk"

// Slot layout: 0-2 are single-chunk slots, 3-31 small-bin lists, 32-63
// large-bin tree roots.
const (
	NumBins = 64

	SlotEndOfHeap = 0
	SlotVictim    = 1
	SlotHuge      = 2

	firstSmallSlot = 3
	lastSmallSlot  = 31
	firstLargeSlot = 32
	lastLargeSlot  = 63

	// FirstLargeSlot is exported for callers that need to start a forward
	// scan of the large-bin tree from its very first slot (the small-
	// request fallback path in the allocation routine).
	FirstLargeSlot = firstLargeSlot
)

// Directory is the fixed-size table of bin roots. Slots 0-2 hold at most a
// single chunk each (end-of-heap, victim, huge-list head); slots 3-31 are
// small-bin list heads; slots 32-63 are large-bin tree roots.
type Directory struct {
	slots    [NumBins]uint64
	occupied slotOccupancy
}

// NewDirectory returns a Directory with every slot empty.
func NewDirectory() *Directory {
	d := &Directory{}
	for i := range d.slots {
		d.slots[i] = chunk.NullOffset
	}
	return d
}

// Get returns the raw contents of slot i.
func (d *Directory) Get(i int) uint64 { return d.slots[i] }

// Set overwrites slot i, maintaining the occupancy bitmap that forward
// scans use to skip empty slots.
func (d *Directory) Set(i int, v uint64) {
	d.slots[i] = v
	if v == chunk.NullOffset {
		d.occupied.unmark(i)
	} else {
		d.occupied.mark(i)
	}
}

// Empty reports whether slot i currently holds no chunk.
func (d *Directory) Empty(i int) bool { return d.slots[i] == chunk.NullOffset }

// NextOccupied returns the lowest-indexed non-empty slot at or after from,
// if any — an O(1) jump used to skip runs of empty slots during a forward
// scan instead of probing them one at a time.
func (d *Directory) NextOccupied(from int) (int, bool) { return d.occupied.next(from) }

// SmallSlot returns the exact-fit small-bin slot index for a footprint
// that is known to be <= chunk.LargeChunkCutoff: slot i holds footprint
// 8*i.
func SmallSlot(footprint uint64) int { return int(footprint / chunk.WordSize) }

// floorLog2 returns floor(log2(x)) for x > 0.
func floorLog2(x uint64) uint {
	var l uint
	for x > 1 {
		x >>= 1
		l++
	}
	return l
}

// LargeSlot returns the large-bin slot index for a footprint known to be >
// chunk.LargeChunkCutoff, using a two-bins-per-power-of-two formula. The
// result may exceed lastLargeSlot for huge footprints; callers must route
// those to the huge bin instead.
func LargeSlot(footprint uint64) int {
	l := floorLog2(footprint)
	bit := (footprint >> (l - 1)) & 1
	return 16 + 2*int(l) + int(bit)
}

// SlotFor returns the slot a free chunk of the given footprint belongs in:
// a small slot, a large slot, or SlotHuge.
func SlotFor(footprint uint64) int {
	switch {
	case !chunk.IsLarge(footprint):
		return SmallSlot(footprint)
	case chunk.IsHuge(footprint):
		return SlotHuge
	default:
		return LargeSlot(footprint)
	}
}

// Insert routes a free chunk into whichever bin its footprint belongs to:
// an exact-fit small-bin list, the large-bin tree, or the huge-bin list.
// Used by the free path and by victim displacement — anywhere a chunk needs
// to be re-homed by size rather than placed by policy.
func Insert(buf []byte, d *Directory, off uint64) {
	footprint := chunk.Footprint(buf, off)
	switch {
	case !chunk.IsLarge(footprint):
		InsertSmall(buf, d, off)
	case chunk.IsHuge(footprint):
		InsertHuge(buf, d, off)
	default:
		InsertLarge(buf, d, off)
	}
}

// Remove unlinks a free chunk from whichever bin its footprint currently
// places it in. The chunk must actually be bin-resident, not the victim
// (callers holding the victim know it already; see IsVictim).
func Remove(buf []byte, d *Directory, off uint64) {
	footprint := chunk.Footprint(buf, off)
	switch {
	case !chunk.IsLarge(footprint):
		RemoveSmall(buf, d, off)
	case chunk.IsHuge(footprint):
		RemoveHuge(buf, d, off)
	default:
		RemoveLarge(buf, d, off)
	}
}
