package bins

import "github.com/TomTonic/gomalloc/internal/chunk"

// listPush and listRemove implement the circular-doubly-linked-list
// discipline the small and huge bins share: O(1) push at a slot's head
// and O(1) unlink, with the slot cleared when the list empties. Grounded
// on
// original_source/mymalloc/allocator.c's link_chunk/unlink_chunk, which
// thread a list through a *slot* (there, chunk_t**; here, a Directory
// slot index) rather than a standalone head variable.
func listPush(buf []byte, d *Directory, slot int, off uint64) {
	head := d.Get(slot)
	if head == chunk.NullOffset {
		chunk.SetNext(buf, off, off)
		chunk.SetPrev(buf, off, off)
		d.Set(slot, off)
		return
	}
	tail := chunk.Prev(buf, head)
	chunk.SetNext(buf, tail, off)
	chunk.SetPrev(buf, off, tail)
	chunk.SetNext(buf, off, head)
	chunk.SetPrev(buf, head, off)
	d.Set(slot, off)
}

func listRemove(buf []byte, d *Directory, slot int, off uint64) {
	next := chunk.Next(buf, off)
	if next == off {
		d.Set(slot, chunk.NullOffset)
		return
	}
	prev := chunk.Prev(buf, off)
	chunk.SetNext(buf, prev, next)
	chunk.SetPrev(buf, next, prev)
	if d.Get(slot) == off {
		d.Set(slot, next)
	}
}

// InsertSmall adds a free chunk to its exact-fit small bin. Bin membership
// is derived purely from footprint; no per-chunk bookkeeping beyond the
// list pointers is required.
func InsertSmall(buf []byte, d *Directory, off uint64) {
	listPush(buf, d, SmallSlot(chunk.Footprint(buf, off)), off)
}

// RemoveSmall unlinks a free chunk from its small bin.
func RemoveSmall(buf []byte, d *Directory, off uint64) {
	listRemove(buf, d, SmallSlot(chunk.Footprint(buf, off)), off)
}

// FindSmallExact returns a chunk from the exact-fit small bin for
// footprint, or (0, false) if that bin is empty.
func FindSmallExact(d *Directory, footprint uint64) (uint64, bool) {
	slot := SmallSlot(footprint)
	head := d.Get(slot)
	if head == chunk.NullOffset {
		return 0, false
	}
	return head, true
}

// ScanSmallForward walks forward through up to max small-bin slots above
// footprint, returning the first non-empty one found. The occupancy
// bitmap lets this jump straight to the next populated slot rather than
// probing every one.
func ScanSmallForward(d *Directory, footprint uint64, max int) (uint64, bool) {
	start := SmallSlot(footprint) + 1
	limit := start + max
	if limit > lastSmallSlot+1 {
		limit = lastSmallSlot + 1
	}
	slot, ok := d.NextOccupied(start)
	if !ok || slot >= limit {
		return 0, false
	}
	return d.Get(slot), true
}
