package gomalloc

import (
	"github.com/TomTonic/gomalloc/internal/bins"
	"github.com/TomTonic/gomalloc/internal/chunk"
)

// Free releases a block previously returned by Malloc or Realloc. Freeing
// an unknown or already-freed slice is undefined behaviour, not detected
// on this path. Freeing a nil slice is a no-op.
func (a *Allocator) Free(b []byte) {
	if len(b) == 0 {
		return
	}
	buf := a.bytes()
	dir := a.directory()
	off := a.offsetOf(b)

	chunk.ClearCurInUse(buf, off)
	next := chunk.NextOffset(buf, off)
	chunk.ClearPrevInUse(buf, next)
	chunk.SetPrevSize(buf, next, chunk.Footprint(buf, off))

	cur := off
	if !chunk.PrevInUse(buf, cur) {
		prev := chunk.PrevOffset(buf, cur)
		a.removeFree(prev)
		cur = chunk.Combine(buf, prev, cur)
	}

	next = chunk.NextOffset(buf, cur)
	if next == a.endOfHeap() {
		a.setEndOfHeap(chunk.Combine(buf, cur, next))
		return
	}
	if !chunk.CurInUse(buf, next) {
		a.removeFree(next)
		cur = chunk.Combine(buf, cur, next)
	}
	bins.Insert(buf, dir, cur)
}

// removeFree detaches a free chunk from wherever it is currently
// indexed — its normal bin, or the victim slot if it happens to be the
// victim.
func (a *Allocator) removeFree(off uint64) {
	dir := a.directory()
	if bins.IsVictim(dir, off) {
		bins.ClearVictim(dir)
		return
	}
	bins.Remove(a.bytes(), dir, off)
}
