package gomalloc

import (
	"github.com/TomTonic/gomalloc/internal/bins"
	"github.com/TomTonic/gomalloc/internal/chunk"
)

// Realloc resizes a block previously returned by Malloc or Realloc,
// preserving its contents up to min(old, new) length. On growth failure
// the original block is left untouched and an error is returned. A nil b
// behaves like Malloc(n).
func (a *Allocator) Realloc(b []byte, n int) ([]byte, error) {
	if n < 0 {
		panic("gomalloc: negative size")
	}
	if len(b) == 0 {
		return a.Malloc(n)
	}
	req := chunk.RoundRequest(uint64(n))
	off := a.offsetOf(b)
	cur := chunk.Footprint(a.bytes(), off)

	if req <= cur {
		return a.reallocShrink(off, req), nil
	}
	return a.reallocGrow(b, off, req)
}

// reallocShrink splits off the surplus, merges it forward with a free
// (or terminal) right neighbour if there is one, and inserts or publishes
// what's left over.
func (a *Allocator) reallocShrink(off, req uint64) []byte {
	buf := a.bytes()
	dir := a.directory()

	if !chunk.CanSplit(chunk.Footprint(buf, off), req) {
		return chunk.Payload(buf, off)
	}
	tail := chunk.Split(buf, off, req)

	next := chunk.NextOffset(buf, tail)
	switch {
	case next == a.endOfHeap():
		a.setEndOfHeap(chunk.Combine(buf, tail, next))
		return chunk.Payload(buf, off)
	case !chunk.CurInUse(buf, next):
		a.removeFree(next)
		tail = chunk.Combine(buf, tail, next)
	}
	bins.Insert(buf, dir, tail)
	return chunk.Payload(buf, off)
}

// settleGrowResult marks off in-use and, if there is splittable surplus
// beyond req, splits it off and inserts it into its normal bin — unlike
// the allocation path, a realloc's leftover does not become the victim.
// Without a split, it sets the successor's PREV_INUSE instead.
func (a *Allocator) settleGrowResult(off, req uint64) []byte {
	buf := a.bytes()
	chunk.SetCurInUse(buf, off)
	if chunk.CanSplit(chunk.Footprint(buf, off), req) {
		tail := chunk.Split(buf, off, req)
		bins.Insert(buf, a.directory(), tail)
	} else if chunk.HasNext(buf, off) {
		chunk.SetPrevInUse(buf, chunk.NextOffset(buf, off))
	}
	return chunk.Payload(a.bytes(), off)
}

// reallocGrow probes four grow-in-place strategies in order, falling back
// to allocate-copy-free if none applies.
func (a *Allocator) reallocGrow(b []byte, off, req uint64) ([]byte, error) {
	buf := a.bytes()
	cur := chunk.Footprint(buf, off)
	nextOff := chunk.NextOffset(buf, off)
	nextIsEnd := nextOff == a.endOfHeap()
	nextFree := !nextIsEnd && !chunk.CurInUse(buf, nextOff)
	prevFree := !chunk.PrevInUse(buf, off)
	var prevOff uint64
	if prevFree {
		prevOff = chunk.PrevOffset(buf, off)
	}

	// 1. Extend into a free, non-terminal next neighbour.
	if nextFree && cur+chunk.Footprint(buf, nextOff)+chunk.WordSize >= req {
		a.removeFree(nextOff)
		newOff := chunk.Combine(buf, off, nextOff)
		return a.settleGrowResult(newOff, req), nil
	}

	// 2. Both neighbours free and their combined footprint suffices.
	if prevFree && nextFree &&
		chunk.Footprint(buf, prevOff)+cur+chunk.Footprint(buf, nextOff)+2*chunk.WordSize >= req {
		a.removeFree(prevOff)
		a.removeFree(nextOff)
		oldPayload, oldLen := chunk.PayloadOffset(off), cur-chunk.WordSize
		chunk.Combine(buf, off, nextOff)
		newOff := chunk.Combine(buf, prevOff, off)
		copy(buf[chunk.PayloadOffset(newOff):], buf[oldPayload:oldPayload+oldLen])
		return a.settleGrowResult(newOff, req), nil
	}

	// 3. Only the previous neighbour is free (and next isn't terminal).
	if prevFree && !nextIsEnd &&
		chunk.Footprint(buf, prevOff)+cur+chunk.WordSize >= req {
		a.removeFree(prevOff)
		oldPayload, oldLen := chunk.PayloadOffset(off), cur-chunk.WordSize
		newOff := chunk.Combine(buf, prevOff, off)
		copy(buf[chunk.PayloadOffset(newOff):], buf[oldPayload:oldPayload+oldLen])
		return a.settleGrowResult(newOff, req), nil
	}

	// 4. The next neighbour is the end-of-heap chunk: grow and split.
	if nextIsEnd {
		combined := cur + chunk.Footprint(buf, nextOff) + chunk.WordSize
		if !chunk.CanSplit(combined, req) {
			delta := req + ExtensionSize - combined
			if _, err := a.growHeap(delta); err != nil {
				return nil, err
			}
			buf = a.bytes()
			chunk.SetFootprint(buf, nextOff, chunk.Footprint(buf, nextOff)+delta)
		}
		newOff := chunk.Combine(buf, off, nextOff)
		chunk.SetCurInUse(buf, newOff)
		tail := chunk.Split(buf, newOff, req)
		a.setEndOfHeap(tail)
		return chunk.Payload(a.bytes(), newOff), nil
	}

	// 5. Fall back: allocate fresh, copy, free the old block.
	newB, err := a.Malloc(int(req - chunk.WordSize))
	if err != nil {
		return nil, err
	}
	copy(newB, b)
	a.Free(b)
	return newB, nil
}
