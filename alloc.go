package gomalloc

import (
	"github.com/TomTonic/gomalloc/internal/bins"
	"github.com/TomTonic/gomalloc/internal/chunk"
)

// Malloc returns a slice of at least n writable bytes, or an error if the
// heap could not grow far enough to satisfy the request. The returned
// slice's contents are unspecified: nothing here zeroes fresh memory.
func (a *Allocator) Malloc(n int) ([]byte, error) {
	if n < 0 {
		panic("gomalloc: negative size")
	}
	req := chunk.RoundRequest(uint64(n))
	switch {
	case chunk.IsHuge(req):
		return a.allocHuge(req)
	case chunk.IsLarge(req):
		return a.allocLarge(req)
	default:
		return a.allocSmall(req)
	}
}

// tryVictim claims the victim chunk if it is at least big enough for req,
// clearing the slot unconditionally — callers that end up not using it
// are not expected with the current call sites, since the victim is
// always probed first and, once taken, always served.
func (a *Allocator) tryVictim(req uint64) (uint64, bool) {
	dir := a.directory()
	v, ok := bins.Victim(dir)
	if !ok || chunk.Footprint(a.bytes(), v) < req {
		return 0, false
	}
	bins.ClearVictim(dir)
	return v, true
}

// finishAlloc marks off in-use and, if allowSplit and there is enough
// surplus, splits off a free tail and hands it to sink. Otherwise it
// fixes up the successor's PREV_INUSE bit for the whole-chunk case.
func (a *Allocator) finishAlloc(off, req uint64, allowSplit bool, sink func(tail uint64)) []byte {
	buf := a.bytes()
	chunk.SetCurInUse(buf, off)
	if allowSplit && chunk.CanSplit(chunk.Footprint(buf, off), req) {
		tail := chunk.Split(buf, off, req)
		if sink != nil {
			sink(tail)
		}
	} else if chunk.HasNext(buf, off) {
		chunk.SetPrevInUse(buf, chunk.NextOffset(buf, off))
	}
	return chunk.Payload(a.bytes(), off)
}

// victimSink is finishAlloc's split handler for every bin-served request:
// a freshly split remainder always becomes the new victim, displacing
// whatever was there back into its normal bin.
func (a *Allocator) victimSink(tail uint64) {
	buf := a.bytes()
	dir := a.directory()
	bins.DisplaceVictim(buf, dir)
	bins.SetVictim(dir, tail)
}

func (a *Allocator) allocSmall(req uint64) ([]byte, error) {
	dir := a.directory()
	buf := a.bytes()

	if off, ok := bins.FindSmallExact(dir, req); ok {
		bins.RemoveSmall(buf, dir, off)
		return a.finishAlloc(off, req, true, a.victimSink), nil
	}
	if off, ok := a.tryVictim(req); ok {
		return a.finishAlloc(off, req, true, a.victimSink), nil
	}
	if off, ok := bins.ScanSmallForward(dir, req, SmallBinSearchMax); ok {
		bins.RemoveSmall(buf, dir, off)
		return a.finishAlloc(off, req, true, a.victimSink), nil
	}
	if off, ok := bins.ScanLargeForward(buf, dir, bins.FirstLargeSlot, LargeBinSearchMax); ok {
		bins.Remove(buf, dir, off)
		return a.finishAlloc(off, req, true, a.victimSink), nil
	}
	return a.allocAtEndOfHeap(req)
}

func (a *Allocator) allocLarge(req uint64) ([]byte, error) {
	dir := a.directory()
	buf := a.bytes()

	if off, ok := a.tryVictim(req); ok {
		return a.finishAlloc(off, req, true, a.victimSink), nil
	}
	slot := bins.LargeSlot(req)
	if off, ok := bins.BestFitLarge(buf, dir, slot, req); ok {
		bins.RemoveLarge(buf, dir, off)
		return a.finishAlloc(off, req, true, a.victimSink), nil
	}
	if off, ok := bins.ScanLargeForward(buf, dir, slot+1, LargeBinSearchMax); ok {
		bins.Remove(buf, dir, off)
		return a.finishAlloc(off, req, true, a.victimSink), nil
	}
	return a.allocAtEndOfHeap(req)
}

// allocHuge performs the huge path's plain linear best-fit scan. Unlike
// the small/large paths, a huge hit is handed over whole: huge chunks are
// never split or fed through the victim slot.
func (a *Allocator) allocHuge(req uint64) ([]byte, error) {
	dir := a.directory()
	buf := a.bytes()

	if off, ok := bins.BestFitHuge(buf, dir, req); ok {
		bins.RemoveHuge(buf, dir, off)
		return a.finishAlloc(off, req, false, nil), nil
	}
	return a.allocAtEndOfHeap(req)
}

// allocAtEndOfHeap is the shared fallback once every bin/victim path has
// missed: grow the arena if the terminal chunk cannot yet be split to
// satisfy req, then split it and publish the new remainder as the
// terminal chunk.
func (a *Allocator) allocAtEndOfHeap(req uint64) ([]byte, error) {
	term := a.endOfHeap()
	buf := a.bytes()

	if !chunk.CanSplit(chunk.Footprint(buf, term), req) {
		delta := req + ExtensionSize - chunk.Footprint(buf, term)
		if _, err := a.growHeap(delta); err != nil {
			return nil, err
		}
		buf = a.bytes()
		chunk.SetFootprint(buf, term, chunk.Footprint(buf, term)+delta)
	}
	return a.finishAlloc(term, req, true, a.setEndOfHeap), nil
}
