// Package gomalloc is a single-threaded dynamic memory allocator over a
// contiguous, growable byte arena: a segregated free-space index (small
// exact-fit bins, a bitwise digital tree for large bins, a single huge-bin
// list, and a one-chunk victim cache) sitting on an append-only heap
// primitive.
//
// Not safe for concurrent use. A host embedding an Allocator in a
// multi-threaded program must add its own mutex around every call: the
// core here assumes exclusive access for the duration of each operation
// and deliberately carries no lock of its own.
package gomalloc

import (
	"errors"
	"fmt"

	"github.com/TomTonic/gomalloc/internal/bins"
	"github.com/TomTonic/gomalloc/internal/chunk"
	"github.com/TomTonic/gomalloc/internal/heapmem"
)

// ErrOutOfMemory is returned by Malloc and Realloc when the heap-growth
// primitive refuses to extend the arena far enough to satisfy a request.
var ErrOutOfMemory = errors.New("gomalloc: out of memory")

// Allocator is a single managed heap and its free-space index. It is not
// safe for concurrent use and carries no lock; see the package doc.
type Allocator struct {
	heap *heapmem.Heap
	dir  *bins.Directory
}

// New returns an Allocator whose backing arena may grow up to limit bytes
// (a non-positive limit means no explicit limit; the arena then stops at
// heapmem's fixed 1 GiB reservation), already initialised per Init.
func New(limit int64) (*Allocator, error) {
	a := &Allocator{heap: heapmem.New(limit), dir: bins.NewDirectory()}
	if err := a.Init(); err != nil {
		return nil, err
	}
	return a, nil
}

// Init establishes the initial end-of-heap chunk: grows the arena by
// InitialChunkSize plus two header words and marks the resulting chunk
// terminal with PREV_INUSE set, since it has no predecessor inside the
// managed region. The bin directory starts empty except for slot 0.
func (a *Allocator) Init() error {
	footprint := InitialChunkSize + 2*chunk.WordSize
	off, ok := a.heap.Grow(footprint)
	if !ok {
		return fmt.Errorf("gomalloc: init: %w", heapmem.ErrGrowthLimit)
	}
	chunk.InitHeader(a.heap.Bytes(), off, footprint, false, true)
	a.dir.Set(bins.SlotEndOfHeap, off)
	return nil
}

// ResetBrk returns the heap to its pristine, empty state. The allocator
// must be re-initialised (Init) before further use.
func (a *Allocator) ResetBrk() {
	a.heap.Reset()
	a.dir = bins.NewDirectory()
}

// HeapLo returns the offset of the first byte of the managed region.
func (a *Allocator) HeapLo() uint64 { return a.heap.Lo() }

// HeapHi returns the offset one past the last byte of the managed region.
func (a *Allocator) HeapHi() uint64 { return a.heap.Hi() }

// directory exposes the bin directory to package-internal callers in
// alloc.go/free.go/realloc.go without making it part of the public API.
func (a *Allocator) directory() *bins.Directory { return a.dir }

func (a *Allocator) bytes() []byte { return a.heap.Bytes() }

// growHeap extends the arena by delta bytes, translating a ceiling hit
// into ErrOutOfMemory.
func (a *Allocator) growHeap(delta uint64) (uint64, error) {
	off, ok := a.heap.Grow(delta)
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrOutOfMemory, heapmem.ErrGrowthLimit)
	}
	return off, nil
}

// endOfHeap returns the offset of the current terminal chunk.
func (a *Allocator) endOfHeap() uint64 { return a.dir.Get(bins.SlotEndOfHeap) }

func (a *Allocator) setEndOfHeap(off uint64) { a.dir.Set(bins.SlotEndOfHeap, off) }

// offsetOf recovers the offset of the chunk backing a payload slice b
// previously handed out by Malloc/Realloc, via pointer arithmetic against
// the arena's base address — the one place outside internal/trace this
// module reaches for unsafe, and only to compare addresses.
func (a *Allocator) offsetOf(b []byte) uint64 {
	buf := a.bytes()
	return chunk.OffsetFromPayload(sliceOffset(buf, b))
}
