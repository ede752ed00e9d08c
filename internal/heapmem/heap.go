// Package heapmem provides the growable byte arena the allocator core sits
// on top of. It stands in for a program-break primitive (sbrk): a single
// contiguous region that only ever grows, never shrinks, except by a full
// reset back to empty.
package heapmem

import "errors"

// ErrGrowthLimit is returned by Grow when extending the arena would exceed
// the configured ceiling.
var ErrGrowthLimit = errors.New("heapmem: growth limit exceeded")

// unboundedReserve is the backing capacity reserved up front for a Heap
// constructed with no explicit ceiling. A real sbrk/mmap-backed heap never
// moves memory it has already handed out when it grows; a single []byte
// arena can only make that same promise if its backing array is sized once
// and never outgrown, since a later append past capacity would silently
// relocate every byte and invalidate every offset taken into it so far.
// This picks a generous but finite stand-in for "unbounded" rather than
// the unenforced growth a plain append gives.
const unboundedReserve = 1 << 30 // 1 GiB

// Heap is a single contiguous, append-only byte region. The zero value is
// ready to use with no ceiling beyond unboundedReserve, which its first
// Grow reserves; use New to impose one.
type Heap struct {
	buf   []byte
	limit int64 // <=0 means unbounded
}

// New returns a Heap whose total size may never exceed limit bytes. A
// non-positive limit means unbounded, within unboundedReserve. Either way
// the backing array's capacity is reserved in full here, up front, so that
// Grow can only ever extend the live slice within that reservation and
// never reallocates it.
func New(limit int64) *Heap {
	reserve := unboundedReserve
	if limit > 0 {
		reserve = int(limit)
	}
	return &Heap{buf: make([]byte, 0, reserve), limit: limit}
}

// Grow extends the arena by delta zero-valued bytes and returns the byte
// offset the arena's tail sat at before the growth (the "old break"), and
// whether the growth succeeded. On failure the arena is left untouched.
//
// Because New reserves the backing array's full capacity up front, this
// never reallocates it: the slice only ever grows within that reservation,
// so every address Grow has previously handed back stays valid at the same
// location for the life of the Heap.
func (h *Heap) Grow(delta uint64) (old uint64, ok bool) {
	if delta == 0 {
		return uint64(len(h.buf)), true
	}
	old = uint64(len(h.buf))
	newLen := old + delta
	if h.limit > 0 && newLen > uint64(h.limit) {
		return 0, false
	}
	if h.buf == nil {
		h.buf = make([]byte, 0, unboundedReserve)
	}
	if newLen > uint64(cap(h.buf)) {
		return 0, false
	}
	h.buf = h.buf[:newLen]
	clear(h.buf[old:newLen])
	return old, true
}

// Bytes returns the live view of the arena. Growing the heap only ever
// extends this slice in place (see Grow); a sub-slice taken from an
// earlier call remains valid until Reset.
func (h *Heap) Bytes() []byte { return h.buf }

// Len returns the current size of the arena in bytes.
func (h *Heap) Len() uint64 { return uint64(len(h.buf)) }

// Lo returns the offset of the first byte of the managed region (always 0
// for this arena model; kept as a method so callers mirror the sbrk-style
// heap_lo()/heap_hi() pairing).
func (h *Heap) Lo() uint64 { return 0 }

// Hi returns the offset one past the last byte of the managed region.
func (h *Heap) Hi() uint64 { return uint64(len(h.buf)) }

// Reset returns the heap to its pristine (empty) state. Callers must
// re-initialise the allocator before further use. The backing array's
// reserved capacity is kept rather than released, so a subsequent Grow
// still never reallocates it.
func (h *Heap) Reset() {
	h.buf = h.buf[:0]
}
