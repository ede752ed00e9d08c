// Package checker implements the debug-build heap validator: a full
// traversal of the arena that cross-checks every boundary-tag invariant
// against the bin directory's view of which chunks are free. It is not on
// the hot allocation path — callers wire it in behind a
// debug flag, the way original_source/mymalloc/my_checker.c's my_checker
// was wired behind the validator harness rather than called from malloc
// itself.
package checker

import (
	"fmt"

	set3 "github.com/TomTonic/Set3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/TomTonic/gomalloc/internal/bins"
	"github.com/TomTonic/gomalloc/internal/chunk"
)

var printer = message.NewPrinter(language.English)

// Violation describes a single invariant failure found during Check.
type Violation struct {
	Offset uint64
	Detail string
}

func (v Violation) Error() string {
	return printer.Sprintf("chunk at offset %d: %s", v.Offset, v.Detail)
}

// maxListWalk bounds the circular-list traversal used to confirm a free
// chunk's next/prev pointers actually close a cycle, mirroring
// my_checker.c's is_circularly_linked_list loop bound.
const maxListWalk = 1 << 20

// Check walks the arena end to end and reports the first invariant
// violation found, or nil if none. It verifies, per chunk:
//
//   - the shared boundary-tag fields agree with both neighbours
//     (footprint/prev_size and the CUR_INUSE/PREV_INUSE flag pair),
//   - every free chunk's circular list closes in both directions,
//   - every free chunk the heap walk finds is registered in the bin
//     directory exactly once, and every chunk the directory references
//     was in fact visited as free by the heap walk,
//   - every large-bin tree child's parent pointer names its parent.
func Check(buf []byte, d *bins.Directory) error {
	heapFree := set3.EmptyWithCapacity[uint64](16)

	off := uint64(0)
	for chunk.HasNext(buf, off) {
		next := chunk.NextOffset(buf, off)

		if chunk.CurInUse(buf, off) {
			if !chunk.PrevInUse(buf, next) {
				return Violation{off, "marked in-use but successor's PREV_INUSE is clear"}
			}
		} else {
			if chunk.PrevInUse(buf, next) {
				return Violation{off, "marked free but successor's PREV_INUSE is set"}
			}
			if chunk.PrevSize(buf, next) != chunk.Footprint(buf, off) {
				return Violation{off, printer.Sprintf(
					"footprint %d does not match successor's recorded prev_size %d",
					chunk.Footprint(buf, off), chunk.PrevSize(buf, next))}
			}
			if chunk.PrevOffset(buf, next) != off {
				return Violation{off, "successor's computed predecessor does not loop back to this chunk"}
			}
			if !bins.IsVictim(d, off) && !isCircularlyLinked(buf, off) {
				return Violation{off, "free chunk's next/prev list does not close"}
			}
			if heapFree.Contains(off) {
				return Violation{off, "visited twice during heap walk"}
			}
			heapFree.Add(off)
		}
		off = next
	}
	if !chunk.PrevInUse(buf, off) {
		return Violation{off, "end-of-heap sentinel's PREV_INUSE is clear"}
	}

	dirFree, err := walkDirectory(buf, d)
	if err != nil {
		return err
	}

	if heapFree.Len() != dirFree.Len() {
		return fmt.Errorf("checker: heap walk found %d free chunks but the bin directory holds %d",
			heapFree.Len(), dirFree.Len())
	}
	for _, off := range heapFree.ToSlice() {
		if !dirFree.Contains(off) {
			return Violation{off, "free per heap walk but absent from every bin"}
		}
	}
	return nil
}

// MustCheck panics on the first violation Check finds. Intended for tests
// and debug builds, never for production allocation paths.
func MustCheck(buf []byte, d *bins.Directory) {
	if err := Check(buf, d); err != nil {
		panic(err)
	}
}

// Dump returns a human-readable, thousands-separated summary of the
// arena's current occupancy, for debug logging alongside Check.
func Dump(buf []byte, d *bins.Directory) string {
	var used, free uint64
	var usedChunks, freeChunks int
	for off := uint64(0); chunk.HasNext(buf, off); off = chunk.NextOffset(buf, off) {
		f := chunk.Footprint(buf, off)
		if chunk.CurInUse(buf, off) {
			used += f
			usedChunks++
		} else {
			free += f
			freeChunks++
		}
	}
	return printer.Sprintf(
		"heap: %d bytes total, %d in-use chunks (%d bytes), %d free chunks (%d bytes)",
		len(buf), usedChunks, used, freeChunks, free)
}

func isCircularlyLinked(buf []byte, off uint64) bool {
	fwd := chunk.Next(buf, off)
	for i := 0; i < maxListWalk; i++ {
		if fwd == off {
			break
		}
		fwd = chunk.Next(buf, fwd)
	}
	if fwd != off {
		return false
	}
	back := chunk.Prev(buf, off)
	for i := 0; i < maxListWalk; i++ {
		if back == off {
			return true
		}
		back = chunk.Prev(buf, back)
	}
	return false
}

// walkDirectory visits every chunk reachable from the bin directory
// (small-bin lists, the huge list, the large-bin tree, and the victim
// slot) and returns the set of offsets found, erroring on any chunk that
// is not actually marked free or that appears more than once.
func walkDirectory(buf []byte, d *bins.Directory) (*set3.Set3[uint64], error) {
	seen := set3.EmptyWithCapacity[uint64](16)

	visit := func(off uint64) error {
		if chunk.CurInUse(buf, off) {
			return Violation{off, "registered in a bin but marked in-use"}
		}
		if seen.Contains(off) {
			return Violation{off, "registered in more than one bin"}
		}
		seen.Add(off)
		return nil
	}

	if v, ok := bins.Victim(d); ok {
		if err := visit(v); err != nil {
			return nil, err
		}
	}

	if !d.Empty(bins.SlotHuge) {
		if err := walkList(buf, d.Get(bins.SlotHuge), visit); err != nil {
			return nil, err
		}
	}

	for slot := 3; slot < bins.NumBins; slot++ {
		if d.Empty(slot) {
			continue
		}
		head := d.Get(slot)
		if slot < 32 {
			if err := walkList(buf, head, visit); err != nil {
				return nil, err
			}
			continue
		}
		if err := walkTree(buf, head, visit); err != nil {
			return nil, err
		}
	}
	return seen, nil
}

func walkList(buf []byte, head uint64, visit func(uint64) error) error {
	cur := head
	for {
		if err := visit(cur); err != nil {
			return err
		}
		cur = chunk.Next(buf, cur)
		if cur == head {
			break
		}
	}
	return nil
}

func walkTree(buf []byte, root uint64, visit func(uint64) error) error {
	if root == chunk.NullOffset {
		return nil
	}
	if err := walkList(buf, root, visit); err != nil {
		return err
	}
	for _, i := range [2]int{0, 1} {
		if c := chunk.Child(buf, root, i); c != chunk.NullOffset {
			if chunk.Parent(buf, c) != root {
				return Violation{c, "large-bin tree child's parent pointer does not match its parent"}
			}
			if err := walkTree(buf, c, visit); err != nil {
				return err
			}
		}
	}
	return nil
}
