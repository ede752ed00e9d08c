package bins

import (
	"testing"

	"github.com/TomTonic/gomalloc/internal/chunk"
)

func TestInsertFindRemoveSmall(t *testing.T) {
	buf := make([]byte, 256)
	d := NewDirectory()
	place(buf, 0, 24)

	InsertSmall(buf, d, 0)
	off, ok := FindSmallExact(d, 24)
	if !ok || off != 0 {
		t.Fatalf("FindSmallExact = (%d, %v), want (0, true)", off, ok)
	}

	RemoveSmall(buf, d, 0)
	if _, ok := FindSmallExact(d, 24); ok {
		t.Fatalf("bin should be empty after removing its only chunk")
	}
}

func TestSmallBinCircularList(t *testing.T) {
	buf := make([]byte, 256)
	d := NewDirectory()
	place(buf, 0, 24)
	place(buf, 64, 24)
	place(buf, 128, 24)

	InsertSmall(buf, d, 0)
	InsertSmall(buf, d, 64)
	InsertSmall(buf, d, 128)

	slot := SmallSlot(24)
	head := d.Get(slot)
	seen := map[uint64]bool{}
	cur := head
	for i := 0; i < 3; i++ {
		seen[cur] = true
		cur = chunk.Next(buf, cur)
	}
	if cur != head {
		t.Fatalf("list of 3 should close back on the head after 3 steps")
	}
	for _, off := range []uint64{0, 64, 128} {
		if !seen[off] {
			t.Fatalf("offset %d missing from the circular list", off)
		}
	}

	RemoveSmall(buf, d, 64)
	head = d.Get(slot)
	cur = head
	count := 0
	for {
		count++
		cur = chunk.Next(buf, cur)
		if cur == head {
			break
		}
	}
	if count != 2 {
		t.Fatalf("list should have 2 members left, walked %d", count)
	}
}

func TestScanSmallForward(t *testing.T) {
	buf := make([]byte, 512)
	d := NewDirectory()
	place(buf, 0, 80)
	InsertSmall(buf, d, 0)

	if _, ok := ScanSmallForward(d, 24, 0); ok {
		t.Fatalf("max=0 should never find anything")
	}

	off, ok := ScanSmallForward(d, 24, 16)
	if !ok || off != 0 {
		t.Fatalf("ScanSmallForward(24, 16) = (%d, %v), want (0, true)", off, ok)
	}

	slot := SmallSlot(80)
	start := SmallSlot(24) + 1
	tooSmallMax := slot - start
	if _, ok := ScanSmallForward(d, 24, tooSmallMax); ok {
		t.Fatalf("a max that stops just short of the populated slot must not find it")
	}
}
