package chunk

import "testing"

func newArena(n uint64) []byte { return make([]byte, n) }

func TestInitHeaderAndFlags(t *testing.T) {
	buf := newArena(64)
	InitHeader(buf, 0, 48, true, false)

	if got := Footprint(buf, 0); got != 48 {
		t.Fatalf("Footprint = %d, want 48", got)
	}
	if !CurInUse(buf, 0) {
		t.Fatalf("expected CUR_INUSE set")
	}
	if PrevInUse(buf, 0) {
		t.Fatalf("expected PREV_INUSE clear")
	}

	ClearCurInUse(buf, 0)
	if CurInUse(buf, 0) {
		t.Fatalf("expected CUR_INUSE clear after ClearCurInUse")
	}
	if got := Footprint(buf, 0); got != 48 {
		t.Fatalf("Footprint changed by flag clear: got %d, want 48", got)
	}

	SetPrevInUse(buf, 0)
	if !PrevInUse(buf, 0) {
		t.Fatalf("expected PREV_INUSE set after SetPrevInUse")
	}
}

func TestSetFootprintPreservesFlags(t *testing.T) {
	buf := newArena(64)
	InitHeader(buf, 0, 32, true, true)
	SetFootprint(buf, 0, 40)

	if got := Footprint(buf, 0); got != 40 {
		t.Fatalf("Footprint = %d, want 40", got)
	}
	if !CurInUse(buf, 0) || !PrevInUse(buf, 0) {
		t.Fatalf("SetFootprint must not disturb flag bits")
	}
}

func TestNextOffsetAndHasNext(t *testing.T) {
	buf := newArena(64)
	InitHeader(buf, 0, 24, false, true)
	InitHeader(buf, 32, 24, false, true)

	if got := NextOffset(buf, 0); got != 32 {
		t.Fatalf("NextOffset = %d, want 32", got)
	}
	if !HasNext(buf, 0) {
		t.Fatalf("expected HasNext at offset 0")
	}
	if HasNext(buf, 32) {
		t.Fatalf("terminal chunk must report HasNext == false")
	}
}

func TestPrevSizeRoundTrip(t *testing.T) {
	buf := newArena(64)
	SetPrevSize(buf, 32, 24)
	if got := PrevSize(buf, 32); got != 24 {
		t.Fatalf("PrevSize = %d, want 24", got)
	}
	if got := PrevOffset(buf, 32); got != 0 {
		t.Fatalf("PrevOffset = %d, want 0", got)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	buf := newArena(64)
	InitHeader(buf, 0, 32, true, true)

	p := Payload(buf, 0)
	if len(p) != 24 {
		t.Fatalf("Payload length = %d, want 24", len(p))
	}
	for i := range p {
		p[i] = byte(i + 1)
	}

	off := OffsetFromPayload(PayloadOffset(0))
	if off != 0 {
		t.Fatalf("OffsetFromPayload(PayloadOffset(0)) = %d, want 0", off)
	}
	if buf[PayloadOffset(0)] != 1 {
		t.Fatalf("Payload did not alias the arena")
	}
}

func TestLinkFields(t *testing.T) {
	buf := newArena(64)
	SetNext(buf, 0, 42)
	SetPrev(buf, 0, 7)
	if Next(buf, 0) != 42 || Prev(buf, 0) != 7 {
		t.Fatalf("Next/Prev round trip failed")
	}

	SetChild(buf, 0, 0, 100)
	SetChild(buf, 0, 1, 200)
	SetParent(buf, 0, 300)
	SetBinIndex(buf, 0, 40)
	SetShift(buf, 0, 5)

	if Child(buf, 0, 0) != 100 || Child(buf, 0, 1) != 200 {
		t.Fatalf("Child round trip failed")
	}
	if Parent(buf, 0) != 300 {
		t.Fatalf("Parent round trip failed")
	}
	if BinIndex(buf, 0) != 40 {
		t.Fatalf("BinIndex round trip failed")
	}
	if Shift(buf, 0) != 5 {
		t.Fatalf("Shift round trip failed")
	}
}

func TestIsLargeIsHuge(t *testing.T) {
	cases := []struct {
		footprint       uint64
		large, huge     bool
	}{
		{footprint: 24, large: false, huge: false},
		{footprint: LargeChunkCutoff, large: false, huge: false},
		{footprint: LargeChunkCutoff + 8, large: true, huge: false},
		{footprint: HugeChunkCutoff, large: true, huge: false},
		{footprint: HugeChunkCutoff + 1, large: true, huge: true},
	}
	for _, c := range cases {
		if got := IsLarge(c.footprint); got != c.large {
			t.Errorf("IsLarge(%d) = %v, want %v", c.footprint, got, c.large)
		}
		if got := IsHuge(c.footprint); got != c.huge {
			t.Errorf("IsHuge(%d) = %v, want %v", c.footprint, got, c.huge)
		}
	}
}

func TestRoundRequest(t *testing.T) {
	cases := []struct{ n, want uint64 }{
		{0, SmallestMalloc},
		{1, SmallestMalloc},
		{SmallestMalloc - WordSize, SmallestMalloc},
		{40, 48},
		{41, 56},
	}
	for _, c := range cases {
		if got := RoundRequest(c.n); got != c.want {
			t.Errorf("RoundRequest(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestCanSplit(t *testing.T) {
	if CanSplit(64, 64-SmallestChunk+WordSize) {
		t.Fatalf("should not be splittable with only SmallestChunk-WordSize bytes of surplus")
	}
	if !CanSplit(64, 64-SmallestChunk) {
		t.Fatalf("should be splittable when surplus equals SmallestChunk")
	}
}

func TestSplitAndCombineRoundTrip(t *testing.T) {
	buf := newArena(128)
	InitHeader(buf, 0, 96, false, true)
	SetCurInUse(buf, 0)

	tail := Split(buf, 0, 32)
	if got := Footprint(buf, 0); got != 32 {
		t.Fatalf("head footprint = %d, want 32", got)
	}
	wantTail := uint64(96 - 32 - WordSize)
	if got := Footprint(buf, tail); got != wantTail {
		t.Fatalf("tail footprint = %d, want %d", got, wantTail)
	}
	if PrevInUse(buf, tail) != true {
		t.Fatalf("tail PREV_INUSE should mirror head's CUR_INUSE at split time")
	}
	if PrevSize(buf, tail) != 32 {
		t.Fatalf("tail prev_size = %d, want 32", PrevSize(buf, tail))
	}
	if !HasNext(buf, tail) {
		t.Fatalf("tail should have a successor within a 128-byte arena")
	}

	ClearCurInUse(buf, 0)
	combined := Combine(buf, 0, tail)
	if combined != 0 {
		t.Fatalf("Combine should return the left offset")
	}
	if got := Footprint(buf, 0); got != 96 {
		t.Fatalf("combined footprint = %d, want 96", got)
	}
}
