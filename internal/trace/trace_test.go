package trace

import (
	"errors"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	input := `
# a comment line
a 0 16
a 1 32

r 0 48
w 1 4
f 1
f 0
`
	ops, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse returned an error: %v", err)
	}
	want := []Op{
		{OpAlloc, 0, 16},
		{OpAlloc, 1, 32},
		{OpRealloc, 0, 48},
		{OpWrite, 1, 4},
		{OpFree, 1, 0},
		{OpFree, 0, 0},
	}
	if len(ops) != len(want) {
		t.Fatalf("got %d ops, want %d", len(ops), len(want))
	}
	for i, op := range ops {
		if op != want[i] {
			t.Errorf("op[%d] = %+v, want %+v", i, op, want[i])
		}
	}
}

func TestParseRejectsUnknownOpcode(t *testing.T) {
	if _, err := Parse(strings.NewReader("x 0 1")); err == nil {
		t.Fatalf("expected an error for an unknown opcode")
	}
}

func TestParseRejectsBadIndex(t *testing.T) {
	if _, err := Parse(strings.NewReader("a notanumber 16")); err == nil {
		t.Fatalf("expected an error for a non-numeric index")
	}
}

// fakeAllocator is a bump allocator over a fixed arena, just capable
// enough to drive Validator against something other than the real
// gomalloc.Allocator.
type fakeAllocator struct {
	arena []byte
	next  int
}

func (f *fakeAllocator) Malloc(n int) ([]byte, error) {
	if f.next+n > len(f.arena) {
		return nil, errors.New("fake allocator: out of space")
	}
	b := f.arena[f.next : f.next+n]
	f.next += n
	return b, nil
}

func (f *fakeAllocator) Free(b []byte) {}

func (f *fakeAllocator) Realloc(b []byte, n int) ([]byte, error) {
	nb, err := f.Malloc(n)
	if err != nil {
		return nil, err
	}
	copy(nb, b)
	return nb, nil
}

func TestValidatorRunHappyPath(t *testing.T) {
	impl := &fakeAllocator{arena: make([]byte, 4096)}
	v := NewValidator(impl, 0)

	ops := []Op{
		{OpAlloc, 0, 16},
		{OpAlloc, 1, 32},
		{OpRealloc, 0, 48},
		{OpFree, 1, 0},
		{OpFree, 0, 0},
	}
	if err := v.Run(ops); err != nil {
		t.Fatalf("Run on a well-behaved allocator returned an error: %v", err)
	}
}

func TestValidatorDetectsOverlap(t *testing.T) {
	impl := &fakeAllocator{arena: make([]byte, 4096)}
	v := NewValidator(impl, 0)

	shared := impl.arena[0:16]
	v.live[0] = shared
	v.ranges[0] = rangeOf(shared)

	if err := v.admit(1, shared); err == nil {
		t.Fatalf("admit should reject a payload overlapping an already-live one")
	}
}

func TestValidatorDetectsStampMismatch(t *testing.T) {
	impl := &fakeAllocator{arena: make([]byte, 4096)}
	v := NewValidator(impl, 0)

	ops := []Op{{OpAlloc, 0, 16}}
	if err := v.Run(ops); err != nil {
		t.Fatalf("initial alloc failed: %v", err)
	}

	// Corrupt the live payload's contents directly, bypassing the
	// allocator, then force a realloc to see the corruption detected.
	live := v.live[0]
	live[0] ^= 0xFF

	if err := v.step(Op{OpRealloc, 0, 64}); err == nil {
		t.Fatalf("expected a stamp-mismatch error after corrupting live data")
	}
}

func TestValidatorAlignment(t *testing.T) {
	impl := &fakeAllocator{arena: make([]byte, 4096)}
	v := NewValidator(impl, 0)
	v.Alignment = 8

	misaligned := impl.arena[1:17]
	if err := v.admit(0, misaligned); err == nil {
		t.Fatalf("admit should reject a misaligned payload")
	}

	aligned := impl.arena[8:24]
	if err := v.admit(1, aligned); err != nil {
		t.Fatalf("admit rejected a correctly aligned payload: %v", err)
	}
}

func TestValidatorRejectsZeroLength(t *testing.T) {
	impl := &fakeAllocator{arena: make([]byte, 4096)}
	v := NewValidator(impl, 0)
	if err := v.admit(0, impl.arena[0:0]); err == nil {
		t.Fatalf("admit should reject a zero-length payload")
	}
}
