// Package trace replays line-based allocation traces against anything
// satisfying the Allocator interface, checking the results the way
// original_source/mymalloc/validator.h's eval_mm_valid checks a C
// implementation: every payload must be aligned, must not overlap any
// other live payload, and must still hold its old contents after a
// realloc. The heap-extent check validator.h also performs has no
// analogue here — a Go slice can never alias memory outside the array
// that produced it, so that invariant holds structurally rather than
// needing to be asserted.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unsafe"
)

// Kind identifies a trace operation.
type Kind int

const (
	OpAlloc Kind = iota
	OpFree
	OpRealloc
	OpWrite
)

func (k Kind) String() string {
	switch k {
	case OpAlloc:
		return "alloc"
	case OpFree:
		return "free"
	case OpRealloc:
		return "realloc"
	case OpWrite:
		return "write"
	default:
		return "unknown"
	}
}

// Op is one parsed trace line.
type Op struct {
	Kind  Kind
	Index int
	Size  int
}

// Parse reads a line-based trace. Each non-blank, non-comment line is
// "<opcode> <index> [size]": "a <index> <size>" allocates and remembers
// the result under index; "f <index>" frees it; "r <index> <size>"
// reallocates it; "w <index> <size>" is a no-op kept for trace-format
// compatibility with validator.h's WRITE opcode.
func Parse(r io.Reader) ([]Op, error) {
	var ops []Op
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		op, err := parseOp(strings.Fields(text))
		if err != nil {
			return nil, fmt.Errorf("trace line %d: %w", line, err)
		}
		ops = append(ops, op)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}

func parseOp(fields []string) (Op, error) {
	if len(fields) == 0 {
		return Op{}, fmt.Errorf("empty operation")
	}
	var index, size int
	var err error
	if len(fields) > 1 {
		if index, err = strconv.Atoi(fields[1]); err != nil {
			return Op{}, fmt.Errorf("bad index %q: %w", fields[1], err)
		}
	}
	if len(fields) > 2 {
		if size, err = strconv.Atoi(fields[2]); err != nil {
			return Op{}, fmt.Errorf("bad size %q: %w", fields[2], err)
		}
	}
	switch fields[0] {
	case "a":
		return Op{OpAlloc, index, size}, nil
	case "f":
		return Op{OpFree, index, 0}, nil
	case "r":
		return Op{OpRealloc, index, size}, nil
	case "w":
		return Op{OpWrite, index, size}, nil
	default:
		return Op{}, fmt.Errorf("unknown opcode %q", fields[0])
	}
}

// Allocator is the subset of the allocator's public surface a trace needs
// to drive. Declared here, at the point of use, rather than in the root
// package.
type Allocator interface {
	Malloc(n int) ([]byte, error)
	Free(b []byte)
	Realloc(b []byte, n int) ([]byte, error)
}

type addrRange struct{ lo, hi uintptr }

func rangeOf(b []byte) addrRange {
	lo := uintptr(unsafe.Pointer(&b[0]))
	return addrRange{lo: lo, hi: lo + uintptr(len(b)) - 1}
}

func (r addrRange) overlaps(o addrRange) bool {
	return !(o.lo > r.hi || r.lo > o.hi)
}

// Validator replays a trace against an Allocator.
type Validator struct {
	// Alignment, if positive, is the required byte alignment of every
	// payload address.
	Alignment int

	impl   Allocator
	live   map[int][]byte
	ranges map[int]addrRange
}

// NewValidator returns a Validator driving impl, requiring alignment-byte
// aligned payloads (0 disables the alignment check).
func NewValidator(impl Allocator, alignment int) *Validator {
	return &Validator{
		Alignment: alignment,
		impl:      impl,
		live:      make(map[int][]byte),
		ranges:    make(map[int]addrRange),
	}
}

// Run replays ops in order, stopping at and returning the first
// violation.
func (v *Validator) Run(ops []Op) error {
	for i, op := range ops {
		if err := v.step(op); err != nil {
			return fmt.Errorf("op %d (%s index=%d size=%d): %w", i, op.Kind, op.Index, op.Size, err)
		}
	}
	return nil
}

func (v *Validator) step(op Op) error {
	switch op.Kind {
	case OpAlloc:
		b, err := v.impl.Malloc(op.Size)
		if err != nil {
			return err
		}
		if err := v.admit(op.Index, b); err != nil {
			return err
		}
		stamp(b)
		return nil

	case OpRealloc:
		old, ok := v.live[op.Index]
		if !ok {
			return fmt.Errorf("realloc of unknown index %d", op.Index)
		}
		oldLen := len(old)
		delete(v.ranges, op.Index)
		delete(v.live, op.Index)
		b, err := v.impl.Realloc(old, op.Size)
		if err != nil {
			return err
		}
		if n := min(oldLen, len(b)); !checkStamp(b, n) {
			return fmt.Errorf("realloc for index %d did not preserve the first %d bytes", op.Index, n)
		}
		if err := v.admit(op.Index, b); err != nil {
			return err
		}
		stamp(b)
		return nil

	case OpFree:
		b, ok := v.live[op.Index]
		if !ok {
			return fmt.Errorf("free of unknown index %d", op.Index)
		}
		delete(v.ranges, op.Index)
		delete(v.live, op.Index)
		v.impl.Free(b)
		return nil

	case OpWrite:
		return nil

	default:
		return fmt.Errorf("unhandled opcode %d", op.Kind)
	}
}

func (v *Validator) admit(index int, b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("zero-length payload for index %d", index)
	}
	if v.Alignment > 0 {
		if addr := uintptr(unsafe.Pointer(&b[0])); addr%uintptr(v.Alignment) != 0 {
			return fmt.Errorf("payload for index %d is not %d-byte aligned", index, v.Alignment)
		}
	}
	r := rangeOf(b)
	for idx, other := range v.ranges {
		if idx != index && r.overlaps(other) {
			return fmt.Errorf("payload for index %d overlaps live payload for index %d", index, idx)
		}
	}
	v.ranges[index] = r
	v.live[index] = b
	return nil
}

// stamp fills b with a pattern recoverable by checkStamp, so a later
// realloc can confirm its prefix survived the resize.
func stamp(b []byte) {
	for i := range b {
		b[i] = byte(i)
	}
}

func checkStamp(b []byte, n int) bool {
	for i := 0; i < n; i++ {
		if b[i] != byte(i) {
			return false
		}
	}
	return true
}
