// Command gomalloctrace replays a line-based allocation trace against
// gomalloc.Allocator and reports the first violation found, mirroring the
// role original_source/mymalloc/validator.h's eval_mm_valid played against
// the original C implementation. No third-party CLI library is used here —
// none appears anywhere in the retrieved example pack, so stdlib flag is
// the idiomatic choice.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/TomTonic/gomalloc"
	"github.com/TomTonic/gomalloc/internal/trace"
)

func main() {
	tracePath := flag.String("trace", "", "path to a trace file (required)")
	limit := flag.Int64("heap-limit", 0, "maximum heap size in bytes (0 = no explicit limit, up to 1 GiB)")
	alignment := flag.Int("alignment", int(gomalloc.Alignment), "required payload alignment in bytes")
	flag.Parse()

	if *tracePath == "" {
		fmt.Fprintln(os.Stderr, "gomalloctrace: -trace is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*tracePath, *limit, *alignment); err != nil {
		fmt.Fprintln(os.Stderr, "gomalloctrace:", err)
		os.Exit(1)
	}
	fmt.Println("gomalloctrace: trace replayed with no violations")
}

func run(tracePath string, limit int64, alignment int) error {
	f, err := os.Open(tracePath)
	if err != nil {
		return err
	}
	defer f.Close()

	ops, err := trace.Parse(f)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", tracePath, err)
	}

	a, err := gomalloc.New(limit)
	if err != nil {
		return fmt.Errorf("initialising allocator: %w", err)
	}

	v := trace.NewValidator(adapter{a}, alignment)
	if err := v.Run(ops); err != nil {
		return err
	}
	return nil
}

// adapter narrows *gomalloc.Allocator to the three-method shape
// internal/trace.Allocator expects.
type adapter struct{ a *gomalloc.Allocator }

func (w adapter) Malloc(n int) ([]byte, error)            { return w.a.Malloc(n) }
func (w adapter) Free(b []byte)                           { w.a.Free(b) }
func (w adapter) Realloc(b []byte, n int) ([]byte, error) { return w.a.Realloc(b, n) }
