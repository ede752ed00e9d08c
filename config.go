package gomalloc

import "github.com/TomTonic/gomalloc/internal/chunk"

// Tuning parameters. Compile-time knobs, not a runtime configuration
// surface, so they are exported vars rather than anything backed by a
// config-file format or flag parser.
var (
	// Alignment is the byte alignment of every payload and footprint.
	Alignment uint64 = chunk.WordSize

	// InitialChunkSize is the number of bytes requested from the heap
	// primitive during Init.
	InitialChunkSize uint64 = 39184

	// ExtensionSize is the slack added on top of a shortfall whenever the
	// heap has to grow to satisfy a request.
	ExtensionSize uint64 = chunk.SmallestChunk + 320

	// SmallBinSearchMax bounds the small-bin forward scan in the
	// allocation path. Kept at its default of 0: the mechanism is retained
	// but the path stays dormant unless a caller opts in, since an exact
	// small-bin miss falls straight through to the large bins anyway.
	SmallBinSearchMax = 0

	// LargeBinSearchMax bounds the large-bin forward scan in the
	// allocation path.
	LargeBinSearchMax = 16
)
