package bins

import "github.com/TomTonic/gomalloc/internal/chunk"

// InsertHuge adds a free chunk to the single huge-bin list.
func InsertHuge(buf []byte, d *Directory, off uint64) {
	listPush(buf, d, SlotHuge, off)
}

// RemoveHuge unlinks a free chunk from the huge-bin list.
func RemoveHuge(buf []byte, d *Directory, off uint64) {
	listRemove(buf, d, SlotHuge, off)
}

// BestFitHuge performs a linear best-fit scan of the huge bin: the
// smallest chunk whose footprint is >= reqFootprint.
func BestFitHuge(buf []byte, d *Directory, reqFootprint uint64) (uint64, bool) {
	head := d.Get(SlotHuge)
	if head == chunk.NullOffset {
		return 0, false
	}
	best := uint64(0)
	bestFootprint := uint64(0)
	found := false
	cur := head
	for {
		f := chunk.Footprint(buf, cur)
		if f >= reqFootprint && (!found || f < bestFootprint) {
			best, bestFootprint, found = cur, f, true
		}
		cur = chunk.Next(buf, cur)
		if cur == head {
			break
		}
	}
	return best, found
}
