package bins

import "github.com/TomTonic/gomalloc/internal/chunk"

// Victim returns the current victim chunk's offset and whether the slot is
// occupied.
func Victim(d *Directory) (uint64, bool) {
	v := d.Get(SlotVictim)
	return v, v != chunk.NullOffset
}

// SetVictim installs off as the new victim, unconditionally overwriting
// whatever was there — callers must have already re-homed the previous
// victim into its normal bin before calling this.
func SetVictim(d *Directory, off uint64) { d.Set(SlotVictim, off) }

// ClearVictim empties the victim slot.
func ClearVictim(d *Directory) { d.Set(SlotVictim, chunk.NullOffset) }

// IsVictim reports whether off is the current victim.
func IsVictim(d *Directory, off uint64) bool { return d.Get(SlotVictim) == off }

// DisplaceVictim empties the victim slot and, if it held a chunk, inserts
// that chunk into its normal size-ordered bin.
func DisplaceVictim(buf []byte, d *Directory) {
	old, ok := Victim(d)
	if !ok {
		return
	}
	ClearVictim(d)
	Insert(buf, d, old)
}
