package sffs

// On-media magic numbers (little-endian, bit-exact).
const (
	masterMagic   uint32 = 0x93827485
	metadataMagic uint32 = 0x87985214
)

// SectorState is the one-byte sector-level status stored in a sector's
// metadata header. Transitions between these values only ever clear bits,
// which is what lets a sector header be rewritten in place on a medium that
// can only flip bits from 1 to 0.
type SectorState uint8

const (
	// SectorErased: every data page in the sector is still erased.
	SectorErased SectorState = 0xDE

	// SectorUsed: at least one data page is erased and at least one is not.
	SectorUsed SectorState = 0xD6

	// SectorFull: no erased pages remain and none are OLD; every page is
	// live or in-flight.
	SectorFull SectorState = 0x56

	// SectorDirty: no erased pages remain and at least one page is OLD.
	// Eligible for reclamation.
	SectorDirty SectorState = 0x46

	// SectorOld: every data page in the sector is OLD. Fully reclaimable;
	// a whole-sector erase returns it to SectorErased.
	//
	// The bit value is chosen, not dictated by the source material (which
	// never pins one down): it refines SectorDirty the same way every other
	// sector-state transition refines its predecessor, so the header byte
	// only ever loses bits as a sector progresses from used to reclaimable.
	SectorOld SectorState = 0x44
)

func (s SectorState) String() string {
	switch s {
	case SectorErased:
		return "ERASED"
	case SectorUsed:
		return "USED"
	case SectorFull:
		return "FULL"
	case SectorDirty:
		return "DIRTY"
	case SectorOld:
		return "OLD"
	default:
		return "UNKNOWN"
	}
}

// Glyph returns the single-character representation used by the textual
// sector/page dump.
func (s SectorState) Glyph() byte {
	switch s {
	case SectorErased:
		return ' '
	case SectorUsed:
		return 'U'
	case SectorFull:
		return 'F'
	case SectorDirty:
		return 'D'
	case SectorOld:
		return 'O'
	default:
		return '?'
	}
}

// PageState is the one-byte status of a single data page, stored in its
// metadata item. Page states advance strictly in the order
// Erased -> Reserved -> Used -> Moving -> Old (or Erased -> Reserved -> Used
// directly, for a block that has never had a predecessor page). Every
// subsequent state in that chain is a bitwise submask of the one before it,
// so every transition is achievable by clearing bits only -- this is the
// property the source material's own constants failed to satisfy (see
// DESIGN.md, "Open question 1").
type PageState uint8

const (
	// PageErased: the page is erased and ready to be reserved. Physically
	// erased flash reads as 0xFF; Format explicitly writes this byte rather
	// than relying on the raw erased value, since 0xFF isn't a refinement of
	// anything and can't be told apart from "never formatted."
	PageErased PageState = 0xB7

	// PageReserved: a target page chosen for an in-flight write. Invisible
	// to lookups; not yet carrying committed data.
	PageReserved PageState = 0xB6

	// PageUsed: the page carries the current data for its (file_id, block).
	PageUsed PageState = 0xB4

	// PageMoving: the page carried the previous data for its (file_id,
	// block) and is in the process of being replaced.
	PageMoving PageState = 0xB0

	// PageOld: the page's data is no longer current. Its sector becomes a
	// reclamation candidate once every page in it reaches this state.
	PageOld PageState = 0x80
)

func (p PageState) String() string {
	switch p {
	case PageErased:
		return "ERASED"
	case PageReserved:
		return "RESERVED"
	case PageUsed:
		return "USED"
	case PageMoving:
		return "MOVING"
	case PageOld:
		return "OLD"
	default:
		return "UNKNOWN"
	}
}

// Glyph returns the single-character representation used by the textual
// sector/page dump.
func (p PageState) Glyph() byte {
	switch p {
	case PageErased:
		return ' '
	case PageUsed:
		return 'U'
	case PageMoving:
		return 'M'
	case PageReserved:
		return 'R'
	case PageOld:
		return 'O'
	default:
		return '?'
	}
}

// refines reports whether every bit set in p is also set in prev, ie.
// whether moving from prev to p is achievable purely by clearing bits. This
// is what DESIGN.md's resolution of the refinement-chain open question is
// audited against.
func (p PageState) refines(prev PageState) bool {
	return uint8(p)&uint8(prev) == uint8(p)
}
