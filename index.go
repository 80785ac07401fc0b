package sffs

import (
	"github.com/dsoprea/go-logging"
)

// findPage resolves (fileID, block) to the physical page currently carrying
// its data, scanning sectors and then pages in ascending order. A page is a
// candidate if it's USED or MOVING; during a write the incumbent is MOVING
// and the replacement is RESERVED (excluded), so readers keep resolving to
// the old page until the new item commits to USED and the old item
// transitions to OLD.
//
// If a crash leaves both a USED and a MOVING page for the same key (the
// window between steps 6 and 7 of the write path), USED wins. When the
// MOVING twin comes first in scan order it is retired to OLD as a side
// effect; a MOVING twin that comes after its USED twin is left as it is.
func (fs *Sffs) findPage(fileID, block uint16) (pp pagePos, found bool, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	var hit pagePos
	var hitState PageState
	haveHit := false

	for sector := uint32(0); sector < fs.geo.SectorCount; sector++ {
		for page := uint32(0); page < fs.geo.DataPagesPerSector; page++ {
			candidate := pagePos{sector: sector, page: page}

			item, err := fs.getPageMetadata(candidate)
			log.PanicIf(err)

			state := PageState(item.State)
			if item.FileID != fileID || item.Block != block {
				continue
			}

			if state != PageUsed && state != PageMoving {
				continue
			}

			if !haveHit {
				hit = candidate
				hitState = state
				haveHit = true

				if state == PageUsed {
					// A USED hit can never be improved on; return it without
					// scanning further. Scanning continues only after a
					// MOVING first hit, to catch the MOVING-then-USED
					// ordering.
					return hit, true, nil
				}

				continue
			}

			if hitState == PageMoving && state == PageUsed {
				// Crash recovery: retire the stale MOVING twin.
				err := fs.setPageState(hit, PageOld)
				log.PanicIf(err)

				hit = candidate
				hitState = state

				return hit, true, nil
			}
		}
	}

	if !haveHit {
		return pagePos{}, false, nil
	}

	return hit, true, nil
}

// findErasedPage returns the first erased page suitable for allocation,
// skipping sectors that can't possibly contain one (FULL or DIRTY).
// First-fit is sufficient for correctness; no explicit wear counters are
// tracked beyond the even consumption this scan order happens to produce.
func (fs *Sffs) findErasedPage() (pp pagePos, found bool, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	for sector := uint32(0); sector < fs.geo.SectorCount; sector++ {
		header, err := fs.getSectorHeader(sector)
		log.PanicIf(err)

		state := SectorState(header.State)
		if state == SectorFull || state == SectorDirty {
			continue
		}

		for page := uint32(0); page < fs.geo.DataPagesPerSector; page++ {
			candidate := pagePos{sector: sector, page: page}

			item, err := fs.getPageMetadata(candidate)
			log.PanicIf(err)

			if PageState(item.State) == PageErased {
				return candidate, true, nil
			}
		}
	}

	return pagePos{}, false, nil
}
