package sffs

import (
	"github.com/dsoprea/go-logging"

	"github.com/dsoprea/go-sffs/internal/layout"
)

// reclaimOneSector picks the first all-OLD sector (ascending scan) or, if
// there is none, the first DIRTY sector, relocates every live page it holds
// to fresh pages elsewhere, then erases it and restores it to ERASED. Relocation goes straight to commitBlock with a
// page found via findErasedPage directly: a sector being drained for
// reclamation never needs to trigger another reclaim to make room for its
// own contents.
func (fs *Sffs) reclaimOneSector() (reclaimed bool, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	var target uint32
	have := false

	for sector := uint32(0); sector < fs.geo.SectorCount; sector++ {
		header, err := fs.getSectorHeader(sector)
		log.PanicIf(err)

		state := SectorState(header.State)
		if state == SectorOld {
			target = sector
			have = true

			break
		}

		if state == SectorDirty && !have {
			target = sector
			have = true
		}
	}

	if !have {
		return false, nil
	}

	for page := uint32(0); page < fs.geo.DataPagesPerSector; page++ {
		pp := pagePos{sector: target, page: page}

		item, err := fs.getPageMetadata(pp)
		log.PanicIf(err)

		state := PageState(item.State)
		if state != PageUsed && state != PageMoving {
			continue
		}

		scratch := make([]byte, fs.geo.PageSize)

		err = fs.dev.PageRead(fs.geo.pageDataAddr(pp), scratch)
		log.PanicIf(err)

		newPage, found, err := fs.findErasedPage()
		log.PanicIf(err)

		if !found {
			return false, log.Wrap(ErrMediumFull)
		}

		err = fs.commitBlock(item.FileID, item.Block, scratch, item.Size, true, pp, newPage)
		log.PanicIf(err)
	}

	err = fs.dev.SectorErase(fs.geo.headerAddr(target))
	log.PanicIf(err)

	// Every page's metadata item is written directly (bypassing
	// setPageMetadata's per-write sector tally) because the sector is, for
	// the moment, a mix of freshly-erased (0xFF, an unrecognized page
	// state) and not-yet-rewritten items; the tally only makes sense once
	// every item is back to a known state.
	erasedItem := layout.MetadataItem{
		FileID:   0xffff,
		Block:    0xffff,
		State:    uint8(PageErased),
		Size:     0xffff,
		Reserved: 0xff,
	}

	erasedItemRaw, err := erasedItem.Pack()
	log.PanicIf(err)

	for page := uint32(0); page < fs.geo.DataPagesPerSector; page++ {
		pp := pagePos{sector: target, page: page}

		err = fs.dev.PageWrite(fs.geo.itemAddr(pp), erasedItemRaw)
		log.PanicIf(err)
	}

	header := layout.MetadataHeader{
		Magic:             metadataMagic,
		State:             uint8(SectorErased),
		MetadataPageCount: uint8(fs.geo.FirstDataPage),
		MetadataItemCount: uint8(fs.geo.DataPagesPerSector),
	}

	err = fs.writeSectorHeader(target, header)
	log.PanicIf(err)

	return true, nil
}
