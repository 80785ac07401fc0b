package sffs

import (
	"github.com/dsoprea/go-logging"

	"github.com/dsoprea/go-sffs/internal/layout"
)

// getSectorHeader reads and validates the metadata header of a sector.
func (fs *Sffs) getSectorHeader(sector uint32) (header layout.MetadataHeader, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	raw := make([]byte, layout.MetadataHeaderSize)

	err = fs.dev.PageRead(fs.geo.headerAddr(sector), raw)
	log.PanicIf(err)

	header, err = layout.UnpackMetadataHeader(raw)
	log.PanicIf(err)

	err = fs.checkMetadataHeader(header)
	log.PanicIf(err)

	return header, nil
}

// checkMetadataHeader validates a sector header's magic and geometry echo.
func (fs *Sffs) checkMetadataHeader(header layout.MetadataHeader) (err error) {
	if header.Magic != metadataMagic {
		return log.Wrap(ErrBadGeometry)
	}

	if uint32(header.MetadataPageCount) >= fs.geo.SectorSize/fs.geo.PageSize {
		return log.Wrap(ErrBadGeometry)
	}

	return nil
}

func (fs *Sffs) writeSectorHeader(sector uint32, header layout.MetadataHeader) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	raw, err := header.Pack()
	log.PanicIf(err)

	err = fs.dev.PageWrite(fs.geo.headerAddr(sector), raw)
	log.PanicIf(err)

	return nil
}

// getPageMetadata reads the metadata item describing a single data page.
func (fs *Sffs) getPageMetadata(pp pagePos) (item layout.MetadataItem, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	raw := make([]byte, layout.MetadataItemSize)

	err = fs.dev.PageRead(fs.geo.itemAddr(pp), raw)
	log.PanicIf(err)

	item, err = layout.UnpackMetadataItem(raw)
	log.PanicIf(err)

	return item, nil
}

// setPageMetadata writes a new metadata item over the current one (which
// must be a 1->0 refinement of it -- the flash device enforces this) and
// then re-derives the owning sector's state.
func (fs *Sffs) setPageMetadata(pp pagePos, item layout.MetadataItem) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	raw, err := item.Pack()
	log.PanicIf(err)

	err = fs.dev.PageWrite(fs.geo.itemAddr(pp), raw)
	log.PanicIf(err)

	err = fs.updateSectorMetadata(pp.sector)
	log.PanicIf(err)

	return nil
}

// setPageState is a read-modify-write of just the state byte of a page's
// metadata item.
func (fs *Sffs) setPageState(pp pagePos, state PageState) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	item, err := fs.getPageMetadata(pp)
	log.PanicIf(err)

	item.State = uint8(state)

	err = fs.setPageMetadata(pp, item)
	log.PanicIf(err)

	return nil
}

// updateSectorMetadata tallies the state of every data page in a sector and
// rewrites the sector header's state byte by feeding the tally through
// deriveSectorState.
func (fs *Sffs) updateSectorMetadata(sector uint32) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	header, err := fs.getSectorHeader(sector)
	log.PanicIf(err)

	var erased, reserved, used, moving, old uint32

	for page := uint32(0); page < fs.geo.DataPagesPerSector; page++ {
		item, err := fs.getPageMetadata(pagePos{sector: sector, page: page})
		log.PanicIf(err)

		switch PageState(item.State) {
		case PageErased:
			erased++
		case PageReserved:
			reserved++
		case PageUsed:
			used++
		case PageMoving:
			moving++
		case PageOld:
			old++
		default:
			log.Panicf("sector (%d) page (%d) has unrecognized page state: (0x%02x)", sector, page, item.State)
		}
	}

	n := fs.geo.DataPagesPerSector

	newState, ok := deriveSectorState(n, erased, reserved, used, moving, old)
	if !ok {
		log.Panicf("sector (%d) page-state tally does not match any known sector state: erased=(%d) reserved=(%d) used=(%d) moving=(%d) old=(%d) of (%d)", sector, erased, reserved, used, moving, old, n)
	}

	if uint8(newState)&uint8(header.State) != uint8(newState) {
		log.Panicf("sector (%d) derived state (0x%02x) is not a 1->0 refinement of current state (0x%02x)", sector, uint8(newState), header.State)
	}

	if SectorState(header.State) == newState {
		return nil
	}

	header.State = uint8(newState)

	err = fs.writeSectorHeader(sector, header)
	log.PanicIf(err)

	return nil
}

// deriveSectorState maps a sector's page-state tally to its own state. The
// first matching rule wins; order matters.
func deriveSectorState(n, erased, reserved, used, moving, old uint32) (state SectorState, ok bool) {
	if erased == n {
		return SectorErased, true
	}

	if erased > 0 && (reserved+used+moving+old) > 0 {
		return SectorUsed, true
	}

	if old == n {
		return SectorOld, true
	}

	if erased == 0 && (reserved+used+moving+old) == n && old > 0 {
		return SectorDirty, true
	}

	if erased == 0 && old == 0 {
		return SectorFull, true
	}

	return 0, false
}
