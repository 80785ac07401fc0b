package sffs

import (
	"github.com/dsoprea/go-logging"

	"github.com/dsoprea/go-sffs/internal/layout"
)

// scanFile finds the highest-numbered live block belonging to fileID and
// returns its metadata item. A page counts as live if it's USED or MOVING;
// a MOVING page is mid-relocation but still holds valid data until its
// replacement commits.
func (fs *Sffs) scanFile(fileID uint16) (maxBlock uint16, lastItem layout.MetadataItem, found bool, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	for sector := uint32(0); sector < fs.geo.SectorCount; sector++ {
		for page := uint32(0); page < fs.geo.DataPagesPerSector; page++ {
			item, err := fs.getPageMetadata(pagePos{sector: sector, page: page})
			log.PanicIf(err)

			if item.FileID != fileID {
				continue
			}

			state := PageState(item.State)
			if state != PageUsed && state != PageMoving {
				continue
			}

			if !found || item.Block > maxBlock {
				maxBlock = item.Block
				lastItem = item
				found = true
			}
		}
	}

	return maxBlock, lastItem, found, nil
}

// FileSize returns the current size, in bytes, of fileID, or 0 if it has
// never been written. It's the highest live block's index times the page
// size, plus that block's recorded used length.
func (fs *Sffs) FileSize(fileID uint16) (size uint32, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	maxBlock, lastItem, found, err := fs.scanFile(fileID)
	log.PanicIf(err)

	if !found {
		return 0, nil
	}

	return uint32(maxBlock)*fs.geo.PageSize + uint32(lastItem.Size), nil
}

// ListFiles returns every file_id with at least one live page, mapped to
// its current size. It's a single scan of the whole medium, used by
// introspection tools rather than by the filesystem itself.
func (fs *Sffs) ListFiles() (sizes map[uint16]uint32, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	sizes = make(map[uint16]uint32)

	for sector := uint32(0); sector < fs.geo.SectorCount; sector++ {
		for page := uint32(0); page < fs.geo.DataPagesPerSector; page++ {
			item, err := fs.getPageMetadata(pagePos{sector: sector, page: page})
			log.PanicIf(err)

			if item.FileID == masterFileID || item.FileID == 0xffff {
				continue
			}

			state := PageState(item.State)
			if state != PageUsed && state != PageMoving {
				continue
			}

			end := uint32(item.Block)*fs.geo.PageSize + uint32(item.Size)
			if end > sizes[item.FileID] {
				sizes[item.FileID] = end
			}
		}
	}

	return sizes, nil
}

// Remove retires every live page belonging to fileID to OLD, making the
// file_id available for reuse with no remaining content.
func (fs *Sffs) Remove(fileID uint16) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	if fileID == masterFileID || fileID == 0xffff {
		return log.Wrap(ErrInvalidArgument)
	}

	for sector := uint32(0); sector < fs.geo.SectorCount; sector++ {
		for page := uint32(0); page < fs.geo.DataPagesPerSector; page++ {
			pp := pagePos{sector: sector, page: page}

			item, err := fs.getPageMetadata(pp)
			log.PanicIf(err)

			if item.FileID != fileID {
				continue
			}

			state := PageState(item.State)
			if state != PageUsed && state != PageMoving {
				continue
			}

			err = fs.setPageState(pp, PageOld)
			log.PanicIf(err)
		}
	}

	return nil
}
