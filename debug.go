package sffs

import (
	"fmt"

	"github.com/dsoprea/go-logging"
)

// Dump prints one line per sector: its glyph and a run of per-page glyphs,
// matching the textual layout used to reason about a medium's state by eye.
func (fs *Sffs) Dump() (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	for sector := uint32(0); sector < fs.geo.SectorCount; sector++ {
		header, err := fs.getSectorHeader(sector)
		log.PanicIf(err)

		fmt.Printf("%04d [%c]:", sector, SectorState(header.State).Glyph())

		for page := uint32(0); page < fs.geo.DataPagesPerSector; page++ {
			item, err := fs.getPageMetadata(pagePos{sector: sector, page: page})
			log.PanicIf(err)

			fmt.Printf(" [%c]", PageState(item.State).Glyph())
		}

		fmt.Printf("\n")
	}

	return nil
}

// DumpFile prints every live block of file_id along with its physical
// location and used length.
func (fs *Sffs) DumpFile(fileID uint16) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	fmt.Printf("File (%d)\n", fileID)
	fmt.Printf("=========\n")
	fmt.Printf("\n")

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

			fmt.Printf("block (%d) sector (%d) page (%d) state (%s) size (%d)\n", item.Block, sector, page, state, item.Size)
		}
	}

	return nil
}
