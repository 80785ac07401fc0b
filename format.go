package sffs

import (
	"github.com/dsoprea/go-logging"

	"github.com/dsoprea/go-sffs/flash"
	"github.com/dsoprea/go-sffs/internal/layout"
)

// Format erases dev and lays down a fresh, empty filesystem: every sector's
// header and metadata items are explicitly written to their ERASED states
// (rather than left at the physical post-erase 0xFF, which isn't a
// refinement of anything downstream), and the master page is written to
// file_id 0, block 0 with the given label.
func Format(dev flash.Device, label string) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	info := dev.Info()
	geo := deriveGeometry(info.PageSize, info.SectorSize, info.SectorCount())

	err = dev.ChipErase()
	log.PanicIf(err)

	erasedItem := layout.MetadataItem{
		FileID:   0xffff,
		Block:    0xffff,
		State:    uint8(PageErased),
		Size:     0xffff,
		Reserved: 0xff,
	}

	erasedItemRaw, err := erasedItem.Pack()
	log.PanicIf(err)

	for sector := uint32(0); sector < geo.SectorCount; sector++ {
		header := layout.MetadataHeader{
			Magic:             metadataMagic,
			State:             uint8(SectorErased),
			MetadataPageCount: uint8(geo.FirstDataPage),
			MetadataItemCount: uint8(geo.DataPagesPerSector),
		}

		headerRaw, err := header.Pack()
		log.PanicIf(err)

		err = dev.PageWrite(geo.headerAddr(sector), headerRaw)
		log.PanicIf(err)

		for page := uint32(0); page < geo.DataPagesPerSector; page++ {
			pp := pagePos{sector: sector, page: page}

			err = dev.PageWrite(geo.itemAddr(pp), erasedItemRaw)
			log.PanicIf(err)
		}
	}

	if len(label) > layout.LabelSize {
		label = label[:layout.LabelSize]
	}

	var labelBytes [layout.LabelSize]byte
	copy(labelBytes[:], label)

	mp := layout.MasterPage{
		Magic:       masterMagic,
		PageSize:    geo.PageSize,
		SectorSize:  geo.SectorSize,
		SectorCount: geo.SectorCount,
		Label:       labelBytes,
	}

	mpRaw, err := mp.Pack()
	log.PanicIf(err)

	masterScratch := make([]byte, geo.PageSize)
	copy(masterScratch, mpRaw)

	masterPos := pagePos{sector: 0, page: 0}

	err = dev.PageWrite(geo.pageDataAddr(masterPos), masterScratch)
	log.PanicIf(err)

	masterItem := layout.MetadataItem{
		FileID: masterFileID,
		Block:  0,
		State:  uint8(PageReserved),
		Size:   uint16(len(mpRaw)),
	}

	masterItemRaw, err := masterItem.Pack()
	log.PanicIf(err)

	err = dev.PageWrite(geo.itemAddr(masterPos), masterItemRaw)
	log.PanicIf(err)

	masterItem.State = uint8(PageUsed)

	masterItemRaw, err = masterItem.Pack()
	log.PanicIf(err)

	err = dev.PageWrite(geo.itemAddr(masterPos), masterItemRaw)
	log.PanicIf(err)

	// Sector 0 now holds one USED page among the rest ERASED; its header
	// must follow suit.
	usedHeader := layout.MetadataHeader{
		Magic:             metadataMagic,
		State:             uint8(SectorUsed),
		MetadataPageCount: uint8(geo.FirstDataPage),
		MetadataItemCount: uint8(geo.DataPagesPerSector),
	}

	usedHeaderRaw, err := usedHeader.Pack()
	log.PanicIf(err)

	err = dev.PageWrite(geo.headerAddr(0), usedHeaderRaw)
	log.PanicIf(err)

	return nil
}
