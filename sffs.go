// This package implements SFFS, a small flash-aware file system: the
// on-media layout, allocation, and wear-aware relocation machinery that
// lets a writable, overwrite-capable, appendable file API sit on top of a
// NOR-flash-like medium that can only clear bits in place and only reset
// them to 1 by erasing a whole sector.
package sffs

import (
	"github.com/dsoprea/go-logging"

	"github.com/dsoprea/go-sffs/flash"
	"github.com/dsoprea/go-sffs/internal/layout"
)

// masterFileID is the reserved file_id that identifies the filesystem's own
// master page.
const masterFileID = 0

// MaxFileID is the largest file_id a caller may open (0xfffe); 0 is reserved
// for the master page and 0xffff marks an unassigned item.
const MaxFileID = 0xfffe

// Sffs is a mounted filesystem instance. All of its state -- geometry, the
// flash device it owns -- is carried here explicitly rather than in package
// globals, so that more than one filesystem can be mounted in a process at
// once (even though, per the concurrency model, no single instance is safe
// for concurrent use).
type Sffs struct {
	dev flash.Device
	geo Geometry

	label string
}

// Mount reads geometry from the flash device, derives the filesystem's
// layout parameters, validates the master page, and retires to OLD any
// orphaned RESERVED pages left behind by a crash during a prior write.
func Mount(dev flash.Device) (fs *Sffs, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	info := dev.Info()

	geo := deriveGeometry(info.PageSize, info.SectorSize, info.SectorCount())

	fs = &Sffs{
		dev: dev,
		geo: geo,
	}

	f, err := fs.OpenID(masterFileID, ModeRead)
	log.PanicIf(err)

	raw := make([]byte, layout.MasterPageSize)

	n, err := f.Read(raw)
	log.PanicIf(err)

	if n != len(raw) {
		log.Panicf("master page is short: (%d) != (%d)", n, len(raw))
	}

	log.PanicIf(f.Close())

	mp, err := layout.UnpackMasterPage(raw)
	log.PanicIf(err)

	if err := fs.checkMasterPage(mp); err != nil {
		return nil, log.Wrap(err)
	}

	fs.label = mp.LabelString()

	err = fs.recoverOrphanedPages()
	log.PanicIf(err)

	return fs, nil
}

func (fs *Sffs) checkMasterPage(mp layout.MasterPage) (err error) {
	if mp.Magic != masterMagic {
		return log.Wrap(ErrBadGeometry)
	}

	if uint32(mp.PageSize) != fs.geo.PageSize || uint32(mp.SectorSize) != fs.geo.SectorSize {
		return log.Wrap(ErrBadGeometry)
	}

	if uint32(mp.SectorCount) != fs.geo.SectorCount {
		return log.Wrap(ErrBadGeometry)
	}

	return nil
}

// Geometry returns the filesystem's derived layout parameters.
func (fs *Sffs) Geometry() Geometry {
	return fs.geo
}

// Label returns the 8-byte filesystem label recorded at format time.
func (fs *Sffs) Label() string {
	return fs.label
}

// recoverOrphanedPages scans every sector for pages stuck in RESERVED: a
// write that crashed between writing page data and committing the new
// item. Such a page is invisible to findPage, so the only safe move is
// forward -- retire it to OLD, a 1->0 refinement of RESERVED.
func (fs *Sffs) recoverOrphanedPages() (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	for sector := uint32(0); sector < fs.geo.SectorCount; sector++ {
		for page := uint32(0); page < fs.geo.DataPagesPerSector; page++ {
			pp := pagePos{sector: sector, page: page}

			item, err := fs.getPageMetadata(pp)
			log.PanicIf(err)

			if PageState(item.State) == PageReserved {
				err := fs.setPageState(pp, PageOld)
				log.PanicIf(err)
			}
		}
	}

	return nil
}
