package sffs

import (
	"github.com/dsoprea/go-logging"

	"github.com/dsoprea/go-sffs/internal/layout"
)

// writeBlock relocates the single logical block `block` of file `fileID` so
// that it carries the bytes in `scratch` with a used-length of `size`,
// substituting a freshly allocated page for whatever page (if any) currently
// holds that block. Steps 1 (stage) and 2 (merge) are the caller's job.
// If no erased page is available, one sector is reclaimed (see
// reclaimOneSector) and allocation is retried once before giving up.
func (fs *Sffs) writeBlock(fileID, block uint16, scratch []byte, size uint16, loadedOld bool, oldPage pagePos) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	newPage, found, err := fs.findErasedPage()
	log.PanicIf(err)

	if !found {
		reclaimed, err := fs.reclaimOneSector()
		log.PanicIf(err)

		if reclaimed {
			newPage, found, err = fs.findErasedPage()
			log.PanicIf(err)
		}
	}

	if !found {
		return log.Wrap(ErrMediumFull)
	}

	err = fs.commitBlock(fileID, block, scratch, size, loadedOld, oldPage, newPage)
	log.PanicIf(err)

	return nil
}

// commitBlock performs steps 4 through 7 of the write path against an
// erased target page the caller has already chosen (step 3). Reclamation calls this directly with
// a page it found itself, bypassing writeBlock's own reclaim-and-retry (a
// sector being drained for reclamation never needs to reclaim another).
func (fs *Sffs) commitBlock(fileID, block uint16, scratch []byte, size uint16, loadedOld bool, oldPage, newPage pagePos) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	// Step 4: pre-commit metadata. Old goes USED -> MOVING first so that,
	// mid-crash, a reader still has exactly one resolvable page (the old
	// one, now MOVING but still included by findPage).
	if loadedOld {
		err = fs.setPageState(oldPage, PageMoving)
		log.PanicIf(err)
	}

	err = fs.setPageState(newPage, PageReserved)
	log.PanicIf(err)

	// Step 5: write data.
	err = fs.dev.PageWrite(fs.geo.pageDataAddr(newPage), scratch)
	log.PanicIf(err)

	// Step 6: commit new. This single item write is the commit point: it
	// takes the new page from RESERVED to USED in one refinement.
	newItem := layout.MetadataItem{
		FileID: fileID,
		Block:  block,
		State:  uint8(PageUsed),
		Size:   size,
	}

	err = fs.setPageMetadata(newPage, newItem)
	log.PanicIf(err)

	// Step 7: retire old.
	if loadedOld {
		err = fs.setPageState(oldPage, PageOld)
		log.PanicIf(err)
	}

	return nil
}

// stageAndMerge implements steps 1 and 2 of the write path: load the
// current contents and metadata of the logical block (or start from zeroed
// bytes and a zero item if it doesn't exist yet), then merge in the portion
// of buf that falls within it. localEnd is the offset, exclusive, within
// the block that this call's portion of buf reaches -- the caller combines
// it with oldItem.Size to decide the committed item's final used length.
func (fs *Sffs) stageAndMerge(fileID uint16, block uint32, pos uint32, buf []byte) (scratch []byte, loadedOld bool, oldPage pagePos, oldItem layout.MetadataItem, localEnd uint16, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	pageSize := fs.geo.PageSize
	scratch = make([]byte, pageSize)

	oldPage, found, err := fs.findPage(fileID, uint16(block))
	log.PanicIf(err)

	if found {
		err = fs.dev.PageRead(fs.geo.pageDataAddr(oldPage), scratch)
		log.PanicIf(err)

		oldItem, err = fs.getPageMetadata(oldPage)
		log.PanicIf(err)

		loadedOld = true
	}
	// Else: scratch is already all 0x00 and oldItem is the zero value. This
	// is a deliberate choice: the page will be written with exactly these
	// bytes, and zeros read back as "never written" rather than leftover
	// erased-flash 0xFF.

	length := uint32(len(buf))

	dataStart := pos
	if blockStart := block * pageSize; blockStart > dataStart {
		dataStart = blockStart
	}

	dataEnd := pos + length - 1
	if blockEnd := (block+1)*pageSize - 1; blockEnd < dataEnd {
		dataEnd = blockEnd
	}

	srcOff := dataStart - pos
	dstOff := dataStart % pageSize
	n := dataEnd - dataStart + 1

	copy(scratch[dstOff:dstOff+n], buf[srcOff:srcOff+n])

	localEnd = uint16(dstOff + n)

	return scratch, loadedOld, oldPage, oldItem, localEnd, nil
}
