package sffs

import (
	"github.com/dsoprea/go-logging"
)

// Mode selects how an open File session behaves.
type Mode int

const (
	// ModeRead opens a file for reading only; pos starts at 0.
	ModeRead Mode = iota

	// ModeOverwrite opens a file for writing starting at pos 0. Any block
	// belonging to the file's previous content that falls beyond the new
	// content's end is retired (truncated away) when the session closes --
	// see DESIGN.md, "Open question 3".
	ModeOverwrite

	// ModeAppend opens a file for writing starting at its current size, so
	// that writes extend the existing content.
	ModeAppend
)

// File is a per-open session: position tracking plus the bookkeeping needed
// to implement OVERWRITE's truncate-at-close semantics.
type File struct {
	fs     *Sffs
	fileID uint16
	mode   Mode
	pos    uint32
	closed bool

	// touchedBlocks records which logical blocks this session has itself
	// committed to, so that a later write to the same block in the same
	// session can correctly extend (rather than reset) that block's
	// recorded used-byte high-water mark.
	touchedBlocks map[uint32]bool

	// maxWrittenBlock is the highest logical block index this session has
	// written, or -1 if none yet. Used at Close to find and retire any
	// blocks beyond it that still belong to a prior OVERWRITE generation.
	maxWrittenBlock int32

	// overwriteOldMaxBlock is the highest logical block index that
	// belonged to the file *before* this OVERWRITE session began, or -1 if
	// the file was empty/nonexistent. Irrelevant for other modes.
	overwriteOldMaxBlock int32
}

// Open opens file_id for the given mode. file_id must be in 1..=0xfffe; 0 is
// reserved for the filesystem's own master page and 0xffff marks an
// unassigned item on the medium.
func (fs *Sffs) Open(fileID uint16, mode Mode) (f *File, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	if fileID == masterFileID || fileID == 0xffff {
		return nil, log.Wrap(ErrInvalidArgument)
	}

	f, err = fs.OpenID(fileID, mode)
	log.PanicIf(err)

	return f, nil
}

// OpenID opens file_id for the given mode, accepting file_id 0, which Open
// rejects; 0xffff is still refused. It exists for the filesystem's
// own bootstrap access to the master page (file_id 0); ordinary callers
// should use Open.
func (fs *Sffs) OpenID(fileID uint16, mode Mode) (f *File, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	if fileID == 0xffff {
		return nil, log.Wrap(ErrInvalidArgument)
	}

	f = &File{
		fs:                   fs,
		fileID:               fileID,
		mode:                 mode,
		touchedBlocks:        make(map[uint32]bool),
		maxWrittenBlock:      -1,
		overwriteOldMaxBlock: -1,
	}

	switch mode {
	case ModeAppend:
		size, err := fs.FileSize(fileID)
		log.PanicIf(err)

		f.pos = size

	case ModeOverwrite:
		maxBlock, _, found, err := fs.scanFile(fileID)
		log.PanicIf(err)

		if found {
			f.overwriteOldMaxBlock = int32(maxBlock)
		}

		f.pos = 0

	default:
		f.pos = 0
	}

	return f, nil
}

// Close flushes any deferred metadata (none is currently buffered in
// memory -- every commit in the write path is already durable by the time
// it returns) and, for an OVERWRITE session, retires any blocks that
// belonged to the file's previous content but fall beyond what this
// session actually wrote.
func (f *File) Close() (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	if f.closed {
		return nil
	}

	if f.mode == ModeOverwrite {
		for block := f.maxWrittenBlock + 1; block <= f.overwriteOldMaxBlock; block++ {
			pp, found, err := f.fs.findPage(f.fileID, uint16(block))
			log.PanicIf(err)

			if found {
				err := f.fs.setPageState(pp, PageOld)
				log.PanicIf(err)
			}
		}
	}

	f.closed = true

	return nil
}

// Seek sets the session's position. Seeking past EOF is permitted; blocks
// between the old EOF and the new position are not implicitly zero-filled,
// only blocks a subsequent write actually touches are allocated.
func (f *File) Seek(pos uint32) {
	f.pos = pos
}

// Pos returns the session's current position.
func (f *File) Pos() uint32 {
	return f.pos
}

// FileID returns the file_id this session is bound to.
func (f *File) FileID() uint16 {
	return f.fileID
}

// Read reads up to len(buf) bytes starting at the session's current
// position, advancing it by the number of bytes read. Reads are resolved
// per logical block; the first block with no current page ends the read
// with a short read, signalling EOF.
func (f *File) Read(buf []byte) (n int, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	if len(buf) == 0 {
		return 0, nil
	}

	pageSize := f.fs.geo.PageSize

	for n < len(buf) {
		block := (f.pos + uint32(n)) / pageSize
		offsetInBlock := (f.pos + uint32(n)) % pageSize

		pp, found, err := f.fs.findPage(f.fileID, uint16(block))
		log.PanicIf(err)

		if !found {
			break
		}

		item, err := f.fs.getPageMetadata(pp)
		log.PanicIf(err)

		if uint32(offsetInBlock) >= uint32(item.Size) {
			break
		}

		available := uint32(item.Size) - offsetInBlock
		want := uint32(len(buf) - n)
		chunk := available
		if want < chunk {
			chunk = want
		}

		page := make([]byte, pageSize)

		err = f.fs.dev.PageRead(f.fs.geo.pageDataAddr(pp), page)
		log.PanicIf(err)

		copy(buf[n:n+int(chunk)], page[offsetInBlock:offsetInBlock+chunk])

		n += int(chunk)

		if chunk < available {
			// We satisfied the caller's buffer mid-block; don't cross into
			// the next block on this call.
			break
		}
	}

	f.pos += uint32(n)

	return n, nil
}

// Write stages, merges, and commits every logical block touched by buf,
// advancing the session's position by len(buf).
func (f *File) Write(buf []byte) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	if len(buf) == 0 {
		return nil
	}

	pageSize := f.fs.geo.PageSize

	pos := f.pos
	length := uint32(len(buf))

	bStart := pos / pageSize
	bEnd := (pos + length - 1) / pageSize

	for block := bStart; block <= bEnd; block++ {
		scratch, loadedOld, oldPage, oldItem, localEnd, err := f.fs.stageAndMerge(f.fileID, block, pos, buf)
		log.PanicIf(err)

		size := localEnd

		alreadyTouched := f.touchedBlocks[block]

		inheritFloor := loadedOld && (alreadyTouched || f.mode == ModeAppend)
		if inheritFloor && oldItem.Size > size {
			size = oldItem.Size
		}

		err = f.fs.writeBlock(f.fileID, uint16(block), scratch, size, loadedOld, oldPage)
		log.PanicIf(err)

		f.touchedBlocks[block] = true

		if int32(block) > f.maxWrittenBlock {
			f.maxWrittenBlock = int32(block)
		}
	}

	f.pos += length

	return nil
}
