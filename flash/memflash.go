package flash

import (
	"github.com/dsoprea/go-logging"
)

// Default geometry matching the reference NOR part this package models.
const (
	DefaultPageSize   = 256
	DefaultSectorSize = 4096
	DefaultBlockSize  = 65536
)

// MemFlash is an in-memory emulation of a NOR-flash device. It enforces the
// same constraints a real chip does: page writes only clear bits, and the
// only way to set a bit back to 1 is to erase the sector/block/chip that
// contains it. This is the harness the rest of the filesystem is exercised
// against; it does not persist anything beyond the process.
type MemFlash struct {
	info Info
	data []byte
}

// NewMemFlash allocates a MemFlash of the given capacity using the default
// page/sector/block geometry.
func NewMemFlash(capacity uint32) (mf *MemFlash) {
	return NewMemFlashGeometry(capacity, DefaultPageSize, DefaultSectorSize, DefaultBlockSize)
}

// NewMemFlashGeometry allocates a MemFlash with an explicit geometry. The
// backing store is initialized fully erased (all bits set to 1), matching
// the state of a NOR chip fresh from the factory or after a chip-erase.
func NewMemFlashGeometry(capacity, pageSize, sectorSize, blockSize uint32) (mf *MemFlash) {
	data := make([]byte, capacity)
	for i := range data {
		data[i] = 0xff
	}

	return &MemFlash{
		info: Info{
			Capacity:   capacity,
			PageSize:   pageSize,
			SectorSize: sectorSize,
			BlockSize:  blockSize,
		},
		data: data,
	}
}

// Info returns the geometry of the emulated device.
func (mf *MemFlash) Info() Info {
	return mf.info
}

// LoadImage replaces the backing store wholesale with raw, which must be
// exactly Capacity bytes. It exists for tools that inspect or resume a
// previously-saved image rather than formatting a fresh one.
func (mf *MemFlash) LoadImage(raw []byte) (err error) {
	if uint32(len(raw)) != mf.info.Capacity {
		return log.Wrap(ErrOutOfRange)
	}

	copy(mf.data, raw)

	return nil
}

// Image returns a copy of the device's entire backing store, suitable for
// persisting to a file.
func (mf *MemFlash) Image() []byte {
	out := make([]byte, len(mf.data))
	copy(out, mf.data)

	return out
}

func (mf *MemFlash) checkPageBounds(addr uint32, length int) (err error) {
	if length == 0 {
		return nil
	}

	if addr+uint32(length) > mf.info.Capacity {
		return log.Wrap(ErrOutOfRange)
	}

	pageStart := addr / mf.info.PageSize
	pageEnd := (addr + uint32(length) - 1) / mf.info.PageSize
	if pageStart != pageEnd {
		return log.Wrap(ErrOutOfRange)
	}

	return nil
}

// PageRead implements Device.
func (mf *MemFlash) PageRead(addr uint32, dst []byte) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	err = mf.checkPageBounds(addr, len(dst))
	log.PanicIf(err)

	copy(dst, mf.data[addr:addr+uint32(len(dst))])

	return nil
}

// PageWrite implements Device. It ANDs src into the existing bytes; any
// attempt to flip a 0 back to 1 fails the whole write (nothing is mutated).
func (mf *MemFlash) PageWrite(addr uint32, src []byte) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	err = mf.checkPageBounds(addr, len(src))
	log.PanicIf(err)

	for i, b := range src {
		existing := mf.data[addr+uint32(i)]
		if existing&b != b {
			return log.Wrap(ErrWriteWouldSetBit)
		}
	}

	for i, b := range src {
		mf.data[addr+uint32(i)] &= b
	}

	return nil
}

func (mf *MemFlash) eraseRange(addr, length uint32) (err error) {
	if addr+length > mf.info.Capacity {
		return log.Wrap(ErrOutOfRange)
	}

	for i := addr; i < addr+length; i++ {
		mf.data[i] = 0xff
	}

	return nil
}

// SectorErase implements Device.
func (mf *MemFlash) SectorErase(addr uint32) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	sector := addr / mf.info.SectorSize
	err = mf.eraseRange(sector*mf.info.SectorSize, mf.info.SectorSize)
	log.PanicIf(err)

	return nil
}

// BlockErase implements Device.
func (mf *MemFlash) BlockErase(addr uint32) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	block := addr / mf.info.BlockSize
	err = mf.eraseRange(block*mf.info.BlockSize, mf.info.BlockSize)
	log.PanicIf(err)

	return nil
}

// ChipErase implements Device.
func (mf *MemFlash) ChipErase() (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	err = mf.eraseRange(0, mf.info.Capacity)
	log.PanicIf(err)

	return nil
}

var _ Device = (*MemFlash)(nil)
