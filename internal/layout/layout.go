// This package manages the low-level, on-disk storage structures: the
// packed byte layout of sector headers, metadata items, and the master
// page. Nothing in here knows about sectors, pages, or files as concepts --
// it only knows how to turn bytes into structs and back.
package layout

import (
	"bytes"

	"github.com/go-restruct/restruct"

	"github.com/dsoprea/go-logging"
)

// defaultEncoding is used for every packed structure in this package. All
// multi-byte integers on the medium are little-endian.
var defaultEncoding = restruct.LE

const (
	// MetadataHeaderSize is the packed size, in bytes, of MetadataHeader.
	MetadataHeaderSize = 8

	// MetadataItemSize is the packed size, in bytes, of MetadataItem.
	MetadataItemSize = 8

	// MasterPageSize is the packed size, in bytes, of MasterPage.
	MasterPageSize = 24

	// LabelSize is the length of the filesystem label carried by the
	// master page.
	LabelSize = 8
)

// MetadataHeader is the fixed header that begins every sector: a magic
// value, the sector's current state, and a small geometry echo that lets
// mount double-check the sector against the filesystem's own computed
// geometry.
type MetadataHeader struct {
	Magic             uint32
	State             uint8
	MetadataPageCount uint8
	MetadataItemCount uint8
	Reserved          uint8
}

// Pack serializes the header to its on-media byte representation.
func (h MetadataHeader) Pack() (raw []byte, err error) {
	raw, err = restruct.Pack(defaultEncoding, &h)
	if err != nil {
		return nil, log.Wrap(err)
	}

	return raw, nil
}

// UnpackMetadataHeader parses a MetadataHeader from its on-media bytes.
func UnpackMetadataHeader(raw []byte) (h MetadataHeader, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	err = restruct.Unpack(raw, defaultEncoding, &h)
	log.PanicIf(err)

	return h, nil
}

// MetadataItem describes one data page: which file and logical block it
// belongs to, its lifecycle state, and how many bytes of it are in use.
type MetadataItem struct {
	FileID   uint16
	Block    uint16
	State    uint8
	Size     uint16
	Reserved uint8
}

// Pack serializes the item to its on-media byte representation.
func (it MetadataItem) Pack() (raw []byte, err error) {
	raw, err = restruct.Pack(defaultEncoding, &it)
	if err != nil {
		return nil, log.Wrap(err)
	}

	return raw, nil
}

// UnpackMetadataItem parses a MetadataItem from its on-media bytes.
func UnpackMetadataItem(raw []byte) (it MetadataItem, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	err = restruct.Unpack(raw, defaultEncoding, &it)
	log.PanicIf(err)

	return it, nil
}

// MasterPage is the sole page belonging to file_id 0, block 0. It identifies
// the filesystem and echoes the geometry it was formatted with.
type MasterPage struct {
	Magic       uint32
	PageSize    uint32
	SectorSize  uint32
	SectorCount uint32
	Label       [LabelSize]byte
}

// Pack serializes the master page to its on-media byte representation.
func (mp MasterPage) Pack() (raw []byte, err error) {
	raw, err = restruct.Pack(defaultEncoding, &mp)
	if err != nil {
		return nil, log.Wrap(err)
	}

	return raw, nil
}

// UnpackMasterPage parses a MasterPage from its on-media bytes.
func UnpackMasterPage(raw []byte) (mp MasterPage, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	err = restruct.Unpack(raw, defaultEncoding, &mp)
	log.PanicIf(err)

	return mp, nil
}

// LabelString returns the label with trailing NULs trimmed.
func (mp MasterPage) LabelString() string {
	return string(bytes.TrimRight(mp.Label[:], "\x00"))
}
