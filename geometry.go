package sffs

import (
	"github.com/dsoprea/go-sffs/internal/layout"
)

// Geometry is the set of derived parameters computed once at mount time and
// held fixed for the life of a mounted filesystem.
type Geometry struct {
	PageSize           uint32
	SectorSize         uint32
	SectorCount        uint32
	DataPagesPerSector uint32
	FirstDataPage      uint32
}

// Capacity is the total addressable size of the medium.
func (g Geometry) Capacity() uint32 {
	return g.SectorSize * g.SectorCount
}

// deriveGeometry computes data-pages-per-sector and first-data-page from raw
// device geometry: the metadata header and one item per data page share
// the leading pages of the sector, and everything after that is data.
func deriveGeometry(pageSize, sectorSize, sectorCount uint32) Geometry {
	dataPagesPerSector := (sectorSize - layout.MetadataHeaderSize) / (layout.MetadataItemSize + pageSize)
	firstDataPage := sectorSize/pageSize - dataPagesPerSector

	return Geometry{
		PageSize:           pageSize,
		SectorSize:         sectorSize,
		SectorCount:        sectorCount,
		DataPagesPerSector: dataPagesPerSector,
		FirstDataPage:      firstDataPage,
	}
}

// pagePos is a (sector, data-page-index) coordinate into the flat page
// index. It's the Go analogue of the source's `struct sffs_page`.
type pagePos struct {
	sector uint32
	page   uint32
}

// itemAddr returns the byte address of the metadata item describing this
// page.
func (g Geometry) itemAddr(pp pagePos) uint32 {
	return pp.sector*g.SectorSize + layout.MetadataHeaderSize + pp.page*layout.MetadataItemSize
}

// headerAddr returns the byte address of a sector's metadata header.
func (g Geometry) headerAddr(sector uint32) uint32 {
	return sector * g.SectorSize
}

// pageDataAddr returns the byte address of a page's data area.
func (g Geometry) pageDataAddr(pp pagePos) uint32 {
	return pp.sector*g.SectorSize + (g.FirstDataPage+pp.page)*g.PageSize
}
