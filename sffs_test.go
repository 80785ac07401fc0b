package sffs

import (
	"testing"

	"github.com/dsoprea/go-sffs/flash"
)

func newTestDevice() *flash.MemFlash {
	return flash.NewMemFlashGeometry(32768, 256, 4096, 4096)
}

func mustFormatAndMount(t *testing.T, label string) (*flash.MemFlash, *Sffs) {
	dev := newTestDevice()

	err := Format(dev, label)
	if err != nil {
		panic(err)
	}

	fs, err := Mount(dev)
	if err != nil {
		panic(err)
	}

	return dev, fs
}

func TestFormatAndMount_DerivesExpectedGeometry(t *testing.T) {
	_, fs := mustFormatAndMount(t, "testvol")

	geo := fs.Geometry()

	if geo.PageSize != 256 {
		t.Fatalf("page size: got (%d)", geo.PageSize)
	}

	if geo.SectorSize != 4096 {
		t.Fatalf("sector size: got (%d)", geo.SectorSize)
	}

	if geo.SectorCount != 8 {
		t.Fatalf("sector count: got (%d)", geo.SectorCount)
	}

	if geo.DataPagesPerSector != 15 {
		t.Fatalf("data pages per sector: got (%d)", geo.DataPagesPerSector)
	}

	if geo.FirstDataPage != 1 {
		t.Fatalf("first data page: got (%d)", geo.FirstDataPage)
	}
}

func TestFormatAndMount_PreservesLabel(t *testing.T) {
	_, fs := mustFormatAndMount(t, "testvol")

	if fs.Label() != "testvol" {
		t.Fatalf("label: got (%q)", fs.Label())
	}
}

func TestMount_RejectsGeometryMismatch(t *testing.T) {
	dev := newTestDevice()

	err := Format(dev, "testvol")
	if err != nil {
		panic(err)
	}

	mismatched := flash.NewMemFlashGeometry(32768, 128, 4096, 4096)

	err = mismatched.LoadImage(dev.Image())
	if err != nil {
		panic(err)
	}

	_, err = Mount(mismatched)
	if err == nil {
		t.Fatalf("expected a geometry-mismatch error")
	}
}

func TestOpen_RejectsReservedAndSentinelFileIDs(t *testing.T) {
	_, fs := mustFormatAndMount(t, "testvol")

	if _, err := fs.Open(masterFileID, ModeRead); err == nil {
		t.Fatalf("expected an error opening the reserved master file_id")
	}

	if _, err := fs.Open(0xffff, ModeRead); err == nil {
		t.Fatalf("expected an error opening the sentinel file_id")
	}
}
