package flash

import (
	"bytes"
	"testing"
)

func TestMemFlash_FreshlyErased(t *testing.T) {
	mf := NewMemFlash(4096)

	buf := make([]byte, mf.Info().PageSize)

	err := mf.PageRead(0, buf)
	if err != nil {
		panic(err)
	}

	for _, b := range buf {
		if b != 0xff {
			t.Fatalf("freshly-allocated device is not all-erased: found (0x%02x)", b)
		}
	}
}

func TestMemFlash_PageWrite_ClearsBits(t *testing.T) {
	mf := NewMemFlash(4096)

	src := []byte{0x0f, 0xf0, 0x00}

	err := mf.PageWrite(0, src)
	if err != nil {
		panic(err)
	}

	dst := make([]byte, 3)

	err = mf.PageRead(0, dst)
	if err != nil {
		panic(err)
	}

	if !bytes.Equal(dst, src) {
		t.Fatalf("write not reflected: got (%x) want (%x)", dst, src)
	}
}

func TestMemFlash_PageWrite_RejectsSettingBits(t *testing.T) {
	mf := NewMemFlash(4096)

	err := mf.PageWrite(0, []byte{0x0f})
	if err != nil {
		panic(err)
	}

	err = mf.PageWrite(0, []byte{0xf0})
	if err == nil {
		t.Fatalf("expected an error attempting to set a bit from 0 to 1")
	}
}

func TestMemFlash_PageWrite_LeavesDataUntouchedOnRejectedWrite(t *testing.T) {
	mf := NewMemFlash(4096)

	err := mf.PageWrite(0, []byte{0x0f, 0xff})
	if err != nil {
		panic(err)
	}

	// This write is rejected (it would set a bit); the page must be
	// unchanged afterward.
	mf.PageWrite(0, []byte{0xff, 0xf0})

	dst := make([]byte, 2)

	err = mf.PageRead(0, dst)
	if err != nil {
		panic(err)
	}

	if !bytes.Equal(dst, []byte{0x0f, 0xff}) {
		t.Fatalf("a rejected write partially mutated the page: got (%x)", dst)
	}
}

func TestMemFlash_SectorErase_ResetsOnlyThatSector(t *testing.T) {
	mf := NewMemFlashGeometry(8192, 256, 4096, 4096)

	err := mf.PageWrite(0, []byte{0x00})
	if err != nil {
		panic(err)
	}

	err = mf.PageWrite(4096, []byte{0x00})
	if err != nil {
		panic(err)
	}

	err = mf.SectorErase(0)
	if err != nil {
		panic(err)
	}

	firstByte := make([]byte, 1)

	err = mf.PageRead(0, firstByte)
	if err != nil {
		panic(err)
	}

	if firstByte[0] != 0xff {
		t.Fatalf("erased sector did not reset to 0xff: got (0x%02x)", firstByte[0])
	}

	secondSectorByte := make([]byte, 1)

	err = mf.PageRead(4096, secondSectorByte)
	if err != nil {
		panic(err)
	}

	if secondSectorByte[0] != 0x00 {
		t.Fatalf("sector-erase affected a different sector: got (0x%02x)", secondSectorByte[0])
	}
}

func TestMemFlash_PageWrite_RejectsCrossingPageBoundary(t *testing.T) {
	mf := NewMemFlashGeometry(8192, 256, 4096, 4096)

	err := mf.PageWrite(255, []byte{0x00, 0x00})
	if err == nil {
		t.Fatalf("expected an out-of-range error writing across a page boundary")
	}
}

func TestMemFlash_LoadImage_RoundTrips(t *testing.T) {
	mf := NewMemFlash(4096)

	err := mf.PageWrite(0, []byte{0x01, 0x02, 0x03})
	if err != nil {
		panic(err)
	}

	image := mf.Image()

	mf2 := NewMemFlash(4096)

	err = mf2.LoadImage(image)
	if err != nil {
		panic(err)
	}

	dst := make([]byte, 3)

	err = mf2.PageRead(0, dst)
	if err != nil {
		panic(err)
	}

	if !bytes.Equal(dst, []byte{0x01, 0x02, 0x03}) {
		t.Fatalf("loaded image did not round-trip: got (%x)", dst)
	}
}
