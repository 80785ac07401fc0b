package layout

import (
	"testing"
)

func TestMetadataHeader_PackUnpack_RoundTrips(t *testing.T) {
	h := MetadataHeader{
		Magic:             0x87985214,
		State:             0xde,
		MetadataPageCount: 1,
		MetadataItemCount: 31,
	}

	raw, err := h.Pack()
	if err != nil {
		panic(err)
	}

	if len(raw) != MetadataHeaderSize {
		t.Fatalf("packed header is the wrong size: (%d) != (%d)", len(raw), MetadataHeaderSize)
	}

	h2, err := UnpackMetadataHeader(raw)
	if err != nil {
		panic(err)
	}

	if h2 != h {
		t.Fatalf("header did not round-trip: got (%+v) want (%+v)", h2, h)
	}
}

func TestMetadataItem_PackUnpack_RoundTrips(t *testing.T) {
	it := MetadataItem{
		FileID: 42,
		Block:  7,
		State:  0xb4,
		Size:   200,
	}

	raw, err := it.Pack()
	if err != nil {
		panic(err)
	}

	if len(raw) != MetadataItemSize {
		t.Fatalf("packed item is the wrong size: (%d) != (%d)", len(raw), MetadataItemSize)
	}

	it2, err := UnpackMetadataItem(raw)
	if err != nil {
		panic(err)
	}

	if it2 != it {
		t.Fatalf("item did not round-trip: got (%+v) want (%+v)", it2, it)
	}
}

func TestMasterPage_PackUnpack_RoundTrips(t *testing.T) {
	mp := MasterPage{
		Magic:       0x93827485,
		PageSize:    256,
		SectorSize:  4096,
		SectorCount: 8,
	}

	copy(mp.Label[:], "testvol")

	raw, err := mp.Pack()
	if err != nil {
		panic(err)
	}

	if len(raw) != MasterPageSize {
		t.Fatalf("packed master page is the wrong size: (%d) != (%d)", len(raw), MasterPageSize)
	}

	mp2, err := UnpackMasterPage(raw)
	if err != nil {
		panic(err)
	}

	if mp2 != mp {
		t.Fatalf("master page did not round-trip: got (%+v) want (%+v)", mp2, mp)
	}

	if mp2.LabelString() != "testvol" {
		t.Fatalf("label did not round-trip: got (%q)", mp2.LabelString())
	}
}

func TestMasterPage_LabelString_TrimsTrailingNuls(t *testing.T) {
	var mp MasterPage
	copy(mp.Label[:], "ab")

	if mp.LabelString() != "ab" {
		t.Fatalf("label was not trimmed: got (%q)", mp.LabelString())
	}
}
