package sffs

import (
	"testing"
)

func TestPageState_RefinementChain(t *testing.T) {
	chain := []PageState{PageErased, PageReserved, PageUsed, PageMoving, PageOld}

	for i := 1; i < len(chain); i++ {
		if !chain[i].refines(chain[i-1]) {
			t.Fatalf("%s does not refine %s: transition would require setting a bit", chain[i], chain[i-1])
		}
	}
}

func TestSectorState_OldRefinesDirtyUsedAndFull(t *testing.T) {
	for _, prev := range []SectorState{SectorDirty, SectorUsed, SectorFull} {
		if uint8(SectorOld)&uint8(prev) != uint8(SectorOld) {
			t.Fatalf("SectorOld (0x%02x) is not a submask of %s (0x%02x)", SectorOld, prev, prev)
		}
	}
}

func TestDeriveSectorState_AllErased(t *testing.T) {
	state, ok := deriveSectorState(10, 10, 0, 0, 0, 0)
	if !ok || state != SectorErased {
		t.Fatalf("expected ERASED, got (%s) ok=(%v)", state, ok)
	}
}

func TestDeriveSectorState_MixedErasedAndUsed(t *testing.T) {
	state, ok := deriveSectorState(10, 5, 0, 5, 0, 0)
	if !ok || state != SectorUsed {
		t.Fatalf("expected USED, got (%s) ok=(%v)", state, ok)
	}
}

func TestDeriveSectorState_AllOld(t *testing.T) {
	state, ok := deriveSectorState(10, 0, 0, 0, 0, 10)
	if !ok || state != SectorOld {
		t.Fatalf("expected OLD, got (%s) ok=(%v)", state, ok)
	}
}

func TestDeriveSectorState_NoErasedSomeOld(t *testing.T) {
	state, ok := deriveSectorState(10, 0, 0, 5, 0, 5)
	if !ok || state != SectorDirty {
		t.Fatalf("expected DIRTY, got (%s) ok=(%v)", state, ok)
	}
}

func TestDeriveSectorState_FullNoOldNoErased(t *testing.T) {
	state, ok := deriveSectorState(10, 0, 0, 10, 0, 0)
	if !ok || state != SectorFull {
		t.Fatalf("expected FULL, got (%s) ok=(%v)", state, ok)
	}
}
