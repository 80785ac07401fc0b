package sffs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dsoprea/go-sffs/internal/layout"
)

func TestMount_RetiresOrphanedReservedPages(t *testing.T) {
	dev, _ := mustFormatAndMount(t, "testvol")

	// Simulate a crash between writing page data (step 5) and committing
	// the new item (step 6): a page left in RESERVED with no USED/MOVING
	// twin anywhere.
	fs1, err := Mount(dev)
	require.NoError(t, err)

	orphan := pagePos{sector: 1, page: 0}

	require.NoError(t, fs1.setPageMetadata(orphan, layout.MetadataItem{
		FileID: 50,
		Block:  0,
		State:  uint8(PageReserved),
		Size:   0,
	}))

	fs2, err := Mount(dev)
	require.NoError(t, err)

	item, err := fs2.getPageMetadata(orphan)
	require.NoError(t, err)
	require.Equal(t, uint8(PageOld), item.State, "orphaned RESERVED page must be retired to OLD at mount")

	_, found, err := fs2.findPage(50, 0)
	require.NoError(t, err)
	require.False(t, found, "a retired OLD page must not resolve as live data")
}

func TestFindPage_ResolvesUsedOverStaleMovingTwin(t *testing.T) {
	_, fs := mustFormatAndMount(t, "testvol")

	// Simulate the crash window between steps 6 and 7 of a write: the old
	// page is still MOVING (not yet retired) and the new page is already
	// USED.
	movingPage := pagePos{sector: 0, page: 1}
	usedPage := pagePos{sector: 0, page: 2}

	require.NoError(t, fs.setPageMetadata(movingPage, layout.MetadataItem{
		FileID: 60,
		Block:  3,
		State:  uint8(PageUsed),
		Size:   100,
	}))
	require.NoError(t, fs.setPageState(movingPage, PageMoving))

	require.NoError(t, fs.setPageMetadata(usedPage, layout.MetadataItem{
		FileID: 60,
		Block:  3,
		State:  uint8(PageUsed),
		Size:   120,
	}))

	resolved, found, err := fs.findPage(60, 3)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, usedPage, resolved, "findPage must resolve the USED page over its stale MOVING twin")

	stale, err := fs.getPageMetadata(movingPage)
	require.NoError(t, err)
	require.Equal(t, uint8(PageOld), stale.State, "the stale MOVING twin must be retired to OLD as a side effect")
}

func TestFindPage_UsedFoundFirstStopsImmediately(t *testing.T) {
	_, fs := mustFormatAndMount(t, "testvol")

	usedPage := pagePos{sector: 0, page: 1}

	require.NoError(t, fs.setPageMetadata(usedPage, layout.MetadataItem{
		FileID: 61,
		Block:  0,
		State:  uint8(PageUsed),
		Size:   50,
	}))

	resolved, found, err := fs.findPage(61, 0)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, usedPage, resolved)
}
