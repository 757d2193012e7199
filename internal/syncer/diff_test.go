package syncer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"maguffin.dev/stackengine/internal/meta"
	"maguffin.dev/stackengine/internal/syncer"
)

func t1(offset int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(offset) * time.Hour)
}

// TestDiffCreatedAndUpdated mirrors the literal scenario: old has PRs 1
// and 2, new has 1 (unchanged), 2 (updated), and 3 (new). #1 yields
// nothing.
func TestDiffCreatedAndUpdated(t *testing.T) {
	old := []meta.PullRequest{
		{Number: 1, UpdatedAt: t1(1)},
		{Number: 2, UpdatedAt: t1(2)},
	}
	newList := []meta.PullRequest{
		{Number: 1, UpdatedAt: t1(1)},
		{Number: 2, UpdatedAt: t1(3), Title: "two"},
		{Number: 3, UpdatedAt: t1(4), Title: "three"},
	}

	changes := syncer.Diff(old, newList)
	require.Len(t, changes, 2)
	require.Equal(t, meta.ChangePRCreated, changes[0].Kind)
	require.Equal(t, int64(3), changes[0].Number)
	require.Equal(t, meta.ChangePRUpdated, changes[1].Kind)
	require.Equal(t, int64(2), changes[1].Number)
}

func TestDiffClosedDetectsMerge(t *testing.T) {
	old := []meta.PullRequest{
		{Number: 5, State: meta.PRMerged, UpdatedAt: t1(1)},
		{Number: 6, State: meta.PROpen, UpdatedAt: t1(1)},
	}
	changes := syncer.Diff(old, nil)

	require.Len(t, changes, 2)
	byNumber := map[int64]meta.SyncChange{}
	for _, c := range changes {
		byNumber[c.Number] = c
	}
	require.True(t, byNumber[5].Merged)
	require.False(t, byNumber[6].Merged)
}

func TestDiffReviewChanged(t *testing.T) {
	approved := meta.ReviewApproved
	changesRequested := meta.ReviewChangesRequested

	old := []meta.PullRequest{{Number: 9, UpdatedAt: t1(1), ReviewDecision: &approved}}
	newList := []meta.PullRequest{{Number: 9, UpdatedAt: t1(1), ReviewDecision: &changesRequested}}

	changes := syncer.Diff(old, newList)
	require.Len(t, changes, 1)
	require.Equal(t, meta.ChangePRReviewChanged, changes[0].Kind)
	require.Equal(t, changesRequested, *changes[0].NewStatus)
}

// TestDiffOrderIndependence reproduces the property that reordering either
// input list by PR number must not change the emitted change set, beyond
// emission order itself (creations, then updates, then closures).
func TestDiffOrderIndependence(t *testing.T) {
	old := []meta.PullRequest{
		{Number: 2, UpdatedAt: t1(1)},
		{Number: 1, UpdatedAt: t1(1)},
	}
	newList := []meta.PullRequest{
		{Number: 1, UpdatedAt: t1(1)},
		{Number: 3, UpdatedAt: t1(1)},
	}
	newListReordered := []meta.PullRequest{
		{Number: 3, UpdatedAt: t1(1)},
		{Number: 1, UpdatedAt: t1(1)},
	}

	a := syncer.Diff(old, newList)
	b := syncer.Diff(old, newListReordered)
	require.Equal(t, a, b)
}

func TestDiffNoChanges(t *testing.T) {
	list := []meta.PullRequest{{Number: 1, UpdatedAt: t1(1)}}
	require.Empty(t, syncer.Diff(list, list))
}
