package github

import (
	"testing"

	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/require"

	"maguffin.dev/stackengine/internal/meta"
)

func TestConvertStateUnknownDefaultsToOpen(t *testing.T) {
	require.Equal(t, meta.PROpen, convertState(githubv4.PullRequestState("SOMETHING_NEW")))
}

func TestConvertMergeableUnknownDefaultsToUnknown(t *testing.T) {
	require.Equal(t, meta.MergeableUnknown, convertMergeable(githubv4.MergeableState("SOMETHING_NEW")))
}

func TestConvertReviewDecisionUnknownDefaultsToReviewRequired(t *testing.T) {
	require.Equal(t, meta.ReviewRequired, convertReviewDecision(githubv4.PullRequestReviewDecision("")))
}

func TestParseTimestampFallsBackOnZero(t *testing.T) {
	ts := parseTimestamp(githubv4.DateTime{})
	require.False(t, ts.IsZero())
}
