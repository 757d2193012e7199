package syncer

import "maguffin.dev/stackengine/internal/meta"

// Diff computes the change set between a previously cached pull-request list
// and a freshly fetched one. Emission order is creations first, then
// updates/review changes in new-list order, then closures in old-list
// order. Reordering either input list by PR number does not change which
// changes are emitted, only their order within each group (every lookup
// goes through the number-keyed maps below, and the three passes each walk
// their own list in that list's order).
func Diff(oldList, newList []meta.PullRequest) []meta.SyncChange {
	oldByNumber := make(map[int64]meta.PullRequest, len(oldList))
	for _, pr := range oldList {
		oldByNumber[pr.Number] = pr
	}
	newByNumber := make(map[int64]meta.PullRequest, len(newList))
	for _, pr := range newList {
		newByNumber[pr.Number] = pr
	}

	var changes []meta.SyncChange

	for _, pr := range newList {
		if _, ok := oldByNumber[pr.Number]; !ok {
			changes = append(changes, meta.SyncChange{
				Kind: meta.ChangePRCreated, Number: pr.Number, Title: pr.Title,
			})
		}
	}

	for _, pr := range newList {
		old, ok := oldByNumber[pr.Number]
		if !ok {
			continue
		}
		if !old.UpdatedAt.Equal(pr.UpdatedAt) {
			changes = append(changes, meta.SyncChange{
				Kind: meta.ChangePRUpdated, Number: pr.Number, Title: pr.Title,
			})
		}
		if !reviewDecisionEqual(old.ReviewDecision, pr.ReviewDecision) {
			changes = append(changes, meta.SyncChange{
				Kind: meta.ChangePRReviewChanged, Number: pr.Number, NewStatus: pr.ReviewDecision,
			})
		}
	}

	for _, pr := range oldList {
		if _, ok := newByNumber[pr.Number]; !ok {
			changes = append(changes, meta.SyncChange{
				Kind: meta.ChangePRClosed, Number: pr.Number, Merged: pr.State == meta.PRMerged,
			})
		}
	}

	return changes
}

func reviewDecisionEqual(a, b *meta.ReviewDecision) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
