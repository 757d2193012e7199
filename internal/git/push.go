package git

import (
	"context"
	"fmt"
	"strings"
)

// ForcePushWithLease pushes branch to remote, failing instead of
// overwriting if the remote tip has moved since expectedRemoteSHA was last
// observed. Returns *PushRejectedError if the lease is stale.
func (r *Repo) ForcePushWithLease(ctx context.Context, remote, branch, expectedRemoteSHA string) error {
	lease := fmt.Sprintf("%s:%s", branch, expectedRemoteSHA)
	out, err := r.GitOutput(ctx, "push", "--force-with-lease="+lease, remote, branch)
	if err != nil {
		return err
	}
	if out.ExitCode == 0 {
		return nil
	}
	stderr := out.StderrString()
	if strings.Contains(stderr, "stale info") || strings.Contains(stderr, "rejected") {
		return &PushRejectedError{Branch: branch, Output: stderr}
	}
	return &RunError{Args: []string{"push", "--force-with-lease"}, Stderr: out.Stderr}
}
