package gittest

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"maguffin.dev/stackengine/internal/git"
)

// CommitFile writes filename with the given contents and commits it,
// against repo's *current* branch.
func CommitFile(t *testing.T, repo *git.Repo, filename string, body []byte) {
	t.Helper()
	fp := filepath.Join(repo.Dir(), filename)
	require.NoError(t, os.WriteFile(fp, body, 0o644), "failed to write file: %s", filename)

	_, err := repo.Git(t.Context(), "add", fp)
	require.NoError(t, err, "failed to add file: %s", filename)

	_, err = repo.Git(t.Context(), "commit", "-m", fmt.Sprintf("write file %s", filename))
	require.NoError(t, err, "failed to commit file: %s", filename)
}
