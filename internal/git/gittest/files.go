package gittest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"maguffin.dev/stackengine/internal/git"
)

func CreateFile(t *testing.T, repo *git.Repo, filename string, body []byte) string {
	t.Helper()
	fp := filepath.Join(repo.Dir(), filename)
	require.NoError(t, os.WriteFile(fp, body, 0o644), "failed to write file: %s", filename)
	return fp
}

func AddFile(t *testing.T, repo *git.Repo, filepath string) {
	t.Helper()
	_, err := repo.Git(t.Context(), "add", filepath)
	require.NoError(t, err, "failed to add file: %s", filepath)
}
