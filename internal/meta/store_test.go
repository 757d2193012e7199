package meta_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"maguffin.dev/stackengine/internal/meta"
)

func TestStoreLoadMissingFileReturnsDefault(t *testing.T) {
	store := meta.Open(t.TempDir())
	doc, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, meta.CurrentVersion, doc.Version)
	require.Empty(t, doc.Stacks)
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store := meta.Open(t.TempDir())

	stack := meta.NewStack("main")
	stack.Branches["feature-a"] = meta.StackBranch{
		Name:      "feature-a",
		Parent:    "main",
		Status:    meta.StatusUpToDate,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		HeadSHA:   "abc123",
	}
	doc := &meta.StackMetadata{Version: meta.CurrentVersion, Stacks: []meta.Stack{stack}}

	require.NoError(t, store.Save(doc))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded.Stacks, 1)
	require.Equal(t, stack.ID, loaded.Stacks[0].ID)
	require.Equal(t, "feature-a", loaded.Stacks[0].Branches["feature-a"].Name)
}

func TestStoreLoadUnknownVersionResetsToDefault(t *testing.T) {
	dir := t.TempDir()
	store := meta.Open(dir)

	future := &meta.StackMetadata{Version: 99, Stacks: []meta.Stack{meta.NewStack("main")}}
	require.NoError(t, store.Save(future))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, meta.CurrentVersion, loaded.Version)
	require.Empty(t, loaded.Stacks)
}

func TestFindStackContaining(t *testing.T) {
	doc := meta.Default()
	stack := meta.NewStack("main")
	stack.Branches["feature-a"] = meta.StackBranch{Name: "feature-a", Parent: "main"}
	doc.Stacks = append(doc.Stacks, stack)

	found, ok := meta.FindStackContaining(doc, "feature-a")
	require.True(t, ok)
	require.Equal(t, stack.ID, found.ID)

	_, ok = meta.FindStackContaining(doc, "nonexistent")
	require.False(t, ok)
}
