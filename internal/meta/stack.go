package meta

import (
	"time"

	"github.com/google/uuid"
)

// NewStackID mints an opaque id for a new Stack, canonical 8-4-4-4-12 hex
// per the on-disk document format.
func NewStackID() string {
	return uuid.NewString()
}

// NewStack constructs an empty Stack rooted at root.
func NewStack(root string) Stack {
	now := time.Now().UTC()
	return Stack{
		ID:        NewStackID(),
		Root:      root,
		Branches:  map[string]StackBranch{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// FindStackContaining returns the Stack that owns the named branch, if any.
// Invariant IV (a branch name appears in at most one Stack) makes this
// search unambiguous.
func FindStackContaining(doc *StackMetadata, branch string) (*Stack, bool) {
	for i := range doc.Stacks {
		if _, ok := doc.Stacks[i].Branches[branch]; ok {
			return &doc.Stacks[i], true
		}
	}
	return nil, false
}

// GetStack returns the Stack with the given id, if any.
func GetStack(doc *StackMetadata, id string) (*Stack, bool) {
	for i := range doc.Stacks {
		if doc.Stacks[i].ID == id {
			return &doc.Stacks[i], true
		}
	}
	return nil, false
}
