// Package stackengine implements the stack forest's operations:
// stack/branch creation, topological ordering, reconciliation, and restack
// execution, on top of internal/git and internal/meta.
package stackengine

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/sirupsen/logrus"

	"maguffin.dev/stackengine/internal/git"
	"maguffin.dev/stackengine/internal/meta"
)

// Engine owns a Git handle and a metadata Store and implements every
// stack operation. It is not safe for concurrent use by multiple goroutines
// holding the Git handle at once.
type Engine struct {
	repo  *git.Repo
	store *meta.Store
}

// New builds an Engine over an already-open repository and its private
// metadata store.
func New(repo *git.Repo, store *meta.Store) *Engine {
	return &Engine{repo: repo, store: store}
}

// CreateStack constructs a new Stack rooted at root and persists it.
func (e *Engine) CreateStack(ctx context.Context, root string) (*meta.Stack, error) {
	exists, err := e.repo.BranchExists(ctx, root)
	if err != nil {
		return nil, errors.WrapIff(err, "failed to check root branch %q", root)
	}
	if !exists {
		return nil, &git.BranchError{Msg: "root branch does not exist: " + root}
	}

	doc, err := e.store.Load()
	if err != nil {
		return nil, err
	}

	stack := meta.NewStack(root)
	doc.Stacks = append(doc.Stacks, stack)
	if err := e.store.Save(doc); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"stack_id": stack.ID, "root": root}).Debug("created stack")
	return &stack, nil
}

// CreateStackBranch creates a new Git branch from parent, captures its head
// sha, and adds it to the named Stack's metadata.
func (e *Engine) CreateStackBranch(ctx context.Context, stackID, name, parent string) (*meta.StackBranch, error) {
	doc, err := e.store.Load()
	if err != nil {
		return nil, err
	}
	stack, ok := meta.GetStack(doc, stackID)
	if !ok {
		return nil, errors.Errorf("no such stack: %s", stackID)
	}

	if err := e.repo.CreateBranch(ctx, name, parent); err != nil {
		return nil, errors.WrapIff(err, "failed to create branch %q from %q", name, parent)
	}

	headSHA, err := e.repo.GetHeadSHA(ctx, name)
	if err != nil {
		return nil, errors.WrapIff(err, "failed to resolve head sha for new branch %q", name)
	}

	branch := meta.StackBranch{
		Name:      name,
		Parent:    parent,
		Status:    meta.StatusUpToDate,
		CreatedAt: time.Now().UTC(),
		HeadSHA:   headSHA,
	}
	stack.Branches[name] = branch
	stack.UpdatedAt = time.Now().UTC()

	if err := e.store.Save(doc); err != nil {
		return nil, err
	}
	return &branch, nil
}

// LoadStack reloads a Stack from the store by id, reflecting whatever has
// been persisted since any earlier in-memory copy was handed out.
func (e *Engine) LoadStack(stackID string) (*meta.Stack, error) {
	doc, err := e.store.Load()
	if err != nil {
		return nil, err
	}
	stack, ok := meta.GetStack(doc, stackID)
	if !ok {
		return nil, errors.Errorf("no such stack: %s", stackID)
	}
	return stack, nil
}

// Reconcile snapshots Git state for every branch of every stack, reconciles
// each stack's metadata against it, and persists the result in one
// Load/Save cycle, matching the Git-handle-before-metadata-write ordering
// every stack operation follows. The returned ReconcileReport merges every
// stack's orphans and warnings.
func (e *Engine) Reconcile(ctx context.Context) (*meta.ReconcileReport, error) {
	doc, err := e.store.Load()
	if err != nil {
		return nil, err
	}

	report := &meta.ReconcileReport{}
	for i := range doc.Stacks {
		stackReport, err := Reconcile(ctx, e.repo, &doc.Stacks[i])
		if err != nil {
			return nil, err
		}
		report.Orphaned = append(report.Orphaned, stackReport.Orphaned...)
		report.Warnings = append(report.Warnings, stackReport.Warnings...)
		doc.Stacks[i].UpdatedAt = time.Now().UTC()
	}

	if err := e.store.Save(doc); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"orphaned": len(report.Orphaned),
		"warnings": len(report.Warnings),
	}).Debug("reconcile complete")
	return report, nil
}
