package stackengine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/sirupsen/logrus"

	"maguffin.dev/stackengine/internal/meta"
	"maguffin.dev/stackengine/internal/provider"
)

const stackContextMarker = "<!-- maguffin:stack-context -->"

// CreatePullRequestForBranch implements stack-aware PR creation:
// base is resolved from the branch's recorded parent (never passed by the
// caller), the body is augmented with a Stack Context block, and the
// returned PR number is recorded onto the branch.
func (e *Engine) CreatePullRequestForBranch(ctx context.Context, prs provider.PullRequestProvider, owner, repo, stackID, branchName, title, body string, draft bool) (int64, error) {
	doc, err := e.store.Load()
	if err != nil {
		return 0, err
	}
	stack, ok := meta.GetStack(doc, stackID)
	if !ok {
		return 0, errors.Errorf("no such stack: %s", stackID)
	}
	branch, ok := stack.Branches[branchName]
	if !ok {
		return 0, errors.Errorf("no such branch in stack %s: %s", stackID, branchName)
	}

	fullBody := body + "\n\n" + StackContextBlock(stack, branchName)

	number, err := prs.CreatePullRequest(ctx, owner, repo, title, fullBody, branchName, branch.Parent, draft)
	if err != nil {
		return 0, err
	}

	branch.PRNumber = &number
	stack.Branches[branchName] = branch
	stack.UpdatedAt = time.Now().UTC()
	if err := e.store.Save(doc); err != nil {
		return number, err
	}
	return number, nil
}

// StackContextBlock renders a markdown block listing every
// branch in the stack's topological order, a pointer marker at current, and
// a clickable PR link wherever a branch already has one recorded.
func StackContextBlock(stack *meta.Stack, current string) string {
	var b strings.Builder
	b.WriteString(stackContextMarker + "\n")
	b.WriteString("**Stack:**\n")
	for _, name := range TopoOrder(stack) {
		branch := stack.Branches[name]
		marker := "- "
		if name == current {
			marker = "- 👉 "
		}
		entry := "`" + name + "`"
		if branch.PRNumber != nil {
			entry = fmt.Sprintf("[#%d](../pull/%d) %s", *branch.PRNumber, *branch.PRNumber, entry)
		}
		b.WriteString(marker + entry + "\n")
	}
	return b.String()
}

// UpdatePRBase implements PR-retargeting-after-merge:
// looks the branch's PR number up in metadata, resolves it to an opaque PR
// id, and issues the base-ref mutation. Failures are logged, never returned:
// this is a best-effort cleanup step that must never block the caller.
func (e *Engine) UpdatePRBase(ctx context.Context, prs provider.PullRequestProvider, owner, repo, stackID, branchName, newBase string) {
	doc, err := e.store.Load()
	if err != nil {
		logrus.WithError(err).Error("failed to load stack metadata for PR retarget")
		return
	}
	stack, ok := meta.GetStack(doc, stackID)
	if !ok {
		logrus.WithField("stack_id", stackID).Warn("no such stack for PR retarget")
		return
	}
	branch, ok := stack.Branches[branchName]
	if !ok || branch.PRNumber == nil {
		return
	}

	detail, err := prs.GetPullRequest(ctx, owner, repo, *branch.PRNumber)
	if err != nil {
		logrus.WithError(err).WithField("pr", *branch.PRNumber).Error("failed to fetch PR details for retarget")
		return
	}

	if err := prs.UpdatePullRequestBase(ctx, owner, repo, detail.ID, newBase); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"pr": *branch.PRNumber, "new_base": newBase,
		}).Error("failed to update PR base")
		return
	}

	logrus.WithFields(logrus.Fields{
		"pr": *branch.PRNumber, "branch": branchName, "new_base": newBase,
	}).Info("updated PR base after parent merge")
}
