package bookkeeper

import (
	"errors"

	"github.com/simplesurance/prkeeper/internal/action"
	"github.com/simplesurance/prkeeper/internal/githubclt"
	"github.com/simplesurance/prkeeper/internal/marker"
)

// ErrMergeabilityUnknown is returned when actions are planned for a pull
// request whose mergeability was not computed by GitHub yet.
var ErrMergeabilityUnknown = errors.New("mergeability of the pull request is unknown")

// DefaultNeedsRebaseLabel is the label that is added to pull requests with merge conflicts.
const DefaultNeedsRebaseLabel = "Needs rebase"

// DefaultNeedsRebaseComment is the text of the notice comment, it is prefixed
// by the needs-rebase marker.
const DefaultNeedsRebaseComment = "Needs rebase"

// needsRebaseComments returns true if planNeedsRebase requires the comments
// of the pull request to compute the actions.
func needsRebaseComments(pr *githubclt.PullRequest, label string) bool {
	return !pr.Merged && pr.Mergeable == githubclt.MergeabilityMergeable && pr.HasLabel(label)
}

// planNeedsRebase returns the actions that bring the needs-rebase label and
// notice comments of pr in sync with its mergeability.
//
// A mergeable pull request that has the label gets the label removed and all
// comments that start with the needs-rebase marker deleted.
// A conflicting pull request without the label gets the label and one
// notice comment.
// Merged pull requests and pull requests that are in sync result in no
// actions. If the mergeability is unknown, ErrMergeabilityUnknown is returned.
func planNeedsRebase(
	reg *marker.Registry,
	label, notice string,
	pr *githubclt.PullRequest,
	comments []*githubclt.IssueComment,
) ([]*action.Action, error) {
	if pr.Merged {
		return nil, nil
	}

	hasLabel := pr.HasLabel(label)

	switch pr.Mergeable {
	case githubclt.MergeabilityMergeable:
		if !hasLabel {
			return nil, nil
		}

		result := []*action.Action{action.RemoveLabel(pr.Number, label)}
		for _, c := range comments {
			if reg.HasPrefix(c.Body, marker.NeedsRebase) {
				result = append(result, action.DeleteComment(pr.Number, c.ID))
			}
		}

		return result, nil

	case githubclt.MergeabilityConflicting:
		if hasLabel {
			return nil, nil
		}

		return []*action.Action{
			action.AddLabel(pr.Number, label),
			action.CreateComment(pr.Number, reg.Marker(marker.NeedsRebase)+notice),
		}, nil

	default:
		return nil, ErrMergeabilityUnknown
	}
}
