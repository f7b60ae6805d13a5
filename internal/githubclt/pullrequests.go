package githubclt

import (
	"context"
	"fmt"

	"github.com/shurcooL/githubv4"
)

// Mergeability is the GitHub computed information if a pull request can be
// merged into its base branch without conflicts.
// GitHub computes it asynchronously, until the computation finished it is
// MergeabilityUnknown.
type Mergeability string

const (
	MergeabilityUnknown     Mergeability = "UNKNOWN"
	MergeabilityMergeable   Mergeability = "MERGEABLE"
	MergeabilityConflicting Mergeability = "CONFLICTING"
)

// IsResolved returns true if GitHub finished computing the mergeability.
func (m Mergeability) IsResolved() bool {
	return m == MergeabilityMergeable || m == MergeabilityConflicting
}

// PullRequest is the state of a GitHub pull request.
type PullRequest struct {
	Number    int          `json:"number"`
	Title     string       `json:"title"`
	Author    string       `json:"author"`
	URL       string       `json:"url"`
	BaseRef   string       `json:"base_ref"`
	IsDraft   bool         `json:"draft"`
	Merged    bool         `json:"merged"`
	Mergeable Mergeability `json:"mergeable"`
	Labels    []string     `json:"labels"`
}

// HasLabel returns true if the pull request has the label.
func (pr *PullRequest) HasLabel(label string) bool {
	for _, l := range pr.Labels {
		if l == label {
			return true
		}
	}

	return false
}

func toMergeability(state githubv4.MergeableState) (Mergeability, error) {
	switch state {
	case githubv4.MergeableStateMergeable:
		return MergeabilityMergeable, nil

	case githubv4.MergeableStateConflicting:
		return MergeabilityConflicting, nil

	case githubv4.MergeableStateUnknown, "":
		return MergeabilityUnknown, nil

	default:
		return "", fmt.Errorf("unsupported mergeable state value: %q", state)
	}
}

type queryPullRequest struct {
	Number    int
	Title     string
	URL       string `graphql:"url"`
	IsDraft   bool
	Merged    bool
	Mergeable githubv4.MergeableState
	BaseRef   struct {
		Name string
	}
	Author struct {
		Login string
	}
	Labels struct {
		Nodes []struct {
			Name string
		}
	} `graphql:"labels(first: 100)"`
}

func (q *queryPullRequest) toPullRequest() (*PullRequest, error) {
	mergeable, err := toMergeability(q.Mergeable)
	if err != nil {
		return nil, fmt.Errorf("pull request #%d: %w", q.Number, err)
	}

	labels := make([]string, 0, len(q.Labels.Nodes))
	for _, l := range q.Labels.Nodes {
		labels = append(labels, l.Name)
	}

	return &PullRequest{
		Number:    q.Number,
		Title:     q.Title,
		Author:    q.Author.Login,
		URL:       q.URL,
		BaseRef:   q.BaseRef.Name,
		IsDraft:   q.IsDraft,
		Merged:    q.Merged,
		Mergeable: mergeable,
		Labels:    labels,
	}, nil
}

// ListOpenPullRequests returns all open pull requests of the repository,
// ordered by their creation time.
// The mergeability of the returned pull requests can be MergeabilityUnknown
// if GitHub did not compute it yet.
func (clt *Client) ListOpenPullRequests(ctx context.Context, owner, repo string) ([]*PullRequest, error) {
	type graphQLQueryPullRequests struct {
		Repository struct {
			PullRequests struct {
				PageInfo struct {
					EndCursor   string
					HasNextPage bool
				}
				Nodes []queryPullRequest
			} `graphql:"pullRequests(states: $states, first: $first, after: $after, orderBy: {field: CREATED_AT, direction: ASC})"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}

	var result []*PullRequest

	vars := map[string]any{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(repo),
		"states": []githubv4.PullRequestState{githubv4.PullRequestStateOpen},
		"first":  githubv4.Int(perPage),
		"after":  (*githubv4.String)(nil),
	}

	for {
		var q graphQLQueryPullRequests

		err := clt.graphQLClt.Query(ctx, &q, vars)
		if err != nil {
			return nil, clt.wrapGraphQLRetryableErrors(err)
		}

		for i := range q.Repository.PullRequests.Nodes {
			pr, err := q.Repository.PullRequests.Nodes[i].toPullRequest()
			if err != nil {
				return nil, err
			}

			result = append(result, pr)
		}

		pageInfo := q.Repository.PullRequests.PageInfo
		if !pageInfo.HasNextPage {
			return result, nil
		}

		if pageInfo.EndCursor == "" {
			return nil, fmt.Errorf("retrieving all pull requests failed, HasNextPage is %t, expected non-empty EndCursor", pageInfo.HasNextPage)
		}

		vars["after"] = githubv4.NewString(githubv4.String(pageInfo.EndCursor))
	}
}
