package bookkeeper

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/simplesurance/prkeeper/internal/githubclt"
)

// fakeGithub is an in-memory github client for a single repository.
type fakeGithub struct {
	lock sync.Mutex

	prs       map[int]*githubclt.PullRequest
	comments  map[int][]*githubclt.IssueComment
	nextID    int64
	mutations int

	// resolveAfter is the number of RefreshMergeability calls after which
	// the mergeability of a pull request changes to the value in
	// pendingMergeability.
	resolveAfter        int
	refreshes           map[int]int
	pendingMergeability map[int]githubclt.Mergeability

	listCommentsErr error
}

func newFakeGithub() *fakeGithub {
	return &fakeGithub{
		prs:                 map[int]*githubclt.PullRequest{},
		comments:            map[int][]*githubclt.IssueComment{},
		nextID:              1000,
		refreshes:           map[int]int{},
		pendingMergeability: map[int]githubclt.Mergeability{},
	}
}

func (f *fakeGithub) addPR(pr *githubclt.PullRequest) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.prs[pr.Number] = pr
}

func (f *fakeGithub) addComment(pr int, body string) int64 {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.nextID++
	f.comments[pr] = append(f.comments[pr], &githubclt.IssueComment{ID: f.nextID, Body: body})

	return f.nextID
}

func (f *fakeGithub) commentBodies(pr int) []string {
	f.lock.Lock()
	defer f.lock.Unlock()

	result := make([]string, 0, len(f.comments[pr]))
	for _, c := range f.comments[pr] {
		result = append(result, c.Body)
	}

	return result
}

func (f *fakeGithub) labels(pr int) []string {
	f.lock.Lock()
	defer f.lock.Unlock()

	return append([]string(nil), f.prs[pr].Labels...)
}

func (f *fakeGithub) mutationCount() int {
	f.lock.Lock()
	defer f.lock.Unlock()

	return f.mutations
}

func (f *fakeGithub) ListOpenPullRequests(context.Context, string, string) ([]*githubclt.PullRequest, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	result := make([]*githubclt.PullRequest, 0, len(f.prs))
	for _, pr := range f.prs {
		cpy := *pr
		cpy.Labels = append([]string(nil), pr.Labels...)
		result = append(result, &cpy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Number < result[j].Number
	})

	return result, nil
}

func (f *fakeGithub) RefreshMergeability(_ context.Context, _, _ string, pullRequestNumber int) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	pr, exists := f.prs[pullRequestNumber]
	if !exists {
		return githubclt.ErrPullRequestIsClosed
	}

	f.refreshes[pullRequestNumber]++

	if m, exists := f.pendingMergeability[pullRequestNumber]; exists && f.refreshes[pullRequestNumber] >= f.resolveAfter {
		pr.Mergeable = m
	}

	return nil
}

func (f *fakeGithub) ListIssueComments(_ context.Context, _, _ string, issueOrPRNr int) ([]*githubclt.IssueComment, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.listCommentsErr != nil {
		return nil, f.listCommentsErr
	}

	result := make([]*githubclt.IssueComment, 0, len(f.comments[issueOrPRNr]))
	for _, c := range f.comments[issueOrPRNr] {
		cpy := *c
		result = append(result, &cpy)
	}

	return result, nil
}

func (f *fakeGithub) AddLabel(_ context.Context, _, _ string, pullRequestOrIssueNumber int, label string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.mutations++

	pr := f.prs[pullRequestOrIssueNumber]
	if !pr.HasLabel(label) {
		pr.Labels = append(pr.Labels, label)
	}

	return nil
}

func (f *fakeGithub) RemoveLabel(_ context.Context, _, _ string, pullRequestOrIssueNumber int, label string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.mutations++

	pr := f.prs[pullRequestOrIssueNumber]
	labels := pr.Labels[:0]
	for _, l := range pr.Labels {
		if l != label {
			labels = append(labels, l)
		}
	}
	pr.Labels = labels

	return nil
}

func (f *fakeGithub) CreateIssueComment(_ context.Context, _, _ string, issueOrPRNr int, comment string) (*githubclt.IssueComment, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.mutations++
	f.nextID++

	c := githubclt.IssueComment{ID: f.nextID, Body: comment}
	f.comments[issueOrPRNr] = append(f.comments[issueOrPRNr], &c)

	cpy := c
	return &cpy, nil
}

func (f *fakeGithub) findComment(commentID int64) (int, int) {
	for pr, comments := range f.comments {
		for i, c := range comments {
			if c.ID == commentID {
				return pr, i
			}
		}
	}

	return -1, -1
}

func (f *fakeGithub) EditIssueComment(_ context.Context, _, _ string, commentID int64, comment string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.mutations++

	pr, i := f.findComment(commentID)
	if pr == -1 {
		return errors.New("comment not found")
	}

	f.comments[pr][i].Body = comment

	return nil
}

func (f *fakeGithub) DeleteIssueComment(_ context.Context, _, _ string, commentID int64) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.mutations++

	pr, i := f.findComment(commentID)
	if pr == -1 {
		return nil
	}

	f.comments[pr] = append(f.comments[pr][:i], f.comments[pr][i+1:]...)

	return nil
}
