package bookkeeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/simplesurance/prkeeper/internal/action"
	"github.com/simplesurance/prkeeper/internal/githubclt"
	"github.com/simplesurance/prkeeper/internal/logfields"
	"github.com/simplesurance/prkeeper/internal/marker"
	"github.com/simplesurance/prkeeper/internal/mergeability"
	"github.com/simplesurance/prkeeper/internal/pullfilter"
)

const loggerName = "bookkeeper"

// GithubClient defines the methods of the github client that are used by the
// Bookkeeper.
type GithubClient interface {
	ListOpenPullRequests(ctx context.Context, owner, repo string) ([]*githubclt.PullRequest, error)
	RefreshMergeability(ctx context.Context, owner, repo string, pullRequestNumber int) error
	ListIssueComments(ctx context.Context, owner, repo string, issueOrPRNr int) ([]*githubclt.IssueComment, error)
	action.GithubClient
}

// Bookkeeper keeps the needs-rebase labels and metadata comments of the pull
// requests of one repository up to date.
type Bookkeeper struct {
	clt      GithubClient
	retryer  action.Retryer
	owner    string
	repo     string
	logger   *zap.Logger
	registry *marker.Registry
	filter   *pullfilter.Filter
	executor *action.Executor
	poller   *mergeability.Poller

	needsRebaseLabel   string
	needsRebaseComment string
	dryRun             bool
	pollerOpts         []mergeability.Option
}

type Option func(*Bookkeeper)

// WithRegistry sets the marker registry, the default is marker.DefaultRegistry().
func WithRegistry(reg *marker.Registry) Option {
	return func(b *Bookkeeper) {
		b.registry = reg
	}
}

// WithPullFilter sets a filter that selects the pull requests whose labels are
// reconciled.
func WithPullFilter(f *pullfilter.Filter) Option {
	return func(b *Bookkeeper) {
		b.filter = f
	}
}

func WithNeedsRebaseLabel(label string) Option {
	return func(b *Bookkeeper) {
		b.needsRebaseLabel = label
	}
}

func WithNeedsRebaseComment(text string) Option {
	return func(b *Bookkeeper) {
		b.needsRebaseComment = text
	}
}

// WithDryRun enables the dry-run mode, actions are logged instead of applied.
func WithDryRun(enabled bool) Option {
	return func(b *Bookkeeper) {
		b.dryRun = enabled
	}
}

// WithPollerOptions passes options to the mergeability poller.
func WithPollerOptions(opts ...mergeability.Option) Option {
	return func(b *Bookkeeper) {
		b.pollerOpts = append(b.pollerOpts, opts...)
	}
}

func New(clt GithubClient, retryer action.Retryer, owner, repo string, opts ...Option) *Bookkeeper {
	b := Bookkeeper{
		clt:     clt,
		retryer: retryer,
		owner:   owner,
		repo:    repo,
		logger: zap.L().Named(loggerName).With(
			logfields.RepositoryOwner(owner),
			logfields.Repository(repo),
		),
		needsRebaseLabel:   DefaultNeedsRebaseLabel,
		needsRebaseComment: DefaultNeedsRebaseComment,
	}

	for _, o := range opts {
		o(&b)
	}

	if b.registry == nil {
		b.registry = marker.DefaultRegistry()
	}

	if b.filter == nil {
		b.filter = &pullfilter.Filter{}
	}

	b.executor = action.NewExecutor(clt, retryer, owner, repo, action.WithDryRun(b.dryRun))
	b.poller = mergeability.New(&retryingRefresher{b: &b}, owner, repo, b.pollerOpts...)

	return &b
}

// retryingRefresher runs RefreshMergeability of the github client via the
// retryer.
type retryingRefresher struct {
	b *Bookkeeper
}

func (r *retryingRefresher) RefreshMergeability(ctx context.Context, owner, repo string, pullRequestNumber int) error {
	return r.b.retryer.Run(ctx, func(ctx context.Context) error {
		return r.b.clt.RefreshMergeability(ctx, owner, repo, pullRequestNumber)
	}, []zap.Field{logfields.PullRequest(pullRequestNumber)})
}

func (b *Bookkeeper) listOpenPullRequests(ctx context.Context) ([]*githubclt.PullRequest, error) {
	var result []*githubclt.PullRequest

	err := b.retryer.Run(ctx, func(ctx context.Context) error {
		var err error
		result, err = b.clt.ListOpenPullRequests(ctx, b.owner, b.repo)
		return err
	}, nil)

	return result, err
}

func (b *Bookkeeper) listIssueComments(ctx context.Context, pullRequest int) ([]*githubclt.IssueComment, error) {
	var result []*githubclt.IssueComment

	err := b.retryer.Run(ctx, func(ctx context.Context) error {
		var err error
		result, err = b.clt.ListIssueComments(ctx, b.owner, b.repo, pullRequest)
		return err
	}, []zap.Field{logfields.PullRequest(pullRequest)})
	if err != nil {
		return nil, fmt.Errorf("retrieving comments of pull request #%d failed: %w", pullRequest, err)
	}

	return result, nil
}

// Run does one bookkeeping pass over all open pull requests.
// It waits until the mergeability of all open pull requests is known and then
// brings their needs-rebase label and notice comments in sync.
// Pull requests that do not match the filter are skipped.
// The pass is aborted when communicating with GitHub fails.
func (b *Bookkeeper) Run(ctx context.Context) error {
	stats := syncStat{StartTime: time.Now()}

	b.logger.Info(
		"starting bookkeeping pass",
		logEventPassStarted,
		logfields.DryRun(b.dryRun),
		zap.String("needs_rebase_label", b.needsRebaseLabel),
		zap.Stringer("pull_filter", b.filter),
	)

	prs, err := b.poller.Poll(ctx, b.listOpenPullRequests)
	if err != nil {
		return fmt.Errorf("waiting for mergeability of pull requests failed: %w", err)
	}

	for i, pr := range prs {
		stats.Seen++

		logger := b.logger.With(
			logfields.PullRequest(pr.Number),
			logFieldProgress(i+1, len(prs)),
		)

		err := b.reconcileLabels(ctx, logger, pr, &stats)
		if err != nil {
			stats.Failures++
			metrics.PullsProcessedInc(resultLabelFailedVal)

			stats.EndTime = time.Now()
			b.logger.Info("bookkeeping pass aborted", stats.LogFields()...)

			return fmt.Errorf("pull request #%d: %w", pr.Number, err)
		}
	}

	stats.EndTime = time.Now()

	b.logger.Info(
		"bookkeeping pass finished",
		append(stats.LogFields(), logEventPassFinished)...,
	)

	return nil
}

func (b *Bookkeeper) reconcileLabels(ctx context.Context, logger *zap.Logger, pr *githubclt.PullRequest, stats *syncStat) error {
	match, err := b.filter.Match(ctx, pr)
	if err != nil {
		return fmt.Errorf("evaluating pull request filter failed: %w", err)
	}

	if !match {
		stats.Filtered++
		metrics.PullsProcessedInc(resultLabelFilteredVal)
		logger.Debug("pull request skipped", logEventPRSkipped, logReasonFiltered)
		return nil
	}

	if pr.Merged {
		stats.Skipped++
		metrics.PullsProcessedInc(resultLabelSkippedVal)
		logger.Debug("pull request skipped", logEventPRSkipped, logReasonMerged)
		return nil
	}

	var comments []*githubclt.IssueComment
	if needsRebaseComments(pr, b.needsRebaseLabel) {
		comments, err = b.listIssueComments(ctx, pr.Number)
		if err != nil {
			return err
		}
	}

	actions, err := planNeedsRebase(b.registry, b.needsRebaseLabel, b.needsRebaseComment, pr, comments)
	if err != nil {
		if errors.Is(err, ErrMergeabilityUnknown) {
			stats.Skipped++
			metrics.PullsProcessedInc(resultLabelSkippedVal)
			logger.Warn(
				"pull request skipped, mergeability is unknown",
				logEventPRSkipped,
				logReasonMergeabilityUnset,
				zap.String("github.mergeable", string(pr.Mergeable)),
			)
			return nil
		}

		return err
	}

	if len(actions) == 0 {
		stats.InSync++
		metrics.PullsProcessedInc(resultLabelInSyncVal)
		logger.Debug(
			"pull request is in sync",
			logEventPRInSync,
			zap.String("github.mergeable", string(pr.Mergeable)),
		)
		return nil
	}

	logger.Info(
		"pull request is out of sync",
		logEventPROutOfSync,
		zap.String("github.mergeable", string(pr.Mergeable)),
		zap.Int("actions", len(actions)),
	)

	if err := b.executor.Execute(ctx, actions...); err != nil {
		return err
	}

	stats.Actions += uint(len(actions))
	metrics.PullsProcessedInc(resultLabelReconciledVal)

	return nil
}
