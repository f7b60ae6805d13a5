package action

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/simplesurance/prkeeper/internal/githubclt"
	"github.com/simplesurance/prkeeper/internal/logfields"
	"github.com/simplesurance/prkeeper/internal/stringutils"
)

const loggerName = "executor"

//go:generate mockgen -destination=mocks/githubclient.go -package=mocks . GithubClient

// GithubClient is the subset of the github client used to apply actions.
type GithubClient interface {
	AddLabel(ctx context.Context, owner, repo string, pullRequestOrIssueNumber int, label string) error
	RemoveLabel(ctx context.Context, owner, repo string, pullRequestOrIssueNumber int, label string) error
	CreateIssueComment(ctx context.Context, owner, repo string, issueOrPRNr int, comment string) (*githubclt.IssueComment, error)
	EditIssueComment(ctx context.Context, owner, repo string, commentID int64, comment string) error
	DeleteIssueComment(ctx context.Context, owner, repo string, commentID int64) error
}

// Retryer is an interface used for running GithubClient methods repeatedly if
// they fail with a temporary error.
type Retryer interface {
	Run(context.Context, func(context.Context) error, []zap.Field) error
}

// Executor applies actions to the pull requests of a repository.
// In dry-run mode actions are only logged.
type Executor struct {
	clt     GithubClient
	retryer Retryer
	owner   string
	repo    string
	dryRun  bool
	logger  *zap.Logger
}

type Option func(*Executor)

// WithDryRun enables or disables the dry-run mode.
func WithDryRun(enabled bool) Option {
	return func(e *Executor) {
		e.dryRun = enabled
	}
}

func NewExecutor(clt GithubClient, retryer Retryer, owner, repo string, opts ...Option) *Executor {
	e := Executor{
		clt:     clt,
		retryer: retryer,
		owner:   owner,
		repo:    repo,
		logger: zap.L().Named(loggerName).With(
			logfields.RepositoryOwner(owner),
			logfields.Repository(repo),
		),
	}

	for _, o := range opts {
		o(&e)
	}

	return &e
}

// DryRun returns true if the executor does not apply actions.
func (e *Executor) DryRun() bool {
	return e.dryRun
}

// Execute applies the actions in order.
// It stops at the first action that fails and returns its error.
func (e *Executor) Execute(ctx context.Context, actions ...*Action) error {
	for _, a := range actions {
		logger := e.logger.With(a.LogFields()...).With(logfields.DryRun(e.dryRun))

		if a.Body != "" {
			logger.Info(
				a.String(),
				logfields.Event("action_planned"),
				zap.String("body", stringutils.IndentString(a.Body, "    ")),
			)
		} else {
			logger.Info(a.String(), logfields.Event("action_planned"))
		}

		if e.dryRun {
			metrics.ActionsInc(a.Kind, true)
			continue
		}

		err := e.retryer.Run(ctx, func(ctx context.Context) error {
			return e.apply(ctx, a)
		}, a.LogFields())
		if err != nil {
			metrics.ActionFailuresInc(a.Kind)
			return fmt.Errorf("%s failed: %w", a, err)
		}

		metrics.ActionsInc(a.Kind, false)
		logger.Debug("action applied", logfields.Event("action_applied"))
	}

	return nil
}

func (e *Executor) apply(ctx context.Context, a *Action) error {
	switch a.Kind {
	case KindAddLabel:
		return e.clt.AddLabel(ctx, e.owner, e.repo, a.PullRequest, a.Label)

	case KindRemoveLabel:
		return e.clt.RemoveLabel(ctx, e.owner, e.repo, a.PullRequest, a.Label)

	case KindCreateComment:
		c, err := e.clt.CreateIssueComment(ctx, e.owner, e.repo, a.PullRequest, a.Body)
		if err != nil {
			return err
		}

		a.CommentID = c.ID
		return nil

	case KindEditComment:
		return e.clt.EditIssueComment(ctx, e.owner, e.repo, a.CommentID, a.Body)

	case KindDeleteComment:
		return e.clt.DeleteIssueComment(ctx, e.owner, e.repo, a.CommentID)

	default:
		return fmt.Errorf("unsupported action kind: %q", a.Kind)
	}
}
