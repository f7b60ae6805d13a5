// Package mergeability waits until GitHub computed the mergeability of pull
// requests.
//
// GitHub computes if a pull request can be merged asynchronously. The
// computation is started when a single pull request is retrieved via the
// REST API. Until it finished the mergeability is unknown.
package mergeability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/simplesurance/prkeeper/internal/githubclt"
	"github.com/simplesurance/prkeeper/internal/logfields"
)

const loggerName = "mergeability_poller"

const (
	DefaultMaxIterations = 20
	DefaultInterval      = 3 * time.Second
)

var ErrMergeabilityUnresolved = errors.New("mergeability of pull requests is unresolved")

var errBackOffStopped = errors.New("backoff policy stopped polling")

// UnresolvedError is returned when the mergeability of pull requests was
// still unknown after the maximum number of poll iterations.
type UnresolvedError struct {
	PullRequests []int
	Iterations   int
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("mergeability of %d pull requests %v is still unknown after %d iterations",
		len(e.PullRequests), e.PullRequests, e.Iterations)
}

func (e *UnresolvedError) Is(target error) bool {
	return target == ErrMergeabilityUnresolved
}

//go:generate mockgen -destination=mocks/refresher.go -package=mocks . Refresher

// Refresher makes GitHub compute the mergeability of a pull request.
type Refresher interface {
	RefreshMergeability(ctx context.Context, owner, repo string, pullRequestNumber int) error
}

// Provider returns the current state of the pull requests.
type Provider func(context.Context) ([]*githubclt.PullRequest, error)

// Poller fetches pull requests repeatedly until their mergeability is known.
type Poller struct {
	clt    Refresher
	owner  string
	repo   string
	logger *zap.Logger

	maxIterations int
	newBackOff    func() backoff.BackOff
}

type Option func(*Poller)

// WithMaxIterations sets the number of times pull requests are refreshed
// before Poll fails. 0 means unlimited.
func WithMaxIterations(n int) Option {
	return func(p *Poller) {
		p.maxIterations = n
	}
}

// WithBackOff sets the function that creates the backoff policy for the
// wait between iterations.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(p *Poller) {
		p.newBackOff = fn
	}
}

// WithInterval sets a constant wait time between iterations.
func WithInterval(d time.Duration) Option {
	return WithBackOff(func() backoff.BackOff {
		return backoff.NewConstantBackOff(d)
	})
}

func New(clt Refresher, owner, repo string, opts ...Option) *Poller {
	p := Poller{
		clt:   clt,
		owner: owner,
		repo:  repo,
		logger: zap.L().Named(loggerName).With(
			logfields.RepositoryOwner(owner),
			logfields.Repository(repo),
		),
		maxIterations: DefaultMaxIterations,
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = DefaultInterval
			bo.MaxElapsedTime = 0
			bo.Reset()
			return bo
		},
	}

	for _, o := range opts {
		o(&p)
	}

	return &p
}

// Unresolved returns the pull requests that are not merged and have an
// unknown mergeability.
func Unresolved(prs []*githubclt.PullRequest) []*githubclt.PullRequest {
	var result []*githubclt.PullRequest

	for _, pr := range prs {
		if !pr.Merged && !pr.Mergeable.IsResolved() {
			result = append(result, pr)
		}
	}

	return result
}

func prNumbers(prs []*githubclt.PullRequest) []int {
	result := make([]int, 0, len(prs))
	for _, pr := range prs {
		result = append(result, pr.Number)
	}

	return result
}

// Poll retrieves pull requests from provider until all that are not merged
// have a known mergeability.
// Between iterations a refresh is requested for every unresolved pull
// request. If the mergeability is still unknown after the maximum number of
// iterations, an *UnresolvedError is returned.
func (p *Poller) Poll(ctx context.Context, provider Provider) ([]*githubclt.PullRequest, error) {
	prs, err := provider(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieving pull requests failed: %w", err)
	}

	bo := p.newBackOff()

	for iteration := 1; ; iteration++ {
		unresolved := Unresolved(prs)
		if len(unresolved) == 0 {
			p.logger.Debug(
				"mergeability of all pull requests is known",
				logfields.Event("mergeability_resolved"),
				zap.Int("pull_requests", len(prs)),
				zap.Int("iterations", iteration-1),
			)

			return prs, nil
		}

		if p.maxIterations > 0 && iteration > p.maxIterations {
			return nil, &UnresolvedError{
				PullRequests: prNumbers(unresolved),
				Iterations:   p.maxIterations,
			}
		}

		metrics.PollIterationsInc()

		p.logger.Info(
			"updating mergeable state of pull requests",
			logfields.Event("mergeability_refresh"),
			zap.Int("iteration", iteration),
			zap.Int("count", len(unresolved)),
			zap.Ints("github.pull_requests", prNumbers(unresolved)),
		)

		for _, pr := range unresolved {
			err := p.clt.RefreshMergeability(ctx, p.owner, p.repo, pr.Number)
			if err != nil {
				if errors.Is(err, githubclt.ErrPullRequestIsClosed) {
					p.logger.Debug(
						"pull request was closed while waiting for its mergeability",
						logfields.PullRequest(pr.Number),
						logfields.Event("mergeability_refresh_pr_closed"),
					)
					continue
				}

				return nil, fmt.Errorf("refreshing pull request #%d failed: %w", pr.Number, err)
			}
		}

		if err := p.wait(ctx, bo); err != nil {
			if errors.Is(err, errBackOffStopped) {
				return nil, &UnresolvedError{
					PullRequests: prNumbers(unresolved),
					Iterations:   iteration,
				}
			}

			return nil, err
		}

		prs, err = provider(ctx)
		if err != nil {
			return nil, fmt.Errorf("retrieving pull requests failed: %w", err)
		}
	}
}

func (p *Poller) wait(ctx context.Context, bo backoff.BackOff) error {
	d := bo.NextBackOff()
	if d == backoff.Stop {
		return errBackOffStopped
	}

	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
