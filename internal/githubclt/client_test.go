package githubclt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v43/github"
	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/simplesurance/prkeeper/internal/keepererr"
)

func newRESTTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	restClt := github.NewClient(srv.Client())
	baseURL, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	restClt.BaseURL = baseURL

	return &Client{
		logger:  zap.L(),
		restClt: restClt,
	}
}

func TestWrapRetryableErrorsGraphql(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	// is the same then in vendor/github.com/shurcooL/graphql/graphql.go do()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(503)
	}))

	t.Cleanup(srv.Close)

	clt := Client{
		logger:     zap.L(),
		graphQLClt: githubv4.NewEnterpriseClient(srv.URL, srv.Client()),
	}

	prs, err := clt.ListOpenPullRequests(context.Background(), "test", "test")
	require.Error(t, err)
	assert.Nil(t, prs)

	var retryableErr *keepererr.RetryableError
	assert.ErrorAs(t, err, &retryableErr)
}

func TestWrapRetryableErrorsGraphqlWithNonStatusErr(t *testing.T) {
	err := errors.New("error")
	wrappedErr := (&Client{}).wrapGraphQLRetryableErrors(err)
	assert.Equal(t, err, wrappedErr)
}

func TestRESTServerErrorIsRetryable(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	clt := newRESTTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	err := clt.RefreshMergeability(context.Background(), "o", "r", 1)
	require.Error(t, err)

	var retryableErr *keepererr.RetryableError
	assert.ErrorAs(t, err, &retryableErr)
}

func TestRefreshMergeabilityClosedPR(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	clt := newRESTTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/o/r/pulls/5", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"number": 5, "state": "closed"}`)
	}))

	err := clt.RefreshMergeability(context.Background(), "o", "r", 5)
	require.ErrorIs(t, err, ErrPullRequestIsClosed)
}

func TestListIssueCommentsPaginates(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r/issues/3/comments", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"id": 12, "body": "second"}]`)
			return
		}

		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/o/r/issues/3/comments?page=2>; rel="next"`, srvURL))
		fmt.Fprint(w, `[{"id": 11, "body": "first"}]`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	restClt := github.NewClient(srv.Client())
	baseURL, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	restClt.BaseURL = baseURL

	clt := Client{logger: zap.L(), restClt: restClt}

	comments, err := clt.ListIssueComments(context.Background(), "o", "r", 3)
	require.NoError(t, err)
	assert.Equal(t, []*IssueComment{
		{ID: 11, Body: "first"},
		{ID: 12, Body: "second"},
	}, comments)
}

func TestRemoveLabelNotFoundSucceeds(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	clt := newRESTTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Label does not exist"}`)
	}))

	require.NoError(t, clt.RemoveLabel(context.Background(), "o", "r", 1, "Needs rebase"))
}

func TestDeleteIssueCommentNotFoundSucceeds(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	clt := newRESTTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/o/r/issues/comments/99", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	}))

	require.NoError(t, clt.DeleteIssueComment(context.Background(), "o", "r", 99))
}

func TestAddLabelRejectsEmptyLabel(t *testing.T) {
	require.Error(t, (&Client{}).AddLabel(context.Background(), "o", "r", 1, ""))
}

func TestCreateIssueComment(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	clt := newRESTTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/o/r/issues/4/comments", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 77, "body": "hello"}`)
	}))

	c, err := clt.CreateIssueComment(context.Background(), "o", "r", 4, "hello")
	require.NoError(t, err)
	assert.Equal(t, &IssueComment{ID: 77, Body: "hello"}, c)
}
