// Package pullfilter selects pull requests via a jq expression.
package pullfilter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/simplesurance/prkeeper/internal/githubclt"
)

// Filter evaluates a jq query on the JSON representation of a pull request.
// A Filter without a query matches all pull requests.
type Filter struct {
	query *gojq.Query
}

// New parses jqQuery. An empty query creates a Filter that matches everything.
func New(jqQuery string) (*Filter, error) {
	if strings.TrimSpace(jqQuery) == "" {
		return &Filter{}, nil
	}

	query, err := gojq.Parse(jqQuery)
	if err != nil {
		return nil, fmt.Errorf("parsing jq query %q failed: %w", jqQuery, err)
	}

	return &Filter{query: query}, nil
}

func goJQIterToSlice(iter gojq.Iter) ([]any, []error) {
	var result []any
	var errors []error

	for {
		res, ok := iter.Next()
		if !ok {
			return result, errors
		}

		if err, isErr := res.(error); isErr {
			errors = append(errors, err)
			continue
		}

		result = append(result, res)
	}
}

func errString(errs []error) string {
	var result strings.Builder

	for i, err := range errs {
		if i > 0 {
			result.WriteString("; ")
		}

		result.WriteString(fmt.Sprintf("error %d: %s", i, err))
	}

	return result.String()
}

// Match returns true if the query evaluates to true for pr.
// The query must evaluate to exactly one boolean value, otherwise an error is
// returned.
func (f *Filter) Match(ctx context.Context, pr *githubclt.PullRequest) (bool, error) {
	if f.query == nil {
		return true, nil
	}

	// gojq only operates on the generic types json.Unmarshal produces
	buf, err := json.Marshal(pr)
	if err != nil {
		return false, fmt.Errorf("marshaling pull request to json failed: %w", err)
	}

	var prUn any
	if err := json.Unmarshal(buf, &prUn); err != nil {
		return false, fmt.Errorf("unmarshaling json failed: %w", err)
	}

	result, errs := goJQIterToSlice(f.query.RunWithContext(ctx, prUn))
	if len(errs) != 0 {
		return false, fmt.Errorf("json query returned errors, query: %q, errors: %s", f.query.String(), errString(errs))
	}

	if len(result) != 1 {
		return false, fmt.Errorf("json query returned %d results, expected 1, query: %q", len(result), f.query.String())
	}

	val, ok := result[0].(bool)
	if !ok {
		return false, fmt.Errorf(
			"json query returned non-bool result: %+v (%T), query: %q",
			result[0], result[0], f.query.String(),
		)
	}

	return val, nil
}

func (f *Filter) String() string {
	if f.query == nil {
		return ""
	}

	return f.query.String()
}
