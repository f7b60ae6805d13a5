// Package action provides the mutations that prkeeper applies to pull
// requests and an executor that runs them.
package action

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/simplesurance/prkeeper/internal/logfields"
)

// Kind is the type of mutation.
type Kind string

const (
	KindAddLabel      Kind = "add_label"
	KindRemoveLabel   Kind = "remove_label"
	KindCreateComment Kind = "create_comment"
	KindEditComment   Kind = "edit_comment"
	KindDeleteComment Kind = "delete_comment"
)

// Action is a mutation of a pull request.
// Depending on the Kind, only a subset of the fields is set.
type Action struct {
	Kind        Kind
	PullRequest int
	Label       string
	CommentID   int64
	Body        string
}

func AddLabel(pullRequest int, label string) *Action {
	return &Action{Kind: KindAddLabel, PullRequest: pullRequest, Label: label}
}

func RemoveLabel(pullRequest int, label string) *Action {
	return &Action{Kind: KindRemoveLabel, PullRequest: pullRequest, Label: label}
}

func CreateComment(pullRequest int, body string) *Action {
	return &Action{Kind: KindCreateComment, PullRequest: pullRequest, Body: body}
}

func EditComment(pullRequest int, commentID int64, body string) *Action {
	return &Action{Kind: KindEditComment, PullRequest: pullRequest, CommentID: commentID, Body: body}
}

func DeleteComment(pullRequest int, commentID int64) *Action {
	return &Action{Kind: KindDeleteComment, PullRequest: pullRequest, CommentID: commentID}
}

func (a *Action) String() string {
	switch a.Kind {
	case KindAddLabel:
		return fmt.Sprintf("#%d: add label %q", a.PullRequest, a.Label)
	case KindRemoveLabel:
		return fmt.Sprintf("#%d: remove label %q", a.PullRequest, a.Label)
	case KindCreateComment:
		return fmt.Sprintf("#%d: create comment", a.PullRequest)
	case KindEditComment:
		return fmt.Sprintf("#%d: edit comment %d", a.PullRequest, a.CommentID)
	case KindDeleteComment:
		return fmt.Sprintf("#%d: delete comment %d", a.PullRequest, a.CommentID)
	default:
		return fmt.Sprintf("#%d: unsupported action %q", a.PullRequest, a.Kind)
	}
}

// LogFields returns fields that should be used when logging messages related
// to the action.
func (a *Action) LogFields() []zap.Field {
	fields := []zap.Field{
		zap.String("action", string(a.Kind)),
		logfields.PullRequest(a.PullRequest),
	}

	if a.Label != "" {
		fields = append(fields, logfields.Label(a.Label))
	}

	if a.CommentID != 0 {
		fields = append(fields, logfields.CommentID(a.CommentID))
	}

	return fields
}
