package bookkeeper

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/simplesurance/prkeeper/internal/action"
	"github.com/simplesurance/prkeeper/internal/githubclt"
	"github.com/simplesurance/prkeeper/internal/logfields"
	"github.com/simplesurance/prkeeper/internal/marker"
	"github.com/simplesurance/prkeeper/internal/metacomment"
)

// findMetadataComment returns the first comment that starts with the metadata
// marker in parsed form. If none exists, nil is returned.
func findMetadataComment(reg *marker.Registry, comments []*githubclt.IssueComment) (*metacomment.Comment, error) {
	root := reg.Marker(marker.Metadata)

	for _, c := range comments {
		if !reg.HasPrefix(c.Body, marker.Metadata) {
			continue
		}

		mc, err := metacomment.Parse(root, c.ID, c.Body)
		if err != nil {
			return nil, fmt.Errorf("parsing metadata comment %d failed: %w", c.ID, err)
		}

		return mc, nil
	}

	return nil, nil
}

// planMetadataUpdate returns the action that sets the text of section in the
// metadata comment of the pull request.
// If the section already has the text, nil is returned.
func planMetadataUpdate(
	reg *marker.Registry,
	pullRequest int,
	comments []*githubclt.IssueComment,
	section marker.ID,
	text string,
) (*action.Action, error) {
	if !section.IsSection() {
		return nil, fmt.Errorf("%s is not a metadata section", section)
	}

	mc, err := findMetadataComment(reg, comments)
	if err != nil {
		return nil, err
	}

	if mc == nil {
		mc = metacomment.New()
	}

	if !mc.Set(reg.Marker(section), text) {
		return nil, nil
	}

	body := mc.Render(reg.Marker(marker.Metadata))

	if mc.ID == 0 {
		return action.CreateComment(pullRequest, body), nil
	}

	return action.EditComment(pullRequest, mc.ID, body), nil
}

// UpdateMetadataComment sets the text of a section in the metadata comment of
// a pull request.
// If the pull request has no metadata comment, one is created. If the section
// already has the text, nothing is changed.
// The applied action is returned, nil if the comment was up to date.
func (b *Bookkeeper) UpdateMetadataComment(ctx context.Context, pullRequest int, section marker.ID, text string) (*action.Action, error) {
	logger := b.logger.With(
		logfields.PullRequest(pullRequest),
		logfields.Section(section.String()),
	)

	comments, err := b.listIssueComments(ctx, pullRequest)
	if err != nil {
		return nil, err
	}

	a, err := planMetadataUpdate(b.registry, pullRequest, comments, section, text)
	if err != nil {
		return nil, err
	}

	if a == nil {
		logger.Info("metadata section is up to date", logEventPRInSync)
		return nil, nil
	}

	if err := b.executor.Execute(ctx, a); err != nil {
		return nil, err
	}

	logger.Info("metadata section updated", logEventPROutOfSync, zap.String("action", string(a.Kind)))

	return a, nil
}

// SectionText returns the text of a section in the metadata comment of a pull
// request. found is false if the pull request has no metadata comment or the
// comment does not contain the section.
func (b *Bookkeeper) SectionText(ctx context.Context, pullRequest int, section marker.ID) (text string, found bool, err error) {
	if !section.IsSection() {
		return "", false, fmt.Errorf("%s is not a metadata section", section)
	}

	comments, err := b.listIssueComments(ctx, pullRequest)
	if err != nil {
		return "", false, err
	}

	mc, err := findMetadataComment(b.registry, comments)
	if err != nil {
		return "", false, err
	}

	if mc == nil {
		return "", false, nil
	}

	text, found = mc.Text(b.registry.Marker(section))
	return text, found, nil
}
