package bookkeeper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplesurance/prkeeper/internal/action"
	"github.com/simplesurance/prkeeper/internal/githubclt"
	"github.com/simplesurance/prkeeper/internal/marker"
	"github.com/simplesurance/prkeeper/internal/metacomment"
)

const (
	metadataMarker  = "<!--e57a25ab6845829454e8d69fc972939a-->"
	coverageMarker  = "<!--2502f1a698b3751726fa55edcda76cd3-->"
	conflictsMarker = "<!--174a7506f384e20aa4161008e828411d-->"
)

func metadataBody(sections ...string) string {
	body := metadataMarker + "\n\n" + metacomment.Preamble + "\n\n"
	for _, s := range sections {
		body += s
	}

	return body
}

func TestPlanMetadataUpdateCreatesComment(t *testing.T) {
	reg := marker.DefaultRegistry()

	a, err := planMetadataUpdate(reg, 7, []*githubclt.IssueComment{{ID: 1, Body: "hi"}}, marker.SecCoverage, "Coverage: 80%")
	require.NoError(t, err)
	require.NotNil(t, a)

	assert.Equal(t, action.KindCreateComment, a.Kind)
	assert.Equal(t, 7, a.PullRequest)
	assert.Equal(t, metadataBody(coverageMarker+"Coverage: 80%"), a.Body)
}

func TestPlanMetadataUpdateUnchanged(t *testing.T) {
	reg := marker.DefaultRegistry()

	comments := []*githubclt.IssueComment{
		{ID: 9, Body: metadataBody(coverageMarker + "Coverage: 80%")},
	}

	a, err := planMetadataUpdate(reg, 7, comments, marker.SecCoverage, "Coverage: 80%")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestPlanMetadataUpdateEditsSortedComment(t *testing.T) {
	reg := marker.DefaultRegistry()

	comments := []*githubclt.IssueComment{
		{ID: 3, Body: "unrelated"},
		{ID: 9, Body: metadataBody(coverageMarker + "Coverage: 80%")},
	}

	a, err := planMetadataUpdate(reg, 7, comments, marker.SecConflicts, "\n### Conflicts\n#12\n")
	require.NoError(t, err)
	require.NotNil(t, a)

	assert.Equal(t, action.KindEditComment, a.Kind)
	assert.EqualValues(t, 9, a.CommentID)
	assert.Equal(t,
		metadataBody(conflictsMarker+"\n### Conflicts\n#12\n", coverageMarker+"Coverage: 80%"),
		a.Body,
	)
}

func TestPlanMetadataUpdateRejectsNonSection(t *testing.T) {
	_, err := planMetadataUpdate(marker.DefaultRegistry(), 7, nil, marker.NeedsRebase, "x")
	require.Error(t, err)
}

func TestPlanMetadataUpdateMalformedComment(t *testing.T) {
	comments := []*githubclt.IssueComment{
		{ID: 9, Body: metadataMarker + "\n\npreamble\n\n<!--unterminated"},
	}

	_, err := planMetadataUpdate(marker.DefaultRegistry(), 7, comments, marker.SecCoverage, "x")
	require.ErrorIs(t, err, metacomment.ErrMalformed)
}
