package marker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryHasAllIDs(t *testing.T) {
	reg := DefaultRegistry()

	for id := NeedsRebase; id <= SecLMCheck; id++ {
		m := reg.Marker(id)
		assert.NotEmptyf(t, m, "marker for %s", id)

		lookedUp, ok := reg.Lookup(m)
		require.True(t, ok)
		assert.Equal(t, id, lookedUp)
	}
}

func TestNeedsRebaseMarkerLiteral(t *testing.T) {
	reg := DefaultRegistry()

	assert.Equal(t, "<!--cf906140f33d8803c4a75a2196329ecb-->", reg.Marker(NeedsRebase))
	assert.True(t, reg.HasPrefix("<!--cf906140f33d8803c4a75a2196329ecb-->Needs rebase", NeedsRebase))
	assert.False(t, reg.HasPrefix("Needs rebase <!--cf906140f33d8803c4a75a2196329ecb-->", NeedsRebase))
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(map[ID]string{
		SecCoverage:  "<!--a-->",
		SecConflicts: "<!--a-->",
	})
	require.Error(t, err)
}

func TestNewRegistryRejectsNonHTMLComments(t *testing.T) {
	_, err := NewRegistry(map[ID]string{SecCoverage: "coverage:"})
	require.Error(t, err)
}

func TestParseID(t *testing.T) {
	id, err := ParseID("coverage")
	require.NoError(t, err)
	assert.Equal(t, SecCoverage, id)

	_, err = ParseID("undefined")
	require.Error(t, err)

	_, err = ParseID("doesnotexist")
	require.Error(t, err)
}

func TestSectionNames(t *testing.T) {
	assert.Equal(t,
		[]string{"code_coverage", "conflicts", "coverage", "lm_check", "reviews"},
		SectionNames(),
	)
}

func TestMarkerPanicsOnUnknownID(t *testing.T) {
	reg, err := NewRegistry(map[ID]string{SecCoverage: "<!--a-->"})
	require.NoError(t, err)

	assert.Panics(t, func() { reg.Marker(NeedsRebase) })
}
