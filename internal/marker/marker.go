// Package marker provides the registry of invisible markers that prefix
// comments and metadata sections written by prkeeper.
//
// Markers are HTML comments, they are not rendered by GitHub. They carry no
// payload, they only make text authored by prkeeper recognizable among
// comments written by humans.
package marker

import (
	"fmt"
	"sort"
	"strings"
)

// ID identifies the role of a marker.
type ID uint8

const (
	Undefined ID = iota
	NeedsRebase
	CIFailed
	InactiveRebase
	InactiveCI
	InactiveStale
	Closed
	// Metadata is the root marker of the metadata comment.
	Metadata
	SecCodeCoverage
	SecConflicts
	SecCoverage
	SecReviews
	SecLMCheck
)

var idNames = [...]string{
	Undefined:       "undefined",
	NeedsRebase:     "needs_rebase",
	CIFailed:        "ci_failed",
	InactiveRebase:  "inactive_rebase",
	InactiveCI:      "inactive_ci",
	InactiveStale:   "inactive_stale",
	Closed:          "closed",
	Metadata:        "metadata",
	SecCodeCoverage: "code_coverage",
	SecConflicts:    "conflicts",
	SecCoverage:     "coverage",
	SecReviews:      "reviews",
	SecLMCheck:      "lm_check",
}

func (id ID) String() string {
	if int(id) > len(idNames)-1 {
		return fmt.Sprintf("unsupported marker id: %d", id)
	}

	return idNames[id]
}

// IsSection returns true if the ID identifies a section of the metadata
// comment.
func (id ID) IsSection() bool {
	switch id {
	case SecCodeCoverage, SecConflicts, SecCoverage, SecReviews, SecLMCheck:
		return true
	default:
		return false
	}
}

// ParseID returns the ID with the given name.
func ParseID(name string) (ID, error) {
	for id, n := range idNames {
		if ID(id) == Undefined {
			continue
		}

		if n == name {
			return ID(id), nil
		}
	}

	return Undefined, fmt.Errorf("unknown marker name: %q", name)
}

// SectionNames returns the names of all section IDs.
func SectionNames() []string {
	var result []string

	for id, n := range idNames {
		if ID(id).IsSection() {
			result = append(result, n)
		}
	}

	sort.Strings(result)

	return result
}

// Registry maps IDs to their literal marker strings.
type Registry struct {
	markers map[ID]string
	ids     map[string]ID
}

// NewRegistry creates a registry from the given mapping.
// Markers must be non-empty and unique.
func NewRegistry(markers map[ID]string) (*Registry, error) {
	r := Registry{
		markers: make(map[ID]string, len(markers)),
		ids:     make(map[string]ID, len(markers)),
	}

	for id, m := range markers {
		if id == Undefined {
			return nil, fmt.Errorf("marker %q is assigned to the undefined id", m)
		}

		if !strings.HasPrefix(m, "<!--") || !strings.HasSuffix(m, "-->") {
			return nil, fmt.Errorf("marker %q for %s is not an html comment", m, id)
		}

		if other, exists := r.ids[m]; exists {
			return nil, fmt.Errorf("marker %q is assigned to %s and %s", m, other, id)
		}

		r.markers[id] = m
		r.ids[m] = id
	}

	return &r, nil
}

var defaultMarkers = map[ID]string{
	NeedsRebase:     "<!--cf906140f33d8803c4a75a2196329ecb-->",
	CIFailed:        "<!--85328a0da195eb286784d51f73fa0af9-->",
	InactiveRebase:  "<!--13523179cfe9479db18ec6c5d236f789-->",
	InactiveCI:      "<!--2e250dc3d92b2c9115b66051148d6e47-->",
	InactiveStale:   "<!--8ac04cdde196e94527acabf64b896448-->",
	Closed:          "<!--5a8e4b1bb8b6f1e6a5d0c32dd5d13f5e-->",
	Metadata:        "<!--e57a25ab6845829454e8d69fc972939a-->",
	SecCodeCoverage: "<!--006a51241073e994b41acfe9ec718e94-->",
	SecConflicts:    "<!--174a7506f384e20aa4161008e828411d-->",
	SecCoverage:     "<!--2502f1a698b3751726fa55edcda76cd3-->",
	SecReviews:      "<!--021abf342d371248e50ceaed478a90ca-->",
	SecLMCheck:      "<!--5faf32d7da4f0f540f40219e4f7537a3-->",
}

// DefaultRegistry returns the registry with the markers used by prkeeper.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(defaultMarkers)
	if err != nil {
		panic(fmt.Sprintf("default markers are invalid: %s", err))
	}

	return r
}

// Marker returns the marker string for id.
// It panics if the registry has no marker for id.
func (r *Registry) Marker(id ID) string {
	m, exists := r.markers[id]
	if !exists {
		panic(fmt.Sprintf("marker registry has no entry for %s", id))
	}

	return m
}

// Lookup returns the ID of a marker string.
func (r *Registry) Lookup(marker string) (ID, bool) {
	id, exists := r.ids[marker]
	return id, exists
}

// HasPrefix returns true if text starts with the marker of id.
func (r *Registry) HasPrefix(text string, id ID) bool {
	m, exists := r.markers[id]
	if !exists {
		return false
	}

	return strings.HasPrefix(text, m)
}
