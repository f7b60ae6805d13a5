// Package metacomment parses and serializes the metadata comment.
//
// A metadata comment consists of the metadata root marker, a preamble and a
// list of sections:
//
//	<root-marker>\n\n<preamble>\n\n<marker1><text1><marker2><text2>...
//
// Sections are identified by their marker, an HTML comment. When the comment
// is serialized, sections are ordered by their marker string.
package metacomment

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/simplesurance/prkeeper/internal/stringutils"
)

// Preamble is the human readable text between the root marker and the
// sections.
const Preamble = "The following sections might be updated with supplementary metadata relevant to reviewers and maintainers."

const (
	markerStart = "<!--"
	markerEnd   = "-->"
)

var (
	ErrNotMetadataComment = errors.New("comment does not start with the metadata marker")
	ErrMalformed          = errors.New("malformed metadata comment")
)

// Section is a marker-prefixed part of the metadata comment.
type Section struct {
	Marker string
	Text   string
}

func (s *Section) String() string {
	return s.Marker + s.Text
}

// Comment is the parsed representation of a metadata comment.
type Comment struct {
	// ID is the GitHub ID of the comment, it is 0 if the comment does
	// not exist yet.
	ID       int64
	sections []*Section
}

// New returns an empty metadata comment that does not exist on GitHub yet.
func New() *Comment {
	return &Comment{}
}

// Parse parses body into a Comment.
// If body does not start with rootMarker ErrNotMetadataComment is returned.
func Parse(rootMarker string, id int64, body string) (*Comment, error) {
	rest, found := strings.CutPrefix(body, rootMarker)
	if !found {
		return nil, ErrNotMetadataComment
	}

	sections, err := tokenize(rest)
	if err != nil {
		return nil, err
	}

	return &Comment{ID: id, sections: sections}, nil
}

// tokenize splits s into sections. Text before the first marker is the
// preamble and is discarded.
func tokenize(s string) ([]*Section, error) {
	var result []*Section
	seen := map[string]struct{}{}

	start := strings.Index(s, markerStart)
	if start == -1 {
		return nil, nil
	}
	s = s[start:]

	for s != "" {
		end := strings.Index(s, markerEnd)
		if end == -1 {
			return nil, fmt.Errorf("%w: marker %q is not terminated", ErrMalformed, stringutils.Truncate(s, 40))
		}
		end += len(markerEnd)

		marker := s[:end]
		if _, exists := seen[marker]; exists {
			return nil, fmt.Errorf("%w: section %q exists multiple times", ErrMalformed, marker)
		}
		seen[marker] = struct{}{}

		s = s[end:]

		var text string
		if next := strings.Index(s, markerStart); next == -1 {
			text, s = s, ""
		} else {
			text, s = s[:next], s[next:]
		}

		result = append(result, &Section{Marker: marker, Text: text})
	}

	return result, nil
}

// Text returns the text of the section with the given marker.
func (c *Comment) Text(marker string) (string, bool) {
	for _, s := range c.sections {
		if s.Marker == marker {
			return s.Text, true
		}
	}

	return "", false
}

// Set sets the text of the section with the given marker.
// If the section does not exist, it is appended.
// It returns false if the section already contained text.
func (c *Comment) Set(marker, text string) (changed bool) {
	for _, s := range c.sections {
		if s.Marker != marker {
			continue
		}

		if s.Text == text {
			return false
		}

		s.Text = text
		return true
	}

	c.sections = append(c.sections, &Section{Marker: marker, Text: text})

	return true
}

// Markers returns the markers of all sections in their current order.
func (c *Comment) Markers() []string {
	result := make([]string, 0, len(c.sections))
	for _, s := range c.sections {
		result = append(result, s.Marker)
	}

	return result
}

// Len returns the number of sections.
func (c *Comment) Len() int {
	return len(c.sections)
}

// Render sorts the sections by their marker and returns the comment body.
func (c *Comment) Render(rootMarker string) string {
	sort.SliceStable(c.sections, func(i, j int) bool {
		return c.sections[i].Marker < c.sections[j].Marker
	})

	var sb strings.Builder

	sb.WriteString(rootMarker)
	sb.WriteString("\n\n")
	sb.WriteString(Preamble)
	sb.WriteString("\n\n")

	for _, s := range c.sections {
		sb.WriteString(s.String())
	}

	return sb.String()
}
