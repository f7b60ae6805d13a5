package stringutils

import "strings"

// IndentString prefixes each line of str with indent.
// A trailing newline does not start a new line.
func IndentString(str, indent string) string {
	if str == "" {
		return ""
	}

	lines := strings.SplitAfter(str, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(indent)
		sb.WriteString(l)
	}

	return sb.String()
}

// Truncate returns the first n bytes of str followed by "...", if str is
// longer than n bytes.
func Truncate(str string, n int) string {
	if len(str) <= n {
		return str
	}

	return str[:n] + "..."
}
