package ruletext

import "strings"

// SplitLines turns a '\n'-joined blob into lines. CRLF endings are accepted,
// folded continuation lines (leading space or tab) are unfolded and blank
// lines are dropped.
func SplitLines(blob string) []string {
	raw := strings.Split(strings.ReplaceAll(blob, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if line == "" {
			continue
		}
		if (line[0] == ' ' || line[0] == '\t') && len(lines) > 0 {
			lines[len(lines)-1] += line[1:]
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// JoinLines is the inverse of SplitLines for lines without blanks or folds.
func JoinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
