// Package grouping derives the stable group key that clusters evidence
// photos by task and comment. The key is computed here and nowhere else:
// the datastore write path stores it and the read path recomputes it with
// the same function, so the two can never drift apart.
package grouping

import (
	"fmt"
	"regexp"
	"strings"
)

// Institutional tags mark photos that belong to the report frame (cover
// page, institution header) rather than to a finding. Tagged evidence is
// stored normally but never listed as a group member.
var institutionalTagRe = regexp.MustCompile(`(?i)^\s*\[(INSTITUCION|PORTADA)\]\s*`)

var whitespaceRe = regexp.MustCompile(`\s+`)

// HasInstitutionalTag reports whether the raw comment starts with an
// institutional tag such as [INSTITUCION] or [PORTADA].
func HasInstitutionalTag(comment string) bool {
	return institutionalTagRe.MatchString(comment)
}

// NormalizeComment strips a leading institutional tag, collapses runs of
// whitespace to a single space and trims the ends. Comparison stays
// case-sensitive: "Grieta" and "grieta" are different findings.
func NormalizeComment(comment string) string {
	s := institutionalTagRe.ReplaceAllString(comment, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Key derives the group key for a task id and raw comment. Evidence with
// no task uses task id 0. Two evidence rows belong to the same group iff
// their keys are equal.
func Key(taskID uint, comment string) string {
	return fmt.Sprintf("t%d|c%s", taskID, NormalizeComment(comment))
}

// KeyForTask is a convenience for callers holding an optional task id.
func KeyForTask(taskID *uint, comment string) string {
	if taskID == nil {
		return Key(0, comment)
	}
	return Key(*taskID, comment)
}
