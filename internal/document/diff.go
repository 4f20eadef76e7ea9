package document

import (
	"fmt"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// MergePatch returns the RFC 7386 merge patch turning before into after.
// Both documents must be JSON objects.
func MergePatch(before, after string) (string, error) {
	patch, err := jsonpatch.CreateMergePatch([]byte(before), []byte(after))
	if err != nil {
		return "", fmt.Errorf("create merge patch: %w", err)
	}
	return string(patch), nil
}

// ApplyMergePatch applies an RFC 7386 merge patch to doc.
func ApplyMergePatch(doc, patch string) (string, error) {
	out, err := jsonpatch.MergePatch([]byte(doc), []byte(patch))
	if err != nil {
		return "", fmt.Errorf("apply merge patch: %w", err)
	}
	return string(out), nil
}

// LineDiff renders a line-oriented diff of two documents. Unchanged lines
// are prefixed with two spaces, removed lines with "- " and added lines
// with "+ ".
func LineDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out.WriteString(prefix)
			out.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				out.WriteByte('\n')
			}
		}
	}
	return out.String()
}
