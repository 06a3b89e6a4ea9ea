// Package content rebuilds snippet values from stored line ranges and
// serializes snippet lists back to Markdown.
package content

import (
	"strings"

	"github.com/seokju-na/geeks-diary-sub001/internal/models"
	"github.com/seokju-na/geeks-diary-sub001/internal/parser"
)

// Reconstruct slices the value of every descriptor out of raw. It trusts the
// stored ranges and never re-segments. It returns nil when raw is empty.
//
// Ranges that no longer fit the document (the raw file was edited outside the
// app) are clamped to the available lines; a range entirely past the end
// reconstructs as an empty string.
func Reconstruct(descs []models.SnippetDescriptor, raw string) []models.Snippet {
	if raw == "" {
		return nil
	}
	lines := parser.SplitLines(raw)
	out := make([]models.Snippet, len(descs))
	for i, d := range descs {
		out[i] = models.Snippet{SnippetDescriptor: d, Value: slice(lines, d.StartLine, d.EndLine)}
	}
	return out
}

// StaleRanges returns the indexes of descriptors whose range falls outside raw.
func StaleRanges(descs []models.SnippetDescriptor, raw string) []int {
	n := len(parser.SplitLines(raw))
	var out []int
	for i, d := range descs {
		if d.StartLine < 1 || d.EndLine < d.StartLine || d.EndLine > n {
			out = append(out, i)
		}
	}
	return out
}

func slice(lines []string, start, end int) string {
	from := max(start-1, 0)
	to := min(end, len(lines))
	if from >= to {
		return ""
	}
	return strings.Join(lines[from:to], "\n")
}

// Serialize writes snippets back to Markdown in order, one blank line apart.
// Code snippets whose value is not already fenced are wrapped in a fence
// carrying their language. The returned text ends with a newline.
func Serialize(snippets []models.Snippet) string {
	raw, _ := Layout(snippets)
	return raw
}

// Layout serializes snippets like Serialize and also returns the descriptor of
// every snippet at its position in the output, so snippet boundaries survive
// a save even where segmenting the text again would merge or split them.
func Layout(snippets []models.Snippet) (string, []models.SnippetDescriptor) {
	var b strings.Builder
	descs := make([]models.SnippetDescriptor, len(snippets))
	line := 1
	for i, s := range snippets {
		if i > 0 {
			b.WriteString("\n\n")
			line++
		}
		value := strings.Trim(s.Value, "\n")
		if s.Kind == models.SnippetCode && !isFenced(value) {
			value = fenceFor(value) + s.CodeLanguageID + "\n" + value + "\n" + fenceFor(value)
		}
		b.WriteString(value)

		n := strings.Count(value, "\n") + 1
		d := s.SnippetDescriptor
		d.StartLine, d.EndLine = line, line+n-1
		if d.Kind != models.SnippetCode {
			d.CodeLanguageID, d.CodeFileName = "", ""
		}
		descs[i] = d
		line += n
	}
	if len(snippets) > 0 {
		b.WriteString("\n")
	}
	return b.String(), descs
}

// Assemble builds the runtime content of a note from its metadata and raw
// text. Metadata without descriptors belongs to a note created outside the
// app, so its text is segmented instead. An open note always has at least
// one snippet.
func Assemble(meta models.NoteMetadata, raw string) *models.NoteContent {
	var snippets []models.Snippet
	if len(meta.Snippets) == 0 {
		snippets = parser.Segment(raw).Snippets
	} else {
		snippets = Reconstruct(meta.Snippets, raw)
		if snippets == nil {
			// Empty file: every stored range is stale.
			snippets = Reconstruct(meta.Snippets, "\n")
		}
	}
	if len(snippets) == 0 {
		snippets = []models.Snippet{{
			SnippetDescriptor: models.SnippetDescriptor{Kind: models.SnippetText, StartLine: 1, EndLine: 1},
		}}
	}
	return &models.NoteContent{NoteID: meta.ID, Snippets: snippets}
}

func isFenced(value string) bool {
	lines := parser.SplitLines(value)
	if len(lines) < 2 {
		return false
	}
	first := strings.TrimSpace(lines[0])
	last := strings.TrimSpace(lines[len(lines)-1])
	for _, marker := range []string{"```", "~~~"} {
		if strings.HasPrefix(first, marker) && strings.HasPrefix(last, marker) && strings.Trim(last, marker[:1]) == "" {
			return true
		}
	}
	return false
}

// fenceFor returns a backtick fence longer than any backtick run in value.
func fenceFor(value string) string {
	longest, run := 0, 0
	for _, r := range value {
		if r == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}
