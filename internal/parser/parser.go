// Package parser segments Markdown documents into text and code snippets and
// extracts front matter metadata.
package parser

import (
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/seokju-na/geeks-diary-sub001/internal/models"
)

var markdown = goldmark.New()

// Result holds the output of segmenting a Markdown document.
type Result struct {
	FrontMatter map[string]any `json:"frontMatter,omitempty"`
	Title       string         `json:"title"`
	Tags        []string       `json:"tags"`
	// CreatedAt is nil unless the front matter carries a parseable date.
	CreatedAt *time.Time       `json:"createdAt,omitempty"`
	Snippets  []models.Snippet `json:"snippets"`
}

// SplitLines splits raw text on "\n" and drops a trailing "\r" from each line.
func SplitLines(raw string) []string {
	lines := strings.Split(raw, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// Segment splits raw Markdown into an ordered list of snippets. Fenced code
// blocks at the top level become CODE snippets; every run of other blocks
// between them becomes one TEXT snippet. Line numbers are 1-based and
// relative to raw, front matter included.
func Segment(raw string) *Result {
	lines := SplitLines(raw)
	fm, hasFM := ExtractFrontMatter(lines)
	body := lines[fm.BodyLine:]

	src := []byte(strings.Join(body, "\n"))
	doc := markdown.Parser().Parse(text.NewReader(src))

	title := fm.Title
	if title == "" {
		title = firstHeading(doc, src)
	}
	if title == "" {
		title = models.DefaultTitle
	}

	res := &Result{
		Title:     title,
		Tags:      fm.Tags,
		CreatedAt: fm.CreatedAt,
		Snippets:  segmentBody(body, findFences(doc, src, body), fm.BodyLine),
	}
	if hasFM {
		res.FrontMatter = fm.Fields
	}
	if res.Tags == nil {
		res.Tags = []string{}
	}
	return res
}

// fence is a top-level fenced code block; open and close are 0-based,
// inclusive line indexes into the body.
type fence struct {
	open  int
	close int
	lang  string
}

func segmentBody(lines []string, fences []fence, offset int) []models.Snippet {
	out := []models.Snippet{}
	cursor := 0

	emitText := func(from, to int, anchored bool) {
		first, last := -1, -1
		for i := from; i <= to && i < len(lines); i++ {
			if strings.TrimSpace(lines[i]) == "" {
				continue
			}
			if first < 0 {
				first = i
			}
			last = i
		}
		if first < 0 {
			return
		}
		// The first run of the body owns any leading blank lines.
		if anchored {
			first = from
		}
		out = append(out, models.Snippet{
			SnippetDescriptor: models.SnippetDescriptor{
				Kind:      models.SnippetText,
				StartLine: offset + first + 1,
				EndLine:   offset + last + 1,
			},
			Value: strings.Join(lines[first:last+1], "\n"),
		})
	}

	for _, f := range fences {
		emitText(cursor, f.open-1, cursor == 0)
		out = append(out, models.Snippet{
			SnippetDescriptor: models.SnippetDescriptor{
				Kind:           models.SnippetCode,
				StartLine:      offset + f.open + 1,
				EndLine:        offset + f.close + 1,
				CodeLanguageID: f.lang,
			},
			Value: strings.Join(lines[f.open:f.close+1], "\n"),
		})
		cursor = f.close + 1
	}
	emitText(cursor, len(lines)-1, cursor == 0)

	return out
}

func findFences(doc ast.Node, src []byte, lines []string) []fence {
	idx := newLineIndex(src)
	var out []fence
	cursor := 0

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			continue
		}

		content := fcb.Lines()
		open := -1
		switch {
		case fcb.Info != nil:
			open = idx.lineOf(fcb.Info.Segment.Start)
		case content.Len() > 0:
			open = idx.lineOf(content.At(0).Start) - 1
		default:
			for i := cursor; i < len(lines); i++ {
				if _, _, isOpen := fenceOpener(lines[i]); isOpen {
					open = i
					break
				}
			}
		}
		if open < cursor || open >= len(lines) {
			continue
		}

		char, width, _ := fenceOpener(lines[open])
		from := open + 1
		if content.Len() > 0 {
			from = idx.lineOf(content.At(content.Len()-1).Start) + 1
		}
		closing := findFenceClose(lines, from, char, width)
		if closing < 0 {
			// Unclosed fences run to the end of input. The empty string after a
			// final newline is not a line of its own.
			closing = len(lines) - 1
			if closing > open && lines[closing] == "" {
				closing--
			}
		}

		out = append(out, fence{open: open, close: closing, lang: string(fcb.Language(src))})
		cursor = closing + 1
	}
	return out
}

func fenceOpener(line string) (byte, int, bool) {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 || len(trimmed) < 3 {
		return 0, 0, false
	}
	char := trimmed[0]
	if char != '`' && char != '~' {
		return 0, 0, false
	}
	width := 0
	for width < len(trimmed) && trimmed[width] == char {
		width++
	}
	if width < 3 {
		return 0, 0, false
	}
	if char == '`' && strings.ContainsRune(trimmed[width:], '`') {
		return 0, 0, false
	}
	return char, width, true
}

func findFenceClose(lines []string, from int, char byte, width int) int {
	for i := from; i < len(lines); i++ {
		trimmed := strings.TrimLeft(lines[i], " ")
		if len(lines[i])-len(trimmed) > 3 {
			continue
		}
		n := 0
		for n < len(trimmed) && trimmed[n] == char {
			n++
		}
		if n >= width && strings.TrimSpace(trimmed[n:]) == "" {
			return i
		}
	}
	return -1
}

// firstHeading returns the text of the first level-1 heading, or "".
func firstHeading(doc ast.Node, src []byte) string {
	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != 1 {
			return ast.WalkContinue, nil
		}
		segs := h.Lines()
		parts := make([]string, 0, segs.Len())
		for i := 0; i < segs.Len(); i++ {
			seg := segs.At(i)
			parts = append(parts, strings.TrimSpace(string(seg.Value(src))))
		}
		title = strings.TrimSpace(strings.Join(parts, " "))
		if title == "" {
			return ast.WalkContinue, nil
		}
		return ast.WalkStop, nil
	})
	return title
}

// lineIndex maps byte offsets of a source buffer to 0-based line numbers.
type lineIndex []int

func newLineIndex(src []byte) lineIndex {
	starts := lineIndex{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (l lineIndex) lineOf(offset int) int {
	return sort.Search(len(l), func(i int) bool { return l[i] > offset }) - 1
}
