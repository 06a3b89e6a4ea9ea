package parser

import (
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

const frontMatterDelim = "---"

// FrontMatter is the metadata block found at the head of a document.
type FrontMatter struct {
	Fields    map[string]any
	Title     string
	Tags      []string
	CreatedAt *time.Time
	// BodyLine is the 0-based index of the first line after the block.
	BodyLine int
}

// ExtractFrontMatter reads a leading "---" delimited YAML block from lines.
// A missing closing delimiter or invalid YAML is not an error: the block is
// reported as absent and the whole document is body.
func ExtractFrontMatter(lines []string) (FrontMatter, bool) {
	if len(lines) == 0 || strings.TrimRight(lines[0], " \t") != frontMatterDelim {
		return FrontMatter{}, false
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t") == frontMatterDelim {
			end = i
			break
		}
	}
	if end < 0 {
		return FrontMatter{}, false
	}

	fields := map[string]any{}
	if end > 1 {
		block := strings.Join(lines[1:end], "\n")
		if err := yaml.Unmarshal([]byte(block), &fields); err != nil {
			return FrontMatter{}, false
		}
		if fields == nil {
			fields = map[string]any{}
		}
	}

	return FrontMatter{
		Fields:    fields,
		Title:     frontMatterTitle(fields),
		Tags:      frontMatterTags(fields),
		CreatedAt: frontMatterDate(fields),
		BodyLine:  end + 1,
	}, true
}

func frontMatterTitle(fields map[string]any) string {
	raw, ok := fields["title"]
	if !ok || raw == nil {
		return ""
	}
	s, err := cast.ToStringE(raw)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// frontMatterTags reads "tags", falling back to "stacks". Duplicates and
// blank entries are dropped; order is preserved.
func frontMatterTags(fields map[string]any) []string {
	raw, ok := fields["tags"]
	if !ok || raw == nil {
		raw, ok = fields["stacks"]
	}
	if !ok || raw == nil {
		return []string{}
	}

	var items []string
	switch v := raw.(type) {
	case string:
		items = []string{v}
	default:
		list, err := cast.ToStringSliceE(v)
		if err != nil {
			return []string{}
		}
		items = list
	}

	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// frontMatterDate returns nil when "date" is absent or does not parse.
func frontMatterDate(fields map[string]any) *time.Time {
	raw, ok := fields["date"]
	if !ok || raw == nil {
		return nil
	}
	if s, isString := raw.(string); isString && strings.TrimSpace(s) == "" {
		return nil
	}
	t, err := cast.ToTimeE(raw)
	if err != nil || t.IsZero() {
		return nil
	}
	return &t
}
