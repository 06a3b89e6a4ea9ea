package content

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/seokju-na/geeks-diary-sub001/internal/models"
	"github.com/seokju-na/geeks-diary-sub001/internal/parser"
)

func TestReconstruct_RoundTrip(t *testing.T) {
	docs := []string{
		"\n# Title\nSecond Line\n\n```rust\nfn main() {}\n```\n\nCool~\n",
		"---\ntitle: x\n---\nintro\n\n~~~\ncode\n~~~\n\n```go\nfunc f() {}\n```\noutro",
		"just one paragraph",
	}
	for _, raw := range docs {
		segmented := parser.Segment(raw).Snippets
		got := Reconstruct(models.Descriptors(segmented), raw)
		if diff := cmp.Diff(segmented, got); diff != "" {
			t.Errorf("round trip mismatch for %q (-want +got):\n%s", raw, diff)
		}
	}
}

func TestReconstruct_EmptyRaw(t *testing.T) {
	descs := []models.SnippetDescriptor{{Kind: models.SnippetText, StartLine: 1, EndLine: 1}}
	if got := Reconstruct(descs, ""); got != nil {
		t.Errorf("expected nil for empty raw text, got %+v", got)
	}
}

func TestReconstruct_StaleRanges(t *testing.T) {
	raw := "one\ntwo\nthree"
	descs := []models.SnippetDescriptor{
		{Kind: models.SnippetText, StartLine: 1, EndLine: 1},
		{Kind: models.SnippetText, StartLine: 2, EndLine: 9},
		{Kind: models.SnippetCode, StartLine: 10, EndLine: 12},
	}
	got := Reconstruct(descs, raw)
	want := []string{"one", "two\nthree", ""}
	for i, s := range got {
		if s.Value != want[i] {
			t.Errorf("snippet %d value = %q, want %q", i, s.Value, want[i])
		}
	}
	if diff := cmp.Diff([]int{1, 2}, StaleRanges(descs, raw)); diff != "" {
		t.Errorf("stale ranges mismatch (-want +got):\n%s", diff)
	}
}

func TestSerialize_KeepsKindsAndOrder(t *testing.T) {
	snippets := []models.Snippet{
		{SnippetDescriptor: models.SnippetDescriptor{Kind: models.SnippetText}, Value: "# Title\nbody"},
		{SnippetDescriptor: models.SnippetDescriptor{Kind: models.SnippetCode, CodeLanguageID: "go"}, Value: "fmt.Println(1)"},
		{SnippetDescriptor: models.SnippetDescriptor{Kind: models.SnippetCode, CodeLanguageID: "sh"}, Value: "```sh\nls\n```"},
		{SnippetDescriptor: models.SnippetDescriptor{Kind: models.SnippetText}, Value: "end"},
	}
	raw := Serialize(snippets)

	want := "# Title\nbody\n\n```go\nfmt.Println(1)\n```\n\n```sh\nls\n```\n\nend\n"
	if raw != want {
		t.Fatalf("serialized =\n%s\nwant\n%s", raw, want)
	}

	back := parser.Segment(raw).Snippets
	if len(back) != len(snippets) {
		t.Fatalf("re-segmented %d snippets, want %d", len(back), len(snippets))
	}
	for i := range back {
		if back[i].Kind != snippets[i].Kind || back[i].CodeLanguageID != snippets[i].CodeLanguageID {
			t.Errorf("snippet %d = %+v, want kind %s lang %q", i, back[i].SnippetDescriptor, snippets[i].Kind, snippets[i].CodeLanguageID)
		}
	}
}

func TestSerialize_EmptyCodeAndNestedBackticks(t *testing.T) {
	got := Serialize([]models.Snippet{
		{SnippetDescriptor: models.SnippetDescriptor{Kind: models.SnippetCode, CodeLanguageID: "md"}, Value: "```\ninner\n```x"},
	})
	if got != "````md\n```\ninner\n```x\n````\n" {
		t.Errorf("serialized = %q", got)
	}
	if Serialize(nil) != "" {
		t.Error("empty list should serialize to empty string")
	}
}

func TestLayout_DescriptorsMatchSerializedText(t *testing.T) {
	snippets := []models.Snippet{
		{SnippetDescriptor: models.SnippetDescriptor{Kind: models.SnippetText}, Value: "first"},
		{SnippetDescriptor: models.SnippetDescriptor{Kind: models.SnippetText}, Value: "second\nparagraph"},
		{SnippetDescriptor: models.SnippetDescriptor{Kind: models.SnippetCode, CodeLanguageID: "go", CodeFileName: "main.go"}, Value: "package main"},
		{SnippetDescriptor: models.SnippetDescriptor{Kind: models.SnippetText}, Value: ""},
	}
	raw, descs := Layout(snippets)

	want := []models.SnippetDescriptor{
		{Kind: models.SnippetText, StartLine: 1, EndLine: 1},
		{Kind: models.SnippetText, StartLine: 3, EndLine: 4},
		{Kind: models.SnippetCode, StartLine: 6, EndLine: 8, CodeLanguageID: "go", CodeFileName: "main.go"},
		{Kind: models.SnippetText, StartLine: 10, EndLine: 10},
	}
	if diff := cmp.Diff(want, descs); diff != "" {
		t.Fatalf("descriptors mismatch (-want +got):\n%s", diff)
	}
	if err := models.ValidateSnippets(descs); err != nil {
		t.Errorf("layout violates ordering: %v", err)
	}

	// Adjacent text snippets would merge if segmented again; the layout
	// keeps them apart.
	back := Reconstruct(descs, raw)
	values := []string{"first", "second\nparagraph", "```go\npackage main\n```", ""}
	for i, s := range back {
		if s.Value != values[i] {
			t.Errorf("snippet %d value = %q, want %q", i, s.Value, values[i])
		}
	}
}

func TestAssemble(t *testing.T) {
	raw := "intro\n\n```go\nfmt.Println()\n```"
	descs := []models.SnippetDescriptor{
		{Kind: models.SnippetText, StartLine: 1, EndLine: 1},
		{Kind: models.SnippetCode, StartLine: 3, EndLine: 5, CodeLanguageID: "go"},
	}

	got := Assemble(models.NoteMetadata{ID: "n1", Snippets: descs}, raw)
	want := &models.NoteContent{NoteID: "n1", Snippets: []models.Snippet{
		{SnippetDescriptor: descs[0], Value: "intro"},
		{SnippetDescriptor: descs[1], Value: "```go\nfmt.Println()\n```"},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("with descriptors (-want +got):\n%s", diff)
	}

	// No stored descriptors: the text is segmented.
	segmented := Assemble(models.NoteMetadata{ID: "n1"}, raw)
	if diff := cmp.Diff(want, segmented); diff != "" {
		t.Errorf("segmented (-want +got):\n%s", diff)
	}
}

func TestAssemble_EmptyText(t *testing.T) {
	first := models.Snippet{SnippetDescriptor: models.SnippetDescriptor{Kind: models.SnippetText, StartLine: 1, EndLine: 1}}

	fresh := Assemble(models.NoteMetadata{ID: "n2"}, "")
	if diff := cmp.Diff([]models.Snippet{first}, fresh.Snippets); diff != "" {
		t.Errorf("empty note (-want +got):\n%s", diff)
	}

	descs := []models.SnippetDescriptor{
		first.SnippetDescriptor,
		{Kind: models.SnippetCode, StartLine: 3, EndLine: 5, CodeLanguageID: "go"},
	}
	truncated := Assemble(models.NoteMetadata{ID: "n3", Snippets: descs}, "")
	if len(truncated.Snippets) != 2 || truncated.Snippets[1].Value != "" || truncated.Snippets[1].CodeLanguageID != "go" {
		t.Errorf("truncated file = %+v", truncated.Snippets)
	}
}
