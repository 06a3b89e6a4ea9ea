package mcpserver

// NoteFormatContract describes how notes are stored and split into snippets,
// for LLM clients that import or read notes.
const NoteFormatContract = `# Geeks Diary Note Format

A note is two files in the workspace: a Markdown content file and a JSON
metadata file. Import Markdown with the ` + "`import_note`" + ` tool; both files are
written for you.

## Markdown

~~~markdown
---
title: Ownership in Rust      # OPTIONAL - else the first "# Heading", else "No Title"
tags: [rust, memory]          # OPTIONAL - list or single string; "stacks" is accepted too
date: 2024-01-15              # OPTIONAL - becomes the creation date
---

Text before the first fence is one TEXT snippet.

` + "```" + `rust
fn main() {}
` + "```" + `

Each top-level fenced block is one CODE snippet, tagged with the fence language.
~~~

## Snippet rules

1. Top-level fenced code blocks (backticks or tildes) become CODE snippets.
2. Every run of other blocks between fences becomes one TEXT snippet.
3. Adjacent fences stay separate snippets; blank lines never form a snippet.
4. An unclosed fence runs to the end of the document.
5. Indented code and fences nested in lists or quotes stay inside TEXT.
6. Line numbers are 1-based and count the front matter.

## Reading

` + "`read_note`" + ` returns snippets (kind, line range, language, value) by default,
or the raw Markdown with ` + "`format: markdown`" + `.
`
