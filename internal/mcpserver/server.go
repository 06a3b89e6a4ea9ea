// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the note library to LLM clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/seokju-na/geeks-diary-sub001/internal/apperr"
	"github.com/seokju-na/geeks-diary-sub001/internal/index"
	"github.com/seokju-na/geeks-diary-sub001/internal/noteservice"
)

const formatURI = "geeks-diary://note-format"

// Server wraps the MCP server with note tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"geeks-diary",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, most recently updated first."),
		mcp.WithString("tag", mcp.Description("Only notes carrying this tag")),
		mcp.WithString("sort", mcp.Description("updated, created or title"), mcp.Enum("updated", "created", "title")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note titles and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note as a list of text and code snippets, or as raw Markdown."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id from list_notes or search_notes")),
		mcp.WithString("format", mcp.Description("snippets (default) or markdown"), mcp.Enum("snippets", "markdown")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("import_note",
		mcp.WithDescription("Store Markdown as a new note. Title, tags and date are taken from "+
			"YAML front matter when present. Read get_note_format first."),
		mcp.WithString("markdown", mcp.Required(), mcp.Description("Markdown content of the note")),
	), s.importNote)

	s.mcp.AddTool(mcp.NewTool("get_note_format",
		mcp.WithDescription("Returns how notes are stored and split into snippets."),
	), s.getNoteFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Note Format",
			mcp.WithResourceDescription("How notes are stored and split into snippets."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// Listen serves the MCP protocol over in and out until ctx is cancelled or
// in is closed.
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func toolError(err error, id string) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("note not found: %s", id))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.svc.List(ctx, index.ListQuery{
		Tag:    req.GetString("tag", ""),
		Sort:   req.GetString("sort", ""),
		Limit:  req.GetInt("limit", 0),
		Offset: req.GetInt("offset", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"notes": items, "total": total})
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.GetString("format", "snippets") == "markdown" {
		raw, err := s.svc.Markdown(ctx, id)
		if err != nil {
			return toolError(err, id), nil
		}
		return mcp.NewToolResultText(raw), nil
	}
	c, err := s.svc.Content(ctx, id)
	if err != nil {
		return toolError(err, id), nil
	}
	return jsonResult(c)
}

func (s *Server) importNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	md, err := req.RequireString("markdown")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	meta, err := s.svc.Import(ctx, md)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(meta)
}

func (s *Server) getNoteFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
