// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes dictionary tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lberthe/dicolex/internal/models"
	"github.com/lberthe/dicolex/internal/termservice"
)

// Server wraps the MCP server with dictionary tools.
type Server struct {
	mcp *server.MCPServer
	svc *termservice.Service
}

// New creates a new MCP server with all dictionary tools registered.
func New(svc *termservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Dicolex",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_terms",
		mcp.WithDescription("Full-text search through vocabulary notes: words, translations, tags and example sentences."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchTerms)

	s.mcp.AddTool(mcp.NewTool("get_term",
		mcp.WithDescription("Get one dictionary entry by its target-language word."),
		mcp.WithString("word", mcp.Required(), mcp.Description("Target-language word (e.g. parler)")),
	), s.getTerm)

	s.mcp.AddTool(mcp.NewTool("upsert_term",
		mcp.WithDescription("Create a vocabulary note or enrich an existing one. "+
			"Only blank fields are filled; curated values are never overwritten. "+
			"Fields MUST follow the canonical term format. Read the contract first via "+
			"the get_term_contract tool or the dicolex://term-format resource."),
		mcp.WithString("word", mcp.Required(), mcp.Description("Target-language word")),
		mcp.WithString("translation", mcp.Description("Translation in the learner's language")),
		mcp.WithString("type", mcp.Description("Grammatical type tags (e.g. #verbe/régulier/1)")),
		mcp.WithString("context", mcp.Description("Usage-domain tags (e.g. #daily)")),
		mcp.WithString("example", mcp.Description("One example sentence")),
	), s.upsertTerm)

	s.mcp.AddTool(mcp.NewTool("classify_term",
		mcp.WithDescription("Run AI classification for a word: translation, type, context and an example sentence are derived and written into the note without overwriting curated values."),
		mcp.WithString("word", mcp.Required(), mcp.Description("Target-language word to classify")),
	), s.classifyTerm)

	s.mcp.AddTool(mcp.NewTool("list_terms",
		mcp.WithDescription("List dictionary entries, optionally filtered by type or context tag substring."),
		mcp.WithString("type", mcp.Description("Substring filter on type tags (e.g. verbe)")),
		mcp.WithString("context", mcp.Description("Substring filter on context tags")),
	), s.listTerms)

	s.mcp.AddTool(mcp.NewTool("get_term_contract",
		mcp.WithDescription("Returns the canonical dicolex term note format contract. "+
			"Call this before creating or enriching terms to ensure correct structure."),
	), s.getTermContract)

	// Resource: term format contract.
	s.mcp.AddResource(
		mcp.NewResource("dicolex://term-format", "Term Format Contract",
			mcp.WithResourceDescription("Canonical vocabulary note format that all terms must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTermFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchTerms(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getTerm(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	word, err := req.RequireString("word")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entry, err := s.svc.GetTerm(ctx, word)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", word)), nil
	}
	out, _ := json.MarshalIndent(entry, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) upsertTerm(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	word, err := req.RequireString("word")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	term := models.Term{
		TargetWord: word,
		SourceWord: req.GetString("translation", ""),
		Type:       req.GetString("type", ""),
		Context:    req.GetString("context", ""),
		Examples:   req.GetString("example", ""),
	}
	ref, err := s.svc.UpsertTerm(ctx, term, false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("upserted: %s", ref.Path)), nil
}

func (s *Server) classifyTerm(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	word, err := req.RequireString("word")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.svc.ClassifyTerm(ctx, word)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("classification failed: %v", err)), nil
	}
	out, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listTerms(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := models.NewFilterState()
	if v := req.GetString("type", ""); v != "" {
		f.Type = v
	}
	if v := req.GetString("context", ""); v != "" {
		f.Context = v
	}
	page, err := s.svc.ListTerms(ctx, f, 0, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var lines []string
	for _, e := range page.Items {
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s", e.TargetWord, e.SourceWord, e.Type))
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no terms found"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getTermContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TermFormatContract), nil
}

func (s *Server) readTermFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "dicolex://term-format",
			MIMEType: "text/markdown",
			Text:     TermFormatContract,
		},
	}, nil
}
