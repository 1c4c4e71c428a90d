// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the task tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tusk/internal/dates"
	"github.com/starford/tusk/internal/index"
	"github.com/starford/tusk/internal/models"
	"github.com/starford/tusk/internal/query"
	"github.com/starford/tusk/internal/taskservice"
)

const syntaxURI = "tusk://task-syntax"

// Server wraps the MCP server with the task tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *taskservice.Service
	db     *index.DB
	logger *slog.Logger
}

// New creates a new MCP server with all task tools registered. db may be
// nil, in which case search_tasks reports an error.
func New(svc *taskservice.Service, db *index.DB, logger *slog.Logger) *Server {
	s := &Server{svc: svc, db: db, logger: logger}

	s.mcp = server.NewMCPServer(
		"Tusk",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks over a date range as JSON. Dates accept YYYY-MM-DD, today, yesterday or tomorrow."),
		mcp.WithString("from", mcp.Description("First day (default today)")),
		mcp.WithString("to", mcp.Description("Last day (default from)")),
		mcp.WithString("status", mcp.Description("open, done or empty for both")),
		mcp.WithString("tag", mcp.Description("Only tasks carrying this tag")),
		mcp.WithString("sort", mcp.Description("index, created, due, priority or status")),
	), s.listTasks)

	s.mcp.AddTool(mcp.NewTool("add_task",
		mcp.WithDescription("Add a task. Inline tokens (!high #tag @15m >16:00) become structured fields; "+
			"read the syntax via get_task_syntax or the "+syntaxURI+" resource."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Task line including any metadata tokens")),
		mcp.WithString("date", mcp.Description("Day to add to (default today)")),
		mcp.WithString("notes", mcp.Description("Free-form notes, never parsed")),
	), s.addTask)

	s.mcp.AddTool(mcp.NewTool("complete_task",
		mcp.WithDescription("Mark a task done, by 1-based index or by id."),
		mcp.WithString("date", mcp.Description("Day of the task (default today)")),
		mcp.WithString("index", mcp.Description("1-based position on that day")),
		mcp.WithString("id", mcp.Description("Task id; used when index is empty")),
	), s.completeTask)

	s.mcp.AddTool(mcp.NewTool("search_tasks",
		mcp.WithDescription("Full-text search through task text, notes and tags across every day."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchTasks)

	s.mcp.AddTool(mcp.NewTool("review",
		mcp.WithDescription("Summary over a date range: counts by status, overdue, tag frequency and estimates."),
		mcp.WithString("from", mcp.Description("First day (default today)")),
		mcp.WithString("to", mcp.Description("Last day (default from)")),
	), s.review)

	s.mcp.AddTool(mcp.NewTool("get_task_syntax",
		mcp.WithDescription("Returns the inline task metadata syntax. Call this before adding tasks."),
	), s.getTaskSyntax)

	s.mcp.AddResource(
		mcp.NewResource(syntaxURI, "Task Syntax",
			mcp.WithResourceDescription("Inline metadata grammar for task text."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTaskSyntaxResource,
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

// optString returns an optional argument, or "" when it is absent.
func optString(req mcp.CallToolRequest, name string) string {
	v, err := req.RequireString(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

func (s *Server) dateArg(req mcp.CallToolRequest, name string) (dates.Date, error) {
	return s.svc.Store().ResolveDate(optString(req, name))
}

func (s *Server) rangeArgs(req mcp.CallToolRequest) (dates.Range, error) {
	from, err := s.dateArg(req, "from")
	if err != nil {
		return dates.Range{}, err
	}
	to := from
	if optString(req, "to") != "" {
		if to, err = s.dateArg(req, "to"); err != nil {
			return dates.Range{}, err
		}
	}
	return dates.NewRange(from, to)
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rng, err := s.rangeArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var opts query.Options
	switch optString(req, "status") {
	case "":
	case "open":
		opts.Filter.Open = true
	case "done":
		opts.Filter.Done = true
	default:
		return mcp.NewToolResultError("status must be open, done or empty"), nil
	}
	if tag := optString(req, "tag"); tag != "" {
		opts.Filter.Tags = []string{strings.TrimPrefix(tag, "#")}
	}
	if opts.Sort, err = query.ParseSortKey(optString(req, "sort")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.svc.List(ctx, rng, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res.Entries == nil {
		res.Entries = []query.Entry{}
	}
	return jsonResult(res), nil
}

func (s *Server) addTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.dateArg(req, "date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Add(ctx, d, text, taskservice.AddOptions{Notes: optString(req, "notes")})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	msg := fmt.Sprintf("added %s #%d: %s", res.Date, res.Task.Index, res.Task.Text)
	for _, w := range res.Warnings {
		msg += "\nwarning: " + w.Error()
	}
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) completeTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := s.dateArg(req, "date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var sel models.Selector
	switch idx, id := optString(req, "index"), optString(req, "id"); {
	case idx != "":
		n, convErr := strconv.Atoi(idx)
		if convErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("index must be a number, got %q", idx)), nil
		}
		sel = models.ByIndex(n)
	case id != "":
		sel = models.ByID(id)
	default:
		return mcp.NewToolResultError("either index or id is required"), nil
	}

	done, err := s.svc.SetDone(ctx, d, []models.Selector{sel}, taskservice.MarkDone)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("done %s #%d: %s", d, done[0].Index, done[0].Text)), nil
}

func (s *Server) searchTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.db == nil {
		return mcp.NewToolResultError("search index unavailable"), nil
	}
	if err := index.Sync(s.db, s.svc.Store().Provider(), s.logger); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(q, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) review(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rng, err := s.rangeArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	stats, err := s.svc.Review(ctx, rng)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(stats), nil
}

func (s *Server) getTaskSyntax(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TaskSyntaxContract), nil
}

func (s *Server) readTaskSyntaxResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      syntaxURI,
			MIMEType: "text/markdown",
			Text:     TaskSyntaxContract,
		},
	}, nil
}
