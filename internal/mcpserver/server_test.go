package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/tusk/internal/dates"
	"github.com/starford/tusk/internal/index"
	"github.com/starford/tusk/internal/query"
	"github.com/starford/tusk/internal/taskservice"
	"github.com/starford/tusk/internal/testutil"
)

var testNow = time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)

func testServer(t *testing.T) (*Server, *taskservice.Service) {
	t.Helper()

	db := testutil.TestDB(t)
	store := testutil.TestStore(t, testNow)
	svc := taskservice.NewService(store)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(svc, db, logger), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_tasks":
		result, err = srv.listTasks(ctx, req)
	case "add_task":
		result, err = srv.addTask(ctx, req)
	case "complete_task":
		result, err = srv.completeTask(ctx, req)
	case "search_tasks":
		result, err = srv.searchTasks(ctx, req)
	case "review":
		result, err = srv.review(ctx, req)
	case "get_task_syntax":
		result, err = srv.getTaskSyntax(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestAddAndListTasks(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "add_task", map[string]interface{}{
		"text": "Call Dave #work !high",
	})
	if r.IsError {
		t.Fatalf("add failed: %s", resultText(r))
	}
	if got := resultText(r); got != "added 2025-09-01 #1: Call Dave" {
		t.Errorf("add result = %q", got)
	}

	r = callTool(t, srv, "list_tasks", map[string]interface{}{"tag": "#work"})
	var res query.Result
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatalf("decode: %v (%s)", err, resultText(r))
	}
	if res.Total != 1 || res.Entries[0].Task.Text != "Call Dave" {
		t.Errorf("unexpected list %+v", res)
	}
}

func TestAddTask_Warnings(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "add_task", map[string]interface{}{"text": "write @soon"})
	if r.IsError {
		t.Fatalf("add failed: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "warning:") {
		t.Errorf("expected a warning line, got %q", resultText(r))
	}
}

func TestAddTask_EmptyText(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "add_task", map[string]interface{}{"text": "#only-tags"})
	if !r.IsError {
		t.Error("expected error for empty task text")
	}
}

func TestCompleteTask(t *testing.T) {
	srv, svc := testServer(t)
	_ = callTool(t, srv, "add_task", map[string]interface{}{"text": "a"})
	_ = callTool(t, srv, "add_task", map[string]interface{}{"text": "b"})

	r := callTool(t, srv, "complete_task", map[string]interface{}{"index": "2"})
	if r.IsError {
		t.Fatalf("complete failed: %s", resultText(r))
	}

	d, _ := dates.Parse("2025-09-01")
	day, _ := svc.Day(context.Background(), d)
	if day.Tasks[0].Done() || !day.Tasks[1].Done() {
		t.Errorf("wrong task completed: %+v", day.Tasks)
	}
}

func TestCompleteTask_Errors(t *testing.T) {
	srv, _ := testServer(t)
	for _, args := range []map[string]interface{}{
		{},
		{"index": "two"},
		{"index": "5"},
		{"id": "missing"},
		{"date": "not-a-date", "index": "1"},
	} {
		if r := callTool(t, srv, "complete_task", args); !r.IsError {
			t.Errorf("args %v: expected error", args)
		}
	}
}

func TestSearchTasks(t *testing.T) {
	srv, _ := testServer(t)
	_ = callTool(t, srv, "add_task", map[string]interface{}{"text": "renew passport"})
	_ = callTool(t, srv, "add_task", map[string]interface{}{"text": "buy milk"})

	r := callTool(t, srv, "search_tasks", map[string]interface{}{"query": "passport"})
	if r.IsError {
		t.Fatalf("search failed: %s", resultText(r))
	}
	var hits []index.SearchResult
	if err := json.Unmarshal([]byte(resultText(r)), &hits); err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Text != "renew passport" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestReview(t *testing.T) {
	srv, _ := testServer(t)
	_ = callTool(t, srv, "add_task", map[string]interface{}{"text": "a @1h #x"})
	_ = callTool(t, srv, "complete_task", map[string]interface{}{"index": "1"})

	r := callTool(t, srv, "review", map[string]interface{}{"from": "yesterday", "to": "today"})
	var stats query.Stats
	if err := json.Unmarshal([]byte(resultText(r)), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Total != 1 || stats.Done != 1 || stats.TotalEstimate != 3600 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestGetTaskSyntax(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_task_syntax", map[string]interface{}{})
	if !strings.Contains(resultText(r), "!high") {
		t.Error("syntax contract missing priority tokens")
	}
}
