// Package mcp provides a Model Context Protocol server for the calendar
// assistant.
//
// It exposes the natural-language pipeline and the event store as MCP
// tools over stdio, so desktop agents can drive the calendar the same
// way the HTTP ai-chat route does.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jungfsg/Calender/internal/event"
	"github.com/jungfsg/Calender/internal/store"
	"github.com/jungfsg/Calender/internal/workflow"
)

// ServerConfig holds the MCP server's collaborators.
type ServerConfig struct {
	Engine  *workflow.Engine
	Store   store.CalendarStore
	Version string
}

// calMu serializes tool calls. The mcp-go library dispatches handlers
// concurrently via goroutines, and both the SQLite and flat-file backends
// want one writer at a time; a single mutex also keeps a process-message
// call's writes visible to the search that follows it.
var calMu sync.Mutex

// NewServer creates a configured MCP server with the calendar tools.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"Calender",
		ver,
		server.WithToolCapabilities(false),
	)

	registerProcessTool(s, cfg.Engine)
	registerSearchTool(s, cfg.Store)
	registerCreateTool(s, cfg.Store)

	return s
}

// ServeStdio runs the server on stdin/stdout until EOF.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func registerProcessTool(s *server.MCPServer, engine *workflow.Engine) {
	tool := mcp.NewTool("calendar_process",
		mcp.WithDescription("Process a natural-language calendar command (add, update, delete, search, copy, or plain chat). Returns the assistant reply plus the structured outcome."),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The user's utterance, e.g. 'add a dentist appointment tomorrow at 2pm'"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		calMu.Lock()
		defer calMu.Unlock()

		message, err := req.RequireString("message")
		if err != nil {
			return mcp.NewToolResultError("message is required"), nil
		}

		st := engine.Process(ctx, message, nil)
		data, _ := json.MarshalIndent(map[string]interface{}{
			"response": st.Response,
			"intent":   st.Intent.Intent,
			"action":   st.Action,
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerSearchTool(s *server.MCPServer, cal store.CalendarStore) {
	tool := mcp.NewTool("calendar_search",
		mcp.WithDescription("Search stored calendar events by free text, or list a single day with the date parameter."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query",
			mcp.Description("Free-text search over titles, descriptions, and locations"),
		),
		mcp.WithString("date",
			mcp.Description("List events on one date (YYYY-MM-DD); overrides query"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 20, max: 50)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		calMu.Lock()
		defer calMu.Unlock()

		limit := 20
		if v, err := req.RequireFloat("limit"); err == nil && int(v) > 0 {
			limit = int(v)
			if limit > 50 {
				limit = 50
			}
		}

		var (
			events []*event.Stored
			err    error
		)
		if date, derr := req.RequireString("date"); derr == nil && date != "" {
			events, err = cal.ListByDate(ctx, date)
		} else {
			query, qerr := req.RequireString("query")
			if qerr != nil || query == "" {
				return mcp.NewToolResultError("query or date is required"), nil
			}
			events, err = cal.Search(ctx, query, limit)
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(events, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerCreateTool(s *server.MCPServer, cal store.CalendarStore) {
	tool := mcp.NewTool("calendar_create",
		mcp.WithDescription("Create one calendar event from structured fields, bypassing natural-language extraction."),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Event title"),
		),
		mcp.WithString("start_date",
			mcp.Required(),
			mcp.Description("Start date, YYYY-MM-DD"),
		),
		mcp.WithString("start_time",
			mcp.Description("Start time, HH:MM 24-hour; omit for an all-day event"),
		),
		mcp.WithString("end_time",
			mcp.Description("End time, HH:MM 24-hour"),
		),
		mcp.WithString("location",
			mcp.Description("Event location"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		calMu.Lock()
		defer calMu.Unlock()

		title, err := req.RequireString("title")
		if err != nil {
			return mcp.NewToolResultError("title is required"), nil
		}
		startDate, err := req.RequireString("start_date")
		if err != nil {
			return mcp.NewToolResultError("start_date is required"), nil
		}

		d := event.EventDraft{Title: title, StartDate: startDate, EndDate: startDate, AllDay: true}
		if v, err := req.RequireString("start_time"); err == nil && v != "" {
			d.StartTime = v
			d.AllDay = false
		}
		if v, err := req.RequireString("end_time"); err == nil && v != "" {
			d.EndTime = v
		}
		if v, err := req.RequireString("location"); err == nil {
			d.Location = v
		}

		st, err := cal.Create(ctx, d)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("create error: %v", err)), nil
		}
		data, _ := json.MarshalIndent(st, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}
