package kanban

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPBoard reaches the vibe-kanban server over MCP stdio, spawning the
// server process per call. vibe-kanban keeps its state server-side, so
// a fresh process per operation is cheap and avoids lifetime management
// for a long-lived child.
type MCPBoard struct {
	command string
	args    []string
}

// NewMCPBoard returns a board backed by `npx vibe-kanban@latest --mcp`.
func NewMCPBoard() *MCPBoard {
	return &MCPBoard{
		command: "npx",
		args:    []string{"vibe-kanban@latest", "--mcp"},
	}
}

// callTool spawns the MCP server, initializes the session, invokes one
// tool, and returns the text payload of the result.
func (b *MCPBoard) callTool(ctx context.Context, name string, args map[string]any) (string, error) {
	c, err := client.NewStdioMCPClient(b.command, nil, b.args...)
	if err != nil {
		return "", fmt.Errorf("failed to start kanban server: %w", err)
	}
	defer c.Close()

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "stagehand",
		Version: "0.1.0",
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		return "", fmt.Errorf("kanban server handshake failed: %w", err)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := c.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("kanban tool %s failed: %w", name, err)
	}

	var text strings.Builder
	for _, content := range result.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			text.WriteString(tc.Text)
		}
	}
	if result.IsError {
		return "", fmt.Errorf("kanban tool %s returned an error: %s", name, text.String())
	}
	return text.String(), nil
}

// decodeList parses a tool result that carries a JSON array, either bare
// or wrapped in an object under key.
func decodeList[T any](payload, key string) ([]T, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, nil
	}

	var items []T
	if err := json.Unmarshal([]byte(payload), &items); err == nil {
		return items, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &wrapped); err != nil {
		return nil, fmt.Errorf("unexpected kanban response: %s", payload)
	}
	raw, ok := wrapped[key]
	if !ok {
		return nil, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("unexpected kanban %s payload: %w", key, err)
	}
	return items, nil
}

func (b *MCPBoard) ListProjects(ctx context.Context) ([]Project, error) {
	payload, err := b.callTool(ctx, "list_projects", map[string]any{})
	if err != nil {
		return nil, err
	}
	return decodeList[Project](payload, "projects")
}

func (b *MCPBoard) ListTasks(ctx context.Context, projectID, status string) ([]Task, error) {
	payload, err := b.callTool(ctx, "list_tasks", map[string]any{
		"project_id": projectID,
		"status":     status,
	})
	if err != nil {
		return nil, err
	}
	return decodeList[Task](payload, "tasks")
}

func (b *MCPBoard) CreateTask(ctx context.Context, projectID, title, description string) (string, error) {
	payload, err := b.callTool(ctx, "create_task", map[string]any{
		"project_id":  projectID,
		"title":       title,
		"description": description,
	})
	if err != nil {
		return "", err
	}

	var created struct {
		TaskID string `json:"task_id"`
		ID     string `json:"id"`
	}
	if err := json.Unmarshal([]byte(payload), &created); err != nil {
		return "", fmt.Errorf("unexpected create_task response: %s", payload)
	}
	if created.TaskID != "" {
		return created.TaskID, nil
	}
	if created.ID != "" {
		return created.ID, nil
	}
	return "", fmt.Errorf("no task id in create_task response: %s", payload)
}

func (b *MCPBoard) UpdateTaskStatus(ctx context.Context, taskID, status string) error {
	_, err := b.callTool(ctx, "update_task", map[string]any{
		"task_id": taskID,
		"status":  status,
	})
	return err
}

func (b *MCPBoard) DeleteTask(ctx context.Context, taskID string) error {
	_, err := b.callTool(ctx, "delete_task", map[string]any{
		"task_id": taskID,
	})
	return err
}
