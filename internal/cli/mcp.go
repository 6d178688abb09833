package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/colthorp/threadsum-go/internal/cache"
	"github.com/colthorp/threadsum-go/internal/core"
	"github.com/colthorp/threadsum-go/internal/forum"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// MCP Protocol types
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type MCPToolInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

type MCPServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type MCPInitializeResult struct {
	ProtocolVersion string        `json:"protocolVersion"`
	ServerInfo      MCPServerInfo `json:"serverInfo"`
	Capabilities    interface{}   `json:"capabilities"`
}

// FetchThreadParams are the parameters for the fetch_thread tool
type FetchThreadParams struct {
	URL     string `json:"url"`
	NoCache bool   `json:"no_cache"`
}

// AskThreadParams are the parameters for the ask_thread tool
type AskThreadParams struct {
	URL      string `json:"url"`
	Question string `json:"question"`
}

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI integration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := newMCPServer(a, cmd.InOrStdin(), cmd.OutOrStdout())
			return srv.serve(cmd.Context())
		},
	}
}

// mcpServer speaks line-delimited JSON-RPC over a reader/writer pair.
type mcpServer struct {
	app        *app
	in         io.Reader
	out        io.Writer
	summarizer Summarizer
}

func newMCPServer(a *app, in io.Reader, out io.Writer) *mcpServer {
	return &mcpServer{app: a, in: in, out: out}
}

// serve handles requests until the input ends.
func (s *mcpServer) serve(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	// Increase buffer size for large messages
	const maxCapacity = 10 * 1024 * 1024 // 10MB
	buf := make([]byte, maxCapacity)
	scanner.Buffer(buf, maxCapacity)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			// Without an ID a response would only confuse the client.
			s.app.logger.Warn("mcp parse error", zap.Error(err))
			continue
		}

		s.handle(ctx, &req)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}
	return nil
}

func (s *mcpServer) handle(ctx context.Context, req *MCPRequest) {
	switch req.Method {
	case "initialize":
		s.sendResponse(req.ID, MCPInitializeResult{
			ProtocolVersion: "2024-11-05",
			ServerInfo: MCPServerInfo{
				Name:    "threadsum",
				Version: core.Version,
			},
			Capabilities: map[string]interface{}{
				"tools": map[string]interface{}{},
			},
		})
	case "initialized", "notifications/initialized":
		// Notifications don't get responses
		return
	case "tools/list":
		s.sendResponse(req.ID, map[string]interface{}{"tools": toolList()})
	case "tools/call":
		s.handleToolsCall(ctx, req)
	default:
		// Notifications (no ID) are ignored
		if req.ID != nil {
			s.sendError(req.ID, -32601, "Method not found", req.Method)
		}
	}
}

func toolList() []MCPToolInfo {
	return []MCPToolInfo{
		{
			Name:        "fetch_thread",
			Description: "Scrape every page of a forum thread and return its messages in order.\n\nArgs:\n    url: Thread URL (any page of the thread)\n    no_cache: Ignore and do not write the local cache\n\nReturns:\n    The canonical URL, page statistics and the list of messages",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"url": map[string]interface{}{
						"type":        "string",
						"description": "Thread URL",
					},
					"no_cache": map[string]interface{}{
						"type":        "boolean",
						"description": "Bypass the local cache",
						"default":     false,
					},
				},
				"required": []string{"url"},
			},
		},
		{
			Name:        "ask_thread",
			Description: "Answer a question using the content of a forum thread.\n\nArgs:\n    url: Thread URL\n    question: Question to answer from the thread\n\nReturns:\n    The answer text",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"url": map[string]interface{}{
						"type":        "string",
						"description": "Thread URL",
					},
					"question": map[string]interface{}{
						"type":        "string",
						"description": "Question about the thread",
					},
				},
				"required": []string{"url", "question"},
			},
		},
	}
}

func (s *mcpServer) handleToolsCall(ctx context.Context, req *MCPRequest) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}

	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.sendError(req.ID, -32602, "Invalid params", err.Error())
		return
	}

	switch params.Name {
	case "fetch_thread":
		s.handleFetchThread(ctx, req.ID, params.Arguments)
	case "ask_thread":
		s.handleAskThread(ctx, req.ID, params.Arguments)
	default:
		s.sendError(req.ID, -32602, "Unknown tool", params.Name)
	}
}

func (s *mcpServer) assemble(ctx context.Context, rawURL string, noCache bool) cache.Result {
	opts := s.app.cacheOptions()
	opts.Quiet = true
	if noCache {
		opts.UseCache = false
	}
	return s.app.manager().Fetch(ctx, rawURL, opts)
}

func (s *mcpServer) handleFetchThread(ctx context.Context, id interface{}, argsJSON json.RawMessage) {
	var args FetchThreadParams
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		s.sendToolError(id, fmt.Sprintf("Invalid arguments: %v", err))
		return
	}
	if strings.TrimSpace(args.URL) == "" {
		s.sendToolError(id, "url is required")
		return
	}

	res := s.assemble(ctx, args.URL, args.NoCache)
	s.sendToolResult(id, fetchResult(res))
}

func fetchResult(res cache.Result) map[string]interface{} {
	failed := make([]int, 0, len(res.FailedPages))
	for _, f := range res.FailedPages {
		failed = append(failed, f.Number)
	}
	msgs := res.Messages
	if msgs == nil {
		msgs = []forum.Message{}
	}
	return map[string]interface{}{
		"url":            res.CanonicalURL,
		"from_cache":     res.FromCache,
		"total_pages":    res.TotalPages,
		"failed_pages":   failed,
		"messages_count": len(msgs),
		"messages":       msgs,
	}
}

func (s *mcpServer) handleAskThread(ctx context.Context, id interface{}, argsJSON json.RawMessage) {
	var args AskThreadParams
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		s.sendToolError(id, fmt.Sprintf("Invalid arguments: %v", err))
		return
	}
	if strings.TrimSpace(args.URL) == "" {
		s.sendToolError(id, "url is required")
		return
	}

	if s.summarizer == nil {
		sum, err := s.app.newSummarizer(ctx, s.app.cfg, s.app.logger)
		if err != nil {
			s.sendToolError(id, err.Error())
			return
		}
		s.summarizer = sum
	}

	res := s.assemble(ctx, args.URL, false)
	if len(res.Messages) == 0 {
		s.sendToolError(id, fmt.Sprintf("No messages found for %s", res.CanonicalURL))
		return
	}
	answer, err := s.summarizer.Answer(ctx, res.Messages, args.Question)
	if err != nil {
		s.sendToolError(id, err.Error())
		return
	}
	s.sendToolResult(id, map[string]interface{}{
		"url":      res.CanonicalURL,
		"question": args.Question,
		"answer":   answer,
	})
}

func (s *mcpServer) write(resp MCPResponse) {
	data, _ := json.Marshal(resp)
	fmt.Fprintln(s.out, string(data))
}

func (s *mcpServer) sendResponse(id interface{}, result interface{}) {
	s.write(MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

func (s *mcpServer) sendError(id interface{}, code int, message, data string) {
	s.write(MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	})
}

func (s *mcpServer) sendToolResult(id interface{}, result interface{}) {
	s.sendResponse(id, map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": mustMarshal(result),
			},
		},
	})
}

func (s *mcpServer) sendToolError(id interface{}, message string) {
	s.sendResponse(id, map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": message,
			},
		},
		"isError": true,
	})
}

func mustMarshal(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(data)
}
