package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const methodToolsCall = "tools/call"

// MCPCallContextMiddleware creates MCP protocol-level middleware that attaches
// a CallContext to every tools/call request. An existing context (from the
// HTTP layer) is reused so REST and MCP share request ids.
func MCPCallContextMiddleware(transport string) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodToolsCall {
				return next(ctx, method, req)
			}

			name, err := extractToolName(req)
			if err != nil {
				return createErrorResult(fmt.Sprintf("invalid request: %v", err)), nil
			}

			cc := GetCallContext(ctx)
			if cc == nil {
				cc = NewCallContext("", transport)
			} else {
				// Copy so concurrent calls on one HTTP request do not share state.
				cp := *cc
				cc = &cp
				cc.Transport = transport
			}
			cc.ToolName = name
			return next(WithCallContext(ctx, cc), method, req)
		}
	}
}

// MCPLoggingMiddleware logs every MCP method at debug level and failed tool
// calls at warn level.
func MCPLoggingMiddleware() mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			start := time.Now()
			result, err := next(ctx, method, req)
			duration := time.Since(start)

			attrs := []any{"method", method, "duration", duration}
			if cc := GetCallContext(ctx); cc != nil {
				attrs = append(attrs, "request_id", cc.RequestID, "tool", cc.ToolName)
			}
			if err != nil {
				slog.Warn("mcp request failed", append(attrs, "error", err)...)
				return result, err
			}
			if res, ok := result.(*mcp.CallToolResult); ok && res != nil && res.IsError {
				slog.Warn("mcp tool call returned error", append(attrs, "error", extractErrorText(res))...)
				return result, err
			}
			slog.Debug("mcp request", attrs...)
			return result, err
		}
	}
}

// extractToolName extracts the tool name from a tools/call request.
func extractToolName(req mcp.Request) (string, error) {
	params := req.GetParams()
	if params == nil {
		return "", fmt.Errorf("missing params")
	}
	callParams, ok := params.(*mcp.CallToolParamsRaw)
	if !ok || callParams == nil {
		return "", fmt.Errorf("unexpected params type: %T", params)
	}
	if callParams.Name == "" {
		return "", fmt.Errorf("missing tool name")
	}
	return callParams.Name, nil
}

// ExtractArguments decodes the raw arguments of a tools/call request.
func ExtractArguments(params *mcp.CallToolParamsRaw) (map[string]any, error) {
	if params == nil || len(params.Arguments) == 0 || string(params.Arguments) == "null" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("decoding arguments: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func createErrorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}

func extractErrorText(res *mcp.CallToolResult) string {
	if len(res.Content) == 0 {
		return ""
	}
	if tc, ok := res.Content[0].(*mcp.TextContent); ok {
		return tc.Text
	}
	return ""
}
