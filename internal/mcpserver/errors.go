package mcpserver

import (
	"fmt"

	"ludo-arena/internal/apperr"

	"github.com/mark3labs/mcp-go/mcp"
)

func toolResult(data any) *mcp.CallToolResult {
	return mcp.NewToolResultStructuredOnly(data)
}

func toolError(code, message string, retryable bool) *mcp.CallToolResult {
	result := mcp.NewToolResultStructured(
		map[string]any{
			"error": map[string]any{
				"code":      code,
				"message":   message,
				"retryable": retryable,
			},
		},
		fmt.Sprintf("%s: %s", code, message),
	)
	result.IsError = true
	return result
}

func domainError(err error) *mcp.CallToolResult {
	if err == nil {
		return toolError("internal_error", "unknown error", false)
	}
	return toolError(apperr.CodeOf(err), apperr.Message(err), apperr.IsRetryable(err))
}
