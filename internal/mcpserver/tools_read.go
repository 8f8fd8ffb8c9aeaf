package mcpserver

import (
	"context"
	"strings"

	"ludo-arena/internal/game/viewmodel"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerReadTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_game_state",
			mcp.WithDescription("Game state by room code. With player_id, includes that player's legal moves."),
			roomArg(),
			mcp.WithString("player_id", mcp.Description("Optional seated player id")),
		),
		s.handleGetGameState,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_room",
			mcp.WithDescription("Room membership and status by room code"),
			roomArg(),
		),
		s.handleGetRoom,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_matchmaking",
			mcp.WithDescription("Current matchmaking queue size"),
		),
		s.handleGetMatchmaking,
	)
}

func (s *Server) handleGetGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("room_code")
	if err != nil {
		return toolError("invalid_request", err.Error(), false), nil
	}
	st, err := s.gw.State(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return domainError(err), nil
	}
	if playerID := strings.TrimSpace(request.GetString("player_id", "")); playerID != "" {
		return toolResult(viewmodel.BuildPlayerState(st, playerID)), nil
	}
	return toolResult(viewmodel.BuildPublicState(st)), nil
}

func (s *Server) handleGetRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("room_code")
	if err != nil {
		return toolError("invalid_request", err.Error(), false), nil
	}
	r, err := s.gw.Room(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return domainError(err), nil
	}
	return toolResult(r), nil
}

func (s *Server) handleGetMatchmaking(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := s.gw.QueueSize(ctx)
	if err != nil {
		return domainError(err), nil
	}
	return toolResult(map[string]any{"queueSize": n}), nil
}
