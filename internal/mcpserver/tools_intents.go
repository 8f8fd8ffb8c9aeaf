package mcpserver

import (
	"context"

	"ludo-arena/internal/validate"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func playerArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("player_id", mcp.Required(), mcp.Description("Player id")),
	}
}

func roomArg() mcp.ToolOption {
	return mcp.WithString("room_code", mcp.Required(), mcp.Description("6 character room code"))
}

func nameArg() mcp.ToolOption {
	return mcp.WithString("player_name", mcp.Required(), mcp.Description("Display name"))
}

func (s *Server) addIntentTool(name validate.Type, description string, opts ...mcp.ToolOption) {
	all := append([]mcp.ToolOption{mcp.WithDescription(description)}, playerArgs()...)
	all = append(all, opts...)
	s.mcpServer.AddTool(mcp.NewTool(string(name), all...), s.intentHandler(name))
}

func (s *Server) registerRoomTools() {
	s.addIntentTool(validate.CreateRoom, "Create a room and become its host.",
		nameArg(),
		mcp.WithNumber("max_players", mcp.Description("2-4, default 4")),
	)
	s.addIntentTool(validate.JoinRoom, "Join a waiting room. The game starts when the room fills.", roomArg(), nameArg())
	s.addIntentTool(validate.LeaveRoom, "Leave a room; leaving a running game forfeits it.", roomArg())
	s.addIntentTool(validate.StartGame, "Host only: start the game with the players present.", roomArg())
	s.addIntentTool(validate.SpectateGame, "Watch a room without playing.", roomArg(), nameArg())
	s.addIntentTool(validate.LeaveSpectator, "Stop watching a room.", roomArg())
}

func (s *Server) registerGameplayTools() {
	s.addIntentTool(validate.RollDice, "Roll the dice on your turn.", roomArg())
	s.addIntentTool(validate.MoveToken, "Move a token by the rolled value. target_position_id must match the server's computed target.",
		roomArg(),
		mcp.WithString("token_id", mcp.Required(), mcp.Description("Token id, e.g. RT1")),
		mcp.WithString("target_position_id", mcp.Required(), mcp.Description("Destination cell, e.g. C07")),
	)
	s.addIntentTool(validate.ReconnectPlayer, "Resume a seat after a disconnect, within the grace period.", roomArg())
}

func (s *Server) registerMatchmakingTools() {
	s.addIntentTool(validate.JoinMatchmaking, "Queue for an automatic match.",
		nameArg(),
		mcp.WithNumber("preferred_players", mcp.Description("2-4, default 4")),
	)
	s.addIntentTool(validate.LeaveMatchmaking, "Leave the matchmaking queue.")
}

func (s *Server) intentHandler(typ validate.Type) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		reply, err := s.gw.Execute(ctx, "", intentFromRequest(typ, request))
		if err != nil {
			return domainError(err), nil
		}
		return toolResult(reply), nil
	}
}

// intentFromRequest copies tool arguments into an intent. Validation is
// left to the gateway so both transports reject the same inputs.
func intentFromRequest(typ validate.Type, request mcp.CallToolRequest) validate.Intent {
	in := validate.Intent{
		Type:             typ,
		PlayerID:         request.GetString("player_id", ""),
		PlayerName:       request.GetString("player_name", ""),
		RoomCode:         request.GetString("room_code", ""),
		TokenID:          request.GetString("token_id", ""),
		TargetPositionID: request.GetString("target_position_id", ""),
	}
	if n := request.GetInt("max_players", 0); n != 0 {
		in.MaxPlayers = &n
	}
	if n := request.GetInt("preferred_players", 0); n != 0 {
		in.PreferredPlayers = &n
	}
	return in
}
