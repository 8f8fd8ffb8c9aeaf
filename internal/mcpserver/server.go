// Package mcpserver exposes the game intents as MCP tools so agents can
// play without holding a websocket. Tool calls go through the same gateway
// path as socket frames.
package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"ludo-arena/internal/game/viewmodel"
	"ludo-arena/internal/gateway"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const stateURIPrefix = "room://"

type Server struct {
	gw *gateway.Gateway

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

func New(gw *gateway.Gateway) *Server {
	mcpSrv := server.NewMCPServer(
		"ludo-arena",
		"0.1.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithResourceRecovery(),
	)
	s := &Server{
		gw:         gw,
		mcpServer:  mcpSrv,
		httpServer: server.NewStreamableHTTPServer(mcpSrv, server.WithStateLess(true), server.WithDisableStreaming(true)),
	}
	s.registerRoomTools()
	s.registerGameplayTools()
	s.registerMatchmakingTools()
	s.registerReadTools()
	s.registerResources()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer
}

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			stateURIPrefix+"{room_code}/state",
			"room_public_state",
			mcp.WithTemplateDescription("Public game state by room code"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			raw := string(request.Params.URI)
			if !strings.HasPrefix(raw, stateURIPrefix) || !strings.HasSuffix(raw, "/state") {
				return nil, nil
			}
			code := strings.ToUpper(strings.TrimSuffix(strings.TrimPrefix(raw, stateURIPrefix), "/state"))
			if code == "" {
				return nil, nil
			}
			st, err := s.gw.State(ctx, code)
			if err != nil {
				return nil, err
			}
			payload, err := json.Marshal(viewmodel.BuildPublicState(st))
			if err != nil {
				return nil, err
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      raw,
					MIMEType: "application/json",
					Text:     string(payload),
				},
			}, nil
		},
	)
}
