package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nerrad567/minergate/internal/fleet"
	"github.com/nerrad567/minergate/internal/miner"
	"github.com/nerrad567/minergate/internal/targets"
	"github.com/nerrad567/minergate/internal/telemetry"
)

// Source tags light commands issued through this server.
const Source = "mcp"

// FleetService is the subset of *fleet.Service the tools call.
type FleetService interface {
	Query(ctx context.Context, spec targets.Spec, selector []string) (*fleet.QueryResult, error)
	Telemetry(ctx context.Context, host string) (*telemetry.Record, error)
	SetLight(ctx context.Context, host string, mode miner.LightMode, source string) (bool, error)
}

// Logger is the logging surface the server needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Server registers the gateway tools on an MCP server.
type Server struct {
	fleet  FleetService
	logger Logger
	mcp    *server.MCPServer
}

// New creates a server named minergate at version.
func New(svc FleetService, version string, logger Logger) *Server {
	s := &Server{
		fleet:  svc,
		logger: logger,
		mcp:    server.NewMCPServer("minergate", version, server.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves the tools on stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	s.logger.Info("MCP server started on stdio")
	defer s.logger.Info("MCP server stopped")
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	selectors := mcp.WithArray("data_selectors",
		mcp.Description("Telemetry field names to return, in order. Omit for every field."),
		mcp.Items(map[string]any{"type": "string"}),
	)

	s.mcp.AddTool(mcp.NewTool("get_miner_data",
		mcp.WithDescription("Read the telemetry of one mining device"),
		mcp.WithString("host", mcp.Required(), mcp.Description("Device address, e.g. 10.0.0.12")),
		selectors,
	), s.getMinerData)

	s.mcp.AddTool(mcp.NewTool("query_fleet",
		mcp.WithDescription("Scan a set of addresses and return the telemetry of every device that responds"),
		mcp.WithString("targets", mcp.Required(),
			mcp.Description("Comma-separated addresses, ranges (10.0.0.1-20) and CIDR blocks")),
		selectors,
		mcp.WithBoolean("include_errors", mcp.Description("Also report why each silent host was left out")),
	), s.queryFleet)

	s.mcp.AddTool(mcp.NewTool("set_miner_light",
		mcp.WithDescription("Turn a device's fault light on or off, toggle it, or read its state"),
		mcp.WithString("host", mcp.Required(), mcp.Description("Device address")),
		mcp.WithString("mode", mcp.Required(), mcp.Enum("on", "off", "toggle", "status")),
	), s.setMinerLight)
}

func (s *Server) getMinerData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	host, err := req.RequireString("host")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	selector := req.GetStringSlice("data_selectors", nil)

	// Reject unknown names before touching the device.
	if _, err := telemetry.ValidateSelector(selector); err != nil {
		return toolError(host, err), nil
	}

	rec, err := s.fleet.Telemetry(ctx, host)
	if err != nil {
		return toolError(host, err), nil
	}
	if len(selector) == 0 {
		return jsonResult(rec)
	}
	proj, err := telemetry.Project(rec, selector)
	if err != nil {
		return toolError(host, err), nil
	}
	return jsonResult(proj)
}

type queryResult struct {
	Data   map[string]telemetry.Projection `json:"data"`
	Errors map[string]string               `json:"errors,omitempty"`
}

func (s *Server) queryFleet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("targets")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.fleet.Query(ctx, targets.Spec{raw}, req.GetStringSlice("data_selectors", nil))
	if err != nil {
		return toolError("", err), nil
	}

	out := queryResult{Data: res.Data}
	if req.GetBool("include_errors", false) && len(res.Errors) > 0 {
		out.Errors = make(map[string]string, len(res.Errors))
		for host, herr := range res.Errors {
			out.Errors[host] = fleet.Reason(herr)
		}
	}
	return jsonResult(out)
}

func (s *Server) setMinerLight(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	host, err := req.RequireString("host")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	modeName, err := req.RequireString("mode")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode, err := miner.ParseLightMode(modeName)
	if err != nil {
		return mcp.NewToolResultError("invalid light mode, expected one of: on, off, toggle, status"), nil
	}

	state, err := s.fleet.SetLight(ctx, host, mode, Source)
	if err != nil {
		s.logger.Warn("light command failed", "host", host, "mode", modeName, "error", err)
		return toolError(host, err), nil
	}
	return jsonResult(map[string]bool{"light_status": state})
}

// toolError turns a gateway error into a message the model can act on.
func toolError(host string, err error) *mcp.CallToolResult {
	var unknown *telemetry.UnknownFieldError
	var msg string
	switch {
	case errors.As(err, &unknown):
		msg = "Bad data point: " + unknown.Name
	case errors.Is(err, targets.ErrMalformedTarget) && host != "":
		msg = "Invalid host: " + host
	case errors.Is(err, targets.ErrMalformedTarget):
		msg = "Bad constructor string"
	case errors.Is(err, fleet.ErrUnreachable):
		msg = "No miner found at " + host
	case errors.Is(err, miner.ErrActivationFailed):
		msg = "Failed to turn on fault light"
	case errors.Is(err, miner.ErrDeactivationFailed):
		msg = "Failed to turn off fault light"
	case errors.Is(err, miner.ErrLightQuery):
		msg = "Failed to read fault light state"
	case errors.Is(err, fleet.ErrQueryFailed):
		msg = "Failed to query miner at " + host
	case errors.Is(err, fleet.ErrCancelled):
		msg = "Request cancelled"
	default:
		msg = err.Error()
	}
	return mcp.NewToolResultError(msg)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding tool result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
