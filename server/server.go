// Package server exposes the tool surface over JSON-RPC 2.0 on a byte
// stream, speaking the Model Context Protocol method set: initialize,
// tools/list and tools/call.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/oklog/ulid/v2"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/zap"

	pbmcp "github.com/minhdtb/pocketbase-cursor-mcp"
	"github.com/minhdtb/pocketbase-cursor-mcp/migrate"
	"github.com/minhdtb/pocketbase-cursor-mcp/profile"
	"github.com/minhdtb/pocketbase-cursor-mcp/store"
)

// Server identity reported to clients.
const (
	serverName      = "pocketbase-cursor-mcp"
	serverVersion   = "1.1.0"
	protocolVersion = "2024-11-05"
)

// Store is the full store client capability surface the tools consume.
type Store interface {
	AuthWithPassword(ctx context.Context, email, password string) (string, error)
	ListCollections(ctx context.Context, page, perPage int) (*store.CollectionList, error)
	GetCollection(ctx context.Context, nameOrID string) (*pbmcp.Collection, error)
	CreateCollection(ctx context.Context, collection pbmcp.Collection) (*pbmcp.Collection, error)
	UpdateCollection(ctx context.Context, id string, patch map[string]any) (*pbmcp.Collection, error)
	DeleteCollection(ctx context.Context, nameOrID string) error
	ListRecords(ctx context.Context, collection string, opts store.ListOptions) (*store.RecordList, error)
	FullRecordList(ctx context.Context, collection string) ([]store.Record, error)
	GetRecord(ctx context.Context, collection, id string) (store.Record, error)
	CreateRecord(ctx context.Context, collection string, data map[string]any) (store.Record, error)
	UpdateRecord(ctx context.Context, collection, id string, data map[string]any) (store.Record, error)
	DeleteRecord(ctx context.Context, collection, id string) error
	CreateBackup(ctx context.Context, name string) error
	ImportCollections(ctx context.Context, collections []pbmcp.Collection, deleteMissing bool) error
}

// Server dispatches tool calls to their handlers. One call is handled to
// completion before the next; there are no overlapping in-flight
// migrations.
type Server struct {
	store  Store
	logger *zap.Logger

	profiler     *profile.Profiler
	orchestrator *migrate.Orchestrator

	tools  []Tool
	byName map[string]Tool
}

// New creates a Server over the given store client.
func New(st Store, logger *zap.Logger) *Server {
	s := &Server{
		store:  st,
		logger: logger,
	}

	s.profiler = profile.New(st, profile.WithLogger(logger))
	s.orchestrator = migrate.New(st,
		migrate.WithLogger(logger),
		migrate.WithHandler(migrationLogger(logger)),
	)

	s.registerTools()

	return s
}

// Serve runs the server over in/out until the connection closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stream := jsonrpc2.NewStream(&readWriteCloser{in, out})
	conn := jsonrpc2.NewConn(stream)

	conn.Go(ctx, s.Handle)

	<-conn.Done()

	return conn.Err()
}

// Handle dispatches one JSON-RPC request.
func (s *Server) Handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	switch req.Method() {
	case "initialize":
		return reply(ctx, initializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    capabilities{Tools: &toolsCapability{}},
			ServerInfo:      serverInfo{Name: serverName, Version: serverVersion},
		}, nil)
	case "notifications/initialized":
		return reply(ctx, nil, nil)
	case "ping":
		return reply(ctx, struct{}{}, nil)
	case "tools/list":
		return reply(ctx, toolsListResult{Tools: s.toolInfos()}, nil)
	case "tools/call":
		return s.handleCall(ctx, reply, req)
	default:
		return reply(ctx, nil, jsonrpc2.ErrMethodNotFound)
	}
}

func (s *Server) handleCall(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}

	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, fmt.Errorf("%w: %v", jsonrpc2.ErrInvalidParams, err))
	}

	tool, ok := s.byName[params.Name]
	if !ok {
		return reply(ctx, nil, fmt.Errorf("%w: %s", ErrUnknownTool, params.Name))
	}

	logger := s.logger.With(
		zap.String("call_id", ulid.Make().String()),
		zap.String("tool", params.Name),
	)
	logger.Info("tool call")

	out, err := tool.Handler(ctx, params.Arguments)
	if err != nil {
		logger.Warn("tool call failed", zap.Error(err))

		return reply(ctx, errorResult(err), nil)
	}

	payload, err := renderPayload(out)
	if err != nil {
		logger.Error("encoding tool result", zap.Error(err))

		return reply(ctx, errorResult(err), nil)
	}

	return reply(ctx, textResult(payload), nil)
}

func (s *Server) toolInfos() []toolInfo {
	infos := make([]toolInfo, len(s.tools))
	for i, t := range s.tools {
		infos[i] = toolInfo{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		}
	}

	return infos
}

// renderPayload encodes a tool result as text: strings pass through,
// everything else is JSON-encoded.
func renderPayload(out any) (string, error) {
	if text, ok := out.(string); ok {
		return text, nil
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// migrationLogger maps migration events onto the structured log.
func migrationLogger(logger *zap.Logger) migrate.Handler {
	return migrate.HandlerFunc(func(e migrate.Event) {
		fields := []zap.Field{
			zap.String("step", string(e.Step)),
			zap.String("collection", e.Collection),
			zap.String("shadow", e.Shadow),
		}

		if e.Err != nil {
			if e.Field != "" {
				fields = append(fields, zap.String("field", e.Field))
			}

			logger.Warn("migration event", append(fields, zap.Error(e.Err))...)

			return
		}

		if e.Step == migrate.StepRecordsCopied {
			fields = append(fields, zap.Int("copied", e.Copied))
		}

		logger.Info("migration event", fields...)
	})
}

// readWriteCloser wraps separate reader/writer into io.ReadWriteCloser.
type readWriteCloser struct {
	io.Reader
	io.Writer
}

func (rwc *readWriteCloser) Close() error {
	if c, ok := rwc.Writer.(io.Closer); ok {
		return c.Close()
	}

	return nil
}
