package server

import (
	"context"
	"encoding/json"
	"fmt"

	pbmcp "github.com/minhdtb/pocketbase-cursor-mcp"
	"github.com/minhdtb/pocketbase-cursor-mcp/migrate"
	"github.com/minhdtb/pocketbase-cursor-mcp/profile"
)

// collectionPageSize is the page size used when the tools need the full
// collection listing in one call.
const collectionPageSize = 500

// Tool is one remote-callable operation: metadata for listing plus the
// handler invoked by tools/call.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     func(ctx context.Context, args json.RawMessage) (any, error)
}

func (s *Server) registerTools() {
	s.tools = append(s.coreTools(), s.storeTools()...)

	s.byName = make(map[string]Tool, len(s.tools))
	for _, t := range s.tools {
		s.byName[t.Name] = t
	}
}

// coreTools are the schema engine operations: synthesis, emission,
// profiling and migration.
func (s *Server) coreTools() []Tool {
	return []Tool{
		{
			Name:        "generate_pb_schema",
			Description: "Convert TypeScript interface declarations into collection schemas",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"sourceCode": {"type": "string", "description": "TypeScript source containing interface declarations"},
					"options": {
						"type": "object",
						"properties": {
							"includeAuthentication": {"type": "boolean"},
							"includeTimestamps": {"type": "boolean"}
						}
					}
				},
				"required": ["sourceCode"]
			}`),
			Handler: s.handleGenerateSchema,
		},
		{
			Name:        "generate_typescript_interfaces",
			Description: "Render TypeScript interfaces from live collection schemas",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"collections": {"type": "array", "items": {"type": "string"}, "description": "Collection names to emit; empty emits all"},
					"options": {
						"type": "object",
						"properties": {
							"includeRelations": {"type": "boolean"}
						}
					}
				}
			}`),
			Handler: s.handleGenerateInterfaces,
		},
		{
			Name:        "analyze_collection_data",
			Description: "Profile a sample of a collection's records: fill rates, uniqueness, numeric ranges and insights",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"collection": {"type": "string"},
					"options": {
						"type": "object",
						"properties": {
							"sampleSize": {"type": "integer"},
							"fields": {"type": "array", "items": {"type": "string"}}
						}
					}
				},
				"required": ["collection"]
			}`),
			Handler: s.handleAnalyze,
		},
		{
			Name:        "migrate_collection",
			Description: "Migrate a collection to a new schema via a shadow copy, with optional per-field transform expressions",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"collection": {"type": "string", "description": "Source collection name"},
					"fields": {"type": "array", "items": {"type": "object"}, "description": "Target schema fields"},
					"dataTransforms": {"type": "object", "additionalProperties": {"type": "string"}, "description": "Field name to transform expression; the old value is bound to oldValue"},
					"name": {"type": "string", "description": "Final collection name; empty keeps the source name"},
					"listRule": {"type": "string"},
					"viewRule": {"type": "string"},
					"createRule": {"type": "string"},
					"updateRule": {"type": "string"},
					"deleteRule": {"type": "string"}
				},
				"required": ["collection", "fields"]
			}`),
			Handler: s.handleMigrate,
		},
	}
}

func (s *Server) handleGenerateSchema(_ context.Context, args json.RawMessage) (any, error) {
	var req struct {
		SourceCode string `json:"sourceCode"`
		Options    struct {
			IncludeAuthentication bool `json:"includeAuthentication"`
			IncludeTimestamps     bool `json:"includeTimestamps"`
		} `json:"options"`
	}

	if err := unmarshalArgs(args, &req); err != nil {
		return nil, err
	}

	if req.SourceCode == "" {
		return nil, fmt.Errorf("%w: sourceCode", ErrMissingArgument)
	}

	return pbmcp.Synthesize(req.SourceCode, pbmcp.Options{
		IncludeAuthentication: req.Options.IncludeAuthentication,
		IncludeTimestamps:     req.Options.IncludeTimestamps,
	}), nil
}

func (s *Server) handleGenerateInterfaces(ctx context.Context, args json.RawMessage) (any, error) {
	var req struct {
		Collections []string `json:"collections"`
		Options     struct {
			IncludeRelations bool `json:"includeRelations"`
		} `json:"options"`
	}

	if err := unmarshalArgs(args, &req); err != nil {
		return nil, err
	}

	list, err := s.store.ListCollections(ctx, 1, collectionPageSize)
	if err != nil {
		return nil, err
	}

	selected := list.Items
	if len(req.Collections) > 0 {
		byName := make(map[string]pbmcp.Collection, len(list.Items))
		for _, c := range list.Items {
			byName[c.Name] = c
		}

		selected = make([]pbmcp.Collection, 0, len(req.Collections))

		for _, name := range req.Collections {
			c, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("collection %s not found", name)
			}

			selected = append(selected, c)
		}
	}

	return pbmcp.EmitInterfaces(selected, pbmcp.EmitOptions{
		IncludeRelations: req.Options.IncludeRelations,
		Resolve:          pbmcp.ResolverFromCollections(list.Items),
	}), nil
}

func (s *Server) handleAnalyze(ctx context.Context, args json.RawMessage) (any, error) {
	var req struct {
		Collection string `json:"collection"`
		Options    struct {
			SampleSize int      `json:"sampleSize"`
			Fields     []string `json:"fields"`
		} `json:"options"`
	}

	if err := unmarshalArgs(args, &req); err != nil {
		return nil, err
	}

	if req.Collection == "" {
		return nil, fmt.Errorf("%w: collection", ErrMissingArgument)
	}

	return s.profiler.Analyze(ctx, req.Collection, profile.Options{
		SampleSize: req.Options.SampleSize,
		Fields:     req.Options.Fields,
	})
}

func (s *Server) handleMigrate(ctx context.Context, args json.RawMessage) (any, error) {
	var req struct {
		Collection     string            `json:"collection"`
		Fields         []pbmcp.Field     `json:"fields"`
		DataTransforms map[string]string `json:"dataTransforms"`
		Name           string            `json:"name"`
		ListRule       *string           `json:"listRule"`
		ViewRule       *string           `json:"viewRule"`
		CreateRule     *string           `json:"createRule"`
		UpdateRule     *string           `json:"updateRule"`
		DeleteRule     *string           `json:"deleteRule"`
	}

	if err := unmarshalArgs(args, &req); err != nil {
		return nil, err
	}

	return s.orchestrator.Run(ctx, migrate.Plan{
		Collection: req.Collection,
		Fields:     req.Fields,
		Transforms: req.DataTransforms,
		NewName:    req.Name,
		ListRule:   req.ListRule,
		ViewRule:   req.ViewRule,
		CreateRule: req.CreateRule,
		UpdateRule: req.UpdateRule,
		DeleteRule: req.DeleteRule,
	})
}

// unmarshalArgs decodes tool arguments, treating absent arguments as an
// empty object.
func unmarshalArgs(args json.RawMessage, out any) error {
	if len(args) == 0 {
		return nil
	}

	if err := json.Unmarshal(args, out); err != nil {
		return fmt.Errorf("decoding arguments: %w", err)
	}

	return nil
}
