package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pbmcp "github.com/minhdtb/pocketbase-cursor-mcp"
	"github.com/minhdtb/pocketbase-cursor-mcp/store"
)

// storeTools are thin passthroughs over the store client: argument
// decoding and validation here, everything else there.
func (s *Server) storeTools() []Tool {
	return []Tool{
		{
			Name:        "authenticate",
			Description: "Authenticate as an admin and retain the token for subsequent calls",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"email": {"type": "string"},
					"password": {"type": "string"}
				},
				"required": ["email", "password"]
			}`),
			Handler: s.handleAuthenticate,
		},
		{
			Name:        "list_collections",
			Description: "List collection schemas",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"page": {"type": "integer"},
					"perPage": {"type": "integer"}
				}
			}`),
			Handler: s.handleListCollections,
		},
		{
			Name:        "get_collection",
			Description: "Fetch one collection schema by name or id",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"collection": {"type": "string"}
				},
				"required": ["collection"]
			}`),
			Handler: s.handleGetCollection,
		},
		{
			Name:        "create_collection",
			Description: "Create a collection from a schema definition",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"type": {"type": "string", "enum": ["base", "auth", "view"]},
					"schema": {"type": "array", "items": {"type": "object"}},
					"listRule": {"type": "string"},
					"viewRule": {"type": "string"},
					"createRule": {"type": "string"},
					"updateRule": {"type": "string"},
					"deleteRule": {"type": "string"}
				},
				"required": ["name", "schema"]
			}`),
			Handler: s.handleCreateCollection,
		},
		{
			Name:        "list_records",
			Description: "List records of a collection with optional filter and sort",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"collection": {"type": "string"},
					"page": {"type": "integer"},
					"perPage": {"type": "integer"},
					"filter": {"type": "string"},
					"sort": {"type": "string"}
				},
				"required": ["collection"]
			}`),
			Handler: s.handleListRecords,
		},
		{
			Name:        "get_record",
			Description: "Fetch one record by id",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"collection": {"type": "string"},
					"id": {"type": "string"}
				},
				"required": ["collection", "id"]
			}`),
			Handler: s.handleGetRecord,
		},
		{
			Name:        "create_record",
			Description: "Create a record in a collection",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"collection": {"type": "string"},
					"data": {"type": "object"}
				},
				"required": ["collection", "data"]
			}`),
			Handler: s.handleCreateRecord,
		},
		{
			Name:        "update_record",
			Description: "Apply a partial update to a record",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"collection": {"type": "string"},
					"id": {"type": "string"},
					"data": {"type": "object"}
				},
				"required": ["collection", "id", "data"]
			}`),
			Handler: s.handleUpdateRecord,
		},
		{
			Name:        "delete_record",
			Description: "Delete a record by id",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"collection": {"type": "string"},
					"id": {"type": "string"}
				},
				"required": ["collection", "id"]
			}`),
			Handler: s.handleDeleteRecord,
		},
		{
			Name:        "backup_database",
			Description: "Ask the store to write a backup archive",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"name": {"type": "string", "description": "Archive name; the store generates one when omitted"}
				}
			}`),
			Handler: s.handleBackup,
		},
		{
			Name:        "import_data",
			Description: "Bulk-import collection schemas",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"collections": {"type": "array", "items": {"type": "object"}},
					"deleteMissing": {"type": "boolean"}
				},
				"required": ["collections"]
			}`),
			Handler: s.handleImport,
		},
		{
			Name:        "manage_indexes",
			Description: "List, create or delete a collection's indexes",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"collection": {"type": "string"},
					"action": {"type": "string", "enum": ["list", "create", "delete"]},
					"index": {"type": "string", "description": "Index DDL, required for create"},
					"name": {"type": "string", "description": "Index name, required for delete"}
				},
				"required": ["collection", "action"]
			}`),
			Handler: s.handleManageIndexes,
		},
	}
}

func (s *Server) handleAuthenticate(ctx context.Context, args json.RawMessage) (any, error) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := unmarshalArgs(args, &req); err != nil {
		return nil, err
	}

	if req.Email == "" {
		return nil, fmt.Errorf("%w: email", ErrMissingArgument)
	}

	if req.Password == "" {
		return nil, fmt.Errorf("%w: password", ErrMissingArgument)
	}

	token, err := s.store.AuthWithPassword(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	return map[string]any{"token": token}, nil
}

func (s *Server) handleListCollections(ctx context.Context, args json.RawMessage) (any, error) {
	var req struct {
		Page    int `json:"page"`
		PerPage int `json:"perPage"`
	}

	if err := unmarshalArgs(args, &req); err != nil {
		return nil, err
	}

	if req.Page <= 0 {
		req.Page = 1
	}

	if req.PerPage <= 0 {
		req.PerPage = collectionPageSize
	}

	return s.store.ListCollections(ctx, req.Page, req.PerPage)
}

func (s *Server) handleGetCollection(ctx context.Context, args json.RawMessage) (any, error) {
	var req struct {
		Collection string `json:"collection"`
	}

	if err := unmarshalArgs(args, &req); err != nil {
		return nil, err
	}

	if req.Collection == "" {
		return nil, fmt.Errorf("%w: collection", ErrMissingArgument)
	}

	return s.store.GetCollection(ctx, req.Collection)
}

func (s *Server) handleCreateCollection(ctx context.Context, args json.RawMessage) (any, error) {
	var collection pbmcp.Collection

	if err := unmarshalArgs(args, &collection); err != nil {
		return nil, err
	}

	if collection.Name == "" {
		return nil, fmt.Errorf("%w: name", ErrMissingArgument)
	}

	if collection.Type == "" {
		collection.Type = pbmcp.CollectionBase
	}

	return s.store.CreateCollection(ctx, collection)
}

func (s *Server) handleListRecords(ctx context.Context, args json.RawMessage) (any, error) {
	var req struct {
		Collection string `json:"collection"`
		Page       int    `json:"page"`
		PerPage    int    `json:"perPage"`
		Filter     string `json:"filter"`
		Sort       string `json:"sort"`
	}

	if err := unmarshalArgs(args, &req); err != nil {
		return nil, err
	}

	if req.Collection == "" {
		return nil, fmt.Errorf("%w: collection", ErrMissingArgument)
	}

	return s.store.ListRecords(ctx, req.Collection, store.ListOptions{
		Page:    req.Page,
		PerPage: req.PerPage,
		Filter:  req.Filter,
		Sort:    req.Sort,
	})
}

func (s *Server) handleGetRecord(ctx context.Context, args json.RawMessage) (any, error) {
	req, err := recordRef(args)
	if err != nil {
		return nil, err
	}

	return s.store.GetRecord(ctx, req.Collection, req.ID)
}

func (s *Server) handleCreateRecord(ctx context.Context, args json.RawMessage) (any, error) {
	var req struct {
		Collection string         `json:"collection"`
		Data       map[string]any `json:"data"`
	}

	if err := unmarshalArgs(args, &req); err != nil {
		return nil, err
	}

	if req.Collection == "" {
		return nil, fmt.Errorf("%w: collection", ErrMissingArgument)
	}

	return s.store.CreateRecord(ctx, req.Collection, req.Data)
}

func (s *Server) handleUpdateRecord(ctx context.Context, args json.RawMessage) (any, error) {
	var req struct {
		Collection string         `json:"collection"`
		ID         string         `json:"id"`
		Data       map[string]any `json:"data"`
	}

	if err := unmarshalArgs(args, &req); err != nil {
		return nil, err
	}

	if req.Collection == "" {
		return nil, fmt.Errorf("%w: collection", ErrMissingArgument)
	}

	if req.ID == "" {
		return nil, fmt.Errorf("%w: id", ErrMissingArgument)
	}

	return s.store.UpdateRecord(ctx, req.Collection, req.ID, req.Data)
}

func (s *Server) handleDeleteRecord(ctx context.Context, args json.RawMessage) (any, error) {
	req, err := recordRef(args)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteRecord(ctx, req.Collection, req.ID); err != nil {
		return nil, err
	}

	return map[string]any{"deleted": req.ID}, nil
}

func (s *Server) handleBackup(ctx context.Context, args json.RawMessage) (any, error) {
	var req struct {
		Name string `json:"name"`
	}

	if err := unmarshalArgs(args, &req); err != nil {
		return nil, err
	}

	if err := s.store.CreateBackup(ctx, req.Name); err != nil {
		return nil, err
	}

	return map[string]any{"status": "backup created"}, nil
}

func (s *Server) handleImport(ctx context.Context, args json.RawMessage) (any, error) {
	var req struct {
		Collections   []pbmcp.Collection `json:"collections"`
		DeleteMissing bool               `json:"deleteMissing"`
	}

	if err := unmarshalArgs(args, &req); err != nil {
		return nil, err
	}

	if len(req.Collections) == 0 {
		return nil, fmt.Errorf("%w: collections", ErrMissingArgument)
	}

	if err := s.store.ImportCollections(ctx, req.Collections, req.DeleteMissing); err != nil {
		return nil, err
	}

	return map[string]any{"imported": len(req.Collections)}, nil
}

func (s *Server) handleManageIndexes(ctx context.Context, args json.RawMessage) (any, error) {
	var req struct {
		Collection string `json:"collection"`
		Action     string `json:"action"`
		Index      string `json:"index"`
		Name       string `json:"name"`
	}

	if err := unmarshalArgs(args, &req); err != nil {
		return nil, err
	}

	if req.Collection == "" {
		return nil, fmt.Errorf("%w: collection", ErrMissingArgument)
	}

	col, err := s.store.GetCollection(ctx, req.Collection)
	if err != nil {
		return nil, err
	}

	switch req.Action {
	case "list":
		return map[string]any{"indexes": col.Indexes}, nil
	case "create":
		if req.Index == "" {
			return nil, fmt.Errorf("%w: index", ErrMissingArgument)
		}

		return s.store.UpdateCollection(ctx, col.ID, map[string]any{
			"indexes": append(col.Indexes, req.Index),
		})
	case "delete":
		if req.Name == "" {
			return nil, fmt.Errorf("%w: name", ErrMissingArgument)
		}

		kept := make([]string, 0, len(col.Indexes))

		for _, ddl := range col.Indexes {
			if indexName(ddl) != req.Name {
				kept = append(kept, ddl)
			}
		}

		if len(kept) == len(col.Indexes) {
			return nil, fmt.Errorf("index %s not found on %s", req.Name, req.Collection)
		}

		return s.store.UpdateCollection(ctx, col.ID, map[string]any{"indexes": kept})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, req.Action)
	}
}

// indexName extracts the index name from a CREATE INDEX statement. The
// store keeps indexes as DDL strings, so deletion matches on the parsed
// name.
func indexName(ddl string) string {
	fields := strings.Fields(ddl)

	for i, f := range fields {
		if strings.EqualFold(f, "INDEX") && i+1 < len(fields) {
			name := fields[i+1]

			return strings.Trim(name, "`\"")
		}
	}

	return ""
}

// recordArgs is the collection/id pair shared by the single-record tools.
type recordArgs struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

func recordRef(args json.RawMessage) (recordArgs, error) {
	var req recordArgs

	if err := unmarshalArgs(args, &req); err != nil {
		return recordArgs{}, err
	}

	if req.Collection == "" {
		return recordArgs{}, fmt.Errorf("%w: collection", ErrMissingArgument)
	}

	if req.ID == "" {
		return recordArgs{}, fmt.Errorf("%w: id", ErrMissingArgument)
	}

	return req, nil
}
