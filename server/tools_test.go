package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pbmcp "github.com/minhdtb/pocketbase-cursor-mcp"
	"github.com/minhdtb/pocketbase-cursor-mcp/store"
)

func fixtureCollections() []pbmcp.Collection {
	return []pbmcp.Collection{
		{
			ID:   "col_users",
			Name: "users",
			Type: pbmcp.CollectionBase,
			Schema: []pbmcp.Field{
				{Name: "name", Type: pbmcp.FieldTypeText, Required: true},
			},
		},
		{
			ID:   "col_posts",
			Name: "posts",
			Type: pbmcp.CollectionBase,
			Schema: []pbmcp.Field{
				{Name: "title", Type: pbmcp.FieldTypeText, Required: true},
				{Name: "author", Type: pbmcp.FieldTypeRelation, Options: map[string]any{"collectionId": "col_users"}},
			},
			Indexes: []string{"CREATE INDEX `idx_title` ON `posts` (`title`)"},
		},
	}
}

func TestGenerateSchemaTool(t *testing.T) {
	t.Parallel()

	s := New(newFakeStore(), zap.NewNop())

	result := callTool(t, s, "generate_pb_schema", map[string]any{
		"sourceCode": "export interface Product { name: string; price?: number; }",
		"options":    map[string]any{"includeTimestamps": true},
	})
	require.False(t, result.IsError, text(t, result))

	var collections []pbmcp.Collection

	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &collections))
	require.Len(t, collections, 1)
	assert.Equal(t, "product", collections[0].Name)
	require.Len(t, collections[0].Schema, 4)
	assert.Equal(t, pbmcp.FieldTypeText, collections[0].Schema[0].Type)
	assert.Equal(t, pbmcp.FieldTypeNumber, collections[0].Schema[1].Type)
	assert.Equal(t, "created", collections[0].Schema[2].Name)
}

func TestGenerateSchemaToolRequiresSource(t *testing.T) {
	t.Parallel()

	s := New(newFakeStore(), zap.NewNop())

	result := callTool(t, s, "generate_pb_schema", map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "sourceCode")
}

func TestGenerateInterfacesTool(t *testing.T) {
	t.Parallel()

	s := New(newFakeStore(fixtureCollections()...), zap.NewNop())

	result := callTool(t, s, "generate_typescript_interfaces", map[string]any{
		"options": map[string]any{"includeRelations": true},
	})
	require.False(t, result.IsError, text(t, result))

	out := text(t, result)
	assert.Contains(t, out, "export interface Users {")
	assert.Contains(t, out, "export interface Posts {")
	assert.Contains(t, out, "author?: string | Users;")
}

func TestGenerateInterfacesToolSelection(t *testing.T) {
	t.Parallel()

	s := New(newFakeStore(fixtureCollections()...), zap.NewNop())

	result := callTool(t, s, "generate_typescript_interfaces", map[string]any{
		"collections": []string{"users"},
	})
	require.False(t, result.IsError, text(t, result))

	out := text(t, result)
	assert.Contains(t, out, "export interface Users {")
	assert.NotContains(t, out, "export interface Posts {")
}

func TestGenerateInterfacesToolUnknownCollection(t *testing.T) {
	t.Parallel()

	s := New(newFakeStore(fixtureCollections()...), zap.NewNop())

	result := callTool(t, s, "generate_typescript_interfaces", map[string]any{
		"collections": []string{"ghosts"},
	})
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "ghosts")
}

func TestAnalyzeTool(t *testing.T) {
	t.Parallel()

	st := newFakeStore(fixtureCollections()...)
	st.records["posts"] = []store.Record{
		{"id": "r1", "title": "a"},
		{"id": "r2", "title": "b"},
		{"id": "r3", "title": "c"},
		{"id": "r4"},
	}

	s := New(st, zap.NewNop())

	result := callTool(t, s, "analyze_collection_data", map[string]any{
		"collection": "posts",
	})
	require.False(t, result.IsError, text(t, result))

	var report struct {
		SampleCount int `json:"sampleCount"`
		Fields      []struct {
			Name     string `json:"name"`
			FillRate string `json:"fillRate"`
		} `json:"fields"`
	}

	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &report))
	assert.Equal(t, 4, report.SampleCount)
	require.NotEmpty(t, report.Fields)
	assert.Equal(t, "title", report.Fields[0].Name)
	assert.Equal(t, "75.00%", report.Fields[0].FillRate)
}

func TestAnalyzeToolRequiresCollection(t *testing.T) {
	t.Parallel()

	s := New(newFakeStore(), zap.NewNop())

	result := callTool(t, s, "analyze_collection_data", map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "collection")
}

func TestMigrateTool(t *testing.T) {
	t.Parallel()

	st := newFakeStore(fixtureCollections()...)
	st.records["posts"] = []store.Record{
		{"id": "r1", "title": "hello"},
	}

	s := New(st, zap.NewNop())

	result := callTool(t, s, "migrate_collection", map[string]any{
		"collection": "posts",
		"fields": []map[string]any{
			{"name": "title", "type": "text", "required": true},
		},
		"dataTransforms": map[string]string{"title": "upper(oldValue)"},
	})
	require.False(t, result.IsError, text(t, result))

	var final pbmcp.Collection

	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &final))
	assert.Equal(t, "posts", final.Name)

	// The shadow was renamed back to the source name.
	require.Len(t, st.updates, 1)
	assert.Equal(t, map[string]any{"name": "posts"}, st.updates[0].patch)
}

func TestAuthenticateTool(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	s := New(st, zap.NewNop())

	result := callTool(t, s, "authenticate", map[string]any{
		"email":    "admin@example.com",
		"password": "hunter2",
	})
	require.False(t, result.IsError, text(t, result))
	assert.Contains(t, text(t, result), "tok123")
	assert.Equal(t, "admin@example.com", st.authEmail)
}

func TestRecordTools(t *testing.T) {
	t.Parallel()

	st := newFakeStore(fixtureCollections()...)
	s := New(st, zap.NewNop())

	created := callTool(t, s, "create_record", map[string]any{
		"collection": "posts",
		"data":       map[string]any{"id": "r1", "title": "hello"},
	})
	require.False(t, created.IsError, text(t, created))

	got := callTool(t, s, "get_record", map[string]any{
		"collection": "posts",
		"id":         "r1",
	})
	require.False(t, got.IsError, text(t, got))
	assert.Contains(t, text(t, got), "hello")

	updated := callTool(t, s, "update_record", map[string]any{
		"collection": "posts",
		"id":         "r1",
		"data":       map[string]any{"title": "bye"},
	})
	require.False(t, updated.IsError, text(t, updated))
	assert.Contains(t, text(t, updated), "bye")

	deleted := callTool(t, s, "delete_record", map[string]any{
		"collection": "posts",
		"id":         "r1",
	})
	require.False(t, deleted.IsError, text(t, deleted))
	assert.Empty(t, st.records["posts"])
}

func TestRecordToolsValidation(t *testing.T) {
	t.Parallel()

	s := New(newFakeStore(), zap.NewNop())

	result := callTool(t, s, "get_record", map[string]any{"collection": "posts"})
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "id")

	result = callTool(t, s, "delete_record", map[string]any{"id": "r1"})
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "collection")
}

func TestManageIndexesList(t *testing.T) {
	t.Parallel()

	s := New(newFakeStore(fixtureCollections()...), zap.NewNop())

	result := callTool(t, s, "manage_indexes", map[string]any{
		"collection": "posts",
		"action":     "list",
	})
	require.False(t, result.IsError, text(t, result))
	assert.Contains(t, text(t, result), "idx_title")
}

func TestManageIndexesCreate(t *testing.T) {
	t.Parallel()

	st := newFakeStore(fixtureCollections()...)
	s := New(st, zap.NewNop())

	ddl := "CREATE UNIQUE INDEX `idx_slug` ON `posts` (`slug`)"

	result := callTool(t, s, "manage_indexes", map[string]any{
		"collection": "posts",
		"action":     "create",
		"index":      ddl,
	})
	require.False(t, result.IsError, text(t, result))

	require.Len(t, st.updates, 1)
	assert.Equal(t, "col_posts", st.updates[0].id)
	assert.Equal(t, map[string]any{
		"indexes": []string{"CREATE INDEX `idx_title` ON `posts` (`title`)", ddl},
	}, st.updates[0].patch)
}

func TestManageIndexesDelete(t *testing.T) {
	t.Parallel()

	st := newFakeStore(fixtureCollections()...)
	s := New(st, zap.NewNop())

	result := callTool(t, s, "manage_indexes", map[string]any{
		"collection": "posts",
		"action":     "delete",
		"name":       "idx_title",
	})
	require.False(t, result.IsError, text(t, result))

	require.Len(t, st.updates, 1)
	assert.Equal(t, map[string]any{"indexes": []string{}}, st.updates[0].patch)
}

// Deleting without naming the index is a validation error, not a no-op.
func TestManageIndexesDeleteRequiresName(t *testing.T) {
	t.Parallel()

	st := newFakeStore(fixtureCollections()...)
	s := New(st, zap.NewNop())

	result := callTool(t, s, "manage_indexes", map[string]any{
		"collection": "posts",
		"action":     "delete",
	})
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "name")
	assert.Empty(t, st.updates)
}

func TestManageIndexesUnknownAction(t *testing.T) {
	t.Parallel()

	s := New(newFakeStore(fixtureCollections()...), zap.NewNop())

	result := callTool(t, s, "manage_indexes", map[string]any{
		"collection": "posts",
		"action":     "rebuild",
	})
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "rebuild")
}
