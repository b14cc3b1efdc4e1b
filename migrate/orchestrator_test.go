package migrate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pbmcp "github.com/minhdtb/pocketbase-cursor-mcp"
	"github.com/minhdtb/pocketbase-cursor-mcp/migrate"
	"github.com/minhdtb/pocketbase-cursor-mcp/store"
)

// fakeStore records every call the orchestrator makes.
type fakeStore struct {
	records []store.Record

	createdCollections []pbmcp.Collection
	createdRecords     map[string][]map[string]any
	deleted            []string
	renames            []rename

	failCreateCollection error
	failList             error
	failCreateRecord     error
	failDelete           error
	failRename           error
}

type rename struct {
	id    string
	patch map[string]any
}

func newFakeStore(records ...store.Record) *fakeStore {
	return &fakeStore{
		records:        records,
		createdRecords: make(map[string][]map[string]any),
	}
}

func (f *fakeStore) CreateCollection(_ context.Context, c pbmcp.Collection) (*pbmcp.Collection, error) {
	if f.failCreateCollection != nil {
		return nil, f.failCreateCollection
	}

	f.createdCollections = append(f.createdCollections, c)
	c.ID = "shadow1"

	return &c, nil
}

func (f *fakeStore) UpdateCollection(_ context.Context, id string, patch map[string]any) (*pbmcp.Collection, error) {
	if f.failRename != nil {
		return nil, f.failRename
	}

	f.renames = append(f.renames, rename{id: id, patch: patch})

	name, _ := patch["name"].(string)

	return &pbmcp.Collection{ID: id, Name: name}, nil
}

func (f *fakeStore) DeleteCollection(_ context.Context, nameOrID string) error {
	if f.failDelete != nil {
		return f.failDelete
	}

	f.deleted = append(f.deleted, nameOrID)

	return nil
}

func (f *fakeStore) FullRecordList(_ context.Context, _ string) ([]store.Record, error) {
	if f.failList != nil {
		return nil, f.failList
	}

	return f.records, nil
}

func (f *fakeStore) CreateRecord(_ context.Context, collection string, data map[string]any) (store.Record, error) {
	if f.failCreateRecord != nil {
		return nil, f.failCreateRecord
	}

	f.createdRecords[collection] = append(f.createdRecords[collection], data)

	return store.Record(data), nil
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.UnixMilli(1700000000000) }
}

func targetFields() []pbmcp.Field {
	return []pbmcp.Field{
		{Name: "title", Type: pbmcp.FieldTypeText, Required: true},
		{Name: "price", Type: pbmcp.FieldTypeNumber},
	}
}

func TestRunHappyPath(t *testing.T) {
	t.Parallel()

	st := newFakeStore(
		store.Record{"id": "r1", "title": "a", "price": 1.0, "collectionId": "src1", "collectionName": "posts"},
		store.Record{"id": "r2", "title": "b", "price": 2.0},
	)

	o := migrate.New(st, migrate.WithClock(fixedClock()))

	final, err := o.Run(context.Background(), migrate.Plan{
		Collection: "posts",
		Fields:     targetFields(),
	})
	require.NoError(t, err)

	// Shadow name derives from source name plus timestamp.
	require.Len(t, st.createdCollections, 1)
	shadow := st.createdCollections[0]
	assert.Equal(t, "posts_migration_1700000000000", shadow.Name)
	assert.Equal(t, pbmcp.CollectionBase, shadow.Type)
	assert.Equal(t, targetFields(), shadow.Schema)

	// Every record is copied, in source order, without membership metadata.
	copied := st.createdRecords[shadow.Name]
	require.Len(t, copied, 2)
	assert.Equal(t, "r1", copied[0]["id"])
	assert.Equal(t, "r2", copied[1]["id"])
	assert.NotContains(t, copied[0], "collectionId")
	assert.NotContains(t, copied[0], "collectionName")

	// Original deleted, then shadow renamed back to the source name.
	assert.Equal(t, []string{"posts"}, st.deleted)
	require.Len(t, st.renames, 1)
	assert.Equal(t, "shadow1", st.renames[0].id)
	assert.Equal(t, map[string]any{"name": "posts"}, st.renames[0].patch)

	assert.Equal(t, "posts", final.Name)
}

func TestRunRenameOverride(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	o := migrate.New(st, migrate.WithClock(fixedClock()))

	final, err := o.Run(context.Background(), migrate.Plan{
		Collection: "posts",
		Fields:     targetFields(),
		NewName:    "articles",
	})
	require.NoError(t, err)
	assert.Equal(t, "articles", final.Name)
	require.Len(t, st.renames, 1)
	assert.Equal(t, map[string]any{"name": "articles"}, st.renames[0].patch)
}

func TestRunTransforms(t *testing.T) {
	t.Parallel()

	st := newFakeStore(store.Record{"id": "r1", "title": "hello", "price": 10.0})
	o := migrate.New(st, migrate.WithClock(fixedClock()))

	_, err := o.Run(context.Background(), migrate.Plan{
		Collection: "posts",
		Fields:     targetFields(),
		Transforms: map[string]string{
			"price": "oldValue * 2",
			"title": `upper(oldValue)`,
		},
	})
	require.NoError(t, err)

	copied := st.createdRecords["posts_migration_1700000000000"]
	require.Len(t, copied, 1)
	assert.Equal(t, 20.0, copied[0]["price"])
	assert.Equal(t, "HELLO", copied[0]["title"])
}

// A failing transform keeps that field's old value but never discards
// another field's transform on the same record.
func TestRunTransformIsolation(t *testing.T) {
	t.Parallel()

	st := newFakeStore(store.Record{"id": "r1", "title": "hello", "price": 10.0})

	var transformErrors int

	o := migrate.New(st,
		migrate.WithClock(fixedClock()),
		migrate.WithHandler(migrate.HandlerFunc(func(e migrate.Event) {
			if e.Err != nil && e.Field == "price" {
				transformErrors++
			}
		})),
	)

	_, err := o.Run(context.Background(), migrate.Plan{
		Collection: "posts",
		Fields:     targetFields(),
		Transforms: map[string]string{
			// len of a number fails at runtime.
			"price": "len(oldValue)",
			"title": "upper(oldValue)",
		},
	})
	require.NoError(t, err)

	copied := st.createdRecords["posts_migration_1700000000000"]
	require.Len(t, copied, 1)
	assert.Equal(t, 10.0, copied[0]["price"], "failed transform keeps pre-transform value")
	assert.Equal(t, "HELLO", copied[0]["title"], "other transforms still apply")
	assert.Equal(t, 1, transformErrors)
}

func TestRunBadTransformExpression(t *testing.T) {
	t.Parallel()

	st := newFakeStore(store.Record{"id": "r1", "price": 10.0})
	o := migrate.New(st, migrate.WithClock(fixedClock()))

	// A transform that does not even compile disables itself only.
	_, err := o.Run(context.Background(), migrate.Plan{
		Collection: "posts",
		Fields:     targetFields(),
		Transforms: map[string]string{"price": "oldValue +* 2"},
	})
	require.NoError(t, err)

	copied := st.createdRecords["posts_migration_1700000000000"]
	require.Len(t, copied, 1)
	assert.Equal(t, 10.0, copied[0]["price"])
}

func TestRunShadowCreateFailure(t *testing.T) {
	t.Parallel()

	st := newFakeStore(store.Record{"id": "r1"})
	st.failCreateCollection = errors.New("name already exists")

	o := migrate.New(st, migrate.WithClock(fixedClock()))

	_, err := o.Run(context.Background(), migrate.Plan{
		Collection: "posts",
		Fields:     targetFields(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating shadow collection")

	// The safest failure point: nothing copied, nothing deleted.
	assert.Empty(t, st.createdRecords)
	assert.Empty(t, st.deleted)
	assert.Empty(t, st.renames)
}

func TestRunDeleteFailureKeepsShadow(t *testing.T) {
	t.Parallel()

	st := newFakeStore(store.Record{"id": "r1"})
	st.failDelete = errors.New("store unavailable")

	o := migrate.New(st, migrate.WithClock(fixedClock()))

	_, err := o.Run(context.Background(), migrate.Plan{
		Collection: "posts",
		Fields:     targetFields(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shadow posts_migration_1700000000000 keeps the copied data")

	// No rename is attempted; the copied records stay in the shadow.
	assert.Empty(t, st.renames)
	assert.Len(t, st.createdRecords["posts_migration_1700000000000"], 1)
}

func TestRunRenameFailureIsInconsistent(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	st.failRename = errors.New("name taken")

	o := migrate.New(st, migrate.WithClock(fixedClock()))

	_, err := o.Run(context.Background(), migrate.Plan{
		Collection: "posts",
		Fields:     targetFields(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, migrate.ErrInconsistentState))

	// The original is already gone at this point.
	assert.Equal(t, []string{"posts"}, st.deleted)
}

func TestRunValidation(t *testing.T) {
	t.Parallel()

	o := migrate.New(newFakeStore())

	_, err := o.Run(context.Background(), migrate.Plan{Fields: targetFields()})
	assert.ErrorIs(t, err, migrate.ErrMissingCollection)

	_, err = o.Run(context.Background(), migrate.Plan{Collection: "posts"})
	assert.ErrorIs(t, err, migrate.ErrMissingFields)
}

func TestRunAccessRules(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	o := migrate.New(st, migrate.WithClock(fixedClock()))

	listRule := "@request.auth.id != ''"

	_, err := o.Run(context.Background(), migrate.Plan{
		Collection: "posts",
		Fields:     targetFields(),
		ListRule:   &listRule,
	})
	require.NoError(t, err)

	require.Len(t, st.createdCollections, 1)
	shadow := st.createdCollections[0]
	require.NotNil(t, shadow.ListRule)
	assert.Equal(t, listRule, *shadow.ListRule)
	assert.Nil(t, shadow.ViewRule, "unset rules stay unset, not copied from the original")
}

func TestRunEmitsSteps(t *testing.T) {
	t.Parallel()

	st := newFakeStore(store.Record{"id": "r1"})

	var steps []migrate.Step

	o := migrate.New(st,
		migrate.WithClock(fixedClock()),
		migrate.WithHandler(migrate.HandlerFunc(func(e migrate.Event) {
			if e.Err == nil {
				steps = append(steps, e.Step)
			}
		})),
	)

	_, err := o.Run(context.Background(), migrate.Plan{
		Collection: "posts",
		Fields:     targetFields(),
	})
	require.NoError(t, err)

	assert.Equal(t, []migrate.Step{
		migrate.StepPlanning,
		migrate.StepShadowCreated,
		migrate.StepRecordsCopied,
		migrate.StepOldDeleted,
		migrate.StepRenamed,
	}, steps)
}
