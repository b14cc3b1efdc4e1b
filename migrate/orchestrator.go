package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/expr-lang/expr/vm"
	"go.uber.org/zap"

	pbmcp "github.com/minhdtb/pocketbase-cursor-mcp"
	"github.com/minhdtb/pocketbase-cursor-mcp/store"
)

// Store is the slice of the store client the orchestrator needs.
type Store interface {
	CreateCollection(ctx context.Context, collection pbmcp.Collection) (*pbmcp.Collection, error)
	UpdateCollection(ctx context.Context, id string, patch map[string]any) (*pbmcp.Collection, error)
	DeleteCollection(ctx context.Context, nameOrID string) error
	FullRecordList(ctx context.Context, collection string) ([]store.Record, error)
	CreateRecord(ctx context.Context, collection string, data map[string]any) (store.Record, error)
}

// Plan describes one migration. It is working state only: constructed at
// migration start, discarded at migration end.
type Plan struct {
	// Collection is the source collection name.
	Collection string

	// Fields is the target schema, in final declaration order.
	Fields []pbmcp.Field

	// Transforms maps field names to transform expressions. Each
	// expression sees the old field value as oldValue.
	Transforms map[string]string

	// NewName renames the collection as part of the migration.
	// Empty keeps the source collection name.
	NewName string

	// Access rule overrides for the migrated collection. Rules left nil
	// fall back to the store's defaults; they are not copied from the
	// original collection.
	ListRule   *string
	ViewRule   *string
	CreateRule *string
	UpdateRule *string
	DeleteRule *string
}

// Orchestrator performs schema migrations. One Run is one single-actor,
// single-shot migration; the swap is not transactional and no compensating
// cleanup happens on failure.
type Orchestrator struct {
	store   Store
	logger  *zap.Logger
	handler Handler
	now     func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithHandler sets the migration event handler.
func WithHandler(h Handler) Option {
	return func(o *Orchestrator) {
		o.handler = h
	}
}

// WithClock overrides the time source used to derive shadow names.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New creates an Orchestrator over the given store.
func New(st Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:  st,
		logger: zap.NewNop(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Run executes a migration plan: create shadow, copy and transform every
// record, delete the original, rename the shadow to the final name.
//
// A failure before the shadow is created leaves the store untouched. A
// failure during copy leaves the original intact and the shadow partially
// filled. A failed rename after the delete returns an error wrapping
// ErrInconsistentState; the shadow then holds all data.
func (o *Orchestrator) Run(ctx context.Context, plan Plan) (*pbmcp.Collection, error) {
	if plan.Collection == "" {
		return nil, ErrMissingCollection
	}

	if len(plan.Fields) == 0 {
		return nil, ErrMissingFields
	}

	shadowName := fmt.Sprintf("%s_migration_%d", plan.Collection, o.now().UnixMilli())

	o.emit(Event{Step: StepPlanning, Collection: plan.Collection, Shadow: shadowName})

	transforms := compileTransforms(plan.Transforms, func(field string, err error) {
		o.logger.Warn("transform expression does not compile, field left untouched",
			zap.String("collection", plan.Collection),
			zap.String("field", field),
			zap.Error(err))
		o.emit(Event{Step: StepPlanning, Collection: plan.Collection, Shadow: shadowName, Field: field, Err: err})
	})

	shadow, err := o.store.CreateCollection(ctx, pbmcp.Collection{
		Name:       shadowName,
		Type:       pbmcp.CollectionBase,
		Schema:     plan.Fields,
		ListRule:   plan.ListRule,
		ViewRule:   plan.ViewRule,
		CreateRule: plan.CreateRule,
		UpdateRule: plan.UpdateRule,
		DeleteRule: plan.DeleteRule,
	})
	if err != nil {
		return nil, fmt.Errorf("creating shadow collection %s: %w", shadowName, err)
	}

	o.emit(Event{Step: StepShadowCreated, Collection: plan.Collection, Shadow: shadowName})

	records, err := o.store.FullRecordList(ctx, plan.Collection)
	if err != nil {
		return nil, fmt.Errorf("fetching records of %s: %w", plan.Collection, err)
	}

	for i, rec := range records {
		data := o.transformRecord(plan.Collection, shadowName, rec, transforms)

		if _, err := o.store.CreateRecord(ctx, shadow.Name, data); err != nil {
			return nil, fmt.Errorf("copying record %d of %d into %s: %w",
				i+1, len(records), shadowName, err)
		}
	}

	o.emit(Event{
		Step:       StepRecordsCopied,
		Collection: plan.Collection,
		Shadow:     shadowName,
		Copied:     len(records),
		Total:      len(records),
	})

	if err := o.store.DeleteCollection(ctx, plan.Collection); err != nil {
		return nil, fmt.Errorf("deleting original collection %s (shadow %s keeps the copied data): %w",
			plan.Collection, shadowName, err)
	}

	o.emit(Event{Step: StepOldDeleted, Collection: plan.Collection, Shadow: shadowName})

	finalName := plan.NewName
	if finalName == "" {
		finalName = plan.Collection
	}

	renamed, err := o.store.UpdateCollection(ctx, shadow.ID, map[string]any{"name": finalName})
	if err != nil {
		return nil, fmt.Errorf("renaming shadow %s to %s: %w (%w)",
			shadowName, finalName, err, ErrInconsistentState)
	}

	o.emit(Event{Step: StepRenamed, Collection: finalName, Shadow: shadowName})
	o.logger.Info("migration complete",
		zap.String("collection", finalName),
		zap.Int("records", len(records)))

	return renamed, nil
}

// transformRecord builds the shadow copy of one record: a shallow copy of
// all field values, with each transformed field overwritten by its
// expression result. A failing transform logs and keeps the old value for
// that field only; the other fields' transforms still apply.
func (o *Orchestrator) transformRecord(collection, shadow string, rec store.Record, transforms map[string]*vm.Program) map[string]any {
	data := make(map[string]any, len(rec))

	for k, v := range rec {
		// Store-assigned membership metadata does not carry over.
		if k == "collectionId" || k == "collectionName" {
			continue
		}

		data[k] = v
	}

	for field, program := range transforms {
		out, err := applyTransform(program, data[field])
		if err != nil {
			o.logger.Warn("transform failed, field left at its previous value",
				zap.String("collection", collection),
				zap.String("record", rec.ID()),
				zap.String("field", field),
				zap.Error(err))
			o.emit(Event{Step: StepRecordsCopied, Collection: collection, Shadow: shadow, Field: field, Err: err})

			continue
		}

		data[field] = out
	}

	return data
}

func (o *Orchestrator) emit(event Event) {
	if o.handler == nil {
		return
	}

	event.Time = o.now()
	o.handler.Event(event)
}
