// Package profile computes per-field summary statistics over a bounded
// sample of a collection's records, plus qualitative advisory insights.
// It is a heuristic pass: bounded by the sample, no population inference.
package profile

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	pbmcp "github.com/minhdtb/pocketbase-cursor-mcp"
	"github.com/minhdtb/pocketbase-cursor-mcp/store"
)

// DefaultSampleSize is the record sample size when none is requested.
const DefaultSampleSize = 100

// identifierMinSample is the minimum sample size before the
// identifier-candidate insight may fire.
const identifierMinSample = 5

// NoRecordsInsight is the single insight reported for an empty sample.
const NoRecordsInsight = "No records available for analysis"

// Source is the read-only slice of the store client the profiler needs.
type Source interface {
	GetCollection(ctx context.Context, nameOrID string) (*pbmcp.Collection, error)
	ListRecords(ctx context.Context, collection string, opts store.ListOptions) (*store.RecordList, error)
}

// Options control one profiling pass.
type Options struct {
	// SampleSize caps the number of records fetched. Defaults to
	// DefaultSampleSize.
	SampleSize int

	// Fields restricts profiling to the named fields. Empty means all.
	Fields []string
}

// FieldProfile holds summary statistics for one field.
type FieldProfile struct {
	Name     string          `json:"name"`
	Type     pbmcp.FieldType `json:"type"`
	NonNull  int             `json:"nonNullCount"`
	Unique   int             `json:"uniqueValueCount"`
	FillRate string          `json:"fillRate"`
	Min      *float64        `json:"min,omitempty"`
	Max      *float64        `json:"max,omitempty"`
}

// Report is the result of one profiling pass. It is never persisted.
type Report struct {
	Collection  string         `json:"collection"`
	SampleCount int            `json:"sampleCount"`
	Fields      []FieldProfile `json:"fields"`
	Insights    []string       `json:"insights"`
}

// Profiler samples records of one collection and derives field statistics.
type Profiler struct {
	source Source
	logger *zap.Logger
}

// Option configures a Profiler.
type Option func(*Profiler)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Profiler) {
		p.logger = logger
	}
}

// New creates a Profiler reading from source.
func New(source Source, opts ...Option) *Profiler {
	p := &Profiler{
		source: source,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Analyze fetches the collection's field descriptors and a page of up to
// SampleSize records, then profiles every selected field. Only the two
// initial fetches can fail; per-field analysis never raises.
func (p *Profiler) Analyze(ctx context.Context, collection string, opts Options) (*Report, error) {
	if opts.SampleSize <= 0 {
		opts.SampleSize = DefaultSampleSize
	}

	col, err := p.source.GetCollection(ctx, collection)
	if err != nil {
		return nil, err
	}

	list, err := p.source.ListRecords(ctx, collection, store.ListOptions{
		Page:    1,
		PerPage: opts.SampleSize,
	})
	if err != nil {
		return nil, err
	}

	records := list.Items

	report := &Report{
		Collection:  collection,
		SampleCount: len(records),
	}

	if len(records) == 0 {
		report.Insights = []string{NoRecordsInsight}

		return report, nil
	}

	var selected map[string]bool
	if len(opts.Fields) > 0 {
		selected = make(map[string]bool, len(opts.Fields))
		for _, name := range opts.Fields {
			selected[name] = true
		}
	}

	for _, field := range col.Schema {
		if selected != nil && !selected[field.Name] {
			continue
		}

		fp := profileField(field, records)
		report.Fields = append(report.Fields, fp)
		report.Insights = append(report.Insights, fieldInsights(fp, len(records))...)
	}

	p.logger.Debug("profiled collection",
		zap.String("collection", collection),
		zap.Int("sample", len(records)),
		zap.Int("fields", len(report.Fields)))

	return report, nil
}

// profileField computes statistics for one field over the sample.
func profileField(field pbmcp.Field, records []store.Record) FieldProfile {
	fp := FieldProfile{
		Name: field.Name,
		Type: field.Type,
	}

	seen := make(map[string]struct{})

	for _, rec := range records {
		value, ok := rec[field.Name]
		if !ok || value == nil {
			continue
		}

		fp.NonNull++
		seen[canonicalKey(value)] = struct{}{}

		if field.Type == pbmcp.FieldTypeNumber {
			if n, ok := asNumber(value); ok {
				if fp.Min == nil || n < *fp.Min {
					fp.Min = ptr(n)
				}

				if fp.Max == nil || n > *fp.Max {
					fp.Max = ptr(n)
				}
			}
		}
	}

	fp.Unique = len(seen)
	fp.FillRate = fmt.Sprintf("%.2f%%", float64(fp.NonNull)/float64(len(records))*100)

	return fp
}

// fieldInsights derives the advisory messages for one field profile.
func fieldInsights(fp FieldProfile, sampleCount int) []string {
	var insights []string

	if fp.Unique == sampleCount && sampleCount > identifierMinSample {
		insights = append(insights,
			fmt.Sprintf("Field '%s' has all unique values and could serve as an identifier", fp.Name))
	}

	if fp.NonNull == 0 {
		insights = append(insights,
			fmt.Sprintf("Field '%s' has no values and appears unused", fp.Name))
	}

	return insights
}

// canonicalKey encodes a value so that structurally equal nested content
// counts as one distinct value.
func canonicalKey(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}

	return string(data)
}

func asNumber(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()

		return f, err == nil
	default:
		return 0, false
	}
}

func ptr[T any](v T) *T {
	return &v
}
