// Package pbmcp implements the collection schema engine behind the
// pocketbase-cursor-mcp tool server: extraction of TypeScript interface
// declarations, bidirectional type mapping between interface members and
// store field descriptors, schema synthesis and interface emission.
package pbmcp

// FieldType represents a store-native field type.
type FieldType string

// Store field types.
const (
	FieldTypeText     FieldType = "text"
	FieldTypeNumber   FieldType = "number"
	FieldTypeBool     FieldType = "bool"
	FieldTypeEmail    FieldType = "email"
	FieldTypeURL      FieldType = "url"
	FieldTypeDate     FieldType = "date"
	FieldTypeSelect   FieldType = "select"
	FieldTypeRelation FieldType = "relation"
	FieldTypeFile     FieldType = "file"
	FieldTypeJSON     FieldType = "json"
	FieldTypeEditor   FieldType = "editor"
	FieldTypeAutodate FieldType = "autodate"
)

// Collection types.
const (
	CollectionBase = "base"
	CollectionAuth = "auth"
	CollectionView = "view"
)

// Field is the canonical store field descriptor. Options carries
// type-specific settings, e.g. "collectionId" for relation fields and
// "values" for select fields.
type Field struct {
	Name     string         `json:"name"`
	Type     FieldType      `json:"type"`
	Required bool           `json:"required"`
	Options  map[string]any `json:"options,omitempty"`
}

// RelationTarget returns the target collection id of a relation field,
// or empty if the field is not a relation or carries no target.
func (f Field) RelationTarget() string {
	if f.Type != FieldTypeRelation || f.Options == nil {
		return ""
	}

	if id, ok := f.Options["collectionId"].(string); ok {
		return id
	}

	return ""
}

// Collection describes one named collection in the store.
// Field order is significant and is preserved end-to-end through migration.
type Collection struct {
	ID         string   `json:"id,omitempty"`
	Name       string   `json:"name"`
	Type       string   `json:"type,omitempty"`
	Schema     []Field  `json:"schema"`
	ListRule   *string  `json:"listRule,omitempty"`
	ViewRule   *string  `json:"viewRule,omitempty"`
	CreateRule *string  `json:"createRule,omitempty"`
	UpdateRule *string  `json:"updateRule,omitempty"`
	DeleteRule *string  `json:"deleteRule,omitempty"`
	Indexes    []string `json:"indexes,omitempty"`
}

// PrimitiveKind represents the primitive kind of an interface member.
type PrimitiveKind string

// Primitive kinds recognized by the extractor.
const (
	KindString  PrimitiveKind = "string"
	KindNumber  PrimitiveKind = "number"
	KindBoolean PrimitiveKind = "boolean"
	KindDate    PrimitiveKind = "date"
	KindArray   PrimitiveKind = "array"
	KindObject  PrimitiveKind = "object"
)

// FieldDescription is the intermediate member form produced by Extract.
// It exists only for the duration of one extraction pass.
type FieldDescription struct {
	Name     string
	Kind     PrimitiveKind
	Optional bool
	Array    bool
}
