package pbmcp

import (
	"strings"
	"unicode"
)

// StoreTypeFor maps an interface member's primitive kind to a store field
// type. Array-flagged members always collapse to json, whatever their
// element kind. The mapping is a pure function of its arguments.
func StoreTypeFor(kind PrimitiveKind, isArray bool) FieldType {
	if isArray {
		return FieldTypeJSON
	}

	switch kind {
	case KindString:
		return FieldTypeText
	case KindNumber:
		return FieldTypeNumber
	case KindBoolean:
		return FieldTypeBool
	case KindDate:
		return FieldTypeDate
	case KindArray, KindObject:
		return FieldTypeJSON
	default:
		return FieldTypeText
	}
}

// CollectionResolver resolves a collection id to its name.
// Used when emitting relation members as cross-references.
type CollectionResolver func(id string) (string, bool)

// TypeScriptType maps a store field back to a TypeScript member type.
//
// This is not the inverse of StoreTypeFor: text, editor, url and email all
// recover as string; dates recover as string (store dates round-trip as
// text); json recovers as any. Relation fields recover as string unless the
// resolver can name the target collection, in which case the member is a
// union of string and the target interface name.
func TypeScriptType(f Field, resolve CollectionResolver) string {
	switch f.Type {
	case FieldTypeText, FieldTypeEditor, FieldTypeURL, FieldTypeEmail,
		FieldTypeFile, FieldTypeSelect:
		return "string"
	case FieldTypeNumber:
		return "number"
	case FieldTypeBool:
		return "boolean"
	case FieldTypeDate, FieldTypeAutodate:
		return "string"
	case FieldTypeJSON:
		return "any"
	case FieldTypeRelation:
		if resolve != nil {
			if target := f.RelationTarget(); target != "" {
				if name, ok := resolve(target); ok {
					return "string | " + InterfaceName(name)
				}
			}
		}

		return "string"
	default:
		return "any"
	}
}

// InterfaceName converts a collection name to a PascalCase interface name.
func InterfaceName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})

	var b strings.Builder

	for _, p := range parts {
		runes := []rune(p)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}

	return b.String()
}
