package pbmcp

import "strings"

// Options control schema synthesis.
type Options struct {
	// IncludeAuthentication appends required email/password fields to
	// types named "user" or "users" (case-insensitive).
	IncludeAuthentication bool

	// IncludeTimestamps appends optional created/updated date fields to
	// every synthesized collection.
	IncludeTimestamps bool
}

// Synthesize converts the interface declarations found in src into one
// collection schema per declared type, using the lower-cased type name as
// the collection name. Extracted field order is preserved; augmentation
// fields are appended after it, auth fields before timestamps.
//
// Augmentation does not deduplicate: a source type that already declares
// email, password, created or updated yields a schema with duplicate field
// names, in append order.
func Synthesize(src string, opts Options) []Collection {
	var collections []Collection

	for name, fields := range Extract(src) {
		c := Collection{
			Name: strings.ToLower(name),
			Type: CollectionBase,
		}

		for _, fd := range fields {
			c.Schema = append(c.Schema, Field{
				Name:     fd.Name,
				Type:     StoreTypeFor(fd.Kind, fd.Array),
				Required: !fd.Optional,
			})
		}

		if opts.IncludeAuthentication && isUserType(name) {
			c.Schema = append(c.Schema,
				Field{Name: "email", Type: FieldTypeEmail, Required: true},
				Field{Name: "password", Type: FieldTypeText, Required: true},
			)
		}

		if opts.IncludeTimestamps {
			c.Schema = append(c.Schema,
				Field{Name: "created", Type: FieldTypeDate},
				Field{Name: "updated", Type: FieldTypeDate},
			)
		}

		collections = append(collections, c)
	}

	return collections
}

// isUserType reports whether a type name looks like the store's user type.
// A heuristic, not schema validation.
func isUserType(name string) bool {
	lower := strings.ToLower(name)

	return lower == "user" || lower == "users"
}
