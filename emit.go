package pbmcp

import "strings"

// EmitOptions control interface emission.
type EmitOptions struct {
	// IncludeRelations emits relation fields as a union of string and the
	// target collection's interface name, resolved through Resolve.
	IncludeRelations bool

	// Resolve maps a collection id to its name. Ignored unless
	// IncludeRelations is set.
	Resolve CollectionResolver
}

// EmitInterfaces renders TypeScript interface declarations for the given
// collections. Each interface carries an id member first, then one member
// per schema field in declaration order, then created/updated string
// members. Output is deterministic for a given input list.
func EmitInterfaces(collections []Collection, opts EmitOptions) string {
	var resolve CollectionResolver
	if opts.IncludeRelations {
		resolve = opts.Resolve
	}

	var b strings.Builder

	for i, c := range collections {
		if i > 0 {
			b.WriteByte('\n')
		}

		b.WriteString("export interface ")
		b.WriteString(InterfaceName(c.Name))
		b.WriteString(" {\n")
		b.WriteString("  id: string;\n")

		for _, f := range c.Schema {
			b.WriteString("  ")
			b.WriteString(f.Name)

			if !f.Required {
				b.WriteByte('?')
			}

			b.WriteString(": ")
			b.WriteString(TypeScriptType(f, resolve))
			b.WriteString(";\n")
		}

		b.WriteString("  created: string;\n")
		b.WriteString("  updated: string;\n")
		b.WriteString("}\n")
	}

	return b.String()
}

// ResolverFromCollections builds a CollectionResolver over a fetched
// collection list, indexing by collection id.
func ResolverFromCollections(collections []Collection) CollectionResolver {
	byID := make(map[string]string, len(collections))
	for _, c := range collections {
		if c.ID != "" {
			byID[c.ID] = c.Name
		}
	}

	return func(id string) (string, bool) {
		name, ok := byID[id]

		return name, ok
	}
}
