package pbmcp

import (
	"iter"
	"regexp"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// memberDecl is the grammar for a single interface member declaration.
// Anything the grammar rejects is skipped, not reported: extraction is a
// best-effort pass over source text, not strict parsing.
type memberDecl struct {
	Name     string   `@Ident`
	Optional bool     `@"?"?`
	Type     *typeRef `":" @@`
}

type typeRef struct {
	Name  string `@Ident`
	Array bool   `@"[]"?`
}

var memberLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[A-Za-z_$][A-Za-z0-9_$]*`},
	{Name: "Brackets", Pattern: `\[\]`},
	{Name: "Punct", Pattern: `[?:]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var memberParser = participle.MustBuild[memberDecl](
	participle.Lexer(memberLexer),
	participle.Elide("Whitespace"),
)

// interfaceHeader matches an interface declaration up to its opening brace.
var interfaceHeader = regexp.MustCompile(
	`(?:export\s+)?(?:declare\s+)?interface\s+([A-Za-z_$][A-Za-z0-9_$]*)(?:\s+extends\s+[^{]*?)?\s*\{`)

var lineComment = regexp.MustCompile(`//[^\n]*`)

// Extract scans source text for interface declarations and yields, in order
// of appearance, each interface name together with its member descriptions.
// The sequence is lazy and restartable: every range over it re-scans src
// from the start.
func Extract(src string) iter.Seq2[string, []FieldDescription] {
	return func(yield func(string, []FieldDescription) bool) {
		for _, loc := range interfaceHeader.FindAllStringSubmatchIndex(src, -1) {
			name := src[loc[2]:loc[3]]

			body, ok := interfaceBody(src, loc[1])
			if !ok {
				continue
			}

			if !yield(name, extractMembers(body)) {
				return
			}
		}
	}
}

// interfaceBody returns the text between the opening brace at open-1 and its
// matching close brace.
func interfaceBody(src string, open int) (string, bool) {
	depth := 1

	for i := open; i < len(src); i++ {
		switch src[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return src[open:i], true
			}
		}
	}

	return "", false
}

// extractMembers parses the member declarations of one interface body.
// Members are separated by semicolons, commas or newlines; declarations the
// member grammar cannot handle are dropped silently.
func extractMembers(body string) []FieldDescription {
	body = lineComment.ReplaceAllString(body, "")

	var fields []FieldDescription

	for _, chunk := range strings.FieldsFunc(body, isMemberSeparator) {
		decl, err := memberParser.ParseString("", strings.TrimSpace(chunk))
		if err != nil || decl.Type == nil {
			continue
		}

		fields = append(fields, FieldDescription{
			Name:     decl.Name,
			Kind:     kindOf(decl.Type.Name),
			Optional: decl.Optional,
			Array:    decl.Type.Array,
		})
	}

	return fields
}

func isMemberSeparator(r rune) bool {
	return r == ';' || r == ',' || r == '\n'
}

// kindOf classifies a member's type token. Unknown type names are treated
// as object references.
func kindOf(typeName string) PrimitiveKind {
	switch strings.ToLower(typeName) {
	case "string":
		return KindString
	case "number":
		return KindNumber
	case "boolean":
		return KindBoolean
	case "date":
		return KindDate
	case "array":
		return KindArray
	default:
		return KindObject
	}
}
