package migrate

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// oldValueVar is the single variable visible to transform expressions.
// Transforms are pure functions of one field value; sibling fields are
// out of reach.
const oldValueVar = "oldValue"

// compileTransforms compiles the caller-supplied transform expressions.
// A compile failure disables only that field's transform and is reported
// through onError; the remaining transforms still apply.
func compileTransforms(exprs map[string]string, onError func(field string, err error)) map[string]*vm.Program {
	if len(exprs) == 0 {
		return nil
	}

	programs := make(map[string]*vm.Program, len(exprs))

	for field, src := range exprs {
		program, err := expr.Compile(src)
		if err != nil {
			onError(field, err)

			continue
		}

		programs[field] = program
	}

	return programs
}

// applyTransform evaluates one compiled transform against a field value.
func applyTransform(program *vm.Program, oldValue any) (any, error) {
	return expr.Run(program, map[string]any{oldValueVar: oldValue})
}
