// Package script evaluates JavaScript work-unit programs with goja.
// A program sees its unit's payload as the `payload` global and returns
// either null/undefined (no continuation) or an object shaped like a task
// envelope that becomes the continuation.
package script

import (
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"
	"github.com/me/durq/pkg/task"
)

// Evaluator runs unit programs in a fresh JavaScript VM per call, so no
// state leaks from one execution to the next.
type Evaluator struct {
	prelude []string
}

// NewEvaluator creates an evaluator. prelude holds JavaScript sources
// loaded into the VM before every program, for shared helper functions.
func NewEvaluator(prelude []string) *Evaluator {
	return &Evaluator{prelude: prelude}
}

// Run executes source with payload bound to the `payload` global and
// returns the continuation envelope the program produced, or nil when it
// returned nothing.
func (e *Evaluator) Run(source string, payload any) (*task.Envelope, error) {
	vm := goja.New()

	for i, lib := range e.prelude {
		if _, err := vm.RunString(lib); err != nil {
			return nil, fmt.Errorf("prelude[%d]: %w", i, err)
		}
	}
	if err := vm.Set("payload", payload); err != nil {
		return nil, fmt.Errorf("set payload: %w", err)
	}

	v, err := vm.RunString(source)
	if err != nil {
		return nil, fmt.Errorf("run program: %w", err)
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}

	// Round-trip through JSON to map the loosely shaped JS object onto
	// the envelope.
	raw, err := json.Marshal(v.Export())
	if err != nil {
		return nil, fmt.Errorf("export result: %w", err)
	}
	var env task.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("result is not a task envelope: %w", err)
	}
	if env.Kind == "" {
		return nil, fmt.Errorf("result is not a task envelope: missing kind (%s)", raw)
	}
	return &env, nil
}
