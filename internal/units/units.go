// Package units provides the built-in durable work units: the concrete
// payloads a producer can enqueue by kind name. Each unit is Storable, so
// it survives in the queue across restarts as long as Register ran on the
// codec at startup.
package units

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/me/durq/internal/script"
	"github.com/me/durq/pkg/task"
)

// Built-in unit kinds.
const (
	KindEmit   = "emit"
	KindScript = "script"
	KindTimer  = "timer"
	KindCall   = "call"
)

// Deps carries what the built-in units need when they are decoded out of
// the queue.
type Deps struct {
	Codec  *task.Codec
	Logger *slog.Logger
	HTTP   *http.Client      // used by call; defaulted in Register
	Eval   *script.Evaluator // used by script; defaulted in Register
}

// Register installs all built-in unit kinds on deps.Codec.
func Register(deps Deps) {
	if deps.HTTP == nil {
		deps.HTTP = &http.Client{Timeout: 30 * time.Second}
	}
	if deps.Eval == nil {
		deps.Eval = script.NewEvaluator(nil)
	}
	deps.Logger = deps.Logger.With("component", "units")

	c := deps.Codec
	c.RegisterSync(KindEmit, func(p []byte) (task.SyncUnit, error) {
		u := &Emit{deps: deps}
		return u, unmarshal(p, u)
	})
	c.RegisterSync(KindScript, func(p []byte) (task.SyncUnit, error) {
		u := &Script{deps: deps}
		return u, unmarshal(p, u)
	})
	c.RegisterAsync(KindTimer, func(p []byte) (task.AsyncUnit, error) {
		u := &Timer{deps: deps}
		return u, unmarshal(p, u)
	})
	c.RegisterAsync(KindCall, func(p []byte) (task.AsyncUnit, error) {
		u := &Call{deps: deps}
		return u, unmarshal(p, u)
	})
}

func unmarshal(p []byte, v any) error {
	if len(p) == 0 {
		return nil
	}
	return json.Unmarshal(p, v)
}

// continuation decodes an inline envelope. A unit has no error channel,
// so a continuation that fails to decode is logged and dropped.
func (d Deps) continuation(env *task.Envelope) *task.Task {
	if env == nil {
		return nil
	}
	t, err := d.Codec.DecodeEnvelope(env)
	if err != nil {
		d.Logger.Error("decode continuation", "error", err)
		return nil
	}
	return t
}
