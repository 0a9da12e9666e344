package units

import (
	"context"
	"encoding/json"

	"github.com/me/durq/pkg/task"
)

// Emit is a synchronous unit that writes one log line and optionally
// yields an inline continuation. Useful for smoke tests and demos.
type Emit struct {
	Message string         `json:"message"`
	Next    *task.Envelope `json:"next,omitempty"`

	deps Deps
}

// Execute implements task.SyncUnit.
func (u *Emit) Execute(ctx context.Context) *task.Task {
	u.deps.Logger.Info("emit", "message", u.Message)
	return u.deps.continuation(u.Next)
}

// UnitKind implements task.Storable.
func (u *Emit) UnitKind() string { return KindEmit }

// MarshalPayload implements task.Storable.
func (u *Emit) MarshalPayload() ([]byte, error) { return json.Marshal(u) }

// Script is a synchronous unit that runs a JavaScript program. The
// program sees Payload as the `payload` global; whatever envelope it
// returns becomes the continuation.
type Script struct {
	Source  string          `json:"source"`
	Payload json.RawMessage `json:"payload,omitempty"`

	deps Deps
}

// Execute implements task.SyncUnit. Script failures have no error
// channel; they are logged and end the chain.
func (u *Script) Execute(ctx context.Context) *task.Task {
	var payload any
	if len(u.Payload) > 0 {
		if err := json.Unmarshal(u.Payload, &payload); err != nil {
			u.deps.Logger.Error("script payload", "error", err)
			return nil
		}
	}
	env, err := u.deps.Eval.Run(u.Source, payload)
	if err != nil {
		u.deps.Logger.Error("script", "error", err)
		return nil
	}
	return u.deps.continuation(env)
}

// UnitKind implements task.Storable.
func (u *Script) UnitKind() string { return KindScript }

// MarshalPayload implements task.Storable.
func (u *Script) MarshalPayload() ([]byte, error) { return json.Marshal(u) }
