package task

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope variant discriminants.
const (
	VariantSync  = "sync"
	VariantAsync = "async"
)

// Storable is implemented by units that can live in a durable queue.
// UnitKind names the registered decoder; MarshalPayload produces the
// payload that decoder is handed back, possibly in a later process.
type Storable interface {
	UnitKind() string
	MarshalPayload() ([]byte, error)
}

// Envelope is the stored wire form of a task.
type Envelope struct {
	Variant string          `json:"variant"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Codec errors.
var (
	ErrNotStorable    = errors.New("task: unit does not implement Storable")
	ErrUnknownKind    = errors.New("task: no decoder registered for kind")
	ErrUnknownVariant = errors.New("task: unknown envelope variant")
)

// SyncDecoder rebuilds a synchronous unit from its stored payload.
type SyncDecoder func(payload []byte) (SyncUnit, error)

// AsyncDecoder rebuilds an asynchronous unit from its stored payload.
type AsyncDecoder func(payload []byte) (AsyncUnit, error)

// Codec translates tasks to and from their durable envelope form. It is
// constructed explicitly and handed to whatever needs it; there is no
// package-level registry.
type Codec struct {
	sync  map[string]SyncDecoder
	async map[string]AsyncDecoder
}

// NewCodec returns an empty codec.
func NewCodec() *Codec {
	return &Codec{
		sync:  make(map[string]SyncDecoder),
		async: make(map[string]AsyncDecoder),
	}
}

// RegisterSync installs a decoder for a synchronous unit kind.
// Registering a kind twice replaces the earlier decoder.
func (c *Codec) RegisterSync(kind string, d SyncDecoder) { c.sync[kind] = d }

// RegisterAsync installs a decoder for an asynchronous unit kind.
func (c *Codec) RegisterAsync(kind string, d AsyncDecoder) { c.async[kind] = d }

// Encode renders t as a JSON envelope. The wrapped unit must implement
// Storable.
func (c *Codec) Encode(t *Task) ([]byte, error) {
	var (
		unit    any
		variant = VariantSync
	)
	if t.IsAsync() {
		unit = t.Async()
		variant = VariantAsync
	} else {
		unit = t.Sync()
	}

	st, ok := unit.(Storable)
	if !ok {
		return nil, fmt.Errorf("%w (%T)", ErrNotStorable, unit)
	}
	payload, err := st.MarshalPayload()
	if err != nil {
		return nil, fmt.Errorf("marshal payload for %q: %w", st.UnitKind(), err)
	}
	return json.Marshal(Envelope{Variant: variant, Kind: st.UnitKind(), Payload: payload})
}

// Decode rebuilds a task from its stored envelope form.
func (c *Codec) Decode(data []byte) (*Task, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("task envelope: %w", err)
	}
	return c.DecodeEnvelope(&env)
}

// DecodeEnvelope rebuilds a task from an already-parsed envelope.
func (c *Codec) DecodeEnvelope(env *Envelope) (*Task, error) {
	switch env.Variant {
	case VariantSync:
		d, ok := c.sync[env.Kind]
		if !ok {
			return nil, fmt.Errorf("%w: sync %q", ErrUnknownKind, env.Kind)
		}
		u, err := d(env.Payload)
		if err != nil {
			return nil, fmt.Errorf("decode sync %q: %w", env.Kind, err)
		}
		return NewSync(u), nil
	case VariantAsync:
		d, ok := c.async[env.Kind]
		if !ok {
			return nil, fmt.Errorf("%w: async %q", ErrUnknownKind, env.Kind)
		}
		u, err := d(env.Payload)
		if err != nil {
			return nil, fmt.Errorf("decode async %q: %w", env.Kind, err)
		}
		return NewAsync(u), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, env.Variant)
	}
}
