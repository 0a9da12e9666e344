package units

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/me/durq/pkg/task"
)

// Timer is an asynchronous unit whose suspension resolves after Delay,
// yielding the inline continuation if one is set.
type Timer struct {
	Delay string         `json:"delay"` // Go duration string, e.g. "150ms"
	Next  *task.Envelope `json:"next,omitempty"`

	deps Deps
}

// Execute implements task.AsyncUnit. It returns promptly; the timer fires
// on its own schedule.
func (u *Timer) Execute(ctx context.Context) *task.Suspension {
	susp := task.NewSuspension()
	d, err := time.ParseDuration(u.Delay)
	if err != nil {
		u.deps.Logger.Error("timer delay", "delay", u.Delay, "error", err)
		susp.Resolve(nil)
		return susp
	}
	time.AfterFunc(d, func() {
		susp.Resolve(u.deps.continuation(u.Next))
	})
	return susp
}

// UnitKind implements task.Storable.
func (u *Timer) UnitKind() string { return KindTimer }

// MarshalPayload implements task.Storable.
func (u *Timer) MarshalPayload() ([]byte, error) { return json.Marshal(u) }

// Call is an asynchronous unit that issues an HTTP request and resolves
// once the response arrives. On a 2xx status the inline continuation is
// yielded; any failure ends the chain.
type Call struct {
	Method string         `json:"method,omitempty"` // default GET
	URL    string         `json:"url"`
	Next   *task.Envelope `json:"next,omitempty"`

	deps Deps
}

// Execute implements task.AsyncUnit. The round trip runs off the calling
// goroutine; the suspension resolves when it completes.
func (u *Call) Execute(ctx context.Context) *task.Suspension {
	susp := task.NewSuspension()
	method := u.Method
	if method == "" {
		method = http.MethodGet
	}

	go func() {
		req, err := http.NewRequestWithContext(ctx, method, u.URL, nil)
		if err != nil {
			u.deps.Logger.Error("call request", "url", u.URL, "error", err)
			susp.Resolve(nil)
			return
		}
		resp, err := u.deps.HTTP.Do(req)
		if err != nil {
			u.deps.Logger.Error("call", "url", u.URL, "error", err)
			susp.Resolve(nil)
			return
		}
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			u.deps.Logger.Warn("call rejected", "url", u.URL, "status", resp.StatusCode)
			susp.Resolve(nil)
			return
		}
		u.deps.Logger.Debug("call completed", "url", u.URL, "status", resp.StatusCode)
		susp.Resolve(u.deps.continuation(u.Next))
	}()
	return susp
}

// UnitKind implements task.Storable.
func (u *Call) UnitKind() string { return KindCall }

// MarshalPayload implements task.Storable.
func (u *Call) MarshalPayload() ([]byte, error) { return json.Marshal(u) }
