package units

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/me/durq/pkg/task"
)

func testDeps(t *testing.T) (Deps, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	deps := Deps{Codec: task.NewCodec(), Logger: logger}
	Register(deps)
	return deps, &buf
}

func decodeSync(t *testing.T, deps Deps, kind string, payload string) task.SyncUnit {
	t.Helper()
	tk, err := deps.Codec.DecodeEnvelope(&task.Envelope{
		Variant: task.VariantSync, Kind: kind, Payload: json.RawMessage(payload),
	})
	if err != nil {
		t.Fatalf("decode %s: %v", kind, err)
	}
	return tk.Sync()
}

func decodeAsync(t *testing.T, deps Deps, kind string, payload string) task.AsyncUnit {
	t.Helper()
	tk, err := deps.Codec.DecodeEnvelope(&task.Envelope{
		Variant: task.VariantAsync, Kind: kind, Payload: json.RawMessage(payload),
	})
	if err != nil {
		t.Fatalf("decode %s: %v", kind, err)
	}
	return tk.Async()
}

func await(t *testing.T, s *task.Suspension) *task.Task {
	t.Helper()
	select {
	case next := <-s.Done():
		return next
	case <-time.After(2 * time.Second):
		t.Fatal("suspension did not resolve")
		return nil
	}
}

func TestEmit(t *testing.T) {
	deps, buf := testDeps(t)

	u := decodeSync(t, deps, KindEmit, `{"message":"hello"}`)
	if next := u.Execute(context.Background()); next != nil {
		t.Fatalf("next = %v, want nil", next)
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("log output %q missing message", buf.String())
	}
}

func TestEmitChainsContinuation(t *testing.T) {
	deps, _ := testDeps(t)

	u := decodeSync(t, deps, KindEmit,
		`{"message":"first","next":{"variant":"sync","kind":"emit","payload":{"message":"second"}}}`)
	next := u.Execute(context.Background())
	if next == nil || next.IsAsync() {
		t.Fatal("expected a sync continuation")
	}
	if e := next.Sync().(*Emit); e.Message != "second" {
		t.Fatalf("continuation message = %q, want %q", e.Message, "second")
	}
}

func TestEmitRoundTrip(t *testing.T) {
	deps, _ := testDeps(t)

	data, err := deps.Codec.Encode(task.NewSync(&Emit{Message: "persisted", deps: deps}))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	tk, err := deps.Codec.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if e := tk.Sync().(*Emit); e.Message != "persisted" {
		t.Fatalf("message = %q, want %q", e.Message, "persisted")
	}
}

func TestScriptYieldsContinuation(t *testing.T) {
	deps, _ := testDeps(t)

	u := decodeSync(t, deps, KindScript,
		`{"source":"payload.go ? {variant:'sync',kind:'emit',payload:{message:'from-js'}} : null","payload":{"go":true}}`)
	next := u.Execute(context.Background())
	if next == nil {
		t.Fatal("expected continuation from script")
	}
	if e := next.Sync().(*Emit); e.Message != "from-js" {
		t.Fatalf("continuation message = %q, want %q", e.Message, "from-js")
	}
}

func TestScriptEndsChainOnError(t *testing.T) {
	deps, buf := testDeps(t)

	u := decodeSync(t, deps, KindScript, `{"source":"not valid js("}`)
	if next := u.Execute(context.Background()); next != nil {
		t.Fatalf("next = %v, want nil on script error", next)
	}
	if !strings.Contains(buf.String(), "script") {
		t.Fatalf("log output %q missing script error", buf.String())
	}
}

func TestTimerResolvesWithContinuation(t *testing.T) {
	deps, _ := testDeps(t)

	u := decodeAsync(t, deps, KindTimer,
		`{"delay":"10ms","next":{"variant":"sync","kind":"emit","payload":{"message":"late"}}}`)

	start := time.Now()
	susp := u.Execute(context.Background())
	next := await(t, susp)
	if time.Since(start) < 10*time.Millisecond {
		t.Fatal("timer resolved before its delay")
	}
	if next == nil {
		t.Fatal("expected continuation from timer")
	}
	if e := next.Sync().(*Emit); e.Message != "late" {
		t.Fatalf("continuation message = %q, want %q", e.Message, "late")
	}
}

func TestTimerBadDelayResolvesEmpty(t *testing.T) {
	deps, _ := testDeps(t)

	u := decodeAsync(t, deps, KindTimer, `{"delay":"soon"}`)
	if next := await(t, u.Execute(context.Background())); next != nil {
		t.Fatalf("next = %v, want nil for invalid delay", next)
	}
}

func TestCall(t *testing.T) {
	deps, _ := testDeps(t)

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u := decodeAsync(t, deps, KindCall,
		`{"url":"`+srv.URL+`","next":{"variant":"sync","kind":"emit","payload":{"message":"called"}}}`)
	next := await(t, u.Execute(context.Background()))
	if hits != 1 {
		t.Fatalf("server hit %d times, want 1", hits)
	}
	if next == nil {
		t.Fatal("expected continuation after 2xx response")
	}
}

func TestCallNon2xxEndsChain(t *testing.T) {
	deps, _ := testDeps(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	u := decodeAsync(t, deps, KindCall,
		`{"url":"`+srv.URL+`","next":{"variant":"sync","kind":"emit"}}`)
	if next := await(t, u.Execute(context.Background())); next != nil {
		t.Fatalf("next = %v, want nil after 503", next)
	}
}
