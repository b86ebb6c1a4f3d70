package middleware

import (
	"bytes"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"

	"github.com/odvcencio/burrow/store"
)

type counter struct {
	Count int `json:"count"`
}

func reduce(s counter, a store.Action) counter {
	if p, ok := a.(store.Plain); ok && p.Kind == "inc" {
		s.Count++
	}
	return s
}

func TestLogger_TracesActionAndState(t *testing.T) {
	var buf bytes.Buffer
	st := store.New(reduce, counter{}, Logger[counter](LoggerConfig{Writer: &buf}))

	st.Dispatch(store.Plain{Kind: "inc", Payload: "manual"})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 trace lines, got %q", buf.String())
	}
	if !strings.Contains(lines[0], `"kind":"inc"`) {
		t.Fatalf("expected action kind in first line, got %q", lines[0])
	}
	if !strings.Contains(lines[0], `"payload":"manual"`) {
		t.Fatalf("expected payload in first line, got %q", lines[0])
	}
	if !strings.Contains(lines[1], `"count":1`) {
		t.Fatalf("expected post-dispatch state in second line, got %q", lines[1])
	}
}

func TestLogger_StampsEachDispatchWithULID(t *testing.T) {
	var buf bytes.Buffer
	st := store.New(reduce, counter{}, Logger[counter](LoggerConfig{Writer: &buf}))

	st.Dispatch(store.Plain{Kind: "inc"})
	st.Dispatch(store.Plain{Kind: "inc"})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 trace lines, got %q", buf.String())
	}

	ids := make(map[string]bool)
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			t.Fatalf("expected id field, got %q", line)
		}
		if _, err := ulid.Parse(fields[1]); err != nil {
			t.Fatalf("expected parseable ULID, got %q: %v", fields[1], err)
		}
		ids[fields[1]] = true
	}
	if len(ids) != 2 {
		t.Fatalf("expected one id per dispatch, got %d", len(ids))
	}
}

func TestLogger_BeforeAndAfterSurroundReduction(t *testing.T) {
	var buf bytes.Buffer
	sawEntry := false
	witness := store.Middleware[counter](func(api store.API[counter]) func(next store.Dispatcher) store.Dispatcher {
		return func(next store.Dispatcher) store.Dispatcher {
			return func(a store.Action) any {
				sawEntry = buf.Len() > 0
				return next(a)
			}
		}
	})

	st := store.New(reduce, counter{}, Logger[counter](LoggerConfig{Writer: &buf}), witness)
	st.Dispatch(store.Plain{Kind: "inc"})

	// The logger sits outside the witness layer, so its entry line must
	// land before the inner layer runs.
	if !sawEntry {
		t.Fatalf("expected logger entry before inner middleware ran")
	}
}

func TestLogger_HighlightFallsBackToValidOutput(t *testing.T) {
	var buf bytes.Buffer
	st := store.New(reduce, counter{}, Logger[counter](LoggerConfig{Writer: &buf, Highlight: true}))

	st.Dispatch(store.Plain{Kind: "inc"})
	if buf.Len() == 0 {
		t.Fatalf("expected highlighted trace output")
	}
	if !strings.Contains(buf.String(), "inc") {
		t.Fatalf("expected action kind to survive highlighting, got %q", buf.String())
	}
}
