// Package middleware provides ready-made store middleware.
package middleware

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/oklog/ulid/v2"

	"github.com/odvcencio/burrow/store"
)

// LoggerConfig configures the dispatch trace.
type LoggerConfig struct {
	// Writer receives trace lines. Defaults to io.Discard.
	Writer io.Writer

	// Highlight enables terminal syntax highlighting of the JSON dumps.
	Highlight bool

	// Style selects the chroma style used when Highlight is set.
	// Defaults to "monokai".
	Style string
}

// Logger traces every dispatch that reaches it: one ULID per entry so
// interleaved thunk traffic can be correlated, the action on the way in,
// and the resulting state on the way out.
func Logger[S any](cfg LoggerConfig) store.Middleware[S] {
	w := cfg.Writer
	if w == nil {
		w = io.Discard
	}
	style := cfg.Style
	if style == "" {
		style = "monokai"
	}
	var mu sync.Mutex
	return func(api store.API[S]) func(next store.Dispatcher) store.Dispatcher {
		return func(next store.Dispatcher) store.Dispatcher {
			return func(a store.Action) any {
				id := ulid.Make()
				mu.Lock()
				fmt.Fprintf(w, "dispatch %s -> %s\n", id, renderJSON(describeAction(a), cfg.Highlight, style))
				mu.Unlock()

				result := next(a)

				mu.Lock()
				fmt.Fprintf(w, "dispatch %s <- state %s\n", id, renderJSON(api.GetState(), cfg.Highlight, style))
				mu.Unlock()
				return result
			}
		}
	}
}

type actionRecord struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload,omitempty"`
}

func describeAction(a store.Action) any {
	switch v := a.(type) {
	case store.Plain:
		return actionRecord{Kind: v.Kind, Payload: v.Payload}
	default:
		return actionRecord{Kind: fmt.Sprintf("%T", a)}
	}
}

func renderJSON(v any, highlight bool, style string) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	if !highlight {
		return string(data)
	}
	return highlightJSON(string(data), style)
}

// highlightJSON falls back to the plain text on any highlighting
// trouble; the trace must never fail a dispatch.
func highlightJSON(src, styleName string) string {
	lexer := lexers.Get("json")
	if lexer == nil {
		return src
	}
	st := styles.Get(styleName)
	if st == nil {
		st = styles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		return src
	}
	tokens, err := lexer.Tokenise(nil, src)
	if err != nil {
		return src
	}
	var sb strings.Builder
	if err := formatter.Format(&sb, st, tokens); err != nil {
		return src
	}
	return strings.TrimRight(sb.String(), "\n")
}
