// ABOUTME: Line codec for the mnemnk host protocol payloads.
// ABOUTME: Decodes .IN payloads and encodes .OUT lines as compact JSON.

package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedInput indicates an input line whose payload cannot be decoded.
// The dispatcher logs and drops such lines; they never stop the loop.
var ErrMalformedInput = errors.New("malformed input")

// Context carries routing/session metadata attached to a data event.
// Agents that do not need it pass it through opaquely.
type Context struct {
	Ch   string         `json:"ch"`
	Vars map[string]any `json:"vars"`
}

// Data is one typed payload unit. The interpretation of Value is
// kind-specific and owned entirely by the consuming agent.
type Data struct {
	Kind  string `json:"kind"`
	Value any    `json:"value"`
}

// inPayload mirrors the raw shape of an .IN payload. Raw messages are kept
// so that missing keys can be told apart from null values.
type inPayload struct {
	Ctx  map[string]json.RawMessage `json:"ctx"`
	Data map[string]json.RawMessage `json:"data"`
}

// outPayload is the shape written after the .OUT command word.
type outPayload struct {
	Ctx  Context `json:"ctx"`
	Ch   string  `json:"ch"`
	Data Data    `json:"data"`
}

// DecodeInput parses a command line of the form "<cmd> <json-object>" into
// its context and data. The payload object must have the shape
// {"ctx": {"ch": string, "vars"?: object}, "data": {"kind": string, "value": any}}.
// Errors wrap ErrMalformedInput.
func DecodeInput(line string) (Context, Data, error) {
	_, payload, ok := strings.Cut(line, " ")
	if !ok {
		return Context{}, Data{}, fmt.Errorf("%w: no payload", ErrMalformedInput)
	}

	var p inPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return Context{}, Data{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if p.Ctx == nil || p.Data == nil {
		return Context{}, Data{}, fmt.Errorf("%w: missing ctx or data", ErrMalformedInput)
	}

	rawCh, ok := p.Ctx["ch"]
	if !ok {
		return Context{}, Data{}, fmt.Errorf("%w: missing ctx.ch", ErrMalformedInput)
	}
	var ctx Context
	if err := json.Unmarshal(rawCh, &ctx.Ch); err != nil {
		return Context{}, Data{}, fmt.Errorf("%w: ctx.ch: %v", ErrMalformedInput, err)
	}
	if rawVars, ok := p.Ctx["vars"]; ok {
		if err := json.Unmarshal(rawVars, &ctx.Vars); err != nil {
			return Context{}, Data{}, fmt.Errorf("%w: ctx.vars: %v", ErrMalformedInput, err)
		}
	}

	rawKind, ok := p.Data["kind"]
	if !ok {
		return Context{}, Data{}, fmt.Errorf("%w: missing data.kind", ErrMalformedInput)
	}
	var data Data
	if err := json.Unmarshal(rawKind, &data.Kind); err != nil {
		return Context{}, Data{}, fmt.Errorf("%w: data.kind: %v", ErrMalformedInput, err)
	}
	rawValue, ok := p.Data["value"]
	if !ok {
		return Context{}, Data{}, fmt.Errorf("%w: missing data.value", ErrMalformedInput)
	}
	if err := json.Unmarshal(rawValue, &data.Value); err != nil {
		return Context{}, Data{}, fmt.Errorf("%w: data.value: %v", ErrMalformedInput, err)
	}

	return ctx, data, nil
}

// EncodeOutput serializes one outbound event as a single ".OUT <json>" line
// without a trailing newline. encoding/json escapes control characters, so
// the result never contains embedded newlines. An error here means the
// caller handed over a value that is not JSON-serializable.
func EncodeOutput(ctx Context, ch string, data Data) (string, error) {
	raw, err := json.Marshal(outPayload{Ctx: ctx, Ch: ch, Data: data})
	if err != nil {
		return "", fmt.Errorf("encoding output payload: %w", err)
	}
	return ".OUT " + string(raw), nil
}
