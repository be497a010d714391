// ABOUTME: Tests for the command dispatcher.
// ABOUTME: Covers classification, error tolerance, and quit handling.

package agent

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemnk/mnemnk-slack/internal/wire"
)

// recordingAgent records every hook invocation and can be told to fail.
type recordingAgent struct {
	inputs   []wire.Data
	contexts []wire.Context
	configs  []map[string]any

	inputErr error
	panicOn  string // panic when data.Kind matches
}

func (a *recordingAgent) ProcessInput(ctx wire.Context, data wire.Data) error {
	if a.panicOn != "" && data.Kind == a.panicOn {
		panic("boom")
	}
	a.contexts = append(a.contexts, ctx)
	a.inputs = append(a.inputs, data)
	return a.inputErr
}

func (a *recordingAgent) ProcessConfig(partial map[string]any) error {
	a.configs = append(a.configs, partial)
	return nil
}

func testDispatcher(t *testing.T) (*Dispatcher, *recordingAgent, *Store) {
	t.Helper()
	ag := &recordingAgent{}
	store := NewStore(map[string]any{"channel_name": ""})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDispatcher(ag, store, logger), ag, store
}

func TestDispatcher_InputRoutedToAgent(t *testing.T) {
	d, ag, _ := testDispatcher(t)

	quit := d.Dispatch(`.IN {"ctx":{"ch":"main"},"data":{"kind":"text","value":"hi"}}`)
	assert.False(t, quit)

	require.Len(t, ag.inputs, 1)
	assert.Equal(t, "main", ag.contexts[0].Ch)
	assert.Equal(t, wire.Data{Kind: "text", Value: "hi"}, ag.inputs[0])
}

func TestDispatcher_ConfigMergedAndDeltaDelivered(t *testing.T) {
	d, ag, store := testDispatcher(t)

	d.Dispatch(`.CONFIG {"a":1}`)
	d.Dispatch(`.CONFIG {"b":2}`)
	d.Dispatch(`.CONFIG {"a":3}`)

	snap := store.Snapshot()
	assert.Equal(t, float64(3), snap["a"])
	assert.Equal(t, float64(2), snap["b"])

	// The hook receives only each delta, never the merged configuration.
	require.Len(t, ag.configs, 3)
	assert.Equal(t, map[string]any{"a": float64(1)}, ag.configs[0])
	assert.Equal(t, map[string]any{"b": float64(2)}, ag.configs[1])
	assert.Equal(t, map[string]any{"a": float64(3)}, ag.configs[2])
}

func TestDispatcher_MalformedLinesDropped(t *testing.T) {
	d, ag, store := testDispatcher(t)

	d.Dispatch(`.IN not-json`)
	d.Dispatch(`.IN {"ctx":{"ch":""},"data":{"kind":"text"}}`)
	d.Dispatch(`.CONFIG not-json`)
	d.Dispatch(`.CONFIG [1,2]`)
	d.Dispatch(`.CONFIG null`)
	d.Dispatch(`random noise`)

	assert.Empty(t, ag.inputs)
	assert.Empty(t, ag.configs)
	assert.Equal(t, map[string]any{"channel_name": ""}, store.Snapshot())

	// The loop is still healthy: a well-formed line goes through.
	d.Dispatch(`.IN {"ctx":{"ch":""},"data":{"kind":"text","value":"ok"}}`)
	require.Len(t, ag.inputs, 1)
	assert.Equal(t, "ok", ag.inputs[0].Value)
}

func TestDispatcher_HookErrorDoesNotStopLoop(t *testing.T) {
	d, ag, _ := testDispatcher(t)
	ag.inputErr = errors.New("downstream unavailable")

	quit := d.Dispatch(`.IN {"ctx":{"ch":""},"data":{"kind":"text","value":"x"}}`)
	assert.False(t, quit)
	assert.Len(t, ag.inputs, 1)
}

func TestDispatcher_HookPanicDoesNotStopLoop(t *testing.T) {
	d, ag, _ := testDispatcher(t)
	ag.panicOn = "bad"

	assert.NotPanics(t, func() {
		d.Dispatch(`.IN {"ctx":{"ch":""},"data":{"kind":"bad","value":"x"}}`)
	})

	d.Dispatch(`.IN {"ctx":{"ch":""},"data":{"kind":"text","value":"x"}}`)
	assert.Len(t, ag.inputs, 1)
}

func TestDispatcher_RunStopsOnQuit(t *testing.T) {
	d, ag, _ := testDispatcher(t)

	in := strings.NewReader(strings.Join([]string{
		`.IN {"ctx":{"ch":""},"data":{"kind":"text","value":"before"}}`,
		`.QUIT`,
		`.IN {"ctx":{"ch":""},"data":{"kind":"text","value":"after"}}`,
	}, "\n") + "\n")

	require.NoError(t, d.Run(in))

	// Nothing after .QUIT is processed.
	require.Len(t, ag.inputs, 1)
	assert.Equal(t, "before", ag.inputs[0].Value)
}

func TestDispatcher_RunStopsOnEOF(t *testing.T) {
	d, ag, _ := testDispatcher(t)

	in := strings.NewReader(`.IN {"ctx":{"ch":""},"data":{"kind":"text","value":"only"}}` + "\n")
	require.NoError(t, d.Run(in))
	assert.Len(t, ag.inputs, 1)
}

// bareAgent implements only the required hook.
type bareAgent struct{ calls int }

func (a *bareAgent) ProcessInput(wire.Context, wire.Data) error {
	a.calls++
	return nil
}

func TestDispatcher_ConfigWatcherOptional(t *testing.T) {
	ag := &bareAgent{}
	store := NewStore(nil)
	d := NewDispatcher(ag, store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// Merging still works for agents without a config hook.
	d.Dispatch(`.CONFIG {"a":1}`)
	assert.Equal(t, map[string]any{"a": float64(1)}, store.Snapshot())
}
