// ABOUTME: Tests for the output writer.
// ABOUTME: Covers the exact line shape and interleaving under concurrency.

package agent

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemnk/mnemnk-slack/internal/wire"
)

func TestWriter_EmitSingleLine(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	err := w.Emit(wire.Context{}, "data", wire.Data{Kind: "object", Value: map[string]any{"x": 1}})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 1)
	require.True(t, strings.HasPrefix(lines[0], ".OUT "))

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[0], ".OUT ")), &got))
	assert.Equal(t, map[string]any{
		"ctx":  map[string]any{"ch": "", "vars": nil},
		"ch":   "data",
		"data": map[string]any{"kind": "object", "value": map[string]any{"x": float64(1)}},
	}, got)
}

func TestWriter_EmitUnserializable(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	err := w.Emit(wire.Context{}, "data", wire.Data{Kind: "object", Value: make(chan int)})
	assert.Error(t, err)
}

func TestWriter_ConcurrentEmitsDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Emit(wire.Context{}, "data", wire.Data{Kind: "text", Value: strings.Repeat("x", 256)})
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 20)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, ".OUT "), "line = %q", line)
		var got map[string]any
		assert.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, ".OUT ")), &got))
	}
}
