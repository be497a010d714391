// ABOUTME: Output writer for .OUT protocol events.
// ABOUTME: One atomic line per event, flushed immediately, safe for concurrent use.

package agent

import (
	"fmt"
	"io"
	"sync"

	"github.com/mnemnk/mnemnk-slack/internal/wire"
)

// Writer serializes outbound events onto the output stream. The parent
// reads stdout as a live protocol, so every event goes out as a single
// write with no cross-call buffering (os.Stdout is unbuffered in Go).
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter wraps an output stream, normally os.Stdout.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Emit encodes and writes one .OUT line. An encoding error means the caller
// produced a value that is not JSON-serializable; a write error means the
// host side of the pipe is gone.
func (w *Writer) Emit(ctx wire.Context, ch string, data wire.Data) error {
	line, err := wire.EncodeOutput(ctx, ch, data)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := io.WriteString(w.out, line+"\n"); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
