// ABOUTME: Agent contract for mnemnk protocol agents.
// ABOUTME: One required input hook plus optional config and run-loop capabilities.

package agent

import (
	"io"
	"log/slog"

	"github.com/mnemnk/mnemnk-slack/internal/wire"
)

// Agent is implemented by every concrete agent hosted by this process.
type Agent interface {
	// ProcessInput reacts to one data event delivered via .IN. It may emit
	// zero or more events through the Writer as a side effect. A returned
	// error is logged by the dispatcher and never stops the loop.
	ProcessInput(ctx wire.Context, data wire.Data) error
}

// ConfigWatcher is implemented by agents that react to configuration
// updates. The hook runs after the store merge and receives only the
// partial update, not the full merged configuration. Agents that do not
// implement it get no-op behavior.
type ConfigWatcher interface {
	ProcessConfig(partial map[string]any) error
}

// Agents may additionally implement io.Closer; Close runs once after the
// dispatch loop stops, on .QUIT or end of input. Agents that implement
// Runner own their shutdown themselves.

// Runner is implemented by agents that own the process main loop instead of
// the default dispatch loop, typically because their work is driven by a
// blocking external event source. Implementations must still honor .CONFIG
// and .QUIT, usually by running d.Run(in) on a background goroutine.
type Runner interface {
	Run(d *Dispatcher, in io.Reader) error
}

// Env is everything an agent constructor receives from the entry glue.
type Env struct {
	Config *Store
	Out    *Writer
	Logger *slog.Logger
}
