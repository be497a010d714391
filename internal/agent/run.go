// ABOUTME: Process entry glue: merges defaults with startup overrides and runs the loop.
// ABOUTME: Construction failure aborts before the loop; loop exit is the normal path.

package agent

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Options configures one agent process.
type Options struct {
	// Name identifies the agent in logs.
	Name string

	// Defaults is the agent type's declared default configuration. It is
	// deep-copied; the store never mutates it.
	Defaults map[string]any

	// Overlay is an optional settings-file layer merged on top of the
	// defaults, below the startup overrides.
	Overlay map[string]any

	// Overrides is the -c flag value: a JSON object of configuration
	// overrides merged last. A parse failure is logged and startup
	// continues, matching the host's fire-and-forget config semantics.
	Overrides string

	// New constructs the agent. A returned error aborts the process
	// before the command loop starts.
	New func(env *Env) (Agent, error)

	// Logger defaults to a text handler on stderr.
	Logger *slog.Logger

	// In and Out default to os.Stdin and os.Stdout. Overridable for tests.
	In  io.Reader
	Out io.Writer
}

// Run builds the merged configuration, constructs the agent, and drives its
// main loop until .QUIT or end of input. Returns nil on a normal shutdown.
func Run(opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	logger = logger.With("agent", opts.Name, "instance", uuid.NewString())

	config := NewStore(opts.Defaults)
	config.Merge(opts.Overlay)
	if opts.Overrides != "" {
		var overrides map[string]any
		if err := json.Unmarshal([]byte(opts.Overrides), &overrides); err != nil {
			logger.Error("error parsing config overrides", "error", err)
		} else {
			config.Merge(overrides)
		}
	}

	in := opts.In
	if in == nil {
		in = os.Stdin
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	ag, err := opts.New(&Env{
		Config: config,
		Out:    NewWriter(out),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("constructing agent: %w", err)
	}

	d := NewDispatcher(ag, config, logger)
	if runner, ok := ag.(Runner); ok {
		return runner.Run(d, in)
	}

	err = d.Run(in)
	if closer, ok := ag.(io.Closer); ok {
		if cerr := closer.Close(); cerr != nil {
			logger.Error("error closing agent", "error", cerr)
		}
	}
	return err
}
