// ABOUTME: Command dispatcher for the mnemnk host protocol.
// ABOUTME: Reads newline-delimited commands, classifies by prefix, routes to hooks.

package agent

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mnemnk/mnemnk-slack/internal/wire"
)

// Command words of the host protocol. Classification is by exact or prefix
// match, most specific first; anything else is ignored.
const (
	cmdQuit   = ".QUIT"
	cmdConfig = ".CONFIG "
	cmdInput  = ".IN "
)

// maxLineSize bounds a single command line. Payloads are JSON objects and
// can carry nested structures, so this is generous.
const maxLineSize = 4 * 1024 * 1024

// Dispatcher drives the command loop for one agent. It owns all writes to
// the configuration store; agents only read it.
type Dispatcher struct {
	agent  Agent
	config *Store
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher routing commands to ag.
func NewDispatcher(ag Agent, config *Store, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		agent:  ag,
		config: config,
		logger: logger,
	}
}

// Run reads commands from in until .QUIT or end of stream. One bad line
// never stops the loop; only a read failure is returned as an error.
func (d *Dispatcher) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		if quit := d.Dispatch(strings.TrimSpace(scanner.Text())); quit {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading commands: %w", err)
	}
	return nil
}

// Dispatch classifies and handles a single line. It reports whether the
// loop should stop (.QUIT received).
func (d *Dispatcher) Dispatch(line string) (quit bool) {
	switch {
	case line == cmdQuit:
		d.logger.Debug("quit command received")
		return true
	case strings.HasPrefix(line, cmdConfig):
		d.handleConfig(strings.TrimPrefix(line, cmdConfig))
	case strings.HasPrefix(line, cmdInput):
		d.handleInput(line)
	}
	return false
}

// handleConfig merges a partial configuration update and notifies the agent
// with exactly the delta. A payload that does not parse as a JSON object is
// logged and dropped; the loop keeps running.
func (d *Dispatcher) handleConfig(payload string) {
	var partial map[string]any
	if err := json.Unmarshal([]byte(payload), &partial); err != nil {
		d.logger.Error("error processing config", "error", err)
		return
	}
	if partial == nil {
		d.logger.Error("error processing config", "error", "payload is not an object")
		return
	}

	d.config.Merge(partial)

	watcher, ok := d.agent.(ConfigWatcher)
	if !ok {
		return
	}
	if err := d.safely(func() error { return watcher.ProcessConfig(partial) }); err != nil {
		d.logger.Error("error processing config", "error", err)
	}
}

// handleInput decodes one data event and hands it to the agent. Malformed
// lines are dropped, not retried.
func (d *Dispatcher) handleInput(line string) {
	ctx, data, err := wire.DecodeInput(line)
	if err != nil {
		d.logger.Error("error processing input", "error", err)
		return
	}
	if err := d.safely(func() error { return d.agent.ProcessInput(ctx, data) }); err != nil {
		d.logger.Error("error processing input", "error", err, "kind", data.Kind)
	}
}

// safely runs a hook, converting a panic into an error so that one bad
// input cannot kill the process.
func (d *Dispatcher) safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panicked: %v", r)
		}
	}()
	return fn()
}
