// Package agent implements the mnemnk host protocol runtime: the command
// loop over standard input, the configuration store, and the output writer.
//
// # Protocol
//
// The host streams newline-delimited UTF-8 commands on the agent's stdin:
//
//	.CONFIG <json-object>   merge partial configuration
//	.QUIT                   request graceful shutdown
//	.IN <json-object>       deliver one data event
//
// and reads produced events on stdout:
//
//	.OUT <json-object>
//
// Unknown lines are ignored. Malformed payloads are logged and dropped;
// nothing short of a construction failure ever terminates the process.
// Go I/O is byte-oriented and encoding/json emits UTF-8, so the streams are
// UTF-8 regardless of host locale without any reconfiguration.
//
// # Agents
//
// A concrete agent implements Agent and optionally ConfigWatcher. The entry
// glue (Run) merges the agent's declared defaults with startup overrides,
// constructs the agent, and drives the dispatch loop:
//
//	agent.Run(agent.Options{
//	    Name:     "my-agent",
//	    Defaults: map[string]any{"channel_name": ""},
//	    New:      func(env *agent.Env) (agent.Agent, error) { ... },
//	})
//
// Agents whose real work is waiting on an external event source implement
// Runner and own the main loop themselves. They must keep honoring .CONFIG
// and .QUIT by running the dispatcher on a background goroutine while the
// event source blocks the foreground; see the listener in
// internal/slackbridge for the reference shape.
//
// # Thread safety
//
// The Store is safe for concurrent use: the dispatcher goroutine merges
// updates while an event goroutine reads. All other state is owned by
// whichever goroutine is executing.
package agent
