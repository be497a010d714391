// Package slackbridge hosts the two concrete Slack agents.
//
// The Listener subscribes to channel messages over socket mode and emits
// them as .OUT events; its real work is the blocking socket-mode loop, so it
// owns the process main loop and runs the command dispatcher on a background
// goroutine. The Poster is input-driven: each .IN event becomes one
// chat.postMessage call.
//
// Slack API failures are collaborator errors in the sense of the host
// protocol: they are logged and absorbed at the call site (enrichment falls
// back to minimal placeholders, a failed post drops that one event) and are
// never surfaced as protocol errors.
package slackbridge
