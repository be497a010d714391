// ABOUTME: Listener agent: subscribes to Slack messages over socket mode.
// ABOUTME: Owns the main loop; the command dispatcher runs on a background goroutine.

package slackbridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/mnemnk/mnemnk-slack/internal/agent"
	"github.com/mnemnk/mnemnk-slack/internal/dedupe"
	"github.com/mnemnk/mnemnk-slack/internal/wire"
)

const (
	// shutdownGrace bounds how long in-flight event handling may run after
	// .QUIT before the process is forced out. The socket-mode client does
	// not reliably release its run loop on context cancellation, so the
	// forced exit is the documented escape hatch, not an error path.
	shutdownGrace = time.Second

	// Socket mode redelivers events that are not acked within its timeout;
	// the seen-set keeps redeliveries from producing duplicate .OUT events.
	dedupeTTL     = 10 * time.Minute
	dedupeMaxSize = 4096
)

// ListenerDefaults is the listener's declared default configuration.
func ListenerDefaults() map[string]any {
	return map[string]any{
		"channel_name":    "",
		"include_replies": false,
	}
}

// Listener emits Slack channel messages as .OUT events. When channel_name
// is empty it listens to every channel the bot can see.
type Listener struct {
	cfg    *agent.Store
	out    *agent.Writer
	logger *slog.Logger
	client *Client
	seen   *dedupe.Cache

	events    chan socketmode.Event
	runSource func(ctx context.Context) error
	ack       func(req socketmode.Request)

	grace time.Duration
	exit  func(code int)

	mu        sync.RWMutex
	channelID string
}

// NewListener validates credentials, connects the socket-mode client, and
// resolves the configured channel. A missing token fails construction and
// thereby the process; a channel that cannot be resolved does not.
func NewListener(env *agent.Env, creds Credentials) (*Listener, error) {
	if creds.BotToken == "" {
		return nil, errors.New("SLACK_BOT_TOKEN not found in environment or settings")
	}
	if creds.AppToken == "" {
		return nil, errors.New("SLACK_APP_TOKEN not found in environment or settings")
	}

	api := slack.New(creds.BotToken, slack.OptionAppLevelToken(creds.AppToken))
	socket := socketmode.New(api)

	l := &Listener{
		cfg:       env.Config,
		out:       env.Out,
		logger:    env.Logger,
		client:    newClient(api, env.Logger),
		seen:      dedupe.New(dedupeTTL, dedupeMaxSize),
		events:    socket.Events,
		runSource: socket.RunContext,
		ack:       func(req socketmode.Request) { socket.Ack(req) },
		grace:     shutdownGrace,
		exit:      os.Exit,
	}
	l.resolveChannel()
	return l, nil
}

// ProcessInput is a no-op: the listener's work is driven by the Slack event
// source, not by .IN events.
func (l *Listener) ProcessInput(wire.Context, wire.Data) error { return nil }

// ProcessConfig re-resolves the channel id when channel_name changes.
func (l *Listener) ProcessConfig(partial map[string]any) error {
	if _, ok := partial["channel_name"]; ok {
		l.resolveChannel()
	}
	return nil
}

// resolveChannel maps the configured channel name to an id. Resolution
// failures are absorbed: the listener keeps running unfiltered rather than
// taking the process down over a collaborator error.
func (l *Listener) resolveChannel() {
	l.setChannelID("")

	name := l.cfg.String("channel_name")
	if name == "" {
		return
	}

	id, err := l.client.ResolveChannelID(name)
	if err != nil {
		l.logger.Error("error fetching channels", "error", err)
		return
	}
	if id == "" {
		l.logger.Warn("could not find channel", "channel", name)
		return
	}
	l.setChannelID(id)
	l.logger.Debug("resolved channel name", "channel", name, "id", id)
}

func (l *Listener) setChannelID(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.channelID = id
}

func (l *Listener) currentChannelID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.channelID
}

// Run blocks on the socket-mode connection while the command loop reads
// stdin on a background goroutine. .QUIT (or stdin EOF) cancels the event
// source; if it has not released the foreground within the grace period the
// process is forced out with exit code 0.
func (l *Listener) Run(d *agent.Dispatcher, in io.Reader) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := d.Run(in); err != nil {
			l.logger.Error("command loop failed", "error", err)
		}
		l.logger.Debug("shutdown requested, stopping event source")
		cancel()
		time.Sleep(l.grace)
		l.exit(0)
	}()

	go l.consumeEvents(ctx)

	channel := l.cfg.String("channel_name")
	if channel == "" {
		channel = "ALL"
	}
	l.logger.Debug("starting slack listener", "channel", channel)

	if err := l.runSource(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("socket mode connection: %w", err)
	}
	return nil
}

func (l *Listener) consumeEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-l.events:
			if !ok {
				return
			}
			l.handleSocketEvent(evt)
		}
	}
}

func (l *Listener) handleSocketEvent(evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnected:
		l.logger.Debug("connected to slack")
	case socketmode.EventTypeConnectionError:
		l.logger.Warn("slack connection error", "error", evt.Data)
	case socketmode.EventTypeEventsAPI:
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		// Ack first: handling involves Web API calls and must not delay the
		// ack past the redelivery timeout.
		if evt.Request != nil {
			l.ack(*evt.Request)
		}
		if ev, ok := apiEvent.InnerEvent.Data.(*slackevents.MessageEvent); ok {
			l.handleMessage(ev)
		}
	}
}

// handleMessage filters one message event and emits it as an .OUT envelope.
func (l *Listener) handleMessage(ev *slackevents.MessageEvent) {
	if id := l.currentChannelID(); id != "" && ev.Channel != id {
		return
	}
	if ev.ThreadTimeStamp != "" && !l.cfg.Bool("include_replies") {
		return
	}
	if l.seen.CheckAndMark(ev.Channel + ":" + ev.TimeStamp) {
		l.logger.Debug("duplicate event ignored", "channel", ev.Channel, "ts", ev.TimeStamp)
		return
	}

	message := map[string]any{
		"text":         ev.Text,
		"blocks":       ev.Blocks.BlockSet,
		"files":        ev.Files,
		"ts":           ev.TimeStamp,
		"thread_ts":    ev.ThreadTimeStamp,
		"user_info":    l.client.UserInfo(ev.User),
		"channel_info": l.client.ChannelInfo(ev.Channel),
		"team":         ev.SourceTeam,
	}

	if err := l.out.Emit(wire.Context{}, "data", wire.Data{Kind: "object", Value: message}); err != nil {
		l.logger.Error("error emitting message event", "error", err)
	}
}
