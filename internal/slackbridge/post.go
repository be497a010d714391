// ABOUTME: Poster agent: turns .IN events into chat.postMessage calls.
// ABOUTME: Message shape depends on the envelope value; API failures drop the event.

package slackbridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/slack-go/slack"

	"github.com/mnemnk/mnemnk-slack/internal/agent"
	"github.com/mnemnk/mnemnk-slack/internal/markdown"
	"github.com/mnemnk/mnemnk-slack/internal/wire"
)

// PosterDefaults is the poster's declared default configuration.
func PosterDefaults() map[string]any {
	return map[string]any{
		"channel_name":    "",
		"render_markdown": false,
	}
}

// Poster posts each incoming data event to the configured Slack channel.
// It uses the baseline single-goroutine loop: one event is fully posted
// before the next line is read.
type Poster struct {
	cfg    *agent.Store
	logger *slog.Logger
	client *Client

	mu        sync.RWMutex
	channelID string
}

// NewPoster validates the bot token and resolves the configured channel.
func NewPoster(env *agent.Env, creds Credentials) (*Poster, error) {
	if creds.BotToken == "" {
		return nil, errors.New("SLACK_BOT_TOKEN not found in environment or settings")
	}

	api := slack.New(creds.BotToken)
	p := &Poster{
		cfg:    env.Config,
		logger: env.Logger,
		client: newClient(api, env.Logger),
	}
	p.resolveChannel()
	return p, nil
}

// ProcessConfig re-resolves the channel id when channel_name changes.
func (p *Poster) ProcessConfig(partial map[string]any) error {
	if _, ok := partial["channel_name"]; ok {
		p.resolveChannel()
	}
	return nil
}

// ProcessInput posts one event. A missing channel or a Slack API failure is
// logged and the event dropped; neither is a protocol error.
func (p *Poster) ProcessInput(_ wire.Context, data wire.Data) error {
	p.mu.RLock()
	channelID := p.channelID
	p.mu.RUnlock()

	if channelID == "" {
		p.logger.Error("no channel resolved, cannot send message")
		return nil
	}

	msg := p.buildMessage(data.Value)
	if err := p.client.PostMessage(channelID, msg); err != nil {
		p.logger.Error("error sending message", "error", err)
	}
	return nil
}

func (p *Poster) resolveChannel() {
	p.mu.Lock()
	p.channelID = ""
	p.mu.Unlock()

	name := p.cfg.String("channel_name")
	if name == "" {
		return
	}

	id, err := p.client.ResolveChannelID(name)
	if err != nil {
		p.logger.Error("error fetching channels", "error", err)
		return
	}
	if id == "" {
		p.logger.Warn("could not find channel", "channel", name)
		return
	}

	p.mu.Lock()
	p.channelID = id
	p.mu.Unlock()
	p.logger.Debug("resolved channel name", "channel", name, "id", id)
}

// buildMessage maps an envelope value onto an outgoing message:
//   - string: the message text, optionally rendered from Markdown to mrkdwn
//   - object: text plus optional blocks, attachments, and thread_ts
//   - list: one line per item
//   - anything else: pretty-printed JSON in a code fence
func (p *Poster) buildMessage(value any) *OutgoingMessage {
	msg := &OutgoingMessage{}

	switch v := value.(type) {
	case string:
		msg.Text = v
		if p.cfg.Bool("render_markdown") {
			msg.Text = markdown.ToMrkdwn(v)
		}

	case map[string]any:
		if text, ok := v["text"].(string); ok {
			msg.Text = text
		}
		if rawBlocks, ok := v["blocks"]; ok {
			if err := decodeJSONValue(rawBlocks, &msg.Blocks); err != nil {
				p.logger.Warn("ignoring undecodable blocks", "error", err)
				msg.Blocks = slack.Blocks{}
			}
		}
		if rawAttachments, ok := v["attachments"]; ok {
			if err := decodeJSONValue(rawAttachments, &msg.Attachments); err != nil {
				p.logger.Warn("ignoring undecodable attachments", "error", err)
				msg.Attachments = nil
			}
		}
		if threadTS, ok := v["thread_ts"].(string); ok {
			msg.ThreadTS = threadTS
		}

	case []any:
		lines := make([]string, len(v))
		for i, item := range v {
			lines[i] = fmt.Sprint(item)
		}
		msg.Text = strings.Join(lines, "\n")

	default:
		raw, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			msg.Text = fmt.Sprint(v)
		} else {
			msg.Text = "```" + string(raw) + "```"
		}
	}

	return msg
}
