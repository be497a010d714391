// ABOUTME: Thin wrapper around the Slack Web API used by both agents.
// ABOUTME: Channel-name resolution, enrichment lookups, and message posting.

package slackbridge

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
)

// Credentials carries the Slack tokens resolved by the entry point.
// Environment variables win over settings-file values.
type Credentials struct {
	BotToken string
	AppToken string
}

// slackAPI is the subset of the Slack Web API client the agents use.
// Tests substitute a fake.
type slackAPI interface {
	GetConversations(params *slack.GetConversationsParameters) ([]slack.Channel, string, error)
	GetUserInfo(user string) (*slack.User, error)
	GetConversationInfo(input *slack.GetConversationInfoInput) (*slack.Channel, error)
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

// Client wraps the Slack Web API behind the operations the agents need.
type Client struct {
	api    slackAPI
	logger *slog.Logger
}

func newClient(api slackAPI, logger *slog.Logger) *Client {
	return &Client{api: api, logger: logger}
}

// ResolveChannelID finds the conversation id for a channel name, paging
// through public and private channels. Returns "" when no channel matches.
func (c *Client) ResolveChannelID(name string) (string, error) {
	params := &slack.GetConversationsParameters{
		Types: []string{"public_channel", "private_channel"},
		Limit: 200,
	}
	for {
		channels, cursor, err := c.api.GetConversations(params)
		if err != nil {
			return "", fmt.Errorf("fetching channels: %w", err)
		}
		for _, ch := range channels {
			if ch.Name == name {
				return ch.ID, nil
			}
		}
		if cursor == "" {
			return "", nil
		}
		params.Cursor = cursor
	}
}

// UserInfo fetches profile data for a user id. On failure the error is
// logged and a minimal {"id": ...} placeholder is returned; enrichment never
// fails a message.
func (c *Client) UserInfo(userID string) any {
	if userID == "" {
		return map[string]any{}
	}
	user, err := c.api.GetUserInfo(userID)
	if err != nil {
		c.logger.Error("error fetching user info", "user", userID, "error", err)
		return map[string]any{"id": userID}
	}
	return user
}

// ChannelInfo fetches conversation data for a channel id, with the same
// placeholder fallback as UserInfo.
func (c *Client) ChannelInfo(channelID string) any {
	if channelID == "" {
		return map[string]any{}
	}
	channel, err := c.api.GetConversationInfo(&slack.GetConversationInfoInput{ChannelID: channelID})
	if err != nil {
		c.logger.Error("error fetching channel info", "channel", channelID, "error", err)
		return map[string]any{"id": channelID}
	}
	return channel
}

// OutgoingMessage is one message ready for chat.postMessage.
type OutgoingMessage struct {
	Text        string
	Blocks      slack.Blocks
	Attachments []slack.Attachment
	ThreadTS    string
}

// PostMessage delivers one message to a channel with link unfurling on.
func (c *Client) PostMessage(channelID string, msg *OutgoingMessage) error {
	opts := []slack.MsgOption{
		slack.MsgOptionText(msg.Text, false),
		slack.MsgOptionEnableLinkUnfurl(),
	}
	if msg.ThreadTS != "" {
		opts = append(opts, slack.MsgOptionTS(msg.ThreadTS))
	}
	if len(msg.Blocks.BlockSet) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(msg.Blocks.BlockSet...))
	}
	if len(msg.Attachments) > 0 {
		opts = append(opts, slack.MsgOptionAttachments(msg.Attachments...))
	}

	_, ts, err := c.api.PostMessage(channelID, opts...)
	if err != nil {
		return fmt.Errorf("posting message: %w", err)
	}
	c.logger.Debug("message sent", "channel", channelID, "ts", ts)
	return nil
}

// decodeJSONValue re-marshals an envelope value (maps/lists from the wire
// codec) into a typed Slack structure.
func decodeJSONValue(value any, into any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, into)
}
