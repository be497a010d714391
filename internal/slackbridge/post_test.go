// ABOUTME: Tests for the poster agent.
// ABOUTME: Covers message building per value shape and API error absorption.

package slackbridge

import (
	"io"
	"log/slog"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemnk/mnemnk-slack/internal/agent"
	"github.com/mnemnk/mnemnk-slack/internal/wire"
)

func testPoster(t *testing.T, api slackAPI, config map[string]any) *Poster {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := agent.NewStore(PosterDefaults())
	store.Merge(config)

	return &Poster{
		cfg:    store,
		logger: logger,
		client: newClient(api, logger),
	}
}

func TestNewPoster_MissingToken(t *testing.T) {
	env := &agent.Env{
		Config: agent.NewStore(PosterDefaults()),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	_, err := NewPoster(env, Credentials{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SLACK_BOT_TOKEN")
}

func TestBuildMessage_String(t *testing.T) {
	p := testPoster(t, &fakeSlackAPI{}, nil)

	msg := p.buildMessage("plain text")
	assert.Equal(t, "plain text", msg.Text)
	assert.Empty(t, msg.ThreadTS)
	assert.Empty(t, msg.Blocks.BlockSet)
}

func TestBuildMessage_StringWithMarkdownRendering(t *testing.T) {
	p := testPoster(t, &fakeSlackAPI{}, map[string]any{"render_markdown": true})

	msg := p.buildMessage("some **bold** text")
	assert.Equal(t, "some *bold* text", msg.Text)
}

func TestBuildMessage_Object(t *testing.T) {
	p := testPoster(t, &fakeSlackAPI{}, nil)

	msg := p.buildMessage(map[string]any{
		"text":      "release is out",
		"thread_ts": "1700000000.000100",
		"blocks": []any{
			map[string]any{
				"type": "section",
				"text": map[string]any{"type": "mrkdwn", "text": "release is out"},
			},
		},
	})

	assert.Equal(t, "release is out", msg.Text)
	assert.Equal(t, "1700000000.000100", msg.ThreadTS)
	require.Len(t, msg.Blocks.BlockSet, 1)
}

func TestBuildMessage_ObjectWithBadBlocks(t *testing.T) {
	p := testPoster(t, &fakeSlackAPI{}, nil)

	// Undecodable blocks are dropped; the text still goes out.
	msg := p.buildMessage(map[string]any{
		"text":   "still here",
		"blocks": "not a block list",
	})
	assert.Equal(t, "still here", msg.Text)
	assert.Empty(t, msg.Blocks.BlockSet)
}

func TestBuildMessage_List(t *testing.T) {
	p := testPoster(t, &fakeSlackAPI{}, nil)

	msg := p.buildMessage([]any{"one", "two", float64(3)})
	assert.Equal(t, "one\ntwo\n3", msg.Text)
}

func TestBuildMessage_FallbackIsFencedJSON(t *testing.T) {
	p := testPoster(t, &fakeSlackAPI{}, nil)

	msg := p.buildMessage(float64(42))
	assert.Equal(t, "```42```", msg.Text)
}

func TestProcessInput_PostsToResolvedChannel(t *testing.T) {
	api := &fakeSlackAPI{}
	p := testPoster(t, api, nil)
	p.channelID = "C100"

	err := p.ProcessInput(wire.Context{}, wire.Data{Kind: "text", Value: "hi"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C100"}, api.posted)
}

func TestProcessInput_NoChannelDropsEvent(t *testing.T) {
	api := &fakeSlackAPI{}
	p := testPoster(t, api, nil)

	err := p.ProcessInput(wire.Context{}, wire.Data{Kind: "text", Value: "hi"})
	require.NoError(t, err)
	assert.Empty(t, api.posted)
}

func TestProcessInput_APIErrorAbsorbed(t *testing.T) {
	api := &fakeSlackAPI{postErr: errAPIDown}
	p := testPoster(t, api, nil)
	p.channelID = "C100"

	// A failed post is logged and dropped, never escalated.
	err := p.ProcessInput(wire.Context{}, wire.Data{Kind: "text", Value: "hi"})
	assert.NoError(t, err)
}

func TestPosterProcessConfig_ReresolvesChannel(t *testing.T) {
	api := &fakeSlackAPI{
		pages: [][]slack.Channel{{namedChannel("C300", "releases")}},
	}
	p := testPoster(t, api, nil)

	p.cfg.Merge(map[string]any{"channel_name": "releases"})
	require.NoError(t, p.ProcessConfig(map[string]any{"channel_name": "releases"}))

	p.mu.RLock()
	defer p.mu.RUnlock()
	assert.Equal(t, "C300", p.channelID)
}
