// ABOUTME: Entry point for the mnemnk-slack-post agent
// ABOUTME: Posts incoming .IN events to a Slack channel

package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/mnemnk/mnemnk-slack/internal/agent"
	"github.com/mnemnk/mnemnk-slack/internal/settings"
	"github.com/mnemnk/mnemnk-slack/internal/slackbridge"
)

func main() {
	var configJSON, settingsPath string
	flag.StringVar(&configJSON, "c", "", "configuration overrides as a JSON object")
	flag.StringVar(&configJSON, "config", "", "configuration overrides as a JSON object")
	flag.StringVar(&settingsPath, "settings", settings.DefaultPath(), "path to the settings file")
	flag.Parse()

	if err := run(configJSON, settingsPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configJSON, settingsPath string) error {
	_ = godotenv.Load()

	st, err := settings.Load(settingsPath)
	if err != nil {
		return err
	}

	logger := setupLogger(st.Logging.Level)

	creds := slackbridge.Credentials{
		BotToken: firstNonEmpty(os.Getenv("SLACK_BOT_TOKEN"), st.Slack.BotToken),
	}

	green := color.New(color.FgGreen)
	green.Fprint(os.Stderr, "▶ ")
	fmt.Fprintln(os.Stderr, "mnemnk-slack-post ready")

	return agent.Run(agent.Options{
		Name:      "mnemnk-slack-post",
		Defaults:  slackbridge.PosterDefaults(),
		Overlay:   st.Agent,
		Overrides: configJSON,
		Logger:    logger,
		New: func(env *agent.Env) (agent.Agent, error) {
			return slackbridge.NewPoster(env, creds)
		},
	})
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
