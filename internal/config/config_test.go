package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/posthog-digest/internal/domain"
)

// setRequiredEnv sets the minimum environment for a valid configuration.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("POSTHOG_API_KEY", "phx_test")
	t.Setenv("POSTHOG_REGION", "")
	t.Setenv("DISCORD_BOT_TOKEN", "bot-token")
	t.Setenv("DISCORD_USER_ID", "42")
	t.Setenv("POSTHOG_PROJECTS", "")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "phx_test", cfg.PostHogAPIKey)
	assert.Equal(t, "eu", cfg.PostHogRegion, "region defaults to eu")
	assert.Equal(t, "bot-token", cfg.DiscordBotToken)
	assert.Equal(t, "42", cfg.DiscordUserID)
	assert.Empty(t, cfg.Projects)
}

func TestLoad_MissingRequiredKeys(t *testing.T) {
	testCases := []struct {
		name   string
		unset  string
		errMsg string
	}{
		{name: "missing API key", unset: "POSTHOG_API_KEY", errMsg: "POSTHOG_API_KEY is required"},
		{name: "missing bot token", unset: "DISCORD_BOT_TOKEN", errMsg: "DISCORD_BOT_TOKEN is required"},
		{name: "missing user id", unset: "DISCORD_USER_ID", errMsg: "DISCORD_USER_ID is required"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tc.unset, "")

			_, err := Load()
			assert.ErrorContains(t, err, tc.errMsg)
		})
	}
}

func TestLoad_InvalidRegion(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POSTHOG_REGION", "apac")

	_, err := Load()
	assert.ErrorContains(t, err, "POSTHOG_REGION")
}

func TestLoad_Projects(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POSTHOG_PROJECTS", `[
		{"name": "alpha", "projectId": 123, "color": 3066993, "customEvents": ["signup"]},
		{"name": "beta", "projectId": "456"}
	]`)

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.Projects, 2)

	// Numeric and string project IDs are both accepted.
	assert.Equal(t, domain.Project{Name: "alpha", ProjectID: "123", Color: 3066993, CustomEvents: []string{"signup"}}, cfg.Projects[0])
	// Color falls back to the default.
	assert.Equal(t, domain.Project{Name: "beta", ProjectID: "456", Color: domain.DefaultColor}, cfg.Projects[1])
}

func TestLoad_MalformedProjectsJSON(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POSTHOG_PROJECTS", `{"not": "a list"}`)

	_, err := Load()
	assert.ErrorContains(t, err, "invalid POSTHOG_PROJECTS")
}
