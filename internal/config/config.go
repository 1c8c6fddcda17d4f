// Package config loads application configuration from environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/naka-gawa/posthog-digest/internal/domain"
)

// Config holds everything one digest run needs.
type Config struct {
	PostHogAPIKey   string
	PostHogRegion   string // "us" or "eu"
	DiscordBotToken string
	DiscordUserID   string
	Projects        []domain.Project
}

// projectEntry mirrors one element of the POSTHOG_PROJECTS variable.
type projectEntry struct {
	Name         string          `json:"name"`
	ProjectID    json.RawMessage `json:"projectId"`
	Color        *int            `json:"color"`
	CustomEvents []string        `json:"customEvents"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		PostHogAPIKey:   os.Getenv("POSTHOG_API_KEY"),
		PostHogRegion:   getEnv("POSTHOG_REGION", "eu"),
		DiscordBotToken: os.Getenv("DISCORD_BOT_TOKEN"),
		DiscordUserID:   os.Getenv("DISCORD_USER_ID"),
	}

	projects, err := parseProjects(getEnv("POSTHOG_PROJECTS", "[]"))
	if err != nil {
		return nil, fmt.Errorf("invalid POSTHOG_PROJECTS: %w", err)
	}
	cfg.Projects = projects

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.PostHogAPIKey == "" {
		return fmt.Errorf("POSTHOG_API_KEY is required")
	}
	if c.PostHogRegion != "us" && c.PostHogRegion != "eu" {
		return fmt.Errorf("POSTHOG_REGION must be \"us\" or \"eu\", got %q", c.PostHogRegion)
	}
	if c.DiscordBotToken == "" {
		return fmt.Errorf("DISCORD_BOT_TOKEN is required")
	}
	if c.DiscordUserID == "" {
		return fmt.Errorf("DISCORD_USER_ID is required")
	}
	return nil
}

func parseProjects(raw string) ([]domain.Project, error) {
	var entries []projectEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, err
	}

	projects := make([]domain.Project, 0, len(entries))
	for _, entry := range entries {
		project := domain.Project{
			Name:         entry.Name,
			ProjectID:    idToString(entry.ProjectID),
			Color:        domain.DefaultColor,
			CustomEvents: entry.CustomEvents,
		}
		if entry.Color != nil {
			project.Color = *entry.Color
		}
		projects = append(projects, project)
	}
	return projects, nil
}

// idToString accepts project IDs given as JSON strings or numbers.
func idToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// getEnv returns an environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
