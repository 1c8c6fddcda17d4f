// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/naka-gawa/posthog-digest/internal/domain"
	"github.com/naka-gawa/posthog-digest/internal/gateway"
)

// projectPacing is the fixed delay before each project's queries, keeping
// the run within PostHog's rate limits.
const projectPacing = 300 * time.Millisecond

// Collector gathers one project's full metrics snapshot. All queries run
// strictly sequentially; PostHog rate-limits aggressive clients.
type Collector struct {
	fetcher gateway.Fetcher
	logger  *logrus.Logger
	sleep   func(time.Duration)
}

// NewCollector creates a new Collector instance.
func NewCollector(fetcher gateway.Fetcher, logger *logrus.Logger) *Collector {
	return &Collector{
		fetcher: fetcher,
		logger:  logger,
		sleep:   time.Sleep,
	}
}

// Collect fetches current- and previous-period metrics for one project.
// Any unrecoverable API error aborts collection for this project only.
func (c *Collector) Collect(ctx context.Context, project domain.Project) (*domain.Metrics, error) {
	c.sleep(projectPacing)

	id := project.ProjectID

	// Current period.
	dau, err := c.fetcher.FetchActiveUsers(ctx, id, "dau", "-1d", "now")
	if err != nil {
		return nil, err
	}
	wau, err := c.fetcher.FetchActiveUsers(ctx, id, "weekly_active", "-7d", "now")
	if err != nil {
		return nil, err
	}
	mau, err := c.fetcher.FetchActiveUsers(ctx, id, "monthly_active", "-30d", "now")
	if err != nil {
		return nil, err
	}
	pageviews, topPages, err := c.fetcher.FetchPageviews(ctx, id, "-1d", "now")
	if err != nil {
		return nil, err
	}

	// Previous period, shifted back one window for comparison.
	prevDAU, err := c.fetcher.FetchActiveUsers(ctx, id, "dau", "-8d", "-7d")
	if err != nil {
		return nil, err
	}
	prevWAU, err := c.fetcher.FetchActiveUsers(ctx, id, "weekly_active", "-14d", "-7d")
	if err != nil {
		return nil, err
	}
	prevMAU, err := c.fetcher.FetchActiveUsers(ctx, id, "monthly_active", "-60d", "-30d")
	if err != nil {
		return nil, err
	}
	prevPageviews, _, err := c.fetcher.FetchPageviews(ctx, id, "-8d", "-7d")
	if err != nil {
		return nil, err
	}

	eventNames := project.CustomEvents
	if len(eventNames) == 0 {
		// Best effort: a failed discovery yields an empty event list
		// rather than a failed project.
		eventNames, err = c.fetcher.DiscoverEvents(ctx, id)
		if err != nil {
			c.logger.Warnf("Failed to discover custom events for %s: %v", project.Name, err)
			eventNames = nil
		}
	}

	metrics := &domain.Metrics{
		DAU:           dau,
		WAU:           wau,
		MAU:           mau,
		Pageviews:     pageviews,
		TopPages:      topPages,
		PrevDAU:       &prevDAU,
		PrevWAU:       &prevWAU,
		PrevMAU:       &prevMAU,
		PrevPageviews: &prevPageviews,
	}

	if len(eventNames) > 0 {
		metrics.PrevCustomEvents = make(map[string]int, len(eventNames))
	}
	for _, name := range eventNames {
		count, err := c.fetcher.FetchEventCount(ctx, id, name, "-1d", "now")
		if err != nil {
			return nil, err
		}
		prev, err := c.fetcher.FetchEventCount(ctx, id, name, "-8d", "-7d")
		if err != nil {
			return nil, err
		}
		metrics.CustomEvents = append(metrics.CustomEvents, domain.EventCount{Name: name, Count: count})
		metrics.PrevCustomEvents[name] = prev
	}

	return metrics, nil
}
