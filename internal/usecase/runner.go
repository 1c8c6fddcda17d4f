package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/naka-gawa/posthog-digest/internal/domain"
	"github.com/naka-gawa/posthog-digest/internal/formatter"
	"github.com/naka-gawa/posthog-digest/internal/gateway"
	"github.com/naka-gawa/posthog-digest/internal/notifier"
)

// Runner sequences one digest run: project resolution, per-project metric
// collection with failure isolation, rendering and delivery.
type Runner struct {
	fetcher   gateway.Fetcher
	collector *Collector
	notifier  notifier.Notifier
	logger    *logrus.Logger

	projects    []domain.Project
	recipientID string
}

// NewRunner creates a new Runner instance.
func NewRunner(fetcher gateway.Fetcher, collector *Collector, n notifier.Notifier, projects []domain.Project, recipientID string, logger *logrus.Logger) *Runner {
	return &Runner{
		fetcher:     fetcher,
		collector:   collector,
		notifier:    n,
		logger:      logger,
		projects:    projects,
		recipientID: recipientID,
	}
}

// Run executes one digest batch. Per-project failures are reported inside
// the digest; only discovery and delivery problems are returned as errors.
func (r *Runner) Run(ctx context.Context) error {
	source, err := r.resolveProjects(ctx)
	if err != nil {
		return err
	}
	result := r.collect(ctx, source)
	return r.deliver(ctx, result)
}

// collect gathers metrics for every project in the source, accumulating
// successes and failures independently. A failed project never aborts the
// batch.
func (r *Runner) collect(ctx context.Context, source *domain.ProjectSource) domain.DigestResult {
	var result domain.DigestResult
	r.logger.Infof("Fetching metrics for %d projects", len(source.Projects))
	for _, project := range source.Projects {
		r.logger.Infof("Fetching metrics for %s", project.Name)
		metrics, err := r.collector.Collect(ctx, project)
		if err != nil {
			r.logger.Errorf("PostHog API error for %s: %v", project.Name, err)
			result.Failures = append(result.Failures, domain.ProjectError{Project: project, Message: err.Error()})
			continue
		}
		r.logger.Infof("  DAU=%d, WAU=%d, MAU=%d", metrics.DAU, metrics.WAU, metrics.MAU)
		result.Successes = append(result.Successes, domain.ProjectMetrics{Project: project, Metrics: metrics})
	}
	return result
}

// deliver renders the digest and sends it. An empty result is a no-op,
// not an error.
func (r *Runner) deliver(ctx context.Context, result domain.DigestResult) error {
	if len(result.Successes) == 0 && len(result.Failures) == 0 {
		r.logger.Warn("No data to send")
		return nil
	}

	message := formatter.FormatDigest(result, time.Now().UTC())
	r.logger.Infof("Formatted digest (%d chars)", len(message))

	if err := r.notifier.Send(ctx, r.recipientID, message); err != nil {
		return fmt.Errorf("failed to send Discord DM: %w", err)
	}
	r.logger.Info("Digest sent successfully")
	return nil
}

// resolveProjects picks the static list when configured, otherwise
// discovers projects from PostHog. An empty resolved list is fatal.
func (r *Runner) resolveProjects(ctx context.Context) (*domain.ProjectSource, error) {
	if len(r.projects) > 0 {
		return &domain.ProjectSource{Kind: domain.SourceStatic, Projects: r.projects}, nil
	}

	r.logger.Info("No projects configured, discovering from PostHog...")
	discovered, err := r.fetcher.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover projects: %w", err)
	}
	if len(discovered) == 0 {
		return nil, fmt.Errorf("no projects found")
	}
	r.logger.Infof("Discovered %d projects", len(discovered))
	return &domain.ProjectSource{Kind: domain.SourceDiscovered, Projects: discovered}, nil
}
