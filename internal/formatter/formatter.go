// Package formatter renders the digest text. All functions are pure: they
// perform no I/O and depend only on their inputs.
package formatter

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"

	"github.com/naka-gawa/posthog-digest/internal/domain"
)

const (
	maxErrorLen = 100
	maxURLLen   = 40
)

var divider = strings.Repeat("─", 30)

// colorEmojis maps a project's color tag to its digest marker.
var colorEmojis = map[int]string{
	3447003:  "🔵",
	10181046: "🟣",
	15844367: "🟡",
	3066993:  "🟢",
	15158332: "🔴",
}

const defaultEmoji = "⚪"

// FormatNumber renders n with thousands separators.
func FormatNumber(n int) string {
	return humanize.Comma(int64(n))
}

// FormatChange renders a metric with its week-over-week change indicator.
// Without a usable previous value only the current value is rendered.
// Changes under 1% get the no-change marker; 1% exactly does not.
func FormatChange(current int, previous *int) string {
	if previous == nil || *previous == 0 {
		return FormatNumber(current)
	}

	change := current - *previous
	pct := float64(change) / float64(*previous) * 100

	var arrow, sign string
	switch {
	case math.Abs(pct) < 1:
		arrow = "↔"
	case change > 0:
		arrow = "↑"
		sign = "+"
	default:
		arrow = "↓"
	}
	return fmt.Sprintf("%s %s %s%.0f%%", FormatNumber(current), arrow, sign, pct)
}

// FormatProjectSection renders one successful project's block.
func FormatProjectSection(project domain.Project, m *domain.Metrics) string {
	emoji, ok := colorEmojis[project.Color]
	if !ok {
		emoji = defaultEmoji
	}

	lines := []string{
		fmt.Sprintf("%s **%s**", emoji, project.Name),
		"",
		fmt.Sprintf("DAU: %s", FormatChange(m.DAU, m.PrevDAU)),
		fmt.Sprintf("WAU: %s", FormatChange(m.WAU, m.PrevWAU)),
		fmt.Sprintf("MAU: %s", FormatChange(m.MAU, m.PrevMAU)),
		"",
		fmt.Sprintf("Pageviews: %s", FormatChange(m.Pageviews, m.PrevPageviews)),
	}

	if len(m.TopPages) > 0 {
		lines = append(lines, "", "Top Pages:")
		for _, page := range m.TopPages {
			lines = append(lines, fmt.Sprintf("  %s → %s", truncateURL(page.URL), FormatNumber(page.Views)))
		}
	}

	if len(m.CustomEvents) > 0 {
		lines = append(lines, "", "Custom Events:")
		for _, event := range m.CustomEvents {
			var prev *int
			if count, ok := m.PrevCustomEvents[event.Name]; ok {
				prev = &count
			}
			lines = append(lines, fmt.Sprintf("  %s: %s", event.Name, FormatChange(event.Count, prev)))
		}
	}

	return strings.Join(lines, "\n")
}

// FormatErrorSection renders a failed project's block.
func FormatErrorSection(project domain.Project, message string) string {
	return fmt.Sprintf("🔴 **%s** - ERROR\n  %s", project.Name, truncate(message, maxErrorLen))
}

// FormatSummary renders aggregate totals across all successful projects.
// Totals are compared against summed previous values only when the summed
// previous is positive.
func FormatSummary(successes []domain.ProjectMetrics) string {
	if len(successes) == 0 {
		return ""
	}

	dau := make(stats.Float64Data, 0, len(successes))
	prevDAU := make(stats.Float64Data, 0, len(successes))
	pageviews := make(stats.Float64Data, 0, len(successes))
	prevPageviews := make(stats.Float64Data, 0, len(successes))
	for _, s := range successes {
		dau = append(dau, float64(s.Metrics.DAU))
		pageviews = append(pageviews, float64(s.Metrics.Pageviews))
		if s.Metrics.PrevDAU != nil {
			prevDAU = append(prevDAU, float64(*s.Metrics.PrevDAU))
		}
		if s.Metrics.PrevPageviews != nil {
			prevPageviews = append(prevPageviews, float64(*s.Metrics.PrevPageviews))
		}
	}

	lines := []string{
		"📊 **Summary (All Projects)**",
		fmt.Sprintf("Total DAU: %s", FormatChange(sum(dau), positiveSum(prevDAU))),
		fmt.Sprintf("Total Pageviews: %s", FormatChange(sum(pageviews), positiveSum(prevPageviews))),
	}
	return strings.Join(lines, "\n")
}

// FormatDigest renders the complete digest for one run.
func FormatDigest(result domain.DigestResult, now time.Time) string {
	lines := []string{
		fmt.Sprintf("📈 **Daily Analytics Digest** - %s", now.UTC().Format("2006-01-02")),
		"_Week-over-week comparison (vs 7 days ago)_",
		"",
	}

	if len(result.Successes) > 0 {
		lines = append(lines, FormatSummary(result.Successes), "")
	}

	for _, success := range result.Successes {
		lines = append(lines, divider, FormatProjectSection(success.Project, success.Metrics))
	}
	for _, failure := range result.Failures {
		lines = append(lines, divider, FormatErrorSection(failure.Project, failure.Message))
	}
	lines = append(lines, divider)

	return strings.Join(lines, "\n")
}

// sum totals a series, treating an empty series as zero.
func sum(data stats.Float64Data) int {
	total, err := stats.Sum(data)
	if err != nil {
		return 0
	}
	return int(total)
}

// positiveSum totals a series, reporting absence unless the total is
// positive: a zero baseline makes the comparison meaningless.
func positiveSum(data stats.Float64Data) *int {
	total := sum(data)
	if total <= 0 {
		return nil
	}
	return &total
}

// truncateURL shortens long URLs with an ellipsis.
func truncateURL(url string) string {
	runes := []rune(url)
	if len(runes) <= maxURLLen {
		return url
	}
	return string(runes[:maxURLLen-3]) + "..."
}

// truncate limits s to max runes.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
