// Package domain contains the core data structures and domain logic for the application.
package domain

// DefaultColor is the presentation color for projects that do not specify one.
const DefaultColor = 3447003

// Palette is the fixed color rotation assigned round-robin to
// auto-discovered projects.
var Palette = []int{3447003, 10181046, 15844367, 3066993, 15105570, 3426654, 16776960, 9807270}

// Project identifies a single PostHog project to report on.
// It is immutable once loaded or discovered.
type Project struct {
	Name         string   `json:"name"`
	ProjectID    string   `json:"project_id"`
	Color        int      `json:"color"`
	CustomEvents []string `json:"custom_events,omitempty"`
}

// PageCount is one entry of a top-pages ranking.
type PageCount struct {
	URL   string `json:"url"`
	Views int    `json:"views"`
}

// EventCount is a named custom event with its occurrence count.
type EventCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Metrics holds one run's usage snapshot for a single project, together
// with the previous-period values used for week-over-week comparison.
// Previous values are nil when that period could not be measured.
type Metrics struct {
	DAU       int         `json:"dau"`
	WAU       int         `json:"wau"`
	MAU       int         `json:"mau"`
	Pageviews int         `json:"pageviews"`
	TopPages  []PageCount `json:"top_pages,omitempty"`
	// CustomEvents keeps the configured/discovered order so the digest is
	// deterministic; previous-period counts are looked up by name and need
	// not cover the current set.
	CustomEvents     []EventCount   `json:"custom_events,omitempty"`
	PrevDAU          *int           `json:"prev_dau,omitempty"`
	PrevWAU          *int           `json:"prev_wau,omitempty"`
	PrevMAU          *int           `json:"prev_mau,omitempty"`
	PrevPageviews    *int           `json:"prev_pageviews,omitempty"`
	PrevCustomEvents map[string]int `json:"prev_custom_events,omitempty"`
}

// ProjectMetrics pairs a project with its collected snapshot.
type ProjectMetrics struct {
	Project Project
	Metrics *Metrics
}

// ProjectError records a project whose collection failed.
type ProjectError struct {
	Project Project
	Message string
}

// DigestResult is the outcome of one digest run: the ordered successes and
// failures handed to the formatter.
type DigestResult struct {
	Successes []ProjectMetrics
	Failures  []ProjectError
}

// SourceKind says where the run's project list came from.
type SourceKind int

const (
	// SourceStatic means the list was configured explicitly.
	SourceStatic SourceKind = iota
	// SourceDiscovered means the list was fetched from PostHog.
	SourceDiscovered
)

// ProjectSource is the project list resolved once before collection begins.
type ProjectSource struct {
	Kind     SourceKind
	Projects []Project
}
