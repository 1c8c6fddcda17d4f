package gateway

import "fmt"

// ActiveUsersQuery builds a trends query counting active users of the
// $pageview event over the date range. math selects the aggregation:
// "dau", "weekly_active" or "monthly_active".
func ActiveUsersQuery(math, dateFrom, dateTo string) map[string]any {
	return map[string]any{
		"kind": "TrendsQuery",
		"series": []map[string]any{
			{"kind": "EventsNode", "event": "$pageview", "math": math},
		},
		"dateRange": map[string]any{"date_from": dateFrom, "date_to": dateTo},
	}
}

// EventCountQuery builds a trends query totalling occurrences of an
// arbitrary named event over the date range.
func EventCountQuery(event, dateFrom, dateTo string) map[string]any {
	return map[string]any{
		"kind": "TrendsQuery",
		"series": []map[string]any{
			{"kind": "EventsNode", "event": event, "math": "total"},
		},
		"dateRange": map[string]any{"date_from": dateFrom, "date_to": dateTo},
	}
}

// PageviewsQuery builds a HogQL query ranking pageviews by normalized URL.
//
// NOTE: the previous-period variant filters on a fixed 8d..7d window no
// matter which offsets were requested; the collector only ever asks for
// that window, so the behavior is kept as-is and pinned by tests.
func PageviewsQuery(dateFrom, dateTo string) map[string]any {
	timeFilter := "timestamp >= now() - INTERVAL 1 DAY"
	if dateTo != "now" {
		timeFilter = "timestamp >= now() - INTERVAL 8 DAY AND timestamp < now() - INTERVAL 7 DAY"
	}
	return map[string]any{
		"kind": "HogQLQuery",
		"query": fmt.Sprintf(`
			SELECT
				properties.$current_url as page,
				count() as views
			FROM events
			WHERE event = '$pageview'
			  AND %s
			GROUP BY page
			ORDER BY views DESC
			LIMIT 10
		`, timeFilter),
	}
}

// EventDiscoveryQuery builds a HogQL query listing the most frequent
// non-system events (names not starting with '$' or '!') from the
// trailing 7 days.
func EventDiscoveryQuery(limit int) map[string]any {
	return map[string]any{
		"kind": "HogQLQuery",
		"query": fmt.Sprintf(`
			SELECT
				event,
				count() as count
			FROM events
			WHERE timestamp >= now() - INTERVAL 7 DAY
			  AND event NOT LIKE '$%%'
			  AND event NOT LIKE '!%%'
			GROUP BY event
			ORDER BY count DESC
			LIMIT %d
		`, limit),
	}
}
