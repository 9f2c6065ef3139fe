package aggregates

import (
	"sort"

	"serendipity-backend/domain/core/entities"
)

// LocationCount pairs a location label with its occurrence count
type LocationCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// PartnerCount pairs a user id with how often they were interacted with
type PartnerCount struct {
	UserID string `json:"user_id"`
	Count  int    `json:"count"`
}

// Insights is the derived analytics block of a timeline
type Insights struct {
	ActivityPeaks    map[int]int     `json:"activity_peaks"` // hour of day -> event count
	TopLocations     []LocationCount `json:"top_locations"`
	FrequentPartners []PartnerCount  `json:"frequent_partners"`
	MoodPatterns     map[string]int  `json:"mood_patterns"`
	SocialCircles    [][]string      `json:"social_circles"`
}

// Timeline is the denormalized per-user view: that user's events in
// timestamp order plus the connections touching them. It is always
// derivable from the graph and never independently authoritative.
type Timeline struct {
	userID      string
	events      []*entities.Event
	connections map[string]*entities.Connection
}

// NewTimeline creates an empty timeline for a user
func NewTimeline(userID string) *Timeline {
	return &Timeline{
		userID:      userID,
		connections: make(map[string]*entities.Connection),
	}
}

// UserID returns the owning user's id
func (t *Timeline) UserID() string {
	return t.userID
}

// InsertEvent places an event at its timestamp-ordered position.
// Re-inserting an existing event replaces it in place.
func (t *Timeline) InsertEvent(event *entities.Event) {
	for i, existing := range t.events {
		if existing.ID() == event.ID() {
			t.events[i] = event
			return
		}
	}

	idx := sort.Search(len(t.events), func(i int) bool {
		return t.events[i].Timestamp().After(event.Timestamp())
	})
	t.events = append(t.events, nil)
	copy(t.events[idx+1:], t.events[idx:])
	t.events[idx] = event
}

// AddConnection records a connection touching this timeline's events, idempotently
func (t *Timeline) AddConnection(conn *entities.Connection) {
	t.connections[conn.ID()] = conn
}

// Events returns the timeline's events in timestamp order
func (t *Timeline) Events() []*entities.Event {
	events := make([]*entities.Event, len(t.events))
	copy(events, t.events)
	return events
}

// Connections returns the connections touching this timeline's events
func (t *Timeline) Connections() []*entities.Connection {
	conns := make([]*entities.Connection, 0, len(t.connections))
	for _, c := range t.connections {
		conns = append(conns, c)
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i].ID() < conns[j].ID() })
	return conns
}

// EventCount returns the number of events on the timeline
func (t *Timeline) EventCount() int {
	return len(t.events)
}

// ComputeInsights derives the insights block from current timeline contents
func (t *Timeline) ComputeInsights() Insights {
	insights := Insights{
		ActivityPeaks: make(map[int]int),
		MoodPatterns:  make(map[string]int),
	}

	locationCounts := make(map[string]int)
	partnerCounts := make(map[string]int)

	for _, event := range t.events {
		insights.ActivityPeaks[event.Timestamp().Hour()]++

		if event.HasLocation() {
			if label := event.Location().Label(); label != "" {
				locationCounts[label]++
			}
		}
		if mood := event.Metadata().Mood; mood != "" {
			insights.MoodPatterns[mood]++
		}
		for _, mention := range event.Mentions() {
			if mention != t.userID {
				partnerCounts[mention]++
			}
		}
	}

	insights.TopLocations = rankCounts(locationCounts, func(label string, count int) LocationCount {
		return LocationCount{Label: label, Count: count}
	})
	insights.FrequentPartners = rankCounts(partnerCounts, func(userID string, count int) PartnerCount {
		return PartnerCount{UserID: userID, Count: count}
	})
	insights.SocialCircles = t.socialCircles()

	return insights
}

// socialCircles merges the common-user sets of relational connections into
// disjoint groups of users this timeline's owner keeps appearing with
func (t *Timeline) socialCircles() [][]string {
	var circles []map[string]bool

	for _, conn := range t.connections {
		if conn.Type() != entities.ConnectionTypeRelational {
			continue
		}
		members := make(map[string]bool)
		for _, userID := range conn.Metadata().CommonUserIDs {
			members[userID] = true
		}
		if len(members) == 0 {
			continue
		}

		merged := members
		remaining := circles[:0]
		for _, circle := range circles {
			if overlaps(circle, merged) {
				for id := range circle {
					merged[id] = true
				}
			} else {
				remaining = append(remaining, circle)
			}
		}
		circles = append(remaining, merged)
	}

	result := make([][]string, 0, len(circles))
	for _, circle := range circles {
		members := make([]string, 0, len(circle))
		for id := range circle {
			members = append(members, id)
		}
		sort.Strings(members)
		result = append(result, members)
	}
	sort.Slice(result, func(i, j int) bool { return result[i][0] < result[j][0] })
	return result
}

func overlaps(a, b map[string]bool) bool {
	for id := range a {
		if b[id] {
			return true
		}
	}
	return false
}

func rankCounts[T any](counts map[string]int, build func(string, int) T) []T {
	type kv struct {
		key   string
		count int
	}
	pairs := make([]kv, 0, len(counts))
	for k, v := range counts {
		pairs = append(pairs, kv{k, v})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		return pairs[i].key < pairs[j].key
	})

	const maxRanked = 5
	if len(pairs) > maxRanked {
		pairs = pairs[:maxRanked]
	}

	ranked := make([]T, 0, len(pairs))
	for _, p := range pairs {
		ranked = append(ranked, build(p.key, p.count))
	}
	return ranked
}
