package services

import (
	"sort"

	"serendipity-backend/domain/core/aggregates"
	"serendipity-backend/domain/core/entities"
	"serendipity-backend/domain/core/valueobjects"
)

// LocationRadius restricts events to those within Meters of Center,
// boundary inclusive
type LocationRadius struct {
	Center valueobjects.GeoLocation
	Meters float64
}

// POVFilter scopes a point-of-view traversal
type POVFilter struct {
	UserID             string
	IncludeConnections bool
	MaxDegrees         int // 0 means seed events only
	EventTypes         []entities.EventType
	DateRange          *valueobjects.TimeRange
	LocationRadius     *LocationRadius
}

// TraversalEngine performs bounded breadth-first expansion over the
// connection graph from a seed user's events
type TraversalEngine struct{}

// NewTraversalEngine creates a traversal engine
func NewTraversalEngine() *TraversalEngine {
	return &TraversalEngine{}
}

// FilterEvents applies the filter's type, date and location conditions
func (t *TraversalEngine) FilterEvents(events []*entities.Event, filter POVFilter) []*entities.Event {
	var allowedTypes map[entities.EventType]bool
	if len(filter.EventTypes) > 0 {
		allowedTypes = make(map[entities.EventType]bool, len(filter.EventTypes))
		for _, et := range filter.EventTypes {
			allowedTypes[et] = true
		}
	}

	filtered := make([]*entities.Event, 0, len(events))
	for _, event := range events {
		if allowedTypes != nil && !allowedTypes[event.Type()] {
			continue
		}
		if filter.DateRange != nil && !filter.DateRange.Contains(event.Timestamp()) {
			continue
		}
		if filter.LocationRadius != nil {
			if !event.HasLocation() {
				continue
			}
			if event.Location().DistanceMeters(filter.LocationRadius.Center) > filter.LocationRadius.Meters {
				continue
			}
		}
		filtered = append(filtered, event)
	}
	return filtered
}

// EventsFromPOV resolves the events visible from the seed user's point of
// view: the filtered seed events plus, when requested, connected events up
// to MaxDegrees away. The result is de-duplicated and sorted ascending by
// timestamp.
func (t *TraversalEngine) EventsFromPOV(graph *aggregates.Graph, seeds []*entities.Event, filter POVFilter) []*entities.Event {
	seeds = t.FilterEvents(seeds, filter)

	if !filter.IncludeConnections || filter.MaxDegrees <= 0 {
		return sortByTimestamp(dedupeByID(seeds))
	}

	expanded := t.expand(graph, seeds, filter.MaxDegrees)
	return sortByTimestamp(dedupeByID(append(seeds, expanded...)))
}

// expand walks the adjacency sets breadth-first for up to maxDegrees
// levels. Ids that do not resolve to a locally loaded event are skipped
// silently; visited ids are never expanded twice, which guards against
// the cycles a symmetric connection graph always contains.
func (t *TraversalEngine) expand(graph *aggregates.Graph, seeds []*entities.Event, maxDegrees int) []*entities.Event {
	visited := make(map[string]bool)
	frontier := make([]string, 0)
	for _, seed := range seeds {
		frontier = append(frontier, seed.ConnectedEventIDs()...)
	}

	var result []*entities.Event
	for degree := 0; degree < maxDegrees && len(frontier) > 0; degree++ {
		var next []string
		for _, id := range frontier {
			if visited[id] {
				continue
			}
			visited[id] = true

			event, err := graph.GetEvent(id)
			if err != nil {
				continue
			}
			result = append(result, event)
			next = append(next, event.ConnectedEventIDs()...)
		}
		frontier = next
	}
	return result
}

func dedupeByID(events []*entities.Event) []*entities.Event {
	seen := make(map[string]bool, len(events))
	result := make([]*entities.Event, 0, len(events))
	for _, event := range events {
		if seen[event.ID()] {
			continue
		}
		seen[event.ID()] = true
		result = append(result, event)
	}
	return result
}

func sortByTimestamp(events []*entities.Event) []*entities.Event {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Timestamp().Equal(events[j].Timestamp()) {
			return events[i].Timestamp().Before(events[j].Timestamp())
		}
		return events[i].ID() < events[j].ID()
	})
	return events
}
