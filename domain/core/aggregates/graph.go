package aggregates

import (
	"fmt"
	"sort"
	"time"

	"serendipity-backend/domain/core/entities"
	"serendipity-backend/domain/core/valueobjects"
	"serendipity-backend/domain/events"
	pkgerrors "serendipity-backend/pkg/errors"
)

// GraphMetadata contains graph-level bookkeeping
type GraphMetadata struct {
	TotalUsers       int
	TotalEvents      int
	TotalConnections int
	LastUpdated      time.Time
	DateRange        valueobjects.TimeRange
}

// Graph is the aggregate root holding all loaded users, events,
// connections, timelines and stories plus derived metadata.
//
// The aggregate is single-owner state: callers must serialize mutating
// operations externally. It performs no I/O and never deletes implicitly.
type Graph struct {
	users       map[string]*entities.User
	events      map[string]*entities.Event
	connections map[string]*entities.Connection
	timelines   map[string]*Timeline
	stories     map[string]*entities.Story
	metadata    GraphMetadata

	// adjacency deferred for connections whose endpoint event
	// has not been loaded yet
	pending map[string][]*entities.Connection

	domainEvents []events.DomainEvent
}

// NewGraph creates an empty graph aggregate
func NewGraph() *Graph {
	return &Graph{
		users:       make(map[string]*entities.User),
		events:      make(map[string]*entities.Event),
		connections: make(map[string]*entities.Connection),
		timelines:   make(map[string]*Timeline),
		stories:     make(map[string]*entities.Story),
		pending:     make(map[string][]*entities.Connection),
	}
}

// Metadata returns the graph's derived metadata
func (g *Graph) Metadata() GraphMetadata {
	return g.metadata
}

// UpsertUser inserts or replaces a user, raising UserAdded for new users
func (g *Graph) UpsertUser(user *entities.User) error {
	return g.putUser(user, true)
}

// LoadUser inserts a user during hydration without raising events
func (g *Graph) LoadUser(user *entities.User) error {
	return g.putUser(user, false)
}

func (g *Graph) putUser(user *entities.User, raise bool) error {
	if user == nil {
		return pkgerrors.NewValidation("user cannot be nil")
	}

	_, existed := g.users[user.ID()]
	g.users[user.ID()] = user
	if !existed {
		g.metadata.TotalUsers++
	}
	g.touch()

	if raise && !existed {
		g.addDomainEvent(events.NewUserAdded(user.ID(), user.DisplayName(), g.metadata.LastUpdated))
	}
	return nil
}

// UpsertEvent inserts or replaces an event, updating the owner's timeline,
// widening the date range and applying any deferred adjacency.
// EventAdded is raised for events not previously loaded.
func (g *Graph) UpsertEvent(event *entities.Event) error {
	return g.putEvent(event, true)
}

// LoadEvent inserts an event during hydration without raising events
func (g *Graph) LoadEvent(event *entities.Event) error {
	return g.putEvent(event, false)
}

func (g *Graph) putEvent(event *entities.Event, raise bool) error {
	if event == nil {
		return pkgerrors.NewValidation("event cannot be nil")
	}

	_, existed := g.events[event.ID()]
	g.events[event.ID()] = event
	if !existed {
		g.metadata.TotalEvents++
	}
	g.metadata.DateRange = g.metadata.DateRange.Widen(event.Timestamp())
	g.timelineFor(event.UserID()).InsertEvent(event)
	if owner, ok := g.users[event.UserID()]; ok {
		owner.Touch(event.Timestamp())
	}

	// resolve adjacency deferred until this event loaded
	for _, conn := range g.pending[event.ID()] {
		g.applyAdjacency(conn)
	}
	delete(g.pending, event.ID())

	// a replacement instance arrives without locally-accumulated adjacency;
	// re-mirror every stored connection touching it
	if existed {
		for _, conn := range g.connections {
			if conn.Touches(event.ID()) {
				g.applyAdjacency(conn)
			}
		}
	}

	g.touch()
	if raise && !existed {
		g.addDomainEvent(events.NewEventAdded(
			event.ID(), event.UserID(), string(event.Type()), event.Timestamp(), g.metadata.LastUpdated))
	}
	return nil
}

// UpsertConnection inserts a connection and mirrors it into both endpoint
// events' adjacency sets. Adjacency for endpoints that are not locally
// loaded is deferred until those events load. Idempotent by connection id.
func (g *Graph) UpsertConnection(conn *entities.Connection) error {
	return g.putConnection(conn, true)
}

// LoadConnection inserts a connection during hydration without raising events
func (g *Graph) LoadConnection(conn *entities.Connection) error {
	return g.putConnection(conn, false)
}

func (g *Graph) putConnection(conn *entities.Connection, raise bool) error {
	if conn == nil {
		return pkgerrors.NewValidation("connection cannot be nil")
	}

	_, existed := g.connections[conn.ID()]
	g.connections[conn.ID()] = conn
	if !existed {
		g.metadata.TotalConnections++
	}

	g.applyAdjacency(conn)

	for _, endpoint := range []string{conn.FromEventID(), conn.ToEventID()} {
		if _, loaded := g.events[endpoint]; !loaded {
			g.deferAdjacency(endpoint, conn)
		}
	}

	g.touch()
	if raise && !existed {
		g.addDomainEvent(events.NewConnectionAdded(
			conn.ID(), conn.FromEventID(), conn.ToEventID(), string(conn.Type()), conn.Strength(), g.metadata.LastUpdated))
	}
	return nil
}

// applyAdjacency mirrors a connection into whichever endpoints are loaded
// and records it on the owning users' timelines
func (g *Graph) applyAdjacency(conn *entities.Connection) {
	from, fromLoaded := g.events[conn.FromEventID()]
	to, toLoaded := g.events[conn.ToEventID()]

	if fromLoaded {
		_ = from.AddConnection(conn.ToEventID())
		g.timelineFor(from.UserID()).AddConnection(conn)
	}
	if toLoaded {
		_ = to.AddConnection(conn.FromEventID())
		g.timelineFor(to.UserID()).AddConnection(conn)
	}
}

func (g *Graph) deferAdjacency(eventID string, conn *entities.Connection) {
	for _, existing := range g.pending[eventID] {
		if existing.ID() == conn.ID() {
			return
		}
	}
	g.pending[eventID] = append(g.pending[eventID], conn)
}

// UpsertStory inserts or replaces an externally-authored story
func (g *Graph) UpsertStory(story *entities.Story) error {
	if story == nil {
		return pkgerrors.NewValidation("story cannot be nil")
	}
	g.stories[story.ID()] = story
	g.touch()
	return nil
}

// GetEvent retrieves an event by id
func (g *Graph) GetEvent(id string) (*entities.Event, error) {
	event, exists := g.events[id]
	if !exists {
		return nil, pkgerrors.NewNotFound(fmt.Sprintf("event %s", id))
	}
	return event, nil
}

// HasEvent checks whether an event is locally loaded
func (g *Graph) HasEvent(id string) bool {
	_, exists := g.events[id]
	return exists
}

// GetUser retrieves a user by id
func (g *Graph) GetUser(id string) (*entities.User, error) {
	user, exists := g.users[id]
	if !exists {
		return nil, pkgerrors.NewNotFound(fmt.Sprintf("user %s", id))
	}
	return user, nil
}

// GetConnection retrieves a connection by id
func (g *Graph) GetConnection(id string) (*entities.Connection, error) {
	conn, exists := g.connections[id]
	if !exists {
		return nil, pkgerrors.NewNotFound(fmt.Sprintf("connection %s", id))
	}
	return conn, nil
}

// GetStory retrieves a story by id
func (g *Graph) GetStory(id string) (*entities.Story, error) {
	story, exists := g.stories[id]
	if !exists {
		return nil, pkgerrors.NewNotFound(fmt.Sprintf("story %s", id))
	}
	return story, nil
}

// GetTimeline returns the denormalized timeline for a user,
// creating an empty one if the user has no events yet
func (g *Graph) GetTimeline(userID string) *Timeline {
	return g.timelineFor(userID)
}

// Events returns all loaded events
func (g *Graph) Events() []*entities.Event {
	result := make([]*entities.Event, 0, len(g.events))
	for _, e := range g.events {
		result = append(result, e)
	}
	return result
}

// EventsByUser returns a user's events in timestamp order
func (g *Graph) EventsByUser(userID string) []*entities.Event {
	return g.timelineFor(userID).Events()
}

// Connections returns all loaded connections
func (g *Graph) Connections() []*entities.Connection {
	result := make([]*entities.Connection, 0, len(g.connections))
	for _, c := range g.connections {
		result = append(result, c)
	}
	return result
}

// ConnectionsTouching returns connections that have the event as an endpoint
func (g *Graph) ConnectionsTouching(eventID string) []*entities.Connection {
	var result []*entities.Connection
	for _, c := range g.connections {
		if c.Touches(eventID) {
			result = append(result, c)
		}
	}
	return result
}

// Users returns all loaded users
func (g *Graph) Users() []*entities.User {
	result := make([]*entities.User, 0, len(g.users))
	for _, u := range g.users {
		result = append(result, u)
	}
	return result
}

// Stories returns all loaded stories
func (g *Graph) Stories() []*entities.Story {
	result := make([]*entities.Story, 0, len(g.stories))
	for _, s := range g.stories {
		result = append(result, s)
	}
	return result
}

// RemoveEvent removes an event only when no connection references it.
// Cascading deletion is the responsibility of an upstream collaborator.
func (g *Graph) RemoveEvent(id string) error {
	event, exists := g.events[id]
	if !exists {
		return pkgerrors.NewNotFound(fmt.Sprintf("event %s", id))
	}
	for _, c := range g.connections {
		if c.Touches(id) {
			return pkgerrors.NewConflict(fmt.Sprintf("event %s still has connections", id))
		}
	}

	delete(g.events, id)
	g.metadata.TotalEvents--
	// DateRange stays as observed; it widens monotonically and never shrinks

	timeline := g.timelineFor(event.UserID())
	rebuilt := NewTimeline(event.UserID())
	for _, e := range timeline.Events() {
		if e.ID() != id {
			rebuilt.InsertEvent(e)
		}
	}
	for _, c := range timeline.Connections() {
		rebuilt.AddConnection(c)
	}
	g.timelines[event.UserID()] = rebuilt

	g.touch()
	return nil
}

// Snapshot returns a deep copy of the graph for export or concurrent reads
func (g *Graph) Snapshot() *Graph {
	snapshot := NewGraph()

	for _, user := range g.users {
		_ = snapshot.LoadUser(user.Clone())
	}

	for _, event := range g.events {
		_ = snapshot.LoadEvent(event.Clone())
	}
	for _, conn := range g.connections {
		_ = snapshot.LoadConnection(conn.Clone())
	}
	for _, story := range g.stories {
		_ = snapshot.UpsertStory(story.Clone())
	}

	snapshot.metadata = g.metadata
	return snapshot
}

// Validate checks the aggregate's invariants
func (g *Graph) Validate() error {
	if len(g.events) != g.metadata.TotalEvents {
		return pkgerrors.NewValidation("event count mismatch")
	}
	if len(g.connections) != g.metadata.TotalConnections {
		return pkgerrors.NewValidation("connection count mismatch")
	}

	for _, conn := range g.connections {
		if conn.FromEventID() == conn.ToEventID() {
			return pkgerrors.NewValidation("connection is a self-loop")
		}
		if from, ok := g.events[conn.FromEventID()]; ok {
			if !from.IsConnectedTo(conn.ToEventID()) {
				return pkgerrors.NewValidation(fmt.Sprintf("event %s missing adjacency for %s", from.ID(), conn.ID()))
			}
		}
		if to, ok := g.events[conn.ToEventID()]; ok {
			if !to.IsConnectedTo(conn.FromEventID()) {
				return pkgerrors.NewValidation(fmt.Sprintf("event %s missing adjacency for %s", to.ID(), conn.ID()))
			}
		}
	}
	return nil
}

// GetUncommittedEvents returns all uncommitted domain events
func (g *Graph) GetUncommittedEvents() []events.DomainEvent {
	all := make([]events.DomainEvent, len(g.domainEvents))
	copy(all, g.domainEvents)
	return all
}

// MarkEventsAsCommitted clears the uncommitted domain events
func (g *Graph) MarkEventsAsCommitted() {
	g.domainEvents = nil
}

// UserIDs returns all loaded user ids, sorted
func (g *Graph) UserIDs() []string {
	ids := make([]string, 0, len(g.users))
	for id := range g.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (g *Graph) timelineFor(userID string) *Timeline {
	timeline, exists := g.timelines[userID]
	if !exists {
		timeline = NewTimeline(userID)
		g.timelines[userID] = timeline
	}
	return timeline
}

func (g *Graph) touch() {
	g.metadata.LastUpdated = time.Now().UTC()
}

func (g *Graph) addDomainEvent(event events.DomainEvent) {
	g.domainEvents = append(g.domainEvents, event)
}
