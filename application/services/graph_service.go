package services

import (
	"context"
	"sync"
	"time"

	"serendipity-backend/application/dto"
	appevents "serendipity-backend/application/events"
	"serendipity-backend/application/ports"
	"serendipity-backend/domain/core/aggregates"
	"serendipity-backend/domain/core/entities"
	"serendipity-backend/domain/core/valueobjects"
	domainevents "serendipity-backend/domain/events"
	domainservices "serendipity-backend/domain/services"
	pkgerrors "serendipity-backend/pkg/errors"
	"serendipity-backend/pkg/observability"

	"go.uber.org/zap"
)

// Repositories bundles the persistence ports the service depends on
type Repositories struct {
	Users       ports.UserRepository
	Events      ports.EventRepository
	Connections ports.ConnectionRepository
	Stories     ports.StoryRepository
}

// QueryConditions are the combinable filters of the query surface.
// Users, event types and date range are pushed down to the repository
// when possible; the rest are evaluated in memory.
type QueryConditions struct {
	UserIDs        []string
	EventTypes     []entities.EventType
	DateRange      *valueobjects.TimeRange
	HasLocation    *bool
	HasMentions    *bool
	MinConnections int
}

// DroppedCandidate reports an inferred connection that failed to persist
type DroppedCandidate struct {
	Connection *entities.Connection
	Err        error
}

// InferenceResult reports the outcome of one inference pass. The pass as
// a whole succeeds even when individual candidates were dropped.
type InferenceResult struct {
	Committed []*entities.Connection
	Dropped   []DroppedCandidate
}

// PartialFailure checks whether any candidate failed to persist
func (r *InferenceResult) PartialFailure() bool {
	return len(r.Dropped) > 0
}

// SocialGraphService owns one graph aggregate and orchestrates ingestion,
// inference, traversal, queries and analytics over it.
//
// All mutating operations serialize under the write lock, including the
// full insert+inference sequence, so inference always sees a consistent
// view of the events existing before the insert. Queries share the read
// lock; analytics operate on a snapshot.
type SocialGraphService struct {
	mu    sync.RWMutex
	graph *aggregates.Graph

	repos     Repositories
	inference *domainservices.InferenceEngine
	traversal *domainservices.TraversalEngine
	analytics *domainservices.AnalyticsService
	bus       *appevents.Bus
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewSocialGraphService creates a service over an empty graph
func NewSocialGraphService(
	repos Repositories,
	inference *domainservices.InferenceEngine,
	bus *appevents.Bus,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *SocialGraphService {
	if inference == nil {
		inference = domainservices.NewInferenceEngine(nil, nil)
	}
	return &SocialGraphService{
		graph:     aggregates.NewGraph(),
		repos:     repos,
		inference: inference,
		traversal: domainservices.NewTraversalEngine(),
		analytics: domainservices.NewAnalyticsService(),
		bus:       bus,
		metrics:   metrics,
		logger:    logger,
	}
}

// On registers a subscriber for a named domain event
func (s *SocialGraphService) On(eventType string, handler appevents.Handler) {
	s.bus.Subscribe(eventType, handler)
}

// Initialize hydrates the graph from the repositories. Load failures are
// reported but leave the service usable with whatever state was loaded.
func (s *SocialGraphService) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.repos.Users.FindAll(ctx)
	if err != nil {
		return s.reportLoadFailure(ctx, "loadAllUsers", err)
	}
	for _, user := range users {
		_ = s.graph.LoadUser(user)
	}

	events, err := s.repos.Events.FindByFilter(ctx, ports.EventFilter{})
	if err != nil {
		return s.reportLoadFailure(ctx, "loadEvents", err)
	}
	eventIDs := make([]string, 0, len(events))
	for _, event := range events {
		_ = s.graph.LoadEvent(event)
		eventIDs = append(eventIDs, event.ID())
	}

	connections, err := s.repos.Connections.FindByEventIDs(ctx, eventIDs)
	if err != nil {
		return s.reportLoadFailure(ctx, "loadConnections", err)
	}
	for _, conn := range connections {
		_ = s.graph.LoadConnection(conn)
	}

	if s.repos.Stories != nil {
		stories, err := s.repos.Stories.FindAll(ctx)
		if err != nil {
			s.logger.Warn("Story hydration failed", zap.Error(err))
		} else {
			for _, story := range stories {
				_ = s.graph.UpsertStory(story)
			}
		}
	}

	meta := s.graph.Metadata()
	s.logger.Info("Graph hydrated",
		zap.Int("users", meta.TotalUsers),
		zap.Int("events", meta.TotalEvents),
		zap.Int("connections", meta.TotalConnections))
	s.bus.Publish(ctx, domainevents.NewDatabaseInitialized(
		meta.TotalUsers, meta.TotalEvents, meta.TotalConnections, time.Now().UTC()))
	return nil
}

func (s *SocialGraphService) reportLoadFailure(ctx context.Context, operation string, err error) error {
	if s.metrics != nil {
		s.metrics.RepositoryFailures.WithLabelValues(operation).Inc()
	}
	s.logger.Error("Graph hydration failed", zap.String("operation", operation), zap.Error(err))
	s.bus.Publish(ctx, domainevents.NewDatabaseError(operation, err.Error(), time.Now().UTC()))
	return pkgerrors.Wrap(err, "hydrating graph")
}

// AddUser persists a user and inserts it into the graph
func (s *SocialGraphService) AddUser(ctx context.Context, user *entities.User) error {
	if user == nil {
		return pkgerrors.NewValidation("user cannot be nil")
	}
	if err := s.repos.Users.Save(ctx, user); err != nil {
		return s.reportWriteFailure(ctx, "createUser", err)
	}

	s.mu.Lock()
	_ = s.graph.UpsertUser(user)
	pending := s.drainDomainEvents()
	s.mu.Unlock()

	s.bus.PublishBatch(ctx, pending)
	return nil
}

// AddEvent persists a new event, inserts it into the graph and runs
// connection inference against all pre-existing events. Candidates whose
// persistence fails are dropped and reported; the others proceed
// independently.
func (s *SocialGraphService) AddEvent(ctx context.Context, event *entities.Event) (*InferenceResult, error) {
	if event == nil {
		return nil, pkgerrors.NewValidation("event cannot be nil")
	}

	if err := s.repos.Events.Save(ctx, event); err != nil {
		return nil, s.reportWriteFailure(ctx, "createEvent", err)
	}

	s.mu.Lock()
	defer func() {
		pending := s.drainDomainEvents()
		s.mu.Unlock()
		s.bus.PublishBatch(ctx, pending)
	}()

	start := time.Now()
	candidates := s.inference.DiscoverConnections(event, s.graph)
	if s.metrics != nil {
		s.metrics.ObserveInference(start)
		s.metrics.EventsIngested.Inc()
	}

	if err := s.graph.UpsertEvent(event); err != nil {
		return nil, err
	}

	result := &InferenceResult{}
	for _, candidate := range candidates {
		if err := s.repos.Connections.Save(ctx, candidate); err != nil {
			result.Dropped = append(result.Dropped, DroppedCandidate{Connection: candidate, Err: err})
			if s.metrics != nil {
				s.metrics.CandidatesDropped.Inc()
				s.metrics.RepositoryFailures.WithLabelValues("createConnection").Inc()
			}
			s.logger.Warn("Dropped connection candidate",
				zap.String("connectionID", candidate.ID()),
				zap.Error(err))
			continue
		}
		_ = s.graph.UpsertConnection(candidate)
		result.Committed = append(result.Committed, candidate)
		if s.metrics != nil {
			s.metrics.ConnectionsInferred.WithLabelValues(string(candidate.Type())).Inc()
		}
	}

	s.logger.Info("Event added",
		zap.String("eventID", event.ID()),
		zap.String("userID", event.UserID()),
		zap.Int("committed", len(result.Committed)),
		zap.Int("dropped", len(result.Dropped)))
	return result, nil
}

// AddConnection persists an explicitly-created connection. The connection
// entity has already passed the same validation inference applies.
func (s *SocialGraphService) AddConnection(ctx context.Context, conn *entities.Connection) error {
	if conn == nil {
		return pkgerrors.NewValidation("connection cannot be nil")
	}
	if err := s.repos.Connections.Save(ctx, conn); err != nil {
		return s.reportWriteFailure(ctx, "createConnection", err)
	}

	s.mu.Lock()
	_ = s.graph.UpsertConnection(conn)
	pending := s.drainDomainEvents()
	s.mu.Unlock()

	s.bus.PublishBatch(ctx, pending)
	return nil
}

// MergeRemoteEvent inserts an event that originated in another process.
// Inference is deliberately not run: it is the responsibility of the
// process that performed the original insert.
func (s *SocialGraphService) MergeRemoteEvent(ctx context.Context, event *entities.Event) {
	if event == nil {
		return
	}
	s.mu.Lock()
	_ = s.graph.UpsertEvent(event)
	pending := s.drainDomainEvents()
	s.mu.Unlock()
	s.bus.PublishBatch(ctx, pending)
}

// MergeRemoteUser inserts a user that originated in another process
func (s *SocialGraphService) MergeRemoteUser(ctx context.Context, user *entities.User) {
	if user == nil {
		return
	}
	s.mu.Lock()
	_ = s.graph.UpsertUser(user)
	pending := s.drainDomainEvents()
	s.mu.Unlock()
	s.bus.PublishBatch(ctx, pending)
}

// MergeRemoteConnection inserts a connection that originated in another process
func (s *SocialGraphService) MergeRemoteConnection(ctx context.Context, conn *entities.Connection) {
	if conn == nil {
		return
	}
	s.mu.Lock()
	_ = s.graph.UpsertConnection(conn)
	pending := s.drainDomainEvents()
	s.mu.Unlock()
	s.bus.PublishBatch(ctx, pending)
}

// GetEventsByUser returns a user's events, pushing type and date filters
// down to the repository and degrading to the in-memory graph when the
// repository is unavailable.
func (s *SocialGraphService) GetEventsByUser(ctx context.Context, userID string, filter domainservices.POVFilter) ([]*entities.Event, error) {
	filter.UserID = userID
	seeds, err := s.fetchSeedEvents(ctx, filter)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.traversal.EventsFromPOV(s.graph, s.resolveLoaded(seeds), domainservices.POVFilter{
		UserID:         userID,
		DateRange:      filter.DateRange,
		EventTypes:     filter.EventTypes,
		LocationRadius: filter.LocationRadius,
	}), nil
}

// GetEventsFromPOV answers a point-of-view traversal query
func (s *SocialGraphService) GetEventsFromPOV(ctx context.Context, filter domainservices.POVFilter) ([]*entities.Event, error) {
	if filter.UserID == "" {
		return nil, pkgerrors.NewValidation("pov filter requires a user id")
	}

	seeds, err := s.fetchSeedEvents(ctx, filter)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.traversal.EventsFromPOV(s.graph, s.resolveLoaded(seeds), filter), nil
}

// resolveLoaded swaps repository-fetched events for their locally loaded
// instances where available. The loaded instance carries the adjacency
// accumulated since the event was persisted, which traversal depends on.
// Callers hold at least the read lock.
func (s *SocialGraphService) resolveLoaded(seeds []*entities.Event) []*entities.Event {
	resolved := make([]*entities.Event, 0, len(seeds))
	for _, seed := range seeds {
		if loaded, err := s.graph.GetEvent(seed.ID()); err == nil {
			resolved = append(resolved, loaded)
			continue
		}
		resolved = append(resolved, seed)
	}
	return resolved
}

// fetchSeedEvents loads the seed user's events with repository pushdown,
// falling back to last-known graph state on repository failure
func (s *SocialGraphService) fetchSeedEvents(ctx context.Context, filter domainservices.POVFilter) ([]*entities.Event, error) {
	repoFilter := ports.EventFilter{
		UserIDs:    []string{filter.UserID},
		EventTypes: filter.EventTypes,
	}
	if filter.DateRange != nil {
		since, until := filter.DateRange.Start(), filter.DateRange.End()
		repoFilter.Since, repoFilter.Until = &since, &until
	}

	seeds, err := s.repos.Events.FindByFilter(ctx, repoFilter)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RepositoryFailures.WithLabelValues("loadEvents").Inc()
		}
		s.logger.Warn("Seed query fell back to in-memory graph",
			zap.String("userID", filter.UserID), zap.Error(err))

		s.mu.RLock()
		seeds = s.graph.EventsByUser(filter.UserID)
		s.mu.RUnlock()
	}
	return seeds, nil
}

// Query evaluates combinable filter conditions, pushing users, event types
// and date range to the repository and applying location, mention and
// connection-count conditions in memory while preserving upstream order.
func (s *SocialGraphService) Query(ctx context.Context, conditions QueryConditions) ([]*entities.Event, error) {
	repoFilter := ports.EventFilter{
		UserIDs:    conditions.UserIDs,
		EventTypes: conditions.EventTypes,
	}
	if conditions.DateRange != nil {
		since, until := conditions.DateRange.Start(), conditions.DateRange.End()
		repoFilter.Since, repoFilter.Until = &since, &until
	}

	events, err := s.repos.Events.FindByFilter(ctx, repoFilter)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RepositoryFailures.WithLabelValues("loadEvents").Inc()
		}
		s.logger.Warn("Query fell back to in-memory graph", zap.Error(err))
		return s.queryGraphFallback(conditions), nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	filtered := make([]*entities.Event, 0, len(events))
	for _, event := range events {
		if s.matchesPostFilter(event, conditions) {
			filtered = append(filtered, event)
		}
	}
	return filtered, nil
}

// queryGraphFallback evaluates every condition against the graph store
func (s *SocialGraphService) queryGraphFallback(conditions QueryConditions) []*entities.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var allowedUsers map[string]bool
	if len(conditions.UserIDs) > 0 {
		allowedUsers = make(map[string]bool, len(conditions.UserIDs))
		for _, id := range conditions.UserIDs {
			allowedUsers[id] = true
		}
	}
	var allowedTypes map[entities.EventType]bool
	if len(conditions.EventTypes) > 0 {
		allowedTypes = make(map[entities.EventType]bool, len(conditions.EventTypes))
		for _, et := range conditions.EventTypes {
			allowedTypes[et] = true
		}
	}

	var result []*entities.Event
	for _, event := range s.graph.Events() {
		if allowedUsers != nil && !allowedUsers[event.UserID()] {
			continue
		}
		if allowedTypes != nil && !allowedTypes[event.Type()] {
			continue
		}
		if conditions.DateRange != nil && !conditions.DateRange.Contains(event.Timestamp()) {
			continue
		}
		if !s.matchesPostFilter(event, conditions) {
			continue
		}
		result = append(result, event)
	}
	return sortEventsByTimestamp(result)
}

// matchesPostFilter evaluates the conditions the repository cannot push down
func (s *SocialGraphService) matchesPostFilter(event *entities.Event, conditions QueryConditions) bool {
	if conditions.HasLocation != nil && event.HasLocation() != *conditions.HasLocation {
		return false
	}
	if conditions.HasMentions != nil && event.HasMentions() != *conditions.HasMentions {
		return false
	}
	if conditions.MinConnections > 0 {
		count := event.ConnectionCount()
		if loaded, err := s.graph.GetEvent(event.ID()); err == nil {
			count = loaded.ConnectionCount()
		}
		if count < conditions.MinConnections {
			return false
		}
	}
	return true
}

// CalculateMetrics computes the full analytics block over a snapshot of
// the current graph
func (s *SocialGraphService) CalculateMetrics() domainservices.GraphMetrics {
	s.mu.RLock()
	snapshot := s.graph.Snapshot()
	s.mu.RUnlock()

	return s.analytics.Calculate(snapshot)
}

// Timeline returns a user's denormalized timeline with computed insights
func (s *SocialGraphService) Timeline(userID string) ([]*entities.Event, []*entities.Connection, aggregates.Insights) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	timeline := s.graph.GetTimeline(userID)
	return timeline.Events(), timeline.Connections(), timeline.ComputeInsights()
}

// ExportGraph serializes a snapshot of the whole graph
func (s *SocialGraphService) ExportGraph() *dto.GraphExport {
	s.mu.RLock()
	snapshot := s.graph.Snapshot()
	s.mu.RUnlock()

	export := &dto.GraphExport{
		ExportedAt:  time.Now().UTC().Format(time.RFC3339Nano),
		Users:       make([]dto.UserRecord, 0, snapshot.Metadata().TotalUsers),
		Events:      make([]dto.EventRecord, 0, snapshot.Metadata().TotalEvents),
		Connections: make([]dto.ConnectionRecord, 0, snapshot.Metadata().TotalConnections),
	}
	for _, user := range snapshot.Users() {
		export.Users = append(export.Users, dto.NewUserRecord(user))
	}
	for _, event := range snapshot.Events() {
		export.Events = append(export.Events, dto.NewEventRecord(event))
	}
	for _, conn := range snapshot.Connections() {
		export.Connections = append(export.Connections, dto.NewConnectionRecord(conn))
	}
	for _, story := range snapshot.Stories() {
		export.Stories = append(export.Stories, dto.NewStoryRecord(story))
	}
	return export
}

// ImportGraph merges an exported snapshot into the graph. Imported
// records never trigger inference.
func (s *SocialGraphService) ImportGraph(ctx context.Context, export *dto.GraphExport) error {
	if export == nil {
		return pkgerrors.NewValidation("export cannot be nil")
	}

	s.mu.Lock()
	for _, record := range export.Users {
		_ = s.graph.LoadUser(record.ToEntity())
	}
	for _, record := range export.Events {
		_ = s.graph.LoadEvent(record.ToEntity())
	}
	skipped := 0
	for _, record := range export.Connections {
		conn, err := record.ToEntity()
		if err != nil {
			skipped++
			continue
		}
		_ = s.graph.LoadConnection(conn)
	}
	for _, record := range export.Stories {
		_ = s.graph.UpsertStory(record.ToEntity())
	}
	s.mu.Unlock()

	if skipped > 0 {
		s.logger.Warn("Skipped invalid connections during import", zap.Int("skipped", skipped))
	}
	return nil
}

// Validate checks the graph's invariants, exposed for readiness probes
func (s *SocialGraphService) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.Validate()
}

func (s *SocialGraphService) reportWriteFailure(ctx context.Context, operation string, err error) error {
	if s.metrics != nil {
		s.metrics.RepositoryFailures.WithLabelValues(operation).Inc()
	}
	s.logger.Error("Repository write failed", zap.String("operation", operation), zap.Error(err))
	s.bus.Publish(ctx, domainevents.NewDatabaseError(operation, err.Error(), time.Now().UTC()))
	return pkgerrors.Wrap(err, operation)
}

func (s *SocialGraphService) drainDomainEvents() []domainevents.DomainEvent {
	pending := s.graph.GetUncommittedEvents()
	s.graph.MarkEventsAsCommitted()
	return pending
}

func sortEventsByTimestamp(events []*entities.Event) []*entities.Event {
	for i := 1; i < len(events); i++ {
		for j := i; j > 0 && events[j].Timestamp().Before(events[j-1].Timestamp()); j-- {
			events[j], events[j-1] = events[j-1], events[j]
		}
	}
	return events
}
