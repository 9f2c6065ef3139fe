package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appevents "serendipity-backend/application/events"
	"serendipity-backend/application/ports"
	"serendipity-backend/domain/core/entities"
	domainevents "serendipity-backend/domain/events"
	domainservices "serendipity-backend/domain/services"
)

// stubUserRepo / stubEventRepo / stubConnectionRepo / stubStoryRepo are
// hand-rolled fakes with injectable failures
type stubUserRepo struct {
	users   []*entities.User
	findErr error
	saveErr error
}

func (r *stubUserRepo) FindAll(ctx context.Context) ([]*entities.User, error) {
	return r.users, r.findErr
}

func (r *stubUserRepo) Save(ctx context.Context, user *entities.User) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.users = append(r.users, user)
	return nil
}

type stubEventRepo struct {
	events  []*entities.Event
	findErr error
	saveErr error
	saved   []*entities.Event
}

func (r *stubEventRepo) FindByFilter(ctx context.Context, filter ports.EventFilter) ([]*entities.Event, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	var allowed map[string]bool
	if len(filter.UserIDs) > 0 {
		allowed = make(map[string]bool)
		for _, id := range filter.UserIDs {
			allowed[id] = true
		}
	}
	var result []*entities.Event
	for _, e := range r.events {
		if allowed != nil && !allowed[e.UserID()] {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func (r *stubEventRepo) Save(ctx context.Context, event *entities.Event) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, event)
	r.events = append(r.events, event)
	return nil
}

type stubConnectionRepo struct {
	conns   []*entities.Connection
	findErr error
	// saveErr decides per connection; nil accepts everything
	saveErr func(*entities.Connection) error
	saved   []*entities.Connection
}

func (r *stubConnectionRepo) FindByEventIDs(ctx context.Context, eventIDs []string) ([]*entities.Connection, error) {
	return r.conns, r.findErr
}

func (r *stubConnectionRepo) Save(ctx context.Context, conn *entities.Connection) error {
	if r.saveErr != nil {
		if err := r.saveErr(conn); err != nil {
			return err
		}
	}
	r.saved = append(r.saved, conn)
	return nil
}

type stubStoryRepo struct {
	stories []*entities.Story
}

func (r *stubStoryRepo) FindAll(ctx context.Context) ([]*entities.Story, error) {
	return r.stories, nil
}

func (r *stubStoryRepo) Save(ctx context.Context, story *entities.Story) error {
	r.stories = append(r.stories, story)
	return nil
}

func newTestService(users *stubUserRepo, events *stubEventRepo, conns *stubConnectionRepo) *SocialGraphService {
	return NewSocialGraphService(
		Repositories{Users: users, Events: events, Connections: conns, Stories: &stubStoryRepo{}},
		domainservices.NewInferenceEngine(nil, nil),
		appevents.NewBus(zap.NewNop()),
		nil,
		zap.NewNop(),
	)
}

func mustEvent(t *testing.T, id, userID, content string, ts time.Time) *entities.Event {
	t.Helper()
	event, err := entities.NewEvent(id, userID, entities.EventTypePost, content, ts)
	require.NoError(t, err)
	return event
}

func TestAddEvent_InfersAndCommits(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	events := &stubEventRepo{}
	conns := &stubConnectionRepo{}
	svc := newTestService(&stubUserRepo{}, events, conns)

	_, err := svc.AddEvent(ctx, mustEvent(t, "e1", "alice", "coffee downtown", base))
	require.NoError(t, err)

	result, err := svc.AddEvent(ctx, mustEvent(t, "e2", "alice", "more coffee downtown", base.Add(time.Minute)))
	require.NoError(t, err)

	// same owner within the hour: temporal + relational at least
	require.NotEmpty(t, result.Committed)
	assert.Empty(t, result.Dropped)
	assert.False(t, result.PartialFailure())
	assert.Len(t, conns.saved, len(result.Committed))
	assert.NoError(t, svc.Validate())
}

func TestAddEvent_PartialFailure(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	events := &stubEventRepo{}
	conns := &stubConnectionRepo{
		saveErr: func(conn *entities.Connection) error {
			if conn.Type() == entities.ConnectionTypeTemporal {
				return errors.New("write throttled")
			}
			return nil
		},
	}
	svc := newTestService(&stubUserRepo{}, events, conns)

	_, err := svc.AddEvent(ctx, mustEvent(t, "e1", "alice", "aaa", base))
	require.NoError(t, err)

	result, err := svc.AddEvent(ctx, mustEvent(t, "e2", "alice", "bbb", base.Add(time.Minute)))
	require.NoError(t, err)

	// the temporal candidate is dropped, the relational one commits
	assert.True(t, result.PartialFailure())
	require.Len(t, result.Dropped, 1)
	assert.Equal(t, entities.ConnectionTypeTemporal, result.Dropped[0].Connection.Type())
	require.Len(t, result.Committed, 1)
	assert.Equal(t, entities.ConnectionTypeRelational, result.Committed[0].Type())

	// the dropped candidate never reaches the graph
	_, getErr := svc.graph.GetConnection(result.Dropped[0].Connection.ID())
	assert.Error(t, getErr)
	assert.NoError(t, svc.Validate())
}

func TestAddEvent_EventSaveFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	events := &stubEventRepo{saveErr: errors.New("table missing")}
	svc := newTestService(&stubUserRepo{}, events, &stubConnectionRepo{})

	_, err := svc.AddEvent(ctx, mustEvent(t, "e1", "alice", "aaa", base))
	require.Error(t, err)

	// nothing was admitted into the graph
	assert.False(t, svc.graph.HasEvent("e1"))
}

func TestAddEvent_PublishesDomainEvents(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	svc := newTestService(&stubUserRepo{}, &stubEventRepo{}, &stubConnectionRepo{})

	var published []string
	svc.On(domainevents.TypeEventAdded, func(ctx context.Context, e domainevents.DomainEvent) {
		published = append(published, e.GetAggregateID())
	})

	_, err := svc.AddEvent(ctx, mustEvent(t, "e1", "alice", "aaa", base))
	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, published)
}

func TestMergeRemote_NoInference(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	events := &stubEventRepo{}
	conns := &stubConnectionRepo{}
	svc := newTestService(&stubUserRepo{}, events, conns)

	_, err := svc.AddEvent(ctx, mustEvent(t, "e1", "alice", "coffee", base))
	require.NoError(t, err)

	// a remote event that would trigger inference if it went through AddEvent
	svc.MergeRemoteEvent(ctx, mustEvent(t, "e2", "alice", "coffee", base.Add(time.Minute)))

	assert.True(t, svc.graph.HasEvent("e2"))
	assert.Empty(t, conns.saved)
	assert.Empty(t, svc.graph.Connections())
}

func TestInitialize_Hydrates(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	alice, _ := entities.NewUser("alice", "Alice")
	e1 := mustEvent(t, "e1", "alice", "aaa", base)
	e2 := mustEvent(t, "e2", "bob", "bbb", base.Add(time.Minute))
	conn, err := entities.NewConnection("e1", "e2", entities.ConnectionTypeTemporal, 0.9,
		entities.ConnectionMetadata{Confidence: 0.8})
	require.NoError(t, err)

	svc := newTestService(
		&stubUserRepo{users: []*entities.User{alice}},
		&stubEventRepo{events: []*entities.Event{e1, e2}},
		&stubConnectionRepo{conns: []*entities.Connection{conn}},
	)

	var initialized bool
	svc.On(domainevents.TypeDatabaseInitialized, func(ctx context.Context, e domainevents.DomainEvent) {
		initialized = true
	})

	require.NoError(t, svc.Initialize(ctx))
	assert.True(t, initialized)
	assert.True(t, svc.graph.HasEvent("e1"))
	assert.True(t, svc.graph.HasEvent("e2"))
	assert.Equal(t, 1, svc.graph.Metadata().TotalConnections)
	assert.NoError(t, svc.Validate())
}

func TestInitialize_ReportsLoadFailure(t *testing.T) {
	ctx := context.Background()

	svc := newTestService(
		&stubUserRepo{findErr: errors.New("endpoint down")},
		&stubEventRepo{},
		&stubConnectionRepo{},
	)

	var failed bool
	svc.On(domainevents.TypeDatabaseError, func(ctx context.Context, e domainevents.DomainEvent) {
		failed = true
	})

	assert.Error(t, svc.Initialize(ctx))
	assert.True(t, failed)
}

func TestQuery_PostFilters(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	withMention := mustEvent(t, "e1", "alice", "hi", base)
	withMention.SetMentions([]string{"bob"})
	plain := mustEvent(t, "e2", "alice", "hi", base.Add(time.Minute))

	svc := newTestService(
		&stubUserRepo{},
		&stubEventRepo{events: []*entities.Event{withMention, plain}},
		&stubConnectionRepo{},
	)

	hasMentions := true
	result, err := svc.Query(ctx, QueryConditions{HasMentions: &hasMentions})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "e1", result[0].ID())

	hasMentions = false
	result, err = svc.Query(ctx, QueryConditions{HasMentions: &hasMentions})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "e2", result[0].ID())
}

func TestQuery_FallsBackToGraphOnRepoError(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	events := &stubEventRepo{}
	svc := newTestService(&stubUserRepo{}, events, &stubConnectionRepo{})
	_, err := svc.AddEvent(ctx, mustEvent(t, "e1", "alice", "aaa", base))
	require.NoError(t, err)

	// repository starts failing after the event is already in memory
	events.findErr = errors.New("endpoint down")

	result, err := svc.Query(ctx, QueryConditions{UserIDs: []string{"alice"}})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "e1", result[0].ID())
}

func TestGetEventsFromPOV_RequiresUser(t *testing.T) {
	svc := newTestService(&stubUserRepo{}, &stubEventRepo{}, &stubConnectionRepo{})
	_, err := svc.GetEventsFromPOV(context.Background(), domainservices.POVFilter{})
	assert.Error(t, err)
}

func TestGetEventsFromPOV_ExpandsConnections(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	events := &stubEventRepo{}
	svc := newTestService(&stubUserRepo{}, events, &stubConnectionRepo{})

	_, err := svc.AddEvent(ctx, mustEvent(t, "e1", "alice", "coffee downtown", base))
	require.NoError(t, err)
	_, err = svc.AddEvent(ctx, mustEvent(t, "e2", "bob", "coffee downtown today", base.Add(time.Minute)))
	require.NoError(t, err)

	t.Run("seeds only", func(t *testing.T) {
		result, err := svc.GetEventsFromPOV(ctx, domainservices.POVFilter{UserID: "alice"})
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, "e1", result[0].ID())
	})

	t.Run("one degree pulls in bob's event", func(t *testing.T) {
		result, err := svc.GetEventsFromPOV(ctx, domainservices.POVFilter{
			UserID: "alice", IncludeConnections: true, MaxDegrees: 1,
		})
		require.NoError(t, err)
		require.Len(t, result, 2)
		assert.Equal(t, "e1", result[0].ID())
		assert.Equal(t, "e2", result[1].ID())
	})
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	source := newTestService(&stubUserRepo{}, &stubEventRepo{}, &stubConnectionRepo{})
	require.NoError(t, source.AddUser(ctx, mustUser(t, "alice", "Alice")))
	_, err := source.AddEvent(ctx, mustEvent(t, "e1", "alice", "coffee downtown", base))
	require.NoError(t, err)
	_, err = source.AddEvent(ctx, mustEvent(t, "e2", "alice", "coffee downtown again", base.Add(time.Minute)))
	require.NoError(t, err)

	export := source.ExportGraph()
	require.NotEmpty(t, export.Events)
	require.NotEmpty(t, export.Connections)

	target := newTestService(&stubUserRepo{}, &stubEventRepo{}, &stubConnectionRepo{})
	require.NoError(t, target.ImportGraph(ctx, export))

	assert.Equal(t, source.graph.Metadata().TotalEvents, target.graph.Metadata().TotalEvents)
	assert.Equal(t, source.graph.Metadata().TotalConnections, target.graph.Metadata().TotalConnections)
	assert.NoError(t, target.Validate())
}

func mustUser(t *testing.T, id, name string) *entities.User {
	t.Helper()
	user, err := entities.NewUser(id, name)
	require.NoError(t, err)
	return user
}
