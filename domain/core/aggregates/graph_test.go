package aggregates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serendipity-backend/domain/core/entities"
	"serendipity-backend/domain/events"
	pkgerrors "serendipity-backend/pkg/errors"
)

func newTestEvent(t *testing.T, id, userID string, ts time.Time) *entities.Event {
	t.Helper()
	event, err := entities.NewEvent(id, userID, entities.EventTypePost, "content of "+id, ts)
	require.NoError(t, err)
	return event
}

func newTestConnection(t *testing.T, from, to string) *entities.Connection {
	t.Helper()
	conn, err := entities.NewConnection(from, to, entities.ConnectionTypeTemporal, 0.5,
		entities.ConnectionMetadata{Confidence: 0.8})
	require.NoError(t, err)
	return conn
}

func TestGraph_AdjacencySymmetry(t *testing.T) {
	g := NewGraph()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	e1 := newTestEvent(t, "e1", "alice", base)
	e2 := newTestEvent(t, "e2", "bob", base.Add(time.Minute))
	require.NoError(t, g.UpsertEvent(e1))
	require.NoError(t, g.UpsertEvent(e2))
	require.NoError(t, g.UpsertConnection(newTestConnection(t, "e1", "e2")))

	assert.True(t, e1.IsConnectedTo("e2"))
	assert.True(t, e2.IsConnectedTo("e1"))
	assert.NoError(t, g.Validate())
}

func TestGraph_DeferredAdjacency(t *testing.T) {
	g := NewGraph()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	e1 := newTestEvent(t, "e1", "alice", base)
	require.NoError(t, g.UpsertEvent(e1))

	// e2 is not loaded yet: its side of the adjacency must wait
	require.NoError(t, g.UpsertConnection(newTestConnection(t, "e1", "e2")))
	assert.True(t, e1.IsConnectedTo("e2"))
	assert.Equal(t, 1, g.Metadata().TotalConnections)

	e2 := newTestEvent(t, "e2", "bob", base.Add(time.Minute))
	require.NoError(t, g.UpsertEvent(e2))
	assert.True(t, e2.IsConnectedTo("e1"))
	assert.NoError(t, g.Validate())
}

func TestGraph_UpsertIdempotent(t *testing.T) {
	g := NewGraph()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, g.UpsertEvent(newTestEvent(t, "e1", "alice", base)))
	require.NoError(t, g.UpsertEvent(newTestEvent(t, "e1", "alice", base)))
	assert.Equal(t, 1, g.Metadata().TotalEvents)

	require.NoError(t, g.UpsertEvent(newTestEvent(t, "e2", "alice", base)))
	conn := newTestConnection(t, "e1", "e2")
	require.NoError(t, g.UpsertConnection(conn))
	require.NoError(t, g.UpsertConnection(conn))
	assert.Equal(t, 1, g.Metadata().TotalConnections)
}

func TestGraph_ReplacementKeepsAdjacency(t *testing.T) {
	g := NewGraph()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, g.UpsertEvent(newTestEvent(t, "e1", "alice", base)))
	require.NoError(t, g.UpsertEvent(newTestEvent(t, "e2", "bob", base.Add(time.Minute))))
	require.NoError(t, g.UpsertConnection(newTestConnection(t, "e1", "e2")))

	// a remote update arrives as a fresh instance with no adjacency of its own
	replacement := newTestEvent(t, "e2", "bob", base.Add(time.Minute))
	require.Empty(t, replacement.ConnectedEventIDs())
	require.NoError(t, g.UpsertEvent(replacement))

	stored, err := g.GetEvent("e2")
	require.NoError(t, err)
	assert.True(t, stored.IsConnectedTo("e1"))
	assert.NoError(t, g.Validate())
}

func TestGraph_DateRangeWidens(t *testing.T) {
	g := NewGraph()
	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, g.UpsertEvent(newTestEvent(t, "e1", "alice", late)))
	require.NoError(t, g.UpsertEvent(newTestEvent(t, "e2", "alice", early)))

	dr := g.Metadata().DateRange
	assert.Equal(t, early, dr.Start())
	assert.Equal(t, late, dr.End())
}

func TestGraph_EventOwnership(t *testing.T) {
	g := NewGraph()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	user, _ := entities.NewUser("alice", "Alice")
	require.NoError(t, g.UpsertUser(user))
	require.NoError(t, g.UpsertEvent(newTestEvent(t, "e1", "alice", base)))

	// owner lastActive tracks the newest event timestamp
	assert.Equal(t, base, user.LastActiveAt())

	timeline := g.GetTimeline("alice")
	assert.Equal(t, 1, timeline.EventCount())
}

func TestGraph_DomainEvents(t *testing.T) {
	g := NewGraph()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("upsert raises events for new records", func(t *testing.T) {
		require.NoError(t, g.UpsertEvent(newTestEvent(t, "e1", "alice", base)))
		raised := g.GetUncommittedEvents()
		require.Len(t, raised, 1)
		assert.Equal(t, events.TypeEventAdded, raised[0].GetEventType())
		g.MarkEventsAsCommitted()
		assert.Empty(t, g.GetUncommittedEvents())
	})

	t.Run("upsert of existing record raises nothing", func(t *testing.T) {
		require.NoError(t, g.UpsertEvent(newTestEvent(t, "e1", "alice", base)))
		assert.Empty(t, g.GetUncommittedEvents())
	})

	t.Run("load raises nothing", func(t *testing.T) {
		require.NoError(t, g.LoadEvent(newTestEvent(t, "e2", "alice", base)))
		assert.Empty(t, g.GetUncommittedEvents())
	})
}

func TestGraph_RemoveEvent(t *testing.T) {
	g := NewGraph()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, g.UpsertEvent(newTestEvent(t, "e1", "alice", base)))
	require.NoError(t, g.UpsertEvent(newTestEvent(t, "e2", "bob", base)))
	require.NoError(t, g.UpsertConnection(newTestConnection(t, "e1", "e2")))

	t.Run("refuses while connections reference it", func(t *testing.T) {
		err := g.RemoveEvent("e1")
		require.Error(t, err)
		assert.True(t, pkgerrors.IsConflict(err))
		assert.True(t, g.HasEvent("e1"))
	})

	t.Run("unknown event", func(t *testing.T) {
		err := g.RemoveEvent("missing")
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

func TestGraph_Snapshot_Independent(t *testing.T) {
	g := NewGraph()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, g.UpsertEvent(newTestEvent(t, "e1", "alice", base)))
	require.NoError(t, g.UpsertEvent(newTestEvent(t, "e2", "bob", base.Add(time.Minute))))
	require.NoError(t, g.UpsertConnection(newTestConnection(t, "e1", "e2")))

	snapshot := g.Snapshot()
	require.NoError(t, snapshot.Validate())
	assert.Equal(t, g.Metadata().TotalEvents, snapshot.Metadata().TotalEvents)
	assert.Equal(t, g.Metadata().TotalConnections, snapshot.Metadata().TotalConnections)

	// mutating the snapshot leaves the original untouched
	require.NoError(t, snapshot.UpsertEvent(newTestEvent(t, "e3", "carol", base.Add(2*time.Minute))))
	assert.False(t, g.HasEvent("e3"))

	snapEvent, err := snapshot.GetEvent("e1")
	require.NoError(t, err)
	original, err := g.GetEvent("e1")
	require.NoError(t, err)
	assert.NotSame(t, original, snapEvent)
}

func TestGraph_Validate_DetectsSelfLoop(t *testing.T) {
	g := NewGraph()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	event := newTestEvent(t, "e1", "alice", base)
	require.NoError(t, g.UpsertEvent(event))
	assert.NoError(t, g.Validate())
}
