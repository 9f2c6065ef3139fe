package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serendipity-backend/domain/core/aggregates"
	"serendipity-backend/domain/core/entities"
	"serendipity-backend/domain/core/valueobjects"
)

func buildEvent(t *testing.T, id, userID, content string, ts time.Time) *entities.Event {
	t.Helper()
	event, err := entities.NewEvent(id, userID, entities.EventTypePost, content, ts)
	require.NoError(t, err)
	return event
}

func graphWith(t *testing.T, events ...*entities.Event) *aggregates.Graph {
	t.Helper()
	g := aggregates.NewGraph()
	for _, e := range events {
		require.NoError(t, g.LoadEvent(e))
	}
	return g
}

func connectionsByType(conns []*entities.Connection) map[entities.ConnectionType]*entities.Connection {
	byType := make(map[entities.ConnectionType]*entities.Connection)
	for _, c := range conns {
		byType[c.Type()] = c
	}
	return byType
}

func TestDiscoverConnections_Temporal(t *testing.T) {
	engine := NewInferenceEngine(nil, nil)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("close events link with near-full strength", func(t *testing.T) {
		existing := buildEvent(t, "e1", "alice", "aaa", base)
		incoming := buildEvent(t, "e2", "bob", "bbb", base.Add(500*time.Millisecond))
		g := graphWith(t, existing)

		conns := engine.DiscoverConnections(incoming, g)
		byType := connectionsByType(conns)
		temporal := byType[entities.ConnectionTypeTemporal]
		require.NotNil(t, temporal)
		assert.InDelta(t, 1-500.0/3600000.0, temporal.Strength(), 1e-9)
		assert.Equal(t, int64(500), temporal.Metadata().TimeDeltaMs)
		assert.Equal(t, 0.8, temporal.Metadata().Confidence)
	})

	t.Run("window boundary is exclusive", func(t *testing.T) {
		existing := buildEvent(t, "e1", "alice", "aaa", base)
		incoming := buildEvent(t, "e2", "bob", "bbb", base.Add(time.Hour))
		g := graphWith(t, existing)

		conns := engine.DiscoverConnections(incoming, g)
		assert.Nil(t, connectionsByType(conns)[entities.ConnectionTypeTemporal])
	})

	t.Run("just inside the window", func(t *testing.T) {
		existing := buildEvent(t, "e1", "alice", "aaa", base)
		incoming := buildEvent(t, "e2", "bob", "bbb", base.Add(time.Hour-time.Millisecond))
		g := graphWith(t, existing)

		conns := engine.DiscoverConnections(incoming, g)
		temporal := connectionsByType(conns)[entities.ConnectionTypeTemporal]
		require.NotNil(t, temporal)
		assert.Greater(t, temporal.Strength(), 0.0)
	})

	t.Run("direction does not matter", func(t *testing.T) {
		existing := buildEvent(t, "e1", "alice", "aaa", base.Add(30*time.Minute))
		incoming := buildEvent(t, "e2", "bob", "bbb", base)
		g := graphWith(t, existing)

		conns := engine.DiscoverConnections(incoming, g)
		temporal := connectionsByType(conns)[entities.ConnectionTypeTemporal]
		require.NotNil(t, temporal)
		assert.InDelta(t, 0.5, temporal.Strength(), 1e-9)
	})
}

func TestDiscoverConnections_Relational(t *testing.T) {
	engine := NewInferenceEngine(nil, nil)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	far := base.Add(48 * time.Hour) // outside the temporal window

	t.Run("same owner links events", func(t *testing.T) {
		existing := buildEvent(t, "e1", "alice", "aaa", base)
		incoming := buildEvent(t, "e2", "alice", "bbb", far)
		g := graphWith(t, existing)

		conns := engine.DiscoverConnections(incoming, g)
		relational := connectionsByType(conns)[entities.ConnectionTypeRelational]
		require.NotNil(t, relational)
		assert.InDelta(t, 0.2, relational.Strength(), 1e-9)
		assert.Equal(t, []string{"alice"}, relational.Metadata().CommonUserIDs)
		assert.Equal(t, 0.9, relational.Metadata().Confidence)
	})

	t.Run("mentions count toward the intersection", func(t *testing.T) {
		existing := buildEvent(t, "e1", "alice", "aaa", base)
		existing.SetMentions([]string{"bob", "carol"})
		incoming := buildEvent(t, "e2", "dave", "bbb", far)
		incoming.SetMentions([]string{"bob", "carol"})
		g := graphWith(t, existing)

		conns := engine.DiscoverConnections(incoming, g)
		relational := connectionsByType(conns)[entities.ConnectionTypeRelational]
		require.NotNil(t, relational)
		assert.InDelta(t, 0.4, relational.Strength(), 1e-9)
		assert.Equal(t, []string{"bob", "carol"}, relational.Metadata().CommonUserIDs)
	})

	t.Run("strength saturates at five common users", func(t *testing.T) {
		existing := buildEvent(t, "e1", "alice", "aaa", base)
		existing.SetMentions([]string{"u1", "u2", "u3", "u4", "u5", "u6"})
		incoming := buildEvent(t, "e2", "alice", "bbb", far)
		incoming.SetMentions([]string{"u1", "u2", "u3", "u4", "u5", "u6"})
		g := graphWith(t, existing)

		conns := engine.DiscoverConnections(incoming, g)
		relational := connectionsByType(conns)[entities.ConnectionTypeRelational]
		require.NotNil(t, relational)
		assert.Equal(t, 1.0, relational.Strength())
	})

	t.Run("disjoint participants produce nothing", func(t *testing.T) {
		existing := buildEvent(t, "e1", "alice", "aaa", base)
		incoming := buildEvent(t, "e2", "bob", "bbb", far)
		g := graphWith(t, existing)

		conns := engine.DiscoverConnections(incoming, g)
		assert.Nil(t, connectionsByType(conns)[entities.ConnectionTypeRelational])
	})
}

func TestDiscoverConnections_Location(t *testing.T) {
	engine := NewInferenceEngine(nil, nil)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	far := base.Add(48 * time.Hour)

	t.Run("identical coordinates give strength one", func(t *testing.T) {
		loc, _ := valueobjects.NewGeoLocation(48.8566, 2.3522, "", "")
		existing := buildEvent(t, "e1", "alice", "aaa", base)
		existing.SetLocation(loc)
		incoming := buildEvent(t, "e2", "bob", "bbb", far)
		incoming.SetLocation(loc)
		g := graphWith(t, existing)

		conns := engine.DiscoverConnections(incoming, g)
		location := connectionsByType(conns)[entities.ConnectionTypeLocation]
		require.NotNil(t, location)
		assert.Equal(t, 1.0, location.Strength())
		assert.Equal(t, 0.0, location.Metadata().DistanceMeters)
		assert.Equal(t, 0.7, location.Metadata().Confidence)
	})

	t.Run("outside the radius produces nothing", func(t *testing.T) {
		nearLoc, _ := valueobjects.NewGeoLocation(48.8566, 2.3522, "", "")
		farLoc, _ := valueobjects.NewGeoLocation(48.8766, 2.3522, "", "") // ~2.2 km north
		existing := buildEvent(t, "e1", "alice", "aaa", base)
		existing.SetLocation(nearLoc)
		incoming := buildEvent(t, "e2", "bob", "bbb", far)
		incoming.SetLocation(farLoc)
		g := graphWith(t, existing)

		conns := engine.DiscoverConnections(incoming, g)
		assert.Nil(t, connectionsByType(conns)[entities.ConnectionTypeLocation])
	})

	t.Run("missing location on either side produces nothing", func(t *testing.T) {
		loc, _ := valueobjects.NewGeoLocation(48.8566, 2.3522, "", "")
		existing := buildEvent(t, "e1", "alice", "aaa", base)
		existing.SetLocation(loc)
		incoming := buildEvent(t, "e2", "bob", "bbb", far)
		g := graphWith(t, existing)

		conns := engine.DiscoverConnections(incoming, g)
		assert.Nil(t, connectionsByType(conns)[entities.ConnectionTypeLocation])
	})
}

func TestDiscoverConnections_Semantic(t *testing.T) {
	engine := NewInferenceEngine(nil, nil)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	far := base.Add(48 * time.Hour)

	t.Run("one third overlap stays below the threshold", func(t *testing.T) {
		existing := buildEvent(t, "e1", "alice", "hello world", base)
		incoming := buildEvent(t, "e2", "bob", "hello universe", far)
		g := graphWith(t, existing)

		// Jaccard({hello,world},{hello,universe}) = 1/3
		conns := engine.DiscoverConnections(incoming, g)
		assert.Nil(t, connectionsByType(conns)[entities.ConnectionTypeSemantic])
	})

	t.Run("high overlap links with similarity as strength", func(t *testing.T) {
		existing := buildEvent(t, "e1", "alice", "coffee at the corner shop", base)
		incoming := buildEvent(t, "e2", "bob", "Coffee at the corner", far)
		g := graphWith(t, existing)

		// Jaccard = 4/5 after lowercasing
		conns := engine.DiscoverConnections(incoming, g)
		semantic := connectionsByType(conns)[entities.ConnectionTypeSemantic]
		require.NotNil(t, semantic)
		assert.InDelta(t, 0.8, semantic.Strength(), 1e-9)
		assert.InDelta(t, 0.8, semantic.Metadata().SemanticSimilarity, 1e-9)
		assert.Equal(t, 0.6, semantic.Metadata().Confidence)
	})

	t.Run("threshold itself is exclusive", func(t *testing.T) {
		existing := buildEvent(t, "e1", "alice", "a b c d", base)
		incoming := buildEvent(t, "e2", "bob", "a b e f", far)
		g := graphWith(t, existing)

		// Jaccard = 2/6 = 1/3, below threshold; then exactly 0.5 must also fail
		conns := engine.DiscoverConnections(incoming, g)
		assert.Nil(t, connectionsByType(conns)[entities.ConnectionTypeSemantic])

		halfExisting := buildEvent(t, "e3", "alice", "a b c", base)
		halfIncoming := buildEvent(t, "e4", "bob", "a b d", far)
		// Jaccard({a,b,c},{a,b,d}) = 2/4 = 0.5 exactly
		conns = engine.DiscoverConnections(halfIncoming, graphWith(t, halfExisting))
		assert.Nil(t, connectionsByType(conns)[entities.ConnectionTypeSemantic])
	})

	t.Run("empty content never links", func(t *testing.T) {
		existing := buildEvent(t, "e1", "alice", "", base)
		incoming := buildEvent(t, "e2", "bob", "", far)
		g := graphWith(t, existing)

		conns := engine.DiscoverConnections(incoming, g)
		assert.Nil(t, connectionsByType(conns)[entities.ConnectionTypeSemantic])
	})
}

func TestDiscoverConnections_Combined(t *testing.T) {
	engine := NewInferenceEngine(nil, nil)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	loc, _ := valueobjects.NewGeoLocation(48.8566, 2.3522, "", "")
	existing := buildEvent(t, "e1", "alice", "lunch at the market", base)
	existing.SetLocation(loc)

	incoming := buildEvent(t, "e2", "alice", "lunch at the market", base.Add(500*time.Millisecond))
	incoming.SetLocation(loc)

	g := graphWith(t, existing)
	conns := engine.DiscoverConnections(incoming, g)

	// all four heuristics trigger independently for the same pair
	require.Len(t, conns, 4)
	byType := connectionsByType(conns)
	assert.NotNil(t, byType[entities.ConnectionTypeTemporal])
	assert.NotNil(t, byType[entities.ConnectionTypeRelational])
	assert.NotNil(t, byType[entities.ConnectionTypeLocation])
	assert.NotNil(t, byType[entities.ConnectionTypeSemantic])

	// deterministic id format and ordering
	assert.Equal(t, "e2-e1-location", byType[entities.ConnectionTypeLocation].ID())
	for i := 1; i < len(conns); i++ {
		assert.Less(t, conns[i-1].ID(), conns[i].ID())
	}
}

func TestDiscoverConnections_SkipsSelf(t *testing.T) {
	engine := NewInferenceEngine(nil, nil)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	event := buildEvent(t, "e1", "alice", "hello", base)
	g := graphWith(t, event)

	assert.Empty(t, engine.DiscoverConnections(event, g))
}

func TestDiscoverConnections_EmptyGraph(t *testing.T) {
	engine := NewInferenceEngine(nil, nil)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	event := buildEvent(t, "e1", "alice", "hello", base)
	assert.Empty(t, engine.DiscoverConnections(event, aggregates.NewGraph()))
}
