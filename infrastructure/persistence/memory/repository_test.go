package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serendipity-backend/application/ports"
	"serendipity-backend/domain/core/entities"
)

func seedEvents(t *testing.T, repo *EventRepository) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	specs := []struct {
		id     string
		userID string
		etype  entities.EventType
		offset time.Duration
	}{
		{"e1", "alice", entities.EventTypePost, 0},
		{"e2", "alice", entities.EventTypeCheckIn, time.Hour},
		{"e3", "bob", entities.EventTypePost, 2 * time.Hour},
	}
	for _, spec := range specs {
		event, err := entities.NewEvent(spec.id, spec.userID, spec.etype, "content", base.Add(spec.offset))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, event))
	}
}

func TestEventRepository_FindByFilter(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	_, events, _, _ := NewRepositories(store)
	seedEvents(t, events)

	t.Run("empty filter returns everything ordered", func(t *testing.T) {
		result, err := events.FindByFilter(ctx, ports.EventFilter{})
		require.NoError(t, err)
		require.Len(t, result, 3)
		assert.Equal(t, "e1", result[0].ID())
		assert.Equal(t, "e3", result[2].ID())
	})

	t.Run("by user", func(t *testing.T) {
		result, err := events.FindByFilter(ctx, ports.EventFilter{UserIDs: []string{"bob"}})
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, "e3", result[0].ID())
	})

	t.Run("by type", func(t *testing.T) {
		result, err := events.FindByFilter(ctx, ports.EventFilter{EventTypes: []entities.EventType{entities.EventTypeCheckIn}})
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, "e2", result[0].ID())
	})

	t.Run("by date range", func(t *testing.T) {
		since := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
		until := time.Date(2025, 3, 1, 13, 30, 0, 0, time.UTC)
		result, err := events.FindByFilter(ctx, ports.EventFilter{Since: &since, Until: &until})
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, "e2", result[0].ID())
	})

	t.Run("limit", func(t *testing.T) {
		result, err := events.FindByFilter(ctx, ports.EventFilter{Limit: 2})
		require.NoError(t, err)
		require.Len(t, result, 2)
		assert.Equal(t, "e1", result[0].ID())
	})
}

func TestEventRepository_ReturnsClones(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	_, events, _, _ := NewRepositories(store)
	seedEvents(t, events)

	first, err := events.FindByFilter(ctx, ports.EventFilter{UserIDs: []string{"bob"}})
	require.NoError(t, err)
	first[0].UpdateContent("mutated")

	second, err := events.FindByFilter(ctx, ports.EventFilter{UserIDs: []string{"bob"}})
	require.NoError(t, err)
	assert.Equal(t, "content", second[0].Content())
}

func TestConnectionRepository_FindByEventIDs(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	_, _, conns, _ := NewRepositories(store)

	mk := func(from, to string) *entities.Connection {
		conn, err := entities.NewConnection(from, to, entities.ConnectionTypeTemporal, 0.5,
			entities.ConnectionMetadata{Confidence: 0.8})
		require.NoError(t, err)
		return conn
	}
	require.NoError(t, conns.Save(ctx, mk("e1", "e2")))
	require.NoError(t, conns.Save(ctx, mk("e2", "e3")))
	require.NoError(t, conns.Save(ctx, mk("e4", "e5")))

	t.Run("matches both endpoints", func(t *testing.T) {
		result, err := conns.FindByEventIDs(ctx, []string{"e2"})
		require.NoError(t, err)
		assert.Len(t, result, 2)
	})

	t.Run("no matches", func(t *testing.T) {
		result, err := conns.FindByEventIDs(ctx, []string{"e9"})
		require.NoError(t, err)
		assert.Empty(t, result)
	})
}

func TestUserRepository_SaveAndFindAll(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	users, _, _, _ := NewRepositories(store)

	bob, err := entities.NewUser("bob", "Bob")
	require.NoError(t, err)
	alice, err := entities.NewUser("alice", "Alice")
	require.NoError(t, err)
	require.NoError(t, users.Save(ctx, bob))
	require.NoError(t, users.Save(ctx, alice))

	result, err := users.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "alice", result[0].ID())
	assert.Equal(t, "bob", result[1].ID())
}
