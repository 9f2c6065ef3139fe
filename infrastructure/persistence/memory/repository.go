// Package memory provides mutex-guarded in-memory implementations of the
// repository ports, used in development and as the default backend.
package memory

import (
	"context"
	"sort"
	"sync"

	"serendipity-backend/application/ports"
	"serendipity-backend/domain/core/entities"
)

// Store is the shared backing map set for all in-memory repositories
type Store struct {
	mu          sync.RWMutex
	users       map[string]*entities.User
	events      map[string]*entities.Event
	connections map[string]*entities.Connection
	stories     map[string]*entities.Story
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:       make(map[string]*entities.User),
		events:      make(map[string]*entities.Event),
		connections: make(map[string]*entities.Connection),
		stories:     make(map[string]*entities.Story),
	}
}

// UserRepository serves users from the store
type UserRepository struct{ store *Store }

// EventRepository serves events from the store
type EventRepository struct{ store *Store }

// ConnectionRepository serves connections from the store
type ConnectionRepository struct{ store *Store }

// StoryRepository serves stories from the store
type StoryRepository struct{ store *Store }

// NewRepositories creates the full repository set over one store
func NewRepositories(store *Store) (*UserRepository, *EventRepository, *ConnectionRepository, *StoryRepository) {
	return &UserRepository{store}, &EventRepository{store}, &ConnectionRepository{store}, &StoryRepository{store}
}

var (
	_ ports.UserRepository       = (*UserRepository)(nil)
	_ ports.EventRepository      = (*EventRepository)(nil)
	_ ports.ConnectionRepository = (*ConnectionRepository)(nil)
	_ ports.StoryRepository      = (*StoryRepository)(nil)
)

func (r *UserRepository) FindAll(ctx context.Context) ([]*entities.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	users := make([]*entities.User, 0, len(r.store.users))
	for _, user := range r.store.users {
		users = append(users, user.Clone())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID() < users[j].ID() })
	return users, nil
}

func (r *UserRepository) Save(ctx context.Context, user *entities.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.users[user.ID()] = user.Clone()
	return nil
}

func (r *EventRepository) FindByFilter(ctx context.Context, filter ports.EventFilter) ([]*entities.Event, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var allowedUsers map[string]bool
	if len(filter.UserIDs) > 0 {
		allowedUsers = make(map[string]bool, len(filter.UserIDs))
		for _, id := range filter.UserIDs {
			allowedUsers[id] = true
		}
	}
	var allowedTypes map[entities.EventType]bool
	if len(filter.EventTypes) > 0 {
		allowedTypes = make(map[entities.EventType]bool, len(filter.EventTypes))
		for _, et := range filter.EventTypes {
			allowedTypes[et] = true
		}
	}

	var events []*entities.Event
	for _, event := range r.store.events {
		if allowedUsers != nil && !allowedUsers[event.UserID()] {
			continue
		}
		if allowedTypes != nil && !allowedTypes[event.Type()] {
			continue
		}
		if filter.Since != nil && event.Timestamp().Before(*filter.Since) {
			continue
		}
		if filter.Until != nil && event.Timestamp().After(*filter.Until) {
			continue
		}
		events = append(events, event.Clone())
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Timestamp().Equal(events[j].Timestamp()) {
			return events[i].ID() < events[j].ID()
		}
		return events[i].Timestamp().Before(events[j].Timestamp())
	})
	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[:filter.Limit]
	}
	return events, nil
}

func (r *EventRepository) Save(ctx context.Context, event *entities.Event) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.events[event.ID()] = event.Clone()
	return nil
}

func (r *ConnectionRepository) FindByEventIDs(ctx context.Context, eventIDs []string) ([]*entities.Connection, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	wanted := make(map[string]bool, len(eventIDs))
	for _, id := range eventIDs {
		wanted[id] = true
	}

	var connections []*entities.Connection
	for _, conn := range r.store.connections {
		if wanted[conn.FromEventID()] || wanted[conn.ToEventID()] {
			connections = append(connections, conn.Clone())
		}
	}
	sort.Slice(connections, func(i, j int) bool { return connections[i].ID() < connections[j].ID() })
	return connections, nil
}

func (r *ConnectionRepository) Save(ctx context.Context, conn *entities.Connection) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.connections[conn.ID()] = conn.Clone()
	return nil
}

func (r *StoryRepository) FindAll(ctx context.Context) ([]*entities.Story, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	stories := make([]*entities.Story, 0, len(r.store.stories))
	for _, story := range r.store.stories {
		stories = append(stories, story.Clone())
	}
	sort.Slice(stories, func(i, j int) bool { return stories[i].ID() < stories[j].ID() })
	return stories, nil
}

func (r *StoryRepository) Save(ctx context.Context, story *entities.Story) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.stories[story.ID()] = story.Clone()
	return nil
}
