package ports

import (
	"context"
	"time"

	"serendipity-backend/domain/core/entities"
)

// EventFilter carries conditions the storage layer can evaluate itself
type EventFilter struct {
	UserIDs    []string
	EventTypes []entities.EventType
	Since      *time.Time
	Until      *time.Time
	Limit      int
}

// UserRepository loads and stores users.
// Implementations perform I/O and return repository-typed errors on failure.
type UserRepository interface {
	FindAll(ctx context.Context) ([]*entities.User, error)
	Save(ctx context.Context, user *entities.User) error
}

// EventRepository loads and stores events with filter pushdown
type EventRepository interface {
	FindByFilter(ctx context.Context, filter EventFilter) ([]*entities.Event, error)
	Save(ctx context.Context, event *entities.Event) error
}

// ConnectionRepository loads and stores connections
type ConnectionRepository interface {
	FindByEventIDs(ctx context.Context, eventIDs []string) ([]*entities.Connection, error)
	Save(ctx context.Context, conn *entities.Connection) error
}

// StoryRepository loads and stores externally-authored stories
type StoryRepository interface {
	FindAll(ctx context.Context) ([]*entities.Story, error)
	Save(ctx context.Context, story *entities.Story) error
}
