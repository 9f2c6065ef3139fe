package events

import (
	"time"
)

// Event type names used for subscriptions
const (
	TypeUserAdded           = "userAdded"
	TypeEventAdded          = "eventAdded"
	TypeConnectionAdded     = "connectionAdded"
	TypeDatabaseInitialized = "databaseInitialized"
	TypeDatabaseError       = "databaseError"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// UserAdded is raised when a user is added to the graph
type UserAdded struct {
	BaseEvent
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// NewUserAdded creates a UserAdded event
func NewUserAdded(userID, displayName string, timestamp time.Time) UserAdded {
	return UserAdded{
		BaseEvent: BaseEvent{
			AggregateID: userID,
			EventType:   TypeUserAdded,
			Timestamp:   timestamp,
			Version:     1,
		},
		UserID:      userID,
		DisplayName: displayName,
	}
}

// EventAdded is raised when a social event is inserted into the graph
type EventAdded struct {
	BaseEvent
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	Kind       string    `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEventAdded creates an EventAdded event
func NewEventAdded(eventID, userID, kind string, occurredAt, timestamp time.Time) EventAdded {
	return EventAdded{
		BaseEvent: BaseEvent{
			AggregateID: eventID,
			EventType:   TypeEventAdded,
			Timestamp:   timestamp,
			Version:     1,
		},
		EventID:    eventID,
		UserID:     userID,
		Kind:       kind,
		OccurredAt: occurredAt,
	}
}

// ConnectionAdded is raised when an inferred or explicit connection is committed
type ConnectionAdded struct {
	BaseEvent
	ConnectionID string  `json:"connection_id"`
	FromEventID  string  `json:"from_event_id"`
	ToEventID    string  `json:"to_event_id"`
	Kind         string  `json:"kind"`
	Strength     float64 `json:"strength"`
}

// NewConnectionAdded creates a ConnectionAdded event
func NewConnectionAdded(connectionID, fromEventID, toEventID, kind string, strength float64, timestamp time.Time) ConnectionAdded {
	return ConnectionAdded{
		BaseEvent: BaseEvent{
			AggregateID: connectionID,
			EventType:   TypeConnectionAdded,
			Timestamp:   timestamp,
			Version:     1,
		},
		ConnectionID: connectionID,
		FromEventID:  fromEventID,
		ToEventID:    toEventID,
		Kind:         kind,
		Strength:     strength,
	}
}

// DatabaseInitialized is raised once the graph has been hydrated from storage
type DatabaseInitialized struct {
	BaseEvent
	UserCount       int `json:"user_count"`
	EventCount      int `json:"event_count"`
	ConnectionCount int `json:"connection_count"`
}

// NewDatabaseInitialized creates a DatabaseInitialized event
func NewDatabaseInitialized(userCount, eventCount, connectionCount int, timestamp time.Time) DatabaseInitialized {
	return DatabaseInitialized{
		BaseEvent: BaseEvent{
			AggregateID: "graph",
			EventType:   TypeDatabaseInitialized,
			Timestamp:   timestamp,
			Version:     1,
		},
		UserCount:       userCount,
		EventCount:      eventCount,
		ConnectionCount: connectionCount,
	}
}

// DatabaseError is raised when a repository operation fails
type DatabaseError struct {
	BaseEvent
	Operation string `json:"operation"`
	Message   string `json:"message"`
}

// NewDatabaseError creates a DatabaseError event
func NewDatabaseError(operation, message string, timestamp time.Time) DatabaseError {
	return DatabaseError{
		BaseEvent: BaseEvent{
			AggregateID: "graph",
			EventType:   TypeDatabaseError,
			Timestamp:   timestamp,
			Version:     1,
		},
		Operation: operation,
		Message:   message,
	}
}
