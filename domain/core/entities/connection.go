package entities

import (
	"fmt"
	"time"

	pkgerrors "serendipity-backend/pkg/errors"
)

// ConnectionType classifies the signal that produced a connection
type ConnectionType string

const (
	ConnectionTypeTemporal   ConnectionType = "temporal"
	ConnectionTypeRelational ConnectionType = "relational"
	ConnectionTypeLocation   ConnectionType = "location"
	ConnectionTypeSemantic   ConnectionType = "semantic"
	ConnectionTypeCausal     ConnectionType = "causal"
	ConnectionTypeMedia      ConnectionType = "media"
)

var knownConnectionTypes = map[ConnectionType]bool{
	ConnectionTypeTemporal: true, ConnectionTypeRelational: true,
	ConnectionTypeLocation: true, ConnectionTypeSemantic: true,
	ConnectionTypeCausal: true, ConnectionTypeMedia: true,
}

// ConnectionMetadata carries type-specific measurements for a connection
type ConnectionMetadata struct {
	TimeDeltaMs        int64    `json:"time_delta_ms,omitempty"`
	DistanceMeters     float64  `json:"distance_meters,omitempty"`
	CommonUserIDs      []string `json:"common_user_ids,omitempty"`
	SemanticSimilarity float64  `json:"semantic_similarity,omitempty"`
	Confidence         float64  `json:"confidence"`
}

// Connection is a scored, typed edge between two events.
// The from/to fields preserve provenance; the runtime graph treats the
// edge as undirected. Connections are immutable once created.
type Connection struct {
	id          string
	fromEventID string
	toEventID   string
	ctype       ConnectionType
	strength    float64
	metadata    ConnectionMetadata
	createdAt   time.Time
}

// ConnectionID builds the deterministic identifier for an edge
func ConnectionID(fromEventID, toEventID string, ctype ConnectionType) string {
	return fmt.Sprintf("%s-%s-%s", fromEventID, toEventID, ctype)
}

// NewConnection creates a connection after validating the edge invariants
func NewConnection(fromEventID, toEventID string, ctype ConnectionType, strength float64, metadata ConnectionMetadata) (*Connection, error) {
	if fromEventID == "" || toEventID == "" {
		return nil, pkgerrors.NewValidation("connection endpoints cannot be empty")
	}
	if fromEventID == toEventID {
		return nil, pkgerrors.NewValidation("connection cannot link an event to itself")
	}
	if !knownConnectionTypes[ctype] {
		return nil, pkgerrors.NewValidation(fmt.Sprintf("unknown connection type: %s", ctype))
	}
	if strength < 0 || strength > 1 {
		return nil, pkgerrors.NewValidation("connection strength must be within [0, 1]")
	}
	if metadata.Confidence < 0 || metadata.Confidence > 1 {
		return nil, pkgerrors.NewValidation("connection confidence must be within [0, 1]")
	}

	return &Connection{
		id:          ConnectionID(fromEventID, toEventID, ctype),
		fromEventID: fromEventID,
		toEventID:   toEventID,
		ctype:       ctype,
		strength:    strength,
		metadata:    metadata,
		createdAt:   time.Now().UTC(),
	}, nil
}

// ReconstructConnection rebuilds a connection from stored data
func ReconstructConnection(fromEventID, toEventID string, ctype ConnectionType, strength float64, metadata ConnectionMetadata, createdAt time.Time) (*Connection, error) {
	conn, err := NewConnection(fromEventID, toEventID, ctype, strength, metadata)
	if err != nil {
		return nil, err
	}
	if !createdAt.IsZero() {
		conn.createdAt = createdAt.UTC()
	}
	return conn, nil
}

// ID returns the deterministic connection identifier
func (c *Connection) ID() string {
	return c.id
}

// FromEventID returns the originating endpoint
func (c *Connection) FromEventID() string {
	return c.fromEventID
}

// ToEventID returns the other endpoint
func (c *Connection) ToEventID() string {
	return c.toEventID
}

// Type returns the connection's type
func (c *Connection) Type() ConnectionType {
	return c.ctype
}

// Strength returns the connection strength in [0, 1]
func (c *Connection) Strength() float64 {
	return c.strength
}

// Metadata returns the type-specific measurements
func (c *Connection) Metadata() ConnectionMetadata {
	meta := c.metadata
	if c.metadata.CommonUserIDs != nil {
		meta.CommonUserIDs = make([]string, len(c.metadata.CommonUserIDs))
		copy(meta.CommonUserIDs, c.metadata.CommonUserIDs)
	}
	return meta
}

// CreatedAt returns when the connection was created
func (c *Connection) CreatedAt() time.Time {
	return c.createdAt
}

// Touches checks whether the connection has the given event as an endpoint
func (c *Connection) Touches(eventID string) bool {
	return c.fromEventID == eventID || c.toEventID == eventID
}

// OtherEnd returns the opposite endpoint for a given event id
func (c *Connection) OtherEnd(eventID string) (string, bool) {
	switch eventID {
	case c.fromEventID:
		return c.toEventID, true
	case c.toEventID:
		return c.fromEventID, true
	default:
		return "", false
	}
}

// Clone returns a deep copy of the connection
func (c *Connection) Clone() *Connection {
	clone := *c
	clone.metadata = c.Metadata()
	return &clone
}
