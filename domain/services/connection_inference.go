package services

import (
	"math"
	"sort"
	"time"

	"serendipity-backend/domain/core/aggregates"
	"serendipity-backend/domain/core/entities"
)

// InferenceConfig configures the connection inference heuristics
type InferenceConfig struct {
	TemporalWindow       time.Duration // events further apart get no temporal link
	TemporalConfidence   float64
	RelationalSaturation int // common users at which strength saturates at 1
	RelationalConfidence float64
	LocationRadiusMeters float64 // events further apart get no location link
	LocationConfidence   float64
	SemanticThreshold    float64 // minimum Jaccard similarity for a semantic link
	SemanticConfidence   float64
}

// DefaultInferenceConfig returns the standard heuristic parameters
func DefaultInferenceConfig() *InferenceConfig {
	return &InferenceConfig{
		TemporalWindow:       time.Hour,
		TemporalConfidence:   0.8,
		RelationalSaturation: 5,
		RelationalConfidence: 0.9,
		LocationRadiusMeters: 1000,
		LocationConfidence:   0.7,
		SemanticThreshold:    0.5,
		SemanticConfidence:   0.6,
	}
}

// InferenceEngine scores a new event against all pre-existing events using
// four independent heuristics. Heuristics never suppress one another: a
// single event pair may receive parallel connections of different types.
// Zero-strength candidates are never produced.
type InferenceEngine struct {
	config   *InferenceConfig
	analyzer *TextAnalyzer
}

// NewInferenceEngine creates an inference engine
func NewInferenceEngine(config *InferenceConfig, analyzer *TextAnalyzer) *InferenceEngine {
	if config == nil {
		config = DefaultInferenceConfig()
	}
	if analyzer == nil {
		analyzer = NewTextAnalyzer()
	}
	return &InferenceEngine{
		config:   config,
		analyzer: analyzer,
	}
}

// DiscoverConnections evaluates every loaded event against the new event
// and returns all triggered connection candidates. Candidates are already
// validated Connection entities; committing them is the caller's concern.
func (e *InferenceEngine) DiscoverConnections(newEvent *entities.Event, graph *aggregates.Graph) []*entities.Connection {
	if newEvent == nil || graph == nil {
		return nil
	}

	newTokens := e.analyzer.Tokenize(newEvent.Content())
	newParticipants := newEvent.Participants()

	var candidates []*entities.Connection
	for _, other := range graph.Events() {
		if other.ID() == newEvent.ID() {
			continue
		}

		if conn, ok := e.temporalCandidate(newEvent, other); ok {
			candidates = append(candidates, conn)
		}
		if conn, ok := e.relationalCandidate(newEvent, other, newParticipants); ok {
			candidates = append(candidates, conn)
		}
		if conn, ok := e.locationCandidate(newEvent, other); ok {
			candidates = append(candidates, conn)
		}
		if conn, ok := e.semanticCandidate(newEvent, other, newTokens); ok {
			candidates = append(candidates, conn)
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID() < candidates[j].ID() })
	return candidates
}

// temporalCandidate links events occurring within the temporal window.
// The window boundary is exclusive, so strength is always positive.
func (e *InferenceEngine) temporalCandidate(newEvent, other *entities.Event) (*entities.Connection, bool) {
	delta := newEvent.Timestamp().Sub(other.Timestamp())
	if delta < 0 {
		delta = -delta
	}
	if delta >= e.config.TemporalWindow {
		return nil, false
	}

	strength := 1 - float64(delta)/float64(e.config.TemporalWindow)
	conn, err := entities.NewConnection(
		newEvent.ID(), other.ID(), entities.ConnectionTypeTemporal, strength,
		entities.ConnectionMetadata{
			TimeDeltaMs: delta.Milliseconds(),
			Confidence:  e.config.TemporalConfidence,
		})
	if err != nil {
		return nil, false
	}
	return conn, true
}

// relationalCandidate links events sharing participants (owner or mentions)
func (e *InferenceEngine) relationalCandidate(newEvent, other *entities.Event, newParticipants map[string]bool) (*entities.Connection, bool) {
	var common []string
	for userID := range other.Participants() {
		if newParticipants[userID] {
			common = append(common, userID)
		}
	}
	if len(common) == 0 {
		return nil, false
	}
	sort.Strings(common)

	strength := math.Min(1, float64(len(common))/float64(e.config.RelationalSaturation))
	conn, err := entities.NewConnection(
		newEvent.ID(), other.ID(), entities.ConnectionTypeRelational, strength,
		entities.ConnectionMetadata{
			CommonUserIDs: common,
			Confidence:    e.config.RelationalConfidence,
		})
	if err != nil {
		return nil, false
	}
	return conn, true
}

// locationCandidate links events whose coordinates fall within the radius
func (e *InferenceEngine) locationCandidate(newEvent, other *entities.Event) (*entities.Connection, bool) {
	if !newEvent.HasLocation() || !other.HasLocation() {
		return nil, false
	}

	distance := newEvent.Location().DistanceMeters(*other.Location())
	if distance >= e.config.LocationRadiusMeters {
		return nil, false
	}

	strength := 1 - distance/e.config.LocationRadiusMeters
	conn, err := entities.NewConnection(
		newEvent.ID(), other.ID(), entities.ConnectionTypeLocation, strength,
		entities.ConnectionMetadata{
			DistanceMeters: distance,
			Confidence:     e.config.LocationConfidence,
		})
	if err != nil {
		return nil, false
	}
	return conn, true
}

// semanticCandidate links events whose token sets are similar enough
func (e *InferenceEngine) semanticCandidate(newEvent, other *entities.Event, newTokens map[string]bool) (*entities.Connection, bool) {
	similarity := e.analyzer.JaccardSimilarity(newTokens, e.analyzer.Tokenize(other.Content()))
	if similarity <= e.config.SemanticThreshold {
		return nil, false
	}

	conn, err := entities.NewConnection(
		newEvent.ID(), other.ID(), entities.ConnectionTypeSemantic, similarity,
		entities.ConnectionMetadata{
			SemanticSimilarity: similarity,
			Confidence:         e.config.SemanticConfidence,
		})
	if err != nil {
		return nil, false
	}
	return conn, true
}
