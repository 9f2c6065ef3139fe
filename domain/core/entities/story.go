package entities

import (
	"time"

	pkgerrors "serendipity-backend/pkg/errors"

	"github.com/google/uuid"
)

// Story is a named, timestamped grouping of events with narrative text.
// Stories are authored by an external narrative collaborator; the graph
// engine only stores and queries them.
type Story struct {
	id             string
	name           string
	narrative      string
	eventIDs       []string
	participantIDs []string
	linkedStoryIDs []string
	createdAt      time.Time
}

// NewStory creates a story grouping the given events
func NewStory(id, name, narrative string, eventIDs, participantIDs []string) (*Story, error) {
	if name == "" {
		return nil, pkgerrors.NewValidation("story name cannot be empty")
	}
	if id == "" {
		id = uuid.New().String()
	}

	return &Story{
		id:             id,
		name:           name,
		narrative:      narrative,
		eventIDs:       copyStrings(eventIDs),
		participantIDs: copyStrings(participantIDs),
		createdAt:      time.Now().UTC(),
	}, nil
}

// ID returns the story's unique identifier
func (s *Story) ID() string {
	return s.id
}

// Name returns the story's name
func (s *Story) Name() string {
	return s.name
}

// Narrative returns the narrative text
func (s *Story) Narrative() string {
	return s.narrative
}

// EventIDs returns the grouped event ids
func (s *Story) EventIDs() []string {
	return copyStrings(s.eventIDs)
}

// ParticipantIDs returns the participating user ids
func (s *Story) ParticipantIDs() []string {
	return copyStrings(s.participantIDs)
}

// LinkedStoryIDs returns ids of related stories
func (s *Story) LinkedStoryIDs() []string {
	return copyStrings(s.linkedStoryIDs)
}

// LinkStory records a link to another story, idempotently
func (s *Story) LinkStory(storyID string) {
	for _, id := range s.linkedStoryIDs {
		if id == storyID {
			return
		}
	}
	s.linkedStoryIDs = append(s.linkedStoryIDs, storyID)
}

// CreatedAt returns when the story was created
func (s *Story) CreatedAt() time.Time {
	return s.createdAt
}

// SetCreatedAt overrides the creation time during reconstruction
func (s *Story) SetCreatedAt(t time.Time) {
	if !t.IsZero() {
		s.createdAt = t.UTC()
	}
}

// Clone returns a deep copy of the story
func (s *Story) Clone() *Story {
	clone := *s
	clone.eventIDs = copyStrings(s.eventIDs)
	clone.participantIDs = copyStrings(s.participantIDs)
	clone.linkedStoryIDs = copyStrings(s.linkedStoryIDs)
	return &clone
}
