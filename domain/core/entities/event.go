package entities

import (
	"sort"
	"time"

	"serendipity-backend/domain/core/valueobjects"
	pkgerrors "serendipity-backend/pkg/errors"

	"github.com/google/uuid"
)

// EventType classifies a social activity record
type EventType string

const (
	EventTypePost      EventType = "post"
	EventTypeComment   EventType = "comment"
	EventTypeLike      EventType = "like"
	EventTypeShare     EventType = "share"
	EventTypeMessage   EventType = "message"
	EventTypeStory     EventType = "story"
	EventTypeLocation  EventType = "location"
	EventTypeCall      EventType = "call"
	EventTypeVideoCall EventType = "video_call"
	EventTypePhotoTag  EventType = "photo_tag"
	EventTypeCheckIn   EventType = "check_in"
	EventTypeReaction  EventType = "reaction"
)

var knownEventTypes = map[EventType]bool{
	EventTypePost: true, EventTypeComment: true, EventTypeLike: true,
	EventTypeShare: true, EventTypeMessage: true, EventTypeStory: true,
	EventTypeLocation: true, EventTypeCall: true, EventTypeVideoCall: true,
	EventTypePhotoTag: true, EventTypeCheckIn: true, EventTypeReaction: true,
}

// ParseEventType maps an external type string to a known EventType.
// Unrecognized strings map to post so that ingestion never fails on them.
func ParseEventType(s string) EventType {
	t := EventType(s)
	if knownEventTypes[t] {
		return t
	}
	return EventTypePost
}

// Visibility controls who may see an event
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityFriends Visibility = "friends"
	VisibilityPrivate Visibility = "private"
	VisibilityCustom  Visibility = "custom"
)

// ParseVisibility maps an external visibility string, defaulting to public
func ParseVisibility(s string) Visibility {
	switch Visibility(s) {
	case VisibilityFriends, VisibilityPrivate, VisibilityCustom:
		return Visibility(s)
	default:
		return VisibilityPublic
	}
}

// MediaItem references an uploaded media object attached to an event
type MediaItem struct {
	URL          string `json:"url"`
	Kind         string `json:"kind"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// EditRecord captures one content revision
type EditRecord struct {
	EditedAt        time.Time `json:"edited_at"`
	PreviousContent string    `json:"previous_content"`
}

// EventMetadata is the free-form metadata bag carried by an event
type EventMetadata struct {
	Mood        string              `json:"mood,omitempty"`
	Activity    string              `json:"activity,omitempty"`
	Device      string              `json:"device,omitempty"`
	AppVersion  string              `json:"app_version,omitempty"`
	Reactions   map[string][]string `json:"reactions,omitempty"` // emoji -> reacting user ids
	EditHistory []EditRecord        `json:"edit_history,omitempty"`
}

// Event is a single timestamped social activity record owned by one user.
// Its timestamp is the authoritative ordering key.
type Event struct {
	id          string
	userID      string
	eventType   EventType
	content     string
	timestamp   time.Time
	location    *valueobjects.GeoLocation
	media       []MediaItem
	mentions    []string
	tags        []string
	parentID    string
	targetID    string
	visibility  Visibility
	metadata    EventMetadata
	connections map[string]bool // symmetric adjacency, order-irrelevant
	embedding   []float64       // reserved for semantic search
}

// NewEvent creates a new event with business rule validation.
// An empty id is replaced with a generated one.
func NewEvent(id, userID string, eventType EventType, content string, timestamp time.Time) (*Event, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidation("userID cannot be empty")
	}
	if timestamp.IsZero() {
		return nil, pkgerrors.NewValidation("timestamp cannot be zero")
	}
	if id == "" {
		id = uuid.New().String()
	}
	if !knownEventTypes[eventType] {
		eventType = EventTypePost
	}

	return &Event{
		id:          id,
		userID:      userID,
		eventType:   eventType,
		content:     content,
		timestamp:   timestamp.UTC(),
		visibility:  VisibilityPublic,
		connections: make(map[string]bool),
	}, nil
}

// ID returns the event's unique identifier
func (e *Event) ID() string {
	return e.id
}

// UserID returns the owning user's ID
func (e *Event) UserID() string {
	return e.userID
}

// Type returns the event's type
func (e *Event) Type() EventType {
	return e.eventType
}

// Content returns the free-text content
func (e *Event) Content() string {
	return e.content
}

// Timestamp returns when the activity occurred
func (e *Event) Timestamp() time.Time {
	return e.timestamp
}

// Location returns the event's geolocation, if any
func (e *Event) Location() *valueobjects.GeoLocation {
	return e.location
}

// HasLocation checks whether the event carries coordinates
func (e *Event) HasLocation() bool {
	return e.location != nil
}

// SetLocation attaches a geolocation to the event
func (e *Event) SetLocation(loc valueobjects.GeoLocation) {
	e.location = &loc
}

// Media returns the attached media items
func (e *Event) Media() []MediaItem {
	media := make([]MediaItem, len(e.media))
	copy(media, e.media)
	return media
}

// SetMedia replaces the attached media list
func (e *Event) SetMedia(media []MediaItem) {
	e.media = make([]MediaItem, len(media))
	copy(e.media, media)
}

// Mentions returns the mentioned user ids
func (e *Event) Mentions() []string {
	mentions := make([]string, len(e.mentions))
	copy(mentions, e.mentions)
	return mentions
}

// HasMentions checks whether the event mentions anyone
func (e *Event) HasMentions() bool {
	return len(e.mentions) > 0
}

// SetMentions replaces the mention list
func (e *Event) SetMentions(mentions []string) {
	e.mentions = make([]string, len(mentions))
	copy(e.mentions, mentions)
}

// Participants returns the owner plus mentioned users as a set
func (e *Event) Participants() map[string]bool {
	participants := make(map[string]bool, len(e.mentions)+1)
	participants[e.userID] = true
	for _, m := range e.mentions {
		participants[m] = true
	}
	return participants
}

// Tags returns the event's tags
func (e *Event) Tags() []string {
	tags := make([]string, len(e.tags))
	copy(tags, e.tags)
	return tags
}

// SetTags replaces the tag list
func (e *Event) SetTags(tags []string) {
	e.tags = make([]string, len(tags))
	copy(e.tags, tags)
}

// ParentID returns the reply-to event id, if any
func (e *Event) ParentID() string {
	return e.parentID
}

// SetParentID sets the reply-to event id
func (e *Event) SetParentID(parentID string) {
	e.parentID = parentID
}

// TargetID returns the reaction-target event id, if any
func (e *Event) TargetID() string {
	return e.targetID
}

// SetTargetID sets the reaction-target event id
func (e *Event) SetTargetID(targetID string) {
	e.targetID = targetID
}

// Visibility returns the event's visibility
func (e *Event) Visibility() Visibility {
	return e.visibility
}

// UpdateVisibility changes who may see the event
func (e *Event) UpdateVisibility(v Visibility) {
	e.visibility = ParseVisibility(string(v))
}

// Metadata returns a copy of the metadata bag
func (e *Event) Metadata() EventMetadata {
	meta := e.metadata
	if e.metadata.Reactions != nil {
		meta.Reactions = make(map[string][]string, len(e.metadata.Reactions))
		for emoji, users := range e.metadata.Reactions {
			copied := make([]string, len(users))
			copy(copied, users)
			meta.Reactions[emoji] = copied
		}
	}
	if e.metadata.EditHistory != nil {
		meta.EditHistory = make([]EditRecord, len(e.metadata.EditHistory))
		copy(meta.EditHistory, e.metadata.EditHistory)
	}
	return meta
}

// SetMetadata replaces the metadata bag
func (e *Event) SetMetadata(meta EventMetadata) {
	e.metadata = meta
}

// UpdateContent replaces the content, appending the previous version
// to the edit history
func (e *Event) UpdateContent(content string) {
	if content == e.content {
		return
	}
	e.metadata.EditHistory = append(e.metadata.EditHistory, EditRecord{
		EditedAt:        time.Now().UTC(),
		PreviousContent: e.content,
	})
	e.content = content
}

// AddReaction records a reaction from a user, idempotently
func (e *Event) AddReaction(emoji, userID string) {
	if e.metadata.Reactions == nil {
		e.metadata.Reactions = make(map[string][]string)
	}
	for _, existing := range e.metadata.Reactions[emoji] {
		if existing == userID {
			return
		}
	}
	e.metadata.Reactions[emoji] = append(e.metadata.Reactions[emoji], userID)
}

// Embedding returns the reserved embedding vector, if any
func (e *Event) Embedding() []float64 {
	embedding := make([]float64, len(e.embedding))
	copy(embedding, e.embedding)
	return embedding
}

// SetEmbedding stores an embedding vector for future semantic search
func (e *Event) SetEmbedding(embedding []float64) {
	e.embedding = make([]float64, len(embedding))
	copy(e.embedding, embedding)
}

// ConnectedEventIDs returns the ids of connected events, sorted for stable output
func (e *Event) ConnectedEventIDs() []string {
	ids := make([]string, 0, len(e.connections))
	for id := range e.connections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsConnectedTo checks adjacency with another event
func (e *Event) IsConnectedTo(eventID string) bool {
	return e.connections[eventID]
}

// ConnectionCount returns the number of connected events
func (e *Event) ConnectionCount() int {
	return len(e.connections)
}

// AddConnection records adjacency to another event, idempotently
func (e *Event) AddConnection(eventID string) error {
	if eventID == e.id {
		return pkgerrors.NewValidation("event cannot connect to itself")
	}
	if eventID == "" {
		return pkgerrors.NewValidation("connected event id cannot be empty")
	}
	e.connections[eventID] = true
	return nil
}

// RemoveConnection drops adjacency to another event
func (e *Event) RemoveConnection(eventID string) {
	delete(e.connections, eventID)
}

// Clone returns a deep copy of the event
func (e *Event) Clone() *Event {
	clone := &Event{
		id:         e.id,
		userID:     e.userID,
		eventType:  e.eventType,
		content:    e.content,
		timestamp:  e.timestamp,
		parentID:   e.parentID,
		targetID:   e.targetID,
		visibility: e.visibility,
		metadata:   e.Metadata(),
	}
	if e.location != nil {
		loc := *e.location
		clone.location = &loc
	}
	clone.media = e.Media()
	clone.mentions = e.Mentions()
	clone.tags = e.Tags()
	clone.embedding = e.Embedding()
	clone.connections = make(map[string]bool, len(e.connections))
	for id := range e.connections {
		clone.connections[id] = true
	}
	return clone
}
