package dto

import (
	"time"

	"serendipity-backend/domain/core/entities"
	"serendipity-backend/domain/core/valueobjects"
)

// The record types in this package are the loosely-typed shapes exchanged
// with external collaborators: storage items, realtime change payloads and
// graph export files. Conversion to domain entities is total — malformed or
// partial records still produce structurally valid instances using
// documented defaults.

// TimestampLayout is the fixed-width RFC3339 form event timestamps are
// stored in. The zero-padded fraction keeps lexical string comparison
// equal to chronological order, which storage range conditions rely on.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// GeoRecord mirrors an event's optional geolocation
type GeoRecord struct {
	Latitude  float64 `json:"lat" dynamodbav:"Lat"`
	Longitude float64 `json:"lng" dynamodbav:"Lng"`
	Address   string  `json:"address,omitempty" dynamodbav:"Address,omitempty"`
	Venue     string  `json:"venue,omitempty" dynamodbav:"Venue,omitempty"`
}

// EventRecord is the external shape of an event
type EventRecord struct {
	ID          string                 `json:"id" dynamodbav:"EventID"`
	UserID      string                 `json:"user_id" dynamodbav:"UserID"`
	Type        string                 `json:"type" dynamodbav:"EventType"`
	Content     string                 `json:"content" dynamodbav:"Content"`
	Timestamp   string                 `json:"timestamp" dynamodbav:"Timestamp"`
	Location    *GeoRecord             `json:"location,omitempty" dynamodbav:"Location,omitempty"`
	Media       []entities.MediaItem   `json:"media,omitempty" dynamodbav:"Media,omitempty"`
	Mentions    []string               `json:"mentions,omitempty" dynamodbav:"Mentions,omitempty"`
	Tags        []string               `json:"tags,omitempty" dynamodbav:"Tags,omitempty"`
	ParentID    string                 `json:"parent_id,omitempty" dynamodbav:"ParentID,omitempty"`
	TargetID    string                 `json:"target_id,omitempty" dynamodbav:"TargetID,omitempty"`
	Visibility  string                 `json:"visibility,omitempty" dynamodbav:"Visibility,omitempty"`
	Metadata    entities.EventMetadata `json:"metadata,omitempty" dynamodbav:"Metadata,omitempty"`
	Connections []string               `json:"connections,omitempty" dynamodbav:"Connections,omitempty"`
	Embedding   []float64              `json:"embedding,omitempty" dynamodbav:"Embedding,omitempty"`
}

// ToEntity converts the record to a domain event, applying defaults for
// anything missing: unknown type -> post, missing timestamp -> Unix epoch,
// missing user -> "unknown"
func (r EventRecord) ToEntity() *entities.Event {
	userID := r.UserID
	if userID == "" {
		userID = "unknown"
	}
	timestamp := parseTimestamp(r.Timestamp)

	event, err := entities.NewEvent(r.ID, userID, entities.ParseEventType(r.Type), r.Content, timestamp)
	if err != nil {
		// NewEvent only fails on empty user or zero timestamp, both defaulted above
		event, _ = entities.NewEvent(r.ID, "unknown", entities.EventTypePost, r.Content, time.Unix(0, 0).UTC())
	}

	if r.Location != nil {
		if loc, err := valueobjects.NewGeoLocation(r.Location.Latitude, r.Location.Longitude, r.Location.Address, r.Location.Venue); err == nil {
			event.SetLocation(loc)
		}
	}
	if len(r.Media) > 0 {
		event.SetMedia(r.Media)
	}
	if len(r.Mentions) > 0 {
		event.SetMentions(r.Mentions)
	}
	if len(r.Tags) > 0 {
		event.SetTags(r.Tags)
	}
	event.SetParentID(r.ParentID)
	event.SetTargetID(r.TargetID)
	event.UpdateVisibility(entities.ParseVisibility(r.Visibility))
	event.SetMetadata(r.Metadata)
	if len(r.Embedding) > 0 {
		event.SetEmbedding(r.Embedding)
	}
	for _, id := range r.Connections {
		_ = event.AddConnection(id)
	}
	return event
}

// NewEventRecord converts a domain event to its external shape
func NewEventRecord(event *entities.Event) EventRecord {
	record := EventRecord{
		ID:          event.ID(),
		UserID:      event.UserID(),
		Type:        string(event.Type()),
		Content:     event.Content(),
		Timestamp:   event.Timestamp().UTC().Format(TimestampLayout),
		Media:       event.Media(),
		Mentions:    event.Mentions(),
		Tags:        event.Tags(),
		ParentID:    event.ParentID(),
		TargetID:    event.TargetID(),
		Visibility:  string(event.Visibility()),
		Metadata:    event.Metadata(),
		Connections: event.ConnectedEventIDs(),
		Embedding:   event.Embedding(),
	}
	if event.HasLocation() {
		loc := event.Location()
		record.Location = &GeoRecord{
			Latitude:  loc.Latitude(),
			Longitude: loc.Longitude(),
			Address:   loc.Address(),
			Venue:     loc.Venue(),
		}
	}
	return record
}

// UserRecord is the external shape of a user
type UserRecord struct {
	ID           string                      `json:"id" dynamodbav:"UserID"`
	DisplayName  string                      `json:"display_name,omitempty" dynamodbav:"DisplayName,omitempty"`
	AvatarURL    string                      `json:"avatar_url,omitempty" dynamodbav:"AvatarURL,omitempty"`
	Location     string                      `json:"location,omitempty" dynamodbav:"Location,omitempty"`
	Privacy      entities.PrivacyPreferences `json:"privacy,omitempty" dynamodbav:"Privacy,omitempty"`
	Friends      []string                    `json:"friends,omitempty" dynamodbav:"Friends,omitempty"`
	Following    []string                    `json:"following,omitempty" dynamodbav:"Following,omitempty"`
	Followers    []string                    `json:"followers,omitempty" dynamodbav:"Followers,omitempty"`
	Blocked      []string                    `json:"blocked,omitempty" dynamodbav:"Blocked,omitempty"`
	JoinedAt     string                      `json:"joined_at,omitempty" dynamodbav:"JoinedAt,omitempty"`
	LastActiveAt string                      `json:"last_active_at,omitempty" dynamodbav:"LastActiveAt,omitempty"`
	Timezone     string                      `json:"timezone,omitempty" dynamodbav:"Timezone,omitempty"`
	Interests    []string                    `json:"interests,omitempty" dynamodbav:"Interests,omitempty"`
}

// ToEntity converts the record to a domain user. Missing display name
// defaults to "User " + id, missing timezone to UTC.
func (r UserRecord) ToEntity() *entities.User {
	id := r.ID
	if id == "" {
		id = "unknown"
	}
	user, _ := entities.NewUser(id, r.DisplayName)
	user.SetAvatarURL(r.AvatarURL)
	user.SetLocation(r.Location)
	user.SetPrivacy(r.Privacy)
	user.SetRelationships(entities.Relationships{
		Friends:   r.Friends,
		Following: r.Following,
		Followers: r.Followers,
		Blocked:   r.Blocked,
	})
	user.SetJoinedAt(parseOptionalTime(r.JoinedAt))
	user.Touch(parseOptionalTime(r.LastActiveAt))
	user.SetTimezone(r.Timezone)
	user.SetInterests(r.Interests)
	return user
}

// NewUserRecord converts a domain user to its external shape
func NewUserRecord(user *entities.User) UserRecord {
	rels := user.Relationships()
	record := UserRecord{
		ID:          user.ID(),
		DisplayName: user.DisplayName(),
		AvatarURL:   user.AvatarURL(),
		Location:    user.Location(),
		Privacy:     user.Privacy(),
		Friends:     rels.Friends,
		Following:   rels.Following,
		Followers:   rels.Followers,
		Blocked:     rels.Blocked,
		JoinedAt:    user.JoinedAt().Format(time.RFC3339Nano),
		Timezone:    user.Timezone(),
		Interests:   user.Interests(),
	}
	if !user.LastActiveAt().IsZero() {
		record.LastActiveAt = user.LastActiveAt().Format(time.RFC3339Nano)
	}
	return record
}

// ConnectionRecord is the external shape of a connection
type ConnectionRecord struct {
	ID          string                      `json:"id" dynamodbav:"ConnectionID"`
	FromEventID string                      `json:"from_event_id" dynamodbav:"FromEventID"`
	ToEventID   string                      `json:"to_event_id" dynamodbav:"ToEventID"`
	Type        string                      `json:"type" dynamodbav:"ConnectionType"`
	Strength    float64                     `json:"strength" dynamodbav:"Strength"`
	Metadata    entities.ConnectionMetadata `json:"metadata,omitempty" dynamodbav:"Metadata,omitempty"`
	CreatedAt   string                      `json:"created_at,omitempty" dynamodbav:"CreatedAt,omitempty"`
}

// ToEntity converts the record to a domain connection. Unlike events and
// users, connections that fail edge invariants are rejected rather than
// defaulted: a self-loop or out-of-range strength is not repairable.
func (r ConnectionRecord) ToEntity() (*entities.Connection, error) {
	return entities.ReconstructConnection(
		r.FromEventID, r.ToEventID,
		entities.ConnectionType(r.Type), r.Strength, r.Metadata,
		parseOptionalTime(r.CreatedAt))
}

// NewConnectionRecord converts a domain connection to its external shape
func NewConnectionRecord(conn *entities.Connection) ConnectionRecord {
	return ConnectionRecord{
		ID:          conn.ID(),
		FromEventID: conn.FromEventID(),
		ToEventID:   conn.ToEventID(),
		Type:        string(conn.Type()),
		Strength:    conn.Strength(),
		Metadata:    conn.Metadata(),
		CreatedAt:   conn.CreatedAt().Format(time.RFC3339Nano),
	}
}

// StoryRecord is the external shape of a story
type StoryRecord struct {
	ID             string   `json:"id" dynamodbav:"StoryID"`
	Name           string   `json:"name" dynamodbav:"Name"`
	Narrative      string   `json:"narrative,omitempty" dynamodbav:"Narrative,omitempty"`
	EventIDs       []string `json:"event_ids,omitempty" dynamodbav:"EventIDs,omitempty"`
	ParticipantIDs []string `json:"participant_ids,omitempty" dynamodbav:"ParticipantIDs,omitempty"`
	LinkedStoryIDs []string `json:"linked_story_ids,omitempty" dynamodbav:"LinkedStoryIDs,omitempty"`
	CreatedAt      string   `json:"created_at,omitempty" dynamodbav:"CreatedAt,omitempty"`
}

// ToEntity converts the record to a domain story, defaulting a missing name
func (r StoryRecord) ToEntity() *entities.Story {
	name := r.Name
	if name == "" {
		name = "Story " + r.ID
	}
	story, _ := entities.NewStory(r.ID, name, r.Narrative, r.EventIDs, r.ParticipantIDs)
	for _, id := range r.LinkedStoryIDs {
		story.LinkStory(id)
	}
	story.SetCreatedAt(parseOptionalTime(r.CreatedAt))
	return story
}

// NewStoryRecord converts a domain story to its external shape
func NewStoryRecord(story *entities.Story) StoryRecord {
	return StoryRecord{
		ID:             story.ID(),
		Name:           story.Name(),
		Narrative:      story.Narrative(),
		EventIDs:       story.EventIDs(),
		ParticipantIDs: story.ParticipantIDs(),
		LinkedStoryIDs: story.LinkedStoryIDs(),
		CreatedAt:      story.CreatedAt().Format(time.RFC3339Nano),
	}
}

// GraphExport is the JSON snapshot shape produced by exportGraph
type GraphExport struct {
	ExportedAt  string             `json:"exported_at"`
	Users       []UserRecord       `json:"users"`
	Events      []EventRecord      `json:"events"`
	Connections []ConnectionRecord `json:"connections"`
	Stories     []StoryRecord      `json:"stories"`
}

func parseTimestamp(s string) time.Time {
	t := parseOptionalTime(s)
	if t.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return t
}

func parseOptionalTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
