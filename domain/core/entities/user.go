package entities

import (
	"time"

	pkgerrors "serendipity-backend/pkg/errors"
)

// PrivacyPreferences holds a user's sharing preferences
type PrivacyPreferences struct {
	DefaultVisibility Visibility `json:"default_visibility"`
	ShareLocation     bool       `json:"share_location"`
	ShareActivity     bool       `json:"share_activity"`
}

// Relationships holds the user's relationship sets as ids only
type Relationships struct {
	Friends   []string `json:"friends"`
	Following []string `json:"following"`
	Followers []string `json:"followers"`
	Blocked   []string `json:"blocked"`
}

// User represents a platform user as seen by the graph engine.
// Users are created upstream on registration and never hard-deleted here.
type User struct {
	id            string
	displayName   string
	avatarURL     string
	location      string
	privacy       PrivacyPreferences
	relationships Relationships
	joinedAt      time.Time
	lastActiveAt  time.Time
	timezone      string
	interests     []string
}

// NewUser creates a user with defaulted optional fields
func NewUser(id, displayName string) (*User, error) {
	if id == "" {
		return nil, pkgerrors.NewValidation("user id cannot be empty")
	}
	if displayName == "" {
		displayName = "User " + id
	}

	return &User{
		id:          id,
		displayName: displayName,
		privacy: PrivacyPreferences{
			DefaultVisibility: VisibilityPublic,
		},
		timezone: "UTC",
		joinedAt: time.Now().UTC(),
	}, nil
}

// ID returns the user's unique identifier
func (u *User) ID() string {
	return u.id
}

// DisplayName returns the user's display name
func (u *User) DisplayName() string {
	return u.displayName
}

// AvatarURL returns the avatar URL, if any
func (u *User) AvatarURL() string {
	return u.avatarURL
}

// SetAvatarURL sets the avatar URL
func (u *User) SetAvatarURL(url string) {
	u.avatarURL = url
}

// Location returns the user's profile location, if any
func (u *User) Location() string {
	return u.location
}

// SetLocation sets the profile location
func (u *User) SetLocation(location string) {
	u.location = location
}

// Privacy returns the user's privacy preferences
func (u *User) Privacy() PrivacyPreferences {
	return u.privacy
}

// SetPrivacy replaces the privacy preferences
func (u *User) SetPrivacy(p PrivacyPreferences) {
	if p.DefaultVisibility == "" {
		p.DefaultVisibility = VisibilityPublic
	}
	u.privacy = p
}

// Relationships returns a copy of the relationship sets
func (u *User) Relationships() Relationships {
	return Relationships{
		Friends:   copyStrings(u.relationships.Friends),
		Following: copyStrings(u.relationships.Following),
		Followers: copyStrings(u.relationships.Followers),
		Blocked:   copyStrings(u.relationships.Blocked),
	}
}

// SetRelationships replaces the relationship sets
func (u *User) SetRelationships(r Relationships) {
	u.relationships = Relationships{
		Friends:   copyStrings(r.Friends),
		Following: copyStrings(r.Following),
		Followers: copyStrings(r.Followers),
		Blocked:   copyStrings(r.Blocked),
	}
}

// IsFriendOf checks whether the other user is in the friend set
func (u *User) IsFriendOf(userID string) bool {
	for _, id := range u.relationships.Friends {
		if id == userID {
			return true
		}
	}
	return false
}

// JoinedAt returns when the user registered
func (u *User) JoinedAt() time.Time {
	return u.joinedAt
}

// SetJoinedAt overrides the join date during reconstruction
func (u *User) SetJoinedAt(t time.Time) {
	if !t.IsZero() {
		u.joinedAt = t.UTC()
	}
}

// LastActiveAt returns the last recorded activity time
func (u *User) LastActiveAt() time.Time {
	return u.lastActiveAt
}

// Touch records activity at the given time, never moving backwards
func (u *User) Touch(t time.Time) {
	if t.After(u.lastActiveAt) {
		u.lastActiveAt = t.UTC()
	}
}

// Timezone returns the user's IANA timezone name
func (u *User) Timezone() string {
	return u.timezone
}

// SetTimezone sets the timezone, defaulting to UTC when empty
func (u *User) SetTimezone(tz string) {
	if tz == "" {
		tz = "UTC"
	}
	u.timezone = tz
}

// Interests returns the user's interest tags
func (u *User) Interests() []string {
	return copyStrings(u.interests)
}

// SetInterests replaces the interest tags
func (u *User) SetInterests(interests []string) {
	u.interests = copyStrings(interests)
}

// Clone returns a deep copy of the user
func (u *User) Clone() *User {
	clone := *u
	clone.relationships = u.Relationships()
	clone.interests = copyStrings(u.interests)
	return &clone
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
