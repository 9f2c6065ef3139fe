package aggregates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serendipity-backend/domain/core/entities"
	"serendipity-backend/domain/core/valueobjects"
)

func TestTimeline_InsertEvent_Ordering(t *testing.T) {
	timeline := NewTimeline("alice")
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	timeline.InsertEvent(newTestEvent(t, "e2", "alice", base.Add(time.Hour)))
	timeline.InsertEvent(newTestEvent(t, "e1", "alice", base))
	timeline.InsertEvent(newTestEvent(t, "e3", "alice", base.Add(2*time.Hour)))

	events := timeline.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "e1", events[0].ID())
	assert.Equal(t, "e2", events[1].ID())
	assert.Equal(t, "e3", events[2].ID())
}

func TestTimeline_InsertEvent_ReplacesById(t *testing.T) {
	timeline := NewTimeline("alice")
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	timeline.InsertEvent(newTestEvent(t, "e1", "alice", base))
	updated := newTestEvent(t, "e1", "alice", base)
	updated.UpdateContent("edited")
	timeline.InsertEvent(updated)

	require.Equal(t, 1, timeline.EventCount())
	assert.Equal(t, "edited", timeline.Events()[0].Content())
}

func TestTimeline_ComputeInsights(t *testing.T) {
	timeline := NewTimeline("alice")
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	morning1 := newTestEvent(t, "e1", "alice", base)
	morning1.SetMentions([]string{"bob"})
	loc, _ := valueobjects.NewGeoLocation(48.85, 2.35, "", "Cafe Flore")
	morning1.SetLocation(loc)

	morning2 := newTestEvent(t, "e2", "alice", base.Add(20*time.Minute))
	morning2.SetMentions([]string{"bob", "carol"})
	morning2.SetLocation(loc)

	evening := newTestEvent(t, "e3", "alice", base.Add(10*time.Hour))
	meta := evening.Metadata()
	meta.Mood = "relaxed"
	evening.SetMetadata(meta)

	timeline.InsertEvent(morning1)
	timeline.InsertEvent(morning2)
	timeline.InsertEvent(evening)

	insights := timeline.ComputeInsights()

	assert.Equal(t, 2, insights.ActivityPeaks[9])
	assert.Equal(t, 1, insights.ActivityPeaks[19])

	require.NotEmpty(t, insights.TopLocations)
	assert.Equal(t, "Cafe Flore", insights.TopLocations[0].Label)
	assert.Equal(t, 2, insights.TopLocations[0].Count)

	require.NotEmpty(t, insights.FrequentPartners)
	assert.Equal(t, "bob", insights.FrequentPartners[0].UserID)
	assert.Equal(t, 2, insights.FrequentPartners[0].Count)

	assert.Equal(t, 1, insights.MoodPatterns["relaxed"])
}

func TestTimeline_SocialCircles(t *testing.T) {
	timeline := NewTimeline("alice")
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	e1 := newTestEvent(t, "e1", "alice", base)
	e2 := newTestEvent(t, "e2", "alice", base.Add(time.Minute))
	timeline.InsertEvent(e1)
	timeline.InsertEvent(e2)

	conn, err := entities.NewConnection("e1", "e2", entities.ConnectionTypeRelational, 0.4,
		entities.ConnectionMetadata{Confidence: 0.9, CommonUserIDs: []string{"bob", "carol"}})
	require.NoError(t, err)
	timeline.AddConnection(conn)

	insights := timeline.ComputeInsights()
	require.Len(t, insights.SocialCircles, 1)
	assert.ElementsMatch(t, []string{"bob", "carol"}, insights.SocialCircles[0])
}
