package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionID_Deterministic(t *testing.T) {
	assert.Equal(t, "e1-e2-temporal", ConnectionID("e1", "e2", ConnectionTypeTemporal))
	assert.Equal(t, "e2-e1-temporal", ConnectionID("e2", "e1", ConnectionTypeTemporal))
	assert.Equal(t, "e1-e2-semantic", ConnectionID("e1", "e2", ConnectionTypeSemantic))
}

func TestNewConnection_Validation(t *testing.T) {
	meta := ConnectionMetadata{Confidence: 0.8}

	t.Run("valid", func(t *testing.T) {
		conn, err := NewConnection("e1", "e2", ConnectionTypeTemporal, 0.5, meta)
		require.NoError(t, err)
		assert.Equal(t, "e1-e2-temporal", conn.ID())
		assert.Equal(t, 0.5, conn.Strength())
	})

	t.Run("rejects self loop", func(t *testing.T) {
		_, err := NewConnection("e1", "e1", ConnectionTypeTemporal, 0.5, meta)
		assert.Error(t, err)
	})

	t.Run("rejects empty endpoints", func(t *testing.T) {
		_, err := NewConnection("", "e2", ConnectionTypeTemporal, 0.5, meta)
		assert.Error(t, err)
		_, err = NewConnection("e1", "", ConnectionTypeTemporal, 0.5, meta)
		assert.Error(t, err)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := NewConnection("e1", "e2", ConnectionType("psychic"), 0.5, meta)
		assert.Error(t, err)
	})

	t.Run("rejects strength out of range", func(t *testing.T) {
		_, err := NewConnection("e1", "e2", ConnectionTypeTemporal, 1.1, meta)
		assert.Error(t, err)
		_, err = NewConnection("e1", "e2", ConnectionTypeTemporal, -0.1, meta)
		assert.Error(t, err)
	})

	t.Run("rejects confidence out of range", func(t *testing.T) {
		_, err := NewConnection("e1", "e2", ConnectionTypeTemporal, 0.5, ConnectionMetadata{Confidence: 1.5})
		assert.Error(t, err)
	})
}

func TestConnection_TouchesAndOtherEnd(t *testing.T) {
	conn, _ := NewConnection("e1", "e2", ConnectionTypeRelational, 0.4, ConnectionMetadata{Confidence: 0.9})

	assert.True(t, conn.Touches("e1"))
	assert.True(t, conn.Touches("e2"))
	assert.False(t, conn.Touches("e3"))

	other, ok := conn.OtherEnd("e1")
	assert.True(t, ok)
	assert.Equal(t, "e2", other)

	_, ok = conn.OtherEnd("e3")
	assert.False(t, ok)
}
