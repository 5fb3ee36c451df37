package holds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravitas-games/sortsys/pkg/models"
)

func TestMemoryStoreCreateGetRelease(t *testing.T) {
	s := NewMemoryStore()
	h, err := s.Create(loc(0), 3, models.Vec3{X: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, h.ID)
	assert.Nil(t, h.ValidUntil, "no ttl means no expiry")

	_, err = s.Create(loc(0), 3, models.Vec3{})
	assert.ErrorIs(t, err, ErrAlreadyHeld)

	got, ok := s.Get(h.ID)
	require.True(t, ok)
	assert.Equal(t, h, got)
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Release(h.ID))
	assert.ErrorIs(t, s.Release(h.ID), ErrHoldNotFound)
	_, ok = s.ExistingHold(loc(0), 3)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStoreExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	s := NewMemoryStore(WithTTL(time.Minute), WithClock(func() time.Time { return now }))

	h, err := s.Create(loc(0), 0, models.Vec3{})
	require.NoError(t, err)
	require.NotNil(t, h.ValidUntil)
	assert.Equal(t, now.Add(time.Minute), *h.ValidUntil)

	now = now.Add(59 * time.Second)
	_, ok := s.ExistingHold(loc(0), 0)
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = s.ExistingHold(loc(0), 0)
	assert.False(t, ok, "holds lapse at valid_until")
	assert.Equal(t, 0, s.Len())

	_, err = s.Create(loc(0), 0, models.Vec3{})
	assert.NoError(t, err)
}
