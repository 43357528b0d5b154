package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rajatmakholiya/ES-Analytics-API/internal/observability"
)

func newTestScheduler(t *testing.T, at string) *Scheduler {
	t.Helper()
	o := New(&fakeWarehouse{}, &recordingStore{}, nil, zap.NewNop(), observability.NewNoOpRegistry(), time.UTC, 0, 0)
	s, err := NewScheduler(o, zap.NewNop(), at)
	require.NoError(t, err)
	return s
}

func TestNewSchedulerRejectsInvalidTime(t *testing.T) {
	o := New(&fakeWarehouse{}, &recordingStore{}, nil, zap.NewNop(), observability.NewNoOpRegistry(), time.UTC, 0, 0)

	_, err := NewScheduler(o, zap.NewNop(), "noon")
	assert.ErrorContains(t, err, "invalid sync time")

	_, err = NewScheduler(o, zap.NewNop(), "25:00")
	assert.Error(t, err)
}

func TestNextRunAtLaterToday(t *testing.T) {
	s := newTestScheduler(t, "12:30")
	now := time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC)

	next := s.nextRunAt(now)
	assert.Equal(t, time.Date(2026, 2, 15, 12, 30, 0, 0, time.UTC), next)
}

func TestNextRunAtRollsToTomorrow(t *testing.T) {
	s := newTestScheduler(t, "12:30")

	now := time.Date(2026, 2, 15, 13, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 16, 12, 30, 0, 0, time.UTC), s.nextRunAt(now))

	// exactly at the trigger time the run belongs to the next day
	now = time.Date(2026, 2, 15, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 16, 12, 30, 0, 0, time.UTC), s.nextRunAt(now))
}

func TestNextRunAtKeepsLocation(t *testing.T) {
	s := newTestScheduler(t, "12:30")
	loc := time.FixedZone("IST", 19800)
	now := time.Date(2026, 2, 15, 9, 0, 0, 0, loc)

	next := s.nextRunAt(now)
	assert.Equal(t, loc, next.Location())
	assert.Equal(t, 12, next.Hour())
	assert.Equal(t, 30, next.Minute())
}
