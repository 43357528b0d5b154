package rollup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatsReader struct {
	totals map[string]Totals
	err    error
	calls  [][2]string
}

func (f *fakeStatsReader) RangeTotals(_ context.Context, start, end time.Time, _ []string) (Totals, error) {
	if f.err != nil {
		return Totals{}, f.err
	}
	key := start.Format("2006-01-02") + "/" + end.Format("2006-01-02")
	f.calls = append(f.calls, [2]string{start.Format("2006-01-02"), end.Format("2006-01-02")})
	return f.totals[key], nil
}

func TestBuildHeadlines(t *testing.T) {
	now := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)
	reader := &fakeStatsReader{totals: map[string]Totals{
		"2026-02-14/2026-02-14": {Sessions: 150},
		"2026-02-13/2026-02-13": {Sessions: 100},
		"2026-02-08/2026-02-14": {Sessions: 700},
		"2026-02-01/2026-02-07": {Sessions: 1400},
	}}

	h, err := BuildHeadlines(context.Background(), reader, now, nil)
	require.NoError(t, err)

	assert.Equal(t, "2026-02-14", h.Daily.Date)
	assert.Equal(t, int64(150), h.Daily.Sessions)
	assert.Equal(t, int64(100), h.Daily.PrevSessions)
	assert.Equal(t, 50.0, h.Daily.Diff)

	assert.Equal(t, "2026-02-08 to 2026-02-14", h.Weekly.Range)
	assert.Equal(t, int64(700), h.Weekly.Sessions)
	assert.Equal(t, int64(1400), h.Weekly.PrevSessions)
	assert.Equal(t, -50.0, h.Weekly.Diff)

	assert.Len(t, reader.calls, 4)
}

func TestBuildHeadlinesEmptyStore(t *testing.T) {
	now := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)
	h, err := BuildHeadlines(context.Background(), &fakeStatsReader{}, now, nil)
	require.NoError(t, err)

	assert.Zero(t, h.Daily.Sessions)
	assert.Zero(t, h.Daily.Diff)
	assert.Zero(t, h.Weekly.Diff)
}

func TestBuildHeadlinesReaderError(t *testing.T) {
	now := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)
	_, err := BuildHeadlines(context.Background(), &fakeStatsReader{err: errors.New("store down")}, now, nil)
	assert.ErrorContains(t, err, "store down")
}
