package progress

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-5, 0},
		{0, 0},
		{42.5, 42.5},
		{100, 100},
		{150, 100},
		{math.Inf(1), 100},
		{math.NaN(), 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Clamp(tc.in), "Clamp(%v)", tc.in)
	}
}

func TestProgress_setValue(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := Progress{Status: StatusInProgress, StartDate: start, LastAccessed: start}

	p.setValue(40, start.Add(time.Hour))
	assert.Equal(t, 40.0, p.Value)
	assert.False(t, p.IsCompleted)
	assert.Nil(t, p.CompletionDate)

	first := start.Add(48 * time.Hour)
	p.setValue(150, first)
	assert.Equal(t, 100.0, p.Value)
	assert.True(t, p.IsCompleted)
	assert.Equal(t, StatusCompleted, p.Status)
	require.NotNil(t, p.CompletionDate)
	assert.Equal(t, first, *p.CompletionDate)

	// once completed, the date never moves nor disappears
	p.setValue(20, start.Add(72*time.Hour))
	assert.Equal(t, 20.0, p.Value)
	p.setValue(100, start.Add(96*time.Hour))
	require.NotNil(t, p.CompletionDate)
	assert.Equal(t, first, *p.CompletionDate)
	assert.Equal(t, start.Add(96*time.Hour), p.LastAccessed)
}

func TestProgress_complete(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := Progress{Value: 30, Status: StatusInProgress, StartDate: start}

	p.complete(start.Add(time.Hour))
	p.complete(start.Add(2 * time.Hour))
	assert.Equal(t, 100.0, p.Value)
	assert.Equal(t, StatusCompleted, p.Status)
	assert.True(t, p.IsCompleted)
	assert.Equal(t, start.Add(2*time.Hour), *p.CompletionDate)
}

func TestProgress_Duration(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start.Add(10*24*time.Hour + 5*time.Hour)

	ongoing := Progress{StartDate: start}
	assert.Equal(t, 10, ongoing.Duration(now))

	done := start.Add(3*24*time.Hour + 23*time.Hour)
	completed := Progress{StartDate: start, IsCompleted: true, CompletionDate: &done}
	assert.Equal(t, 3, completed.Duration(now))

	assert.Equal(t, 0, ongoing.Duration(start.Add(-time.Hour)))
}

func TestComputeStats(t *testing.T) {
	assert.Equal(t, Stats{}, ComputeStats(nil))

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := start.Add(2 * 24 * time.Hour)
	d4 := start.Add(4 * 24 * time.Hour)
	stats := ComputeStats([]Progress{
		{Value: 100, IsCompleted: true, StartDate: start, CompletionDate: &d2},
		{Value: 100, IsCompleted: true, StartDate: start, CompletionDate: &d4},
		{Value: 40, StartDate: start},
		{Value: 0, StartDate: start},
	})
	assert.Equal(t, Stats{
		TotalCourses:          4,
		CompletedCourses:      2,
		AverageProgress:       60,
		AverageCompletionDays: 3,
	}, stats)
}
