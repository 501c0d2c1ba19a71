package progress

import (
	"math"
	"time"

	"github.com/trezcool/academia/core/course"
)

// Status
const (
	StatusInProgress = "En cours"
	StatusCompleted  = "Terminé"
)

// NowFunc returns the current time. Tests may replace it.
var NowFunc = func() time.Time { return time.Now().UTC() }

type Progress struct {
	ID             int        `json:"id"`
	UserID         int        `json:"user_id"`
	CourseID       int        `json:"course_id"`
	Value          float64    `json:"progress"`
	Status         string     `json:"status"`
	StartDate      time.Time  `json:"start_date"`
	CompletionDate *time.Time `json:"completion_date"`
	LastAccessed   time.Time  `json:"last_accessed"`
	IsCompleted    bool       `json:"is_completed"`
}

// Duration returns the whole days spent on the course: until completion, or until now while ongoing.
func (p Progress) Duration(now time.Time) int {
	end := now
	if p.IsCompleted && p.CompletionDate != nil {
		end = *p.CompletionDate
	}
	return days(end.Sub(p.StartDate))
}

func (p *Progress) setValue(value float64, now time.Time) {
	p.Value = Clamp(value)
	p.LastAccessed = now
	if p.Value >= 100 && !p.IsCompleted {
		p.IsCompleted = true
		p.Status = StatusCompleted
		p.CompletionDate = &now
	}
}

func (p *Progress) complete(now time.Time) {
	p.Value = 100
	p.IsCompleted = true
	p.Status = StatusCompleted
	p.CompletionDate = &now
	p.LastAccessed = now
}

// Clamp bounds value into [0, 100]. NaN is treated as 0.
func Clamp(value float64) float64 {
	switch {
	case math.IsNaN(value), value < 0:
		return 0
	case value > 100:
		return 100
	default:
		return value
	}
}

func days(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// Enrollment is a progress record together with its course.
type Enrollment struct {
	Progress
	Course course.Course `json:"course"`
}

// QueryFilter applies AND on its non-nil fields.
type QueryFilter struct {
	UserID   *int
	CourseID *int
}

func (qf QueryFilter) Match(p Progress) bool {
	if qf.UserID != nil && p.UserID != *qf.UserID {
		return false
	}
	return qf.CourseID == nil || p.CourseID == *qf.CourseID
}

// Stats aggregates the progress records of a user.
type Stats struct {
	TotalCourses          int     `json:"total_courses"`
	CompletedCourses      int     `json:"completed_courses"`
	AverageProgress       float64 `json:"average_progress"`
	AverageCompletionDays float64 `json:"average_completion_time"`
}

// ComputeStats averages progress over every record and completion time over the completed ones.
func ComputeStats(records []Progress) Stats {
	stats := Stats{TotalCourses: len(records)}
	if len(records) == 0 {
		return stats
	}

	var (
		totalProgress float64
		totalDays     int
		withDate      int
	)
	for _, p := range records {
		totalProgress += p.Value
		if !p.IsCompleted {
			continue
		}
		stats.CompletedCourses++
		if p.CompletionDate != nil {
			totalDays += days(p.CompletionDate.Sub(p.StartDate))
			withDate++
		}
	}
	stats.AverageProgress = totalProgress / float64(len(records))
	if withDate > 0 {
		stats.AverageCompletionDays = float64(totalDays) / float64(withDate)
	}
	return stats
}
