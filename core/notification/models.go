package notification

import "time"

// Types
const (
	TypeCourseCreated   = "course_created"
	TypeCourseDeleted   = "course_deleted"
	TypeMaterialAdded   = "material_added"
	TypeProgressUpdated = "progress_updated"
)

type Notification struct {
	ID         int       `json:"id"`
	UserID     int       `json:"user_id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Type       string    `json:"type"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	CourseID   *int      `json:"related_course_id"`
	MaterialID *int      `json:"related_material_id"`
}
