package course

import (
	"io"
	"strconv"
	"time"

	"github.com/trezcool/academia/core"
)

type Course struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	InstructorID int       `json:"instructor_id"`
	Department   string    `json:"departement"` // frozen to the instructor's department at creation
	CreatedAt    time.Time `json:"created_at"`  // UTC
	UpdatedAt    time.Time `json:"updated_at"`  // UTC
}

type Material struct {
	ID          int       `json:"id"`
	CourseID    int       `json:"course_id"`
	FileName    string    `json:"file_name"`
	Location    string    `json:"-"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
}

func (nc *NewCourse) Clean() {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
// Empty fields are left unchanged.
type UpdateCourse struct {
	Title       string `json:"title" validate:"max=255"`
	Description string `json:"description"`
}

func (uc *UpdateCourse) Clean() {
	uc.Title = core.CleanString(uc.Title)
	uc.Description = core.CleanString(uc.Description)
}

// Upload is a file submitted for storage.
type Upload struct {
	FileName    string
	ContentType string
	Content     io.Reader
}

// BlobOwner returns the blob container of the course `id`.
func BlobOwner(id int) string {
	return "courses/" + strconv.Itoa(id)
}
