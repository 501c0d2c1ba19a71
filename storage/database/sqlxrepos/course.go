package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/storage/database"
)

const (
	courseColumns   = "id, title, description, instructor_id, departement, created_at, updated_at"
	materialColumns = "id, course_id, file_name, location, content_type, uploaded_at"
)

type courseRow struct {
	ID           int       `db:"id"`
	Title        string    `db:"title"`
	Description  string    `db:"description"`
	InstructorID int       `db:"instructor_id"`
	Department   string    `db:"departement"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r courseRow) toCourse() course.Course {
	return course.Course{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		InstructorID: r.InstructorID,
		Department:   r.Department,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type materialRow struct {
	ID          int       `db:"id"`
	CourseID    int       `db:"course_id"`
	FileName    string    `db:"file_name"`
	Location    string    `db:"location"`
	ContentType string    `db:"content_type"`
	UploadedAt  time.Time `db:"uploaded_at"`
}

func (r materialRow) toMaterial() course.Material {
	return course.Material{
		ID:          r.ID,
		CourseID:    r.CourseID,
		FileName:    r.FileName,
		Location:    r.Location,
		ContentType: r.ContentType,
		UploadedAt:  r.UploadedAt.UTC(),
	}
}

type courseRepository struct {
	db *sqlx.DB
}

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	var row courseRow
	err := sqlx.GetContext(
		ctx, database.Executor(ctx, repo.db), &row,
		`INSERT INTO courses (title, description, instructor_id, departement, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+courseColumns,
		c.Title, c.Description, c.InstructorID, c.Department, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id int) (course.Course, error) {
	var row courseRow
	err := sqlx.GetContext(ctx, database.Executor(ctx, repo.db), &row, "SELECT "+courseColumns+" FROM courses WHERE id = $1", id)
	if err != nil {
		if database.IsNoRows(err) {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "selecting course")
	}
	return row.toCourse(), nil
}

// courseCond returns the visibility condition of filter, nil when unrestricted.
func courseCond(filter course.QueryFilter) sq.Sqlizer {
	if filter.Unrestricted {
		return nil
	}
	var or sq.Or
	if filter.InstructorID != nil {
		or = append(or, sq.Eq{"instructor_id": *filter.InstructorID})
	}
	if filter.Department != nil {
		or = append(or, sq.Eq{"departement": *filter.Department})
	}
	if len(or) == 0 {
		return sq.Expr("FALSE")
	}
	return or
}

func coursesQuery(filter course.QueryFilter, page core.Page) sq.SelectBuilder {
	b := psql.Select(courseColumns).From("courses").OrderBy("created_at DESC", "id DESC")
	if cond := courseCond(filter); cond != nil {
		b = b.Where(cond)
	}
	return paginate(b, page)
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter, page core.Page) ([]course.Course, error) {
	var rows []courseRow
	if err := selectAll(ctx, repo.db, &rows, coursesQuery(filter, page)); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toCourse())
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	var row courseRow
	err := sqlx.GetContext(
		ctx, database.Executor(ctx, repo.db), &row,
		"UPDATE courses SET title = $2, description = $3, updated_at = $4 WHERE id = $1 RETURNING "+courseColumns,
		c.ID, c.Title, c.Description, c.UpdatedAt,
	)
	if err != nil {
		if database.IsNoRows(err) {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	return row.toCourse(), nil
}

// DeleteCourse relies on ON DELETE CASCADE for materials and progress records.
func (repo *courseRepository) DeleteCourse(ctx context.Context, id int) error {
	res, err := database.Executor(ctx, repo.db).ExecContext(ctx, "DELETE FROM courses WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return database.CheckAffected(res, course.ErrNotFound)
}

func (repo *courseRepository) CreateMaterial(ctx context.Context, m course.Material) (course.Material, error) {
	var row materialRow
	err := sqlx.GetContext(
		ctx, database.Executor(ctx, repo.db), &row,
		`INSERT INTO course_materials (course_id, file_name, location, content_type, uploaded_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+materialColumns,
		m.CourseID, m.FileName, m.Location, m.ContentType, m.UploadedAt,
	)
	if err != nil {
		return course.Material{}, errors.Wrap(err, "inserting material")
	}
	return row.toMaterial(), nil
}

func (repo *courseRepository) GetMaterial(ctx context.Context, courseID, id int) (course.Material, error) {
	var row materialRow
	err := sqlx.GetContext(
		ctx, database.Executor(ctx, repo.db), &row,
		"SELECT "+materialColumns+" FROM course_materials WHERE id = $1 AND course_id = $2",
		id, courseID,
	)
	if err != nil {
		if database.IsNoRows(err) {
			return course.Material{}, course.ErrMaterialNotFound
		}
		return course.Material{}, errors.Wrap(err, "selecting material")
	}
	return row.toMaterial(), nil
}

func (repo *courseRepository) QueryMaterials(ctx context.Context, courseID int) ([]course.Material, error) {
	var rows []materialRow
	err := sqlx.SelectContext(
		ctx, database.Executor(ctx, repo.db), &rows,
		"SELECT "+materialColumns+" FROM course_materials WHERE course_id = $1 ORDER BY uploaded_at, id",
		courseID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting materials")
	}
	materials := make([]course.Material, 0, len(rows))
	for _, row := range rows {
		materials = append(materials, row.toMaterial())
	}
	return materials, nil
}

func (repo *courseRepository) DeleteMaterial(ctx context.Context, id int) error {
	res, err := database.Executor(ctx, repo.db).ExecContext(ctx, "DELETE FROM course_materials WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting material")
	}
	return database.CheckAffected(res, course.ErrMaterialNotFound)
}
