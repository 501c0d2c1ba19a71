package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
)

type courseRepository struct {
	db *DB
}

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.t.courseSeq++
	c.ID = repo.db.t.courseSeq
	repo.db.t.courses[c.ID] = c
	return c, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id int) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.t.courses[id]; ok {
		return c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter course.QueryFilter, page core.Page) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, 0)
	for _, c := range repo.db.t.courses {
		if filter.Match(c) {
			courses = append(courses, c)
		}
	}
	sort.Slice(courses, func(i, j int) bool {
		if !courses[i].CreatedAt.Equal(courses[j].CreatedAt) {
			return courses[i].CreatedAt.After(courses[j].CreatedAt)
		}
		return courses[i].ID > courses[j].ID
	})
	return paginate(courses, page), nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.t.courses[c.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	orig.Title = c.Title
	orig.Description = c.Description
	orig.UpdatedAt = c.UpdatedAt
	repo.db.t.courses[c.ID] = orig
	return orig, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.t.courses[id]; !ok {
		return course.ErrNotFound
	}
	repo.db.t.deleteCourse(id)
	return nil
}

func (repo *courseRepository) CreateMaterial(_ context.Context, m course.Material) (course.Material, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.t.courses[m.CourseID]; !ok {
		return course.Material{}, course.ErrNotFound
	}
	repo.db.t.materialSeq++
	m.ID = repo.db.t.materialSeq
	repo.db.t.materials[m.ID] = m
	return m, nil
}

func (repo *courseRepository) GetMaterial(_ context.Context, courseID, id int) (course.Material, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if m, ok := repo.db.t.materials[id]; ok && m.CourseID == courseID {
		return m, nil
	}
	return course.Material{}, course.ErrMaterialNotFound
}

func (repo *courseRepository) QueryMaterials(_ context.Context, courseID int) ([]course.Material, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	materials := make([]course.Material, 0)
	for _, id := range sortedKeys(repo.db.t.materials) {
		if m := repo.db.t.materials[id]; m.CourseID == courseID {
			materials = append(materials, m)
		}
	}
	return materials, nil
}

func (repo *courseRepository) DeleteMaterial(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.t.materials[id]; !ok {
		return course.ErrMaterialNotFound
	}
	delete(repo.db.t.materials, id)
	return nil
}
