package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/course"
)

type courseRepository struct {
	db       *courseTable
	progress *progressTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course, progress: db.progress}
}

func enrollmentKey(studentID, courseID string) string {
	return studentID + "/" + courseID
}

// Courses

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs.ID = uuid.New().String()
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(_ context.Context) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.queryCourses(func(course.Course) bool { return true }), nil
}

func (repo *courseRepository) QueryCoursesByOwner(_ context.Context, ownerID string) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.queryCourses(func(crs course.Course) bool { return crs.OwnerID == ownerID }), nil
}

func (repo *courseRepository) queryCourses(match func(course.Course) bool) []course.Course {
	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, crs := range repo.db.courses {
		if match(*crs) {
			courses = append(courses, *crs)
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.Before(courses[j].CreatedAt) })
	return courses
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, mod := range repo.db.modules {
		if mod.CourseID == id {
			repo.deleteModuleLocked(mod.ID)
		}
	}
	for key, enr := range repo.db.enrollments {
		if enr.CourseID == id {
			delete(repo.db.enrollments, key)
		}
	}
	delete(repo.db.courses, id)
	return nil
}

// Modules

func (repo *courseRepository) CreateModule(_ context.Context, mod course.Module) (course.Module, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	mod.ID = uuid.New().String()
	repo.db.modules[mod.ID] = &mod
	return mod, nil
}

func (repo *courseRepository) GetModule(_ context.Context, id string) (course.Module, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if mod, ok := repo.db.modules[id]; ok {
		return *mod, nil
	}
	return course.Module{}, course.ErrModuleNotFound
}

func (repo *courseRepository) QueryCourseModules(_ context.Context, courseID string) ([]course.Module, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.queryCourseModules(courseID), nil
}

func (repo *courseRepository) queryCourseModules(courseID string) []course.Module {
	mods := make([]course.Module, 0)
	for _, mod := range repo.db.modules {
		if mod.CourseID == courseID {
			mods = append(mods, *mod)
		}
	}
	// week number order, creation order breaking ties
	sort.Slice(mods, func(i, j int) bool {
		if mods[i].WeekNumber != mods[j].WeekNumber {
			return mods[i].WeekNumber < mods[j].WeekNumber
		}
		return mods[i].CreatedAt.Before(mods[j].CreatedAt)
	})
	return mods
}

func (repo *courseRepository) DeleteModule(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.deleteModuleLocked(id)
	return nil
}

func (repo *courseRepository) deleteModuleLocked(id string) {
	for _, lsn := range repo.db.lessons {
		if lsn.ModuleID == id {
			delete(repo.db.lessons, lsn.ID)
		}
	}
	delete(repo.db.modules, id)
}

// Lessons

func (repo *courseRepository) CreateLesson(_ context.Context, lsn course.Lesson) (course.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	lsn.ID = uuid.New().String()
	for i := range lsn.Assets {
		lsn.Assets[i].ID = uuid.New().String()
		lsn.Assets[i].LessonID = lsn.ID
	}
	repo.db.lessons[lsn.ID] = &lsn
	return lsn, nil
}

func (repo *courseRepository) GetLesson(_ context.Context, id string) (course.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if lsn, ok := repo.db.lessons[id]; ok {
		return *lsn, nil
	}
	return course.Lesson{}, course.ErrLessonNotFound
}

func (repo *courseRepository) GetLessonCourse(_ context.Context, lessonID string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lsn, ok := repo.db.lessons[lessonID]
	if !ok {
		return course.Course{}, course.ErrLessonNotFound
	}
	mod, ok := repo.db.modules[lsn.ModuleID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	crs, ok := repo.db.courses[mod.CourseID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	return *crs, nil
}

func (repo *courseRepository) QueryModuleLessons(_ context.Context, moduleID string) ([]course.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.queryModuleLessons(moduleID), nil
}

func (repo *courseRepository) queryModuleLessons(moduleID string) []course.Lesson {
	lessons := make([]course.Lesson, 0)
	for _, lsn := range repo.db.lessons {
		if lsn.ModuleID == moduleID {
			lessons = append(lessons, *lsn)
		}
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].Position < lessons[j].Position })
	return lessons
}

func (repo *courseRepository) QueryCourseLessons(_ context.Context, courseID string) ([]course.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lessons := make([]course.Lesson, 0)
	for _, mod := range repo.queryCourseModules(courseID) {
		lessons = append(lessons, repo.queryModuleLessons(mod.ID)...)
	}
	return lessons, nil
}

func (repo *courseRepository) UpdateLesson(_ context.Context, lsn course.Lesson) (course.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.lessons[lsn.ID]; !ok {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	repo.db.lessons[lsn.ID] = &lsn
	return lsn, nil
}

func (repo *courseRepository) DeleteLesson(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	// assets live on the lesson; they go with it
	delete(repo.db.lessons, id)
	return nil
}

// Enrollments

func (repo *courseRepository) Enroll(_ context.Context, enr course.Enrollment) (course.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := enrollmentKey(enr.StudentID, enr.CourseID)
	if existing, ok := repo.db.enrollments[key]; ok {
		return *existing, nil
	}
	repo.db.enrollments[key] = &enr
	return enr, nil
}

func (repo *courseRepository) Unenroll(ctx context.Context, studentID, courseID string) error {
	repo.db.Lock()
	delete(repo.db.enrollments, enrollmentKey(studentID, courseID))
	lessons := make([]course.Lesson, 0)
	for _, mod := range repo.queryCourseModules(courseID) {
		lessons = append(lessons, repo.queryModuleLessons(mod.ID)...)
	}
	repo.db.Unlock()

	// cascade the student's progress records away
	repo.progress.Lock()
	defer repo.progress.Unlock()
	for _, lsn := range lessons {
		delete(repo.progress.table, progressKey(studentID, lsn.ID))
	}
	return nil
}

func (repo *courseRepository) IsEnrolled(_ context.Context, studentID, courseID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	_, ok := repo.db.enrollments[enrollmentKey(studentID, courseID)]
	return ok, nil
}

func (repo *courseRepository) QueryStudentCourses(_ context.Context, studentID string) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.queryCourses(func(crs course.Course) bool {
		_, ok := repo.db.enrollments[enrollmentKey(studentID, crs.ID)]
		return ok
	}), nil
}
