package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/media"
)

var (
	// errors
	ErrNotFound       = errors.New("course not found")
	ErrModuleNotFound = errors.New("module not found")
	ErrLessonNotFound = errors.New("lesson not found")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		QueryCourses(ctx context.Context) ([]Course, error)
		QueryCoursesByOwner(ctx context.Context, ownerID string) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error

		CreateModule(ctx context.Context, mod Module) (Module, error)
		GetModule(ctx context.Context, id string) (Module, error)
		// QueryCourseModules returns a course's modules ordered by
		// (week_number, created_at); ties broken by creation order.
		QueryCourseModules(ctx context.Context, courseID string) ([]Module, error)
		DeleteModule(ctx context.Context, id string) error

		CreateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		GetLesson(ctx context.Context, id string) (Lesson, error)
		// GetLessonCourse resolves the root Course of a Lesson.
		GetLessonCourse(ctx context.Context, lessonID string) (Course, error)
		QueryModuleLessons(ctx context.Context, moduleID string) ([]Lesson, error)
		// QueryCourseLessons returns every lesson of a course on the ordered
		// completion path: modules by (week_number, created_at), lessons by
		// position within each module.
		QueryCourseLessons(ctx context.Context, courseID string) ([]Lesson, error)
		UpdateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		// DeleteLesson removes a lesson and its attached assets.
		DeleteLesson(ctx context.Context, id string) error

		Enroll(ctx context.Context, enr Enrollment) (Enrollment, error)
		// Unenroll removes the enrollment and cascades the student's
		// progress records for the course away.
		Unenroll(ctx context.Context, studentID, courseID string) error
		IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
		QueryStudentCourses(ctx context.Context, studentID string) ([]Course, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	return svc.repo.CreateCourse(ctx, Course{
		Title:     nc.Title,
		OwnerID:   nc.OwnerID,
		Gating:    nc.Gating,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryCourses(ctx)
}

func (svc *Service) QueryByOwner(ctx context.Context, ownerID string) ([]Course, error) {
	return svc.repo.QueryCoursesByOwner(ctx, ownerID)
}

func (svc *Service) QueryByStudent(ctx context.Context, studentID string) ([]Course, error) {
	return svc.repo.QueryStudentCourses(ctx, studentID)
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	crs.Title = uc.Title
	crs.Gating = uc.Gating
	crs.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteCourse(ctx, id)
}

func (svc *Service) AddModule(ctx context.Context, nm NewModule) (Module, error) {
	if _, err := svc.repo.GetCourse(ctx, nm.CourseID); err != nil {
		return Module{}, err
	}
	return svc.repo.CreateModule(ctx, Module{
		CourseID:   nm.CourseID,
		WeekNumber: nm.WeekNumber,
		CreatedAt:  time.Now().UTC(),
	})
}

func (svc *Service) GetModule(ctx context.Context, id string) (Module, error) {
	return svc.repo.GetModule(ctx, id)
}

func (svc *Service) QueryModules(ctx context.Context, courseID string) ([]Module, error) {
	return svc.repo.QueryCourseModules(ctx, courseID)
}

func (svc *Service) DeleteModule(ctx context.Context, id string) error {
	return svc.repo.DeleteModule(ctx, id)
}

func (svc *Service) AddLesson(ctx context.Context, nl NewLesson) (Lesson, error) {
	if _, err := svc.repo.GetModule(ctx, nl.ModuleID); err != nil {
		return Lesson{}, err
	}
	now := time.Now().UTC()
	lsn := Lesson{
		ModuleID:  nl.ModuleID,
		Position:  nl.Position,
		Content:   nl.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, na := range nl.Assets {
		lsn.Assets = append(lsn.Assets, Asset{
			URL:          na.URL,
			ResourceKind: na.ResourceKind,
			UploadPreset: media.ChoosePreset(na.ResourceKind),
		})
	}
	return svc.repo.CreateLesson(ctx, lsn)
}

func (svc *Service) GetLesson(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLesson(ctx, id)
}

func (svc *Service) GetLessonCourse(ctx context.Context, lessonID string) (Course, error) {
	return svc.repo.GetLessonCourse(ctx, lessonID)
}

func (svc *Service) QueryLessons(ctx context.Context, moduleID string) ([]Lesson, error) {
	return svc.repo.QueryModuleLessons(ctx, moduleID)
}

// OrderedLessons returns a course's lessons on the ordered completion path.
func (svc *Service) OrderedLessons(ctx context.Context, courseID string) ([]Lesson, error) {
	return svc.repo.QueryCourseLessons(ctx, courseID)
}

func (svc *Service) UpdateLesson(ctx context.Context, lsn Lesson) (Lesson, error) {
	lsn.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateLesson(ctx, lsn)
}

func (svc *Service) DeleteLesson(ctx context.Context, id string) error {
	return svc.repo.DeleteLesson(ctx, id)
}

func (svc *Service) Enroll(ctx context.Context, studentID, courseID string) (Enrollment, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return Enrollment{}, err
	}
	return svc.repo.Enroll(ctx, Enrollment{
		StudentID: studentID,
		CourseID:  courseID,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) Unenroll(ctx context.Context, studentID, courseID string) error {
	return svc.repo.Unenroll(ctx, studentID, courseID)
}

func (svc *Service) IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	return svc.repo.IsEnrolled(ctx, studentID, courseID)
}
