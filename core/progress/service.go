package progress

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
)

var (
	// errors
	ErrRecordNotFound = errors.New("progress record not found")
	ErrNotEnrolled    = errors.New("student is not enrolled in the lesson's course")
	ErrLessonNotFound = errors.New("lesson not found")
)

type (
	Repository interface {
		GetRecord(ctx context.Context, studentID, lessonID string) (Record, error)
		// UpsertRecord atomically inserts or updates the record keyed on
		// (studentID, lessonID) so concurrent duplicate writes converge to
		// one record.
		UpsertRecord(ctx context.Context, rec Record) (Record, error)
		// QueryCourseRecords returns the student's records for every lesson
		// of the course.
		QueryCourseRecords(ctx context.Context, studentID, courseID string) ([]Record, error)
	}

	Service struct {
		repo      Repository
		courseRepo course.Repository
	}
)

func NewService(repo Repository, courseRepo course.Repository) *Service {
	return &Service{repo: repo, courseRepo: courseRepo}
}

func (svc *Service) getLesson(ctx context.Context, lessonID string) (course.Lesson, error) {
	lsn, err := svc.courseRepo.GetLesson(ctx, lessonID)
	if err != nil {
		if errors.Cause(err) == course.ErrLessonNotFound {
			return course.Lesson{}, ErrLessonNotFound
		}
		return course.Lesson{}, err
	}
	return lsn, nil
}

func (svc *Service) checkEnrollment(ctx context.Context, studentID, lessonID string) error {
	crs, err := svc.courseRepo.GetLessonCourse(ctx, lessonID)
	if err != nil {
		if errors.Cause(err) == course.ErrLessonNotFound || errors.Cause(err) == course.ErrNotFound {
			return ErrLessonNotFound
		}
		return err
	}
	enrolled, err := svc.courseRepo.IsEnrolled(ctx, studentID, crs.ID)
	if err != nil {
		return errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return ErrNotEnrolled
	}
	return nil
}

// GetState returns the student's progress for a lesson; an implicit
// NotStarted record when none is persisted. Never writes.
func (svc *Service) GetState(ctx context.Context, studentID, lessonID string) (Record, error) {
	if _, err := svc.getLesson(ctx, lessonID); err != nil {
		return Record{}, err
	}
	rec, err := svc.repo.GetRecord(ctx, studentID, lessonID)
	if err != nil {
		if errors.Cause(err) == ErrRecordNotFound {
			return Record{StudentID: studentID, LessonID: lessonID, State: StateNotStarted}, nil
		}
		return Record{}, err
	}
	return rec, nil
}

// MarkEntered transitions NotStarted -> InProgress on behalf of the student.
// Idempotent: already InProgress or Completed records are returned untouched.
func (svc *Service) MarkEntered(ctx context.Context, studentID, lessonID string) (Record, error) {
	if err := svc.checkEnrollment(ctx, studentID, lessonID); err != nil {
		return Record{}, err
	}

	rec, err := svc.GetState(ctx, studentID, lessonID)
	if err != nil {
		return Record{}, err
	}
	if rec.State != StateNotStarted {
		return rec, nil
	}

	now := time.Now().UTC()
	rec.State = StateInProgress
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	return svc.repo.UpsertRecord(ctx, rec)
}

// MarkCompleted transitions the record to Completed and stamps CompletedAt.
// A no-op when already Completed; fails with ErrNotEnrolled (persisting
// nothing) when no enrollment exists for the lesson's course.
func (svc *Service) MarkCompleted(ctx context.Context, studentID, lessonID string) (Record, error) {
	if err := svc.checkEnrollment(ctx, studentID, lessonID); err != nil {
		return Record{}, err
	}

	rec, err := svc.GetState(ctx, studentID, lessonID)
	if err != nil {
		return Record{}, err
	}
	if rec.State == StateCompleted {
		return rec, nil
	}

	now := time.Now().UTC()
	rec.State = StateCompleted
	rec.CompletedAt = &now
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	return svc.repo.UpsertRecord(ctx, rec)
}

// CourseCompletion returns the fraction of the course's lessons the student
// has completed, in [0,1]. Recomputed on demand, never stored.
func (svc *Service) CourseCompletion(ctx context.Context, studentID, courseID string) (float64, error) {
	lessons, err := svc.courseRepo.QueryCourseLessons(ctx, courseID)
	if err != nil {
		return 0, err
	}
	if len(lessons) == 0 {
		return 0, nil
	}

	recs, err := svc.repo.QueryCourseRecords(ctx, studentID, courseID)
	if err != nil {
		return 0, err
	}
	var completed int
	for _, rec := range recs {
		if rec.State == StateCompleted {
			completed++
		}
	}
	return float64(completed) / float64(len(lessons)), nil
}

// LessonStates returns the student's state for every lesson of the course in
// completion-path order; lessons without a record come back NotStarted.
func (svc *Service) LessonStates(ctx context.Context, studentID, courseID string) ([]Record, error) {
	lessons, err := svc.courseRepo.QueryCourseLessons(ctx, courseID)
	if err != nil {
		return nil, err
	}
	recs, err := svc.repo.QueryCourseRecords(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	byLesson := make(map[string]Record, len(recs))
	for _, rec := range recs {
		byLesson[rec.LessonID] = rec
	}

	states := make([]Record, 0, len(lessons))
	for _, lsn := range lessons {
		rec, ok := byLesson[lsn.ID]
		if !ok {
			rec = Record{StudentID: studentID, LessonID: lsn.ID, State: StateNotStarted}
		}
		states = append(states, rec)
	}
	return states, nil
}
