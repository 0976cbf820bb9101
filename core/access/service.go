package access

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/progress"
	"github.com/trezcool/darasa/core/user"
)

// Service resolves content nodes and assembles the state Snapshot, then
// delegates the decision to Authorize. Re-evaluated on every request.
type Service struct {
	courseRepo   course.Repository
	progressRepo progress.Repository
}

func NewService(courseRepo course.Repository, progressRepo progress.Repository) *Service {
	return &Service{courseRepo: courseRepo, progressRepo: progressRepo}
}

// AuthorizeCourse decides access to a course (or module) node.
func (svc *Service) AuthorizeCourse(ctx context.Context, principal user.User, courseID string, mode Mode) (Decision, error) {
	crs, err := svc.courseRepo.GetCourse(ctx, courseID)
	if err != nil {
		return Decision{}, err
	}
	snap, err := svc.snapshot(ctx, principal, crs, mode)
	if err != nil {
		return Decision{}, err
	}
	return Authorize(principal, Target{Course: crs}, mode, snap), nil
}

// AuthorizeLesson decides access to a lesson node.
func (svc *Service) AuthorizeLesson(ctx context.Context, principal user.User, lessonID string, mode Mode) (Decision, error) {
	lsn, err := svc.courseRepo.GetLesson(ctx, lessonID)
	if err != nil {
		return Decision{}, err
	}
	crs, err := svc.courseRepo.GetLessonCourse(ctx, lessonID)
	if err != nil {
		return Decision{}, err
	}
	snap, err := svc.snapshot(ctx, principal, crs, mode)
	if err != nil {
		return Decision{}, err
	}
	return Authorize(principal, Target{Course: crs, Lesson: &lsn}, mode, snap), nil
}

// snapshot loads enrollment and the ordered progress path; only students
// consuming content need it.
func (svc *Service) snapshot(ctx context.Context, principal user.User, crs course.Course, mode Mode) (Snapshot, error) {
	if !principal.IsStudent() || mode != ModeConsume {
		return Snapshot{}, nil
	}

	enrolled, err := svc.courseRepo.IsEnrolled(ctx, principal.ID, crs.ID)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "checking enrollment")
	}
	snap := Snapshot{Enrolled: enrolled}
	if !enrolled || crs.Gating == course.GatingOpen {
		return snap, nil
	}

	lessons, err := svc.courseRepo.QueryCourseLessons(ctx, crs.ID)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "loading course lessons")
	}
	recs, err := svc.progressRepo.QueryCourseRecords(ctx, principal.ID, crs.ID)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "loading progress records")
	}
	byLesson := make(map[string]progress.Record, len(recs))
	for _, rec := range recs {
		byLesson[rec.LessonID] = rec
	}
	for _, lsn := range lessons {
		rec, ok := byLesson[lsn.ID]
		if !ok {
			rec = progress.Record{StudentID: principal.ID, LessonID: lsn.ID, State: progress.StateNotStarted}
		}
		snap.Path = append(snap.Path, rec)
	}
	return snap, nil
}
