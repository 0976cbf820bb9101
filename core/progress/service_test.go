package progress_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/progress"
	"github.com/trezcool/darasa/core/user"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	testutil "github.com/trezcool/darasa/tests"
)

type fixture struct {
	svc     *progress.Service
	repo    progress.Repository
	student user.User
	course  course.Course
	lessons []course.Lesson
}

func newFixture(t *testing.T, gating course.Gating, enroll bool) fixture {
	t.Helper()

	db, _ := dummydb.Open()
	usrRepo := dummydb.NewUserRepository(db)
	courseRepo := dummydb.NewCourseRepository(db)
	progressRepo := dummydb.NewProgressRepository(db)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach1", "teach@test.cd", "", user.TeacherRoles, true)
	student := testutil.CreateUser(t, usrRepo, "Student", "stud01", "stud@test.cd", "", user.StudentRoles, true)

	crs := testutil.CreateCourse(t, courseRepo, "History", teacher.ID, gating)
	mod := testutil.CreateModule(t, courseRepo, crs.ID, 1)
	l1 := testutil.CreateLesson(t, courseRepo, mod.ID, 1)
	l2 := testutil.CreateLesson(t, courseRepo, mod.ID, 2)
	if enroll {
		testutil.Enroll(t, courseRepo, student.ID, crs.ID)
	}

	return fixture{
		svc:     progress.NewService(progressRepo, courseRepo),
		repo:    progressRepo,
		student: student,
		course:  crs,
		lessons: []course.Lesson{l1, l2},
	}
}

func TestServiceGetState(t *testing.T) {
	ctx := context.Background()
	fix := newFixture(t, course.GatingSequential, true)
	lsn := fix.lessons[0]

	t.Run("implicit NotStarted without a record", func(t *testing.T) {
		rec, err := fix.svc.GetState(ctx, fix.student.ID, lsn.ID)
		if err != nil {
			t.Fatalf("GetState() failed: %v", err)
		}
		if rec.State != progress.StateNotStarted {
			t.Errorf("state = %s, want %s", rec.State, progress.StateNotStarted)
		}
		// a read never persists
		if _, err = fix.repo.GetRecord(ctx, fix.student.ID, lsn.ID); errors.Cause(err) != progress.ErrRecordNotFound {
			t.Errorf("GetRecord() error = %v, want %v", err, progress.ErrRecordNotFound)
		}
	})

	t.Run("unknown lesson", func(t *testing.T) {
		if _, err := fix.svc.GetState(ctx, fix.student.ID, "nope"); errors.Cause(err) != progress.ErrLessonNotFound {
			t.Errorf("GetState() error = %v, want %v", err, progress.ErrLessonNotFound)
		}
	})
}

func TestServiceMonotonicProgression(t *testing.T) {
	ctx := context.Background()
	fix := newFixture(t, course.GatingSequential, true)
	lsn := fix.lessons[0]

	rec, err := fix.svc.MarkEntered(ctx, fix.student.ID, lsn.ID)
	if err != nil {
		t.Fatalf("MarkEntered() failed: %v", err)
	}
	if rec.State != progress.StateInProgress {
		t.Fatalf("state = %s, want %s", rec.State, progress.StateInProgress)
	}

	rec, err = fix.svc.MarkCompleted(ctx, fix.student.ID, lsn.ID)
	if err != nil {
		t.Fatalf("MarkCompleted() failed: %v", err)
	}
	if rec.State != progress.StateCompleted {
		t.Fatalf("state = %s, want %s", rec.State, progress.StateCompleted)
	}
	if rec.CompletedAt == nil {
		t.Fatal("CompletedAt not stamped")
	}
	completedAt := *rec.CompletedAt

	// re-entering never regresses a completed lesson
	rec, err = fix.svc.MarkEntered(ctx, fix.student.ID, lsn.ID)
	if err != nil {
		t.Fatalf("MarkEntered() failed: %v", err)
	}
	if rec.State != progress.StateCompleted {
		t.Errorf("state after re-enter = %s, want %s", rec.State, progress.StateCompleted)
	}

	// completing again is a no-op
	rec, err = fix.svc.MarkCompleted(ctx, fix.student.ID, lsn.ID)
	if err != nil {
		t.Fatalf("MarkCompleted() failed: %v", err)
	}
	if rec.CompletedAt == nil || !rec.CompletedAt.Equal(completedAt) {
		t.Errorf("CompletedAt changed on repeat completion: %v != %v", rec.CompletedAt, completedAt)
	}
}

func TestServiceEnrollmentGate(t *testing.T) {
	ctx := context.Background()
	fix := newFixture(t, course.GatingSequential, false)
	lsn := fix.lessons[0]

	if _, err := fix.svc.MarkEntered(ctx, fix.student.ID, lsn.ID); errors.Cause(err) != progress.ErrNotEnrolled {
		t.Errorf("MarkEntered() error = %v, want %v", err, progress.ErrNotEnrolled)
	}
	if _, err := fix.svc.MarkCompleted(ctx, fix.student.ID, lsn.ID); errors.Cause(err) != progress.ErrNotEnrolled {
		t.Errorf("MarkCompleted() error = %v, want %v", err, progress.ErrNotEnrolled)
	}

	// failed writes persist nothing
	if _, err := fix.repo.GetRecord(ctx, fix.student.ID, lsn.ID); errors.Cause(err) != progress.ErrRecordNotFound {
		t.Errorf("GetRecord() error = %v, want %v", err, progress.ErrRecordNotFound)
	}
}

func TestServiceCourseCompletion(t *testing.T) {
	ctx := context.Background()
	fix := newFixture(t, course.GatingOpen, true)

	frac, err := fix.svc.CourseCompletion(ctx, fix.student.ID, fix.course.ID)
	if err != nil {
		t.Fatalf("CourseCompletion() failed: %v", err)
	}
	if frac != 0 {
		t.Errorf("completion = %v, want 0", frac)
	}

	if _, err = fix.svc.MarkCompleted(ctx, fix.student.ID, fix.lessons[0].ID); err != nil {
		t.Fatalf("MarkCompleted() failed: %v", err)
	}
	frac, err = fix.svc.CourseCompletion(ctx, fix.student.ID, fix.course.ID)
	if err != nil {
		t.Fatalf("CourseCompletion() failed: %v", err)
	}
	if frac != 0.5 {
		t.Errorf("completion = %v, want 0.5", frac)
	}

	if _, err = fix.svc.MarkCompleted(ctx, fix.student.ID, fix.lessons[1].ID); err != nil {
		t.Fatalf("MarkCompleted() failed: %v", err)
	}
	frac, err = fix.svc.CourseCompletion(ctx, fix.student.ID, fix.course.ID)
	if err != nil {
		t.Fatalf("CourseCompletion() failed: %v", err)
	}
	if frac != 1 {
		t.Errorf("completion = %v, want 1", frac)
	}
}

func TestServiceLessonStates(t *testing.T) {
	ctx := context.Background()
	fix := newFixture(t, course.GatingSequential, true)

	if _, err := fix.svc.MarkEntered(ctx, fix.student.ID, fix.lessons[0].ID); err != nil {
		t.Fatalf("MarkEntered() failed: %v", err)
	}

	states, err := fix.svc.LessonStates(ctx, fix.student.ID, fix.course.ID)
	if err != nil {
		t.Fatalf("LessonStates() failed: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("len(states) = %d, want 2", len(states))
	}
	if states[0].LessonID != fix.lessons[0].ID || states[0].State != progress.StateInProgress {
		t.Errorf("states[0] = %+v, want %s for lesson %s", states[0], progress.StateInProgress, fix.lessons[0].ID)
	}
	if states[1].LessonID != fix.lessons[1].ID || states[1].State != progress.StateNotStarted {
		t.Errorf("states[1] = %+v, want %s for lesson %s", states[1], progress.StateNotStarted, fix.lessons[1].ID)
	}
}
