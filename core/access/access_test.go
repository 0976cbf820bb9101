package access

import (
	"context"
	"testing"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/progress"
	"github.com/trezcool/darasa/core/user"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	testutil "github.com/trezcool/darasa/tests"
)

func newUser(id string, roles ...string) user.User {
	usr := user.User{ID: id, Roles: roles}
	usr.SetActive(true)
	return usr
}

func TestAuthorize(t *testing.T) {
	owner := newUser("teacher-1", user.RoleTeacher)
	otherTeacher := newUser("teacher-2", user.RoleTeacher)
	admin := newUser("admin-1", user.RoleAdmin)
	student := newUser("student-1", user.RoleStudent)

	crs := course.Course{ID: "crs-1", Title: "Algebra", OwnerID: owner.ID, Gating: course.GatingSequential}
	openCrs := course.Course{ID: "crs-2", Title: "Art", OwnerID: owner.ID, Gating: course.GatingOpen}
	l1 := course.Lesson{ID: "l1", ModuleID: "m1", Position: 1}
	l2 := course.Lesson{ID: "l2", ModuleID: "m1", Position: 2}

	pathL1Done := []progress.Record{
		{StudentID: student.ID, LessonID: l1.ID, State: progress.StateCompleted},
		{StudentID: student.ID, LessonID: l2.ID, State: progress.StateNotStarted},
	}
	pathFresh := []progress.Record{
		{StudentID: student.ID, LessonID: l1.ID, State: progress.StateNotStarted},
		{StudentID: student.ID, LessonID: l2.ID, State: progress.StateNotStarted},
	}

	tests := []struct {
		name      string
		principal user.User
		target    Target
		mode      Mode
		snap      Snapshot
		want      Decision
	}{
		{
			name:      "admin edits any course",
			principal: admin,
			target:    Target{Course: crs},
			mode:      ModeEdit,
			want:      Allow(),
		},
		{
			name:      "admin consumes any lesson without enrollment",
			principal: admin,
			target:    Target{Course: crs, Lesson: &l2},
			mode:      ModeConsume,
			want:      Allow(),
		},
		{
			name:      "owner edits own course",
			principal: owner,
			target:    Target{Course: crs},
			mode:      ModeEdit,
			want:      Allow(),
		},
		{
			name:      "owner previews own lesson",
			principal: owner,
			target:    Target{Course: crs, Lesson: &l1},
			mode:      ModePreview,
			want:      Allow(),
		},
		{
			name:      "teacher denied edit on another teacher's course",
			principal: otherTeacher,
			target:    Target{Course: crs},
			mode:      ModeEdit,
			want:      Deny(DenyNotOwner),
		},
		{
			name:      "teacher denied preview on another teacher's course",
			principal: otherTeacher,
			target:    Target{Course: crs, Lesson: &l1},
			mode:      ModePreview,
			want:      Deny(DenyNotOwner),
		},
		{
			name:      "student denied edit",
			principal: student,
			target:    Target{Course: crs, Lesson: &l1},
			mode:      ModeEdit,
			want:      Deny(DenyInsufficientRole),
		},
		{
			name:      "student denied preview",
			principal: student,
			target:    Target{Course: crs, Lesson: &l1},
			mode:      ModePreview,
			want:      Deny(DenyInsufficientRole),
		},
		{
			name:      "student denied consume without enrollment",
			principal: student,
			target:    Target{Course: crs, Lesson: &l1},
			mode:      ModeConsume,
			snap:      Snapshot{Enrolled: false},
			want:      Deny(DenyNotEnrolled),
		},
		{
			name:      "enrolled student consumes first lesson",
			principal: student,
			target:    Target{Course: crs, Lesson: &l1},
			mode:      ModeConsume,
			snap:      Snapshot{Enrolled: true, Path: pathFresh},
			want:      Allow(),
		},
		{
			name:      "sequential gating blocks lesson past the frontier",
			principal: student,
			target:    Target{Course: crs, Lesson: &l2},
			mode:      ModeConsume,
			snap:      Snapshot{Enrolled: true, Path: pathFresh},
			want:      Deny(DenyUngated),
		},
		{
			name:      "completing the first lesson unlocks the second",
			principal: student,
			target:    Target{Course: crs, Lesson: &l2},
			mode:      ModeConsume,
			snap:      Snapshot{Enrolled: true, Path: pathL1Done},
			want:      Allow(),
		},
		{
			name:      "open gating ignores ordering",
			principal: student,
			target:    Target{Course: openCrs, Lesson: &l2},
			mode:      ModeConsume,
			snap:      Snapshot{Enrolled: true},
			want:      Allow(),
		},
		{
			name:      "student revisits a completed lesson",
			principal: student,
			target:    Target{Course: crs, Lesson: &l1},
			mode:      ModeConsume,
			snap:      Snapshot{Enrolled: true, Path: pathL1Done},
			want:      Allow(),
		},
		{
			name:      "consume on a course node is not a student operation",
			principal: student,
			target:    Target{Course: crs},
			mode:      ModeConsume,
			snap:      Snapshot{Enrolled: true},
			want:      Deny(DenyInsufficientRole),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Authorize(tt.principal, tt.target, tt.mode, tt.snap); got != tt.want {
				t.Errorf("Authorize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// TestServiceSequentialGating walks a student through a sequentially gated
// course: L2 is denied until L1 is completed.
func TestServiceSequentialGating(t *testing.T) {
	ctx := context.Background()
	db, _ := dummydb.Open()
	courseRepo := dummydb.NewCourseRepository(db)
	progressRepo := dummydb.NewProgressRepository(db)

	usrRepo := dummydb.NewUserRepository(db)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach1", "teach@test.cd", "", user.TeacherRoles, true)
	student := testutil.CreateUser(t, usrRepo, "Student", "stud01", "stud@test.cd", "", user.StudentRoles, true)

	crs := testutil.CreateCourse(t, courseRepo, "Geometry", teacher.ID, course.GatingSequential)
	mod := testutil.CreateModule(t, courseRepo, crs.ID, 1)
	l1 := testutil.CreateLesson(t, courseRepo, mod.ID, 1)
	l2 := testutil.CreateLesson(t, courseRepo, mod.ID, 2)
	testutil.Enroll(t, courseRepo, student.ID, crs.ID)

	accessSvc := NewService(courseRepo, progressRepo)
	progressSvc := progress.NewService(progressRepo, courseRepo)

	// L2 starts NotStarted
	rec, err := progressSvc.GetState(ctx, student.ID, l2.ID)
	if err != nil {
		t.Fatalf("GetState() failed: %v", err)
	}
	if rec.State != progress.StateNotStarted {
		t.Fatalf("initial state = %s, want %s", rec.State, progress.StateNotStarted)
	}

	// L2 is gated while L1 is incomplete
	dec, err := accessSvc.AuthorizeLesson(ctx, student, l2.ID, ModeConsume)
	if err != nil {
		t.Fatalf("AuthorizeLesson() failed: %v", err)
	}
	if want := Deny(DenyUngated); dec != want {
		t.Errorf("AuthorizeLesson(L2) = %+v, want %+v", dec, want)
	}

	// completing L1 unlocks L2
	if _, err := progressSvc.MarkCompleted(ctx, student.ID, l1.ID); err != nil {
		t.Fatalf("MarkCompleted() failed: %v", err)
	}
	dec, err = accessSvc.AuthorizeLesson(ctx, student, l2.ID, ModeConsume)
	if err != nil {
		t.Fatalf("AuthorizeLesson() failed: %v", err)
	}
	if !dec.Allowed {
		t.Errorf("AuthorizeLesson(L2) after completing L1 = %+v, want allowed", dec)
	}
}
