package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	. "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/media"
	"github.com/trezcool/darasa/core/progress"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/tests"
)

// Test_studentApi_gatedFlow walks a student through a sequentially gated
// course: lesson 2 stays locked until lesson 1 is completed, opening a
// lesson marks it in progress, and the outline tracks completion.
// Steps depend on each other and run in order.
func Test_studentApi_gatedFlow(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach", "teach@test.cd", "s3cret", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, usrRepo, "Student", "stud", "stud@test.cd", "s3cret", []string{user.RoleStudent}, true)
	outsider := testutil.CreateUser(t, usrRepo, "Outsider", "out", "out@test.cd", "s3cret", []string{user.RoleStudent}, true)

	crs := testutil.CreateCourse(t, courseRepo, "Algebra", teacher.ID, course.GatingSequential)
	mod := testutil.CreateModule(t, courseRepo, crs.ID, 1)
	lsn1 := testutil.CreateLesson(t, courseRepo, mod.ID, 1,
		testutil.Asset("https://res.cloudinary.com/darasa/raw/upload/v1/worksheet.pdf", media.KindRaw))
	lsn2 := testutil.CreateLesson(t, courseRepo, mod.ID, 2)
	testutil.Enroll(t, courseRepo, student.ID, crs.ID)

	token := getToken(t, student)
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})
	deny := func(reason string) []byte {
		return marchallObj(t, map[string]string{"error": "permission denied", "reason": reason})
	}

	t.Run("Teacher blocked from student routes", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: forbidden}
		req, rec := newAuthRequest(http.MethodGet, "/v1/student/courses", getToken(t, teacher))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Outline needs enrollment", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: deny("not_enrolled")}
		req, rec := newAuthRequest(http.MethodGet, "/v1/student/courses/"+crs.ID, getToken(t, outsider))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Lessons need enrollment", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: deny("not_enrolled")}
		req, rec := newAuthRequest(http.MethodGet, "/v1/student/lessons/"+lsn1.ID, getToken(t, outsider))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Course list shows enrolled courses", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallList(t, crs)}
		req, rec := newAuthRequest(http.MethodGet, "/v1/student/courses", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Lesson 2 gated until lesson 1 completes", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: deny("ungated")}
		req, rec := newAuthRequest(http.MethodGet, "/v1/student/lessons/"+lsn2.ID, token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Completing a gated lesson is denied too", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: deny("ungated")}
		req, rec := newAuthRequest(http.MethodPost, "/v1/student/lessons/"+lsn2.ID+"/complete", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Opening lesson 1 marks it in progress", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/student/lessons/"+lsn1.ID, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; data = %v", rec.Code, rec.Body.String())
		}
		var view LessonViewResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if view.State != progress.StateInProgress {
			t.Errorf("State = %q; want %q", view.State, progress.StateInProgress)
		}
		wantURL := "https://res.cloudinary.com/darasa/raw/upload/fl_attachment/v1/worksheet.pdf"
		if view.Lesson.Assets[0].URL != wantURL {
			t.Errorf("asset URL = %q; want %q", view.Lesson.Assets[0].URL, wantURL)
		}
	})

	t.Run("Revisiting never regresses progress", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/student/lessons/"+lsn1.ID, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; data = %v", rec.Code, rec.Body.String())
		}
		var view LessonViewResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if view.State != progress.StateInProgress {
			t.Errorf("State = %q; want %q", view.State, progress.StateInProgress)
		}
	})

	t.Run("Complete lesson 1", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/student/lessons/"+lsn1.ID+"/complete", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; data = %v", rec.Code, rec.Body.String())
		}
		var rcd progress.Record
		if err := json.Unmarshal(rec.Body.Bytes(), &rcd); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if rcd.State != progress.StateCompleted {
			t.Errorf("State = %q; want %q", rcd.State, progress.StateCompleted)
		}
	})

	t.Run("Completion unlocks lesson 2", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/student/lessons/"+lsn2.ID, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; data = %v", rec.Code, rec.Body.String())
		}
		var view LessonViewResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if view.State != progress.StateInProgress {
			t.Errorf("State = %q; want %q", view.State, progress.StateInProgress)
		}
	})

	t.Run("Outline reports states and completion", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/student/courses/"+crs.ID, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; data = %v", rec.Code, rec.Body.String())
		}
		var outline CourseOutlineResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &outline); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if outline.Course.ID != crs.ID {
			t.Errorf("Course.ID = %v; want %v", outline.Course.ID, crs.ID)
		}
		if len(outline.Lessons) != 2 {
			t.Fatalf("len(Lessons) = %v; want 2", len(outline.Lessons))
		}
		if got := outline.Lessons[0].State; got != progress.StateCompleted {
			t.Errorf("Lessons[0].State = %q; want %q", got, progress.StateCompleted)
		}
		if got := outline.Lessons[1].State; got != progress.StateInProgress {
			t.Errorf("Lessons[1].State = %q; want %q", got, progress.StateInProgress)
		}
		if outline.Completion != 0.5 {
			t.Errorf("Completion = %v; want 0.5", outline.Completion)
		}
	})
}

// Test_studentApi_openGating checks that an open course never gates lessons.
func Test_studentApi_openGating(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach", "teach@test.cd", "s3cret", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, usrRepo, "Student", "stud", "stud@test.cd", "s3cret", []string{user.RoleStudent}, true)

	crs := testutil.CreateCourse(t, courseRepo, "Chemistry", teacher.ID, course.GatingOpen)
	mod := testutil.CreateModule(t, courseRepo, crs.ID, 1)
	testutil.CreateLesson(t, courseRepo, mod.ID, 1)
	lsn2 := testutil.CreateLesson(t, courseRepo, mod.ID, 2)
	testutil.Enroll(t, courseRepo, student.ID, crs.ID)

	req, rec := newAuthRequest(http.MethodGet, "/v1/student/lessons/"+lsn2.ID, getToken(t, student))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; data = %v", rec.Code, rec.Body.String())
	}
	var view LessonViewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}
	if view.Lesson.ID != lsn2.ID {
		t.Errorf("Lesson.ID = %v; want %v", view.Lesson.ID, lsn2.ID)
	}
	if view.State != progress.StateInProgress {
		t.Errorf("State = %q; want %q", view.State, progress.StateInProgress)
	}
}

// Test_studentApi_adminBypass checks that admins browse any course without
// enrollment and without leaving progress records behind.
func Test_studentApi_adminBypass(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach", "teach@test.cd", "s3cret", []string{user.RoleTeacher}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "s3cret", []string{user.RoleAdmin}, true)

	crs := testutil.CreateCourse(t, courseRepo, "Algebra", teacher.ID, course.GatingSequential)
	mod := testutil.CreateModule(t, courseRepo, crs.ID, 1)
	testutil.CreateLesson(t, courseRepo, mod.ID, 1)
	lsn2 := testutil.CreateLesson(t, courseRepo, mod.ID, 2)

	token := getToken(t, admin)

	t.Run("Outline without enrollment", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/student/courses/"+crs.ID, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; data = %v", rec.Code, rec.Body.String())
		}
	})

	t.Run("Gating does not apply", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/student/lessons/"+lsn2.ID, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; data = %v", rec.Code, rec.Body.String())
		}
		var view LessonViewResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		// admins are not on a completion path
		if view.State != progress.StateNotStarted {
			t.Errorf("State = %q; want %q", view.State, progress.StateNotStarted)
		}
	})
}
