package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/tests"
)

func Test_teacherApi_courseAccess(t *testing.T) {
	app := setup(t)

	owner := testutil.CreateUser(t, usrRepo, "Owner", "owner", "owner@test.cd", "s3cret", []string{user.RoleTeacher}, true)
	rival := testutil.CreateUser(t, usrRepo, "Rival", "rival", "rival@test.cd", "s3cret", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, usrRepo, "Student", "stud", "stud@test.cd", "s3cret", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "s3cret", []string{user.RoleAdmin}, true)

	crs := testutil.CreateCourse(t, courseRepo, "Algebra", owner.ID, course.GatingSequential)

	forbidden := marchallObj(t, httpErr{Error: "permission denied"})
	notOwner := marchallObj(t, map[string]string{"error": "permission denied", "reason": "not_owner"})
	notFound := marchallObj(t, httpErr{Error: "course not found"})

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/teacher/courses", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Teacher required", method: http.MethodGet, path: "/v1/teacher/courses", token: getToken(t, student), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "Student blocked from course detail", method: http.MethodGet, path: "/v1/teacher/courses/" + crs.ID, token: getToken(t, student), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "Owner preview", method: http.MethodGet, path: "/v1/teacher/courses/" + crs.ID, token: getToken(t, owner), wantCode: http.StatusOK, wantData: marchallObj(t, crs)},
		{name: "Admin preview", method: http.MethodGet, path: "/v1/teacher/courses/" + crs.ID, token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallObj(t, crs)},
		{name: "Non-owner preview denied", method: http.MethodGet, path: "/v1/teacher/courses/" + crs.ID, token: getToken(t, rival), wantCode: http.StatusForbidden, wantData: notOwner},
		{name: "Non-owner edit denied", method: http.MethodPut, path: "/v1/teacher/courses/" + crs.ID, body: marchallObj(t, map[string]string{"title": "Hijacked"}), token: getToken(t, rival), wantCode: http.StatusForbidden, wantData: notOwner},
		{name: "Unknown course", method: http.MethodGet, path: "/v1/teacher/courses/8090cb50-a542-4a26-9e4e-bdba3a7a2150", token: getToken(t, owner), wantCode: http.StatusNotFound, wantData: notFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// a denied edit must leave the course untouched
	orig, err := courseRepo.GetCourse(context.Background(), crs.ID)
	if err != nil {
		t.Fatalf("GetCourse() failed: %v", err)
	}
	if orig.Title != "Algebra" {
		t.Errorf("course title = %q; want %q", orig.Title, "Algebra")
	}
}

func Test_teacherApi_courseQuery(t *testing.T) {
	app := setup(t)

	owner := testutil.CreateUser(t, usrRepo, "Owner", "owner", "owner@test.cd", "s3cret", []string{user.RoleTeacher}, true)
	rival := testutil.CreateUser(t, usrRepo, "Rival", "rival", "rival@test.cd", "s3cret", []string{user.RoleTeacher}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "s3cret", []string{user.RoleAdmin}, true)

	crs1 := testutil.CreateCourse(t, courseRepo, "Algebra", owner.ID, course.GatingSequential)
	crs2 := testutil.CreateCourse(t, courseRepo, "Chemistry", rival.ID, course.GatingOpen)

	tests := []httpTest{
		{name: "Owner sees own courses only", token: getToken(t, owner), wantCode: http.StatusOK, wantData: marchallList(t, crs1)},
		{name: "Other owner scoped too", token: getToken(t, rival), wantCode: http.StatusOK, wantData: marchallList(t, crs2)},
		{name: "Admin sees all", token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallList(t, crs1, crs2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/teacher/courses", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_teacherApi_courseCreate(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach", "teach@test.cd", "s3cret", []string{user.RoleTeacher}, true)
	rival := testutil.CreateUser(t, usrRepo, "Rival", "rival", "rival@test.cd", "s3cret", []string{user.RoleTeacher}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "s3cret", []string{user.RoleAdmin}, true)

	tests := []httpTest{
		{
			name: "Title required", body: marchallObj(t, map[string]string{}), token: getToken(t, teacher),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"title": "this field is required"}),
		},
		{
			name: "Gating must be known", body: marchallObj(t, map[string]string{"title": "Biology", "gating": "locked"}), token: getToken(t, teacher),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"gating": "gating must be one of: sequential, open"}),
		},
		{
			name: "Teacher owns what they create", body: marchallObj(t, map[string]string{"title": "Biology"}),
			token: getToken(t, teacher), wantCode: http.StatusCreated,
			extra: struct{ owner string; gating course.Gating }{teacher.ID, course.GatingSequential},
		},
		{
			name: "Owner hint ignored for teachers", body: marchallObj(t, map[string]string{"title": "Physics", "owner_id": rival.ID}),
			token: getToken(t, teacher), wantCode: http.StatusCreated,
			extra: struct{ owner string; gating course.Gating }{teacher.ID, course.GatingSequential},
		},
		{
			name: "Admin creates on behalf of a teacher", body: marchallObj(t, map[string]string{"title": "History", "owner_id": teacher.ID, "gating": "open"}),
			token: getToken(t, admin), wantCode: http.StatusCreated,
			extra: struct{ owner string; gating course.Gating }{teacher.ID, course.GatingOpen},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/teacher/courses", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}

			want := tt.extra.(struct{ owner string; gating course.Gating })
			var crs course.Course
			if err := json.Unmarshal(rec.Body.Bytes(), &crs); err != nil {
				t.Fatalf("json.Unmarshal() failed: %v", err)
			}
			if crs.ID == "" {
				t.Error("course ID not set")
			}
			if crs.OwnerID != want.owner {
				t.Errorf("OwnerID = %q; want %q", crs.OwnerID, want.owner)
			}
			if crs.Gating != want.gating {
				t.Errorf("Gating = %q; want %q", crs.Gating, want.gating)
			}
			if _, err := courseRepo.GetCourse(context.Background(), crs.ID); err != nil {
				t.Errorf("created course not persisted: %v", err)
			}
		})
	}
}

func Test_teacherApi_courseUpdate(t *testing.T) {
	app := setup(t)

	owner := testutil.CreateUser(t, usrRepo, "Owner", "owner", "owner@test.cd", "s3cret", []string{user.RoleTeacher}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "s3cret", []string{user.RoleAdmin}, true)
	crs := testutil.CreateCourse(t, courseRepo, "Algebra", owner.ID, course.GatingSequential)

	tests := []httpTest{
		{
			name: "Owner updates title and gating", body: marchallObj(t, map[string]string{"title": "Algebra II", "gating": "open"}),
			token: getToken(t, owner),
			extra: struct{ title string; gating course.Gating }{"Algebra II", course.GatingOpen},
		},
		{
			name: "Empty update keeps current values", body: marchallObj(t, map[string]string{}),
			token: getToken(t, owner),
			extra: struct{ title string; gating course.Gating }{"Algebra II", course.GatingOpen},
		},
		{
			name: "Admin may edit any course", body: marchallObj(t, map[string]string{"gating": "sequential"}),
			token: getToken(t, admin),
			extra: struct{ title string; gating course.Gating }{"Algebra II", course.GatingSequential},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, "/v1/teacher/courses/"+crs.ID, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
			}
			want := tt.extra.(struct{ title string; gating course.Gating })
			var got course.Course
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("json.Unmarshal() failed: %v", err)
			}
			if got.Title != want.title {
				t.Errorf("Title = %q; want %q", got.Title, want.title)
			}
			if got.Gating != want.gating {
				t.Errorf("Gating = %q; want %q", got.Gating, want.gating)
			}
		})
	}
}

func Test_teacherApi_content(t *testing.T) {
	app := setup(t)

	owner := testutil.CreateUser(t, usrRepo, "Owner", "owner", "owner@test.cd", "s3cret", []string{user.RoleTeacher}, true)
	rival := testutil.CreateUser(t, usrRepo, "Rival", "rival", "rival@test.cd", "s3cret", []string{user.RoleTeacher}, true)
	crs := testutil.CreateCourse(t, courseRepo, "Algebra", owner.ID, course.GatingSequential)

	notOwner := marchallObj(t, map[string]string{"error": "permission denied", "reason": "not_owner"})

	var mod course.Module
	t.Run("Create module", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/teacher/courses/"+crs.ID+"/modules", getToken(t, owner),
			marchallObj(t, map[string]int{"week_number": 1}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; data = %v", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &mod); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if mod.CourseID != crs.ID || mod.WeekNumber != 1 {
			t.Errorf("module = %+v; want CourseID %v, WeekNumber 1", mod, crs.ID)
		}
	})

	t.Run("Non-owner cannot add modules", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: notOwner}
		req, rec := newAuthRequest(http.MethodPost, "/v1/teacher/courses/"+crs.ID+"/modules", getToken(t, rival),
			marchallObj(t, map[string]int{"week_number": 2}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	var lsn course.Lesson
	t.Run("Create lesson with asset", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{
			"position": 1,
			"content":  "Welcome to week one.",
			"assets": []map[string]string{
				{"url": "https://res.cloudinary.com/darasa/raw/upload/v1/notes.pdf", "resource_kind": "raw"},
			},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/teacher/modules/"+mod.ID+"/lessons", getToken(t, owner), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; data = %v", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &lsn); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if lsn.ModuleID != mod.ID || len(lsn.Assets) != 1 {
			t.Fatalf("lesson = %+v; want ModuleID %v with 1 asset", lsn, mod.ID)
		}
	})

	t.Run("Retrieve lesson forces downloads", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/teacher/lessons/"+lsn.ID, getToken(t, owner))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; data = %v", rec.Code, rec.Body.String())
		}
		var got course.Lesson
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		wantURL := "https://res.cloudinary.com/darasa/raw/upload/fl_attachment/v1/notes.pdf"
		if got.Assets[0].URL != wantURL {
			t.Errorf("asset URL = %q; want %q", got.Assets[0].URL, wantURL)
		}
	})

	t.Run("Update lesson content", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/teacher/lessons/"+lsn.ID, getToken(t, owner),
			marchallObj(t, map[string]string{"content": "Revised notes."}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; data = %v", rec.Code, rec.Body.String())
		}
		var got course.Lesson
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if got.Content != "Revised notes." {
			t.Errorf("Content = %q; want %q", got.Content, "Revised notes.")
		}
		if got.Position != 1 {
			t.Errorf("Position = %v; want 1", got.Position)
		}
	})

	t.Run("Unknown module", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "module not found"})}
		req, rec := newAuthRequest(http.MethodGet, "/v1/teacher/modules/b2a1e292-0f5e-4a9c-93a9-05ebe6bd4b9a/lessons", getToken(t, owner))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Destroy lesson", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/teacher/lessons/"+lsn.ID, getToken(t, owner))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; data = %v", rec.Code, rec.Body.String())
		}
		if _, err := courseRepo.GetLesson(context.Background(), lsn.ID); err != course.ErrLessonNotFound {
			t.Errorf("GetLesson() err = %v; want %v", err, course.ErrLessonNotFound)
		}
	})
}

func Test_teacherApi_enrollment(t *testing.T) {
	app := setup(t)

	owner := testutil.CreateUser(t, usrRepo, "Owner", "owner", "owner@test.cd", "s3cret", []string{user.RoleTeacher}, true)
	rival := testutil.CreateUser(t, usrRepo, "Rival", "rival", "rival@test.cd", "s3cret", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, usrRepo, "Student", "stud", "stud@test.cd", "s3cret", []string{user.RoleStudent}, true)
	crs := testutil.CreateCourse(t, courseRepo, "Algebra", owner.ID, course.GatingSequential)

	enrollPath := "/v1/teacher/courses/" + crs.ID + "/enrollments"

	t.Run("Student ID required", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"student_id": "this field is required"})}
		req, rec := newAuthRequest(http.MethodPost, enrollPath, getToken(t, owner), marchallObj(t, map[string]string{}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Only students enroll", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"student_id": "user is not a student"})}
		req, rec := newAuthRequest(http.MethodPost, enrollPath, getToken(t, owner), marchallObj(t, map[string]string{"student_id": rival.ID}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Non-owner cannot enroll", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, map[string]string{"error": "permission denied", "reason": "not_owner"})}
		req, rec := newAuthRequest(http.MethodPost, enrollPath, getToken(t, rival), marchallObj(t, map[string]string{"student_id": student.ID}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Owner enrolls a student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, enrollPath, getToken(t, owner), marchallObj(t, map[string]string{"student_id": student.ID}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; data = %v", rec.Code, rec.Body.String())
		}
		var enr course.Enrollment
		if err := json.Unmarshal(rec.Body.Bytes(), &enr); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if enr.StudentID != student.ID || enr.CourseID != crs.ID {
			t.Errorf("enrollment = %+v; want StudentID %v, CourseID %v", enr, student.ID, crs.ID)
		}
		ok, err := courseRepo.IsEnrolled(context.Background(), student.ID, crs.ID)
		if err != nil || !ok {
			t.Errorf("IsEnrolled() = %v, %v; want true, nil", ok, err)
		}
	})

	t.Run("Enrolling again is a no-op", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, enrollPath, getToken(t, owner), marchallObj(t, map[string]string{"student_id": student.ID}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; data = %v", rec.Code, rec.Body.String())
		}
	})

	t.Run("Unenroll", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, enrollPath+"/"+student.ID, getToken(t, owner))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; data = %v", rec.Code, rec.Body.String())
		}
		ok, err := courseRepo.IsEnrolled(context.Background(), student.ID, crs.ID)
		if err != nil || ok {
			t.Errorf("IsEnrolled() = %v, %v; want false, nil", ok, err)
		}
	})
}
