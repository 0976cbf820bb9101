package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/media"
	"github.com/trezcool/darasa/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo course.Repository, title, ownerID string, gating course.Gating) course.Course {
	t.Helper()

	now := time.Now().UTC()
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Title:     title,
		OwnerID:   ownerID,
		Gating:    gating,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateModule(t *testing.T, repo course.Repository, courseID string, week int) course.Module {
	t.Helper()

	mod, err := repo.CreateModule(context.Background(), course.Module{
		CourseID:   courseID,
		WeekNumber: week,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateModule() failed: %v", err)
	}
	return mod
}

func CreateLesson(t *testing.T, repo course.Repository, moduleID string, position int, assets ...course.Asset) course.Lesson {
	t.Helper()

	now := time.Now().UTC()
	lsn, err := repo.CreateLesson(context.Background(), course.Lesson{
		ModuleID:  moduleID,
		Position:  position,
		Content:   "lesson content",
		Assets:    assets,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateLesson() failed: %v", err)
	}
	return lsn
}

func Enroll(t *testing.T, repo course.Repository, studentID, courseID string) course.Enrollment {
	t.Helper()

	enr, err := repo.Enroll(context.Background(), course.Enrollment{
		StudentID: studentID,
		CourseID:  courseID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return enr
}

func Asset(url string, kind media.ResourceKind) course.Asset {
	return course.Asset{
		URL:          url,
		ResourceKind: kind,
		UploadPreset: media.ChoosePreset(kind),
	}
}
