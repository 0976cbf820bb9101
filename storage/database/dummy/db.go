package dummydb

import (
	"sync"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/progress"
	"github.com/trezcool/darasa/core/user"
)

// DB is an in-memory database for tests and local hacking.
type DB struct {
	user     *userTable
	course   *courseTable
	progress *progressTable
}

type (
	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		courses     map[string]*course.Course
		modules     map[string]*course.Module
		lessons     map[string]*course.Lesson
		enrollments map[string]*course.Enrollment // key: studentID + "/" + courseID
	}

	progressTable struct {
		sync.RWMutex
		table map[string]*progress.Record // key: studentID + "/" + lessonID
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		course: &courseTable{
			courses:     make(map[string]*course.Course),
			modules:     make(map[string]*course.Module),
			lessons:     make(map[string]*course.Lesson),
			enrollments: make(map[string]*course.Enrollment),
		},
		progress: &progressTable{table: make(map[string]*progress.Record)},
	}
	return db, nil
}
