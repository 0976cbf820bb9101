package dummydb

import (
	"context"

	"github.com/trezcool/darasa/core/progress"
)

type progressRepository struct {
	db     *progressTable
	course *courseTable
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *DB) progress.Repository {
	return &progressRepository{db: db.progress, course: db.course}
}

func progressKey(studentID, lessonID string) string {
	return studentID + "/" + lessonID
}

func (repo *progressRepository) GetRecord(_ context.Context, studentID, lessonID string) (progress.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.table[progressKey(studentID, lessonID)]; ok {
		return *rec, nil
	}
	return progress.Record{}, progress.ErrRecordNotFound
}

func (repo *progressRepository) UpsertRecord(_ context.Context, rec progress.Record) (progress.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := progressKey(rec.StudentID, rec.LessonID)
	if existing, ok := repo.db.table[key]; ok {
		// keep the record monotonic under concurrent duplicate writes
		if rec.State.Before(existing.State) {
			return *existing, nil
		}
	}
	repo.db.table[key] = &rec
	return rec, nil
}

func (repo *progressRepository) QueryCourseRecords(_ context.Context, studentID, courseID string) ([]progress.Record, error) {
	lessonIDs := repo.courseLessonIDs(courseID)

	repo.db.RLock()
	defer repo.db.RUnlock()

	recs := make([]progress.Record, 0)
	for _, lessonID := range lessonIDs {
		if rec, ok := repo.db.table[progressKey(studentID, lessonID)]; ok {
			recs = append(recs, *rec)
		}
	}
	return recs, nil
}

func (repo *progressRepository) courseLessonIDs(courseID string) []string {
	repo.course.RLock()
	defer repo.course.RUnlock()

	moduleIDs := make(map[string]bool)
	for _, mod := range repo.course.modules {
		if mod.CourseID == courseID {
			moduleIDs[mod.ID] = true
		}
	}
	ids := make([]string, 0)
	for _, lsn := range repo.course.lessons {
		if moduleIDs[lsn.ModuleID] {
			ids = append(ids, lsn.ID)
		}
	}
	return ids
}
