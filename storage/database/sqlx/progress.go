package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/progress"
)

type progressRow struct {
	StudentID   string    `db:"student_id"`
	LessonID    string    `db:"lesson_id"`
	State       string    `db:"state"`
	CompletedAt null.Time `db:"completed_at"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r progressRow) unmarshal() progress.Record {
	return progress.Record{
		StudentID:   r.StudentID,
		LessonID:    r.LessonID,
		State:       progress.State(r.State),
		CompletedAt: r.CompletedAt.Ptr(),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type progressRepository struct {
	db *sqlx.DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *sqlx.DB) *progressRepository {
	return &progressRepository{db: db}
}

func (repo progressRepository) GetRecord(ctx context.Context, studentID, lessonID string) (progress.Record, error) {
	var row progressRow
	q := `SELECT * FROM progress_record WHERE student_id = $1 AND lesson_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, studentID, lessonID); err != nil {
		if err == sql.ErrNoRows {
			return progress.Record{}, progress.ErrRecordNotFound
		}
		return progress.Record{}, errors.Wrap(err, "finding progress record")
	}
	return row.unmarshal(), nil
}

func (repo progressRepository) UpsertRecord(ctx context.Context, rec progress.Record) (progress.Record, error) {
	q := `
INSERT INTO progress_record (student_id, lesson_id, state, completed_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (student_id, lesson_id) DO UPDATE
SET state = EXCLUDED.state, completed_at = EXCLUDED.completed_at, updated_at = EXCLUDED.updated_at
WHERE CASE progress_record.state WHEN 'not_started' THEN 0 WHEN 'in_progress' THEN 1 ELSE 2 END
    < CASE EXCLUDED.state WHEN 'not_started' THEN 0 WHEN 'in_progress' THEN 1 ELSE 2 END
RETURNING *`

	var row progressRow
	err := repo.db.GetContext(ctx, &row, q,
		rec.StudentID, rec.LessonID, string(rec.State), null.TimeFromPtr(rec.CompletedAt),
		rec.CreatedAt.UTC(), rec.UpdatedAt.UTC())
	if err != nil {
		if err == sql.ErrNoRows {
			// a further-along record won the race; keep it
			return repo.GetRecord(ctx, rec.StudentID, rec.LessonID)
		}
		return progress.Record{}, errors.Wrap(err, "upserting progress record")
	}
	return row.unmarshal(), nil
}

func (repo progressRepository) QueryCourseRecords(ctx context.Context, studentID, courseID string) ([]progress.Record, error) {
	q := `
SELECT p.* FROM progress_record p
JOIN lesson l ON l.id = p.lesson_id
JOIN module m ON m.id = l.module_id
WHERE p.student_id = $1 AND m.course_id = $2
ORDER BY m.week_number, m.created_at, l.position`
	var rows []progressRow
	if err := repo.db.SelectContext(ctx, &rows, q, studentID, courseID); err != nil {
		return nil, errors.Wrap(err, "querying progress records")
	}
	recs := make([]progress.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.unmarshal())
	}
	return recs, nil
}
