package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/media"
)

type courseRow struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	OwnerID   string    `db:"owner_id"`
	Gating    string    `db:"gating"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r courseRow) unmarshal() course.Course {
	return course.Course{
		ID:        r.ID,
		Title:     r.Title,
		OwnerID:   r.OwnerID,
		Gating:    course.Gating(r.Gating),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type moduleRow struct {
	ID         string    `db:"id"`
	CourseID   string    `db:"course_id"`
	WeekNumber int       `db:"week_number"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r moduleRow) unmarshal() course.Module {
	return course.Module(r)
}

type lessonRow struct {
	ID        string      `db:"id"`
	ModuleID  string      `db:"module_id"`
	Position  int         `db:"position"`
	Content   null.String `db:"content"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (r lessonRow) unmarshal() course.Lesson {
	return course.Lesson{
		ID:        r.ID,
		ModuleID:  r.ModuleID,
		Position:  r.Position,
		Content:   r.Content.String,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type assetRow struct {
	ID           string `db:"id"`
	LessonID     string `db:"lesson_id"`
	URL          string `db:"url"`
	ResourceKind string `db:"resource_kind"`
	UploadPreset string `db:"upload_preset"`
}

func (r assetRow) unmarshal() course.Asset {
	return course.Asset{
		ID:           r.ID,
		LessonID:     r.LessonID,
		URL:          r.URL,
		ResourceKind: media.ResourceKind(r.ResourceKind),
		UploadPreset: r.UploadPreset,
	}
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func trapErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()
	q := `
INSERT INTO course (id, title, owner_id, gating, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.db.ExecContext(ctx, q, crs.ID, crs.Title, crs.OwnerID, string(crs.Gating), crs.CreatedAt.UTC(), crs.UpdatedAt.UTC())
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM course WHERE id = $1`, id); err != nil {
		return course.Course{}, trapErr(err, course.ErrNotFound, "finding course")
	}
	return row.unmarshal(), nil
}

func (repo courseRepository) queryCourses(ctx context.Context, q string, args ...interface{}) ([]course.Course, error) {
	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.unmarshal())
	}
	return courses, nil
}

func (repo courseRepository) QueryCourses(ctx context.Context) ([]course.Course, error) {
	return repo.queryCourses(ctx, `SELECT * FROM course ORDER BY created_at`)
}

func (repo courseRepository) QueryCoursesByOwner(ctx context.Context, ownerID string) ([]course.Course, error) {
	return repo.queryCourses(ctx, `SELECT * FROM course WHERE owner_id = $1 ORDER BY created_at`, ownerID)
}

func (repo courseRepository) QueryStudentCourses(ctx context.Context, studentID string) ([]course.Course, error) {
	q := `
SELECT c.* FROM course c
JOIN enrollment e ON e.course_id = c.id
WHERE e.student_id = $1
ORDER BY e.created_at`
	return repo.queryCourses(ctx, q, studentID)
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	q := `UPDATE course SET title = $1, gating = $2, updated_at = $3 WHERE id = $4`
	res, err := repo.db.ExecContext(ctx, q, crs.Title, string(crs.Gating), crs.UpdatedAt.UTC(), crs.ID)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id string) error {
	// modules, lessons, assets, enrollments and progress cascade away
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM course WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return nil
}

func (repo courseRepository) CreateModule(ctx context.Context, mod course.Module) (course.Module, error) {
	mod.ID = uuid.New().String()
	q := `INSERT INTO module (id, course_id, week_number, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := repo.db.ExecContext(ctx, q, mod.ID, mod.CourseID, mod.WeekNumber, mod.CreatedAt.UTC()); err != nil {
		return course.Module{}, errors.Wrap(err, "inserting module")
	}
	return mod, nil
}

func (repo courseRepository) GetModule(ctx context.Context, id string) (course.Module, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Module{}, course.ErrModuleNotFound
	}
	var row moduleRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM module WHERE id = $1`, id); err != nil {
		return course.Module{}, trapErr(err, course.ErrModuleNotFound, "finding module")
	}
	return row.unmarshal(), nil
}

func (repo courseRepository) QueryCourseModules(ctx context.Context, courseID string) ([]course.Module, error) {
	var rows []moduleRow
	q := `SELECT * FROM module WHERE course_id = $1 ORDER BY week_number, created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}
	mods := make([]course.Module, 0, len(rows))
	for _, row := range rows {
		mods = append(mods, row.unmarshal())
	}
	return mods, nil
}

func (repo courseRepository) DeleteModule(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM module WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting module")
	}
	return nil
}

func (repo courseRepository) CreateLesson(ctx context.Context, lsn course.Lesson) (course.Lesson, error) {
	lsn.ID = uuid.New().String()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return course.Lesson{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	q := `
INSERT INTO lesson (id, module_id, position, content, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = tx.ExecContext(ctx, q, lsn.ID, lsn.ModuleID, lsn.Position,
		null.NewString(lsn.Content, lsn.Content != ""), lsn.CreatedAt.UTC(), lsn.UpdatedAt.UTC())
	if err != nil {
		return course.Lesson{}, errors.Wrap(err, "inserting lesson")
	}

	assetQ := `
INSERT INTO asset (id, lesson_id, url, resource_kind, upload_preset)
VALUES ($1, $2, $3, $4, $5)`
	for i, ast := range lsn.Assets {
		ast.ID = uuid.New().String()
		ast.LessonID = lsn.ID
		if _, err = tx.ExecContext(ctx, assetQ, ast.ID, ast.LessonID, ast.URL, string(ast.ResourceKind), ast.UploadPreset); err != nil {
			return course.Lesson{}, errors.Wrap(err, "inserting asset")
		}
		lsn.Assets[i] = ast
	}

	if err = tx.Commit(); err != nil {
		return course.Lesson{}, errors.Wrap(err, "committing transaction")
	}
	return lsn, nil
}

func (repo courseRepository) queryAssets(ctx context.Context, lessonID string) ([]course.Asset, error) {
	var rows []assetRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM asset WHERE lesson_id = $1`, lessonID); err != nil {
		return nil, errors.Wrap(err, "querying assets")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	assets := make([]course.Asset, 0, len(rows))
	for _, row := range rows {
		assets = append(assets, row.unmarshal())
	}
	return assets, nil
}

func (repo courseRepository) GetLesson(ctx context.Context, id string) (course.Lesson, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	var row lessonRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM lesson WHERE id = $1`, id); err != nil {
		return course.Lesson{}, trapErr(err, course.ErrLessonNotFound, "finding lesson")
	}
	lsn := row.unmarshal()
	assets, err := repo.queryAssets(ctx, lsn.ID)
	if err != nil {
		return course.Lesson{}, err
	}
	lsn.Assets = assets
	return lsn, nil
}

func (repo courseRepository) GetLessonCourse(ctx context.Context, lessonID string) (course.Course, error) {
	if _, err := uuid.Parse(lessonID); err != nil {
		return course.Course{}, course.ErrLessonNotFound
	}
	var row courseRow
	q := `
SELECT c.* FROM course c
JOIN module m ON m.course_id = c.id
JOIN lesson l ON l.module_id = m.id
WHERE l.id = $1`
	if err := repo.db.GetContext(ctx, &row, q, lessonID); err != nil {
		return course.Course{}, trapErr(err, course.ErrLessonNotFound, "finding lesson's course")
	}
	return row.unmarshal(), nil
}

func (repo courseRepository) queryLessons(ctx context.Context, q string, args ...interface{}) ([]course.Lesson, error) {
	var rows []lessonRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	lessons := make([]course.Lesson, 0, len(rows))
	for _, row := range rows {
		lsn := row.unmarshal()
		assets, err := repo.queryAssets(ctx, lsn.ID)
		if err != nil {
			return nil, err
		}
		lsn.Assets = assets
		lessons = append(lessons, lsn)
	}
	return lessons, nil
}

func (repo courseRepository) QueryModuleLessons(ctx context.Context, moduleID string) ([]course.Lesson, error) {
	return repo.queryLessons(ctx, `SELECT * FROM lesson WHERE module_id = $1 ORDER BY position`, moduleID)
}

func (repo courseRepository) QueryCourseLessons(ctx context.Context, courseID string) ([]course.Lesson, error) {
	// the ordered completion path: modules by (week_number, created_at),
	// lessons by position within each module
	q := `
SELECT l.* FROM lesson l
JOIN module m ON m.id = l.module_id
WHERE m.course_id = $1
ORDER BY m.week_number, m.created_at, l.position`
	return repo.queryLessons(ctx, q, courseID)
}

func (repo courseRepository) UpdateLesson(ctx context.Context, lsn course.Lesson) (course.Lesson, error) {
	q := `UPDATE lesson SET position = $1, content = $2, updated_at = $3 WHERE id = $4`
	res, err := repo.db.ExecContext(ctx, q, lsn.Position,
		null.NewString(lsn.Content, lsn.Content != ""), lsn.UpdatedAt.UTC(), lsn.ID)
	if err != nil {
		return course.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	return lsn, nil
}

func (repo courseRepository) DeleteLesson(ctx context.Context, id string) error {
	// attached assets cascade away
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM lesson WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return nil
}

func (repo courseRepository) Enroll(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	// idempotent: enrolling twice leaves the original enrollment untouched
	q := `
INSERT INTO enrollment (student_id, course_id, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (student_id, course_id) DO NOTHING`
	if _, err := repo.db.ExecContext(ctx, q, enr.StudentID, enr.CourseID, enr.CreatedAt.UTC()); err != nil {
		return course.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo courseRepository) Unenroll(ctx context.Context, studentID, courseID string) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM enrollment WHERE student_id = $1 AND course_id = $2`, studentID, courseID); err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}

	// the student's progress for the course goes with the enrollment
	q := `
DELETE FROM progress_record
WHERE student_id = $1
  AND lesson_id IN (
    SELECT l.id FROM lesson l
    JOIN module m ON m.id = l.module_id
    WHERE m.course_id = $2)`
	if _, err = tx.ExecContext(ctx, q, studentID, courseID); err != nil {
		return errors.Wrap(err, "deleting progress records")
	}

	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (repo courseRepository) IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	var enrolled bool
	q := `SELECT EXISTS (SELECT 1 FROM enrollment WHERE student_id = $1 AND course_id = $2)`
	if err := repo.db.GetContext(ctx, &enrolled, q, studentID, courseID); err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	return enrolled, nil
}
