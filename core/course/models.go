package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/media"
)

// Gating controls whether students must complete lessons in order.
type Gating string

const (
	// GatingSequential blocks a lesson until every lesson before it is completed.
	GatingSequential Gating = "sequential"
	// GatingOpen lets enrolled students consume any lesson regardless of ordering.
	GatingOpen Gating = "open"
)

func (g Gating) Valid() bool {
	return g == GatingSequential || g == GatingOpen
}

type Course struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	OwnerID   string    `json:"owner_id"` // owning teacher's User.ID
	Gating    Gating    `json:"gating"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Module belongs to one Course; ordered by WeekNumber, ties broken by creation order.
type Module struct {
	ID         string    `json:"id"`
	CourseID   string    `json:"course_id"`
	WeekNumber int       `json:"week_number"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

// Lesson belongs to one Module; ordered by Position within the module.
type Lesson struct {
	ID        string    `json:"id"`
	ModuleID  string    `json:"module_id"`
	Position  int       `json:"position"`
	Content   string    `json:"content"`
	Assets    []Asset   `json:"assets"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Asset is an uploaded file attached to a Lesson; it follows the lesson's lifecycle.
type Asset struct {
	ID           string             `json:"id"`
	LessonID     string             `json:"lesson_id"`
	URL          string             `json:"url"`
	ResourceKind media.ResourceKind `json:"resource_kind"`
	UploadPreset string             `json:"upload_preset"`
}

// Enrollment establishes that a student may consume (not edit) a course.
type Enrollment struct {
	StudentID string    `json:"student_id"`
	CourseID  string    `json:"course_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title   string `json:"title" validate:"required"`
	OwnerID string `json:"owner_id" validate:"required"`
	Gating  Gating `json:"gating" validate:"omitempty,gating"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	if nc.Gating == "" {
		// stricter policy until a course is explicitly opened up
		nc.Gating = GatingSequential
	}
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Title  string `json:"title"`
	Gating Gating `json:"gating" validate:"omitempty,gating"`
}

func (uc *UpdateCourse) Validate(orig Course, validate *validator.Validate) error {
	if title := core.CleanString(uc.Title); title != "" {
		uc.Title = title
	} else {
		uc.Title = orig.Title
	}
	if uc.Gating == "" {
		uc.Gating = orig.Gating
	}
	return validate.Struct(uc)
}

// NewModule contains information needed to create a new Module.
type NewModule struct {
	CourseID   string `json:"course_id" validate:"required"`
	WeekNumber int    `json:"week_number" validate:"min=0"`
}

func (nm *NewModule) Validate(validate *validator.Validate) error {
	return validate.Struct(nm)
}

// NewLesson contains information needed to create a new Lesson.
type NewLesson struct {
	ModuleID string     `json:"module_id" validate:"required"`
	Position int        `json:"position" validate:"min=0"`
	Content  string     `json:"content"`
	Assets   []NewAsset `json:"assets" validate:"omitempty,dive"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Content = core.CleanString(nl.Content)
	return validate.Struct(nl)
}

// NewAsset describes an uploaded file to attach to a Lesson.
type NewAsset struct {
	URL          string             `json:"url" validate:"required,url"`
	ResourceKind media.ResourceKind `json:"resource_kind" validate:"required,resourcekind"`
}
