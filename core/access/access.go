package access

import (
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/progress"
	"github.com/trezcool/darasa/core/user"
)

// Mode is the way a principal wants to use a content node.
type Mode string

const (
	ModeEdit    Mode = "edit"
	ModePreview Mode = "preview"
	ModeConsume Mode = "consume"
)

// DenyReason explains a denied Decision.
type DenyReason string

const (
	DenyNotOwner         DenyReason = "not_owner"
	DenyInsufficientRole DenyReason = "insufficient_role"
	DenyNotEnrolled      DenyReason = "not_enrolled"
	// DenyUngated: the lesson lies after an incomplete lesson on the ordered
	// completion path of a sequentially gated course.
	DenyUngated DenyReason = "ungated"
)

type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  DenyReason `json:"reason,omitempty"`
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// Target is a resolved content node: its root Course, plus the Lesson when
// the node is one.
type Target struct {
	Course course.Course
	Lesson *course.Lesson
}

// Snapshot is the per-request student state the gating rules read. Supplied
// by the caller on every call: enrollment and ownership can change between
// requests, so decisions are never cached.
type Snapshot struct {
	Enrolled bool
	// Path holds the student's progress for every lesson of the course in
	// completion-path order.
	Path []progress.Record
}

// Authorize decides whether principal may use the target node in the given
// mode. Pure function over the supplied state; no side effects. Rules are
// evaluated in order, first match wins.
func Authorize(principal user.User, t Target, mode Mode, snap Snapshot) Decision {
	// 1. admins can do anything, anywhere
	if principal.IsAdmin() {
		return Allow()
	}

	// 2. teachers edit and preview their own courses only
	if principal.IsTeacher() && (mode == ModeEdit || mode == ModePreview) {
		if t.Course.OwnerID == principal.ID {
			return Allow()
		}
		return Deny(DenyNotOwner)
	}

	// 3. students consume lessons of courses they are enrolled in, subject
	// to the course's gating policy
	if principal.IsStudent() && mode == ModeConsume && t.Lesson != nil {
		if !snap.Enrolled {
			return Deny(DenyNotEnrolled)
		}
		if t.Course.Gating == course.GatingOpen {
			return Allow()
		}
		if reachable(t.Lesson.ID, snap.Path) {
			return Allow()
		}
		return Deny(DenyUngated)
	}

	// 4. anything else (e.g. a student requesting edit)
	return Deny(DenyInsufficientRole)
}

// reachable reports whether the lesson's position on the ordered completion
// path is at or before the first not-completed lesson. A student may revisit
// completed lessons and open the frontier lesson, never anything past it.
func reachable(lessonID string, path []progress.Record) bool {
	for _, rec := range path {
		if rec.LessonID == lessonID {
			return true
		}
		if rec.State != progress.StateCompleted {
			// frontier passed without finding the lesson
			return false
		}
	}
	// lesson not on the path; nothing to gate against
	return false
}
