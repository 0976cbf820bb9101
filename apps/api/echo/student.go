package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/progress"
	"github.com/trezcool/darasa/core/user"
)

type studentApi struct {
	userSvc     user.Service
	courseSvc   *course.Service
	progressSvc *progress.Service
	accessSvc   *access.Service
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := studentApi{
		userSvc:     opts.UserSvc,
		courseSvc:   opts.CourseSvc,
		progressSvc: opts.ProgressSvc,
		accessSvc:   opts.AccessSvc,
	}

	sg := g.Group("/student", jwt, studentMiddleware())
	sg.GET("/courses", api.queryCourses)
	sg.GET("/courses/:id", api.courseOutline)
	sg.GET("/lessons/:id", api.openLesson)
	sg.POST("/lessons/:id/complete", api.completeLesson)
}

// Handlers

func (api *studentApi) queryCourses(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var courses []course.Course
	if ctxUsr.IsAdmin() {
		courses, err = api.courseSvc.QueryAll(ctx.Request().Context())
	} else {
		courses, err = api.courseSvc.QueryByStudent(ctx.Request().Context(), ctxUsr.ID)
	}
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

// courseOutline returns the course with the student's state for every lesson
// on the completion path and their overall completion fraction.
func (api *studentApi) courseOutline(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.courseSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	if !ctxUsr.IsAdmin() {
		enrolled, err := api.courseSvc.IsEnrolled(ctx.Request().Context(), ctxUsr.ID, crs.ID)
		if err != nil {
			return errors.Wrap(err, "checking enrollment")
		}
		if !enrolled {
			return denyError(access.Deny(access.DenyNotEnrolled))
		}
	}

	lessons, err := api.courseSvc.OrderedLessons(ctx.Request().Context(), crs.ID)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	states, err := api.progressSvc.LessonStates(ctx.Request().Context(), ctxUsr.ID, crs.ID)
	if err != nil {
		return errors.Wrap(err, "querying lesson states")
	}
	completion, err := api.progressSvc.CourseCompletion(ctx.Request().Context(), ctxUsr.ID, crs.ID)
	if err != nil {
		return errors.Wrap(err, "computing completion")
	}

	outline := make([]OutlineEntry, 0, len(lessons))
	for i, lsn := range lessons {
		normalizeLessonAssets(&lsn)
		entry := OutlineEntry{Lesson: lsn, State: progress.StateNotStarted}
		if i < len(states) {
			entry.State = states[i].State
		}
		outline = append(outline, entry)
	}

	return ctx.JSON(http.StatusOK, CourseOutlineResponse{
		Course:     crs,
		Lessons:    outline,
		Completion: completion,
	})
}

// openLesson serves a lesson for consumption. Opening it moves the student's
// progress to InProgress; revisits never regress it.
func (api *studentApi) openLesson(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	dec, err := api.accessSvc.AuthorizeLesson(ctx.Request().Context(), ctxUsr, ctx.Param("id"), access.ModeConsume)
	if err != nil {
		return err
	}
	if !dec.Allowed {
		return denyError(dec)
	}

	lsn, err := api.courseSvc.GetLesson(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	normalizeLessonAssets(&lsn)

	rec := progress.Record{StudentID: ctxUsr.ID, LessonID: lsn.ID, State: progress.StateNotStarted}
	if ctxUsr.IsStudent() {
		rec, err = api.progressSvc.MarkEntered(ctx.Request().Context(), ctxUsr.ID, lsn.ID)
		if err != nil {
			return errors.Wrap(err, "recording lesson entry")
		}
	}

	return ctx.JSON(http.StatusOK, LessonViewResponse{Lesson: lsn, State: rec.State})
}

func (api *studentApi) completeLesson(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	dec, err := api.accessSvc.AuthorizeLesson(ctx.Request().Context(), ctxUsr, ctx.Param("id"), access.ModeConsume)
	if err != nil {
		return err
	}
	if !dec.Allowed {
		return denyError(dec)
	}

	rec, err := api.progressSvc.MarkCompleted(ctx.Request().Context(), ctxUsr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "recording lesson completion")
	}
	return ctx.JSON(http.StatusOK, rec)
}

type (
	OutlineEntry struct {
		Lesson course.Lesson  `json:"lesson"`
		State  progress.State `json:"state"`
	}

	CourseOutlineResponse struct {
		Course     course.Course  `json:"course"`
		Lessons    []OutlineEntry `json:"lessons"`
		Completion float64        `json:"completion"`
	}

	LessonViewResponse struct {
		Lesson course.Lesson  `json:"lesson"`
		State  progress.State `json:"state"`
	}
)
