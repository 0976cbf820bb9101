package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/media"
	"github.com/trezcool/darasa/core/user"
)

type teacherApi struct {
	userSvc   user.Service
	courseSvc *course.Service
	accessSvc *access.Service
}

func registerTeacherAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := teacherApi{
		userSvc:   opts.UserSvc,
		courseSvc: opts.CourseSvc,
		accessSvc: opts.AccessSvc,
	}

	tg := g.Group("/teacher", jwt, teacherMiddleware())

	cg := tg.Group("/courses")
	cg.GET("", api.queryCourses)
	cg.POST("", api.createCourse)
	cg.GET("/:id", api.retrieveCourse)
	cg.PUT("/:id", api.updateCourse)
	cg.DELETE("/:id", api.destroyCourse)
	cg.GET("/:id/modules", api.queryModules)
	cg.POST("/:id/modules", api.createModule)
	cg.POST("/:id/enrollments", api.enrollStudent)
	cg.DELETE("/:id/enrollments/:sid", api.unenrollStudent)

	mg := tg.Group("/modules/:id")
	mg.DELETE("", api.destroyModule)
	mg.GET("/lessons", api.queryLessons)
	mg.POST("/lessons", api.createLesson)

	lg := tg.Group("/lessons/:id")
	lg.GET("", api.retrieveLesson)
	lg.PUT("", api.updateLesson)
	lg.DELETE("", api.destroyLesson)
}

// checkCourseAccess runs the access rules for the course node and translates a
// denial into its HTTP error.
func (api *teacherApi) checkCourseAccess(ctx echo.Context, courseID string, mode access.Mode) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	dec, err := api.accessSvc.AuthorizeCourse(ctx.Request().Context(), usr, courseID, mode)
	if err != nil {
		return err
	}
	if !dec.Allowed {
		return denyError(dec)
	}
	return nil
}

func (api *teacherApi) checkLessonAccess(ctx echo.Context, lessonID string, mode access.Mode) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	dec, err := api.accessSvc.AuthorizeLesson(ctx.Request().Context(), usr, lessonID, mode)
	if err != nil {
		return err
	}
	if !dec.Allowed {
		return denyError(dec)
	}
	return nil
}

// Handlers

func (api *teacherApi) queryCourses(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var courses []course.Course
	if ctxUsr.IsAdmin() {
		courses, err = api.courseSvc.QueryAll(ctx.Request().Context())
	} else {
		courses, err = api.courseSvc.QueryByOwner(ctx.Request().Context(), ctxUsr.ID)
	}
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *teacherApi) createCourse(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	// teachers own what they create; admins may create on behalf of a teacher
	if data.OwnerID == "" || !ctxUsr.IsAdmin() {
		data.OwnerID = ctxUsr.ID
	}
	if err := data.Validate(core.Validate); err != nil {
		return err
	}

	crs, err := api.courseSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *teacherApi) retrieveCourse(ctx echo.Context) error {
	if err := api.checkCourseAccess(ctx, ctx.Param("id"), access.ModePreview); err != nil {
		return err
	}
	crs, err := api.courseSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *teacherApi) updateCourse(ctx echo.Context) error {
	if err := api.checkCourseAccess(ctx, ctx.Param("id"), access.ModeEdit); err != nil {
		return err
	}

	orig, err := api.courseSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(orig, core.Validate); err != nil {
		return err
	}

	crs, err := api.courseSvc.Update(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *teacherApi) destroyCourse(ctx echo.Context) error {
	if err := api.checkCourseAccess(ctx, ctx.Param("id"), access.ModeEdit); err != nil {
		return err
	}
	if err := api.courseSvc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *teacherApi) queryModules(ctx echo.Context) error {
	if err := api.checkCourseAccess(ctx, ctx.Param("id"), access.ModePreview); err != nil {
		return err
	}
	mods, err := api.courseSvc.QueryModules(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying modules")
	}
	if mods == nil {
		mods = []course.Module{}
	}
	return ctx.JSON(http.StatusOK, mods)
}

func (api *teacherApi) createModule(ctx echo.Context) error {
	if err := api.checkCourseAccess(ctx, ctx.Param("id"), access.ModeEdit); err != nil {
		return err
	}

	var data course.NewModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	data.CourseID = ctx.Param("id")
	if err := data.Validate(core.Validate); err != nil {
		return err
	}

	mod, err := api.courseSvc.AddModule(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating module")
	}
	return ctx.JSON(http.StatusCreated, mod)
}

func (api *teacherApi) destroyModule(ctx echo.Context) error {
	mod, err := api.getModule(ctx)
	if err != nil {
		return err
	}
	if err := api.checkCourseAccess(ctx, mod.CourseID, access.ModeEdit); err != nil {
		return err
	}
	if err := api.courseSvc.DeleteModule(ctx.Request().Context(), mod.ID); err != nil {
		return errors.Wrap(err, "deleting module")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *teacherApi) queryLessons(ctx echo.Context) error {
	mod, err := api.getModule(ctx)
	if err != nil {
		return err
	}
	if err := api.checkCourseAccess(ctx, mod.CourseID, access.ModePreview); err != nil {
		return err
	}
	lessons, err := api.courseSvc.QueryLessons(ctx.Request().Context(), mod.ID)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	if lessons == nil {
		lessons = []course.Lesson{}
	}
	for i := range lessons {
		normalizeLessonAssets(&lessons[i])
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *teacherApi) createLesson(ctx echo.Context) error {
	mod, err := api.getModule(ctx)
	if err != nil {
		return err
	}
	if err := api.checkCourseAccess(ctx, mod.CourseID, access.ModeEdit); err != nil {
		return err
	}

	var data course.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	data.ModuleID = mod.ID
	if err := data.Validate(core.Validate); err != nil {
		return err
	}

	lsn, err := api.courseSvc.AddLesson(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, lsn)
}

func (api *teacherApi) retrieveLesson(ctx echo.Context) error {
	if err := api.checkLessonAccess(ctx, ctx.Param("id"), access.ModePreview); err != nil {
		return err
	}
	lsn, err := api.courseSvc.GetLesson(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	normalizeLessonAssets(&lsn)
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *teacherApi) updateLesson(ctx echo.Context) error {
	if err := api.checkLessonAccess(ctx, ctx.Param("id"), access.ModeEdit); err != nil {
		return err
	}

	lsn, err := api.courseSvc.GetLesson(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data UpdateLessonRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLessonRequest")
	}
	if data.Position != nil {
		lsn.Position = *data.Position
	}
	if data.Content != "" {
		lsn.Content = core.CleanString(data.Content)
	}

	lsn, err = api.courseSvc.UpdateLesson(ctx.Request().Context(), lsn)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *teacherApi) destroyLesson(ctx echo.Context) error {
	if err := api.checkLessonAccess(ctx, ctx.Param("id"), access.ModeEdit); err != nil {
		return err
	}
	if err := api.courseSvc.DeleteLesson(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *teacherApi) enrollStudent(ctx echo.Context) error {
	if err := api.checkCourseAccess(ctx, ctx.Param("id"), access.ModeEdit); err != nil {
		return err
	}

	var data EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	if err := core.Validate.Struct(&data); err != nil {
		return err
	}

	// only students enroll
	student, err := api.userSvc.GetByID(ctx.Request().Context(), data.StudentID)
	if err != nil {
		return err
	}
	if !student.IsStudent() {
		return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "user is not a student"})
	}

	enr, err := api.courseSvc.Enroll(ctx.Request().Context(), student.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *teacherApi) unenrollStudent(ctx echo.Context) error {
	if err := api.checkCourseAccess(ctx, ctx.Param("id"), access.ModeEdit); err != nil {
		return err
	}
	if err := api.courseSvc.Unenroll(ctx.Request().Context(), ctx.Param("sid"), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *teacherApi) getModule(ctx echo.Context) (course.Module, error) {
	mod, err := api.courseSvc.GetModule(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return course.Module{}, err
	}
	return mod, nil
}

// normalizeLessonAssets rewrites attached asset URLs for forced download
// before they leave the API.
func normalizeLessonAssets(lsn *course.Lesson) {
	for i := range lsn.Assets {
		lsn.Assets[i].URL = media.NormalizeDownloadURL(lsn.Assets[i].URL)
	}
}

type (
	UpdateLessonRequest struct {
		Position *int   `json:"position"`
		Content  string `json:"content"`
	}

	EnrollRequest struct {
		StudentID string `json:"student_id" validate:"required"`
	}
)
