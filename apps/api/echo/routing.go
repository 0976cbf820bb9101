package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/core/user"
)

const (
	adminLanding   = "/v1/users"
	teacherLanding = "/v1/teacher/courses"
	studentLanding = "/v1/student/courses"
	loginLanding   = "/v1/users/login"
)

// landingPath maps the principal's claims to their portal. Pure function:
// same claims, same destination. The highest role wins when a user holds
// several.
func landingPath(claims Claims) string {
	switch {
	case claims.IsAdmin:
		return adminLanding
	case claims.IsTeacher:
		return teacherLanding
	case claims.IsStudent:
		return studentLanding
	default:
		return loginLanding
	}
}

// home redirects authenticated users to their portal; everyone else goes to
// the login page. Auth is optional here so the JWT middleware does not guard
// this route.
func home(svc user.Service) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(auth, "Bearer ") {
			return ctx.Redirect(http.StatusFound, loginLanding)
		}

		claims, err := parseTokenClaims(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			return ctx.Redirect(http.StatusFound, loginLanding)
		}

		// a deactivated account holds a valid token until it expires; send it
		// back to login
		if usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject); err != nil || !usr.Active() {
			return ctx.Redirect(http.StatusFound, loginLanding)
		}

		return ctx.Redirect(http.StatusFound, landingPath(claims))
	}
}
