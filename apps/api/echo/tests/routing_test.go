package tests

import (
	"net/http"
	"testing"

	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/tests"
)

func Test_home_portalRedirect(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog", "ndog@test.cd", "", []string{user.RoleStudent}, false) // 😂

	tests := []struct {
		name         string
		token        string
		wantLocation string
	}{
		{name: "anonymous goes to login", wantLocation: "/v1/users/login"},
		{name: "garbage token goes to login", token: "lol.lol.lol", wantLocation: "/v1/users/login"},
		{name: "deactivated account goes to login", token: getToken(t, naughty), wantLocation: "/v1/users/login"},
		{name: "admin portal", token: getToken(t, admin), wantLocation: "/v1/users"},
		{name: "teacher portal", token: getToken(t, teacher), wantLocation: "/v1/teacher/courses"},
		{name: "student portal", token: getToken(t, student), wantLocation: "/v1/student/courses"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/", tt.token)
			app.ServeHTTP(rec, req)

			if rec.Code != http.StatusFound {
				t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusFound)
			}
			if loc := rec.Header().Get("Location"); loc != tt.wantLocation {
				t.Errorf("failed! Location = %s; want %s", loc, tt.wantLocation)
			}
		})
	}
}
