package tests

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/tests"
)

func Test_dashboardApi(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, env.Users, user.RoleAdmin, "Administration", "admin@academia.test")
	prof := testutil.CreateUser(t, env.Users, user.RoleProf, "CS", "prof@academia.test")
	profHR := testutil.CreateUser(t, env.Users, user.RoleProf, "HR", "prof.hr@academia.test")
	emp := testutil.CreateUser(t, env.Users, user.RoleEmployer, "CS", "emp@academia.test")
	testutil.CreateUser(t, env.Users, user.RoleEmployer, "CS", "pending@academia.test", testutil.Unapproved())
	testutil.CreateUser(t, env.Users, user.RoleEmployer, "IT", "gone@academia.test", testutil.Inactive())

	goCourse := testutil.CreateCourse(t, env.Courses, prof, "Go 101")
	testutil.CreateCourse(t, env.Courses, profHR, "Payroll")
	_, err := env.CourseSvc.AddMaterial(ctx, prof, goCourse.ID, course.Upload{
		FileName:    "slides.pdf",
		ContentType: "application/pdf",
		Content:     strings.NewReader("%PDF"),
	})
	require.NoError(t, err)

	forbidden := marchallObj(t, httpErr{Error: core.ErrForbidden.Error()})
	tests := []httpTest{
		{name: "admin: auth required", path: "/dashboard/admin", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "admin: admin required", path: "/dashboard/admin", token: env.getToken(t, prof), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "prof: prof required", path: "/dashboard/prof", token: env.getToken(t, emp), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "employer: employer required", path: "/dashboard/employer", token: env.getToken(t, admin), wantCode: http.StatusForbidden, wantData: forbidden},
	}
	runHTTPTests(t, env, tests)

	t.Run("admin", func(t *testing.T) {
		rec := env.do(newAuthRequest(http.MethodGet, "/dashboard/admin", env.getToken(t, admin)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got struct {
			Statistics   user.Stats               `json:"statistics"`
			PendingUsers []map[string]interface{} `json:"pending_users"`
		}
		decode(t, rec, &got)
		assert.Equal(t, user.Stats{
			Total:   6,
			Pending: 1,
			Active:  5,
			ByRole:  map[string]int{user.RoleAdmin: 1, user.RoleProf: 2, user.RoleEmployer: 3},
		}, got.Statistics)
		require.Len(t, got.PendingUsers, 1)
		assert.Equal(t, "pending@academia.test", got.PendingUsers[0]["email"])
	})

	t.Run("prof", func(t *testing.T) {
		rec := env.do(newAuthRequest(http.MethodGet, "/dashboard/prof", env.getToken(t, prof)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got struct {
			UserInfo map[string]string `json:"user_info"`
			Courses  []struct {
				Title     string `json:"title"`
				Materials []struct {
					FileName string `json:"file_name"`
					FileType string `json:"file_type"`
				} `json:"materials"`
			} `json:"courses"`
		}
		decode(t, rec, &got)
		assert.Equal(t, prof.Email, got.UserInfo["email"])
		assert.Equal(t, "CS", got.UserInfo["departement"])
		require.Len(t, got.Courses, 1)
		assert.Equal(t, "Go 101", got.Courses[0].Title)
		require.Len(t, got.Courses[0].Materials, 1)
		assert.Equal(t, "slides.pdf", got.Courses[0].Materials[0].FileName)
		assert.Equal(t, "application/pdf", got.Courses[0].Materials[0].FileType)
	})

	t.Run("employer", func(t *testing.T) {
		rec := env.do(newAuthRequest(http.MethodGet, "/dashboard/employer", env.getToken(t, emp)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got struct {
			UserInfo         map[string]string `json:"user_info"`
			AvailableCourses []struct {
				ID             int               `json:"id"`
				Title          string            `json:"title"`
				Instructor     map[string]string `json:"instructor"`
				MaterialsCount int               `json:"materials_count"`
			} `json:"available_courses"`
		}
		decode(t, rec, &got)
		assert.Equal(t, emp.Email, got.UserInfo["email"])
		require.Len(t, got.AvailableCourses, 1, "only the courses of its department")
		assert.Equal(t, goCourse.ID, got.AvailableCourses[0].ID)
		assert.Equal(t, map[string]string{"nom": prof.LastName, "prenom": prof.FirstName}, got.AvailableCourses[0].Instructor)
		assert.Equal(t, 1, got.AvailableCourses[0].MaterialsCount)
	})
}
