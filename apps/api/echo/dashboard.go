package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
)

type dashboardApi struct {
	userSvc   *user.Service
	courseSvc *course.Service
}

func registerDashboardAPI(g *echo.Group, deps Deps) {
	api := dashboardApi{userSvc: deps.UserSvc, courseSvc: deps.CourseSvc}

	g.GET("/admin", api.admin, roleMiddleware(user.RoleAdmin))
	g.GET("/prof", api.prof, roleMiddleware(user.RoleProf))
	g.GET("/employer", api.employer, roleMiddleware(user.RoleEmployer))
}

type (
	userInfo struct {
		LastName   string `json:"nom"`
		FirstName  string `json:"prenom"`
		Email      string `json:"email"`
		Department string `json:"departement"`
	}

	adminDashboard struct {
		Statistics   user.Stats    `json:"statistics"`
		PendingUsers []pendingUser `json:"pending_users"`
	}

	profMaterial struct {
		ID         int       `json:"id"`
		FileName   string    `json:"file_name"`
		FileType   string    `json:"file_type"`
		UploadedAt time.Time `json:"uploaded_at"`
	}

	profCourse struct {
		ID          int            `json:"id"`
		Title       string         `json:"title"`
		Description string         `json:"description"`
		CreatedAt   time.Time      `json:"created_at"`
		Materials   []profMaterial `json:"materials"`
	}

	profDashboard struct {
		UserInfo userInfo     `json:"user_info"`
		Courses  []profCourse `json:"courses"`
	}

	instructorInfo struct {
		LastName  string `json:"nom"`
		FirstName string `json:"prenom"`
	}

	employerCourse struct {
		ID             int            `json:"id"`
		Title          string         `json:"title"`
		Description    string         `json:"description"`
		Instructor     instructorInfo `json:"instructor"`
		MaterialsCount int            `json:"materials_count"`
	}

	employerDashboard struct {
		UserInfo         userInfo         `json:"user_info"`
		AvailableCourses []employerCourse `json:"available_courses"`
	}
)

func newUserInfo(usr user.User) userInfo {
	return userInfo{LastName: usr.LastName, FirstName: usr.FirstName, Email: usr.Email, Department: usr.Department}
}

func (api *dashboardApi) admin(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	stats, err := api.userSvc.Stats(reqCtx, usr)
	if err != nil {
		return errors.Wrap(err, "computing user stats")
	}
	pending, err := api.userSvc.QueryPending(reqCtx, usr)
	if err != nil {
		return errors.Wrap(err, "querying pending users")
	}
	return ctx.JSON(http.StatusOK, adminDashboard{Statistics: stats, PendingUsers: newPendingUsers(pending)})
}

func (api *dashboardApi) prof(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	courses, err := api.courseSvc.ListByInstructor(reqCtx, usr)
	if err != nil {
		return errors.Wrap(err, "listing own courses")
	}
	resp := profDashboard{UserInfo: newUserInfo(usr), Courses: make([]profCourse, 0, len(courses))}
	for _, c := range courses {
		materials, err := api.courseSvc.ListMaterials(reqCtx, usr, c.ID)
		if err != nil {
			return errors.Wrapf(err, "listing materials of course %d", c.ID)
		}
		pc := profCourse{
			ID:          c.ID,
			Title:       c.Title,
			Description: c.Description,
			CreatedAt:   c.CreatedAt,
			Materials:   make([]profMaterial, 0, len(materials)),
		}
		for _, m := range materials {
			pc.Materials = append(pc.Materials, profMaterial{ID: m.ID, FileName: m.FileName, FileType: m.ContentType, UploadedAt: m.UploadedAt})
		}
		resp.Courses = append(resp.Courses, pc)
	}
	return ctx.JSON(http.StatusOK, resp)
}

// employer lists the courses visible to the employer, i.e. those of its department.
func (api *dashboardApi) employer(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	courses, err := api.courseSvc.ListVisible(reqCtx, usr)
	if err != nil {
		return errors.Wrap(err, "listing visible courses")
	}
	instructors := make(map[int]user.User)
	resp := employerDashboard{UserInfo: newUserInfo(usr), AvailableCourses: make([]employerCourse, 0, len(courses))}
	for _, c := range courses {
		instructor, ok := instructors[c.InstructorID]
		if !ok {
			if instructor, err = api.userSvc.GetByID(reqCtx, c.InstructorID); err != nil {
				return errors.Wrapf(err, "getting instructor %d", c.InstructorID)
			}
			instructors[c.InstructorID] = instructor
		}
		materials, err := api.courseSvc.ListMaterials(reqCtx, usr, c.ID)
		if err != nil {
			return errors.Wrapf(err, "listing materials of course %d", c.ID)
		}
		resp.AvailableCourses = append(resp.AvailableCourses, employerCourse{
			ID:             c.ID,
			Title:          c.Title,
			Description:    c.Description,
			Instructor:     instructorInfo{LastName: instructor.LastName, FirstName: instructor.FirstName},
			MaterialsCount: len(materials),
		})
	}
	return ctx.JSON(http.StatusOK, resp)
}
