package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/progress"
	"github.com/trezcool/academia/core/user"
)

type userApi struct {
	svc         *user.Service
	progressSvc *progress.Service
	tokens      *TokenService
	validate    *validator.Validate
}

func registerUserAPI(app *echo.Echo, auth echo.MiddlewareFunc, deps Deps, tokens *TokenService) {
	api := userApi{
		svc:         deps.UserSvc,
		progressSvc: deps.ProgressSvc,
		tokens:      tokens,
		validate:    deps.Validate,
	}

	// un-authed endpoints
	app.POST("/register", api.register)
	app.POST("/token", api.token)

	// authed endpoints
	app.Group("/users", auth).GET("/me", api.me)

	ag := app.Group("/admin", auth, roleMiddleware(user.RoleAdmin))
	ag.GET("/pending-users", api.queryPending)
	ag.POST("/approve-user/:id", api.approve)
	ag.DELETE("/users/:id", api.destroy)
}

type (
	TokenRequest struct {
		Username string `json:"username" form:"username" validate:"required"`
		Password string `json:"password" form:"password" validate:"required"`
	}

	TokenResponse struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}

	ApprovalRequest struct {
		IsApproved *bool `json:"is_approved"`
	}
)

// Handlers

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

// token accepts the credentials as a form or as JSON. The username is the account email.
func (api *userApi) token(ctx echo.Context) error {
	var data TokenRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TokenRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := api.tokens.Generate(usr)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{AccessToken: token, TokenType: tokenType})
}

type (
	profile struct {
		LastName   string `json:"nom"`
		FirstName  string `json:"prenom"`
		Email      string `json:"email"`
		Phone      string `json:"telephone"`
		Department string `json:"departement"`
		Role       string `json:"fonction"`
	}

	profileStats struct {
		TotalCourses      int    `json:"total_cours_suivis"`
		CompletedCourses  int    `json:"cours_termines"`
		AverageProgress   string `json:"progression_moyenne"`
		AverageCompletion string `json:"temps_moyen_completion"`
	}

	profileCourse struct {
		CourseID     int    `json:"course_id"`
		Title        string `json:"nom_du_cours"`
		Progress     string `json:"progres"`
		StartDate    string `json:"date_debut"`
		EndDate      string `json:"date_fin"`
		LastAccessed string `json:"dernier_acces"`
		Status       string `json:"statut"`
		Duration     string `json:"duree"`
	}

	profileResponse struct {
		Profile    profile         `json:"profile"`
		Statistics profileStats    `json:"statistics"`
		Courses    []profileCourse `json:"courses"`
	}
)

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	stats, err := api.progressSvc.Stats(reqCtx, usr)
	if err != nil {
		return errors.Wrap(err, "computing progress stats")
	}
	enrollments, err := api.progressSvc.ListForUser(reqCtx, usr)
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}

	now := progress.NowFunc()
	courses := make([]profileCourse, 0, len(enrollments))
	for _, e := range enrollments {
		end := "En cours..."
		if e.CompletionDate != nil {
			end = e.CompletionDate.Format(dateLayout)
		}
		courses = append(courses, profileCourse{
			CourseID:     e.Course.ID,
			Title:        e.Course.Title,
			Progress:     formatPercent(e.Value),
			StartDate:    e.StartDate.Format(dateLayout),
			EndDate:      end,
			LastAccessed: e.LastAccessed.Format(dateTimeLayout),
			Status:       e.Status,
			Duration:     strconv.Itoa(e.Duration(now)) + " jours",
		})
	}

	return ctx.JSON(http.StatusOK, profileResponse{
		Profile: profile{
			LastName:   usr.LastName,
			FirstName:  usr.FirstName,
			Email:      usr.Email,
			Phone:      usr.Phone,
			Department: usr.Department,
			Role:       usr.Role,
		},
		Statistics: profileStats{
			TotalCourses:      stats.TotalCourses,
			CompletedCourses:  stats.CompletedCourses,
			AverageProgress:   formatPercent(stats.AverageProgress),
			AverageCompletion: formatDays(stats.AverageCompletionDays),
		},
		Courses: courses,
	})
}

type pendingUser struct {
	ID         int       `json:"id"`
	LastName   string    `json:"nom"`
	FirstName  string    `json:"prenom"`
	Email      string    `json:"email"`
	Department string    `json:"departement"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
}

func newPendingUsers(users []user.User) []pendingUser {
	pending := make([]pendingUser, 0, len(users))
	for _, usr := range users {
		pending = append(pending, pendingUser{
			ID:         usr.ID,
			LastName:   usr.LastName,
			FirstName:  usr.FirstName,
			Email:      usr.Email,
			Department: usr.Department,
			Role:       usr.Role,
			CreatedAt:  usr.CreatedAt,
		})
	}
	return pending
}

func (api *userApi) queryPending(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	users, err := api.svc.QueryPending(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "querying pending users")
	}
	return ctx.JSON(http.StatusOK, newPendingUsers(users))
}

func (api *userApi) approve(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data ApprovalRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ApprovalRequest")
	}
	if data.IsApproved == nil {
		return requiredFieldError("is_approved")
	}

	approved, err := api.svc.SetApproval(ctx.Request().Context(), usr, id, *data.IsApproved)
	if err != nil {
		return errors.Wrap(err, "setting approval")
	}
	return ctx.JSON(http.StatusOK, approved)
}

// destroy also deletes the courses, enrollments, notifications and messages of the user.
func (api *userApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), usr, id); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}
