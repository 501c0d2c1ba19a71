package echoapi

import (
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/progress"
)

type courseApi struct {
	svc         *course.Service
	progressSvc *progress.Service
}

func registerCourseAPI(g *echo.Group, deps Deps) {
	api := courseApi{svc: deps.CourseSvc, progressSvc: deps.ProgressSvc}

	g.GET("", api.query)
	g.POST("", api.create)

	dg := g.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)

	dg.GET("/materials", api.queryMaterials)
	dg.POST("/materials", api.uploadMaterial)
	dg.GET("/materials/:mid/file", api.downloadMaterial)
	dg.DELETE("/materials/:mid", api.destroyMaterial)

	dg.POST("/enroll", api.enroll)
	dg.GET("/progress", api.retrieveProgress)
	dg.PUT("/progress", api.updateProgress)
	dg.PUT("/complete", api.complete)
}

// Courses

func (api *courseApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	courses, err := api.svc.List(ctx.Request().Context(), usr, page)
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data course.NewCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	c, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	c, err := api.svc.Get(ctx.Request().Context(), usr, id)
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data course.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	c, err := api.svc.Update(ctx.Request().Context(), usr, id, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), usr, id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Course deleted successfully"})
}

// Materials

func (api *courseApi) queryMaterials(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	materials, err := api.svc.ListMaterials(ctx.Request().Context(), usr, id)
	if err != nil {
		return errors.Wrap(err, "listing materials")
	}
	return ctx.JSON(http.StatusOK, materials)
}

// formFile opens the optional multipart file `name`. The returned file is nil when absent.
func formFile(ctx echo.Context, name string) (*multipart.FileHeader, multipart.File, error) {
	fh, err := ctx.FormFile(name)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil, nil
		}
		return nil, nil, errors.Wrap(err, "reading multipart form")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening form file")
	}
	return fh, f, nil
}

func (api *courseApi) uploadMaterial(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	fh, f, err := formFile(ctx, "file")
	if err != nil {
		return err
	}
	if f == nil {
		return requiredFieldError("file")
	}
	defer f.Close()

	m, err := api.svc.AddMaterial(ctx.Request().Context(), usr, id, course.Upload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Content:     f,
	})
	if err != nil {
		return errors.Wrap(err, "adding material")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *courseApi) downloadMaterial(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	mid, err := pathID(ctx, "mid")
	if err != nil {
		return err
	}

	m, rc, err := api.svc.OpenMaterial(ctx.Request().Context(), usr, id, mid)
	if err != nil {
		return errors.Wrap(err, "opening material")
	}
	defer rc.Close()

	ct := m.ContentType
	if ct == "" {
		ct = echo.MIMEOctetStream
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename*=UTF-8''`+url.PathEscape(m.FileName))
	return ctx.Stream(http.StatusOK, ct, rc)
}

func (api *courseApi) destroyMaterial(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	mid, err := pathID(ctx, "mid")
	if err != nil {
		return err
	}
	if err = api.svc.DeleteMaterial(ctx.Request().Context(), usr, id, mid); err != nil {
		return errors.Wrap(err, "deleting material")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Course material deleted successfully"})
}

// Progress

type (
	enrollmentDetails struct {
		CourseTitle    string `json:"course_title"`
		EnrollmentDate string `json:"enrollment_date"`
		Status         string `json:"status"`
	}

	enrollResponse struct {
		Message string            `json:"message"`
		Details enrollmentDetails `json:"enrollment_details"`
	}

	progressDetails struct {
		Title          string  `json:"title"`
		EnrollmentDate string  `json:"enrollment_date"`
		LastAccessed   string  `json:"last_accessed"`
		CompletionDate *string `json:"completion_date"`
		Progress       string  `json:"progress"`
		Status         string  `json:"status"`
		Duration       string  `json:"duration"`
	}

	progressResponse struct {
		Details progressDetails `json:"course_details"`
	}

	progressUpdateResponse struct {
		CourseTitle     string `json:"course_title"`
		CurrentProgress string `json:"current_progress"`
		Status          string `json:"status"`
		LastUpdated     string `json:"last_updated"`
	}

	completionDetails struct {
		CourseTitle    string `json:"course_title"`
		CompletionDate string `json:"completion_date"`
		TotalDuration  string `json:"total_duration"`
	}

	completionResponse struct {
		Message string            `json:"message"`
		Details completionDetails `json:"completion_details"`
	}

	ProgressRequest struct {
		ProgressValue *float64 `json:"progress_value"`
	}
)

func days(n int) string {
	return strconv.Itoa(n) + " jours"
}

func (api *courseApi) enroll(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	if _, err = api.progressSvc.Enroll(reqCtx, usr, id); err != nil {
		return errors.Wrap(err, "enrolling")
	}
	e, err := api.progressSvc.Enrollment(reqCtx, usr, id)
	if err != nil {
		return errors.Wrap(err, "getting enrollment")
	}
	return ctx.JSON(http.StatusCreated, enrollResponse{
		Message: "Successfully enrolled in course",
		Details: enrollmentDetails{
			CourseTitle:    e.Course.Title,
			EnrollmentDate: e.StartDate.Format(dateLayout),
			Status:         e.Status,
		},
	})
}

func (api *courseApi) retrieveProgress(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	e, err := api.progressSvc.Enrollment(ctx.Request().Context(), usr, id)
	if err != nil {
		return errors.Wrap(err, "getting enrollment")
	}
	return ctx.JSON(http.StatusOK, progressResponse{Details: progressDetails{
		Title:          e.Course.Title,
		EnrollmentDate: e.StartDate.Format(dateLayout),
		LastAccessed:   e.LastAccessed.Format(dateTimeLayout),
		CompletionDate: formatDate(e.CompletionDate),
		Progress:       formatPercent(e.Value),
		Status:         e.Status,
		Duration:       days(e.Duration(progress.NowFunc())),
	}})
}

// bindProgressValue reads `progress_value` from the query, or else from the JSON body.
func bindProgressValue(ctx echo.Context) (float64, error) {
	if raw := ctx.QueryParam("progress_value"); raw != "" {
		var v float64
		err := echo.QueryParamsBinder(ctx).Float64("progress_value", &v).BindError()
		return v, err
	}

	var data ProgressRequest
	if err := ctx.Bind(&data); err != nil {
		return 0, errors.Wrap(err, "binding to ProgressRequest")
	}
	if data.ProgressValue == nil {
		return 0, requiredFieldError("progress_value")
	}
	return *data.ProgressValue, nil
}

func (api *courseApi) updateProgress(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	value, err := bindProgressValue(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	if _, err = api.progressSvc.Update(reqCtx, usr, id, value); err != nil {
		return errors.Wrap(err, "updating progress")
	}
	e, err := api.progressSvc.Enrollment(reqCtx, usr, id)
	if err != nil {
		return errors.Wrap(err, "getting enrollment")
	}
	return ctx.JSON(http.StatusOK, progressUpdateResponse{
		CourseTitle:     e.Course.Title,
		CurrentProgress: formatPercent(e.Value),
		Status:          e.Status,
		LastUpdated:     e.LastAccessed.Format(dateTimeLayout),
	})
}

func (api *courseApi) complete(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	if _, err = api.progressSvc.MarkCompleted(reqCtx, usr, id); err != nil {
		return errors.Wrap(err, "marking course completed")
	}
	e, err := api.progressSvc.Enrollment(reqCtx, usr, id)
	if err != nil {
		return errors.Wrap(err, "getting enrollment")
	}
	return ctx.JSON(http.StatusOK, completionResponse{
		Message: "Course marked as completed",
		Details: completionDetails{
			CourseTitle:    e.Course.Title,
			CompletionDate: e.CompletionDate.Format(dateLayout),
			TotalDuration:  days(e.Duration(*e.CompletionDate)),
		},
	})
}
