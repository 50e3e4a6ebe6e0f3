package echoweb

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/answercheck/core"
	"github.com/trezcool/answercheck/core/evaluation"
	gradingsvc "github.com/trezcool/answercheck/services/grading"
)

type CreateAssessmentRequest struct {
	Name string `json:"assessmentName" form:"assessmentName" validate:"required"`
}

func (car *CreateAssessmentRequest) Validate(validate *validator.Validate) error {
	car.Name = core.CleanString(car.Name)
	return validate.Struct(car)
}

type assessmentPages struct {
	deps ServerDeps
}

func registerAssessmentPages(e *echo.Echo, guard echo.MiddlewareFunc, deps ServerDeps) {
	pages := assessmentPages{deps: deps}

	g := e.Group("", guard)
	g.GET("/dashboard", pages.dashboard)
	g.POST("/assessments", pages.create)
	g.GET("/upload-student-answers/:assessmentId", pages.uploadForm)
	g.POST("/upload-student-answers/:assessmentId", pages.upload)
	g.GET("/student-results/:assessmentId", pages.results)
}

type dashboardData struct {
	Name        string
	Assessments []evaluation.AssessmentSummary
}

func (p *assessmentPages) dashboard(ctx echo.Context) error {
	summaries, err := p.deps.Grading.ListAssessments(ctx.Request().Context())
	if err != nil {
		p.deps.Logger.Error("listing assessments failed", err)
		return ctx.Render(http.StatusOK, "dashboard", page{
			Title:   "Dashboard",
			Session: contextSession(ctx),
			Error:   "Failed to fetch assessments.",
			Data:    dashboardData{},
		})
	}
	return ctx.Render(http.StatusOK, "dashboard", page{
		Title:   "Dashboard",
		Session: contextSession(ctx),
		Data:    dashboardData{Assessments: summaries},
	})
}

func (p *assessmentPages) create(ctx echo.Context) error {
	data := new(CreateAssessmentRequest)
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding to CreateAssessmentRequest")
	}
	if err := data.Validate(p.deps.Validate); err != nil {
		if vErrs, ok := err.(validator.ValidationErrors); ok {
			return p.renderCreateError(ctx, data, "", translateFieldErrors(p.deps.Translator, vErrs))
		}
		return errors.Wrap(err, "validating CreateAssessmentRequest")
	}

	questionPaper, qpClose, err := formFile(ctx, "teacherQuestionPaper")
	if err != nil {
		return p.renderCreateError(ctx, data, "A question paper file is required.", nil)
	}
	defer qpClose()
	answerSheet, asClose, err := formFile(ctx, "teacherAnswerSheet")
	if err != nil {
		return p.renderCreateError(ctx, data, "An answer sheet file is required.", nil)
	}
	defer asClose()

	id, err := p.deps.Grading.CreateAssessment(ctx.Request().Context(), data.Name, questionPaper, answerSheet)
	if err != nil {
		p.deps.Logger.Error("creating assessment failed", err)
		return p.renderCreateError(ctx, data, "Failed to create assessment.", nil)
	}
	return ctx.Redirect(http.StatusSeeOther, "/upload-student-answers/"+id)
}

func (p *assessmentPages) renderCreateError(ctx echo.Context, data *CreateAssessmentRequest, errMsg string, fldErrs map[string]string) error {
	summaries, _ := p.deps.Grading.ListAssessments(ctx.Request().Context())
	return ctx.Render(http.StatusBadRequest, "dashboard", page{
		Title:       "Dashboard",
		Session:     contextSession(ctx),
		Error:       errMsg,
		FieldErrors: fldErrs,
		Data:        dashboardData{Name: data.Name, Assessments: summaries},
	})
}

type uploadData struct {
	AssessmentID string
	Rows         []int
	MoreRows     int
	FewerRows    int // 0 hides the remove link; at least one row stays
}

func (p *assessmentPages) uploadForm(ctx echo.Context) error {
	rows, err := strconv.Atoi(ctx.QueryParam("rows"))
	if err != nil || rows < 1 {
		rows = 1
	}

	data := uploadData{
		AssessmentID: ctx.Param("assessmentId"),
		MoreRows:     rows + 1,
		FewerRows:    rows - 1,
	}
	for i := 1; i <= rows; i++ {
		data.Rows = append(data.Rows, i)
	}
	return ctx.Render(http.StatusOK, "upload_students", page{
		Title:   "Upload Student Answers",
		Session: contextSession(ctx),
		Data:    data,
	})
}

func (p *assessmentPages) upload(ctx echo.Context) error {
	assessmentID := ctx.Param("assessmentId")

	form, err := ctx.MultipartForm()
	if err != nil {
		return errors.Wrap(err, "parsing multipart form")
	}
	keys := form.Value["candidateKeys[]"]
	files := form.File["answerFiles[]"]
	if len(keys) == 0 || len(keys) != len(files) {
		return p.renderUploadError(ctx, assessmentID, "Each answer sheet needs a candidate key.")
	}

	sheets := make([]gradingsvc.StudentSheet, 0, len(keys))
	closers := make([]func(), 0, len(keys))
	defer func() {
		for _, closeFn := range closers {
			closeFn()
		}
	}()
	for i, hdr := range files {
		key := core.CleanString(keys[i])
		if key == "" {
			return p.renderUploadError(ctx, assessmentID, "Each answer sheet needs a candidate key.")
		}
		f, err := hdr.Open()
		if err != nil {
			return errors.Wrapf(err, "opening %s", hdr.Filename)
		}
		closers = append(closers, func() { _ = f.Close() })
		sheets = append(sheets, gradingsvc.StudentSheet{
			CandidateKey: key,
			File:         gradingsvc.File{Name: hdr.Filename, Reader: f},
		})
	}

	msg, err := p.deps.Grading.UploadStudentAnswers(ctx.Request().Context(), assessmentID, sheets)
	if err != nil {
		p.deps.Logger.Error("uploading student answers failed", err)
		return p.renderUploadError(ctx, assessmentID, "Failed to upload student answer sheets.")
	}
	return ctx.Render(http.StatusOK, "upload_done", page{
		Title:   "Upload Complete",
		Session: contextSession(ctx),
		Data: struct {
			AssessmentID string
			Message      string
		}{assessmentID, msg},
	})
}

func (p *assessmentPages) renderUploadError(ctx echo.Context, assessmentID, errMsg string) error {
	return ctx.Render(http.StatusBadRequest, "upload_students", page{
		Title:   "Upload Student Answers",
		Session: contextSession(ctx),
		Error:   errMsg,
		Data:    uploadData{AssessmentID: assessmentID, Rows: []int{1}, MoreRows: 2},
	})
}

func (p *assessmentPages) results(ctx echo.Context) error {
	detail, err := p.deps.Grading.GetAssessment(ctx.Request().Context(), ctx.Param("assessmentId"))
	if err != nil {
		if errors.Cause(err) == evaluation.ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "assessment not found")
		}
		return errors.Wrap(err, "fetching assessment")
	}
	return ctx.Render(http.StatusOK, "student_results", page{
		Title:   detail.Name + " - Results",
		Session: contextSession(ctx),
		Data:    detail,
	})
}

// formFile opens a required upload field, returning the open file and its
// closer.
func formFile(ctx echo.Context, field string) (gradingsvc.File, func(), error) {
	hdr, err := ctx.FormFile(field)
	if err != nil {
		return gradingsvc.File{}, nil, errors.Wrapf(err, "reading %s", field)
	}
	f, err := hdr.Open()
	if err != nil {
		return gradingsvc.File{}, nil, errors.Wrapf(err, "opening %s", field)
	}
	return gradingsvc.File{Name: hdr.Filename, Reader: f}, func() { _ = f.Close() }, nil
}
