package echoweb

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/answercheck/core/evaluation"
)

// editorRegistry keeps at most one live Editor per assessment/candidate pair.
// A plain navigation replaces the pair's editor with a fresh one; only posted
// actions and their follow-up redirect reuse it.
type editorRegistry struct {
	mu      sync.Mutex
	svc     evaluation.Service
	editors map[string]*evaluation.Editor
}

func newEditorRegistry(svc evaluation.Service) *editorRegistry {
	return &editorRegistry{svc: svc, editors: make(map[string]*evaluation.Editor)}
}

func editorKey(assessmentID, candidateKey string) string {
	return assessmentID + "\x00" + candidateKey
}

func (r *editorRegistry) fresh(assessmentID, candidateKey string) *evaluation.Editor {
	ed := evaluation.NewEditor(r.svc, assessmentID, candidateKey)
	r.mu.Lock()
	r.editors[editorKey(assessmentID, candidateKey)] = ed
	r.mu.Unlock()
	return ed
}

func (r *editorRegistry) current(assessmentID, candidateKey string) (*evaluation.Editor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ed, ok := r.editors[editorKey(assessmentID, candidateKey)]
	return ed, ok
}

type evaluationPages struct {
	deps    ServerDeps
	editors *editorRegistry
}

func registerEvaluationPages(e *echo.Echo, guard echo.MiddlewareFunc, deps ServerDeps) {
	pages := evaluationPages{
		deps:    deps,
		editors: newEditorRegistry(deps.Grading),
	}

	g := e.Group("/assessment-view/:assessmentId/:candidateKey", guard)
	g.GET("", pages.view)
	g.POST("", pages.action)
}

type evaluationData struct {
	LoadFailed    bool
	LoadError     string
	ExamName      string
	CandidateKey  string
	Questions     []evaluation.Question
	Current       evaluation.Question
	TotalAwarded  float64
	TotalMarks    float64
	Saving        bool
	SaveError     string
	SaveSucceeded bool
	ActionPath    string
}

// view starts a marking session. A plain navigation always reloads from the
// grading service; the redirect after a posted action carries resume=1 to keep
// the in-flight editor and its unsaved edits.
func (p *evaluationPages) view(ctx echo.Context) error {
	assessmentID, candidateKey := ctx.Param("assessmentId"), ctx.Param("candidateKey")

	ed, ok := p.editors.current(assessmentID, candidateKey)
	if !ok || ctx.QueryParam("resume") == "" {
		ed = p.editors.fresh(assessmentID, candidateKey)
		if err := ed.Load(ctx.Request().Context()); err != nil {
			p.deps.Logger.Warn("loading evaluation failed", err)
		}
	}
	return p.render(ctx, ed)
}

// action applies one posted form action to the pair's live editor and
// redirects back to the page, so a refresh never replays the action.
func (p *evaluationPages) action(ctx echo.Context) error {
	assessmentID, candidateKey := ctx.Param("assessmentId"), ctx.Param("candidateKey")
	viewPath := "/assessment-view/" + url.PathEscape(assessmentID) + "/" + url.PathEscape(candidateKey)

	ed, ok := p.editors.current(assessmentID, candidateKey)
	if !ok {
		return ctx.Redirect(http.StatusSeeOther, viewPath)
	}

	switch ctx.FormValue("action") {
	case "select":
		ed.SelectQuestion(ctx.FormValue("question"))
	case "mark":
		ed.EditMarkRaw(ctx.FormValue("question"), ctx.FormValue("marks"))
	case "save":
		if err := ed.Save(ctx.Request().Context()); err != nil {
			p.deps.Logger.Warn("saving evaluation failed", err)
		}
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown action")
	}
	return ctx.Redirect(http.StatusSeeOther, viewPath+"?resume=1")
}

func (p *evaluationPages) render(ctx echo.Context, ed *evaluation.Editor) error {
	data := evaluationData{
		CandidateKey: ed.CandidateKey(),
		ActionPath: "/assessment-view/" + url.PathEscape(ed.AssessmentID()) +
			"/" + url.PathEscape(ed.CandidateKey()),
	}

	switch ed.State() {
	case evaluation.StateLoadFailed:
		data.LoadFailed = true
		data.LoadError = ed.LoadError()
	default:
		eval := ed.Evaluation()
		data.ExamName = eval.ExamName
		data.Questions = eval.Questions
		data.Current, _ = ed.Current()
		data.TotalAwarded = ed.TotalAwarded()
		data.TotalMarks = eval.TotalMarks
		data.Saving = ed.State() == evaluation.StateSaving
		data.SaveError = ed.SaveError()
		data.SaveSucceeded = ed.SaveSucceeded()
	}

	return ctx.Render(http.StatusOK, "assessment_view", page{
		Title:   "Assessment Review",
		Session: contextSession(ctx),
		Data:    data,
	})
}
