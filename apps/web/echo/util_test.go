package echoweb

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/answercheck/core"
	"github.com/trezcool/answercheck/core/session"
	gradingsvc "github.com/trezcool/answercheck/services/grading"
	dummysvc "github.com/trezcool/answercheck/services/grading/dummy"
	"github.com/trezcool/answercheck/storage/state"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type testApp struct {
	server   Server
	sessions *session.Store
	grading  gradingsvc.Service
}

func setup(t *testing.T) *testApp {
	conf := &core.Config{TestMode: true, SecretKey: "test-secret", AppName: "AnswerCheck"}

	grading := dummysvc.NewService(conf)
	sessions := session.NewStore(grading, state.NewFileStore(filepath.Join(t.TempDir(), "state"), conf.SecretKey))
	sessions.Bootstrap()

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     nopLogger{},
		Sessions:   sessions,
		Grading:    grading,
		Validate:   validate,
		Translator: translator,
	})
	return &testApp{server: server, sessions: sessions, grading: grading}
}

func (app *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) get(path string) *httptest.ResponseRecorder {
	return app.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (app *testApp) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return app.do(req)
}

type testFormFile struct {
	field, name, contents string
}

func (app *testApp) postMultipart(t *testing.T, path string, fields url.Values, files []testFormFile) *httptest.ResponseRecorder {
	body := new(bytes.Buffer)
	form := multipart.NewWriter(body)
	for field, values := range fields {
		for _, value := range values {
			if err := form.WriteField(field, value); err != nil {
				t.Fatalf("writing %s: %v", field, err)
			}
		}
	}
	for _, file := range files {
		part, err := form.CreateFormFile(file.field, file.name)
		if err != nil {
			t.Fatalf("creating %s part: %v", file.field, err)
		}
		if _, err := io.Copy(part, strings.NewReader(file.contents)); err != nil {
			t.Fatalf("copying %s: %v", file.field, err)
		}
	}
	if err := form.Close(); err != nil {
		t.Fatalf("closing form: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	return app.do(req)
}

// signIn registers a fresh account and leaves the app's session established.
func (app *testApp) signIn(t *testing.T) {
	rec := app.postForm("/signup", url.Values{
		"username": {"jane"},
		"email":    {"jane@test.cd"},
		"password": {"Password123"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("signup failed: code = %v; body = %s", rec.Code, rec.Body.String())
	}
}
