package gradingsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/trezcool/answercheck/core"
	"github.com/trezcool/answercheck/core/evaluation"
	"github.com/trezcool/answercheck/core/session"
)

// File is an upload handed to the grading service.
type File struct {
	Name   string
	Reader io.Reader
}

// StudentSheet pairs a candidate key with that student's answer sheet.
type StudentSheet struct {
	CandidateKey string
	File         File
}

// Service is the full client surface of the external grading service.
type Service interface {
	session.CredentialService
	evaluation.Service

	CreateAssessment(ctx context.Context, name string, questionPaper, answerSheet File) (string, error)
	ListAssessments(ctx context.Context) ([]evaluation.AssessmentSummary, error)
	GetAssessment(ctx context.Context, id string) (evaluation.AssessmentDetail, error)
	// UploadStudentAnswers returns the service's confirmation message.
	UploadStudentAnswers(ctx context.Context, assessmentID string, sheets []StudentSheet) (string, error)
}

type restService struct {
	baseURL string
	client  *http.Client
}

var _ Service = (*restService)(nil)

// NewService returns a client for the grading service at conf.GradingURL.
// Calls carry no timeout; they wait until the transport gives up.
func NewService(conf *core.Config) Service {
	return &restService{
		baseURL: conf.GradingURL,
		client:  &http.Client{},
	}
}

// Login exchanges credentials for a token. The service answers with a JSON
// body on success and failure alike, so the body is decoded on any status.
func (svc *restService) Login(ctx context.Context, email, password string) (session.Credentials, error) {
	return svc.postCredentials(ctx, "/login", email, password)
}

func (svc *restService) Signup(ctx context.Context, email, password string) (session.Credentials, error) {
	return svc.postCredentials(ctx, "/signup", email, password)
}

func (svc *restService) postCredentials(ctx context.Context, path, email, password string) (session.Credentials, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return session.Credentials{}, errors.Wrap(err, "encoding credentials")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return session.Credentials{}, errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := svc.client.Do(req)
	if err != nil {
		return session.Credentials{}, errors.Wrapf(err, "POST %s", path)
	}
	defer resp.Body.Close()

	var creds session.Credentials
	if err := json.NewDecoder(resp.Body).Decode(&creds); err != nil {
		return session.Credentials{}, errors.Wrapf(err, "decoding %s response", path)
	}
	return creds, nil
}

func (svc *restService) CreateAssessment(ctx context.Context, name string, questionPaper, answerSheet File) (string, error) {
	body := new(bytes.Buffer)
	form := multipart.NewWriter(body)
	if err := form.WriteField("assessmentName", name); err != nil {
		return "", errors.Wrap(err, "writing assessmentName")
	}
	if err := writeFile(form, "teacherQuestionPaper", questionPaper); err != nil {
		return "", err
	}
	if err := writeFile(form, "teacherAnswerSheet", answerSheet); err != nil {
		return "", err
	}
	if err := form.Close(); err != nil {
		return "", errors.Wrap(err, "closing form")
	}

	var out struct {
		AssessmentID string `json:"assessmentId"`
	}
	if err := svc.doMultipart(ctx, "/assessments", form.FormDataContentType(), body, &out); err != nil {
		return "", err
	}
	return out.AssessmentID, nil
}

func (svc *restService) ListAssessments(ctx context.Context) ([]evaluation.AssessmentSummary, error) {
	var summaries []evaluation.AssessmentSummary
	if err := svc.get(ctx, "/assessments", &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (svc *restService) GetAssessment(ctx context.Context, id string) (evaluation.AssessmentDetail, error) {
	var detail evaluation.AssessmentDetail
	err := svc.get(ctx, "/assessments/"+url.PathEscape(id), &detail)
	return detail, err
}

func (svc *restService) UploadStudentAnswers(ctx context.Context, assessmentID string, sheets []StudentSheet) (string, error) {
	body := new(bytes.Buffer)
	form := multipart.NewWriter(body)
	if err := form.WriteField("assessmentId", assessmentID); err != nil {
		return "", errors.Wrap(err, "writing assessmentId")
	}
	for _, sheet := range sheets {
		if err := writeFile(form, "answerFiles[]", sheet.File); err != nil {
			return "", err
		}
		if err := form.WriteField("candidateKeys[]", sheet.CandidateKey); err != nil {
			return "", errors.Wrap(err, "writing candidateKeys[]")
		}
	}
	if err := form.Close(); err != nil {
		return "", errors.Wrap(err, "closing form")
	}

	var out struct {
		Message string `json:"message"`
	}
	if err := svc.doMultipart(ctx, "/upload-student-answers", form.FormDataContentType(), body, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (svc *restService) GetEvaluation(ctx context.Context, assessmentID, candidateKey string) (evaluation.Evaluation, error) {
	var eval evaluation.Evaluation
	err := svc.get(ctx, evaluationPath(assessmentID, candidateKey), &eval)
	return eval, err
}

func (svc *restService) SaveEvaluation(ctx context.Context, assessmentID, candidateKey string, questions []evaluation.Question) (float64, error) {
	payload, err := json.Marshal(map[string]interface{}{"questions": questions})
	if err != nil {
		return 0, errors.Wrap(err, "encoding questions")
	}

	path := evaluationPath(assessmentID, candidateKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, svc.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := svc.client.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "PUT %s", path)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, path); err != nil {
		return 0, err
	}

	var out struct {
		TotalMarks float64 `json:"total_marks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, errors.Wrapf(err, "decoding %s response", path)
	}
	return out.TotalMarks, nil
}

func evaluationPath(assessmentID, candidateKey string) string {
	return fmt.Sprintf(
		"/api/assessments/%s/students/%s/evaluation",
		url.PathEscape(assessmentID), url.PathEscape(candidateKey),
	)
}

func (svc *restService) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, svc.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "building request")
	}

	resp, err := svc.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, path); err != nil {
		return err
	}
	return errors.Wrapf(json.NewDecoder(resp.Body).Decode(out), "decoding %s response", path)
}

func (svc *restService) doMultipart(ctx context.Context, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := svc.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "POST %s", path)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, path); err != nil {
		return err
	}
	return errors.Wrapf(json.NewDecoder(resp.Body).Decode(out), "decoding %s response", path)
}

func writeFile(form *multipart.Writer, field string, file File) error {
	part, err := form.CreateFormFile(field, file.Name)
	if err != nil {
		return errors.Wrapf(err, "creating %s part", field)
	}
	if _, err := io.Copy(part, file.Reader); err != nil {
		return errors.Wrapf(err, "copying %s contents", field)
	}
	return nil
}

// checkStatus maps a non-success response to an error, preferring the
// service's own error message when the body carries one.
func checkStatus(resp *http.Response, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusNotFound {
		return evaluation.ErrNotFound
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return errors.Errorf("%s: %s", path, body.Error)
	}
	return errors.Errorf("%s: unexpected status %d", path, resp.StatusCode)
}
