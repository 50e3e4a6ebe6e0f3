package dummysvc

import (
	"context"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/answercheck/core"
	"github.com/trezcool/answercheck/core/evaluation"
	"github.com/trezcool/answercheck/core/session"
	gradingsvc "github.com/trezcool/answercheck/services/grading"
)

// questionTemplate is the mock paper every dummy assessment gets; the real
// service derives questions from the uploaded question paper.
var questionTemplate = []evaluation.Question{
	{Number: "1", MaxMarks: 10},
	{Number: "2", MaxMarks: 5},
	{Number: "3", MaxMarks: 10},
	{Number: "4", MaxMarks: 5},
}

type account struct {
	id           string
	passwordHash []byte
}

type submission struct {
	questions  []evaluation.Question
	totalMarks float64
}

type assessment struct {
	name        string
	createdAt   time.Time
	submissions map[string]*submission // by candidate key
	order       []string
}

// service is an in-memory stand-in for the external grading service, used in
// debug mode and in tests. It issues real signed tokens and hashes passwords
// the way the actual backend does, but grades with canned marks.
type service struct {
	mu          sync.Mutex
	secretKey   []byte
	accounts    map[string]*account // by email
	assessments map[string]*assessment
	order       []string
}

var _ gradingsvc.Service = (*service)(nil)

func NewService(conf *core.Config) gradingsvc.Service {
	return &service{
		secretKey:   []byte(conf.SecretKey),
		accounts:    make(map[string]*account),
		assessments: make(map[string]*assessment),
	}
}

func (svc *service) Login(_ context.Context, email, password string) (session.Credentials, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	acct, ok := svc.accounts[email]
	if !ok {
		return session.Credentials{Error: "Invalid credentials"}, nil
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)); err != nil {
		return session.Credentials{Error: "Invalid credentials"}, nil
	}
	return svc.issueCredentials(email, acct)
}

func (svc *service) Signup(_ context.Context, email, password string) (session.Credentials, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if _, exists := svc.accounts[email]; exists {
		return session.Credentials{Error: "User already exists"}, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return session.Credentials{}, err
	}
	acct := &account{id: uuid.New().String(), passwordHash: hash}
	svc.accounts[email] = acct
	return svc.issueCredentials(email, acct)
}

func (svc *service) issueCredentials(email string, acct *account) (session.Credentials, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Issuer:    "AnswerCheck",
		Subject:   email,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(7 * 24 * time.Hour).Unix(),
	})
	signed, err := token.SignedString(svc.secretKey)
	if err != nil {
		return session.Credentials{}, err
	}
	return session.Credentials{Token: signed, UserID: acct.id, Role: session.RoleTeacher}, nil
}

func (svc *service) CreateAssessment(_ context.Context, name string, _, _ gradingsvc.File) (string, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	id := uuid.New().String()
	svc.assessments[id] = &assessment{
		name:        name,
		createdAt:   time.Now(),
		submissions: make(map[string]*submission),
	}
	svc.order = append(svc.order, id)
	return id, nil
}

func (svc *service) ListAssessments(_ context.Context) ([]evaluation.AssessmentSummary, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	summaries := make([]evaluation.AssessmentSummary, 0, len(svc.order))
	for _, id := range svc.order {
		a := svc.assessments[id]
		status := "pending"
		if len(a.submissions) > 0 {
			status = "completed"
		}
		summaries = append(summaries, evaluation.AssessmentSummary{
			ID:             id,
			ExamName:       a.name,
			CreatedAt:      a.createdAt.Format(time.RFC3339),
			Status:         status,
			TotalQuestions: len(questionTemplate),
		})
	}
	return summaries, nil
}

func (svc *service) GetAssessment(_ context.Context, id string) (evaluation.AssessmentDetail, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	a, ok := svc.assessments[id]
	if !ok {
		return evaluation.AssessmentDetail{}, evaluation.ErrNotFound
	}
	detail := evaluation.AssessmentDetail{ID: id, Name: a.name}
	for _, key := range a.order {
		sub := a.submissions[key]
		detail.StudentAnswerSheets = append(detail.StudentAnswerSheets, evaluation.StudentResult{
			CandidateKey: key,
			TotalMarks:   sub.totalMarks,
		})
	}
	return detail, nil
}

func (svc *service) UploadStudentAnswers(_ context.Context, assessmentID string, sheets []gradingsvc.StudentSheet) (string, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	a, ok := svc.assessments[assessmentID]
	if !ok {
		return "", evaluation.ErrNotFound
	}
	for i, sheet := range sheets {
		questions := gradeSheet(i)
		sub := &submission{questions: questions, totalMarks: sumAwarded(questions)}
		if _, seen := a.submissions[sheet.CandidateKey]; !seen {
			a.order = append(a.order, sheet.CandidateKey)
		}
		a.submissions[sheet.CandidateKey] = sub
	}
	return "Student answer sheets uploaded successfully", nil
}

func (svc *service) GetEvaluation(_ context.Context, assessmentID, candidateKey string) (evaluation.Evaluation, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	a, ok := svc.assessments[assessmentID]
	if !ok {
		return evaluation.Evaluation{}, evaluation.ErrNotFound
	}
	sub, ok := a.submissions[candidateKey]
	if !ok {
		return evaluation.Evaluation{}, evaluation.ErrNotFound
	}
	return evaluation.Evaluation{
		ExamName:    a.name,
		Questions:   append([]evaluation.Question(nil), sub.questions...),
		TotalMarks:  sub.totalMarks,
		CandidateID: candidateKey,
	}, nil
}

func (svc *service) SaveEvaluation(_ context.Context, assessmentID, candidateKey string, questions []evaluation.Question) (float64, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	a, ok := svc.assessments[assessmentID]
	if !ok {
		return 0, evaluation.ErrNotFound
	}
	sub, ok := a.submissions[candidateKey]
	if !ok {
		return 0, evaluation.ErrNotFound
	}
	sub.questions = append([]evaluation.Question(nil), questions...)
	sub.totalMarks = sumAwarded(sub.questions)
	return sub.totalMarks, nil
}

// gradeSheet fabricates per-question marks; a stand-in for the grading
// pipeline behind the real service.
func gradeSheet(seed int) []evaluation.Question {
	questions := append([]evaluation.Question(nil), questionTemplate...)
	for i := range questions {
		frac := float64((seed+i)%4+5) / 10 // 0.5 .. 0.8
		questions[i].AwardedMarks = roundToHalf(questions[i].MaxMarks * frac)
	}
	return questions
}

func roundToHalf(marks float64) float64 {
	return float64(int(marks*2+0.5)) / 2
}

func sumAwarded(questions []evaluation.Question) float64 {
	var sum float64
	for _, q := range questions {
		sum += q.AwardedMarks
	}
	return sum
}
