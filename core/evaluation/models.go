package evaluation

import (
	"context"
	"errors"
)

var (
	// errors
	ErrNotFound = errors.New("assessment not found")
)

// Question is one graded question. Number is the identity key within an
// evaluation; it is a string and unique in the sequence.
type Question struct {
	Number       string  `json:"question_number"`
	MaxMarks     float64 `json:"max_marks"`
	AwardedMarks float64 `json:"awarded_marks"`
}

// Evaluation is one student's graded submission for one assessment, as
// returned by the grading service. The question set is fixed server-side;
// only awarded marks change client-side.
type Evaluation struct {
	ExamName    string     `json:"exam_name"`
	Questions   []Question `json:"questions"`
	TotalMarks  float64    `json:"total_marks"`
	CandidateID string     `json:"candidate_id"`
}

// TotalAwarded is the locally computed running sum, shown for immediate
// feedback; the server remains authoritative for TotalMarks.
func (ev Evaluation) TotalAwarded() float64 {
	var sum float64
	for _, q := range ev.Questions {
		sum += q.AwardedMarks
	}
	return sum
}

// AssessmentSummary is the read-only dashboard projection.
type AssessmentSummary struct {
	ID             string `json:"id"`
	ExamName       string `json:"examName"`
	CreatedAt      string `json:"createdAt"`
	Status         string `json:"status"` // pending | in_progress | completed
	TotalQuestions int    `json:"totalQuestions"`
}

// StudentResult is one row of the per-assessment results list.
type StudentResult struct {
	CandidateKey string  `json:"candidateKey"`
	TotalMarks   float64 `json:"totalMarks"`
}

// AssessmentDetail is the assessment record with its uploaded student sheets.
type AssessmentDetail struct {
	ID                  string          `json:"_id"`
	Name                string          `json:"assessmentName"`
	StudentAnswerSheets []StudentResult `json:"studentAnswerSheets"`
}

// Service is the slice of the grading backend the editor talks to.
type Service interface {
	GetEvaluation(ctx context.Context, assessmentID, candidateKey string) (Evaluation, error)
	// SaveEvaluation submits the full question sequence and returns the
	// recomputed authoritative total.
	SaveEvaluation(ctx context.Context, assessmentID, candidateKey string, questions []Question) (float64, error)
}
