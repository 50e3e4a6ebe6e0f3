package evaluation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type fakeService struct {
	eval      Evaluation
	loadErr   error
	saveTotal float64
	saveErr   error

	mu    sync.Mutex
	saved []Question
}

func (svc *fakeService) GetEvaluation(_ context.Context, _, _ string) (Evaluation, error) {
	return svc.eval, svc.loadErr
}

func (svc *fakeService) SaveEvaluation(_ context.Context, _, _ string, questions []Question) (float64, error) {
	svc.mu.Lock()
	svc.saved = append([]Question(nil), questions...)
	svc.mu.Unlock()
	return svc.saveTotal, svc.saveErr
}

func twoQuestionEval() Evaluation {
	return Evaluation{
		ExamName: "Midterm Exam 2023",
		Questions: []Question{
			{Number: "1", MaxMarks: 10, AwardedMarks: 0},
			{Number: "2", MaxMarks: 5, AwardedMarks: 0},
		},
		TotalMarks:  15,
		CandidateID: "C-001",
	}
}

func loadedEditor(t *testing.T, svc *fakeService) *Editor {
	ed := NewEditor(svc, "a1", "C-001")
	if err := ed.Load(context.Background()); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	return ed
}

func TestEditor_loadSelectsFirstInSequenceOrder(t *testing.T) {
	svc := &fakeService{eval: Evaluation{
		ExamName: "Finals",
		Questions: []Question{
			{Number: "3", MaxMarks: 5},
			{Number: "1", MaxMarks: 10},
		},
	}}
	ed := loadedEditor(t, svc)

	assert.Equal(t, StateReady, ed.State())
	cur, ok := ed.Current()
	if !ok {
		t.Fatal("expected a focused question after load")
	}
	assert.Equal(t, "3", cur.Number) // sequence order, not numeric value
}

func TestEditor_loadFailures(t *testing.T) {
	tests := []struct {
		name         string
		assessmentID string
		candidateKey string
		loadErr      error
		wantMsg      string
	}{
		{name: "missing assessment id", candidateKey: "C-001", wantMsg: "Missing assessment ID or candidate key."},
		{name: "missing candidate key", assessmentID: "a1", wantMsg: "Missing assessment ID or candidate key."},
		{name: "not found", assessmentID: "a1", candidateKey: "C-001", loadErr: ErrNotFound, wantMsg: "Assessment not found."},
		{
			name: "transport failure", assessmentID: "a1", candidateKey: "C-001",
			loadErr: errors.New("connection refused"), wantMsg: "Failed to fetch evaluation data.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{loadErr: tt.loadErr}
			ed := NewEditor(svc, tt.assessmentID, tt.candidateKey)

			if err := ed.Load(context.Background()); err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			assert.Equal(t, StateLoadFailed, ed.State())
			assert.Equal(t, tt.wantMsg, ed.LoadError())
		})
	}
}

func TestEditor_selectQuestion(t *testing.T) {
	ed := loadedEditor(t, &fakeService{eval: twoQuestionEval()})

	ed.SelectQuestion("2")
	cur, _ := ed.Current()
	assert.Equal(t, "2", cur.Number)

	// unknown number leaves the focus unchanged
	ed.SelectQuestion("99")
	cur, _ = ed.Current()
	assert.Equal(t, "2", cur.Number)
}

// The focused projection and the sequence entry must stay equal after every
// edit, whichever question is focused.
func TestEditor_editKeepsFocusAndSequenceInSync(t *testing.T) {
	ed := loadedEditor(t, &fakeService{eval: twoQuestionEval()})

	edits := []struct {
		number string
		marks  float64
	}{
		{"1", 7}, {"2", 3}, {"1", 4.5}, {"1", 0}, {"2", 6},
	}
	for _, edit := range edits {
		ed.EditMark(edit.number, edit.marks)

		cur, ok := ed.Current()
		if !ok {
			t.Fatal("lost the focused question")
		}
		for _, q := range ed.Evaluation().Questions {
			if q.Number == cur.Number {
				assert.Equal(t, q, cur)
			}
		}
	}
}

func TestEditor_editMark(t *testing.T) {
	ed := loadedEditor(t, &fakeService{eval: twoQuestionEval()})

	ed.EditMark("1", 7)
	assert.Equal(t, 7.0, ed.TotalAwarded())

	// exceeding max is not clamped; the input's max is advisory only
	ed.EditMark("2", 6)
	assert.Equal(t, 13.0, ed.TotalAwarded())

	// editing a non-focused question leaves the focus untouched
	cur, _ := ed.Current()
	assert.Equal(t, "1", cur.Number)
	assert.Equal(t, 7.0, cur.AwardedMarks)
}

func TestEditor_editMarkRawNormalizesToZero(t *testing.T) {
	ed := loadedEditor(t, &fakeService{eval: twoQuestionEval()})
	ed.EditMark("1", 7)

	ed.EditMarkRaw("1", "not-a-number")

	cur, _ := ed.Current()
	assert.Equal(t, 0.0, cur.AwardedMarks)
	assert.Equal(t, 0.0, ed.Evaluation().Questions[0].AwardedMarks)

	ed.EditMarkRaw("1", "4.5")
	cur, _ = ed.Current()
	assert.Equal(t, 4.5, cur.AwardedMarks)
}

func TestEditor_saveSuccess(t *testing.T) {
	defer func(d time.Duration) { saveSuccessDelay = d }(saveSuccessDelay)
	saveSuccessDelay = 20 * time.Millisecond

	svc := &fakeService{eval: twoQuestionEval(), saveTotal: 13}
	ed := loadedEditor(t, svc)
	ed.EditMark("1", 7)
	ed.EditMark("2", 6)

	if err := ed.Save(context.Background()); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	// the full sequence was submitted, not a diff
	assert.Equal(t, []Question{
		{Number: "1", MaxMarks: 10, AwardedMarks: 7},
		{Number: "2", MaxMarks: 5, AwardedMarks: 6},
	}, svc.saved)

	// only the total is adopted from the server; edits stay as made
	eval := ed.Evaluation()
	assert.Equal(t, 13.0, eval.TotalMarks)
	assert.Equal(t, 7.0, eval.Questions[0].AwardedMarks)
	assert.Equal(t, 6.0, eval.Questions[1].AwardedMarks)
	assert.Equal(t, StateReady, ed.State())

	// the success indicator clears itself without further input
	assert.True(t, ed.SaveSucceeded())
	assert.Eventually(t, func() bool { return !ed.SaveSucceeded() }, time.Second, 5*time.Millisecond)
}

func TestEditor_saveFailureKeepsEdits(t *testing.T) {
	svc := &fakeService{eval: twoQuestionEval(), saveErr: errors.New("boom")}
	ed := loadedEditor(t, svc)
	ed.EditMark("1", 9)

	if err := ed.Save(context.Background()); err == nil {
		t.Fatal("Save() expected error, got nil")
	}

	assert.Equal(t, StateReady, ed.State())
	assert.Equal(t, "Failed to save marks.", ed.SaveError())
	assert.False(t, ed.SaveSucceeded())
	assert.Equal(t, 9.0, ed.Evaluation().Questions[0].AwardedMarks)
}

func TestEditor_saveRequiresReadyState(t *testing.T) {
	ed := NewEditor(&fakeService{}, "a1", "C-001")
	if err := ed.Save(context.Background()); err == nil {
		t.Error("Save() before load should fail")
	}
}

type gatedService struct {
	mu    sync.Mutex
	calls int
	gates []chan Evaluation
}

func (svc *gatedService) started() int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.calls
}

func (svc *gatedService) GetEvaluation(_ context.Context, _, _ string) (Evaluation, error) {
	svc.mu.Lock()
	gate := svc.gates[svc.calls]
	svc.calls++
	svc.mu.Unlock()
	return <-gate, nil
}

func (svc *gatedService) SaveEvaluation(_ context.Context, _, _ string, _ []Question) (float64, error) {
	return 0, nil
}

// A load that completes after a newer load has started must be discarded.
func TestEditor_staleLoadResponseIsDiscarded(t *testing.T) {
	svc := &gatedService{gates: []chan Evaluation{
		make(chan Evaluation, 1),
		make(chan Evaluation, 1),
	}}
	ed := NewEditor(svc, "a1", "C-001")

	done := make(chan struct{}, 2)
	go func() { _ = ed.Load(context.Background()); done <- struct{}{} }()
	assert.Eventually(t, func() bool { return svc.started() == 1 }, time.Second, time.Millisecond)

	go func() { _ = ed.Load(context.Background()); done <- struct{}{} }()
	assert.Eventually(t, func() bool { return svc.started() == 2 }, time.Second, time.Millisecond)

	// the newer load completes first
	svc.gates[1] <- Evaluation{ExamName: "fresh", Questions: []Question{{Number: "1", MaxMarks: 1}}}
	// ... then the abandoned one straggles in
	svc.gates[0] <- Evaluation{ExamName: "stale", Questions: []Question{{Number: "9", MaxMarks: 9}}}
	<-done
	<-done

	assert.Equal(t, "fresh", ed.Evaluation().ExamName)
	cur, _ := ed.Current()
	assert.Equal(t, "1", cur.Number)
}
