package evaluation

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Editor states. A failed save surfaces through SaveError and immediately
// returns the editor to StateReady, keeping the user's edits.
type State int

const (
	StateLoading State = iota
	StateReady
	StateSaving
	StateLoadFailed
)

var (
	// saveSuccessDelay is how long the success indicator stays up after a
	// completed save. Overridable in tests.
	saveSuccessDelay = 3 * time.Second

	errMissingIdentifiers = errors.New("missing assessment ID or candidate key")
	errNotReady           = errors.New("editor is not ready")
)

// Editor drives one marking session: it loads a student's evaluation, applies
// mark edits locally and submits the full question sequence back. It owns its
// Evaluation exclusively; a new navigation into the same pair gets a new
// Editor and a fresh load.
type Editor struct {
	mu           sync.Mutex
	svc          Service
	id           string
	assessmentID string
	candidateKey string

	state   State
	eval    Evaluation
	current *Question // focused projection; a copy, never a pointer into eval.Questions
	loadErr string
	saveErr string
	saveOK  bool
	loadGen int // bumped per Load; stale responses are discarded

	successTimer *time.Timer
}

func NewEditor(svc Service, assessmentID, candidateKey string) *Editor {
	return &Editor{
		svc:          svc,
		id:           uuid.New().String(),
		assessmentID: assessmentID,
		candidateKey: candidateKey,
		state:        StateLoading,
	}
}

// Load fetches the evaluation. Missing identifiers are a precondition
// failure and land in StateLoadFailed without a network call. A response
// arriving after a newer Load has started is discarded.
func (ed *Editor) Load(ctx context.Context) error {
	ed.mu.Lock()
	if ed.assessmentID == "" || ed.candidateKey == "" {
		ed.state = StateLoadFailed
		ed.loadErr = "Missing assessment ID or candidate key."
		ed.mu.Unlock()
		return errMissingIdentifiers
	}
	ed.state = StateLoading
	ed.loadGen++
	gen := ed.loadGen
	ed.mu.Unlock()

	eval, err := ed.svc.GetEvaluation(ctx, ed.assessmentID, ed.candidateKey)

	ed.mu.Lock()
	defer ed.mu.Unlock()
	if gen != ed.loadGen {
		return nil // superseded
	}
	if err != nil {
		ed.state = StateLoadFailed
		if errors.Cause(err) == ErrNotFound {
			ed.loadErr = "Assessment not found."
		} else {
			ed.loadErr = "Failed to fetch evaluation data."
		}
		return errors.Wrap(err, "fetching evaluation")
	}

	ed.eval = eval
	ed.current = nil
	if len(eval.Questions) > 0 {
		first := eval.Questions[0] // sequence order, not numeric order
		ed.current = &first
	}
	ed.state = StateReady
	return nil
}

// SelectQuestion focuses a question by exact number match. Purely local; an
// unknown number leaves the focus unchanged.
func (ed *Editor) SelectQuestion(number string) {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	for _, q := range ed.eval.Questions {
		if q.Number == number {
			q := q
			ed.current = &q
			return
		}
	}
}

// EditMark sets the awarded marks of one question, updating both the
// sequence entry and, when focused, the projection so the two never diverge.
// No clamping: the question's max is advisory, the server recomputes totals.
func (ed *Editor) EditMark(number string, marks float64) {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	for i, q := range ed.eval.Questions {
		if q.Number == number {
			ed.eval.Questions[i].AwardedMarks = marks
			break
		}
	}
	if ed.current != nil && ed.current.Number == number {
		ed.current.AwardedMarks = marks
	}
}

// EditMarkRaw parses marks from form input. Input that is not a number is
// normalized to zero, never rejected, so the field always ends up in a valid
// numeric state.
func (ed *Editor) EditMarkRaw(number, raw string) {
	ed.EditMark(number, ParseMarks(raw))
}

// ParseMarks parses a mark input value, treating anything unparseable as 0.
func ParseMarks(raw string) float64 {
	marks, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return marks
}

// Save submits the entire current question sequence. Failure keeps the local
// edits and the editor returns to StateReady with SaveError set. Success
// adopts only the server's total and raises a success indicator that clears
// itself after a fixed delay.
func (ed *Editor) Save(ctx context.Context) error {
	ed.mu.Lock()
	if ed.state != StateReady {
		ed.mu.Unlock()
		return errNotReady
	}
	ed.state = StateSaving
	ed.saveErr = ""
	questions := append([]Question(nil), ed.eval.Questions...)
	gen := ed.loadGen
	ed.mu.Unlock()

	total, err := ed.svc.SaveEvaluation(ctx, ed.assessmentID, ed.candidateKey, questions)

	ed.mu.Lock()
	defer ed.mu.Unlock()
	if gen != ed.loadGen {
		return nil // editor was reloaded while the save was in flight
	}
	ed.state = StateReady
	if err != nil {
		ed.saveErr = "Failed to save marks."
		return errors.Wrap(err, "saving evaluation")
	}

	ed.eval.TotalMarks = total // per-question awarded marks stay as edited
	ed.saveOK = true
	if ed.successTimer != nil {
		ed.successTimer.Stop()
	}
	ed.successTimer = time.AfterFunc(saveSuccessDelay, func() {
		ed.mu.Lock()
		ed.saveOK = false
		ed.mu.Unlock()
	})
	return nil
}

func (ed *Editor) ID() string           { return ed.id }
func (ed *Editor) AssessmentID() string { return ed.assessmentID }
func (ed *Editor) CandidateKey() string { return ed.candidateKey }

func (ed *Editor) State() State {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.state
}

// Evaluation returns a snapshot of the loaded evaluation.
func (ed *Editor) Evaluation() Evaluation {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	eval := ed.eval
	eval.Questions = append([]Question(nil), ed.eval.Questions...)
	return eval
}

// Current returns the focused question, or false when nothing is loaded.
func (ed *Editor) Current() (Question, bool) {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	if ed.current == nil {
		return Question{}, false
	}
	return *ed.current, true
}

func (ed *Editor) LoadError() string {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.loadErr
}

func (ed *Editor) SaveError() string {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.saveErr
}

// SaveSucceeded reports whether the transient success indicator is up.
func (ed *Editor) SaveSucceeded() bool {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.saveOK
}

// TotalAwarded is the locally computed running sum over the live sequence.
func (ed *Editor) TotalAwarded() float64 {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.eval.TotalAwarded()
}
