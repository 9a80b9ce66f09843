package exam

import (
	"context"
	"log"
	"sync"
	"time"

	"nexlearn-exam-client/internal/domain"
)

// ExamService is the slice of the backend API the session depends on.
type ExamService interface {
	FetchQuestions(ctx context.Context) (domain.ExamPaper, error)
	SubmitAnswers(ctx context.Context, answers []domain.Answer) (domain.ExamResult, error)
}

// State is the session lifecycle phase.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateSubmitting State = "submitting"
	StateSubmitted  State = "submitted"
	StateFailed     State = "failed"
)

// Session tracks exam progress: the loaded paper, per-question selections and
// status flags, the active question index, and the countdown timer. All
// transitions are serialized through one mutex so a timer tick never
// interleaves with a user transition.
type Session struct {
	svc     ExamService
	results *Results

	mu          sync.Mutex
	state       State
	questions   []domain.Question
	metadata    domain.ExamMetadata
	answers     map[int64]int64
	statuses    map[int64]*domain.QuestionStatus
	current     int
	remaining   int
	running     bool
	timerCancel context.CancelFunc

	tickEvery time.Duration
}

func NewSession(svc ExamService, results *Results) *Session {
	return NewSessionWithTick(svc, results, time.Second)
}

// NewSessionWithTick overrides the tick interval for deterministic tests.
func NewSessionWithTick(svc ExamService, results *Results, tickEvery time.Duration) *Session {
	return &Session{
		svc:       svc,
		results:   results,
		state:     StateIdle,
		answers:   make(map[int64]int64),
		statuses:  make(map[int64]*domain.QuestionStatus),
		tickEvery: tickEvery,
	}
}

// Load fetches the question set, derives the countdown from the paper's total
// time, marks the first question visited, and starts the timer. A load
// failure is terminal for the attempt: the session enters StateFailed and the
// caller is expected to leave the exam.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return domain.ErrExamAlreadyStarted
	}
	s.state = StateLoading
	s.mu.Unlock()

	paper, err := s.svc.FetchQuestions(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateFailed
		return err
	}
	s.questions = paper.Questions
	s.metadata = paper.Metadata
	s.answers = make(map[int64]int64)
	s.statuses = make(map[int64]*domain.QuestionStatus)
	s.current = 0
	s.remaining = paper.Metadata.TotalTime * 60
	if len(s.questions) > 0 {
		s.visitLocked(s.questions[0].ID)
	}
	s.state = StateReady
	s.startTimerLocked(ctx)
	return nil
}

// SelectOption records a selection for the question. Re-selecting the same
// option is a no-op on the status flags.
func (s *Session) SelectOption(questionID, optionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return domain.ErrExamNotActive
	}
	if !s.hasQuestionLocked(questionID) {
		return domain.ErrQuestionNotFound
	}
	s.answers[questionID] = optionID
	status := s.statusLocked(questionID)
	status.Visited = true
	status.Answered = true
	return nil
}

// ClearSelection writes the explicit no-selection marker for the question.
func (s *Session) ClearSelection(questionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return domain.ErrExamNotActive
	}
	if !s.hasQuestionLocked(questionID) {
		return domain.ErrQuestionNotFound
	}
	delete(s.answers, questionID)
	status := s.statusLocked(questionID)
	status.Visited = true
	status.Answered = false
	return nil
}

// ToggleReview flips the question's marked-for-review flag.
func (s *Session) ToggleReview(questionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return domain.ErrExamNotActive
	}
	if !s.hasQuestionLocked(questionID) {
		return domain.ErrQuestionNotFound
	}
	status := s.statusLocked(questionID)
	status.Visited = true
	status.MarkedForReview = !status.MarkedForReview
	return nil
}

// GoTo jumps to the question at index and marks it visited.
func (s *Session) GoTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return domain.ErrExamNotActive
	}
	if index < 0 || index >= len(s.questions) {
		return domain.ErrIndexOutOfRange
	}
	s.current = index
	s.visitLocked(s.questions[index].ID)
	return nil
}

// Next advances to the following question. At the last question it is a
// no-op rather than an error.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return domain.ErrExamNotActive
	}
	if s.current >= len(s.questions)-1 {
		return nil
	}
	s.current++
	s.visitLocked(s.questions[s.current].ID)
	return nil
}

// Previous moves to the preceding question. At index 0 it is a no-op.
func (s *Session) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return domain.ErrExamNotActive
	}
	if s.current <= 0 {
		return nil
	}
	s.current--
	s.visitLocked(s.questions[s.current].ID)
	return nil
}

// Tick decrements the countdown by one second while the timer runs. It
// reports whether the countdown reached zero, at which point the timer is
// stopped and submission must follow without user action.
func (s *Session) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining > 0 {
		return false
	}
	s.stopTimerLocked()
	return true
}

// Submit builds the full-length answer payload, posts it, and stores the
// scored result. Submission failures are recoverable: the session returns to
// ready with all answers intact so the user may retry, and the timer resumes
// if time remains.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return domain.ErrExamNotActive
	}
	payload := s.payloadLocked()
	s.state = StateSubmitting
	s.stopTimerLocked()
	s.mu.Unlock()

	result, err := s.svc.SubmitAnswers(ctx, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateReady
		if s.remaining > 0 {
			s.startTimerLocked(ctx)
		}
		return err
	}
	s.state = StateSubmitted
	s.results.Set(result)
	return nil
}

// Reset clears all exam and result state and returns to idle.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.state = StateIdle
	s.questions = nil
	s.metadata = domain.ExamMetadata{}
	s.answers = make(map[int64]int64)
	s.statuses = make(map[int64]*domain.QuestionStatus)
	s.current = 0
	s.remaining = 0
	s.results.Clear()
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Questions returns a copy of the loaded question list.
func (s *Session) Questions() []domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Question, len(s.questions))
	copy(out, s.questions)
	return out
}

func (s *Session) Metadata() domain.ExamMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadata
}

func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// CurrentQuestion returns the active question, or false when no paper is
// loaded.
func (s *Session) CurrentQuestion() (domain.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < 0 || s.current >= len(s.questions) {
		return domain.Question{}, false
	}
	return s.questions[s.current], true
}

// Remaining returns the countdown in seconds.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// SelectedOption returns the stored selection for a question, if any.
func (s *Session) SelectedOption(questionID int64) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	optionID, ok := s.answers[questionID]
	return optionID, ok
}

// StatusOf returns the status flags for a question. Untouched questions
// report the zero status (not visited).
func (s *Session) StatusOf(questionID int64) domain.QuestionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status, ok := s.statuses[questionID]; ok {
		return *status
	}
	return domain.QuestionStatus{}
}

// Counts returns how many questions are answered and marked for review.
func (s *Session) Counts() (answered, marked int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, status := range s.statuses {
		if status.Answered {
			answered++
		}
		if status.MarkedForReview {
			marked++
		}
	}
	return answered, marked
}

func (s *Session) hasQuestionLocked(questionID int64) bool {
	for i := range s.questions {
		if s.questions[i].ID == questionID {
			return true
		}
	}
	return false
}

func (s *Session) statusLocked(questionID int64) *domain.QuestionStatus {
	if status, ok := s.statuses[questionID]; ok {
		return status
	}
	status := &domain.QuestionStatus{}
	s.statuses[questionID] = status
	return status
}

func (s *Session) visitLocked(questionID int64) {
	s.statusLocked(questionID).Visited = true
}

// payloadLocked builds one entry per question in stored order; questions
// without a selection carry the no-selection marker.
func (s *Session) payloadLocked() []domain.Answer {
	payload := make([]domain.Answer, 0, len(s.questions))
	for _, q := range s.questions {
		entry := domain.Answer{QuestionID: q.ID}
		if optionID, ok := s.answers[q.ID]; ok {
			selected := optionID
			entry.SelectedOptionID = &selected
		}
		payload = append(payload, entry)
	}
	return payload
}

// startTimerLocked acquires a fresh timer goroutine scoped to ctx. The cancel
// func is held by the session and invoked on every exit transition so a stray
// tick can never fire after teardown.
func (s *Session) startTimerLocked(ctx context.Context) {
	if s.remaining <= 0 {
		return
	}
	s.running = true
	timerCtx, cancel := context.WithCancel(ctx)
	s.timerCancel = cancel
	go s.runTimer(timerCtx, ctx)
}

func (s *Session) stopTimerLocked() {
	s.running = false
	if s.timerCancel != nil {
		s.timerCancel()
		s.timerCancel = nil
	}
}

// runTimer drives the countdown. When the countdown expires it forces
// submission on appCtx, which outlives the cancelled timer scope.
func (s *Session) runTimer(timerCtx, appCtx context.Context) {
	ticker := time.NewTicker(s.tickEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if s.Tick() {
				if err := s.Submit(appCtx); err != nil {
					// Session is back in ready at 0:00; the user must
					// resubmit by hand.
					log.Printf("exam: timed submission failed: %v", err)
				}
				return
			}
		case <-timerCtx.Done():
			return
		}
	}
}
