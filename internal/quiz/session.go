package quiz

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/kiliankoe/insignia/internal/alphabet"
	"github.com/kiliankoe/insignia/internal/detect"
	"github.com/kiliankoe/insignia/internal/leaderboard"
)

var (
	ErrInvalidPhase     = errors.New("invalid phase for action")
	ErrInvalidMode      = errors.New("invalid mode")
	ErrCaptureBusy      = errors.New("capture in progress")
	ErrUnknownLetter    = errors.New("letter not in alphabet")
	ErrAlreadySubmitted = errors.New("score already submitted")
	ErrEmptyName        = leaderboard.ErrEmptyName
)

type Option func(*Session)

// WithClock replaces time.Now, for debounce and feedback timing.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithDraw replaces the uniform random target draw.
func WithDraw(draw func() string) Option {
	return func(s *Session) { s.draw = draw }
}

// WithID sets the session id.
func WithID(id string) Option {
	return func(s *Session) { s.ID = id }
}

// OnFinish registers a hook called, outside the session lock, when a normal game ends.
func OnFinish(fn func(Result)) Option {
	return func(s *Session) { s.onFinish = fn }
}

// RandomLetter draws uniformly from the alphabet.
func RandomLetter() string {
	i := rand.Intn(alphabet.Count())
	return alphabet.Letters[i : i+1]
}

// Session is one quiz game. Its methods are the only way to change it and they are
// mutually exclusive, so the countdown, the status poll and user input can run on
// separate goroutines.
type Session struct {
	ID        string
	CreatedAt time.Time

	mode       Mode
	phase      Phase
	questionIx int
	target     string
	score      int
	remaining  int
	prediction Prediction
	feedback   Feedback
	feedbackAt time.Time
	capturedAt time.Time
	status     detect.Status
	errMsg     string
	submitted  bool

	startedAt time.Time
	answers   []Answer

	now      func() time.Time
	draw     func() string
	onFinish func(Result)
	finished *Result // pending hook call
	rounds   chan struct{}

	mu sync.Mutex
}

func NewSession(opts ...Option) *Session {
	s := &Session{
		mode:       ModeNormal,
		phase:      PhaseNotStarted,
		remaining:  RoundSeconds,
		prediction: Prediction{Label: NoLabel},
		now:        time.Now,
		draw:       RandomLetter,
		rounds:     make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(s)
	}
	s.CreatedAt = s.now().UTC()
	s.target = s.draw()
	return s
}

// unlock releases the session and then runs a pending finish hook.
func (s *Session) unlock() {
	fin := s.finished
	s.finished = nil
	s.mu.Unlock()
	if fin != nil && s.onFinish != nil {
		s.onFinish(*fin)
	}
}

func (s *Session) Start(mode Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !mode.Valid() {
		return ErrInvalidMode
	}
	if s.phase == PhaseRunning {
		return ErrInvalidPhase
	}
	s.mode = mode
	s.phase = PhaseRunning
	s.questionIx = 0
	s.score = 0
	s.remaining = RoundSeconds
	s.target = s.draw()
	s.prediction = Prediction{Label: NoLabel}
	s.feedback = FeedbackNone
	s.capturedAt = time.Time{}
	s.submitted = false
	s.startedAt = s.now().UTC()
	s.answers = nil
	s.newRound()
	return nil
}

// Capture takes the latest detection as the player's answer.
func (s *Session) Capture() (CaptureResult, error) {
	s.mu.Lock()
	defer s.unlock()
	if s.phase != PhaseRunning {
		return CaptureResult{}, ErrInvalidPhase
	}
	now := s.now()
	if !s.capturedAt.IsZero() && now.Sub(s.capturedAt) < CaptureDebounce {
		return CaptureResult{}, ErrCaptureBusy
	}
	s.capturedAt = now

	pred := Prediction{Label: s.status.LastDetection, Confidence: s.status.LastConfidence}
	if pred.Label == "" {
		pred.Label = NoLabel
	}
	s.prediction = pred
	res := CaptureResult{Target: s.target, Prediction: pred, Correct: pred.Label == s.target}

	s.feedbackAt = now
	if res.Correct {
		s.feedback = FeedbackSuccess
		if s.mode == ModeNormal {
			s.score = min(MaxScore, s.score+PointsPer)
			s.record(pred.Label, OutcomeCorrect)
		}
		s.advance()
	} else {
		s.feedback = FeedbackFail
		// a wrong answer uses up a normal question; practice lets the player retry
		if s.mode == ModeNormal {
			s.record(pred.Label, OutcomeWrong)
			s.advance()
		}
	}
	res.State = s.snapshot()
	return res, nil
}

func (s *Session) Skip() error {
	s.mu.Lock()
	defer s.unlock()
	if s.phase != PhaseRunning {
		return ErrInvalidPhase
	}
	if s.mode == ModeNormal {
		s.record(s.prediction.Label, OutcomeSkipped)
	}
	s.advance()
	return nil
}

// Choose sets the practice target.
func (s *Session) Choose(letter string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRunning || s.mode != ModePractice {
		return ErrInvalidPhase
	}
	if !alphabet.Valid(letter) {
		return fmt.Errorf("%w: %q", ErrUnknownLetter, letter)
	}
	s.target = letter
	s.prediction = Prediction{Label: NoLabel}
	return nil
}

// Tick counts one second of the normal-mode timer. The timer only runs while the
// camera is reported active; otherwise it holds its value. It reports whether the
// second was counted.
func (s *Session) Tick() bool {
	s.mu.Lock()
	defer s.unlock()
	if s.phase != PhaseRunning || s.mode != ModeNormal || !s.status.CameraActive {
		return false
	}
	s.remaining--
	if s.remaining <= 0 {
		s.record(s.prediction.Label, OutcomeTimeout)
		s.advance()
		s.remaining = RoundSeconds
	}
	return true
}

// OnStatusUpdate stores the latest detection status.
func (s *Session) OnStatusUpdate(st detect.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
	s.errMsg = ""
}

// OnStatusError marks the detection server as unreachable. The game itself is untouched.
func (s *Session) OnStatusError(error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = StatusUnavailableMessage
}

// SubmitScore adds the finished game's score to board, once.
func (s *Session) SubmitScore(ctx context.Context, board *leaderboard.Board, name string) (leaderboard.Entry, []leaderboard.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseFinished {
		return leaderboard.Entry{}, nil, ErrInvalidPhase
	}
	if s.submitted {
		return leaderboard.Entry{}, nil, ErrAlreadySubmitted
	}
	if strings.TrimSpace(name) == "" {
		return leaderboard.Entry{}, nil, ErrEmptyName
	}
	e, rows, err := board.Submit(ctx, name, s.score, s.now())
	if err != nil {
		return leaderboard.Entry{}, nil, err
	}
	s.submitted = true
	return e, rows, nil
}

func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseNotStarted
	s.questionIx = 0
	s.score = 0
	s.remaining = RoundSeconds
	s.prediction = Prediction{Label: NoLabel}
	s.feedback = FeedbackNone
	s.capturedAt = time.Time{}
	s.submitted = false
	s.answers = nil
	s.newRound()
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Result returns the answer log of the current or last game.
func (s *Session) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result()
}

func (s *Session) advance() {
	if s.mode == ModeNormal {
		s.questionIx++
		if s.questionIx >= MaxQuestions {
			s.phase = PhaseFinished
			r := s.result()
			s.finished = &r
			return
		}
		s.remaining = RoundSeconds
	}
	s.target = s.draw()
	s.prediction = Prediction{Label: NoLabel}
	s.newRound()
}

// RoundChanged signals after a round starts over: start, restart, or a move to the next
// question. Signals coalesce, so a slow reader sees one.
func (s *Session) RoundChanged() <-chan struct{} {
	return s.rounds
}

func (s *Session) newRound() {
	select {
	case s.rounds <- struct{}{}:
	default:
	}
}

func (s *Session) record(label string, o Outcome) {
	s.answers = append(s.answers, Answer{Index: s.questionIx + 1, Target: s.target, Label: label, Outcome: o})
}

func (s *Session) result() Result {
	return Result{
		SessionID:  s.ID,
		Score:      s.score,
		StartedAt:  s.startedAt,
		FinishedAt: s.now().UTC(),
		Answers:    append([]Answer(nil), s.answers...),
	}
}

func (s *Session) snapshot() State {
	now := s.now()
	st := State{
		SessionID:        s.ID,
		Mode:             s.mode,
		Phase:            s.phase,
		QuestionIndex:    s.questionIx,
		Target:           s.target,
		Score:            s.score,
		RemainingSeconds: s.remaining,
		Prediction:       s.prediction,
		Capturing:        !s.capturedAt.IsZero() && now.Sub(s.capturedAt) < CaptureDebounce,
		CameraActive:     s.status.CameraActive,
		Status:           s.status,
		Error:            s.errMsg,
		Submitted:        s.submitted,
	}
	if s.feedback != FeedbackNone && now.Sub(s.feedbackAt) < FeedbackWindow {
		st.Feedback = s.feedback
	}
	if s.mode == ModeNormal {
		st.Progress = fmt.Sprintf("%d/%d", min(s.questionIx+1, MaxQuestions), MaxQuestions)
	} else {
		st.Progress = "Practice"
	}
	return st
}
