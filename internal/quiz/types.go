package quiz

import (
	"time"

	"github.com/kiliankoe/insignia/internal/detect"
)

type Mode string

const (
	ModeNormal   Mode = "normal"
	ModePractice Mode = "practice"
)

func (m Mode) Valid() bool { return m == ModeNormal || m == ModePractice }

type Phase string

const (
	PhaseNotStarted Phase = "NotStarted"
	PhaseRunning    Phase = "Running"
	PhaseFinished   Phase = "Finished"
)

const (
	MaxQuestions = 10
	PointsPer    = 10
	MaxScore     = 100
	RoundSeconds = 10

	// CaptureDebounce is how long further captures are ignored after one is taken.
	CaptureDebounce = 700 * time.Millisecond
	// FeedbackWindow is how long a success/fail flash stays visible.
	FeedbackWindow = 500 * time.Millisecond
)

// NoLabel is shown when no prediction has been taken for the current round.
const NoLabel = "-"

// StatusUnavailableMessage is shown while the detection server cannot be reached.
const StatusUnavailableMessage = "Detection server unreachable. Make sure the Python stream server is running."

type Feedback string

const (
	FeedbackNone    Feedback = ""
	FeedbackSuccess Feedback = "success"
	FeedbackFail    Feedback = "fail"
)

type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"conf"`
}

type Outcome string

const (
	OutcomeCorrect Outcome = "correct"
	OutcomeWrong   Outcome = "wrong"
	OutcomeSkipped Outcome = "skipped"
	OutcomeTimeout Outcome = "timeout"
)

// Answer records how one normal-mode question ended.
type Answer struct {
	Index   int     `json:"index"`
	Target  string  `json:"target"`
	Label   string  `json:"label"`
	Outcome Outcome `json:"outcome"`
}

// State is a read-only copy of a session for rendering.
type State struct {
	SessionID        string        `json:"sessionId"`
	Mode             Mode          `json:"mode"`
	Phase            Phase         `json:"phase"`
	QuestionIndex    int           `json:"questionIndex"`
	Progress         string        `json:"progress"`
	Target           string        `json:"target"`
	Score            int           `json:"score"`
	RemainingSeconds int           `json:"remainingSeconds"`
	Prediction       Prediction    `json:"prediction"`
	Feedback         Feedback      `json:"feedback,omitempty"`
	Capturing        bool          `json:"capturing"`
	CameraActive     bool          `json:"cameraActive"`
	Status           detect.Status `json:"status"`
	Error            string        `json:"error,omitempty"`
	Submitted        bool          `json:"submitted"`
}

type CaptureResult struct {
	Target     string     `json:"target"`
	Prediction Prediction `json:"prediction"`
	Correct    bool       `json:"correct"`
	State      State      `json:"state"`
}

// Result summarizes a finished normal game.
type Result struct {
	SessionID  string
	Score      int
	StartedAt  time.Time
	FinishedAt time.Time
	Answers    []Answer
}
