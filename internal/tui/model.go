// Package tui provides the Bubble Tea quiz client for the terminal.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kiliankoe/insignia/internal/alphabet"
	"github.com/kiliankoe/insignia/internal/detect"
	"github.com/kiliankoe/insignia/internal/leaderboard"
	"github.com/kiliankoe/insignia/internal/quiz"
)

// Camera turns the detection server's capture on and off.
type Camera interface {
	StartCamera(ctx context.Context) (detect.ControlResult, error)
	StopCamera(ctx context.Context) (detect.ControlResult, error)
}

// StateMsg carries a session snapshot pushed by the runner.
type StateMsg quiz.State

type boardMsg struct {
	rows []leaderboard.Entry
	err  error
}

type submittedMsg struct {
	entry leaderboard.Entry
	rows  []leaderboard.Entry
	err   error
}

type cameraMsg struct {
	active bool
	err    error
}

type refreshMsg struct{}

const requestTimeout = 5 * time.Second

// Model implements the Bubble Tea quiz UI.
type Model struct {
	session *quiz.Session
	board   *leaderboard.Board
	camera  Camera

	state   quiz.State
	rows    []leaderboard.Entry
	last    *leaderboard.Entry
	message string

	name textinput.Model

	width  int
	height int
}

// NewModel constructs a quiz TUI model. camera may be nil.
func NewModel(session *quiz.Session, board *leaderboard.Board, camera Camera) *Model {
	input := textinput.New()
	input.Prompt = "Name: "
	input.Placeholder = "your name"
	input.CharLimit = 32
	return &Model{
		session: session,
		board:   board,
		camera:  camera,
		state:   session.Snapshot(),
		name:    input,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.loadBoard()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case StateMsg:
		m.setState(quiz.State(msg))
		return m, nil
	case refreshMsg:
		m.setState(m.session.Snapshot())
		return m, nil
	case boardMsg:
		if msg.err != nil {
			m.message = "leaderboard unavailable: " + msg.err.Error()
			return m, nil
		}
		m.rows = msg.rows
		return m, nil
	case submittedMsg:
		if msg.err != nil {
			m.message = msg.err.Error()
			return m, nil
		}
		m.rows = msg.rows
		m.last = &msg.entry
		m.message = ""
		m.name.Blur()
		m.name.Reset()
		m.setState(m.session.Snapshot())
		return m, nil
	case cameraMsg:
		if msg.err != nil {
			m.message = msg.err.Error()
		} else if msg.active {
			m.message = "camera started"
		} else {
			m.message = "camera stopped"
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.name.Focused() {
		switch msg.Type {
		case tea.KeyEnter:
			return m, m.submit(m.name.Value())
		case tea.KeyEsc:
			m.name.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.name, cmd = m.name.Update(msg)
		return m, cmd
	}

	key := msg.String()
	if msg.Type == tea.KeySpace {
		key = " "
	}
	switch key {
	case "esc", "q":
		return m, tea.Quit
	case " ":
		res, err := m.session.Capture()
		if errors.Is(err, quiz.ErrCaptureBusy) {
			return m, nil
		}
		if err != nil {
			m.message = err.Error()
			return m, nil
		}
		m.message = ""
		m.setState(res.State)
		return m, tea.Tick(quiz.FeedbackWindow, func(time.Time) tea.Msg { return refreshMsg{} })
	case "s":
		m.apply(m.session.Skip())
	case "n":
		m.start(quiz.ModeNormal)
	case "p":
		m.start(quiz.ModePractice)
	case "r":
		m.session.Restart()
		m.last = nil
		m.message = ""
		m.setState(m.session.Snapshot())
	case "c":
		return m, m.toggleCamera()
	case "enter":
		if m.state.Phase == quiz.PhaseFinished && !m.state.Submitted {
			return m, m.name.Focus()
		}
	default:
		if len(key) == 1 && alphabet.Valid(key) {
			m.apply(m.session.Choose(key))
		}
	}
	return m, nil
}

func (m *Model) start(mode quiz.Mode) {
	if err := m.session.Start(mode); err != nil {
		m.message = err.Error()
		return
	}
	m.last = nil
	m.message = ""
	m.setState(m.session.Snapshot())
}

func (m *Model) apply(err error) {
	if err != nil {
		m.message = err.Error()
		return
	}
	m.message = ""
	m.setState(m.session.Snapshot())
}

// setState stores a snapshot and opens the name prompt when a game has just ended.
func (m *Model) setState(st quiz.State) {
	ended := st.Phase == quiz.PhaseFinished && m.state.Phase != quiz.PhaseFinished
	m.state = st
	if ended && !st.Submitted {
		m.name.Focus()
	}
}

func (m *Model) loadBoard() tea.Cmd {
	if m.board == nil {
		return nil
	}
	board := m.board
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		rows, err := board.List(ctx)
		return boardMsg{rows: rows, err: err}
	}
}

func (m *Model) submit(name string) tea.Cmd {
	if strings.TrimSpace(name) == "" {
		m.message = quiz.ErrEmptyName.Error()
		return nil
	}
	if m.board == nil {
		m.message = "no leaderboard configured"
		return nil
	}
	session, board := m.session, m.board
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		e, rows, err := session.SubmitScore(ctx, board, name)
		return submittedMsg{entry: e, rows: rows, err: err}
	}
}

func (m *Model) toggleCamera() tea.Cmd {
	if m.camera == nil {
		m.message = "no detection server configured"
		return nil
	}
	camera, active := m.camera, m.state.CameraActive
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if active {
			_, err := camera.StopCamera(ctx)
			return cameraMsg{active: false, err: err}
		}
		_, err := camera.StartCamera(ctx)
		return cameraMsg{active: true, err: err}
	}
}
