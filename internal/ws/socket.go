// Package ws hosts quiz sessions over Socket.IO. Every connection owns one session; the
// browser forwards the detection status it polls and keeps its leaderboard locally.
package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"github.com/kiliankoe/insignia/internal/config"
	"github.com/kiliankoe/insignia/internal/detect"
	"github.com/kiliankoe/insignia/internal/leaderboard"
	"github.com/kiliankoe/insignia/internal/quiz"
)

type ConnCtx struct {
	SessionID string
}

type member struct {
	conn    socketio.Conn
	session *quiz.Session
	cancel  context.CancelFunc
}

type Server struct {
	Quizzes *quiz.Manager
	config  config.Config
	tick    time.Duration

	mu      sync.Mutex
	members map[string]*member // session id -> member
}

func New(m *quiz.Manager, cfg config.Config) *Server {
	return &Server{Quizzes: m, config: cfg, tick: time.Second, members: make(map[string]*member)}
}

// Mount attaches the Socket.IO server with the quiz handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		srv.connect(s)
		return nil
	})

	io.OnEvent("/", "quiz:start", func(s socketio.Conn, payload struct {
		Mode string `json:"mode"`
	}) map[string]any {
		return srv.start(s, payload.Mode)
	})
	io.OnEvent("/", "quiz:capture", func(s socketio.Conn) map[string]any {
		return srv.capture(s)
	})
	io.OnEvent("/", "quiz:skip", func(s socketio.Conn) map[string]any {
		return srv.skip(s)
	})
	io.OnEvent("/", "quiz:choose", func(s socketio.Conn, payload struct {
		Letter string `json:"letter"`
	}) map[string]any {
		return srv.choose(s, payload.Letter)
	})
	io.OnEvent("/", "quiz:restart", func(s socketio.Conn) map[string]any {
		return srv.restart(s)
	})
	io.OnEvent("/", "quiz:status", func(s socketio.Conn, payload struct {
		Status detect.Status `json:"status"`
	}) map[string]any {
		return srv.status(s, payload.Status)
	})
	io.OnEvent("/", "quiz:statusError", func(s socketio.Conn, payload struct {
		Message string `json:"message"`
	}) map[string]any {
		return srv.statusError(s, payload.Message)
	})
	io.OnEvent("/", "quiz:submit", func(s socketio.Conn, payload struct {
		Name        string              `json:"name"`
		Leaderboard []leaderboard.Entry `json:"leaderboard"`
	}) map[string]any {
		return srv.submit(s, payload.Name, payload.Leaderboard)
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		if s == nil {
			log.Error().Err(e).Msg("socket error")
			return
		}
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		srv.disconnect(s)
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go func() {
		if err := io.Serve(); err != nil {
			log.Error().Err(err).Msg("socket.io serve")
		}
	}()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))

	// Basic CORS preflight for Socket.IO POST
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		origin := srv.config.CORS.AllowOrigin
		if origin == "" {
			origin = "*"
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

// Active reports the number of connected quiz sessions.
func (srv *Server) Active() int {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return len(srv.members)
}

func (srv *Server) connect(s socketio.Conn) {
	sess := srv.Quizzes.Create(quiz.OnFinish(srv.exportResult))
	ctx, cancel := context.WithCancel(context.Background())
	m := &member{conn: s, session: sess, cancel: cancel}
	s.SetContext(&ConnCtx{SessionID: sess.ID})

	srv.mu.Lock()
	srv.members[sess.ID] = m
	srv.mu.Unlock()

	// status arrives from the browser, so the runner only counts down
	runner := &quiz.Runner{
		Session:      sess,
		TickInterval: srv.tick,
		OnChange:     func(st quiz.State) { s.Emit("quiz:state", st) },
	}
	go runner.Run(ctx)

	log.Info().Str("sid", s.ID()).Str("session", sess.ID).Msg("socket connected")
	srv.emitState(m)
}

func (srv *Server) disconnect(s socketio.Conn) {
	ctx, ok := s.Context().(*ConnCtx)
	if !ok || ctx.SessionID == "" {
		return
	}
	srv.mu.Lock()
	m := srv.members[ctx.SessionID]
	delete(srv.members, ctx.SessionID)
	srv.mu.Unlock()
	if m != nil {
		m.cancel()
	}
	srv.Quizzes.Remove(ctx.SessionID)
}

func (srv *Server) lookup(s socketio.Conn) (*member, error) {
	ctx, ok := s.Context().(*ConnCtx)
	if !ok {
		return nil, quiz.ErrSessionNotFound
	}
	srv.mu.Lock()
	defer srv.mu.Unlock()
	m := srv.members[ctx.SessionID]
	if m == nil {
		return nil, quiz.ErrSessionNotFound
	}
	return m, nil
}

func (srv *Server) start(s socketio.Conn, mode string) map[string]any {
	m, err := srv.lookup(s)
	if err != nil {
		return srv.fail(s, err)
	}
	if err := m.session.Start(quiz.Mode(mode)); err != nil {
		return srv.fail(s, err)
	}
	log.Info().Str("session", m.session.ID).Str("mode", mode).Msg("quiz:start")
	srv.emitState(m)
	return map[string]any{"ok": true}
}

func (srv *Server) capture(s socketio.Conn) map[string]any {
	m, err := srv.lookup(s)
	if err != nil {
		return srv.fail(s, err)
	}
	res, err := m.session.Capture()
	if errors.Is(err, quiz.ErrCaptureBusy) {
		return map[string]any{"ignored": true}
	}
	if err != nil {
		return srv.fail(s, err)
	}
	log.Debug().Str("session", m.session.ID).Str("target", res.Target).Str("label", res.Prediction.Label).Bool("correct", res.Correct).Msg("quiz:capture")
	srv.emitState(m)
	// feedback clears itself; push the cleared state once the window has passed
	time.AfterFunc(quiz.FeedbackWindow, func() { srv.emitState(m) })
	return map[string]any{"target": res.Target, "prediction": res.Prediction, "correct": res.Correct}
}

func (srv *Server) skip(s socketio.Conn) map[string]any {
	m, err := srv.lookup(s)
	if err != nil {
		return srv.fail(s, err)
	}
	if err := m.session.Skip(); err != nil {
		return srv.fail(s, err)
	}
	srv.emitState(m)
	return map[string]any{"ok": true}
}

func (srv *Server) choose(s socketio.Conn, letter string) map[string]any {
	m, err := srv.lookup(s)
	if err != nil {
		return srv.fail(s, err)
	}
	if err := m.session.Choose(letter); err != nil {
		return srv.fail(s, err)
	}
	srv.emitState(m)
	return map[string]any{"ok": true}
}

func (srv *Server) restart(s socketio.Conn) map[string]any {
	m, err := srv.lookup(s)
	if err != nil {
		return srv.fail(s, err)
	}
	m.session.Restart()
	srv.emitState(m)
	return map[string]any{"ok": true}
}

func (srv *Server) status(s socketio.Conn, st detect.Status) map[string]any {
	m, err := srv.lookup(s)
	if err != nil {
		return srv.fail(s, err)
	}
	m.session.OnStatusUpdate(st)
	srv.emitState(m)
	return map[string]any{"ok": true}
}

func (srv *Server) statusError(s socketio.Conn, message string) map[string]any {
	m, err := srv.lookup(s)
	if err != nil {
		return srv.fail(s, err)
	}
	m.session.OnStatusError(errors.New(message))
	srv.emitState(m)
	return map[string]any{"ok": true}
}

// submit runs the submission against the board the browser sent and returns the updated
// board for it to store.
func (srv *Server) submit(s socketio.Conn, name string, rows []leaderboard.Entry) map[string]any {
	m, err := srv.lookup(s)
	if err != nil {
		return srv.fail(s, err)
	}
	board := leaderboard.New(leaderboard.Seeded(leaderboard.Key, rows), leaderboard.Key)
	entry, ranked, err := m.session.SubmitScore(context.Background(), board, name)
	if err != nil {
		return srv.fail(s, err)
	}
	log.Info().Str("session", m.session.ID).Str("name", entry.Name).Int("score", entry.Score).Msg("quiz:submit")
	srv.emitState(m)
	return map[string]any{"entry": entry, "leaderboard": ranked}
}

func (srv *Server) exportResult(r quiz.Result) {
	log.Info().Str("session", r.SessionID).Int("score", r.Score).Msg("quiz finished")
	if !srv.config.Quiz.ExportEnabled {
		return
	}
	if err := quiz.ExportResult(r, srv.config.Quiz.ExportFile); err != nil {
		log.Error().Err(err).Str("session", r.SessionID).Msg("failed to export quiz result")
		return
	}
	log.Info().Str("session", r.SessionID).Str("file", srv.config.Quiz.ExportFile).Msg("exported quiz result")
}

func (srv *Server) emitState(m *member) {
	m.conn.Emit("quiz:state", m.session.Snapshot())
}

func (srv *Server) fail(s socketio.Conn, err error) map[string]any {
	return srv.err(s, errorCode(err), err.Error())
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	s.Emit("error", map[string]any{"code": code, "message": message})
	return map[string]any{"error": message}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, quiz.ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, quiz.ErrInvalidPhase):
		return "invalid_phase"
	case errors.Is(err, quiz.ErrAlreadySubmitted):
		return "already_submitted"
	default:
		return "bad_request"
	}
}
