// Package main provides the CLI entrypoint for InSignia.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kiliankoe/insignia/internal/alphabet"
	"github.com/kiliankoe/insignia/internal/api"
	"github.com/kiliankoe/insignia/internal/config"
	"github.com/kiliankoe/insignia/internal/dataset"
	"github.com/kiliankoe/insignia/internal/detect"
	"github.com/kiliankoe/insignia/internal/leaderboard"
	"github.com/kiliankoe/insignia/internal/logger"
	"github.com/kiliankoe/insignia/internal/quiz"
	"github.com/kiliankoe/insignia/internal/store"
	"github.com/kiliankoe/insignia/internal/tui"
	"github.com/kiliankoe/insignia/internal/ws"
	staticserver "github.com/kiliankoe/insignia/static"
)

const version = "v1.0.0-dev"

var (
	servePort string

	scanClass  int
	scanLetter string

	quizLogFile string

	boardJSON bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "insignia",
		Short:        "Sign language alphabet dictionary and quiz",
		SilenceUsage: true,
		RunE:         runServeCmd,
	}
	rootCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (overrides PORT)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newQuizCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and Socket.IO backend",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&servePort, "port", "", "port to listen on (overrides PORT)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Port = servePort
	}
	logger.Setup(cfg.Log, cfg.Env)

	dict, err := newDictionary(cfg)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	r := api.NewRouter(api.Options{
		Dictionary:  dict,
		DatasetRoot: cfg.Dataset.Root,
		PublicPath:  cfg.Dataset.PublicPath,
		AllowOrigin: cfg.CORS.AllowOrigin,
		Frontend:    staticserver.Handler(),
	})

	sock := ws.New(quiz.NewManager(), *cfg)
	sio := sock.Mount(r)
	defer sio.Close()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("dataset", cfg.Dataset.Root).Str("detect", cfg.Detect.URL).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newDictionary(cfg *config.Config) (api.Dictionary, error) {
	svc := dataset.NewService(dataset.Layout{
		Root:       cfg.Dataset.Root,
		Split:      cfg.Dataset.Split,
		PublicPath: cfg.Dataset.PublicPath,
		MaxSamples: cfg.Dataset.MaxSamples,
	})
	if cfg.Dataset.CacheSize == 0 {
		return svc, nil
	}
	return dataset.NewCachedService(svc, cfg.Dataset.CacheSize)
}

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Print the dictionary entry for one class",
		Args:  cobra.NoArgs,
		RunE:  runScanCmd,
	}
	cmd.Flags().IntVar(&scanClass, "class", -1, "class id")
	cmd.Flags().StringVar(&scanLetter, "letter", "", "letter, instead of --class")
	return cmd
}

func runScanCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	classID := scanClass
	if scanLetter != "" {
		id, ok := alphabet.ClassID(scanLetter)
		if !ok {
			return fmt.Errorf("unknown letter %q", scanLetter)
		}
		classID = id
	}
	if classID < 0 {
		return errors.New("one of --class or --letter is required")
	}

	dict, err := newDictionary(cfg)
	if err != nil {
		return err
	}
	res, err := dict.Lookup(cmd.Context(), classID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func newQuizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Play the quiz in the terminal against the detection server",
		Args:  cobra.NoArgs,
		RunE:  runQuizCmd,
	}
	cmd.Flags().StringVar(&quizLogFile, "log-file", "", "write logs to this file while the quiz runs")
	return cmd
}

func runQuizCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// the TUI owns the terminal; logs go to a file or nowhere
	var out io.Writer = io.Discard
	if quizLogFile != "" {
		f, err := os.OpenFile(quizLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		out = f
	}
	logger.SetupTo(out, cfg.Log, cfg.Env)

	st, err := store.Open(cfg.Leaderboard.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("failed to close db")
		}
	}()

	client := detect.New(cfg.Detect.URL, cfg.Detect.Timeout)
	sess := quiz.NewSession(quiz.OnFinish(func(r quiz.Result) {
		if !cfg.Quiz.ExportEnabled {
			return
		}
		if err := quiz.ExportResult(r, cfg.Quiz.ExportFile); err != nil {
			log.Error().Err(err).Msg("failed to export quiz result")
		}
	}))
	model := tui.NewModel(sess, leaderboard.New(st, leaderboard.Key), client)
	program := tea.NewProgram(model, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	runner := &quiz.Runner{
		Session:      sess,
		Source:       client,
		PollInterval: cfg.Detect.PollInterval,
		TickInterval: time.Second,
		OnChange:     func(s quiz.State) { program.Send(tui.StateMsg(s)) },
	}
	go runner.Run(ctx)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newLeaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the local top scores",
		Args:  cobra.NoArgs,
		RunE:  runLeaderboardCmd,
	}
	cmd.Flags().BoolVar(&boardJSON, "json", false, "print as JSON")
	return cmd
}

func runLeaderboardCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Leaderboard.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer st.Close()

	rows, err := leaderboard.New(st, leaderboard.Key).List(cmd.Context())
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if boardJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No scores yet")
		return err
	}
	for i, e := range rows {
		if _, err := fmt.Fprintf(w, "%2d. %-16s %3d  %s\n", i+1, e.Name, e.Score, e.Timestamp.Local().Format("2006-01-02 15:04")); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "InSignia %s\n", version)
			return err
		},
	}
}
