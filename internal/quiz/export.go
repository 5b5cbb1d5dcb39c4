package quiz

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExportResult appends a finished game to a plain-text results file.
func ExportResult(r Result, filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	fileExists := false
	if _, err := os.Stat(filename); err == nil {
		fileExists = true
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var sb strings.Builder
	if fileExists {
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("InSignia Quiz Result - Session %s\n", r.SessionID))
	sb.WriteString(fmt.Sprintf("Started: %s\n", r.StartedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("Finished: %s\n", r.FinishedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(strings.Repeat("=", 50) + "\n")

	correct := 0
	for _, a := range r.Answers {
		sb.WriteString(fmt.Sprintf("%2d. %s -> %s (%s)\n", a.Index, a.Target, a.Label, a.Outcome))
		if a.Outcome == OutcomeCorrect {
			correct++
		}
	}
	sb.WriteString(strings.Repeat("-", 40) + "\n")
	sb.WriteString(fmt.Sprintf("Correct: %d/%d\n", correct, MaxQuestions))
	sb.WriteString(fmt.Sprintf("Score: %d/%d\n", r.Score, MaxScore))

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}
