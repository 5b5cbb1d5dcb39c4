package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/kiliankoe/insignia/internal/leaderboard"
	"github.com/kiliankoe/insignia/internal/quiz"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	targetStyle  = lipgloss.NewStyle().Bold(true).Padding(1, 4).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#8C8C8C"))
	successStyle = targetStyle.Copy().BorderForeground(lipgloss.Color("#52C41A"))
	failStyle    = targetStyle.Copy().BorderForeground(lipgloss.Color("#FF4D4F"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	switch m.state.Phase {
	case quiz.PhaseRunning:
		body = m.renderRunning()
	case quiz.PhaseFinished:
		body = m.renderFinished()
	default:
		body = m.renderIdle()
	}

	parts := []string{titleStyle.Render("InSignia"), body}
	if m.state.Error != "" {
		parts = append(parts, errorStyle.Render(m.state.Error))
	}
	if m.message != "" {
		parts = append(parts, labelStyle.Render(m.message))
	}
	content := lipgloss.JoinVertical(lipgloss.Center, parts...)
	footer := footerStyle.Render(m.renderHelp())

	if m.width == 0 || m.height < 3 {
		return content + "\n" + footer
	}
	bodyView := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	return bodyView + "\n" + lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
}

func (m *Model) renderIdle() string {
	return lipgloss.JoinVertical(lipgloss.Center,
		"Show the sign for each letter to the camera.",
		labelStyle.Render("n normal game  p practice"),
		"",
		m.renderBoard(),
	)
}

func (m *Model) renderRunning() string {
	st := m.state
	box := targetStyle
	switch st.Feedback {
	case quiz.FeedbackSuccess:
		box = successStyle
	case quiz.FeedbackFail:
		box = failStyle
	}

	stats := []string{
		labelStyle.Render("Question ") + st.Progress,
		labelStyle.Render("Score ") + strconv.Itoa(st.Score),
	}
	if st.Mode == quiz.ModeNormal {
		timer := strconv.Itoa(st.RemainingSeconds) + "s"
		if !st.CameraActive {
			timer += " (paused)"
		}
		stats = append(stats, labelStyle.Render("Time ")+timer)
	}

	return lipgloss.JoinVertical(lipgloss.Center,
		strings.Join(stats, "   "),
		box.Render(st.Target),
		renderPrediction(st.Prediction),
		renderCamera(st),
	)
}

func (m *Model) renderFinished() string {
	lines := []string{
		fmt.Sprintf("Final score %d/%d", m.state.Score, quiz.MaxScore),
	}
	switch {
	case m.last != nil:
		lines = append(lines, fmt.Sprintf("Saved %s with %d points", m.last.Name, m.last.Score))
	case m.name.Focused():
		lines = append(lines, m.name.View())
	case !m.state.Submitted:
		lines = append(lines, labelStyle.Render("enter to save your score"))
	}
	lines = append(lines, "", m.renderBoard())
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) renderBoard() string {
	if len(m.rows) == 0 {
		return labelStyle.Render("No scores yet")
	}
	return boardTable(m.rows).View()
}

func (m *Model) renderHelp() string {
	switch {
	case m.name.Focused():
		return "enter save · esc cancel · ctrl+c quit"
	case m.state.Phase == quiz.PhaseRunning && m.state.Mode == quiz.ModePractice:
		return "space capture · s skip · A-Y pick letter · c camera · r restart · q quit"
	case m.state.Phase == quiz.PhaseRunning:
		return "space capture · s skip · c camera · r restart · q quit"
	default:
		return "n normal · p practice · c camera · r restart · q quit"
	}
}

func renderPrediction(p quiz.Prediction) string {
	if p.Label == quiz.NoLabel {
		return labelStyle.Render("Detected ") + quiz.NoLabel
	}
	return labelStyle.Render("Detected ") + fmt.Sprintf("%s (%.0f%%)", p.Label, p.Confidence*100)
}

func renderCamera(st quiz.State) string {
	if !st.CameraActive {
		return labelStyle.Render("camera off")
	}
	return labelStyle.Render(fmt.Sprintf("camera %d · %.1f fps", st.Status.CurrentCameraID, st.Status.FPS))
}

func boardTable(rows []leaderboard.Entry) table.Model {
	columns := []table.Column{
		{Title: "#", Width: 3},
		{Title: "Name", Width: 16},
		{Title: "Score", Width: 6},
		{Title: "Date", Width: 10},
	}
	data := make([]table.Row, 0, len(rows))
	for i, e := range rows {
		data = append(data, table.Row{
			strconv.Itoa(i + 1),
			e.Name,
			strconv.Itoa(e.Score),
			e.Timestamp.Local().Format("2006-01-02"),
		})
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(data),
		table.WithHeight(len(data)+1),
	)
	styles := table.DefaultStyles()
	styles.Selected = lipgloss.NewStyle()
	t.SetStyles(styles)
	return t
}
