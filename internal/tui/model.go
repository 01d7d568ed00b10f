// Package tui is an interactive viewer for alignment reports.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"esgalign/internal/domain"
	"esgalign/internal/textutil"
)

// MatrixPort is the TUI-facing subset of the alignment service.
type MatrixPort interface {
	Matrix(ctx context.Context, codes []string, category domain.Category) (*domain.Matrix, error)
}

type pane int

const (
	paneTopics pane = iota
	paneNeighbours
)

// Model is the Bubble Tea model of the report viewer.
type Model struct {
	matrix   MatrixPort
	title    string
	synopsis string
	report   *domain.Report

	input      textinput.Model
	viewport   viewport.Model
	cursor     int
	pane       pane
	category   domain.Category
	similarity map[domain.Category]*domain.Matrix
	status     string
	ready      bool
}

// New creates a viewer for report. matrix may be nil, which disables the
// neighbours pane.
func New(matrix MatrixPort, title, synopsis string, report *domain.Report) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Framework code, or Enter to toggle similar frameworks"
	ti.Focus()
	ti.CharLimit = 16
	vp := viewport.New(0, 0)
	return Model{
		matrix:     matrix,
		category:   domain.CategoryAll,
		similarity: make(map[domain.Category]*domain.Matrix),
		title:      title,
		synopsis:   synopsis,
		report:     report,
		input:      ti,
		viewport:   vp,
		status:     "Up/Down to move between frameworks. Ctrl+C to quit.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, dh := detailBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 3 + m.frameworkCount() + ih + 1
		m.viewport.Width = max(20, msg.Width-4)
		m.viewport.Height = max(3, msg.Height-reserved-dh)
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			m = m.submit(strings.TrimSpace(m.input.Value()))
			m.input.SetValue("")
			m.refresh()
			return m, nil
		case "down":
			if n := m.frameworkCount(); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.refresh()
			}
			return m, nil
		case "up":
			if n := m.frameworkCount(); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.refresh()
			}
			return m, nil
		case "tab":
			if m.pane == paneNeighbours {
				m = m.nextCategory()
				m.refresh()
				return m, nil
			}
		case "pgdown", "pgup":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit jumps to a framework code, or toggles the neighbours pane when
// the input is empty.
func (m Model) submit(value string) Model {
	if value != "" {
		for i, fw := range m.frameworks() {
			if strings.EqualFold(fw.Code, value) {
				m.cursor = i
				m.status = "Showing " + fw.Code
				return m
			}
		}
		m.status = fmt.Sprintf("Unknown framework %q", value)
		return m
	}
	if m.pane == paneNeighbours {
		m.pane = paneTopics
		m.status = "Topic scores"
		return m
	}
	if m.matrix == nil {
		m.status = "Similarity matrix unavailable"
		return m
	}
	if err := m.loadMatrix(m.category); err != nil {
		m.status = "Error: " + err.Error()
		return m
	}
	m.pane = paneNeighbours
	m.status = "Similar frameworks (" + string(m.category) + " topics). Tab changes the topic category."
	return m
}

// nextCategory moves the neighbours pane to the next topic category that
// yields a matrix.
func (m Model) nextCategory() Model {
	i := 0
	for j, c := range domain.Categories {
		if c == m.category {
			i = j
		}
	}
	for step := 1; step <= len(domain.Categories); step++ {
		c := domain.Categories[(i+step)%len(domain.Categories)]
		if err := m.loadMatrix(c); err != nil {
			m.status = "Error: " + err.Error()
			continue
		}
		m.category = c
		m.status = "Similar frameworks (" + string(c) + " topics). Tab changes the topic category."
		return m
	}
	return m
}

func (m Model) loadMatrix(c domain.Category) error {
	if _, ok := m.similarity[c]; ok {
		return nil
	}
	mx, err := m.matrix.Matrix(context.Background(), nil, c)
	if err != nil {
		return err
	}
	m.similarity[c] = mx
	return nil
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("ESG alignment: "+m.title) + "\n")
	b.WriteString(dimStyle.Render(textutil.Excerpt(m.synopsis, max(20, m.viewport.Width))) + "\n")
	for i, fw := range m.frameworks() {
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		line := fmt.Sprintf("%s%-6s %-40s %s", marker, fw.Code, textutil.Excerpt(fw.DisplayName, 40), scoreStyle(fw.OverallScore).Render(fmt.Sprintf("%.3f", fw.OverallScore)))
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(detailBoxStyle.Render(m.viewport.View()) + "\n")
	b.WriteString(inputBoxStyle.Render(m.input.View()) + "\n")
	b.WriteString(statusStyle.Render(m.status))
	return b.String()
}

func (m *Model) refresh() {
	if m.pane == paneNeighbours {
		m.viewport.SetContent(m.renderNeighbours())
	} else {
		m.viewport.SetContent(m.renderTopics())
	}
	m.viewport.GotoTop()
}

func (m Model) renderTopics() string {
	fw, ok := m.current()
	if !ok {
		return "No frameworks scored."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s  overall=%.3f\n", fw.DisplayName, fw.OverallScore)
	for _, t := range fw.Topics {
		name := t.TopicName
		if name == "" {
			name = t.TopicID
		}
		fmt.Fprintf(&b, "\n%s  %s  [%s]\n", lipgloss.NewStyle().Bold(true).Render(name), scoreStyle(t.Score).Render(fmt.Sprintf("%.3f", t.Score)), t.Band)
		fmt.Fprintf(&b, "%s\n", dimStyle.Render(t.Explanation))
		fmt.Fprintf(&b, "Requirement: %s\n", t.BestMatch.RequirementText)
		fmt.Fprintf(&b, "Page %d: %s\n", t.BestMatch.SegmentPage, highlightBestSentence(t.BestMatch.SegmentExcerpt, t.BestMatch.RequirementText))
	}
	return b.String()
}

func (m Model) renderNeighbours() string {
	fw, ok := m.current()
	if !ok {
		return "No frameworks scored."
	}
	mx, ok := m.similarity[m.category]
	if !ok {
		return "Similarity matrix not loaded."
	}
	neighbours := mx.Neighbours(fw.Code)
	if neighbours == nil {
		return fmt.Sprintf("%s has no %s topics.", fw.Code, m.category)
	}
	if len(neighbours) == 0 {
		return "No similar frameworks for " + fw.Code
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Frameworks most similar to %s (%s topics)\n\n", fw.Code, m.category)
	for _, n := range neighbours {
		fmt.Fprintf(&b, "%-6s %s\n", n.Code, scoreStyle(n.Similarity).Render(fmt.Sprintf("%.3f", n.Similarity)))
	}
	return b.String()
}

func (m Model) frameworks() []domain.FrameworkScore {
	if m.report == nil {
		return nil
	}
	return m.report.Frameworks
}

func (m Model) frameworkCount() int { return len(m.frameworks()) }

func (m Model) current() (domain.FrameworkScore, bool) {
	fws := m.frameworks()
	if m.cursor < 0 || m.cursor >= len(fws) {
		return domain.FrameworkScore{}, false
	}
	return fws[m.cursor], true
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	selectedStyle  = lipgloss.NewStyle().Bold(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	detailBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// scoreStyle colours a score green, yellow, orange or red.
func scoreStyle(score float64) lipgloss.Style {
	switch {
	case score >= 0.4:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	case score >= 0.3:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	case score >= 0.2:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	}
}

// highlightBestSentence emphasises the sentence of text sharing the most
// words with requirement.
func highlightBestSentence(text, requirement string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := textutil.Sentences(text)
	reqTokens := textutil.TokenSet(requirement)
	if len(reqTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx, bestScore := 0, -1
	for i, s := range sentences {
		if score := tokenOverlapScore(reqTokens, s); score > bestScore {
			bestScore, bestIdx = score, i
		}
	}
	out := make([]string, len(sentences))
	for i, s := range sentences {
		if i == bestIdx {
			out[i] = highlightStyle.Render(s)
		} else {
			out[i] = s
		}
	}
	return strings.Join(out, " ")
}

func tokenOverlapScore(reqTokens map[string]struct{}, sentence string) int {
	score := 0
	for t := range textutil.TokenSet(sentence) {
		if textutil.IsStopword(t) {
			continue
		}
		if _, ok := reqTokens[t]; ok {
			score++
		}
	}
	return score
}
