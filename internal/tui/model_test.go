package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esgalign/internal/domain"
)

type stubMatrix struct {
	calls      int
	err        error
	categories []domain.Category
}

func (s *stubMatrix) Matrix(ctx context.Context, codes []string, category domain.Category) (*domain.Matrix, error) {
	s.calls++
	s.categories = append(s.categories, category)
	if s.err != nil {
		return nil, s.err
	}
	if category == domain.CategoryGovernance {
		return &domain.Matrix{Codes: []string{"TCFD", "TNFD"}, Values: [][]float64{{1, 0.9}, {0.9, 1}}}, nil
	}
	if category != domain.CategoryAll {
		return nil, &domain.SelectionError{}
	}
	return &domain.Matrix{
		Codes:  []string{"TCFD", "TNFD", "SBTi"},
		Values: [][]float64{{1, 0.6, 0.3}, {0.6, 1, 0.2}, {0.3, 0.2, 1}},
	}, nil
}

func testReport() *domain.Report {
	return &domain.Report{Frameworks: []domain.FrameworkScore{
		{Code: "TCFD", DisplayName: "Task Force on Climate-related Financial Disclosures", OverallScore: 0.42, Topics: []domain.TopicScore{{
			TopicID: "Governance", TopicName: "Governance", Score: 0.42, Band: domain.BandGood,
			Explanation: domain.BandGood.Explanation(),
			BestMatch: domain.Match{
				RequirementText: "Board oversight of climate-related risks",
				SegmentPage:     2,
				SegmentExcerpt:  "We publish annually. The board oversees climate-related risks.",
			},
		}}},
		{Code: "TNFD", DisplayName: "Taskforce on Nature-related Financial Disclosures", OverallScore: 0.21, Topics: []domain.TopicScore{{
			TopicID: "Strategy", Score: 0.21, Band: domain.BandWeak,
		}}},
		{Code: "SBTi", DisplayName: "Science Based Targets initiative", OverallScore: 0.05},
	}}
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

func press(t *testing.T, m Model, k tea.KeyType) Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: k})
	return next.(Model)
}

func TestView_LoadingUntilSized(t *testing.T) {
	m := New(nil, "report.txt", "", testReport())
	assert.Equal(t, "Loading...", m.View())
}

func TestView_ShowsFrameworksAndTopics(t *testing.T) {
	m := sized(t, New(nil, "report.txt", "A short synopsis.", testReport()))
	v := m.View()
	assert.Contains(t, v, "report.txt")
	assert.Contains(t, v, "A short synopsis.")
	assert.Contains(t, v, "TCFD")
	assert.Contains(t, v, "SBTi")
	assert.Contains(t, v, "Governance")
	assert.Contains(t, v, "Page 2")
}

func TestUpdate_CursorWraps(t *testing.T) {
	m := sized(t, New(nil, "r", "", testReport()))
	m = press(t, m, tea.KeyDown)
	assert.Equal(t, 1, m.cursor)
	m = press(t, m, tea.KeyUp)
	m = press(t, m, tea.KeyUp)
	assert.Equal(t, 2, m.cursor)
	assert.Contains(t, m.renderTopics(), "Science Based Targets initiative")
}

func TestUpdate_JumpToCode(t *testing.T) {
	m := sized(t, New(nil, "r", "", testReport()))
	m.input.SetValue("tnfd")
	m = press(t, m, tea.KeyEnter)
	assert.Equal(t, 1, m.cursor)
	assert.Empty(t, m.input.Value())

	m.input.SetValue("XYZ")
	m = press(t, m, tea.KeyEnter)
	assert.Equal(t, 1, m.cursor)
	assert.Contains(t, m.status, "Unknown framework")
}

func TestUpdate_ToggleNeighbours(t *testing.T) {
	port := &stubMatrix{}
	m := sized(t, New(port, "r", "", testReport()))

	m = press(t, m, tea.KeyEnter)
	assert.Equal(t, paneNeighbours, m.pane)
	out := m.renderNeighbours()
	assert.Contains(t, out, "most similar to TCFD")
	assert.Less(t, strings.Index(out, "TNFD"), strings.Index(out, "SBTi"))

	// Moving keeps the pane and reuses the fetched matrix.
	m = press(t, m, tea.KeyDown)
	assert.Contains(t, m.renderNeighbours(), "most similar to TNFD")
	assert.Equal(t, 1, port.calls)

	m = press(t, m, tea.KeyEnter)
	assert.Equal(t, paneTopics, m.pane)
}

func TestUpdate_NeighboursByTopicCategory(t *testing.T) {
	port := &stubMatrix{}
	m := sized(t, New(port, "r", "", testReport()))
	m = press(t, m, tea.KeyEnter)
	require.Equal(t, paneNeighbours, m.pane)

	m = press(t, m, tea.KeyTab)
	assert.Equal(t, domain.CategoryGovernance, m.category)
	out := m.renderNeighbours()
	assert.Contains(t, out, "most similar to TCFD (governance topics)")
	assert.Contains(t, out, "0.900")
	assert.Equal(t, []domain.Category{domain.CategoryAll, domain.CategoryGovernance}, port.categories)

	// SBTi is not in the governance matrix.
	m = press(t, m, tea.KeyUp)
	assert.Contains(t, m.renderNeighbours(), "SBTi has no governance topics")

	// Categories without a matrix are skipped on the way back to all.
	m = press(t, m, tea.KeyTab)
	assert.Equal(t, domain.CategoryAll, m.category)
}

func TestUpdate_NeighboursUnavailable(t *testing.T) {
	m := sized(t, New(nil, "r", "", testReport()))
	m = press(t, m, tea.KeyEnter)
	assert.Equal(t, paneTopics, m.pane)
	assert.Contains(t, m.status, "unavailable")

	m = sized(t, New(&stubMatrix{err: errors.New("boom")}, "r", "", testReport()))
	m = press(t, m, tea.KeyEnter)
	assert.Equal(t, paneTopics, m.pane)
	assert.Contains(t, m.status, "boom")
}

func TestUpdate_Quit(t *testing.T) {
	m := New(nil, "r", "", testReport())
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestHighlightBestSentence(t *testing.T) {
	text := "We publish annually. The board oversees climate-related risks."
	got := highlightBestSentence(text, "Board oversight of climate-related risks")
	assert.Contains(t, got, "We publish annually.")
	assert.Contains(t, got, "The board oversees climate-related risks.")

	assert.Equal(t, tokenOverlapScore(map[string]struct{}{"board": {}, "risks": {}}, "The board oversees risks."), 2)
	assert.Equal(t, "", highlightBestSentence("", "anything"))
}

func TestScoreStyleThresholds(t *testing.T) {
	assert.Equal(t, scoreStyle(0.45).GetForeground(), scoreStyle(0.4).GetForeground())
	assert.NotEqual(t, scoreStyle(0.4).GetForeground(), scoreStyle(0.39).GetForeground())
	assert.NotEqual(t, scoreStyle(0.2).GetForeground(), scoreStyle(0.19).GetForeground())
}
