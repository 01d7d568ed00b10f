package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"esgalign/internal/service"
	"esgalign/internal/tui"
)

var (
	analyzeFrameworks []string
	analyzeJSON       bool
	analyzeTUI        bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Score a report against ESG frameworks",
	Long: `Extracts the report, splits it into segments and scores every topic of
the selected frameworks by its best matching requirement and segment.
Frameworks are ranked by the mean of their topic scores.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringSliceVarP(&analyzeFrameworks, "frameworks", "f", nil, "framework codes to score (default all)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "output the analysis as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeTUI, "tui", false, "browse the report interactively")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if alignmentService == nil {
		return errors.New("alignment service not configured")
	}
	codes := analyzeFrameworks
	if len(codes) == 0 {
		for _, fw := range alignmentService.Frameworks() {
			codes = append(codes, fw.Code)
		}
	}

	a, err := alignmentService.Analyze(cmd.Context(), args[0], codes)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	switch {
	case analyzeJSON:
		return outputAnalysisJSON(cmd, a)
	case analyzeTUI:
		m := tui.New(alignmentService, a.Document, a.Synopsis, a.Report)
		_, err := tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
		return err
	}
	return outputAnalysisTable(cmd, a)
}

func outputAnalysisJSON(cmd *cobra.Command, a *service.Analysis) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnalysisTable(cmd *cobra.Command, a *service.Analysis) error {
	cmd.Printf("%s (%d pages, %d segments, embedder %s)\n", a.Document, a.Pages, len(a.Segments), a.Embedder)
	if a.Synopsis != "" {
		cmd.Printf("\n%s\n", a.Synopsis)
	}
	cmd.Println()
	for i, fw := range a.Report.Frameworks {
		cmd.Printf("  [%d] %-6s %.3f  %s\n", i+1, fw.Code, fw.OverallScore, fw.DisplayName)
		for _, t := range fw.Topics {
			name := t.TopicName
			if name == "" {
				name = t.TopicID
			}
			cmd.Printf("        %-28s %.3f  %s\n", name, t.Score, t.Band)
		}
	}
	return nil
}
