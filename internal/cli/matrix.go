package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"esgalign/internal/domain"
)

var (
	matrixFrameworks []string
	matrixJSON       bool
	matrixNeighbour  string
	matrixTopic      string
)

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Show how similar the frameworks are to each other",
	Long: `Represents each framework by the mean of its topic vectors, each topic by
the mean of its requirement vectors, and prints the pairwise cosine
similarity of those framework vectors. --topic limits the vectors to one
kind of topic (governance, strategy, risk, metrics, disclosure); frameworks
without such a topic are left out.`,
	Args: cobra.NoArgs,
	RunE: runMatrix,
}

func init() {
	matrixCmd.Flags().StringSliceVarP(&matrixFrameworks, "frameworks", "f", nil, "framework codes to include (default all)")
	matrixCmd.Flags().BoolVar(&matrixJSON, "json", false, "output the matrix as JSON")
	matrixCmd.Flags().StringVar(&matrixNeighbour, "framework", "", "list frameworks by similarity to this one")
	matrixCmd.Flags().StringVarP(&matrixTopic, "topic", "t", "all", "topic category: all, governance, strategy, risk, metrics, disclosure")
	rootCmd.AddCommand(matrixCmd)
}

func runMatrix(cmd *cobra.Command, _ []string) error {
	if alignmentService == nil {
		return errors.New("alignment service not configured")
	}
	category, err := domain.ParseCategory(matrixTopic)
	if err != nil {
		return err
	}
	m, err := alignmentService.Matrix(cmd.Context(), matrixFrameworks, category)
	if err != nil {
		return fmt.Errorf("matrix failed: %w", err)
	}

	if matrixNeighbour != "" {
		code := matrixNeighbour
		for _, c := range m.Codes {
			if strings.EqualFold(c, code) {
				code = c
			}
		}
		neighbours := m.Neighbours(code)
		if neighbours == nil {
			return fmt.Errorf("%w: %s is not in the matrix", domain.ErrInvalidSelection, matrixNeighbour)
		}
		if matrixJSON {
			return printJSON(cmd, neighbours)
		}
		cmd.Printf("Frameworks most similar to %s (%s topics):\n", code, category)
		for _, n := range neighbours {
			cmd.Printf("  %-6s %.3f\n", n.Code, n.Similarity)
		}
		return nil
	}

	if matrixJSON {
		return printJSON(cmd, m)
	}
	cmd.Printf("%-6s", "")
	for _, c := range m.Codes {
		cmd.Printf(" %6s", c)
	}
	cmd.Println()
	for i, row := range m.Values {
		cmd.Printf("%-6s", m.Codes[i])
		for _, v := range row {
			cmd.Printf(" %6.3f", v)
		}
		cmd.Println()
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
