// Package cli is the esgalign command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"esgalign/internal/config"
	"esgalign/internal/domain"
	"esgalign/internal/logger"
	"esgalign/internal/service"
)

// Analyzer is the CLI-facing subset of the alignment service.
type Analyzer interface {
	Analyze(ctx context.Context, path string, codes []string) (*service.Analysis, error)
	Matrix(ctx context.Context, codes []string, category domain.Category) (*domain.Matrix, error)
	Frameworks() []domain.Framework
}

var (
	configPath string
	verbose    bool

	// alignmentService is built from config on first use unless already set.
	alignmentService Analyzer
	cleanup          func() error
	log              = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "esgalign",
	Short: "Score sustainability reports against ESG disclosure frameworks",
	Long: `esgalign measures how closely a sustainability report addresses the
requirements of ESG disclosure frameworks such as TCFD, TNFD, ESRS and SBTi,
and how similar the frameworks are to each other.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file (default ./config.yaml or ~/.config/esgalign/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command and releases whatever it opened.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if cleanup != nil {
		err = errors.Join(err, cleanup())
		cleanup = nil
	}
	_ = log.Sync()
	return err
}

func setup(cmd *cobra.Command, _ []string) error {
	if alignmentService != nil {
		return nil
	}
	var (
		cfg *config.AppConfig
		err error
	)
	if configPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(configPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if log, err = logger.New(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	svc, closeFn, err := Build(cfg, log)
	if err != nil {
		return err
	}
	alignmentService, cleanup = svc, closeFn
	return nil
}
