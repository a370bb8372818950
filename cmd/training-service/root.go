package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CS-UWC/OralSmart-sub001/pkg/common/config"
	"github.com/CS-UWC/OralSmart-sub001/pkg/common/logger"
	"github.com/CS-UWC/OralSmart-sub001/pkg/risk"
	"github.com/CS-UWC/OralSmart-sub001/pkg/training"
)

var rootCmd = &cobra.Command{
	Use:   "training-service",
	Short: "Train and publish oral health risk models",
	Long:  "Serves the training job API by default. The train and sample subcommands run one-off jobs from the shell.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("artifacts", "", "Artifact directory (overrides ARTIFACT_DIR)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(sampleCmd)
}

// loadConfig applies command-line overrides on top of the environment.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg := config.Load()
	if dir, _ := cmd.Flags().GetString("artifacts"); dir != "" {
		cfg.ArtifactDir = dir
	}
	return cfg
}

func calculator(cfg *config.Config) (*risk.Calculator, error) {
	if cfg.CalibrationFile == "" {
		return risk.NewCalculator(risk.DefaultCalibration()), nil
	}
	cal, err := risk.LoadCalibration(cfg.CalibrationFile)
	if err != nil {
		return nil, fmt.Errorf("load calibration: %w", err)
	}
	return risk.NewCalculator(cal), nil
}

func pipelineDefaults(cfg *config.Config) training.Options {
	opts := training.DefaultOptions()
	opts.TestFraction = cfg.TrainingTestFraction
	opts.Folds = cfg.TrainingFolds
	opts.Seed = cfg.TrainingSeed
	opts.MinSamples = cfg.TrainingMinSamples
	return opts
}
