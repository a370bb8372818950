package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/CS-UWC/OralSmart-sub001/pkg/artifact"
	"github.com/CS-UWC/OralSmart-sub001/pkg/ml/selection"
	"github.com/CS-UWC/OralSmart-sub001/pkg/training"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a model from a CSV dataset or a synthetic sample and publish it",
	RunE: func(cmd *cobra.Command, args []string) error {
		csvPath, _ := cmd.Flags().GetString("csv")
		sampleSize, _ := cmd.Flags().GetInt("sample")
		strategy, _ := cmd.Flags().GetString("selection")
		nFeatures, _ := cmd.Flags().GetInt("n-features")
		search, _ := cmd.Flags().GetBool("search")

		cfg := loadConfig(cmd)
		calc, err := calculator(cfg)
		if err != nil {
			return err
		}
		opts := pipelineDefaults(cfg)
		if opts.Selection, err = selection.ParseStrategy(strategy); err != nil {
			return err
		}
		opts.NFeatures = nFeatures
		opts.Search = search

		var ds *training.Dataset
		switch {
		case csvPath != "":
			if ds, err = training.LoadCSVFile(csvPath); err != nil {
				return fmt.Errorf("load dataset: %w", err)
			}
		case sampleSize > 0:
			ds = training.GenerateSample(sampleSize, opts.Seed, calc)
		default:
			return training.ErrNoDataset
		}

		store, err := artifact.NewStore(cfg.ArtifactDir)
		if err != nil {
			return fmt.Errorf("open artifact store: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		a, err := training.TrainAndSave(ctx, store, ds, opts)
		if err != nil {
			return err
		}

		d := a.Diagnostics
		fmt.Printf("artifact   %s\n", a.ID)
		fmt.Printf("samples    %d (train %d, test %d)\n", d.Samples, d.TrainSamples, d.TestSamples)
		fmt.Printf("features   %d (%s)\n", len(a.Features), d.Selection)
		fmt.Printf("accuracy   train %.3f, test %.3f\n", d.TrainAccuracy, d.TestAccuracy)
		fmt.Printf("cv         %.3f ± %.3f\n", d.CrossValidation.Mean, d.CrossValidation.Std)
		for _, w := range d.Warnings {
			fmt.Printf("warning    %s\n", w)
		}
		return nil
	},
}

func init() {
	trainCmd.Flags().String("csv", "", "Labelled CSV dataset")
	trainCmd.Flags().Int("sample", 0, "Train on a synthetic sample of this size instead of a CSV")
	trainCmd.Flags().String("selection", "none", "Feature selection: none, importance, k_best, recursive_elimination")
	trainCmd.Flags().Int("n-features", 0, "Number of features to keep when selecting")
	trainCmd.Flags().Bool("search", false, "Run the hyperparameter grid search")
}
