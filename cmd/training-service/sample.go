package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/CS-UWC/OralSmart-sub001/pkg/training"
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Write a synthetic labelled dataset as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("n")
		out, _ := cmd.Flags().GetString("out")
		seed, _ := cmd.Flags().GetInt64("seed")
		if n <= 0 {
			return fmt.Errorf("--n must be positive")
		}

		calc, err := calculator(loadConfig(cmd))
		if err != nil {
			return err
		}
		ds := training.GenerateSample(n, seed, calc)

		w := os.Stdout
		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		if err := training.WriteCSV(w, ds); err != nil {
			return err
		}
		if out != "" {
			fmt.Fprintf(os.Stderr, "wrote %d rows to %s\n", ds.Len(), out)
		}
		return nil
	},
}

func init() {
	sampleCmd.Flags().Int("n", 500, "Number of patients")
	sampleCmd.Flags().String("out", "", "Output file (default stdout)")
	sampleCmd.Flags().Int64("seed", 42, "Random seed")
}
