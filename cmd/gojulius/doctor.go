package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/example/gojulius/internal/doctor"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run local model-asset preflight checks",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			result := doctor.Run(doctor.Config{
				AcousticModel: cfg.Paths.AcousticModel,
				HMMList:       cfg.Paths.HMMList,
				Dictionary:    cfg.Paths.Dictionary,
				NgramForward:  cfg.Paths.NgramForward,
				NgramBackward: cfg.Paths.NgramBackward,
				DFAGrammar:    cfg.Paths.DFAGrammar,
				CMNFile:       cfg.Paths.CMNFile,
				SampleFreq:    cfg.Audio.SampleFreq,
			}, os.Stdout)

			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(os.Stderr, "FAIL: %s\n", f)
				}
				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(os.Stdout, "doctor checks passed")
			return nil
		},
	}

	return cmd
}
