package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/example/gojulius/internal/audiosrc"
	"github.com/example/gojulius/internal/engine"
	"github.com/spf13/cobra"
)

func newRecognizeCmd() *cobra.Command {
	var in string
	var outJSON bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "recognize",
		Short: "Recognize a 16-bit PCM WAV file and print the N-best sentences",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if in == "" {
				return fmt.Errorf("--in is required")
			}

			eng, err := engine.New(cfg)
			if err != nil {
				return fmt.Errorf("initialize engine: %w", err)
			}

			if verbose {
				eng.SetCallbacks(engine.Callbacks{
					OnBegin: func() { fmt.Fprintln(os.Stderr, "begin utterance") },
					OnFrame: func(frame int) {
						if frame%100 == 0 {
							fmt.Fprintf(os.Stderr, "frame %d\n", frame)
						}
					},
					OnEnd: func(res engine.Result) {
						fmt.Fprintf(os.Stderr, "end utterance: status=%s frames=%d\n", res.Status, res.Frames)
					},
				})
			}

			src, err := audiosrc.NewWAVFileSource(in)
			if err != nil {
				return fmt.Errorf("open %q: %w", in, err)
			}

			res, err := eng.Recognize(cmd.Context(), src)
			if err != nil {
				return fmt.Errorf("recognize: %w", err)
			}

			if outJSON {
				return json.NewEncoder(os.Stdout).Encode(res)
			}
			printResult(os.Stdout, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "Input WAV file path (16-bit PCM, model sample rate)")
	cmd.Flags().BoolVar(&outJSON, "json", false, "Print the raw result as JSON instead of plain text")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Log per-frame progress to stderr")

	return cmd
}

func printResult(w *os.File, res engine.Result) {
	fmt.Fprintf(w, "status: %s (%d frames)\n", res.Status, res.Frames)
	for i, s := range res.Sentences {
		names := make([]string, 0, len(s.Words))
		for _, wd := range s.Words {
			names = append(names, wd.Name)
		}
		fmt.Fprintf(w, "%d: %s (score=%.2f)\n", i, strings.Join(names, " "), s.Score)
	}
}
