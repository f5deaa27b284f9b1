package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/BeatAlign/pkg/beatalign"
	"github.com/himanishpuri/BeatAlign/pkg/beatalign/audio"
	"github.com/himanishpuri/BeatAlign/pkg/beatalign/beatgrid"
	"github.com/himanishpuri/BeatAlign/pkg/beatalign/quantize"
	"github.com/himanishpuri/BeatAlign/pkg/logger"
	"github.com/himanishpuri/BeatAlign/pkg/utils"
)

// timelineFlags describe an ad hoc timeline: a tempo plus a duration, a
// backing track to read the duration from, or an explicit beat list.
type timelineFlags struct {
	bpm       float64
	duration  float64
	audioPath string
	beatsPath string
}

func (f *timelineFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Float64Var(&f.bpm, "bpm", 0, "Tempo in beats per minute (required)")
	fs.Float64Var(&f.duration, "duration", 0, "Track length in seconds")
	fs.StringVar(&f.audioPath, "audio", "", "WAV backing track to read the duration from")
	fs.StringVar(&f.beatsPath, "beats", "", "JSON array of beat times replacing the regular grid")
	cmd.MarkFlagRequired("bpm")
}

func (f *timelineFlags) spec() (beatgrid.Spec, error) {
	spec := beatgrid.Spec{BPM: f.bpm, Duration: f.duration}
	if f.duration == 0 && f.audioPath != "" {
		info, err := audio.ReadWAVInfo(f.audioPath)
		if err != nil {
			return spec, err
		}
		spec.Duration = info.DurationSec
	}
	if f.beatsPath != "" {
		beats, err := readBeats(f.beatsPath)
		if err != nil {
			return spec, err
		}
		spec.Beats = beats
	}
	return spec, nil
}

func newGridCmd() *cobra.Command {
	var (
		tf              timelineFlags
		origin          float64
		beatsPerMeasure int
		asJSON          bool
	)

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Print the beat grid for a tempo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := tf.spec()
			if err != nil {
				return err
			}
			tl, err := spec.Timeline()
			if err != nil {
				return err
			}
			tl = tl.Shift(origin)

			if asJSON {
				return printJSON(cmd.OutOrStdout(), beatalign.BeatGrid{
					Origin:       origin,
					Timeline:     tl,
					Measures:     beatgrid.Measures(tl, beatsPerMeasure),
					Downbeats:    beatgrid.Downbeats(tl, beatsPerMeasure),
					Subdivisions: beatgrid.Subdivisions(tl),
				})
			}
			printGrid(cmd.OutOrStdout(), tl, beatsPerMeasure)
			return nil
		},
	}
	tf.register(cmd)
	cmd.Flags().Float64Var(&origin, "origin", 0, "Shift every beat by this many seconds")
	cmd.Flags().IntVar(&beatsPerMeasure, "beats-per-measure", beatgrid.DefaultBeatsPerMeasure, "Beats per measure")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the grid as JSON")
	return cmd
}

func newAlignCmd(a *app) *cobra.Command {
	var (
		af      alignFlags
		tf      timelineFlags
		outPath string
		inPlace bool
		backup  bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "align <annotations.json>",
		Short: "Align an annotation file to a beat grid",
		Long: `Aligns the annotations in a JSON file to the grid of the given tempo and
writes the aligned annotations to --output, back to the input with --in-place,
or prints a summary.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.Named("Align")
			out := cmd.OutOrStdout()
			inPath := args[0]
			if inPlace && outPath != "" {
				return errors.New("--in-place and --output are mutually exclusive")
			}

			events, err := readAnnotations(inPath)
			if err != nil {
				return err
			}
			base, err := a.defaults()
			if err != nil {
				return err
			}
			opts, err := base.Apply(af.params(cmd))
			if err != nil {
				return err
			}
			spec, err := tf.spec()
			if err != nil {
				return err
			}
			tl, err := spec.Timeline()
			if err != nil {
				return err
			}

			log.Infof("Aligning %d annotations from %s", len(events), inPath)
			report, err := quantize.Align(events, tl, opts)
			if err != nil {
				return fmt.Errorf("alignment failed: %w", err)
			}

			if inPlace {
				outPath = inPath
				if backup {
					b, err := utils.BackupFile(inPath, time.Now())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "💾 Backed up original annotations to %s\n", b)
				}
			}
			if outPath != "" {
				if err := utils.WriteJSONFile(outPath, report.Events); err != nil {
					return err
				}
			}

			if asJSON {
				return printJSON(out, report)
			}
			fmt.Fprintf(out, "✅ Aligned %d annotations to %s\n", len(report.Events), opts.Mode.Label())
			printReport(out, report)
			if outPath != "" {
				fmt.Fprintf(out, "   Written to:        %s\n", outPath)
			}
			return nil
		},
	}
	af.register(cmd.Flags())
	tf.register(cmd)
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write aligned annotations to this file")
	cmd.Flags().BoolVar(&inPlace, "in-place", false, "Overwrite the input file")
	cmd.Flags().BoolVar(&backup, "backup", true, "Back up the input file before --in-place writes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full alignment report as JSON")
	return cmd
}

func newAlignAllCmd(a *app) *cobra.Command {
	var (
		af     alignFlags
		save   bool
		backup bool
	)

	cmd := &cobra.Command{
		Use:   "align-all [project...]",
		Short: "Align every project, or the named ones, in parallel",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.newService(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			fmt.Fprintln(cmd.ErrOrStderr(), "🔍 Aligning projects...")
			results, err := svc.AlignAll(ctx, args, beatalign.AlignRequest{
				Params: af.params(cmd),
				Save:   save,
				Backup: backup,
			})
			if err != nil {
				return err
			}

			printBatch(cmd.OutOrStdout(), results)
			failed := 0
			for _, r := range results {
				if r.Error != "" {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d projects failed", failed, len(results))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Aligned %d project(s)\n", len(results))
			return nil
		},
	}
	af.register(cmd.Flags())
	cmd.Flags().BoolVar(&save, "save", false, "Save the aligned annotations to each project")
	cmd.Flags().BoolVar(&backup, "backup", true, "Back up each project's annotations before saving")
	return cmd
}
