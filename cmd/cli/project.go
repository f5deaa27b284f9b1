package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/BeatAlign/pkg/beatalign"
	"github.com/himanishpuri/BeatAlign/pkg/utils"
)

// withService opens the service for the duration of one command
func (a *app) withService(run func(ctx context.Context, cmd *cobra.Command, svc beatalign.Service, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		svc, err := a.newService(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()
		return run(ctx, cmd, svc, args)
	}
}

func newProjectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"p"},
		Short:   "Manage stored projects and their annotations",
	}
	cmd.AddCommand(
		newProjectCreateCmd(a),
		newProjectListCmd(a),
		newProjectShowCmd(a),
		newProjectDeleteCmd(a),
		newProjectImportCmd(a),
		newProjectExportCmd(a),
		newProjectAlignCmd(a),
		newProjectRunsCmd(a),
	)
	return cmd
}

func newProjectCreateCmd(a *app) *cobra.Command {
	var spec beatalign.ProjectSpec

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project from a tempo and duration or a WAV backing track",
		Args:  cobra.ExactArgs(1),
		RunE: a.withService(func(ctx context.Context, cmd *cobra.Command, svc beatalign.Service, args []string) error {
			spec.Name = args[0]
			p, err := svc.CreateProject(ctx, spec)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✅ Project created")
			printProject(cmd.OutOrStdout(), p)
			return nil
		}),
	}
	fs := cmd.Flags()
	fs.StringVar(&spec.DisplayName, "display-name", "", "Human readable title")
	fs.Float64Var(&spec.BPM, "bpm", 0, "Tempo in beats per minute (required)")
	fs.Float64Var(&spec.Duration, "duration", 0, "Track length in seconds (read from --audio when omitted)")
	fs.StringVar(&spec.AudioPath, "audio", "", "WAV backing track")
	fs.Float64Var(&spec.MeasureOrigin, "origin", 0, "First downbeat in seconds")
	fs.Float64Var(&spec.AudioOffset, "offset", 0, "Audio offset in seconds")
	fs.IntVar(&spec.BeatsPerMeasure, "beats-per-measure", 0, "Beats per measure (default 4)")
	cmd.MarkFlagRequired("bpm")
	return cmd
}

func newProjectListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List projects",
		Args:    cobra.NoArgs,
		RunE: a.withService(func(ctx context.Context, cmd *cobra.Command, svc beatalign.Service, args []string) error {
			projects, err := svc.ListProjects(ctx)
			if err != nil {
				return err
			}
			printProjects(cmd.OutOrStdout(), projects)
			return nil
		}),
	}
}

func newProjectShowCmd(a *app) *cobra.Command {
	var showGrid bool

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a project with its annotation count and backups",
		Args:  cobra.ExactArgs(1),
		RunE: a.withService(func(ctx context.Context, cmd *cobra.Command, svc beatalign.Service, args []string) error {
			out := cmd.OutOrStdout()
			p, err := svc.GetProject(ctx, args[0])
			if err != nil {
				return err
			}
			events, err := svc.Annotations(ctx, p.Name)
			if err != nil {
				return err
			}
			backups, err := svc.Backups(ctx, p.Name)
			if err != nil {
				return err
			}

			printProject(out, p)
			fmt.Fprintf(out, "   Annotations:     %d\n", len(events))
			fmt.Fprintf(out, "   Backups:         %d\n", len(backups))
			for _, b := range backups {
				fmt.Fprintf(out, "      #%d  %s  %d annotations\n", b.ID, b.CreatedAt.Format("2006-01-02 15:04:05"), b.Count)
			}

			if showGrid {
				grid, err := svc.BeatGrid(ctx, p.Name)
				if err != nil {
					return err
				}
				printGrid(out, grid.Timeline, p.BeatsPerMeasure)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&showGrid, "grid", false, "Also print the beat grid")
	return cmd
}

func newProjectDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a project with its annotations, backups and runs",
		Args:    cobra.ExactArgs(1),
		RunE: a.withService(func(ctx context.Context, cmd *cobra.Command, svc beatalign.Service, args []string) error {
			if err := svc.DeleteProject(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🗑️  Deleted project %s\n", args[0])
			return nil
		}),
	}
}

func newProjectImportCmd(a *app) *cobra.Command {
	var backup bool

	cmd := &cobra.Command{
		Use:   "import <name> <annotations.json>",
		Short: "Replace a project's annotations with the contents of a JSON file",
		Args:  cobra.ExactArgs(2),
		RunE: a.withService(func(ctx context.Context, cmd *cobra.Command, svc beatalign.Service, args []string) error {
			events, err := readAnnotations(args[1])
			if err != nil {
				return err
			}
			b, err := svc.SaveAnnotations(ctx, args[0], events, backup)
			if err != nil {
				return err
			}
			if b != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "💾 Backed up %d previous annotations (backup #%d)\n", b.Count, b.ID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Imported %d annotations into %s\n", len(events), args[0])
			return nil
		}),
	}
	cmd.Flags().BoolVar(&backup, "backup", true, "Back up the current annotations first")
	return cmd
}

func newProjectExportCmd(a *app) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Write a project's annotations as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: a.withService(func(ctx context.Context, cmd *cobra.Command, svc beatalign.Service, args []string) error {
			events, err := svc.Annotations(ctx, args[0])
			if err != nil {
				return err
			}
			if outPath == "" {
				return printJSON(cmd.OutOrStdout(), events)
			}
			if err := utils.WriteJSONFile(outPath, events); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Exported %d annotations to %s\n", len(events), outPath)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func newProjectAlignCmd(a *app) *cobra.Command {
	var (
		af     alignFlags
		offset float64
		save   bool
		backup bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "align <name>",
		Short: "Align a project's stored annotations to its beat grid",
		Args:  cobra.ExactArgs(1),
		RunE: a.withService(func(ctx context.Context, cmd *cobra.Command, svc beatalign.Service, args []string) error {
			req := beatalign.AlignRequest{Params: af.params(cmd), Save: save, Backup: backup}
			if cmd.Flags().Changed("offset") {
				req.AudioOffset = &offset
			}

			res, err := svc.AutoAlign(ctx, args[0], req)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✅ Aligned %s: %d annotations in, %d out\n", res.Project.Title(), res.OriginalCount, res.AlignedCount)
			printReport(out, res.Report)
			if res.Saved {
				fmt.Fprintln(out, "💾 Saved aligned annotations")
				if res.Backup != nil {
					fmt.Fprintf(out, "   Previous set kept as backup #%d\n", res.Backup.ID)
				}
			}
			return nil
		}),
	}
	af.register(cmd.Flags())
	cmd.Flags().Float64Var(&offset, "offset", 0, "Audio offset in seconds (overrides the stored offset)")
	cmd.Flags().BoolVar(&save, "save", false, "Save the aligned annotations to the project")
	cmd.Flags().BoolVar(&backup, "backup", true, "Back up the current annotations before saving")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	return cmd
}

func newProjectRunsCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs <name>",
		Short: "Show the alignment history of a project",
		Args:  cobra.ExactArgs(1),
		RunE: a.withService(func(ctx context.Context, cmd *cobra.Command, svc beatalign.Service, args []string) error {
			runs, err := svc.Runs(ctx, args[0], limit)
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	return cmd
}
