package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/himanishpuri/BeatAlign/pkg/beatalign"
	"github.com/himanishpuri/BeatAlign/pkg/beatalign/beatgrid"
	"github.com/himanishpuri/BeatAlign/pkg/beatalign/quantize"
	"github.com/himanishpuri/BeatAlign/pkg/models"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCatalogue(w io.Writer, c quantize.CatalogueInfo) {
	fmt.Fprintln(w, "🎼 Quantize modes:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, m := range c.Modes {
		fmt.Fprintf(tw, "   %s\t%s\t%s\n", m.Value, m.Label, m.Description)
	}
	tw.Flush()

	fmt.Fprintln(w, "\n🎷 Swing presets:")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, s := range c.Swings {
		ratio := "user defined"
		if s.Ratio != nil {
			ratio = fmt.Sprintf("%.2f", *s.Ratio)
		}
		fmt.Fprintf(tw, "   %s\t%s\t%s\n", s.Value, s.Label, ratio)
	}
	tw.Flush()
}

func printReport(w io.Writer, r quantize.Report) {
	s := r.Stats
	info := r.Info
	fmt.Fprintf(w, "   Mode:              %s (%d grid points, %.3fs window)\n", info.Mode, info.GridPoints, info.ToleranceSeconds)
	if strings.Contains(info.Mode, "swing") {
		fmt.Fprintf(w, "   Swing ratio:       %.2f\n", info.SwingRatio)
	}
	fmt.Fprintf(w, "   Processed:         %d\n", s.TotalProcessed)
	fmt.Fprintf(w, "   Snapped:           %d\n", s.AlignedCount)
	fmt.Fprintf(w, "   Preserved:         %d (%d outside tolerance)\n", s.PreservedCount, s.OutsideToleranceCount)
	fmt.Fprintf(w, "   Conflicts removed: %d\n", s.ConflictsResolved)
	fmt.Fprintf(w, "   Adjustment:        avg %.1fms, max %.1fms\n", s.AverageAdjustment*1000, s.MaxAdjustment*1000)
	if s.PreservedCount > 0 {
		fmt.Fprintf(w, "   Off-grid distance: avg %.1fms, max %.1fms\n", s.AverageClosestDistance*1000, s.MaxClosestDistance*1000)
	}
}

func printProject(w io.Writer, p *models.Project) {
	fmt.Fprintf(w, "🎵 %s\n", p.Title())
	fmt.Fprintf(w, "   Name:            %s\n", p.Name)
	fmt.Fprintf(w, "   ID:              %s\n", p.ID)
	fmt.Fprintf(w, "   BPM:             %.2f\n", p.BPM)
	fmt.Fprintf(w, "   Duration:        %.3fs\n", p.Duration)
	fmt.Fprintf(w, "   Measure origin:  %.3fs\n", p.MeasureOrigin)
	fmt.Fprintf(w, "   Audio offset:    %.3fs\n", p.AudioOffset)
	fmt.Fprintf(w, "   Beats/measure:   %d\n", p.BeatsPerMeasure)
	if p.AudioPath != "" {
		fmt.Fprintf(w, "   Audio:           %s\n", p.AudioPath)
	}
}

func printProjects(w io.Writer, projects []models.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(w, "📭 No projects yet. Create one with: beatalign project create <name> --bpm <bpm> --duration <seconds>")
		return
	}
	fmt.Fprintf(w, "📚 %d project(s):\n", len(projects))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "   NAME\tTITLE\tBPM\tDURATION\tUPDATED")
	for _, p := range projects {
		fmt.Fprintf(tw, "   %s\t%s\t%.2f\t%.1fs\t%s\n", p.Name, p.Title(), p.BPM, p.Duration, p.UpdatedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

func printRuns(w io.Writer, runs []models.AlignmentRun) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "📭 No alignment runs recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "   RUN\tWHEN\tMODE\tTOL\tSNAPPED\tPRESERVED\tCONFLICTS\tMAX ADJ")
	for _, r := range runs {
		fmt.Fprintf(tw, "   #%d\t%s\t%s\t%.2f\t%d/%d\t%d\t%d\t%.1fms\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Mode, r.Tolerance,
			r.AlignedCount, r.TotalProcessed, r.PreservedCount, r.ConflictsResolved, r.MaxAdjustment*1000)
	}
	tw.Flush()
}

func printGrid(w io.Writer, tl beatgrid.Timeline, beatsPerMeasure int) {
	measures := beatgrid.Measures(tl, beatsPerMeasure)
	fmt.Fprintf(w, "🥁 %.2f BPM, %.3fs per beat, %d beats, %d complete measures\n",
		tl.BPM, tl.BeatInterval, len(tl.Beats), len(measures))
	for _, m := range measures {
		beats := make([]string, len(m.Beats))
		for i, b := range m.Beats {
			beats[i] = fmt.Sprintf("%.3f", b)
		}
		fmt.Fprintf(w, "   %3d  %s\n", m.Number, strings.Join(beats, "  "))
	}
}

func printBatch(w io.Writer, results []beatalign.BatchResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range results {
		switch {
		case r.Error != "":
			fmt.Fprintf(tw, "   ❌ %s\t%s\n", r.Project, r.Error)
		case r.Result != nil:
			s := r.Result.Report.Stats
			fmt.Fprintf(tw, "   ✅ %s\t%d/%d snapped\t%d preserved\tmax %.1fms\n",
				r.Project, s.AlignedCount, s.TotalProcessed, s.PreservedCount, s.MaxAdjustment*1000)
		}
	}
	tw.Flush()
}
