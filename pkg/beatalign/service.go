package beatalign

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/BeatAlign/pkg/beatalign/audio"
	"github.com/himanishpuri/BeatAlign/pkg/beatalign/beatgrid"
	"github.com/himanishpuri/BeatAlign/pkg/beatalign/quantize"
	"github.com/himanishpuri/BeatAlign/pkg/logger"
	"github.com/himanishpuri/BeatAlign/pkg/models"
)

// alignAllLimit bounds the number of projects aligned at once.
const alignAllLimit = 4

// alignService is the default implementation of the Service interface.
type alignService struct {
	storage   Storage
	log       Logger
	config    *Config
	timelines *timelines
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.Named("AutoAlign")
	}
	if err := cfg.Defaults.Validate(); err != nil {
		return nil, fmt.Errorf("default alignment options: %w", err)
	}

	cache, err := newTimelines(cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	var stor Storage
	if cfg.Storage != nil {
		stor = cfg.Storage
	} else {
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &alignService{
		storage:   stor,
		log:       cfg.Logger,
		config:    cfg,
		timelines: cache,
	}, nil
}

func (s *alignService) CreateProject(ctx context.Context, spec ProjectSpec) (*models.Project, error) {
	spec.Name = strings.TrimSpace(spec.Name)
	if spec.Duration == 0 && spec.AudioPath != "" {
		info, err := audio.ReadWAVInfo(spec.AudioPath)
		if err != nil {
			return nil, fmt.Errorf("%w: reading backing track: %w", ErrInvalidProject, err)
		}
		spec.Duration = info.DurationSec
		s.log.Debugf("Read %s: %.3fs, %d Hz, %d ch", info.Filename, info.DurationSec, info.SampleRate, info.Channels)
	}
	if spec.BeatsPerMeasure == 0 {
		spec.BeatsPerMeasure = beatgrid.DefaultBeatsPerMeasure
	}

	p := models.Project{
		Name:            spec.Name,
		DisplayName:     spec.DisplayName,
		BPM:             spec.BPM,
		Duration:        spec.Duration,
		MeasureOrigin:   spec.MeasureOrigin,
		AudioOffset:     spec.AudioOffset,
		BeatsPerMeasure: spec.BeatsPerMeasure,
		AudioPath:       spec.AudioPath,
	}
	if err := validateProject(p); err != nil {
		return nil, err
	}

	created, err := s.storage.CreateProject(ctx, p)
	if err != nil {
		return nil, err
	}
	s.log.Infof("Created project %s (%.2f BPM, %.2fs)", created.Name, created.BPM, created.Duration)
	return created, nil
}

func validateProject(p models.Project) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProject)
	case !finite(p.BPM) || p.BPM <= 0:
		return fmt.Errorf("%w: bpm must be positive, got %v", ErrInvalidProject, p.BPM)
	case !finite(p.Duration) || p.Duration < 0:
		return fmt.Errorf("%w: duration must be non-negative, got %v", ErrInvalidProject, p.Duration)
	case !finite(p.MeasureOrigin) || !finite(p.AudioOffset):
		return fmt.Errorf("%w: offsets must be finite", ErrInvalidProject)
	case p.Duration*p.BPM/60 >= beatgrid.MaxBeats:
		return fmt.Errorf("%w: %.0fs at %v bpm exceeds %d beats", ErrInvalidProject, p.Duration, p.BPM, beatgrid.MaxBeats)
	case p.BeatsPerMeasure < 1:
		return fmt.Errorf("%w: beats per measure must be at least 1", ErrInvalidProject)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (s *alignService) GetProject(ctx context.Context, name string) (*models.Project, error) {
	return s.storage.GetProjectByName(ctx, name)
}

func (s *alignService) ListProjects(ctx context.Context) ([]models.Project, error) {
	return s.storage.ListProjects(ctx)
}

func (s *alignService) UpdateProject(ctx context.Context, name string, patch ProjectPatch) (*models.Project, error) {
	p, err := s.storage.GetProjectByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if patch.DisplayName != nil {
		p.DisplayName = strings.TrimSpace(*patch.DisplayName)
	}
	if patch.BPM != nil {
		p.BPM = *patch.BPM
	}
	if patch.Duration != nil {
		p.Duration = *patch.Duration
	}
	if patch.MeasureOrigin != nil {
		p.MeasureOrigin = *patch.MeasureOrigin
	}
	if patch.AudioOffset != nil {
		p.AudioOffset = *patch.AudioOffset
	}
	if patch.BeatsPerMeasure != nil {
		p.BeatsPerMeasure = *patch.BeatsPerMeasure
	}
	if err := validateProject(*p); err != nil {
		return nil, err
	}

	updated, err := s.storage.UpdateProject(ctx, *p)
	if err != nil {
		return nil, err
	}
	s.timelines.forget(p.ID)
	return updated, nil
}

func (s *alignService) DeleteProject(ctx context.Context, name string) error {
	p, err := s.storage.GetProjectByName(ctx, name)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteProject(ctx, p.ID); err != nil {
		return fmt.Errorf("deleting project %s: %w", name, err)
	}
	s.timelines.forget(p.ID)
	s.log.Infof("Deleted project %s", name)
	return nil
}

// SaveAnnotations replaces the annotations of a project. With backup, the
// previous set is kept in the project's backup history.
func (s *alignService) SaveAnnotations(ctx context.Context, name string, events []quantize.Event, backup bool) (*models.AnnotationBackup, error) {
	p, err := s.storage.GetProjectByName(ctx, name)
	if err != nil {
		return nil, err
	}
	unknown := 0
	var sample quantize.Kind
	for i, e := range events {
		if !finite(e.Time) {
			return nil, fmt.Errorf("%w: annotation %d: time is not finite", quantize.ErrInvalidEvents, i)
		}
		if !e.Kind.Known() {
			if unknown == 0 {
				sample = e.Kind
			}
			unknown++
		}
	}
	if unknown > 0 {
		s.log.Warnf("%d annotations of %s have an unknown note type (first: %q); they are kept as is", unknown, name, sample)
	}

	b, err := s.storage.ReplaceAnnotations(ctx, p.ID, events, backup)
	if err != nil {
		return nil, fmt.Errorf("saving annotations for %s: %w", name, err)
	}
	if b != nil {
		s.log.Infof("Backed up %d annotations of %s (backup #%d)", b.Count, name, b.ID)
	}
	s.log.Infof("Saved %d annotations to %s", len(events), name)
	return b, nil
}

func (s *alignService) Annotations(ctx context.Context, name string) ([]quantize.Event, error) {
	p, err := s.storage.GetProjectByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.storage.LoadAnnotations(ctx, p.ID)
}

func (s *alignService) Backups(ctx context.Context, name string) ([]models.AnnotationBackup, error) {
	p, err := s.storage.GetProjectByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.storage.ListBackups(ctx, p.ID)
}

// AutoAlign snaps a project's annotations (or req.Annotations) to the project's
// beat grid and records the run. The grid starts at the project's measure
// origin plus its audio offset.
//
// When alignment itself fails the returned result still carries the fallback
// report, with the original annotations, alongside the error.
func (s *alignService) AutoAlign(ctx context.Context, name string, req AlignRequest) (*AlignResult, error) {
	start := time.Now()

	p, err := s.storage.GetProjectByName(ctx, name)
	if err != nil {
		return nil, err
	}

	events := req.Annotations
	if events == nil {
		events, err = s.storage.LoadAnnotations(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if len(events) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoAnnotations, name)
		}
	}

	base := s.config.Defaults
	base.MeasureOrigin = p.MeasureOrigin
	opts, err := base.Apply(req.Params)
	if err != nil {
		return nil, err
	}
	audioOffset := p.AudioOffset
	if req.AudioOffset != nil {
		audioOffset = *req.AudioOffset
	}
	opts.MeasureOrigin += audioOffset
	mode := opts.Mode.Value()

	s.log.Infof("Project %s: audio offset %.3fs, measure origin %.3fs, effective origin %.3fs",
		name, audioOffset, opts.MeasureOrigin-audioOffset, opts.MeasureOrigin)

	tl, err := s.timelines.get(p)
	if err != nil {
		alignmentsTotal.WithLabelValues(mode, "error").Inc()
		return nil, err
	}

	report, err := quantize.Align(events, tl, opts)
	result := &AlignResult{
		Project:       p,
		Report:        report,
		OriginalCount: len(events),
		AlignedCount:  len(report.Events),
	}
	if err != nil {
		alignmentsTotal.WithLabelValues(mode, "error").Inc()
		s.log.Errorf("Alignment of %s failed: %v", name, err)
		return result, err
	}
	observeReport(mode, report)

	st := report.Stats
	s.log.Infof("Aligned %s with %s: %d/%d snapped, %d preserved, %d conflicts, max adjustment %.3fs",
		name, mode, st.AlignedCount, st.TotalProcessed, st.PreservedCount, st.ConflictsResolved, st.MaxAdjustment)

	run, err := s.storage.RecordRun(ctx, models.AlignmentRun{
		ProjectID:             p.ID,
		Mode:                  mode,
		SwingRatio:            opts.SwingRatio,
		Tolerance:             opts.Tolerance,
		PreserveOffGrid:       opts.PreserveOffGrid,
		TotalProcessed:        st.TotalProcessed,
		AlignedCount:          st.AlignedCount,
		PreservedCount:        st.PreservedCount,
		ConflictsResolved:     st.ConflictsResolved,
		OutsideToleranceCount: st.OutsideToleranceCount,
		AverageAdjustment:     st.AverageAdjustment,
		MaxAdjustment:         st.MaxAdjustment,
	})
	if err != nil {
		s.log.Warnf("Failed to record alignment run for %s: %v", name, err)
	} else {
		result.Run = run
	}

	if req.Save {
		b, err := s.saveAligned(ctx, p, report.Events, req.Backup)
		if err != nil {
			return result, err
		}
		result.Saved = true
		result.Backup = b
	}

	alignmentDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	return result, nil
}

// AlignTimeline aligns events against an ad hoc timeline without touching storage.
func (s *alignService) AlignTimeline(events []quantize.Event, spec beatgrid.Spec, params quantize.Params) (quantize.Report, error) {
	opts, err := s.config.Defaults.Apply(params)
	if err != nil {
		return quantize.Report{}, err
	}

	tl, tlErr := spec.Timeline()
	report, err := quantize.Align(events, tl, opts)
	if tlErr != nil {
		err = tlErr
	}
	if err != nil {
		alignmentsTotal.WithLabelValues(opts.Mode.Value(), "error").Inc()
		return report, err
	}
	observeReport(opts.Mode.Value(), report)
	return report, nil
}

// SaveAligned persists aligned events as the project's annotations. Alignment
// info is kept as the "alignment_info" attribute of each annotation.
func (s *alignService) SaveAligned(ctx context.Context, name string, aligned []quantize.AlignedEvent, backup bool) (*models.AnnotationBackup, error) {
	p, err := s.storage.GetProjectByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.saveAligned(ctx, p, aligned, backup)
}

func (s *alignService) saveAligned(ctx context.Context, p *models.Project, aligned []quantize.AlignedEvent, backup bool) (*models.AnnotationBackup, error) {
	events := make([]quantize.Event, len(aligned))
	for i, a := range aligned {
		events[i] = a.Event()
	}

	b, err := s.storage.ReplaceAnnotations(ctx, p.ID, events, backup)
	if err != nil {
		return nil, fmt.Errorf("saving aligned annotations for %s: %w", p.Name, err)
	}
	if b != nil {
		s.log.Infof("Backed up original annotations of %s (backup #%d)", p.Name, b.ID)
	}
	s.log.Infof("Saved %d aligned annotations to %s", len(events), p.Name)
	return b, nil
}

// AlignAll runs AutoAlign for every named project, or every stored project when
// names is empty. A failing project is reported in its BatchResult and does not
// stop the others; the returned error is non-nil only if ctx ends early.
func (s *alignService) AlignAll(ctx context.Context, names []string, req AlignRequest) ([]BatchResult, error) {
	if len(names) == 0 {
		projects, err := s.storage.ListProjects(ctx)
		if err != nil {
			return nil, err
		}
		for _, p := range projects {
			names = append(names, p.Name)
		}
	}
	// a shared override set would be applied to every project
	req.Annotations = nil

	results := make([]BatchResult, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(alignAllLimit)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.AutoAlign(gctx, name, req)
			results[i] = BatchResult{Project: name, Result: res}
			if err != nil {
				results[i].Error = err.Error()
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	s.log.Infof("Aligned %d projects, %d failed", len(names)-failed, failed)
	return results, nil
}

func (s *alignService) Runs(ctx context.Context, name string, limit int) ([]models.AlignmentRun, error) {
	p, err := s.storage.GetProjectByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.storage.ListRuns(ctx, p.ID, limit)
}

// BeatGrid returns the project's timeline shifted to its grid origin, with
// measures, downbeats and subdivisions.
func (s *alignService) BeatGrid(ctx context.Context, name string) (*BeatGrid, error) {
	p, err := s.storage.GetProjectByName(ctx, name)
	if err != nil {
		return nil, err
	}
	tl, err := s.timelines.get(p)
	if err != nil {
		return nil, err
	}

	shifted := tl.Shift(p.GridOrigin())
	return &BeatGrid{
		Project:      p.Name,
		Origin:       p.GridOrigin(),
		Timeline:     shifted,
		Measures:     beatgrid.Measures(shifted, p.BeatsPerMeasure),
		Downbeats:    beatgrid.Downbeats(shifted, p.BeatsPerMeasure),
		Subdivisions: beatgrid.Subdivisions(shifted),
	}, nil
}

func (s *alignService) Catalogue() quantize.CatalogueInfo {
	return quantize.Catalogue()
}

// Close releases all resources held by the service.
func (s *alignService) Close() error {
	return s.storage.Close()
}
