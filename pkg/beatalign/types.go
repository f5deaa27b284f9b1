package beatalign

import (
	"errors"

	"github.com/himanishpuri/BeatAlign/pkg/beatalign/beatgrid"
	"github.com/himanishpuri/BeatAlign/pkg/beatalign/quantize"
	"github.com/himanishpuri/BeatAlign/pkg/beatalign/storage"
	"github.com/himanishpuri/BeatAlign/pkg/models"
)

var (
	ErrInvalidProject  = errors.New("invalid project")
	ErrNoAnnotations   = errors.New("no annotations found for project")
	ErrProjectNotFound = storage.ErrProjectNotFound
	ErrProjectExists   = storage.ErrProjectExists
)

// ProjectSpec describes a project to create. When Duration is zero and AudioPath
// names a WAV file, the duration is read from the file header.
type ProjectSpec struct {
	Name            string  `json:"name"`
	DisplayName     string  `json:"display_name,omitempty"`
	BPM             float64 `json:"bpm"`
	Duration        float64 `json:"duration"`
	MeasureOrigin   float64 `json:"measure_origin"`
	AudioOffset     float64 `json:"audio_offset"`
	BeatsPerMeasure int     `json:"beats_per_measure,omitempty"`
	AudioPath       string  `json:"audio_path,omitempty"`
}

// ProjectPatch lists the fields to change on an existing project; nil fields are kept.
type ProjectPatch struct {
	DisplayName     *string  `json:"display_name,omitempty"`
	BPM             *float64 `json:"bpm,omitempty"`
	Duration        *float64 `json:"duration,omitempty"`
	MeasureOrigin   *float64 `json:"measure_origin,omitempty"`
	AudioOffset     *float64 `json:"audio_offset,omitempty"`
	BeatsPerMeasure *int     `json:"beats_per_measure,omitempty"`
}

// AlignRequest is one auto-align call against a stored project.
type AlignRequest struct {
	Params quantize.Params
	// Annotations replaces the stored set for this call when non-nil.
	Annotations []quantize.Event
	// AudioOffset replaces the project's stored offset when set.
	AudioOffset *float64
	// Save writes the aligned set back to the project; Backup snapshots the old one first.
	Save   bool
	Backup bool
}

type AlignResult struct {
	Project       *models.Project          `json:"project"`
	Report        quantize.Report          `json:"alignment_result"`
	OriginalCount int                      `json:"original_count"`
	AlignedCount  int                      `json:"aligned_count"`
	Run           *models.AlignmentRun     `json:"run,omitempty"`
	Saved         bool                     `json:"saved"`
	Backup        *models.AnnotationBackup `json:"backup,omitempty"`
}

// BatchResult is the outcome of one project in AlignAll.
type BatchResult struct {
	Project string       `json:"project"`
	Result  *AlignResult `json:"result,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// BeatGrid is the timeline view of a project for editors.
type BeatGrid struct {
	Project      string                  `json:"project"`
	Origin       float64                 `json:"origin"`
	Timeline     beatgrid.Timeline       `json:"timeline"`
	Measures     []beatgrid.Measure      `json:"measures"`
	Downbeats    []float64               `json:"downbeats"`
	Subdivisions beatgrid.SubdivisionSet `json:"subdivisions"`
}
