package main

import (
	"github.com/himanishpuri/BeatAlign/pkg/beatalign"
	"github.com/himanishpuri/BeatAlign/pkg/beatalign/quantize"
	"github.com/himanishpuri/BeatAlign/pkg/models"
)

// AutoAlignRequest is the request body for POST /api/auto_align.
// The quantize parameters (quantizeMode, swingAmount, customSwing, tolerance,
// preserveOffBeat, measureOrigin) sit at the top level.
type AutoAlignRequest struct {
	ProjectName string `json:"projectName" validate:"required"`
	quantize.Params

	// Annotations replaces the stored annotations for this call
	Annotations []quantize.Event `json:"annotations,omitempty" validate:"omitempty,max=20000"`
	AudioOffset *float64         `json:"audioOffset,omitempty"`
	// ScoreOffset is only logged; the score view applies it on its own
	ScoreOffset float64 `json:"scoreOffset,omitempty"`

	Save           bool  `json:"save,omitempty"`
	BackupOriginal *bool `json:"backupOriginal,omitempty"`
}

// AutoAlignResponse is the response for POST /api/auto_align
type AutoAlignResponse struct {
	Status          string               `json:"status"`
	AlignmentResult quantize.Report      `json:"alignment_result"`
	OriginalCount   int                  `json:"original_count"`
	AlignedCount    int                  `json:"aligned_count"`
	Run             *models.AlignmentRun `json:"run,omitempty"`
	Saved           bool                 `json:"saved"`
}

// CreateProjectRequest is the request body for POST /api/projects
type CreateProjectRequest struct {
	Name            string  `json:"name" validate:"required,max=128,excludesall=/\\"`
	DisplayName     string  `json:"display_name,omitempty" validate:"max=256"`
	BPM             float64 `json:"bpm" validate:"gt=0,lte=1000"`
	Duration        float64 `json:"duration" validate:"gte=0,lte=86400"`
	MeasureOrigin   float64 `json:"measure_origin"`
	AudioOffset     float64 `json:"audio_offset"`
	BeatsPerMeasure int     `json:"beats_per_measure,omitempty" validate:"gte=0,lte=32"`
	AudioPath       string  `json:"audio_path,omitempty"`
}

func (r CreateProjectRequest) spec() beatalign.ProjectSpec {
	return beatalign.ProjectSpec{
		Name:            r.Name,
		DisplayName:     r.DisplayName,
		BPM:             r.BPM,
		Duration:        r.Duration,
		MeasureOrigin:   r.MeasureOrigin,
		AudioOffset:     r.AudioOffset,
		BeatsPerMeasure: r.BeatsPerMeasure,
		AudioPath:       r.AudioPath,
	}
}

// UpdateProjectRequest is the request body for PATCH /api/projects/{name}
type UpdateProjectRequest struct {
	DisplayName     *string  `json:"display_name,omitempty" validate:"omitempty,max=256"`
	BPM             *float64 `json:"bpm,omitempty" validate:"omitempty,gt=0,lte=1000"`
	Duration        *float64 `json:"duration,omitempty" validate:"omitempty,gte=0,lte=86400"`
	MeasureOrigin   *float64 `json:"measure_origin,omitempty"`
	AudioOffset     *float64 `json:"audio_offset,omitempty"`
	BeatsPerMeasure *int     `json:"beats_per_measure,omitempty" validate:"omitempty,gte=1,lte=32"`
}

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	models.Project
	// Title is the display name, or the folder name when none is set
	Title string `json:"title"`
}

// ListProjectsResponse is the response for GET /api/projects
type ListProjectsResponse struct {
	Status   string       `json:"status"`
	Projects []ProjectDTO `json:"projects"`
	Count    int          `json:"count"`
}

// DeleteProjectResponse is the response for DELETE /api/projects/{name}
type DeleteProjectResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Name    string `json:"name"`
}

// SaveAnnotationsRequest is the request body for PUT /api/projects/{name}/annotations
type SaveAnnotationsRequest struct {
	Annotations    []quantize.Event `json:"annotations" validate:"max=20000"`
	BackupOriginal bool             `json:"backupOriginal,omitempty"`
}

// AnnotationsResponse is the response for GET /api/projects/{name}/annotations
type AnnotationsResponse struct {
	Status      string           `json:"status"`
	Annotations []quantize.Event `json:"annotations"`
	Count       int              `json:"count"`
}

// SaveAlignedRequest is the request body for POST /api/projects/{name}/aligned_annotations
type SaveAlignedRequest struct {
	AlignedAnnotations []quantize.AlignedEvent `json:"alignedAnnotations" validate:"max=20000"`
	// BackupOriginal defaults to true
	BackupOriginal *bool `json:"backupOriginal,omitempty"`
}

// SaveResponse is the response for annotation writes
type SaveResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	BackupCreated bool   `json:"backup_created"`
	BackupID      uint   `json:"backup_id,omitempty"`
}

// RunsResponse is the response for GET /api/projects/{name}/runs
type RunsResponse struct {
	Status string                `json:"status"`
	Runs   []models.AlignmentRun `json:"runs"`
	Count  int                   `json:"count"`
}

// QuantizationOptionsResponse is the response for GET /api/quantization_options
type QuantizationOptionsResponse struct {
	Status string `json:"status"`
	quantize.CatalogueInfo
}

// BeatGridResponse is the response for GET /api/beat_grid
type BeatGridResponse struct {
	Status   string              `json:"status"`
	BeatGrid *beatalign.BeatGrid `json:"beat_grid"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
	// AlignmentResult holds the unaligned annotations when alignment itself failed.
	AlignmentResult *quantize.Report `json:"alignment_result,omitempty"`
}
