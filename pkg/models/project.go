package models

import "time"

// Project is one chart: a backing track with a fixed tempo and its annotations.
type Project struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	DisplayName     string    `json:"display_name"`
	BPM             float64   `json:"bpm"`
	Duration        float64   `json:"duration"`         // seconds
	MeasureOrigin   float64   `json:"measure_origin"`   // first downbeat, seconds
	AudioOffset     float64   `json:"audio_offset"`     // playback latency compensation, seconds
	BeatsPerMeasure int       `json:"beats_per_measure"`
	AudioPath       string    `json:"audio_path,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Title is the display name, falling back to the project name.
func (p Project) Title() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name
}

// GridOrigin is the offset a grid for this project starts at.
func (p Project) GridOrigin() float64 {
	return p.MeasureOrigin + p.AudioOffset
}

// AnnotationBackup is a snapshot of a project's annotations taken before they were replaced.
type AnnotationBackup struct {
	ID        uint      `json:"id"`
	ProjectID string    `json:"project_id"`
	Count     int       `json:"count"`
	Payload   string    `json:"payload"` // JSON array of annotations
	CreatedAt time.Time `json:"created_at"`
}
