package models

import "time"

// AlignmentRun records the parameters and outcome of one auto-align call.
type AlignmentRun struct {
	ID                    uint      `json:"id"`
	ProjectID             string    `json:"project_id"`
	Mode                  string    `json:"mode"`
	SwingRatio            float64   `json:"swing_ratio"`
	Tolerance             float64   `json:"tolerance"`
	PreserveOffGrid       bool      `json:"preserve_off_grid"`
	TotalProcessed        int       `json:"total_processed"`
	AlignedCount          int       `json:"aligned_count"`
	PreservedCount        int       `json:"preserved_count"`
	ConflictsResolved     int       `json:"conflicts_resolved"`
	OutsideToleranceCount int       `json:"outside_tolerance_count"`
	AverageAdjustment     float64   `json:"average_adjustment"`
	MaxAdjustment         float64   `json:"max_adjustment"`
	CreatedAt             time.Time `json:"created_at"`
}
