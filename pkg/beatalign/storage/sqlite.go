//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/BeatAlign/pkg/beatalign/quantize"
	"github.com/himanishpuri/BeatAlign/pkg/models"
)

const DefaultDBFile = "beatalign.sqlite3"
const errDBClientNil = "db client is nil"

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrProjectExists   = errors.New("project already exists")
)

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type Project struct {
	ID              string `gorm:"primaryKey;type:varchar(36)"`
	Name            string `gorm:"uniqueIndex:idx_project_name;not null"`
	DisplayName     string
	BPM             float64
	Duration        float64
	MeasureOrigin   float64
	AudioOffset     float64
	BeatsPerMeasure int
	AudioPath       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Annotation struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ProjectID string `gorm:"type:varchar(36);index:idx_annotation_project,priority:1"`
	Seq       int    `gorm:"index:idx_annotation_project,priority:2"`
	Time      float64
	Kind      string
	Attrs     string `gorm:"type:text"`
}

type AnnotationBackup struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ProjectID string `gorm:"type:varchar(36);index:idx_backup_project"`
	Count     int
	Payload   string `gorm:"type:text"`
	CreatedAt time.Time
}

type AlignmentRun struct {
	ID                    uint   `gorm:"primaryKey;autoIncrement"`
	ProjectID             string `gorm:"type:varchar(36);index:idx_run_project"`
	Mode                  string
	SwingRatio            float64
	Tolerance             float64
	PreserveOffGrid       bool
	TotalProcessed        int
	AlignedCount          int
	PreservedCount        int
	ConflictsResolved     int
	OutsideToleranceCount int
	AverageAdjustment     float64
	MaxAdjustment         float64
	CreatedAt             time.Time
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("BEATALIGN_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// a single connection keeps concurrent AlignAll writers off SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Project{}, &Annotation{}, &AnnotationBackup{}, &AlignmentRun{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *DBClient) CreateProject(ctx context.Context, p models.Project) (*models.Project, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	row := Project{
		ID:              uuid.NewString(),
		Name:            p.Name,
		DisplayName:     p.DisplayName,
		BPM:             p.BPM,
		Duration:        p.Duration,
		MeasureOrigin:   p.MeasureOrigin,
		AudioOffset:     p.AudioOffset,
		BeatsPerMeasure: p.BeatsPerMeasure,
		AudioPath:       p.AudioPath,
	}
	if err := c.DB.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %q", ErrProjectExists, p.Name)
		}
		return nil, fmt.Errorf("creating project: %w", err)
	}
	return row.model(), nil
}

func (c *DBClient) GetProjectByName(ctx context.Context, name string) (*models.Project, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var row Project
	err := c.DB.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrProjectNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("querying project: %w", err)
	}
	return row.model(), nil
}

func (c *DBClient) ListProjects(ctx context.Context) ([]models.Project, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var rows []Project
	if err := c.DB.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	out := make([]models.Project, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r.model())
	}
	return out, nil
}

// UpdateProject writes the editable fields of p (display name, timing and audio
// path) to the stored project with the same ID.
func (c *DBClient) UpdateProject(ctx context.Context, p models.Project) (*models.Project, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	res := c.DB.WithContext(ctx).Model(&Project{}).Where("id = ?", p.ID).Updates(map[string]any{
		"display_name":      p.DisplayName,
		"bpm":               p.BPM,
		"duration":          p.Duration,
		"measure_origin":    p.MeasureOrigin,
		"audio_offset":      p.AudioOffset,
		"beats_per_measure": p.BeatsPerMeasure,
		"audio_path":        p.AudioPath,
	})
	if res.Error != nil {
		return nil, fmt.Errorf("updating project: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: id %s", ErrProjectNotFound, p.ID)
	}

	var row Project
	if err := c.DB.WithContext(ctx).Where("id = ?", p.ID).First(&row).Error; err != nil {
		return nil, fmt.Errorf("reloading project: %w", err)
	}
	return row.model(), nil
}

// DeleteProject removes a project together with its annotations, backups and runs.
func (c *DBClient) DeleteProject(ctx context.Context, projectID string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []any{&Annotation{}, &AnnotationBackup{}, &AlignmentRun{}} {
			if err := tx.Where("project_id = ?", projectID).Delete(child).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", projectID).Delete(&Project{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: id %s", ErrProjectNotFound, projectID)
		}
		return nil
	})
}

// ReplaceAnnotations swaps the stored annotation set of a project for events.
// With backup set, the previous set is first copied into annotation_backups in the
// same transaction; the returned backup is nil when nothing was stored before.
func (c *DBClient) ReplaceAnnotations(ctx context.Context, projectID string, events []quantize.Event, backup bool) (*models.AnnotationBackup, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	rows := make([]Annotation, 0, len(events))
	for i, e := range events {
		attrs, err := encodeAttrs(e.Attrs)
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
		rows = append(rows, Annotation{ProjectID: projectID, Seq: i, Time: e.Time, Kind: string(e.Kind), Attrs: attrs})
	}

	var saved *models.AnnotationBackup
	err := c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if backup {
			previous, err := loadAnnotations(tx, projectID)
			if err != nil {
				return err
			}
			if len(previous) > 0 {
				payload, err := json.Marshal(previous)
				if err != nil {
					return fmt.Errorf("encoding backup: %w", err)
				}
				b := AnnotationBackup{ProjectID: projectID, Count: len(previous), Payload: string(payload)}
				if err := tx.Create(&b).Error; err != nil {
					return fmt.Errorf("creating backup: %w", err)
				}
				saved = b.model()
			}
		}

		if err := tx.Where("project_id = ?", projectID).Delete(&Annotation{}).Error; err != nil {
			return fmt.Errorf("clearing annotations: %w", err)
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, 500).Error; err != nil {
				return fmt.Errorf("batch insert annotations: %w", err)
			}
		}
		return tx.Model(&Project{}).Where("id = ?", projectID).Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// LoadAnnotations returns a project's annotations in the order they were saved.
func (c *DBClient) LoadAnnotations(ctx context.Context, projectID string) ([]quantize.Event, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	return loadAnnotations(c.DB.WithContext(ctx), projectID)
}

func loadAnnotations(db *gorm.DB, projectID string) ([]quantize.Event, error) {
	var rows []Annotation
	if err := db.Where("project_id = ?", projectID).Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying annotations: %w", err)
	}
	out := make([]quantize.Event, 0, len(rows))
	for _, r := range rows {
		attrs, err := decodeAttrs(r.Attrs)
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", r.Seq, err)
		}
		out = append(out, quantize.Event{Time: r.Time, Kind: quantize.Kind(r.Kind), Attrs: attrs})
	}
	return out, nil
}

func (c *DBClient) ListBackups(ctx context.Context, projectID string) ([]models.AnnotationBackup, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var rows []AnnotationBackup
	if err := c.DB.WithContext(ctx).Where("project_id = ?", projectID).Order("id desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	out := make([]models.AnnotationBackup, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r.model())
	}
	return out, nil
}

func (c *DBClient) RecordRun(ctx context.Context, run models.AlignmentRun) (*models.AlignmentRun, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	row := AlignmentRun{
		ProjectID:             run.ProjectID,
		Mode:                  run.Mode,
		SwingRatio:            run.SwingRatio,
		Tolerance:             run.Tolerance,
		PreserveOffGrid:       run.PreserveOffGrid,
		TotalProcessed:        run.TotalProcessed,
		AlignedCount:          run.AlignedCount,
		PreservedCount:        run.PreservedCount,
		ConflictsResolved:     run.ConflictsResolved,
		OutsideToleranceCount: run.OutsideToleranceCount,
		AverageAdjustment:     run.AverageAdjustment,
		MaxAdjustment:         run.MaxAdjustment,
	}
	if err := c.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("recording alignment run: %w", err)
	}
	return row.model(), nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all of them.
func (c *DBClient) ListRuns(ctx context.Context, projectID string, limit int) ([]models.AlignmentRun, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	q := c.DB.WithContext(ctx).Where("project_id = ?", projectID).Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []AlignmentRun
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing alignment runs: %w", err)
	}
	out := make([]models.AlignmentRun, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r.model())
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func encodeAttrs(attrs map[string]any) (string, error) {
	if len(attrs) == 0 {
		return "", nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("encoding attributes: %w", err)
	}
	return string(b), nil
}

func decodeAttrs(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var attrs map[string]any
	if err := json.Unmarshal([]byte(s), &attrs); err != nil {
		return nil, fmt.Errorf("decoding attributes: %w", err)
	}
	return attrs, nil
}

func (r Project) model() *models.Project {
	return &models.Project{
		ID:              r.ID,
		Name:            r.Name,
		DisplayName:     r.DisplayName,
		BPM:             r.BPM,
		Duration:        r.Duration,
		MeasureOrigin:   r.MeasureOrigin,
		AudioOffset:     r.AudioOffset,
		BeatsPerMeasure: r.BeatsPerMeasure,
		AudioPath:       r.AudioPath,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (r AnnotationBackup) model() *models.AnnotationBackup {
	return &models.AnnotationBackup{
		ID:        r.ID,
		ProjectID: r.ProjectID,
		Count:     r.Count,
		Payload:   r.Payload,
		CreatedAt: r.CreatedAt,
	}
}

func (r AlignmentRun) model() *models.AlignmentRun {
	return &models.AlignmentRun{
		ID:                    r.ID,
		ProjectID:             r.ProjectID,
		Mode:                  r.Mode,
		SwingRatio:            r.SwingRatio,
		Tolerance:             r.Tolerance,
		PreserveOffGrid:       r.PreserveOffGrid,
		TotalProcessed:        r.TotalProcessed,
		AlignedCount:          r.AlignedCount,
		PreservedCount:        r.PreservedCount,
		ConflictsResolved:     r.ConflictsResolved,
		OutsideToleranceCount: r.OutsideToleranceCount,
		AverageAdjustment:     r.AverageAdjustment,
		MaxAdjustment:         r.MaxAdjustment,
		CreatedAt:             r.CreatedAt,
	}
}
