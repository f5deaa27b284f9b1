package beatalign

import (
	"context"

	"github.com/himanishpuri/BeatAlign/pkg/beatalign/beatgrid"
	"github.com/himanishpuri/BeatAlign/pkg/beatalign/quantize"
	"github.com/himanishpuri/BeatAlign/pkg/models"
)

type Service interface {
	CreateProject(ctx context.Context, spec ProjectSpec) (*models.Project, error)
	GetProject(ctx context.Context, name string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	UpdateProject(ctx context.Context, name string, patch ProjectPatch) (*models.Project, error)
	DeleteProject(ctx context.Context, name string) error

	SaveAnnotations(ctx context.Context, name string, events []quantize.Event, backup bool) (*models.AnnotationBackup, error)
	Annotations(ctx context.Context, name string) ([]quantize.Event, error)
	Backups(ctx context.Context, name string) ([]models.AnnotationBackup, error)

	AutoAlign(ctx context.Context, name string, req AlignRequest) (*AlignResult, error)
	AlignTimeline(events []quantize.Event, spec beatgrid.Spec, params quantize.Params) (quantize.Report, error)
	SaveAligned(ctx context.Context, name string, aligned []quantize.AlignedEvent, backup bool) (*models.AnnotationBackup, error)
	AlignAll(ctx context.Context, names []string, req AlignRequest) ([]BatchResult, error)
	Runs(ctx context.Context, name string, limit int) ([]models.AlignmentRun, error)

	BeatGrid(ctx context.Context, name string) (*BeatGrid, error)
	Catalogue() quantize.CatalogueInfo
	Close() error
}

type Storage interface {
	CreateProject(ctx context.Context, p models.Project) (*models.Project, error)
	GetProjectByName(ctx context.Context, name string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	UpdateProject(ctx context.Context, p models.Project) (*models.Project, error)
	DeleteProject(ctx context.Context, projectID string) error
	ReplaceAnnotations(ctx context.Context, projectID string, events []quantize.Event, backup bool) (*models.AnnotationBackup, error)
	LoadAnnotations(ctx context.Context, projectID string) ([]quantize.Event, error)
	ListBackups(ctx context.Context, projectID string) ([]models.AnnotationBackup, error)
	RecordRun(ctx context.Context, run models.AlignmentRun) (*models.AlignmentRun, error)
	ListRuns(ctx context.Context, projectID string, limit int) ([]models.AlignmentRun, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
