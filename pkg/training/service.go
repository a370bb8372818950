package training

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/CS-UWC/OralSmart-sub001/pkg/artifact"
	"github.com/CS-UWC/OralSmart-sub001/pkg/common/logger"
	"github.com/CS-UWC/OralSmart-sub001/pkg/common/models"
	"github.com/CS-UWC/OralSmart-sub001/pkg/ml/selection"
	"github.com/CS-UWC/OralSmart-sub001/pkg/observability/metrics"
	"github.com/CS-UWC/OralSmart-sub001/pkg/risk"
)

var (
	ErrNoDataset   = errors.New("job needs a dataset path or a sample size")
	ErrDatasetPath = errors.New("dataset path must name a file inside the dataset directory")
)

// EventPublisher is satisfied by kafka.Producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// ModelInstaller receives each newly trained artifact.
type ModelInstaller interface {
	Install(a *artifact.Artifact) error
}

type Service struct {
	repo      JobStore
	store     *artifact.Store
	calc      *risk.Calculator
	defaults  Options
	publisher EventPublisher
	installer  ModelInstaller
	datasetDir string
	workerSem  chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures optional collaborators of the Service.
type Option func(*Service)

func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithInstaller(i ModelInstaller) Option {
	return func(s *Service) { s.installer = i }
}

// WithDatasetDir allows jobs to read CSV files below dir. Without it only
// sample jobs are accepted.
func WithDatasetDir(dir string) Option {
	return func(s *Service) { s.datasetDir = dir }
}

// resolveDataset maps a job's relative dataset path into the dataset
// directory, refusing absolute paths and paths that climb out of it.
func (s *Service) resolveDataset(path string) (string, error) {
	if s.datasetDir == "" || !filepath.IsLocal(path) {
		return "", fmt.Errorf("%w: %q", ErrDatasetPath, path)
	}
	return filepath.Join(s.datasetDir, path), nil
}

func NewService(repo JobStore, store *artifact.Store, calc *risk.Calculator, defaults Options, maxWorkers int, opts ...Option) *Service {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		repo:      repo,
		store:     store,
		calc:      calc,
		defaults:  defaults,
		workerSem: make(chan struct{}, maxWorkers),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) options(input CreateJobInput) (Options, error) {
	opts := s.defaults
	strategy, err := selection.ParseStrategy(input.Selection)
	if err != nil {
		return Options{}, err
	}
	opts.Selection = strategy
	opts.NFeatures = input.NFeatures
	opts.Search = input.Search
	return opts, nil
}

func (s *Service) Create(ctx context.Context, input CreateJobInput) (models.TrainingJob, error) {
	if input.DatasetPath == "" && input.SampleSize <= 0 {
		return models.TrainingJob{}, ErrNoDataset
	}
	if input.DatasetPath != "" {
		if _, err := s.resolveDataset(input.DatasetPath); err != nil {
			return models.TrainingJob{}, err
		}
	}
	opts, err := s.options(input)
	if err != nil {
		return models.TrainingJob{}, err
	}
	now := time.Now().UTC()
	job := &JobModel{
		ID:          uuid.New(),
		Status:      StatusQueued,
		Options:     datatypes.JSONMap(toMap(opts)),
		DatasetPath: input.DatasetPath,
		Samples:     input.SampleSize,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return models.TrainingJob{}, err
	}
	s.wg.Add(1)
	go s.run(job.ID, input, opts)
	return toDomain(job), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (models.TrainingJob, error) {
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.TrainingJob{}, err
	}
	return toDomain(job), nil
}

func (s *Service) List(ctx context.Context, limit int) ([]models.TrainingJob, error) {
	jobs, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	results := make([]models.TrainingJob, 0, len(jobs))
	for i := range jobs {
		results = append(results, toDomain(&jobs[i]))
	}
	return results, nil
}

// Wait blocks until every started job has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close cancels running jobs and waits for them to stop.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Service) run(jobID uuid.UUID, input CreateJobInput, opts Options) {
	defer s.wg.Done()
	select {
	case s.workerSem <- struct{}{}:
	case <-s.ctx.Done():
		s.failJob(context.Background(), jobID, s.ctx.Err())
		return
	}
	defer func() { <-s.workerSem }()

	ctx := s.ctx
	log := logger.WithField("job_id", jobID)
	start := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, jobID, StatusRunning, nil, "", ""); err != nil {
		log.WithError(err).Error("failed to mark job running")
	}
	if err := s.repo.SetTimestamps(ctx, jobID, &start, nil); err != nil {
		log.WithError(err).Error("failed to set start timestamp")
	}

	ds, err := s.dataset(input)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Errorf("load dataset: %w", err))
		return
	}
	opts.RunID = jobID.String()
	a, err := TrainAndSave(ctx, s.store, ds, opts)
	if err != nil {
		s.failJob(ctx, jobID, err)
		return
	}
	metrics.ObserveTraining(true)

	if s.installer != nil {
		if err := s.installer.Install(a); err != nil {
			log.WithError(err).Error("failed to install trained model")
		}
	}
	if s.publisher != nil {
		data := map[string]interface{}{
			"artifact_id":     a.ID.String(),
			"feature_version": a.FeatureVersion,
			"test_accuracy":   a.Diagnostics.TestAccuracy,
			"job_id":          jobID.String(),
		}
		if err := s.publisher.PublishEvent(ctx, models.TopicModelPublished, "training-service", data); err != nil {
			log.WithError(err).Warn("failed to publish model event")
		}
	}

	if err := s.repo.UpdateStatus(ctx, jobID, StatusCompleted, toMap(a.Diagnostics), a.ID.String(), ""); err != nil {
		log.WithError(err).Error("failed to mark job complete")
	}
	completed := time.Now().UTC()
	if err := s.repo.SetTimestamps(ctx, jobID, nil, &completed); err != nil {
		log.WithError(err).Error("failed to set completion timestamp")
	}
	log.WithField("artifact_id", a.ID).Info("training job completed")
}

func (s *Service) dataset(input CreateJobInput) (*Dataset, error) {
	if input.DatasetPath != "" {
		path, err := s.resolveDataset(input.DatasetPath)
		if err != nil {
			return nil, err
		}
		return LoadCSVFile(path)
	}
	return GenerateSample(input.SampleSize, s.defaults.Seed, s.calc), nil
}

func (s *Service) failJob(ctx context.Context, jobID uuid.UUID, err error) {
	metrics.ObserveTraining(false)
	logger.WithField("job_id", jobID).WithError(err).Error("training job failed")
	// the run context may already be cancelled
	ctx = context.WithoutCancel(ctx)
	_ = s.repo.UpdateStatus(ctx, jobID, StatusFailed, nil, "", err.Error())
	completed := time.Now().UTC()
	_ = s.repo.SetTimestamps(ctx, jobID, nil, &completed)
}

func toDomain(job *JobModel) models.TrainingJob {
	result := models.TrainingJob{
		ID:           job.ID,
		Status:       job.Status,
		DatasetPath:  job.DatasetPath,
		Samples:      job.Samples,
		CreatedAt:    job.CreatedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		ArtifactID:   job.ArtifactID,
		ErrorMessage: job.ErrorMessage,
	}
	if job.Options != nil {
		result.Options = map[string]interface{}(job.Options)
	}
	if job.Metrics != nil {
		result.Metrics = map[string]interface{}(job.Metrics)
	}
	return result
}

// toMap round-trips v through JSON so it can be stored in a JSON column.
func toMap(v interface{}) map[string]interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
