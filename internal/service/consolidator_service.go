package service

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
	appErrors "github.com/JuanCruzRobledo/correccion-automatica-api/pkg/errors"
	"github.com/JuanCruzRobledo/correccion-automatica-api/pkg/jobs"
)

// JobTypeBatchConsolidation names the queue job kind for batch runs.
const JobTypeBatchConsolidation = "batch-consolidation"

type consolidationRepository interface {
	Create(ctx context.Context, job *models.ConsolidationJob) error
	FindByID(ctx context.Context, id string) (*models.ConsolidationJob, error)
	ListRecent(ctx context.Context, requestedBy string, limit int) ([]models.ConsolidationJob, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, total, succeeded, failed int, results, similarity json.RawMessage, outputPath string) error
	MarkFailed(ctx context.Context, id, message string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
}

type consolidatorStorage interface {
	Save(filename string, data []byte) (string, error)
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// ConsolidateRequest selects what the consolidator collects from a project
// archive.
type ConsolidateRequest struct {
	Mode         string   `json:"mode" form:"mode"`
	Extensions   []string `json:"extensions" form:"extensions"`
	IncludeTests bool     `json:"include_tests" form:"include_tests"`
}

// ConsolidatorService flattens project archives into single annotated text
// documents. Single archives run inline; whole-commission batches run as
// background jobs with a persisted job row and a downloadable output ZIP.
type ConsolidatorService struct {
	repo           consolidationRepository
	storage        consolidatorStorage
	signer         submissionSigner
	queue          jobEnqueuer
	maxUploadBytes int64
	maxBatchBytes  int64
	retention      time.Duration
	metrics        batchMetricsRecorder
	logger         *zap.Logger
}

type batchMetricsRecorder interface {
	RecordBatchJob(succeeded bool, duration time.Duration)
}

// SetMetrics attaches a recorder for batch job counters.
func (s *ConsolidatorService) SetMetrics(metrics batchMetricsRecorder) {
	s.metrics = metrics
}

// NewConsolidatorService creates a new consolidator service. The queue is
// attached afterwards via SetQueue because the queue handler needs the
// service and the service needs the queue.
func NewConsolidatorService(repo consolidationRepository, storage consolidatorStorage, signer submissionSigner, maxUploadBytes, maxBatchBytes int64, retention time.Duration, logger *zap.Logger) *ConsolidatorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &ConsolidatorService{
		repo:           repo,
		storage:        storage,
		signer:         signer,
		maxUploadBytes: maxUploadBytes,
		maxBatchBytes:  maxBatchBytes,
		retention:      retention,
		logger:         logger,
	}
}

// SetQueue wires the job queue used for batch runs.
func (s *ConsolidatorService) SetQueue(queue jobEnqueuer) {
	s.queue = queue
}

// CheckSingleSize rejects an archive by its declared size, letting callers
// fail before buffering the body.
func (s *ConsolidatorService) CheckSingleSize(size int64) error {
	if s.maxUploadBytes > 0 && size > s.maxUploadBytes {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("archive exceeds the %d byte limit", s.maxUploadBytes))
	}
	return nil
}

// ConsolidateSingle flattens one project ZIP synchronously and returns the
// consolidated document with its stats.
func (s *ConsolidatorService) ConsolidateSingle(ctx context.Context, projectName string, data []byte, req ConsolidateRequest) (*ConsolidatedProject, error) {
	if err := s.CheckSingleSize(int64(len(data))); err != nil {
		return nil, err
	}

	mode := models.ConsolidationMode(req.Mode)
	if mode == "" {
		mode = models.ModeUniversal
	}
	if !models.ValidConsolidationMode(mode) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown consolidation mode")
	}
	exts, err := resolveExtensions(mode, req.Extensions)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is not a valid ZIP archive")
	}

	if projectName == "" {
		projectName = "proyecto"
	}
	project, err := consolidateArchive(reader, projectName, exts, req.IncludeTests)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return project, nil
}

// StartBatch stores the uploaded batch archive, records a queued job and
// hands it to the worker pool.
func (s *ConsolidatorService) StartBatch(ctx context.Context, claims *models.JWTClaims, archiveName string, size int64, file io.Reader, req ConsolidateRequest) (*models.ConsolidationJob, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "batch consolidation workers are not running")
	}
	if size <= 0 || (s.maxBatchBytes > 0 && size > s.maxBatchBytes) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("batch archive size must be between 1 and %d bytes", s.maxBatchBytes))
	}

	mode := models.ConsolidationMode(req.Mode)
	if mode == "" {
		mode = models.ModeUniversal
	}
	if !models.ValidConsolidationMode(mode) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown consolidation mode")
	}
	if _, err := resolveExtensions(mode, req.Extensions); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	jobID := uuid.NewString()
	incoming := path.Join("incoming", jobID+".zip")
	if _, err := s.storage.SaveStream(incoming, io.LimitReader(file, s.maxBatchBytes)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store batch archive")
	}

	job := &models.ConsolidationJob{
		ID:           jobID,
		Status:       models.ConsolidationQueued,
		Mode:         mode,
		Extensions:   strings.Join(req.Extensions, ","),
		IncludeTests: req.IncludeTests,
		ArchiveName:  archiveName,
	}
	if claims != nil {
		job.RequestedBy = &claims.UserID
	}
	if err := s.repo.Create(ctx, job); err != nil {
		if delErr := s.storage.Delete(incoming); delErr != nil {
			s.logger.Warn("failed to remove orphaned batch archive", zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record batch job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: jobID, Type: JobTypeBatchConsolidation, Payload: incoming}); err != nil {
		if markErr := s.repo.MarkFailed(ctx, jobID, "could not enqueue job"); markErr != nil {
			s.logger.Error("failed to mark unqueued job", zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue batch job")
	}

	return job, nil
}

// GetJob returns the persisted state of a batch job. Non-admin callers may
// only read jobs they requested, mirroring the ListJobs filter.
func (s *ConsolidatorService) GetJob(ctx context.Context, claims *models.JWTClaims, id string) (*models.ConsolidationJob, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "consolidation job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load consolidation job")
	}
	if claims != nil && models.Capabilities(claims.Role).Scope != models.ScopeGlobal {
		if job.RequestedBy == nil || *job.RequestedBy != claims.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "job belongs to another user")
		}
	}
	return job, nil
}

// ListJobs returns the newest batch jobs. Non-admin callers only see their
// own jobs.
func (s *ConsolidatorService) ListJobs(ctx context.Context, claims *models.JWTClaims, limit int) ([]models.ConsolidationJob, error) {
	requestedBy := ""
	if claims != nil && models.Capabilities(claims.Role).Scope != models.ScopeGlobal {
		requestedBy = claims.UserID
	}

	jobList, err := s.repo.ListRecent(ctx, requestedBy, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list consolidation jobs")
	}
	return jobList, nil
}

// SignOutput issues a download token for a completed job's output ZIP.
func (s *ConsolidatorService) SignOutput(ctx context.Context, claims *models.JWTClaims, id string) (*SignedDownload, error) {
	job, err := s.GetJob(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	if job.Status != models.ConsolidationCompleted || job.OutputPath == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "job has no downloadable output")
	}

	token, expiresAt, err := s.signer.Generate(job.ID, *job.OutputPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	return &SignedDownload{Token: token, ExpiresAt: expiresAt}, nil
}

// OpenOutputByToken validates a signed token and opens the output ZIP.
func (s *ConsolidatorService) OpenOutputByToken(ctx context.Context, token string) (*models.ConsolidationJob, *os.File, error) {
	id, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}

	job, err := s.GetJob(ctx, nil, id)
	if err != nil {
		return nil, nil, err
	}
	if job.OutputPath == nil || *job.OutputPath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "download token does not match the job output")
	}

	f, err := s.storage.Open(relPath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open job output")
	}
	return job, f, nil
}

// HandleJob is the queue handler processing one batch consolidation run.
func (s *ConsolidatorService) HandleJob(ctx context.Context, job jobs.Job) error {
	incoming, ok := job.Payload.(string)
	if !ok || incoming == "" {
		return fmt.Errorf("batch job %s carries no archive path", job.ID)
	}

	record, err := s.repo.FindByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load batch job %s: %w", job.ID, err)
	}
	if record.Status != models.ConsolidationQueued {
		// Retried job that already ran; nothing to do.
		return nil
	}
	if err := s.repo.MarkProcessing(ctx, job.ID); err != nil {
		return fmt.Errorf("mark batch job processing: %w", err)
	}

	started := time.Now()
	if err := s.runBatch(ctx, record, incoming); err != nil {
		if markErr := s.repo.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			s.logger.Error("failed to mark batch job failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		if s.metrics != nil {
			s.metrics.RecordBatchJob(false, time.Since(started))
		}
		s.cleanupIncoming(incoming)
		// The failure is recorded on the job row; do not retry.
		return nil
	}

	if s.metrics != nil {
		s.metrics.RecordBatchJob(true, time.Since(started))
	}
	s.cleanupIncoming(incoming)
	return nil
}

func (s *ConsolidatorService) runBatch(ctx context.Context, record *models.ConsolidationJob, incoming string) error {
	f, err := s.storage.Open(incoming)
	if err != nil {
		return fmt.Errorf("open batch archive: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat batch archive: %w", err)
	}
	reader, err := zip.NewReader(f, info.Size())
	if err != nil {
		return fmt.Errorf("batch file is not a valid ZIP archive")
	}

	exts, err := resolveExtensions(record.Mode, splitExtensions(record.Extensions))
	if err != nil {
		return err
	}

	students := groupStudentArchives(reader)
	if len(students) == 0 {
		return fmt.Errorf("archive contains no student submissions under entregas/")
	}

	names := make([]string, 0, len(students))
	for name := range students {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		results   []models.StudentResult
		projects  []*ConsolidatedProject
		outputBuf bytes.Buffer
		succeeded int
		failed    int
	)
	zw := zip.NewWriter(&outputBuf)

	for _, student := range names {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		project, err := s.consolidateStudent(students[student], student, exts, record.IncludeTests)
		if err != nil {
			failed++
			results = append(results, models.StudentResult{Student: student, Status: "error", Message: err.Error()})
			continue
		}

		entry, err := zw.Create(student + ".txt")
		if err != nil {
			return fmt.Errorf("create output entry for %s: %w", student, err)
		}
		if _, err := entry.Write([]byte(project.Content)); err != nil {
			return fmt.Errorf("write output entry for %s: %w", student, err)
		}

		status := "success"
		message := ""
		if len(project.Skipped) > 0 {
			status = "warning"
			message = fmt.Sprintf("%d files skipped", len(project.Skipped))
		}
		succeeded++
		results = append(results, models.StudentResult{
			Student:   student,
			Status:    status,
			FileCount: project.FileCount,
			SizeBytes: project.SizeBytes,
			Message:   message,
		})
		projects = append(projects, project)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize output archive: %w", err)
	}

	outputPath, err := s.storage.Save(path.Join("outputs", record.ID+".zip"), outputBuf.Bytes())
	if err != nil {
		return fmt.Errorf("store output archive: %w", err)
	}

	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal batch results: %w", err)
	}
	similarityJSON, err := json.Marshal(analyzeSimilarity(projects))
	if err != nil {
		return fmt.Errorf("marshal similarity report: %w", err)
	}

	if err := s.repo.MarkCompleted(ctx, record.ID, len(names), succeeded, failed, resultsJSON, similarityJSON, outputPath); err != nil {
		return fmt.Errorf("mark batch job completed: %w", err)
	}

	s.logger.Info("batch consolidation finished",
		zap.String("job_id", record.ID),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed))
	return nil
}

// consolidateStudent merges every archive one student handed in. Most
// students submit a single ZIP; extra ones are folded into the same
// document.
func (s *ConsolidatorService) consolidateStudent(archives []*zip.File, student string, exts map[string]bool, includeTests bool) (*ConsolidatedProject, error) {
	merged := &ConsolidatedProject{Name: student, fileHashes: make(map[string]string)}
	var sb strings.Builder

	for _, archive := range archives {
		rc, err := archive.Open()
		if err != nil {
			return nil, fmt.Errorf("open archive %s", archive.Name)
		}
		data, err := io.ReadAll(io.LimitReader(rc, s.maxUploadBytes+1))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read archive %s", archive.Name)
		}
		if s.maxUploadBytes > 0 && int64(len(data)) > s.maxUploadBytes {
			return nil, fmt.Errorf("archive %s exceeds the per-project size limit", path.Base(archive.Name))
		}

		inner, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("%s is not a valid ZIP archive", path.Base(archive.Name))
		}

		project, err := consolidateArchive(inner, student, exts, includeTests)
		if err != nil {
			return nil, err
		}

		sb.WriteString(project.Content)
		merged.FileCount += project.FileCount
		merged.SizeBytes += project.SizeBytes
		merged.Skipped = append(merged.Skipped, project.Skipped...)
		for name, hash := range project.fileHashes {
			merged.fileHashes[name] = hash
		}
	}

	merged.Content = sb.String()
	return merged, nil
}

// CleanupExpired removes finished jobs past the retention window together
// with their stored outputs. Called periodically from the gateway.
func (s *ConsolidatorService) CleanupExpired(ctx context.Context) {
	paths, err := s.repo.DeleteOlderThan(ctx, time.Now().UTC().Add(-s.retention))
	if err != nil {
		s.logger.Warn("failed to prune expired consolidation jobs", zap.Error(err))
		return
	}
	for _, p := range paths {
		if err := s.storage.Delete(p); err != nil {
			s.logger.Warn("failed to remove expired job output", zap.String("path", p), zap.Error(err))
		}
	}
	if len(paths) > 0 {
		s.logger.Info("pruned expired consolidation outputs", zap.Int("count", len(paths)))
	}
}

func (s *ConsolidatorService) cleanupIncoming(relPath string) {
	if err := s.storage.Delete(relPath); err != nil {
		s.logger.Warn("failed to remove processed batch archive", zap.String("path", relPath), zap.Error(err))
	}
}

// groupStudentArchives maps student directory names to the ZIP entries
// they submitted. Accepted layouts: entregas/{student}/*.zip or
// {student}/*.zip at the archive root.
func groupStudentArchives(r *zip.Reader) map[string][]*zip.File {
	students := make(map[string][]*zip.File)
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if !strings.EqualFold(path.Ext(name), ".zip") {
			continue
		}

		parts := strings.Split(name, "/")
		if len(parts) > 1 && strings.EqualFold(parts[0], "entregas") {
			parts = parts[1:]
		}
		if len(parts) < 2 || parts[0] == "" {
			continue
		}
		students[parts[0]] = append(students[parts[0]], f)
	}
	return students
}

func splitExtensions(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
