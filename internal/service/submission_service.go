package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
	appErrors "github.com/JuanCruzRobledo/correccion-automatica-api/pkg/errors"
	"github.com/JuanCruzRobledo/correccion-automatica-api/pkg/slug"
)

type submissionRepository interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error)
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	FindByRubric(ctx context.Context, rubricCode, commissionCode string) ([]models.Submission, error)
	ExistsByCode(ctx context.Context, rubricCode, commissionCode, code, excludeID string) (bool, error)
	Create(ctx context.Context, submission *models.Submission) error
	UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus) error
	SetCorrection(ctx context.Context, id string, grade *float64, summary string) error
	Delete(ctx context.Context, id string) error
}

type submissionRubricRepository interface {
	FindByCode(ctx context.Context, universityCode, commissionCode, code string) (*models.Rubric, error)
}

type submissionStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type submissionSigner interface {
	Generate(resourceID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (resourceID, relPath string, expiresAt time.Time, err error)
}

// UploadSubmissionRequest accompanies the multipart file on upload.
type UploadSubmissionRequest struct {
	StudentName    string `form:"student_name" validate:"required"`
	UniversityCode string `form:"university_id" validate:"required"`
	CommissionCode string `form:"commission_id" validate:"required"`
	RubricCode     string `form:"rubric_id" validate:"required"`
}

// RecordCorrectionRequest attaches the grading outcome to a submission.
type RecordCorrectionRequest struct {
	Grade   *float64 `json:"grade" validate:"omitempty,min=0,max=10"`
	Summary string   `json:"summary" validate:"required"`
}

// SignedDownload is a time-limited download grant for a stored file.
type SignedDownload struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SubmissionService handles the student submission workflow: upload,
// correction state transitions, downloads and CSV export.
type SubmissionService struct {
	repo         submissionRepository
	rubrics      submissionRubricRepository
	storage      submissionStorage
	signer       submissionSigner
	maxSizeBytes int64
	allowedMIMEs map[string]bool
	validator    *validator.Validate
	metrics      submissionMetricsRecorder
	logger       *zap.Logger
}

type submissionMetricsRecorder interface {
	RecordSubmissionUploaded()
	RecordCorrection()
}

// SetMetrics attaches a recorder for submission workflow counters.
func (s *SubmissionService) SetMetrics(metrics submissionMetricsRecorder) {
	s.metrics = metrics
}

// NewSubmissionService creates a new submission service.
func NewSubmissionService(repo submissionRepository, rubrics submissionRubricRepository, storage submissionStorage, signer submissionSigner, maxSizeBytes int64, allowedMIMEs []string, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[string]bool, len(allowedMIMEs))
	for _, m := range allowedMIMEs {
		allowed[strings.ToLower(m)] = true
	}
	return &SubmissionService{
		repo:         repo,
		rubrics:      rubrics,
		storage:      storage,
		signer:       signer,
		maxSizeBytes: maxSizeBytes,
		allowedMIMEs: allowed,
		validator:    validate,
		logger:       logger,
	}
}

// List returns paginated submissions.
func (s *SubmissionService) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, *models.Pagination, error) {
	submissions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return submissions, pagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a submission by id.
func (s *SubmissionService) Get(ctx context.Context, id string) (*models.Submission, error) {
	submission, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return submission, nil
}

// Upload validates and stores a student's project file, then records the
// submission in the uploaded state.
func (s *SubmissionService) Upload(ctx context.Context, claims *models.JWTClaims, req UploadSubmissionRequest, fileName, mimeType string, size int64, file io.Reader) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	if size <= 0 || (s.maxSizeBytes > 0 && size > s.maxSizeBytes) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file size must be between 1 and %d bytes", s.maxSizeBytes))
	}
	if len(s.allowedMIMEs) > 0 && !s.allowedMIMEs[strings.ToLower(mimeType)] {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file type not allowed")
	}

	rubric, err := s.rubrics.FindByCode(ctx, req.UniversityCode, req.CommissionCode, req.RubricCode)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rubric not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rubric")
	}

	code, err := s.uniqueCode(ctx, rubric.Code, rubric.CommissionCode, req.StudentName)
	if err != nil {
		return nil, err
	}

	storedName := filepath.Join(rubric.CommissionCode, rubric.Code, code+filepath.Ext(fileName))
	relPath, err := s.storage.SaveStream(storedName, file)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store submission file")
	}

	submission := &models.Submission{
		Code:           code,
		StudentName:    strings.TrimSpace(req.StudentName),
		FileName:       fileName,
		StoragePath:    relPath,
		SizeBytes:      size,
		MimeType:       mimeType,
		Status:         models.SubmissionUploaded,
		RubricCode:     rubric.Code,
		CommissionCode: rubric.CommissionCode,
	}
	if claims != nil {
		submission.UploadedBy = &claims.UserID
	}
	if err := s.repo.Create(ctx, submission); err != nil {
		if delErr := s.storage.Delete(relPath); delErr != nil {
			s.logger.Warn("failed to remove orphaned submission file", zap.String("path", relPath), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record submission")
	}
	if s.metrics != nil {
		s.metrics.RecordSubmissionUploaded()
	}
	return submission, nil
}

// QueueForCorrection moves an uploaded or failed submission into the
// pending-correction state.
func (s *SubmissionService) QueueForCorrection(ctx context.Context, claims *models.JWTClaims, id string) (*models.Submission, error) {
	return s.transition(ctx, claims, id, models.SubmissionPendingCorrection)
}

// MarkFailed records that correction could not complete.
func (s *SubmissionService) MarkFailed(ctx context.Context, claims *models.JWTClaims, id string) (*models.Submission, error) {
	return s.transition(ctx, claims, id, models.SubmissionFailed)
}

// RecordCorrection stores the grading outcome and marks the submission
// corrected.
func (s *SubmissionService) RecordCorrection(ctx context.Context, claims *models.JWTClaims, id string, req RecordCorrectionRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid correction payload")
	}
	if claims != nil && !models.Capabilities(claims.Role).ReviewSubmissions {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not review submissions")
	}

	submission, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.ValidSubmissionTransition(submission.Status, models.SubmissionCorrected) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("cannot correct a submission in state %q", submission.Status))
	}

	if err := s.repo.SetCorrection(ctx, id, req.Grade, req.Summary); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record correction")
	}

	submission.Status = models.SubmissionCorrected
	submission.Grade = req.Grade
	summary := req.Summary
	submission.Summary = &summary
	if s.metrics != nil {
		s.metrics.RecordCorrection()
	}
	return submission, nil
}

// SignDownload issues a time-limited token for downloading the stored file.
func (s *SubmissionService) SignDownload(ctx context.Context, id string) (*SignedDownload, error) {
	submission, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(submission.ID, submission.StoragePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	return &SignedDownload{Token: token, ExpiresAt: expiresAt}, nil
}

// OpenByToken validates a signed token and opens the referenced file.
func (s *SubmissionService) OpenByToken(ctx context.Context, token string) (*models.Submission, *os.File, error) {
	id, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}

	submission, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if submission.StoragePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "download token does not match the stored file")
	}

	f, err := s.storage.Open(relPath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open submission file")
	}
	return submission, f, nil
}

// Delete removes a submission record and its stored file.
func (s *SubmissionService) Delete(ctx context.Context, claims *models.JWTClaims, id string) error {
	if claims != nil && !models.Capabilities(claims.Role).ReviewSubmissions {
		return appErrors.Clone(appErrors.ErrForbidden, "role may not manage submissions")
	}

	submission, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete submission")
	}
	if err := s.storage.Delete(submission.StoragePath); err != nil {
		s.logger.Warn("failed to remove submission file", zap.String("path", submission.StoragePath), zap.Error(err))
	}
	return nil
}

// ExportCSV writes every submission of a rubric as CSV rows.
func (s *SubmissionService) ExportCSV(ctx context.Context, rubricCode, commissionCode string, w io.Writer) error {
	submissions, err := s.repo.FindByRubric(ctx, rubricCode, commissionCode)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submissions")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"submission_id", "student_name", "file_name", "status", "grade", "summary", "uploaded_at"}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write csv header")
	}
	for _, sub := range submissions {
		grade := ""
		if sub.Grade != nil {
			grade = strconv.FormatFloat(*sub.Grade, 'f', 2, 64)
		}
		summary := ""
		if sub.Summary != nil {
			summary = *sub.Summary
		}
		row := []string{sub.Code, sub.StudentName, sub.FileName, string(sub.Status), grade, summary, sub.CreatedAt.UTC().Format(time.RFC3339)}
		if err := cw.Write(row); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write csv row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to flush csv")
	}
	return nil
}

func (s *SubmissionService) transition(ctx context.Context, claims *models.JWTClaims, id string, to models.SubmissionStatus) (*models.Submission, error) {
	if claims != nil && !models.Capabilities(claims.Role).ReviewSubmissions {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not review submissions")
	}

	submission, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.ValidSubmissionTransition(submission.Status, to) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("cannot move submission from %q to %q", submission.Status, to))
	}

	if err := s.repo.UpdateStatus(ctx, id, to); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update submission status")
	}
	submission.Status = to
	return submission, nil
}

// uniqueCode derives a submission identifier from the student name and
// suffixes a short random fragment on collision.
func (s *SubmissionService) uniqueCode(ctx context.Context, rubricCode, commissionCode, studentName string) (string, error) {
	base := slug.Generate(studentName, 40)
	if base == "" {
		base = "entrega"
	}

	code := base
	for attempt := 0; attempt < 3; attempt++ {
		exists, err := s.repo.ExistsByCode(ctx, rubricCode, commissionCode, code, "")
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check submission identifier")
		}
		if !exists {
			return code, nil
		}
		code = base + "-" + uuid.NewString()[:8]
	}
	return "", appErrors.Clone(appErrors.ErrConflict, "could not derive a unique submission identifier")
}
