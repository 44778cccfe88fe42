package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
	appErrors "github.com/JuanCruzRobledo/correccion-automatica-api/pkg/errors"
)

type mockSubmissionRepo struct {
	submissions   map[string]*models.Submission
	byRubric      []models.Submission
	existingCodes map[string]bool
	created       *models.Submission
	createErr     error
	statusUpdates map[string]models.SubmissionStatus
	correctedID   string
	deletedID     string
}

func (m *mockSubmissionRepo) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	var out []models.Submission
	for _, s := range m.submissions {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *mockSubmissionRepo) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	s, ok := m.submissions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *s
	return &clone, nil
}

func (m *mockSubmissionRepo) FindByRubric(ctx context.Context, rubricCode, commissionCode string) ([]models.Submission, error) {
	return m.byRubric, nil
}

func (m *mockSubmissionRepo) ExistsByCode(ctx context.Context, rubricCode, commissionCode, code, excludeID string) (bool, error) {
	return m.existingCodes[code], nil
}

func (m *mockSubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	if m.createErr != nil {
		return m.createErr
	}
	submission.ID = "sub-1"
	m.created = submission
	return nil
}

func (m *mockSubmissionRepo) UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus) error {
	if m.statusUpdates == nil {
		m.statusUpdates = make(map[string]models.SubmissionStatus)
	}
	m.statusUpdates[id] = status
	return nil
}

func (m *mockSubmissionRepo) SetCorrection(ctx context.Context, id string, grade *float64, summary string) error {
	m.correctedID = id
	return nil
}

func (m *mockSubmissionRepo) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return nil
}

type mockSubmissionRubrics struct {
	rubric *models.Rubric
}

func (m *mockSubmissionRubrics) FindByCode(ctx context.Context, universityCode, commissionCode, code string) (*models.Rubric, error) {
	if m.rubric == nil {
		return nil, sql.ErrNoRows
	}
	return m.rubric, nil
}

type mockSubmissionStorage struct {
	saved   map[string][]byte
	deleted []string
}

func (m *mockSubmissionStorage) SaveStream(filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[filename] = data
	return filename, nil
}

func (m *mockSubmissionStorage) Open(filename string) (*os.File, error) {
	return nil, errors.New("not implemented")
}

func (m *mockSubmissionStorage) Delete(filename string) error {
	m.deleted = append(m.deleted, filename)
	return nil
}

type mockSigner struct {
	resourceID string
	relPath    string
	parseErr   error
}

func (m *mockSigner) Generate(resourceID, relPath string) (string, time.Time, error) {
	return "signed-token", time.Now().Add(time.Minute), nil
}

func (m *mockSigner) Parse(token string, allowExpired bool) (string, string, time.Time, error) {
	if m.parseErr != nil {
		return "", "", time.Time{}, m.parseErr
	}
	return m.resourceID, m.relPath, time.Now().Add(time.Minute), nil
}

func reviewerClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "prof-1", Role: models.RoleProfessor}
}

func newTestSubmissionService(repo *mockSubmissionRepo, rubrics *mockSubmissionRubrics, storage *mockSubmissionStorage, signer *mockSigner) *SubmissionService {
	return NewSubmissionService(repo, rubrics, storage, signer, 1024, []string{"application/zip"}, nil, nil)
}

func TestSubmissionUpload(t *testing.T) {
	repo := &mockSubmissionRepo{}
	rubrics := &mockSubmissionRubrics{rubric: &models.Rubric{Code: "tp1", CommissionCode: "k1051"}}
	storage := &mockSubmissionStorage{}
	svc := newTestSubmissionService(repo, rubrics, storage, &mockSigner{})

	req := UploadSubmissionRequest{StudentName: "Juan Perez", UniversityCode: "utn", CommissionCode: "k1051", RubricCode: "tp1"}
	sub, err := svc.Upload(context.Background(), reviewerClaims(), req, "entrega.zip", "application/zip", 10, strings.NewReader("zip-bytes!"))
	require.NoError(t, err)
	assert.Equal(t, "juan-perez", sub.Code)
	assert.Equal(t, models.SubmissionUploaded, sub.Status)
	assert.Equal(t, "tp1", sub.RubricCode)
	require.NotNil(t, sub.UploadedBy)
	assert.Equal(t, "prof-1", *sub.UploadedBy)
	assert.Len(t, storage.saved, 1)
}

func TestSubmissionUploadRejectsOversizedFile(t *testing.T) {
	svc := newTestSubmissionService(&mockSubmissionRepo{}, &mockSubmissionRubrics{}, &mockSubmissionStorage{}, &mockSigner{})

	req := UploadSubmissionRequest{StudentName: "Juan", UniversityCode: "utn", CommissionCode: "k1051", RubricCode: "tp1"}
	_, err := svc.Upload(context.Background(), nil, req, "f.zip", "application/zip", 2048, strings.NewReader(""))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmissionUploadRejectsMimeType(t *testing.T) {
	svc := newTestSubmissionService(&mockSubmissionRepo{}, &mockSubmissionRubrics{}, &mockSubmissionStorage{}, &mockSigner{})

	req := UploadSubmissionRequest{StudentName: "Juan", UniversityCode: "utn", CommissionCode: "k1051", RubricCode: "tp1"}
	_, err := svc.Upload(context.Background(), nil, req, "f.exe", "application/octet-stream", 10, strings.NewReader(""))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmissionUploadCleansUpOnRepoFailure(t *testing.T) {
	repo := &mockSubmissionRepo{createErr: errors.New("insert failed")}
	rubrics := &mockSubmissionRubrics{rubric: &models.Rubric{Code: "tp1", CommissionCode: "k1051"}}
	storage := &mockSubmissionStorage{}
	svc := newTestSubmissionService(repo, rubrics, storage, &mockSigner{})

	req := UploadSubmissionRequest{StudentName: "Juan", UniversityCode: "utn", CommissionCode: "k1051", RubricCode: "tp1"}
	_, err := svc.Upload(context.Background(), nil, req, "f.zip", "application/zip", 10, strings.NewReader("data"))
	require.Error(t, err)
	assert.Len(t, storage.deleted, 1)
}

func TestSubmissionUploadCodeCollision(t *testing.T) {
	repo := &mockSubmissionRepo{existingCodes: map[string]bool{"juan-perez": true}}
	rubrics := &mockSubmissionRubrics{rubric: &models.Rubric{Code: "tp1", CommissionCode: "k1051"}}
	svc := newTestSubmissionService(repo, rubrics, &mockSubmissionStorage{}, &mockSigner{})

	req := UploadSubmissionRequest{StudentName: "Juan Perez", UniversityCode: "utn", CommissionCode: "k1051", RubricCode: "tp1"}
	sub, err := svc.Upload(context.Background(), nil, req, "f.zip", "application/zip", 10, strings.NewReader("data"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sub.Code, "juan-perez-"))
	assert.NotEqual(t, "juan-perez", sub.Code)
}

func TestSubmissionQueueForCorrection(t *testing.T) {
	repo := &mockSubmissionRepo{submissions: map[string]*models.Submission{
		"sub-1": {ID: "sub-1", Status: models.SubmissionUploaded},
	}}
	svc := newTestSubmissionService(repo, &mockSubmissionRubrics{}, &mockSubmissionStorage{}, &mockSigner{})

	sub, err := svc.QueueForCorrection(context.Background(), reviewerClaims(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionPendingCorrection, sub.Status)
	assert.Equal(t, models.SubmissionPendingCorrection, repo.statusUpdates["sub-1"])
}

func TestSubmissionInvalidTransition(t *testing.T) {
	repo := &mockSubmissionRepo{submissions: map[string]*models.Submission{
		"sub-1": {ID: "sub-1", Status: models.SubmissionCorrected},
	}}
	svc := newTestSubmissionService(repo, &mockSubmissionRubrics{}, &mockSubmissionStorage{}, &mockSigner{})

	_, err := svc.QueueForCorrection(context.Background(), reviewerClaims(), "sub-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestSubmissionRecordCorrection(t *testing.T) {
	repo := &mockSubmissionRepo{submissions: map[string]*models.Submission{
		"sub-1": {ID: "sub-1", Status: models.SubmissionPendingCorrection},
	}}
	svc := newTestSubmissionService(repo, &mockSubmissionRubrics{}, &mockSubmissionStorage{}, &mockSigner{})

	grade := 8.5
	sub, err := svc.RecordCorrection(context.Background(), reviewerClaims(), "sub-1", RecordCorrectionRequest{Grade: &grade, Summary: "bien"})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionCorrected, sub.Status)
	require.NotNil(t, sub.Grade)
	assert.Equal(t, 8.5, *sub.Grade)
	assert.Equal(t, "sub-1", repo.correctedID)
}

func TestSubmissionRecordCorrectionForbiddenRole(t *testing.T) {
	repo := &mockSubmissionRepo{submissions: map[string]*models.Submission{
		"sub-1": {ID: "sub-1", Status: models.SubmissionPendingCorrection},
	}}
	svc := newTestSubmissionService(repo, &mockSubmissionRubrics{}, &mockSubmissionStorage{}, &mockSigner{})
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleUser}

	_, err := svc.RecordCorrection(context.Background(), claims, "sub-1", RecordCorrectionRequest{Summary: "bien"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSubmissionSignDownload(t *testing.T) {
	repo := &mockSubmissionRepo{submissions: map[string]*models.Submission{
		"sub-1": {ID: "sub-1", StoragePath: "k1051/tp1/juan.zip"},
	}}
	svc := newTestSubmissionService(repo, &mockSubmissionRubrics{}, &mockSubmissionStorage{}, &mockSigner{})

	signed, err := svc.SignDownload(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "signed-token", signed.Token)
	assert.True(t, signed.ExpiresAt.After(time.Now()))
}

func TestSubmissionOpenByTokenPathMismatch(t *testing.T) {
	repo := &mockSubmissionRepo{submissions: map[string]*models.Submission{
		"sub-1": {ID: "sub-1", StoragePath: "k1051/tp1/juan.zip"},
	}}
	signer := &mockSigner{resourceID: "sub-1", relPath: "k1051/tp1/otro.zip"}
	svc := newTestSubmissionService(repo, &mockSubmissionRubrics{}, &mockSubmissionStorage{}, signer)

	_, _, err := svc.OpenByToken(context.Background(), "token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestSubmissionExportCSV(t *testing.T) {
	grade := 9.0
	summary := "excelente"
	repo := &mockSubmissionRepo{byRubric: []models.Submission{
		{Code: "juan-perez", StudentName: "Juan Perez", FileName: "entrega.zip", Status: models.SubmissionCorrected, Grade: &grade, Summary: &summary},
		{Code: "ana-gomez", StudentName: "Ana Gomez", FileName: "tp.zip", Status: models.SubmissionUploaded},
	}}
	svc := newTestSubmissionService(repo, &mockSubmissionRubrics{}, &mockSubmissionStorage{}, &mockSigner{})

	var buf bytes.Buffer
	err := svc.ExportCSV(context.Background(), "tp1", "k1051", &buf)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "student_name")
	assert.Contains(t, lines[1], "9.00")
	assert.Contains(t, lines[2], "ana-gomez")
}

func TestSubmissionDeleteRemovesFile(t *testing.T) {
	repo := &mockSubmissionRepo{submissions: map[string]*models.Submission{
		"sub-1": {ID: "sub-1", StoragePath: "k1051/tp1/juan.zip"},
	}}
	storage := &mockSubmissionStorage{}
	svc := newTestSubmissionService(repo, &mockSubmissionRubrics{}, storage, &mockSigner{})

	err := svc.Delete(context.Background(), reviewerClaims(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", repo.deletedID)
	assert.Equal(t, []string{"k1051/tp1/juan.zip"}, storage.deleted)
}
