package service

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
	appErrors "github.com/JuanCruzRobledo/correccion-automatica-api/pkg/errors"
	"github.com/JuanCruzRobledo/correccion-automatica-api/pkg/jobs"
	"github.com/JuanCruzRobledo/correccion-automatica-api/pkg/storage"
)

type mockConsolidationRepo struct {
	jobs      map[string]*models.ConsolidationJob
	listed    []models.ConsolidationJob
	listedBy  string
	failedMsg string
}

func (m *mockConsolidationRepo) Create(ctx context.Context, job *models.ConsolidationJob) error {
	if m.jobs == nil {
		m.jobs = make(map[string]*models.ConsolidationJob)
	}
	job.CreatedAt = time.Now().UTC()
	m.jobs[job.ID] = job
	return nil
}

func (m *mockConsolidationRepo) FindByID(ctx context.Context, id string) (*models.ConsolidationJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *job
	return &clone, nil
}

func (m *mockConsolidationRepo) ListRecent(ctx context.Context, requestedBy string, limit int) ([]models.ConsolidationJob, error) {
	m.listedBy = requestedBy
	return m.listed, nil
}

func (m *mockConsolidationRepo) MarkProcessing(ctx context.Context, id string) error {
	m.jobs[id].Status = models.ConsolidationProcessing
	return nil
}

func (m *mockConsolidationRepo) MarkCompleted(ctx context.Context, id string, total, succeeded, failed int, results, similarity json.RawMessage, outputPath string) error {
	job := m.jobs[id]
	job.Status = models.ConsolidationCompleted
	job.TotalProjects = total
	job.Succeeded = succeeded
	job.Failed = failed
	job.Results = results
	job.Similarity = similarity
	job.OutputPath = &outputPath
	return nil
}

func (m *mockConsolidationRepo) MarkFailed(ctx context.Context, id, message string) error {
	m.failedMsg = message
	if job, ok := m.jobs[id]; ok {
		job.Status = models.ConsolidationFailed
		job.ErrorMessage = &message
	}
	return nil
}

func (m *mockConsolidationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	return nil, nil
}

type recordingQueue struct {
	jobs []jobs.Job
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func zipBytes(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newTestConsolidator(t *testing.T, repo *mockConsolidationRepo) (*ConsolidatorService, *recordingQueue) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewConsolidatorService(repo, store, &mockSigner{}, 10<<20, 50<<20, time.Hour, nil)
	queue := &recordingQueue{}
	svc.SetQueue(queue)
	return svc, queue
}

func TestConsolidateSingle(t *testing.T) {
	svc, _ := newTestConsolidator(t, &mockConsolidationRepo{})
	archive := zipBytes(t, map[string][]byte{
		"src/main.py": []byte("print('hola')\n"),
		"src/util.py": []byte("x = 1\n"),
	})

	project, err := svc.ConsolidateSingle(context.Background(), "tp-juan", archive, ConsolidateRequest{Mode: "python"})
	require.NoError(t, err)
	assert.Equal(t, "tp-juan", project.Name)
	assert.Equal(t, 2, project.FileCount)
	assert.Contains(t, project.Content, "print('hola')")
}

func TestCheckSingleSizeByDeclaredSize(t *testing.T) {
	svc, _ := newTestConsolidator(t, &mockConsolidationRepo{})

	assert.NoError(t, svc.CheckSingleSize(10<<20))

	err := svc.CheckSingleSize(10<<20 + 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestConsolidateSingleInvalidZip(t *testing.T) {
	svc, _ := newTestConsolidator(t, &mockConsolidationRepo{})

	_, err := svc.ConsolidateSingle(context.Background(), "tp", []byte("not a zip"), ConsolidateRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestConsolidateSingleUnknownMode(t *testing.T) {
	svc, _ := newTestConsolidator(t, &mockConsolidationRepo{})

	_, err := svc.ConsolidateSingle(context.Background(), "tp", []byte{}, ConsolidateRequest{Mode: "cobol"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStartBatchEnqueuesJob(t *testing.T) {
	repo := &mockConsolidationRepo{}
	svc, queue := newTestConsolidator(t, repo)
	archive := zipBytes(t, map[string][]byte{"entregas/juan/tp.zip": {0x50}})
	claims := &models.JWTClaims{UserID: "prof-1", Role: models.RoleProfessor}

	job, err := svc.StartBatch(context.Background(), claims, "comision.zip", int64(len(archive)), bytes.NewReader(archive), ConsolidateRequest{Mode: "java"})
	require.NoError(t, err)
	assert.Equal(t, models.ConsolidationQueued, job.Status)
	require.NotNil(t, job.RequestedBy)
	assert.Equal(t, "prof-1", *job.RequestedBy)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, job.ID, queue.jobs[0].ID)
	assert.Equal(t, JobTypeBatchConsolidation, queue.jobs[0].Type)
}

func TestBatchEndToEnd(t *testing.T) {
	repo := &mockConsolidationRepo{}
	svc, queue := newTestConsolidator(t, repo)

	inner := func(files map[string][]byte) []byte { return zipBytes(t, files) }
	batch := zipBytes(t, map[string][]byte{
		"entregas/juan-perez/tp.zip": inner(map[string][]byte{"main.py": []byte("print('juan')\n")}),
		"entregas/ana-gomez/tp.zip":  inner(map[string][]byte{"main.py": []byte("print('ana')\n")}),
		"entregas/vacio/tp.zip":      inner(map[string][]byte{"notas.docx": []byte("sin codigo")}),
	})

	job, err := svc.StartBatch(context.Background(), nil, "comision.zip", int64(len(batch)), bytes.NewReader(batch), ConsolidateRequest{Mode: "python"})
	require.NoError(t, err)
	require.Len(t, queue.jobs, 1)

	require.NoError(t, svc.HandleJob(context.Background(), queue.jobs[0]))

	done, err := svc.GetJob(context.Background(), nil, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConsolidationCompleted, done.Status)
	assert.Equal(t, 3, done.TotalProjects)
	assert.Equal(t, 2, done.Succeeded)
	assert.Equal(t, 1, done.Failed)
	require.NotNil(t, done.OutputPath)

	var results []models.StudentResult
	require.NoError(t, json.Unmarshal(done.Results, &results))
	require.Len(t, results, 3)
	assert.Equal(t, "ana-gomez", results[0].Student)
	assert.Equal(t, "success", results[0].Status)
	assert.Equal(t, "vacio", results[2].Student)
	assert.Equal(t, "error", results[2].Status)
}

func TestHandleJobSkipsAlreadyProcessed(t *testing.T) {
	repo := &mockConsolidationRepo{jobs: map[string]*models.ConsolidationJob{
		"job-1": {ID: "job-1", Status: models.ConsolidationCompleted},
	}}
	svc, _ := newTestConsolidator(t, repo)

	err := svc.HandleJob(context.Background(), jobs.Job{ID: "job-1", Type: JobTypeBatchConsolidation, Payload: "incoming/job-1.zip"})
	require.NoError(t, err)
	assert.Equal(t, models.ConsolidationCompleted, repo.jobs["job-1"].Status)
}

func TestHandleJobMarksFailureWithoutRetry(t *testing.T) {
	repo := &mockConsolidationRepo{}
	svc, queue := newTestConsolidator(t, repo)

	// Batch archive with no student directories at all.
	batch := zipBytes(t, map[string][]byte{"README.txt": []byte("vacio")})
	job, err := svc.StartBatch(context.Background(), nil, "vacio.zip", int64(len(batch)), bytes.NewReader(batch), ConsolidateRequest{Mode: "python"})
	require.NoError(t, err)

	require.NoError(t, svc.HandleJob(context.Background(), queue.jobs[0]))

	failed, err := svc.GetJob(context.Background(), nil, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConsolidationFailed, failed.Status)
	require.NotNil(t, failed.ErrorMessage)
	assert.NotEmpty(t, repo.failedMsg)
}

func TestSignOutputRequiresCompletedJob(t *testing.T) {
	outputPath := "outputs/job-1.zip"
	repo := &mockConsolidationRepo{jobs: map[string]*models.ConsolidationJob{
		"job-1": {ID: "job-1", Status: models.ConsolidationProcessing},
		"job-2": {ID: "job-2", Status: models.ConsolidationCompleted, OutputPath: &outputPath},
	}}
	svc, _ := newTestConsolidator(t, repo)

	_, err := svc.SignOutput(context.Background(), nil, "job-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	signed, err := svc.SignOutput(context.Background(), nil, "job-2")
	require.NoError(t, err)
	assert.Equal(t, "signed-token", signed.Token)
}

func TestGetJobScopedToRequester(t *testing.T) {
	repo := &mockConsolidationRepo{jobs: map[string]*models.ConsolidationJob{
		"job-1": {ID: "job-1", Status: models.ConsolidationCompleted, RequestedBy: strPtr("prof-1")},
	}}
	svc, _ := newTestConsolidator(t, repo)

	_, err := svc.GetJob(context.Background(), &models.JWTClaims{UserID: "prof-2", Role: models.RoleProfessor}, "job-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	owned, err := svc.GetJob(context.Background(), &models.JWTClaims{UserID: "prof-1", Role: models.RoleProfessor}, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", owned.ID)

	other, err := svc.GetJob(context.Background(), &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", other.ID)
}

func TestListJobsScopesNonAdmins(t *testing.T) {
	repo := &mockConsolidationRepo{}
	svc, _ := newTestConsolidator(t, repo)

	_, err := svc.ListJobs(context.Background(), &models.JWTClaims{UserID: "prof-1", Role: models.RoleProfessor}, 10)
	require.NoError(t, err)
	assert.Equal(t, "prof-1", repo.listedBy)

	_, err = svc.ListJobs(context.Background(), &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}, 10)
	require.NoError(t, err)
	assert.Empty(t, repo.listedBy)
}
