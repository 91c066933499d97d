package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/bosocmputer/display_audit_gemini/internal/ai"
	"github.com/bosocmputer/display_audit_gemini/internal/analysis"
	"github.com/bosocmputer/display_audit_gemini/internal/common"
	"github.com/bosocmputer/display_audit_gemini/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- fakes ---

type fakeRepo struct {
	tasks         map[primitive.ObjectID]*storage.Task
	stores        map[primitive.ObjectID]*storage.Store
	storesByCode  map[string]*storage.Store
	results       []*storage.AuditResult
	progressCalls int
	createErr     error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		tasks:        map[primitive.ObjectID]*storage.Task{},
		stores:       map[primitive.ObjectID]*storage.Store{},
		storesByCode: map[string]*storage.Store{},
	}
}

func (r *fakeRepo) addTask(task *storage.Task) *storage.Task {
	task.ID = primitive.NewObjectID()
	r.tasks[task.ID] = task
	return task
}

func (r *fakeRepo) addStore(code string) *storage.Store {
	store := &storage.Store{ID: primitive.NewObjectID(), Code: code, Name: "Store " + code, Active: true}
	r.stores[store.ID] = store
	r.storesByCode[code] = store
	return store
}

func (r *fakeRepo) GetTask(_ context.Context, id primitive.ObjectID) (*storage.Task, error) {
	if t, ok := r.tasks[id]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: task %s", common.ErrNotFound, id.Hex())
}

func (r *fakeRepo) GetStore(_ context.Context, id primitive.ObjectID) (*storage.Store, error) {
	if s, ok := r.stores[id]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: store %s", common.ErrNotFound, id.Hex())
}

func (r *fakeRepo) GetStoreByCode(_ context.Context, code string) (*storage.Store, error) {
	if s, ok := r.storesByCode[code]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: store code %s", common.ErrNotFound, code)
}

func (r *fakeRepo) CreateAuditResult(_ context.Context, result *storage.AuditResult) error {
	if r.createErr != nil {
		return r.createErr
	}
	result.ID = primitive.NewObjectID()
	r.results = append(r.results, result)
	return nil
}

func (r *fakeRepo) RecomputeTaskProgress(_ context.Context, _ primitive.ObjectID) error {
	r.progressCalls++
	return nil
}

type fakeImages struct {
	saved map[string][]byte
	files map[string][]byte // location -> content for Read
}

func newFakeImages() *fakeImages {
	return &fakeImages{saved: map[string][]byte{}, files: map[string][]byte{}}
}

func (f *fakeImages) Save(data []byte, originalName string) (string, error) {
	location := "/uploads/" + originalName
	f.saved[location] = data
	f.files[location] = data
	return location, nil
}

func (f *fakeImages) Read(location string) ([]byte, error) {
	if data, ok := f.files[location]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("%w: image %s", common.ErrNotFound, location)
}

type fakeGenerator struct {
	reply     string
	err       error
	gotPrompt string
	gotImages []ai.ImagePayload
	calls     int
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string, images []ai.ImagePayload) (string, *common.TokenUsage, error) {
	g.calls++
	g.gotPrompt = prompt
	g.gotImages = images
	if g.err != nil {
		return "", nil, g.err
	}
	return g.reply, &common.TokenUsage{InputTokens: 1000, OutputTokens: 200, TotalTokens: 1200}, nil
}

// --- AnalyzeAudit ---

func TestAnalyzeAuditHappyPath(t *testing.T) {
	repo := newFakeRepo()
	images := newFakeImages()
	images.files["/uploads/standard.jpg"] = []byte("standard-bytes")
	task := repo.addTask(&storage.Task{Code: "T-001", Title: "Summer reset", StandardImageURL: "/uploads/standard.jpg"})
	store := repo.addStore("BVI")

	gen := &fakeGenerator{reply: "```json\n" + `{
		"themeMatch": {"standard": "Summer", "actual": "Summer", "match": true},
		"score": 92,
		"status": "compliant",
		"summary": "Layout matches the standard",
		"issues": [],
		"shelfComparison": {"standardShelfCount": 2, "actualShelfCount": 2, "shelves": []}
	}` + "\n```"}

	svc := NewService(repo, images, gen)
	result, err := svc.AnalyzeAudit(context.Background(), task.ID, store.ID, []byte("photo-bytes"), "bvi_front.jpg")
	require.NoError(t, err)

	require.NotNil(t, result.Score)
	assert.Equal(t, 92, *result.Score)
	assert.Equal(t, "compliant", result.Status)
	assert.Equal(t, task.ID, result.TaskID)
	assert.Equal(t, store.ID, result.StoreID)
	assert.Equal(t, "/uploads/bvi_front.jpg", result.ActualImageURL)

	var stored analysis.AuditAnalysis
	require.NoError(t, json.Unmarshal([]byte(result.AIAnalysis), &stored))
	assert.Equal(t, 92, stored.Score)
	require.NotNil(t, stored.ThemeMatch)
	assert.True(t, stored.ThemeMatch.Match)
	require.NotNil(t, stored.ShelfComparison)
	assert.True(t, stored.ShelfComparison.ShelfCountMatch)

	var issues []string
	require.NoError(t, json.Unmarshal([]byte(result.Issues), &issues))
	assert.Empty(t, issues)

	// Standard image first, actual second.
	require.Len(t, gen.gotImages, 2)
	assert.Equal(t, []byte("standard-bytes"), gen.gotImages[0].Data)
	assert.Equal(t, []byte("photo-bytes"), gen.gotImages[1].Data)

	assert.Equal(t, 1, repo.progressCalls)
	require.Len(t, repo.results, 1)
}

func TestAnalyzeAuditUnparseableReplyRecordsFallback(t *testing.T) {
	repo := newFakeRepo()
	images := newFakeImages()
	task := repo.addTask(&storage.Task{Code: "T-002", Title: "Reset"})
	store := repo.addStore("S002")

	gen := &fakeGenerator{reply: "I am unable to compare these two images."}

	svc := NewService(repo, images, gen)
	result, err := svc.AnalyzeAudit(context.Background(), task.ID, store.ID, []byte("x"), "s002.jpg")
	require.NoError(t, err, "an unusable reply still yields a record")

	require.NotNil(t, result.Score)
	assert.Equal(t, 0, *result.Score)
	assert.Equal(t, analysis.StatusNonCompliant, result.Status)

	var issues []string
	require.NoError(t, json.Unmarshal([]byte(result.Issues), &issues))
	assert.Equal(t, []string{analysis.ParseFailedIssue}, issues)
}

func TestAnalyzeAuditMissingStandardImageUsesPlaceholder(t *testing.T) {
	repo := newFakeRepo()
	images := newFakeImages()
	task := repo.addTask(&storage.Task{Code: "T-003", Title: "No reference"}) // no standard image
	store := repo.addStore("BVI")

	gen := &fakeGenerator{reply: `{"score": 50}`}

	svc := NewService(repo, images, gen)
	_, err := svc.AnalyzeAudit(context.Background(), task.ID, store.ID, []byte("photo"), "bvi.jpg")
	require.NoError(t, err)

	// The standard slot is still submitted, empty, so image order holds.
	require.Len(t, gen.gotImages, 2)
	assert.Empty(t, gen.gotImages[0].Data)
	assert.Equal(t, []byte("photo"), gen.gotImages[1].Data)
}

func TestAnalyzeAuditUnknownTask(t *testing.T) {
	repo := newFakeRepo()
	store := repo.addStore("BVI")
	gen := &fakeGenerator{}

	svc := NewService(repo, newFakeImages(), gen)
	_, err := svc.AnalyzeAudit(context.Background(), primitive.NewObjectID(), store.ID, []byte("x"), "bvi.jpg")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Zero(t, gen.calls, "no AI call for an unknown task")
}

func TestAnalyzeAuditGeneratorFailure(t *testing.T) {
	repo := newFakeRepo()
	task := repo.addTask(&storage.Task{Code: "T-004", Title: "Reset"})
	store := repo.addStore("BVI")

	gen := &fakeGenerator{err: fmt.Errorf("model overloaded: %w", common.ErrAIUnavailable)}

	svc := NewService(repo, newFakeImages(), gen)
	_, err := svc.AnalyzeAudit(context.Background(), task.ID, store.ID, []byte("x"), "bvi.jpg")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrAIUnavailable)
	assert.Empty(t, repo.results, "no record persisted when the AI call fails")
}

// --- BatchIngest ---

func TestBatchIngestMixedOutcomes(t *testing.T) {
	repo := newFakeRepo()
	images := newFakeImages()
	task := repo.addTask(&storage.Task{Code: "T-005", Title: "Batch"})
	repo.addStore("BVI")
	repo.addStore("S002")

	svc := NewService(repo, images, &fakeGenerator{})
	report, err := svc.BatchIngest(context.Background(), task.ID, []BatchFile{
		{Name: "bvi_front.jpg", Data: []byte("a")},
		{Name: "s002.png", Data: []byte("b")},
		{Name: "zzz_unknown.jpg", Data: []byte("c")},
		{Name: "---.jpg", Data: []byte("d")},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Success)
	assert.Equal(t, 2, report.Failed)
	require.Len(t, report.Results, 2)
	require.Len(t, report.Errors, 2)

	assert.Equal(t, "zzz_unknown.jpg", report.Errors[0].Filename)
	assert.Contains(t, report.Errors[0].Reason, "ZZZ")
	assert.Equal(t, "---.jpg", report.Errors[1].Filename)

	for _, result := range report.Results {
		assert.Equal(t, storage.ResultStatusPending, result.Status)
		assert.Nil(t, result.Score)

		var issues []string
		require.NoError(t, json.Unmarshal([]byte(result.Issues), &issues))
		assert.Equal(t, []string{PendingIssue}, issues)
	}

	assert.Equal(t, 1, repo.progressCalls, "one recompute for the whole batch")
}

func TestBatchIngestUnknownTask(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, newFakeImages(), &fakeGenerator{})

	_, err := svc.BatchIngest(context.Background(), primitive.NewObjectID(), []BatchFile{
		{Name: "bvi.jpg", Data: []byte("a")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestBatchIngestPersistenceFailureReportedPerFile(t *testing.T) {
	repo := newFakeRepo()
	task := repo.addTask(&storage.Task{Code: "T-006", Title: "Batch"})
	repo.addStore("BVI")
	repo.createErr = errors.New("write failed")

	svc := NewService(repo, newFakeImages(), &fakeGenerator{})
	report, err := svc.BatchIngest(context.Background(), task.ID, []BatchFile{
		{Name: "bvi.jpg", Data: []byte("a")},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Success)
	assert.Equal(t, 1, report.Failed)
}
