// service.go - Audit pipeline: image resolution, AI analysis, persistence

package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bosocmputer/display_audit_gemini/internal/ai"
	"github.com/bosocmputer/display_audit_gemini/internal/analysis"
	"github.com/bosocmputer/display_audit_gemini/internal/common"
	"github.com/bosocmputer/display_audit_gemini/internal/processor"
	"github.com/bosocmputer/display_audit_gemini/internal/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PendingIssue marks a batch-ingested result awaiting AI analysis.
const PendingIssue = "Pending AI analysis"

// Repository is the slice of persistence the pipeline needs.
type Repository interface {
	GetTask(ctx context.Context, id primitive.ObjectID) (*storage.Task, error)
	GetStore(ctx context.Context, id primitive.ObjectID) (*storage.Store, error)
	GetStoreByCode(ctx context.Context, code string) (*storage.Store, error)
	CreateAuditResult(ctx context.Context, result *storage.AuditResult) error
	RecomputeTaskProgress(ctx context.Context, taskID primitive.ObjectID) error
}

// ImageStore persists uploaded images and resolves stored locations.
type ImageStore interface {
	Save(data []byte, originalName string) (string, error)
	Read(location string) ([]byte, error)
}

// Generator produces the model's raw reply for a prompt plus images. The
// production implementation is ai.Client; tests use a canned one.
type Generator interface {
	Generate(ctx context.Context, prompt string, images []ai.ImagePayload) (string, *common.TokenUsage, error)
}

// Service runs the audit pipeline end to end.
type Service struct {
	repo   Repository
	images ImageStore
	gen    Generator
}

// NewService wires the pipeline's collaborators.
func NewService(repo Repository, images ImageStore, gen Generator) *Service {
	return &Service{repo: repo, images: images, gen: gen}
}

// AnalyzeAudit ingests one actual-display photo for a (task, store) pair,
// runs the AI comparison against the task's standard image and persists the
// normalized outcome. The AI reply never fails the request once the image is
// stored: an unusable reply becomes a low-confidence non-compliant record.
func (s *Service) AnalyzeAudit(ctx context.Context, taskID, storeID primitive.ObjectID, imageData []byte, filename string) (*storage.AuditResult, error) {
	reqCtx := common.NewRequestContext(taskID.Hex())

	reqCtx.StartStep("Validate task and store")
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, err
	}
	store, err := s.repo.GetStore(ctx, storeID)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, err
	}
	reqCtx.EndStep("success", nil, nil)

	reqCtx.StartStep("Store actual image")
	location, err := s.images.Save(imageData, filename)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, err
	}
	reqCtx.EndStep("success", nil, nil)
	reqCtx.LogInfo("Actual image for store %s stored at %s", store.Code, location)

	reqCtx.StartStep("Resolve standard image")
	standard := s.resolveStandardImage(reqCtx, task)
	reqCtx.EndStep("success", nil, nil)

	actualData, actualMIME := processor.PrepareForAnalysis(imageData, filename)

	// Image order is part of the prompt contract: standard first, actual second.
	images := []ai.ImagePayload{standard, {Data: actualData, MIMEType: actualMIME}}

	reqCtx.StartStep("Gemini comparison")
	text, tokens, err := s.gen.Generate(ctx, ai.BuildAuditPrompt(), images)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, err
	}
	reqCtx.EndStep("success", tokens, nil)

	reqCtx.StartStep("Normalize analysis")
	var result analysis.AuditAnalysis
	if raw, ok := analysis.ExtractJSON(text); ok {
		result = analysis.Normalize(raw)
	} else {
		reqCtx.LogWarning("AI reply could not be parsed, recording fallback analysis")
		result = analysis.DefaultAnalysis()
	}
	reqCtx.EndStep("success", nil, nil)

	record, err := s.persistResult(ctx, task.ID, store.ID, location, result)
	if err != nil {
		reqCtx.LogError("Failed to persist audit result: %v", err)
		return nil, err
	}

	reqCtx.LogInfo("Audit complete | store %s | score %d | status %s", store.Code, result.Score, result.Status)
	return record, nil
}

// resolveStandardImage loads the task's reference image. A task without one
// (or with a dangling location) still goes to the model with an empty
// placeholder so the fixed image order holds.
func (s *Service) resolveStandardImage(reqCtx *common.RequestContext, task *storage.Task) ai.ImagePayload {
	if task.StandardImageURL == "" {
		reqCtx.LogWarning("Task %s has no standard image, comparing without reference", task.Code)
		return ai.ImagePayload{MIMEType: "image/jpeg"}
	}

	data, err := s.images.Read(task.StandardImageURL)
	if err != nil {
		reqCtx.LogWarning("Standard image %s unavailable: %v", task.StandardImageURL, err)
		return ai.ImagePayload{MIMEType: "image/jpeg"}
	}

	prepared, mimeType := processor.PrepareForAnalysis(data, task.StandardImageURL)
	return ai.ImagePayload{Data: prepared, MIMEType: mimeType}
}

func (s *Service) persistResult(ctx context.Context, taskID, storeID primitive.ObjectID, location string, result analysis.AuditAnalysis) (*storage.AuditResult, error) {
	analysisJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize analysis: %w", err)
	}
	issuesJSON, err := json.Marshal(result.Issues)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize issues: %w", err)
	}

	score := result.Score
	record := &storage.AuditResult{
		TaskID:         taskID,
		StoreID:        storeID,
		ActualImageURL: location,
		Score:          &score,
		Status:         result.Status,
		AIAnalysis:     string(analysisJSON),
		Issues:         string(issuesJSON),
	}
	if err := s.repo.CreateAuditResult(ctx, record); err != nil {
		return nil, err
	}

	if err := s.repo.RecomputeTaskProgress(ctx, taskID); err != nil {
		return nil, err
	}
	return record, nil
}

// BatchFile is one upload in a batch ingestion request.
type BatchFile struct {
	Name string
	Data []byte
}

// BatchError reports a single file that could not be ingested.
type BatchError struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// BatchReport summarizes a batch ingestion run.
type BatchReport struct {
	Success int                   `json:"success"`
	Failed  int                   `json:"failed"`
	Results []storage.AuditResult `json:"results"`
	Errors  []BatchError          `json:"errors"`
}

// BatchIngest stores many actual-display photos for one task in a single
// request, matching each file to a store by its filename prefix. No AI runs
// here; every ingested result is created pending and scored later. Per-file
// failures are reported, not fatal: one bad filename must not sink the batch.
func (s *Service) BatchIngest(ctx context.Context, taskID primitive.ObjectID, files []BatchFile) (*BatchReport, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	pendingIssues, _ := json.Marshal([]string{PendingIssue})

	report := &BatchReport{
		Results: []storage.AuditResult{},
		Errors:  []BatchError{},
	}

	for _, file := range files {
		code, ok := ExtractStoreCode(file.Name)
		if !ok {
			report.Failed++
			report.Errors = append(report.Errors, BatchError{
				Filename: file.Name,
				Reason:   "filename has no store code prefix",
			})
			continue
		}

		store, err := s.repo.GetStoreByCode(ctx, code)
		if err != nil {
			reason := fmt.Sprintf("store lookup failed: %v", err)
			if errors.Is(err, common.ErrNotFound) {
				reason = fmt.Sprintf("no store with code %s", code)
			}
			report.Failed++
			report.Errors = append(report.Errors, BatchError{Filename: file.Name, Reason: reason})
			continue
		}

		location, err := s.images.Save(file.Data, file.Name)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, BatchError{
				Filename: file.Name,
				Reason:   fmt.Sprintf("failed to store image: %v", err),
			})
			continue
		}

		record := &storage.AuditResult{
			TaskID:         task.ID,
			StoreID:        store.ID,
			ActualImageURL: location,
			Status:         storage.ResultStatusPending,
			Issues:         string(pendingIssues),
		}
		if err := s.repo.CreateAuditResult(ctx, record); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, BatchError{
				Filename: file.Name,
				Reason:   fmt.Sprintf("failed to persist result: %v", err),
			})
			continue
		}

		report.Success++
		report.Results = append(report.Results, *record)
	}

	// One recompute for the whole batch; pending results do not count toward
	// progress, but a recompute keeps the counter honest regardless.
	if err := s.repo.RecomputeTaskProgress(ctx, taskID); err != nil {
		return nil, err
	}

	return report, nil
}
