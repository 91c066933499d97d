// handlers.go - HTTP handlers for stores, categories, tasks and audit results

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bosocmputer/display_audit_gemini/configs"
	"github.com/bosocmputer/display_audit_gemini/internal/audit"
	"github.com/bosocmputer/display_audit_gemini/internal/common"
	"github.com/bosocmputer/display_audit_gemini/internal/imagestore"
	"github.com/bosocmputer/display_audit_gemini/internal/storage"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Handler carries the wired collaborators for all routes.
type Handler struct {
	repo    *storage.Repository
	images  *imagestore.Store
	service *audit.Service
}

// NewHandler wires the HTTP layer.
func NewHandler(repo *storage.Repository, images *imagestore.Store, service *audit.Service) *Handler {
	return &Handler{repo: repo, images: images, service: service}
}

// RegisterRoutes mounts all API routes on the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")

	api.GET("/stores", h.ListStores)
	api.GET("/stores/:id", h.GetStore)
	api.POST("/stores", h.CreateStore)
	api.PATCH("/stores/:id", h.UpdateStore)
	api.DELETE("/stores/:id", h.DeleteStore)

	api.GET("/categories", h.ListCategories)
	api.POST("/categories", h.CreateCategory)
	api.PATCH("/categories/:id", h.UpdateCategory)
	api.DELETE("/categories/:id", h.DeleteCategory)

	api.GET("/tasks", h.ListTasks)
	api.GET("/tasks/:id", h.GetTask)
	api.POST("/tasks", h.CreateTask)
	api.PATCH("/tasks/:id", h.UpdateTask)
	api.DELETE("/tasks/:id", h.DeleteTask)

	api.GET("/audit-results", h.ListAuditResults)
	api.POST("/audit-results", h.AnalyzeAuditResult)
	api.POST("/audit-results/batch", h.BatchIngest)
}

// writeError maps pipeline sentinels to HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrConflict):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, common.ErrAIUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, common.ErrPersistence):
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseObjectID(c *gin.Context, raw string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id: " + raw})
		return primitive.NilObjectID, false
	}
	return id, true
}

// --- Stores ---

func (h *Handler) ListStores(c *gin.Context) {
	stores, err := h.repo.ListStores(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stores)
}

func (h *Handler) GetStore(c *gin.Context) {
	id, ok := parseObjectID(c, c.Param("id"))
	if !ok {
		return
	}
	store, err := h.repo.GetStore(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, store)
}

type storeRequest struct {
	Code     string `json:"storeId" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Location string `json:"location"`
	Manager  string `json:"manager"`
	Active   *bool  `json:"active"`
}

func (h *Handler) CreateStore(c *gin.Context) {
	var req storeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	store := &storage.Store{
		Code:     req.Code,
		Name:     req.Name,
		Location: req.Location,
		Manager:  req.Manager,
		Active:   true,
	}
	if req.Active != nil {
		store.Active = *req.Active
	}

	if err := h.repo.CreateStore(c.Request.Context(), store); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, store)
}

func (h *Handler) UpdateStore(c *gin.Context) {
	id, ok := parseObjectID(c, c.Param("id"))
	if !ok {
		return
	}

	var req struct {
		Name     *string `json:"name"`
		Location *string `json:"location"`
		Manager  *string `json:"manager"`
		Active   *bool   `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update := bson.M{}
	if req.Name != nil {
		update["name"] = *req.Name
	}
	if req.Location != nil {
		update["location"] = *req.Location
	}
	if req.Manager != nil {
		update["manager"] = *req.Manager
	}
	if req.Active != nil {
		update["active"] = *req.Active
	}
	if len(update) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	store, err := h.repo.UpdateStore(c.Request.Context(), id, update)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, store)
}

func (h *Handler) DeleteStore(c *gin.Context) {
	id, ok := parseObjectID(c, c.Param("id"))
	if !ok {
		return
	}
	if err := h.repo.DeleteStore(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Categories ---

func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.repo.ListCategories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category := &storage.Category{Name: req.Name, Description: req.Description}
	if err := h.repo.CreateCategory(c.Request.Context(), category); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *Handler) UpdateCategory(c *gin.Context) {
	id, ok := parseObjectID(c, c.Param("id"))
	if !ok {
		return
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update := bson.M{}
	if req.Name != nil {
		update["name"] = *req.Name
	}
	if req.Description != nil {
		update["description"] = *req.Description
	}
	if len(update) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	category, err := h.repo.UpdateCategory(c.Request.Context(), id, update)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	id, ok := parseObjectID(c, c.Param("id"))
	if !ok {
		return
	}
	if err := h.repo.DeleteCategory(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Tasks ---

func (h *Handler) ListTasks(c *gin.Context) {
	tasks, err := h.repo.ListTasks(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *Handler) GetTask(c *gin.Context) {
	id, ok := parseObjectID(c, c.Param("id"))
	if !ok {
		return
	}
	task, err := h.repo.GetTask(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// CreateTask accepts multipart form data: task fields plus an optional
// standardImage file that becomes the reference photo for every store.
func (h *Handler) CreateTask(c *gin.Context) {
	code := c.PostForm("taskId")
	title := c.PostForm("title")
	if code == "" || title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "taskId and title are required"})
		return
	}

	task := &storage.Task{
		Code:        code,
		Title:       title,
		Description: c.PostForm("description"),
		Status:      storage.TaskStatusDraft,
	}

	if s := c.PostForm("status"); s != "" {
		task.Status = s
	}
	if raw := c.PostForm("categoryId"); raw != "" {
		catID, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid categoryId"})
			return
		}
		task.CategoryID = &catID
	}
	if raw := c.PostForm("dueDate"); raw != "" {
		due, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dueDate must be RFC3339"})
			return
		}
		task.DueDate = &due
	}
	if raw := c.PostForm("totalStores"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "totalStores must be a non-negative integer"})
			return
		}
		task.TotalStores = n
	}

	if location, ok := h.saveUploadedImage(c, "standardImage"); ok {
		task.StandardImageURL = location
	} else if c.IsAborted() {
		return
	}

	if err := h.repo.CreateTask(c.Request.Context(), task); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *Handler) UpdateTask(c *gin.Context) {
	id, ok := parseObjectID(c, c.Param("id"))
	if !ok {
		return
	}

	update := bson.M{}
	for form, field := range map[string]string{
		"title":       "title",
		"description": "description",
		"status":      "status",
	} {
		if v, exists := c.GetPostForm(form); exists {
			update[field] = v
		}
	}
	if raw, exists := c.GetPostForm("totalStores"); exists {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "totalStores must be a non-negative integer"})
			return
		}
		update["total_stores"] = n
	}
	if raw, exists := c.GetPostForm("dueDate"); exists {
		due, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dueDate must be RFC3339"})
			return
		}
		update["due_date"] = due
	}

	if location, ok := h.saveUploadedImage(c, "standardImage"); ok {
		update["standard_image_url"] = location
	} else if c.IsAborted() {
		return
	}

	if len(update) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	task, err := h.repo.UpdateTask(c.Request.Context(), id, update)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *Handler) DeleteTask(c *gin.Context) {
	id, ok := parseObjectID(c, c.Param("id"))
	if !ok {
		return
	}
	if err := h.repo.DeleteTask(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Audit results ---

func (h *Handler) ListAuditResults(c *gin.Context) {
	if raw := c.Query("taskId"); raw != "" {
		taskID, ok := parseObjectID(c, raw)
		if !ok {
			return
		}
		results, err := h.repo.ListAuditResultsByTask(c.Request.Context(), taskID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, results)
		return
	}

	results, err := h.repo.ListAuditResults(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// AnalyzeAuditResult ingests one actual-display photo and runs the AI
// comparison synchronously.
func (h *Handler) AnalyzeAuditResult(c *gin.Context) {
	taskID, ok := parseObjectID(c, c.PostForm("taskId"))
	if !ok {
		return
	}
	storeID, ok := parseObjectID(c, c.PostForm("storeId"))
	if !ok {
		return
	}

	data, filename, ok := h.readUploadedFile(c, "actualImage")
	if !ok {
		return
	}

	result, err := h.service.AnalyzeAudit(c.Request.Context(), taskID, storeID, data, filename)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// BatchIngest accepts many photos at once; each filename's prefix selects the
// store. Per-file failures are part of the report, not the HTTP status.
func (h *Handler) BatchIngest(c *gin.Context) {
	taskID, ok := parseObjectID(c, c.PostForm("taskId"))
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}
	fileHeaders := form.File["images"]
	if len(fileHeaders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no images provided"})
		return
	}
	if len(fileHeaders) > configs.BATCH_MAX_FILES {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "too many files, maximum is " + strconv.Itoa(configs.BATCH_MAX_FILES),
		})
		return
	}

	files := make([]audit.BatchFile, 0, len(fileHeaders))
	for _, header := range fileHeaders {
		f, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read " + header.Filename})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read " + header.Filename})
			return
		}
		files = append(files, audit.BatchFile{Name: header.Filename, Data: data})
	}

	report, err := h.service.BatchIngest(c.Request.Context(), taskID, files)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// --- multipart helpers ---

// readUploadedFile pulls one required file field out of the form. It aborts
// the request with a JSON error when missing or unreadable.
func (h *Handler) readUploadedFile(c *gin.Context, field string) ([]byte, string, bool) {
	header, err := c.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": field + " file is required"})
		return nil, "", false
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
		return nil, "", false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
		return nil, "", false
	}
	return data, header.Filename, true
}

// saveUploadedImage stores an optional file field and returns its location.
// Returns (_, false) with the context untouched when the field is absent, and
// aborts with an error response when the file exists but cannot be stored.
func (h *Handler) saveUploadedImage(c *gin.Context, field string) (string, bool) {
	header, err := c.FormFile(field)
	if err != nil {
		return "", false
	}

	f, err := header.Open()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read " + field})
		return "", false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read " + field})
		return "", false
	}

	location, err := h.images.Save(data, header.Filename)
	if err != nil {
		if errors.Is(err, common.ErrTooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		} else {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return "", false
	}
	return location, true
}
