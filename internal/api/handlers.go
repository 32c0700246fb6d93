package api

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/Nikigner/Personal-Book-Library/internal/importer"
	"github.com/Nikigner/Personal-Book-Library/internal/library"
	"github.com/Nikigner/Personal-Book-Library/internal/models"
)

// Handler contains all HTTP handlers. It owns no presentation concerns;
// it just maps requests onto the library service and the import pipeline.
type Handler struct {
	svc *library.Service
	imp *importer.Importer

	mu     sync.Mutex
	report *ImportReport
}

// NewHandler creates a new handler instance.
func NewHandler(svc *library.Service, imp *importer.Importer) *Handler {
	return &Handler{svc: svc, imp: imp}
}

// ImportError describes one failed file in a batch.
type ImportError struct {
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// ImportReport accumulates the outcomes of the most recent import batch.
// The front end polls it instead of subscribing to the event channel.
type ImportReport struct {
	Running    bool              `json:"running"`
	Added      []models.Book     `json:"added"`
	Duplicates []string          `json:"duplicates"`
	Errors     []ImportError     `json:"errors"`
	Summary    *importer.Summary `json:"summary,omitempty"`
}

type bookResponse struct {
	models.Book
	FileSizeDisplay string `json:"file_size_display"`
	Progress        int    `json:"progress"`
}

func (h *Handler) toResponse(book models.Book) bookResponse {
	return bookResponse{
		Book:            book,
		FileSizeDisplay: humanize.Bytes(uint64(book.FileSize)),
		Progress:        h.svc.Progress(&book),
	}
}

// HealthCheck reports service liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListBooks returns the whole catalog with derived progress percentages.
func (h *Handler) ListBooks(c *gin.Context) {
	books := h.svc.List()
	resp := make([]bookResponse, 0, len(books))
	for _, book := range books {
		resp = append(resp, h.toResponse(book))
	}
	c.JSON(http.StatusOK, resp)
}

// GetBook returns a single book by id.
func (h *Handler) GetBook(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid book id"})
		return
	}

	book := h.svc.Get(id)
	if book == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}
	c.JSON(http.StatusOK, h.toResponse(*book))
}

// UpdateBook applies a partial update to rating, progress, or read status.
// Absent fields are left untouched; an empty body is a no-op.
func (h *Handler) UpdateBook(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid book id"})
		return
	}

	var req struct {
		StarRating *int `json:"star_rating"`
		PageRead   *int `json:"page_read"`
		ReadStatus *int `json:"read_status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.StarRating != nil {
		h.svc.SetRating(id, *req.StarRating)
	}
	if req.PageRead != nil {
		h.svc.SetPageRead(id, *req.PageRead)
	}
	if req.ReadStatus != nil {
		h.svc.SetReadStatus(id, *req.ReadStatus)
	}

	c.Status(http.StatusNoContent)
}

// DeleteBook removes a book and best-effort removes its managed file.
func (h *Handler) DeleteBook(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid book id"})
		return
	}

	h.svc.Delete(id)
	c.Status(http.StatusNoContent)
}

// StartImport begins a background import batch for the given file paths.
// While a batch is running, further requests are rejected with 409.
func (h *Handler) StartImport(c *gin.Context) {
	var req struct {
		Paths []string `json:"paths" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Paths) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file paths provided"})
		return
	}

	events, err := h.imp.Start(req.Paths)
	if err == importer.ErrBusy {
		c.JSON(http.StatusConflict, gin.H{"error": "An import batch is already running"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start import"})
		return
	}

	report := &ImportReport{
		Running:    true,
		Added:      []models.Book{},
		Duplicates: []string{},
		Errors:     []ImportError{},
	}
	h.mu.Lock()
	h.report = report
	h.mu.Unlock()

	// The collector holds its own report pointer. The importer may admit the
	// next batch before this batch's buffered events are drained, so writing
	// through h.report could leak a finished batch's events into its
	// successor's report.
	go h.collect(report, events)

	c.JSON(http.StatusAccepted, gin.H{"status": "started", "files": len(req.Paths)})
}

// GetImportReport returns the state of the most recent import batch.
func (h *Handler) GetImportReport(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No import batch has run yet"})
		return
	}
	c.JSON(http.StatusOK, h.report)
}

func (h *Handler) collect(report *ImportReport, events <-chan importer.Event) {
	for ev := range events {
		h.mu.Lock()
		switch ev.Type {
		case importer.EventAdded:
			report.Added = append(report.Added, *ev.Book)
		case importer.EventDuplicate:
			report.Duplicates = append(report.Duplicates, ev.Name)
		case importer.EventError:
			report.Errors = append(report.Errors, ImportError{
				Filename: ev.Filename,
				Message:  ev.Err.Error(),
			})
		case importer.EventFinished:
			report.Summary = ev.Summary
			report.Running = false
		}
		h.mu.Unlock()
	}
}
