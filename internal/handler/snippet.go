package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/snipvault/snipvault/internal/auth"
	"github.com/snipvault/snipvault/internal/handler/dto"
	"github.com/snipvault/snipvault/internal/model"
	"github.com/snipvault/snipvault/internal/service"
)

// multipartMemory is the part of a multipart body kept in memory before
// spilling to temporary files.
const multipartMemory = 1 << 20

// Snippets manages a user's snippets.
type Snippets interface {
	ListSnippets(ctx context.Context, userID string, filter model.SnippetFilter) ([]*model.Snippet, error)
	GetSnippet(ctx context.Context, userID, id string) (*model.Snippet, error)
	CreateSnippet(ctx context.Context, userID string, input service.CreateSnippetInput) (*model.Snippet, error)
	DeleteSnippet(ctx context.Context, userID, id string) error
	MaxScreenshotBytes() int64
}

// SnippetHandler handles HTTP requests for snippet operations.
type SnippetHandler struct {
	svc    Snippets
	logger *slog.Logger
}

// NewSnippetHandler creates a new SnippetHandler.
func NewSnippetHandler(svc Snippets, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{svc: svc, logger: logger}
}

// List handles GET /api/snippets.
//
// Query parameters: q (substring), folder_id, language (repeatable or
// comma-separated).
func (h *SnippetHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.MustUserFromContext(r.Context()).ID
	query := r.URL.Query()

	filter := model.SnippetFilter{
		Query:    query.Get("q"),
		FolderID: query.Get("folder_id"),
	}
	for _, v := range query["language"] {
		for _, lang := range strings.Split(v, ",") {
			if lang = strings.TrimSpace(lang); lang != "" {
				filter.Languages = append(filter.Languages, lang)
			}
		}
	}

	snippets, err := h.svc.ListSnippets(r.Context(), userID, filter)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewSnippetListResponse(snippets))
}

// Get handles GET /api/snippets/{id}.
func (h *SnippetHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.MustUserFromContext(r.Context()).ID

	snippet, err := h.svc.GetSnippet(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// Create handles POST /api/snippets. Accepts a JSON body, or
// multipart/form-data when a screenshot is attached.
func (h *SnippetHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.MustUserFromContext(r.Context()).ID

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var input service.CreateSnippetInput
	if mediaType == "multipart/form-data" {
		parsed, err := h.parseMultipart(r)
		if err != nil {
			h.writeMultipartError(w, r, err)
			return
		}
		input = parsed
	} else {
		var req dto.CreateSnippetRequest
		if err := decodeJSON(r, &req); err != nil {
			writeDecodeError(w, err)
			return
		}
		input = service.CreateSnippetInput{
			Title:       req.Title,
			Description: req.Description,
			Code:        req.Code,
			Language:    req.Language,
			FolderID:    req.FolderID,
		}
	}

	snippet, err := h.svc.CreateSnippet(r.Context(), userID, input)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("snippet_created",
		"snippet_id", snippet.ID,
		"user_id", userID,
		"has_screenshot", snippet.HasScreenshot(),
	)
	writeJSON(w, http.StatusCreated, snippet)
}

// Delete handles DELETE /api/snippets/{id}.
func (h *SnippetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.MustUserFromContext(r.Context()).ID
	id := chi.URLParam(r, "id")

	if err := h.svc.DeleteSnippet(r.Context(), userID, id); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("snippet_deleted", "snippet_id", id, "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SnippetHandler) parseMultipart(r *http.Request) (service.CreateSnippetInput, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return service.CreateSnippetInput{}, err
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	input := service.CreateSnippetInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Code:        r.FormValue("code"),
		Language:    r.FormValue("language"),
		FolderID:    r.FormValue("folder_id"),
	}

	file, header, err := r.FormFile("screenshot")
	if errors.Is(err, http.ErrMissingFile) {
		return input, nil
	}
	if err != nil {
		return input, err
	}
	defer file.Close()

	limit := h.svc.MaxScreenshotBytes()
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return input, err
	}
	if int64(len(data)) > limit {
		return input, service.ErrScreenshotTooLarge
	}

	input.Screenshot = &service.Screenshot{Filename: header.Filename, Data: data}
	return input, nil
}

func (h *SnippetHandler) writeMultipartError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
	case errors.Is(err, service.ErrScreenshotTooLarge):
		handleServiceError(w, r, h.logger, err)
	default:
		writeError(w, http.StatusBadRequest, "INVALID_MULTIPART", "Invalid multipart body")
	}
}
