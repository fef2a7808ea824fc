package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/snipvault/snipvault/internal/auth"
	"github.com/snipvault/snipvault/internal/handler/dto"
	"github.com/snipvault/snipvault/internal/model"
)

// Folders manages a user's folders.
type Folders interface {
	ListFolders(ctx context.Context, userID string) ([]*model.Folder, error)
	CreateFolder(ctx context.Context, userID string, req model.FolderCreateRequest) (*model.Folder, error)
	DeleteFolder(ctx context.Context, userID, id string) error
}

// FolderHandler handles HTTP requests for folder operations.
type FolderHandler struct {
	svc    Folders
	logger *slog.Logger
}

// NewFolderHandler creates a new FolderHandler.
func NewFolderHandler(svc Folders, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{svc: svc, logger: logger}
}

// List handles GET /api/folders.
func (h *FolderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.MustUserFromContext(r.Context()).ID

	folders, err := h.svc.ListFolders(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewFolderListResponse(folders))
}

// Create handles POST /api/folders.
func (h *FolderHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.MustUserFromContext(r.Context()).ID

	var req dto.CreateFolderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	folder, err := h.svc.CreateFolder(r.Context(), userID, req.ToModel())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("folder_created", "folder_id", folder.ID, "user_id", userID)
	writeJSON(w, http.StatusCreated, folder)
}

// Delete handles DELETE /api/folders/{id}. Another user's folder is
// reported as not found.
func (h *FolderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.MustUserFromContext(r.Context()).ID
	id := chi.URLParam(r, "id")

	if err := h.svc.DeleteFolder(r.Context(), userID, id); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("folder_deleted", "folder_id", id, "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}
