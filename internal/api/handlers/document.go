package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lexora-ai/lexora/internal/api"
	"github.com/lexora-ai/lexora/internal/api/middleware"
	"github.com/lexora-ai/lexora/internal/domain"
	"github.com/lexora-ai/lexora/internal/service"
)

type DocumentService interface {
	UploadText(ctx context.Context, userID int64, title, content string) (*domain.Document, error)
	UploadFile(ctx context.Context, userID int64, fileName string, data []byte) (*domain.Document, error)
	List(ctx context.Context, userID int64, cursor string, limit int) (*service.DocumentPageResult, error)
	GetInfo(ctx context.Context, userID, documentID int64) (*service.DocumentInfo, error)
	Delete(ctx context.Context, userID, documentID int64) error
}

// DocumentReingester re-runs the ingestion pipeline for a document.
type DocumentReingester interface {
	Reingest(ctx context.Context, documentID int64) error
}

type DocumentHandler struct {
	svc    DocumentService
	ingest DocumentReingester
}

func NewDocumentHandler(svc DocumentService, ingest DocumentReingester) *DocumentHandler {
	return &DocumentHandler{svc: svc, ingest: ingest}
}

type UploadTextRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type DocumentResponse struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	FileName       string `json:"file_name,omitempty"`
	FileType       string `json:"file_type,omitempty"`
	FileSize       int64  `json:"file_size,omitempty"`
	Visibility     string `json:"visibility"`
	Status         string `json:"status"`
	Stage          string `json:"stage"`
	ChunkCount     int    `json:"chunk_count"`
	ContentSummary string `json:"content_summary,omitempty"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
	LastAccessedAt string `json:"last_accessed_at,omitempty"`
}

type DocumentInfoResponse struct {
	DocumentResponse
	ActiveEmbeddings int `json:"active_embeddings"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	resp := &DocumentResponse{
		ID:             d.ID,
		Title:          d.Title,
		FileName:       d.FileName,
		FileType:       d.FileType,
		FileSize:       d.FileSize,
		Visibility:     string(d.Visibility),
		Status:         string(d.Status),
		Stage:          string(d.Stage),
		ChunkCount:     d.ChunkCount,
		ContentSummary: d.ContentSummary,
		EmbeddingModel: d.EmbeddingModel,
		CreatedAt:      d.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:      d.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if d.LastAccessedAt != nil {
		resp.LastAccessedAt = d.LastAccessedAt.Format("2006-01-02T15:04:05Z")
	}
	return resp
}

func (h *DocumentHandler) UploadText(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UploadTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	doc, err := h.svc.UploadText(r.Context(), userID, req.Title, req.Content)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, documentToResponse(doc))
}

func (h *DocumentHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	doc, err := h.svc.UploadFile(r.Context(), userID, header.Filename, data)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, documentToResponse(doc))
}

type DocumentListResponse struct {
	Items   []*DocumentResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cursor := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")
	limit := 20
	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	page, err := h.svc.List(r.Context(), userID, cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*DocumentResponse, len(page.Items))
	for i, d := range page.Items {
		responses[i] = documentToResponse(d)
	}

	api.Success(w, http.StatusOK, DocumentListResponse{
		Items:   responses,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := documentIDParam(r)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid document id")
		return
	}

	info, err := h.svc.GetInfo(r.Context(), userID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DocumentInfoResponse{
		DocumentResponse: *documentToResponse(info.Document),
		ActiveEmbeddings: info.ActiveEmbeddings,
	})
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := documentIDParam(r)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid document id")
		return
	}

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *DocumentHandler) Reingest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := documentIDParam(r)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid document id")
		return
	}

	// Ownership is checked through GetInfo before rebuilding.
	if _, err := h.svc.GetInfo(r.Context(), userID, id); err != nil {
		api.HandleError(w, err)
		return
	}

	if err := h.ingest.Reingest(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, map[string]string{"status": "reingesting"})
}

func documentIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
