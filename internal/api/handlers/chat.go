package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lexora-ai/lexora/internal/api"
	"github.com/lexora-ai/lexora/internal/api/middleware"
	"github.com/lexora-ai/lexora/internal/domain"
	"github.com/lexora-ai/lexora/internal/service"
)

type ChatService interface {
	SendMessage(ctx context.Context, input service.SendMessageInput) (*service.SendMessageOutput, error)
	QueryContext(ctx context.Context, userID int64, documentID *int64, query string) (string, *domain.Document, error)
	ListConversations(ctx context.Context, userID int64) ([]*domain.Conversation, error)
	LoadConversation(ctx context.Context, userID, conversationID int64) (*service.ConversationDetail, error)
	DeleteConversation(ctx context.Context, userID, conversationID int64) error
	PinConversation(ctx context.Context, userID, conversationID int64, pinned bool) error
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type SendMessageRequest struct {
	ConversationID int64  `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
	DocumentID     *int64 `json:"document_id,omitempty"`
}

type MessageResponse struct {
	ID         int64  `json:"id"`
	Sender     string `json:"sender"`
	Content    string `json:"content"`
	TokenCount int    `json:"token_count"`
	Model      string `json:"model,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type SendMessageResponse struct {
	ConversationID int64            `json:"conversation_id"`
	Reply          *MessageResponse `json:"reply"`
	DocumentID     *int64           `json:"document_id,omitempty"`
	DocumentTitle  string           `json:"document_title,omitempty"`
}

type ConversationResponse struct {
	ID                 int64  `json:"id"`
	Title              string `json:"title"`
	DocumentID         *int64 `json:"document_id,omitempty"`
	MessageCount       int    `json:"message_count"`
	LastMessagePreview string `json:"last_message_preview,omitempty"`
	IsPinned           bool   `json:"is_pinned"`
	CreatedAt          string `json:"created_at"`
	LastUpdated        string `json:"last_updated"`
}

func messageToResponse(m *domain.Message) *MessageResponse {
	return &MessageResponse{
		ID:         m.ID,
		Sender:     string(m.Sender),
		Content:    m.Content,
		TokenCount: m.TokenCount,
		Model:      m.Model,
		CreatedAt:  m.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func conversationToResponse(c *domain.Conversation) *ConversationResponse {
	return &ConversationResponse{
		ID:                 c.ID,
		Title:              c.Title,
		DocumentID:         c.SelectedDocumentID,
		MessageCount:       c.MessageCount,
		LastMessagePreview: c.LastMessagePreview,
		IsPinned:           c.IsPinned,
		CreatedAt:          c.CreatedAt.Format("2006-01-02T15:04:05Z"),
		LastUpdated:        c.LastUpdated.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Message == "" {
		api.Error(w, http.StatusBadRequest, "message is required")
		return
	}

	output, err := h.svc.SendMessage(r.Context(), service.SendMessageInput{
		UserID:             userID,
		ConversationID:     req.ConversationID,
		Message:            req.Message,
		SelectedDocumentID: req.DocumentID,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SendMessageResponse{
		ConversationID: output.ConversationID,
		Reply:          messageToResponse(output.Reply),
		DocumentID:     output.SelectedDocumentID,
		DocumentTitle:  output.SelectedDocumentTitle,
	})
}

type QueryRequest struct {
	Query      string `json:"query"`
	DocumentID *int64 `json:"document_id,omitempty"`
}

type QueryResponse struct {
	Context       string `json:"context"`
	DocumentID    *int64 `json:"document_id,omitempty"`
	DocumentTitle string `json:"document_title,omitempty"`
}

// Query exposes the retrieval step on its own: the composed context for a
// query without a completion round trip.
func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	composed, doc, err := h.svc.QueryContext(r.Context(), userID, req.DocumentID, req.Query)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := QueryResponse{Context: composed}
	if doc != nil {
		resp.DocumentID = &doc.ID
		resp.DocumentTitle = doc.Title
	}
	api.Success(w, http.StatusOK, resp)
}

type ConversationListResponse struct {
	Items []*ConversationResponse `json:"items"`
}

func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conversations, err := h.svc.ListConversations(r.Context(), userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*ConversationResponse, len(conversations))
	for i, c := range conversations {
		responses[i] = conversationToResponse(c)
	}

	api.Success(w, http.StatusOK, ConversationListResponse{Items: responses})
}

type ConversationDetailResponse struct {
	ConversationResponse
	DocumentTitle string             `json:"document_title,omitempty"`
	Messages      []*MessageResponse `json:"messages"`
}

func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := conversationIDParam(r)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	detail, err := h.svc.LoadConversation(r.Context(), userID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	messages := make([]*MessageResponse, len(detail.Messages))
	for i, m := range detail.Messages {
		messages[i] = messageToResponse(m)
	}

	api.Success(w, http.StatusOK, ConversationDetailResponse{
		ConversationResponse: *conversationToResponse(detail.Conversation),
		DocumentTitle:        detail.SelectedDocumentTitle,
		Messages:             messages,
	})
}

func (h *ChatHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := conversationIDParam(r)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	if err := h.svc.DeleteConversation(r.Context(), userID, id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type PinConversationRequest struct {
	Pinned bool `json:"pinned"`
}

func (h *ChatHandler) PinConversation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := conversationIDParam(r)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	var req PinConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.PinConversation(r.Context(), userID, id, req.Pinned); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
}

func conversationIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
