package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lexora-ai/lexora/internal/domain"
)

type chatFixture struct {
	svc        *ChatService
	docs       *MockDocumentRepository
	convs      *MockConversationRepository
	embed      *MockEmbeddingProvider
	searchRepo *MockSearchEmbeddingRepository
	completion *MockCompletionProvider
	tx         *testTxRunner
}

func newChatFixture() *chatFixture {
	docs := new(MockDocumentRepository)
	convs := new(MockConversationRepository)
	embed := new(MockEmbeddingProvider)
	searchRepo := new(MockSearchEmbeddingRepository)
	completion := new(MockCompletionProvider)

	search := NewSearchServiceWithClock(embed, searchRepo, nil, testClock)
	tx := &testTxRunner{repos: &testTxRepos{convs: convs}}

	svc := NewChatService(docs, convs, search, completion, tx, "gpt-4o-mini")
	svc.now = testClock
	return &chatFixture{
		svc:        svc,
		docs:       docs,
		convs:      convs,
		embed:      embed,
		searchRepo: searchRepo,
		completion: completion,
		tx:         tx,
	}
}

func activeDocument(id, ownerID int64) *domain.Document {
	return &domain.Document{
		ID:         id,
		OwnerID:    &ownerID,
		Title:      "Lease Agreement",
		Content:    "Full raw lease content for fallback purposes.",
		Visibility: domain.VisibilityPrivate,
		Status:     domain.DocumentStatusActive,
		Stage:      domain.StageCompleted,
	}
}

func TestSendMessage_NewConversation(t *testing.T) {
	f := newChatFixture()
	now := testClock().UTC()

	f.convs.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Conversation) bool {
		return c.UserID == 42 && c.Title == newConversationTitle && c.Status == domain.ConversationStatusActive
	})).Return(int64(5), nil)

	f.embed.On("Embed", mock.Anything, "What is the notice period?").Return([]float32{1, 0}, nil)
	f.searchRepo.On("ListActivePublic", mock.Anything).Return([]Candidate{
		{Vector: unitWithCosine(0.9), Content: "Notice periods are thirty days.", DocumentID: 9, DocumentTitle: "Civil Code"},
	}, nil)

	f.completion.On("Complete", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "Notice periods are thirty days.")
	})).Return("The notice period is thirty days.", nil)

	f.convs.On("AppendMessage", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
		return m.Sender == domain.SenderUser && m.Content == "What is the notice period?" && m.ConversationID == 5
	})).Return(int64(1), nil)
	f.convs.On("AppendMessage", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
		return m.Sender == domain.SenderAI && m.Content == "The notice period is thirty days." && m.Model == "gpt-4o-mini"
	})).Return(int64(2), nil)
	f.convs.On("Update", mock.Anything, mock.MatchedBy(func(c *domain.Conversation) bool {
		return c.ID == 5 && c.MessageCount == 2 && c.LastUpdated.Equal(now) &&
			c.Title != newConversationTitle && c.LastMessagePreview == "The notice period is thirty days."
	})).Return(nil)

	out, err := f.svc.SendMessage(context.Background(), SendMessageInput{
		UserID:  42,
		Message: "What is the notice period?",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(5), out.ConversationID)
	assert.Equal(t, "The notice period is thirty days.", out.Reply.Content)
	assert.True(t, f.tx.called)
	f.convs.AssertExpectations(t)
}

func TestSendMessage_CompletionFailureStoresApology(t *testing.T) {
	f := newChatFixture()

	f.convs.On("Create", mock.Anything, mock.Anything).Return(int64(6), nil)
	f.embed.On("Embed", mock.Anything, mock.Anything).Return(nil, errors.New("provider down"))
	f.searchRepo.On("ListActivePublic", mock.Anything).Return([]Candidate{}, nil).Maybe()
	f.completion.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("timeout"))

	f.convs.On("AppendMessage", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
		return m.Sender == domain.SenderUser
	})).Return(int64(1), nil)
	f.convs.On("AppendMessage", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
		return m.Sender == domain.SenderAI && m.Content == apologyResponse
	})).Return(int64(2), nil)
	f.convs.On("Update", mock.Anything, mock.Anything).Return(nil)

	out, err := f.svc.SendMessage(context.Background(), SendMessageInput{
		UserID:  42,
		Message: "Explain clause twelve in detail please",
	})

	require.NoError(t, err)
	assert.Equal(t, apologyResponse, out.Reply.Content)
	f.convs.AssertExpectations(t)
}

func TestSendMessage_ExistingConversationMovesDocument(t *testing.T) {
	f := newChatFixture()
	docID := int64(3)

	conv := &domain.Conversation{
		ID:          8,
		UserID:      42,
		Title:       "Lease questions",
		Status:      domain.ConversationStatusActive,
		CreatedAt:   testClock().Add(-time.Hour),
		LastUpdated: testClock().Add(-time.Hour),
	}

	f.convs.On("GetForUser", mock.Anything, int64(8), int64(42)).Return(conv, nil)
	f.docs.On("GetActivePrivate", mock.Anything, docID, int64(42)).Return(activeDocument(docID, 42), nil)
	f.docs.On("TouchLastAccessed", mock.Anything, docID, mock.Anything).Return(nil)

	f.embed.On("Embed", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)
	f.searchRepo.On("ListActiveByDocument", mock.Anything, docID).Return([]Candidate{
		{Vector: unitWithCosine(0.9), Content: "Deposit equals two months.", DocumentID: docID, DocumentTitle: "Lease Agreement"},
	}, nil)
	f.searchRepo.On("ListActivePublic", mock.Anything).Return([]Candidate{}, nil)

	f.completion.On("Complete", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "Lease Agreement") && strings.Contains(prompt, "Deposit equals two months.")
	})).Return("The deposit is two months of rent.", nil)

	f.convs.On("AppendMessage", mock.Anything, mock.Anything).Return(int64(1), nil)
	f.convs.On("Update", mock.Anything, mock.MatchedBy(func(c *domain.Conversation) bool {
		return c.SelectedDocumentID != nil && *c.SelectedDocumentID == docID && c.Title == "Lease questions"
	})).Return(nil)

	out, err := f.svc.SendMessage(context.Background(), SendMessageInput{
		UserID:             42,
		ConversationID:     8,
		Message:            "How much is the deposit?",
		SelectedDocumentID: &docID,
	})

	require.NoError(t, err)
	assert.Equal(t, "Lease Agreement", out.SelectedDocumentTitle)
	f.convs.AssertExpectations(t)
}

func TestSendMessage_EmptyMessage(t *testing.T) {
	f := newChatFixture()

	_, err := f.svc.SendMessage(context.Background(), SendMessageInput{UserID: 42})

	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

func TestQueryContext_FallsBackToRawContent(t *testing.T) {
	f := newChatFixture()
	docID := int64(4)

	doc := activeDocument(docID, 42)
	f.docs.On("GetActivePrivate", mock.Anything, docID, int64(42)).Return(doc, nil)
	f.docs.On("TouchLastAccessed", mock.Anything, docID, mock.Anything).Return(nil)

	// Nothing clears the relevance threshold in either scope.
	f.embed.On("Embed", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)
	f.searchRepo.On("ListActiveByDocument", mock.Anything, docID).Return([]Candidate{}, nil)
	f.searchRepo.On("ListActivePublic", mock.Anything).Return([]Candidate{}, nil)

	composed, resolved, err := f.svc.QueryContext(context.Background(), 42, &docID, "obscure question")

	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, doc.Content, composed)
}

func TestQueryContext_UnknownDocumentDegrades(t *testing.T) {
	f := newChatFixture()
	docID := int64(99)

	f.docs.On("GetActivePrivate", mock.Anything, docID, int64(42)).Return(nil, domain.ErrDocumentNotFound)
	f.embed.On("Embed", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)
	f.searchRepo.On("ListActivePublic", mock.Anything).Return([]Candidate{
		{Vector: unitWithCosine(0.9), Content: "General guidance.", DocumentID: 1, DocumentTitle: "Handbook"},
	}, nil)

	composed, resolved, err := f.svc.QueryContext(context.Background(), 42, &docID, "question")

	require.NoError(t, err)
	assert.Nil(t, resolved)
	assert.Contains(t, composed, "General guidance.")
}

func TestQueryContext_EmptyQuery(t *testing.T) {
	f := newChatFixture()

	_, _, err := f.svc.QueryContext(context.Background(), 42, nil, "")

	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

func TestListConversations(t *testing.T) {
	f := newChatFixture()

	expected := []*domain.Conversation{{ID: 1, UserID: 42}}
	f.convs.On("ListByUser", mock.Anything, int64(42)).Return(expected, nil)

	got, err := f.svc.ListConversations(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, expected, got)
}

func TestLoadConversation_WithSelectedDocument(t *testing.T) {
	f := newChatFixture()
	docID := int64(3)

	conv := &domain.Conversation{ID: 7, UserID: 42, SelectedDocumentID: &docID}
	messages := []*domain.Message{{ID: 1, ConversationID: 7, Sender: domain.SenderUser, Content: "hi"}}

	f.convs.On("GetForUser", mock.Anything, int64(7), int64(42)).Return(conv, nil)
	f.convs.On("ListMessages", mock.Anything, int64(7)).Return(messages, nil)
	f.docs.On("GetActivePrivate", mock.Anything, docID, int64(42)).Return(activeDocument(docID, 42), nil)

	detail, err := f.svc.LoadConversation(context.Background(), 42, 7)

	require.NoError(t, err)
	assert.Equal(t, conv, detail.Conversation)
	assert.Equal(t, messages, detail.Messages)
	assert.Equal(t, "Lease Agreement", detail.SelectedDocumentTitle)
}

func TestDeleteConversation_NotOwned(t *testing.T) {
	f := newChatFixture()

	f.convs.On("GetForUser", mock.Anything, int64(7), int64(42)).Return(nil, domain.ErrConversationNotFound)

	err := f.svc.DeleteConversation(context.Background(), 42, 7)

	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	f.convs.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
}

func TestPinConversation(t *testing.T) {
	f := newChatFixture()

	f.convs.On("GetForUser", mock.Anything, int64(7), int64(42)).Return(&domain.Conversation{ID: 7, UserID: 42}, nil)
	f.convs.On("SetPinned", mock.Anything, int64(7), true).Return(nil)

	err := f.svc.PinConversation(context.Background(), 42, 7, true)

	require.NoError(t, err)
	f.convs.AssertExpectations(t)
}
