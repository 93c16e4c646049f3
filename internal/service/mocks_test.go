package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/lexora-ai/lexora/internal/domain"
	"github.com/lexora-ai/lexora/internal/pagination"
)

// MockEmbeddingProvider mocks the embedding provider
type MockEmbeddingProvider struct {
	mock.Mock
}

func (m *MockEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockSearchEmbeddingRepository mocks the embedding listing repository
type MockSearchEmbeddingRepository struct {
	mock.Mock
}

func (m *MockSearchEmbeddingRepository) ListActiveByDocument(ctx context.Context, documentID int64) ([]Candidate, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Candidate), args.Error(1)
}

func (m *MockSearchEmbeddingRepository) ListActivePublic(ctx context.Context) ([]Candidate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Candidate), args.Error(1)
}

// MockSearchCacheRepository mocks the search cache repository
type MockSearchCacheRepository struct {
	mock.Mock
}

func (m *MockSearchCacheRepository) Get(ctx context.Context, documentID int64, queryHash []byte) (*domain.SearchCacheEntry, error) {
	args := m.Called(ctx, documentID, queryHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SearchCacheEntry), args.Error(1)
}

func (m *MockSearchCacheRepository) Touch(ctx context.Context, id int64, expiresAt time.Time) error {
	args := m.Called(ctx, id, expiresAt)
	return args.Error(0)
}

func (m *MockSearchCacheRepository) Put(ctx context.Context, entry *domain.SearchCacheEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockIngestDocumentRepository mocks pipeline state updates
type MockIngestDocumentRepository struct {
	mock.Mock
}

func (m *MockIngestDocumentRepository) GetByID(ctx context.Context, id int64) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockIngestDocumentRepository) UpdateStage(ctx context.Context, id int64, stage domain.ProcessingStage) error {
	args := m.Called(ctx, id, stage)
	return args.Error(0)
}

func (m *MockIngestDocumentRepository) SetContent(ctx context.Context, id int64, content, summary string, stage domain.ProcessingStage) error {
	args := m.Called(ctx, id, content, summary, stage)
	return args.Error(0)
}

func (m *MockIngestDocumentRepository) MarkFailed(ctx context.Context, id int64, stage domain.ProcessingStage) error {
	args := m.Called(ctx, id, stage)
	return args.Error(0)
}

func (m *MockIngestDocumentRepository) MarkCompleted(ctx context.Context, id int64, chunkCount int, embeddingModel string) error {
	args := m.Called(ctx, id, chunkCount, embeddingModel)
	return args.Error(0)
}

func (m *MockIngestDocumentRepository) MarkProcessing(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockIngestChunkRepository mocks chunk persistence
type MockIngestChunkRepository struct {
	mock.Mock
}

func (m *MockIngestChunkRepository) ReplaceChunks(ctx context.Context, documentID int64) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

func (m *MockIngestChunkRepository) SaveChunk(ctx context.Context, chunk *domain.Chunk) (int64, error) {
	args := m.Called(ctx, chunk)
	return args.Get(0).(int64), args.Error(1)
}

// MockIngestEmbeddingRepository mocks embedding persistence
type MockIngestEmbeddingRepository struct {
	mock.Mock
}

func (m *MockIngestEmbeddingRepository) SaveEmbeddings(ctx context.Context, embeddings []*domain.Embedding) error {
	args := m.Called(ctx, embeddings)
	return args.Error(0)
}

// MockSourceStore mocks stored upload retrieval
type MockSourceStore struct {
	mock.Mock
}

func (m *MockSourceStore) Download(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockUploadStore mocks upload persistence
type MockUploadStore struct {
	mock.Mock
}

func (m *MockUploadStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

// MockOCRClient mocks provider OCR
type MockOCRClient struct {
	mock.Mock
}

func (m *MockOCRClient) ExtractText(ctx context.Context, mimeType string, data []byte) (string, error) {
	args := m.Called(ctx, mimeType, data)
	return args.String(0), args.Error(1)
}

// MockCompletionProvider mocks answer generation
type MockCompletionProvider struct {
	mock.Mock
}

func (m *MockCompletionProvider) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// MockDocumentRepository mocks the document repository used by DocumentService
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, d *domain.Document) (int64, error) {
	args := m.Called(ctx, d)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id int64) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) ListByOwnerWithCursor(ctx context.Context, ownerID int64, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error) {
	args := m.Called(ctx, ownerID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DocumentPageResult), args.Error(1)
}

func (m *MockDocumentRepository) TouchLastAccessed(ctx context.Context, id int64, t time.Time) error {
	args := m.Called(ctx, id, t)
	return args.Error(0)
}

func (m *MockDocumentRepository) UpdateStage(ctx context.Context, id int64, stage domain.ProcessingStage) error {
	args := m.Called(ctx, id, stage)
	return args.Error(0)
}

func (m *MockDocumentRepository) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetActivePrivate(ctx context.Context, documentID, userID int64) (*domain.Document, error) {
	args := m.Called(ctx, documentID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

// MockConversationRepository mocks the conversation repository, including the
// transactional surface.
type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) Create(ctx context.Context, c *domain.Conversation) (int64, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockConversationRepository) GetForUser(ctx context.Context, conversationID, userID int64) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepository) ListMessages(ctx context.Context, conversationID int64) ([]*domain.Message, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockConversationRepository) SoftDelete(ctx context.Context, conversationID int64) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

func (m *MockConversationRepository) SetPinned(ctx context.Context, conversationID int64, pinned bool) error {
	args := m.Called(ctx, conversationID, pinned)
	return args.Error(0)
}

func (m *MockConversationRepository) AppendMessage(ctx context.Context, msg *domain.Message) (int64, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockConversationRepository) Update(ctx context.Context, c *domain.Conversation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockConversationRepository) CountActiveByDocument(ctx context.Context, documentID int64) (int, error) {
	args := m.Called(ctx, documentID)
	return args.Int(0), args.Error(1)
}

// MockEmbeddingCounter mocks the active embedding count lookup
type MockEmbeddingCounter struct {
	mock.Mock
}

func (m *MockEmbeddingCounter) CountActiveByDocument(ctx context.Context, documentID int64) (int, error) {
	args := m.Called(ctx, documentID)
	return args.Int(0), args.Error(1)
}

// MockUserRepository mocks user lookups
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockSearchCacheTx mocks the cache purge available inside a transaction
type MockSearchCacheTx struct {
	mock.Mock
}

func (m *MockSearchCacheTx) DeleteByDocument(ctx context.Context, documentID int64) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

type testTxRepos struct {
	docs  DocumentTxRepository
	cache SearchCacheTxRepository
	convs ConversationTxRepository
}

func (t *testTxRepos) Documents() DocumentTxRepository         { return t.docs }
func (t *testTxRepos) SearchCache() SearchCacheTxRepository    { return t.cache }
func (t *testTxRepos) Conversations() ConversationTxRepository { return t.convs }

type testTxRunner struct {
	repos  TxRepositories
	called bool
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called = true
	return fn(t.repos)
}
