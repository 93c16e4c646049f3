package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lexora-ai/lexora/internal/domain"
	"github.com/lexora-ai/lexora/internal/pagination"
)

type documentFixture struct {
	svc        *DocumentService
	docs       *MockDocumentRepository
	convs      *MockConversationRepository
	users      *MockUserRepository
	embeddings *MockEmbeddingCounter
	ingestDocs *MockIngestDocumentRepository
	chunks     *MockIngestChunkRepository
	vectors    *MockIngestEmbeddingRepository
	embed      *MockEmbeddingProvider
	store      *MockUploadStore
	cacheTx    *MockSearchCacheTx
	tx         *testTxRunner
}

func newDocumentFixture() *documentFixture {
	docs := new(MockDocumentRepository)
	convs := new(MockConversationRepository)
	users := new(MockUserRepository)
	embeddings := new(MockEmbeddingCounter)
	ingestDocs := new(MockIngestDocumentRepository)
	chunks := new(MockIngestChunkRepository)
	vectors := new(MockIngestEmbeddingRepository)
	embed := new(MockEmbeddingProvider)
	store := new(MockUploadStore)
	cacheTx := new(MockSearchCacheTx)

	ingest := NewIngestService(ingestDocs, chunks, vectors, NewExtractor(nil), embed, nil, testEmbeddingModel)
	tx := &testTxRunner{repos: &testTxRepos{docs: docs, cache: cacheTx}}

	svc := NewDocumentService(docs, convs, users, embeddings, ingest, store, tx)
	svc.now = testClock
	return &documentFixture{
		svc:        svc,
		docs:       docs,
		convs:      convs,
		users:      users,
		embeddings: embeddings,
		ingestDocs: ingestDocs,
		chunks:     chunks,
		vectors:    vectors,
		embed:      embed,
		store:      store,
		cacheTx:    cacheTx,
		tx:         tx,
	}
}

func memberUser(id int64) *domain.User {
	return &domain.User{ID: id, Username: "ana", Role: domain.RoleMember}
}

func adminUser(id int64) *domain.User {
	return &domain.User{ID: id, Username: "root", Role: domain.RoleAdmin}
}

func TestUploadText_MemberCreatesPrivateDocument(t *testing.T) {
	f := newDocumentFixture()
	content := "A private agreement paragraph with enough text."

	f.users.On("GetByID", mock.Anything, int64(42)).Return(memberUser(42), nil)
	f.docs.On("Create", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
		return d.Visibility == domain.VisibilityPrivate &&
			d.Status == domain.DocumentStatusProcessing &&
			d.Stage == domain.StageExtractingText &&
			d.Content == content
	})).Return(int64(12), nil)

	// Synchronous ingestion runs to completion.
	claimed := processingDoc(12)
	claimed.Content = content
	f.ingestDocs.On("GetByID", mock.Anything, int64(12)).Return(claimed, nil)
	f.ingestDocs.On("UpdateStage", mock.Anything, int64(12), domain.StageTextExtracted).Return(nil)
	f.ingestDocs.On("SetContent", mock.Anything, int64(12), content, mock.Anything, domain.StageGeneratingEmbeddings).Return(nil)
	f.chunks.On("ReplaceChunks", mock.Anything, int64(12)).Return(nil)
	f.chunks.On("SaveChunk", mock.Anything, mock.Anything).Return(int64(1), nil)
	f.embed.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	f.vectors.On("SaveEmbeddings", mock.Anything, mock.Anything).Return(nil)
	f.ingestDocs.On("MarkCompleted", mock.Anything, int64(12), 1, testEmbeddingModel).Return(nil)

	completed := activeDocument(12, 42)
	f.docs.On("GetByID", mock.Anything, int64(12)).Return(completed, nil)

	doc, err := f.svc.UploadText(context.Background(), 42, "My agreement", content)

	require.NoError(t, err)
	assert.Equal(t, completed, doc)
	f.docs.AssertExpectations(t)
	f.ingestDocs.AssertExpectations(t)
}

func TestUploadText_AdminFeedsKnowledgeBase(t *testing.T) {
	f := newDocumentFixture()
	content := "Shared statute paragraph with enough text."

	f.users.On("GetByID", mock.Anything, int64(1)).Return(adminUser(1), nil)
	f.docs.On("Create", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
		return d.Visibility == domain.VisibilityPublic
	})).Return(int64(13), nil)

	claimed := processingDoc(13)
	claimed.Content = content
	claimed.Visibility = domain.VisibilityPublic
	f.ingestDocs.On("GetByID", mock.Anything, int64(13)).Return(claimed, nil)
	f.ingestDocs.On("UpdateStage", mock.Anything, int64(13), domain.StageTextExtracted).Return(nil)
	f.ingestDocs.On("SetContent", mock.Anything, int64(13), mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.chunks.On("ReplaceChunks", mock.Anything, int64(13)).Return(nil)
	f.chunks.On("SaveChunk", mock.Anything, mock.Anything).Return(int64(1), nil)
	f.embed.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	f.vectors.On("SaveEmbeddings", mock.Anything, mock.Anything).Return(nil)
	f.ingestDocs.On("MarkCompleted", mock.Anything, int64(13), 1, testEmbeddingModel).Return(nil)
	f.docs.On("GetByID", mock.Anything, int64(13)).Return(activeDocument(13, 1), nil)

	_, err := f.svc.UploadText(context.Background(), 1, "Civil Code", content)

	require.NoError(t, err)
	f.docs.AssertExpectations(t)
}

func TestUploadText_EmptyContent(t *testing.T) {
	f := newDocumentFixture()

	_, err := f.svc.UploadText(context.Background(), 42, "Empty", "   ")

	assert.ErrorIs(t, err, domain.ErrEmptyContent)
}

func TestUploadText_TruncatesLongTitle(t *testing.T) {
	f := newDocumentFixture()
	content := "A private agreement paragraph with enough text."
	longTitle := strings.Repeat("t", 150)

	f.users.On("GetByID", mock.Anything, int64(42)).Return(memberUser(42), nil)
	f.docs.On("Create", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
		return len([]rune(d.Title)) == titleMaxChars
	})).Return(int64(14), nil)

	claimed := processingDoc(14)
	claimed.Content = content
	f.ingestDocs.On("GetByID", mock.Anything, int64(14)).Return(claimed, nil)
	f.ingestDocs.On("UpdateStage", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.ingestDocs.On("SetContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.chunks.On("ReplaceChunks", mock.Anything, mock.Anything).Return(nil)
	f.chunks.On("SaveChunk", mock.Anything, mock.Anything).Return(int64(1), nil)
	f.embed.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	f.vectors.On("SaveEmbeddings", mock.Anything, mock.Anything).Return(nil)
	f.ingestDocs.On("MarkCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.docs.On("GetByID", mock.Anything, int64(14)).Return(activeDocument(14, 42), nil)

	_, err := f.svc.UploadText(context.Background(), 42, longTitle, content)

	require.NoError(t, err)
	f.docs.AssertExpectations(t)
}

func TestUploadFile_PlainTextIngestsSynchronously(t *testing.T) {
	f := newDocumentFixture()
	content := "Plain text file content paragraph with enough text."

	f.users.On("GetByID", mock.Anything, int64(42)).Return(memberUser(42), nil)
	f.docs.On("Create", mock.Anything, mock.Anything).Return(int64(15), nil)

	claimed := processingDoc(15)
	claimed.Content = content
	f.ingestDocs.On("GetByID", mock.Anything, int64(15)).Return(claimed, nil)
	f.ingestDocs.On("UpdateStage", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.ingestDocs.On("SetContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.chunks.On("ReplaceChunks", mock.Anything, mock.Anything).Return(nil)
	f.chunks.On("SaveChunk", mock.Anything, mock.Anything).Return(int64(1), nil)
	f.embed.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	f.vectors.On("SaveEmbeddings", mock.Anything, mock.Anything).Return(nil)
	f.ingestDocs.On("MarkCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.docs.On("GetByID", mock.Anything, int64(15)).Return(activeDocument(15, 42), nil)

	_, err := f.svc.UploadFile(context.Background(), 42, "notes.txt", []byte(content))

	require.NoError(t, err)
	f.store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadFile_BinaryQueuesForWorker(t *testing.T) {
	f := newDocumentFixture()
	data := []byte{0x25, 0x50, 0x44, 0x46}

	f.users.On("GetByID", mock.Anything, int64(42)).Return(memberUser(42), nil)
	f.docs.On("Create", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
		return d.Stage == domain.StageExtractingText && d.FileType == "pdf" && d.FileSize == int64(len(data))
	})).Return(int64(16), nil)
	f.store.On("Upload", mock.Anything, "documents/16/contract.pdf", data, "application/pdf").Return(nil)
	f.docs.On("UpdateStage", mock.Anything, int64(16), domain.StagePending).Return(nil)

	doc, err := f.svc.UploadFile(context.Background(), 42, "contract.pdf", data)

	require.NoError(t, err)
	assert.Equal(t, domain.StagePending, doc.Stage)
	assert.Equal(t, domain.DocumentStatusProcessing, doc.Status)
	f.docs.AssertExpectations(t)
	f.store.AssertExpectations(t)
}

func TestUploadFile_EmptyData(t *testing.T) {
	f := newDocumentFixture()

	_, err := f.svc.UploadFile(context.Background(), 42, "contract.pdf", nil)

	assert.ErrorIs(t, err, domain.ErrEmptyContent)
}

func TestUploadFile_NoObjectStorage(t *testing.T) {
	f := newDocumentFixture()
	f.svc.store = nil

	f.users.On("GetByID", mock.Anything, int64(42)).Return(memberUser(42), nil).Maybe()

	_, err := f.svc.UploadFile(context.Background(), 42, "contract.pdf", []byte{0x01})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "object storage")
}

func TestGetInfo_ReportsEmbeddingShortfall(t *testing.T) {
	f := newDocumentFixture()

	doc := activeDocument(20, 42)
	doc.ChunkCount = 10
	f.docs.On("GetByID", mock.Anything, int64(20)).Return(doc, nil)
	f.embeddings.On("CountActiveByDocument", mock.Anything, int64(20)).Return(8, nil)

	info, err := f.svc.GetInfo(context.Background(), 42, 20)

	require.NoError(t, err)
	assert.Equal(t, 10, info.Document.ChunkCount)
	assert.Equal(t, 8, info.ActiveEmbeddings)
}

func TestGetInfo_PublicDocumentVisibleToAnyone(t *testing.T) {
	f := newDocumentFixture()

	doc := activeDocument(21, 1)
	doc.Visibility = domain.VisibilityPublic
	f.docs.On("GetByID", mock.Anything, int64(21)).Return(doc, nil)
	f.embeddings.On("CountActiveByDocument", mock.Anything, int64(21)).Return(0, nil)

	_, err := f.svc.GetInfo(context.Background(), 42, 21)

	require.NoError(t, err)
}

func TestGetInfo_ForeignPrivateDocument(t *testing.T) {
	f := newDocumentFixture()

	f.docs.On("GetByID", mock.Anything, int64(22)).Return(activeDocument(22, 7), nil)

	_, err := f.svc.GetInfo(context.Background(), 42, 22)

	assert.ErrorIs(t, err, domain.ErrNotDocumentOwner)
}

func TestGetInfo_DeletedDocument(t *testing.T) {
	f := newDocumentFixture()

	doc := activeDocument(23, 42)
	doc.Status = domain.DocumentStatusDeleted
	f.docs.On("GetByID", mock.Anything, int64(23)).Return(doc, nil)

	_, err := f.svc.GetInfo(context.Background(), 42, 23)

	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestDelete_PurgesCacheInSameTransaction(t *testing.T) {
	f := newDocumentFixture()

	f.docs.On("GetByID", mock.Anything, int64(30)).Return(activeDocument(30, 42), nil)
	f.convs.On("CountActiveByDocument", mock.Anything, int64(30)).Return(0, nil)
	f.docs.On("SoftDelete", mock.Anything, int64(30)).Return(nil)
	f.cacheTx.On("DeleteByDocument", mock.Anything, int64(30)).Return(nil)

	err := f.svc.Delete(context.Background(), 42, 30)

	require.NoError(t, err)
	assert.True(t, f.tx.called)
	f.docs.AssertExpectations(t)
	f.cacheTx.AssertExpectations(t)
}

func TestDelete_RefusedWhileInUse(t *testing.T) {
	f := newDocumentFixture()

	f.docs.On("GetByID", mock.Anything, int64(31)).Return(activeDocument(31, 42), nil)
	f.convs.On("CountActiveByDocument", mock.Anything, int64(31)).Return(2, nil)

	err := f.svc.Delete(context.Background(), 42, 31)

	assert.ErrorIs(t, err, domain.ErrDocumentInUse)
	f.docs.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
}

func TestDelete_ForeignDocument(t *testing.T) {
	f := newDocumentFixture()

	f.docs.On("GetByID", mock.Anything, int64(32)).Return(activeDocument(32, 7), nil)

	err := f.svc.Delete(context.Background(), 42, 32)

	assert.ErrorIs(t, err, domain.ErrNotDocumentOwner)
}

func TestDelete_PublicRequiresAdmin(t *testing.T) {
	f := newDocumentFixture()

	doc := activeDocument(33, 42)
	doc.Visibility = domain.VisibilityPublic
	f.docs.On("GetByID", mock.Anything, int64(33)).Return(doc, nil)
	f.users.On("GetByID", mock.Anything, int64(42)).Return(memberUser(42), nil)

	err := f.svc.Delete(context.Background(), 42, 33)

	assert.ErrorIs(t, err, domain.ErrAdminOnly)
}

func TestDelete_AlreadyDeleted(t *testing.T) {
	f := newDocumentFixture()

	doc := activeDocument(34, 42)
	doc.Status = domain.DocumentStatusDeleted
	f.docs.On("GetByID", mock.Anything, int64(34)).Return(doc, nil)

	err := f.svc.Delete(context.Background(), 42, 34)

	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestList_InvalidCursor(t *testing.T) {
	f := newDocumentFixture()

	_, err := f.svc.List(context.Background(), 42, "not-base64!!!", 20)

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestList_PassesThrough(t *testing.T) {
	f := newDocumentFixture()

	expected := &DocumentPageResult{HasMore: false}
	f.docs.On("ListByOwnerWithCursor", mock.Anything, int64(42), (*pagination.Cursor)(nil), 20).Return(expected, nil)

	got, err := f.svc.List(context.Background(), 42, "", 20)

	require.NoError(t, err)
	assert.Equal(t, expected, got)
}
