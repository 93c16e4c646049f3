package service

import (
	"context"

	"github.com/lexora-ai/lexora/internal/domain"
)

// DocumentTxRepository is the document surface available inside a transaction.
type DocumentTxRepository interface {
	SoftDelete(ctx context.Context, id int64) error
}

// SearchCacheTxRepository is the cache surface available inside a transaction.
type SearchCacheTxRepository interface {
	DeleteByDocument(ctx context.Context, documentID int64) error
}

// ConversationTxRepository is the conversation surface available inside a transaction.
type ConversationTxRepository interface {
	AppendMessage(ctx context.Context, m *domain.Message) (int64, error)
	Update(ctx context.Context, c *domain.Conversation) error
}

// TxRepositories provides transaction-bound repositories.
type TxRepositories interface {
	Documents() DocumentTxRepository
	SearchCache() SearchCacheTxRepository
	Conversations() ConversationTxRepository
}

// TxRunner executes a function within a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
