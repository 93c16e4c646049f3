package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/lexora-ai/lexora/internal/domain"
	"github.com/lexora-ai/lexora/internal/telemetry"
)

// ChatDocumentRepository defines the document lookups the chat flow needs.
type ChatDocumentRepository interface {
	GetActivePrivate(ctx context.Context, documentID, userID int64) (*domain.Document, error)
	TouchLastAccessed(ctx context.Context, id int64, t time.Time) error
}

// ConversationRepositoryInterface defines the repository interface for conversations
type ConversationRepositoryInterface interface {
	Create(ctx context.Context, c *domain.Conversation) (int64, error)
	GetForUser(ctx context.Context, conversationID, userID int64) (*domain.Conversation, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Conversation, error)
	ListMessages(ctx context.Context, conversationID int64) ([]*domain.Message, error)
	SoftDelete(ctx context.Context, conversationID int64) error
	SetPinned(ctx context.Context, conversationID int64, pinned bool) error
}

// CompletionProvider generates answer text from an assembled prompt.
type CompletionProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const newConversationTitle = "New conversation"

// SendMessageInput is one chat turn request.
type SendMessageInput struct {
	UserID             int64
	ConversationID     int64 // zero starts a new conversation
	Message            string
	SelectedDocumentID *int64
}

// SendMessageOutput is the stored assistant reply and conversation state.
type SendMessageOutput struct {
	ConversationID        int64
	Reply                 *domain.Message
	SelectedDocumentID    *int64
	SelectedDocumentTitle string
}

// ConversationDetail is a loaded conversation with its messages.
type ConversationDetail struct {
	Conversation          *domain.Conversation
	Messages              []*domain.Message
	SelectedDocumentTitle string
}

// ChatService runs retrieval-augmented chat turns and conversation CRUD.
type ChatService struct {
	docs       ChatDocumentRepository
	convs      ConversationRepositoryInterface
	search     *SearchService
	completion CompletionProvider
	tx         TxRunner
	model      string
	now        func() time.Time
}

// NewChatService creates a new ChatService instance
func NewChatService(
	docs ChatDocumentRepository,
	convs ConversationRepositoryInterface,
	search *SearchService,
	completion CompletionProvider,
	tx TxRunner,
	model string,
) *ChatService {
	return &ChatService{
		docs:       docs,
		convs:      convs,
		search:     search,
		completion: completion,
		tx:         tx,
		model:      model,
		now:        time.Now,
	}
}

// QueryContext assembles the retrieval context for a query: the selected
// document's scope when one is given, always the global public corpus, and
// the raw-content fallback when neither scope produced anything. The
// returned document is nil when no private document was resolved.
func (s *ChatService) QueryContext(ctx context.Context, userID int64, documentID *int64, query string) (string, *domain.Document, error) {
	if query == "" {
		return "", nil, domain.ErrEmptyQuery
	}

	var doc *domain.Document
	documentContext := ""
	if documentID != nil && *documentID > 0 {
		found, err := s.docs.GetActivePrivate(ctx, *documentID, userID)
		switch {
		case err == nil:
			doc = found
			if err := s.docs.TouchLastAccessed(ctx, doc.ID, s.now().UTC()); err != nil {
				log.Printf("failed to touch document %d: %v", doc.ID, err)
			}
			documentContext, err = s.search.SearchDocument(ctx, doc.ID, query)
			if err != nil {
				log.Printf("document search failed for document %d, degrading: %v", doc.ID, err)
				documentContext = ""
			}
		case errors.Is(err, domain.ErrDocumentNotFound):
			log.Printf("selected document %d not available for user %d", *documentID, userID)
		default:
			return "", nil, err
		}
	}

	globalContext, err := s.search.SearchGlobal(ctx, query)
	if err != nil {
		log.Printf("global search failed, degrading: %v", err)
		globalContext = ""
	}

	composed := ComposeContext(documentContext, globalContext)
	if composed == "" && doc != nil {
		// Last resort: ground the answer in the raw document text.
		composed = FallbackContext(doc.Content)
	}
	return composed, doc, nil
}

// SendMessage runs one retrieval-augmented chat turn. Provider failures
// degrade to an apology reply; the turn is always stored.
func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChatService.SendMessage", telemetry.SpanAttributes{
		UserID:         input.UserID,
		ConversationID: input.ConversationID,
		Operation:      "send_message",
	})
	defer span.End()

	if input.Message == "" {
		return nil, domain.ErrEmptyQuery
	}

	conv, err := s.resolveConversation(ctx, input)
	if err != nil {
		return nil, err
	}

	composed, doc, err := s.QueryContext(ctx, input.UserID, conv.SelectedDocumentID, input.Message)
	if err != nil {
		return nil, err
	}

	docTitle := ""
	if doc != nil {
		docTitle = doc.Title
	}

	prompt := BuildPrompt(input.Message, composed, docTitle, doc != nil)
	reply, err := s.completion.Complete(ctx, prompt)
	if err != nil {
		log.Printf("completion failed for conversation %d, sending apology: %v", conv.ID, err)
		reply = apologyResponse
	}

	now := s.now().UTC()
	userMsg := domain.NewMessage(conv.ID, domain.SenderUser, input.Message, "", now)
	aiMsg := domain.NewMessage(conv.ID, domain.SenderAI, reply, s.model, now)

	conv.MessageCount += 2
	conv.LastMessagePreview = domain.MessagePreview(reply)
	conv.LastUpdated = now
	if conv.Title == "" || conv.Title == newConversationTitle {
		conv.Title = domain.ConversationTitle(reply, input.Message)
	}

	err = s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if _, err := repos.Conversations().AppendMessage(ctx, userMsg); err != nil {
			return err
		}
		if _, err := repos.Conversations().AppendMessage(ctx, aiMsg); err != nil {
			return err
		}
		return repos.Conversations().Update(ctx, conv)
	})
	if err != nil {
		return nil, err
	}

	return &SendMessageOutput{
		ConversationID:        conv.ID,
		Reply:                 aiMsg,
		SelectedDocumentID:    conv.SelectedDocumentID,
		SelectedDocumentTitle: docTitle,
	}, nil
}

// ListConversations returns the user's active conversations, newest first.
func (s *ChatService) ListConversations(ctx context.Context, userID int64) ([]*domain.Conversation, error) {
	return s.convs.ListByUser(ctx, userID)
}

// LoadConversation returns a conversation with its message history.
func (s *ChatService) LoadConversation(ctx context.Context, userID, conversationID int64) (*ConversationDetail, error) {
	conv, err := s.convs.GetForUser(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	messages, err := s.convs.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	detail := &ConversationDetail{Conversation: conv, Messages: messages}
	if conv.SelectedDocumentID != nil {
		if doc, err := s.docs.GetActivePrivate(ctx, *conv.SelectedDocumentID, userID); err == nil {
			detail.SelectedDocumentTitle = doc.Title
		}
	}
	return detail, nil
}

// DeleteConversation soft-deletes a conversation owned by the user.
func (s *ChatService) DeleteConversation(ctx context.Context, userID, conversationID int64) error {
	conv, err := s.convs.GetForUser(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	return s.convs.SoftDelete(ctx, conv.ID)
}

// PinConversation sets the pinned flag on a conversation owned by the user.
func (s *ChatService) PinConversation(ctx context.Context, userID, conversationID int64, pinned bool) error {
	conv, err := s.convs.GetForUser(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	return s.convs.SetPinned(ctx, conv.ID, pinned)
}

// resolveConversation finds or creates the conversation for a turn, moving
// the selected document when the request changes it.
func (s *ChatService) resolveConversation(ctx context.Context, input SendMessageInput) (*domain.Conversation, error) {
	now := s.now().UTC()

	if input.ConversationID <= 0 {
		conv := &domain.Conversation{
			UserID:             input.UserID,
			Title:              newConversationTitle,
			Status:             domain.ConversationStatusActive,
			SelectedDocumentID: input.SelectedDocumentID,
			CreatedAt:          now,
			LastUpdated:        now,
		}
		id, err := s.convs.Create(ctx, conv)
		if err != nil {
			return nil, err
		}
		conv.ID = id
		return conv, nil
	}

	conv, err := s.convs.GetForUser(ctx, input.ConversationID, input.UserID)
	if err != nil {
		return nil, err
	}
	if input.SelectedDocumentID != nil {
		conv.SelectedDocumentID = input.SelectedDocumentID
	}
	return conv, nil
}
