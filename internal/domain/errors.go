package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidVisibility = NewDomainError(ErrCodeValidation, "invalid document visibility")
	ErrInvalidStatus     = NewDomainError(ErrCodeValidation, "invalid document status")
	ErrEmptyQuery        = NewDomainError(ErrCodeValidation, "query text cannot be empty")
	ErrEmptyContent      = NewDomainError(ErrCodeValidation, "document content cannot be empty")
)

// Not found errors
var (
	ErrDocumentNotFound     = NewDomainError(ErrCodeNotFound, "document not found")
	ErrConversationNotFound = NewDomainError(ErrCodeNotFound, "conversation not found")
	ErrUserNotFound         = NewDomainError(ErrCodeNotFound, "user not found")
)

// Authorization errors
var (
	ErrNotDocumentOwner = NewDomainError(ErrCodeForbidden, "document belongs to another user")
	ErrAdminOnly        = NewDomainError(ErrCodeForbidden, "only administrators may modify the shared knowledge base")
)

// Operation errors
var (
	ErrDocumentInUse      = NewDomainError(ErrCodeInvalidOperation, "document is selected by active conversations")
	ErrDocumentProcessing = NewDomainError(ErrCodeInvalidOperation, "document ingestion is already in progress")
	ErrNoContentExtracted = NewDomainError(ErrCodeInvalidOperation, "no text content could be extracted from the document")
)
