package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultCompletionModel is the chat model used for answers and OCR
	DefaultCompletionModel = openai.GPT4oMini

	// MaxEmbeddingChars bounds embedding input; longer text is truncated,
	// never rejected.
	MaxEmbeddingChars = 10000

	// RequestTimeout bounds every provider call.
	RequestTimeout = 120 * time.Second

	ocrPrompt = "Extract and transcribe ALL text from this document accurately and completely."
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when the OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
)

// ProviderAPI defines the narrow interface to the completion/embedding provider
type ProviderAPI interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
	CreateCompletion(ctx context.Context, prompt string) (string, error)
	CreateVisionCompletion(ctx context.Context, prompt, mimeType string, data []byte) (string, error)
}

// Client wraps the provider behind embed/complete/extract operations so the
// retrieval engine never depends on transport details.
type Client struct {
	api        ProviderAPI
	dimensions int
}

// OpenAIAdapter implements ProviderAPI over the OpenAI HTTP API
type OpenAIAdapter struct {
	client          *openai.Client
	embeddingModel  openai.EmbeddingModel
	completionModel string
}

// NewOpenAIAdapter creates an adapter with the given models, falling back to defaults.
func NewOpenAIAdapter(apiKey string, embeddingModel openai.EmbeddingModel, completionModel string) *OpenAIAdapter {
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	if completionModel == "" {
		completionModel = DefaultCompletionModel
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: RequestTimeout}
	return &OpenAIAdapter{
		client:          openai.NewClientWithConfig(cfg),
		embeddingModel:  embeddingModel,
		completionModel: completionModel,
	}
}

// CreateEmbedding calls the embeddings endpoint for a single input.
func (a *OpenAIAdapter) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.embeddingModel,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

// CreateCompletion calls the chat endpoint with a single user prompt.
func (a *OpenAIAdapter) CreateCompletion(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.completionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// CreateVisionCompletion sends inline file data alongside a prompt, used for OCR.
func (a *OpenAIAdapter) CreateVisionCompletion(ctx context.Context, prompt, mimeType string, data []byte) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.completionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
				},
			},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Config holds provider client configuration
type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	CompletionModel     string
	EmbeddingDimensions int
}

// NewClient creates a new provider client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new provider client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &Client{
		api:        NewOpenAIAdapter(cfg.APIKey, cfg.EmbeddingModel, cfg.CompletionModel),
		dimensions: dimensions,
	}
}

// NewClientFromEnv creates a new client using the OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// EmbeddingModel returns the model identifier recorded on stored embeddings.
func (c *Client) EmbeddingModel() string {
	if a, ok := c.api.(*OpenAIAdapter); ok {
		return string(a.embeddingModel)
	}
	return string(DefaultEmbeddingModel)
}

// Embed generates an embedding for the given text. Input is normalized for
// the provider: newlines become spaces and oversize text is truncated.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	clean := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)
	if runes := []rune(clean); len(runes) > MaxEmbeddingChars {
		clean = string(runes[:MaxEmbeddingChars])
	}

	embedding, err := c.api.CreateEmbedding(ctx, clean)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(embedding) != c.dimensions {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(embedding))
	}

	return embedding, nil
}

// Complete generates a text completion for the given prompt.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyText
	}

	text, err := c.api.CreateCompletion(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", err)
	}
	return text, nil
}

// ExtractText performs OCR over inline file data via the vision endpoint.
func (c *Client) ExtractText(ctx context.Context, mimeType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyText
	}

	text, err := c.api.CreateVisionCompletion(ctx, ocrPrompt, mimeType, data)
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}
	return text, nil
}
