// Package genai wraps the Groq chat-completions API (OpenAI-compatible)
// behind a responder that never surfaces an error to its caller: every
// failure mode degrades into an in-character fallback reply.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/seguroscampos/atendente/internal/models"
)

// Default configuration constants.
const (
	// DefaultBaseURL points at Groq's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	// DefaultModel is the chat model used for open-ended replies.
	DefaultModel = "llama-3.1-8b-instant"
	// DefaultTimeout bounds each completion call.
	DefaultTimeout = 15 * time.Second
	// DefaultTemperature matches the persona's conversational tone.
	DefaultTemperature = 0.7
	// DefaultAssistantName is the persona used in prompts and fallbacks.
	DefaultAssistantName = "Auzeir"
)

// systemPromptTemplate carries the persona, tone and script
// instructions. The persona name is always substituted.
const systemPromptTemplate = `Você é %s, um assistente virtual de uma corretora de seguros.
Seja cordial, educado e alegre 😄. Use emojis para deixar a conversa leve e motivadora.
Ajude o cliente a entender os serviços, tirar dúvidas e tomar decisões com confiança.
Sempre incentive a adesão aos planos com frases positivas e acolhedoras.
**SEMPRE COM RESPOSTAS CURTAS** motivando o cliente para instigar o cliente a aderir os serviços.
Não ser repetitivo.`

// chatCompleter is the minimal completion surface, satisfied by the
// openai-go chat completion service and by test fakes.
type chatCompleter interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Opts holds configuration options for the responder.
type Opts struct {
	APIKey        string
	BaseURL       string
	Model         string
	AssistantName string
	Timeout       time.Duration
}

// Option defines a configuration option for the responder.
type Option func(*Opts)

// WithAPIKey sets the bearer token for the LLM provider.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithModel overrides the chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithAssistantName overrides the persona name.
func WithAssistantName(name string) Option {
	return func(o *Opts) { o.AssistantName = name }
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// Client generates open-ended replies from a conversation transcript.
type Client struct {
	completions   chatCompleter
	model         string
	assistantName string
	timeout       time.Duration
}

// NewClient initializes a responder. The API key falls back to the
// GROQ_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GROQ_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.AssistantName == "" {
		cfg.AssistantName = DefaultAssistantName
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	cli := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
	)
	return &Client{
		completions:   &cli.Chat.Completions,
		model:         cfg.Model,
		assistantName: cfg.AssistantName,
		timeout:       cfg.Timeout,
	}, nil
}

// AssistantName returns the persona name used in prompts and replies.
func (c *Client) AssistantName() string {
	return c.assistantName
}

// Respond generates the assistant's next utterance from the transcript
// plus the new user message. It never returns an error: provider
// errors, transport failures and empty responses all degrade into a
// non-empty fallback reply.
func (c *Client) Respond(ctx context.Context, transcript []models.Utterance, userMessage string) string {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2*len(transcript)+2)
	messages = append(messages, openai.SystemMessage(fmt.Sprintf(systemPromptTemplate, c.assistantName)))
	for _, u := range transcript {
		if u.User != "" {
			messages = append(messages, openai.UserMessage(u.User))
		}
		if u.Assistant != "" {
			messages = append(messages, openai.AssistantMessage(u.Assistant))
		}
	}
	messages = append(messages, openai.UserMessage(userMessage))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(DefaultTemperature),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			slog.Warn("genai provider returned error payload", "status", apiErr.StatusCode, "message", apiErr.Message)
			return fmt.Sprintf("⚠️ Erro da IA: %s", apiErr.Message)
		}
		slog.Error("genai completion call failed", "error", err)
		return fmt.Sprintf("🤖 %s: Algo deu errado. Vamos de novo? 🤞", c.assistantName)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("genai completion returned no choices")
		return fmt.Sprintf("🤖 %s: Hmm... não entendi. Pode repetir? 🤔", c.assistantName)
	}
	return resp.Choices[0].Message.Content
}
