// Package ai implements the language-model gateway on top of an
// OpenAI-compatible chat completions API. The default endpoint is Groq,
// which serves open models behind the same wire protocol.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/postmind-ai/postmind/internal/chat"
)

const (
	// DefaultBaseURL is the Groq OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	// DefaultModel is fast and cheap enough for per-email summarization.
	DefaultModel = "llama-3.1-8b-instant"

	// maxBodyChars caps how much email body is sent to the model. Long
	// newsletters blow past context limits and add nothing to a summary.
	maxBodyChars = 1500
)

const classifyPrompt = `You are an intent classifier for an email assistant.
Classify the user's message into exactly one of these labels:
greeting, show_emails, summarize, reply, delete, help, unknown

Respond with only the label, nothing else.`

const summarizePrompt = `You are an email assistant. Summarize the email in 2-3 short sentences.
Mention what the sender wants and any deadline. Do not add commentary.`

const draftPrompt = `You are an email assistant writing on behalf of %s.
Write a short, polite reply to the email below. Keep it under 100 words,
sign off with the user's name, and do not invent facts the email doesn't contain.`

// Config holds the gateway settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Validate checks that the config is complete enough to build a client.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	return nil
}

// Client talks to the chat completions API.
type Client struct {
	api   openai.Client
	model string
}

// NewClient builds a Client, filling in the Groq defaults for any unset
// endpoint or model.
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model config: %w", err)
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}

	api := openai.NewClient(
		option.WithAPIKey(config.APIKey),
		option.WithBaseURL(config.BaseURL),
	)
	return &Client{api: api, model: config.Model}, nil
}

// Classify maps a free-text message onto the interpreter's intent labels.
// Anything the model returns outside the label set becomes IntentUnknown.
func (c *Client) Classify(ctx context.Context, text string) (chat.Intent, error) {
	out, err := c.complete(ctx, classifyPrompt, text)
	if err != nil {
		return chat.IntentUnknown, err
	}
	return normalizeIntent(out), nil
}

// Summarize produces a short summary of an email body.
func (c *Client) Summarize(ctx context.Context, body string) (string, error) {
	return c.complete(ctx, summarizePrompt, truncate(body))
}

// DraftReply writes a reply to the email body on behalf of userName.
func (c *Client) DraftReply(ctx context.Context, body, userName string) (string, error) {
	if userName == "" {
		userName = "the user"
	}
	return c.complete(ctx, fmt.Sprintf(draftPrompt, userName), truncate(body))
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

// truncate caps the body at maxBodyChars without splitting a UTF-8 rune.
func truncate(body string) string {
	if len(body) <= maxBodyChars {
		return body
	}
	cut := maxBodyChars
	for cut > 0 && !isRuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// normalizeIntent maps model output onto the closed intent set. Models
// occasionally decorate the label with punctuation or casing; anything
// that still doesn't match is unknown.
func normalizeIntent(out string) chat.Intent {
	label := strings.ToLower(strings.TrimSpace(out))
	label = strings.Trim(label, ".\"'`")
	switch chat.Intent(label) {
	case chat.IntentGreeting, chat.IntentShowEmails, chat.IntentSummarize,
		chat.IntentReply, chat.IntentDelete, chat.IntentHelp:
		return chat.Intent(label)
	default:
		return chat.IntentUnknown
	}
}
