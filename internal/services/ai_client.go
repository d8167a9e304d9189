package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mirelia/companion-backend/internal/logger"
	"github.com/mirelia/companion-backend/internal/types"
	"github.com/mirelia/companion-backend/internal/utils"
)

// PersonaDraft is what the LLM hands back when expanding a one-line custom
// prompt into a full persona definition.
type PersonaDraft struct {
	Name        string `json:"name"`
	Personality string `json:"personality"`
	Appearance  string `json:"appearance"`
	Backstory   string `json:"backstory"`
	Hobbies     string `json:"hobbies"`
	Likes       string `json:"likes"`
	Dislikes    string `json:"dislikes"`
}

type AIClient interface {
	CompanionReply(ctx context.Context, model *types.AIModel, history []*types.ChatMessage, userMessage string) (string, error)
	GeneratePersona(ctx context.Context, prompt string) (*PersonaDraft, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

type aiClient struct {
	log        *logger.Logger
	client     *openai.Client
	chatModel  string
	imageModel string
	maxRetries int
}

// NewAIClient speaks to any chat-completions compatible backend. With only
// XAI_API_KEY set it targets the Grok API through the same client.
func NewAIClient(log *logger.Logger) (AIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	baseURL := os.Getenv("OPENAI_BASE_URL")
	if apiKey == "" {
		if xaiKey := os.Getenv("XAI_API_KEY"); xaiKey != "" {
			apiKey = xaiKey
			if baseURL == "" {
				baseURL = "https://api.x.ai/v1"
			}
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &aiClient{
		log:        log.With("service", "AIClient"),
		client:     openai.NewClientWithConfig(cfg),
		chatModel:  utils.GetEnv("OPENAI_MODEL", "gpt-4o-mini", nil),
		imageModel: utils.GetEnv("OPENAI_IMAGE_MODEL", openai.CreateImageModelDallE3, nil),
		maxRetries: utils.GetEnvAsInt("OPENAI_MAX_RETRIES", 3, nil),
	}, nil
}

func (c *aiClient) CompanionReply(ctx context.Context, model *types.AIModel, history []*types.ChatMessage, userMessage string) (string, error) {
	if model == nil {
		return "", fmt.Errorf("nil persona")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: personaSystemPrompt(model),
	})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.IsAIMessage {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})

	resp, err := c.chatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.chatModel,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("companion reply: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("companion reply: empty choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *aiClient) GeneratePersona(ctx context.Context, prompt string) (*PersonaDraft, error) {
	system := "You create fictional AI companion personas. Respond with a single JSON object " +
		"with exactly these string fields: name, personality, appearance, backstory, hobbies, likes, dislikes. " +
		"No markdown, no commentary."

	resp, err := c.chatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("generate persona: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("generate persona: empty choices")
	}
	return ParsePersonaDraft(resp.Choices[0].Message.Content)
}

func (c *aiClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	backoff := time.Second
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		resp, err := c.client.CreateImage(ctx, openai.ImageRequest{
			Model:          c.imageModel,
			Prompt:         prompt,
			N:              1,
			Size:           openai.CreateImageSize1024x1024,
			ResponseFormat: openai.CreateImageResponseFormatURL,
		})
		if err == nil {
			if len(resp.Data) == 0 {
				return "", fmt.Errorf("image generation: empty response")
			}
			return resp.Data[0].URL, nil
		}
		lastErr = err
		if !isRetryableAIErr(err) || attempt == c.maxRetries {
			return "", err
		}
		sleep := jitterSleep(backoff)
		c.log.Warn("Image request retrying", "attempt", attempt+1, "sleep", sleep.String(), "error", err.Error())
		time.Sleep(sleep)
		backoff *= 2
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
	}
	return "", lastErr
}

func (c *aiClient) chatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var lastErr error
	backoff := time.Second
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return openai.ChatCompletionResponse{}, ctx.Err()
		}
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isRetryableAIErr(err) || attempt == c.maxRetries {
			return openai.ChatCompletionResponse{}, err
		}
		sleep := jitterSleep(backoff)
		c.log.Warn("Chat completion retrying",
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleep.String(),
			"error", err.Error(),
		)
		time.Sleep(sleep)
		backoff *= 2
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
	}
	return openai.ChatCompletionResponse{}, lastErr
}

func isRetryableAIErr(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.HTTPStatusCode
		return code == 408 || code == 429 || (code >= 500 && code <= 599)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func jitterSleep(base time.Duration) time.Duration {
	// +/- 20%
	if base <= 0 {
		return 0
	}
	j := 0.2
	delta := base.Seconds() * j
	low := base.Seconds() - delta
	high := base.Seconds() + delta
	if low < 0 {
		low = 0
	}
	v := low + rand.Float64()*(high-low)
	return time.Duration(v * float64(time.Second))
}

// ParsePersonaDraft tolerates models that wrap the JSON in code fences.
func ParsePersonaDraft(raw string) (*PersonaDraft, error) {
	content := strings.TrimSpace(raw)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}
	var draft PersonaDraft
	if err := json.Unmarshal([]byte(content), &draft); err != nil {
		return nil, fmt.Errorf("persona draft decode: %w; raw=%s", err, raw)
	}
	if strings.TrimSpace(draft.Name) == "" {
		return nil, fmt.Errorf("persona draft missing name")
	}
	return &draft, nil
}

func personaSystemPrompt(model *types.AIModel) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, an AI companion. Stay in character at all times.\n", model.Name)
	if model.Personality != "" {
		fmt.Fprintf(&b, "Personality: %s\n", model.Personality)
	}
	if model.Appearance != "" {
		fmt.Fprintf(&b, "Appearance: %s\n", model.Appearance)
	}
	if model.Backstory != "" {
		fmt.Fprintf(&b, "Backstory: %s\n", model.Backstory)
	}
	if model.Hobbies != "" {
		fmt.Fprintf(&b, "Hobbies: %s\n", model.Hobbies)
	}
	if model.Likes != "" {
		fmt.Fprintf(&b, "Likes: %s\n", model.Likes)
	}
	if model.Dislikes != "" {
		fmt.Fprintf(&b, "Dislikes: %s\n", model.Dislikes)
	}
	b.WriteString("Keep replies conversational and reasonably short.")
	return b.String()
}
